package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/stfwi/rsgauges-sub000/internal/protocol"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

// roundTrip marshals a typed message and decodes it back to a generic value,
// so the schemas are checked against what the server actually sends.
func roundTrip(t *testing.T, v any) any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestSchemas_ValidateSamples(t *testing.T) {
	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	validate(compile(t, "subscribe.schema.json"), roundTrip(t, protocol.SubscribeMsg{
		Type:            protocol.TypeSubscribe,
		ProtocolVersion: protocol.Version,
		Cues:            []string{"click"},
		Center:          &[3]int{0, 64, 0},
		Radius:          32,
		Power:           true,
	}))
	validate(compile(t, "effect.schema.json"), roundTrip(t, protocol.EffectMsg{
		Type:            protocol.TypeEffect,
		ProtocolVersion: protocol.Version,
		Tick:            12,
		Cue:             "activate",
		Pos:             [3]int{1, 2, -3},
		DeviceID:        "lever@1,2,-3",
	}))
	validate(compile(t, "power.schema.json"), roundTrip(t, protocol.PowerMsg{
		Type:            protocol.TypePower,
		ProtocolVersion: protocol.Version,
		Tick:            12,
		DeviceID:        "lever@1,2,-3",
		Pos:             [3]int{1, 2, -3},
		Powered:         true,
		Power:           15,
	}))
	validate(compile(t, "link.schema.json"), roundTrip(t, protocol.LinkMsg{
		Type:            protocol.TypeLink,
		ProtocolVersion: protocol.Version,
		Tick:            12,
		Source:          [3]int{0, 0, 0},
		Target:          [3]int{4, 0, 0},
		Mode:            "TOGGLE",
		Result:          "TOO_FAR",
	}))
}

func TestSchemas_RejectBadSamples(t *testing.T) {
	power := compile(t, "power.schema.json")
	bad := roundTrip(t, protocol.PowerMsg{Type: protocol.TypePower, ProtocolVersion: protocol.Version, DeviceID: "lever@1,2,3", Power: 16})
	if err := power.Validate(bad); err == nil {
		t.Fatalf("power 16 accepted")
	}
	link := compile(t, "link.schema.json")
	bad = roundTrip(t, protocol.LinkMsg{Type: protocol.TypeLink, ProtocolVersion: protocol.Version, Mode: "SOMETIMES", Result: "OK"})
	if err := link.Validate(bad); err == nil {
		t.Fatalf("unknown mode accepted")
	}
}

func TestSchemas_DeviceCatalog(t *testing.T) {
	s := compile(t, "devices.schema.json")
	var v any
	_ = json.Unmarshal([]byte(`{
	  "block_categories":{"ores":["iron_ore"]},
	  "types":[
	    {"id":"lever","bistable":true,"link_source":true,"defaults":{"on_power":15}},
	    {"id":"timer","automatic":true,"sensor":"interval","defaults":{"t_on":20,"t_off":40}}
	  ]
	}`), &v)
	if err := s.Validate(v); err != nil {
		t.Fatalf("validate: %v", err)
	}
	var bad any
	_ = json.Unmarshal([]byte(`{"types":[{"id":"lever","defaults":{"on_power":20}}]}`), &bad)
	if err := s.Validate(bad); err == nil {
		t.Fatalf("on_power 20 accepted")
	}
}
