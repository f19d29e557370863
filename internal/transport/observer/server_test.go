package observer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stfwi/rsgauges-sub000/internal/protocol"
	"github.com/stfwi/rsgauges-sub000/internal/sim/world"
)

func TestFilter(t *testing.T) {
	center := [3]int{0, 64, 0}
	f := newFilter(protocol.SubscribeMsg{Cues: []string{"click"}, Center: &center, Radius: 4})
	if !f.wantEffect(protocol.EffectMsg{Cue: "click", Pos: [3]int{3, 64, 0}}) {
		t.Fatalf("near click filtered")
	}
	if f.wantEffect(protocol.EffectMsg{Cue: "click", Pos: [3]int{5, 64, 0}}) {
		t.Fatalf("far click delivered")
	}
	if f.wantEffect(protocol.EffectMsg{Cue: "unclick", Pos: center}) {
		t.Fatalf("unsubscribed cue delivered")
	}
	if f.wantPower(protocol.PowerMsg{Pos: center}) || f.wantLink(protocol.LinkMsg{Source: center}) {
		t.Fatalf("power/link delivered without opt-in")
	}

	all := newFilter(protocol.SubscribeMsg{Power: true})
	if !all.wantEffect(protocol.EffectMsg{Cue: "x", Pos: [3]int{1000, 0, 0}}) || !all.wantPower(protocol.PowerMsg{}) {
		t.Fatalf("empty filter should pass everything opted in")
	}

	wide := newFilter(protocol.SubscribeMsg{Center: &center, Radius: 100000})
	if wide.radiusSq != maxRadius*maxRadius {
		t.Fatalf("radiusSq=%d, want clamp", wide.radiusSq)
	}
}

func TestHub_DropsWhenFull(t *testing.T) {
	h := NewHub()
	s := h.join(protocol.SubscribeMsg{})
	for i := 0; i < sessionQueue+3; i++ {
		h.PublishEffect(protocol.EffectMsg{Cue: "click"})
	}
	if len(s.out) != sessionQueue || h.Dropped() != 3 {
		t.Fatalf("queued=%d dropped=%d", len(s.out), h.Dropped())
	}
	h.leave(s.id)
	if h.Sessions() != 0 {
		t.Fatalf("sessions=%d after leave", h.Sessions())
	}
}

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	w := world.New(world.Config{ID: "w1"}, nil)
	hub := NewHub()
	srv := NewServer(w, hub, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/observer/bootstrap", srv.BootstrapHandler())
	mux.HandleFunc("/observer/ws", srv.WSHandler())
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return hub, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/observer/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitSessions(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Sessions() != n {
		if time.Now().After(deadline) {
			t.Fatalf("sessions=%d, want %d", h.Sessions(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServer_StreamsFilteredEvents(t *testing.T) {
	hub, ts := newTestServer(t)
	conn := dial(t, ts)

	center := [3]int{0, 64, 0}
	sub := protocol.SubscribeMsg{Type: protocol.TypeSubscribe, ProtocolVersion: protocol.Version, Center: &center, Radius: 8, Power: true}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	waitSessions(t, hub, 1)

	hub.PublishEffect(protocol.EffectMsg{Type: protocol.TypeEffect, Cue: "click", Pos: [3]int{100, 64, 0}})
	hub.PublishEffect(protocol.EffectMsg{Type: protocol.TypeEffect, Cue: "click", Pos: [3]int{1, 64, 0}})
	hub.PublishLink(protocol.LinkMsg{Type: protocol.TypeLink, Source: center})
	hub.PublishPower(protocol.PowerMsg{Type: protocol.TypePower, Pos: center, Powered: true, Power: 15})

	var got []string
	for len(got) < 2 {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		got = append(got, base.Type)
	}
	if got[0] != protocol.TypeEffect || got[1] != protocol.TypePower {
		t.Fatalf("got=%v, want [EFFECT POWER]", got)
	}
}

func TestServer_RejectsBadHandshake(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts)
	if err := conn.WriteJSON(map[string]string{"type": "HELLO"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("err=%v, want policy violation close", err)
	}
}

func TestServer_LoopbackOnly(t *testing.T) {
	srv := NewServer(world.New(world.Config{ID: "w1"}, nil), NewHub(), nil)
	req := httptest.NewRequest(http.MethodGet, "/observer/bootstrap", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	rec := httptest.NewRecorder()
	srv.BootstrapHandler().ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("code=%d, want 403", rec.Code)
	}

	req.RemoteAddr = "127.0.0.1:5555"
	rec = httptest.NewRecorder()
	srv.BootstrapHandler().ServeHTTP(rec, req)
	var resp protocol.BootstrapResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.WorldID != "w1" || resp.TickRateHz != 20 || resp.ProtocolVersion != protocol.Version {
		t.Fatalf("bootstrap=%+v", resp)
	}
}
