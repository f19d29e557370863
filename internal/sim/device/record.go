package device

import (
	"fmt"

	"github.com/stfwi/rsgauges-sub000/internal/sim/host"
	"github.com/stfwi/rsgauges-sub000/internal/sim/link"
)

// Record is the persisted form of an instance. Timers, debounce counters and
// the link guard are not part of it.
type Record struct {
	TypeID     string       `json:"type_id"`
	OnPower    int          `json:"on_power"`
	OffPower   int          `json:"off_power"`
	Inverted   bool         `json:"inverted,omitempty"`
	Weak       bool         `json:"weak,omitempty"`
	NoOutput   bool         `json:"nooutput,omitempty"`
	ColorTint  int          `json:"color_tint,omitempty"`
	ActiveTime int          `json:"active_time,omitempty"`
	Powered    bool         `json:"powered,omitempty"`
	SCD        uint32       `json:"scd"`
	SVD        uint32       `json:"svd"`
	Links      []LinkRecord `json:"links,omitempty"`
	Sensor     SensorRecord `json:"sensor"`
}

type LinkRecord struct {
	Target     [3]int `json:"target"`
	TargetType string `json:"target_type"`
	Mode       string `json:"mode"`
	Analog     bool   `json:"analog,omitempty"`
}

type SensorRecord struct {
	Range        int `json:"range,omitempty"`
	Threshold    int `json:"threshold,omitempty"`
	FilterIndex  int `json:"filter_index,omitempty"`
	Debounce     int `json:"debounce,omitempty"`
	ThresholdOn  int `json:"threshold_on,omitempty"`
	ThresholdOff int `json:"threshold_off,omitempty"`
	PSet         int `json:"p_set,omitempty"`
	TOn          int `json:"t_on,omitempty"`
	TOff         int `json:"t_off,omitempty"`
	Ramp         int `json:"ramp,omitempty"`
}

func RecordOf(d *Descriptor, st *State) Record {
	r := Record{
		TypeID:     d.TypeID,
		OnPower:    st.OnPower,
		OffPower:   st.OffPower,
		Inverted:   st.Inverted,
		Weak:       st.Weak,
		NoOutput:   st.NoOutput,
		ColorTint:  st.ColorTint,
		ActiveTime: st.ActiveTime,
		Powered:    st.Powered,
		SCD:        packSCD(st),
		SVD:        packSVD(&st.Sensor),
	}
	for _, l := range st.Links.Links() {
		r.Links = append(r.Links, LinkRecord{
			Target:     l.Target.ToArray(),
			TargetType: l.TargetTypeID,
			Mode:       l.Mode.String(),
			Analog:     l.Analog,
		})
	}
	s := &st.Sensor
	r.Sensor = SensorRecord{
		Range:        s.Range,
		Threshold:    s.Threshold,
		FilterIndex:  s.FilterIndex,
		Debounce:     s.Debounce,
		ThresholdOn:  s.ThresholdOn,
		ThresholdOff: s.ThresholdOff,
		PSet:         s.Interval.PSet,
		TOn:          s.Interval.TOn,
		TOff:         s.Interval.TOff,
		Ramp:         s.Interval.Ramp,
	}
	return r
}

// CheckRecord validates a persisted record against a type. The packed words
// must agree with the explicit fields.
func CheckRecord(d *Descriptor, r *Record) error {
	if r == nil {
		return fmt.Errorf("missing record")
	}
	if r.TypeID != d.TypeID {
		return fmt.Errorf("type %q, want %q", r.TypeID, d.TypeID)
	}
	st := stateFromRecord(d, r)
	if reason := validateState(d, &st); reason != "" {
		return fmt.Errorf("%s", reason)
	}
	if want := packSCD(&st); r.SCD != want {
		return fmt.Errorf("scd %#x does not match fields (%#x)", r.SCD, want)
	}
	if want := packSVD(&st.Sensor); r.SVD != want {
		return fmt.Errorf("svd %#x does not match fields (%#x)", r.SVD, want)
	}
	seen := map[host.Pos]bool{}
	for i, lr := range r.Links {
		mode, ok := link.ParseMode(lr.Mode)
		if !ok {
			return fmt.Errorf("links[%d]: bad mode %q", i, lr.Mode)
		}
		l := link.Link{Target: host.PosFromArray(lr.Target), TargetTypeID: lr.TargetType, Mode: mode}
		if !l.Valid() {
			return fmt.Errorf("links[%d]: invalid", i)
		}
		if seen[l.Target] {
			return fmt.Errorf("links[%d]: duplicate target %v", i, lr.Target)
		}
		seen[l.Target] = true
	}
	if len(r.Links) > 0 && !d.LinkSource {
		return fmt.Errorf("links on non-link-source type")
	}
	return nil
}

// Restore rebuilds a state from a record. Absent or corrupt records give the
// type defaults; corrupted reports the latter.
func Restore(d *Descriptor, r *Record) (st State, corrupted bool) {
	if r == nil {
		return DefaultState(d), false
	}
	if err := CheckRecord(d, r); err != nil {
		return DefaultState(d), true
	}
	return stateFromRecord(d, r), false
}

func stateFromRecord(d *Descriptor, r *Record) State {
	st := State{
		OnPower:    r.OnPower,
		OffPower:   r.OffPower,
		Inverted:   r.Inverted,
		Weak:       r.Weak,
		NoOutput:   r.NoOutput,
		ColorTint:  r.ColorTint,
		ActiveTime: r.ActiveTime,
		Powered:    r.Powered,
	}
	s := &st.Sensor
	s.Range = r.Sensor.Range
	s.Threshold = r.Sensor.Threshold
	s.FilterIndex = r.Sensor.FilterIndex
	s.Debounce = r.Sensor.Debounce
	s.ThresholdOn = r.Sensor.ThresholdOn
	s.ThresholdOff = r.Sensor.ThresholdOff
	s.Interval.PSet = r.Sensor.PSet
	s.Interval.TOn = r.Sensor.TOn
	s.Interval.TOff = r.Sensor.TOff
	s.Interval.Ramp = r.Sensor.Ramp

	links := make([]link.Link, 0, len(r.Links))
	for _, lr := range r.Links {
		mode, _ := link.ParseMode(lr.Mode)
		links = append(links, link.Link{
			Target:       host.PosFromArray(lr.Target),
			TargetTypeID: lr.TargetType,
			Mode:         mode,
			Analog:       lr.Analog,
		})
	}
	st.Links.Set(links)
	return st
}
