package device

import (
	"fmt"

	"github.com/stfwi/rsgauges-sub000/internal/sim/host"
	"github.com/stfwi/rsgauges-sub000/internal/sim/link"
	"github.com/stfwi/rsgauges-sub000/internal/sim/logic/debounce"
	"github.com/stfwi/rsgauges-sub000/internal/sim/logic/timing"
)

const (
	MaxPower = 15

	MaxActiveTime   = 200
	MaxThreshold    = 64
	MaxDebounce     = 15
	MaxBandLevel    = 15

	// WeatherDebounce is the fixed ceiling used by rain and lightning sensors.
	WeatherDebounce = 4
	// DaytimeDebounceMax is the softening ceiling; configured values stay
	// below 0.9 of it so transitions remain possible.
	DaytimeDebounceMax = 10
	MaxDaytimeDebounce = 8
)

type SensorState struct {
	Range        int
	Threshold    int
	FilterIndex  int
	Debounce     int
	ThresholdOn  int
	ThresholdOff int
	Interval     timing.Interval

	// Ephemeral.
	DebounceCounter int
	UpdateInterval  int
	UpdateTimer     int
	Active          bool
	// Pending marks a deferred transition; the sensor is then sampled
	// every tick until it is accepted.
	Pending bool
}

// Feed runs one measurement through the debounce filter with ceiling max.
func (s *SensorState) Feed(m, max int) bool {
	f := debounce.Filter{Counter: s.DebounceCounter, Max: max, Active: s.Active}
	s.Active = f.Feed(m)
	s.DebounceCounter = f.Counter
	return s.Active
}

func (s *SensorState) Filter() host.EntityClass { return host.EntityClass(s.FilterIndex) }

// resetEphemeral clears everything that is not persisted.
func (s *SensorState) resetEphemeral() {
	s.DebounceCounter = 0
	s.UpdateInterval = 0
	s.UpdateTimer = 0
	s.Active = false
	s.Pending = false
	s.Interval.P = 0
	s.Interval.Timer = 0
	s.Interval.RampTimer = 0
	s.Interval.PhaseOn = false
}

// State is the mutable record of one placed device.
type State struct {
	OnPower    int
	OffPower   int
	Inverted   bool
	Weak       bool
	NoOutput   bool
	ColorTint  int
	ActiveTime int
	OffTimer   int
	Powered    bool

	Links  link.Registry
	Sensor SensorState
}

// DefaultState returns the placement defaults of a type.
func DefaultState(d *Descriptor) State {
	st := d.defaults
	st.Links = link.Registry{}
	return st
}

func sensorDefaults(k SensorKind) SensorState {
	s := SensorState{}
	switch k {
	case SensorVolumetric:
		s.Range = 6
		s.Threshold = 1
	case SensorLinear:
		s.Range = 12
		s.Threshold = 1
	case SensorLight:
		s.ThresholdOn = 10
		s.ThresholdOff = 7
		s.Debounce = 2
	case SensorRain, SensorLightning:
		s.Debounce = WeatherDebounce
	case SensorDaytime:
		s.ThresholdOn = 5
		s.ThresholdOff = 12
	case SensorInterval:
		s.Interval = timing.Interval{PSet: MaxPower, TOn: 20, TOff: 20}
	case SensorBlockMatch:
		s.Range = 4
		s.Threshold = 1
	case SensorComparator:
		s.ThresholdOn = 1
		s.ThresholdOff = 0
	case SensorContact:
		s.Threshold = 1
	case SensorDoor:
		s.Range = 3
		s.Threshold = 1
	}
	return s
}

func inRange(v, lo, hi int) bool { return v >= lo && v <= hi }

// validateState returns "" when every persisted field is within range for
// the type.
func validateState(d *Descriptor, st *State) string {
	for _, f := range []struct {
		name string
		v    int
		hi   int
	}{
		{"on_power", st.OnPower, MaxPower},
		{"off_power", st.OffPower, MaxPower},
		{"color_tint", st.ColorTint, MaxPower},
		{"active_time", st.ActiveTime, MaxActiveTime},
	} {
		if !inRange(f.v, 0, f.hi) {
			return fmt.Sprintf("%s=%d out of [0,%d]", f.name, f.v, f.hi)
		}
	}
	if st.OffTimer < 0 {
		return "negative off_timer"
	}
	if st.Inverted && !d.Invertible {
		return "inverted on non-invertible type"
	}
	if st.Weak && !d.Weakable {
		return "weak on non-weakable type"
	}
	if st.NoOutput && !d.LinkSource {
		return "nooutput on non-link-source type"
	}
	if d.Policy != PolicyAutomatic {
		return ""
	}
	s := &st.Sensor
	switch d.Sensor {
	case SensorVolumetric, SensorLinear, SensorDoor, SensorBlockMatch:
		if !inRange(s.Range, 1, d.MaxRange) {
			return fmt.Sprintf("range=%d out of [1,%d]", s.Range, d.MaxRange)
		}
	}
	if d.Sensor.Entity() || d.Sensor == SensorBlockMatch {
		if !inRange(s.Threshold, 1, MaxThreshold) {
			return fmt.Sprintf("threshold=%d out of [1,%d]", s.Threshold, MaxThreshold)
		}
	}
	if !inRange(s.FilterIndex, 0, host.NumEntityClasses()-1) {
		return fmt.Sprintf("filter_index=%d", s.FilterIndex)
	}
	maxDeb := MaxDebounce
	if d.Sensor == SensorDaytime {
		maxDeb = MaxDaytimeDebounce
	}
	if !inRange(s.Debounce, 0, maxDeb) {
		return fmt.Sprintf("debounce=%d out of [0,%d]", s.Debounce, maxDeb)
	}
	if !inRange(s.ThresholdOn, 0, MaxBandLevel) || !inRange(s.ThresholdOff, 0, MaxBandLevel) {
		return "thresholds out of [0,15]"
	}
	if d.Sensor == SensorInterval {
		iv := &s.Interval
		if !inRange(iv.PSet, 1, MaxPower) {
			return fmt.Sprintf("p_set=%d out of [1,15]", iv.PSet)
		}
		if !inRange(iv.TOn, timing.MinIntervalTicks, timing.MaxIntervalTicks) ||
			!inRange(iv.TOff, timing.MinIntervalTicks, timing.MaxIntervalTicks) {
			return fmt.Sprintf("t_on/t_off=%d/%d out of range", iv.TOn, iv.TOff)
		}
		if !inRange(iv.Ramp, 0, timing.MaxRamp) {
			return fmt.Sprintf("ramp=%d out of [0,%d]", iv.Ramp, timing.MaxRamp)
		}
		if iv.Ramp != 0 && !d.RampConfigurable {
			return "ramp on non-ramp type"
		}
	}
	return ""
}
