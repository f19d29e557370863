package device

import (
	"github.com/stfwi/rsgauges-sub000/internal/protocol"
	"github.com/stfwi/rsgauges-sub000/internal/sim/host"
	"github.com/stfwi/rsgauges-sub000/internal/sim/logic/mathx"
	"github.com/stfwi/rsgauges-sub000/internal/sim/logic/timing"
)

// Configurable fields.
const (
	FieldOnPower      = "on_power"
	FieldOffPower     = "off_power"
	FieldColorTint    = "color_tint"
	FieldActiveTime   = "active_time"
	FieldRange        = "range"
	FieldThreshold    = "threshold"
	FieldFilter       = "filter"
	FieldDebounce     = "debounce"
	FieldThresholdOn  = "threshold_on"
	FieldThresholdOff = "threshold_off"
	FieldPSet         = "p_set"
	FieldTOn          = "t_on"
	FieldTOff         = "t_off"
	FieldRamp         = "ramp"
)

// Configure adjusts one field by delta. It returns "" or a protocol error
// code. Interval presets move along the interval stepping table, one notch
// per unit of delta.
func (i *Instance) Configure(now uint64, field string, delta int) string {
	if delta == 0 {
		return protocol.ErrBadRequest
	}
	d := i.desc
	st := &i.st
	s := &st.Sensor
	before := Level(st)
	restart := false

	switch field {
	case FieldOnPower, FieldOffPower:
		if !d.TouchConfigurable || d.Kind != KindSwitch {
			return protocol.ErrNotConfig
		}
		if field == FieldOnPower {
			st.OnPower = mathx.ClampLevel(st.OnPower + delta)
		} else {
			st.OffPower = mathx.ClampLevel(st.OffPower + delta)
		}
	case FieldColorTint:
		st.ColorTint = wrap(st.ColorTint+delta, MaxPower+1)
	case FieldActiveTime:
		if !d.PulseTimeConfigurable {
			return protocol.ErrNotConfig
		}
		st.ActiveTime = mathx.ClampInt(st.ActiveTime+delta, 0, MaxActiveTime)
	case FieldRange:
		switch d.Sensor {
		case SensorVolumetric, SensorLinear, SensorDoor, SensorBlockMatch:
		default:
			return protocol.ErrNotConfig
		}
		s.Range = mathx.ClampInt(s.Range+delta, 1, d.MaxRange)
	case FieldThreshold:
		if !d.Sensor.Entity() && d.Sensor != SensorBlockMatch {
			return protocol.ErrNotConfig
		}
		s.Threshold = mathx.ClampInt(s.Threshold+delta, 1, MaxThreshold)
	case FieldFilter:
		if !d.Sensor.Entity() {
			return protocol.ErrNotConfig
		}
		s.FilterIndex = wrap(s.FilterIndex+delta, host.NumEntityClasses())
	case FieldDebounce:
		switch d.Sensor {
		case SensorLight, SensorBlockMatch, SensorComparator:
			s.Debounce = mathx.ClampInt(s.Debounce+delta, 0, MaxDebounce)
		case SensorDaytime:
			s.Debounce = mathx.ClampInt(s.Debounce+delta, 0, MaxDaytimeDebounce)
		default:
			return protocol.ErrNotConfig
		}
		s.DebounceCounter = mathx.ClampInt(s.DebounceCounter, 0, s.Debounce)
	case FieldThresholdOn, FieldThresholdOff:
		if !d.Sensor.Banded() {
			return protocol.ErrNotConfig
		}
		if field == FieldThresholdOn {
			s.ThresholdOn = mathx.ClampInt(s.ThresholdOn+delta, 0, MaxBandLevel)
		} else {
			s.ThresholdOff = mathx.ClampInt(s.ThresholdOff+delta, 0, MaxBandLevel)
		}
	case FieldPSet, FieldTOn, FieldTOff, FieldRamp:
		if d.Sensor != SensorInterval {
			return protocol.ErrNotConfig
		}
		iv := &s.Interval
		switch field {
		case FieldPSet:
			iv.PSet = mathx.ClampInt(iv.PSet+delta, 1, MaxPower)
		case FieldTOn:
			iv.TOn = stepInterval(iv.TOn, delta)
		case FieldTOff:
			iv.TOff = stepInterval(iv.TOff, delta)
		case FieldRamp:
			if !d.RampConfigurable {
				return protocol.ErrNotConfig
			}
			iv.Ramp = mathx.ClampInt(iv.Ramp+delta, 0, timing.MaxRamp)
		}
		restart = true
	default:
		return protocol.ErrBadRequest
	}

	if restart {
		i.Restart()
	} else if d.Policy == PolicyAutomatic {
		s.UpdateTimer = 0
	}
	if d.Kind == KindSwitch && Level(st) != before {
		i.outputChanged(now, false)
	}
	return ""
}

func stepInterval(v, delta int) int {
	up := delta > 0
	if delta < 0 {
		delta = -delta
	}
	for ; delta > 0; delta-- {
		v = timing.StepInterval(v, up)
	}
	return v
}

type OutputMode uint8

const (
	OutputDefault OutputMode = iota
	OutputWeak
	OutputInverted
	OutputNoOutput
)

var outputModeNames = [...]string{"default", "weak", "inverted", "nooutput"}

func (m OutputMode) String() string {
	if int(m) < len(outputModeNames) {
		return outputModeNames[m]
	}
	return "?"
}

func (i *Instance) OutputMode() OutputMode {
	switch {
	case i.st.NoOutput:
		return OutputNoOutput
	case i.st.Inverted:
		return OutputInverted
	case i.st.Weak:
		return OutputWeak
	default:
		return OutputDefault
	}
}

// outputModes lists the modes the type supports in cycle order.
func (d *Descriptor) outputModes() []OutputMode {
	out := []OutputMode{OutputDefault}
	if d.Weakable {
		out = append(out, OutputWeak)
	}
	if d.Invertible {
		out = append(out, OutputInverted)
	}
	if d.LinkSource {
		out = append(out, OutputNoOutput)
	}
	return out
}

// CycleOutputMode steps default, weak, inverted, nooutput and back to
// default, skipping modes the type does not support. ok is false when the
// type supports none.
func (i *Instance) CycleOutputMode(now uint64) (OutputMode, bool) {
	modes := i.desc.outputModes()
	if len(modes) < 2 || i.desc.Kind != KindSwitch {
		return i.OutputMode(), false
	}
	cur := i.OutputMode()
	next := modes[0]
	for k, m := range modes {
		if m == cur {
			next = modes[(k+1)%len(modes)]
			break
		}
	}
	before := Power(i.desc, &i.st, false)
	beforeStrong := Power(i.desc, &i.st, true)
	i.st.Weak = next == OutputWeak
	i.st.Inverted = next == OutputInverted
	i.st.NoOutput = next == OutputNoOutput
	if Power(i.desc, &i.st, false) != before || Power(i.desc, &i.st, true) != beforeStrong {
		i.outputChanged(now, false)
	}
	return next, true
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
