package sensor

import (
	"github.com/stfwi/rsgauges-sub000/internal/sim/device"
	"github.com/stfwi/rsgauges-sub000/internal/sim/logic/mathx"
)

// Daytime is active inside a window of the day mapped onto 0..15. A window
// with on > off wraps around midnight. With a debounce set, transitions are
// accepted with a probability per tick that drops as the debounce grows, so
// a group of sensors does not switch on the same tick.
type Daytime struct{}

func (Daytime) Kind() device.SensorKind { return device.SensorDaytime }

func (Daytime) Interval(s *device.SensorState) int {
	if s.Pending {
		return 1
	}
	return environmentInterval
}

func (Daytime) Sample(ctx device.SampleContext, st *device.State) device.SensorResult {
	if ctx.World == nil {
		return device.SensorResult{Skip: true}
	}
	s := &st.Sensor
	t := DayScale(ctx.World.TimeOfDay(), ctx.World.DayTicks())
	want := InWindow(t, s.ThresholdOn, s.ThresholdOff)
	s.Pending = false
	if want != s.Active && s.Debounce > 0 {
		u := mathx.Unit(ctx.Seed, ctx.Pos.X, ctx.Pos.Y, ctx.Pos.Z, ctx.Tick)
		if u >= TransitionProbability(s.Debounce, device.DaytimeDebounceMax) {
			want = s.Active
			s.Pending = true
		}
	}
	s.Active = want
	return device.SensorResult{Active: want}
}

// DayScale maps a time of day onto 0..15.
func DayScale(timeOfDay, dayTicks int) int {
	if dayTicks <= 0 {
		return 0
	}
	timeOfDay %= dayTicks
	if timeOfDay < 0 {
		timeOfDay += dayTicks
	}
	return mathx.ClampLevel(timeOfDay * 16 / dayTicks)
}

// InWindow reports whether t lies in [on, off], wrapping when on > off.
// An empty window (on == off) is never active.
func InWindow(t, on, off int) bool {
	switch {
	case on == off:
		return false
	case on < off:
		return t >= on && t <= off
	default:
		return t >= on || t <= off
	}
}

// TransitionProbability is (1 - d/(0.9*dmax))^2 * 0.7, clamped at 0.
func TransitionProbability(d, dmax int) float64 {
	if d <= 0 || dmax <= 0 {
		return 1
	}
	x := 1 - float64(d)/(0.9*float64(dmax))
	if x <= 0 {
		return 0
	}
	return x * x * 0.7
}
