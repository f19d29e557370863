package timing

// RampPeriod is the number of ticks between two ramp steps.
const RampPeriod = 5

const MaxRamp = 5

// Interval is a two phase timer with optional ramping output. P is the current
// output level; it climbs to PSet during the on phase, holds for TOn ticks,
// then falls to 0 and holds for TOff ticks.
type Interval struct {
	PSet int
	TOn  int
	TOff int
	Ramp int

	P         int
	PhaseOn   bool
	Timer     int
	RampTimer int
}

// Restart drops the output and begins a fresh on phase.
func (iv *Interval) Restart() {
	iv.P = 0
	iv.Timer = 0
	iv.RampTimer = 0
	iv.PhaseOn = true
}

// Advance runs dt ticks and reports whether P changed.
func (iv *Interval) Advance(dt int) bool {
	before := iv.P
	for i := 0; i < dt; i++ {
		iv.step()
	}
	return iv.P != before
}

func (iv *Interval) pset() int {
	switch {
	case iv.PSet < 1:
		return 1
	case iv.PSet > 15:
		return 15
	default:
		return iv.PSet
	}
}

func (iv *Interval) ramp() int {
	switch {
	case iv.Ramp < 0:
		return 0
	case iv.Ramp > MaxRamp:
		return MaxRamp
	default:
		return iv.Ramp
	}
}

func (iv *Interval) step() {
	target := iv.pset()
	if iv.PhaseOn {
		if iv.P < target {
			if !iv.rampToward(target) {
				return
			}
			iv.Timer = max(iv.TOn, 1)
		} else if iv.P > target {
			iv.P = target
		}
		iv.Timer--
		if iv.Timer <= 0 {
			iv.Timer = 0
			iv.PhaseOn = false
			iv.RampTimer = 0
		}
		return
	}
	if iv.P > 0 {
		if !iv.rampToward(0) {
			return
		}
		iv.Timer = max(iv.TOff, 1)
	}
	iv.Timer--
	if iv.Timer <= 0 {
		iv.Timer = 0
		iv.PhaseOn = true
		iv.RampTimer = 0
	}
}

// rampToward moves P toward target and reports whether it arrived this tick.
func (iv *Interval) rampToward(target int) bool {
	r := iv.ramp()
	if r == 0 {
		iv.P = target
		return true
	}
	iv.RampTimer++
	if iv.RampTimer < RampPeriod {
		return false
	}
	iv.RampTimer = 0
	if iv.P < target {
		iv.P = min(iv.P+r, target)
	} else {
		iv.P = max(iv.P-r, target)
	}
	return iv.P == target
}
