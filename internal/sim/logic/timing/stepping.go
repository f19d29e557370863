package timing

const (
	MinIntervalTicks = 5
	MaxIntervalTicks = 12000
)

func intervalStep(v int) int {
	switch {
	case v < 100:
		return 5
	case v < 200:
		return 10
	case v < 400:
		return 20
	case v < 600:
		return 40
	case v < 800:
		return 100
	case v < 2400:
		return 200
	default:
		return 600
	}
}

// StepInterval moves an interval preset one notch up or down. Steps grow with
// the value. Going down uses the step that leads up to v, so up and down are
// inverse operations on the preset grid.
func StepInterval(v int, up bool) int {
	if up {
		v += intervalStep(v)
	} else {
		v -= intervalStep(v - 1)
	}
	return ClampInterval(v)
}

func ClampInterval(v int) int {
	if v < MinIntervalTicks {
		return MinIntervalTicks
	}
	if v > MaxIntervalTicks {
		return MaxIntervalTicks
	}
	return v
}
