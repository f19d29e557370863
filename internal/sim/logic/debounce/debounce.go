// Package debounce is the hysteresis accumulator shared by the sampling sensors.
// It has no dependencies on the world; callers feed it one measurement per sample.
package debounce

// Filter integrates -1/0/+1 measurements. Counter stays within [0, Max]; the
// filter turns inactive when the counter reaches 0 and active when it reaches
// Max. In between the previous state is kept.
type Filter struct {
	Counter int
	Max     int
	Active  bool
}

// Measure converts a band comparison into a measurement.
func Measure(on, off bool) int {
	switch {
	case on:
		return 1
	case off:
		return -1
	default:
		return 0
	}
}

// Feed applies one measurement and returns the resulting state.
// A Max of zero disables filtering: any +1 activates, any -1 deactivates.
func (f *Filter) Feed(m int) bool {
	if m > 1 {
		m = 1
	} else if m < -1 {
		m = -1
	}
	if f.Max <= 0 {
		f.Counter = 0
		if m > 0 {
			f.Active = true
		} else if m < 0 {
			f.Active = false
		}
		return f.Active
	}
	f.Counter += m
	if f.Counter < 0 {
		f.Counter = 0
	} else if f.Counter > f.Max {
		f.Counter = f.Max
	}
	if f.Counter == 0 {
		f.Active = false
	} else if f.Counter == f.Max {
		f.Active = true
	}
	return f.Active
}

// Reset clears the counter and state.
func (f *Filter) Reset() {
	f.Counter = 0
	f.Active = false
}
