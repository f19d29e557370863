// Package timing holds the pulse and interval curves used by switches and timers.
package timing

const (
	DefaultTickBase = 8

	// Curve values are host ticks; results are divided by the tick base.
	pulseMaxTicks = 400
	pulseMinTicks = 40
)

// PulseOffTimer returns the new off timer for a pulse activation.
//
// An explicit active time wins. Otherwise the timer is extended along a step
// curve driven by the current (remaining) timer, so repeated activations before
// the timeout lengthen the pulse up to a plateau instead of restarting it.
func PulseOffTimer(current, activeTime, tickBase int, extendable bool) int {
	if tickBase <= 0 {
		tickBase = 1
	}
	if activeTime > 0 {
		return atLeastOne(activeTime*tickBase - 1)
	}
	if !extendable || current < 0 {
		current = 0
	}
	c := current * tickBase
	var t int
	switch {
	case c > 190:
		t = pulseMaxTicks
	case c > 90:
		t = 200
	case c > 30:
		t = 100
	case c > 1:
		t = 60
	default:
		t = pulseMinTicks
	}
	return atLeastOne(t / tickBase)
}

// PulsePlateau is the largest timer PulseOffTimer can produce without an
// explicit active time.
func PulsePlateau(tickBase int) int {
	if tickBase <= 0 {
		tickBase = 1
	}
	return atLeastOne(pulseMaxTicks / tickBase)
}

// DefaultHold is the shortest pulse, used as detection hold time for sensors.
func DefaultHold(tickBase int) int {
	return PulseOffTimer(0, 0, tickBase, false)
}

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
