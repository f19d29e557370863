package device

import (
	"github.com/stfwi/rsgauges-sub000/internal/sim/link"
	"github.com/stfwi/rsgauges-sub000/internal/sim/logic/timing"
)

// ActivationContext describes a manual activation.
type ActivationContext struct {
	Tick  uint64
	Actor string
}

// Activate handles a manual activation. Bistable switches toggle, pulse
// switches start or extend their pulse. Sensor driven and link relay
// switches ignore manual activation and return false.
func (i *Instance) Activate(ctx ActivationContext) bool {
	switch i.desc.Policy {
	case PolicyBistable:
		i.setPowered(ctx.Tick, !i.st.Powered)
	case PolicyPulse:
		i.pulse(ctx.Tick)
	default:
		return false
	}
	if i.env.Observer != nil {
		i.env.Observer.Activated(i, ctx.Tick)
	}
	return true
}

func (i *Instance) pulse(now uint64) {
	i.st.OffTimer = timing.PulseOffTimer(i.st.OffTimer, i.st.ActiveTime, i.env.Settings.tickBase(), i.desc.PulseExtendable)
	i.setPowered(now, true)
}

// Restart restarts an interval timer.
func (i *Instance) Restart() bool {
	if i.desc.Sensor != SensorInterval {
		return false
	}
	i.st.Sensor.Interval.Restart()
	i.st.Sensor.UpdateTimer = 0
	return true
}

// NeighborChanged shortens the cooldown of block scanning sensors. The scan
// itself still runs on the next tick.
func (i *Instance) NeighborChanged() {
	s := &i.st.Sensor
	if i.desc.Sensor == SensorBlockMatch && s.UpdateTimer > 2 {
		s.UpdateTimer = 0
	}
}

// Shock delivers a landing detected by a neighbouring contact device of the
// same type. Falls shorter than the minimum distance are ignored.
func (i *Instance) Shock(now uint64, fall float64) bool {
	if i.desc.Sensor != SensorContact || !i.desc.ShockSensitive {
		return false
	}
	if fall < i.desc.MinFallDistance {
		return false
	}
	i.st.OffTimer = i.sensorHold()
	if i.st.Powered {
		return false
	}
	i.setPowered(now, true)
	return true
}

// Destroy detaches every outbound link and drops the output.
func (i *Instance) Destroy(now uint64) []link.Token {
	toks := i.UnlinkAll()
	if i.st.Powered {
		i.st.Powered = false
		i.st.OffTimer = 0
		i.env.notify(i.pos, i.mountSide())
		if i.env.Observer != nil {
			i.env.Observer.PowerChanged(i, now)
		}
	}
	return toks
}
