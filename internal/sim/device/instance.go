package device

import (
	"runtime/debug"

	"github.com/stfwi/rsgauges-sub000/internal/sim/host"
	"github.com/stfwi/rsgauges-sub000/internal/sim/logic/ids"
	"github.com/stfwi/rsgauges-sub000/internal/sim/logic/mathx"
	"github.com/stfwi/rsgauges-sub000/internal/sim/logic/timing"
)

// Instance is one placed device. It only mutates its own state; other
// devices are reached through link.Target.
type Instance struct {
	desc     *Descriptor
	pos      host.Pos
	facing   host.Facing
	st       State
	strategy Strategy
	env      *Env

	display    int
	backoff    int
	lastSample uint64
	sampled    bool
	shock      float64
}

// New places an instance with the given state. strategy must be set for
// automatic switches.
func New(d *Descriptor, pos host.Pos, facing host.Facing, st State, strategy Strategy, env *Env) *Instance {
	if env == nil {
		env = &Env{Settings: DefaultSettings()}
	}
	st.OffTimer = 0
	st.Links.ResetGuard()
	st.Sensor.resetEphemeral()
	if d.Sensor == SensorInterval {
		st.Sensor.Interval.Restart()
	}
	inst := &Instance{desc: d, pos: pos, facing: facing, st: st, strategy: strategy, env: env}
	if st.Powered && inst.timed() {
		// The off timer is not persisted; a restored pulse gets a fresh one.
		inst.st.OffTimer = inst.holdTicks()
	}
	return inst
}

// timed reports whether the output is released by the off timer.
func (i *Instance) timed() bool {
	switch i.desc.Policy {
	case PolicyPulse:
		return true
	case PolicyLinkRelay:
		return i.st.ActiveTime > 0
	}
	return false
}

func (i *Instance) Descriptor() *Descriptor { return i.desc }
func (i *Instance) Pos() host.Pos           { return i.pos }
func (i *Instance) Facing() host.Facing     { return i.facing }
func (i *Instance) TypeID() string          { return i.desc.TypeID }
func (i *Instance) ID() string              { return ids.DeviceID(i.desc.TypeID, i.pos.X, i.pos.Y, i.pos.Z) }

// State returns a copy of the current state.
func (i *Instance) State() State { return i.st }

func (i *Instance) Record() Record { return RecordOf(i.desc, &i.st) }

func (i *Instance) Powered() bool { return i.st.Powered }

// Display is the level shown by gauges and indicators.
func (i *Instance) Display() int { return i.display }

// BackingOff reports whether the instance is cooling down after a failed tick.
func (i *Instance) BackingOff() bool { return i.backoff > 0 }

// Power is the signal emitted toward side. Strong signal only goes into the
// block the device is mounted on.
func (i *Instance) Power(side host.Facing, strong bool) int {
	if strong && side != i.mountSide() {
		return 0
	}
	return Power(i.desc, &i.st, strong)
}

func (i *Instance) mountSide() host.Facing {
	if i.desc.FloorMounted {
		return host.Down
	}
	return i.facing.Opposite()
}

// Tick runs one host tick. Failures are contained here: they are logged,
// reported and followed by a cooldown.
func (i *Instance) Tick(now uint64) (changed bool) {
	defer func() {
		if r := recover(); r != nil {
			changed = false
			i.backoff = i.env.Settings.FailureBackoff
			if i.backoff <= 0 {
				i.backoff = DefaultSettings().FailureBackoff
			}
			i.env.logf("device %s: tick %d failed: %v\n%s", i.ID(), now, r, debug.Stack())
			if i.env.Observer != nil {
				i.env.Observer.TickFailure(i, now, r)
			}
		}
	}()
	if i.backoff > 0 {
		i.backoff--
		return false
	}
	if i.env.World != nil && !i.env.World.Loaded(i.pos) {
		return false
	}
	switch i.desc.Kind {
	case KindGauge, KindIndicator:
		return i.tickDisplay(now)
	}
	switch i.desc.Policy {
	case PolicyPulse, PolicyLinkRelay:
		return i.tickTimer(now)
	case PolicyAutomatic:
		return i.tickSensor(now)
	}
	return false
}

func (i *Instance) tickTimer(now uint64) bool {
	if !i.st.Powered || i.st.OffTimer <= 0 {
		return false
	}
	i.st.OffTimer--
	if i.st.OffTimer > 0 {
		return false
	}
	i.setPowered(now, false)
	return true
}

func (i *Instance) tickDisplay(now uint64) bool {
	if i.env.World == nil {
		return false
	}
	level := 0
	for _, f := range host.AllFacings {
		if s := i.env.World.SignalAt(i.pos, f); s > level {
			level = s
		}
	}
	if level > MaxPower {
		level = MaxPower
	}
	if i.desc.Kind == KindIndicator && level > 0 {
		level = MaxPower
	}
	if i.st.Inverted {
		level = MaxPower - level
	}
	if level == i.display {
		return false
	}
	i.display = level
	i.st.Powered = level > 0
	if i.env.Observer != nil {
		i.env.Observer.PowerChanged(i, now)
	}
	return true
}

func (i *Instance) tickSensor(now uint64) bool {
	s := &i.st.Sensor
	if i.st.OffTimer > 0 {
		i.st.OffTimer--
	}
	if s.UpdateTimer > 0 {
		s.UpdateTimer--
		return false
	}
	if i.strategy == nil {
		return false
	}
	elapsed := 1
	if i.sampled && now > i.lastSample {
		elapsed = int(now - i.lastSample)
	}
	ctx := SampleContext{
		World:      i.env.World,
		Categories: i.env.Categories,
		Desc:       i.desc,
		Pos:        i.pos,
		Facing:     i.facing,
		Tick:       now,
		Elapsed:    elapsed,
		TickBase:   i.env.Settings.tickBase(),
		Seed:       i.env.Settings.Seed,
	}
	res := i.strategy.Sample(ctx, &i.st)
	if res.Skip {
		s.UpdateTimer = 0
		return false
	}
	i.lastSample = now
	i.sampled = true
	s.UpdateInterval = i.strategy.Interval(s)
	s.UpdateTimer = s.UpdateInterval - 1
	if s.UpdateTimer < 0 {
		s.UpdateTimer = 0
	}
	return i.applySample(now, res)
}

func (i *Instance) applySample(now uint64, res SensorResult) bool {
	powerChanged := false
	if res.HasPower {
		p := mathx.ClampLevel(res.Power)
		if p != i.st.OnPower {
			i.st.OnPower = p
			powerChanged = true
		}
	}
	want := res.Active
	if res.Hold {
		if res.Active {
			i.st.OffTimer = i.sensorHold()
		} else if i.st.OffTimer > 0 {
			want = true
		}
	}
	if res.Active && res.Shock > 0 {
		i.shock = res.Shock
	}
	if want != i.st.Powered {
		i.setPowered(now, want)
		return true
	}
	if powerChanged && i.st.Powered {
		i.outputChanged(now, false)
		return true
	}
	return false
}

func (i *Instance) holdTicks() int {
	return timing.PulseOffTimer(0, i.st.ActiveTime, i.env.Settings.tickBase(), false)
}

// sensorHold outlasts the next sample, otherwise a hold shorter than the
// sample interval would expire unseen.
func (i *Instance) sensorHold() int {
	h := i.holdTicks()
	if n := i.st.Sensor.UpdateInterval + 1; n > h {
		h = n
	}
	return h
}

// TakeShock returns and clears the fall distance of the last landing that
// triggered this contact sensor.
func (i *Instance) TakeShock() float64 {
	v := i.shock
	i.shock = 0
	return v
}

// setPowered changes the activation state and propagates it.
func (i *Instance) setPowered(now uint64, on bool) {
	if i.st.Powered == on {
		return
	}
	i.st.Powered = on
	if !on {
		i.st.OffTimer = 0
	}
	if on {
		i.env.play(i.desc.OnCue, i.pos)
	} else {
		i.env.play(i.desc.OffCue, i.pos)
	}
	i.outputChanged(now, true)
}

// outputChanged notifies neighbours and observers and fires the outbound
// links.
func (i *Instance) outputChanged(now uint64, stateChanged bool) {
	i.env.notify(i.pos, i.mountSide())
	if i.env.Observer != nil {
		i.env.Observer.PowerChanged(i, now)
	}
	i.fireLinks(now, stateChanged)
}
