package device

import (
	"log"

	"github.com/stfwi/rsgauges-sub000/internal/sim/host"
	"github.com/stfwi/rsgauges-sub000/internal/sim/link"
	"github.com/stfwi/rsgauges-sub000/internal/sim/logic/timing"
)

type Settings struct {
	TickBase       int
	Links          link.Settings
	MaxLinks       int
	FailureBackoff int
	Seed           int64
}

func DefaultSettings() Settings {
	return Settings{
		TickBase:       timing.DefaultTickBase,
		Links:          link.Settings{Enabled: true},
		MaxLinks:       16,
		FailureBackoff: 100,
	}
}

func (s Settings) tickBase() int {
	if s.TickBase <= 0 {
		return timing.DefaultTickBase
	}
	return s.TickBase
}

// CategoryMatcher tells whether a block belongs to a named category.
type CategoryMatcher interface {
	InCategory(category, block string) bool
}

// Observer receives engine events for metrics, audit and streaming. All
// methods are called from the tick goroutine.
type Observer interface {
	Activated(inst *Instance, tick uint64)
	PowerChanged(inst *Instance, tick uint64)
	LinkResult(inst *Instance, l link.Link, r link.Result, tick uint64)
	TickFailure(inst *Instance, tick uint64, cause any)
}

// Env bundles the host collaborators an instance talks to. Nil members are
// skipped.
type Env struct {
	World      host.WorldQuery
	Effects    host.EffectsPort
	Notifier   host.NeighborNotifier
	Resolver   link.Resolver
	Categories CategoryMatcher
	Observer   Observer
	Logger     *log.Logger
	Settings   Settings
}

func (e *Env) play(cue string, p host.Pos) {
	if e != nil && e.Effects != nil && cue != "" {
		e.Effects.Play(cue, p)
	}
}

func (e *Env) notify(p host.Pos, f host.Facing) {
	if e != nil && e.Notifier != nil {
		e.Notifier.NotifyNeighbors(p, f)
	}
}

func (e *Env) logf(format string, args ...any) {
	if e != nil && e.Logger != nil {
		e.Logger.Printf(format, args...)
	}
}

// SampleContext is what a sensor strategy may look at.
type SampleContext struct {
	World      host.WorldQuery
	Categories CategoryMatcher
	Desc       *Descriptor
	Pos        host.Pos
	Facing     host.Facing
	Tick       uint64
	// Elapsed is the number of ticks since the previous sample.
	Elapsed  int
	TickBase int
	Seed     int64
}

// SensorResult is one sample. Power is used when HasPower is set (sensors
// whose output mirrors the measured value). Hold keeps the switch on while
// the off timer of a previous detection runs. Skip means the sample could
// not be taken and should be retried next tick. Shock carries the fall
// distance of a landing that triggered a contact sensor.
type SensorResult struct {
	Active   bool
	Power    int
	HasPower bool
	Hold     bool
	Skip     bool
	Shock    float64
}

// Strategy decides when an automatic switch is active.
type Strategy interface {
	Kind() SensorKind
	// Interval is the number of ticks between samples.
	Interval(s *SensorState) int
	Sample(ctx SampleContext, st *State) SensorResult
}
