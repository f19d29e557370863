package device

import (
	"testing"

	"github.com/stfwi/rsgauges-sub000/internal/sim/host"
	"github.com/stfwi/rsgauges-sub000/internal/sim/link"
)

func mustDesc(t *testing.T, def TypeDef) *Descriptor {
	t.Helper()
	d, err := NewDescriptor(def)
	if err != nil {
		t.Fatalf("descriptor %s: %v", def.ID, err)
	}
	return d
}

type fakeWorld struct {
	unloaded map[host.Pos]bool
	signal   int
}

func (w *fakeWorld) Loaded(p host.Pos) bool                              { return !w.unloaded[p] }
func (w *fakeWorld) BlockAt(host.Pos) string                             { return "air" }
func (w *fakeWorld) SignalAt(host.Pos, host.Facing) int                  { return w.signal }
func (w *fakeWorld) AmbientLight(host.Pos) int                           { return 15 }
func (w *fakeWorld) Raining() bool                                       { return false }
func (w *fakeWorld) Thundering() bool                                    { return false }
func (w *fakeWorld) TimeOfDay() int                                      { return 0 }
func (w *fakeWorld) DayTicks() int                                       { return 24000 }
func (w *fakeWorld) EntitiesIn(host.Box, host.EntityClass) []host.Entity { return nil }
func (w *fakeWorld) LineOfSight(host.Vec3, host.Vec3) bool               { return true }
func (w *fakeWorld) ContainerFill(host.Pos) (int, int, bool)             { return 0, 0, false }
func (w *fakeWorld) ComparatorSignal(host.Pos) (int, bool)               { return 0, false }

type recorder struct {
	cues     []string
	notified int
	links    []link.Result
	failures int
	acts     int
	mount    host.Facing
}

func (r *recorder) Play(cue string, _ host.Pos)        { r.cues = append(r.cues, cue) }
func (r *recorder) Activated(*Instance, uint64)        { r.acts++ }
func (r *recorder) PowerChanged(*Instance, uint64)     {}
func (r *recorder) TickFailure(*Instance, uint64, any) { r.failures++ }

func (r *recorder) NotifyNeighbors(_ host.Pos, mount host.Facing) {
	r.notified++
	r.mount = mount
}

func (r *recorder) LinkResult(_ *Instance, _ link.Link, res link.Result, _ uint64) {
	r.links = append(r.links, res)
}

func (r *recorder) last() string {
	if len(r.cues) == 0 {
		return ""
	}
	return r.cues[len(r.cues)-1]
}

type instResolver map[host.Pos]*Instance

func (m instResolver) LinkTarget(p host.Pos) (link.Target, bool) {
	i, ok := m[p]
	if !ok {
		return nil, false
	}
	return i, true
}

type testEnv struct {
	env   *Env
	rec   *recorder
	world *fakeWorld
	insts instResolver
}

func newTestEnv() *testEnv {
	rec := &recorder{}
	w := &fakeWorld{unloaded: map[host.Pos]bool{}}
	insts := instResolver{}
	return &testEnv{
		env: &Env{
			World:    w,
			Effects:  rec,
			Notifier: rec,
			Resolver: insts,
			Observer: rec,
			Settings: DefaultSettings(),
		},
		rec:   rec,
		world: w,
		insts: insts,
	}
}

func (te *testEnv) place(d *Descriptor, p host.Pos, strategy Strategy) *Instance {
	inst := New(d, p, host.North, DefaultState(d), strategy, te.env)
	te.insts[p] = inst
	return inst
}

type scriptStrategy struct {
	results []SensorResult
	calls   int
	panicAt int
	every   int
}

func (s *scriptStrategy) Kind() SensorKind { return SensorLight }

func (s *scriptStrategy) Interval(*SensorState) int {
	if s.every > 1 {
		return s.every
	}
	return 1
}

func (s *scriptStrategy) Sample(SampleContext, *State) SensorResult {
	s.calls++
	if s.calls == s.panicAt {
		panic("sample failed")
	}
	if len(s.results) == 0 {
		return SensorResult{}
	}
	r := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	return r
}
