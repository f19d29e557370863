package sensor

import (
	"testing"

	"github.com/stfwi/rsgauges-sub000/internal/sim/device"
	"github.com/stfwi/rsgauges-sub000/internal/sim/host"
)

type world struct {
	light     int
	rain      bool
	thunder   bool
	tod       int
	day       int
	entities  []host.Entity
	blocked   bool
	blocks    map[host.Pos]string
	unloaded  map[host.Pos]bool
	fillUsed  int
	fillTotal int
	signal    int
}

func (w *world) Loaded(p host.Pos) bool                { return !w.unloaded[p] }
func (w *world) BlockAt(p host.Pos) string             { return w.blocks[p] }
func (w *world) SignalAt(host.Pos, host.Facing) int    { return w.signal }
func (w *world) AmbientLight(host.Pos) int             { return w.light }
func (w *world) Raining() bool                         { return w.rain }
func (w *world) Thundering() bool                      { return w.thunder }
func (w *world) TimeOfDay() int                        { return w.tod }
func (w *world) DayTicks() int                         { return w.day }
func (w *world) LineOfSight(host.Vec3, host.Vec3) bool { return !w.blocked }
func (w *world) ComparatorSignal(host.Pos) (int, bool) { return w.signal, true }

func (w *world) ContainerFill(host.Pos) (int, int, bool) {
	return w.fillUsed, w.fillTotal, w.fillTotal > 0
}

func (w *world) EntitiesIn(b host.Box, filter host.EntityClass) []host.Entity {
	var out []host.Entity
	for _, e := range w.entities {
		if b.Contains(e.Pos) && filter.Matches(e.Class) {
			out = append(out, e)
		}
	}
	return out
}

type categories map[string]bool

func (c categories) InCategory(cat, block string) bool { return cat == "ore" && c[block] }

func desc(t *testing.T, def device.TypeDef) *device.Descriptor {
	t.Helper()
	def.Automatic = true
	d, err := device.NewDescriptor(def)
	if err != nil {
		t.Fatalf("descriptor: %v", err)
	}
	return d
}

func ctxFor(d *device.Descriptor, w host.WorldQuery) device.SampleContext {
	return device.SampleContext{World: w, Desc: d, Facing: host.East, Elapsed: 1, TickBase: 8, Seed: 3}
}

func TestFor_CoversEverySensorKind(t *testing.T) {
	for k := device.SensorVolumetric; k <= device.SensorDoor; k++ {
		def := device.TypeDef{ID: "s", Sensor: k.String(), BlockCategory: "ore"}
		d := desc(t, def)
		s := For(d)
		if s == nil || s.Kind() != k {
			t.Fatalf("sensor %v: strategy=%v", k, s)
		}
		if n := s.Interval(&device.SensorState{}); n < 1 || n > 20 {
			t.Fatalf("sensor %v: interval=%d", k, n)
		}
	}
}

func TestLight_ImmediateWithoutDebounce(t *testing.T) {
	d := desc(t, device.TypeDef{ID: "light", Sensor: "light"})
	st := device.DefaultState(d)
	st.Sensor.ThresholdOn, st.Sensor.ThresholdOff, st.Sensor.Debounce = 7, 6, 0
	w := &world{light: 8}
	if res := (Light{}).Sample(ctxFor(d, w), &st); !res.Active {
		t.Fatalf("expected active on first sample")
	}
	w.light = 6
	if res := (Light{}).Sample(ctxFor(d, w), &st); res.Active {
		t.Fatalf("expected inactive at threshold_off")
	}
}

func TestLight_DebouncedBand(t *testing.T) {
	d := desc(t, device.TypeDef{ID: "light", Sensor: "light"})
	st := device.DefaultState(d)
	st.Sensor.ThresholdOn, st.Sensor.ThresholdOff, st.Sensor.Debounce = 10, 5, 2
	w := &world{light: 12}
	ctx := ctxFor(d, w)
	if (Light{}).Sample(ctx, &st).Active {
		t.Fatalf("active after one sample with debounce 2")
	}
	if !(Light{}).Sample(ctx, &st).Active {
		t.Fatalf("expected active after two samples")
	}
	w.light = 7
	for i := 0; i < 5; i++ {
		if !(Light{}).Sample(ctx, &st).Active {
			t.Fatalf("inside the band the state must be retained")
		}
	}
}

func TestBand_ExactMatchWhenOffNotBelowOn(t *testing.T) {
	for v := 0; v <= 15; v++ {
		want := -1
		if v == 9 {
			want = 1
		}
		if got := band(v, 9, 9); got != want {
			t.Fatalf("band(%d,9,9)=%d, want %d", v, got, want)
		}
		if got := band(v, 9, 12); got != want {
			t.Fatalf("band(%d,9,12)=%d, want %d", v, got, want)
		}
	}
}

func TestWeather_FixedDebounce(t *testing.T) {
	d := desc(t, device.TypeDef{ID: "rain", Sensor: "rain"})
	st := device.DefaultState(d)
	w := &world{rain: true}
	for i := 1; i < device.WeatherDebounce; i++ {
		if (Weather{}).Sample(ctxFor(d, w), &st).Active {
			t.Fatalf("active after %d samples", i)
		}
	}
	if !(Weather{}).Sample(ctxFor(d, w), &st).Active {
		t.Fatalf("expected active after %d samples", device.WeatherDebounce)
	}
	lightning := Weather{Lightning: true}
	st2 := device.DefaultState(d)
	for i := 0; i < 10; i++ {
		if lightning.Sample(ctxFor(d, w), &st2).Active {
			t.Fatalf("lightning sensor followed rain")
		}
	}
}

func TestInWindow(t *testing.T) {
	for tt := 0; tt <= 15; tt++ {
		if got, want := InWindow(tt, 2, 14), tt >= 2 && tt <= 14; got != want {
			t.Fatalf("on=2 off=14 t=%d: %v, want %v", tt, got, want)
		}
		if got, want := InWindow(tt, 14, 2), tt <= 2 || tt >= 14; got != want {
			t.Fatalf("on=14 off=2 t=%d: %v, want %v", tt, got, want)
		}
		if InWindow(tt, 6, 6) {
			t.Fatalf("on==off active at t=%d", tt)
		}
	}
}

func TestDaytime_SampleUsesDayScale(t *testing.T) {
	d := desc(t, device.TypeDef{ID: "day", Sensor: "daytime"})
	st := device.DefaultState(d)
	st.Sensor.ThresholdOn, st.Sensor.ThresholdOff = 14, 2
	w := &world{day: 24000}
	for tt := 0; tt <= 15; tt++ {
		w.tod = tt * 1500
		got := (Daytime{}).Sample(ctxFor(d, w), &st).Active
		if want := tt <= 2 || tt >= 14; got != want {
			t.Fatalf("t=%d: active=%v, want %v", tt, got, want)
		}
	}
}

func TestDaytime_SofteningDefersSomeTransitions(t *testing.T) {
	d := desc(t, device.TypeDef{ID: "day", Sensor: "daytime"})
	w := &world{day: 16, tod: 8}
	deferred, switched := 0, 0
	for x := 0; x < 200; x++ {
		st := device.DefaultState(d)
		st.Sensor.ThresholdOn, st.Sensor.ThresholdOff = 4, 12
		st.Sensor.Debounce = 4
		ctx := ctxFor(d, w)
		ctx.Pos = host.Pos{X: x}
		ctx.Tick = 100
		if (Daytime{}).Sample(ctx, &st).Active {
			switched++
		} else {
			deferred++
		}
	}
	if switched == 0 || deferred == 0 {
		t.Fatalf("switched=%d deferred=%d, want both", switched, deferred)
	}
	p := TransitionProbability(4, device.DaytimeDebounceMax)
	if p <= 0 || p >= 0.7 {
		t.Fatalf("probability=%v", p)
	}
	if TransitionProbability(0, device.DaytimeDebounceMax) != 1 {
		t.Fatalf("debounce 0 must switch immediately")
	}
}

func TestDaytime_DeferredTransitionRetriedEveryTick(t *testing.T) {
	d := desc(t, device.TypeDef{ID: "day", Sensor: "daytime"})
	w := &world{day: 16, tod: 8}
	for x := 0; x < 50; x++ {
		st := device.DefaultState(d)
		st.Sensor.ThresholdOn, st.Sensor.ThresholdOff = 4, 12
		st.Sensor.Debounce = 4
		ctx := ctxFor(d, w)
		ctx.Pos = host.Pos{X: x}
		ctx.Tick = 100
		if (Daytime{}).Sample(ctx, &st).Active {
			if (Daytime{}).Interval(&st.Sensor) != environmentInterval {
				t.Fatalf("accepted transition left a short interval")
			}
			continue
		}
		if n := (Daytime{}).Interval(&st.Sensor); n != 1 {
			t.Fatalf("deferred transition: interval=%d, want 1", n)
		}
		for ctx.Tick = 101; ctx.Tick < 400; ctx.Tick++ {
			if (Daytime{}).Sample(ctx, &st).Active {
				break
			}
		}
		if !st.Sensor.Active || st.Sensor.Pending {
			t.Fatalf("x=%d: active=%v pending=%v after 300 ticks", x, st.Sensor.Active, st.Sensor.Pending)
		}
		if n := (Daytime{}).Interval(&st.Sensor); n != environmentInterval {
			t.Fatalf("interval=%d after transition, want %d", n, environmentInterval)
		}
		return
	}
	t.Fatalf("no transition was deferred")
}

func TestEntityHold_SpansOneSample(t *testing.T) {
	d := desc(t, device.TypeDef{ID: "det", Sensor: "volumetric"})
	player := host.Entity{ID: "p1", Class: host.ClassPlayer, Pos: host.Vec3{X: 3.5, Y: 0, Z: 0.5}, EyeHeight: 1.6}
	w := &world{entities: []host.Entity{player}}
	inst := device.New(d, host.Pos{}, host.East, device.DefaultState(d), Entity{}, &device.Env{World: w, Settings: device.DefaultSettings()})

	inst.Tick(1)
	if !inst.Powered() {
		t.Fatalf("player not detected")
	}
	w.entities = nil
	released := uint64(0)
	for now := uint64(2); now < 40 && released == 0; now++ {
		inst.Tick(now)
		if !inst.Powered() {
			released = now
		}
	}
	// The first empty sample at 1+entityInterval is held; the next releases.
	if want := uint64(1 + 2*entityInterval); released != want {
		t.Fatalf("released at tick %d, want %d", released, want)
	}
}

func TestInterval_MirrorsLevel(t *testing.T) {
	d := desc(t, device.TypeDef{ID: "timer", Sensor: "interval", RampConfigurable: true})
	st := device.DefaultState(d)
	st.Sensor.Interval.PSet, st.Sensor.Interval.Ramp = 6, 3
	st.Sensor.Interval.Restart()
	ctx := ctxFor(d, nil)
	var res device.SensorResult
	for i := 0; i < 5; i++ {
		res = (Interval{}).Sample(ctx, &st)
	}
	if !res.Active || !res.HasPower || res.Power != 3 {
		t.Fatalf("after one ramp period: %+v", res)
	}
}

func TestInterval_RampIgnoredWhenNotConfigurable(t *testing.T) {
	d := desc(t, device.TypeDef{ID: "timer", Sensor: "interval"})
	st := device.DefaultState(d)
	st.Sensor.Interval.Ramp = 3
	st.Sensor.Interval.Restart()
	res := (Interval{}).Sample(ctxFor(d, nil), &st)
	if res.Power != 15 {
		t.Fatalf("power=%d, want 15 without ramp", res.Power)
	}
}

func TestBlockMatch_CountsAndSkipsUnloaded(t *testing.T) {
	d := desc(t, device.TypeDef{ID: "obs", Sensor: "block_match", BlockCategory: "ore"})
	st := device.DefaultState(d)
	st.Sensor.Range, st.Sensor.Threshold = 4, 2
	w := &world{
		blocks:   map[host.Pos]string{{X: 1}: "iron_ore", {X: 3}: "gold_ore", {X: 5}: "iron_ore"},
		unloaded: map[host.Pos]bool{},
	}
	ctx := ctxFor(d, w)
	ctx.Categories = categories{"iron_ore": true, "gold_ore": true}
	if !(BlockMatch{}).Sample(ctx, &st).Active {
		t.Fatalf("expected active with two matches in range")
	}
	st.Sensor.Threshold = 3
	if (BlockMatch{}).Sample(ctx, &st).Active {
		t.Fatalf("block outside range counted")
	}
	w.unloaded[host.Pos{X: 2}] = true
	if res := (BlockMatch{}).Sample(ctx, &st); !res.Skip {
		t.Fatalf("expected skip on unloaded block")
	}
}

func TestComparator_SlotRatio(t *testing.T) {
	d := desc(t, device.TypeDef{ID: "cmp", Sensor: "comparator", ComparatorMode: "slots"})
	st := device.DefaultState(d)
	w := &world{fillUsed: 9, fillTotal: 27}
	res := (Comparator{}).Sample(ctxFor(d, w), &st)
	if !res.Active || res.Power != 5 {
		t.Fatalf("result=%+v, want active power 5", res)
	}
	for _, c := range [][3]int{{0, 27, 0}, {1, 27, 1}, {27, 27, 15}, {3, 0, 0}} {
		if got := SlotLevel(c[0], c[1]); got != c[2] {
			t.Fatalf("SlotLevel(%d,%d)=%d, want %d", c[0], c[1], got, c[2])
		}
	}
}

func TestEntity_LineOfSightAndThreshold(t *testing.T) {
	d := desc(t, device.TypeDef{ID: "det", Sensor: "volumetric"})
	st := device.DefaultState(d)
	player := host.Entity{ID: "p1", Class: host.ClassPlayer, Pos: host.Vec3{X: 3.5, Y: 0, Z: 0.5}, EyeHeight: 1.6}
	w := &world{entities: []host.Entity{player}}
	if res := (Entity{}).Sample(ctxFor(d, w), &st); !res.Active || !res.Hold {
		t.Fatalf("result=%+v, want active hold", res)
	}
	w.blocked = true
	if (Entity{}).Sample(ctxFor(d, w), &st).Active {
		t.Fatalf("entity without line of sight counted")
	}
	w.blocked = false
	st.Sensor.Threshold = 2
	if (Entity{}).Sample(ctxFor(d, w), &st).Active {
		t.Fatalf("threshold 2 met by one entity")
	}
	behind := player
	behind.Pos.X = -3.5
	w.entities = []host.Entity{behind}
	st.Sensor.Threshold = 1
	if (Entity{}).Sample(ctxFor(d, w), &st).Active {
		t.Fatalf("entity behind the sensor counted")
	}
}

func TestSearchBox_LinearIsThin(t *testing.T) {
	b := SearchBox(host.Pos{}, host.East, 5, 0)
	if b.Min.X != 0 || b.Max.X != 6 || b.Max.Z-b.Min.Z != 1 || b.Max.Y-b.Min.Y != 1 {
		t.Fatalf("box=%+v", b)
	}
	wide := SearchBox(host.Pos{}, host.East, 6, 3)
	if wide.Max.X-wide.Min.X != 7 || wide.Max.Z-wide.Min.Z != 7 {
		t.Fatalf("wide box=%+v", wide)
	}
}

func TestContact_ShockNeedsMinimumFall(t *testing.T) {
	d := desc(t, device.TypeDef{ID: "knock", Sensor: "contact", ShockSensitive: true, MinFallDistance: 2})
	st := device.DefaultState(d)
	mob := host.Entity{Class: host.ClassMob, Pos: host.Vec3{X: 0.5, Y: 1.1, Z: 0.5}, FallDistance: 1}
	w := &world{entities: []host.Entity{mob}}
	if (Contact{}).Sample(ctxFor(d, w), &st).Active {
		t.Fatalf("short fall triggered shock sensor")
	}
	w.entities[0].FallDistance = 3
	res := (Contact{}).Sample(ctxFor(d, w), &st)
	if !res.Active || res.Shock != 3 {
		t.Fatalf("result=%+v, want active shock 3", res)
	}
}

func TestContact_ItemsNeedHighSensitivity(t *testing.T) {
	item := host.Entity{Class: host.ClassItem, Pos: host.Vec3{X: 0.5, Y: 0.9, Z: 0.5}}
	w := &world{entities: []host.Entity{item}}
	plain := desc(t, device.TypeDef{ID: "plate", Sensor: "contact"})
	st := device.DefaultState(plain)
	if (Contact{}).Sample(ctxFor(plain, w), &st).Active {
		t.Fatalf("item pressed a normal plate")
	}
	high := desc(t, device.TypeDef{ID: "plate", Sensor: "contact", HighSensitivity: true})
	st = device.DefaultState(high)
	if !(Contact{}).Sample(ctxFor(high, w), &st).Active {
		t.Fatalf("item did not press a high sensitivity plate")
	}
}

func TestDoor_LookDirection(t *testing.T) {
	door := host.Vec3{X: 0.5, Y: 0.5, Z: 0.5}
	normal := host.FacingVec(host.East)
	actor := host.Entity{Pos: host.Vec3{X: 2.5, Y: -1, Z: 0.5}, EyeHeight: 1.5, Look: host.Vec3{X: -1}}
	if !LooksAtDoor(actor, door, normal) {
		t.Fatalf("actor facing the door not detected")
	}
	actor.Look = host.Vec3{X: 1}
	if LooksAtDoor(actor, door, normal) {
		t.Fatalf("actor looking away detected")
	}
	actor.Look = host.Vec3{Z: 1}
	if LooksAtDoor(actor, door, normal) {
		t.Fatalf("actor looking sideways detected")
	}
}
