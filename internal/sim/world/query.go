package world

import (
	"math"
	"sort"

	"github.com/stfwi/rsgauges-sub000/internal/sim/host"
	"github.com/stfwi/rsgauges-sub000/internal/sim/link"
	"github.com/stfwi/rsgauges-sub000/internal/sim/logic/mathx"
)

const (
	chunkSize = 16

	daySkyLight   = 15
	nightSkyLight = 4
	rainSkyLight  = 12
	stormSkyLight = 5

	losStep = 0.1
)

type chunkKey struct {
	CX int
	CZ int
}

func chunkOf(p host.Pos) chunkKey {
	return chunkKey{CX: floorDiv(p.X, chunkSize), CZ: floorDiv(p.Z, chunkSize)}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// transparent blocks do not stop line of sight.
var transparent = map[string]bool{"": true, "air": true, "glass": true, "water": true}

func (w *World) Loaded(p host.Pos) bool { return !w.unloaded[chunkOf(p)] }

func (w *World) BlockAt(p host.Pos) string { return w.blocks[p] }

func (w *World) Raining() bool    { return w.raining }
func (w *World) Thundering() bool { return w.thundering }
func (w *World) TimeOfDay() int   { return w.timeOfDay }
func (w *World) DayTicks() int    { return w.cfg.DayTicks }

// AmbientLight is the block light override at p, or the sky light.
func (w *World) AmbientLight(p host.Pos) int {
	if v, ok := w.light[p]; ok {
		return v
	}
	switch {
	case w.thundering:
		return stormSkyLight
	case w.raining:
		return rainSkyLight
	case w.timeOfDay < w.cfg.DayTicks/2:
		return daySkyLight
	default:
		return nightSkyLight
	}
}

// SignalAt is the strongest signal reaching p from the neighbour on side:
// the weak output of a device there, a strongly powered block, or an
// injected source.
func (w *World) SignalAt(p host.Pos, side host.Facing) int {
	n := p.Offset(side, 1)
	if !w.Loaded(n) {
		return 0
	}
	level := w.signals[n]
	if inst := w.devices[n]; inst != nil {
		if v := inst.Power(side.Opposite(), false); v > level {
			level = v
		}
		return mathx.ClampLevel(level)
	}
	if v := w.strongInto(n); v > level {
		level = v
	}
	return mathx.ClampLevel(level)
}

// strongInto is the strong power devices attached to block b push into it.
func (w *World) strongInto(b host.Pos) int {
	level := 0
	for _, f := range host.AllFacings {
		inst := w.devices[b.Offset(f, 1)]
		if inst == nil {
			continue
		}
		if v := inst.Power(f.Opposite(), true); v > level {
			level = v
		}
	}
	return level
}

func (w *World) EntitiesIn(box host.Box, filter host.EntityClass) []host.Entity {
	var out []host.Entity
	for _, e := range w.entities {
		if box.Contains(e.Pos) && filter.Matches(e.Class) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LineOfSight marches from -> to and fails on the first opaque block. The
// cells of both end points are not checked.
func (w *World) LineOfSight(from, to host.Vec3) bool {
	d := to.Sub(from)
	dist := d.Length()
	if dist < losStep {
		return true
	}
	start, end := from.Cell(), to.Cell()
	steps := int(math.Ceil(dist / losStep))
	for k := 1; k < steps; k++ {
		c := from.Add(d.Scale(float64(k) / float64(steps))).Cell()
		if c == start || c == end {
			continue
		}
		if !transparent[w.blocks[c]] {
			return false
		}
	}
	return true
}

func (w *World) ContainerFill(p host.Pos) (used, total int, ok bool) {
	c, ok := w.containers[p]
	if !ok {
		return 0, 0, false
	}
	return c.Used, c.Total, true
}

// ComparatorSignal is the explicit comparator value of p, or the fill level
// of a container there.
func (w *World) ComparatorSignal(p host.Pos) (int, bool) {
	if v, ok := w.comparator[p]; ok {
		return mathx.ClampLevel(v), true
	}
	c, ok := w.containers[p]
	if !ok || c.Total <= 0 {
		return 0, false
	}
	if c.Used <= 0 {
		return 0, true
	}
	return mathx.ClampLevel(1 + c.Used*14/c.Total), true
}

// LinkTarget implements link.Resolver. Devices in unloaded chunks are gone
// for the purpose of linking.
func (w *World) LinkTarget(p host.Pos) (link.Target, bool) {
	if !w.Loaded(p) {
		return nil, false
	}
	inst := w.devices[p]
	if inst == nil {
		return nil, false
	}
	return inst, true
}

var (
	_ host.WorldQuery = (*World)(nil)
	_ link.Resolver   = (*World)(nil)
)
