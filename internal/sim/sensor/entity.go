package sensor

import (
	"github.com/stfwi/rsgauges-sub000/internal/sim/device"
	"github.com/stfwi/rsgauges-sub000/internal/sim/host"
)

// probeOffset is the sideways distance of the two line of sight probes.
const probeOffset = 0.2

// Entity counts entities of the filtered class that can see the device. The
// volumetric variant searches a wide box in front of the device, the linear
// variant a one block beam.
type Entity struct {
	Linear bool
}

func (e Entity) Kind() device.SensorKind {
	if e.Linear {
		return device.SensorLinear
	}
	return device.SensorVolumetric
}

func (Entity) Interval(*device.SensorState) int { return entityInterval }

func (e Entity) Sample(ctx device.SampleContext, st *device.State) device.SensorResult {
	if ctx.World == nil {
		return device.SensorResult{Skip: true}
	}
	s := &st.Sensor
	lateral := 0
	if !e.Linear {
		lateral = s.Range / 2
		if lateral < 1 {
			lateral = 1
		}
	}
	box := SearchBox(ctx.Pos, ctx.Facing, s.Range, lateral)
	center := ctx.Pos.Center()
	count := 0
	for _, ent := range ctx.World.EntitiesIn(box, s.Filter()) {
		if Sees(ctx.World, ent.Eye(), center) {
			count++
			if count >= s.Threshold {
				break
			}
		}
	}
	return device.SensorResult{Active: count >= s.Threshold, Hold: true}
}

// SearchBox spans from the device block rng blocks toward f and grows by
// lateral blocks on the axes perpendicular to f.
func SearchBox(p host.Pos, f host.Facing, rng, lateral int) host.Box {
	b := host.BlockBox(p).Union(host.BlockBox(p.Offset(f, rng)))
	if lateral <= 0 {
		return b
	}
	d := f.Dir()
	l := float64(lateral)
	gx, gy, gz := l, l, l
	if d.X != 0 {
		gx = 0
	}
	if d.Y != 0 {
		gy = 0
	}
	if d.Z != 0 {
		gz = 0
	}
	return b.Grow(gx, gy, gz)
}

// Sees casts two parallel probes from slightly offset eye positions to the
// target. Either one being clear is enough.
func Sees(w host.WorldQuery, eye, target host.Vec3) bool {
	dir := target.Sub(eye)
	side, ok := host.Vec3{X: -dir.Z, Z: dir.X}.Normalize()
	if !ok {
		side = host.Vec3{X: 1}
	}
	off := side.Scale(probeOffset)
	return w.LineOfSight(eye.Add(off), target.Add(off)) ||
		w.LineOfSight(eye.Sub(off), target.Sub(off))
}
