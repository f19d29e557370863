package sensor

import (
	"math"

	"github.com/stfwi/rsgauges-sub000/internal/sim/device"
	"github.com/stfwi/rsgauges-sub000/internal/sim/host"
)

const (
	doorNormalCos = 0.5
	doorFacingCos = -0.8
)

// Door detects actors near the device that look along the door normal and
// toward the door.
type Door struct{}

func (Door) Kind() device.SensorKind          { return device.SensorDoor }
func (Door) Interval(*device.SensorState) int { return fastInterval }

func (Door) Sample(ctx device.SampleContext, st *device.State) device.SensorResult {
	if ctx.World == nil {
		return device.SensorResult{Skip: true}
	}
	s := &st.Sensor
	r := float64(s.Range)
	box := host.BlockBox(ctx.Pos).Grow(r, 1, r)
	center := ctx.Pos.Center()
	normal := host.FacingVec(ctx.Facing)
	count := 0
	for _, e := range ctx.World.EntitiesIn(box, s.Filter()) {
		if LooksAtDoor(e, center, normal) {
			count++
		}
	}
	return device.SensorResult{Active: count >= s.Threshold, Hold: true}
}

// LooksAtDoor checks that the actor's look vector is aligned with the door
// normal and points back at the door.
func LooksAtDoor(e host.Entity, door, normal host.Vec3) bool {
	look, ok := e.Look.Normalize()
	if !ok {
		return false
	}
	away, ok := e.Eye().Sub(door).Normalize()
	if !ok {
		return false
	}
	if math.Abs(look.Dot(normal)) <= doorNormalCos {
		return false
	}
	return look.Dot(away) < doorFacingCos
}
