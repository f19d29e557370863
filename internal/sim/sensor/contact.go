package sensor

import (
	"github.com/stfwi/rsgauges-sub000/internal/sim/device"
	"github.com/stfwi/rsgauges-sub000/internal/sim/host"
)

// plateHeight is how far above the block the contact area reaches.
const plateHeight = 0.25

// Contact counts entities touching the device. Items only press high
// sensitivity plates. Shock sensitive plates only count landings from at
// least the type's minimum fall distance.
type Contact struct{}

func (Contact) Kind() device.SensorKind          { return device.SensorContact }
func (Contact) Interval(*device.SensorState) int { return fastInterval }

func (Contact) Sample(ctx device.SampleContext, st *device.State) device.SensorResult {
	if ctx.World == nil || ctx.Desc == nil {
		return device.SensorResult{Skip: true}
	}
	s := &st.Sensor
	d := ctx.Desc
	box := host.BlockBox(ctx.Pos)
	box.Max.Y += plateHeight
	filter := s.Filter()
	ents := ctx.World.EntitiesIn(box, filter)
	if d.HighSensitivity && filter == host.ClassAny {
		ents = append(ents, ctx.World.EntitiesIn(box, host.ClassItem)...)
	}
	count := 0
	shock := 0.0
	for _, e := range ents {
		if e.Class == host.ClassItem && !d.HighSensitivity {
			continue
		}
		if d.ShockSensitive {
			if e.FallDistance < d.MinFallDistance {
				continue
			}
			if e.FallDistance > shock {
				shock = e.FallDistance
			}
		}
		count++
	}
	res := device.SensorResult{Active: count >= s.Threshold, Hold: true}
	if res.Active {
		res.Shock = shock
	}
	return res
}
