package sensor

import (
	"github.com/stfwi/rsgauges-sub000/internal/sim/device"
	"github.com/stfwi/rsgauges-sub000/internal/sim/logic/mathx"
)

// Comparator acquires a value from the block it is mounted on and runs it
// through the threshold band. The output mirrors the value.
type Comparator struct{}

func (Comparator) Kind() device.SensorKind          { return device.SensorComparator }
func (Comparator) Interval(*device.SensorState) int { return fastInterval }

func (Comparator) Sample(ctx device.SampleContext, st *device.State) device.SensorResult {
	if ctx.World == nil || ctx.Desc == nil {
		return device.SensorResult{Skip: true}
	}
	mount := mountPos(ctx)
	if !ctx.World.Loaded(mount) {
		return device.SensorResult{Skip: true}
	}
	v := 0
	switch ctx.Desc.ComparatorMode {
	case device.ComparatorAnalog:
		v, _ = ctx.World.ComparatorSignal(mount)
	case device.ComparatorSlots:
		used, total, ok := ctx.World.ContainerFill(mount)
		if ok {
			v = SlotLevel(used, total)
		}
	case device.ComparatorSignal:
		v = ctx.World.SignalAt(ctx.Pos, ctx.Facing.Opposite())
	}
	v = mathx.ClampLevel(v)
	s := &st.Sensor
	active := s.Feed(band(v, s.ThresholdOn, s.ThresholdOff), s.Debounce)
	return device.SensorResult{Active: active, Power: v, HasPower: true}
}

// SlotLevel scales a used/total slot ratio to 0..15. Any used slot gives at
// least 1.
func SlotLevel(used, total int) int {
	if total <= 0 || used <= 0 {
		return 0
	}
	if used >= total {
		return 15
	}
	return (used*15 + total - 1) / total
}
