package sensor

import "github.com/stfwi/rsgauges-sub000/internal/sim/device"

// BlockMatch scans the blocks in front of the device and counts those in the
// type's block category.
type BlockMatch struct{}

func (BlockMatch) Kind() device.SensorKind          { return device.SensorBlockMatch }
func (BlockMatch) Interval(*device.SensorState) int { return blockInterval }

func (BlockMatch) Sample(ctx device.SampleContext, st *device.State) device.SensorResult {
	if ctx.World == nil || ctx.Categories == nil || ctx.Desc == nil {
		return device.SensorResult{Skip: true}
	}
	s := &st.Sensor
	count := 0
	for k := 1; k <= s.Range; k++ {
		p := ctx.Pos.Offset(ctx.Facing, k)
		if !ctx.World.Loaded(p) {
			return device.SensorResult{Skip: true}
		}
		if ctx.Categories.InCategory(ctx.Desc.BlockCategory, ctx.World.BlockAt(p)) {
			count++
		}
	}
	return device.SensorResult{Active: s.Feed(boolMeasure(count >= s.Threshold), s.Debounce)}
}
