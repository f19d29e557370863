package sensor

import "github.com/stfwi/rsgauges-sub000/internal/sim/device"

type Light struct{}

func (Light) Kind() device.SensorKind          { return device.SensorLight }
func (Light) Interval(*device.SensorState) int { return environmentInterval }

func (Light) Sample(ctx device.SampleContext, st *device.State) device.SensorResult {
	if ctx.World == nil {
		return device.SensorResult{Skip: true}
	}
	s := &st.Sensor
	m := band(ctx.World.AmbientLight(ctx.Pos), s.ThresholdOn, s.ThresholdOff)
	return device.SensorResult{Active: s.Feed(m, s.Debounce)}
}
