package sensor

import "github.com/stfwi/rsgauges-sub000/internal/sim/device"

// Weather follows rain, or thunder when Lightning is set, through a fixed
// debounce ceiling.
type Weather struct {
	Lightning bool
}

func (w Weather) Kind() device.SensorKind {
	if w.Lightning {
		return device.SensorLightning
	}
	return device.SensorRain
}

func (Weather) Interval(*device.SensorState) int { return environmentInterval }

func (w Weather) Sample(ctx device.SampleContext, st *device.State) device.SensorResult {
	if ctx.World == nil {
		return device.SensorResult{Skip: true}
	}
	on := ctx.World.Raining()
	if w.Lightning {
		on = ctx.World.Thundering()
	}
	return device.SensorResult{Active: st.Sensor.Feed(boolMeasure(on), device.WeatherDebounce)}
}
