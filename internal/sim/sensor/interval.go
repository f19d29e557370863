package sensor

import "github.com/stfwi/rsgauges-sub000/internal/sim/device"

// Interval drives the switch from its two phase timer. Output power mirrors
// the ramp level.
type Interval struct{}

func (Interval) Kind() device.SensorKind          { return device.SensorInterval }
func (Interval) Interval(*device.SensorState) int { return 1 }

func (Interval) Sample(ctx device.SampleContext, st *device.State) device.SensorResult {
	iv := &st.Sensor.Interval
	if ctx.Desc != nil && !ctx.Desc.RampConfigurable {
		iv.Ramp = 0
	}
	dt := ctx.Elapsed
	if dt < 1 {
		dt = 1
	}
	iv.Advance(dt)
	if iv.P <= 0 {
		return device.SensorResult{}
	}
	return device.SensorResult{Active: true, Power: iv.P, HasPower: true}
}
