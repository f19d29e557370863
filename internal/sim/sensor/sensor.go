// Package sensor holds the strategies that drive automatic switches. Each
// strategy samples the host world and returns whether the switch should be
// active.
package sensor

import (
	"github.com/stfwi/rsgauges-sub000/internal/sim/device"
	"github.com/stfwi/rsgauges-sub000/internal/sim/host"
)

// Sample intervals in ticks.
const (
	entityInterval      = 8
	environmentInterval = 20
	blockInterval       = 10
	fastInterval        = 5
)

// For returns the strategy of a descriptor, nil for non-sensor types.
func For(d *device.Descriptor) device.Strategy {
	switch d.Sensor {
	case device.SensorVolumetric:
		return Entity{Linear: false}
	case device.SensorLinear:
		return Entity{Linear: true}
	case device.SensorLight:
		return Light{}
	case device.SensorRain:
		return Weather{Lightning: false}
	case device.SensorLightning:
		return Weather{Lightning: true}
	case device.SensorDaytime:
		return Daytime{}
	case device.SensorInterval:
		return Interval{}
	case device.SensorBlockMatch:
		return BlockMatch{}
	case device.SensorComparator:
		return Comparator{}
	case device.SensorContact:
		return Contact{}
	case device.SensorDoor:
		return Door{}
	default:
		return nil
	}
}

// band maps a value onto the dual threshold band: +1 at or above on, -1 at
// or below off. When off >= on only the exact value on counts as +1.
func band(v, on, off int) int {
	if off >= on {
		if v == on {
			return 1
		}
		return -1
	}
	switch {
	case v >= on:
		return 1
	case v <= off:
		return -1
	default:
		return 0
	}
}

func boolMeasure(b bool) int {
	if b {
		return 1
	}
	return -1
}

// mountPos is the block the device is attached to.
func mountPos(ctx device.SampleContext) host.Pos {
	if ctx.Desc != nil && ctx.Desc.FloorMounted {
		return ctx.Pos.Offset(host.Down, 1)
	}
	return ctx.Pos.Offset(ctx.Facing.Opposite(), 1)
}
