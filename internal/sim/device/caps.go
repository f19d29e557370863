// Package device holds the switch behavior engine: capability descriptors,
// per-instance state, the power evaluator and the instance state machine.
package device

import (
	"fmt"
	"strings"

	"github.com/stfwi/rsgauges-sub000/internal/sim/host"
)

type Kind uint8

const (
	KindSwitch Kind = iota
	KindGauge
	KindIndicator
)

var kindNames = [...]string{"switch", "gauge", "indicator"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "?"
}

func ParseKind(s string) (Kind, bool) {
	if s == "" {
		return KindSwitch, true
	}
	for i, n := range kindNames {
		if n == s {
			return Kind(i), true
		}
	}
	return KindSwitch, false
}

// Policy is the activation policy. Exactly one per switch type, or none for
// passive displays.
type Policy uint8

const (
	PolicyNone Policy = iota
	PolicyBistable
	PolicyPulse
	PolicyAutomatic
	PolicyLinkRelay
)

var policyNames = [...]string{"none", "bistable", "pulse", "automatic", "link_relay"}

func (p Policy) String() string {
	if int(p) < len(policyNames) {
		return policyNames[p]
	}
	return "?"
}

type SensorKind uint8

const (
	SensorNone SensorKind = iota
	SensorVolumetric
	SensorLinear
	SensorLight
	SensorRain
	SensorLightning
	SensorDaytime
	SensorInterval
	SensorBlockMatch
	SensorComparator
	SensorContact
	SensorDoor
)

var sensorNames = [...]string{
	"none", "volumetric", "linear", "light", "rain", "lightning", "daytime",
	"interval", "block_match", "comparator", "contact", "door",
}

func (s SensorKind) String() string {
	if int(s) < len(sensorNames) {
		return sensorNames[s]
	}
	return "?"
}

func ParseSensorKind(s string) (SensorKind, bool) {
	if s == "" {
		return SensorNone, true
	}
	for i, n := range sensorNames {
		if n == s {
			return SensorKind(i), true
		}
	}
	return SensorNone, false
}

// Entity reports whether the sensor counts entities with a class filter.
func (s SensorKind) Entity() bool {
	return s == SensorVolumetric || s == SensorLinear || s == SensorContact || s == SensorDoor
}

// Banded reports whether the sensor uses the dual threshold band.
func (s SensorKind) Banded() bool {
	return s == SensorLight || s == SensorDaytime || s == SensorComparator
}

type ComparatorMode uint8

const (
	ComparatorAnalog ComparatorMode = iota
	ComparatorSlots
	ComparatorSignal
)

var comparatorNames = [...]string{"analog", "slots", "signal"}

func (m ComparatorMode) String() string {
	if int(m) < len(comparatorNames) {
		return comparatorNames[m]
	}
	return "?"
}

func ParseComparatorMode(s string) (ComparatorMode, bool) {
	if s == "" {
		return ComparatorAnalog, true
	}
	for i, n := range comparatorNames {
		if n == s {
			return ComparatorMode(i), true
		}
	}
	return ComparatorAnalog, false
}

// TypeDef is the catalog form of a device type.
type TypeDef struct {
	ID   string `json:"id"`
	Kind string `json:"kind,omitempty"`

	Bistable              bool `json:"bistable,omitempty"`
	Pulse                 bool `json:"pulse,omitempty"`
	Automatic             bool `json:"automatic,omitempty"`
	LinkRelay             bool `json:"link_relay,omitempty"`
	PulseExtendable       bool `json:"pulse_extendable,omitempty"`
	Invertible            bool `json:"invertible,omitempty"`
	Weakable              bool `json:"weakable,omitempty"`
	TouchConfigurable     bool `json:"touch_configurable,omitempty"`
	PulseTimeConfigurable bool `json:"pulsetime_configurable,omitempty"`
	RampConfigurable      bool `json:"ramp_configurable,omitempty"`
	LinkSource            bool `json:"link_source,omitempty"`
	LinkTarget            bool `json:"link_target,omitempty"`
	FloorMounted          bool `json:"floor_mounted,omitempty"`
	Lateral               bool `json:"lateral,omitempty"`

	Sensor          string  `json:"sensor,omitempty"`
	HighSensitivity bool    `json:"high_sensitivity,omitempty"`
	ShockSensitive  bool    `json:"shock_sensitive,omitempty"`
	MinFallDistance float64 `json:"min_fall_distance,omitempty"`
	BlockCategory   string  `json:"block_category,omitempty"`
	ComparatorMode  string  `json:"comparator_mode,omitempty"`
	MaxRange        int     `json:"max_range,omitempty"`

	OnCue  string `json:"on_cue,omitempty"`
	OffCue string `json:"off_cue,omitempty"`

	Defaults TypeDefaults `json:"defaults,omitempty"`
}

// TypeDefaults are the initial instance values. Nil means the built-in
// default for the type.
type TypeDefaults struct {
	OnPower      *int   `json:"on_power,omitempty"`
	OffPower     *int   `json:"off_power,omitempty"`
	Inverted     bool   `json:"inverted,omitempty"`
	Weak         bool   `json:"weak,omitempty"`
	ColorTint    int    `json:"color_tint,omitempty"`
	ActiveTime   int    `json:"active_time,omitempty"`
	Range        *int   `json:"range,omitempty"`
	Threshold    *int   `json:"threshold,omitempty"`
	Filter       string `json:"filter,omitempty"`
	Debounce     *int   `json:"debounce,omitempty"`
	ThresholdOn  *int   `json:"threshold_on,omitempty"`
	ThresholdOff *int   `json:"threshold_off,omitempty"`
	PSet         *int   `json:"p_set,omitempty"`
	TOn          *int   `json:"t_on,omitempty"`
	TOff         *int   `json:"t_off,omitempty"`
	Ramp         int    `json:"ramp,omitempty"`
}

// Descriptor is the immutable capability record of a device type.
type Descriptor struct {
	TypeID string
	Kind   Kind
	Policy Policy
	Sensor SensorKind

	PulseExtendable       bool
	Invertible            bool
	Weakable              bool
	TouchConfigurable     bool
	PulseTimeConfigurable bool
	RampConfigurable      bool
	LinkSource            bool
	LinkTarget            bool
	FloorMounted          bool
	Lateral               bool

	HighSensitivity bool
	ShockSensitive  bool
	MinFallDistance float64
	BlockCategory   string
	ComparatorMode  ComparatorMode
	MaxRange        int

	OnCue  string
	OffCue string

	defaults State
}

const (
	DefaultOnCue  = "activate"
	DefaultOffCue = "deactivate"

	DefaultMaxRange = 16
)

// ConfigurationError rejects an inconsistent device type. It is fatal for
// that type only.
type ConfigurationError struct {
	TypeID string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("device type %q: %s", e.TypeID, e.Reason)
}

func NewDescriptor(def TypeDef) (*Descriptor, error) {
	id := strings.TrimSpace(def.ID)
	bad := func(format string, args ...any) (*Descriptor, error) {
		return nil, &ConfigurationError{TypeID: id, Reason: fmt.Sprintf(format, args...)}
	}
	if id == "" {
		return bad("empty type id")
	}
	kind, ok := ParseKind(def.Kind)
	if !ok {
		return bad("unknown kind %q", def.Kind)
	}
	sensor, ok := ParseSensorKind(def.Sensor)
	if !ok {
		return bad("unknown sensor %q", def.Sensor)
	}
	cmode, ok := ParseComparatorMode(def.ComparatorMode)
	if !ok {
		return bad("unknown comparator mode %q", def.ComparatorMode)
	}

	policy := PolicyNone
	n := 0
	for _, p := range []struct {
		set bool
		p   Policy
	}{
		{def.Bistable, PolicyBistable},
		{def.Pulse, PolicyPulse},
		{def.Automatic, PolicyAutomatic},
		{def.LinkRelay, PolicyLinkRelay},
	} {
		if p.set {
			policy = p.p
			n++
		}
	}
	if n > 1 {
		return bad("more than one activation policy set")
	}

	switch kind {
	case KindSwitch:
		if policy == PolicyNone {
			return bad("switch without activation policy")
		}
	default:
		if policy != PolicyNone {
			return bad("%s with activation policy %s", kind, policy)
		}
		if def.LinkSource || def.LinkTarget {
			return bad("%s cannot take part in links", kind)
		}
	}
	if policy == PolicyAutomatic && sensor == SensorNone {
		return bad("automatic switch without sensor")
	}
	if policy != PolicyAutomatic && sensor != SensorNone {
		return bad("sensor %s without automatic policy", sensor)
	}
	if def.PulseExtendable && policy != PolicyPulse {
		return bad("pulse_extendable without pulse policy")
	}
	if def.PulseTimeConfigurable && policy != PolicyPulse && policy != PolicyLinkRelay && !sensor.Entity() {
		return bad("pulsetime_configurable needs pulse, link relay or an entity sensor")
	}
	if def.RampConfigurable && sensor != SensorInterval {
		return bad("ramp_configurable without interval sensor")
	}
	if (def.ShockSensitive || def.HighSensitivity) && sensor != SensorContact {
		return bad("contact sensitivity flags without contact sensor")
	}
	if def.ShockSensitive && def.MinFallDistance <= 0 {
		return bad("shock_sensitive needs min_fall_distance > 0")
	}
	if sensor == SensorBlockMatch && strings.TrimSpace(def.BlockCategory) == "" {
		return bad("block_match sensor without block_category")
	}
	if policy == PolicyLinkRelay && !def.LinkTarget {
		return bad("link relay must be a link target")
	}
	if def.MaxRange < 0 || def.MaxRange > 255 {
		return bad("max_range=%d out of [0,255]", def.MaxRange)
	}

	d := &Descriptor{
		TypeID:                id,
		Kind:                  kind,
		Policy:                policy,
		Sensor:                sensor,
		PulseExtendable:       def.PulseExtendable,
		Invertible:            def.Invertible,
		Weakable:              def.Weakable,
		TouchConfigurable:     def.TouchConfigurable,
		PulseTimeConfigurable: def.PulseTimeConfigurable,
		RampConfigurable:      def.RampConfigurable,
		LinkSource:            def.LinkSource,
		LinkTarget:            def.LinkTarget,
		FloorMounted:          def.FloorMounted,
		Lateral:               def.Lateral,
		HighSensitivity:       def.HighSensitivity,
		ShockSensitive:        def.ShockSensitive,
		MinFallDistance:       def.MinFallDistance,
		BlockCategory:         strings.TrimSpace(def.BlockCategory),
		ComparatorMode:        cmode,
		MaxRange:              def.MaxRange,
		OnCue:                 def.OnCue,
		OffCue:                def.OffCue,
	}
	if d.MaxRange == 0 {
		d.MaxRange = DefaultMaxRange
	}
	if d.OnCue == "" {
		d.OnCue = DefaultOnCue
	}
	if d.OffCue == "" {
		d.OffCue = DefaultOffCue
	}

	st, err := d.buildDefaults(def.Defaults)
	if err != nil {
		return bad("%v", err)
	}
	d.defaults = st
	return d, nil
}

func (d *Descriptor) buildDefaults(td TypeDefaults) (State, error) {
	st := State{OnPower: MaxPower}
	if d.Kind != KindSwitch {
		st.OnPower = 0
	}
	if td.OnPower != nil {
		st.OnPower = *td.OnPower
	}
	if td.OffPower != nil {
		st.OffPower = *td.OffPower
	}
	st.Inverted = td.Inverted
	st.Weak = td.Weak
	st.ColorTint = td.ColorTint
	st.ActiveTime = td.ActiveTime
	if st.Inverted && !d.Invertible {
		return State{}, fmt.Errorf("default inverted on non-invertible type")
	}
	if st.Weak && !d.Weakable {
		return State{}, fmt.Errorf("default weak on non-weakable type")
	}

	s := sensorDefaults(d.Sensor)
	setIf := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	setIf(&s.Range, td.Range)
	setIf(&s.Threshold, td.Threshold)
	setIf(&s.Debounce, td.Debounce)
	setIf(&s.ThresholdOn, td.ThresholdOn)
	setIf(&s.ThresholdOff, td.ThresholdOff)
	setIf(&s.Interval.PSet, td.PSet)
	setIf(&s.Interval.TOn, td.TOn)
	setIf(&s.Interval.TOff, td.TOff)
	s.Interval.Ramp = td.Ramp
	if td.Filter != "" {
		c, ok := host.ParseEntityClass(td.Filter)
		if !ok {
			return State{}, fmt.Errorf("unknown entity filter %q", td.Filter)
		}
		s.FilterIndex = int(c)
	}
	if s.Range > d.MaxRange {
		s.Range = d.MaxRange
	}
	st.Sensor = s
	if reason := validateState(d, &st); reason != "" {
		return State{}, fmt.Errorf("defaults: %s", reason)
	}
	return st, nil
}

func (d *Descriptor) IsSwitch() bool { return d.Kind == KindSwitch }

// Configurable reports whether any touch configuration applies.
func (d *Descriptor) Configurable() bool {
	return d.TouchConfigurable || d.PulseTimeConfigurable || d.Policy == PolicyAutomatic
}

func (d *Descriptor) String() string {
	if d.Sensor != SensorNone {
		return fmt.Sprintf("%s(%s/%s)", d.TypeID, d.Policy, d.Sensor)
	}
	return fmt.Sprintf("%s(%s)", d.TypeID, d.Policy)
}
