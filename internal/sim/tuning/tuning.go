package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz          int   `yaml:"tick_rate_hz"`
	DayTicks            int   `yaml:"day_ticks"`
	TickBase            int   `yaml:"tick_base"`
	SnapshotEveryTicks  int   `yaml:"snapshot_every_ticks"`
	FailureBackoffTicks int   `yaml:"failure_backoff_ticks"`
	Seed                int64 `yaml:"seed"`

	LinksEnabled      bool `yaml:"links_enabled"`
	MaxLinkDistance   int  `yaml:"max_link_distance"`
	MaxLinksPerDevice int  `yaml:"max_links_per_device"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:     "1.0",
		TickRateHz:          20,
		DayTicks:            24000,
		TickBase:            8,
		SnapshotEveryTicks:  6000,
		FailureBackoffTicks: 100,
		Seed:                1,
		LinksEnabled:        true,
		MaxLinkDistance:     16,
		MaxLinksPerDevice:   16,
	}
}

// Load reads path over the defaults, so a partial file only overrides what it names.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	switch {
	case t.TickRateHz <= 0 || t.TickRateHz > 1000:
		return fmt.Errorf("tick_rate_hz=%d out of (0,1000]", t.TickRateHz)
	case t.DayTicks <= 0:
		return fmt.Errorf("day_ticks=%d must be positive", t.DayTicks)
	case t.TickBase <= 0:
		return fmt.Errorf("tick_base=%d must be positive", t.TickBase)
	case t.SnapshotEveryTicks < 0:
		return fmt.Errorf("snapshot_every_ticks=%d must not be negative", t.SnapshotEveryTicks)
	case t.MaxLinkDistance < 0 || t.MaxLinkDistance > 255:
		return fmt.Errorf("max_link_distance=%d out of [0,255]", t.MaxLinkDistance)
	case t.MaxLinksPerDevice < 0:
		return fmt.Errorf("max_links_per_device=%d must not be negative", t.MaxLinksPerDevice)
	case t.FailureBackoffTicks < 0:
		return fmt.Errorf("failure_backoff_ticks=%d must not be negative", t.FailureBackoffTicks)
	}
	return nil
}
