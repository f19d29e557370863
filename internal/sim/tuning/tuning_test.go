package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_RepoConfig(t *testing.T) {
	tu, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tu.TickBase != 8 || !tu.LinksEnabled || tu.MaxLinkDistance != 16 {
		t.Fatalf("tuning=%+v", tu)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("tick_base: 4\nlinks_enabled: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tu, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tu.TickBase != 4 || tu.LinksEnabled {
		t.Fatalf("overrides not applied: %+v", tu)
	}
	if tu.FailureBackoffTicks != 100 || tu.DayTicks != 24000 {
		t.Fatalf("defaults lost: %+v", tu)
	}
}

func TestValidate(t *testing.T) {
	bad := []func(*Tuning){
		func(t *Tuning) { t.TickRateHz = 0 },
		func(t *Tuning) { t.DayTicks = -1 },
		func(t *Tuning) { t.TickBase = 0 },
		func(t *Tuning) { t.MaxLinkDistance = 300 },
		func(t *Tuning) { t.FailureBackoffTicks = -5 },
	}
	for i, mut := range bad {
		tu := Defaults()
		mut(&tu)
		if err := tu.Validate(); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}
