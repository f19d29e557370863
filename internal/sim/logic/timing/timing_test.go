package timing

import "testing"

func TestPulseOffTimer_BottomOfCurve(t *testing.T) {
	if got := PulseOffTimer(0, 0, DefaultTickBase, true); got != 5 {
		t.Fatalf("off_timer=%d, want 5", got)
	}
}

func TestPulseOffTimer_ActiveTimeOverride(t *testing.T) {
	if got := PulseOffTimer(40, 3, DefaultTickBase, true); got != 23 {
		t.Fatalf("off_timer=%d, want 23", got)
	}
	if got := PulseOffTimer(0, 1, 1, false); got != 1 {
		t.Fatalf("off_timer=%d, want 1", got)
	}
}

func TestPulseOffTimer_MonotoneAndPlateau(t *testing.T) {
	for _, base := range []int{1, 2, 3, 8, 20, 50} {
		cur := 0
		prev := 0
		for i := 0; i < 10; i++ {
			cur = PulseOffTimer(cur, 0, base, true)
			if cur < prev {
				t.Fatalf("base=%d step %d: off_timer=%d < previous %d", base, i, cur, prev)
			}
			prev = cur
		}
		if cur != PulsePlateau(base) {
			t.Fatalf("base=%d plateau=%d, want %d", base, cur, PulsePlateau(base))
		}
	}
	if got := PulsePlateau(DefaultTickBase); got != 50 {
		t.Fatalf("plateau=%d, want 50", got)
	}
}

func TestPulseOffTimer_Sequence(t *testing.T) {
	want := []int{5, 12, 25, 50, 50}
	cur := 0
	for i, w := range want {
		cur = PulseOffTimer(cur, 0, DefaultTickBase, true)
		if cur != w {
			t.Fatalf("step %d: off_timer=%d, want %d", i, cur, w)
		}
	}
}

func TestPulseOffTimer_NotExtendable(t *testing.T) {
	if got := PulseOffTimer(49, 0, DefaultTickBase, false); got != 5 {
		t.Fatalf("off_timer=%d, want 5", got)
	}
}

func TestStepInterval_InverseOnGrid(t *testing.T) {
	v := MinIntervalTicks
	for v < MaxIntervalTicks {
		up := StepInterval(v, true)
		if up <= v {
			t.Fatalf("step up from %d gave %d", v, up)
		}
		if down := StepInterval(up, false); down != v {
			t.Fatalf("down(up(%d))=%d", v, down)
		}
		v = up
	}
}

func TestStepInterval_Table(t *testing.T) {
	cases := []struct {
		v, up, down int
	}{
		{5, 10, 5},
		{95, 100, 90},
		{100, 110, 95},
		{200, 220, 190},
		{400, 440, 380},
		{600, 700, 560},
		{800, 1000, 700},
		{2400, 3000, 2200},
		{12000, 12000, 11400},
	}
	for _, c := range cases {
		if got := StepInterval(c.v, true); got != c.up {
			t.Fatalf("up(%d)=%d, want %d", c.v, got, c.up)
		}
		if got := StepInterval(c.v, false); got != c.down {
			t.Fatalf("down(%d)=%d, want %d", c.v, got, c.down)
		}
	}
}

func TestInterval_NoRampDurations(t *testing.T) {
	iv := Interval{PSet: 12, TOn: 3, TOff: 4}
	iv.Restart()
	var trace []int
	for i := 0; i < 14; i++ {
		iv.Advance(1)
		trace = append(trace, iv.P)
	}
	want := []int{12, 12, 12, 0, 0, 0, 0, 12, 12, 12, 0, 0, 0, 0}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("trace=%v, want %v", trace, want)
		}
	}
}

func TestInterval_RampClimbsEveryPeriod(t *testing.T) {
	iv := Interval{PSet: 6, TOn: 10, TOff: 10, Ramp: 2}
	iv.Restart()
	if changed := iv.Advance(RampPeriod - 1); changed {
		t.Fatalf("P changed before the first ramp period, P=%d", iv.P)
	}
	if changed := iv.Advance(1); !changed || iv.P != 2 {
		t.Fatalf("P=%d, want 2", iv.P)
	}
	iv.Advance(2 * RampPeriod)
	if iv.P != 6 {
		t.Fatalf("P=%d, want 6", iv.P)
	}
	if !iv.PhaseOn {
		t.Fatalf("expected on phase while holding")
	}
}

func TestInterval_RestartZeroesRamp(t *testing.T) {
	iv := Interval{PSet: 15, TOn: 5, TOff: 5, Ramp: 1}
	iv.Restart()
	iv.Advance(13)
	iv.Restart()
	if iv.P != 0 || iv.Timer != 0 || iv.RampTimer != 0 || !iv.PhaseOn {
		t.Fatalf("after restart: %+v", iv)
	}
}
