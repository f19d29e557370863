package link

import (
	"testing"

	"github.com/stfwi/rsgauges-sub000/internal/sim/host"
)

type fakeTarget struct {
	typ   string
	power int
	reg   Registry
	got   []Decision
}

func (f *fakeTarget) TypeID() string                     { return f.typ }
func (f *fakeTarget) AcceptsLinks() bool                 { return true }
func (f *fakeTarget) SwitchLinkOutputPower() (int, bool) { return f.power, true }

func (f *fakeTarget) SwitchLinkTrigger(req Request, l Link) Result {
	if !f.reg.Accept(req.Tick) {
		return NotMatched
	}
	d, ok := Evaluate(l, req, f.power)
	if !ok {
		return NotMatched
	}
	f.got = append(f.got, d)
	switch d.Action {
	case ActionOn:
		f.power = 15
	case ActionOff:
		f.power = 0
	case ActionSetPower:
		f.power = d.Power
	}
	return OK
}

type fakeResolver map[host.Pos]*fakeTarget

func (r fakeResolver) LinkTarget(p host.Pos) (Target, bool) {
	t, ok := r[p]
	if !ok {
		return nil, false
	}
	return t, true
}

func TestEvaluate_ActivateNeedsStateChange(t *testing.T) {
	l := Link{TargetTypeID: "x", Mode: ModeActivate}
	d, ok := Evaluate(l, Request{Power: 15, StateChanged: true}, 0)
	if !ok || d.Action != ActionOn {
		t.Fatalf("decision=%+v ok=%v, want on", d, ok)
	}
	if _, ok := Evaluate(l, Request{Power: 15, StateChanged: false}, 0); ok {
		t.Fatalf("expected NOT_MATCHED without state change")
	}
	if _, ok := Evaluate(l, Request{Power: 0, StateChanged: true}, 0); ok {
		t.Fatalf("expected NOT_MATCHED for falling edge")
	}
}

func TestEvaluate_DeactivateAndToggle(t *testing.T) {
	d, ok := Evaluate(Link{Mode: ModeDeactivate}, Request{Power: 0, StateChanged: true}, 15)
	if !ok || d.Action != ActionOff {
		t.Fatalf("decision=%+v ok=%v, want off", d, ok)
	}
	for _, p := range []int{0, 15} {
		d, ok := Evaluate(Link{Mode: ModeToggle}, Request{Power: p, StateChanged: true}, 7)
		if !ok || d.Action != ActionToggle {
			t.Fatalf("power=%d decision=%+v ok=%v, want toggle", p, d, ok)
		}
	}
	if _, ok := Evaluate(Link{Mode: ModeToggle}, Request{Power: 15}, 0); ok {
		t.Fatalf("expected NOT_MATCHED toggle without change")
	}
}

func TestEvaluate_AnalogAsState(t *testing.T) {
	l := Link{Mode: ModeAsState, Analog: true}
	if _, ok := Evaluate(l, Request{Power: 9}, 9); ok {
		t.Fatalf("expected no-op when power equal")
	}
	d, ok := Evaluate(l, Request{Power: 9}, 3)
	if !ok || d.Action != ActionSetPower || d.Power != 9 {
		t.Fatalf("decision=%+v ok=%v, want set 9", d, ok)
	}
	inv := Link{Mode: ModeInvState, Analog: true}
	d, ok = Evaluate(inv, Request{Power: 4}, 3)
	if !ok || d.Power != 11 {
		t.Fatalf("decision=%+v ok=%v, want set 11", d, ok)
	}
}

func TestEvaluate_DigitalAsState(t *testing.T) {
	l := Link{Mode: ModeAsState}
	if _, ok := Evaluate(l, Request{Power: 15, StateChanged: true}, 15); ok {
		t.Fatalf("expected NOT_MATCHED when target already on")
	}
	d, ok := Evaluate(l, Request{Power: 0, StateChanged: true}, 15)
	if !ok || d.Action != ActionOff {
		t.Fatalf("decision=%+v ok=%v, want off", d, ok)
	}
	d, ok = Evaluate(Link{Mode: ModeInvState}, Request{Power: 0, StateChanged: true}, 0)
	if !ok || d.Action != ActionOn {
		t.Fatalf("decision=%+v ok=%v, want on", d, ok)
	}
}

func TestTrigger_ActivateScenario(t *testing.T) {
	src := host.Pos{}
	dst := host.Pos{X: 3}
	tgt := &fakeTarget{typ: "switch"}
	r := fakeResolver{dst: tgt}
	set := Settings{Enabled: true}
	l := Link{Target: dst, TargetTypeID: "switch", Mode: ModeActivate}

	if res := Trigger(set, r, src, l, Request{Tick: 1, Power: 15, StateChanged: true}); res != OK {
		t.Fatalf("result=%v, want OK", res)
	}
	if res := Trigger(set, r, src, l, Request{Tick: 2, Power: 15, StateChanged: false}); res != NotMatched {
		t.Fatalf("result=%v, want NOT_MATCHED", res)
	}
}

func TestTrigger_SameTickSecondRequestNotMatched(t *testing.T) {
	dst := host.Pos{X: 1}
	tgt := &fakeTarget{typ: "switch"}
	r := fakeResolver{dst: tgt}
	set := Settings{Enabled: true}
	l := Link{Target: dst, TargetTypeID: "switch", Mode: ModeToggle}
	req := Request{Tick: 10, Power: 15, StateChanged: true}

	if res := Trigger(set, r, host.Pos{}, l, req); res != OK {
		t.Fatalf("first result=%v, want OK", res)
	}
	if res := Trigger(set, r, host.Pos{Z: 1}, l, req); res != NotMatched {
		t.Fatalf("second result=%v, want NOT_MATCHED", res)
	}
	req.Tick = 11
	if res := Trigger(set, r, host.Pos{}, l, req); res != OK {
		t.Fatalf("next tick result=%v, want OK", res)
	}
}

func TestTrigger_Validation(t *testing.T) {
	dst := host.Pos{X: 10}
	r := fakeResolver{dst: &fakeTarget{typ: "switch"}}
	l := Link{Target: dst, TargetTypeID: "switch", Mode: ModeToggle}
	req := Request{Tick: 1, Power: 15, StateChanged: true}

	if res := Trigger(Settings{Enabled: false}, r, host.Pos{}, l, req); res != InvalidLinkData {
		t.Fatalf("disabled result=%v", res)
	}
	if res := Trigger(Settings{Enabled: true}, r, host.Pos{}, Link{Target: dst}, req); res != InvalidLinkData {
		t.Fatalf("empty link result=%v", res)
	}
	if res := Trigger(Settings{Enabled: true, MaxDistance: 9}, r, host.Pos{}, l, req); res != TooFar {
		t.Fatalf("far result=%v, want TOO_FAR", res)
	}
	gone := l
	gone.TargetTypeID = "lamp"
	if res := Trigger(Settings{Enabled: true}, r, host.Pos{}, gone, req); res != TargetGone {
		t.Fatalf("changed type result=%v, want TARGET_GONE", res)
	}
	missing := l
	missing.Target = host.Pos{Y: 4}
	if res := Trigger(Settings{Enabled: true}, r, host.Pos{}, missing, req); res != TargetGone {
		t.Fatalf("missing result=%v, want TARGET_GONE", res)
	}
}

func TestInRange(t *testing.T) {
	far := host.Pos{X: 1000, Y: 1000, Z: 1000}
	if !InRange(0, host.Pos{}, far) {
		t.Fatalf("max=0 must never reject")
	}
	if !InRange(5, host.Pos{}, host.Pos{X: 3, Z: 4}) {
		t.Fatalf("distance 5 must be in range of 5")
	}
	if InRange(5, host.Pos{}, host.Pos{X: 3, Y: 1, Z: 4}) {
		t.Fatalf("distance > 5 must be out of range")
	}
}

func TestActivateAll_CountsFailures(t *testing.T) {
	a := host.Pos{X: 1}
	b := host.Pos{X: 2}
	r := fakeResolver{a: &fakeTarget{typ: "switch"}}
	links := []Link{
		{Target: a, TargetTypeID: "switch", Mode: ModeActivate},
		{Target: b, TargetTypeID: "switch", Mode: ModeActivate},
	}
	var seen []Result
	n := ActivateAll(Settings{Enabled: true}, r, host.Pos{}, links, Request{Tick: 1, Power: 15, StateChanged: true},
		func(_ Link, res Result) { seen = append(seen, res) })
	if n != 1 {
		t.Fatalf("failures=%d, want 1", n)
	}
	if len(seen) != 2 || seen[0] != OK || seen[1] != TargetGone {
		t.Fatalf("results=%v", seen)
	}
}

func TestRegistry_OneLinkPerTarget(t *testing.T) {
	var r Registry
	l := Link{Target: host.Pos{X: 1}, TargetTypeID: "s"}
	if !r.Add(l) {
		t.Fatalf("first add failed")
	}
	l.Mode = ModeToggle
	if r.Add(l) {
		t.Fatalf("second link to same target accepted")
	}
	dropped := r.Set([]Link{l, l, {Target: host.Pos{X: 2}}})
	if dropped != 2 || r.Len() != 1 {
		t.Fatalf("dropped=%d len=%d, want 2 and 1", dropped, r.Len())
	}
	if got := r.Clear(); len(got) != 1 || r.Len() != 0 {
		t.Fatalf("clear returned %d links, len after=%d", len(got), r.Len())
	}
}

func TestRegistry_GuardTickZero(t *testing.T) {
	var r Registry
	if !r.Accept(0) {
		t.Fatalf("first request at tick 0 refused")
	}
	if r.Accept(0) {
		t.Fatalf("second request at tick 0 accepted")
	}
	r.ResetGuard()
	if !r.Accept(0) {
		t.Fatalf("request refused after reset")
	}
}

func TestNewToken_UniqueIDs(t *testing.T) {
	l := Link{Target: host.Pos{X: 1}, TargetTypeID: "s"}
	a := NewToken(host.Pos{}, "src", l)
	b := NewToken(host.Pos{}, "src", l)
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("token ids %q %q", a.ID, b.ID)
	}
}
