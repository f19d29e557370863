package link

import "github.com/stfwi/rsgauges-sub000/internal/sim/host"

// Target is the narrow contract a linked device exposes to link sources.
type Target interface {
	TypeID() string
	AcceptsLinks() bool
	SwitchLinkTrigger(req Request, l Link) Result
	SwitchLinkOutputPower() (int, bool)
}

// Resolver finds the device at a position. ok=false for empty or unloaded
// positions.
type Resolver interface {
	LinkTarget(p host.Pos) (Target, bool)
}

type Settings struct {
	Enabled     bool
	MaxDistance int
}

// Trigger sends req over l from src.
func Trigger(set Settings, r Resolver, src host.Pos, l Link, req Request) Result {
	if !set.Enabled || !l.Valid() || l.Target == src {
		return InvalidLinkData
	}
	if !InRange(set.MaxDistance, src, l.Target) {
		return TooFar
	}
	if r == nil {
		return TargetGone
	}
	t, ok := r.LinkTarget(l.Target)
	if !ok || t == nil || t.TypeID() != l.TargetTypeID {
		return TargetGone
	}
	return t.SwitchLinkTrigger(req, l)
}

// ActivateAll triggers every link in order and returns the number of
// failures. observe, if set, sees each link's result.
func ActivateAll(set Settings, r Resolver, src host.Pos, links []Link, req Request, observe func(Link, Result)) int {
	failures := 0
	for _, l := range links {
		res := Trigger(set, r, src, l, req)
		if res.Failure() {
			failures++
		}
		if observe != nil {
			observe(l, res)
		}
	}
	return failures
}
