package link

import "github.com/stfwi/rsgauges-sub000/internal/sim/host"

const MaxPower = 15

// Request is what a source sends along each of its links after a state
// change (or on a repeated pulse activation).
type Request struct {
	Tick         uint64
	Source       host.Pos
	SourceTypeID string
	// Power is the source's selected output level, ignoring weak and
	// nooutput so link-only sources still relay their state.
	Power        int
	Powered      bool
	StateChanged bool
}

type Action uint8

const (
	ActionNone Action = iota
	ActionOn
	ActionOff
	ActionToggle
	ActionSetPower
)

var actionNames = [...]string{"none", "on", "off", "toggle", "set_power"}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "?"
}

// Decision tells the target what to do. Power is only meaningful for
// ActionSetPower.
type Decision struct {
	Action Action
	Power  int
}

// Evaluate decides whether l matches req given the target's current output
// power. ok=false means NOT_MATCHED.
func Evaluate(l Link, req Request, targetPower int) (Decision, bool) {
	src := clampPower(req.Power)
	switch l.Mode {
	case ModeAsState, ModeInvState:
		inv := l.Mode == ModeInvState
		if l.Analog {
			want := src
			if inv {
				want = MaxPower - src
			}
			if want == clampPower(targetPower) {
				return Decision{}, false
			}
			return Decision{Action: ActionSetPower, Power: want}, true
		}
		if !req.StateChanged {
			return Decision{}, false
		}
		on := src > 0
		if inv {
			on = !on
		}
		if on == (targetPower > 0) {
			return Decision{}, false
		}
		if on {
			return Decision{Action: ActionOn}, true
		}
		return Decision{Action: ActionOff}, true
	case ModeActivate:
		if !req.StateChanged || src == 0 {
			return Decision{}, false
		}
		return Decision{Action: ActionOn}, true
	case ModeDeactivate:
		if !req.StateChanged || src != 0 {
			return Decision{}, false
		}
		return Decision{Action: ActionOff}, true
	case ModeToggle:
		if !req.StateChanged {
			return Decision{}, false
		}
		return Decision{Action: ActionToggle}, true
	default:
		return Decision{}, false
	}
}

func clampPower(p int) int {
	if p < 0 {
		return 0
	}
	if p > MaxPower {
		return MaxPower
	}
	return p
}
