// Package link implements wireless switch links: the per-device registry of
// outbound links, the trigger evaluation and the dispatch protocol.
package link

import (
	"strings"

	"github.com/google/uuid"

	"github.com/stfwi/rsgauges-sub000/internal/sim/host"
)

type Mode uint8

const (
	ModeAsState Mode = iota
	ModeActivate
	ModeDeactivate
	ModeToggle
	ModeInvState
)

var modeNames = [...]string{"AS_STATE", "ACTIVATE", "DEACTIVATE", "TOGGLE", "INV_STATE"}

func (m Mode) Valid() bool { return int(m) < len(modeNames) }

func (m Mode) String() string {
	if m.Valid() {
		return modeNames[m]
	}
	return "INVALID"
}

func ParseMode(s string) (Mode, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n == s {
			return Mode(i), true
		}
	}
	return ModeAsState, false
}

// Link is one outbound wireless trigger. TargetTypeID is recorded when the
// link is assigned and used to detect that the target was replaced.
type Link struct {
	Target       host.Pos
	TargetTypeID string
	Mode         Mode
	Analog       bool
}

func (l Link) Valid() bool {
	return l.TargetTypeID != "" && l.Mode.Valid()
}

// Token is a detached link that can be handed back to a player and
// re-assigned later.
type Token struct {
	ID           string
	Source       host.Pos
	SourceTypeID string
	Link         Link
}

func NewToken(src host.Pos, srcType string, l Link) Token {
	return Token{ID: uuid.NewString(), Source: src, SourceTypeID: srcType, Link: l}
}

// InRange applies the link distance limit. max <= 0 means unlimited.
func InRange(max int, a, b host.Pos) bool {
	if max <= 0 {
		return true
	}
	return host.DistanceSq(a, b) <= max*max
}
