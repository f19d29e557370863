package device

import (
	"github.com/stfwi/rsgauges-sub000/internal/protocol"
	"github.com/stfwi/rsgauges-sub000/internal/sim/host"
	"github.com/stfwi/rsgauges-sub000/internal/sim/link"
	"github.com/stfwi/rsgauges-sub000/internal/sim/logic/mathx"
)

func (i *Instance) AcceptsLinks() bool {
	return i.desc.Kind == KindSwitch && i.desc.LinkTarget
}

// SwitchLinkOutputPower is the level a link source compares against. Only
// switches have one.
func (i *Instance) SwitchLinkOutputPower() (int, bool) {
	if i.desc.Kind != KindSwitch {
		return 0, false
	}
	return Level(&i.st), true
}

// SwitchLinkTrigger handles an inbound link request. At most one request per
// tick gets past the guard.
func (i *Instance) SwitchLinkTrigger(req link.Request, l link.Link) link.Result {
	if !i.AcceptsLinks() {
		return link.Rejected
	}
	if !i.st.Links.Accept(req.Tick) {
		return link.NotMatched
	}
	cur, _ := i.SwitchLinkOutputPower()
	d, ok := link.Evaluate(l, req, cur)
	if !ok {
		return link.NotMatched
	}
	return i.handleLink(req.Tick, d)
}

func (i *Instance) handleLink(now uint64, d link.Decision) link.Result {
	switch i.desc.Policy {
	case PolicyBistable, PolicyLinkRelay:
		switch d.Action {
		case link.ActionOn:
			i.setOutput(now, true)
		case link.ActionOff:
			i.setOutput(now, false)
		case link.ActionToggle:
			i.setPowered(now, !i.st.Powered)
		case link.ActionSetPower:
			i.setAnalog(now, d.Power)
		default:
			return link.Rejected
		}
		if i.desc.Policy == PolicyLinkRelay && i.st.Powered && i.st.ActiveTime > 0 {
			i.st.OffTimer = i.holdTicks()
		}
		return link.OK
	case PolicyPulse:
		switch d.Action {
		case link.ActionOff:
			i.setPowered(now, false)
		case link.ActionToggle:
			if i.st.Powered {
				i.setPowered(now, false)
			} else {
				i.pulse(now)
			}
		case link.ActionSetPower:
			if d.Power == 0 {
				i.setPowered(now, false)
				break
			}
			i.st.OnPower = mathx.ClampLevel(d.Power)
			i.pulse(now)
		default:
			i.pulse(now)
		}
		return link.OK
	case PolicyAutomatic:
		if i.desc.Sensor == SensorInterval && (d.Action == link.ActionOn || d.Action == link.ActionToggle) {
			i.Restart()
			return link.OK
		}
	}
	return link.Rejected
}

// setOutput switches the emitted output on or off, taking inversion into
// account.
func (i *Instance) setOutput(now uint64, on bool) {
	i.setPowered(now, on != i.st.Inverted)
}

func (i *Instance) setAnalog(now uint64, p int) {
	p = mathx.ClampLevel(p)
	before := Level(&i.st)
	if p > 0 {
		if i.st.Inverted {
			i.st.OffPower = p
		} else {
			i.st.OnPower = p
		}
	}
	powered := (p > 0) != i.st.Inverted
	if powered != i.st.Powered {
		i.setPowered(now, powered)
		return
	}
	if Level(&i.st) != before {
		i.outputChanged(now, false)
	}
}

// fireLinks sends the current state over every outbound link. The instance
// stamps its own guard first so a link pointing back cannot re-trigger it
// in the same tick.
func (i *Instance) fireLinks(now uint64, stateChanged bool) bool {
	if !i.desc.LinkSource || i.st.Links.Len() == 0 {
		return true
	}
	i.st.Links.Stamp(now)
	req := link.Request{
		Tick:         now,
		Source:       i.pos,
		SourceTypeID: i.desc.TypeID,
		Power:        Level(&i.st),
		Powered:      i.st.Powered,
		StateChanged: stateChanged,
	}
	var observe func(link.Link, link.Result)
	if obs := i.env.Observer; obs != nil {
		observe = func(l link.Link, r link.Result) { obs.LinkResult(i, l, r, now) }
	}
	failures := link.ActivateAll(i.env.Settings.Links, i.env.Resolver, i.pos, i.st.Links.Links(), req, observe)
	if failures > 0 {
		i.env.play(host.CueLinkFailure, i.pos)
		return false
	}
	return true
}

// Links returns the outbound links.
func (i *Instance) Links() []link.Link { return i.st.Links.Links() }

// AssignLink attaches a new outbound link. The target type is recorded from
// the resolved device. It returns "" or a protocol error code.
func (i *Instance) AssignLink(l link.Link) string {
	set := i.env.Settings
	if !set.Links.Enabled {
		return protocol.ErrLinksDisabled
	}
	if l.Target == i.pos {
		return protocol.ErrSelfAssign
	}
	if !i.desc.LinkSource {
		return protocol.ErrNoSource
	}
	if !l.Mode.Valid() {
		return protocol.ErrBadRequest
	}
	if i.env.Resolver == nil {
		return protocol.ErrNoTarget
	}
	t, ok := i.env.Resolver.LinkTarget(l.Target)
	if !ok || t == nil || !t.AcceptsLinks() {
		return protocol.ErrNoTarget
	}
	if i.st.Links.Has(l.Target) {
		return protocol.ErrAlreadyLinked
	}
	if !link.InRange(set.Links.MaxDistance, i.pos, l.Target) {
		return protocol.ErrTooFar
	}
	if set.MaxLinks > 0 && i.st.Links.Len() >= set.MaxLinks {
		return protocol.ErrTooManyLinks
	}
	l.TargetTypeID = t.TypeID()
	i.st.Links.Add(l)
	return ""
}

// AssignToken re-attaches a detached link to this instance.
func (i *Instance) AssignToken(tok link.Token) string {
	return i.AssignLink(tok.Link)
}

func (i *Instance) Unlink(target host.Pos) bool {
	return i.st.Links.Remove(target)
}

// UnlinkAll detaches every outbound link and returns them as tokens.
func (i *Instance) UnlinkAll() []link.Token {
	links := i.st.Links.Clear()
	if len(links) == 0 {
		return nil
	}
	out := make([]link.Token, 0, len(links))
	for _, l := range links {
		out = append(out, link.NewToken(i.pos, i.desc.TypeID, l))
	}
	return out
}

var _ link.Target = (*Instance)(nil)
