package world

import (
	"fmt"

	"github.com/stfwi/rsgauges-sub000/internal/protocol"
	"github.com/stfwi/rsgauges-sub000/internal/sim/device"
	"github.com/stfwi/rsgauges-sub000/internal/sim/host"
	"github.com/stfwi/rsgauges-sub000/internal/sim/link"
)

// EffectLogger persists played cues. Implemented in internal/persistence/log.
type EffectLogger interface {
	WriteEffect(msg protocol.EffectMsg) error
}

// AuditLogger persists state affecting decisions.
type AuditLogger interface {
	WriteAudit(entry protocol.AuditEntry) error
}

// Broadcaster fans engine events out to observers. Implementations must not
// block the world loop.
type Broadcaster interface {
	PublishEffect(msg protocol.EffectMsg)
	PublishPower(msg protocol.PowerMsg)
	PublishLink(msg protocol.LinkMsg)
}

// Metrics is the counter surface the world reports to.
type Metrics interface {
	Activation(policy string)
	LinkResult(mode, result string)
	TickFailure(typeID string)
	SetDevices(n int)
	SetTick(tick uint64)
}

// Audit actions.
const (
	AuditPlace       = "PLACE"
	AuditRemove      = "REMOVE"
	AuditLinkAssign  = "LINK_ASSIGN"
	AuditLinkRemove  = "LINK_REMOVE"
	AuditLinkFailure = "LINK_FAILURE"
	AuditTickFailure = "TICK_FAILURE"
	AuditStateReset  = "STATE_RESET"
	AuditDropType    = "DROP_UNKNOWN_TYPE"
)

// Play implements host.EffectsPort.
func (w *World) Play(cue string, p host.Pos) {
	msg := protocol.EffectMsg{
		Type:            protocol.TypeEffect,
		ProtocolVersion: protocol.Version,
		Tick:            w.tick.Load(),
		Cue:             cue,
		Pos:             p.ToArray(),
	}
	if inst := w.devices[p]; inst != nil {
		msg.DeviceID = inst.ID()
	}
	if w.effectLog != nil {
		if err := w.effectLog.WriteEffect(msg); err != nil {
			w.logf("effect log: %v", err)
		}
	}
	if w.stream != nil {
		w.stream.PublishEffect(msg)
	}
}

// NotifyNeighbors implements host.NeighborNotifier. The six neighbours and
// the neighbours of the block the device is mounted on are told.
func (w *World) NotifyNeighbors(p host.Pos, side host.Facing) {
	mount := p.Offset(side, 1)
	seen := map[host.Pos]bool{p: true}
	for _, c := range []host.Pos{p, mount} {
		for _, f := range host.AllFacings {
			n := c.Offset(f, 1)
			if seen[n] {
				continue
			}
			seen[n] = true
			if inst := w.devices[n]; inst != nil {
				inst.NeighborChanged()
			}
		}
	}
}

// Activated implements device.Observer.
func (w *World) Activated(inst *device.Instance, tick uint64) {
	if w.metrics != nil {
		w.metrics.Activation(inst.Descriptor().Policy.String())
	}
}

func (w *World) PowerChanged(inst *device.Instance, tick uint64) {
	if w.stream == nil {
		return
	}
	power := inst.Display()
	if inst.Descriptor().IsSwitch() {
		st := inst.State()
		power = device.Level(&st)
	}
	w.stream.PublishPower(protocol.PowerMsg{
		Type:            protocol.TypePower,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		DeviceID:        inst.ID(),
		Pos:             inst.Pos().ToArray(),
		Powered:         inst.Powered(),
		Power:           power,
	})
}

func (w *World) LinkResult(inst *device.Instance, l link.Link, r link.Result, tick uint64) {
	if w.metrics != nil {
		w.metrics.LinkResult(l.Mode.String(), r.String())
	}
	if w.stream != nil {
		w.stream.PublishLink(protocol.LinkMsg{
			Type:            protocol.TypeLink,
			ProtocolVersion: protocol.Version,
			Tick:            tick,
			Source:          inst.Pos().ToArray(),
			Target:          l.Target.ToArray(),
			Mode:            l.Mode.String(),
			Result:          r.String(),
		})
	}
	if r.Failure() {
		w.audit(protocol.AuditEntry{
			Tick:   tick,
			Action: AuditLinkFailure,
			Pos:    inst.Pos().ToArray(),
			Reason: r.String(),
			Details: protocol.Event{
				"target":      l.Target.ToArray(),
				"target_type": l.TargetTypeID,
				"mode":        l.Mode.String(),
			},
		})
	}
}

func (w *World) TickFailure(inst *device.Instance, tick uint64, cause any) {
	if w.metrics != nil {
		w.metrics.TickFailure(inst.TypeID())
	}
	w.audit(protocol.AuditEntry{
		Tick:   tick,
		Action: AuditTickFailure,
		Pos:    inst.Pos().ToArray(),
		Code:   protocol.ErrInternal,
		Reason: fmt.Sprint(cause),
	})
}

func (w *World) audit(e protocol.AuditEntry) {
	if w.auditLog == nil {
		return
	}
	if err := w.auditLog.WriteAudit(e); err != nil {
		w.logf("audit log: %v", err)
	}
}

var (
	_ host.EffectsPort      = (*World)(nil)
	_ host.NeighborNotifier = (*World)(nil)
	_ device.Observer       = (*World)(nil)
)
