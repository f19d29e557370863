package world

import (
	"sort"

	"github.com/stfwi/rsgauges-sub000/internal/protocol"
	"github.com/stfwi/rsgauges-sub000/internal/sim/device"
	"github.com/stfwi/rsgauges-sub000/internal/sim/host"
	"github.com/stfwi/rsgauges-sub000/internal/sim/link"
	"github.com/stfwi/rsgauges-sub000/internal/sim/sensor"
)

// detachedLink is a link token left behind by a removed source device.
type detachedLink struct {
	Token link.Token
	Tick  uint64
}

func (w *World) Device(p host.Pos) (*device.Instance, bool) {
	inst, ok := w.devices[p]
	return inst, ok
}

// Devices returns every instance in position order.
func (w *World) Devices() []*device.Instance {
	out := make([]*device.Instance, 0, len(w.devices))
	for _, p := range w.sortedPositions() {
		out = append(out, w.devices[p])
	}
	return out
}

func (w *World) descriptor(typeID string) (*device.Descriptor, bool) {
	if w.cats == nil {
		return nil, false
	}
	return w.cats.Devices.Get(typeID)
}

// Place creates a device with the type defaults. It returns the instance or
// a protocol error code.
func (w *World) Place(now uint64, typeID string, p host.Pos, facing host.Facing) (*device.Instance, string) {
	d, ok := w.descriptor(typeID)
	if !ok {
		return nil, protocol.ErrUnknownType
	}
	if code := w.checkFree(p); code != "" {
		return nil, code
	}
	inst := w.attach(d, p, facing, device.DefaultState(d))
	w.audit(protocol.AuditEntry{Tick: now, Action: AuditPlace, Pos: p.ToArray(), Details: protocol.Event{"type_id": typeID, "facing": facing.String()}})
	return inst, ""
}

func (w *World) checkFree(p host.Pos) string {
	if !w.Loaded(p) {
		return protocol.ErrUnloaded
	}
	if _, taken := w.devices[p]; taken {
		return protocol.ErrOccupied
	}
	if b := w.blocks[p]; !transparent[b] {
		return protocol.ErrOccupied
	}
	return ""
}

func (w *World) attach(d *device.Descriptor, p host.Pos, facing host.Facing, st device.State) *device.Instance {
	inst := device.New(d, p, facing, st, sensor.For(d), w.env)
	w.devices[p] = inst
	w.orderOK = false
	return inst
}

// Remove destroys the device at p. Its outbound links are kept as tokens
// that can be handed to another source with Relink.
func (w *World) Remove(now uint64, p host.Pos) ([]link.Token, string) {
	inst, ok := w.devices[p]
	if !ok {
		return nil, protocol.ErrNotFound
	}
	toks := inst.Destroy(now)
	delete(w.devices, p)
	w.orderOK = false
	for _, t := range toks {
		w.detached[t.ID] = detachedLink{Token: t, Tick: now}
	}
	w.audit(protocol.AuditEntry{Tick: now, Action: AuditRemove, Pos: p.ToArray(), Details: protocol.Event{"type_id": inst.TypeID(), "tokens": len(toks)}})
	return toks, ""
}

// DetachedLinks returns the tokens waiting to be re-assigned, oldest first.
func (w *World) DetachedLinks() []link.Token {
	all := make([]detachedLink, 0, len(w.detached))
	for _, d := range w.detached {
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Tick != all[j].Tick {
			return all[i].Tick < all[j].Tick
		}
		return all[i].Token.ID < all[j].Token.ID
	})
	out := make([]link.Token, 0, len(all))
	for _, d := range all {
		out = append(out, d.Token)
	}
	return out
}

// Relink assigns a detached token to the device at src.
func (w *World) Relink(now uint64, tokenID string, src host.Pos) string {
	d, ok := w.detached[tokenID]
	if !ok {
		return protocol.ErrNotFound
	}
	inst, ok := w.devices[src]
	if !ok {
		return protocol.ErrNoSource
	}
	if code := inst.AssignToken(d.Token); code != "" {
		return code
	}
	delete(w.detached, tokenID)
	w.auditLink(now, AuditLinkAssign, src, d.Token.Link, "", protocol.Event{"token": tokenID})
	return ""
}

func (w *World) Activate(now uint64, p host.Pos, actor string) string {
	inst, ok := w.devices[p]
	if !ok {
		return protocol.ErrNotFound
	}
	if !w.Loaded(p) {
		return protocol.ErrUnloaded
	}
	if !inst.Activate(device.ActivationContext{Tick: now, Actor: actor}) {
		return protocol.ErrNotConfig
	}
	return ""
}

// Link assigns a new outbound link from src to dst.
func (w *World) Link(now uint64, src, dst host.Pos, mode link.Mode, analog bool) string {
	inst, ok := w.devices[src]
	if !ok {
		return protocol.ErrNoSource
	}
	l := link.Link{Target: dst, Mode: mode, Analog: analog}
	code := inst.AssignLink(l)
	if code == "" {
		if t, ok := w.LinkTarget(dst); ok {
			l.TargetTypeID = t.TypeID()
		}
	}
	w.auditLink(now, AuditLinkAssign, src, l, code, nil)
	return code
}

func (w *World) Unlink(now uint64, src, dst host.Pos) string {
	inst, ok := w.devices[src]
	if !ok {
		return protocol.ErrNoSource
	}
	if !inst.Unlink(dst) {
		return protocol.ErrNotFound
	}
	w.auditLink(now, AuditLinkRemove, src, link.Link{Target: dst}, "", nil)
	return ""
}

func (w *World) auditLink(now uint64, action string, src host.Pos, l link.Link, code string, extra protocol.Event) {
	details := protocol.Event{
		"target": l.Target.ToArray(),
	}
	if l.TargetTypeID != "" {
		details["target_type"] = l.TargetTypeID
		details["mode"] = l.Mode.String()
	}
	for k, v := range extra {
		details[k] = v
	}
	w.audit(protocol.AuditEntry{Tick: now, Action: action, Pos: src.ToArray(), Code: code, Details: details})
}

func (w *World) Configure(now uint64, p host.Pos, field string, delta int) string {
	inst, ok := w.devices[p]
	if !ok {
		return protocol.ErrNotFound
	}
	return inst.Configure(now, field, delta)
}

// CycleOutputMode steps the output mode of the device at p.
func (w *World) CycleOutputMode(now uint64, p host.Pos) (device.OutputMode, string) {
	inst, ok := w.devices[p]
	if !ok {
		return 0, protocol.ErrNotFound
	}
	m, ok := inst.CycleOutputMode(now)
	if !ok {
		return m, protocol.ErrNotConfig
	}
	return m, ""
}

func (w *World) Restart(p host.Pos) string {
	inst, ok := w.devices[p]
	if !ok {
		return protocol.ErrNotFound
	}
	if !inst.Restart() {
		return protocol.ErrNotConfig
	}
	return ""
}

// SetBlock changes a block and wakes the devices that may be scanning it.
func (w *World) SetBlock(p host.Pos, block string) {
	if block == "" || block == "air" {
		delete(w.blocks, p)
	} else {
		w.blocks[p] = block
	}
	for _, q := range w.sortedPositions() {
		inst := w.devices[q]
		r := inst.Descriptor().MaxRange
		if host.DistanceSq(p, q) <= r*r {
			inst.NeighborChanged()
		}
	}
}

func (w *World) SetLight(p host.Pos, level int) { w.light[p] = level }
func (w *World) ClearLight(p host.Pos)          { delete(w.light, p) }

// SetSignal injects an external signal source at p. Level 0 removes it.
func (w *World) SetSignal(p host.Pos, level int) {
	if level <= 0 {
		delete(w.signals, p)
		return
	}
	w.signals[p] = level
}

func (w *World) SetContainer(p host.Pos, used, total int) {
	w.containers[p] = container{Used: used, Total: total}
}

func (w *World) SetComparatorSignal(p host.Pos, level int) { w.comparator[p] = level }

func (w *World) SetWeather(raining, thundering bool) {
	w.raining = raining
	w.thundering = thundering
}

func (w *World) SetTimeOfDay(t int) {
	t %= w.cfg.DayTicks
	if t < 0 {
		t += w.cfg.DayTicks
	}
	w.timeOfDay = t
}

// SetChunkLoaded marks the chunk holding p as loaded or unloaded.
func (w *World) SetChunkLoaded(p host.Pos, loaded bool) {
	if loaded {
		delete(w.unloaded, chunkOf(p))
	} else {
		w.unloaded[chunkOf(p)] = true
	}
}

// PutEntity adds or moves an entity.
func (w *World) PutEntity(e host.Entity) { w.entities[e.ID] = e }
func (w *World) RemoveEntity(id string)  { delete(w.entities, id) }
