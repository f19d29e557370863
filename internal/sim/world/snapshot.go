package world

import (
	"fmt"
	"sort"

	"github.com/stfwi/rsgauges-sub000/internal/persistence/snapshot"
	"github.com/stfwi/rsgauges-sub000/internal/protocol"
	"github.com/stfwi/rsgauges-sub000/internal/sim/device"
	"github.com/stfwi/rsgauges-sub000/internal/sim/host"
)

func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header:          snapshot.Header{Version: snapshot.Version, WorldID: w.cfg.ID, Tick: nowTick},
		Seed:            w.cfg.Device.Seed,
		TickRate:        w.cfg.TickRateHz,
		DayTicks:        w.cfg.DayTicks,
		TickBase:        w.cfg.Device.TickBase,
		LinksEnabled:    w.cfg.Device.Links.Enabled,
		MaxLinkDistance: w.cfg.Device.Links.MaxDistance,
		World: snapshot.WorldV1{
			TimeOfDay:  w.timeOfDay,
			Raining:    w.raining,
			Thundering: w.thundering,
		},
	}
	if w.cats != nil {
		snap.CatalogDigest = w.cats.Devices.Digest
	}

	blockPos := make([]host.Pos, 0, len(w.blocks))
	for p := range w.blocks {
		blockPos = append(blockPos, p)
	}
	sort.Slice(blockPos, func(i, j int) bool { return host.Less(blockPos[i], blockPos[j]) })
	for _, p := range blockPos {
		b := snapshot.BlockV1{Pos: p.ToArray(), Block: w.blocks[p]}
		if v, ok := w.light[p]; ok {
			b.Light = v
		}
		snap.Blocks = append(snap.Blocks, b)
	}

	for _, inst := range w.Devices() {
		snap.Devices = append(snap.Devices, snapshot.DeviceV1{
			Pos:    inst.Pos().ToArray(),
			Facing: inst.Facing().String(),
			Record: inst.Record(),
		})
	}
	snap.Header.Devices = len(snap.Devices)
	return snap
}

// ImportSnapshot replaces the world content with snap. Devices of unknown
// types are dropped and corrupt device records fall back to the type
// defaults; both are logged and audited and do not fail the import.
func (w *World) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.Header.Version != snapshot.Version {
		return fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	if snap.DayTicks > 0 {
		w.cfg.DayTicks = snap.DayTicks
	}
	if snap.TickBase > 0 {
		w.cfg.Device.TickBase = snap.TickBase
	}
	w.cfg.Device.Seed = snap.Seed
	w.cfg.Device.Links.Enabled = snap.LinksEnabled
	w.cfg.Device.Links.MaxDistance = snap.MaxLinkDistance
	w.env.Settings = w.cfg.Device
	if w.cats != nil && snap.CatalogDigest != "" && snap.CatalogDigest != w.cats.Devices.Digest {
		w.logf("snapshot tick %d: device catalog changed since it was written", snap.Header.Tick)
	}

	w.blocks = map[host.Pos]string{}
	w.light = map[host.Pos]int{}
	for _, b := range snap.Blocks {
		p := host.PosFromArray(b.Pos)
		w.blocks[p] = b.Block
		if b.Light != 0 {
			w.light[p] = b.Light
		}
	}
	w.SetTimeOfDay(snap.World.TimeOfDay)
	w.raining = snap.World.Raining
	w.thundering = snap.World.Thundering

	w.devices = map[host.Pos]*device.Instance{}
	w.orderOK = false
	now := snap.Header.Tick
	for _, dv := range snap.Devices {
		p := host.PosFromArray(dv.Pos)
		rec := dv.Record
		d, ok := w.descriptor(rec.TypeID)
		if !ok {
			w.logf("snapshot: dropping device at %v: unknown type %q", dv.Pos, rec.TypeID)
			w.audit(protocol.AuditEntry{Tick: now, Action: AuditDropType, Pos: dv.Pos, Code: protocol.ErrUnknownType, Reason: rec.TypeID})
			continue
		}
		facing, ok := host.ParseFacing(dv.Facing)
		if !ok {
			facing = host.Up
		}
		st, corrupted := device.Restore(d, &rec)
		if corrupted {
			reason := ""
			if err := device.CheckRecord(d, &rec); err != nil {
				reason = err.Error()
			}
			w.logf("snapshot: device %s at %v corrupt, reset to defaults: %s", rec.TypeID, dv.Pos, reason)
			w.audit(protocol.AuditEntry{Tick: now, Action: AuditStateReset, Pos: dv.Pos, Reason: reason})
		}
		w.attach(d, p, facing, st)
	}
	w.tick.Store(now + 1)
	return nil
}
