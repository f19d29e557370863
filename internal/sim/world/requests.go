package world

import (
	"context"
	"errors"

	"github.com/stfwi/rsgauges-sub000/internal/protocol"
	"github.com/stfwi/rsgauges-sub000/internal/sim/host"
	"github.com/stfwi/rsgauges-sub000/internal/sim/link"
)

// Request operations.
const (
	OpPlace     = "PLACE"
	OpRemove    = "REMOVE"
	OpActivate  = "ACTIVATE"
	OpLink      = "LINK"
	OpUnlink    = "UNLINK"
	OpRelink    = "RELINK"
	OpConfigure = "CONFIGURE"
	OpCycleMode = "CYCLE_MODE"
	OpRestart   = "RESTART"
	OpSnapshot  = "SNAPSHOT"
)

type request struct {
	Op        string
	Place     protocol.PlaceReq
	Pos       protocol.PosReq
	Link      protocol.LinkReq
	Configure protocol.ConfigureReq
	Token     string
	Actor     string
	Resp      chan protocol.Response
}

var ErrWorldBusy = errors.New("world request queue full")

// RequestPlace and the other Request* methods are safe to call from other
// goroutines (e.g. HTTP handlers). The request is applied at the next tick
// boundary.
func (w *World) RequestPlace(ctx context.Context, r protocol.PlaceReq) protocol.Response {
	return w.do(ctx, request{Op: OpPlace, Place: r})
}

func (w *World) RequestRemove(ctx context.Context, r protocol.PosReq) protocol.Response {
	return w.do(ctx, request{Op: OpRemove, Pos: r})
}

func (w *World) RequestActivate(ctx context.Context, r protocol.PosReq, actor string) protocol.Response {
	return w.do(ctx, request{Op: OpActivate, Pos: r, Actor: actor})
}

func (w *World) RequestLink(ctx context.Context, r protocol.LinkReq) protocol.Response {
	return w.do(ctx, request{Op: OpLink, Link: r})
}

func (w *World) RequestUnlink(ctx context.Context, r protocol.LinkReq) protocol.Response {
	return w.do(ctx, request{Op: OpUnlink, Link: r})
}

func (w *World) RequestRelink(ctx context.Context, token string, src protocol.PosReq) protocol.Response {
	return w.do(ctx, request{Op: OpRelink, Token: token, Pos: src})
}

func (w *World) RequestConfigure(ctx context.Context, r protocol.ConfigureReq) protocol.Response {
	return w.do(ctx, request{Op: OpConfigure, Configure: r})
}

func (w *World) RequestCycleMode(ctx context.Context, r protocol.PosReq) protocol.Response {
	return w.do(ctx, request{Op: OpCycleMode, Pos: r})
}

func (w *World) RequestRestart(ctx context.Context, r protocol.PosReq) protocol.Response {
	return w.do(ctx, request{Op: OpRestart, Pos: r})
}

// RequestSnapshot asks the world loop goroutine to enqueue a snapshot.
func (w *World) RequestSnapshot(ctx context.Context) protocol.Response {
	return w.do(ctx, request{Op: OpSnapshot})
}

func (w *World) do(ctx context.Context, r request) protocol.Response {
	r.Resp = make(chan protocol.Response, 1)
	select {
	case w.requests <- r:
	case <-ctx.Done():
		return fail(protocol.ErrWorldBusy, ctx.Err().Error())
	default:
		return fail(protocol.ErrWorldBusy, ErrWorldBusy.Error())
	}
	select {
	case resp := <-r.Resp:
		return resp
	case <-ctx.Done():
		return fail(protocol.ErrWorldBusy, ctx.Err().Error())
	}
}

func fail(code, msg string) protocol.Response {
	return protocol.Response{OK: false, Code: code, Message: msg}
}

func result(code string, data any) protocol.Response {
	if code != "" {
		return protocol.Response{OK: false, Code: code}
	}
	return protocol.Response{OK: true, Data: data}
}

func (w *World) apply(now uint64, r request) {
	resp := w.handle(now, r)
	if r.Resp == nil {
		return
	}
	select {
	case r.Resp <- resp:
	default:
		// Client timed out; don't block the sim loop.
	}
}

func (w *World) handle(now uint64, r request) protocol.Response {
	switch r.Op {
	case OpPlace:
		f, ok := host.ParseFacing(r.Place.Facing)
		if r.Place.Facing == "" {
			f, ok = host.Up, true
		}
		if !ok {
			return fail(protocol.ErrBadRequest, "bad facing")
		}
		inst, code := w.Place(now, r.Place.TypeID, host.PosFromArray(r.Place.Pos), f)
		if code != "" {
			return result(code, nil)
		}
		return result("", map[string]any{"device_id": inst.ID()})
	case OpRemove:
		toks, code := w.Remove(now, host.PosFromArray(r.Pos.Pos))
		ids := make([]string, 0, len(toks))
		for _, t := range toks {
			ids = append(ids, t.ID)
		}
		return result(code, map[string]any{"tokens": ids})
	case OpActivate:
		return result(w.Activate(now, host.PosFromArray(r.Pos.Pos), r.Actor), nil)
	case OpLink:
		mode, ok := link.ParseMode(r.Link.Mode)
		if !ok {
			return fail(protocol.ErrBadRequest, "bad link mode")
		}
		return result(w.Link(now, host.PosFromArray(r.Link.Source), host.PosFromArray(r.Link.Target), mode, r.Link.Analog), nil)
	case OpUnlink:
		return result(w.Unlink(now, host.PosFromArray(r.Link.Source), host.PosFromArray(r.Link.Target)), nil)
	case OpRelink:
		return result(w.Relink(now, r.Token, host.PosFromArray(r.Pos.Pos)), nil)
	case OpConfigure:
		c := r.Configure
		return result(w.Configure(now, host.PosFromArray(c.Pos), c.Field, c.Delta), nil)
	case OpCycleMode:
		m, code := w.CycleOutputMode(now, host.PosFromArray(r.Pos.Pos))
		return result(code, map[string]any{"mode": m.String()})
	case OpRestart:
		return result(w.Restart(host.PosFromArray(r.Pos.Pos)), nil)
	case OpSnapshot:
		if w.snapshotSink == nil {
			return fail(protocol.ErrInternal, "snapshot sink not configured")
		}
		snapTick := uint64(0)
		if now > 0 {
			snapTick = now - 1
		}
		select {
		case w.snapshotSink <- w.ExportSnapshot(snapTick):
			return result("", map[string]any{"tick": snapTick})
		default:
			return fail(protocol.ErrWorldBusy, "snapshot sink backpressure")
		}
	default:
		return fail(protocol.ErrProtoBadRequest, "unknown op "+r.Op)
	}
}
