package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/stfwi/rsgauges-sub000/internal/protocol"
	"github.com/stfwi/rsgauges-sub000/internal/sim/world"
)

const adminTimeout = 5 * time.Second

type relinkReq struct {
	Token  string `json:"token"`
	Source [3]int `json:"source"`
}

type activateReq struct {
	Pos   [3]int `json:"pos"`
	Actor string `json:"actor,omitempty"`
}

// registerAdmin wires the local-only admin endpoints. Each maps onto one
// world request and is applied at the next tick boundary.
func registerAdmin(mux *http.ServeMux, w *world.World) {
	mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		writeResponse(rw, protocol.Response{OK: true, Data: map[string]any{
			"world_id": w.ID(),
			"tick":     w.CurrentTick(),
		}})
	})
	mux.HandleFunc("/admin/v1/place", post(func(ctx context.Context, req protocol.PlaceReq) protocol.Response {
		return w.RequestPlace(ctx, req)
	}))
	mux.HandleFunc("/admin/v1/remove", post(func(ctx context.Context, req protocol.PosReq) protocol.Response {
		return w.RequestRemove(ctx, req)
	}))
	mux.HandleFunc("/admin/v1/activate", post(func(ctx context.Context, req activateReq) protocol.Response {
		actor := req.Actor
		if actor == "" {
			actor = "admin"
		}
		return w.RequestActivate(ctx, protocol.PosReq{Pos: req.Pos}, actor)
	}))
	mux.HandleFunc("/admin/v1/link", post(func(ctx context.Context, req protocol.LinkReq) protocol.Response {
		return w.RequestLink(ctx, req)
	}))
	mux.HandleFunc("/admin/v1/unlink", post(func(ctx context.Context, req protocol.LinkReq) protocol.Response {
		return w.RequestUnlink(ctx, req)
	}))
	mux.HandleFunc("/admin/v1/relink", post(func(ctx context.Context, req relinkReq) protocol.Response {
		return w.RequestRelink(ctx, req.Token, protocol.PosReq{Pos: req.Source})
	}))
	mux.HandleFunc("/admin/v1/configure", post(func(ctx context.Context, req protocol.ConfigureReq) protocol.Response {
		return w.RequestConfigure(ctx, req)
	}))
	mux.HandleFunc("/admin/v1/cycle_mode", post(func(ctx context.Context, req protocol.PosReq) protocol.Response {
		return w.RequestCycleMode(ctx, req)
	}))
	mux.HandleFunc("/admin/v1/restart", post(func(ctx context.Context, req protocol.PosReq) protocol.Response {
		return w.RequestRestart(ctx, req)
	}))
	mux.HandleFunc("/admin/v1/snapshot", post(func(ctx context.Context, _ struct{}) protocol.Response {
		return w.RequestSnapshot(ctx)
	}))
}

// post decodes a JSON body into T and hands it to fn.
func post[T any](fn func(context.Context, T) protocol.Response) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		var req T
		if r.ContentLength != 0 {
			dec := json.NewDecoder(http.MaxBytesReader(rw, r.Body, 64*1024))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeResponse(rw, protocol.Response{Code: protocol.ErrProtoBadRequest, Message: err.Error()})
				return
			}
		}
		ctx, cancel := context.WithTimeout(r.Context(), adminTimeout)
		defer cancel()
		writeResponse(rw, fn(ctx, req))
	}
}

func writeResponse(rw http.ResponseWriter, resp protocol.Response) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(statusFor(resp))
	_ = json.NewEncoder(rw).Encode(resp)
}

func statusFor(resp protocol.Response) int {
	if resp.OK {
		return http.StatusOK
	}
	switch resp.Code {
	case protocol.ErrWorldBusy:
		return http.StatusServiceUnavailable
	case protocol.ErrNotFound, protocol.ErrNoSource, protocol.ErrNoTarget:
		return http.StatusNotFound
	case protocol.ErrInternal:
		return http.StatusInternalServerError
	case protocol.ErrProtoBadRequest, protocol.ErrBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusConflict
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
