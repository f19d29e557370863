package observer

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/stfwi/rsgauges-sub000/internal/protocol"
)

const (
	defaultRadius = 16
	maxRadius     = 256
	sessionQueue  = 1024
)

// filter is the normalized form of a SUBSCRIBE message.
type filter struct {
	cues      map[string]bool
	hasCenter bool
	center    [3]int
	radiusSq  int
	power     bool
	links     bool
}

func newFilter(sub protocol.SubscribeMsg) filter {
	f := filter{power: sub.Power, links: sub.Links}
	if len(sub.Cues) > 0 {
		f.cues = make(map[string]bool, len(sub.Cues))
		for _, c := range sub.Cues {
			f.cues[c] = true
		}
	}
	if sub.Center != nil {
		r := sub.Radius
		if r <= 0 {
			r = defaultRadius
		}
		if r > maxRadius {
			r = maxRadius
		}
		f.hasCenter = true
		f.center = *sub.Center
		f.radiusSq = r * r
	}
	return f
}

func (f filter) near(p [3]int) bool {
	if !f.hasCenter {
		return true
	}
	dx, dy, dz := p[0]-f.center[0], p[1]-f.center[1], p[2]-f.center[2]
	return dx*dx+dy*dy+dz*dz <= f.radiusSq
}

func (f filter) wantEffect(m protocol.EffectMsg) bool {
	if f.cues != nil && !f.cues[m.Cue] {
		return false
	}
	return f.near(m.Pos)
}

func (f filter) wantPower(m protocol.PowerMsg) bool { return f.power && f.near(m.Pos) }
func (f filter) wantLink(m protocol.LinkMsg) bool   { return f.links && f.near(m.Source) }

type session struct {
	id     string
	filter filter
	out    chan []byte
}

// Hub fans engine events out to observer sessions. Publishing never blocks:
// a session whose queue is full loses the message.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session

	nextID  atomic.Uint64
	dropped atomic.Uint64
}

func NewHub() *Hub {
	return &Hub{sessions: map[string]*session{}}
}

func (h *Hub) join(sub protocol.SubscribeMsg) *session {
	s := &session{
		id:     fmt.Sprintf("O%d", h.nextID.Add(1)),
		filter: newFilter(sub),
		out:    make(chan []byte, sessionQueue),
	}
	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
	return s
}

func (h *Hub) resubscribe(id string, sub protocol.SubscribeMsg) {
	h.mu.Lock()
	if s := h.sessions[id]; s != nil {
		s.filter = newFilter(sub)
	}
	h.mu.Unlock()
}

func (h *Hub) leave(id string) {
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
}

func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

func (h *Hub) PublishEffect(m protocol.EffectMsg) {
	h.publish(m, func(f filter) bool { return f.wantEffect(m) })
}

func (h *Hub) PublishPower(m protocol.PowerMsg) {
	h.publish(m, func(f filter) bool { return f.wantPower(m) })
}

func (h *Hub) PublishLink(m protocol.LinkMsg) {
	h.publish(m, func(f filter) bool { return f.wantLink(m) })
}

func (h *Hub) publish(v any, want func(filter) bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var b []byte
	for _, s := range h.sessions {
		if !want(s.filter) {
			continue
		}
		if b == nil {
			var err error
			if b, err = json.Marshal(v); err != nil {
				return
			}
		}
		select {
		case s.out <- b:
		default:
			h.dropped.Add(1)
		}
	}
}
