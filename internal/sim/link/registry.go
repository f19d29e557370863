package link

import "github.com/stfwi/rsgauges-sub000/internal/sim/host"

// Registry holds a device's outbound links and its inbound same-tick guard.
// At most one link per target position is kept.
type Registry struct {
	links []Link

	LastLinkTick uint64
	stamped      bool
}

func (r *Registry) Len() int { return len(r.links) }

// Links returns a copy in assignment order.
func (r *Registry) Links() []Link {
	if len(r.links) == 0 {
		return nil
	}
	out := make([]Link, len(r.links))
	copy(out, r.links)
	return out
}

func (r *Registry) Has(target host.Pos) bool {
	for _, l := range r.links {
		if l.Target == target {
			return true
		}
	}
	return false
}

// Add appends l unless a link to the same target exists.
func (r *Registry) Add(l Link) bool {
	if r.Has(l.Target) {
		return false
	}
	r.links = append(r.links, l)
	return true
}

func (r *Registry) Remove(target host.Pos) bool {
	for i, l := range r.links {
		if l.Target == target {
			r.links = append(r.links[:i], r.links[i+1:]...)
			return true
		}
	}
	return false
}

// Set replaces all links, dropping invalid entries and duplicate targets.
// It returns the number of dropped entries.
func (r *Registry) Set(links []Link) int {
	r.links = nil
	dropped := 0
	for _, l := range links {
		if !l.Valid() || !r.Add(l) {
			dropped++
		}
	}
	return dropped
}

// Clear removes and returns all links.
func (r *Registry) Clear() []Link {
	out := r.links
	r.links = nil
	return out
}

// Accept is the same-tick guard: it refuses a second inbound request in the
// tick of the last accepted (or stamped) one, and stamps tick otherwise.
func (r *Registry) Accept(tick uint64) bool {
	if r.stamped && r.LastLinkTick == tick {
		return false
	}
	r.Stamp(tick)
	return true
}

func (r *Registry) Stamp(tick uint64) {
	r.LastLinkTick = tick
	r.stamped = true
}

// ResetGuard forgets the last link tick. Used after loading.
func (r *Registry) ResetGuard() {
	r.LastLinkTick = 0
	r.stamped = false
}
