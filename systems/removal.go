package systems

import "github.com/mlange-42/ark/ecs"

// Removals collects occupants scheduled for destruction during a tick.
// Queued entities count as absent for every other occupant until Drain.
type Removals struct {
	set   map[ecs.Entity]struct{}
	order []ecs.Entity
}

// NewRemovals creates an empty pending-removal set.
func NewRemovals() *Removals {
	return &Removals{set: make(map[ecs.Entity]struct{})}
}

// Queue schedules e for removal. Returns false if it was already queued.
func (r *Removals) Queue(e ecs.Entity) bool {
	if _, ok := r.set[e]; ok {
		return false
	}
	r.set[e] = struct{}{}
	r.order = append(r.order, e)
	return true
}

// Has reports whether e is pending removal.
func (r *Removals) Has(e ecs.Entity) bool {
	_, ok := r.set[e]
	return ok
}

// Len returns the number of pending removals.
func (r *Removals) Len() int { return len(r.order) }

// Drain returns the queued entities in queue order and empties the set.
func (r *Removals) Drain() []ecs.Entity {
	out := r.order
	r.order = nil
	clear(r.set)
	return out
}
