package systems

import "github.com/mlange-42/ark/ecs"

// PheromoneSystem decays trail markers.
type PheromoneSystem struct {
	occ      *Occupants
	removals *Removals
}

// NewPheromoneSystem creates a pheromone decay system.
func NewPheromoneSystem(occ *Occupants, removals *Removals) *PheromoneSystem {
	return &PheromoneSystem{occ: occ, removals: removals}
}

// Step weakens marker e by one and queues it once spent.
// Returns true when the marker was queued.
func (s *PheromoneSystem) Step(e ecs.Entity) bool {
	if s.removals.Has(e) {
		return false
	}
	ph := s.occ.Pheromone(e)
	ph.Strength--
	if ph.Strength <= 0 {
		return s.removals.Queue(e)
	}
	return false
}
