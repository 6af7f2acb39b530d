package systems

import (
	"math/rand"

	"github.com/mlange-42/ark/ecs"
)

// StepEvents aggregates what happened during one organism activation.
type StepEvents struct {
	Feeding FeedingEvents
	Move    MoveResult
	Tried   bool // the move cadence fired this tick
}

// BehaviorSystem runs one organism activation: feed, then move on cadence.
type BehaviorSystem struct {
	occ      *Occupants
	params   *Params
	removals *Removals

	feeding  *FeedingSystem
	movement *MovementSystem
}

// NewBehaviorSystem creates the per-organism activation system.
func NewBehaviorSystem(occ *Occupants, params *Params, removals *Removals, rng *rand.Rand) *BehaviorSystem {
	return &BehaviorSystem{
		occ:      occ,
		params:   params,
		removals: removals,
		feeding:  NewFeedingSystem(occ, params, removals),
		movement: NewMovementSystem(occ, params, removals, rng),
	}
}

// Feeding returns the feeding subsystem.
func (s *BehaviorSystem) Feeding() *FeedingSystem { return s.feeding }

// Movement returns the movement subsystem.
func (s *BehaviorSystem) Movement() *MovementSystem { return s.movement }

// Step activates organism e. Organisms pending removal do nothing.
func (s *BehaviorSystem) Step(e ecs.Entity) (StepEvents, error) {
	var ev StepEvents
	if s.removals.Has(e) {
		return ev, nil
	}

	ev.Feeding = s.feeding.Feed(e)

	org := s.occ.Organism(e)
	org.MoveTicks--
	if org.MoveTicks > 0 {
		return ev, nil
	}
	org.MoveTicks = s.params.MoveInterval(s.occ.Genes(e).Speed)

	ev.Tried = true
	res, err := s.movement.Move(e)
	ev.Move = res
	return ev, err
}
