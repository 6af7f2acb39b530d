package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/natsel/components"
)

// CanEat reports whether a is large enough to eat b.
func CanEat(a, b *components.Genes, threshold float64) bool {
	return a.Size/b.Size > 1+threshold
}

// CanPredate reports whether a may eat b: large enough, and not both trail carriers.
func CanPredate(a, b *components.Genes, threshold float64) bool {
	if a.Trail && b.Trail {
		return false
	}
	return CanEat(a, b, threshold)
}

// Accrue converts an eaten amount into survival, then replication probability.
// Each probability is topped up to 1.0; anything beyond both is wasted.
func Accrue(org *components.Organism, amount float64) {
	forSurvival := min(amount, 1.0-org.ProbSurvival)
	if forSurvival > 0 {
		org.ProbSurvival = min(1.0, org.ProbSurvival+forSurvival)
		amount -= forSurvival
	}

	forReplication := min(amount, 1.0-org.ProbReplication)
	if forReplication > 0 {
		org.ProbReplication = min(1.0, org.ProbReplication+forReplication)
	}
}

// Satiated reports whether feeding can no longer change the organism's odds.
func Satiated(org *components.Organism) bool {
	return org.ProbReplication >= 1.0
}

// FeedingEvents reports what one feeding pass did.
type FeedingEvents struct {
	FoodEaten float64 // total food amount consumed
	Kills     int     // organisms eaten
}

// FeedingSystem lets an organism eat whatever shares its cell.
type FeedingSystem struct {
	occ      *Occupants
	params   *Params
	removals *Removals
}

// NewFeedingSystem creates a feeding system.
func NewFeedingSystem(occ *Occupants, params *Params, removals *Removals) *FeedingSystem {
	return &FeedingSystem{occ: occ, params: params, removals: removals}
}

// Feed runs one feeding pass for organism e over its current cell.
// Eaten food and prey are queued for removal, never removed in place.
func (s *FeedingSystem) Feed(e ecs.Entity) FeedingEvents {
	var ev FeedingEvents

	pos := s.occ.Position(e)
	cell := s.occ.Grid().Occupants(pos)
	if len(cell) < 2 {
		return ev
	}

	genes := s.occ.Genes(e)
	org := s.occ.Organism(e)

	for _, other := range cell {
		if other == e || s.removals.Has(other) {
			continue
		}

		switch s.occ.Identity(other).Kind {
		case components.KindFood:
			ev.FoodEaten += s.eatFood(genes, org, other, pos)
		case components.KindOrganism:
			if s.eatOrganism(genes, org, other) {
				ev.Kills++
			}
		case components.KindTrail:
			// Markers are only read while choosing a destination
		}
	}

	return ev
}

// eatFood consumes from a food source and returns the amount taken.
func (s *FeedingSystem) eatFood(genes *components.Genes, org *components.Organism, e ecs.Entity, pos components.Position) float64 {
	if Satiated(org) {
		return 0
	}
	if genes.Trail && org.RemembersFood(pos) {
		return 0
	}

	food := s.occ.Food(e)
	amount := food.Amount
	if genes.Trail {
		amount = min(s.params.TrailConsumeCap, food.Amount)
		if food.Amount > s.params.TrailConsumeCap {
			// Leave the rest for others and mark the way back
			org.RememberFood(pos)
			org.TrailLength = s.params.MaxTrailLength
		}
	}

	Accrue(org, amount)
	food.Amount -= amount
	if food.Amount <= 0 {
		s.removals.Queue(e)
	}
	return amount
}

// eatOrganism eats prey worth one unit of food if the predation test passes.
func (s *FeedingSystem) eatOrganism(genes *components.Genes, org *components.Organism, prey ecs.Entity) bool {
	if Satiated(org) {
		return false
	}
	if !CanPredate(genes, s.occ.Genes(prey), s.params.SizeToEatThreshold) {
		return false
	}

	Accrue(org, 1.0)
	s.removals.Queue(prey)
	return true
}
