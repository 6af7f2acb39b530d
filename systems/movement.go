package systems

import (
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/natsel/components"
)

// Sensed is what an organism perceives before deciding where to move.
type Sensed struct {
	Threat    ecs.Entity // closest organism that can predate this one
	HasThreat bool
	ThreatPos components.Position

	Food    ecs.Entity // closest edible food source
	HasFood bool
	FoodPos components.Position

	Trail    ecs.Entity // strongest foreign pheromone in the current cell
	HasTrail bool
}

// MoveResult reports the outcome of one movement attempt.
type MoveResult struct {
	From, To components.Position
	Cost     float64
	Moved    bool
	Starved  bool // destination chosen but not enough energy
	Dropped  bool // a pheromone marker was left behind
}

// MovementSystem decides and applies organism moves.
type MovementSystem struct {
	occ      *Occupants
	params   *Params
	removals *Removals
	rng      *rand.Rand
}

// NewMovementSystem creates a movement system drawing from rng.
func NewMovementSystem(occ *Occupants, params *Params, removals *Removals, rng *rand.Rand) *MovementSystem {
	return &MovementSystem{occ: occ, params: params, removals: removals, rng: rng}
}

// Sense scans the organism's visible cells and its own cell.
func (s *MovementSystem) Sense(e ecs.Entity) Sensed {
	var out Sensed

	pos := s.occ.Position(e)
	genes := s.occ.Genes(e)
	org := s.occ.Organism(e)
	grid := s.occ.Grid()

	threatDist, foodDist := math.MaxInt, math.MaxInt

	for _, cell := range grid.Neighborhood(pos, s.params.Visibility, genes.Awareness) {
		d := DistanceSq(pos, cell)
		for _, other := range grid.Occupants(cell) {
			if other == e || s.removals.Has(other) {
				continue
			}

			switch s.occ.Identity(other).Kind {
			case components.KindOrganism:
				if d < threatDist && CanPredate(s.occ.Genes(other), genes, s.params.SizeToEatThreshold) {
					out.Threat, out.ThreatPos, out.HasThreat = other, cell, true
					threatDist = d
				}
			case components.KindFood:
				if genes.Trail && org.RemembersFood(cell) {
					continue
				}
				if d < foodDist {
					out.Food, out.FoodPos, out.HasFood = other, cell, true
					foodDist = d
				}
			case components.KindTrail:
			}
		}
	}

	if genes.Trail {
		out.Trail, out.HasTrail = s.strongestTrail(e, pos)
	}

	return out
}

// strongestTrail finds the strongest pheromone in cell p left by another creator
// that points somewhere other than p.
func (s *MovementSystem) strongestTrail(e ecs.Entity, p components.Position) (ecs.Entity, bool) {
	var best ecs.Entity
	found := false
	bestStrength := 0

	for _, other := range s.occ.Grid().Occupants(p) {
		if s.removals.Has(other) || s.occ.Identity(other).Kind != components.KindTrail {
			continue
		}
		ph := s.occ.Pheromone(other)
		if ph.Creator == e || ph.CameFrom == p {
			continue
		}
		if !found || ph.Strength > bestStrength {
			best, bestStrength, found = other, ph.Strength, true
		}
	}
	return best, found
}

// Destination picks the next cell: flee, approach food, follow a trail, or wander.
func (s *MovementSystem) Destination(e ecs.Entity, sensed Sensed) components.Position {
	pos := s.occ.Position(e)
	adjacent := s.occ.Grid().Neighborhood(pos, Moore, 1)
	if len(adjacent) == 0 {
		return pos
	}

	switch {
	case sensed.HasThreat:
		return farthest(adjacent, sensed.ThreatPos)
	case sensed.HasFood:
		return nearest(adjacent, sensed.FoodPos)
	case sensed.HasTrail:
		ph := s.occ.Pheromone(sensed.Trail)
		if s.rng.Float64() < float64(ph.Strength)/float64(s.params.MaxStrength) {
			return ph.CameFrom
		}
	}

	return adjacent[s.rng.Intn(len(adjacent))]
}

// MoveCost returns the energy needed to travel dist cells.
func (s *MovementSystem) MoveCost(genes *components.Genes, dist float64) float64 {
	size3 := genes.Size * genes.Size * genes.Size
	speed2 := float64(genes.Speed * genes.Speed)
	return s.params.SizeCost*size3*speed2*dist + s.params.AwarenessCost*float64(genes.Awareness)
}

// Move senses, picks a destination and moves if the organism can pay for it.
// Trail carriers with budget left drop a marker on the destination pointing back.
func (s *MovementSystem) Move(e ecs.Entity) (MoveResult, error) {
	from := s.occ.Position(e)
	to := s.Destination(e, s.Sense(e))

	genes := s.occ.Genes(e)
	org := s.occ.Organism(e)

	res := MoveResult{From: from, To: to}
	res.Cost = s.MoveCost(genes, Distance(from, to))
	if org.Energy < res.Cost {
		res.Starved = true
		return res, nil
	}

	org.Energy -= res.Cost
	if err := s.occ.Grid().Move(e, to); err != nil {
		return res, err
	}
	res.Moved = true

	if org.TrailLength > 0 {
		strength := s.params.MaxStrength - (s.params.MaxTrailLength - org.TrailLength)
		id := s.occ.Identity(e).ID
		org.TrailLength--

		// org must not be touched after this: creating an entity may move storage
		trail := components.Pheromone{Creator: e, CreatorID: id, CameFrom: from, Strength: strength}
		if _, err := s.occ.NewPheromone(trail, to); err != nil {
			return res, err
		}
		res.Dropped = true
	}

	return res, nil
}

// farthest returns the first cell maximizing squared distance to target.
func farthest(cells []components.Position, target components.Position) components.Position {
	best := cells[0]
	bestDist := DistanceSq(best, target)
	for _, c := range cells[1:] {
		if d := DistanceSq(c, target); d > bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// nearest returns the first cell minimizing squared distance to target.
func nearest(cells []components.Position, target components.Position) components.Position {
	best := cells[0]
	bestDist := DistanceSq(best, target)
	for _, c := range cells[1:] {
		if d := DistanceSq(c, target); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
