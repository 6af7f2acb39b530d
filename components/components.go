// Package components defines ECS components for the simulation.
package components

import "github.com/mlange-42/ark/ecs"

// Kind tags the three occupant variants that live on the grid.
type Kind uint8

const (
	KindFood Kind = iota
	KindOrganism
	KindTrail
)

// String returns the kind name used in snapshots and logs.
func (k Kind) String() string {
	switch k {
	case KindFood:
		return "food"
	case KindOrganism:
		return "organism"
	case KindTrail:
		return "trail"
	}
	return "unknown"
}

// Position is a grid cell. The grid is bounded and does not wrap.
type Position struct {
	X, Y int
}

// Identity is carried by every occupant.
// ID is assigned in creation order and never reused, unlike ecs.Entity slots.
type Identity struct {
	ID   uint32
	Kind Kind
}

// Food is a stationary consumable resource.
type Food struct {
	Amount float64
}

// Genes are the heritable traits of an organism.
type Genes struct {
	Speed     int     // higher moves more often
	Awareness int     // sensing radius in cells
	Size      float64 // compared for predation
	Trail     bool    // never mutates
}

// Organism holds the per-life state of an organism.
// Everything except MoveTicks and Age is reset at each generation boundary.
type Organism struct {
	Energy          float64
	ProbSurvival    float64
	ProbReplication float64
	MoveTicks       int // ticks until the next move
	Age             int // generations survived
	TrailLength     int // pheromone markers left to drop

	// Food cells already harvested this generation (trail carriers only)
	FoodPositions map[Position]struct{}
}

// RemembersFood reports whether the food at p was already harvested.
func (o *Organism) RemembersFood(p Position) bool {
	_, ok := o.FoodPositions[p]
	return ok
}

// RememberFood records a harvested food cell.
func (o *Organism) RememberFood(p Position) {
	if o.FoodPositions == nil {
		o.FoodPositions = make(map[Position]struct{})
	}
	o.FoodPositions[p] = struct{}{}
}

// Pheromone is a decaying trail marker left by a trail-carrying organism.
type Pheromone struct {
	Creator   ecs.Entity
	CreatorID uint32
	CameFrom  Position // cell the creator vacated
	Strength  int
}
