package systems

import (
	"math/rand"

	"github.com/pthm-cable/natsel/components"
)

// BreedingSystem produces offspring genes and fresh life states.
type BreedingSystem struct {
	params *Params
	rng    *rand.Rand
}

// NewBreedingSystem creates a breeding system drawing from rng.
func NewBreedingSystem(params *Params, rng *rand.Rand) *BreedingSystem {
	return &BreedingSystem{params: params, rng: rng}
}

// Replicate returns mutated copies of the parent's genes.
// Speed, awareness and size each mutate independently, in that order.
func (s *BreedingSystem) Replicate(parent components.Genes) components.Genes {
	p := s.params
	child := parent

	if s.rng.Float64() <= p.SpeedMutationRate {
		child.Speed = clampInt(child.Speed+s.step(), p.MinSpeed, p.MaxSpeed)
	}

	if s.rng.Float64() <= p.AwarenessMutationRate {
		child.Awareness = clampInt(child.Awareness+s.step(), p.MinAwareness, p.MaxAwareness)
	}

	if s.rng.Float64() <= p.SizeMutationRate {
		delta := 2*p.MaxSizeMutation*s.rng.Float64() - p.MaxSizeMutation
		child.Size = clampFloat(child.Size+delta, p.MinSize, p.MaxSize)
	}

	return child
}

// step returns +1 or -1 with equal odds.
func (s *BreedingSystem) step() int {
	if s.rng.Intn(2) == 1 {
		return 1
	}
	return -1
}

// NewLife returns the life state of a newborn with the given genes.
func (s *BreedingSystem) NewLife(genes components.Genes) components.Organism {
	return components.Organism{
		Energy:    s.params.MaxEnergy,
		MoveTicks: s.params.MoveInterval(genes.Speed),
	}
}

// ResetLife clears the per-generation state of a survivor.
// MoveTicks and Age carry over.
func (s *BreedingSystem) ResetLife(org *components.Organism) {
	org.Energy = s.params.MaxEnergy
	org.ProbSurvival = 0
	org.ProbReplication = 0
	org.TrailLength = 0
	org.FoodPositions = nil
}
