package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/natsel/components"
)

func TestAccrue(t *testing.T) {
	tests := []struct {
		name             string
		survival, replic float64
		amount           float64
		wantS, wantR     float64
	}{
		{"partial survival", 0, 0, 0.5, 0.5, 0},
		{"exact survival", 0, 0, 1.0, 1.0, 0},
		{"surplus carries over", 0.8, 0, 0.5, 1.0, 0.3},
		{"both capped", 0, 0, 3.0, 1.0, 1.0},
		{"replication capped", 1.0, 0.9, 0.5, 1.0, 1.0},
		{"zero amount", 0.2, 0.1, 0, 0.2, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			org := components.Organism{ProbSurvival: tt.survival, ProbReplication: tt.replic}
			Accrue(&org, tt.amount)
			assert.InDelta(t, tt.wantS, org.ProbSurvival, 1e-12)
			assert.InDelta(t, tt.wantR, org.ProbReplication, 1e-12)
		})
	}
}

func TestAccrueOrderIndependent(t *testing.T) {
	amounts := []float64{0.5, 0.3, 1.0, 0.4}

	forward := components.Organism{}
	for _, a := range amounts {
		Accrue(&forward, a)
	}
	backward := components.Organism{}
	for i := len(amounts) - 1; i >= 0; i-- {
		Accrue(&backward, amounts[i])
	}

	assert.InDelta(t, forward.ProbSurvival, backward.ProbSurvival, 1e-12)
	assert.InDelta(t, forward.ProbReplication, backward.ProbReplication, 1e-12)
	assert.Equal(t, 1.0, forward.ProbSurvival)
	assert.LessOrEqual(t, forward.ProbReplication, 1.0)
}

func TestCanPredate(t *testing.T) {
	big := &components.Genes{Size: 2.0}
	small := &components.Genes{Size: 1.0}
	near := &components.Genes{Size: 1.1}

	assert.True(t, CanEat(big, small, 0.15))
	assert.False(t, CanEat(small, big, 0.15))
	assert.False(t, CanEat(near, small, 0.15), "ratio must exceed 1+threshold")
	assert.True(t, CanPredate(big, small, 0.15))

	bigTrail := &components.Genes{Size: 2.0, Trail: true}
	smallTrail := &components.Genes{Size: 0.5, Trail: true}
	assert.False(t, CanPredate(bigTrail, smallTrail, 0.15), "trail carriers never eat each other")
	assert.True(t, CanPredate(bigTrail, small, 0.15))
	assert.True(t, CanPredate(big, smallTrail, 0.15))
}

func newFeeder(t *testing.T, w, h int) (*Occupants, *Removals, *FeedingSystem, *Params) {
	t.Helper()
	params := testParams(t)
	occ, removals := newTestOccupants(w, h)
	return occ, removals, NewFeedingSystem(occ, params, removals), params
}

func TestFeedEatsWholeFood(t *testing.T) {
	occ, removals, feeding, _ := newFeeder(t, 5, 5)
	cell := components.Position{X: 2, Y: 2}

	food, err := occ.NewFood(0.7, cell)
	require.NoError(t, err)
	e, err := occ.NewOrganism(components.Genes{Speed: 1, Size: 1}, components.Organism{}, cell)
	require.NoError(t, err)

	ev := feeding.Feed(e)

	assert.InDelta(t, 0.7, ev.FoodEaten, 1e-12)
	assert.InDelta(t, 0.7, occ.Organism(e).ProbSurvival, 1e-12)
	assert.True(t, removals.Has(food))
}

func TestFeedTrailCarrierTakesCapAndRemembers(t *testing.T) {
	occ, removals, feeding, params := newFeeder(t, 5, 5)
	cell := components.Position{X: 2, Y: 2}

	food, err := occ.NewFood(1.0, cell)
	require.NoError(t, err)
	e, err := occ.NewOrganism(components.Genes{Speed: 1, Size: 1, Trail: true}, components.Organism{}, cell)
	require.NoError(t, err)

	ev := feeding.Feed(e)
	assert.Equal(t, params.TrailConsumeCap, ev.FoodEaten)
	assert.InDelta(t, 0.5, occ.Food(food).Amount, 1e-12)
	assert.False(t, removals.Has(food))

	org := occ.Organism(e)
	assert.True(t, org.RemembersFood(cell))
	assert.Equal(t, params.MaxTrailLength, org.TrailLength)

	// A remembered source is never harvested twice
	ev = feeding.Feed(e)
	assert.Zero(t, ev.FoodEaten)
	assert.InDelta(t, 0.5, occ.Food(food).Amount, 1e-12)
}

func TestFeedTrailCarrierFinishesSmallFood(t *testing.T) {
	occ, removals, feeding, _ := newFeeder(t, 5, 5)
	cell := components.Position{X: 2, Y: 2}

	food, err := occ.NewFood(0.5, cell)
	require.NoError(t, err)
	e, err := occ.NewOrganism(components.Genes{Speed: 1, Size: 1, Trail: true}, components.Organism{}, cell)
	require.NoError(t, err)

	ev := feeding.Feed(e)
	assert.Equal(t, 0.5, ev.FoodEaten)
	assert.True(t, removals.Has(food))

	org := occ.Organism(e)
	assert.False(t, org.RemembersFood(cell), "nothing left to come back for")
	assert.Zero(t, org.TrailLength)
}

func TestFeedSatiatedOrganismTakesNothing(t *testing.T) {
	occ, removals, feeding, _ := newFeeder(t, 5, 5)
	cell := components.Position{X: 1, Y: 1}

	food, err := occ.NewFood(1.0, cell)
	require.NoError(t, err)
	prey, err := occ.NewOrganism(components.Genes{Speed: 1, Size: 0.5}, components.Organism{}, cell)
	require.NoError(t, err)
	e, err := occ.NewOrganism(components.Genes{Speed: 1, Size: 2}, components.Organism{}, cell)
	require.NoError(t, err)
	occ.Organism(e).ProbSurvival = 1
	occ.Organism(e).ProbReplication = 1

	ev := feeding.Feed(e)

	assert.Zero(t, ev.FoodEaten)
	assert.Zero(t, ev.Kills)
	assert.Equal(t, 1.0, occ.Food(food).Amount)
	assert.False(t, removals.Has(prey))
}

func TestFeedSkipsPending(t *testing.T) {
	occ, removals, feeding, _ := newFeeder(t, 5, 5)
	cell := components.Position{X: 1, Y: 1}

	food, err := occ.NewFood(1.0, cell)
	require.NoError(t, err)
	e, err := occ.NewOrganism(components.Genes{Speed: 1, Size: 1}, components.Organism{}, cell)
	require.NoError(t, err)
	removals.Queue(food)

	ev := feeding.Feed(e)
	assert.Zero(t, ev.FoodEaten)
	assert.Zero(t, occ.Organism(e).ProbSurvival)
}

func TestFeedPredation(t *testing.T) {
	occ, removals, feeding, _ := newFeeder(t, 5, 5)
	cell := components.Position{X: 3, Y: 3}

	big, err := occ.NewOrganism(components.Genes{Speed: 1, Size: 2}, components.Organism{}, cell)
	require.NoError(t, err)
	small1, err := occ.NewOrganism(components.Genes{Speed: 1, Size: 1}, components.Organism{}, cell)
	require.NoError(t, err)
	small2, err := occ.NewOrganism(components.Genes{Speed: 1, Size: 1}, components.Organism{}, cell)
	require.NoError(t, err)

	// The smaller ones cannot eat the big one or each other
	assert.Zero(t, feeding.Feed(small1).Kills)
	assert.False(t, removals.Has(big))

	ev := feeding.Feed(big)
	assert.Equal(t, 2, ev.Kills)
	assert.True(t, removals.Has(small1))
	assert.True(t, removals.Has(small2))

	org := occ.Organism(big)
	assert.Equal(t, 1.0, org.ProbSurvival)
	assert.Equal(t, 1.0, org.ProbReplication)
}

func TestPheromoneDecay(t *testing.T) {
	occ, removals := newTestOccupants(3, 3)
	sys := NewPheromoneSystem(occ, removals)

	e, err := occ.NewPheromone(components.Pheromone{Strength: 2}, components.Position{X: 1, Y: 1})
	require.NoError(t, err)

	assert.False(t, sys.Step(e))
	assert.Equal(t, 1, occ.Pheromone(e).Strength)

	assert.True(t, sys.Step(e))
	assert.True(t, removals.Has(e))

	// Pending markers are left alone
	assert.False(t, sys.Step(e))
	assert.Equal(t, 0, occ.Pheromone(e).Strength)
}
