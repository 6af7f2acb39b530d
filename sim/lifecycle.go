package sim

import (
	"log/slog"
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/natsel/components"
	"github.com/pthm-cable/natsel/systems"
)

// founderGenes returns the genes every initial organism starts with.
func (m *Model) founderGenes() components.Genes {
	g := m.cfg.Genes
	return components.Genes{
		Speed:     g.InitialSpeed,
		Awareness: g.InitialAwareness,
		Size:      g.InitialSize,
	}
}

// spawnInitialPopulation places the founders on border cells.
// The first round(fraction*N) founders carry the trail gene.
func (m *Model) spawnInitialPopulation() {
	n := m.cfg.Population.Initial
	carriers := int(math.Round(m.cfg.Population.InitialTrailFraction * float64(n)))

	cells := systems.SampleCells(m.rng, m.occ.Grid().Border(), n)
	for i, cell := range cells {
		genes := m.founderGenes()
		genes.Trail = i < carriers
		_, err := m.spawnOrganism(genes, cell, m.generation, 0)
		must(err)
	}
}

// spawnFood places one food source on each of food_per_generation distinct interior cells.
func (m *Model) spawnFood() int {
	cells := systems.SampleDistinct(m.rng, m.occ.Grid().Interior(), m.cfg.Population.FoodPerGeneration)
	for _, cell := range cells {
		_, err := m.occ.NewFood(m.cfg.Population.FoodAmount, cell)
		must(err)
	}
	return len(cells)
}

// spawnOrganism creates an organism with a fresh life state and starts tracking it.
// born is the first generation the organism lives through.
func (m *Model) spawnOrganism(genes components.Genes, p components.Position, born int, parentID uint32) (ecs.Entity, error) {
	e, err := m.occ.NewOrganism(genes, m.breeding.NewLife(genes), p)
	if err != nil {
		return e, err
	}
	m.population++
	m.lifetime.Register(m.occ.Identity(e).ID, born, parentID)
	return e, nil
}

// AddOrganism places an organism with the given genes and a fresh life state.
// Used to set up scenarios on top of (or instead of) the configured population.
func (m *Model) AddOrganism(genes components.Genes, p components.Position) (ecs.Entity, error) {
	return m.spawnOrganism(genes, p, m.generation, 0)
}

// AddFood places a food source holding amount.
func (m *Model) AddFood(amount float64, p components.Position) (ecs.Entity, error) {
	return m.occ.NewFood(amount, p)
}

// turnover resolves the generation boundary: survival and replication rolls,
// world reset, relocation, food respawn and the generation sample.
func (m *Model) turnover() {
	slog.Debug("turnover", "generation", m.generation, "tick", m.tick, "population", m.population)

	for _, e := range m.occ.Collect(components.KindOrganism) {
		m.resolve(e)
	}

	for _, e := range m.occ.Collect(components.KindFood, components.KindTrail) {
		must(m.occ.Destroy(e))
	}

	organisms := m.occ.Collect(components.KindOrganism)
	cells := systems.SampleCells(m.rng, m.occ.Grid().Border(), len(organisms))
	for i, e := range organisms {
		must(m.occ.Grid().Move(e, cells[i]))
	}

	food := m.spawnFood()
	m.generation++
	m.emitGeneration(food)
}

// resolve draws survival then replication for one organism and applies the outcome.
func (m *Model) resolve(e ecs.Entity) {
	org := m.occ.Organism(e)
	survives := m.rng.Float64() <= org.ProbSurvival
	replicates := m.rng.Float64() <= org.ProbReplication

	if !survives {
		m.retire(e)
		return
	}

	org.Age++
	m.breeding.ResetLife(org)
	if !replicates {
		return
	}

	parent := *m.occ.Genes(e)
	parentID := m.occ.Identity(e).ID
	childGenes := m.breeding.Replicate(parent)

	// Placeholder cell; relocation moves every organism to the border afterwards
	_, err := m.spawnOrganism(childGenes, components.Position{}, m.generation+1, parentID)
	must(err)

	m.collector.RecordBirth()
	m.lifetime.RecordChild(parentID)
}
