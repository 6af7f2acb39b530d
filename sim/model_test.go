package sim

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/natsel/components"
	"github.com/pthm-cable/natsel/config"
	"github.com/pthm-cable/natsel/systems"
	"github.com/pthm-cable/natsel/telemetry"
)

// emptyWorld builds a 10x10 model with no initial organisms or food.
func emptyWorld(t *testing.T) *Model {
	t.Helper()
	cfg := config.Default()
	cfg.World.Width = 10
	cfg.World.Height = 10
	cfg.Population.Initial = 0
	cfg.Population.FoodPerGeneration = 0

	m, err := New(Options{Seed: 7, Config: cfg})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

// fastGenes moves on every tick.
func fastGenes(m *Model) components.Genes {
	return components.Genes{
		Speed:     m.Config().Genes.MaxSpeed,
		Awareness: 1,
		Size:      1.0,
	}
}

func TestOrganismApproachesAndEatsFood(t *testing.T) {
	m := emptyWorld(t)

	start := components.Position{X: 5, Y: 5}
	foodAt := components.Position{X: 5, Y: 6}
	e, err := m.AddOrganism(fastGenes(m), start)
	require.NoError(t, err)
	food, err := m.AddFood(1.0, foodAt)
	require.NoError(t, err)

	m.Step()

	occ := m.Occupants()
	pos := occ.Position(e)
	assert.LessOrEqual(t, systems.DistanceSq(pos, foodAt), systems.DistanceSq(start, foodAt),
		"organism moved away from visible food")
	require.Equal(t, foodAt, pos)

	m.Step()

	org := occ.Organism(e)
	assert.Equal(t, 1.0, org.ProbSurvival)
	assert.Equal(t, 0.0, org.ProbReplication)
	assert.False(t, occ.Alive(food), "fully eaten food should be removed")
}

func TestStarvedOrganismStaysPut(t *testing.T) {
	m := emptyWorld(t)

	start := components.Position{X: 4, Y: 4}
	e, err := m.AddOrganism(fastGenes(m), start)
	require.NoError(t, err)
	m.Occupants().Organism(e).Energy = 0

	m.Step()

	assert.Equal(t, start, m.Occupants().Position(e))
	assert.Equal(t, 0.0, m.Occupants().Organism(e).Energy)
}

func TestLargerOrganismEatsSmaller(t *testing.T) {
	m := emptyWorld(t)

	cell := components.Position{X: 3, Y: 3}
	big, err := m.AddOrganism(components.Genes{Speed: 1, Awareness: 1, Size: 2.0}, cell)
	require.NoError(t, err)
	small, err := m.AddOrganism(components.Genes{Speed: 1, Awareness: 1, Size: 1.0}, cell)
	require.NoError(t, err)
	smallID := m.Occupants().Identity(small).ID

	// Keep both in the cell for the tick
	m.Occupants().Organism(big).MoveTicks = 100
	m.Occupants().Organism(small).MoveTicks = 100

	m.Step()

	assert.False(t, m.Occupants().Alive(small))
	assert.Equal(t, 1, m.Population())

	_, found := m.Snapshot().Find(smallID)
	assert.False(t, found, "eaten organism must not appear in the snapshot")

	org := m.Occupants().Organism(big)
	assert.InDelta(t, 1.0, org.ProbSurvival+org.ProbReplication, 1e-12)
}

func TestTrailCarriersDoNotEatEachOther(t *testing.T) {
	m := emptyWorld(t)

	cell := components.Position{X: 3, Y: 3}
	big, err := m.AddOrganism(components.Genes{Speed: 1, Awareness: 1, Size: 2.0, Trail: true}, cell)
	require.NoError(t, err)
	small, err := m.AddOrganism(components.Genes{Speed: 1, Awareness: 1, Size: 0.5, Trail: true}, cell)
	require.NoError(t, err)
	m.Occupants().Organism(big).MoveTicks = 100
	m.Occupants().Organism(small).MoveTicks = 100

	m.Step()

	assert.True(t, m.Occupants().Alive(small))
	assert.Equal(t, 2, m.Population())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.World.Width = 0

	_, err := New(Options{Config: cfg})
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInvalid))

	cfg = config.Default()
	cfg.Population.FoodPerGeneration = 1000
	_, err = New(Options{Config: cfg})
	assert.True(t, errors.Is(err, config.ErrInvalid))
}

func TestInitialPopulation(t *testing.T) {
	cfg := config.Default()
	m, err := New(Options{Seed: 3, Config: cfg})
	require.NoError(t, err)
	defer m.Close()

	snap := m.Snapshot()
	organisms := snap.Organisms()
	require.Len(t, organisms, cfg.Population.Initial)
	assert.Len(t, snap.Foods(), cfg.Population.FoodPerGeneration)
	assert.Equal(t, 1, m.Generation())

	grid := m.Occupants().Grid()
	carriers := 0
	for _, o := range organisms {
		assert.True(t, onBorder(grid, o), "founder %d at (%d,%d)", o.ID, o.X, o.Y)
		if o.Organism.Trail {
			carriers++
		}
	}
	assert.Equal(t, 10, carriers)

	require.Equal(t, 1, m.History().Len())
	first, _ := m.History().Last()
	assert.Equal(t, cfg.Population.Initial, first.Population)
	assert.Equal(t, 50.0, first.TrailPct)
}

func TestTurnoverRelocatesAndRespawns(t *testing.T) {
	cfg := config.Default()
	cfg.World.StepsPerGeneration = 10
	m, err := New(Options{Seed: 11, Config: cfg})
	require.NoError(t, err)
	defer m.Close()

	for m.Generation() == 1 {
		m.Step()
	}

	assert.Equal(t, 0, m.StepCount())
	assert.Equal(t, 10, m.Tick())

	snap := m.Snapshot()
	grid := m.Occupants().Grid()
	for _, o := range snap.Organisms() {
		assert.True(t, onBorder(grid, o), "organism %d not relocated to the border", o.ID)
		assert.Equal(t, 0.0, o.Organism.ProbSurvival)
		assert.Equal(t, 0.0, o.Organism.ProbReplication)
		assert.Equal(t, cfg.Energy.Max, o.Organism.Energy)
	}
	foods := snap.Foods()
	assert.Len(t, foods, cfg.Population.FoodPerGeneration)
	for _, f := range foods {
		assert.False(t, onBorder(grid, f), "food %d spawned on the border", f.ID)
		assert.Equal(t, cfg.Population.FoodAmount, f.Food.Amount)
	}
	assert.Empty(t, snap.Trails())

	assert.Equal(t, len(snap.Organisms()), m.Population())
	assert.Equal(t, 2, m.History().Len())
}

func TestUnfedOrganismsDie(t *testing.T) {
	cfg := config.Default()
	cfg.World.StepsPerGeneration = 1
	cfg.Population.FoodPerGeneration = 0
	m, err := New(Options{Seed: 5, Config: cfg})
	require.NoError(t, err)
	defer m.Close()

	// Probabilities stay at zero without food; survival needs U() <= 0
	m.Step()

	stats, ok := m.History().Last()
	require.True(t, ok)
	assert.Equal(t, 2, stats.Generation)
	assert.Equal(t, cfg.Population.Initial-stats.Population, stats.Deaths)
	assert.LessOrEqual(t, stats.Population, 1)
}

func TestRunInvariants(t *testing.T) {
	cfg := config.Default()
	cfg.World.StepsPerGeneration = 40
	cfg.Population.FoodPerGeneration = 80

	energy := make(map[uint32]float64)
	generation := 1

	check := func(snap *telemetry.Snapshot) {
		if snap.Generation != generation {
			generation = snap.Generation
			clear(energy)
		}

		organisms := snap.Organisms()
		require.Equal(t, snap.Population, len(organisms))

		for _, o := range snap.Occupants {
			require.True(t, o.X >= 0 && o.X < snap.Width && o.Y >= 0 && o.Y < snap.Height,
				"occupant %d out of bounds", o.ID)
		}

		for _, o := range organisms {
			s := o.Organism
			require.GreaterOrEqual(t, s.Speed, cfg.Genes.MinSpeed)
			require.LessOrEqual(t, s.Speed, cfg.Genes.MaxSpeed)
			require.GreaterOrEqual(t, s.Awareness, cfg.Genes.MinAwareness)
			require.LessOrEqual(t, s.Awareness, cfg.Genes.MaxAwareness)
			require.GreaterOrEqual(t, s.Size, cfg.Genes.MinSize)
			require.LessOrEqual(t, s.Size, cfg.Genes.MaxSize)
			require.True(t, s.ProbSurvival >= 0 && s.ProbSurvival <= 1)
			require.True(t, s.ProbReplication >= 0 && s.ProbReplication <= 1)
			require.GreaterOrEqual(t, s.Energy, 0.0)

			if prev, ok := energy[o.ID]; ok {
				require.LessOrEqual(t, s.Energy, prev, "energy rose within a generation")
			}
			energy[o.ID] = s.Energy
		}
	}

	m, err := New(Options{Seed: 42, Config: cfg, TickCallback: check})
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Run(context.Background(), 5))
	assert.Equal(t, 6, m.Generation())
	assert.Equal(t, 5*cfg.World.StepsPerGeneration, m.Tick())
	assert.Equal(t, 6, m.History().Len())
}

func TestDeterminism(t *testing.T) {
	cfg := config.Default()
	cfg.World.StepsPerGeneration = 30

	record := func() [][]byte {
		var frames [][]byte
		m, err := New(Options{Seed: 1234, Config: cfg, TickCallback: func(s *telemetry.Snapshot) {
			b, err := json.Marshal(s)
			require.NoError(t, err)
			frames = append(frames, b)
		}})
		require.NoError(t, err)
		defer m.Close()

		for range 150 {
			m.Step()
		}
		return frames
	}

	a := record()
	b := record()
	require.Len(t, a, 150)
	require.Equal(t, len(a), len(b))
	for i := range a {
		require.Equal(t, string(a[i]), string(b[i]), "tick %d diverged", i+1)
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	run := func(seed int64) string {
		m, err := New(Options{Seed: seed})
		require.NoError(t, err)
		defer m.Close()
		for range 20 {
			m.Step()
		}
		b, err := json.Marshal(m.Snapshot())
		require.NoError(t, err)
		return string(b)
	}
	assert.NotEqual(t, run(1), run(2))
}

func TestRunStopsOnCancel(t *testing.T) {
	m, err := New(Options{Seed: 1})
	require.NoError(t, err)
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = m.Run(ctx, 3)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, m.Tick())
}

func TestStatsCallbackAndMetrics(t *testing.T) {
	cfg := config.Default()
	cfg.World.StepsPerGeneration = 10

	var got []telemetry.GenerationStats
	metrics := telemetry.NewMetrics()
	m, err := New(Options{
		Seed:          9,
		Config:        cfg,
		Metrics:       metrics,
		StatsCallback: func(s telemetry.GenerationStats) { got = append(got, s) },
	})
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Run(context.Background(), 2))

	require.Len(t, got, 3)
	for i, s := range got {
		assert.Equal(t, i+1, s.Generation)
	}
	assert.Equal(t, got[2].Population, m.Population())
}

func TestOutputFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.World.StepsPerGeneration = 5
	stream := filepath.Join(dir, "snapshots.jsonl.zst")

	m, err := New(Options{
		Seed:         2,
		Config:       cfg,
		OutputDir:    dir,
		SnapshotFile: stream,
		RunID:        "test-run",
	})
	require.NoError(t, err)

	require.NoError(t, m.Run(context.Background(), 2))
	require.NoError(t, m.Close())

	for _, name := range []string{"config.yaml", "run.csv", "generations.csv", "histograms.csv", "perf.csv"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	f, err := os.Open(stream)
	require.NoError(t, err)
	defer f.Close()

	frames, err := telemetry.ReadSnapshotStream(f)
	require.NoError(t, err)
	require.Len(t, frames, 10)
	assert.Equal(t, 1, frames[0].Tick)
	assert.Equal(t, 10, frames[9].Tick)
	assert.Equal(t, 3, frames[9].Generation)
}

func onBorder(grid *systems.Grid, o telemetry.OccupantState) bool {
	return o.X == 0 || o.Y == 0 || o.X == grid.Width()-1 || o.Y == grid.Height()-1
}

func TestSurvivorReplicates(t *testing.T) {
	cfg := config.Default()
	cfg.World.Width = 10
	cfg.World.Height = 10
	cfg.World.StepsPerGeneration = 1
	cfg.Population.Initial = 0
	cfg.Population.FoodPerGeneration = 0

	m, err := New(Options{Seed: 3, Config: cfg})
	require.NoError(t, err)
	defer m.Close()

	parent, err := m.AddOrganism(components.Genes{Speed: 1, Awareness: 1, Size: 1.0, Trail: true}, components.Position{X: 5, Y: 5})
	require.NoError(t, err)
	org := m.Occupants().Organism(parent)
	org.ProbSurvival = 1
	org.ProbReplication = 1
	org.MoveTicks = 100

	m.Step()

	assert.Equal(t, 2, m.Generation())
	assert.Equal(t, 2, m.Population())

	occ := m.Occupants()
	grid := occ.Grid()
	organisms := occ.Collect(components.KindOrganism)
	require.Len(t, organisms, 2)
	require.Equal(t, parent, organisms[0], "parent keeps the lower id")

	for i, e := range organisms {
		assert.True(t, occ.Genes(e).Trail, "organism %d lost the trail gene", i)
		p := occ.Position(e)
		assert.True(t, p.X == 0 || p.Y == 0 || p.X == grid.Width()-1 || p.Y == grid.Height()-1,
			"organism %d at %v is not on the border", i, p)
	}
	assert.Equal(t, 1, occ.Organism(organisms[0]).Age)
	assert.Equal(t, 0, occ.Organism(organisms[1]).Age)

	last, ok := m.History().Last()
	require.True(t, ok)
	assert.Equal(t, 1, last.Births)
}

func TestEmptyStartKeepsExtinctionBookmark(t *testing.T) {
	m := emptyWorld(t)

	// Generation 1 was sampled with no organisms; the one-shot bookmark must still be armed
	marks := m.bookmarks.Check(telemetry.GenerationStats{Generation: 2, Population: 0})
	types := make([]telemetry.BookmarkType, 0, len(marks))
	for _, b := range marks {
		types = append(types, b.Type)
	}
	assert.Contains(t, types, telemetry.BookmarkExtinction)
}
