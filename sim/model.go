// Package sim drives the simulation: tick scheduling, deferred removal,
// generational turnover and the telemetry that observes them.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/natsel/components"
	"github.com/pthm-cable/natsel/config"
	"github.com/pthm-cable/natsel/systems"
	"github.com/pthm-cable/natsel/telemetry"
)

// Options configures a model beyond the rule parameters in config.
type Options struct {
	Seed   int64
	Config *config.Config // nil = embedded defaults

	LogStats     bool   // log generation stats via slog
	OutputDir    string // CSV output directory (empty = disabled)
	SnapshotDir  string // JSON snapshot per bookmark (empty = disabled)
	SnapshotFile string // zstd JSONL stream of per-tick snapshots (empty = disabled)
	RunID        string // recorded in the output directory

	Metrics       *telemetry.Metrics                 // nil = no Prometheus metrics
	StatsCallback func(telemetry.GenerationStats)    // called at each generation boundary
	TickCallback  func(snapshot *telemetry.Snapshot) // called after every tick (snapshot built only when set)
}

// Model holds the complete simulation state.
type Model struct {
	cfg    *config.Config
	params systems.Params
	seed   int64
	rng    *rand.Rand

	world    *ecs.World
	occ      *systems.Occupants
	removals *systems.Removals

	// Systems
	behavior   *systems.BehaviorSystem
	pheromones *systems.PheromoneSystem
	breeding   *systems.BreedingSystem

	// State
	generation int
	stepCount  int
	tick       int
	population int

	// Telemetry
	collector     *telemetry.Collector
	lifetime      *telemetry.LifetimeTracker
	history       *telemetry.History
	bookmarks     *telemetry.BookmarkDetector
	perf          *telemetry.PerfCollector
	output        *telemetry.OutputManager
	stream        *telemetry.SnapshotStream
	metrics       *telemetry.Metrics
	logStats      bool
	snapshotDir   string
	statsCallback func(telemetry.GenerationStats)
	tickCallback  func(*telemetry.Snapshot)
}

// New validates the configuration and builds a populated world.
// Configuration problems are returned as errors wrapping config.ErrInvalid.
func New(opts Options) (*Model, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	cfg = cfg.Clone()
	cfg.ComputeDerived()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	params, err := systems.ParamsFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolving parameters: %w", err)
	}

	world := ecs.NewWorld()
	grid := systems.NewGrid(cfg.World.Width, cfg.World.Height)
	rng := rand.New(rand.NewSource(opts.Seed))

	m := &Model{
		cfg:        cfg,
		params:     params,
		seed:       opts.Seed,
		rng:        rng,
		world:      world,
		occ:        systems.NewOccupants(world, grid),
		removals:   systems.NewRemovals(),
		generation: 1,

		collector:     telemetry.NewCollector(),
		lifetime:      telemetry.NewLifetimeTracker(),
		history:       telemetry.NewHistory(),
		bookmarks:     telemetry.NewBookmarkDetector(10),
		perf:          telemetry.NewPerfCollector(cfg.World.StepsPerGeneration),
		metrics:       opts.Metrics,
		logStats:      opts.LogStats || cfg.Telemetry.LogStats,
		snapshotDir:   opts.SnapshotDir,
		statsCallback: opts.StatsCallback,
		tickCallback:  opts.TickCallback,
	}

	m.behavior = systems.NewBehaviorSystem(m.occ, &m.params, m.removals, rng)
	m.pheromones = systems.NewPheromoneSystem(m.occ, m.removals)
	m.breeding = systems.NewBreedingSystem(&m.params, rng)

	if err := m.openOutputs(opts); err != nil {
		m.Close()
		return nil, err
	}

	m.spawnInitialPopulation()
	m.emitGeneration(m.spawnFood())

	return m, nil
}

// Step advances the simulation by one tick, running turnover when the
// generation ends.
func (m *Model) Step() {
	start := time.Now()
	m.perf.StartTick()

	m.perf.StartPhase(telemetry.PhaseSchedule)
	order := m.occ.Collect(components.KindOrganism, components.KindTrail)
	m.rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	m.perf.StartPhase(telemetry.PhaseActivation)
	for _, e := range order {
		m.activate(e)
	}

	m.perf.StartPhase(telemetry.PhaseRemoval)
	m.applyRemovals()

	m.tick++
	m.stepCount = (m.stepCount + 1) % m.cfg.World.StepsPerGeneration
	if m.stepCount == 0 {
		m.perf.StartPhase(telemetry.PhaseTurnover)
		m.turnover()
	}

	m.perf.StartPhase(telemetry.PhaseTelemetry)
	m.emitTick()

	m.perf.EndTick()
	m.metrics.ObserveTick(time.Since(start))
}

// Run steps until the given number of generations have completed or ctx is done.
// generations <= 0 runs until ctx is done.
func (m *Model) Run(ctx context.Context, generations int) error {
	target := m.generation + generations
	for generations <= 0 || m.generation < target {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.Step()
	}
	return nil
}

// activate runs one scheduled occupant. Occupants pending removal are skipped.
func (m *Model) activate(e ecs.Entity) {
	if m.removals.Has(e) {
		return
	}
	m.perf.RecordActivation()

	ident := m.occ.Identity(e)
	switch ident.Kind {
	case components.KindOrganism:
		ev, err := m.behavior.Step(e)
		must(err)
		m.recordStep(ident.ID, ev)
	case components.KindTrail:
		m.pheromones.Step(e)
	case components.KindFood:
		// Food is never scheduled
	}
}

// applyRemovals destroys everything queued this tick, in queue order.
func (m *Model) applyRemovals() {
	for _, e := range m.removals.Drain() {
		if m.occ.Identity(e).Kind == components.KindOrganism {
			m.retire(e)
			continue
		}
		must(m.occ.Destroy(e))
	}
}

// retire removes a dead organism and records its lifetime in generations,
// counting the current one.
func (m *Model) retire(e ecs.Entity) {
	id := m.occ.Identity(e).ID
	lifespan := 1
	if stats := m.lifetime.Remove(id); stats != nil {
		lifespan = m.generation - stats.BirthGeneration + 1
	}
	m.collector.RecordDeath(lifespan)
	m.population--
	must(m.occ.Destroy(e))
}

// Close flushes and closes every output.
func (m *Model) Close() error {
	var firstErr error
	if err := m.stream.Close(); err != nil {
		firstErr = err
	}
	if err := m.output.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	m.stream = nil
	m.output = nil
	return firstErr
}

// Config returns the effective configuration.
func (m *Model) Config() *config.Config { return m.cfg }

// Seed returns the RNG seed.
func (m *Model) Seed() int64 { return m.seed }

// Tick returns the number of ticks run so far.
func (m *Model) Tick() int { return m.tick }

// Generation returns the current generation, starting at 1.
func (m *Model) Generation() int { return m.generation }

// StepCount returns the tick index within the current generation.
func (m *Model) StepCount() int { return m.stepCount }

// Population returns the number of live organisms.
func (m *Model) Population() int { return m.population }

// History returns the per-generation samples.
func (m *Model) History() *telemetry.History { return m.history }

// Perf returns the tick timing collector.
func (m *Model) Perf() *telemetry.PerfCollector { return m.perf }

// Occupants exposes the occupant store for inspection and test setup.
func (m *Model) Occupants() *systems.Occupants { return m.occ }

// Pending reports whether e is queued for removal this tick.
func (m *Model) Pending(e ecs.Entity) bool { return m.removals.Has(e) }

// must panics on errors that can only come from engine bugs, such as moving
// an entity that is not on the grid.
func must(err error) {
	if err != nil {
		slog.Error("invariant violated", "error", err)
		panic(err)
	}
}
