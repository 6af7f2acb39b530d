package sim

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/natsel/components"
	"github.com/pthm-cable/natsel/systems"
	"github.com/pthm-cable/natsel/telemetry"
)

// openOutputs creates the CSV directory and the snapshot stream when enabled.
func (m *Model) openOutputs(opts Options) error {
	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return fmt.Errorf("opening output: %w", err)
	}
	m.output = output

	if err := m.output.WriteConfig(m.cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if opts.RunID != "" {
		if err := m.output.WriteRunInfo(telemetry.RunInfo{RunID: opts.RunID, Seed: m.seed}); err != nil {
			return err
		}
	}

	if opts.SnapshotFile != "" {
		stream, err := telemetry.NewSnapshotStream(opts.SnapshotFile)
		if err != nil {
			return fmt.Errorf("opening snapshot stream: %w", err)
		}
		m.stream = stream
	}
	return nil
}

// recordStep feeds one organism activation into the collector and lifetime stats.
func (m *Model) recordStep(id uint32, ev systems.StepEvents) {
	if ev.Feeding.FoodEaten > 0 {
		m.collector.RecordFoodEaten(ev.Feeding.FoodEaten)
		m.lifetime.RecordFood(id, ev.Feeding.FoodEaten)
	}
	for range ev.Feeding.Kills {
		m.collector.RecordKill()
		m.lifetime.RecordKill(id)
	}
	if ev.Tried {
		m.collector.RecordMove(ev.Move.Moved, ev.Move.Starved, ev.Move.Dropped)
		m.lifetime.RecordMove(id, ev.Move.Moved, ev.Move.Starved)
	}
}

// traitSamples collects the traits of every live organism in ID order.
func (m *Model) traitSamples() []telemetry.TraitSample {
	organisms := m.occ.Collect(components.KindOrganism)
	samples := make([]telemetry.TraitSample, len(organisms))
	for i, e := range organisms {
		g := m.occ.Genes(e)
		samples[i] = telemetry.TraitSample{
			Speed:     g.Speed,
			Awareness: g.Awareness,
			Size:      g.Size,
			Age:       m.occ.Organism(e).Age,
			Trail:     g.Trail,
		}
	}
	return samples
}

// emitGeneration samples the population entering the current generation and
// hands the result to every consumer.
func (m *Model) emitGeneration(food int) {
	samples := m.traitSamples()
	stats := m.collector.Flush(m.generation, m.tick, samples, food)
	stats.Lineages = m.lifetime.LineageCount()
	histograms := telemetry.TraitHistograms(samples, m.cfg.Telemetry.HistogramBins)

	m.history.Add(stats, histograms)

	if m.statsCallback != nil {
		m.statsCallback(stats)
	}

	if m.logStats {
		stats.LogStats()
	}

	if err := m.output.WriteGeneration(stats, histograms); err != nil {
		slog.Error("failed to write generation", "error", err)
	}
	if m.tick > 0 {
		perf := m.perf.Stats()
		if m.logStats {
			slog.Info("perf", "generation", m.generation, "stats", perf)
		}
		if err := m.output.WritePerf(perf, m.generation); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	m.metrics.ObserveGeneration(stats)

	// The construction sample precedes any AddOrganism setup
	if m.tick == 0 {
		return
	}
	for _, b := range m.bookmarks.Check(stats) {
		b.LogBookmark()
		if err := m.output.WriteBookmark(b); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
		if m.snapshotDir != "" {
			path, err := telemetry.SaveSnapshot(m.Snapshot(), m.snapshotDir)
			if err != nil {
				slog.Error("failed to save snapshot", "error", err)
			} else {
				slog.Info("snapshot saved", "path", path, "bookmark", string(b.Type))
			}
		}
	}
}

// emitTick publishes the per-tick snapshot to the stream and callback.
// The snapshot is only built when one of them wants it.
func (m *Model) emitTick() {
	if m.stream == nil && m.tickCallback == nil {
		return
	}

	snap := m.Snapshot()
	if m.stream != nil {
		if err := m.stream.Write(snap); err != nil {
			slog.Error("failed to write snapshot", "tick", m.tick, "error", err)
		}
	}
	if m.tickCallback != nil {
		m.tickCallback(snap)
	}
}

// Snapshot returns a read-only view of every live occupant, sorted by ID.
func (m *Model) Snapshot() *telemetry.Snapshot {
	grid := m.occ.Grid()
	snap := &telemetry.Snapshot{
		Version:    telemetry.SnapshotVersion,
		Seed:       m.seed,
		Width:      grid.Width(),
		Height:     grid.Height(),
		Tick:       m.tick,
		Generation: m.generation,
		Step:       m.stepCount,
		Population: m.population,
	}

	entities := m.occ.Collect(components.KindFood, components.KindOrganism, components.KindTrail)
	snap.Occupants = make([]telemetry.OccupantState, 0, len(entities))
	for _, e := range entities {
		ident := m.occ.Identity(e)
		pos := m.occ.Position(e)
		state := telemetry.OccupantState{
			ID:   ident.ID,
			Kind: ident.Kind.String(),
			X:    pos.X,
			Y:    pos.Y,
		}

		switch ident.Kind {
		case components.KindOrganism:
			g := m.occ.Genes(e)
			org := m.occ.Organism(e)
			state.Organism = &telemetry.OrganismState{
				Speed:           g.Speed,
				Awareness:       g.Awareness,
				Size:            g.Size,
				Trail:           g.Trail,
				Energy:          org.Energy,
				Age:             org.Age,
				ProbSurvival:    org.ProbSurvival,
				ProbReplication: org.ProbReplication,
			}
		case components.KindFood:
			state.Food = &telemetry.FoodState{Amount: m.occ.Food(e).Amount}
		case components.KindTrail:
			tr := m.occ.Pheromone(e)
			state.Trail = &telemetry.TrailState{
				Strength:  tr.Strength,
				CameFromX: tr.CameFrom.X,
				CameFromY: tr.CameFrom.Y,
				Creator:   tr.CreatorID,
			}
		}

		snap.Occupants = append(snap.Occupants, state)
	}

	return snap
}
