package main

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/natsel/config"
	"github.com/pthm-cable/natsel/sim"
	"github.com/pthm-cable/natsel/telemetry"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params         *ParamVector
	maxGenerations int
	seeds          []int64
	baseConfig     *config.Config

	// Best run tracking
	mu          sync.Mutex
	bestFitness float64
	bestHistory []telemetry.GenerationStats
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxGenerations int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:         params,
		maxGenerations: maxGenerations,
		seeds:          seeds,
		baseConfig:     baseCfg,
		bestFitness:    math.Inf(1),
	}
}

// BestHistory returns the per-generation stats of the best seed of the best evaluation.
func (fe *FitnessEvaluator) BestHistory() []telemetry.GenerationStats {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestHistory
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// minViablePop is the population below which a run counts as extinct.
const minViablePop = 2

// runResult holds the results from a single simulation run.
type runResult struct {
	survived int // generations completed before extinction (or maxGenerations)
	history  []telemetry.GenerationStats
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness float64
	quality float64
	history []telemetry.GenerationStats
}

// Evaluate computes fitness for a raw parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)

	// Run all seeds in parallel; each model owns its RNG and world.
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			result := fe.runSimulation(cfg, s)
			results[idx] = seedResult{
				fitness: fe.computeFitness(result),
				quality: computeQuality(result.history),
				history: result.history,
			}
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalQuality float64
	bestSeedFitness := math.Inf(1)
	var bestSeedHistory []telemetry.GenerationStats

	for _, r := range results {
		totalFitness += r.fitness
		totalQuality += r.quality
		if r.fitness < bestSeedFitness {
			bestSeedFitness = r.fitness
			bestSeedHistory = r.history
		}
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
		fe.bestHistory = bestSeedHistory
	}
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return avgFitness
}

// runSimulation executes a single headless run until extinction or maxGenerations.
// An invalid parameter combination scores as immediate extinction.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) *runResult {
	result := &runResult{}

	model, err := sim.New(sim.Options{
		Seed:   seed,
		Config: cfg,
		StatsCallback: func(stats telemetry.GenerationStats) {
			result.history = append(result.history, stats)
		},
	})
	if err != nil {
		return result
	}
	defer model.Close()

	for model.Generation() < fe.maxGenerations {
		model.Step()
		if model.Population() < minViablePop {
			result.survived = model.Generation()
			return result
		}
	}

	result.survived = fe.maxGenerations
	return result
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(survived × (1.0 + 0.2 × quality))
// Survival dominates; quality separates configs that survive equally long.
func (fe *FitnessEvaluator) computeFitness(r *runResult) float64 {
	quality := computeQuality(r.history)
	return -(float64(r.survived) * (1.0 + 0.2*quality))
}

// Quality component weights.
const (
	qualityWeightStability = 0.35
	qualityWeightDiversity = 0.25
	qualityWeightLineages  = 0.20
	qualityWeightTrail     = 0.20

	qualityWarmupGenerations = 3 // skip the founders settling in
)

// computeQuality computes run quality in [0, 1] from per-generation stats.
// It rewards a steady population that keeps size variation, founder
// lineages and a mix of trail and non-trail carriers.
func computeQuality(history []telemetry.GenerationStats) float64 {
	if len(history) <= qualityWarmupGenerations {
		return 0
	}
	valid := history[qualityWarmupGenerations:]
	founders := history[0].Lineages

	pops := make([]float64, 0, len(valid))
	var diversitySum, lineageSum, trailSum float64
	for _, g := range valid {
		if g.Population < minViablePop {
			continue
		}
		pops = append(pops, float64(g.Population))

		diversitySum += 1.0 - math.Exp(-g.SizeStd/0.1)
		if founders > 0 {
			lineageSum += float64(g.Lineages) / float64(founders)
		}
		// 1 for an even split, 0 once either side has fixed
		trailSum += 1.0 - math.Abs(g.TrailPct-50)/50
	}
	if len(pops) == 0 {
		return 0
	}
	n := float64(len(pops))

	stabilityScore := 0.0
	if len(pops) >= 2 {
		c := cv(pops)
		stabilityScore = math.Exp(-c * c)
	}

	quality := qualityWeightStability*stabilityScore +
		qualityWeightDiversity*diversitySum/n +
		qualityWeightLineages*lineageSum/n +
		qualityWeightTrail*trailSum/n

	return clamp01(quality)
}

// cv computes the coefficient of variation (std/mean) for a slice of values.
func cv(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	if mean == 0 {
		return 0
	}
	return std / mean
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
