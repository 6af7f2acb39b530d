package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/natsel/config"
	"github.com/pthm-cable/natsel/telemetry"
)

func TestParamVectorRoundTrip(t *testing.T) {
	pv := NewParamVector()
	def := pv.DefaultVector()

	back := pv.Denormalize(pv.Normalize(def))
	require.Len(t, back, pv.Dim())
	for i := range def {
		assert.InDelta(t, def[i], back[i], 1e-9, pv.Specs[i].Name)
	}
}

func TestDefaultsMatchEmbeddedConfig(t *testing.T) {
	pv := NewParamVector()
	assert.Equal(t, pv.DefaultVector(), pv.ExtractFromConfig(config.Default()))
}

func TestClampRoundsIntegers(t *testing.T) {
	pv := NewParamVector()
	v := pv.DefaultVector()
	for i, spec := range pv.Specs {
		if spec.Integer {
			v[i] = spec.Min + 1.6
		} else {
			v[i] = spec.Max + 10
		}
	}

	for i, got := range pv.Clamp(v) {
		spec := pv.Specs[i]
		if spec.Integer {
			assert.Equal(t, spec.Min+2, got, spec.Name)
		} else {
			assert.Equal(t, spec.Max, got, spec.Name)
		}
	}
}

func TestApplyToConfigStaysValid(t *testing.T) {
	pv := NewParamVector()

	lows := make([]float64, pv.Dim())
	highs := make([]float64, pv.Dim())
	for i, spec := range pv.Specs {
		lows[i] = spec.Min - 1
		highs[i] = spec.Max + 1
	}

	for _, values := range [][]float64{lows, highs, pv.DefaultVector()} {
		cfg := config.Default()
		cfg.World.Width, cfg.World.Height = 8, 8
		pv.ApplyToConfig(cfg, values)

		require.NoError(t, cfg.Validate())
		assert.LessOrEqual(t, cfg.Population.FoodPerGeneration, cfg.Derived.InteriorCells)
		assert.LessOrEqual(t, cfg.Trail.MaxLength, cfg.Trail.MaxStrength)
	}
}

func TestComputeQuality(t *testing.T) {
	assert.Zero(t, computeQuality(nil))

	steady := make([]telemetry.GenerationStats, 10)
	for i := range steady {
		steady[i] = telemetry.GenerationStats{Generation: i + 1, Population: 20, Lineages: 20, TrailPct: 50, SizeStd: 0.3}
	}
	good := computeQuality(steady)
	assert.Greater(t, good, 0.9)
	assert.LessOrEqual(t, good, 1.0)

	fixed := make([]telemetry.GenerationStats, 10)
	for i := range fixed {
		pop := 5
		if i%2 == 0 {
			pop = 40
		}
		fixed[i] = telemetry.GenerationStats{Generation: i + 1, Population: pop, Lineages: 1, TrailPct: 100}
	}
	fixed[0].Lineages = 20
	assert.Less(t, computeQuality(fixed), good)
}

func TestEvaluateRunsEverySeed(t *testing.T) {
	base := config.Default()
	base.World.Width, base.World.Height = 10, 10
	base.World.StepsPerGeneration = 20
	base.Population.Initial = 8

	pv := NewParamVector()
	fe := NewFitnessEvaluator(pv, 4, []int64{1, 2}, base)

	fitness := fe.Evaluate(pv.DefaultVector())
	assert.LessOrEqual(t, fitness, 0.0)
	assert.GreaterOrEqual(t, fitness, -4*1.2)

	history := fe.BestHistory()
	require.NotEmpty(t, history)
	assert.Equal(t, 1, history[0].Generation)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1m05s", formatDuration(65e9))
	assert.Equal(t, "2h00m03s", formatDuration(7203e9))
}
