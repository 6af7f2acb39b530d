package main

import (
	"math"

	"github.com/pthm-cable/natsel/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // column name in the optimize log
	Path    string  // config path
	Min     float64 // lower bound
	Max     float64 // upper bound
	Default float64
	Integer bool // rounded before it is applied
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
// The ordering must match ApplyToConfig and ExtractFromConfig.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Energy
			{Name: "size_cost", Path: "energy.size_cost", Min: 0.05, Max: 1.0, Default: 0.35},
			{Name: "awareness_cost", Path: "energy.awareness_cost", Min: 0.0, Max: 2.0, Default: 0.4},
			// Predation
			{Name: "size_to_eat", Path: "predation.size_to_eat_threshold", Min: 0.0, Max: 0.5, Default: 0.15},
			// Trail
			{Name: "trail_consume_cap", Path: "trail.consume_cap", Min: 0.1, Max: 1.0, Default: 0.5},
			{Name: "trail_max_length", Path: "trail.max_length", Min: 0, Max: 10, Default: 5, Integer: true},
			// Mutation
			{Name: "speed_rate", Path: "mutation.speed_rate", Min: 0.0, Max: 0.5, Default: 0.1},
			{Name: "awareness_rate", Path: "mutation.awareness_rate", Min: 0.0, Max: 0.5, Default: 0.05},
			{Name: "size_rate", Path: "mutation.size_rate", Min: 0.0, Max: 0.5, Default: 0.05},
			{Name: "max_size_delta", Path: "mutation.max_size_delta", Min: 0.05, Max: 0.5, Default: 0.2},
			// Population
			{Name: "food_per_generation", Path: "population.food_per_generation", Min: 5, Max: 150, Default: 40, Integer: true},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds. Integer parameters are rounded.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := math.Max(spec.Min, math.Min(spec.Max, v[i]))
		if spec.Integer {
			val = math.Round(val)
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Values that the rest of the config cannot accommodate are tightened further:
// trail length never exceeds trail strength and food always fits the interior.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	c := pv.Clamp(values)

	cfg.Energy.SizeCost = c[0]
	cfg.Energy.AwarenessCost = c[1]

	cfg.Predation.SizeToEatThreshold = c[2]

	cfg.Trail.ConsumeCap = c[3]
	cfg.Trail.MaxLength = min(int(c[4]), cfg.Trail.MaxStrength)

	cfg.Mutation.SpeedRate = c[5]
	cfg.Mutation.AwarenessRate = c[6]
	cfg.Mutation.SizeRate = c[7]
	cfg.Mutation.MaxSizeDelta = c[8]

	cfg.ComputeDerived()
	cfg.Population.FoodPerGeneration = min(int(c[9]), cfg.Derived.InteriorCells)
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Energy.SizeCost,
		cfg.Energy.AwarenessCost,
		cfg.Predation.SizeToEatThreshold,
		cfg.Trail.ConsumeCap,
		float64(cfg.Trail.MaxLength),
		cfg.Mutation.SpeedRate,
		cfg.Mutation.AwarenessRate,
		cfg.Mutation.SizeRate,
		cfg.Mutation.MaxSizeDelta,
		float64(cfg.Population.FoodPerGeneration),
	}
}
