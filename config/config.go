// Package config provides configuration loading and validation for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
// Values are construction-time only; the engine never mutates them.
type Config struct {
	World      WorldConfig      `yaml:"world"`
	Population PopulationConfig `yaml:"population"`
	Genes      GenesConfig      `yaml:"genes"`
	Mutation   MutationConfig   `yaml:"mutation"`
	Energy     EnergyConfig     `yaml:"energy"`
	Predation  PredationConfig  `yaml:"predation"`
	Trail      TrailConfig      `yaml:"trail"`
	Sensing    SensingConfig    `yaml:"sensing"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds grid dimensions and the generation length.
type WorldConfig struct {
	Width              int `yaml:"width" validate:"gt=0"`
	Height             int `yaml:"height" validate:"gt=0"`
	StepsPerGeneration int `yaml:"steps_per_generation" validate:"gt=0"`
}

// PopulationConfig holds the initial population and per-generation food supply.
type PopulationConfig struct {
	Initial              int     `yaml:"initial" validate:"gte=0"`
	InitialTrailFraction float64 `yaml:"initial_trail_fraction" validate:"gte=0,lte=1"` // share of founders carrying the trail gene
	FoodPerGeneration    int     `yaml:"food_per_generation" validate:"gte=0"`
	FoodAmount           float64 `yaml:"food_amount" validate:"gt=0"` // amount of each spawned food
}

// GenesConfig holds founder genes and the bounds every gene is clamped to.
type GenesConfig struct {
	InitialSpeed     int     `yaml:"initial_speed"`
	InitialAwareness int     `yaml:"initial_awareness"`
	InitialSize      float64 `yaml:"initial_size"`

	MinSpeed     int     `yaml:"min_speed" validate:"gte=0"`
	MaxSpeed     int     `yaml:"max_speed" validate:"gtefield=MinSpeed"`
	MinAwareness int     `yaml:"min_awareness" validate:"gte=0"`
	MaxAwareness int     `yaml:"max_awareness" validate:"gtefield=MinAwareness"`
	MinSize      float64 `yaml:"min_size" validate:"gt=0"`
	MaxSize      float64 `yaml:"max_size" validate:"gtefield=MinSize"`
}

// MutationConfig holds per-gene mutation probabilities.
type MutationConfig struct {
	SpeedRate     float64 `yaml:"speed_rate" validate:"gte=0,lte=1"`
	AwarenessRate float64 `yaml:"awareness_rate" validate:"gte=0,lte=1"`
	SizeRate      float64 `yaml:"size_rate" validate:"gte=0,lte=1"`
	MaxSizeDelta  float64 `yaml:"max_size_delta" validate:"gte=0"` // size moves by U(-d, +d)
}

// EnergyConfig holds the movement energy budget and cost coefficients.
// cost = size_cost * size^3 * speed^2 * distance + awareness_cost * awareness
type EnergyConfig struct {
	Max           float64 `yaml:"max" validate:"gt=0"`
	SizeCost      float64 `yaml:"size_cost" validate:"gte=0"`
	AwarenessCost float64 `yaml:"awareness_cost" validate:"gte=0"`
}

// PredationConfig holds the size margin required to eat another organism.
type PredationConfig struct {
	SizeToEatThreshold float64 `yaml:"size_to_eat_threshold" validate:"gte=0"`
}

// TrailConfig holds pheromone trail parameters.
type TrailConfig struct {
	MaxStrength int     `yaml:"max_strength" validate:"gt=0"`
	MaxLength   int     `yaml:"max_length" validate:"gte=0,ltefield=MaxStrength"` // markers dropped per food visit
	ConsumeCap  float64 `yaml:"consume_cap" validate:"gt=0"`                      // max food a trail carrier takes per visit
}

// SensingConfig holds the neighborhood shape used for awareness.
type SensingConfig struct {
	Connectivity string `yaml:"connectivity" validate:"oneof=moore von_neumann"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	HistogramBins int  `yaml:"histogram_bins" validate:"gt=0"`
	LogStats      bool `yaml:"log_stats"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Cells         int // width * height
	BorderCells   int // cells on the outer ring
	InteriorCells int // all other cells
}

// Load loads configuration from a YAML file, merging with embedded defaults,
// and validates the result. If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.ComputeDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the embedded defaults. Panics if they do not parse.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// ComputeDerived calculates values derived from loaded config.
// Call it again after changing world dimensions by hand.
func (c *Config) ComputeDerived() {
	w, h := c.World.Width, c.World.Height
	c.Derived.Cells = w * h

	switch {
	case w <= 0 || h <= 0:
		c.Derived.BorderCells = 0
	case w <= 2 || h <= 2:
		// No interior: every cell touches the edge
		c.Derived.BorderCells = w * h
	default:
		c.Derived.BorderCells = 2*w + 2*h - 4
	}
	c.Derived.InteriorCells = c.Derived.Cells - c.Derived.BorderCells
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// YAML renders the configuration as YAML.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}
