package telemetry

import "gonum.org/v1/gonum/stat"

// Collector accumulates events within a generation and produces GenerationStats.
type Collector struct {
	births        int
	deaths        int
	kills         int
	foodEaten     float64
	moves         int
	starvedMoves  int
	trailsDropped int
	lifespans     []float64
}

// NewCollector creates a new stats collector.
func NewCollector() *Collector {
	return &Collector{}
}

// RecordBirth records a child created at turnover.
func (c *Collector) RecordBirth() {
	c.births++
}

// RecordDeath records an organism leaving the world after living lifespan generations.
func (c *Collector) RecordDeath(lifespan int) {
	c.deaths++
	c.lifespans = append(c.lifespans, float64(lifespan))
}

// RecordKill records one organism eaten by another.
func (c *Collector) RecordKill() {
	c.kills++
}

// RecordFoodEaten adds to the amount of food consumed.
func (c *Collector) RecordFoodEaten(amount float64) {
	c.foodEaten += amount
}

// RecordMove records the outcome of a movement attempt.
func (c *Collector) RecordMove(moved, starved, dropped bool) {
	if moved {
		c.moves++
	}
	if starved {
		c.starvedMoves++
	}
	if dropped {
		c.trailsDropped++
	}
}

// Flush produces GenerationStats and resets counters for the next generation.
// The caller provides the population entering the new generation and the
// food count after respawn.
func (c *Collector) Flush(generation, tick int, population []TraitSample, food int) GenerationStats {
	traits := SummarizeTraits(population)

	var lifespan float64
	if len(c.lifespans) > 0 {
		lifespan = stat.Mean(c.lifespans, nil)
	}

	stats := GenerationStats{
		Generation: generation,
		Tick:       tick,
		Population: len(population),
		Food:       food,

		MeanSpeed:     traits.MeanSpeed,
		MeanAwareness: traits.MeanAwareness,
		MeanSize:      traits.MeanSize,
		SizeStd:       traits.SizeStd,
		SizeP10:       traits.SizeP10,
		SizeP50:       traits.SizeP50,
		SizeP90:       traits.SizeP90,
		MeanAge:       traits.MeanAge,
		TrailPct:      traits.TrailPct,

		Births:        c.births,
		Deaths:        c.deaths,
		Kills:         c.kills,
		FoodEaten:     c.foodEaten,
		Moves:         c.moves,
		StarvedMoves:  c.starvedMoves,
		TrailsDropped: c.trailsDropped,

		MeanLifespan: lifespan,
	}

	// Reset for next generation
	*c = Collector{lifespans: c.lifespans[:0]}

	return stats
}
