package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// GenerationStats is sampled once per generation boundary.
// Event counts cover the generation that just ended; trait means describe
// the population entering the new generation.
type GenerationStats struct {
	Generation int `csv:"generation"`
	Tick       int `csv:"tick"`

	Population int `csv:"population"`
	Food       int `csv:"food"`

	// Trait distribution
	MeanSpeed     float64 `csv:"mean_speed"`
	MeanAwareness float64 `csv:"mean_awareness"`
	MeanSize      float64 `csv:"mean_size"`
	SizeStd       float64 `csv:"size_std"`
	SizeP10       float64 `csv:"size_p10"`
	SizeP50       float64 `csv:"size_p50"`
	SizeP90       float64 `csv:"size_p90"`
	MeanAge       float64 `csv:"mean_age"`
	TrailPct      float64 `csv:"trail_pct"`

	// Events during the generation
	Births        int     `csv:"births"`
	Deaths        int     `csv:"deaths"`
	Kills         int     `csv:"kills"`
	FoodEaten     float64 `csv:"food_eaten"`
	Moves         int     `csv:"moves"`
	StarvedMoves  int     `csv:"starved_moves"`
	TrailsDropped int     `csv:"trails_dropped"`

	// Mean generations lived by organisms that died this generation
	MeanLifespan float64 `csv:"mean_lifespan"`

	// Founder lineages with living descendants
	Lineages int `csv:"lineages"`
}

// TraitSample is the part of an organism the stats care about.
type TraitSample struct {
	Speed     int
	Awareness int
	Size      float64
	Age       int
	Trail     bool
}

// TraitSummary holds means and spread of the sampled traits.
type TraitSummary struct {
	MeanSpeed     float64
	MeanAwareness float64
	MeanSize      float64
	SizeStd       float64
	SizeP10       float64
	SizeP50       float64
	SizeP90       float64
	MeanAge       float64
	TrailPct      float64
}

// SummarizeTraits computes trait means, size spread and the trail share.
// An empty population yields a zero summary.
func SummarizeTraits(samples []TraitSample) TraitSummary {
	if len(samples) == 0 {
		return TraitSummary{}
	}

	speeds := make([]float64, len(samples))
	awareness := make([]float64, len(samples))
	sizes := make([]float64, len(samples))
	ages := make([]float64, len(samples))
	trails := 0
	for i, s := range samples {
		speeds[i] = float64(s.Speed)
		awareness[i] = float64(s.Awareness)
		sizes[i] = s.Size
		ages[i] = float64(s.Age)
		if s.Trail {
			trails++
		}
	}

	meanSize, sizeStd := stat.PopMeanStdDev(sizes, nil)
	p10, p50, p90 := Quantiles(sizes)

	return TraitSummary{
		MeanSpeed:     stat.Mean(speeds, nil),
		MeanAwareness: stat.Mean(awareness, nil),
		MeanSize:      meanSize,
		SizeStd:       sizeStd,
		SizeP10:       p10,
		SizeP50:       p50,
		SizeP90:       p90,
		MeanAge:       stat.Mean(ages, nil),
		TrailPct:      100 * float64(trails) / float64(len(samples)),
	}
}

// Quantiles returns the empirical 10th, 50th and 90th percentiles.
// Returns zeros for an empty slice.
func Quantiles(values []float64) (p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return p10, p50, p90
}

// Series returns the named scalar series values of these stats.
func (s GenerationStats) Series() map[string]float64 {
	return map[string]float64{
		SeriesPopulation:    float64(s.Population),
		SeriesMeanSpeed:     s.MeanSpeed,
		SeriesMeanAwareness: s.MeanAwareness,
		SeriesMeanSize:      s.MeanSize,
		SeriesMeanAge:       s.MeanAge,
		SeriesTrailPct:      s.TrailPct,
		SeriesBirths:        float64(s.Births),
		SeriesDeaths:        float64(s.Deaths),
		SeriesKills:         float64(s.Kills),
		SeriesFoodEaten:     s.FoodEaten,
		SeriesStarvedMoves:  float64(s.StarvedMoves),
		SeriesLineages:      float64(s.Lineages),
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s GenerationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", s.Generation),
		slog.Int("tick", s.Tick),
		slog.Int("population", s.Population),
		slog.Int("food", s.Food),
		slog.Float64("mean_speed", s.MeanSpeed),
		slog.Float64("mean_awareness", s.MeanAwareness),
		slog.Float64("mean_size", s.MeanSize),
		slog.Float64("size_std", s.SizeStd),
		slog.Float64("mean_age", s.MeanAge),
		slog.Float64("trail_pct", s.TrailPct),
		slog.Int("births", s.Births),
		slog.Int("deaths", s.Deaths),
		slog.Int("kills", s.Kills),
		slog.Float64("food_eaten", s.FoodEaten),
		slog.Int("moves", s.Moves),
		slog.Int("starved_moves", s.StarvedMoves),
		slog.Int("trails_dropped", s.TrailsDropped),
		slog.Float64("mean_lifespan", s.MeanLifespan),
		slog.Int("lineages", s.Lineages),
	)
}

// LogStats logs the generation stats using slog.
func (s GenerationStats) LogStats() {
	slog.Info("stats",
		"generation", s.Generation,
		"tick", s.Tick,
		"population", s.Population,
		"food", s.Food,
		"mean_speed", s.MeanSpeed,
		"mean_awareness", s.MeanAwareness,
		"mean_size", s.MeanSize,
		"size_p10", s.SizeP10,
		"size_p50", s.SizeP50,
		"size_p90", s.SizeP90,
		"mean_age", s.MeanAge,
		"trail_pct", s.TrailPct,
		"births", s.Births,
		"deaths", s.Deaths,
		"kills", s.Kills,
		"food_eaten", s.FoodEaten,
		"starved_moves", s.StarvedMoves,
		"mean_lifespan", s.MeanLifespan,
		"lineages", s.Lineages,
	)
}
