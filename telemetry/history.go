package telemetry

import "slices"

// Named scalar series sampled at each generation boundary.
const (
	SeriesPopulation    = "population"
	SeriesMeanSpeed     = "mean_speed"
	SeriesMeanAwareness = "mean_awareness"
	SeriesMeanSize      = "mean_size"
	SeriesMeanAge       = "mean_age"
	SeriesTrailPct      = "trail_pct"
	SeriesBirths        = "births"
	SeriesDeaths        = "deaths"
	SeriesKills         = "kills"
	SeriesFoodEaten     = "food_eaten"
	SeriesStarvedMoves  = "starved_moves"
	SeriesLineages      = "lineages"
)

// History keeps every generation sample in order.
type History struct {
	stats      []GenerationStats
	histograms [][]Histogram
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Add appends one generation sample and its trait histograms.
func (h *History) Add(stats GenerationStats, histograms []Histogram) {
	h.stats = append(h.stats, stats)
	h.histograms = append(h.histograms, histograms)
}

// Len returns the number of samples.
func (h *History) Len() int { return len(h.stats) }

// Stats returns a copy of all samples.
func (h *History) Stats() []GenerationStats {
	return slices.Clone(h.stats)
}

// Last returns the most recent sample.
func (h *History) Last() (GenerationStats, bool) {
	if len(h.stats) == 0 {
		return GenerationStats{}, false
	}
	return h.stats[len(h.stats)-1], true
}

// Histograms returns the trait histograms recorded with sample i.
func (h *History) Histograms(i int) []Histogram {
	if i < 0 || i >= len(h.histograms) {
		return nil
	}
	return h.histograms[i]
}

// Series returns the named series across all samples, or nil for an unknown name.
func (h *History) Series(name string) []float64 {
	if !slices.Contains(SeriesNames(), name) {
		return nil
	}
	out := make([]float64, len(h.stats))
	for i, s := range h.stats {
		out[i] = s.Series()[name]
	}
	return out
}

// SeriesNames lists every series name in a stable order.
func SeriesNames() []string {
	return []string{
		SeriesPopulation,
		SeriesMeanSpeed,
		SeriesMeanAwareness,
		SeriesMeanSize,
		SeriesMeanAge,
		SeriesTrailPct,
		SeriesBirths,
		SeriesDeaths,
		SeriesKills,
		SeriesFoodEaten,
		SeriesStarvedMoves,
		SeriesLineages,
	}
}
