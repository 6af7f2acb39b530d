package telemetry

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Trait names used for histograms.
const (
	TraitSpeed     = "speed"
	TraitAwareness = "awareness"
	TraitSize      = "size"
)

// Histogram is a binned distribution of one organism trait.
// Bin i covers [Dividers[i], Dividers[i+1]).
type Histogram struct {
	Trait    string    `json:"trait"`
	Dividers []float64 `json:"dividers"`
	Counts   []float64 `json:"counts"`
}

// Total returns the number of samples in the histogram.
func (h Histogram) Total() float64 {
	return floats.Sum(h.Counts)
}

// NewHistogram bins values into evenly spaced bins spanning their range.
// Returns a histogram with no bins when values is empty or bins < 1.
func NewHistogram(trait string, values []float64, bins int) Histogram {
	h := Histogram{Trait: trait}
	if len(values) == 0 || bins < 1 {
		return h
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	lo, hi := sorted[0], sorted[len(sorted)-1]
	if hi == lo {
		hi = lo + 1
	}

	h.Dividers = make([]float64, bins+1)
	floats.Span(h.Dividers, lo, hi)
	// The last divider must be strictly above every value
	if last := h.Dividers[bins]; last <= sorted[len(sorted)-1] {
		h.Dividers[bins] = math.Nextafter(sorted[len(sorted)-1], math.Inf(1))
	}

	h.Counts = stat.Histogram(nil, h.Dividers, sorted, nil)
	return h
}

// TraitHistograms bins speed, awareness and size of the given population.
func TraitHistograms(samples []TraitSample, bins int) []Histogram {
	speeds := make([]float64, len(samples))
	awareness := make([]float64, len(samples))
	sizes := make([]float64, len(samples))
	for i, s := range samples {
		speeds[i] = float64(s.Speed)
		awareness[i] = float64(s.Awareness)
		sizes[i] = s.Size
	}

	return []Histogram{
		NewHistogram(TraitSpeed, speeds, bins),
		NewHistogram(TraitAwareness, awareness, bins),
		NewHistogram(TraitSize, sizes, bins),
	}
}
