package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "natsel"

// Metrics exposes generation samples as Prometheus gauges and counters.
// Each Metrics owns its registry so several models can run in one process.
type Metrics struct {
	Registry *prometheus.Registry

	Generation   prometheus.Gauge
	Population   prometheus.Gauge
	Food         prometheus.Gauge
	TraitMean    *prometheus.GaugeVec
	TrailPct     prometheus.Gauge
	Events       *prometheus.CounterVec
	FoodEaten    prometheus.Counter
	TickDuration prometheus.Histogram
}

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Generation: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "generation",
			Help:      "Current generation number",
		}),
		Population: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "population",
			Help:      "Live organisms at the last generation boundary",
		}),
		Food: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "food",
			Help:      "Food sources spawned for the current generation",
		}),
		TraitMean: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "trait_mean",
			Help:      "Population mean of an organism trait",
		}, []string{"trait"}),
		TrailPct: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "trail_percent",
			Help:      "Percentage of organisms carrying the trail gene",
		}),
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_total",
			Help:      "Lifecycle events by type (birth, death, kill, starved_move)",
		}, []string{"event"}),
		FoodEaten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "food_eaten_total",
			Help:      "Total food amount consumed",
		}),
		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall time of one simulation tick",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}
}

// ObserveGeneration updates gauges and counters from a generation sample.
func (m *Metrics) ObserveGeneration(s GenerationStats) {
	if m == nil {
		return
	}
	m.Generation.Set(float64(s.Generation))
	m.Population.Set(float64(s.Population))
	m.Food.Set(float64(s.Food))
	m.TraitMean.WithLabelValues(TraitSpeed).Set(s.MeanSpeed)
	m.TraitMean.WithLabelValues(TraitAwareness).Set(s.MeanAwareness)
	m.TraitMean.WithLabelValues(TraitSize).Set(s.MeanSize)
	m.TraitMean.WithLabelValues("age").Set(s.MeanAge)
	m.TrailPct.Set(s.TrailPct)
	m.Events.WithLabelValues("birth").Add(float64(s.Births))
	m.Events.WithLabelValues("death").Add(float64(s.Deaths))
	m.Events.WithLabelValues("kill").Add(float64(s.Kills))
	m.Events.WithLabelValues("starved_move").Add(float64(s.StarvedMoves))
	m.FoodEaten.Add(s.FoodEaten)
}

// ObserveTick records the wall time of one tick.
func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.TickDuration.Observe(d.Seconds())
}
