package telemetry

import (
	"log/slog"
	"time"
)

// Phase identifies one part of a simulation step.
type Phase int

const (
	PhaseSchedule   Phase = iota // collect and shuffle the activation order
	PhaseActivation              // run organisms and trails
	PhaseRemoval                 // destroy everything queued this tick
	PhaseTurnover                // generation boundary
	PhaseTelemetry

	numPhases
)

var phaseNames = [numPhases]string{"schedule", "activation", "removal", "turnover", "telemetry"}

func (p Phase) String() string {
	if p < 0 || p >= numPhases {
		return "unknown"
	}
	return phaseNames[p]
}

// PerfSample holds timing data for a single tick.
type PerfSample struct {
	TickDuration time.Duration
	Phases       [numPhases]time.Duration
	Activations  int
}

// PerfCollector keeps timing for the last windowSize ticks in a ring buffer.
// The model sizes the window to one generation.
type PerfCollector struct {
	samples     []PerfSample
	writeIndex  int
	sampleCount int

	current    PerfSample
	tickStart  time.Time
	phaseStart time.Time
	phase      Phase
	inPhase    bool
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of ticks to average over.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 120
	}
	return &PerfCollector{samples: make([]PerfSample, windowSize)}
}

// StartTick begins timing a new simulation tick.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.current = PerfSample{}
	p.inPhase = false
}

// StartPhase ends the running phase, if any, and starts timing the next one.
func (p *PerfCollector) StartPhase(phase Phase) {
	now := time.Now()
	p.closePhase(now)
	p.phaseStart = now
	p.phase = phase
	p.inPhase = true
}

// RecordActivation counts one occupant run during the current tick.
func (p *PerfCollector) RecordActivation() {
	p.current.Activations++
}

// EndTick finishes timing the current tick and records the sample.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	p.closePhase(now)
	p.current.TickDuration = now.Sub(p.tickStart)

	p.samples[p.writeIndex] = p.current
	p.writeIndex = (p.writeIndex + 1) % len(p.samples)
	if p.sampleCount < len(p.samples) {
		p.sampleCount++
	}
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.inPhase && p.phase >= 0 && p.phase < numPhases {
		p.current.Phases[p.phase] += now.Sub(p.phaseStart)
	}
	p.inPhase = false
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	Ticks int // samples in the window

	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration

	PhaseAvg [numPhases]time.Duration
	PhasePct [numPhases]float64 // share of the average tick

	TicksPerSecond       float64
	AvgActivations       float64 // occupants run per tick
	ActivationsPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{}
	}

	var totalTick time.Duration
	var minTick, maxTick time.Duration
	var phaseSum [numPhases]time.Duration
	activations := 0

	for i, s := range p.samples[:p.sampleCount] {
		totalTick += s.TickDuration
		if i == 0 || s.TickDuration < minTick {
			minTick = s.TickDuration
		}
		maxTick = max(maxTick, s.TickDuration)
		for ph, d := range s.Phases {
			phaseSum[ph] += d
		}
		activations += s.Activations
	}

	n := p.sampleCount
	stats := PerfStats{
		Ticks:           n,
		AvgTickDuration: totalTick / time.Duration(n),
		MinTickDuration: minTick,
		MaxTickDuration: maxTick,
		AvgActivations:  float64(activations) / float64(n),
	}
	for ph, sum := range phaseSum {
		stats.PhaseAvg[ph] = sum / time.Duration(n)
		if stats.AvgTickDuration > 0 {
			stats.PhasePct[ph] = float64(stats.PhaseAvg[ph]) / float64(stats.AvgTickDuration) * 100
		}
	}
	if totalTick > 0 {
		stats.TicksPerSecond = float64(n) / totalTick.Seconds()
		stats.ActivationsPerSecond = float64(activations) / totalTick.Seconds()
	}
	return stats
}

// LogValue implements slog.LogValuer for structured logging.
// Phases under 0.1% of the tick are left out.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("ticks", s.Ticks),
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Int("ticks_per_sec", int(s.TicksPerSecond)),
		slog.Float64("activations_per_tick", s.AvgActivations),
	}
	for ph, pct := range s.PhasePct {
		if pct > 0.1 {
			attrs = append(attrs, slog.Float64(Phase(ph).String()+"_pct", float64(int(pct*10))/10.0))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	Generation     int     `csv:"generation"`
	AvgTickUS      int64   `csv:"avg_tick_us"`
	MinTickUS      int64   `csv:"min_tick_us"`
	MaxTickUS      int64   `csv:"max_tick_us"`
	TicksPerSec    float64 `csv:"ticks_per_sec"`
	ActivationsAvg float64 `csv:"activations_per_tick"`
	ActivationsSec float64 `csv:"activations_per_sec"`
	SchedulePct    float64 `csv:"schedule_pct"`
	ActivationPct  float64 `csv:"activation_pct"`
	RemovalPct     float64 `csv:"removal_pct"`
	TurnoverPct    float64 `csv:"turnover_pct"`
	TelemetryPct   float64 `csv:"telemetry_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(generation int) PerfStatsCSV {
	return PerfStatsCSV{
		Generation:     generation,
		AvgTickUS:      s.AvgTickDuration.Microseconds(),
		MinTickUS:      s.MinTickDuration.Microseconds(),
		MaxTickUS:      s.MaxTickDuration.Microseconds(),
		TicksPerSec:    s.TicksPerSecond,
		ActivationsAvg: s.AvgActivations,
		ActivationsSec: s.ActivationsPerSecond,
		SchedulePct:    s.PhasePct[PhaseSchedule],
		ActivationPct:  s.PhasePct[PhaseActivation],
		RemovalPct:     s.PhasePct[PhaseRemoval],
		TurnoverPct:    s.PhasePct[PhaseTurnover],
		TelemetryPct:   s.PhasePct[PhaseTelemetry],
	}
}
