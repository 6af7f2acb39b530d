package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkPredationBreakthrough BookmarkType = "predation_breakthrough"
	BookmarkPopulationCrash       BookmarkType = "population_crash"
	BookmarkPopulationRecovery    BookmarkType = "population_recovery"
	BookmarkExtinction            BookmarkType = "extinction"
	BookmarkTrailFixation         BookmarkType = "trail_fixation"
	BookmarkStablePopulation      BookmarkType = "stable_population"
)

// Bookmark marks an interesting generation.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Generation  int          `csv:"generation"`
	Tick        int          `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"generation", b.Generation,
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments across generations.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []GenerationStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	recentPopMin     int
	recentPopPeak    int
	stableCount      int
	extinct          bool
	trailFixed       bool
	havePopulationLo bool
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for stable population detection
	}
	return &BookmarkDetector{
		history:     make([]GenerationStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest generation and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats GenerationStats) []Bookmark {
	var bookmarks []Bookmark

	// Extinction and fixation need no history
	if b := bd.checkExtinction(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkTrailFixation(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	if bd.historyFull || bd.historyIdx > 0 {
		// Predation breakthrough: kills > 2x rolling average
		if b := bd.checkPredationBreakthrough(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Population recovery: was ≤3, now ≥3x that
		if b := bd.checkRecovery(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Population crash: dropped >30% from recent peak
		if b := bd.checkCrash(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Stable population: low variance over 5+ generations
		if b := bd.checkStable(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)

	// Track population minimum and peak
	if !bd.havePopulationLo || stats.Population < bd.recentPopMin {
		bd.recentPopMin = stats.Population
		bd.havePopulationLo = true
	}
	if stats.Population > bd.recentPopPeak {
		bd.recentPopPeak = stats.Population
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats GenerationStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []GenerationStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkExtinction(stats GenerationStats) *Bookmark {
	if bd.extinct || stats.Population > 0 {
		return nil
	}
	bd.extinct = true
	return &Bookmark{
		Type:        BookmarkExtinction,
		Generation:  stats.Generation,
		Tick:        stats.Tick,
		Description: fmt.Sprintf("Population died out after %d deaths", stats.Deaths),
	}
}

func (bd *BookmarkDetector) checkTrailFixation(stats GenerationStats) *Bookmark {
	if bd.trailFixed || stats.Population == 0 || len(bd.getHistory()) == 0 {
		return nil
	}
	if stats.TrailPct != 0 && stats.TrailPct != 100 {
		return nil
	}
	bd.trailFixed = true

	desc := "Trail gene lost from the population"
	if stats.TrailPct == 100 {
		desc = "Trail gene fixed in the population"
	}
	return &Bookmark{
		Type:        BookmarkTrailFixation,
		Generation:  stats.Generation,
		Tick:        stats.Tick,
		Description: desc,
	}
}

func (bd *BookmarkDetector) checkPredationBreakthrough(stats GenerationStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	kills := make([]float64, len(history))
	for i, h := range history {
		kills[i] = float64(h.Kills)
	}
	avgKills := stat.Mean(kills, nil)
	if avgKills == 0 {
		return nil
	}

	current := float64(stats.Kills)
	if current > avgKills*2.0 && stats.Kills >= 3 {
		return &Bookmark{
			Type:        BookmarkPredationBreakthrough,
			Generation:  stats.Generation,
			Tick:        stats.Tick,
			Description: fmt.Sprintf("%d kills is %.1fx average (%.2f)", stats.Kills, current/avgKills, avgKills),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkRecovery(stats GenerationStats) *Bookmark {
	if bd.recentPopMin == 0 || bd.recentPopMin > 3 {
		return nil
	}

	threshold := bd.recentPopMin * 3
	if stats.Population >= threshold && stats.Population >= 6 {
		// Reset the minimum after triggering
		oldMin := bd.recentPopMin
		bd.recentPopMin = stats.Population

		return &Bookmark{
			Type:        BookmarkPopulationRecovery,
			Generation:  stats.Generation,
			Tick:        stats.Tick,
			Description: fmt.Sprintf("Population recovered from %d to %d", oldMin, stats.Population),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkCrash(stats GenerationStats) *Bookmark {
	if bd.recentPopPeak == 0 {
		return nil
	}

	dropPercent := 1.0 - float64(stats.Population)/float64(bd.recentPopPeak)
	if dropPercent > 0.30 && stats.Population <= bd.recentPopPeak-5 {
		// Reset peak after crash
		oldPeak := bd.recentPopPeak
		bd.recentPopPeak = stats.Population

		return &Bookmark{
			Type:        BookmarkPopulationCrash,
			Generation:  stats.Generation,
			Tick:        stats.Tick,
			Description: fmt.Sprintf("Population crashed %.0f%% from peak %d to %d", dropPercent*100, oldPeak, stats.Population),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkStable(stats GenerationStats) *Bookmark {
	if stats.Population < 5 {
		bd.stableCount = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}

	recent := history[len(history)-4:]
	if bd.historyFull {
		// Ring buffer: take the four most recent in write order
		recent = make([]GenerationStats, 0, 4)
		for i := 4; i >= 1; i-- {
			recent = append(recent, bd.history[(bd.historyIdx-i+bd.historySize)%bd.historySize])
		}
	}

	pops := make([]float64, len(recent))
	for i, h := range recent {
		pops[i] = float64(h.Population)
	}
	mean, std := stat.PopMeanStdDev(pops, nil)

	// Coefficient of variation below 20%
	if mean > 0 && std/mean < 0.2 {
		bd.stableCount++
	} else {
		bd.stableCount = 0
	}

	if bd.stableCount == 5 { // trigger exactly once at 5 generations
		return &Bookmark{
			Type:        BookmarkStablePopulation,
			Generation:  stats.Generation,
			Tick:        stats.Tick,
			Description: fmt.Sprintf("Stable population around %.0f over 5+ generations", mean),
		}
	}

	return nil
}
