package telemetry

import "testing"

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_PredationBreakthrough(t *testing.T) {
	bd := NewBookmarkDetector(10)

	// Add some history with few kills
	for i := 0; i < 5; i++ {
		bd.Check(GenerationStats{Generation: i + 1, Population: 20, TrailPct: 50, Kills: 2})
	}

	// Now a generation with >2x the average
	bookmarks := bd.Check(GenerationStats{Generation: 6, Population: 20, TrailPct: 50, Kills: 8})

	if !hasBookmark(bookmarks, BookmarkPredationBreakthrough) {
		t.Error("expected predation_breakthrough bookmark")
	}
}

func TestBookmarkDetector_PopulationCrash(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(GenerationStats{Generation: i + 1, Population: 100, TrailPct: 50})
	}

	// 50% drop
	bookmarks := bd.Check(GenerationStats{Generation: 6, Population: 50, TrailPct: 50})

	if !hasBookmark(bookmarks, BookmarkPopulationCrash) {
		t.Error("expected population_crash bookmark")
	}
}

func TestBookmarkDetector_PopulationRecovery(t *testing.T) {
	bd := NewBookmarkDetector(10)

	// Population drops to critical level
	for i := 0; i < 3; i++ {
		bd.Check(GenerationStats{Generation: i + 1, Population: 2, TrailPct: 50})
	}

	// Recovers to 5x the minimum
	bookmarks := bd.Check(GenerationStats{Generation: 4, Population: 10, TrailPct: 50})

	if !hasBookmark(bookmarks, BookmarkPopulationRecovery) {
		t.Error("expected population_recovery bookmark")
	}
}

func TestBookmarkDetector_StablePopulation(t *testing.T) {
	bd := NewBookmarkDetector(10)

	triggeredAt := -1
	for i := 0; i < 12; i++ {
		bookmarks := bd.Check(GenerationStats{Generation: i + 1, Population: 40, TrailPct: 50})
		if hasBookmark(bookmarks, BookmarkStablePopulation) {
			if triggeredAt >= 0 {
				t.Fatalf("stable_population triggered twice (%d and %d)", triggeredAt, i)
			}
			triggeredAt = i
		}
	}

	// Four generations of history are needed, then five stable checks
	if triggeredAt != 8 {
		t.Errorf("stable_population at check %d, want 8", triggeredAt)
	}
}

func TestBookmarkDetector_ExtinctionOnce(t *testing.T) {
	bd := NewBookmarkDetector(10)

	bd.Check(GenerationStats{Generation: 1, Population: 10, TrailPct: 50})
	first := bd.Check(GenerationStats{Generation: 2, Population: 0, Deaths: 10})
	second := bd.Check(GenerationStats{Generation: 3, Population: 0})

	if !hasBookmark(first, BookmarkExtinction) {
		t.Error("expected extinction bookmark")
	}
	if hasBookmark(second, BookmarkExtinction) {
		t.Error("extinction should only be reported once")
	}
}

func TestBookmarkDetector_TrailFixation(t *testing.T) {
	bd := NewBookmarkDetector(10)

	// The initial population may already be uniform; that is not an event
	if hasBookmark(bd.Check(GenerationStats{Generation: 1, Population: 10, TrailPct: 100}), BookmarkTrailFixation) {
		t.Error("fixation needs history")
	}

	bd = NewBookmarkDetector(10)
	bd.Check(GenerationStats{Generation: 1, Population: 10, TrailPct: 50})
	bookmarks := bd.Check(GenerationStats{Generation: 2, Population: 10, TrailPct: 100})
	if !hasBookmark(bookmarks, BookmarkTrailFixation) {
		t.Fatal("expected trail_fixation bookmark")
	}
	for _, bm := range bookmarks {
		if bm.Type == BookmarkTrailFixation && bm.Description != "Trail gene fixed in the population" {
			t.Errorf("description = %q", bm.Description)
		}
	}

	if hasBookmark(bd.Check(GenerationStats{Generation: 3, Population: 10, TrailPct: 0}), BookmarkTrailFixation) {
		t.Error("fixation should only be reported once")
	}
}
