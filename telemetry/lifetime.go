package telemetry

// LifetimeStats tracks per-organism statistics over its lifetime.
type LifetimeStats struct {
	BirthGeneration int
	ParentID        uint32 // 0 for founders
	FounderID       uint32

	Kills     int
	Children  int
	FoodEaten float64
	Moves     int
	Starved   int
}

// LifetimeTracker manages per-organism lifetime statistics, keyed by occupant ID.
type LifetimeTracker struct {
	stats map[uint32]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[uint32]*LifetimeStats),
	}
}

// Register creates lifetime stats for a new organism.
func (lt *LifetimeTracker) Register(id uint32, generation int, parentID uint32) {
	founder := id
	if parent := lt.stats[parentID]; parent != nil {
		founder = parent.FounderID
	}
	lt.stats[id] = &LifetimeStats{
		BirthGeneration: generation,
		ParentID:        parentID,
		FounderID:       founder,
	}
}

// Get returns the lifetime stats for an organism, or nil if not found.
func (lt *LifetimeTracker) Get(id uint32) *LifetimeStats {
	return lt.stats[id]
}

// Remove removes an organism's stats and returns them.
func (lt *LifetimeTracker) Remove(id uint32) *LifetimeStats {
	stats := lt.stats[id]
	delete(lt.stats, id)
	return stats
}

// RecordKill increments kill count.
func (lt *LifetimeTracker) RecordKill(id uint32) {
	if s := lt.stats[id]; s != nil {
		s.Kills++
	}
}

// RecordChild increments children count.
func (lt *LifetimeTracker) RecordChild(parentID uint32) {
	if s := lt.stats[parentID]; s != nil {
		s.Children++
	}
}

// RecordFood adds to the food eaten over the lifetime.
func (lt *LifetimeTracker) RecordFood(id uint32, amount float64) {
	if s := lt.stats[id]; s != nil {
		s.FoodEaten += amount
	}
}

// RecordMove counts a move attempt.
func (lt *LifetimeTracker) RecordMove(id uint32, moved, starved bool) {
	s := lt.stats[id]
	if s == nil {
		return
	}
	if moved {
		s.Moves++
	}
	if starved {
		s.Starved++
	}
}

// Count returns the number of tracked organisms.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}

// LineageCount returns the number of founder lineages still alive.
func (lt *LifetimeTracker) LineageCount() int {
	seen := make(map[uint32]struct{})
	for _, s := range lt.stats {
		seen[s.FounderID] = struct{}{}
	}
	return len(seen)
}
