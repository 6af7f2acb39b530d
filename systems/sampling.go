package systems

import (
	"math/rand"

	"github.com/pthm-cable/natsel/components"
)

// SampleCells draws n cells from pool. Cells are distinct while the pool lasts;
// past that, remaining draws are made with replacement.
// The pool is not modified.
func SampleCells(rng *rand.Rand, pool []components.Position, n int) []components.Position {
	if n <= 0 || len(pool) == 0 {
		return nil
	}

	work := make([]components.Position, len(pool))
	copy(work, pool)

	out := make([]components.Position, 0, n)

	// Partial Fisher-Yates for the distinct part
	distinct := min(n, len(work))
	for i := 0; i < distinct; i++ {
		j := i + rng.Intn(len(work)-i)
		work[i], work[j] = work[j], work[i]
		out = append(out, work[i])
	}

	for len(out) < n {
		out = append(out, pool[rng.Intn(len(pool))])
	}

	return out
}

// SampleDistinct draws n distinct cells from pool, or all of them shuffled
// when n exceeds the pool.
func SampleDistinct(rng *rand.Rand, pool []components.Position, n int) []components.Position {
	return SampleCells(rng, pool, min(n, len(pool)))
}
