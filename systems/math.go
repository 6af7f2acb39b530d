package systems

import (
	"math"

	"github.com/pthm-cable/natsel/components"
)

// Clamp functions for gene ranges

// clampInt clamps an int value between min and max.
func clampInt(v, minVal, maxVal int) int {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// clampFloat clamps a float64 value between min and max.
func clampFloat(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// Distance functions

// DistanceSq returns the squared Euclidean distance between two cells.
func DistanceSq(a, b components.Position) int {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

// Distance returns the Euclidean distance between two cells.
func Distance(a, b components.Position) float64 {
	return math.Sqrt(float64(DistanceSq(a, b)))
}
