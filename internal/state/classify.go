package state

// Category is the fill-state of a bin derived from its level.
type Category string

const (
	CategoryNearlyFull Category = "nearly_full"
	CategoryHalfFull   Category = "half_full"
	CategoryAvailable  Category = "available"
)

// Fill-state thresholds. Both are inclusive on the lower side.
const (
	NearlyFullThreshold = 80.0
	HalfFullThreshold   = 50.0
)

// Classify maps a level percentage to its fill-state category.
func Classify(level float64) Category {
	switch {
	case level >= NearlyFullThreshold:
		return CategoryNearlyFull
	case level >= HalfFullThreshold:
		return CategoryHalfFull
	default:
		return CategoryAvailable
	}
}
