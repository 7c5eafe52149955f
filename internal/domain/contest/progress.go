package contest

import "math"

// Progress is how far a Hot Lead count is toward one slab target.
type Progress struct {
	Count      int
	Target     int
	Achieved   bool
	Percentage float64 // capped at 100
	Remaining  int     // never negative
}

// NewProgress computes progress of count toward target.
// PRE: target > 0
// POST: Returns the progress, or ErrInvalidTarget for a non-positive target
func NewProgress(count, target int) (Progress, error) {
	if target <= 0 {
		return Progress{}, ErrInvalidTarget
	}
	pct := math.Min(float64(count)/float64(target)*100, 100)
	return Progress{
		Count:      count,
		Target:     target,
		Achieved:   count >= target,
		Percentage: pct,
		Remaining:  max(0, target-count),
	}, nil
}
