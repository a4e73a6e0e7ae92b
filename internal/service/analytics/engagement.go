package analytics

import "math"

// Class is the engagement classification of a lead.
type Class string

const (
	ClassActive   Class = "Active"
	ClassModerate Class = "Moderate"
	ClassCold     Class = "Cold"
)

// Score is min(100, round((opens + 2*clicks) / sends * 100)), or 0 without
// sends.
func Score(sends, opens, clicks int64) int {
	if sends <= 0 {
		return 0
	}
	s := math.Round(float64(opens+2*clicks) / float64(sends) * 100)
	if s > 100 {
		return 100
	}
	return int(s)
}

// Classify maps a score to Active (>70), Moderate (>30) or Cold.
func Classify(score int) Class {
	switch {
	case score > 70:
		return ClassActive
	case score > 30:
		return ClassModerate
	default:
		return ClassCold
	}
}
