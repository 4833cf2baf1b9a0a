package services

import (
	"math"

	"heistctf/internal/models"
)

// AwardedPoints computes the points a correct solve is worth. For dynamic
// challenges the value scales from 2x base at solveRate 0 down toward base
// as the solve rate approaches 1, clamped to [min, max]. A zero min/max
// bound means "unset" and defaults to base*0.5 / base*2.
//
// The challenge's attempts/solves counters must be the values as they stood
// before the current submission is recorded. Rounding is math.Round (half
// away from zero).
func AwardedPoints(ch *models.Challenge) int {
	if !ch.DynamicPoints {
		return ch.Points
	}

	base := float64(ch.Points)

	solveRate := 0.0
	if ch.Attempts > 0 {
		solveRate = float64(ch.Solves) / float64(ch.Attempts)
	}

	raw := base * (1 + (1 - solveRate))

	floor := base * 0.5
	if ch.MinPoints > 0 {
		floor = float64(ch.MinPoints)
	}
	ceiling := base * 2
	if ch.MaxPoints > 0 {
		ceiling = float64(ch.MaxPoints)
	}

	return int(math.Round(math.Max(floor, math.Min(ceiling, raw))))
}

// Penalty returns the non-negative deduction for an incorrect attempt.
// The caller floors the user balance at zero when applying it.
func Penalty(ch *models.Challenge) int {
	if ch.PenaltyPoints > 0 {
		return ch.PenaltyPoints
	}
	return 0
}
