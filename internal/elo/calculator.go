package elo

import (
	"math"
)

// Score is the realized outcome for one side of a pairwise comparison.
type Score float64

const (
	ScoreLoss Score = 0.0
	ScoreDraw Score = 0.5
	ScoreWin  Score = 1.0
)

const (
	// KFactor controls how far a single outcome moves a rating.
	KFactor = 32

	// InitialRating is assigned to every new rating record.
	InitialRating = 1500.0
)

// Calculator computes Elo rating updates for pairwise model comparisons.
// It is pure math: no state, no I/O.
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// ExpectedScore returns the probability-like expected score for side A:
// E = 1 / (1 + 10^((ratingB - ratingA) / 400))
// ExpectedScore(a,b) + ExpectedScore(b,a) == 1 within floating tolerance.
func (c *Calculator) ExpectedScore(ratingA, ratingB float64) float64 {
	exponent := (ratingB - ratingA) / 400.0
	return 1.0 / (1.0 + math.Pow(10, exponent))
}

// ApplyOutcome returns the post-battle ratings for both sides given the
// realized score for side A (side B implicitly scores 1 - scoreA). The two
// deltas always sum to zero.
func (c *Calculator) ApplyOutcome(ratingA, ratingB float64, scoreA Score) (newA, newB float64) {
	eA := c.ExpectedScore(ratingA, ratingB)
	eB := 1.0 - eA

	newA = ratingA + KFactor*(float64(scoreA)-eA)
	newB = ratingB + KFactor*((1.0-float64(scoreA))-eB)
	return newA, newB
}
