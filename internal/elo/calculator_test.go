package elo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpectedScoreSymmetry(t *testing.T) {
	calc := NewCalculator()

	pairs := [][2]float64{
		{1500, 1500},
		{1516, 1484},
		{1200, 1900},
		{2400, 100},
		{1500.25, 1499.75},
	}

	for _, p := range pairs {
		eA := calc.ExpectedScore(p[0], p[1])
		eB := calc.ExpectedScore(p[1], p[0])
		assert.InDelta(t, 1.0, eA+eB, 1e-9, "expected scores must sum to 1 for %v", p)
	}
}

func TestExpectedScoreEqualRatings(t *testing.T) {
	calc := NewCalculator()
	assert.InDelta(t, 0.5, calc.ExpectedScore(1500, 1500), 1e-12)
}

func TestApplyOutcomeEqualRatingsWin(t *testing.T) {
	calc := NewCalculator()

	newA, newB := calc.ApplyOutcome(1500, 1500, ScoreWin)
	assert.InDelta(t, 1516.0, newA, 1e-9)
	assert.InDelta(t, 1484.0, newB, 1e-9)
}

func TestApplyOutcomeZeroSum(t *testing.T) {
	calc := NewCalculator()

	cases := []struct {
		name     string
		a, b     float64
		scoreA   Score
	}{
		{"win equal", 1500, 1500, ScoreWin},
		{"loss equal", 1500, 1500, ScoreLoss},
		{"draw equal", 1500, 1500, ScoreDraw},
		{"win underdog", 1300, 1700, ScoreWin},
		{"draw gap", 1650, 1350, ScoreDraw},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			newA, newB := calc.ApplyOutcome(tc.a, tc.b, tc.scoreA)
			deltaA := newA - tc.a
			deltaB := newB - tc.b
			assert.InDelta(t, 0.0, deltaA+deltaB, 1e-9)
		})
	}
}

func TestApplyOutcomeDrawMovesUnequalRatings(t *testing.T) {
	calc := NewCalculator()

	// A draw between unequal ratings pulls them toward each other.
	newA, newB := calc.ApplyOutcome(1700, 1300, ScoreDraw)
	assert.Less(t, newA, 1700.0)
	assert.Greater(t, newB, 1300.0)

	// A draw between equal ratings changes nothing.
	newA, newB = calc.ApplyOutcome(1500, 1500, ScoreDraw)
	assert.InDelta(t, 1500.0, newA, 1e-9)
	assert.InDelta(t, 1500.0, newB, 1e-9)
}

func TestApplyOutcomeUpsetMovesMore(t *testing.T) {
	calc := NewCalculator()

	// An underdog win shifts ratings more than a favorite win.
	upA, _ := calc.ApplyOutcome(1300, 1700, ScoreWin)
	favA, _ := calc.ApplyOutcome(1700, 1300, ScoreWin)

	assert.Greater(t, upA-1300, favA-1700)
}
