package rating

import "math"

// Calculator computes ELO adjustments with a fixed K-factor.
type Calculator struct {
	kFactor float64
}

func NewCalculator(kFactor int) *Calculator {
	return &Calculator{kFactor: float64(kFactor)}
}

// ExpectedScore returns the probability that a player rated `a` beats a
// player rated `b` under the standard logistic curve.
func (c *Calculator) ExpectedScore(a, b int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(b-a)/400.0))
}

// Deltas returns the signed rating changes for the winner and the loser of
// a decided match. The winner's delta is positive, the loser's negative.
// With a single K-factor the two deltas cancel exactly: the loser's expected
// score is the complement of the winner's, so both magnitudes are
// K*(1-E_winner) before the (sign-symmetric) rounding.
func (c *Calculator) Deltas(winnerElo, loserElo int) (winnerDelta, loserDelta int) {
	expectedWinner := c.ExpectedScore(winnerElo, loserElo)
	expectedLoser := c.ExpectedScore(loserElo, winnerElo)

	winnerDelta = int(math.Round(c.kFactor * (1.0 - expectedWinner)))
	loserDelta = int(math.Round(c.kFactor * (0.0 - expectedLoser)))

	return winnerDelta, loserDelta
}
