package rating

import (
	"math"
	"testing"
)

func TestExpectedScoreMidpoint(t *testing.T) {
	calc := NewCalculator(32)

	if e := calc.ExpectedScore(1000, 1000); math.Abs(e-0.5) > 1e-9 {
		t.Errorf("ExpectedScore(1000, 1000) = %v, want 0.5", e)
	}
}

func TestExpectedScoreFavorsHigherRating(t *testing.T) {
	calc := NewCalculator(32)

	strong := calc.ExpectedScore(1400, 1000)
	weak := calc.ExpectedScore(1000, 1400)

	if strong <= 0.5 {
		t.Errorf("higher-rated player should be favored, got %v", strong)
	}
	if math.Abs(strong+weak-1.0) > 1e-9 {
		t.Errorf("expected scores should be complementary: %v + %v != 1", strong, weak)
	}
}

func TestDeltas(t *testing.T) {
	tests := []struct {
		name       string
		kFactor    int
		winnerElo  int
		loserElo   int
		wantWinner int
		wantLoser  int
	}{
		{
			name:       "equal ratings split K in half",
			kFactor:    32,
			winnerElo:  1000,
			loserElo:   1000,
			wantWinner: 16,
			wantLoser:  -16,
		},
		{
			name:       "favorite wins small",
			kFactor:    32,
			winnerElo:  1400,
			loserElo:   1000,
			wantWinner: 3,
			wantLoser:  -3,
		},
		{
			name:       "upset pays big",
			kFactor:    32,
			winnerElo:  1000,
			loserElo:   1400,
			wantWinner: 29,
			wantLoser:  -29,
		},
		{
			name:       "equal ratings with K=24",
			kFactor:    24,
			winnerElo:  1200,
			loserElo:   1200,
			wantWinner: 12,
			wantLoser:  -12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := NewCalculator(tt.kFactor)
			gotWinner, gotLoser := calc.Deltas(tt.winnerElo, tt.loserElo)
			if gotWinner != tt.wantWinner || gotLoser != tt.wantLoser {
				t.Errorf("Deltas(%d, %d) = (%d, %d), want (%d, %d)",
					tt.winnerElo, tt.loserElo, gotWinner, gotLoser, tt.wantWinner, tt.wantLoser)
			}
		})
	}
}

// With one shared K-factor the signed deltas must cancel regardless of the
// rating gap.
func TestDeltasConservation(t *testing.T) {
	calc := NewCalculator(32)

	gaps := [][2]int{{1000, 1000}, {1250, 1000}, {1000, 1250}, {2000, 800}, {803, 1999}}
	for _, pair := range gaps {
		winnerDelta, loserDelta := calc.Deltas(pair[0], pair[1])
		if winnerDelta+loserDelta != 0 {
			t.Errorf("Deltas(%d, %d) = (%d, %d), sum %d, want 0",
				pair[0], pair[1], winnerDelta, loserDelta, winnerDelta+loserDelta)
		}
		if winnerDelta < 0 {
			t.Errorf("winner delta should never be negative, got %d for %v", winnerDelta, pair)
		}
	}
}
