package lifecycle

import "testing"

func TestTokenReward(t *testing.T) {
	tests := []struct {
		amount string
		want   int
	}{
		{"3 kg", 30},
		{"2.5 kg", 25},
		{"0.3 kg", 5},   // floors to 3, below the minimum
		{"about 1.5 bags", 15},
		{"a small pile", 5}, // no number, minimum payout
		{"", 5},
		{"10", 100},
		{"1.99 kg", 19}, // floored, never rounded up
	}

	for _, tc := range tests {
		if got := TokenReward(tc.amount); got != tc.want {
			t.Errorf("TokenReward(%q) = %d, want %d", tc.amount, got, tc.want)
		}
	}
}
