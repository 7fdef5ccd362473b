package lifecycle

import (
	"math"
	"regexp"
	"strconv"
)

const (
	// reportPoints is the flat reward for submitting a report, paid at
	// creation time regardless of any later verification outcome.
	reportPoints = 10

	// tokenRate is tokens per reported unit (e.g. per kg).
	tokenRate = 10

	// minTokens is the payout floor for a verified collection.
	minTokens = 5
)

var magnitudeRe = regexp.MustCompile(`[0-9]+(\.[0-9]+)?`)

// TokenReward computes the collection payout from the originally reported
// amount string: the first numeric token times the rate, floored, with a
// minimum of minTokens. "2.5 kg" pays 25; a string with no number pays 5.
// The payout deliberately tracks the reported quantity, not the collected
// one — the incentive rewards accurate reporting.
func TokenReward(amount string) int {
	magnitude := 0.0
	if m := magnitudeRe.FindString(amount); m != "" {
		if v, err := strconv.ParseFloat(m, 64); err == nil {
			magnitude = v
		}
	}

	tokens := int(math.Floor(magnitude * tokenRate))
	if tokens < minTokens {
		return minTokens
	}
	return tokens
}
