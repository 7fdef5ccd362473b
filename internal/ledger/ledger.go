// Package ledger derives point balances and leaderboard standings from the
// append-only transaction history. Nothing here is ever stored: every number
// is recomputed from the ledger, so a stored total can never drift from the
// derived one.
package ledger

import (
	"sort"

	"github.com/evandyer/cleanloop/internal/model"
)

// pointsPerLevel is the lifetime-points width of one leaderboard level.
const pointsPerLevel = 100

// Balance computes the spendable wallet balance from a user's transactions:
// earned kinds add, everything else subtracts, clamped at zero so redemption
// races can never surface a negative wallet.
func Balance(txs []model.Transaction) int {
	balance := 0
	for _, t := range txs {
		if t.Kind.Earned() {
			balance += t.Amount
		} else {
			balance -= t.Amount
		}
	}
	if balance < 0 {
		return 0
	}
	return balance
}

// Level maps lifetime earned points to a leaderboard level.
func Level(points int) int {
	return points/pointsPerLevel + 1
}

// Standing is one leaderboard row.
type Standing struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Points int    `json:"points"`
	Level  int    `json:"level"`
	Rank   int    `json:"rank"`
}

// Leaderboard ranks users by gross lifetime earnings. Only earned transactions
// count — redemptions spend the wallet but do not cost leaderboard standing.
// Ties break by ascending user id so the ordering is deterministic.
func Leaderboard(txs []model.Transaction) []Standing {
	totals := make(map[int64]int)
	for _, t := range txs {
		if t.Kind.Earned() {
			totals[t.UserID] += t.Amount
		}
	}

	standings := make([]Standing, 0, len(totals))
	for userID, points := range totals {
		standings = append(standings, Standing{
			UserID: userID,
			Points: points,
			Level:  Level(points),
		})
	}

	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Points != standings[j].Points {
			return standings[i].Points > standings[j].Points
		}
		return standings[i].UserID < standings[j].UserID
	})

	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings
}
