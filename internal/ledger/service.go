package ledger

import (
	"fmt"

	"github.com/evandyer/cleanloop/internal/model"
	"github.com/evandyer/cleanloop/internal/store"
)

// Service answers balance and leaderboard queries against the stores.
type Service struct {
	transactions *store.TransactionStore
	users        *store.UserStore
}

func NewService(ts *store.TransactionStore, us *store.UserStore) *Service {
	return &Service{transactions: ts, users: us}
}

// UserBalance recomputes the user's wallet balance from their full history.
func (s *Service) UserBalance(userID int64) (int, error) {
	txs, err := s.transactions.ListByUser(userID, 0)
	if err != nil {
		return 0, fmt.Errorf("load transactions: %w", err)
	}
	return Balance(txs), nil
}

// History returns the user's most recent transactions.
func (s *Service) History(userID int64, limit int) ([]model.Transaction, error) {
	return s.transactions.ListByUser(userID, limit)
}

// Standings builds the leaderboard over all users, with display names filled
// in for rendering.
func (s *Service) Standings() ([]Standing, error) {
	txs, err := s.transactions.ListAll()
	if err != nil {
		return nil, fmt.Errorf("load all transactions: %w", err)
	}

	standings := Leaderboard(txs)
	for i := range standings {
		u, err := s.users.GetByID(standings[i].UserID)
		if err != nil {
			return nil, fmt.Errorf("resolve user %d: %w", standings[i].UserID, err)
		}
		if u != nil {
			standings[i].Name = u.Name
		}
	}
	return standings, nil
}
