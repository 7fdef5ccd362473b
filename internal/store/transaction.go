package store

import (
	"database/sql"
	"fmt"

	"github.com/evandyer/cleanloop/internal/model"
)

type TransactionStore struct {
	db *sql.DB
}

func NewTransactionStore(db *sql.DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func scanTransaction(scanner interface{ Scan(...any) error }) (*model.Transaction, error) {
	var t model.Transaction
	err := scanner.Scan(&t.ID, &t.UserID, &t.Kind, &t.Amount, &t.Description, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const transactionCols = `id, user_id, kind, amount, description, created_at`

// Append adds a ledger entry. The table is append-only: there is no update or
// delete on this store by design.
func (s *TransactionStore) Append(userID int64, kind model.TransactionKind, amount int, description string) (*model.Transaction, error) {
	result, err := s.db.Exec(
		`INSERT INTO transactions (user_id, kind, amount, description) VALUES (?, ?, ?, ?)`,
		userID, kind, amount, description,
	)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+transactionCols+` FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

// ListByUser returns the user's most recent transactions, newest first.
// limit <= 0 means no limit.
func (s *TransactionStore) ListByUser(userID int64, limit int) ([]model.Transaction, error) {
	q := `SELECT ` + transactionCols + ` FROM transactions WHERE user_id = ? ORDER BY created_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListAll returns every transaction, newest first. Feeds the leaderboard.
func (s *TransactionStore) ListAll() ([]model.Transaction, error) {
	rows, err := s.db.Query(`SELECT ` + transactionCols + ` FROM transactions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list all transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var txs []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}
