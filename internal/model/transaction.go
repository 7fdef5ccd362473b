package model

import (
	"strings"
	"time"
)

// TransactionKind tags a ledger entry. Kinds prefixed "earned" contribute
// positively to a balance; all others negatively.
type TransactionKind string

const (
	KindEarnedReport  TransactionKind = "earned_report"
	KindEarnedCollect TransactionKind = "earned_collect"
	KindRedeemed      TransactionKind = "redeemed"
)

// Earned reports whether the kind credits the wallet.
func (k TransactionKind) Earned() bool {
	return strings.HasPrefix(string(k), "earned")
}

// Transaction is an append-only ledger entry. Rows are never updated or
// deleted; balances are always derived from the full history.
type Transaction struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Kind        TransactionKind `json:"kind"`
	Amount      int             `json:"amount"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}
