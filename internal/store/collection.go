package store

import (
	"database/sql"
	"fmt"

	"github.com/evandyer/cleanloop/internal/model"
)

type CollectionStore struct {
	db *sql.DB
}

func NewCollectionStore(db *sql.DB) *CollectionStore {
	return &CollectionStore{db: db}
}

func scanCollectedWaste(scanner interface{ Scan(...any) error }) (*model.CollectedWaste, error) {
	var c model.CollectedWaste
	err := scanner.Scan(&c.ID, &c.ReportID, &c.CollectorID, &c.Judgment, &c.Status, &c.CollectedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const collectedCols = `id, report_id, collector_id, judgment, status, collected_at`

// RecordVerified applies an accepted verification as one unit of work: the
// report flips to verified, the CollectedWaste row is created, the collector's
// token reward lands in the ledger, and the notification is written. All four
// commit together or not at all.
//
// The status update is conditional on the report still being in_progress and
// held by this collector; if the claim was released or verified elsewhere in
// the meantime, RecordVerified returns ok=false and changes nothing.
func (s *CollectionStore) RecordVerified(reportID, collectorID int64, judgment string, tokens int, description, message, kind string) (*model.CollectedWaste, bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE reports SET status = 'verified'
		 WHERE id = ? AND status = 'in_progress' AND collector_id = ?`,
		reportID, collectorID,
	)
	if err != nil {
		return nil, false, fmt.Errorf("mark verified: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, false, nil
	}

	result, err = tx.Exec(
		`INSERT INTO collected_wastes (report_id, collector_id, judgment, status) VALUES (?, ?, ?, 'verified')`,
		reportID, collectorID, judgment,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert collected waste: %w", err)
	}
	collectedID, err := result.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("last insert id: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO transactions (user_id, kind, amount, description) VALUES (?, ?, ?, ?)`,
		collectorID, model.KindEarnedCollect, tokens, description,
	); err != nil {
		return nil, false, fmt.Errorf("insert collect transaction: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO notifications (user_id, message, kind) VALUES (?, ?, ?)`,
		collectorID, message, kind,
	); err != nil {
		return nil, false, fmt.Errorf("insert collect notification: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+collectedCols+` FROM collected_wastes WHERE id = ?`, collectedID)
	c, err := scanCollectedWaste(row)
	if err != nil {
		return nil, true, fmt.Errorf("get collected waste: %w", err)
	}
	return c, true, nil
}

func (s *CollectionStore) GetByReportID(reportID int64) (*model.CollectedWaste, error) {
	row := s.db.QueryRow(`SELECT `+collectedCols+` FROM collected_wastes WHERE report_id = ?`, reportID)
	c, err := scanCollectedWaste(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get collected waste: %w", err)
	}
	return c, nil
}

func (s *CollectionStore) ListByCollector(collectorID int64) ([]model.CollectedWaste, error) {
	rows, err := s.db.Query(
		`SELECT `+collectedCols+` FROM collected_wastes WHERE collector_id = ? ORDER BY collected_at DESC`,
		collectorID,
	)
	if err != nil {
		return nil, fmt.Errorf("list collected wastes: %w", err)
	}
	defer rows.Close()

	var collected []model.CollectedWaste
	for rows.Next() {
		c, err := scanCollectedWaste(rows)
		if err != nil {
			return nil, fmt.Errorf("scan collected waste: %w", err)
		}
		collected = append(collected, *c)
	}
	return collected, rows.Err()
}
