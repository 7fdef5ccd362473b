package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/evandyer/cleanloop/internal/model"
)

type ReportStore struct {
	db *sql.DB
}

func NewReportStore(db *sql.DB) *ReportStore {
	return &ReportStore{db: db}
}

func scanReport(scanner interface{ Scan(...any) error }) (*model.Report, error) {
	var r model.Report
	var collector sql.NullInt64
	var claimedAt sql.NullTime

	err := scanner.Scan(
		&r.ID, &r.ReporterID, &r.Location, &r.WasteType, &r.Amount,
		&r.ImageKey, &r.Analysis, &r.Status, &collector, &claimedAt, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if collector.Valid {
		r.CollectorID = &collector.Int64
	}
	if claimedAt.Valid {
		t := claimedAt.Time
		r.ClaimedAt = &t
	}
	return &r, nil
}

const reportCols = `id, reporter_id, location, waste_type, amount, image_key, analysis, status, collector_id, claimed_at, created_at`

// CreateParams holds the fields of a new report. Status always starts pending.
type CreateParams struct {
	ReporterID int64
	Location   string
	WasteType  string
	Amount     string
	ImageKey   string
	Analysis   string
}

func (s *ReportStore) Create(p CreateParams) (*model.Report, error) {
	result, err := s.db.Exec(
		`INSERT INTO reports (reporter_id, location, waste_type, amount, image_key, analysis, status)
		 VALUES (?, ?, ?, ?, ?, ?, 'pending')`,
		p.ReporterID, p.Location, p.WasteType, p.Amount, p.ImageKey, p.Analysis,
	)
	if err != nil {
		return nil, fmt.Errorf("insert report: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// CreateWithReward inserts the report, the reporter's flat reward transaction,
// and the matching notification as one unit of work. A crash can never leave
// a report without its reporting reward.
func (s *ReportStore) CreateWithReward(p CreateParams, points int, description, message, kind string) (*model.Report, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO reports (reporter_id, location, waste_type, amount, image_key, analysis, status)
		 VALUES (?, ?, ?, ?, ?, ?, 'pending')`,
		p.ReporterID, p.Location, p.WasteType, p.Amount, p.ImageKey, p.Analysis,
	)
	if err != nil {
		return nil, fmt.Errorf("insert report: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO transactions (user_id, kind, amount, description) VALUES (?, ?, ?, ?)`,
		p.ReporterID, model.KindEarnedReport, points, description,
	); err != nil {
		return nil, fmt.Errorf("insert report transaction: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO notifications (user_id, message, kind) VALUES (?, ?, ?)`,
		p.ReporterID, message, kind,
	); err != nil {
		return nil, fmt.Errorf("insert report notification: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

func (s *ReportStore) GetByID(id int64) (*model.Report, error) {
	row := s.db.QueryRow(`SELECT `+reportCols+` FROM reports WHERE id = ?`, id)
	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return r, nil
}

// ListRecent returns the newest reports first.
func (s *ReportStore) ListRecent(limit int) ([]model.Report, error) {
	rows, err := s.db.Query(
		`SELECT `+reportCols+` FROM reports ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list recent reports: %w", err)
	}
	defer rows.Close()
	return collectReports(rows)
}

// ListCollectionTasks returns reports for the collection board, newest first.
// Verified reports stay visible so collectors see the outcome of their work.
func (s *ReportStore) ListCollectionTasks(limit int) ([]model.Report, error) {
	rows, err := s.db.Query(
		`SELECT `+reportCols+` FROM reports ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list collection tasks: %w", err)
	}
	defer rows.Close()
	return collectReports(rows)
}

func collectReports(rows *sql.Rows) ([]model.Report, error) {
	var reports []model.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, *r)
	}
	return reports, rows.Err()
}

// Claim atomically moves a pending report to in_progress for the given
// collector. The WHERE clause is the whole guard: a second concurrent claim,
// a claim on a non-pending report, or a reporter claiming their own report
// all match zero rows. Returns whether the claim won.
func (s *ReportStore) Claim(reportID, collectorID int64, now time.Time) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE reports SET status = 'in_progress', collector_id = ?, claimed_at = ?
		 WHERE id = ? AND status = 'pending' AND reporter_id <> ?`,
		collectorID, now.UTC(), reportID, collectorID,
	)
	if err != nil {
		return false, fmt.Errorf("claim report: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// ReleaseStale reverts in_progress reports whose claim lease started before
// cutoff back to pending, clearing the collector. Returns the released ids.
func (s *ReportStore) ReleaseStale(cutoff time.Time) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT id FROM reports WHERE status = 'in_progress' AND claimed_at IS NOT NULL AND claimed_at < ?`,
		cutoff.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("find stale claims: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan stale claim: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale claims: %w", err)
	}

	for _, id := range ids {
		// Conditional again: the collector may have verified between the
		// read and this write, and a verified report must stay verified.
		if _, err := s.db.Exec(
			`UPDATE reports SET status = 'pending', collector_id = NULL, claimed_at = NULL
			 WHERE id = ? AND status = 'in_progress'`,
			id,
		); err != nil {
			return nil, fmt.Errorf("release claim %d: %w", id, err)
		}
	}
	return ids, nil
}

// UpdateStatus sets the status directly, optionally with a collector. General
// escape hatch; the lifecycle transitions use the conditional methods instead.
func (s *ReportStore) UpdateStatus(reportID int64, status model.ReportStatus, collectorID *int64) (*model.Report, error) {
	var collector sql.NullInt64
	if collectorID != nil {
		collector = sql.NullInt64{Int64: *collectorID, Valid: true}
	}
	_, err := s.db.Exec(
		`UPDATE reports SET status = ?, collector_id = ? WHERE id = ?`,
		status, collector, reportID,
	)
	if err != nil {
		return nil, fmt.Errorf("update report status: %w", err)
	}
	return s.GetByID(reportID)
}
