package model

import "time"

// ReportStatus is the persisted lifecycle state of a waste report.
type ReportStatus string

const (
	StatusPending    ReportStatus = "pending"
	StatusInProgress ReportStatus = "in_progress"
	StatusCompleted  ReportStatus = "completed"
	StatusVerified   ReportStatus = "verified"
)

// Valid reports whether s is one of the known report statuses.
func (s ReportStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusVerified:
		return true
	}
	return false
}

type Report struct {
	ID         int64        `json:"id"`
	ReporterID int64        `json:"reporter_id"`
	Location   string       `json:"location"`
	WasteType  string       `json:"waste_type"`
	Amount     string       `json:"amount"`
	ImageKey   string       `json:"image_key,omitempty"`
	Analysis   string       `json:"analysis,omitempty"`
	Status     ReportStatus `json:"status"`
	// CollectorID is nil until a collector claims the report. It acts as an
	// exclusive claim: at most one collector holds in_progress at a time.
	CollectorID *int64     `json:"collector_id"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CollectedWaste records a successfully verified collection. At most one row
// exists per report.
type CollectedWaste struct {
	ID          int64     `json:"id"`
	ReportID    int64     `json:"report_id"`
	CollectorID int64     `json:"collector_id"`
	Judgment    string    `json:"judgment,omitempty"`
	Status      string    `json:"status"`
	CollectedAt time.Time `json:"collected_at"`
}
