// Package lifecycle is the report state machine: pending → in_progress →
// verified, with stale claims reverting to pending. Every transition is
// guarded by a conditional update in the store, so concurrent collectors can
// race but never corrupt state.
package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/evandyer/cleanloop/internal/model"
	"github.com/evandyer/cleanloop/internal/oracle"
	"github.com/evandyer/cleanloop/internal/store"
)

const (
	// claimTTL is how long a collector may hold a claim before the sweeper
	// releases it back to pending.
	claimTTL = 30 * time.Minute

	// acceptThreshold gates automatic verification. Strictly greater-than:
	// a confidence of exactly 0.7 is rejected.
	acceptThreshold = 0.7
)

// imageFetcher is the slice of the image store Verify needs.
type imageFetcher interface {
	Get(ctx context.Context, key string) ([]byte, string, error)
}

// Service drives report transitions and their reward side effects.
type Service struct {
	reports     *store.ReportStore
	collections *store.CollectionStore
	images      imageFetcher
	judge       oracle.Judge
	logger      *slog.Logger
}

func NewService(rs *store.ReportStore, cs *store.CollectionStore, images imageFetcher, judge oracle.Judge, logger *slog.Logger) *Service {
	return &Service{
		reports:     rs,
		collections: cs,
		images:      images,
		judge:       judge,
		logger:      logger,
	}
}

// CreateReport enters a new report into the lifecycle as pending and pays the
// reporter the flat reporting reward, atomically.
func (s *Service) CreateReport(p store.CreateParams) (*model.Report, error) {
	message := fmt.Sprintf("You've earned %d points for reporting waste!", reportPoints)
	report, err := s.reports.CreateWithReward(
		p, reportPoints,
		"Points earned for reporting waste",
		message, "reward",
	)
	if err != nil {
		return nil, err
	}

	s.logger.Info("report created",
		"report_id", report.ID,
		"reporter_id", report.ReporterID,
		"points", reportPoints,
	)
	return report, nil
}

// Claim moves a pending report to in_progress for the collector. The store
// update is atomic; on a lost race or invalid attempt the report is re-read
// to produce a precise rejection.
func (s *Service) Claim(reportID, collectorID int64) (*model.Report, error) {
	ok, err := s.reports.Claim(reportID, collectorID, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		report, err := s.reports.GetByID(reportID)
		if err != nil {
			return nil, err
		}
		switch {
		case report == nil:
			return nil, ErrReportNotFound
		case report.ReporterID == collectorID:
			return nil, ErrSelfCollection
		default:
			return nil, ErrNotClaimable
		}
	}

	report, err := s.reports.GetByID(reportID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("report claimed", "report_id", reportID, "collector_id", collectorID)
	return report, nil
}

// VerifyResult is the outcome of a verification attempt that reached the
// oracle and got a parseable judgment back.
type VerifyResult struct {
	Accepted  bool                  `json:"accepted"`
	Judgment  oracle.Comparison     `json:"judgment"`
	Tokens    int                   `json:"tokens,omitempty"`
	Collected *model.CollectedWaste `json:"collected,omitempty"`
}

// Verify runs the double-verification step for a claimed report: the original
// photo and the freshly collected photo go to the oracle, and the judgment is
// accepted only when both checks pass above the confidence threshold.
//
// On accept, the status flip, CollectedWaste record, token reward, and
// notification commit as one unit. On reject the report stays in_progress and
// the collector may retry with a new photo. Oracle and storage failures come
// back as errors and never count as success.
func (s *Service) Verify(ctx context.Context, reportID, collectorID int64, collected oracle.Image) (*VerifyResult, error) {
	report, err := s.reports.GetByID(reportID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, ErrReportNotFound
	}
	if report.Status != model.StatusInProgress {
		return nil, ErrNotInProgress
	}
	if report.CollectorID == nil || *report.CollectorID != collectorID {
		return nil, ErrNotCollector
	}

	origData, origType, err := s.images.Get(ctx, report.ImageKey)
	if err != nil {
		return nil, fmt.Errorf("load original image: %w", err)
	}
	original := oracle.Image{Data: origData, MimeType: origType}

	judgment, err := s.judge.Compare(ctx, original, collected, report.Amount)
	if err != nil {
		s.logger.Warn("verification oracle call failed", "report_id", reportID, "error", err)
		return nil, fmt.Errorf("compare images: %w", err)
	}

	accepted := judgment.SameWaste && judgment.QuantityMatch && judgment.Confidence > acceptThreshold
	if !accepted {
		s.logger.Info("verification rejected",
			"report_id", reportID,
			"same_waste", judgment.SameWaste,
			"quantity_match", judgment.QuantityMatch,
			"confidence", judgment.Confidence,
		)
		return &VerifyResult{Accepted: false, Judgment: *judgment}, nil
	}

	tokens := TokenReward(report.Amount)
	judgmentJSON, err := json.Marshal(judgment)
	if err != nil {
		return nil, fmt.Errorf("marshal judgment: %w", err)
	}

	cw, ok, err := s.collections.RecordVerified(
		reportID, collectorID, string(judgmentJSON), tokens,
		"Points earned for collecting waste",
		fmt.Sprintf("Verification successful! You earned %d tokens!", tokens),
		"reward",
	)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The sweeper or another client released the claim mid-verification.
		return nil, ErrClaimLost
	}

	s.logger.Info("report verified",
		"report_id", reportID,
		"collector_id", collectorID,
		"tokens", tokens,
		"confidence", judgment.Confidence,
	)
	return &VerifyResult{Accepted: true, Judgment: *judgment, Tokens: tokens, Collected: cw}, nil
}
