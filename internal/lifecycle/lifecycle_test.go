package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/evandyer/cleanloop/internal/database"
	"github.com/evandyer/cleanloop/internal/model"
	"github.com/evandyer/cleanloop/internal/oracle"
	"github.com/evandyer/cleanloop/internal/store"
)

type fakeImages struct {
	data []byte
	err  error
}

func (f *fakeImages) Get(ctx context.Context, key string) ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.data, "image/jpeg", nil
}

type fakeJudge struct {
	judgment *oracle.Comparison
	err      error
}

func (f *fakeJudge) Compare(ctx context.Context, original, collected oracle.Image, reportedAmount string) (*oracle.Comparison, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.judgment, nil
}

type lifecycleFixture struct {
	svc          *Service
	reports      *store.ReportStore
	transactions *store.TransactionStore
	users        *store.UserStore
	judge        *fakeJudge
	images       *fakeImages
}

func setupLifecycle(t *testing.T) *lifecycleFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &lifecycleFixture{
		reports:      store.NewReportStore(db),
		transactions: store.NewTransactionStore(db),
		users:        store.NewUserStore(db),
		judge:        &fakeJudge{},
		images:       &fakeImages{data: []byte("jpeg bytes")},
	}
	logger := slog.New(slog.DiscardHandler)
	f.svc = NewService(f.reports, store.NewCollectionStore(db), f.images, f.judge, logger)
	return f
}

func (f *lifecycleFixture) user(t *testing.T, email string) *model.User {
	t.Helper()
	u, err := f.users.Create(email, "Test User")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestCreateReportPaysReporter(t *testing.T) {
	f := setupLifecycle(t)
	reporter := f.user(t, "reporter@example.com")

	report, err := f.svc.CreateReport(store.CreateParams{
		ReporterID: reporter.ID,
		Location:   "Main St Park",
		WasteType:  "plastic",
		Amount:     "3 kg",
		ImageKey:   "images/abc.jpg",
	})
	if err != nil {
		t.Fatalf("create report: %v", err)
	}
	if report.Status != model.StatusPending {
		t.Errorf("status = %q, want pending", report.Status)
	}

	txs, err := f.transactions.ListByUser(reporter.ID, 0)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txs) != 1 || txs[0].Amount != 10 || txs[0].Kind != model.KindEarnedReport {
		t.Errorf("transactions = %+v, want one earned_report of 10", txs)
	}
}

func TestClaimErrors(t *testing.T) {
	f := setupLifecycle(t)
	reporter := f.user(t, "reporter@example.com")
	collector := f.user(t, "collector@example.com")
	rival := f.user(t, "rival@example.com")

	report, err := f.svc.CreateReport(store.CreateParams{ReporterID: reporter.ID, Location: "park", WasteType: "glass", Amount: "1 kg"})
	if err != nil {
		t.Fatalf("create report: %v", err)
	}

	if _, err := f.svc.Claim(9999, collector.ID); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("missing report: err = %v, want ErrReportNotFound", err)
	}
	if _, err := f.svc.Claim(report.ID, reporter.ID); !errors.Is(err, ErrSelfCollection) {
		t.Errorf("self claim: err = %v, want ErrSelfCollection", err)
	}

	claimed, err := f.svc.Claim(report.ID, collector.ID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed.Status != model.StatusInProgress {
		t.Errorf("status = %q, want in_progress", claimed.Status)
	}

	if _, err := f.svc.Claim(report.ID, rival.ID); !errors.Is(err, ErrNotClaimable) {
		t.Errorf("late claim: err = %v, want ErrNotClaimable", err)
	}
}

func claimedReport(t *testing.T, f *lifecycleFixture) (*model.Report, *model.User) {
	t.Helper()
	reporter := f.user(t, "reporter@example.com")
	collector := f.user(t, "collector@example.com")

	report, err := f.svc.CreateReport(store.CreateParams{ReporterID: reporter.ID, Location: "park", WasteType: "plastic", Amount: "3 kg", ImageKey: "images/orig.jpg"})
	if err != nil {
		t.Fatalf("create report: %v", err)
	}
	if _, err := f.svc.Claim(report.ID, collector.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	return report, collector
}

func TestVerifyAccepted(t *testing.T) {
	f := setupLifecycle(t)
	report, collector := claimedReport(t, f)
	f.judge.judgment = &oracle.Comparison{SameWaste: true, QuantityMatch: true, Confidence: 0.9}

	result, err := f.svc.Verify(context.Background(), report.ID, collector.ID, oracle.Image{Data: []byte("new"), MimeType: "image/jpeg"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !result.Accepted {
		t.Fatal("expected acceptance")
	}
	if result.Tokens != 30 {
		t.Errorf("tokens = %d, want 30 for %q", result.Tokens, "3 kg")
	}
	if result.Collected == nil || result.Collected.ReportID != report.ID {
		t.Errorf("collected = %+v", result.Collected)
	}

	got, _ := f.reports.GetByID(report.ID)
	if got.Status != model.StatusVerified {
		t.Errorf("status = %q, want verified", got.Status)
	}

	// Collector's wallet: flat reporting reward went to the reporter, the 30
	// tokens to the collector.
	txs, _ := f.transactions.ListByUser(collector.ID, 0)
	if len(txs) != 1 || txs[0].Amount != 30 || txs[0].Kind != model.KindEarnedCollect {
		t.Errorf("collector transactions = %+v", txs)
	}
}

func TestVerifyRejectedJudgments(t *testing.T) {
	tests := []struct {
		name     string
		judgment oracle.Comparison
	}{
		{"different waste", oracle.Comparison{SameWaste: false, QuantityMatch: true, Confidence: 0.95}},
		{"quantity mismatch", oracle.Comparison{SameWaste: true, QuantityMatch: false, Confidence: 0.95}},
		{"confidence at threshold", oracle.Comparison{SameWaste: true, QuantityMatch: true, Confidence: 0.7}},
		{"low confidence", oracle.Comparison{SameWaste: true, QuantityMatch: true, Confidence: 0.4}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := setupLifecycle(t)
			report, collector := claimedReport(t, f)
			f.judge.judgment = &tc.judgment

			result, err := f.svc.Verify(context.Background(), report.ID, collector.ID, oracle.Image{Data: []byte("new"), MimeType: "image/jpeg"})
			if err != nil {
				t.Fatalf("verify: %v", err)
			}
			if result.Accepted {
				t.Fatal("expected rejection")
			}

			// Rejection leaves the claim held so the collector can retry.
			got, _ := f.reports.GetByID(report.ID)
			if got.Status != model.StatusInProgress {
				t.Errorf("status = %q, want in_progress", got.Status)
			}
			txs, _ := f.transactions.ListByUser(collector.ID, 0)
			if len(txs) != 0 {
				t.Errorf("rejected verify paid out: %+v", txs)
			}
		})
	}
}

func TestVerifyBarelyAboveThreshold(t *testing.T) {
	f := setupLifecycle(t)
	report, collector := claimedReport(t, f)
	f.judge.judgment = &oracle.Comparison{SameWaste: true, QuantityMatch: true, Confidence: 0.71}

	result, err := f.svc.Verify(context.Background(), report.ID, collector.ID, oracle.Image{Data: []byte("new"), MimeType: "image/jpeg"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !result.Accepted {
		t.Fatal("0.71 is above the strict threshold and must accept")
	}
}

func TestVerifyOracleFailure(t *testing.T) {
	f := setupLifecycle(t)
	report, collector := claimedReport(t, f)
	f.judge.err = errors.New("model unavailable")

	if _, err := f.svc.Verify(context.Background(), report.ID, collector.ID, oracle.Image{Data: []byte("new"), MimeType: "image/jpeg"}); err == nil {
		t.Fatal("oracle failure must surface as an error, not a rejection")
	}

	got, _ := f.reports.GetByID(report.ID)
	if got.Status != model.StatusInProgress {
		t.Errorf("status = %q, want in_progress", got.Status)
	}
}

func TestVerifyImageFetchFailure(t *testing.T) {
	f := setupLifecycle(t)
	report, collector := claimedReport(t, f)
	f.images.err = errors.New("object missing")

	if _, err := f.svc.Verify(context.Background(), report.ID, collector.ID, oracle.Image{Data: []byte("new"), MimeType: "image/jpeg"}); err == nil {
		t.Fatal("image fetch failure must surface as an error")
	}
}

func TestVerifyWrongCollector(t *testing.T) {
	f := setupLifecycle(t)
	report, _ := claimedReport(t, f)
	intruder := f.user(t, "intruder@example.com")
	f.judge.judgment = &oracle.Comparison{SameWaste: true, QuantityMatch: true, Confidence: 0.9}

	if _, err := f.svc.Verify(context.Background(), report.ID, intruder.ID, oracle.Image{Data: []byte("new"), MimeType: "image/jpeg"}); !errors.Is(err, ErrNotCollector) {
		t.Errorf("err = %v, want ErrNotCollector", err)
	}
}

func TestVerifyUnclaimedReport(t *testing.T) {
	f := setupLifecycle(t)
	reporter := f.user(t, "reporter@example.com")
	collector := f.user(t, "collector@example.com")

	report, err := f.svc.CreateReport(store.CreateParams{ReporterID: reporter.ID, Location: "park", WasteType: "metal", Amount: "2 kg"})
	if err != nil {
		t.Fatalf("create report: %v", err)
	}

	if _, err := f.svc.Verify(context.Background(), report.ID, collector.ID, oracle.Image{Data: []byte("new"), MimeType: "image/jpeg"}); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("err = %v, want ErrNotInProgress", err)
	}
}

func TestSweeperReleasesStaleClaims(t *testing.T) {
	f := setupLifecycle(t)
	reporter := f.user(t, "reporter@example.com")
	collector := f.user(t, "collector@example.com")

	report, err := f.svc.CreateReport(store.CreateParams{ReporterID: reporter.ID, Location: "park", WasteType: "plastic", Amount: "1 kg"})
	if err != nil {
		t.Fatalf("create report: %v", err)
	}
	// Backdate the claim past the lease.
	if ok, err := f.reports.Claim(report.ID, collector.ID, time.Now().Add(-claimTTL-time.Minute)); err != nil || !ok {
		t.Fatalf("claim: ok=%v err=%v", ok, err)
	}

	var released []int64
	sweeper := NewSweeper(f.reports, nil, func(ids []int64) { released = ids }, slog.New(slog.DiscardHandler))
	sweeper.sweep()

	if len(released) != 1 || released[0] != report.ID {
		t.Fatalf("released = %v, want [%d]", released, report.ID)
	}
	got, _ := f.reports.GetByID(report.ID)
	if got.Status != model.StatusPending {
		t.Errorf("status = %q, want pending", got.Status)
	}
}

func TestSweeperStartStop(t *testing.T) {
	f := setupLifecycle(t)

	sweeper := NewSweeper(f.reports, nil, nil, slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())
	sweeper.Start(ctx)
	cancel()
	sweeper.Stop() // must not hang
}
