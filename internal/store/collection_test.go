package store

import (
	"testing"
	"time"

	"github.com/evandyer/cleanloop/internal/database"
	"github.com/evandyer/cleanloop/internal/model"
)

func setupCollectionTestDB(t *testing.T) (*CollectionStore, *ReportStore, *UserStore, *TransactionStore, *NotificationStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewCollectionStore(db), NewReportStore(db), NewUserStore(db), NewTransactionStore(db), NewNotificationStore(db)
}

func claimedTestReport(t *testing.T, rs *ReportStore, us *UserStore) (*model.Report, *model.User, *model.User) {
	t.Helper()
	reporter := createTestUser(t, us, "reporter@example.com")
	collector := createTestUser(t, us, "collector@example.com")

	report, err := rs.Create(CreateParams{ReporterID: reporter.ID, Location: "park", WasteType: "plastic", Amount: "3 kg"})
	if err != nil {
		t.Fatalf("create report: %v", err)
	}
	if ok, err := rs.Claim(report.ID, collector.ID, time.Now()); err != nil || !ok {
		t.Fatalf("claim: ok=%v err=%v", ok, err)
	}
	return report, reporter, collector
}

func TestRecordVerified(t *testing.T) {
	cs, rs, us, ts, ns := setupCollectionTestDB(t)
	report, _, collector := claimedTestReport(t, rs, us)

	cw, ok, err := cs.RecordVerified(report.ID, collector.ID, `{"same_waste":true}`, 30,
		"Points earned for collecting waste", "You earned 30 tokens!", "reward")
	if err != nil {
		t.Fatalf("record verified: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true for held claim")
	}
	if cw.ReportID != report.ID || cw.CollectorID != collector.ID {
		t.Errorf("collected waste = %+v", cw)
	}

	got, _ := rs.GetByID(report.ID)
	if got.Status != model.StatusVerified {
		t.Errorf("report status = %q, want verified", got.Status)
	}

	txs, err := ts.ListByUser(collector.ID, 0)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
	if txs[0].Kind != model.KindEarnedCollect || txs[0].Amount != 30 {
		t.Errorf("transaction = %+v", txs[0])
	}

	notes, err := ns.ListUnread(collector.ID)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notes))
	}
}

func TestRecordVerifiedClaimLost(t *testing.T) {
	cs, rs, us, ts, _ := setupCollectionTestDB(t)
	report, _, collector := claimedTestReport(t, rs, us)

	// Sweeper released the claim before the verification landed.
	if _, err := rs.ReleaseStale(time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("release: %v", err)
	}

	cw, ok, err := cs.RecordVerified(report.ID, collector.ID, `{}`, 30, "desc", "msg", "reward")
	if err != nil {
		t.Fatalf("record verified: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false after claim release")
	}
	if cw != nil {
		t.Errorf("collected waste = %+v, want nil", cw)
	}

	// Nothing committed: no status change, no reward, no collected row.
	got, _ := rs.GetByID(report.ID)
	if got.Status != model.StatusPending {
		t.Errorf("report status = %q, want pending", got.Status)
	}
	txs, _ := ts.ListByUser(collector.ID, 0)
	if len(txs) != 0 {
		t.Errorf("expected no transactions, got %d", len(txs))
	}
	if existing, _ := cs.GetByReportID(report.ID); existing != nil {
		t.Errorf("collected waste exists: %+v", existing)
	}
}

func TestRecordVerifiedWrongCollector(t *testing.T) {
	cs, rs, us, _, _ := setupCollectionTestDB(t)
	report, _, _ := claimedTestReport(t, rs, us)
	intruder := createTestUser(t, us, "intruder@example.com")

	_, ok, err := cs.RecordVerified(report.ID, intruder.ID, `{}`, 30, "desc", "msg", "reward")
	if err != nil {
		t.Fatalf("record verified: %v", err)
	}
	if ok {
		t.Fatal("only the holding collector may verify")
	}
}

func TestRecordVerifiedTwice(t *testing.T) {
	cs, rs, us, ts, _ := setupCollectionTestDB(t)
	report, _, collector := claimedTestReport(t, rs, us)

	if _, ok, err := cs.RecordVerified(report.ID, collector.ID, `{}`, 30, "desc", "msg", "reward"); err != nil || !ok {
		t.Fatalf("first verify: ok=%v err=%v", ok, err)
	}

	// Second attempt finds the report already verified and changes nothing.
	_, ok, err := cs.RecordVerified(report.ID, collector.ID, `{}`, 30, "desc", "msg", "reward")
	if err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if ok {
		t.Fatal("report must not verify twice")
	}
	txs, _ := ts.ListByUser(collector.ID, 0)
	if len(txs) != 1 {
		t.Errorf("expected 1 transaction, got %d", len(txs))
	}
}

func TestListByCollector(t *testing.T) {
	cs, rs, us, _, _ := setupCollectionTestDB(t)
	report, _, collector := claimedTestReport(t, rs, us)

	if _, ok, err := cs.RecordVerified(report.ID, collector.ID, `{}`, 10, "desc", "msg", "reward"); err != nil || !ok {
		t.Fatalf("verify: ok=%v err=%v", ok, err)
	}

	collected, err := cs.ListByCollector(collector.ID)
	if err != nil {
		t.Fatalf("list by collector: %v", err)
	}
	if len(collected) != 1 {
		t.Fatalf("expected 1 collected waste, got %d", len(collected))
	}
	if collected[0].ReportID != report.ID {
		t.Errorf("report_id = %d, want %d", collected[0].ReportID, report.ID)
	}
}
