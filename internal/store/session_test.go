package store

import (
	"testing"
	"time"

	"github.com/evandyer/cleanloop/internal/database"
)

func setupSessionTestDB(t *testing.T) (*SessionStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSessionStore(db), NewUserStore(db)
}

func TestSessionCreateAndGet(t *testing.T) {
	ss, us := setupSessionTestDB(t)
	u := createTestUser(t, us, "sess@example.com")

	sess, err := ss.Create(u.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.Token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(sess.Token))
	}
	if !sess.ExpiresAt.After(time.Now()) {
		t.Errorf("expires_at = %v, want future", sess.ExpiresAt)
	}

	got, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got == nil || got.UserID != u.ID {
		t.Fatalf("session = %+v, want user %d", got, u.ID)
	}
}

func TestSessionTokensUnique(t *testing.T) {
	ss, us := setupSessionTestDB(t)
	u := createTestUser(t, us, "sess@example.com")

	a, err := ss.Create(u.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := ss.Create(u.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Token == b.Token {
		t.Fatal("two sessions share a token")
	}
}

func TestSessionDelete(t *testing.T) {
	ss, us := setupSessionTestDB(t)
	u := createTestUser(t, us, "sess@example.com")

	sess, err := ss.Create(u.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := ss.Delete(sess.Token); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got != nil {
		t.Errorf("session still resolves after delete")
	}
}

func TestSessionUnknownToken(t *testing.T) {
	ss, _ := setupSessionTestDB(t)

	got, err := ss.GetByToken("deadbeef")
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got != nil {
		t.Errorf("session = %+v, want nil", got)
	}
}
