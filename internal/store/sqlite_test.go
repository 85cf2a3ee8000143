package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/avalier/sitechat/internal/domain"
)

func newTestStore(t *testing.T) SessionStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return st
}

func TestLoadWithoutSessionReturnsNil(t *testing.T) {
	st := newTestStore(t)

	if session := st.Load(context.Background()); session != nil {
		t.Errorf("Expected nil for a fresh store, got %+v", session)
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	want := &domain.UserSession{ID: "u-1", Name: "Ada"}
	if err := st.Save(ctx, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got := st.Load(ctx)
	if got == nil {
		t.Fatal("Expected a session after save")
	}
	if got.ID != "u-1" || got.Name != "Ada" || got.Email != "" {
		t.Errorf("Unexpected session: %+v", got)
	}
}

func TestSaveOverwritesFullRecord(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.Save(ctx, &domain.UserSession{ID: "u-1", Name: "Ada"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := st.Save(ctx, &domain.UserSession{ID: "u-1", Name: "Ada", Email: "ada@example.com"}); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	got := st.Load(ctx)
	if got == nil {
		t.Fatal("Expected a session")
	}
	if got.Email != "ada@example.com" {
		t.Errorf("Expected the email to be updated, got %q", got.Email)
	}
	if got.ID != "u-1" {
		t.Errorf("Expected the id to be stable, got %q", got.ID)
	}
}

func TestClearRemovesSession(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.Save(ctx, &domain.UserSession{ID: "u-1", Name: "Ada"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := st.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if session := st.Load(ctx); session != nil {
		t.Errorf("Expected nil after clear, got %+v", session)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.Clear(ctx); err != nil {
		t.Errorf("Clear on an empty store failed: %v", err)
	}
	if err := st.Clear(ctx); err != nil {
		t.Errorf("Second clear failed: %v", err)
	}
}

func TestEmptyEmailStoredAsNull(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.Save(ctx, &domain.UserSession{ID: "u-1", Name: "Ada"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	sqlite, ok := st.(*SQLiteStore)
	if !ok {
		t.Fatal("Expected a SQLite-backed store")
	}
	var isNull bool
	row := sqlite.db.QueryRowContext(ctx, `SELECT email IS NULL FROM sessions WHERE profile_key = ?`, profileKey)
	if err := row.Scan(&isNull); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if !isNull {
		t.Error("Expected an absent email to be stored as NULL")
	}
}

// A poisoned record must behave like an absent one, never break onboarding.
func TestLoadFailsClosedOnIncompleteRecord(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.Save(ctx, &domain.UserSession{ID: "u-1", Name: "Ada"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	sqlite, ok := st.(*SQLiteStore)
	if !ok {
		t.Fatal("Expected a SQLite-backed store")
	}
	if _, err := sqlite.db.ExecContext(ctx, `UPDATE sessions SET name = ''`); err != nil {
		t.Fatalf("Failed to poison the record: %v", err)
	}

	if session := st.Load(ctx); session != nil {
		t.Errorf("Expected a poisoned record to load as nil, got %+v", session)
	}
}
