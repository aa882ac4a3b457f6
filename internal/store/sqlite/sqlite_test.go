package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/photomat/photomat/internal/app"
	"github.com/photomat/photomat/internal/domain"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "index.db?_busy_timeout=5000")
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	ix, err := New(db)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ix
}

const testID = "0123456789abcdef0123456789abcdef"

func insert(t *testing.T, ix *Index, id string, inline []byte, external bool, expiresAt time.Time) {
	t.Helper()
	if err := ix.Insert(context.Background(), id, inline, external, 10, time.Now().UTC(), expiresAt); err != nil {
		t.Fatalf("Insert: %v", err)
	}
}

func TestInsertAndGet(t *testing.T) {
	ix := openTestIndex(t)
	insert(t, ix, testID, []byte("payload"), false, time.Now().Add(time.Hour))

	rec, err := ix.Get(context.Background(), testID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(rec.Inline) != "payload" || rec.External || rec.State != domain.StateCaptured {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestInsertDuplicateRejected(t *testing.T) {
	ix := openTestIndex(t)
	insert(t, ix, testID, nil, true, time.Now().Add(time.Hour))
	err := ix.Insert(context.Background(), testID, nil, true, 10, time.Now().UTC(), time.Now().Add(time.Hour))
	if err == nil {
		t.Fatalf("duplicate primary key must fail")
	}
}

func TestGetUnknownIsNotFound(t *testing.T) {
	ix := openTestIndex(t)
	if _, err := ix.Get(context.Background(), testID); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeliverMarksOnce(t *testing.T) {
	ix := openTestIndex(t)
	insert(t, ix, testID, []byte("p"), false, time.Now().Add(time.Hour))

	first := time.Now().UTC().Truncate(time.Second)
	rec, err := ix.Deliver(context.Background(), testID, first)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if rec.State != domain.StateDelivered {
		t.Fatalf("state = %s, want delivered", rec.State)
	}

	var deliveredAt int64
	row := ix.db.QueryRow(`SELECT delivered_at FROM photos WHERE id=?`, testID)
	if err := row.Scan(&deliveredAt); err != nil {
		t.Fatalf("scan: %v", err)
	}

	// A later repeat read does not rewrite the delivery timestamp.
	if _, err := ix.Deliver(context.Background(), testID, first.Add(time.Minute)); err != nil {
		t.Fatalf("repeat Deliver: %v", err)
	}
	row = ix.db.QueryRow(`SELECT delivered_at FROM photos WHERE id=?`, testID)
	var again int64
	if err := row.Scan(&again); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if again != deliveredAt {
		t.Fatalf("delivered_at rewritten: %d -> %d", deliveredAt, again)
	}
}

func TestRemove(t *testing.T) {
	ix := openTestIndex(t)
	insert(t, ix, testID, nil, true, time.Now().Add(time.Hour))

	removed, external, err := ix.Remove(context.Background(), testID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !removed || !external {
		t.Fatalf("removed=%v external=%v", removed, external)
	}
	removed, _, err = ix.Remove(context.Background(), testID)
	if err != nil {
		t.Fatalf("second Remove: %v", err)
	}
	if removed {
		t.Fatalf("second Remove must report absence")
	}
}

func TestExpireBefore(t *testing.T) {
	ix := openTestIndex(t)
	now := time.Now().UTC()
	insert(t, ix, testID, nil, true, now.Add(-time.Minute))
	insert(t, ix, "fedcba9876543210fedcba9876543210", []byte("p"), false, now.Add(time.Hour))

	expired, err := ix.ExpireBefore(context.Background(), now)
	if err != nil {
		t.Fatalf("ExpireBefore: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != testID || !expired[0].External {
		t.Fatalf("unexpected expirations: %+v", expired)
	}
	if _, err := ix.Get(context.Background(), testID); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expired row must be deleted")
	}
}

func TestListExternalIDs(t *testing.T) {
	ix := openTestIndex(t)
	insert(t, ix, testID, nil, true, time.Now().Add(time.Hour))
	insert(t, ix, "fedcba9876543210fedcba9876543210", []byte("p"), false, time.Now().Add(time.Hour))

	ids, err := ix.ListExternalIDs(context.Background())
	if err != nil {
		t.Fatalf("ListExternalIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != testID {
		t.Fatalf("unexpected ids: %v", ids)
	}
}
