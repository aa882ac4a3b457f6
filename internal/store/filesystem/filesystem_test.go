package filesystem

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/photomat/photomat/internal/domain"
)

const testID = "0123456789abcdef0123456789abcdef"

func newTestStore(t *testing.T) (*BlobStore, string) {
	t.Helper()
	dir := t.TempDir()
	bs, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return bs, dir
}

func TestWriteOpenRoundTrip(t *testing.T) {
	bs, _ := newTestStore(t)
	data := []byte("encoded-still")
	if err := bs.Write(testID, bytes.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Repeated opens all succeed; reading is non-destructive.
	for i := 0; i < 2; i++ {
		rc, err := bs.Open(testID)
		if err != nil {
			t.Fatalf("Open #%d: %v", i, err)
		}
		got, _ := io.ReadAll(rc)
		rc.Close()
		if !bytes.Equal(got, data) {
			t.Fatalf("payload mismatch: %q", got)
		}
	}
}

func TestWriteRefusesOverwrite(t *testing.T) {
	bs, _ := newTestStore(t)
	if err := bs.Write(testID, bytes.NewReader([]byte("one")), 3); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := bs.Write(testID, bytes.NewReader([]byte("two")), 3); err == nil {
		t.Fatalf("second write for same id must fail")
	}
}

func TestWriteShortReadCleansUp(t *testing.T) {
	bs, dir := newTestStore(t)
	err := bs.Write(testID, bytes.NewReader([]byte("abc")), 10)
	if err == nil {
		t.Fatalf("short payload must fail")
	}
	if _, serr := os.Stat(filepath.Join(dir, testID+".blob")); !errors.Is(serr, os.ErrNotExist) {
		t.Fatalf("partial blob must not remain")
	}
}

func TestDeleteIdempotent(t *testing.T) {
	bs, dir := newTestStore(t)
	if err := bs.Write(testID, bytes.NewReader([]byte("x")), 1); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := bs.Delete(testID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, testID+".blob")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("blob must be gone")
	}
	if err := bs.Delete(testID); err != nil {
		t.Fatalf("repeat Delete must be a no-op: %v", err)
	}
}

func TestInvalidIDsRejected(t *testing.T) {
	bs, _ := newTestStore(t)
	bad := []string{"", "short", "../../etc/passwd", "ABCDEF0123456789ABCDEF0123456789", testID + "00"}
	for _, id := range bad {
		if err := bs.Write(id, bytes.NewReader([]byte("x")), 1); !errors.Is(err, domain.ErrInvalidID) {
			t.Errorf("Write(%q) err = %v, want ErrInvalidID", id, err)
		}
		if _, err := bs.Open(id); !errors.Is(err, domain.ErrInvalidID) {
			t.Errorf("Open(%q) err = %v, want ErrInvalidID", id, err)
		}
		if err := bs.Delete(id); !errors.Is(err, domain.ErrInvalidID) {
			t.Errorf("Delete(%q) err = %v, want ErrInvalidID", id, err)
		}
	}
}

func TestListSkipsFreshAndForeignFiles(t *testing.T) {
	bs, dir := newTestStore(t)
	if err := bs.Write(testID, bytes.NewReader([]byte("x")), 1); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// A file still inside the write-grace window is not listed.
	ids, err := bs.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("fresh blob must be skipped, got %v", ids)
	}

	old := time.Now().Add(-time.Minute)
	if err := os.Chtimes(filepath.Join(dir, testID+".blob"), old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write foreign: %v", err)
	}

	ids, err = bs.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 1 || ids[0] != testID {
		t.Fatalf("unexpected ids: %v", ids)
	}
}
