// Package store defines internal persistence adapter ports used by the
// higher-level PhotoStore implementation. These ports isolate the concrete
// SQLite index and filesystem blob storage so they can be tested and
// evolved independently. Callers outside this package interact only with
// the app.PhotoStore implementation, not these internal details.
package store

import (
	"context"
	"io"
	"time"

	"github.com/photomat/photomat/internal/domain"
)

// Record is the index's view of one photo: metadata, the lifecycle state,
// and either the inlined still or a reference to blob storage.
type Record struct {
	Inline    []byte
	External  bool // true if payload stored in blob storage
	Size      int64
	State     domain.State
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Index abstracts the metadata/index operations (backed by SQLite). It
// owns the per-photo state column and enforces the monotonic lifecycle at
// the SQL level.
type Index interface {
	Insert(ctx context.Context, id string, inline []byte, external bool, size int64, createdAt, expiresAt time.Time) error
	// Get reads a row without changing its state (kiosk preview).
	Get(ctx context.Context, id string) (*Record, error)
	// Deliver reads a row, moving captured -> delivered on the first call.
	Deliver(ctx context.Context, id string, now time.Time) (*Record, error)
	// Remove hard-deletes a row, reporting whether it existed and whether
	// its payload lived in blob storage.
	Remove(ctx context.Context, id string) (removed bool, external bool, err error)
	ExpireBefore(ctx context.Context, t time.Time) (expired []ExpiredRecord, err error)
	// ListExternalIDs returns IDs of photos whose payloads are stored externally.
	ListExternalIDs(ctx context.Context) ([]string, error)
}

// BlobStorage abstracts large payload persistence on the filesystem.
type BlobStorage interface {
	Write(id string, r io.Reader, size int64) error
	Open(id string) (io.ReadCloser, error)
	Delete(id string) error
	// List returns all blob IDs present in storage (filenames sans extension).
	List() ([]string, error)
}

// ExpiredRecord represents an expired photo needing blob cleanup.
type ExpiredRecord struct {
	ID       string
	External bool
}
