// Package store provides the concrete implementation of the application
// PhotoStore port by composing lower-layer persistence ports (Index and
// BlobStorage). External packages should construct the store via New and
// interact only through the app.PhotoStore interface.
package store

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/photomat/photomat/internal/app"
)

// Store composes an Index and BlobStorage to satisfy app.PhotoStore.
// It decides whether to inline photo data or place it in blob storage
// based on an inline size threshold; encoded stills usually land in blob
// storage, the inline path keeps tiny payloads and tests cheap.
type Store struct {
	index     Index
	blobs     BlobStorage
	clock     app.Clock
	inlineMax int64
}

// New returns a Store implementation of app.PhotoStore.
func New(index Index, blobs BlobStorage, clock app.Clock, inlineMax int64) *Store {
	return &Store{index: index, blobs: blobs, clock: clock, inlineMax: inlineMax}
}

var _ app.PhotoStore = (*Store)(nil)

// Put persists a photo. Data <= inlineMax is stored inline; larger data
// is written to blob storage and only the reference is kept in the index.
func (s *Store) Put(ctx context.Context, id string, r io.Reader, size int64, createdAt, expiresAt time.Time) error {
	if s == nil || s.index == nil {
		return errors.New("store not properly initialized")
	}
	if size <= 0 {
		return errors.New("size must be positive")
	}
	var inline []byte
	external := false
	if size <= s.inlineMax {
		inline = make([]byte, size)
		if _, err := io.ReadFull(r, inline); err != nil {
			return err
		}
	} else {
		if err := s.blobs.Write(id, r, size); err != nil {
			return err
		}
		external = true
	}
	if err := s.index.Insert(ctx, id, inline, external, size, createdAt, expiresAt); err != nil {
		if external {
			_ = s.blobs.Delete(id) // don't leave an orphan behind a failed insert
		}
		return err
	}
	return nil
}

// Get is the non-consuming preview read.
func (s *Store) Get(ctx context.Context, id string) (io.ReadCloser, int64, error) {
	rec, err := s.index.Get(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	return s.open(id, rec)
}

// Deliver is the delivery read: captured -> delivered on the first call,
// still readable on repeats until consumption.
func (s *Store) Deliver(ctx context.Context, id string) (io.ReadCloser, int64, error) {
	rec, err := s.index.Deliver(ctx, id, s.clock.Now())
	if err != nil {
		return nil, 0, err
	}
	return s.open(id, rec)
}

func (s *Store) open(id string, rec *Record) (io.ReadCloser, int64, error) {
	if rec.External {
		f, err := s.blobs.Open(id)
		if err != nil {
			return nil, 0, err
		}
		return f, rec.Size, nil
	}
	return io.NopCloser(newInlineReader(rec.Inline)), int64(len(rec.Inline)), nil
}

// Consume destroys the photo exactly once; repeats report ErrGone.
func (s *Store) Consume(ctx context.Context, id string) error {
	removed, external, err := s.index.Remove(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return app.ErrGone
	}
	if external {
		_ = s.blobs.Delete(id) // best-effort; Reconcile sweeps stragglers
	}
	return nil
}

// Delete is the idempotent kiosk-side removal: absent ids are a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	removed, external, err := s.index.Remove(ctx, id)
	if err != nil {
		return err
	}
	if removed && external {
		_ = s.blobs.Delete(id)
	}
	return nil
}

// DeleteExpired removes expired photos before the given time and returns the count.
// Blob files for expired records are removed best-effort.
func (s *Store) DeleteExpired(ctx context.Context, t time.Time) (int, error) {
	expired, err := s.index.ExpireBefore(ctx, t)
	if err != nil {
		return 0, err
	}
	for _, rec := range expired {
		if rec.External {
			_ = s.blobs.Delete(rec.ID)
		}
	}
	return len(expired), nil
}

// Reconcile scans for blob orphans and removes them.
func (s *Store) Reconcile(ctx context.Context) error {
	if s.index == nil || s.blobs == nil {
		return errors.New("store not properly initialized")
	}
	blobIDs, err := s.blobs.List()
	if err != nil {
		return err
	}
	extIDs, err := s.index.ListExternalIDs(ctx)
	if err != nil {
		return err
	}
	indexSet := make(map[string]struct{}, len(extIDs))
	for _, id := range extIDs {
		indexSet[id] = struct{}{}
	}
	// Any blob without an index entry is an orphan.
	for _, bid := range blobIDs {
		if _, ok := indexSet[bid]; !ok {
			_ = s.blobs.Delete(bid)
		}
	}
	return nil
}

// inlineReader provides a zero-allocation Read over a byte slice.
type inlineReader struct {
	b []byte
}

func newInlineReader(b []byte) *inlineReader { return &inlineReader{b: b} }

func (r *inlineReader) Read(p []byte) (int, error) {
	if len(r.b) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.b)
	r.b = r.b[n:]
	return n, nil
}
