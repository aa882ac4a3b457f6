// Package app defines the application layer "ports" (interfaces) that the
// capture-to-delivery pipeline depends upon. It follows a hexagonal
// (ports & adapters) design: this package declares what the core needs,
// while adapter packages (SQLite+filesystem storage, the camera stream,
// the frame encoder, the HTTP layer, janitor jobs) provide concrete
// implementations. No I/O, logging, SQL, or network concerns belong here.
package app

import (
	"context"
	"image"
	"io"
	"time"

	"github.com/photomat/photomat/internal/encoder"
)

// Clock abstracts time to enable deterministic testing of expiry logic.
type Clock interface {
	// Now returns the current wall-clock time.
	Now() time.Time
}

// PhotoStore is the storage port for captured photos. Implementations must
// provide the read-modes split (preview reads never change state, delivery
// reads mark Delivered once) and the single-consume invariant.
type PhotoStore interface {
	// Put persists a new photo blob under id with an absolute expiry.
	// 'r' streams exactly 'size' bytes of the encoded still. Ids are never
	// overwritten; a duplicate insert is an error.
	Put(ctx context.Context, id string, r io.Reader, size int64, createdAt, expiresAt time.Time) error

	// Get is the non-consuming read used for the on-kiosk preview. It does
	// not change photo state.
	Get(ctx context.Context, id string) (rc io.ReadCloser, size int64, err error)

	// Deliver is the remote delivery read. The first successful call moves
	// the photo Captured -> Delivered; later calls before consumption still
	// succeed. Absent or consumed photos return ErrNotFound.
	Deliver(ctx context.Context, id string) (rc io.ReadCloser, size int64, err error)

	// Consume destroys the photo exactly once. The first call removes the
	// record and its bytes; later calls (or unknown ids) return ErrGone.
	Consume(ctx context.Context, id string) error

	// Delete is the idempotent kiosk-side removal (retake, session end).
	// Unknown or already-deleted ids are a no-op, not an error.
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes photos whose expiry precedes 't' and returns
	// the count affected.
	DeleteExpired(ctx context.Context, t time.Time) (n int, err error)

	// Reconcile deletes blob orphans left by crashes. Idempotent and safe
	// to run periodically.
	Reconcile(ctx context.Context) error
}

// FrameSource is the live camera port. Failure to produce a frame is a
// user-visible condition, not a core-logic fault.
type FrameSource interface {
	// Ready reports whether the stream can currently produce frames.
	Ready(ctx context.Context) error
	// Frame returns the most recent frame from the stream.
	Frame(ctx context.Context) (image.Image, error)
}

// FrameEncoder turns a raw frame into the stored still.
type FrameEncoder interface {
	Encode(frame image.Image, o encoder.Orientation) ([]byte, error)
	Thumbnail(still []byte, maxEdge uint) ([]byte, error)
}

// Uplink hands a captured still off to the remote delivery endpoint.
// Upload failures are surfaced distinctly from capture failures and never
// roll back the local photo.
type Uplink interface {
	Upload(ctx context.Context, filename string, still []byte) (imageURL string, err error)
}

// Collector receives metric emissions from the capture path. Optional.
type Collector interface {
	Inc(name string, delta int64)
	Observe(name string, v int64)
}
