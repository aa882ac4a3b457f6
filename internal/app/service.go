// Package app contains the application orchestration layer for photomat.
// It wires domain validation with the storage, camera, encoder, and uplink
// ports without performing any I/O itself.
package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/photomat/photomat/internal/domain"
	"github.com/photomat/photomat/internal/encoder"
	"github.com/photomat/photomat/internal/metrics"
)

// ErrNotFound indicates the photo was not found (unknown, deleted, or expired).
var ErrNotFound = errors.New("photo not found")

// ErrGone indicates single-use consumption already happened for this photo.
var ErrGone = errors.New("photo already consumed")

// ErrSizeExceeded indicates an ingested payload is empty or over the configured maximum.
var ErrSizeExceeded = errors.New("size exceeded")

// Service orchestrates capture, preview, delivery, and consumption using
// the injected ports.
type Service struct {
	Store       PhotoStore
	Frames      FrameSource
	Encoder     FrameEncoder
	Uplink      Uplink    // optional; nil disables remote handoff
	Metrics     Collector // optional
	Clock       Clock
	Orientation encoder.Orientation
	RetainFor   time.Duration
	MaxBytes    int64
	Logger      *slog.Logger
}

func (s *Service) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Ready probes the camera stream. Called by the capture state machine
// before entering a countdown so an unavailable camera keeps it Idle.
func (s *Service) Ready(ctx context.Context) error {
	if s.Frames == nil {
		return domain.ErrCameraUnavailable
	}
	return s.Frames.Ready(ctx)
}

// Capture grabs a frame, encodes it upright, and stores it under a fresh
// id. The remote uplink handoff is best-effort: its failure is logged and
// counted but surfaced nowhere in the return value, because the kiosk
// keeps the local copy either way.
func (s *Service) Capture(ctx context.Context) (domain.PhotoID, error) {
	frame, err := s.Frames.Frame(ctx)
	if err != nil {
		return "", err
	}
	still, err := s.Encoder.Encode(frame, s.Orientation)
	if err != nil {
		return "", err
	}
	id, err := domain.NewID()
	if err != nil { // extremely unlikely, but propagate
		return "", err
	}
	now := s.Clock.Now()
	if err := s.Store.Put(ctx, id.String(), bytes.NewReader(still), int64(len(still)), now, now.Add(s.RetainFor)); err != nil {
		return "", err
	}
	if s.Metrics != nil {
		s.Metrics.Observe(metrics.SummaryStillBytes, int64(len(still)))
	}
	if s.Uplink != nil {
		if url, upErr := s.Uplink.Upload(ctx, id.String(), still); upErr != nil {
			s.log().Warn("uplink handoff failed", "id", id.String(), "err", upErr)
			if s.Metrics != nil {
				s.Metrics.Inc(metrics.CounterUplinkFailures, 1)
			}
		} else {
			s.log().Info("uplink handoff complete", "id", id.String(), "url", url)
		}
	}
	return id, nil
}

// Ingest stores an already-encoded still under a caller-supplied id. This
// is the server side of the remote handoff contract: the kiosk uploads
// keyed by the id it minted at capture time so the QR link resolves here.
func (s *Service) Ingest(ctx context.Context, idStr string, still []byte) (domain.PhotoID, error) {
	id, err := domain.ParseID(idStr)
	if err != nil {
		return "", domain.ErrInvalidID
	}
	if int64(len(still)) <= 0 || (s.MaxBytes > 0 && int64(len(still)) > s.MaxBytes) {
		return "", ErrSizeExceeded
	}
	now := s.Clock.Now()
	if err := s.Store.Put(ctx, id.String(), bytes.NewReader(still), int64(len(still)), now, now.Add(s.RetainFor)); err != nil {
		return "", err
	}
	return id, nil
}

// Preview is the non-consuming read used by the on-kiosk review screen.
func (s *Service) Preview(ctx context.Context, idStr string) (io.ReadCloser, int64, error) {
	id, err := domain.ParseID(idStr)
	if err != nil {
		return nil, 0, domain.ErrInvalidID
	}
	return s.Store.Get(ctx, id.String())
}

// PreviewThumbnail returns a downscaled copy of the stored still for the
// review screen. maxEdge bounds the longest output edge in pixels.
func (s *Service) PreviewThumbnail(ctx context.Context, idStr string, maxEdge uint) ([]byte, error) {
	rc, _, err := s.Preview(ctx, idStr)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	still, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return s.Encoder.Thumbnail(still, maxEdge)
}

// Deliver validates the id and performs the delivery read: the first
// successful call marks the photo Delivered, repeats before consumption
// still succeed.
func (s *Service) Deliver(ctx context.Context, idStr string) (io.ReadCloser, int64, error) {
	id, err := domain.ParseID(idStr)
	if err != nil {
		return nil, 0, domain.ErrInvalidID
	}
	return s.Store.Deliver(ctx, id.String())
}

// Consume performs the explicit single-use consumption step. Exactly the
// first call per id succeeds; every later call reports ErrGone.
func (s *Service) Consume(ctx context.Context, idStr string) error {
	id, err := domain.ParseID(idStr)
	if err != nil {
		return domain.ErrInvalidID
	}
	return s.Store.Consume(ctx, id.String())
}

// Discard is the kiosk-side removal used by retake and session teardown.
// It is idempotent and never treats an absent photo as an error.
func (s *Service) Discard(ctx context.Context, idStr string) error {
	id, err := domain.ParseID(idStr)
	if err != nil {
		return domain.ErrInvalidID
	}
	return s.Store.Delete(ctx, id.String())
}
