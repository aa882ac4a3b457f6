// Package camera adapts a platform camera device to the FrameSource port.
// Device negotiation itself is opaque to the core: a Grabber is supplied
// by the platform (or by NewTestPattern in dev/test) and this package only
// manages stream lifecycle and last-good-frame caching.
package camera

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/photomat/photomat/internal/domain"
)

// Config mirrors the constraints the kiosk requests from the device:
// target resolution and the user-facing (selfie) camera preference.
type Config struct {
	Width      int
	Height     int
	FacingUser bool
}

// Grabber is the platform device hook. Grab returns the next frame in
// sensor orientation; implementations decide their own pacing.
type Grabber interface {
	Grab() (image.Image, error)
	Close() error
}

// Stream is a live camera stream satisfying the app.FrameSource port.
type Stream struct {
	cfg     Config
	grabber Grabber

	mu     sync.Mutex
	last   image.Image
	closed bool
}

// Open wraps a device grabber into a Stream. A nil grabber means no
// camera was negotiated (permission denied or no device) and surfaces as
// domain.ErrCameraUnavailable.
func Open(g Grabber, cfg Config) (*Stream, error) {
	if g == nil {
		return nil, domain.ErrCameraUnavailable
	}
	return &Stream{cfg: withDefaults(cfg), grabber: g}, nil
}

// Sensor geometry is landscape; portrait displays rotate at encode time.
func withDefaults(cfg Config) Config {
	if cfg.Width <= 0 {
		cfg.Width = 1920
	}
	if cfg.Height <= 0 {
		cfg.Height = 1080
	}
	return cfg
}

// Ready probes the device by grabbing a frame. Errors are reported as
// camera-unavailable so the capture machine stays Idle.
func (s *Stream) Ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrCameraUnavailable
	}
	frame, err := s.grabber.Grab()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCameraUnavailable, err)
	}
	s.last = frame
	return nil
}

// Frame returns the most recent frame, grabbing a fresh one when the
// device cooperates and falling back to the last good frame otherwise.
func (s *Stream) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, domain.ErrCameraUnavailable
	}
	frame, err := s.grabber.Grab()
	if err != nil {
		if s.last != nil {
			return s.last, nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrCameraUnavailable, err)
	}
	s.last = frame
	return frame, nil
}

// Close releases the device. Safe to call twice.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.last = nil
	return s.grabber.Close()
}
