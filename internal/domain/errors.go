// Package domain errors.go contains sentinel errors
package domain

import "errors"

// Sentinel domain-level errors reused by higher layers.
var (
	ErrInvalidID         = errors.New("invalid photo id")
	ErrFrameNotReady     = errors.New("frame not ready")
	ErrCameraUnavailable = errors.New("camera unavailable")
	ErrBadTransition     = errors.New("invalid photo state transition")
)
