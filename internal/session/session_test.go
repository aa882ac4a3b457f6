package session

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/photomat/photomat/internal/domain"
)

func TestBeginCurrentEnd(t *testing.T) {
	m := New(0, nil, nil)
	s, err := m.Begin(Contact{"email": "visitor@example.com"})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if s.ID == "" {
		t.Fatalf("session id must be set")
	}

	cur, err := m.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if cur.ID != s.ID || cur.Contact["email"] != "visitor@example.com" {
		t.Fatalf("unexpected snapshot: %+v", cur)
	}

	if !m.End("done") {
		t.Fatalf("End must report an active session")
	}
	if _, err := m.Current(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if m.End("done") {
		t.Fatalf("second End must report no session")
	}
}

func TestSingleActiveSession(t *testing.T) {
	m := New(0, nil, nil)
	if _, err := m.Begin(nil); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := m.Begin(nil); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
	m.End("done")
	if _, err := m.Begin(nil); err != nil {
		t.Fatalf("Begin after End: %v", err)
	}
}

func TestAttachPhoto(t *testing.T) {
	m := New(0, nil, nil)
	id := domain.PhotoID("0123456789abcdef0123456789abcdef")
	if err := m.AttachPhoto(id); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	m.Begin(nil)
	if err := m.AttachPhoto(id); err != nil {
		t.Fatalf("AttachPhoto: %v", err)
	}
	// Retake replaces the previous photo.
	id2 := domain.PhotoID("fedcba9876543210fedcba9876543210")
	if err := m.AttachPhoto(id2); err != nil {
		t.Fatalf("AttachPhoto retake: %v", err)
	}
	cur, _ := m.Current()
	if cur.PhotoID != id2 {
		t.Fatalf("photo id = %s, want %s", cur.PhotoID, id2)
	}
}

func TestIdleExpiry(t *testing.T) {
	var ends atomic.Int32
	var reason atomic.Value
	m := New(20*time.Millisecond, func(r string) {
		reason.Store(r)
		ends.Add(1)
	}, nil)
	m.Begin(nil)

	deadline := time.Now().Add(2 * time.Second)
	for ends.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session never expired")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if r := reason.Load(); r != "idle" {
		t.Fatalf("reason = %v, want idle", r)
	}
	if _, err := m.Current(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expired session must be cleared")
	}
}

func TestTouchDefersExpiry(t *testing.T) {
	var ends atomic.Int32
	m := New(50*time.Millisecond, func(string) { ends.Add(1) }, nil)
	m.Begin(nil)

	// Keep touching well within the idle window; the session must survive.
	for i := 0; i < 5; i++ {
		time.Sleep(20 * time.Millisecond)
		m.Touch()
	}
	if ends.Load() != 0 {
		t.Fatalf("session expired despite activity")
	}
	if _, err := m.Current(); err != nil {
		t.Fatalf("session must still be active: %v", err)
	}
}
