// Package session tracks the single active visitor interaction at the
// kiosk. A session holds an opaque contact record and at most one photo
// id, and ends either explicitly or by idle timeout.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/photomat/photomat/internal/domain"
)

var (
	// ErrSessionActive is returned by Begin when a visitor session is
	// already in progress.
	ErrSessionActive = errors.New("session already active")
	// ErrNoSession is returned when an operation requires an active
	// session and none exists.
	ErrNoSession = errors.New("no active session")
)

// Contact is the visitor's delivery details. The pipeline never inspects
// it; it is captured at the start screen and echoed back to the UI.
type Contact map[string]string

// Session is a snapshot of the active visitor interaction.
type Session struct {
	ID        string
	Contact   Contact
	PhotoID   domain.PhotoID
	StartedAt time.Time
}

// Manager owns the single active session. All methods are safe for
// concurrent use.
type Manager struct {
	mu     sync.Mutex
	active *Session
	timer  *time.Timer
	idle   time.Duration
	onEnd  func(reason string)
	log    *slog.Logger
}

// New returns a Manager that expires idle sessions after idle. onEnd is
// invoked (without the manager lock held) whenever a session ends,
// letting the caller cancel countdowns and discard unreviewed photos.
func New(idle time.Duration, onEnd func(reason string), logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if onEnd == nil {
		onEnd = func(string) {}
	}
	return &Manager{idle: idle, onEnd: onEnd, log: logger.With("domain", "session")}
}

// Begin starts a new session for the given contact record. Only one
// session may be active at a time.
func (m *Manager) Begin(contact Contact) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return Session{}, ErrSessionActive
	}
	s := &Session{
		ID:        uuid.NewString(),
		Contact:   contact,
		StartedAt: time.Now().UTC(),
	}
	m.active = s
	m.armTimerLocked()
	m.log.Info("session started", "session_id", s.ID)
	return *s, nil
}

// Current returns a snapshot of the active session.
func (m *Manager) Current() (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return Session{}, ErrNoSession
	}
	return *m.active, nil
}

// Touch resets the idle timer. Every UI interaction routes through here.
func (m *Manager) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return
	}
	m.armTimerLocked()
}

// AttachPhoto records the photo captured during this session, replacing
// any previous one (retake).
func (m *Manager) AttachPhoto(id domain.PhotoID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ErrNoSession
	}
	m.active.PhotoID = id
	m.armTimerLocked()
	return nil
}

// End terminates the active session, if any, and reports whether one was
// active. The configured onEnd hook fires with the given reason.
func (m *Manager) End(reason string) bool {
	m.mu.Lock()
	if m.active == nil {
		m.mu.Unlock()
		return false
	}
	id := m.active.ID
	m.active = nil
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()

	m.log.Info("session ended", "session_id", id, "reason", reason)
	m.onEnd(reason)
	return true
}

// armTimerLocked (re)starts the idle expiry timer. Callers must hold mu.
// An idle duration of zero disables expiry.
func (m *Manager) armTimerLocked() {
	if m.idle <= 0 {
		return
	}
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.idle, func() { m.End("idle") })
}
