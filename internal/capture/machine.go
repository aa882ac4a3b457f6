// Package capture implements the countdown/capture state machine that
// drives a kiosk photo session: Idle -> Countdown(n) -> Capturing ->
// Reviewing, with Reviewing -> Idle on retake. It is the only
// timing-sensitive component; everything it does to photos goes through
// the Capturer port.
package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/photomat/photomat/internal/domain"
)

// State is the machine's position in the capture cycle.
type State int

const (
	Idle State = iota
	Countdown
	Capturing
	Reviewing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Countdown:
		return "countdown"
	case Capturing:
		return "capturing"
	case Reviewing:
		return "reviewing"
	}
	return "unknown"
}

// ErrCaptureInFlight rejects a Start while a countdown or capture is active.
var ErrCaptureInFlight = errors.New("capture already in flight")

// ErrNotReviewing rejects a Retake outside the review screen.
var ErrNotReviewing = errors.New("no photo under review")

// Capturer is the machine's port into the application service. Satisfied
// by *app.Service.
type Capturer interface {
	Ready(ctx context.Context) error
	Capture(ctx context.Context) (domain.PhotoID, error)
	Discard(ctx context.Context, id string) error
}

// Config holds the machine tunables.
type Config struct {
	Count     int                               // ticks before capture fires
	Interval  time.Duration                     // tick spacing, 1s in production
	NewTicker func(d time.Duration) Ticker      // nil => NewTicker
	Logger    *slog.Logger                      // nil => slog.Default()
	OnTick    func(remaining int)               // optional UI hook, called outside the lock
	OnState   func(s State, id domain.PhotoID)  // optional UI hook, called outside the lock
}

// Machine serializes one capture cycle per kiosk session. All methods are
// safe for concurrent use.
type Machine struct {
	capturer Capturer
	cfg      Config

	mu        sync.Mutex
	state     State
	remaining int
	photoID   domain.PhotoID
	lastErr   error
	cancelCh  chan struct{}
}

// New constructs a Machine in Idle.
func New(capturer Capturer, cfg Config) *Machine {
	if cfg.Count <= 0 {
		cfg.Count = 5
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = NewTicker
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Machine{capturer: capturer, cfg: cfg}
}

// View is an immutable snapshot for the kiosk UI poll.
type View struct {
	State     State
	Remaining int
	PhotoID   domain.PhotoID
	Err       string
}

// Snapshot returns the current machine view.
func (m *Machine) Snapshot() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := View{State: m.state, Remaining: m.remaining, PhotoID: m.photoID}
	if m.lastErr != nil {
		v.Err = m.lastErr.Error()
	}
	return v
}

// Start begins a countdown. Valid only from Idle; a second call while a
// countdown or capture is in flight returns ErrCaptureInFlight. If the
// camera stream is unavailable the machine stays Idle and the error is
// returned to the caller. ctx bounds only the readiness probe: the
// countdown itself outlives the triggering request.
func (m *Machine) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state != Idle {
		m.mu.Unlock()
		return ErrCaptureInFlight
	}
	if err := m.capturer.Ready(ctx); err != nil {
		m.lastErr = err
		m.mu.Unlock()
		return err
	}
	m.state = Countdown
	m.remaining = m.cfg.Count
	m.lastErr = nil
	m.photoID = ""
	cancel := make(chan struct{})
	m.cancelCh = cancel
	m.mu.Unlock()

	m.emitState(Countdown, "")
	go m.run(cancel)
	return nil
}

// Cancel stops an in-flight countdown (idle-timeout navigation). No photo
// is produced. Outside Countdown it is a no-op.
func (m *Machine) Cancel() {
	m.mu.Lock()
	if m.state != Countdown {
		m.mu.Unlock()
		return
	}
	close(m.cancelCh)
	m.cancelCh = nil
	m.state = Idle
	m.remaining = 0
	m.mu.Unlock()
	m.emitState(Idle, "")
}

// Retake deletes the photo under review and returns to Idle. Valid only
// from Reviewing.
func (m *Machine) Retake(ctx context.Context) error {
	m.mu.Lock()
	if m.state != Reviewing {
		m.mu.Unlock()
		return ErrNotReviewing
	}
	id := m.photoID
	m.state = Idle
	m.photoID = ""
	m.mu.Unlock()

	if err := m.capturer.Discard(ctx, id.String()); err != nil {
		m.cfg.Logger.Warn("retake discard failed", "id", id.String(), "err", err)
	}
	m.emitState(Idle, "")
	return nil
}

// run consumes ticks until cancellation or the countdown reaches zero,
// then fires the capture exactly once.
func (m *Machine) run(cancel <-chan struct{}) {
	tk := m.cfg.NewTicker(m.cfg.Interval)
	defer tk.Stop()
	for {
		select {
		case <-cancel:
			return
		case <-tk.C():
			stop, fire := m.tick()
			if fire {
				m.fire()
				return
			}
			if stop {
				return
			}
		}
	}
}

// tick decrements the countdown. fire is true when the count reached zero
// and capture must run; stop is true when the machine left Countdown
// underneath us (cancellation race).
func (m *Machine) tick() (stop, fire bool) {
	m.mu.Lock()
	if m.state != Countdown {
		m.mu.Unlock()
		return true, false
	}
	m.remaining--
	rem := m.remaining
	if rem <= 0 {
		m.state = Capturing
	}
	m.mu.Unlock()

	if m.cfg.OnTick != nil {
		m.cfg.OnTick(rem)
	}
	if rem <= 0 {
		m.emitState(Capturing, "")
		return false, true
	}
	return false, false
}

// fire invokes the capture and settles into Reviewing or back to Idle.
// The background context is deliberate: the capture must not die with the
// HTTP request that started the countdown.
func (m *Machine) fire() {
	id, err := m.capturer.Capture(context.Background())

	m.mu.Lock()
	if err != nil {
		m.state = Idle
		m.lastErr = err
		m.mu.Unlock()
		m.cfg.Logger.Warn("capture failed", "err", err)
		m.emitState(Idle, "")
		return
	}
	m.state = Reviewing
	m.photoID = id
	m.mu.Unlock()
	m.emitState(Reviewing, id)
}

func (m *Machine) emitState(s State, id domain.PhotoID) {
	if m.cfg.OnState != nil {
		m.cfg.OnState(s, id)
	}
}
