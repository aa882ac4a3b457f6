package capture

import "time"

// Ticker abstracts time.Ticker so tests can drive the countdown
// deterministically.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewTicker is the production Ticker factory.
func NewTicker(d time.Duration) Ticker { return realTicker{t: time.NewTicker(d)} }
