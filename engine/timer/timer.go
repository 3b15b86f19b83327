// Package timer implements the decoherence countdown.
//
// The timer owns no goroutines. The host delivers one Tick per wall-clock
// second, quoting the Token it was handed when the countdown started or
// resumed. Every cancel, pause, or restart moves the timer to a new
// generation, so a tick scheduled against an older token is ignored
// before any of its logic runs.
package timer

import (
	"errors"
	"io"
	"log/slog"
)

// ErrTimerMisuse is reported when a countdown is started while another
// is still live. The old countdown is canceled first.
var ErrTimerMisuse = errors.New("timer misuse: countdown already active")

// DefaultLowTime is the remaining-seconds threshold for the warning state.
const DefaultLowTime = 10

// Token identifies one live countdown cadence.
type Token uint64

// Status is the lifecycle position of the timer.
type Status int

const (
	Idle Status = iota
	Running
	Paused
	Expired
	Canceled
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Expired:
		return "expired"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Tick is the result of one accepted second.
type Tick struct {
	Token     Token
	Remaining int
	LowTime   bool // remaining crossed the low-time threshold on this tick
	Expired   bool // remaining reached zero on this tick
}

// Timer is a single countdown per level visit.
type Timer struct {
	remaining int
	lowAt     int
	status    Status
	gen       Token
	warned    bool
	misuses   int
	log       *slog.Logger
}

// New creates an idle timer. lowAt is the low-time threshold in seconds.
func New(lowAt int, log *slog.Logger) *Timer {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Timer{lowAt: lowAt, log: log}
}

// Start begins a countdown of seconds and returns its token. Starting
// while a countdown is running or paused cancels it first.
func (t *Timer) Start(seconds int) Token {
	if t.Active() {
		t.misuses++
		t.log.Warn("decoherence timer started while active",
			"error", ErrTimerMisuse, "remaining", t.remaining, "status", t.status.String())
		t.Cancel()
	}
	if seconds < 0 {
		seconds = 0
	}
	t.remaining = seconds
	t.warned = false
	t.status = Running
	t.gen++
	return t.gen
}

// Tick consumes one second for the countdown identified by tok.
// It returns false, without effect, for a stale token or a timer that
// is not running.
func (t *Timer) Tick(tok Token) (Tick, bool) {
	if t.status != Running || tok != t.gen {
		return Tick{}, false
	}

	if t.remaining > 0 {
		t.remaining--
	}
	tk := Tick{Token: tok, Remaining: t.remaining}

	if !t.warned && t.remaining <= t.lowAt {
		t.warned = true
		tk.LowTime = true
	}
	if t.remaining == 0 {
		t.status = Expired
		tk.Expired = true
	}
	return tk, true
}

// Pause stops the cadence and keeps the remaining time exactly.
func (t *Timer) Pause() {
	if t.status != Running {
		return
	}
	t.status = Paused
	t.gen++
}

// Resume restarts a paused countdown on a fresh cadence. A low-time
// warning already reported is not reported again.
// Returns false if the timer was not paused.
func (t *Timer) Resume() (Token, bool) {
	if t.status != Paused {
		return 0, false
	}
	t.status = Running
	t.gen++
	return t.gen, true
}

// Cancel stops the countdown. Canceling an inactive timer is a no-op.
func (t *Timer) Cancel() {
	if !t.Active() {
		return
	}
	t.status = Canceled
	t.gen++
}

// AddTime extends the stored remaining time.
func (t *Timer) AddTime(seconds int) {
	t.remaining += seconds
	if t.remaining < 0 {
		t.remaining = 0
	}
}

// Active reports whether a countdown is running or paused.
func (t *Timer) Active() bool {
	return t.status == Running || t.status == Paused
}

// Token returns the live cadence token while running.
func (t *Timer) Token() (Token, bool) {
	if t.status != Running {
		return 0, false
	}
	return t.gen, true
}

// Remaining returns the stored seconds left.
func (t *Timer) Remaining() int {
	return t.remaining
}

// Status returns the lifecycle status.
func (t *Timer) Status() Status {
	return t.status
}

// Low reports whether remaining time is at or below the threshold.
func (t *Timer) Low() bool {
	return t.remaining <= t.lowAt
}

// Misuses returns how many times Start replaced a live countdown.
func (t *Timer) Misuses() int {
	return t.misuses
}
