// Package poller implements the payment confirmation loop for bank-transfer
// checkouts: query the payment-status endpoint until the transfer lands, the
// retry budget runs out, or the session is cancelled.
package poller

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Checker performs one idempotent payment-status query.
type Checker interface {
	CheckPayment(ctx context.Context, reference string, expectedAmount float64) (bool, error)
}

type Config struct {
	Interval    time.Duration
	MaxAttempts int
}

const (
	DefaultInterval    = 3 * time.Second
	DefaultMaxAttempts = 40
)

type Poller struct {
	checker Checker
	cfg     Config
}

func New(checker Checker, cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &Poller{checker: checker, cfg: cfg}
}

type CancelFunc func()

// Session outcome states. The state word is written exactly once via
// compare-and-swap, which is what guarantees at most one of
// onSuccess/onTimeout fires, and nothing fires after a cancel.
const (
	stateRunning int32 = iota
	stateSucceeded
	stateTimedOut
	stateCancelled
)

type session struct {
	checker   Checker
	cfg       Config
	reference string
	amount    float64
	onSuccess func()
	onTimeout func()

	state    atomic.Int32
	stop     context.CancelFunc
	attempts int
}

// Start begins one polling session and returns its cancel function. The
// first check runs immediately so a transfer that landed before polling
// started is detected without waiting a full interval. Callbacks run on the
// session goroutine.
//
// Cancel is idempotent, safe after natural completion, and guarantees that
// neither callback fires afterwards; a response to an in-flight check of a
// cancelled session is discarded.
func (p *Poller) Start(reference string, expectedAmount float64, onSuccess, onTimeout func()) CancelFunc {
	ctx, stop := context.WithCancel(context.Background())
	s := &session{
		checker:   p.checker,
		cfg:       p.cfg,
		reference: reference,
		amount:    expectedAmount,
		onSuccess: onSuccess,
		onTimeout: onTimeout,
		stop:      stop,
	}

	go s.run(ctx)

	return func() {
		if s.state.CompareAndSwap(stateRunning, stateCancelled) {
			slog.Info("Payment polling cancelled", "reference", reference)
			stop()
		}
	}
}

func (s *session) run(ctx context.Context) {
	defer s.stop()

	if s.check(ctx) {
		return
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.check(ctx) {
				return
			}
		}
	}
}

// check runs one payment query and returns true once the session reached an
// outcome. Checks run strictly one at a time on the session goroutine, so
// two concurrent checks can never both observe "paid". A tick that fires
// while a slow check is still running is simply dropped by the ticker.
func (s *session) check(ctx context.Context) bool {
	paid, err := s.checker.CheckPayment(ctx, s.reference, s.amount)
	s.attempts++

	if err == nil && paid {
		if s.state.CompareAndSwap(stateRunning, stateSucceeded) {
			slog.Info("Payment confirmed", "reference", s.reference, "attempts", s.attempts)
			s.onSuccess()
		}
		return true
	}

	if err != nil {
		// Transient: absorbed into the retry budget, never surfaced per-attempt.
		slog.Debug("Payment check failed", "reference", s.reference, "attempt", s.attempts, "error", err)
	}

	if s.attempts >= s.cfg.MaxAttempts {
		if s.state.CompareAndSwap(stateRunning, stateTimedOut) {
			slog.Warn("Payment polling exhausted", "reference", s.reference, "attempts", s.attempts)
			s.onTimeout()
		}
		return true
	}
	return false
}
