package kernel

import "context"

// Signal is a one-shot wake-up with a backlog of at most one. Notify never
// blocks, so it may be called from interrupt context; notifications that
// arrive while one is already pending are dropped.
type Signal struct {
	ch chan struct{}
}

// NewSignal returns an unsignalled Signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Notify marks the signal pending.
func (s *Signal) Notify() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// Drain clears a pending notification and reports whether there was one.
func (s *Signal) Drain() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// Wait blocks until the signal is notified or ctx is done.
func (s *Signal) Wait(ctx context.Context) error {
	select {
	case <-s.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// C exposes the underlying channel for use in select statements. A receive
// consumes the notification.
func (s *Signal) C() <-chan struct{} { return s.ch }
