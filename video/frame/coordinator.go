package frame

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"tvout/kernel"
)

// ErrClosed is returned by commits on a closed coordinator.
var ErrClosed = errors.New("frame: coordinator closed")

// Coordinator owns two frames: the front one is scanned out by the
// interrupt, the back one belongs to the producer. The only shared state is
// the ready flag and the front index, both atomic; the swap happens only
// inside EndOfField.
type Coordinator struct {
	frames [2]*Frame
	front  atomic.Uint32
	ready  atomic.Bool

	rendered atomic.Uint32
	swaps    atomic.Uint32

	swapped   *kernel.Signal
	done      chan struct{}
	closeOnce sync.Once
}

// NewCoordinator starts with a as front and b as back.
func NewCoordinator(a, b *Frame) *Coordinator {
	return &Coordinator{
		frames:  [2]*Frame{a, b},
		swapped: kernel.NewSignal(),
		done:    make(chan struct{}),
	}
}

// Front returns the frame being scanned out. Interrupt context only.
func (c *Coordinator) Front() *Frame {
	return c.frames[c.front.Load()]
}

// Writable returns the back frame. It is valid for exclusive writing until
// the next Commit.
func (c *Coordinator) Writable() *Frame {
	return c.frames[c.front.Load()^1]
}

// EndOfField is called by the interrupt when the line counter wraps. It
// counts the field and swaps the frames if the producer committed one. It
// never blocks.
func (c *Coordinator) EndOfField() bool {
	c.rendered.Add(1)
	if !c.ready.CompareAndSwap(true, false) {
		return false
	}
	c.front.Store(c.front.Load() ^ 1)
	c.swaps.Add(1)
	c.swapped.Notify()
	return true
}

// Commit hands the back frame to the interrupt and blocks until it has been
// swapped to the front.
func (c *Coordinator) Commit() error {
	return c.CommitContext(context.Background())
}

// CommitContext is Commit bounded by ctx. When ctx ends before the swap the
// commit is withdrawn and the back frame stays with the producer; if the
// swap won the race the commit succeeds.
func (c *Coordinator) CommitContext(ctx context.Context) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	// A stale notification from an earlier, withdrawn commit must not
	// satisfy this one.
	c.swapped.Drain()
	c.ready.Store(true)

	select {
	case <-c.swapped.C():
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		if c.ready.CompareAndSwap(true, false) {
			return ctx.Err()
		}
		// The interrupt took the commit; the back frame is ours again only
		// once it has moved the front index.
		select {
		case <-c.swapped.C():
			return nil
		case <-c.done:
			return ErrClosed
		}
	}
}

// Pending reports whether a commit waits for the next field boundary.
func (c *Coordinator) Pending() bool { return c.ready.Load() }

// RenderedFrames returns the number of completed fields.
func (c *Coordinator) RenderedFrames() uint32 { return c.rendered.Load() }

// BufferSwaps returns the number of front/back swaps.
func (c *Coordinator) BufferSwaps() uint32 { return c.swaps.Load() }

// Close wakes a blocked Commit with ErrClosed. Further commits fail.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}
