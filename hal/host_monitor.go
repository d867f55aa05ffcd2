//go:build !tinygo

package hal

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"tvout/kernel"
	"tvout/video/monitor"
)

const (
	monitorWidth  = 256
	monitorHeight = 240
	// monitorIdle is the poll interval while no line is pending.
	monitorIdle = 200 * time.Microsecond
)

// hostMonitor is the software television: it drains transmitted lines from
// the video tap, decodes them and publishes each finished picture.
type hostMonitor struct {
	lines  *kernel.Mailbox
	screen *kernel.SharedBuffer

	mu      sync.Mutex
	dec     *monitor.Decoder
	fed     atomic.Uint64
	pics    atomic.Uint32
	digest  atomic.Uint64
	digests atomic.Uint32
	locked  atomic.Bool

	running atomic.Bool
}

func newHostMonitor() *hostMonitor {
	return &hostMonitor{
		lines:  &kernel.Mailbox{},
		screen: kernel.NewSharedBuffer(monitorWidth * monitorHeight * 4),
		dec:    monitor.NewDecoder(),
	}
}

// run decodes lines until ctx is done.
func (m *hostMonitor) run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return nil
	}
	defer m.running.Store(false)

	var line kernel.Line
	for {
		if ctx.Err() != nil {
			return nil
		}
		if !m.lines.TryRecv(&line) {
			t := time.NewTimer(monitorIdle)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil
			case <-t.C:
			}
			continue
		}
		m.feed(line.Samples())
	}
}

func (m *hostMonitor) feed(samples []uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fed.Add(1)
	done := m.dec.Feed(samples)
	m.locked.Store(m.dec.Locked())
	if d, n := m.dec.FieldDigest(); n != m.digests.Load() {
		m.digest.Store(d)
		m.digests.Store(n)
	}
	if done {
		m.screen.Write(m.dec.Image().Pix)
		m.pics.Add(1)
	}
}

// Monitor is a read-only view of the host monitor.
type Monitor struct {
	m *hostMonitor
}

// Run decodes transmitted lines until ctx is done. Output blocks once the
// tap is full, so something must run the monitor while video is active.
func (mon *Monitor) Run(ctx context.Context) error { return mon.m.run(ctx) }

// Lines returns the number of lines decoded.
func (mon *Monitor) Lines() uint64 { return mon.m.fed.Load() }

// Pictures returns the number of complete pictures decoded.
func (mon *Monitor) Pictures() uint32 { return mon.m.pics.Load() }

// Locked reports whether the decoder is synchronized to the signal.
func (mon *Monitor) Locked() bool { return mon.m.locked.Load() }

// Digest returns the hash of the last complete field and how many fields
// have been hashed.
func (mon *Monitor) Digest() (uint64, uint32) {
	return mon.m.digest.Load(), mon.m.digests.Load()
}

// Seq returns the sequence number of the last published picture.
func (mon *Monitor) Seq() uint32 { return mon.m.screen.Seq() }

// Snapshot copies the last published picture.
func (mon *Monitor) Snapshot() (*image.RGBA, uint32) {
	img := image.NewRGBA(image.Rect(0, 0, monitorWidth, monitorHeight))
	seq, _ := mon.m.screen.Read(img.Pix)
	return img, seq
}

// snapshotInto copies the last published picture into pix.
func (mon *Monitor) snapshotInto(pix []byte) uint32 {
	seq, _ := mon.m.screen.Read(pix)
	return seq
}
