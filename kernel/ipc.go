package kernel

import (
	"runtime"
	"sync/atomic"
)

// MaxLineSamples bounds the samples carried by one Line. It matches the
// single-transfer limit of the sample DMA (4092 bytes).
const MaxLineSamples = 2046

// Line is one transmitted scanline.
type Line struct {
	Field uint32
	Row   uint16
	Len   uint16
	Data  [MaxLineSamples]uint16
}

// Samples returns the valid part of Data.
func (l *Line) Samples() []uint16 { return l.Data[:l.Len] }

// Set copies samples into the line, truncating to MaxLineSamples.
func (l *Line) Set(field uint32, row int, samples []uint16) {
	n := copy(l.Data[:], samples)
	l.Field = field
	l.Row = uint16(row)
	l.Len = uint16(n)
}

const mailboxSlots = 8

// slot.seq holds the slot's sequence number minus its index, so that the
// zero value is a valid empty mailbox.
type slot struct {
	seq  atomic.Uint32
	line Line
}

// Mailbox is a fixed-size multi-producer, single-consumer queue of lines.
// It is designed for bare-metal use: no allocations, busy-wait with Gosched().
// Each slot carries a sequence number so the consumer never observes a
// reserved slot before its producer finished copying.
type Mailbox struct {
	_     [0]func() // prevent accidental copying.
	head  atomic.Uint32
	tail  atomic.Uint32
	slots [mailboxSlots]slot
}

func (mb *Mailbox) at(pos uint32) (*slot, uint32) {
	i := pos % mailboxSlots
	return &mb.slots[i], i
}

// TrySend attempts to enqueue a copy of l, returning false if the mailbox is full.
func (mb *Mailbox) TrySend(l *Line) bool {
	for {
		head := mb.head.Load()
		s, i := mb.at(head)
		seq := s.seq.Load() + i
		switch {
		case seq == head:
			// Reserve the slot.
			if !mb.head.CompareAndSwap(head, head+1) {
				continue
			}
			s.line = *l
			s.seq.Store(head + 1 - i)
			return true
		case int32(seq-head) < 0:
			return false
		}
		// Another producer reserved this slot; reload head.
	}
}

// Send enqueues a copy of l, blocking until it succeeds.
func (mb *Mailbox) Send(l *Line) {
	for !mb.TrySend(l) {
		runtime.Gosched()
	}
}

// TryRecv attempts to dequeue one line into dst, returning false if empty.
func (mb *Mailbox) TryRecv(dst *Line) bool {
	tail := mb.tail.Load()
	s, i := mb.at(tail)
	if s.seq.Load()+i != tail+1 {
		return false
	}
	*dst = s.line
	s.seq.Store(tail + mailboxSlots - i)
	mb.tail.Store(tail + 1)
	return true
}

// Recv blocks until one line is available.
func (mb *Mailbox) Recv(dst *Line) {
	for !mb.TryRecv(dst) {
		runtime.Gosched()
	}
}

// Len returns the number of queued lines.
func (mb *Mailbox) Len() int {
	return int(mb.head.Load() - mb.tail.Load())
}
