package kernel

import (
	"sync"
	"sync/atomic"
)

// SharedBuffer is a fixed-size shared-memory region with a sequence counter.
// A writer publishes whole snapshots; readers poll Seq and copy when it
// changes.
type SharedBuffer struct {
	mu  sync.RWMutex
	seq atomic.Uint32
	buf []byte
}

// NewSharedBuffer allocates a region of size bytes.
func NewSharedBuffer(size int) *SharedBuffer {
	return &SharedBuffer{buf: make([]byte, size)}
}

// Size returns the region size in bytes.
func (b *SharedBuffer) Size() int { return len(b.buf) }

// Write copies data into the buffer and bumps the sequence counter.
func (b *SharedBuffer) Write(data []byte) uint32 {
	b.mu.Lock()
	copy(b.buf, data)
	seq := b.seq.Add(1)
	b.mu.Unlock()
	return seq
}

// Seq returns the sequence number of the last write.
func (b *SharedBuffer) Seq() uint32 { return b.seq.Load() }

// Read returns the last written data and its sequence number.
func (b *SharedBuffer) Read(dst []byte) (seq uint32, count int) {
	b.mu.RLock()
	count = copy(dst, b.buf)
	seq = b.seq.Load()
	b.mu.RUnlock()
	return seq, count
}
