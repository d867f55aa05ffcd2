package hal

import (
	"errors"

	"tvout/video/clock"
)

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

var ErrNotImplemented = errors.New("not implemented")

// ScanlineFunc refills one sample buffer with the next scanline. It runs in
// interrupt context: it must not block, allocate or log.
type ScanlineFunc func(buf []uint16)

// VideoOut is the sample output peripheral: an oscillator-clocked DAC fed
// by two DMA buffers that replay back to back. Whenever one buffer has been
// shifted out, the completion interrupt calls the ScanlineFunc with it while
// the other buffer is being transmitted.
type VideoOut interface {
	// Oscillator is the shared clock source of the peripheral.
	Oscillator() *clock.Oscillator
	// ClockStrategy tells how the sample clock derives from the oscillator.
	ClockStrategy() clock.Strategy
	// MaxTransferBytes is the DMA single-transfer limit. Sample buffers
	// must be strictly smaller.
	MaxTransferBytes() int

	// AllocSamples returns a DMA-capable buffer of n samples.
	AllocSamples(n int) ([]uint16, error)
	// FreeSamples returns a buffer obtained from AllocSamples.
	FreeSamples(buf []uint16)

	// Start programs the sample clock from plan and begins replaying bufs,
	// calling isr for each completed buffer. Both buffers must already hold
	// a line.
	Start(plan clock.Plan, bufs [2][]uint16, isr ScanlineFunc) error
	// DisableInterrupt stops completion callbacks. When it returns no
	// callback is running or will run.
	DisableInterrupt()
	// Stop halts DMA and the sample clock.
	Stop()
}

// KeyCode is a minimal key identifier.
type KeyCode uint16

const (
	KeyUnknown KeyCode = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyEnter
	KeyEscape
	KeySpace
)

// KeyEvent is a keyboard event.
type KeyEvent struct {
	Code  KeyCode
	Press bool
	Rune  rune
}

// Keyboard provides key events (best-effort on each platform).
type Keyboard interface {
	Events() <-chan KeyEvent
}

// Input provides access to input devices (if available).
type Input interface {
	Keyboard() Keyboard
}

// HAL provides the only contact point between the generator and the outside world.
type HAL interface {
	Logger() Logger
	LED() LED
	Video() VideoOut
	Input() Input
}
