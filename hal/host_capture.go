//go:build !tinygo

package hal

import (
	"fmt"

	"tvout/video/clock"
)

// Capture is an offline VideoOut: nothing runs until Transmit is called, so
// a whole signal can be rendered deterministically on one goroutine.
type Capture struct {
	osc *clock.Oscillator

	bufs    [2][]uint16
	isr     ScanlineFunc
	k       int
	running bool
	sent    uint64
	live    int
}

// NewCapture returns an offline output clocked like the host simulation.
func NewCapture(logger Logger) *Capture {
	return &Capture{osc: clock.NewOscillator(hostXtalHz, hostPLL{logger: logger})}
}

func (c *Capture) Oscillator() *clock.Oscillator { return c.osc }
func (c *Capture) ClockStrategy() clock.Strategy { return clock.Direct }
func (c *Capture) MaxTransferBytes() int         { return hostMaxTransferBytes }

func (c *Capture) AllocSamples(n int) ([]uint16, error) {
	if n*2 >= hostMaxTransferBytes {
		return nil, fmt.Errorf("sample buffer of %d bytes exceeds DMA limit", n*2)
	}
	c.live++
	return make([]uint16, n), nil
}

func (c *Capture) FreeSamples(buf []uint16) {
	if buf != nil {
		c.live--
	}
}

func (c *Capture) Start(plan clock.Plan, bufs [2][]uint16, isr ScanlineFunc) error {
	if c.running {
		return errVideoRunning
	}
	c.bufs, c.isr, c.k, c.running = bufs, isr, 0, true
	return nil
}

func (c *Capture) DisableInterrupt() { c.isr = nil }
func (c *Capture) Stop()             { c.running = false }

// Transmit shifts out the next buffer, passes it to sink and raises the
// completion callback. It reports false once output is stopped.
func (c *Capture) Transmit(sink func(line []uint16)) bool {
	if !c.running {
		return false
	}
	buf := c.bufs[c.k]
	if sink != nil {
		sink(buf)
	}
	c.sent++
	if c.isr != nil {
		c.isr(buf)
	}
	c.k ^= 1
	return true
}

// Lines returns the number of lines transmitted.
func (c *Capture) Lines() uint64 { return c.sent }

// Buffers returns the number of sample buffers not yet freed.
func (c *Capture) Buffers() int { return c.live }
