//go:build !tinygo

package hal

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"tvout/kernel"
	"tvout/video/clock"
)

const (
	// hostXtalHz is the simulated crystal.
	hostXtalHz = 40000000
	// hostMaxTransferBytes mirrors the DMA descriptor length limit.
	hostMaxTransferBytes = 4092
	// hostTickPeriod is how often paced output catches up.
	hostTickPeriod = time.Millisecond
)

var errVideoRunning = errors.New("video output already running")

// hostPLL logs coefficient writes instead of touching registers.
type hostPLL struct {
	logger Logger
}

func (p hostPLL) SetCoefficients(c clock.Coefficients) error {
	p.logger.WriteLineString(fmt.Sprintf("pll: %s -> %d Hz", c, c.OutputHz(hostXtalHz)))
	return nil
}

// hostVideo simulates the DMA ping-pong: it transmits the two sample
// buffers alternately, publishes every transmitted line to the monitor and
// raises the completion callback to refill the buffer just sent.
type hostVideo struct {
	osc    *clock.Oscillator
	logger Logger
	tap    *kernel.Mailbox
	paced  bool

	irqMu   sync.Mutex
	irqOn   bool
	isr     ScanlineFunc
	stop    chan struct{}
	done    chan struct{}
	running bool

	allocated atomic.Int32
	sent      atomic.Uint64
	line      kernel.Line
}

func newHostVideo(logger Logger, tap *kernel.Mailbox, paced bool) *hostVideo {
	return &hostVideo{
		osc:    clock.NewOscillator(hostXtalHz, hostPLL{logger: logger}),
		logger: logger,
		tap:    tap,
		paced:  paced,
	}
}

func (v *hostVideo) Oscillator() *clock.Oscillator { return v.osc }
func (v *hostVideo) ClockStrategy() clock.Strategy { return clock.Direct }
func (v *hostVideo) MaxTransferBytes() int         { return hostMaxTransferBytes }

func (v *hostVideo) AllocSamples(n int) ([]uint16, error) {
	if n*2 >= hostMaxTransferBytes {
		return nil, fmt.Errorf("sample buffer of %d bytes exceeds DMA limit", n*2)
	}
	v.allocated.Add(1)
	return make([]uint16, n), nil
}

func (v *hostVideo) FreeSamples(buf []uint16) {
	if buf != nil {
		v.allocated.Add(-1)
	}
}

func (v *hostVideo) Start(plan clock.Plan, bufs [2][]uint16, isr ScanlineFunc) error {
	if v.running {
		return errVideoRunning
	}
	if plan.SampleHz == 0 || len(bufs[0]) == 0 || len(bufs[0]) != len(bufs[1]) {
		return fmt.Errorf("invalid video start: %d Hz, buffers %d/%d", plan.SampleHz, len(bufs[0]), len(bufs[1]))
	}
	v.running = true
	v.stop = make(chan struct{})
	v.done = make(chan struct{})
	v.irqMu.Lock()
	v.isr = isr
	v.irqOn = true
	v.irqMu.Unlock()

	period := time.Duration(float64(len(bufs[0])) / float64(plan.SampleHz) * float64(time.Second))
	go v.run(bufs, period)
	return nil
}

func (v *hostVideo) DisableInterrupt() {
	v.irqMu.Lock()
	v.irqOn = false
	v.isr = nil
	v.irqMu.Unlock()
}

func (v *hostVideo) Stop() {
	if !v.running {
		return
	}
	close(v.stop)
	<-v.done
	v.running = false
}

// Lines returns the number of lines transmitted so far.
func (v *hostVideo) Lines() uint64 { return v.sent.Load() }

func (v *hostVideo) run(bufs [2][]uint16, period time.Duration) {
	defer close(v.done)

	// About one PAL field of catch-up after a stall.
	clk := newLineClock(period, 320)
	t := time.NewTicker(hostTickPeriod)
	defer t.Stop()

	k := 0
	for {
		n := 1
		if v.paced {
			select {
			case <-v.stop:
				return
			case now := <-t.C:
				n = clk.step(now)
			}
		} else {
			select {
			case <-v.stop:
				return
			default:
			}
		}
		for ; n > 0; n-- {
			if !v.transmit(bufs[k]) {
				return
			}
			v.irqMu.Lock()
			if v.irqOn {
				v.isr(bufs[k])
			}
			v.irqMu.Unlock()
			k ^= 1
		}
	}
}

// transmit hands a line to the monitor, waiting while it is full. It
// returns false when output is being stopped.
func (v *hostVideo) transmit(buf []uint16) bool {
	seq := uint32(v.sent.Add(1))
	if v.tap == nil {
		return true
	}
	v.line.Set(seq, 0, buf)
	for !v.tap.TrySend(&v.line) {
		select {
		case <-v.stop:
			return false
		default:
			runtime.Gosched()
		}
	}
	return true
}
