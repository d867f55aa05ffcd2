// Package engine runs the scanline state machine. Every completed sample
// buffer raises an interrupt that renders the next line of the field into
// it; at the end of each field a committed frame is swapped in.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"tvout/hal"
	"tvout/video/clock"
	"tvout/video/encode"
	"tvout/video/frame"
	"tvout/video/timing"
)

// ErrConfiguration reports misuse of the engine: a second live engine, an
// unsupported mode, a line too large for one DMA transfer, a repeated Begin
// or frame access outside Begin/Close.
var ErrConfiguration = errors.New("video: configuration error")

// Config selects the video mode.
type Config struct {
	Standard             timing.Standard
	SamplesPerColorClock int

	// WordSwap exchanges adjacent samples for transmitters that send the
	// high half of each 32-bit word first.
	WordSwap bool
}

const (
	stateCreated uint32 = iota
	stateRunning
	stateClosed
)

// live guards against two engines driving the one peripheral.
var live atomic.Bool

// Engine generates the composite signal for one profile.
type Engine struct {
	cfg  Config
	prof timing.Profile
	plan clock.Plan

	out hal.VideoOut
	osc *clock.Oscillator
	log hal.Logger
	enc *encode.Encoder

	state   atomic.Uint32
	closeMu sync.Mutex

	coord atomic.Pointer[frame.Coordinator]
	bufs  [2][]uint16

	// line is written only by ScanLine.
	line atomic.Int32
}

// New validates cfg, claims the oscillator and solves the sample clock. Only
// one engine may exist until it is closed.
func New(cfg Config, out hal.VideoOut, log hal.Logger) (*Engine, error) {
	if out == nil {
		return nil, fmt.Errorf("%w: no video output", ErrConfiguration)
	}
	prof, err := timing.New(cfg.Standard, cfg.SamplesPerColorClock)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if !live.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%w: engine already active", ErrConfiguration)
	}

	e := &Engine{cfg: cfg, prof: prof, out: out, osc: out.Oscillator(), log: log}
	if err := e.setupClock(); err != nil {
		live.Store(false)
		return nil, err
	}
	e.enc = encode.New(prof, cfg.WordSwap)
	e.logf("video: %s", prof)
	e.logf("video: clock %s", e.plan)
	return e, nil
}

func (e *Engine) setupClock() error {
	if e.osc == nil {
		return fmt.Errorf("%w: video output has no oscillator", ErrConfiguration)
	}
	ccfg := clock.Config{XtalHz: e.osc.XtalHz(), Strategy: e.out.ClockStrategy()}
	plan, err := clock.Solve(ccfg, uint32(e.prof.SampleRateHz))
	if err != nil {
		return fmt.Errorf("video: solve %s clock: %w", e.prof.Standard, err)
	}

	e.osc.Acquire()
	hz, err := e.osc.Apply(plan.OscillatorTargetHz)
	switch {
	case errors.Is(err, clock.ErrResourceBusy):
		e.logf("video: warning: %v, keeping %d Hz", err, hz)
		plan, err = ccfg.Rebase(plan, hz)
		if err != nil {
			e.osc.Release()
			return fmt.Errorf("video: rebase clock: %w", err)
		}
	case err != nil:
		e.osc.Release()
		return fmt.Errorf("video: configure oscillator: %w", err)
	}
	e.plan = plan
	return nil
}

func (e *Engine) logf(format string, args ...any) {
	if e.log == nil {
		return
	}
	e.log.WriteLineString(fmt.Sprintf(format, args...))
}

// Profile returns the scanline geometry.
func (e *Engine) Profile() timing.Profile { return e.prof }

// Plan returns the clock configuration in use.
func (e *Engine) Plan() clock.Plan { return e.plan }

// Begin allocates the frame and sample buffers, primes both sample buffers
// and starts output.
func (e *Engine) Begin() error {
	if !e.state.CompareAndSwap(stateCreated, stateRunning) {
		return fmt.Errorf("%w: Begin called twice or after Close", ErrConfiguration)
	}
	if n, limit := e.prof.LineBytes(), e.out.MaxTransferBytes(); n >= limit {
		e.state.Store(stateCreated)
		return fmt.Errorf("%w: %d byte line exceeds %d byte transfer limit", ErrConfiguration, n, limit)
	}

	a := frame.New(e.prof.Width, e.prof.ActiveLines)
	b := frame.New(e.prof.Width, e.prof.ActiveLines)
	e.coord.Store(frame.NewCoordinator(a, b))

	for i := range e.bufs {
		buf, err := e.out.AllocSamples(e.prof.LineWidth)
		if err != nil {
			e.freeBuffers()
			e.coord.Store(nil)
			e.state.Store(stateCreated)
			return fmt.Errorf("video: allocate sample buffer: %w", err)
		}
		e.bufs[i] = buf
	}

	e.line.Store(0)
	e.ScanLine(e.bufs[0])
	e.ScanLine(e.bufs[1])

	if err := e.out.Start(e.plan, e.bufs, e.ScanLine); err != nil {
		e.freeBuffers()
		e.coord.Store(nil)
		e.state.Store(stateCreated)
		return fmt.Errorf("video: start output: %w", err)
	}
	e.logf("video: started, %d byte sample buffers", e.prof.LineBytes())
	return nil
}

func (e *Engine) freeBuffers() {
	for i, buf := range e.bufs {
		if buf != nil {
			e.out.FreeSamples(buf)
			e.bufs[i] = nil
		}
	}
}

// ScanLine renders the next scanline into buf and advances the line
// counter. It is the completion interrupt handler: it never blocks, locks
// or allocates.
func (e *Engine) ScanLine(buf []uint16) {
	p := &e.prof
	i := int(e.line.Load())
	c := e.coord.Load()

	switch RegionOf(p, i) {
	case RegionActive:
		row := i - p.ActiveTop
		e.enc.Active(buf, i, c.Front().Row(row))
	case RegionVSync:
		e.enc.VSync(buf)
	case RegionVSyncBlock:
		t := palVSync[(i-p.VSyncStart)&7]
		e.enc.HalfLines(buf, t&2 != 0, t&1 != 0)
	default:
		e.enc.Blank(buf, i)
	}

	i++
	if i == p.TotalLines {
		i = 0
		c.EndOfField()
	}
	e.line.Store(int32(i))
}

// Line returns the field row the next ScanLine renders.
func (e *Engine) Line() int { return int(e.line.Load()) }

func (e *Engine) coordinator() (*frame.Coordinator, error) {
	c := e.coord.Load()
	if c == nil || e.state.Load() != stateRunning {
		return nil, fmt.Errorf("%w: engine not running", ErrConfiguration)
	}
	return c, nil
}

// Writable returns the back frame, valid for drawing until the next commit.
func (e *Engine) Writable() (*frame.Frame, error) {
	c, err := e.coordinator()
	if err != nil {
		return nil, err
	}
	return c.Writable(), nil
}

// Commit hands the back frame to the engine and blocks until it is shown.
func (e *Engine) Commit() error {
	return e.CommitContext(context.Background())
}

// CommitContext is Commit bounded by ctx.
func (e *Engine) CommitContext(ctx context.Context) error {
	c, err := e.coordinator()
	if err != nil {
		return err
	}
	return c.CommitContext(ctx)
}

// Pending reports whether a committed frame waits for the next field
// boundary.
func (e *Engine) Pending() bool {
	if c := e.coord.Load(); c != nil {
		return c.Pending()
	}
	return false
}

// WaitForFrame is Commit under the name drawing loops usually use.
func (e *Engine) WaitForFrame() error { return e.Commit() }

// RenderedFrames returns the number of completed fields.
func (e *Engine) RenderedFrames() uint32 {
	if c := e.coord.Load(); c != nil {
		return c.RenderedFrames()
	}
	return 0
}

// BufferSwaps returns the number of committed frames shown.
func (e *Engine) BufferSwaps() uint32 {
	if c := e.coord.Load(); c != nil {
		return c.BufferSwaps()
	}
	return 0
}

// Close stops output and releases every resource in the order the hardware
// requires: interrupt, then clock and DMA, then sample buffers, then frames.
// A blocked Commit returns frame.ErrClosed. Close is idempotent.
func (e *Engine) Close() error {
	e.closeMu.Lock()
	defer e.closeMu.Unlock()

	prev := e.state.Swap(stateClosed)
	if prev == stateClosed {
		return nil
	}
	if prev == stateRunning {
		e.out.DisableInterrupt()
		e.out.Stop()
		e.freeBuffers()
		fields := e.RenderedFrames()
		if c := e.coord.Swap(nil); c != nil {
			c.Close()
		}
		e.logf("video: stopped after %d fields", fields)
	}
	e.osc.Release()
	live.Store(false)
	return nil
}
