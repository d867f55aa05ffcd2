package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tvout/hal"
	"tvout/internal/buildinfo"
	"tvout/video/engine"
	"tvout/video/timing"
)

// Config selects the video mode and the initial demo pattern.
type Config struct {
	Standard             timing.Standard
	SamplesPerColorClock int
	WordSwap             bool
	Pattern              Pattern
}

// DefaultConfig is NTSC at four samples per colour clock.
func DefaultConfig() Config {
	return Config{Standard: timing.NTSC, SamplesPerColorClock: 4, Pattern: PatternBars}
}

// App runs the demo producer on top of the video engine.
type App struct {
	h   hal.HAL
	e   *engine.Engine
	log hal.Logger

	demo   *demo
	cancel context.CancelFunc
	wg     sync.WaitGroup

	fieldsPerBeat uint32
	lastBeat      uint32
	ledOn         bool

	closeOnce sync.Once
	closeErr  error
}

// New starts video output and the demo producer.
func New(h hal.HAL, cfg Config) (*App, error) {
	h.Logger().WriteLineString(buildinfo.Banner())
	e, err := engine.New(engine.Config{
		Standard:             cfg.Standard,
		SamplesPerColorClock: cfg.SamplesPerColorClock,
		WordSwap:             cfg.WordSwap,
	}, h.Video(), h.Logger())
	if err != nil {
		return nil, err
	}
	if err := e.Begin(); err != nil {
		e.Close()
		return nil, err
	}

	beat := uint32(e.Profile().FieldRateHz() + 0.5)
	if beat == 0 {
		beat = 1
	}
	a := &App{
		h:             h,
		e:             e,
		log:           h.Logger(),
		demo:          newDemo(e, h.Logger(), cfg.Pattern),
		fieldsPerBeat: beat,
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.demo.run(ctx); err != nil {
			a.log.WriteLineString(fmt.Sprintf("demo: %v", err))
		}
	}()
	return a, nil
}

// Engine returns the running video engine.
func (a *App) Engine() *engine.Engine { return a.e }

// Step handles input and blinks the LED once per second of fields.
func (a *App) Step() error {
	if in := a.h.Input(); in != nil {
		if kbd := in.Keyboard(); kbd != nil {
			a.pollKeys(kbd.Events())
		}
	}

	n := a.e.RenderedFrames()
	if n-a.lastBeat >= a.fieldsPerBeat {
		a.lastBeat = n
		a.ledOn = !a.ledOn
		if led := a.h.LED(); led != nil {
			if a.ledOn {
				led.High()
			} else {
				led.Low()
			}
		}
	}
	return nil
}

func (a *App) pollKeys(ch <-chan hal.KeyEvent) {
	if ch == nil {
		return
	}
	for {
		select {
		case ev := <-ch:
			if ev.Press {
				a.key(ev.Code)
			}
		default:
			return
		}
	}
}

func (a *App) key(code hal.KeyCode) {
	switch code {
	case hal.KeyRight, hal.KeyDown, hal.KeyEnter:
		a.demo.setPattern(a.demo.pattern().Next())
	case hal.KeyLeft, hal.KeyUp:
		a.demo.setPattern(a.demo.pattern().Prev())
	case hal.KeySpace:
		a.demo.togglePause()
	default:
		return
	}
	a.log.WriteLineString(fmt.Sprintf("demo: pattern %s", a.demo.pattern()))
}

// Close stops the producer and the video output.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		a.cancel()
		// A producer blocked in Commit returns when the engine closes.
		a.closeErr = a.e.Close()
		a.wg.Wait()
		a.log.WriteLineString(fmt.Sprintf("video: %d fields, %d frames shown",
			a.demo.fieldsSeen(), a.demo.frames()))
	})
	return a.closeErr
}

// Run starts the app and drives it forever (TinyGo entrypoint). If video
// cannot start the error is logged and the LED blinks fast.
func Run(h hal.HAL, cfg Config) {
	a, err := New(h, cfg)
	if err != nil {
		h.Logger().WriteLineString(fmt.Sprintf("video: %v", err))
		led := h.LED()
		for {
			led.High()
			time.Sleep(100 * time.Millisecond)
			led.Low()
			time.Sleep(100 * time.Millisecond)
		}
	}
	for {
		if err := a.Step(); err != nil {
			h.Logger().WriteLineString(fmt.Sprintf("app: %v", err))
		}
		time.Sleep(16 * time.Millisecond)
	}
}
