package app

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"sync/atomic"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"

	"tvout/hal"
	"tvout/video/engine"
	"tvout/video/frame"
	"tvout/video/palette"
)

// Pattern is a demo picture.
type Pattern uint8

const (
	PatternBars Pattern = iota
	PatternPalette
	PatternRamp
	patternCount
)

func (p Pattern) String() string {
	switch p {
	case PatternBars:
		return "bars"
	case PatternPalette:
		return "palette"
	case PatternRamp:
		return "ramp"
	default:
		return "unknown"
	}
}

// ParsePattern accepts a pattern name as printed by String.
func ParsePattern(s string) (Pattern, error) {
	for p := Pattern(0); p < patternCount; p++ {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown pattern %q", s)
}

func (p Pattern) Next() Pattern { return (p + 1) % patternCount }
func (p Pattern) Prev() Pattern { return (p + patternCount - 1) % patternCount }

var bars = [...]uint8{
	palette.White, palette.Yellow, palette.Cyan, palette.Green,
	palette.Magenta, palette.Red, palette.Blue, palette.Black,
}

const boxSize = 32

var textColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

type demo struct {
	e      *engine.Engine
	log    hal.Logger
	canvas *engine.Canvas
	font   tinyfont.Fonter

	pat    atomic.Uint32
	paused atomic.Bool
	shown  atomic.Uint32
	last   atomic.Uint32

	tick   int
	x, y   int
	dx, dy int
}

func newDemo(e *engine.Engine, log hal.Logger, p Pattern) *demo {
	d := &demo{
		e:      e,
		log:    log,
		canvas: e.Canvas(),
		font:   &proggy.TinySZ8pt7b,
		dx:     2,
		dy:     1,
	}
	d.pat.Store(uint32(p % patternCount))
	return d
}

func (d *demo) pattern() Pattern     { return Pattern(d.pat.Load()) }
func (d *demo) setPattern(p Pattern) { d.pat.Store(uint32(p)) }
func (d *demo) togglePause()         { d.paused.Store(!d.paused.Load()) }
func (d *demo) frames() uint32       { return d.shown.Load() }
func (d *demo) fieldsSeen() uint32   { return d.last.Load() }

// run draws and commits frames until ctx is done or the engine closes.
func (d *demo) run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = d.panicScreen(r)
		}
	}()

	for {
		f, err := d.e.Writable()
		if err != nil {
			return quiet(err)
		}
		d.draw(f)
		if err := d.e.CommitContext(ctx); err != nil {
			return quiet(err)
		}
		d.shown.Add(1)
		d.last.Store(d.e.RenderedFrames())
		if !d.paused.Load() {
			d.advance(f.Width(), f.Height())
		}
	}
}

// quiet hides the errors of an orderly shutdown.
func quiet(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, frame.ErrClosed) || errors.Is(err, engine.ErrConfiguration) {
		return nil
	}
	return err
}

func (d *demo) advance(w, h int) {
	d.tick++
	d.x += d.dx
	d.y += d.dy
	if d.x < 0 || d.x+boxSize > w {
		d.dx = -d.dx
		d.x += 2 * d.dx
	}
	if d.y < 0 || d.y+boxSize > h {
		d.dy = -d.dy
		d.y += 2 * d.dy
	}
}

func (d *demo) draw(f *frame.Frame) {
	switch p := d.pattern(); p {
	case PatternRamp:
		drawRamp(f, d.tick)
	case PatternBars:
		drawBars(f)
		f.FillRect(d.x, d.y, boxSize, boxSize, palette.Black)
		f.FillRect(d.x+2, d.y+2, boxSize-4, boxSize-4, uint8(d.tick))
	default:
		DrawPattern(f, p)
	}

	f.FillRect(0, f.Height()-12, f.Width(), 12, palette.Black)
	s := fmt.Sprintf("%s %d fields %d frames", d.pattern(), d.e.RenderedFrames(), d.shown.Load())
	tinyfont.WriteLine(d.canvas, d.font, 4, int16(f.Height()-3), s, textColor)
}

func drawBars(f *frame.Frame) {
	w := f.Width()
	for y := 0; y < f.Height(); y++ {
		row := f.Row(y)
		for x := range row {
			row[x] = bars[x*len(bars)/w]
		}
	}
}

// drawPalette shows all 256 colours as a 16x16 grid.
func drawPalette(f *frame.Frame) {
	cw, ch := f.Width()/16, f.Height()/16
	for i := 0; i < 256; i++ {
		f.FillRect(i%16*cw, i/16*ch, cw, ch, uint8(i))
	}
}

// drawRamp scrolls a grey ramp built from the luma-ordered palette.
func drawRamp(f *frame.Frame, tick int) {
	w := f.Width()
	for y := 0; y < f.Height(); y++ {
		row := f.Row(y)
		for x := range row {
			v := uint8((x + tick) * 256 / w)
			row[x] = palette.Index(color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
}

// DrawPattern renders the still version of p into f.
func DrawPattern(f *frame.Frame, p Pattern) {
	switch p {
	case PatternPalette:
		drawPalette(f)
	case PatternRamp:
		drawRamp(f, 0)
	default:
		drawBars(f)
	}
}
