package monitor_test

import (
	"testing"
	"time"

	"tvout/hal"
	"tvout/video/clock"
	"tvout/video/engine"
	"tvout/video/monitor"
	"tvout/video/palette"
	"tvout/video/timing"
)

type nullOut struct{ osc *clock.Oscillator }

func (o *nullOut) Oscillator() *clock.Oscillator                         { return o.osc }
func (o *nullOut) ClockStrategy() clock.Strategy                         { return clock.Direct }
func (o *nullOut) MaxTransferBytes() int                                 { return 4092 }
func (o *nullOut) AllocSamples(n int) ([]uint16, error)                  { return make([]uint16, n), nil }
func (o *nullOut) FreeSamples([]uint16)                                  {}
func (o *nullOut) Start(clock.Plan, [2][]uint16, hal.ScanlineFunc) error { return nil }
func (o *nullOut) DisableInterrupt()                                     {}
func (o *nullOut) Stop()                                                 {}

var bars = []uint8{
	palette.White, palette.Yellow, palette.Cyan, palette.Green,
	palette.Magenta, palette.Red, palette.Blue, palette.Black,
}

func startEngine(t *testing.T, std timing.Standard, spcc int) *engine.Engine {
	t.Helper()
	e, err := engine.New(engine.Config{Standard: std, SamplesPerColorClock: spcc},
		&nullOut{osc: clock.NewOscillator(40000000, nil)}, nil)
	if err != nil {
		t.Fatalf("engine.New() err = %v", err)
	}
	t.Cleanup(func() { e.Close() })
	if err := e.Begin(); err != nil {
		t.Fatalf("Begin() err = %v", err)
	}
	return e
}

func drawBars(t *testing.T, e *engine.Engine) {
	t.Helper()
	f, err := e.Writable()
	if err != nil {
		t.Fatalf("Writable() err = %v", err)
	}
	w := f.Width() / len(bars)
	for i, c := range bars {
		f.FillRect(i*w, 0, w, f.Height(), c)
	}
	done := make(chan error, 1)
	go func() { done <- e.Commit() }()
	buf := make([]uint16, e.Profile().LineWidth)
	deadline := time.Now().Add(2 * time.Second)
	for e.BufferSwaps() == 0 && time.Now().Before(deadline) {
		e.ScanLine(buf)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Commit() err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Commit() did not return")
	}
}

// field renders n consecutive lines.
func lines(e *engine.Engine, n int) [][]uint16 {
	out := make([][]uint16, n)
	for i := range out {
		out[i] = make([]uint16, e.Profile().LineWidth)
		e.ScanLine(out[i])
	}
	return out
}

func near(a, b uint8) bool {
	d := int(a) - int(b)
	return d >= -20 && d <= 20
}

func TestDecodeColorBars(t *testing.T) {
	modes := []struct {
		std  timing.Standard
		spcc int
	}{{timing.NTSC, 4}, {timing.NTSC, 3}, {timing.PAL, 4}}

	for _, m := range modes {
		t.Run(m.std.String(), func(t *testing.T) {
			e := startEngine(t, m.std, m.spcc)
			drawBars(t, e)
			p := e.Profile()

			d := monitor.NewDecoder()
			fields := 0
			for _, l := range lines(e, 3*p.TotalLines) {
				if d.Feed(l) {
					fields++
				}
			}
			if !d.Locked() {
				t.Fatalf("decoder not locked")
			}
			if fields < 2 || d.Fields() != uint32(fields) {
				t.Fatalf("fields = %d (Fields() = %d), want >= 2", fields, d.Fields())
			}
			if got, ok := d.Profile(); !ok || got.LineWidth != p.LineWidth {
				t.Fatalf("detected profile %v, want %v", got, p)
			}

			img := d.Image()
			w := p.Width / len(bars)
			for _, y := range []int{0, 1, 120, 239} {
				for i, c := range bars {
					x := i*w + w/2
					got := img.RGBAAt(x, y)
					want := palette.RGBA(c)
					if !near(got.R, want.R) || !near(got.G, want.G) || !near(got.B, want.B) {
						t.Fatalf("pixel (%d, %d) = %v, want %v", x, y, got, want)
					}
				}
			}
		})
	}
}

func TestFieldDigest(t *testing.T) {
	e := startEngine(t, timing.NTSC, 4)
	drawBars(t, e)
	p := e.Profile()

	// Align to the first row after vertical sync.
	buf := make([]uint16, p.LineWidth)
	for e.Line() != p.VSyncEnd {
		e.ScanLine(buf)
	}
	a := lines(e, p.TotalLines)
	b := lines(e, p.TotalLines)

	d := monitor.NewDecoder()
	for _, l := range a {
		d.Feed(l)
	}
	if _, n := d.FieldDigest(); n != 0 {
		t.Fatalf("digest taken before a full field")
	}
	for _, l := range b {
		d.Feed(l)
	}
	d.Feed(lines(e, 1)[0])

	got, n := d.FieldDigest()
	if n != 1 {
		t.Fatalf("digests = %d, want 1", n)
	}
	if want := monitor.Digest(b); got != want {
		t.Fatalf("FieldDigest() = %#x, want %#x", got, want)
	}
	if monitor.Digest(a) != monitor.Digest(b) {
		t.Fatalf("static picture changed digest between fields")
	}
}

func TestDecoderIgnoresUnknownLines(t *testing.T) {
	d := monitor.NewDecoder()
	if d.Feed(make([]uint16, 100)) {
		t.Fatalf("Feed() of an unknown line completed a field")
	}
	if _, ok := d.Profile(); ok {
		t.Fatalf("profile detected from an unknown line")
	}
}
