package engine

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"tvout/hal"
	"tvout/video/clock"
	"tvout/video/frame"
	"tvout/video/palette"
	"tvout/video/timing"
)

const testXtalHz = 40000000

type fakeOut struct {
	mu       sync.Mutex
	osc      *clock.Oscillator
	strategy clock.Strategy
	maxBytes int
	calls    []string
	isr      hal.ScanlineFunc
	plan     clock.Plan
}

func newFakeOut() *fakeOut {
	return &fakeOut{
		osc:      clock.NewOscillator(testXtalHz, nil),
		strategy: clock.Direct,
		maxBytes: 4092,
	}
}

func (f *fakeOut) record(s string) {
	f.mu.Lock()
	f.calls = append(f.calls, s)
	f.mu.Unlock()
}

func (f *fakeOut) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeOut) Oscillator() *clock.Oscillator { return f.osc }
func (f *fakeOut) ClockStrategy() clock.Strategy { return f.strategy }
func (f *fakeOut) MaxTransferBytes() int         { return f.maxBytes }
func (f *fakeOut) FreeSamples(buf []uint16)      { f.record(fmt.Sprintf("free %d", len(buf))) }
func (f *fakeOut) DisableInterrupt()             { f.record("disable") }
func (f *fakeOut) Stop()                         { f.record("stop") }
func (f *fakeOut) AllocSamples(n int) ([]uint16, error) {
	f.record(fmt.Sprintf("alloc %d", n))
	return make([]uint16, n), nil
}

func (f *fakeOut) Start(plan clock.Plan, bufs [2][]uint16, isr hal.ScanlineFunc) error {
	f.record("start")
	f.plan = plan
	f.isr = isr
	return nil
}

type logLines struct {
	mu    sync.Mutex
	lines []string
}

func (l *logLines) WriteLineString(s string) {
	l.mu.Lock()
	l.lines = append(l.lines, s)
	l.mu.Unlock()
}

func (l *logLines) WriteLineBytes(b []byte) { l.WriteLineString(string(b)) }

func (l *logLines) contains(sub string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.lines {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func newTestEngine(t *testing.T, cfg Config, out *fakeOut) *Engine {
	t.Helper()
	e, err := New(cfg, out, &logLines{})
	if err != nil {
		t.Fatalf("New(%+v) err = %v", cfg, err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func begin(t *testing.T, std timing.Standard, spcc int) (*Engine, *fakeOut) {
	t.Helper()
	out := newFakeOut()
	e := newTestEngine(t, Config{Standard: std, SamplesPerColorClock: spcc}, out)
	if err := e.Begin(); err != nil {
		t.Fatalf("Begin() err = %v", err)
	}
	return e, out
}

// runLines drives n completion interrupts.
func runLines(e *Engine, buf []uint16, n int) {
	for i := 0; i < n; i++ {
		e.ScanLine(buf)
	}
}

// runTo drives interrupts until the next ScanLine renders row.
func runTo(e *Engine, buf []uint16, row int) {
	for e.Line() != row {
		e.ScanLine(buf)
	}
}

func TestRegionBoundaries(t *testing.T) {
	ntsc, _ := timing.New(timing.NTSC, 4)
	pal, _ := timing.New(timing.PAL, 4)
	tests := []struct {
		p    *timing.Profile
		row  int
		want Region
	}{
		{&ntsc, 0, RegionActive},
		{&ntsc, 239, RegionActive},
		{&ntsc, 240, RegionPostBlank},
		{&ntsc, 244, RegionPostBlank},
		{&ntsc, 245, RegionVSync},
		{&ntsc, 247, RegionVSync},
		{&ntsc, 248, RegionPreBlank},
		{&ntsc, 261, RegionPreBlank},
		{&pal, 0, RegionPreRender},
		{&pal, 31, RegionPreRender},
		{&pal, 32, RegionActive},
		{&pal, 271, RegionActive},
		{&pal, 272, RegionPostRender},
		{&pal, 303, RegionPostRender},
		{&pal, 304, RegionVSyncBlock},
		{&pal, 311, RegionVSyncBlock},
	}
	for _, tt := range tests {
		if got := RegionOf(tt.p, tt.row); got != tt.want {
			t.Fatalf("%s row %d = %v, want %v", tt.p.Standard, tt.row, got, tt.want)
		}
	}
}

func TestBeginPrimesBothBuffers(t *testing.T) {
	e, out := begin(t, timing.NTSC, 4)
	want := []string{"alloc 912", "alloc 912", "start"}
	if got := out.Calls(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	if e.Line() != 2 {
		t.Fatalf("Line() = %d, want 2", e.Line())
	}
	if out.isr == nil {
		t.Fatalf("Start() got no interrupt handler")
	}
	if out.plan.SampleHz != 14318180 {
		t.Fatalf("plan SampleHz = %d, want 14318180", out.plan.SampleHz)
	}
}

func TestNTSCFieldLayout(t *testing.T) {
	e, _ := begin(t, timing.NTSC, 4)
	p := e.Profile()
	buf := make([]uint16, p.LineWidth)

	runTo(e, buf, 0)
	for row := 0; row < p.TotalLines; row++ {
		e.ScanLine(buf)
		w := 0
		for w < len(buf) && buf[w] == timing.SyncLevel {
			w++
		}
		want := p.HSync
		if row >= 245 && row < 248 {
			want = p.HSyncLong
		}
		if w != want {
			t.Fatalf("row %d sync width = %d, want %d", row, w, want)
		}
		if (row < 245 || row >= 248) && buf[p.BurstStart+1] != 7680 {
			t.Fatalf("row %d burst[1] = %d, want 7680", row, buf[p.BurstStart+1])
		}
	}
	if e.Line() != 0 {
		t.Fatalf("Line() = %d after a field, want 0", e.Line())
	}
}

func TestPALVSyncBlock(t *testing.T) {
	e, _ := begin(t, timing.PAL, 4)
	p := e.Profile()
	half := p.LineWidth / 2
	buf := make([]uint16, p.LineWidth)

	runTo(e, buf, 304)
	for i, typ := range palVSync {
		e.ScanLine(buf)
		first, second := p.HSyncShort, p.HSyncShort
		if typ&2 != 0 {
			first = p.HSyncLong
		}
		if typ&1 != 0 {
			second = p.HSyncLong
		}
		if buf[first-1] != timing.SyncLevel || buf[first] != timing.BlankingLevel {
			t.Fatalf("row %d first pulse is not %d samples", 304+i, first)
		}
		if buf[half+second-1] != timing.SyncLevel || buf[half+second] != timing.BlankingLevel {
			t.Fatalf("row %d second pulse is not %d samples", 304+i, second)
		}
	}
	if e.Line() != 0 {
		t.Fatalf("Line() = %d, want 0", e.Line())
	}
}

func TestPALActiveRowsReadSourceRows(t *testing.T) {
	e, _ := begin(t, timing.PAL, 4)
	p := e.Profile()
	buf := make([]uint16, p.LineWidth)

	f, err := e.Writable()
	if err != nil {
		t.Fatalf("Writable() err = %v", err)
	}
	f.Fill(palette.Black)
	for x := 0; x < p.Width; x++ {
		f.Row(0)[x] = palette.White
	}
	commitAndRun(t, e, buf)

	runTo(e, buf, 31)
	e.ScanLine(buf)
	if buf[p.PixelStart] != timing.BlankingLevel {
		t.Fatalf("row 31 carries pixels")
	}
	e.ScanLine(buf)
	if buf[p.PixelStart] != timing.WhiteLevel {
		t.Fatalf("row 32 pixel = %#04x, want white %#04x", buf[p.PixelStart], timing.WhiteLevel)
	}
	e.ScanLine(buf)
	if buf[p.PixelStart] != timing.BlackLevel {
		t.Fatalf("row 33 pixel = %#04x, want black %#04x", buf[p.PixelStart], timing.BlackLevel)
	}
}

// commitAndRun commits the back frame and drives interrupts until the swap.
func commitAndRun(t *testing.T, e *Engine, buf []uint16) {
	t.Helper()
	swaps := e.BufferSwaps()
	done := make(chan error, 1)
	go func() { done <- e.Commit() }()

	deadline := time.Now().Add(2 * time.Second)
	for e.BufferSwaps() == swaps {
		if time.Now().After(deadline) {
			t.Fatalf("no swap within deadline")
		}
		e.ScanLine(buf)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Commit() err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Commit() did not return after swap")
	}
}

func TestSwapOnlyAtWrap(t *testing.T) {
	e, _ := begin(t, timing.NTSC, 3)
	p := e.Profile()
	buf := make([]uint16, p.LineWidth)
	runTo(e, buf, 0)
	frames := e.RenderedFrames()

	back, _ := e.Writable()
	done := make(chan error, 1)
	go func() { done <- e.Commit() }()
	c := e.coord.Load()
	for !c.Pending() {
		time.Sleep(time.Millisecond)
	}

	runLines(e, buf, p.TotalLines-1)
	if e.BufferSwaps() != 0 {
		t.Fatalf("swapped before the field wrapped")
	}
	if got, _ := e.Writable(); got != back {
		t.Fatalf("back frame changed before the wrap")
	}
	e.ScanLine(buf)
	if e.BufferSwaps() != 1 || e.RenderedFrames() != frames+1 {
		t.Fatalf("swaps/frames = %d/%d, want 1/%d", e.BufferSwaps(), e.RenderedFrames(), frames+1)
	}
	if c.Front() != back {
		t.Fatalf("committed frame is not in front")
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

func TestSwapsFollowProducerPace(t *testing.T) {
	e, _ := begin(t, timing.PAL, 4)
	p := e.Profile()
	buf := make([]uint16, p.LineWidth)
	runTo(e, buf, 0)
	frames := e.RenderedFrames()

	const n = 10
	prev, _ := e.Writable()
	for i := 1; i <= n; i++ {
		done := make(chan error, 1)
		go func() { done <- e.Commit() }()
		deadline := time.Now().Add(2 * time.Second)
		for !e.Pending() {
			if time.Now().After(deadline) {
				t.Fatalf("frame %d: Commit() never became pending", i)
			}
			time.Sleep(time.Millisecond)
		}

		runLines(e, buf, p.TotalLines)
		if got := e.BufferSwaps(); got != uint32(i) {
			t.Fatalf("frame %d: BufferSwaps() = %d, want %d", i, got, i)
		}
		if got := e.RenderedFrames(); got != frames+uint32(i) {
			t.Fatalf("frame %d: RenderedFrames() = %d, want %d", i, got, frames+uint32(i))
		}
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("frame %d: Commit() err = %v", i, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("frame %d: Commit() did not return", i)
		}

		back, _ := e.Writable()
		if back == prev {
			t.Fatalf("frame %d: back frame did not alternate", i)
		}
		prev = back
	}
	if e.Pending() {
		t.Fatalf("commit still pending after the last swap")
	}
}

func TestStaleFrameRedisplayed(t *testing.T) {
	e, _ := begin(t, timing.NTSC, 4)
	p := e.Profile()
	buf := make([]uint16, p.LineWidth)

	f, _ := e.Writable()
	f.Fill(palette.White)
	commitAndRun(t, e, buf)

	for field := 0; field < 3; field++ {
		runTo(e, buf, 10)
		e.ScanLine(buf)
		if buf[p.PixelStart] != timing.WhiteLevel {
			t.Fatalf("field %d lost the committed frame", field)
		}
		runTo(e, buf, 0)
	}
	if e.BufferSwaps() != 1 {
		t.Fatalf("BufferSwaps() = %d, want 1", e.BufferSwaps())
	}
	if e.RenderedFrames() < 3 {
		t.Fatalf("RenderedFrames() = %d, want >= 3", e.RenderedFrames())
	}
}

func TestTeardownOrder(t *testing.T) {
	out := newFakeOut()
	e, err := New(Config{Standard: timing.PAL, SamplesPerColorClock: 4}, out, nil)
	if err != nil {
		t.Fatalf("New() err = %v", err)
	}
	if err := e.Begin(); err != nil {
		t.Fatalf("Begin() err = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- e.Commit() }()
	time.Sleep(5 * time.Millisecond)

	if err := e.Close(); err != nil {
		t.Fatalf("Close() err = %v", err)
	}
	want := []string{"alloc 1136", "alloc 1136", "start", "disable", "stop", "free 1136", "free 1136"}
	if got := out.Calls(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	select {
	case err := <-done:
		if !errors.Is(err, frame.ErrClosed) && !errors.Is(err, ErrConfiguration) {
			t.Fatalf("Commit() err = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Commit() not woken by Close")
	}
	if _, err := e.Writable(); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Writable() after Close err = %v, want ErrConfiguration", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("second Close() err = %v", err)
	}
	if out.osc.Holders() != 0 {
		t.Fatalf("oscillator holders = %d after Close, want 0", out.osc.Holders())
	}
}

func TestConfigurationErrors(t *testing.T) {
	out := newFakeOut()
	if _, err := New(Config{Standard: timing.PAL, SamplesPerColorClock: 3}, out, nil); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("New(PAL 3) err = %v, want ErrConfiguration", err)
	}

	e := newTestEngine(t, Config{Standard: timing.NTSC, SamplesPerColorClock: 4}, out)
	if _, err := e.Writable(); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Writable() before Begin err = %v, want ErrConfiguration", err)
	}
	if err := e.Commit(); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Commit() before Begin err = %v, want ErrConfiguration", err)
	}
	if _, err := New(Config{Standard: timing.NTSC, SamplesPerColorClock: 4}, newFakeOut(), nil); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("second New() err = %v, want ErrConfiguration", err)
	}
	if err := e.Begin(); err != nil {
		t.Fatalf("Begin() err = %v", err)
	}
	if err := e.Begin(); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("second Begin() err = %v, want ErrConfiguration", err)
	}
}

func TestEngineReusableAfterClose(t *testing.T) {
	e, err := New(Config{Standard: timing.NTSC, SamplesPerColorClock: 4}, newFakeOut(), nil)
	if err != nil {
		t.Fatalf("New() err = %v", err)
	}
	e.Close()
	e2 := newTestEngine(t, Config{Standard: timing.NTSC, SamplesPerColorClock: 4}, newFakeOut())
	if err := e2.Begin(); err != nil {
		t.Fatalf("Begin() err = %v", err)
	}
}

func TestLineOverTransferLimit(t *testing.T) {
	out := newFakeOut()
	out.maxBytes = 1824
	e := newTestEngine(t, Config{Standard: timing.NTSC, SamplesPerColorClock: 4}, out)
	if err := e.Begin(); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Begin() err = %v, want ErrConfiguration", err)
	}
	if len(out.Calls()) != 0 {
		t.Fatalf("calls = %v, want none", out.Calls())
	}
}

func TestBusyOscillatorKeepsFrequency(t *testing.T) {
	out := newFakeOut()
	out.osc.Acquire()
	if _, err := out.osc.Apply(70937900); err != nil {
		t.Fatalf("Apply() err = %v", err)
	}
	log := &logLines{}
	e, err := New(Config{Standard: timing.NTSC, SamplesPerColorClock: 4}, out, log)
	if err != nil {
		t.Fatalf("New() err = %v", err)
	}
	defer e.Close()

	if got := e.Plan().SampleHz; got != 17734476 {
		t.Fatalf("SampleHz = %d, want 17734476", got)
	}
	if !log.contains("warning") {
		t.Fatalf("no warning logged for a busy oscillator")
	}
}

func TestInfeasibleClock(t *testing.T) {
	out := newFakeOut()
	out.osc = clock.NewOscillator(0, nil)
	if _, err := New(Config{Standard: timing.NTSC, SamplesPerColorClock: 4}, out, nil); !errors.Is(err, clock.ErrInfeasible) {
		t.Fatalf("New() err = %v, want ErrInfeasible", err)
	}
	// The failed engine must not hold the instance guard.
	e := newTestEngine(t, Config{Standard: timing.NTSC, SamplesPerColorClock: 4}, newFakeOut())
	_ = e
}

func TestScanLineDoesNotAllocate(t *testing.T) {
	e, _ := begin(t, timing.PAL, 4)
	buf := make([]uint16, e.Profile().LineWidth)
	n := testing.AllocsPerRun(5, func() { runLines(e, buf, e.Profile().TotalLines) })
	if n != 0 {
		t.Fatalf("ScanLine allocs per field = %v, want 0", n)
	}
}

func TestCanvasDisplayer(t *testing.T) {
	e, _ := begin(t, timing.NTSC, 4)
	c := e.Canvas()
	if x, y := c.Size(); x != 256 || y != 240 {
		t.Fatalf("Size() = %d, %d, want 256, 240", x, y)
	}
	f, err := c.Frame()
	if err != nil {
		t.Fatalf("Frame() err = %v", err)
	}
	c.SetPixel(3, 4, palette.RGBA(palette.Cyan))
	if f.At(3, 4) != palette.Cyan {
		t.Fatalf("At(3, 4) = %#02x, want %#02x", f.At(3, 4), palette.Cyan)
	}

	done := make(chan error, 1)
	go func() { done <- c.Display() }()
	buf := make([]uint16, e.Profile().LineWidth)
	deadline := time.Now().Add(2 * time.Second)
	for e.BufferSwaps() == 0 && time.Now().Before(deadline) {
		e.ScanLine(buf)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Display() err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Display() did not return")
	}
}
