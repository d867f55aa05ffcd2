//go:build !tinygo

package hal

import (
	"fmt"
	"os"
	"sync"
)

// HostConfig tunes the host simulation.
type HostConfig struct {
	// Paced transmits lines at the real sample rate. Unpaced output runs as
	// fast as the monitor consumes it.
	Paced bool
	// Quiet suppresses LED log lines.
	Quiet bool
}

// Host is the host HAL: a simulated video peripheral whose output is
// decoded by a software monitor.
type Host struct {
	logger  *hostLogger
	led     *hostLED
	video   *hostVideo
	kbd     *hostKeyboard
	monitor *hostMonitor
}

// New returns a host HAL implementation with paced output.
func New() HAL {
	return NewHost(HostConfig{Paced: true})
}

// NewHost returns a host HAL configured by cfg.
func NewHost(cfg HostConfig) *Host {
	logger := &hostLogger{w: os.Stdout}
	mon := newHostMonitor()
	return &Host{
		logger:  logger,
		led:     &hostLED{logger: logger, quiet: cfg.Quiet},
		video:   newHostVideo(logger, mon.lines, cfg.Paced),
		kbd:     newHostKeyboard(),
		monitor: mon,
	}
}

func (h *Host) Logger() Logger  { return h.logger }
func (h *Host) LED() LED        { return h.led }
func (h *Host) Video() VideoOut { return h.video }
func (h *Host) Input() Input    { return hostInput{kbd: h.kbd} }

// Monitor returns the software television decoding the video output.
func (h *Host) Monitor() *Monitor { return &Monitor{m: h.monitor} }

type hostInput struct {
	kbd *hostKeyboard
}

func (in hostInput) Keyboard() Keyboard { return in.kbd }

type hostLogger struct {
	mu sync.Mutex
	w  *os.File
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

type hostLED struct {
	mu     sync.Mutex
	on     bool
	quiet  bool
	logger *hostLogger
}

func (l *hostLED) High() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.on = true
	if !l.quiet {
		l.logger.WriteLineString("led: HIGH")
	}
}

func (l *hostLED) Low() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.on = false
	if !l.quiet {
		l.logger.WriteLineString("led: LOW")
	}
}
