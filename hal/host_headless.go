//go:build !tinygo

package hal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Enabled bool
	// Paced transmits at the real line rate.
	Paced bool
	// Fields stops after N decoded pictures (0 = run forever).
	Fields uint32
	// Hz is the foreground step rate.
	Hz int
}

var errDone = errors.New("done")

// RunHeadless runs the generator without opening a window. The monitor
// still decodes every line; a status line is shown when stdout is a
// terminal.
func RunHeadless(ctx context.Context, newApp NewAppFunc, cfg HeadlessConfig) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}

	h := NewHost(HostConfig{Paced: cfg.Paced, Quiet: !cfg.Paced})
	mon := h.Monitor()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mon.Run(ctx) })

	a, err := newApp(h)
	if err != nil {
		cancel()
		g.Wait()
		return err
	}

	g.Go(func() error {
		t := time.NewTicker(d)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
			}
			if err := a.Step(); err != nil {
				return err
			}
			if cfg.Fields > 0 && mon.Pictures() >= cfg.Fields {
				return errDone
			}
		}
	})

	if term.IsTerminal(int(os.Stdout.Fd())) {
		g.Go(func() error { return status(ctx, h, mon) })
	}

	err = g.Wait()
	if cerr := a.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if errors.Is(err, errDone) {
		digest, n := mon.Digest()
		h.logger.WriteLineString(fmt.Sprintf("monitor: %d pictures, %d lines, field %d digest %016x",
			mon.Pictures(), mon.Lines(), n, digest))
		return nil
	}
	return err
}

func status(ctx context.Context, h *Host, mon *Monitor) error {
	t := time.NewTicker(500 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		lock := "no signal"
		if mon.Locked() {
			lock = "locked"
		}
		h.logger.WriteLineString(fmt.Sprintf("monitor: %s, %d lines sent, %d pictures",
			lock, h.video.Lines(), mon.Pictures()))
	}
}
