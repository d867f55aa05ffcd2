//go:build !tinygo

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"tvout/app"
	"tvout/hal"
	"tvout/video/timing"
)

func main() {
	var cfg hal.HeadlessConfig
	var standard, pattern string
	acfg := app.DefaultConfig()
	flag.StringVar(&standard, "standard", "ntsc", "Television system: ntsc or pal.")
	flag.IntVar(&acfg.SamplesPerColorClock, "spcc", 4, "Samples per colour clock for NTSC (3 or 4).")
	flag.BoolVar(&acfg.WordSwap, "word-swap", false, "Swap adjacent samples for high-half-first transmitters.")
	flag.StringVar(&pattern, "pattern", "bars", "Demo pattern: bars, palette or ramp.")
	flag.BoolVar(&cfg.Enabled, "headless", false, "Run without a window.")
	flag.BoolVar(&cfg.Paced, "paced", true, "Transmit lines at the real line rate in headless mode.")
	fields := flag.Uint("fields", 0, "Stop after N decoded pictures in headless mode (0 = run forever).")
	flag.Parse()
	cfg.Fields = uint32(*fields)

	var err error
	if acfg.Standard, err = timing.ParseStandard(standard); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if acfg.Pattern, err = app.ParsePattern(pattern); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if acfg.Standard == timing.PAL {
		acfg.SamplesPerColorClock = 4
	}

	newApp := func(h hal.HAL) (hal.App, error) {
		a, err := app.New(h, acfg)
		if err != nil {
			return nil, err
		}
		return a, nil
	}

	if cfg.Enabled {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := hal.RunHeadless(ctx, newApp, cfg); err != nil {
			if err == context.Canceled {
				return
			}
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := hal.RunWindow(newApp); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
