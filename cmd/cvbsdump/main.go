// Command cvbsdump renders the composite signal offline and writes it out
// for inspection: a WAV of the raw samples, an oscilloscope plot of one
// line, the picture a television would decode and the field digest.
package main

import (
	"flag"
	"fmt"
	"os"

	"tvout/app"
	"tvout/video/timing"
)

type stderrLogger struct {
	quiet bool
}

func (l stderrLogger) WriteLineString(s string) {
	if !l.quiet {
		fmt.Fprintln(os.Stderr, s)
	}
}

func (l stderrLogger) WriteLineBytes(b []byte) { l.WriteLineString(string(b)) }

func main() {
	var (
		standard = flag.String("standard", "ntsc", "Television system: ntsc or pal.")
		spcc     = flag.Int("spcc", 4, "Samples per colour clock (NTSC: 3 or 4).")
		pattern  = flag.String("pattern", "bars", "Pattern: bars, palette or ramp.")
		wordSwap = flag.Bool("word-swap", false, "Swap adjacent samples.")
		fields   = flag.Int("fields", 2, "Decoded pictures to capture.")
		wavPath  = flag.String("wav", "", "Write the sample stream as WAV.")
		plotPath = flag.String("plot", "", "Write an oscilloscope PNG of one line.")
		row      = flag.Int("row", 100, "Line number to plot.")
		pngPath  = flag.String("png", "", "Write the decoded picture as PNG.")
		scale    = flag.Int("scale", 2, "PNG scale factor.")
		quiet    = flag.Bool("q", false, "Only print the digest.")
	)
	flag.Parse()

	cfg := app.Config{SamplesPerColorClock: *spcc, WordSwap: *wordSwap}
	var err error
	if cfg.Standard, err = timing.ParseStandard(*standard); err != nil {
		fatalf("%v", err)
	}
	if cfg.Pattern, err = app.ParsePattern(*pattern); err != nil {
		fatalf("%v", err)
	}
	if *fields < 1 {
		fatalf("fields must be positive")
	}

	log := stderrLogger{quiet: *quiet}
	res, err := render(cfg, *fields, log)
	if err != nil {
		fatalf("render: %v", err)
	}

	if *wavPath != "" {
		if err := writeWAV(*wavPath, res.Samples, res.Plan.SampleHz); err != nil {
			fatalf("%s: %v", *wavPath, err)
		}
		log.WriteLineString(fmt.Sprintf("wrote %d samples to %s", len(res.Samples), *wavPath))
	}
	if *plotPath != "" {
		if *row < 0 || *row >= len(res.Lines) {
			fatalf("row %d outside 0..%d", *row, len(res.Lines)-1)
		}
		if err := writePlot(*plotPath, res.Lines[*row], res.Profile, *row); err != nil {
			fatalf("%s: %v", *plotPath, err)
		}
	}
	if *pngPath != "" {
		if err := writePNG(*pngPath, res.Picture, *scale); err != nil {
			fatalf("%s: %v", *pngPath, err)
		}
	}

	fmt.Printf("%016x\n", res.Digest)
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "cvbsdump: "+format+"\n", args...)
	os.Exit(2)
}
