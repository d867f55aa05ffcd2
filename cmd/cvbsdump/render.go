package main

import (
	"errors"
	"fmt"
	"image"
	"time"

	"tvout/app"
	"tvout/hal"
	"tvout/video/clock"
	"tvout/video/engine"
	"tvout/video/monitor"
	"tvout/video/timing"
)

// maxSettleFields bounds how long the first frame may take to appear.
const maxSettleFields = 8

var errNoPicture = errors.New("cvbsdump: monitor never locked")

type result struct {
	Profile timing.Profile
	Plan    clock.Plan
	// Samples is the stream from the first shown frame on.
	Samples []uint16
	// Lines holds the last field, indexed by line number.
	Lines   [][]uint16
	Picture *image.RGBA
	Digest  uint64
	Fields  uint32
}

// render draws cfg.Pattern, shows it and captures fields decoded pictures.
func render(cfg app.Config, fields int, log hal.Logger) (*result, error) {
	out := hal.NewCapture(log)
	e, err := engine.New(engine.Config{
		Standard:             cfg.Standard,
		SamplesPerColorClock: cfg.SamplesPerColorClock,
		WordSwap:             cfg.WordSwap,
	}, out, log)
	if err != nil {
		return nil, err
	}
	defer e.Close()
	if err := e.Begin(); err != nil {
		return nil, err
	}

	f, err := e.Writable()
	if err != nil {
		return nil, err
	}
	app.DrawPattern(f, cfg.Pattern)

	prof := e.Profile()
	committed := make(chan error, 1)
	go func() { committed <- e.Commit() }()

	// Lines only run once the commit is pending, so the frame is shown at
	// the first field boundary whatever the scheduler does.
	for !e.Pending() {
		select {
		case err := <-committed:
			return nil, fmt.Errorf("cvbsdump: commit: %w", err)
		case <-time.After(time.Millisecond):
		}
	}
	swaps := e.BufferSwaps()
	for settle := maxSettleFields * prof.TotalLines; e.BufferSwaps() == swaps; settle-- {
		if settle == 0 {
			return nil, fmt.Errorf("cvbsdump: frame not shown after %d fields", maxSettleFields)
		}
		out.Transmit(nil)
	}
	if err := <-committed; err != nil {
		return nil, err
	}

	res := &result{
		Profile: prof,
		Plan:    e.Plan(),
		Lines:   make([][]uint16, prof.TotalLines),
	}
	dec := monitor.NewDecoder()
	line := int(out.Lines() % uint64(prof.TotalLines))
	limit := (fields + maxSettleFields) * prof.TotalLines
	pictures := 0
	sink := func(buf []uint16) {
		res.Samples = append(res.Samples, buf...)
		res.Lines[line] = append(res.Lines[line][:0], buf...)
		line = (line + 1) % prof.TotalLines
		if dec.Feed(buf) {
			pictures++
		}
	}
	for pictures < fields {
		if limit == 0 || !out.Transmit(sink) {
			return nil, errNoPicture
		}
		limit--
	}
	// Finish the field so Lines and the digest describe the same one.
	for line != 0 {
		out.Transmit(sink)
	}

	res.Picture = image.NewRGBA(dec.Image().Bounds())
	copy(res.Picture.Pix, dec.Image().Pix)
	res.Digest, res.Fields = dec.FieldDigest()
	return res, nil
}
