package main

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"golang.org/x/image/draw"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"tvout/video/timing"
)

// writeWAV stores the sample stream as mono 16-bit PCM at the DAC rate.
func writeWAV(path string, samples []uint16, rateHz uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s) - 0x8000
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: int(rateHz)},
		Data:           data,
		SourceBitDepth: 16,
	}

	enc := wav.NewEncoder(f, int(rateHz), 16, 1, 1)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	return f.Close()
}

// writePlot draws one line as an oscilloscope trace in DAC codes against
// microseconds.
func writePlot(path string, line []uint16, p timing.Profile, row int) error {
	pts := make(plotter.XYs, len(line))
	for i, s := range line {
		pts[i].X = float64(i) / p.SampleRateHz * 1e6
		pts[i].Y = float64(timing.Code(s))
	}

	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("%s line %d", p.Standard, row)
	pl.X.Label.Text = "Time (us)"
	pl.Y.Label.Text = "DAC code"
	pl.Y.Min = 0
	pl.Y.Max = 80
	pl.Add(plotter.NewGrid())

	l, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	pl.Add(l)
	for _, lv := range []struct {
		name string
		code float64
	}{
		{"sync", float64(timing.Code(timing.SyncLevel))},
		{"blank", float64(timing.Code(timing.BlankingLevel))},
		{"black", float64(timing.Code(timing.BlackLevel))},
		{"white", float64(timing.Code(timing.WhiteLevel))},
	} {
		ref, err := plotter.NewLine(plotter.XYs{{X: 0, Y: lv.code}, {X: pts[len(pts)-1].X, Y: lv.code}})
		if err != nil {
			return err
		}
		ref.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
		pl.Add(ref)
		pl.Legend.Add(lv.name, ref)
	}
	return pl.Save(10*vg.Inch, 4*vg.Inch, path)
}

// writePNG stores the decoded picture scaled up by scale.
func writePNG(path string, img *image.RGBA, scale int) error {
	if scale < 1 {
		scale = 1
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, dst); err != nil {
		return err
	}
	return f.Close()
}
