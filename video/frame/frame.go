// Package frame holds the palette-indexed frame buffers and the lock-free
// handoff between the drawing task and the scanline interrupt.
package frame

import (
	"image/color"

	"tvout/video/palette"
)

// ChunkRows is the number of rows allocated together. At 256 pixels per row
// a chunk is 4 kB, small enough for fragmented heaps.
const ChunkRows = 16

// Frame is a height x width grid of RGB332 palette indices.
type Frame struct {
	width int
	rows  [][]uint8
}

// New allocates a frame in chunks of ChunkRows rows.
func New(width, height int) *Frame {
	f := &Frame{width: width, rows: make([][]uint8, height)}
	for y := 0; y < height; y += ChunkRows {
		n := ChunkRows
		if y+n > height {
			n = height - y
		}
		chunk := make([]uint8, n*width)
		for i := 0; i < n; i++ {
			f.rows[y+i] = chunk[i*width : (i+1)*width : (i+1)*width]
		}
	}
	return f
}

// Width returns the number of pixels per row.
func (f *Frame) Width() int { return f.width }

// Height returns the number of rows.
func (f *Frame) Height() int { return len(f.rows) }

// Row returns row y for direct access.
func (f *Frame) Row(y int) []uint8 { return f.rows[y] }

// Rows returns all rows.
func (f *Frame) Rows() [][]uint8 { return f.rows }

// Size implements drivers.Displayer.
func (f *Frame) Size() (x, y int16) {
	return int16(f.width), int16(len(f.rows))
}

// SetPixel implements drivers.Displayer. The colour is quantized to RGB332.
func (f *Frame) SetPixel(x, y int16, c color.RGBA) {
	f.Set(int(x), int(y), palette.Index(c))
}

// Set stores idx at (x, y). Coordinates outside the frame are ignored.
func (f *Frame) Set(x, y int, idx uint8) {
	if x < 0 || y < 0 || x >= f.width || y >= len(f.rows) {
		return
	}
	f.rows[y][x] = idx
}

// At returns the index at (x, y), or 0 outside the frame.
func (f *Frame) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= f.width || y >= len(f.rows) {
		return 0
	}
	return f.rows[y][x]
}

// Fill sets every pixel to idx.
func (f *Frame) Fill(idx uint8) {
	for _, r := range f.rows {
		for i := range r {
			r[i] = idx
		}
	}
}

// FillRect fills the rectangle clipped to the frame.
func (f *Frame) FillRect(x, y, w, h int, idx uint8) {
	x0, y0 := max(x, 0), max(y, 0)
	x1, y1 := min(x+w, f.width), min(y+h, len(f.rows))
	for yy := y0; yy < y1; yy++ {
		r := f.rows[yy]
		for xx := x0; xx < x1; xx++ {
			r[xx] = idx
		}
	}
}

// CopyFrom copies src, which must have the same geometry.
func (f *Frame) CopyFrom(src *Frame) {
	for y, r := range src.rows {
		copy(f.rows[y], r)
	}
}
