package engine

import (
	"image/color"

	"tinygo.org/x/drivers"

	"tvout/video/frame"
)

var _ drivers.Displayer = (*Canvas)(nil)

// Canvas adapts the engine to drivers.Displayer so that tinygo drawing
// libraries can target the composite output. Pixels go to the back frame;
// Display commits it.
type Canvas struct {
	e *Engine
}

// Canvas returns a drawing surface over the engine's back frame.
func (e *Engine) Canvas() *Canvas { return &Canvas{e: e} }

func (c *Canvas) Size() (x, y int16) {
	return int16(c.e.prof.Width), int16(c.e.prof.ActiveLines)
}

func (c *Canvas) SetPixel(x, y int16, col color.RGBA) {
	if f, err := c.e.Writable(); err == nil {
		f.SetPixel(x, y, col)
	}
}

// Frame returns the back frame for direct index access.
func (c *Canvas) Frame() (*frame.Frame, error) { return c.e.Writable() }

// Display commits the back frame and waits until it is on screen.
func (c *Canvas) Display() error { return c.e.Commit() }
