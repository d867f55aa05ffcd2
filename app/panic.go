package app

import (
	"fmt"
	"image/color"
	"runtime/debug"
	"strings"

	"tinygo.org/x/tinyfont"

	"tvout/video/palette"
)

const panicLineHeight = 10

// panicScreen logs a producer panic and leaves its message on screen.
func (d *demo) panicScreen(v any) error {
	err := fmt.Errorf("demo panic: %v", v)
	stack := debug.Stack()

	if log := d.log; log != nil {
		log.WriteLineString(err.Error())
		for _, line := range strings.Split(string(stack), "\n") {
			if line == "" {
				continue
			}
			log.WriteLineString(line)
		}
	}

	f, ferr := d.e.Writable()
	if ferr != nil {
		return err
	}
	f.Fill(palette.Blue)

	lines := []string{"producer panic:", fmt.Sprint(v)}
	cols := f.Width() / 5
	y := int16(panicLineHeight)
	fg := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for _, line := range lines {
		for len(line) > 0 && int(y) < f.Height() {
			chunk := line
			if len(chunk) > cols {
				chunk = chunk[:cols]
			}
			tinyfont.WriteLine(d.canvas, d.font, 2, y, chunk, fg)
			y += panicLineHeight
			line = strings.TrimLeft(line[len(chunk):], " ")
		}
	}
	if cerr := d.e.Commit(); cerr != nil && d.log != nil {
		d.log.WriteLineString(fmt.Sprintf("demo: panic screen: %v", cerr))
	}
	return err
}
