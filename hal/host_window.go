//go:build !tinygo && cgo

package hal

import (
	"context"
	"errors"

	"tvout/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
)

// RunWindow opens a desktop window showing the decoded picture and forwards
// keyboard input. It blocks until the window closes.
func RunWindow(newApp NewAppFunc) error {
	h := NewHost(HostConfig{Paced: true})
	mon := h.Monitor()

	ctx, cancel := context.WithCancel(context.Background())
	monDone := make(chan error, 1)
	go func() { monDone <- mon.Run(ctx) }()

	a, err := newApp(h)
	if err != nil {
		cancel()
		<-monDone
		return err
	}

	g := &hostGame{h: h, mon: mon, app: a}
	ebiten.SetWindowTitle("tvout (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(monitorWidth*3, monitorHeight*3)
	ebiten.SetTPS(60)
	err = ebiten.RunGame(g)
	if errors.Is(err, ebiten.Termination) {
		err = nil
	}

	if cerr := a.Close(); cerr != nil && err == nil {
		err = cerr
	}
	cancel()
	<-monDone
	return err
}

type hostGame struct {
	h   *Host
	mon *Monitor
	app App

	seq uint32
	pix []byte
	img *ebiten.Image
}

func (g *hostGame) Update() error {
	g.h.kbd.poll()
	return g.app.Step()
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	if g.img == nil {
		g.img = ebiten.NewImage(monitorWidth, monitorHeight)
		g.pix = make([]byte, monitorWidth*monitorHeight*4)
	}
	if seq := g.mon.Seq(); seq != g.seq {
		g.seq = g.mon.snapshotInto(g.pix)
		g.img.WritePixels(g.pix)
	}
	screen.DrawImage(g.img, nil)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return monitorWidth, monitorHeight
}
