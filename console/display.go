package console

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
)

// InitDisplay configures the host window before ebiten.RunGame.
func (c *Console) InitDisplay(scale int) {
	w, h := c.vdp.DisplayDimensions()
	ebiten.SetWindowSize(w*scale, h*scale)
	ebiten.SetWindowTitle("HX-1")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
}

// Layout returns the active resolution of the VDP and is part of
// the ebiten.Game interface. By ignoring the window size here, we
// force ebiten to scale the display when the window size changes.
func (c *Console) Layout(w, h int) (int, int) {
	return c.vdp.DisplayDimensions()
}

// Draw updates the displayed ebiten window with the current state of
// the VDP framebuffer.
func (c *Console) Draw(screen *ebiten.Image) {
	fb := c.vdp.Framebuffer()
	w, h := c.vdp.DisplayDimensions()

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := fb[y*w+x]
			screen.Set(x, y, color.RGBA{
				R: uint8(px >> 16),
				G: uint8(px >> 8),
				B: uint8(px),
				A: 0xFF,
			})
		}
	}
}

// Update is called by ebiten roughly every 1/60s. Emulation is driven
// by Run on its own goroutine, so Update does nothing.
func (c *Console) Update() error {
	// We do work in a different goroutine and don't need ebiten
	// to drive this. We have to be implemented and called though
	// as it's part of the required interface.
	return nil
}
