//go:build ebiten

package ui

import (
	"image/color"
	"math"

	"life-gpu/internal/life"
	"life-gpu/internal/render"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Overlay draws optional debugging visuals on top of the grid view.
//
//	1  workgroup tile boundaries
//	2  collapse points of dead-cell instances
type Overlay struct {
	showTiles  bool
	showPoints bool
	pixel      *ebiten.Image
}

// NewOverlay constructs a new overlay instance.
func NewOverlay() *Overlay {
	o := &Overlay{}
	o.pixel = ebiten.NewImage(1, 1)
	o.pixel.Fill(color.White)
	return o
}

// Update allows the overlay to update internal state.
func (o *Overlay) Update() {
	if inpututil.IsKeyJustPressed(ebiten.KeyDigit1) {
		o.showTiles = !o.showTiles
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyDigit2) {
		o.showPoints = !o.showPoints
	}
}

// Draw renders the overlay for the given frame onto the screen.
func (o *Overlay) Draw(screen *ebiten.Image, f *render.Frame, scale int) {
	if f == nil || f.Grid.W <= 0 || f.Grid.H <= 0 {
		return
	}
	if scale <= 0 {
		scale = 1
	}
	w, h := f.Grid.W*scale, f.Grid.H*scale

	if o.showTiles {
		col := color.RGBA{R: 255, G: 200, B: 40, A: 110}
		for _, t := range life.Tiles(f.Grid, life.DefaultTileSize, life.DefaultTileSize) {
			x0 := float64(t.X * scale)
			y0 := float64(t.Y * scale)
			x1 := float64((t.X + t.W) * scale)
			y1 := float64((t.Y + t.H) * scale)
			o.drawLine(screen, x0, y0, x1, y0, 1, col)
			o.drawLine(screen, x0, y0, x0, y1, 1, col)
			if t.X+t.W == f.Grid.W {
				o.drawLine(screen, x1, y0, x1, y1, 1, col)
			}
			if t.Y+t.H == f.Grid.H {
				o.drawLine(screen, x0, y1, x1, y1, 1, col)
			}
		}
	}

	if o.showPoints {
		size := math.Max(1, float64(scale)/6)
		for i := range f.Instances {
			in := &f.Instances[i]
			if !in.Degenerate() {
				continue
			}
			x, y := render.ToPixel(in.Vertices[0], w, h)
			o.drawPoint(screen, x, y, size, color.RGBA{R: 200, G: 200, B: 220, A: 160})
		}
	}
}

func (o *Overlay) drawPoint(screen *ebiten.Image, x, y, size float64, col color.RGBA) {
	if o.pixel == nil || size <= 0 {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(size, size)
	op.GeoM.Translate(x-size*0.5, y-size*0.5)
	op.ColorM.Scale(float64(col.R)/255.0, float64(col.G)/255.0, float64(col.B)/255.0, float64(col.A)/255.0)
	screen.DrawImage(o.pixel, op)
}

func (o *Overlay) drawLine(screen *ebiten.Image, x1, y1, x2, y2, thickness float64, col color.RGBA) {
	if o.pixel == nil || thickness <= 0 {
		return
	}
	dx := x2 - x1
	dy := y2 - y1
	length := math.Hypot(dx, dy)
	if length <= 1e-4 {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(length, thickness)
	op.GeoM.Translate(0, -thickness/2)
	op.GeoM.Rotate(math.Atan2(dy, dx))
	op.GeoM.Translate(x1, y1)
	op.ColorM.Scale(float64(col.R)/255.0, float64(col.G)/255.0, float64(col.B)/255.0, float64(col.A)/255.0)
	screen.DrawImage(o.pixel, op)
}
