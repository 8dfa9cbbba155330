package render

import (
	"image"
	"image/color"
	"io"

	"github.com/gogpu/gg"
)

func toGG(c RGBA) gg.RGBA {
	return gg.RGBA{R: float64(c.R), G: float64(c.G), B: float64(c.B), A: float64(c.A)}
}

// ToNRGBA converts a float color to 8-bit channels the way the canvas
// stores them.
func ToNRGBA(c RGBA) color.NRGBA {
	return toGG(c).Color().(color.NRGBA)
}

// ToPixel maps an NDC position onto image pixel space (y down).
func ToPixel(v Vec2, w, h int) (float64, float64) {
	return (float64(v.X) + 1) / 2 * float64(w), (1 - float64(v.Y)) / 2 * float64(h)
}

// Canvas rasterizes NDC triangles onto a gg drawing context.
type Canvas struct {
	dc *gg.Context
}

// NewCanvas returns a w x h canvas cleared to transparent black.
func NewCanvas(w, h int) *Canvas {
	return &Canvas{dc: gg.NewContext(w, h)}
}

// Width returns the canvas width in pixels.
func (c *Canvas) Width() int { return c.dc.Width() }

// Height returns the canvas height in pixels.
func (c *Canvas) Height() int { return c.dc.Height() }

// Clear fills the whole canvas with col.
func (c *Canvas) Clear(col RGBA) {
	c.dc.ClearWithColor(toGG(col))
}

// FillTriangles fills a triangle list in one color. verts holds three
// vertices per triangle; zero-area triangles are skipped. Two consecutive
// triangles sharing an edge are filled as one quad so the shared edge is
// not anti-aliased twice.
func (c *Canvas) FillTriangles(col RGBA, verts ...Vec2) error {
	var tris [][3]Vec2
	for i := 0; i+2 < len(verts); i += 3 {
		t := [3]Vec2{verts[i], verts[i+1], verts[i+2]}
		if area2(t) != 0 {
			tris = append(tris, t)
		}
	}
	g := toGG(col)
	c.dc.SetRGBA(g.R, g.G, g.B, g.A)
	for len(tris) > 0 {
		n := 1
		outline := tris[0][:]
		if len(tris) > 1 {
			if quad, ok := joinQuad(tris[0], tris[1]); ok {
				outline, n = quad[:], 2
			}
		}
		c.polygon(outline)
		if err := c.dc.Fill(); err != nil {
			return err
		}
		tris = tris[n:]
	}
	return nil
}

func (c *Canvas) polygon(pts []Vec2) {
	w, h := c.Width(), c.Height()
	for i, p := range pts {
		x, y := ToPixel(p, w, h)
		if i == 0 {
			c.dc.MoveTo(x, y)
		} else {
			c.dc.LineTo(x, y)
		}
	}
	c.dc.ClosePath()
}

// Image returns a copy of the canvas pixels.
func (c *Canvas) Image() *image.RGBA {
	img, _ := c.dc.Image().(*image.RGBA)
	return img
}

// EncodePNG writes the canvas as PNG.
func (c *Canvas) EncodePNG(w io.Writer) error {
	return c.dc.EncodePNG(w)
}

func area2(t [3]Vec2) float32 {
	return (t[1].X-t[0].X)*(t[2].Y-t[0].Y) - (t[1].Y-t[0].Y)*(t[2].X-t[0].X)
}

// joinQuad merges two triangles that share an edge into one outline, with
// the far vertex of b inserted between the shared vertices of a.
func joinQuad(a, b [3]Vec2) ([4]Vec2, bool) {
	for i := range a {
		p, q, r := a[i], a[(i+1)%3], a[(i+2)%3]
		far, shared := Vec2{}, 0
		for _, v := range b {
			switch v {
			case p, q:
				shared++
			default:
				far = v
			}
		}
		if shared == 2 {
			return [4]Vec2{p, far, q, r}, true
		}
	}
	return [4]Vec2{}, false
}

// Rasterize clears the canvas and draws every visible instance of the frame.
func (f *Frame) Rasterize(c *Canvas) error {
	c.Clear(ClearColor)
	for i := range f.Instances {
		in := &f.Instances[i]
		if in.Degenerate() {
			continue
		}
		if err := c.FillTriangles(in.Color, in.Vertices[:]...); err != nil {
			return err
		}
	}
	return nil
}
