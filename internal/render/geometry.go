// Package render maps cell state to instanced quad geometry and rasterizes
// the result. Positions are in normalized device coordinates (NDC): x and y
// in [-1, 1] with y pointing up.
package render

import "life-gpu/internal/core"

// Vec2 is a 2-component float vector.
type Vec2 struct{ X, Y float32 }

// RGBA is a color with float channels in [0, 1].
type RGBA struct{ R, G, B, A float32 }

// QuadHalfExtent is the half-size of the base quad in cell units, leaving a
// small gap between neighboring cells.
const QuadHalfExtent = 0.8

// VerticesPerInstance is the vertex count of the base quad (two triangles).
const VerticesPerInstance = 6

// BaseQuad is the quad shared by every instance.
var BaseQuad = [VerticesPerInstance]Vec2{
	{-QuadHalfExtent, -QuadHalfExtent},
	{QuadHalfExtent, -QuadHalfExtent},
	{QuadHalfExtent, QuadHalfExtent},
	{-QuadHalfExtent, -QuadHalfExtent},
	{QuadHalfExtent, QuadHalfExtent},
	{-QuadHalfExtent, QuadHalfExtent},
}

// Instance is the rendered form of one cell.
type Instance struct {
	X, Y     int
	Vertices [VerticesPerInstance]Vec2
	Color    RGBA
}

// Offset returns the NDC point a cell's quad is centered on. A dead cell's
// quad collapses onto this point.
func Offset(g core.Grid, x, y int) Vec2 {
	return Vec2{
		X: 1/float32(g.W) - 1 + float32(x)/float32(g.W)*2,
		Y: 1/float32(g.H) - 1 + float32(y)/float32(g.H)*2,
	}
}

// Vertex transforms base vertex v for the cell at (x, y) with the given
// state: (v*state + 1)/grid - 1 + cell/grid*2.
func Vertex(g core.Grid, v Vec2, x, y int, state float32) Vec2 {
	gw, gh := float32(g.W), float32(g.H)
	return Vec2{
		X: (v.X*state+1)/gw - 1 + float32(x)/gw*2,
		Y: (v.Y*state+1)/gh - 1 + float32(y)/gh*2,
	}
}

// Color returns the color of the cell at (x, y). It encodes position only;
// liveness is expressed through geometry.
func Color(g core.Grid, x, y int) RGBA {
	return RGBA{
		R: float32(x) / float32(g.W),
		G: 1 - float32(y)/float32(g.H),
		B: 1,
		A: 1,
	}
}

// InstanceAt builds the instance for linear cell index i.
func InstanceAt(g core.Grid, i int, state uint8) Instance {
	x, y := g.Coord(i)
	s := float32(0)
	if state != 0 {
		s = 1
	}
	inst := Instance{X: x, Y: y, Color: Color(g, x, y)}
	for k, v := range BaseQuad {
		inst.Vertices[k] = Vertex(g, v, x, y, s)
	}
	return inst
}

// Degenerate reports whether every vertex of the instance coincides.
func (in Instance) Degenerate() bool {
	for _, v := range in.Vertices[1:] {
		if v != in.Vertices[0] {
			return false
		}
	}
	return true
}
