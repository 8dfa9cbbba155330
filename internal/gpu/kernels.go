package gpu

import (
	"encoding/binary"
	"math"

	"life-gpu/internal/core"
	"life-gpu/internal/life"
	"life-gpu/internal/render"
)

// Host kernels mirroring the WGSL entry points. Storage buffers hold one
// little-endian u32 per cell; the grid uniform is two f32 values.

func u32At(buf []byte, i uint32) uint32 {
	return binary.LittleEndian.Uint32(buf[i*4:])
}

func f32At(buf []byte, i uint32) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
}

func gridOf(b Bindings) core.Grid {
	u := b.Buffer(bindingGrid)
	return core.Grid{W: int(f32At(u, 0)), H: int(f32At(u, 1))}
}

func simulationKernel(id [3]uint32, b Bindings) {
	g := gridOf(b)
	w, h := uint32(g.W), uint32(g.H)
	if id[0] >= w || id[1] >= h {
		return
	}
	in := b.Buffer(bindingCellsIn)
	out := b.Buffer(bindingCellsOut)
	x, y := id[0], id[1]
	n := 0
	for j, dy := range [3]uint32{h - 1, 0, 1} {
		for k, dx := range [3]uint32{w - 1, 0, 1} {
			if j == 1 && k == 1 {
				continue
			}
			n += int(u32At(in, ((y+dy)%h)*w+(x+dx)%w))
		}
	}
	i := y*w + x
	binary.LittleEndian.PutUint32(out[i*4:], uint32(life.Next(uint8(u32At(in, i)), n)))
}

func cellVertexKernel(b Bindings, vertex, instance uint32) VertexOut {
	g := gridOf(b)
	vb := b.Vertex()
	pos := render.Vec2{X: f32At(vb, vertex*2), Y: f32At(vb, vertex*2+1)}
	x, y := g.Coord(int(instance))
	state := float32(u32At(b.Buffer(bindingCellsIn), instance))
	return VertexOut{
		Position: render.Vertex(g, pos, x, y, state),
		Cell:     [2]float32{float32(x), float32(y)},
	}
}

func cellFragmentKernel(b Bindings, in VertexOut) render.RGBA {
	return render.Color(gridOf(b), int(in.Cell[0]), int(in.Cell[1]))
}

// encodeCells widens cell state to the u32-per-cell device layout.
func encodeCells(cells core.CellState) []byte {
	buf := make([]byte, len(cells)*4)
	for i, c := range cells {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(c))
	}
	return buf
}

// decodeCells narrows device storage back into dst.
func decodeCells(buf []byte, dst core.CellState) {
	for i := range dst {
		dst[i] = uint8(u32At(buf, uint32(i)))
	}
}

func encodeFloats(vals ...float32) []byte {
	buf := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
