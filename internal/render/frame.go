package render

import (
	"fmt"
	"sync"

	"life-gpu/internal/core"
)

// ClearColor is the background the surface is cleared to before drawing.
var ClearColor = RGBA{R: 0, G: 0, B: 0.4, A: 1}

// Frame is one rendered generation: exactly one instance per cell, dead
// cells included.
type Frame struct {
	Grid      core.Grid
	Instances []Instance

	// Seq counts frames produced by the renderer.
	Seq uint64
}

// Build fills the frame from the cell state, reusing the instance slice.
func (f *Frame) Build(g core.Grid, cells core.CellState) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if len(cells) != g.Cells() {
		return fmt.Errorf("cell buffer has %d entries, grid %s needs %d", len(cells), g, g.Cells())
	}
	f.Grid = g
	if cap(f.Instances) < g.Cells() {
		f.Instances = make([]Instance, g.Cells())
	}
	f.Instances = f.Instances[:g.Cells()]
	for i, s := range cells {
		f.Instances[i] = InstanceAt(g, i, s)
	}
	return nil
}

// Visible counts instances with non-zero extent.
func (f *Frame) Visible() int {
	n := 0
	for i := range f.Instances {
		if !f.Instances[i].Degenerate() {
			n++
		}
	}
	return n
}

// Renderer turns the current generation into a Frame. It keeps the latest
// frame so a display loop running at a different rate can draw it.
type Renderer struct {
	mu     sync.RWMutex
	frames [2]Frame
	latest int
	seq    uint64
}

// NewRenderer returns an empty renderer.
func NewRenderer() *Renderer { return &Renderer{latest: -1} }

// Render builds a frame for the given state. The frame only becomes visible
// to Latest once it is complete.
func (r *Renderer) Render(g core.Grid, cells core.CellState) error {
	r.mu.RLock()
	target := (r.latest + 1) & 1
	r.mu.RUnlock()

	f := &r.frames[target]
	if err := f.Build(g, cells); err != nil {
		return err
	}

	r.mu.Lock()
	r.seq++
	f.Seq = r.seq
	r.latest = target
	r.mu.Unlock()
	return nil
}

// Latest calls fn with the most recently completed frame, if any.
func (r *Renderer) Latest(fn func(*Frame)) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.latest < 0 {
		return false
	}
	fn(&r.frames[r.latest])
	return true
}
