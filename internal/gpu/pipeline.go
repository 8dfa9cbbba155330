package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"life-gpu/internal/core"
	"life-gpu/internal/render"
)

// Pipeline owns the device-side state for one grid: the grid uniform, the
// base quad, two cell buffers and the two programs. bindGroups[p] reads
// cells[p] and writes cells[1-p], so parity alone decides which buffer is
// current.
type Pipeline struct {
	backend Backend
	grid    core.Grid

	uniform  BufferHandle
	vertices BufferHandle
	cells    [2]BufferHandle

	simulation ProgramHandle
	renderer   ProgramHandle
	canRender  bool

	bindGroups [2][]BufferHandle
	parity     int
}

// NewPipeline allocates buffers and compiles programs for the grid. It fails
// with core.ErrCapability before allocating anything when the backend cannot
// run compute programs, and releases whatever it allocated on any later
// failure.
func NewPipeline(b Backend, g core.Grid) (_ *Pipeline, err error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	feats := b.Features()
	if !feats.Compute {
		return nil, fmt.Errorf("%w: backend %s has no compute support", core.ErrCapability, b.Name())
	}
	p := &Pipeline{backend: b, grid: g, canRender: feats.Render}
	defer func() {
		if err != nil {
			p.Release()
		}
	}()

	if p.uniform, err = b.CreateStorage("Grid Uniforms", 8, gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst); err != nil {
		return nil, fmt.Errorf("create grid uniform: %w", err)
	}
	if p.vertices, err = b.CreateStorage("Cell vertices", render.VerticesPerInstance*8, gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst); err != nil {
		return nil, fmt.Errorf("create vertex buffer: %w", err)
	}
	cellUsage := gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc
	for i, label := range [2]string{"Cell State A", "Cell State B"} {
		if p.cells[i], err = b.CreateStorage(label, g.Cells()*4, cellUsage); err != nil {
			return nil, fmt.Errorf("create %s: %w", label, err)
		}
	}

	if err = b.Write(p.uniform, 0, encodeFloats(float32(g.W), float32(g.H))); err != nil {
		return nil, err
	}
	quad := make([]float32, 0, render.VerticesPerInstance*2)
	for _, v := range render.BaseQuad {
		quad = append(quad, v.X, v.Y)
	}
	if err = b.Write(p.vertices, 0, encodeFloats(quad...)); err != nil {
		return nil, err
	}

	if p.simulation, err = b.CompileProgram(simulationProgram()); err != nil {
		return nil, err
	}
	if p.canRender {
		if p.renderer, err = b.CompileProgram(cellProgram()); err != nil {
			return nil, err
		}
	}

	p.bindGroups[0] = []BufferHandle{p.uniform, p.cells[0], p.cells[1]}
	p.bindGroups[1] = []BufferHandle{p.uniform, p.cells[1], p.cells[0]}
	core.Logger().Info("gpu: pipeline ready", "backend", b.Name(), "grid", g.String(), "render", p.canRender)
	return p, nil
}

// Grid returns the grid the pipeline was built for.
func (p *Pipeline) Grid() core.Grid { return p.grid }

// Parity returns the index of the device buffer holding the current
// generation.
func (p *Pipeline) Parity() int { return p.parity }

// Workgroups returns the dispatch size covering the grid with 8x8 groups.
func (p *Pipeline) Workgroups() (uint32, uint32) {
	return uint32((p.grid.W + WorkgroupSize - 1) / WorkgroupSize),
		uint32((p.grid.H + WorkgroupSize - 1) / WorkgroupSize)
}

func (p *Pipeline) checkLen(cells core.CellState) error {
	if len(cells) != p.grid.Cells() {
		return fmt.Errorf("cell buffer has %d entries, grid %s needs %d", len(cells), p.grid, p.grid.Cells())
	}
	return nil
}

// Seed uploads the initial contents of both device buffers and makes buffer
// A current.
func (p *Pipeline) Seed(a, b core.CellState) error {
	if err := p.checkLen(a); err != nil {
		return err
	}
	if err := p.checkLen(b); err != nil {
		return err
	}
	if err := p.backend.Write(p.cells[0], 0, encodeCells(a)); err != nil {
		return err
	}
	if err := p.backend.Write(p.cells[1], 0, encodeCells(b)); err != nil {
		return err
	}
	p.parity = 0
	return nil
}

// Upload replaces the current device buffer's contents.
func (p *Pipeline) Upload(cells core.CellState) error {
	if err := p.checkLen(cells); err != nil {
		return err
	}
	return p.backend.Write(p.cells[p.parity], 0, encodeCells(cells))
}

func (p *Pipeline) dispatch() Dispatch {
	x, y := p.Workgroups()
	return Dispatch{
		Bind: Bind{Program: p.simulation, Buffers: p.bindGroups[p.parity]},
		X:    x,
		Y:    y,
		Z:    1,
	}
}

func (p *Pipeline) draw() Draw {
	return Draw{
		Bind:          Bind{Program: p.renderer, Buffers: p.bindGroups[p.parity], Vertex: p.vertices},
		VertexCount:   render.VerticesPerInstance,
		InstanceCount: uint32(p.grid.Cells()),
		Clear:         render.ClearColor,
	}
}

// Compute advances the device state by one generation without drawing.
func (p *Pipeline) Compute() error {
	if err := p.backend.Submit(p.dispatch()); err != nil {
		return err
	}
	p.parity ^= 1
	return nil
}

// Tick runs one full frame as a single submission: the compute pass reads
// the current buffer and writes the other, parity flips, and the draw pass
// reads the buffer just written. Parity only changes when the submission
// succeeds.
func (p *Pipeline) Tick() error {
	if !p.canRender {
		return fmt.Errorf("%w: backend %s cannot draw", core.ErrCapability, p.backend.Name())
	}
	compute := p.dispatch()
	p.parity ^= 1
	if err := p.backend.Submit(compute, p.draw()); err != nil {
		p.parity ^= 1
		return err
	}
	return nil
}

// Draw renders the current buffer without stepping.
func (p *Pipeline) Draw() error {
	if !p.canRender {
		return fmt.Errorf("%w: backend %s cannot draw", core.ErrCapability, p.backend.Name())
	}
	return p.backend.Submit(p.draw())
}

// ReadCurrent copies the current device buffer into dst.
func (p *Pipeline) ReadCurrent(dst core.CellState) error {
	if err := p.checkLen(dst); err != nil {
		return err
	}
	buf, err := p.backend.Read(p.cells[p.parity])
	if err != nil {
		return err
	}
	decodeCells(buf, dst)
	return nil
}

// Release frees every buffer the pipeline allocated.
func (p *Pipeline) Release() {
	for _, h := range []BufferHandle{p.uniform, p.vertices, p.cells[0], p.cells[1]} {
		if h != 0 {
			p.backend.DestroyBuffer(h)
		}
	}
	p.uniform, p.vertices, p.cells = 0, 0, [2]BufferHandle{}
}
