package gpu

import (
	"fmt"
	"image"
	"io"
	"runtime"
	"strings"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"golang.org/x/sync/errgroup"

	"life-gpu/internal/core"
	"life-gpu/internal/render"
)

// SoftwareOptions configures a SoftwareBackend.
type SoftwareOptions struct {
	// SurfaceW and SurfaceH size the render target. Zero disables Draw.
	SurfaceW, SurfaceH int
	// MaxBufferBytes caps total storage; zero means unlimited.
	MaxBufferBytes int
	// DisableCompute hides compute support, for adapters without it.
	DisableCompute bool
	// Workers bounds concurrent workgroups; <= 0 uses GOMAXPROCS.
	Workers int
}

type softBuffer struct {
	label string
	usage gputypes.BufferUsage
	data  []byte
}

type softProgram struct {
	desc ProgramDescriptor
}

// SoftwareBackend executes programs on the host. Buffers are byte slices,
// compute workgroups run concurrently, and draws rasterize onto a
// render.Canvas.
type SoftwareBackend struct {
	mu        sync.Mutex
	opts      SoftwareOptions
	buffers   map[BufferHandle]*softBuffer
	programs  map[ProgramHandle]*softProgram
	next      uint32
	allocated int
	surface   *render.Canvas
	lost      bool
}

// NewSoftwareBackend returns a ready backend.
func NewSoftwareBackend(opts SoftwareOptions) *SoftwareBackend {
	b := &SoftwareBackend{
		opts:     opts,
		buffers:  map[BufferHandle]*softBuffer{},
		programs: map[ProgramHandle]*softProgram{},
	}
	if opts.SurfaceW > 0 && opts.SurfaceH > 0 {
		b.surface = render.NewCanvas(opts.SurfaceW, opts.SurfaceH)
	}
	return b
}

// Name identifies the backend.
func (b *SoftwareBackend) Name() string { return "software" }

// Features reports compute support and whether a surface exists.
func (b *SoftwareBackend) Features() Features {
	return Features{Compute: !b.opts.DisableCompute, Render: b.surface != nil}
}

// Lose simulates device loss. Every later call fails with core.ErrDeviceLost.
func (b *SoftwareBackend) Lose() {
	b.mu.Lock()
	b.lost = true
	b.mu.Unlock()
}

func (b *SoftwareBackend) handle() uint32 {
	b.next++
	return b.next
}

// CreateStorage allocates a zeroed buffer.
func (b *SoftwareBackend) CreateStorage(label string, size int, usage gputypes.BufferUsage) (BufferHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lost {
		return 0, core.ErrDeviceLost
	}
	if size <= 0 {
		return 0, fmt.Errorf("buffer %q: invalid size %d", label, size)
	}
	if b.opts.MaxBufferBytes > 0 && b.allocated+size > b.opts.MaxBufferBytes {
		return 0, fmt.Errorf("%w: buffer %q needs %d bytes, %d of %d in use",
			core.ErrResourceExhausted, label, size, b.allocated, b.opts.MaxBufferBytes)
	}
	h := BufferHandle(b.handle())
	b.buffers[h] = &softBuffer{label: label, usage: usage, data: make([]byte, size)}
	b.allocated += size
	return h, nil
}

// Write copies data into the buffer at offset.
func (b *SoftwareBackend) Write(h BufferHandle, offset int, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lost {
		return core.ErrDeviceLost
	}
	buf, ok := b.buffers[h]
	if !ok {
		return fmt.Errorf("write: unknown buffer %d", h)
	}
	if buf.usage&gputypes.BufferUsageCopyDst == 0 {
		return fmt.Errorf("write: buffer %q lacks CopyDst usage", buf.label)
	}
	if offset < 0 || offset+len(data) > len(buf.data) {
		return fmt.Errorf("write: %d bytes at %d overflow buffer %q (%d bytes)", len(data), offset, buf.label, len(buf.data))
	}
	copy(buf.data[offset:], data)
	return nil
}

// Read returns a copy of the buffer contents.
func (b *SoftwareBackend) Read(h BufferHandle) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lost {
		return nil, core.ErrDeviceLost
	}
	buf, ok := b.buffers[h]
	if !ok {
		return nil, fmt.Errorf("read: unknown buffer %d", h)
	}
	if buf.usage&gputypes.BufferUsageCopySrc == 0 {
		return nil, fmt.Errorf("read: buffer %q lacks CopySrc usage", buf.label)
	}
	return append([]byte(nil), buf.data...), nil
}

// DestroyBuffer frees the buffer. Unknown handles are ignored.
func (b *SoftwareBackend) DestroyBuffer(h BufferHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if buf, ok := b.buffers[h]; ok {
		b.allocated -= len(buf.data)
		delete(b.buffers, h)
	}
}

// Allocated reports the bytes currently held by buffers.
func (b *SoftwareBackend) Allocated() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.allocated
}

// CompileProgram compiles the WGSL source to SPIR-V and checks that the
// descriptor carries a host kernel for its kind.
func (b *SoftwareBackend) CompileProgram(desc ProgramDescriptor) (ProgramHandle, error) {
	switch desc.Kind {
	case ProgramCompute:
		if b.opts.DisableCompute {
			return 0, fmt.Errorf("%w: compute programs", core.ErrCapability)
		}
		if desc.Compute == nil {
			return 0, fmt.Errorf("program %q: no host compute kernel", desc.Label)
		}
		if desc.WorkgroupSize[0] == 0 || desc.WorkgroupSize[1] == 0 {
			return 0, fmt.Errorf("program %q: zero workgroup size", desc.Label)
		}
	case ProgramRender:
		if desc.Render == nil || desc.Render.Vertex == nil || desc.Render.Fragment == nil {
			return 0, fmt.Errorf("program %q: no host render kernel", desc.Label)
		}
	default:
		return 0, fmt.Errorf("program %q: unknown kind %d", desc.Label, desc.Kind)
	}
	if err := validateLayout(desc); err != nil {
		return 0, err
	}
	spirv, err := CompileWGSL(desc.Source)
	if err != nil {
		// The host kernel does not need SPIR-V, so naga feature gaps only
		// cost validation here.
		if !Unimplemented(err) {
			return 0, fmt.Errorf("program %q: %w", desc.Label, err)
		}
		core.Logger().Warn("gpu: shader not validated, using host kernel", "label", desc.Label, "err", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lost {
		return 0, core.ErrDeviceLost
	}
	h := ProgramHandle(b.handle())
	b.programs[h] = &softProgram{desc: desc}
	core.Logger().Debug("gpu: program compiled", "label", desc.Label, "kind", desc.Kind, "spirv_words", len(spirv))
	return h, nil
}

// CompileWGSL compiles WGSL to SPIR-V words.
func CompileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader: %w", err)
	}
	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// Unimplemented reports whether a compile error comes from a WGSL feature
// naga does not support yet, as opposed to an invalid shader.
func Unimplemented(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported")
}

func validateLayout(desc ProgramDescriptor) error {
	stage := gputypes.ShaderStageCompute
	if desc.Kind == ProgramRender {
		stage = gputypes.ShaderStageVertex | gputypes.ShaderStageFragment
	}
	seen := map[uint32]bool{}
	for _, e := range desc.Layout {
		if seen[e.Binding] {
			return fmt.Errorf("program %q: duplicate binding %d", desc.Label, e.Binding)
		}
		seen[e.Binding] = true
		if e.Visibility&stage == 0 {
			return fmt.Errorf("program %q: binding %d not visible to %s stage", desc.Label, e.Binding, desc.Kind)
		}
		if e.Buffer == nil {
			return fmt.Errorf("program %q: binding %d is not a buffer binding", desc.Label, e.Binding)
		}
	}
	return nil
}

type softBindings struct {
	buffers [][]byte
	vertex  []byte
}

func (s softBindings) Buffer(binding uint32) []byte {
	if int(binding) >= len(s.buffers) {
		return nil
	}
	return s.buffers[binding]
}

func (s softBindings) Vertex() []byte { return s.vertex }

// resolve checks the bind against the program layout and gathers buffers.
func (b *SoftwareBackend) resolve(bind Bind, kind ProgramKind) (*softProgram, softBindings, error) {
	prog, ok := b.programs[bind.Program]
	if !ok {
		return nil, softBindings{}, fmt.Errorf("unknown program %d", bind.Program)
	}
	if prog.desc.Kind != kind {
		return nil, softBindings{}, fmt.Errorf("program %q is a %s program, not %s", prog.desc.Label, prog.desc.Kind, kind)
	}
	var sb softBindings
	sb.buffers = make([][]byte, len(bind.Buffers))
	for i, h := range bind.Buffers {
		buf, ok := b.buffers[h]
		if !ok {
			return nil, softBindings{}, fmt.Errorf("program %q: unknown buffer %d at binding %d", prog.desc.Label, h, i)
		}
		sb.buffers[i] = buf.data
	}
	for _, e := range prog.desc.Layout {
		if int(e.Binding) >= len(bind.Buffers) {
			return nil, softBindings{}, fmt.Errorf("program %q: binding %d not bound", prog.desc.Label, e.Binding)
		}
		buf := b.buffers[bind.Buffers[e.Binding]]
		want := gputypes.BufferUsageStorage
		if e.Buffer.Type == gputypes.BufferBindingTypeUniform {
			want = gputypes.BufferUsageUniform
		}
		if buf.usage&want == 0 {
			return nil, softBindings{}, fmt.Errorf("program %q: buffer %q at binding %d has wrong usage", prog.desc.Label, buf.label, e.Binding)
		}
	}
	if bind.Vertex != 0 {
		buf, ok := b.buffers[bind.Vertex]
		if !ok || buf.usage&gputypes.BufferUsageVertex == 0 {
			return nil, softBindings{}, fmt.Errorf("program %q: invalid vertex buffer %d", prog.desc.Label, bind.Vertex)
		}
		sb.vertex = buf.data
	}
	return prog, sb, nil
}

// Submit executes the commands in order. The backend lock is held for the
// whole submission, so Write and Read never observe a half-finished pass.
func (b *SoftwareBackend) Submit(cmds ...Command) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lost {
		return core.ErrDeviceLost
	}
	for i, cmd := range cmds {
		var err error
		switch c := cmd.(type) {
		case Dispatch:
			err = b.dispatch(c)
		case Draw:
			err = b.draw(c)
		default:
			err = fmt.Errorf("unsupported command %T", cmd)
		}
		if err != nil {
			return fmt.Errorf("submit stage %d (%s): %w", i, cmd.stage(), err)
		}
	}
	return nil
}

func (b *SoftwareBackend) dispatch(c Dispatch) error {
	if b.opts.DisableCompute {
		return fmt.Errorf("%w: compute dispatch", core.ErrCapability)
	}
	prog, binds, err := b.resolve(c.Bind, ProgramCompute)
	if err != nil {
		return err
	}
	z := max(c.Z, 1)
	ws := prog.desc.WorkgroupSize
	kernel := prog.desc.Compute

	workers := b.opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	var eg errgroup.Group
	eg.SetLimit(workers)
	for wz := uint32(0); wz < z; wz++ {
		for wy := uint32(0); wy < c.Y; wy++ {
			for wx := uint32(0); wx < c.X; wx++ {
				eg.Go(func() error {
					for ly := uint32(0); ly < ws[1]; ly++ {
						for lx := uint32(0); lx < ws[0]; lx++ {
							kernel([3]uint32{wx*ws[0] + lx, wy*ws[1] + ly, wz}, binds)
						}
					}
					return nil
				})
			}
		}
	}
	return eg.Wait()
}

func (b *SoftwareBackend) draw(c Draw) error {
	if b.surface == nil {
		return fmt.Errorf("%w: no render surface", core.ErrCapability)
	}
	prog, binds, err := b.resolve(c.Bind, ProgramRender)
	if err != nil {
		return err
	}
	b.surface.Clear(c.Clear)
	k := prog.desc.Render
	verts := make([]render.Vec2, 0, c.VertexCount)
	for inst := uint32(0); inst < c.InstanceCount; inst++ {
		verts = verts[:0]
		var first VertexOut
		for v := uint32(0); v+2 < c.VertexCount; v += 3 {
			var tri [3]VertexOut
			for j := range tri {
				tri[j] = k.Vertex(binds, v+uint32(j), inst)
			}
			if tri[0].Position == tri[1].Position && tri[1].Position == tri[2].Position {
				continue
			}
			if len(verts) == 0 {
				first = tri[0]
			}
			verts = append(verts, tri[0].Position, tri[1].Position, tri[2].Position)
		}
		if len(verts) == 0 {
			continue
		}
		if err := b.surface.FillTriangles(k.Fragment(binds, first), verts...); err != nil {
			return fmt.Errorf("instance %d: %w", inst, err)
		}
	}
	return nil
}

// Surface returns a copy of the render target, or nil without one.
func (b *SoftwareBackend) Surface() *image.RGBA {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.surface == nil {
		return nil
	}
	return b.surface.Image()
}

// EncodeSurface writes the render target as PNG.
func (b *SoftwareBackend) EncodeSurface(w io.Writer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.surface == nil {
		return fmt.Errorf("%w: no render surface", core.ErrCapability)
	}
	return b.surface.EncodePNG(w)
}

// Destroy releases every buffer and program.
func (b *SoftwareBackend) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffers = map[BufferHandle]*softBuffer{}
	b.programs = map[ProgramHandle]*softProgram{}
	b.allocated = 0
}
