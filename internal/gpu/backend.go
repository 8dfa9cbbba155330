// Package gpu drives the Game of Life through a graphics backend: WGSL
// compute and render programs, device-side double-buffered cell storage, and
// one ordered submission per tick.
//
// The backend is an interface so a native WebGPU device and the in-process
// SoftwareBackend are interchangeable. Programs are always compiled from
// WGSL with naga; each ProgramDescriptor also carries a host kernel with the
// same semantics, which backends without a device execute instead.
//
// SoftwareBackend only validates the WGSL and runs the host kernels, so the
// host kernels are authoritative for its results.
package gpu

import (
	"github.com/gogpu/gputypes"

	"life-gpu/internal/render"
)

// BufferHandle identifies a buffer owned by a backend. Zero is never valid.
type BufferHandle uint32

// ProgramHandle identifies a compiled program. Zero is never valid.
type ProgramHandle uint32

// ProgramKind distinguishes compute programs from render programs.
type ProgramKind int

const (
	// ProgramCompute runs a compute entry point over workgroups.
	ProgramCompute ProgramKind = iota
	// ProgramRender runs a vertex + fragment pair over instanced geometry.
	ProgramRender
)

func (k ProgramKind) String() string {
	switch k {
	case ProgramCompute:
		return "compute"
	case ProgramRender:
		return "render"
	default:
		return "unknown"
	}
}

// Features reports what a backend can execute.
type Features struct {
	Compute bool
	Render  bool
}

// Bindings gives host kernels access to the buffers bound for a pass.
type Bindings interface {
	// Buffer returns the contents bound at the given binding index.
	Buffer(binding uint32) []byte
	// Vertex returns the bound vertex buffer.
	Vertex() []byte
}

// ComputeKernel is the host form of a compute entry point, called once per
// global invocation id.
type ComputeKernel func(id [3]uint32, b Bindings)

// VertexOut is what a vertex entry point hands to rasterization.
type VertexOut struct {
	Position render.Vec2
	Cell     [2]float32
}

// RenderKernel is the host form of a vertex + fragment pair. Fragments use
// flat shading: they receive the first vertex of each triangle.
type RenderKernel struct {
	Vertex   func(b Bindings, vertex, instance uint32) VertexOut
	Fragment func(b Bindings, in VertexOut) render.RGBA
}

// ProgramDescriptor describes a program to compile.
type ProgramDescriptor struct {
	Label  string
	Kind   ProgramKind
	Source string
	// Entry points: ComputeEntry for compute programs, VertexEntry and
	// FragmentEntry for render programs.
	ComputeEntry  string
	VertexEntry   string
	FragmentEntry string
	WorkgroupSize [2]uint32
	Layout        []gputypes.BindGroupLayoutEntry

	Compute ComputeKernel
	Render  *RenderKernel
}

// Bind selects a program and the buffers bound at binding 0..n-1.
type Bind struct {
	Program ProgramHandle
	Buffers []BufferHandle
	Vertex  BufferHandle
}

// Command is one ordered stage of a submission.
type Command interface{ stage() string }

// Dispatch runs a compute program over X*Y*Z workgroups.
type Dispatch struct {
	Bind
	X, Y, Z uint32
}

// Draw clears the surface and draws instanced geometry with a render program.
type Draw struct {
	Bind
	VertexCount   uint32
	InstanceCount uint32
	Clear         render.RGBA
}

func (Dispatch) stage() string { return "dispatch" }
func (Draw) stage() string     { return "draw" }

// Backend is the graphics device collaborator. Commands passed to one Submit
// execute in order, and every write made by one command is visible to the
// next.
type Backend interface {
	Name() string
	Features() Features
	CreateStorage(label string, size int, usage gputypes.BufferUsage) (BufferHandle, error)
	Write(h BufferHandle, offset int, data []byte) error
	Read(h BufferHandle) ([]byte, error)
	DestroyBuffer(h BufferHandle)
	CompileProgram(desc ProgramDescriptor) (ProgramHandle, error)
	Submit(cmds ...Command) error
	Destroy()
}
