package gpu

import (
	_ "embed"

	"github.com/gogpu/gputypes"
)

// WorkgroupSize is the edge of the square compute workgroup. It must match
// @workgroup_size in shaders/simulation.wgsl.
const WorkgroupSize = 8

// Binding indices shared by both programs.
const (
	bindingGrid     = 0
	bindingCellsIn  = 1
	bindingCellsOut = 2
)

//go:embed shaders/cell.wgsl
var cellShaderWGSL string

//go:embed shaders/simulation.wgsl
var simulationShaderWGSL string

func simulationProgram() ProgramDescriptor {
	return ProgramDescriptor{
		Label:         "Game of Life simulation",
		Kind:          ProgramCompute,
		Source:        simulationShaderWGSL,
		ComputeEntry:  "computeMain",
		WorkgroupSize: [2]uint32{WorkgroupSize, WorkgroupSize},
		Layout: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    bindingGrid,
				Visibility: gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    bindingCellsIn,
				Visibility: gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
			},
			{
				Binding:    bindingCellsOut,
				Visibility: gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
			},
		},
		Compute: simulationKernel,
	}
}

func cellProgram() ProgramDescriptor {
	return ProgramDescriptor{
		Label:         "Cell renderer",
		Kind:          ProgramRender,
		Source:        cellShaderWGSL,
		VertexEntry:   "vertexMain",
		FragmentEntry: "fragmentMain",
		Layout: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    bindingGrid,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    bindingCellsIn,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
			},
		},
		Render: &RenderKernel{Vertex: cellVertexKernel, Fragment: cellFragmentKernel},
	}
}
