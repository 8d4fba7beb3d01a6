// Package swrast exposes the shader-compilation core of a software
// renderer: front ends for the legacy token-stream ISA and the typed tree
// IR, an x86-64 JIT assembler, and the compute dispatch driver. The
// Vulkan object layer, rasterizer and sampler runtime live outside this
// module and consume the Program and reflection surfaces defined here.
package swrast

import (
	"github.com/pkg/errors"

	"github.com/swrast/swrast/internal/glsl"
	"github.com/swrast/swrast/internal/program"
	"github.com/swrast/swrast/internal/shader"
)

// Reflection metadata and IR surface, shared with the internal packages.
type (
	// Attribute is one active vertex attribute.
	Attribute = glsl.Attribute
	// Uniform is one active uniform, flattened through structs/arrays.
	Uniform = glsl.Uniform
	// Varying is one stage-to-stage interpolated output.
	Varying = glsl.Varying

	// Node is a typed tree-IR node produced by the upstream parser.
	Node = glsl.Node
	// CompileContext carries the tree root and collects diagnostics.
	CompileContext = glsl.CompileContext

	// ComputeModes is the reflection the dispatch loop needs.
	ComputeModes = program.Modes
	// RoutineContext receives built-ins before a subgroup coroutine runs.
	RoutineContext = program.RoutineContext
	// Coroutine is a resumable subgroup execution.
	Coroutine = program.Coroutine
	// Entry starts the coroutine(s) of one workgroup invocation.
	Entry = program.Entry
)

// Program is a compiled shader plus its reflection metadata. Graphics
// programs carry the instruction stream handed to the pipeline back ends;
// compute programs carry a callable entry point.
type Program struct {
	vertex *shader.VertexShader
	pixel  *shader.PixelShader

	reflection *glsl.Reflection

	compute *program.Compute
}

// CompileVertexShader lowers a vertex tree IR into a vertex program.
func CompileVertexShader(ctx *CompileContext) (*Program, error) {
	vs := shader.NewVertexShader()
	emitter := glsl.NewEmitter(ctx, nil, vs)
	emitter.Output()

	if ctx.ErrorCount() > 0 {
		return nil, errors.Errorf("vertex shader compilation failed: %s", ctx.Diagnostics()[0])
	}

	return &Program{vertex: vs, reflection: emitter.Reflection()}, nil
}

// CompilePixelShader lowers a fragment tree IR into a pixel program.
func CompilePixelShader(ctx *CompileContext) (*Program, error) {
	ps := shader.NewPixelShader()
	emitter := glsl.NewEmitter(ctx, ps, nil)
	emitter.Output()

	if ctx.ErrorCount() > 0 {
		return nil, errors.Errorf("pixel shader compilation failed: %s", ctx.Diagnostics()[0])
	}

	return &Program{pixel: ps, reflection: emitter.Reflection()}, nil
}

// NewComputeProgram materializes assembled machine code into an
// executable page and binds it to the dispatch driver. entry adapts the
// page's entry point into the coroutine protocol.
func NewComputeProgram(modes ComputeModes, entry Entry, machineCode []byte) (*Program, error) {
	code, err := program.Materialize(machineCode)
	if err != nil {
		return nil, err
	}
	return &Program{compute: program.NewCompute(modes, entry, code)}, nil
}

// Run dispatches a compute grid.
func (p *Program) Run(
	descriptorSets [][]byte,
	descriptorDynamicOffsets []uint32,
	pushConstants []byte,
	baseGroupX, baseGroupY, baseGroupZ uint32,
	groupCountX, groupCountY, groupCountZ uint32,
) error {
	if p.compute == nil {
		return errors.New("not a compute program")
	}
	p.compute.Run(descriptorSets, descriptorDynamicOffsets, pushConstants,
		baseGroupX, baseGroupY, baseGroupZ,
		groupCountX, groupCountY, groupCountZ)
	return nil
}

// Release frees any executable mapping owned by the program.
func (p *Program) Release() error {
	if p.compute != nil {
		return p.compute.Release()
	}
	return nil
}

// ActiveAttributes returns the reflected vertex attributes.
func (p *Program) ActiveAttributes() []Attribute {
	if p.reflection == nil {
		return nil
	}
	return p.reflection.Attributes
}

// ActiveUniforms returns the reflected uniforms.
func (p *Program) ActiveUniforms() []Uniform {
	if p.reflection == nil {
		return nil
	}
	return p.reflection.Uniforms
}

// Varyings returns the varying list with the emitter's register assignments.
func (p *Program) Varyings() []Varying {
	if p.reflection == nil {
		return nil
	}
	return p.reflection.Varyings
}

// SamplerCount returns the number of declared sampler registers.
func (p *Program) SamplerCount() int {
	count := 0
	for i := 0; i < 16; i++ {
		if sh := p.shader(); sh != nil && sh.UsesSampler(i) {
			count++
		}
	}
	return count
}

// Hash returns the content hash of a token-stream shader, or zero for
// tree-compiled programs.
func (p *Program) Hash() int64 {
	if sh := p.shader(); sh != nil {
		return sh.Hash()
	}
	return 0
}

// ContainsDynamicBranching reports whether any branch depends on
// non-constant state.
func (p *Program) ContainsDynamicBranching() bool {
	sh := p.shader()
	return sh != nil && sh.ContainsDynamicBranching()
}

// DirtyConstants returns the float/int/bool constant counts the driver
// must upload before a draw.
func (p *Program) DirtyConstants() (f, i, b uint32) {
	sh := p.shader()
	if sh == nil {
		return 0, 0, 0
	}
	return sh.DirtyConstantsF, sh.DirtyConstantsI, sh.DirtyConstantsB
}

func (p *Program) shader() *shader.Shader {
	switch {
	case p.vertex != nil:
		return &p.vertex.Shader
	case p.pixel != nil:
		return &p.pixel.Shader
	}
	return nil
}
