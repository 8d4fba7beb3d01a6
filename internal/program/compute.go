package program

import (
	"sync"
)

// batchCount is the fixed number of dispatch stripes a grid is split into.
const batchCount = 16

// Data is the block handed to every invocation of a compute program: the
// binding state and the dispatch-wide built-in values.
type Data struct {
	DescriptorSets           [][]byte
	DescriptorDynamicOffsets []uint32
	PushConstants            []byte

	NumWorkgroups          [4]uint32
	WorkgroupSize          [4]uint32
	InvocationsPerSubgroup uint32
	InvocationsPerWorkgroup uint32
	SubgroupsPerWorkgroup  uint32

	Constants *Constants
}

// Builtin identifies one compute built-in; a shader declares the ones it
// reads and only those are written into the routine context.
type Builtin uint16

const (
	BuiltinNumWorkgroups Builtin = 1 << iota
	BuiltinWorkgroupID
	BuiltinWorkgroupSize
	BuiltinNumSubgroups
	BuiltinSubgroupSize
	BuiltinLocalInvocationIndex
	BuiltinSubgroupIndex
	BuiltinLocalInvocationID
	BuiltinGlobalInvocationID
)

// Modes is the reflection the dispatch loop needs from a compiled compute
// shader.
type Modes struct {
	WorkgroupSizeX int
	WorkgroupSizeY int
	WorkgroupSizeZ int

	ContainsControlBarriers bool
	WorkgroupMemorySize     int

	Builtins Builtin
}

// RoutineContext receives the per-subgroup built-ins before each
// coroutine starts. Lane-indexed fields hold one value per SIMD lane.
type RoutineContext struct {
	Data            *Data
	WorkgroupMemory []byte

	NumWorkgroups          [4]uint32
	WorkgroupID            [4]uint32
	WorkgroupSize          [4]uint32
	SubgroupsPerWorkgroup  uint32
	InvocationsPerSubgroup uint32

	LocalInvocationIndex [SIMDWidth]uint32
	SubgroupIndex        uint32
	LocalInvocationID    [3][SIMDWidth]uint32
	GlobalInvocationID   [3][SIMDWidth]uint32

	// ActiveLaneMask disables the out-of-range lanes of the trailing
	// subgroup.
	ActiveLaneMask [SIMDWidth]bool
}

// CoroutineState is the explicit scheduling state of one subgroup
// coroutine.
type CoroutineState uint8

const (
	CoroutineRunning CoroutineState = iota
	CoroutineYieldedAtBarrier
	CoroutineDone
)

// Coroutine is a resumable subgroup execution. Await advances it one step
// and reports whether it yielded (true) or finished (false).
type Coroutine interface {
	Await() bool
}

// Entry starts the execution of subgroupCount subgroups, beginning at
// firstSubgroup, for one workgroup. The returned coroutine yields at every
// control barrier.
type Entry func(ctx *RoutineContext, firstSubgroup, subgroupCount int) Coroutine

// Compute is a compiled compute program bound to its executable code.
type Compute struct {
	ID    uint32
	Modes Modes

	entry Entry
	code  *Code
}

// NewCompute wraps a materialized entry point.
func NewCompute(modes Modes, entry Entry, code *Code) *Compute {
	return &Compute{
		ID:    NewProgramID(),
		Modes: modes,
		entry: entry,
		code:  code,
	}
}

// Release frees the executable mapping.
func (p *Compute) Release() error {
	if p.code != nil {
		return p.code.Release()
	}
	return nil
}

// Run dispatches the full grid: the flat group count is split into
// batchCount stripes, each stripe walking groupIndex = batchID,
// batchID+batchCount, ... with its own workgroup-memory scratch.
func (p *Compute) Run(
	descriptorSets [][]byte,
	descriptorDynamicOffsets []uint32,
	pushConstants []byte,
	baseGroupX, baseGroupY, baseGroupZ uint32,
	groupCountX, groupCountY, groupCountZ uint32,
) {
	invocationsPerSubgroup := uint32(SIMDWidth)
	invocationsPerWorkgroup := uint32(p.Modes.WorkgroupSizeX * p.Modes.WorkgroupSizeY * p.Modes.WorkgroupSizeZ)
	subgroupsPerWorkgroup := (invocationsPerWorkgroup + invocationsPerSubgroup - 1) / invocationsPerSubgroup

	data := &Data{
		DescriptorSets:           descriptorSets,
		DescriptorDynamicOffsets: descriptorDynamicOffsets,
		PushConstants:            pushConstants,
		NumWorkgroups:            [4]uint32{groupCountX, groupCountY, groupCountZ, 0},
		WorkgroupSize: [4]uint32{
			uint32(p.Modes.WorkgroupSizeX),
			uint32(p.Modes.WorkgroupSizeY),
			uint32(p.Modes.WorkgroupSizeZ),
			0,
		},
		InvocationsPerSubgroup:  invocationsPerSubgroup,
		InvocationsPerWorkgroup: invocationsPerWorkgroup,
		SubgroupsPerWorkgroup:   subgroupsPerWorkgroup,
		Constants:               GlobalConstants(),
	}

	groupCount := groupCountX * groupCountY * groupCountZ

	var wg sync.WaitGroup
	for batchID := uint32(0); batchID < batchCount && batchID < groupCount; batchID++ {
		wg.Add(1)
		go func(batchID uint32) {
			defer wg.Done()
			workgroupMemory := make([]byte, p.Modes.WorkgroupMemorySize)

			for groupIndex := batchID; groupIndex < groupCount; groupIndex += batchCount {
				modulo := groupIndex
				groupOffsetZ := modulo / (groupCountX * groupCountY)
				modulo -= groupOffsetZ * (groupCountX * groupCountY)
				groupOffsetY := modulo / groupCountX
				modulo -= groupOffsetY * groupCountX
				groupOffsetX := modulo

				groupX := baseGroupX + groupOffsetX
				groupY := baseGroupY + groupOffsetY
				groupZ := baseGroupZ + groupOffsetZ

				p.runWorkgroup(data, groupX, groupY, groupZ, workgroupMemory)
			}
		}(batchID)
	}
	wg.Wait()
}

// runWorkgroup starts the workgroup's coroutines and drives them
// round-robin through a FIFO until none yields. With control barriers in
// the shader each subgroup gets its own coroutine so that all subgroups
// can reach the barrier together; without barriers a single coroutine
// spans all subgroups.
func (p *Compute) runWorkgroup(data *Data, groupX, groupY, groupZ uint32, workgroupMemory []byte) {
	var coroutines []Coroutine

	if p.Modes.ContainsControlBarriers {
		for subgroupIndex := 0; subgroupIndex < int(data.SubgroupsPerWorkgroup); subgroupIndex++ {
			ctx := p.routineContext(data, groupX, groupY, groupZ, workgroupMemory)
			coroutines = append(coroutines, p.entry(ctx, subgroupIndex, 1))
		}
	} else {
		ctx := p.routineContext(data, groupX, groupY, groupZ, workgroupMemory)
		coroutines = append(coroutines, p.entry(ctx, 0, int(data.SubgroupsPerWorkgroup)))
	}

	for len(coroutines) > 0 {
		coroutine := coroutines[0]
		coroutines = coroutines[1:]

		if coroutine.Await() {
			coroutines = append(coroutines, coroutine)
		}
	}
}

func (p *Compute) routineContext(data *Data, groupX, groupY, groupZ uint32, workgroupMemory []byte) *RoutineContext {
	ctx := &RoutineContext{
		Data:            data,
		WorkgroupMemory: workgroupMemory,
	}
	p.setWorkgroupBuiltins(ctx, data, [3]uint32{groupX, groupY, groupZ})
	return ctx
}

// setWorkgroupBuiltins writes the per-workgroup built-ins the shader
// references.
func (p *Compute) setWorkgroupBuiltins(ctx *RoutineContext, data *Data, workgroupID [3]uint32) {
	builtins := p.Modes.Builtins

	if builtins&BuiltinNumWorkgroups != 0 {
		ctx.NumWorkgroups = data.NumWorkgroups
	}
	if builtins&BuiltinWorkgroupID != 0 {
		ctx.WorkgroupID = [4]uint32{workgroupID[0], workgroupID[1], workgroupID[2], 0}
	}
	if builtins&BuiltinWorkgroupSize != 0 {
		ctx.WorkgroupSize = data.WorkgroupSize
	}
	if builtins&BuiltinNumSubgroups != 0 {
		ctx.SubgroupsPerWorkgroup = data.SubgroupsPerWorkgroup
	}
	if builtins&BuiltinSubgroupSize != 0 {
		ctx.InvocationsPerSubgroup = data.InvocationsPerSubgroup
	}
}

// SetSubgroupBuiltins writes the per-subgroup built-ins before a
// coroutine step: lane indices, the decoded 3D local ID and the global
// ID, plus the active-lane mask for the trailing subgroup. Generated
// entry points call this from their preamble.
func SetSubgroupBuiltins(ctx *RoutineContext, modes Modes, workgroupID [3]uint32, subgroupIndex uint32) {
	data := ctx.Data
	sizeX := data.WorkgroupSize[0]
	sizeY := data.WorkgroupSize[1]

	var localInvocationIndex [SIMDWidth]uint32
	for lane := uint32(0); lane < SIMDWidth; lane++ {
		localInvocationIndex[lane] = subgroupIndex*SIMDWidth + lane
	}

	builtins := modes.Builtins

	if builtins&BuiltinLocalInvocationIndex != 0 {
		ctx.LocalInvocationIndex = localInvocationIndex
	}
	if builtins&BuiltinSubgroupIndex != 0 {
		ctx.SubgroupIndex = subgroupIndex
	}

	var localID [3][SIMDWidth]uint32
	for lane := 0; lane < SIMDWidth; lane++ {
		idx := localInvocationIndex[lane]
		z := idx / (sizeX * sizeY)
		idx -= z * sizeX * sizeY
		y := idx / sizeX
		idx -= y * sizeX
		localID[0][lane] = idx
		localID[1][lane] = y
		localID[2][lane] = z
	}

	if builtins&BuiltinLocalInvocationID != 0 {
		ctx.LocalInvocationID = localID
	}
	if builtins&BuiltinGlobalInvocationID != 0 {
		for c := 0; c < 3; c++ {
			base := data.WorkgroupSize[c] * workgroupID[c]
			for lane := 0; lane < SIMDWidth; lane++ {
				ctx.GlobalInvocationID[c][lane] = base + localID[c][lane]
			}
		}
	}

	// Disable lanes beyond the workgroup's invocation count.
	for lane := 0; lane < SIMDWidth; lane++ {
		ctx.ActiveLaneMask[lane] = localInvocationIndex[lane] < data.InvocationsPerWorkgroup
	}
}
