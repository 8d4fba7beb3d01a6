package glsl

import (
	"github.com/swrast/swrast/internal/shader"
)

// componentCount returns the scalar offset corresponding to a register
// offset within a composite type.
func componentCount(t *Type, registers int) int {
	if registers == 0 {
		return 0
	}

	if t.IsArray() && registers >= t.ElementRegisterCount() {
		index := registers / t.ElementRegisterCount()
		registers -= index * t.ElementRegisterCount()
		return index*t.ElementSize() + componentCount(t, registers)
	}

	if t.IsStruct() {
		elements := 0
		for i := range t.Fields {
			fieldType := t.Fields[i].Type
			if fieldType.TotalRegisterCount() <= registers {
				registers -= fieldType.TotalRegisterCount()
				elements += fieldType.ObjectSize()
			} else { // Register within this field
				return elements + componentCount(fieldType, registers)
			}
		}
		return elements
	}

	if t.IsMatrix() {
		return registers * t.Size
	}

	return 0
}

// registerSize returns the nominal size of the register at a register
// offset within a composite type.
func registerSize(t *Type, registers int) int {
	if registers == 0 {
		if t.IsStruct() {
			return registerSize(t.Fields[0].Type, 0)
		}
		return t.Size
	}

	if t.IsArray() && registers >= t.ElementRegisterCount() {
		index := registers / t.ElementRegisterCount()
		registers -= index * t.ElementRegisterCount()
		return registerSize(t, registers)
	}

	if t.IsStruct() {
		for i := range t.Fields {
			fieldType := t.Fields[i].Type
			if fieldType.TotalRegisterCount() <= registers {
				registers -= fieldType.TotalRegisterCount()
			} else { // Register within this field
				return registerSize(fieldType, registers)
			}
		}
		return 0
	}

	if t.IsMatrix() {
		return registerSize(t, 0)
	}

	return t.Size
}

// emit appends one instruction addressing up to three sources at register
// offset 0.
func (e *Emitter) emit(op shader.Opcode, dst, src0, src1, src2 *Node) *shader.Instruction {
	return e.emitIndexed(op, dst, 0, src0, src1, src2)
}

// emitIndexed appends one instruction addressing operands at the given
// register offset.
func (e *Emitter) emitIndexed(op shader.Opcode, dst *Node, index int, src0, src1, src2 *Node) *shader.Instruction {
	if dst != nil && e.registerType(dst) == shader.ParamSampler {
		// Can't assign to a sampler, but this is hit when indexing sampler arrays.
		op = shader.OpNull
	}

	instruction := shader.NewInstruction(op)

	if dst != nil {
		instruction.Dst.Type = e.registerType(dst)
		instruction.Dst.Index = uint32(e.registerIndex(dst) + index)
		instruction.Dst.Mask = e.writeMask(dst, 0)
		instruction.Dst.Integer = dst.Type.Basic == TInt
	}

	e.argument(&instruction.Src[0], src0, index)
	e.argument(&instruction.Src[1], src1, index)
	e.argument(&instruction.Src[2], src2, index)

	e.shader.Append(instruction)

	return instruction
}

// emitCast inserts the conversion op implied by the operand types;
// integers are stored as floats in the register files.
func (e *Emitter) emitCast(dst, src *Node) *shader.Instruction {
	if (dst.Type.Basic == TFloat || dst.Type.Basic == TInt) && src.Type.Basic == TBool {
		return e.emit(shader.OpB2F, dst, src, nil, nil)
	}
	if dst.Type.Basic == TBool && (src.Type.Basic == TFloat || src.Type.Basic == TInt) {
		return e.emit(shader.OpF2B, dst, src, nil, nil)
	}
	if dst.Type.Basic == TInt && src.Type.Basic == TFloat {
		return e.emit(shader.OpTrunc, dst, src, nil, nil)
	}
	return e.emit(shader.OpMov, dst, src, nil, nil)
}

// emitBinary emits op once per destination register.
func (e *Emitter) emitBinary(op shader.Opcode, dst, src0, src1 *Node) {
	for index := 0; index < dst.ElementRegisterCount(); index++ {
		e.emitIndexed(op, dst, index, src0, src1, nil)
	}
}

// emitAssign emits op into result and stores result through the lhs
// l-value.
func (e *Emitter) emitAssign(op shader.Opcode, result, lhs, src0, src1 *Node) {
	e.emitBinary(op, result, src0, src1)
	e.assignLvalue(lhs, result)
}

// emitCmp emits a comparison; boolean operands compare with the integer
// compare opcode.
func (e *Emitter) emitCmp(cmpOp shader.Control, dst *Node, left, right *Node, index int) {
	opcode := shader.OpCmp
	if left.Type.Basic == TBool {
		opcode = shader.OpICmp
	}

	cmp := e.emit(opcode, dst, left, right, nil)
	cmp.Control = cmpOp
	e.argument(&cmp.Src[0], left, index)
	e.argument(&cmp.Src[1], right, index)
}

// argument resolves a node reference into a source parameter at a register
// offset.
func (e *Emitter) argument(parameter *shader.SourceParameter, argument *Node, index int) {
	if argument == nil {
		return
	}

	t := &argument.Type
	size := registerSize(t, index)

	parameter.Type = e.registerType(argument)

	if t.Qualifier == QualConst && argument.Kind == KindConstant {
		component := componentCount(t, index)
		constants := argument.Const

		for i := 0; i < 4; i++ {
			switch {
			case size == 1: // Replicate
				parameter.Value[i] = constants[component+0].AsFloat()
			case i < size:
				parameter.Value[i] = constants[component+i].AsFloat()
			default:
				parameter.Value[i] = 0
			}
		}
	} else {
		parameter.Index = uint32(e.registerIndex(argument) + index)

		if parameter.Type == shader.ParamSampler {
			if binary := argument.AsBinary(); binary != nil {
				left := binary.Left
				right := binary.Right

				switch binary.Op {
				case OpIndexDirect:
					parameter.Index += uint32(right.IntConst())
				case OpIndexIndirect:
					if left.Type.ArraySize > 1 {
						parameter.Rel.Type = e.registerType(right)
						parameter.Rel.Index = uint32(e.registerIndex(right))
						parameter.Rel.Scale = 1
						parameter.Rel.Deterministic = true
					}
				}
			}
		}
	}

	if !argument.Type.Basic.IsSampler() {
		parameter.Swizzle = e.readSwizzle(argument, size)
	}
}

// copy moves every register of src into dst, starting at a register offset
// into src.
func (e *Emitter) copy(dst, src *Node, offset int) {
	for index := 0; index < dst.TotalRegisterCount(); index++ {
		mov := e.emit(shader.OpMov, dst, nil, nil, nil)
		mov.Dst.Index += uint32(index)
		mov.Dst.Mask = e.writeMask(dst, index)
		e.argument(&mov.Src[0], src, offset+index)
	}
}

// assignLvalue stores src through the l-value dst, resolving swizzled,
// indexed and struct-member targets. An indirectly indexed scalar target
// requires the INSERT form.
func (e *Emitter) assignLvalue(dst, src *Node) {
	binary := dst.AsBinary()

	if binary != nil && binary.Op == OpIndexIndirect && dst.IsScalar() {
		insert := shader.NewInstruction(shader.OpInsert)

		address := e.temporary()
		e.lvalue(&insert.Dst, address, dst)

		insert.Src[0].Type = insert.Dst.Type
		insert.Src[0].Index = insert.Dst.Index
		insert.Src[0].Rel = insert.Dst.Rel
		e.argument(&insert.Src[1], src, 0)
		e.argument(&insert.Src[2], binary.Right, 0)

		e.shader.Append(insert)
		e.freeTemporary(address)
		return
	}

	for offset := 0; offset < dst.TotalRegisterCount(); offset++ {
		mov := shader.NewInstruction(shader.OpMov)

		address := e.temporary()
		swizzle := e.lvalue(&mov.Dst, address, dst)
		mov.Dst.Index += uint32(offset)

		if offset > 0 {
			mov.Dst.Mask = e.writeMask(dst, offset)
		}

		e.argument(&mov.Src[0], src, offset)
		mov.Src[0].Swizzle = shader.ComposeSwizzle(mov.Src[0].Swizzle, swizzle)

		e.shader.Append(mov)
		e.freeTemporary(address)
	}
}

// lvalue resolves node into a destination parameter, emitting address
// arithmetic for nested indirect indexing. The returned swizzle maps
// source lanes onto the destination.
func (e *Emitter) lvalue(dst *shader.DestinationParameter, address *Node, node *Node) uint8 {
	binary := node.AsBinary()
	symbol := node.AsSymbol()

	switch {
	case binary != nil:
		left := binary.Left
		right := binary.Right

		leftSwizzle := e.lvalue(dst, address, left) // Resolve the l-value of the left side

		switch binary.Op {
		case OpIndexDirect:
			rightIndex := right.IntConst()

			if left.IsRegister() {
				element := shader.SwizzleElement(leftSwizzle, rightIndex)
				dst.Mask = 1 << element
				return uint8(element)
			} else if left.IsArray() || left.IsMatrix() {
				dst.Index += uint32(rightIndex * node.TotalRegisterCount())
				return shader.SwizzleIdentity
			}
		case OpIndexIndirect:
			if left.IsRegister() {
				// Requires the INSERT instruction (handled by assignLvalue).
			} else if left.IsArray() || left.IsMatrix() {
				scale := node.TotalRegisterCount()

				if dst.Rel.Type == shader.ParamVoid { // Use the index register as the relative address directly
					if left.TotalRegisterCount() > 1 {
						var relativeRegister shader.SourceParameter
						e.argument(&relativeRegister, right, 0)

						dst.Rel.Index = relativeRegister.Index
						dst.Rel.Type = relativeRegister.Type
						dst.Rel.Scale = scale
						dst.Rel.Deterministic = !(e.vertexShader != nil && left.Type.Qualifier == QualUniform)
					}
				} else if dst.Rel.Index != uint32(e.registerIndex(address)) { // Move the previous index register to the address register
					if scale == 1 {
						oldScale := intConstant(dst.Rel.Scale)
						mad := e.emit(shader.OpMad, address, address, oldScale, right)
						mad.Src[0].Index = dst.Rel.Index
						mad.Src[0].Type = dst.Rel.Type
					} else {
						oldScale := intConstant(dst.Rel.Scale)
						mul := e.emit(shader.OpMul, address, address, oldScale, nil)
						mul.Src[0].Index = dst.Rel.Index
						mul.Src[0].Type = dst.Rel.Type

						newScale := intConstant(scale)
						e.emit(shader.OpMad, address, right, newScale, address)
					}

					dst.Rel.Type = shader.ParamTemp
					dst.Rel.Index = uint32(e.registerIndex(address))
					dst.Rel.Scale = 1
				} else { // Just add the new index to the address register
					if scale == 1 {
						e.emit(shader.OpAdd, address, address, right, nil)
					} else {
						newScale := intConstant(scale)
						e.emit(shader.OpMad, address, right, newScale, address)
					}
				}
			}
		case OpIndexDirectStruct:
			offset := 0
			for i := range left.Type.Fields {
				if left.Type.Fields[i].Name == right.Name {
					dst.Type = e.registerType(left)
					dst.Index += uint32(offset)
					dst.Mask = e.writeMask(right, 0)
					return shader.SwizzleIdentity
				}
				offset += left.Type.Fields[i].Type.TotalRegisterCount()
			}
		case OpVectorSwizzle:
			leftMask := dst.Mask

			swizzle := 0
			rightMask := 0

			for i, component := range right.Children {
				index := component.IntConst()
				element := shader.SwizzleElement(leftSwizzle, index)
				rightMask |= 1 << element
				swizzle |= shader.SwizzleElement(leftSwizzle, i) << (element * 2)
			}

			dst.Mask = leftMask & uint8(rightMask)

			return uint8(swizzle)
		}
	case symbol != nil:
		dst.Type = e.registerType(symbol)
		dst.Index = uint32(e.registerIndex(symbol))
		dst.Mask = e.writeMask(symbol, 0)
		return shader.SwizzleIdentity
	}

	return shader.SwizzleIdentity
}

// registerType maps a node's qualifier to the register file it addresses.
func (e *Emitter) registerType(operand *Node) shader.ParameterType {
	if operand.Type.Basic.IsSampler() &&
		(operand.Type.Qualifier == QualUniform || operand.Type.Qualifier == QualTemporary) { // Function parameters are temporaries
		return shader.ParamSampler
	}

	switch operand.Type.Qualifier {
	case QualTemporary, QualGlobal:
		return shader.ParamTemp
	case QualConst:
		return shader.ParamFloatLiteral // All converted to float
	case QualAttribute:
		return shader.ParamInput
	case QualVaryingIn, QualInvariantVaryingIn:
		return shader.ParamInput
	case QualVaryingOut, QualInvariantVaryingOut:
		return shader.ParamOutput
	case QualUniform:
		return shader.ParamConst
	case QualIn, QualOut, QualInOut, QualConstReadOnly:
		return shader.ParamTemp
	case QualPosition, QualPointSize:
		return shader.ParamOutput
	case QualFragCoord, QualFrontFacing:
		return shader.ParamMiscType
	case QualPointCoord:
		return shader.ParamInput
	case QualFragColor, QualFragData:
		return shader.ParamColorOut
	}

	return shader.ParamVoid
}

// registerIndex assigns (or looks up) the register of a node in its file.
func (e *Emitter) registerIndex(operand *Node) int {
	if e.registerType(operand) == shader.ParamSampler {
		return e.samplerRegister(operand)
	}

	switch operand.Type.Qualifier {
	case QualTemporary, QualGlobal, QualIn, QualOut, QualInOut, QualConstReadOnly:
		return e.temporaryRegister(operand)
	case QualAttribute:
		return e.attributeRegister(operand)
	case QualVaryingIn, QualVaryingOut, QualInvariantVaryingIn, QualInvariantVaryingOut,
		QualPosition, QualPointSize, QualPointCoord:
		return e.varyingRegister(operand)
	case QualUniform:
		return e.uniformRegister(operand)
	case QualFragCoord:
		e.pixelShader.VPosDeclared = true
		return 0
	case QualFrontFacing:
		e.pixelShader.VFaceDeclared = true
		return 1
	case QualFragColor, QualFragData:
		return 0
	}

	return 0
}

// writeMask computes the destination mask of a register at an offset.
func (e *Emitter) writeMask(destination *Node, index int) uint8 {
	if destination.Type.Qualifier == QualPointSize {
		return 0x2 // Point size stored in the y component
	}
	return 0xF >> (4 - registerSize(&destination.Type, index))
}

// readSwizzle returns the canonical swizzle for reading size components.
func (e *Emitter) readSwizzle(argument *Node, size int) uint8 {
	if argument.Type.Qualifier == QualPointSize {
		return 0x55 // Point size stored in the y component
	}

	// (void), xxxx, xyyy, xyzz, xyzw
	swizzleSize := [5]uint8{0x00, 0x00, 0x54, 0xA4, 0xE4}
	return swizzleSize[size]
}
