package glsl

import (
	"github.com/swrast/swrast/internal/shader"
)

// Scope selects which half of the two-pass emission is active: the GLOBAL
// pass emits top-level declarations and collects the function table, the
// FUNCTION pass emits the bodies.
type scope uint8

const (
	scopeGlobal scope = iota
	scopeFunction
)

// function is one entry of the function table; main() is always label 0.
type function struct {
	label int
	name  string
	args  []*Node
	ret   *Node
}

// Emitter lowers a typed tree into the register-based instruction stream,
// recording reflection metadata as identifiers are assigned registers.
type Emitter struct {
	ctx *CompileContext

	shader       *shader.Shader
	pixelShader  *shader.PixelShader
	vertexShader *shader.VertexShader

	reflection Reflection

	temporaries     variableArray
	uniforms        variableArray
	varyings        variableArray
	attributes      variableArray
	samplers        variableArray
	fragmentOutputs variableArray

	emitScope    scope
	currentScope scope

	currentFunction int
	functions       []function

	nextTemporaryID int
}

// NewEmitter targets either a pixel or a vertex shader; exactly one of ps,
// vs must be non-nil.
func NewEmitter(ctx *CompileContext, ps *shader.PixelShader, vs *shader.VertexShader) *Emitter {
	e := &Emitter{
		ctx:          ctx,
		pixelShader:  ps,
		vertexShader: vs,
	}
	if ps != nil {
		e.shader = &ps.Shader
	} else {
		e.shader = &vs.Shader
	}
	e.functions = append(e.functions, function{label: 0, name: "main"})
	return e
}

// Reflection returns the metadata recorded during emission.
func (e *Emitter) Reflection() *Reflection {
	return &e.reflection
}

// Output runs the two emission passes over the tree root.
func (e *Emitter) Output() {
	e.emitShader(scopeGlobal)

	if len(e.functions) > 1 { // Only call main() when there are other functions
		callMain := e.emit(shader.OpCall, nil, nil, nil, nil)
		callMain.Dst.Type = shader.ParamLabel
		callMain.Dst.Index = 0 // main()

		e.emit(shader.OpRet, nil, nil, nil, nil)
	}

	e.emitShader(scopeFunction)
}

func (e *Emitter) emitShader(s scope) {
	e.emitScope = s
	e.currentScope = scopeGlobal
	Traverse(e.ctx.TreeRoot, e)
}

// temporary allocates a scratch register node; callers free it with
// freeTemporary once the value is dead.
func (e *Emitter) temporary() *Node {
	e.nextTemporaryID--
	return &Node{
		Kind: KindSymbol,
		ID:   e.nextTemporaryID,
		Type: Type{Basic: TFloat, Size: 4, Qualifier: QualTemporary},
	}
}

func (e *Emitter) freeTemporary(t *Node) {
	e.release(e.temporaries, t)
}

func floatConstant(x, y, z, w float32) *Node {
	return &Node{
		Kind: KindConstant,
		Type: Type{Basic: TFloat, Size: 4, Qualifier: QualConst},
		Const: []ConstantValue{
			{Basic: TFloat, Float: x},
			{Basic: TFloat, Float: y},
			{Basic: TFloat, Float: z},
			{Basic: TFloat, Float: w},
		},
	}
}

func boolConstant(b bool) *Node {
	return &Node{
		Kind:  KindConstant,
		Type:  Type{Basic: TBool, Size: 1, Qualifier: QualConst},
		Const: []ConstantValue{{Basic: TBool, Bool: b}},
	}
}

func intConstant(i int) *Node {
	return &Node{
		Kind:  KindConstant,
		Type:  Type{Basic: TInt, Size: 1, Qualifier: QualConst},
		Const: []ConstantValue{{Basic: TInt, Int: int32(i)}},
	}
}

// VisitSymbol implements Visitor.
func (e *Emitter) VisitSymbol(symbol *Node) {
	// Vertex varyings don't have to be actively used to successfully link
	// against pixel shaders that use them, so make sure they're declared.
	if symbol.Type.Qualifier == QualVaryingOut || symbol.Type.Qualifier == QualInvariantVaryingOut {
		e.declareVarying(symbol, -1)
	}
}

// VisitConstant implements Visitor.
func (e *Emitter) VisitConstant(*Node) {}

// VisitBinary implements Visitor.
func (e *Emitter) VisitBinary(visit Visit, node *Node) bool {
	if e.currentScope != e.emitScope {
		return false
	}

	result := node
	left := node.Left
	right := node.Right
	leftType := &left.Type

	switch node.Op {
	case OpAssign:
		if visit == PostVisit {
			e.assignLvalue(left, right)
			e.copy(result, right, 0)
		}
	case OpInitialize:
		if visit == PostVisit {
			e.copy(left, right, 0)
		}
	case OpMatrixTimesScalarAssign:
		if visit == PostVisit {
			for i := 0; i < leftType.Size; i++ {
				mul := e.emit(shader.OpMul, result, left, right, nil)
				mul.Dst.Index += uint32(i)
				e.argument(&mul.Src[0], left, i)
			}
			e.assignLvalue(left, result)
		}
	case OpVectorTimesMatrixAssign:
		if visit == PostVisit {
			size := leftType.Size
			for i := 0; i < size; i++ {
				dot := e.emit(shader.OpDP(size), result, left, right, nil)
				dot.Dst.Mask = 1 << i
				e.argument(&dot.Src[1], right, i)
			}
			e.assignLvalue(left, result)
		}
	case OpMatrixTimesMatrixAssign:
		if visit == PostVisit {
			e.matrixTimesMatrix(result, left, right)
			e.assignLvalue(left, result)
		}
	case OpIndexDirect:
		if visit == PostVisit {
			index := right.IntConst()

			if result.IsMatrix() || result.IsStruct() {
				e.copy(result, left, index*left.ElementRegisterCount())
			} else if result.IsRegister() {
				mov := e.emit(shader.OpMov, result, left, nil, nil)

				if left.IsRegister() {
					mov.Src[0].Swizzle = uint8(index)
				} else if left.IsArray() {
					e.argument(&mov.Src[0], left, index*left.ElementRegisterCount())
				} else if left.IsMatrix() {
					e.argument(&mov.Src[0], left, index)
				}
			}
		}
	case OpIndexIndirect:
		if visit == PostVisit {
			if left.IsArray() || left.IsMatrix() {
				for index := 0; index < result.TotalRegisterCount(); index++ {
					mov := e.emit(shader.OpMov, result, left, nil, nil)
					mov.Dst.Index += uint32(index)
					mov.Dst.Mask = e.writeMask(result, index)
					e.argument(&mov.Src[0], left, index)

					if left.TotalRegisterCount() > 1 {
						var relativeRegister shader.SourceParameter
						e.argument(&relativeRegister, right, 0)

						mov.Src[0].Rel.Type = relativeRegister.Type
						mov.Src[0].Rel.Index = relativeRegister.Index
						mov.Src[0].Rel.Scale = result.TotalRegisterCount()
						mov.Src[0].Rel.Deterministic = !(e.vertexShader != nil && left.Type.Qualifier == QualUniform)
					}
				}
			} else if left.IsRegister() {
				e.emit(shader.OpExtract, result, left, right, nil)
			}
		}
	case OpIndexDirectStruct:
		if visit == PostVisit {
			fieldOffset := 0
			for i := range leftType.Fields {
				if leftType.Fields[i].Name == right.Name {
					break
				}
				fieldOffset += leftType.Fields[i].Type.TotalRegisterCount()
			}
			e.copy(result, left, fieldOffset)
		}
	case OpVectorSwizzle:
		if visit == PostVisit {
			swizzle := 0
			for component, element := range right.Children {
				swizzle |= element.IntConst() << (component * 2)
			}

			mov := e.emit(shader.OpMov, result, left, nil, nil)
			mov.Src[0].Swizzle = uint8(swizzle)
		}
	case OpAddAssign:
		if visit == PostVisit {
			e.emitAssign(shader.OpAdd, result, left, left, right)
		}
	case OpAdd:
		if visit == PostVisit {
			e.emitBinary(shader.OpAdd, result, left, right)
		}
	case OpSubAssign:
		if visit == PostVisit {
			e.emitAssign(shader.OpSub, result, left, left, right)
		}
	case OpSub:
		if visit == PostVisit {
			e.emitBinary(shader.OpSub, result, left, right)
		}
	case OpMulAssign:
		if visit == PostVisit {
			e.emitAssign(shader.OpMul, result, left, left, right)
		}
	case OpMul:
		if visit == PostVisit {
			e.emitBinary(shader.OpMul, result, left, right)
		}
	case OpDivAssign:
		if visit == PostVisit {
			e.emitAssign(shader.OpDiv, result, left, left, right)
		}
	case OpDiv:
		if visit == PostVisit {
			e.emitBinary(shader.OpDiv, result, left, right)
		}
	case OpEqual:
		if visit == PostVisit {
			e.emitCmp(shader.ControlEQ, result, left, right, 0)

			for index := 1; index < left.TotalRegisterCount(); index++ {
				equal := e.temporary()
				e.emitCmp(shader.ControlEQ, equal, left, right, index)
				e.emit(shader.OpAnd, result, result, equal, nil)
				e.freeTemporary(equal)
			}
		}
	case OpNotEqual:
		if visit == PostVisit {
			e.emitCmp(shader.ControlNE, result, left, right, 0)

			for index := 1; index < left.TotalRegisterCount(); index++ {
				notEqual := e.temporary()
				e.emitCmp(shader.ControlNE, notEqual, left, right, index)
				e.emit(shader.OpOr, result, result, notEqual, nil)
				e.freeTemporary(notEqual)
			}
		}
	case OpLessThan:
		if visit == PostVisit {
			e.emitCmp(shader.ControlLT, result, left, right, 0)
		}
	case OpGreaterThan:
		if visit == PostVisit {
			e.emitCmp(shader.ControlGT, result, left, right, 0)
		}
	case OpLessThanEqual:
		if visit == PostVisit {
			e.emitCmp(shader.ControlLE, result, left, right, 0)
		}
	case OpGreaterThanEqual:
		if visit == PostVisit {
			e.emitCmp(shader.ControlGE, result, left, right, 0)
		}
	case OpVectorTimesScalarAssign:
		if visit == PostVisit {
			e.emitAssign(shader.OpMul, result, left, left, right)
		}
	case OpVectorTimesScalar:
		if visit == PostVisit {
			e.emit(shader.OpMul, result, left, right, nil)
		}
	case OpMatrixTimesScalar:
		if visit == PostVisit {
			for i := 0; i < leftType.Size; i++ {
				mul := e.emit(shader.OpMul, result, left, right, nil)
				mul.Dst.Index += uint32(i)
				e.argument(&mul.Src[0], left, i)
			}
		}
	case OpVectorTimesMatrix:
		if visit == PostVisit {
			size := leftType.Size
			for i := 0; i < size; i++ {
				dot := e.emit(shader.OpDP(size), result, left, right, nil)
				dot.Dst.Mask = 1 << i
				e.argument(&dot.Src[1], right, i)
			}
		}
	case OpMatrixTimesVector:
		if visit == PostVisit {
			mul := e.emit(shader.OpMul, result, left, right, nil)
			mul.Src[1].Swizzle = 0x00

			for i := 1; i < leftType.Size; i++ {
				mad := e.emit(shader.OpMad, result, left, right, result)
				e.argument(&mad.Src[0], left, i)
				mad.Src[1].Swizzle = shader.ReplicateSwizzle(i)
			}
		}
	case OpMatrixTimesMatrix:
		if visit == PostVisit {
			e.matrixTimesMatrix(result, left, right)
		}
	case OpLogicalOr:
		if e.trivial(right, trivialBudget) {
			if visit == PostVisit {
				e.emit(shader.OpOr, result, left, right, nil)
			}
		} else { // Short-circuit evaluation
			if visit == InVisit {
				e.emit(shader.OpMov, result, left, nil, nil)
				ifnot := e.emit(shader.OpIf, nil, result, nil, nil)
				ifnot.Src[0].Modifier = shader.ModifierNot
			} else if visit == PostVisit {
				e.emit(shader.OpMov, result, right, nil, nil)
				e.emit(shader.OpEndIf, nil, nil, nil, nil)
			}
		}
	case OpLogicalXor:
		if visit == PostVisit {
			e.emit(shader.OpXor, result, left, right, nil)
		}
	case OpLogicalAnd:
		if e.trivial(right, trivialBudget) {
			if visit == PostVisit {
				e.emit(shader.OpAnd, result, left, right, nil)
			}
		} else { // Short-circuit evaluation
			if visit == InVisit {
				e.emit(shader.OpMov, result, left, nil, nil)
				e.emit(shader.OpIf, nil, result, nil, nil)
			} else if visit == PostVisit {
				e.emit(shader.OpMov, result, right, nil, nil)
				e.emit(shader.OpEndIf, nil, nil, nil, nil)
			}
		}
	default:
		e.ctx.Error(node.Line, "unsupported binary operation", "")
	}

	return true
}

func (e *Emitter) matrixTimesMatrix(result, left, right *Node) {
	dim := left.Type.Size

	for i := 0; i < dim; i++ {
		mul := e.emit(shader.OpMul, result, left, right, nil)
		mul.Dst.Index += uint32(i)
		e.argument(&mul.Src[1], right, i)
		mul.Src[1].Swizzle = 0x00

		for j := 1; j < dim; j++ {
			mad := e.emit(shader.OpMad, result, left, right, result)
			mad.Dst.Index += uint32(i)
			e.argument(&mad.Src[0], left, j)
			e.argument(&mad.Src[1], right, i)
			mad.Src[1].Swizzle = shader.ReplicateSwizzle(j)
			e.argument(&mad.Src[2], result, i)
		}
	}
}

// VisitUnary implements Visitor.
func (e *Emitter) VisitUnary(visit Visit, node *Node) bool {
	if e.currentScope != e.emitScope {
		return false
	}

	one := floatConstant(1, 1, 1, 1)
	rad := floatConstant(1.74532925e-2, 1.74532925e-2, 1.74532925e-2, 1.74532925e-2)
	deg := floatConstant(5.72957795e+1, 5.72957795e+1, 5.72957795e+1, 5.72957795e+1)

	result := node
	arg := node.Operand

	if visit != PostVisit {
		return true
	}

	switch node.Op {
	case OpNegative:
		for index := 0; index < arg.TotalRegisterCount(); index++ {
			neg := e.emit(shader.OpMov, result, arg, nil, nil)
			neg.Dst.Index += uint32(index)
			e.argument(&neg.Src[0], arg, index)
			neg.Src[0].Modifier = shader.ModifierNegate
		}
	case OpVectorLogicalNot, OpLogicalNot:
		e.emit(shader.OpNot, result, arg, nil, nil)
	case OpPostIncrement:
		e.copy(result, arg, 0)
		for index := 0; index < arg.TotalRegisterCount(); index++ {
			add := e.emit(shader.OpAdd, arg, arg, one, nil)
			add.Dst.Index += uint32(index)
			e.argument(&add.Src[0], arg, index)
		}
		e.assignLvalue(arg, arg)
	case OpPostDecrement:
		e.copy(result, arg, 0)
		for index := 0; index < arg.TotalRegisterCount(); index++ {
			sub := e.emit(shader.OpSub, arg, arg, one, nil)
			sub.Dst.Index += uint32(index)
			e.argument(&sub.Src[0], arg, index)
		}
		e.assignLvalue(arg, arg)
	case OpPreIncrement:
		for index := 0; index < arg.TotalRegisterCount(); index++ {
			add := e.emit(shader.OpAdd, result, arg, one, nil)
			add.Dst.Index += uint32(index)
			e.argument(&add.Src[0], arg, index)
		}
		e.assignLvalue(arg, result)
	case OpPreDecrement:
		for index := 0; index < arg.TotalRegisterCount(); index++ {
			sub := e.emit(shader.OpSub, result, arg, one, nil)
			sub.Dst.Index += uint32(index)
			e.argument(&sub.Src[0], arg, index)
		}
		e.assignLvalue(arg, result)
	case OpRadians:
		e.emit(shader.OpMul, result, arg, rad, nil)
	case OpDegrees:
		e.emit(shader.OpMul, result, arg, deg, nil)
	case OpSin:
		e.emit(shader.OpSin, result, arg, nil, nil)
	case OpCos:
		e.emit(shader.OpCos, result, arg, nil, nil)
	case OpTan:
		e.emit(shader.OpTan, result, arg, nil, nil)
	case OpAsin:
		e.emit(shader.OpAsin, result, arg, nil, nil)
	case OpAcos:
		e.emit(shader.OpAcos, result, arg, nil, nil)
	case OpAtan:
		e.emit(shader.OpAtan, result, arg, nil, nil)
	case OpExp:
		e.emit(shader.OpExp, result, arg, nil, nil)
	case OpLog:
		e.emit(shader.OpLog, result, arg, nil, nil)
	case OpExp2:
		e.emit(shader.OpExp2, result, arg, nil, nil)
	case OpLog2:
		e.emit(shader.OpLog2, result, arg, nil, nil)
	case OpSqrt:
		e.emit(shader.OpSqrt, result, arg, nil, nil)
	case OpInverseSqrt:
		e.emit(shader.OpRsq, result, arg, nil, nil)
	case OpAbs:
		e.emit(shader.OpAbs, result, arg, nil, nil)
	case OpSign:
		e.emit(shader.OpSgn, result, arg, nil, nil)
	case OpFloor:
		e.emit(shader.OpFloor, result, arg, nil, nil)
	case OpCeil:
		e.emit(shader.OpCeil, result, arg, result, nil)
	case OpFract:
		e.emit(shader.OpFrc, result, arg, nil, nil)
	case OpLength:
		e.emit(shader.OpLen(dim(arg)), result, arg, nil, nil)
	case OpNormalize:
		e.emit(shader.OpNrmDim(dim(arg)), result, arg, nil, nil)
	case OpDFdx:
		e.emit(shader.OpDFdx, result, arg, nil, nil)
	case OpDFdy:
		e.emit(shader.OpDFdy, result, arg, nil, nil)
	case OpFwidth:
		e.emit(shader.OpFwidth, result, arg, nil, nil)
	case OpAny:
		e.emit(shader.OpAny, result, arg, nil, nil)
	case OpAll:
		e.emit(shader.OpAll, result, arg, nil, nil)
	default:
		e.ctx.Error(node.Line, "unsupported unary operation", "")
	}

	return true
}

// VisitAggregate implements Visitor.
func (e *Emitter) VisitAggregate(visit Visit, node *Node) bool {
	if e.currentScope != e.emitScope && node.Op != OpFunction && node.Op != OpSequence {
		return false
	}

	zero := floatConstant(0, 0, 0, 0)

	result := node
	arg := node.Children
	argumentCount := len(arg)

	switch node.Op {
	case OpSequence, OpDeclaration, OpPrototype, OpParameters:
	case OpComma:
		if visit == PostVisit {
			e.copy(result, arg[1], 0)
		}
	case OpFunction:
		switch visit {
		case PreVisit:
			name := node.Name

			if e.emitScope == scopeFunction {
				if len(e.functions) > 1 { // No need for a label when there's only main()
					label := e.emit(shader.OpLabel, nil, nil, nil, nil)
					label.Dst.Type = shader.ParamLabel

					f := e.findFunction(name)
					if f == nil {
						e.ctx.Error(node.Line, "function not registered in global pass", name)
						return false
					}
					label.Dst.Index = uint32(f.label)
					e.currentFunction = f.label
				}
			} else if name != "main" {
				args := arg[0].Children
				e.functions = append(e.functions, function{
					label: len(e.functions),
					name:  name,
					args:  args,
					ret:   node,
				})
			}

			e.currentScope = scopeFunction
		case PostVisit:
			if e.emitScope == scopeFunction && len(e.functions) > 1 {
				e.emit(shader.OpRet, nil, nil, nil, nil)
			}
			e.currentScope = scopeGlobal
		}
	case OpFunctionCall:
		if visit == PostVisit {
			if node.UserDefined {
				f := e.findFunction(node.Name)
				if f == nil {
					e.ctx.Error(node.Line, "function definition not found", node.Name)
					return false
				}

				for i := 0; i < argumentCount; i++ {
					in := f.args[i]
					switch in.Type.Qualifier {
					case QualIn, QualInOut, QualConstReadOnly:
						e.copy(in, arg[i], 0)
					}
				}

				call := e.emit(shader.OpCall, nil, nil, nil, nil)
				call.Dst.Type = shader.ParamLabel
				call.Dst.Index = uint32(f.label)

				if f.ret != nil && f.ret.Type.Basic != TVoid {
					e.copy(result, f.ret, 0)
				}

				for i := 0; i < argumentCount; i++ {
					out := f.args[i]
					switch out.Type.Qualifier {
					case QualOut, QualInOut:
						e.copy(arg[i], out, 0)
					}
				}
			} else {
				e.emitTextureFunction(node)
			}
		}
	case OpConstructFloat, OpConstructVec2, OpConstructVec3, OpConstructVec4,
		OpConstructBool, OpConstructBVec2, OpConstructBVec3, OpConstructBVec4,
		OpConstructInt, OpConstructIVec2, OpConstructIVec3, OpConstructIVec4:
		if visit == PostVisit {
			component := 0
			for i := 0; i < argumentCount; i++ {
				argi := arg[i]
				size := argi.NominalSize()

				if !argi.IsMatrix() {
					mov := e.emitCast(result, argi)
					mov.Dst.Mask = 0xF << component & 0xF
					mov.Src[0].Swizzle = e.readSwizzle(argi, size) << (component * 2)

					component += size
				} else { // Matrix
					column := 0
					for component < result.Type.Size {
						mov := e.emitCast(result, argi)
						mov.Dst.Mask = 0xF << component & 0xF
						mov.Src[0].Index += uint32(column)
						mov.Src[0].Swizzle = e.readSwizzle(argi, size) << (component * 2)

						column++
						component += size
					}
				}
			}
		}
	case OpConstructMat2, OpConstructMat3, OpConstructMat4:
		if visit == PostVisit {
			arg0 := arg[0]
			dims := result.NominalSize()

			if arg0.IsScalar() && argumentCount == 1 { // Construct scale matrix
				for i := 0; i < dims; i++ {
					init := e.emit(shader.OpMov, result, zero, nil, nil)
					init.Dst.Index += uint32(i)
					mov := e.emitCast(result, arg0)
					mov.Dst.Index += uint32(i)
					mov.Dst.Mask = 1 << i
				}
			} else if arg0.IsMatrix() {
				for i := 0; i < dims; i++ {
					if dims > dim2(arg0) {
						// Initialize to identity matrix
						var col [4]float32
						if i < 4 {
							col[i] = 1
						}
						identity := floatConstant(col[0], col[1], col[2], col[3])
						mov := e.emitCast(result, identity)
						mov.Dst.Index += uint32(i)
					}

					if i < dim2(arg0) {
						mov := e.emitCast(result, arg0)
						mov.Dst.Index += uint32(i)
						mov.Dst.Mask = 0xF >> (4 - dim2(arg0))
						e.argument(&mov.Src[0], arg0, i)
					}
				}
			} else {
				column := 0
				row := 0

				for i := 0; i < argumentCount; i++ {
					argi := arg[i]
					size := argi.NominalSize()
					element := 0

					for element < size {
						mov := e.emitCast(result, argi)
						mov.Dst.Index += uint32(column)
						mov.Dst.Mask = 0xF << row & 0xF
						mov.Src[0].Swizzle = e.readSwizzle(argi, size)<<(row*2) + shader.ReplicateSwizzle(element)

						end := row + size - element
						if end >= dims {
							column++
						}
						element = element + dims - row
						if end >= dims {
							row = 0
						} else {
							row = end
						}
					}
				}
			}
		}
	case OpConstructStruct:
		if visit == PostVisit {
			offset := 0
			for i := 0; i < argumentCount; i++ {
				argi := arg[i]
				size := argi.TotalRegisterCount()

				for index := 0; index < size; index++ {
					mov := e.emit(shader.OpMov, result, argi, nil, nil)
					mov.Dst.Index += uint32(index + offset)
					mov.Dst.Mask = e.writeMask(result, offset+index)
					e.argument(&mov.Src[0], argi, index)
				}

				offset += size
			}
		}
	case OpLessThan:
		if visit == PostVisit {
			e.emitCmp(shader.ControlLT, result, arg[0], arg[1], 0)
		}
	case OpGreaterThan:
		if visit == PostVisit {
			e.emitCmp(shader.ControlGT, result, arg[0], arg[1], 0)
		}
	case OpLessThanEqual:
		if visit == PostVisit {
			e.emitCmp(shader.ControlLE, result, arg[0], arg[1], 0)
		}
	case OpGreaterThanEqual:
		if visit == PostVisit {
			e.emitCmp(shader.ControlGE, result, arg[0], arg[1], 0)
		}
	case OpEqual:
		if visit == PostVisit {
			e.emitCmp(shader.ControlEQ, result, arg[0], arg[1], 0)
		}
	case OpNotEqual:
		if visit == PostVisit {
			e.emitCmp(shader.ControlNE, result, arg[0], arg[1], 0)
		}
	case OpMod:
		if visit == PostVisit {
			e.emit(shader.OpMod, result, arg[0], arg[1], nil)
		}
	case OpPow:
		if visit == PostVisit {
			e.emit(shader.OpPow, result, arg[0], arg[1], nil)
		}
	case OpAtan2:
		if visit == PostVisit {
			e.emit(shader.OpAtan2, result, arg[0], arg[1], nil)
		}
	case OpMin:
		if visit == PostVisit {
			e.emit(shader.OpMin, result, arg[0], arg[1], nil)
		}
	case OpMax:
		if visit == PostVisit {
			e.emit(shader.OpMax, result, arg[0], arg[1], nil)
		}
	case OpClamp:
		if visit == PostVisit {
			e.emit(shader.OpMax, result, arg[0], arg[1], nil)
			e.emit(shader.OpMin, result, result, arg[2], nil)
		}
	case OpMix:
		if visit == PostVisit {
			e.emit(shader.OpLrp, result, arg[2], arg[1], arg[0])
		}
	case OpStep:
		if visit == PostVisit {
			e.emit(shader.OpStep, result, arg[0], arg[1], nil)
		}
	case OpSmoothStep:
		if visit == PostVisit {
			e.emit(shader.OpSmooth, result, arg[0], arg[1], arg[2])
		}
	case OpDistance:
		if visit == PostVisit {
			e.emit(shader.OpDist(dim(arg[0])), result, arg[0], arg[1], nil)
		}
	case OpDot:
		if visit == PostVisit {
			e.emit(shader.OpDP(dim(arg[0])), result, arg[0], arg[1], nil)
		}
	case OpCross:
		if visit == PostVisit {
			e.emit(shader.OpCrs, result, arg[0], arg[1], nil)
		}
	case OpFaceForward:
		if visit == PostVisit {
			e.emit(shader.OpForward(dim(arg[0])), result, arg[0], arg[1], arg[2])
		}
	case OpReflect:
		if visit == PostVisit {
			e.emit(shader.OpReflect(dim(arg[0])), result, arg[0], arg[1], nil)
		}
	case OpRefract:
		if visit == PostVisit {
			e.emit(shader.OpRefract(dim(arg[0])), result, arg[0], arg[1], arg[2])
		}
	case OpMatrixCompMult:
		if visit == PostVisit {
			for i := 0; i < dim2(arg[0]); i++ {
				mul := e.emit(shader.OpMul, result, arg[0], arg[1], nil)
				mul.Dst.Index += uint32(i)
				e.argument(&mul.Src[0], arg[0], i)
				e.argument(&mul.Src[1], arg[1], i)
			}
		}
	default:
		e.ctx.Error(node.Line, "unsupported aggregate operation", "")
	}

	return true
}

// emitTextureFunction lowers the built-in texture sampling calls.
func (e *Emitter) emitTextureFunction(node *Node) {
	result := node
	arg := node.Children
	argumentCount := len(arg)

	switch node.Name {
	case "texture2D", "textureCube":
		if argumentCount == 2 {
			e.emit(shader.OpTex, result, arg[1], arg[0], nil)
		} else if argumentCount == 3 { // bias
			uvwb := e.temporary()
			e.emit(shader.OpMov, uvwb, arg[1], nil, nil)
			bias := e.emit(shader.OpMov, uvwb, arg[2], nil, nil)
			bias.Dst.Mask = 0x8

			tex := e.emit(shader.OpTex, result, uvwb, arg[0], nil)
			tex.Bias = true
			e.freeTemporary(uvwb)
		}
	case "texture2DProj":
		t := arg[1]
		if argumentCount == 2 {
			tex := e.emit(shader.OpTex, result, arg[1], arg[0], nil)
			tex.Project = true

			if t.NominalSize() == 3 {
				tex.Src[0].Swizzle = 0xA4
			}
		} else if argumentCount == 3 { // bias
			proj := e.temporary()
			e.emitProjection(proj, arg[1], t.NominalSize())

			bias := e.emit(shader.OpMov, proj, arg[2], nil, nil)
			bias.Dst.Mask = 0x8

			tex := e.emit(shader.OpTex, result, proj, arg[0], nil)
			tex.Bias = true
			e.freeTemporary(proj)
		}
	case "texture2DLod", "textureCubeLod":
		uvwb := e.temporary()
		e.emit(shader.OpMov, uvwb, arg[1], nil, nil)
		lod := e.emit(shader.OpMov, uvwb, arg[2], nil, nil)
		lod.Dst.Mask = 0x8

		e.emit(shader.OpTexLdl, result, uvwb, arg[0], nil)
		e.freeTemporary(uvwb)
	case "texture2DProjLod":
		t := arg[1]
		proj := e.temporary()
		e.emitProjection(proj, arg[1], t.NominalSize())

		lod := e.emit(shader.OpMov, proj, arg[2], nil, nil)
		lod.Dst.Mask = 0x8

		e.emit(shader.OpTexLdl, result, proj, arg[0], nil)
		e.freeTemporary(proj)
	default:
		e.ctx.Error(node.Line, "unsupported texture function", node.Name)
	}
}

// emitProjection divides the coordinate by its projective component (.z for
// vec3, .w for vec4) into the x and y lanes of proj.
func (e *Emitter) emitProjection(proj, coord *Node, size int) {
	div := e.emit(shader.OpDiv, proj, coord, coord, nil)
	div.Dst.Mask = 0x3
	switch size {
	case 3:
		div.Src[1].Swizzle = 0xAA
	case 4:
		div.Src[1].Swizzle = 0xFF
	default:
		e.ctx.Error(coord.Line, "projective coordinate must be vec3 or vec4", "")
	}
}

// VisitSelection implements Visitor.
func (e *Emitter) VisitSelection(visit Visit, node *Node) bool {
	if e.currentScope != e.emitScope {
		return false
	}

	condition := node.Condition
	trueBlock := node.TrueBlock
	falseBlock := node.FalseBlock
	constantCondition := condition.AsConstant()

	Traverse(condition, e)

	if node.Ternary {
		if constantCondition != nil {
			if constantCondition.BoolConst() {
				Traverse(trueBlock, e)
				e.copy(node, trueBlock, 0)
			} else {
				Traverse(falseBlock, e)
				e.copy(node, falseBlock, 0)
			}
		} else if e.trivial(node, trivialBudget) { // Fast to compute both potential results and no side effects
			Traverse(trueBlock, e)
			Traverse(falseBlock, e)
			e.emit(shader.OpSelect, node, condition, trueBlock, falseBlock)
		} else {
			e.emit(shader.OpIf, nil, condition, nil, nil)

			if trueBlock != nil {
				Traverse(trueBlock, e)
				e.copy(node, trueBlock, 0)
			}
			if falseBlock != nil {
				e.emit(shader.OpElse, nil, nil, nil, nil)
				Traverse(falseBlock, e)
				e.copy(node, falseBlock, 0)
			}

			e.emit(shader.OpEndIf, nil, nil, nil, nil)
		}
	} else { // if/else statement
		if constantCondition != nil {
			if constantCondition.BoolConst() {
				Traverse(trueBlock, e)
			} else {
				Traverse(falseBlock, e)
			}
		} else {
			e.emit(shader.OpIf, nil, condition, nil, nil)

			if trueBlock != nil {
				Traverse(trueBlock, e)
			}
			if falseBlock != nil {
				e.emit(shader.OpElse, nil, nil, nil, nil)
				Traverse(falseBlock, e)
			}

			e.emit(shader.OpEndIf, nil, nil, nil, nil)
		}
	}

	return false
}

// VisitLoop implements Visitor.
func (e *Emitter) VisitLoop(visit Visit, node *Node) bool {
	if e.currentScope != e.emitScope {
		return false
	}

	iterations := loopCount(node)
	if iterations == 0 {
		return false
	}

	unroll := iterations <= unrollLimit
	if unroll {
		unroll = !detectLoopDiscontinuity(node)
	}

	if node.Loop == LoopDoWhile {
		iterate := e.temporary()
		e.emit(shader.OpMov, iterate, boolConstant(true), nil, nil)

		e.emit(shader.OpWhile, nil, iterate, nil, nil) // The back end performs the condition test after the body

		if node.LoopBody != nil {
			Traverse(node.LoopBody, e)
		}

		e.emit(shader.OpTest, nil, nil, nil, nil)

		Traverse(node.LoopCond, e)
		e.emit(shader.OpMov, iterate, node.LoopCond, nil, nil)

		e.emit(shader.OpEndWhile, nil, nil, nil, nil)
		e.freeTemporary(iterate)
	} else {
		if node.LoopInit != nil {
			Traverse(node.LoopInit, e)
		}

		if unroll {
			for i := uint(0); i < iterations; i++ {
				// The condition of an unrollable loop cannot contain
				// statements, so it needs no re-evaluation here.
				if node.LoopBody != nil {
					Traverse(node.LoopBody, e)
				}
				if node.LoopExpr != nil {
					Traverse(node.LoopExpr, e)
				}
			}
		} else {
			Traverse(node.LoopCond, e)

			e.emit(shader.OpWhile, nil, node.LoopCond, nil, nil)

			if node.LoopBody != nil {
				Traverse(node.LoopBody, e)
			}

			e.emit(shader.OpTest, nil, nil, nil, nil)

			if node.LoopExpr != nil {
				Traverse(node.LoopExpr, e)
			}

			Traverse(node.LoopCond, e)

			e.emit(shader.OpEndWhile, nil, nil, nil, nil)
		}
	}

	return false
}

// VisitBranch implements Visitor.
func (e *Emitter) VisitBranch(visit Visit, node *Node) bool {
	if e.currentScope != e.emitScope {
		return false
	}

	if visit != PostVisit {
		return true
	}

	switch node.Op {
	case OpKill:
		e.emit(shader.OpDiscard, nil, nil, nil, nil)
	case OpBreak:
		e.emit(shader.OpBreak, nil, nil, nil, nil)
	case OpContinue:
		e.emit(shader.OpContinue, nil, nil, nil, nil)
	case OpReturn:
		if value := node.Operand; value != nil {
			e.copy(e.functions[e.currentFunction].ret, value, 0)
		}
		e.emit(shader.OpLeave, nil, nil, nil, nil)
	default:
		e.ctx.Error(node.Line, "unsupported branch operation", "")
	}

	return true
}

func (e *Emitter) findFunction(name string) *function {
	for i := range e.functions {
		if e.functions[i].name == name {
			return &e.functions[i]
		}
	}
	return nil
}

func dim(v *Node) int {
	return v.NominalSize()
}

func dim2(m *Node) int {
	return m.NominalSize()
}
