package glsl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swrast/swrast/internal/shader"
)

func floatType(size int, q Qualifier) Type {
	return Type{Basic: TFloat, Size: size, Qualifier: q}
}

func matType(dim int, q Qualifier) Type {
	return Type{Basic: TFloat, Size: dim, Matrix: true, Qualifier: q}
}

func intType(q Qualifier) Type {
	return Type{Basic: TInt, Size: 1, Qualifier: q}
}

func boolType(q Qualifier) Type {
	return Type{Basic: TBool, Size: 1, Qualifier: q}
}

func sym(id int, name string, ty Type) *Node {
	return &Node{Kind: KindSymbol, ID: id, Name: name, Type: ty}
}

func binary(op Operator, ty Type, left, right *Node) *Node {
	return &Node{Kind: KindBinary, Op: op, Type: ty, Left: left, Right: right}
}

func sequence(children ...*Node) *Node {
	return &Node{Kind: KindAggregate, Op: OpSequence, Children: children}
}

func declaration(children ...*Node) *Node {
	return &Node{Kind: KindAggregate, Op: OpDeclaration, Children: children}
}

func mainFunction(body ...*Node) *Node {
	params := &Node{Kind: KindAggregate, Op: OpParameters}
	return &Node{
		Kind:     KindAggregate,
		Op:       OpFunction,
		Name:     "main",
		Children: []*Node{params, sequence(body...)},
	}
}

func compilePixel(t *testing.T, statements ...*Node) (*shader.PixelShader, *Emitter, *CompileContext) {
	t.Helper()
	ctx := &CompileContext{TreeRoot: sequence(mainFunction(statements...))}
	ps := shader.NewPixelShader()
	emitter := NewEmitter(ctx, ps, nil)
	emitter.Output()
	return ps, emitter, ctx
}

func compileVertex(t *testing.T, statements ...*Node) (*shader.VertexShader, *Emitter, *CompileContext) {
	t.Helper()
	ctx := &CompileContext{TreeRoot: sequence(mainFunction(statements...))}
	vs := shader.NewVertexShader()
	emitter := NewEmitter(ctx, nil, vs)
	emitter.Output()
	return vs, emitter, ctx
}

func opcodes(sh *shader.Shader) []shader.Opcode {
	var ops []shader.Opcode
	for _, inst := range sh.Instructions() {
		ops = append(ops, inst.Opcode)
	}
	return ops
}

func countOpcode(sh *shader.Shader, op shader.Opcode) int {
	count := 0
	for _, inst := range sh.Instructions() {
		if inst.Opcode == op {
			count++
		}
	}
	return count
}

func TestConstantFoldedTernary(t *testing.T) {
	x := sym(1, "x", floatType(4, QualTemporary))
	trueArm := floatConstant(1, 0, 0, 1)
	falseArm := floatConstant(0, 1, 0, 1)

	ternary := &Node{
		Kind:       KindSelection,
		Type:       floatType(4, QualTemporary),
		Ternary:    true,
		Condition:  boolConstant(true),
		TrueBlock:  trueArm,
		FalseBlock: falseArm,
	}

	ps, _, ctx := compilePixel(t, binary(OpAssign, floatType(4, QualTemporary), x, ternary))
	require.Zero(t, ctx.ErrorCount())

	for _, inst := range ps.Instructions() {
		require.Equal(t, shader.OpMov, inst.Opcode)
	}

	// The false arm must be entirely absent.
	sawTrueArm := false
	for _, inst := range ps.Instructions() {
		if inst.Src[0].Type == shader.ParamFloatLiteral {
			require.Equal(t, [4]float32{1, 0, 0, 1}, inst.Src[0].Value)
			sawTrueArm = true
		}
	}
	require.True(t, sawTrueArm)
}

func TestShortCircuitOr(t *testing.T) {
	a := sym(1, "a", boolType(QualTemporary))
	b := sym(2, "b", floatType(1, QualTemporary))
	c := sym(3, "c", floatType(1, QualTemporary))

	// Division is never trivial, forcing the short-circuit lowering.
	expensive := binary(OpDiv, floatType(1, QualTemporary), b, c)
	or := binary(OpLogicalOr, boolType(QualTemporary), a, expensive)

	ps, _, ctx := compilePixel(t, or)
	require.Zero(t, ctx.ErrorCount())

	require.Equal(t,
		[]shader.Opcode{shader.OpMov, shader.OpIf, shader.OpDiv, shader.OpMov, shader.OpEndIf},
		opcodes(&ps.Shader))

	ifInst := ps.Instruction(1)
	require.Equal(t, shader.ModifierNot, ifInst.Src[0].Modifier)
}

func TestTrivialLogicalAnd(t *testing.T) {
	a := sym(1, "a", boolType(QualTemporary))
	b := sym(2, "b", floatType(1, QualTemporary))
	c := sym(3, "c", floatType(1, QualTemporary))

	cheap := binary(OpMul, floatType(1, QualTemporary), b, c)
	and := binary(OpLogicalAnd, boolType(QualTemporary), a, cheap)

	ps, _, ctx := compilePixel(t, and)
	require.Zero(t, ctx.ErrorCount())

	// The multiply is emitted by its own visit; the conjunction itself
	// lowers to a single AND with no branches.
	require.Equal(t, 1, countOpcode(&ps.Shader, shader.OpAnd))
	require.Zero(t, countOpcode(&ps.Shader, shader.OpIf))
	require.Zero(t, countOpcode(&ps.Shader, shader.OpEndIf))
}

func TestLogicalAndBudgetBoundary(t *testing.T) {
	// A product chain one multiplication beyond the budget forces the
	// short-circuit path.
	chain := sym(1, "v1", floatType(1, QualTemporary))
	for i := 2; i <= 8; i++ {
		chain = binary(OpMul, floatType(1, QualTemporary), chain, sym(i, "v", floatType(1, QualTemporary)))
	}

	a := sym(100, "a", boolType(QualTemporary))
	and := binary(OpLogicalAnd, boolType(QualTemporary), a, chain)

	ps, _, ctx := compilePixel(t, and)
	require.Zero(t, ctx.ErrorCount())

	require.Equal(t, 1, countOpcode(&ps.Shader, shader.OpIf))
	require.Equal(t, 1, countOpcode(&ps.Shader, shader.OpEndIf))
	require.Zero(t, countOpcode(&ps.Shader, shader.OpAnd))
}

func forLoop(indexID, limit int, body *Node) *Node {
	index := sym(indexID, "i", intType(QualTemporary))
	init := binary(OpInitialize, intType(QualTemporary), index, intConstant(0))
	init.Type.Qualifier = QualTemporary

	return &Node{
		Kind:     KindLoop,
		Loop:     LoopFor,
		LoopInit: declaration(init),
		LoopCond: binary(OpLessThan, boolType(QualTemporary), index, intConstant(limit)),
		LoopExpr: binary(OpAddAssign, intType(QualTemporary), index, intConstant(1)),
		LoopBody: sequence(body),
	}
}

func TestUnrollableLoop(t *testing.T) {
	x := sym(10, "x", floatType(1, QualTemporary))
	y := sym(11, "y", floatType(1, QualTemporary))
	body := binary(OpAdd, floatType(1, QualTemporary), x, y)

	ps, _, ctx := compilePixel(t, forLoop(1, 3, body))
	require.Zero(t, ctx.ErrorCount())

	require.Zero(t, countOpcode(&ps.Shader, shader.OpWhile))
	require.Zero(t, countOpcode(&ps.Shader, shader.OpEndWhile))
	require.Zero(t, countOpcode(&ps.Shader, shader.OpTest))

	// Three body copies plus three increment copies.
	require.Equal(t, 6, countOpcode(&ps.Shader, shader.OpAdd))
}

func TestLoopNotUnrolledBeyondLimit(t *testing.T) {
	x := sym(10, "x", floatType(1, QualTemporary))
	y := sym(11, "y", floatType(1, QualTemporary))
	body := binary(OpAdd, floatType(1, QualTemporary), x, y)

	ps, _, ctx := compilePixel(t, forLoop(1, 5, body))
	require.Zero(t, ctx.ErrorCount())

	require.Equal(t, 1, countOpcode(&ps.Shader, shader.OpWhile))
	require.Equal(t, 1, countOpcode(&ps.Shader, shader.OpEndWhile))
	require.Equal(t, 1, countOpcode(&ps.Shader, shader.OpTest))
}

func TestLoopWithBreakNotUnrolled(t *testing.T) {
	brk := &Node{Kind: KindBranch, Op: OpBreak}

	ps, _, ctx := compilePixel(t, forLoop(1, 3, brk))
	require.Zero(t, ctx.ErrorCount())

	require.Equal(t, 1, countOpcode(&ps.Shader, shader.OpWhile))
	require.Equal(t, 1, countOpcode(&ps.Shader, shader.OpBreak))
}

func TestDoWhileConstantTrue(t *testing.T) {
	x := sym(10, "x", floatType(1, QualTemporary))
	y := sym(11, "y", floatType(1, QualTemporary))
	body := binary(OpAdd, floatType(1, QualTemporary), x, y)

	loop := &Node{
		Kind:     KindLoop,
		Loop:     LoopDoWhile,
		LoopCond: boolConstant(true),
		LoopBody: sequence(body),
	}

	ps, _, ctx := compilePixel(t, loop)
	require.Zero(t, ctx.ErrorCount())

	require.Equal(t, 1, countOpcode(&ps.Shader, shader.OpWhile))
	require.Equal(t, 1, countOpcode(&ps.Shader, shader.OpEndWhile))
	require.Equal(t, 1, countOpcode(&ps.Shader, shader.OpTest))
}

func TestMatrixTimesMatrix(t *testing.T) {
	a := sym(1, "a", matType(4, QualTemporary))
	b := sym(2, "b", matType(4, QualTemporary))
	mul := binary(OpMatrixTimesMatrix, matType(4, QualTemporary), a, b)

	ps, _, ctx := compilePixel(t, mul)
	require.Zero(t, ctx.ErrorCount())

	require.Equal(t, 4, countOpcode(&ps.Shader, shader.OpMul))
	require.Equal(t, 12, countOpcode(&ps.Shader, shader.OpMad))

	var muls, mads []*shader.Instruction
	for _, inst := range ps.Instructions() {
		switch inst.Opcode {
		case shader.OpMul:
			muls = append(muls, inst)
		case shader.OpMad:
			mads = append(mads, inst)
		}
	}

	base := muls[0].Dst.Index
	for i, mul := range muls {
		require.Equal(t, base+uint32(i), mul.Dst.Index)
		require.Equal(t, uint8(0x00), mul.Src[1].Swizzle)
	}

	for i := 0; i < 4; i++ {
		for j := 1; j < 4; j++ {
			mad := mads[i*3+j-1]
			require.Equal(t, base+uint32(i), mad.Dst.Index)
			require.Equal(t, uint8(j*0x55), mad.Src[1].Swizzle)
		}
	}
}

func TestMatrixTimesVector(t *testing.T) {
	m := sym(1, "m", matType(3, QualTemporary))
	v := sym(2, "v", floatType(3, QualTemporary))
	mul := binary(OpMatrixTimesVector, floatType(3, QualTemporary), m, v)

	ps, _, ctx := compilePixel(t, mul)
	require.Zero(t, ctx.ErrorCount())

	require.Equal(t, 1, countOpcode(&ps.Shader, shader.OpMul))
	require.Equal(t, 2, countOpcode(&ps.Shader, shader.OpMad))
}

func TestVaryingOverflow(t *testing.T) {
	// Three mat4 varyings need 12 input registers; the pixel limit is 10.
	var statements []*Node
	for i := 0; i < 3; i++ {
		varying := sym(100+i, "big", matType(4, QualVaryingIn))
		varying.Name = "big" + string(rune('0'+i))
		dst := sym(1+i, "t", matType(4, QualTemporary))
		statements = append(statements, binary(OpAssign, matType(4, QualTemporary), dst, varying))
	}

	_, _, ctx := compilePixel(t, statements...)
	require.NotZero(t, ctx.ErrorCount())
}

func TestVaryingWithinLimit(t *testing.T) {
	varying := sym(100, "texcoord", floatType(4, QualVaryingIn))
	dst := sym(1, "t", floatType(4, QualTemporary))

	_, emitter, ctx := compilePixel(t, binary(OpAssign, floatType(4, QualTemporary), dst, varying))
	require.Zero(t, ctx.ErrorCount())

	varyings := emitter.Reflection().Varyings
	require.Len(t, varyings, 1)
	require.Equal(t, "texcoord", varyings[0].Name)
	require.Equal(t, 0, varyings[0].Register)
	require.Equal(t, TypeFloatVec4, varyings[0].Type)
}

func TestUniformReflection(t *testing.T) {
	fieldA := &Type{Basic: TFloat, Size: 4, Qualifier: QualUniform}
	fieldB := &Type{Basic: TFloat, Size: 3, Matrix: true, Qualifier: QualUniform}
	structType := Type{
		Basic:     TStruct,
		Size:      1,
		Qualifier: QualUniform,
		Fields: []StructField{
			{Name: "color", Type: fieldA},
			{Name: "transform", Type: fieldB},
		},
	}

	uniform := sym(100, "light", structType)
	dst := sym(1, "t", floatType(4, QualTemporary))
	field := binary(OpIndexDirectStruct, floatType(4, QualTemporary), uniform, sym(0, "color", *fieldA))

	_, emitter, ctx := compilePixel(t, binary(OpAssign, floatType(4, QualTemporary), dst, field))
	require.Zero(t, ctx.ErrorCount())

	uniforms := emitter.Reflection().Uniforms
	require.Len(t, uniforms, 2)
	require.Equal(t, "light.color", uniforms[0].Name)
	require.Equal(t, 0, uniforms[0].RegisterIndex)
	require.Equal(t, TypeFloatVec4, uniforms[0].Type)
	require.Equal(t, "light.transform", uniforms[1].Name)
	require.Equal(t, 1, uniforms[1].RegisterIndex)
	require.Equal(t, TypeFloatMat3, uniforms[1].Type)
}

func TestAttributeReflection(t *testing.T) {
	attribute := sym(100, "position", floatType(4, QualAttribute))
	out := sym(101, "gl_Position", floatType(4, QualPosition))

	vs, emitter, ctx := compileVertex(t, binary(OpAssign, floatType(4, QualTemporary), out, attribute))
	require.Zero(t, ctx.ErrorCount())

	attributes := emitter.Reflection().Attributes
	require.Len(t, attributes, 1)
	require.Equal(t, "position", attributes[0].Name)
	require.Equal(t, 0, attributes[0].RegisterIndex)

	require.Equal(t, 0, vs.PositionRegister)
	require.Equal(t, shader.Semantic{Usage: uint8(shader.UsagePosition)}, vs.Output[0][0])
}

func TestPointSizeWriteMask(t *testing.T) {
	pts := sym(100, "gl_PointSize", floatType(1, QualPointSize))
	one := floatConstant(1, 1, 1, 1)

	vs, _, ctx := compileVertex(t, binary(OpAssign, floatType(1, QualTemporary), pts, one))
	require.Zero(t, ctx.ErrorCount())

	var sawPointSizeStore bool
	for _, inst := range vs.Instructions() {
		if inst.Dst.Type == shader.ParamOutput {
			require.Equal(t, uint8(0x2), inst.Dst.Mask)
			sawPointSizeStore = true
		}
	}
	require.True(t, sawPointSizeStore)
	require.Equal(t, 0, vs.PointSizeRegister)
}

func TestUserFunctionCall(t *testing.T) {
	ret := floatType(4, QualTemporary)

	fnBody := &Node{Kind: KindBranch, Op: OpReturn, Operand: floatConstant(1, 2, 3, 4)}
	fn := &Node{
		Kind:     KindAggregate,
		Op:       OpFunction,
		Name:     "helper",
		Type:     ret,
		Children: []*Node{{Kind: KindAggregate, Op: OpParameters}, sequence(fnBody)},
	}

	call := &Node{
		Kind:        KindAggregate,
		Op:          OpFunctionCall,
		Name:        "helper",
		Type:        ret,
		UserDefined: true,
	}
	x := sym(1, "x", floatType(4, QualTemporary))
	main := mainFunction(binary(OpAssign, floatType(4, QualTemporary), x, call))

	ctx := &CompileContext{TreeRoot: sequence(fn, main)}
	ps := shader.NewPixelShader()
	emitter := NewEmitter(ctx, ps, nil)
	emitter.Output()
	require.Zero(t, ctx.ErrorCount())

	ops := opcodes(&ps.Shader)

	// Preamble: call main, ret; then the function bodies with labels.
	require.Equal(t, shader.OpCall, ops[0])
	require.Equal(t, uint32(0), ps.Instruction(0).Dst.Index)
	require.Equal(t, shader.OpRet, ops[1])

	require.Equal(t, 1, countOpcode(&ps.Shader, shader.OpLeave))
	require.Equal(t, 2, countOpcode(&ps.Shader, shader.OpLabel))
	require.Equal(t, 2, countOpcode(&ps.Shader, shader.OpCall))
	require.Equal(t, 3, countOpcode(&ps.Shader, shader.OpRet))
}

func TestMissingFunctionReportsDiagnostic(t *testing.T) {
	call := &Node{
		Kind:        KindAggregate,
		Op:          OpFunctionCall,
		Name:        "missing",
		Type:        floatType(4, QualTemporary),
		UserDefined: true,
	}

	_, _, ctx := compilePixel(t, call)
	require.NotZero(t, ctx.ErrorCount())
}

func TestTextureSampleLowering(t *testing.T) {
	sampler := sym(100, "tex", Type{Basic: TSampler2D, Size: 1, Qualifier: QualUniform})
	coord := sym(1, "uv", floatType(2, QualTemporary))

	call := &Node{
		Kind:     KindAggregate,
		Op:       OpFunctionCall,
		Name:     "texture2D",
		Type:     floatType(4, QualTemporary),
		Children: []*Node{sampler, coord},
	}

	ps, emitter, ctx := compilePixel(t, call)
	require.Zero(t, ctx.ErrorCount())

	require.Equal(t, 1, countOpcode(&ps.Shader, shader.OpTex))
	require.True(t, ps.UsesSampler(0))

	uniforms := emitter.Reflection().Uniforms
	require.Len(t, uniforms, 1)
	require.Equal(t, "tex", uniforms[0].Name)
	require.Equal(t, TypeSampler2D, uniforms[0].Type)
}

func TestProjectiveSampleDividesByW(t *testing.T) {
	sampler := sym(100, "tex", Type{Basic: TSampler2D, Size: 1, Qualifier: QualUniform})
	coord := sym(1, "uvw", floatType(4, QualTemporary))
	bias := sym(2, "bias", floatType(1, QualTemporary))

	call := &Node{
		Kind:     KindAggregate,
		Op:       OpFunctionCall,
		Name:     "texture2DProj",
		Type:     floatType(4, QualTemporary),
		Children: []*Node{sampler, coord, bias},
	}

	ps, _, ctx := compilePixel(t, call)
	require.Zero(t, ctx.ErrorCount())

	var div *shader.Instruction
	for _, inst := range ps.Instructions() {
		if inst.Opcode == shader.OpDiv {
			div = inst
		}
	}
	require.NotNil(t, div)
	require.Equal(t, uint8(0xFF), div.Src[1].Swizzle) // .wwww
	require.Equal(t, uint8(0x3), div.Dst.Mask)

	var tex *shader.Instruction
	for _, inst := range ps.Instructions() {
		if inst.Opcode == shader.OpTex {
			tex = inst
		}
	}
	require.NotNil(t, tex)
	require.True(t, tex.Bias)
}

func TestVectorConstructorSwizzles(t *testing.T) {
	// vec4(a.xy, b, 1.0) scatters with shifted write masks.
	a := sym(1, "a", floatType(2, QualTemporary))
	b := sym(2, "b", floatType(1, QualTemporary))
	one := &Node{
		Kind:  KindConstant,
		Type:  Type{Basic: TFloat, Size: 1, Qualifier: QualConst},
		Const: []ConstantValue{{Basic: TFloat, Float: 1}},
	}

	construct := &Node{
		Kind:     KindAggregate,
		Op:       OpConstructVec4,
		Type:     floatType(4, QualTemporary),
		Children: []*Node{a, b, one},
	}

	ps, _, ctx := compilePixel(t, construct)
	require.Zero(t, ctx.ErrorCount())

	movs := ps.Instructions()
	require.Len(t, movs, 3)
	// Later arguments write progressively higher components; earlier
	// writes are overwritten above their own size.
	require.Equal(t, uint8(0xF), movs[0].Dst.Mask)
	require.Equal(t, uint8(0xC), movs[1].Dst.Mask)
	require.Equal(t, uint8(0x8), movs[2].Dst.Mask)
}

func TestRegisterAllocatorPacking(t *testing.T) {
	e := &Emitter{}

	small := sym(1, "small", floatType(4, QualTemporary))
	big := sym(2, "big", matType(4, QualTemporary))
	other := sym(3, "other", floatType(4, QualTemporary))

	require.Equal(t, 0, e.allocate(&e.temporaries, small))
	require.Equal(t, 1, e.allocate(&e.temporaries, big))
	require.Equal(t, 5, e.allocate(&e.temporaries, other))

	// Lookup returns the existing assignment.
	require.Equal(t, 1, e.allocate(&e.temporaries, big))

	// Releasing the matrix opens a four-register run for reuse.
	e.release(e.temporaries, big)
	reuse := sym(4, "reuse", matType(2, QualTemporary))
	require.Equal(t, 1, e.allocate(&e.temporaries, reuse))

	// No overlap: the occupied slots all name their owners.
	require.Same(t, small, e.temporaries[0])
	require.Same(t, reuse, e.temporaries[1])
	require.Same(t, reuse, e.temporaries[2])
	require.Nil(t, e.temporaries[3])
	require.Same(t, other, e.temporaries[5])
}

func TestTypeRegisterCounts(t *testing.T) {
	vec3 := &Type{Basic: TFloat, Size: 3}
	mat4 := &Type{Basic: TFloat, Size: 4, Matrix: true}

	require.Equal(t, 1, vec3.TotalRegisterCount())
	require.Equal(t, 4, mat4.TotalRegisterCount())

	st := &Type{
		Basic: TStruct,
		Size:  1,
		Fields: []StructField{
			{Name: "a", Type: vec3},
			{Name: "b", Type: mat4},
		},
	}
	require.Equal(t, vec3.TotalRegisterCount()+mat4.TotalRegisterCount(), st.TotalRegisterCount())

	arr := *st
	arr.ArraySize = 3
	require.Equal(t, 3*st.ElementRegisterCount(), arr.TotalRegisterCount())
}

func TestCostScoring(t *testing.T) {
	e := &Emitter{}

	a := sym(1, "a", floatType(1, QualTemporary))
	require.True(t, e.trivial(a, trivialBudget))

	sum := binary(OpAdd, floatType(1, QualTemporary), a, sym(2, "b", floatType(1, QualTemporary)))
	require.True(t, e.trivial(sum, trivialBudget))
	require.Equal(t, trivialBudget-1, e.cost(sum, trivialBudget))

	div := binary(OpDiv, floatType(1, QualTemporary), a, a)
	require.False(t, e.trivial(div, trivialBudget))

	// Matrices are never register expressions.
	m := sym(3, "m", matType(4, QualTemporary))
	require.False(t, e.trivial(m, trivialBudget))
}

func TestLoopCount(t *testing.T) {
	count := loopCount(forLoop(1, 3, sequence()))
	require.Equal(t, uint(3), count)

	// A <= comparator adds one iteration.
	loop := forLoop(1, 3, sequence())
	loop.LoopCond.Op = OpLessThanEqual
	require.Equal(t, uint(4), loopCount(loop))

	// A non-constant limit cannot be derived.
	loop = forLoop(1, 3, sequence())
	loop.LoopCond.Right = sym(9, "n", intType(QualTemporary))
	require.Equal(t, indeterminate, loopCount(loop))
}
