package shader

// Register-file limits enforced by the front ends.
const (
	MaxInputVaryings   = 10
	MaxOutputVaryings  = 12
	MaxInputAttributes = 16
)

// Fixed output registers for vertex shaders below 3.0.
const (
	outPos = 10
	outFog = 11
	outPts = 11 // Shares the fog register; point size lives in y
	outD0  = 8
	outD1  = 9
	outT0  = 0
)

// VertexShader decorates a parsed vertex stream with the input/output
// semantic tables.
type VertexShader struct {
	Shader

	Input  [MaxInputAttributes]Semantic
	Output [MaxOutputVaryings][4]Semantic

	PositionRegister  int
	PointSizeRegister int

	texldl bool
}

// NewVertexShader builds an empty vertex shader for the tree-IR emitter.
func NewVertexShader() *VertexShader {
	vs := &VertexShader{
		PositionRegister:  outPos,
		PointSizeRegister: -1,
	}
	vs.Shader.Type = TypeVertex
	vs.Shader.Version = 0x0300
	clearSemantics(vs)
	return vs
}

// ParseVertexShader decodes and analyzes a vertex token stream.
func ParseVertexShader(tokens []uint32) (*VertexShader, error) {
	sh, err := newShader(tokens, TypeVertex)
	if err != nil {
		return nil, err
	}

	vs := &VertexShader{Shader: *sh}
	clearSemantics(vs)
	vs.analyzeInput()
	vs.analyzeOutput()
	vs.analyzeTexldl()

	return vs, nil
}

func clearSemantics(vs *VertexShader) {
	for i := range vs.Input {
		vs.Input[i] = UnusedSemantic
	}
	for i := range vs.Output {
		for c := range vs.Output[i] {
			vs.Output[i][c] = UnusedSemantic
		}
	}
}

// ContainsTexldl reports whether the shader samples with explicit LOD.
func (vs *VertexShader) ContainsTexldl() bool {
	return vs.texldl
}

func (vs *VertexShader) analyzeInput() {
	for _, inst := range vs.instructions {
		if inst.Opcode == OpDcl && inst.Dst.Type == ParamInput {
			vs.Input[inst.Dst.Index] = Semantic{Usage: uint8(inst.Usage), Index: inst.UsageIndex}
		}
	}
}

func (vs *VertexShader) analyzeOutput() {
	vs.PositionRegister = outPos
	vs.PointSizeRegister = -1 // No vertex point size

	if vs.Version < 0x0300 {
		for c := 0; c < 4; c++ {
			vs.Output[outPos][c] = Semantic{Usage: uint8(UsagePosition)}
		}

		for _, inst := range vs.instructions {
			dst := &inst.Dst
			switch dst.Type {
			case ParamRastOut:
				switch dst.Index {
				case 0:
					// Position already assumed written
				case 1:
					vs.Output[outFog][0] = Semantic{Usage: uint8(UsageFog)}
				case 2:
					vs.Output[outPts][1] = Semantic{Usage: uint8(UsagePSize)}
					vs.PointSizeRegister = outPts
				}
			case ParamAttrOut:
				reg := outD0 + int(dst.Index)
				for c := 0; c < 4; c++ {
					if MaskContainsComponent(int(dst.Mask), c) {
						vs.Output[reg][c] = Semantic{Usage: uint8(UsageColor), Index: uint8(dst.Index)}
					}
				}
			case ParamTexCrdOut:
				reg := outT0 + int(dst.Index)
				for c := 0; c < 4; c++ {
					if MaskContainsComponent(int(dst.Mask), c) {
						vs.Output[reg][c] = Semantic{Usage: uint8(UsageTexCoord), Index: uint8(dst.Index)}
					}
				}
			}
		}
		return
	}

	// Shader model 3.0: outputs are declared.
	for _, inst := range vs.instructions {
		if inst.Opcode != OpDcl || inst.Dst.Type != ParamOutput {
			continue
		}
		dst := &inst.Dst
		for c := 0; c < 4; c++ {
			if MaskContainsComponent(int(dst.Mask), c) {
				vs.Output[dst.Index][c] = Semantic{Usage: uint8(inst.Usage), Index: inst.UsageIndex}
			}
		}
		if inst.Usage == UsagePosition && inst.UsageIndex == 0 {
			vs.PositionRegister = int(dst.Index)
		}
		if inst.Usage == UsagePSize && inst.UsageIndex == 0 {
			vs.PointSizeRegister = int(dst.Index)
		}
	}
}

func (vs *VertexShader) analyzeTexldl() {
	for _, inst := range vs.instructions {
		if inst.Opcode == OpTexLdl {
			vs.texldl = true
			return
		}
	}
}
