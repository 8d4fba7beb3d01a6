package shader

// PixelShader decorates a parsed pixel stream with the input semantic table
// and the pixel-only analyses.
type PixelShader struct {
	Shader

	// Semantic maps input register components to interpolants: registers
	// 0-1 are the color inputs, 2-9 the texture coordinates.
	Semantic [MaxInputVaryings][4]Semantic

	VPosDeclared  bool
	VFaceDeclared bool

	zOverride bool
	texkill   bool
	centroid  bool
}

// NewPixelShader builds an empty pixel shader for the tree-IR emitter.
func NewPixelShader() *PixelShader {
	ps := &PixelShader{}
	ps.Shader.Type = TypePixel
	ps.Shader.Version = 0x0300
	for i := range ps.Semantic {
		for c := range ps.Semantic[i] {
			ps.Semantic[i][c] = UnusedSemantic
		}
	}
	return ps
}

// ParsePixelShader decodes and analyzes a pixel token stream.
func ParsePixelShader(tokens []uint32) (*PixelShader, error) {
	sh, err := newShader(tokens, TypePixel)
	if err != nil {
		return nil, err
	}

	ps := &PixelShader{Shader: *sh}
	ps.analyzeZOverride()
	ps.analyzeTexkill()
	ps.analyzeInterpolants()

	return ps, nil
}

// DepthOverride reports whether the shader writes its own depth.
func (ps *PixelShader) DepthOverride() bool {
	return ps.zOverride
}

// ContainsTexkill reports whether the shader can discard fragments.
func (ps *PixelShader) ContainsTexkill() bool {
	return ps.texkill
}

// ContainsCentroid reports whether any input is centroid-sampled.
func (ps *PixelShader) ContainsCentroid() bool {
	return ps.centroid
}

// UsesDiffuse reports whether a component of color input 0 is live.
func (ps *PixelShader) UsesDiffuse(component int) bool {
	return ps.Semantic[0][component].Active()
}

// UsesSpecular reports whether a component of color input 1 is live.
func (ps *PixelShader) UsesSpecular(component int) bool {
	return ps.Semantic[1][component].Active()
}

// UsesTexture reports whether a component of a texture coordinate is live.
func (ps *PixelShader) UsesTexture(coordinate, component int) bool {
	return ps.Semantic[2+coordinate][component].Active()
}

func (ps *PixelShader) analyzeZOverride() {
	for _, inst := range ps.instructions {
		if inst.Opcode == OpTexM3x2Depth || inst.Opcode == OpTexDepth || inst.Dst.Type == ParamDepthOut {
			ps.zOverride = true
			return
		}
	}
}

func (ps *PixelShader) analyzeTexkill() {
	for _, inst := range ps.instructions {
		if inst.Opcode == OpTexKill {
			ps.texkill = true
			return
		}
	}
}

// interpolantRule describes which components of a source register an opcode
// consumes, as a function of the source swizzle and the destination write
// mask. rows > 0 marks multi-register matrix operands: argument 1 spans
// `rows` consecutive registers, each row gated by the corresponding write-
// mask bit.
type interpolantRule struct {
	kind interpolantRuleKind
	rows int
}

type interpolantRuleKind uint8

const (
	// readMasked: a component is read if a write-enabled lane selects it.
	readMasked interpolantRuleKind = iota
	// readFirst3: the first three lanes are always evaluated (dot-product
	// style), regardless of the write mask.
	readFirst3
	// readAll: any selected component is read.
	readAll
	// readNrm: normalize reads .xyz plus whatever the mask writes.
	readNrm
	// readCrs: cross product reads the complementary component pairs.
	readCrs
	// readDP2: dp2add reads .xy through arguments 0-1 and one lane via
	// argument 2.
	readDP2
	// readCoord: legacy texture ops read the full .xyz coordinate.
	readCoord
	// readNone: the source register is consumed through a previous stage
	// result, not an interpolant.
	readNone
)

// interpolantRules is keyed by every opcode that can consume an interpolant
// source in a pre-2.0 pixel shader.
var interpolantRules = map[Opcode]interpolantRule{
	OpMov: {kind: readMasked}, OpAdd: {kind: readMasked}, OpSub: {kind: readMasked},
	OpMul: {kind: readMasked}, OpMad: {kind: readMasked}, OpAbs: {kind: readMasked},
	OpCmp: {kind: readMasked}, OpCnd: {kind: readMasked}, OpFrc: {kind: readMasked},
	OpLrp: {kind: readMasked}, OpMax: {kind: readMasked}, OpMin: {kind: readMasked},
	OpSetP: {kind: readMasked}, OpBreakC: {kind: readMasked},
	OpDsx: {kind: readMasked}, OpDsy: {kind: readMasked},

	OpDP3: {kind: readFirst3},
	OpM3x2: {kind: readFirst3, rows: 2},
	OpM3x3: {kind: readFirst3, rows: 3},
	OpM3x4: {kind: readFirst3, rows: 4},

	OpDP4:  {kind: readAll},
	OpM4x3: {kind: readAll, rows: 3},
	OpM4x4: {kind: readAll, rows: 4},
	OpSinCos: {kind: readAll}, OpExp: {kind: readAll}, OpLog: {kind: readAll},
	OpPow: {kind: readAll}, OpRcp: {kind: readAll}, OpRsq: {kind: readAll},

	OpNrm:    {kind: readNrm},
	OpCrs:    {kind: readCrs},
	OpDP2Add: {kind: readDP2},

	OpTexCoord: {kind: readCoord},
	OpTexDP3: {kind: readCoord}, OpTexDP3Tex: {kind: readCoord},
	OpTexM3x2Pad: {kind: readCoord}, OpTexM3x3Pad: {kind: readCoord},
	OpTexM3x2Tex: {kind: readCoord}, OpTexM3x3Spec: {kind: readCoord},
	OpTexM3x3VSpec: {kind: readCoord}, OpTexBem: {kind: readCoord},
	OpTexBemL: {kind: readCoord}, OpTexM3x2Depth: {kind: readCoord},
	OpTexM3x3: {kind: readCoord}, OpTexM3x3Tex: {kind: readCoord},

	OpTexReg2AR: {kind: readNone}, OpTexReg2GB: {kind: readNone}, OpTexReg2RGB: {kind: readNone},
}

// apply marks the components of reg consumed by one source
// argument according to its rule.
func (rule interpolantRule) apply(interpolant *[MaxInputVaryings][4]bool, reg, argument, swizzle, mask int) {
	read := func(reg int, gate int, masked bool) {
		if reg >= MaxInputVaryings {
			return
		}
		for component := 0; component < 4; component++ {
			if masked {
				if SwizzleContainsComponentMasked(swizzle, component, gate) {
					interpolant[reg][component] = true
				}
			} else if SwizzleContainsComponent(swizzle, component) {
				interpolant[reg][component] = true
			}
		}
	}

	switch rule.kind {
	case readMasked:
		read(reg, mask, true)
	case readFirst3:
		if rule.rows > 0 {
			if mask&0x1 != 0 {
				read(reg, 0x7, true)
			}
			if argument == 1 {
				for row := 1; row < rule.rows; row++ {
					if mask&(1<<row) != 0 {
						read(reg+row, 0x7, true)
					}
				}
			}
			return
		}
		read(reg, 0x7, true)
	case readAll:
		if rule.rows > 0 {
			if mask&0x1 != 0 {
				read(reg, 0, false)
			}
			if argument == 1 {
				for row := 1; row < rule.rows; row++ {
					if mask&(1<<row) != 0 {
						read(reg+row, 0, false)
					}
				}
			}
			return
		}
		read(reg, 0, false)
	case readNrm:
		read(reg, 0x7|mask, true)
	case readCrs:
		if mask&0x1 != 0 {
			read(reg, 0x6, true)
		}
		if mask&0x2 != 0 {
			read(reg, 0x5, true)
		}
		if mask&0x4 != 0 {
			read(reg, 0x3, true)
		}
	case readDP2:
		if argument == 2 {
			read(reg, 0, false)
		} else {
			read(reg, 0x3, true)
		}
	case readCoord:
		if reg < MaxInputVaryings {
			interpolant[reg][0] = true
			interpolant[reg][1] = true
			interpolant[reg][2] = true
		}
	case readNone:
	}
}

func (ps *PixelShader) analyzeInterpolants() {
	if ps.Version >= 0x0300 {
		ps.analyzeInterpolantsSM3()
	} else {
		ps.analyzeInterpolantsLegacy()
	}

	if ps.Version >= 0x0200 {
		for _, inst := range ps.instructions {
			if inst.Opcode != OpDcl {
				continue
			}
			centroid := inst.Dst.Centroid
			reg := int(inst.Dst.Index)
			switch inst.Dst.Type {
			case ParamInput:
				ps.Semantic[reg][0].Centroid = centroid
			case ParamTexture:
				ps.Semantic[2+reg][0].Centroid = centroid
			}
			ps.centroid = ps.centroid || centroid
		}
	}
}

func (ps *PixelShader) analyzeInterpolantsSM3() {
	for i := range ps.Semantic {
		for c := range ps.Semantic[i] {
			ps.Semantic[i][c] = UnusedSemantic
		}
	}

	for _, inst := range ps.instructions {
		if inst.Opcode != OpDcl {
			continue
		}
		switch inst.Dst.Type {
		case ParamInput:
			for c := 0; c < 4; c++ {
				if MaskContainsComponent(int(inst.Dst.Mask), c) {
					ps.Semantic[inst.Dst.Index][c] = Semantic{Usage: uint8(inst.Usage), Index: inst.UsageIndex}
				}
			}
		case ParamMiscType:
			switch inst.Dst.Index {
			case 0:
				ps.VPosDeclared = true
			case 1:
				ps.VFaceDeclared = true
			}
		}
	}
}

func (ps *PixelShader) analyzeInterpolantsLegacy() {
	// Default mapping; unused interpolants are disabled below.
	for c := 0; c < 4; c++ {
		ps.Semantic[0][c] = Semantic{Usage: uint8(UsageColor), Index: 0}
		ps.Semantic[1][c] = Semantic{Usage: uint8(UsageColor), Index: 1}
	}
	for i := 0; i < 8; i++ {
		for c := 0; c < 4; c++ {
			ps.Semantic[2+i][c] = Semantic{Usage: uint8(UsageTexCoord), Index: uint8(i)}
		}
	}

	var samplerType [16]SamplerType
	for _, inst := range ps.instructions {
		if inst.Dst.Type == ParamSampler && inst.Dst.Index < 16 {
			samplerType[inst.Dst.Index] = inst.SamplerType
		}
	}

	var interpolant [MaxInputVaryings][4]bool

	for _, inst := range ps.instructions {
		// Legacy texture opcodes implicitly read the coordinate register
		// named by their destination.
		if inst.Dst.Type == ParamTexture && int(inst.Dst.Index)+2 < MaxInputVaryings {
			index := int(inst.Dst.Index) + 2
			switch inst.Opcode {
			case OpTex, OpTexBem, OpTexBemL, OpTexCoord, OpTexDP3, OpTexDP3Tex,
				OpTexM3x2Depth, OpTexM3x2Pad, OpTexM3x2Tex, OpTexM3x3,
				OpTexM3x3Pad, OpTexM3x3Tex:
				interpolant[index][0] = true
				interpolant[index][1] = true
				interpolant[index][2] = true
			case OpTexKill:
				interpolant[index][0] = true
				interpolant[index][1] = true
				interpolant[index][2] = true
				if ps.MajorVersion() >= 2 {
					interpolant[index][3] = true
				}
			case OpTexM3x3VSpec:
				interpolant[index][0] = true
				interpolant[index][1] = true
				interpolant[index][2] = true
				interpolant[index-2][3] = true
				interpolant[index-1][3] = true
				interpolant[index-0][3] = true
			case OpDcl:
				// Ignore
			}
		}

		for argument := 0; argument < 4; argument++ {
			src := &inst.Src[argument]
			if src.Type != ParamInput && src.Type != ParamTexture {
				continue
			}

			index := int(src.Index)
			if src.Type == ParamTexture {
				index += 2
			}
			if index >= MaxInputVaryings {
				continue
			}
			swizzle := int(src.Swizzle)
			mask := int(inst.Dst.Mask)

			switch inst.Opcode {
			case OpTex, OpTexLdd, OpTexLdl:
				sampler := SamplerUnknown
				if inst.Src[1].Index < 16 {
					sampler = samplerType[inst.Src[1].Index]
				}
				ps.sampleInterpolant(&interpolant, inst, index, sampler)
			default:
				rule, ok := interpolantRules[inst.Opcode]
				if !ok {
					rule = interpolantRule{kind: readAll} // Conservative
				}
				rule.apply(&interpolant, index, argument, swizzle, mask)
			}
		}
	}

	for index := 0; index < MaxInputVaryings; index++ {
		for component := 0; component < 4; component++ {
			if !interpolant[index][component] {
				ps.Semantic[index][component] = UnusedSemantic
			}
		}
	}
}

func (ps *PixelShader) sampleInterpolant(interpolant *[MaxInputVaryings][4]bool, inst *Instruction, index int, sampler SamplerType) {
	switch sampler {
	case SamplerUnknown:
		if ps.Version == 0x0104 {
			if inst.Src[0].Swizzle&0x30 == 0x20 { // .xyz
				interpolant[index][0] = true
				interpolant[index][1] = true
				interpolant[index][2] = true
			} else { // .xyw
				interpolant[index][0] = true
				interpolant[index][1] = true
				interpolant[index][3] = true
			}
		}
	case Sampler1D:
		interpolant[index][0] = true
	case Sampler2D:
		interpolant[index][0] = true
		interpolant[index][1] = true
	case SamplerCube, SamplerVolume:
		interpolant[index][0] = true
		interpolant[index][1] = true
		interpolant[index][2] = true
	}

	if inst.Bias || inst.Project {
		interpolant[index][3] = true
	}

	if ps.Version == 0x0104 && inst.Opcode == OpTex {
		if inst.Src[0].Modifier == ModifierDZ {
			interpolant[index][2] = true
		}
		if inst.Src[0].Modifier == ModifierDW {
			interpolant[index][3] = true
		}
	}
}
