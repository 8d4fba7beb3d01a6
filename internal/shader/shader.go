// Package shader implements the legacy token-stream shader front end: a
// decoder for the 32-bit instruction token format, the decoded instruction
// model shared with the tree-IR emitter, and the post-parse analyses
// (dirty constants, dynamic branching, sampler usage, interpolant liveness).
package shader

import (
	"math"

	"github.com/pkg/errors"
)

// Type identifies the pipeline stage a token stream targets. The values
// match the high 16 bits of the version token.
type Type uint16

const (
	TypePixel    Type = 0xFFFF
	TypeVertex   Type = 0xFFFE
	TypeGeometry Type = 0xFFFD
)

// EndToken terminates every token stream.
const EndToken = 0x0000FFFF

// Semantic is a (usage, usage index) pair binding a register component to a
// linkage slot. A usage of 0xFF marks an unused component.
type Semantic struct {
	Usage    uint8
	Index    uint8
	Centroid bool
}

// UnusedSemantic is the sentinel for components that need no interpolation.
var UnusedSemantic = Semantic{Usage: 0xFF, Index: 0xFF}

// Active reports whether the component participates in linking.
func (s Semantic) Active() bool {
	return s.Usage != 0xFF
}

// Equal ignores the centroid flag, matching link-time comparison.
func (s Semantic) Equal(t Semantic) bool {
	return s.Usage == t.Usage && s.Index == t.Index
}

// Shader owns a parsed token stream: the raw tokens (for re-emission), the
// decoded instruction array, and the results of the common analyses. It is
// immutable once constructed.
type Shader struct {
	Type    Type
	Version uint16 // major<<8 | minor

	instructions []*Instruction

	// Dirty-constant counts: highest def/defi/defb destination index + 1.
	DirtyConstantsF uint32
	DirtyConstantsI uint32
	DirtyConstantsB uint32

	dynamicBranching bool
	samplerMask      uint16

	tokens []uint32
	hash   int64
}

// MajorVersion returns the major version byte.
func (s *Shader) MajorVersion() uint8 {
	return uint8(s.Version >> 8)
}

// MinorVersion returns the minor version byte.
func (s *Shader) MinorVersion() uint8 {
	return uint8(s.Version)
}

// Length returns the number of decoded instructions, including the
// leading version token; the END token is not decoded.
func (s *Shader) Length() int {
	return len(s.instructions)
}

// Instruction returns the i-th decoded instruction.
func (s *Shader) Instruction(i int) *Instruction {
	return s.instructions[i]
}

// Instructions returns the decoded instruction array.
func (s *Shader) Instructions() []*Instruction {
	return s.instructions
}

// Append adds an emitter-produced instruction to the body.
func (s *Shader) Append(i *Instruction) {
	s.instructions = append(s.instructions, i)
}

// Hash returns the FNV-1 hash of the comment-stripped token stream.
func (s *Shader) Hash() int64 {
	return s.hash
}

// TokenStream returns a copy of the raw tokens the shader was built from.
func (s *Shader) TokenStream() []uint32 {
	out := make([]uint32, len(s.tokens))
	copy(out, s.tokens)
	return out
}

// ContainsDynamicBranching reports whether any branch depends on
// non-constant state.
func (s *Shader) ContainsDynamicBranching() bool {
	return s.dynamicBranching
}

// UsesSampler reports whether sampler stage i is referenced.
func (s *Shader) UsesSampler(i int) bool {
	return s.samplerMask&(1<<i) != 0
}

// DeclareSampler marks sampler stage i as referenced (emitter path).
func (s *Shader) DeclareSampler(i int) {
	s.samplerMask |= 1 << i
}

// SamplerMask returns the referenced-sampler bitset.
func (s *Shader) SamplerMask() uint16 {
	return s.samplerMask
}

// operandCount is the fixed per-opcode operand-size table for version < 2
// streams; -1 marks invalid encodings.
var operandCount = [97]int8{
	0, // NOP
	2, // MOV
	3, // ADD
	3, // SUB
	4, // MAD
	3, // MUL
	2, // RCP
	2, // RSQ
	3, // DP3
	3, // DP4
	3, // MIN
	3, // MAX
	3, // SLT
	3, // SGE
	2, // EXP
	2, // LOG
	2, // LIT
	3, // DST
	4, // LRP
	2, // FRC
	3, // M4x4
	3, // M4x3
	3, // M3x4
	3, // M3x3
	3, // M3x2
	1, // CALL
	2, // CALLNZ
	2, // LOOP
	0, // RET
	0, // ENDLOOP
	1, // LABEL
	2, // DCL
	3, // POW
	3, // CRS
	4, // SGN
	2, // ABS
	2, // NRM
	4, // SINCOS
	1, // REP
	0, // ENDREP
	1, // IF
	2, // IFC
	0, // ELSE
	0, // ENDIF
	0, // BREAK
	2, // BREAKC
	2, // MOVA
	2, // DEFB
	5, // DEFI
	-1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1,
	1, // TEXCOORD
	1, // TEXKILL
	1, // TEX
	2, // TEXBEM
	2, // TEXBEML
	2, // TEXREG2AR
	2, // TEXREG2GB
	2, // TEXM3x2PAD
	2, // TEXM3x2TEX
	2, // TEXM3x3PAD
	2, // TEXM3x3TEX
	-1, // RESERVED0
	3, // TEXM3x3SPEC
	2, // TEXM3x3VSPEC
	2, // EXPP
	2, // LOGP
	4, // CND
	5, // DEF
	2, // TEXREG2RGB
	2, // TEXDP3TEX
	2, // TEXM3x2DEPTH
	2, // TEXDP3
	2, // TEXM3x3
	1, // TEXDEPTH
	4, // CMP
	3, // BEM
	4, // DP2ADD
	2, // DSX
	2, // DSY
	5, // TEXLDD
	3, // SETP
	3, // TEXLDL
	2, // BREAKP
}

func isVersionToken(token uint32) bool {
	high := token & 0xFFFF0000
	return high == 0xFFFF0000 || high == 0xFFFE0000 || high == 0xFFFD0000
}

// Size returns the operand-token count following an operation token. For
// version >= 2.0 streams the count is embedded in the opcode token; 1.4
// streams read one extra operand for TEX and TEXCOORD.
func Size(token uint32, version uint16) (int, error) {
	if version > 0x0300 {
		return 0, errors.Errorf("unsupported shader version %#04x", version)
	}

	if Opcode(token&0x0000FFFF) == OpComment {
		return int(token & 0x7FFF0000 >> 16), nil
	}

	if isVersionToken(token) || Opcode(token&0x0000FFFF) == OpPhase || token == EndToken {
		return 0, nil
	}

	var length int
	if version >= 0x0200 {
		length = int(token & 0x0F000000 >> 24)
	} else {
		op := token & 0x0000FFFF
		if op >= uint32(len(operandCount)) || operandCount[op] < 0 {
			return 0, errors.Errorf("unsupported opcode %#04x", op)
		}
		length = int(operandCount[op])
	}

	if version == 0x0104 {
		switch Opcode(token & 0x0000FFFF) {
		case OpTex, OpTexCoord:
			length++
		}
	}

	return length, nil
}

// unsupported opcode sets per stage; a match rejects the whole stream.
func unsupportedOpcode(shaderType Type, op Opcode) bool {
	if shaderType == TypeVertex {
		switch op {
		case OpTexCoord, OpTexKill, OpTex, OpTexBem, OpTexBemL,
			OpTexReg2AR, OpTexReg2GB, OpTexM3x2Pad, OpTexM3x2Tex,
			OpTexM3x3Pad, OpTexM3x3Tex, OpReserved0, OpTexM3x3Spec,
			OpTexM3x3VSpec, OpTexReg2RGB, OpTexDP3Tex, OpTexM3x2Depth,
			OpTexDP3, OpTexM3x3, OpTexDepth, OpCmp, OpBem, OpDP2Add,
			OpDsx, OpDsy, OpTexLdd:
			return true
		}
		return false
	}
	switch op {
	case OpReserved0, OpMova:
		return true
	}
	return false
}

// validate checks the header and counts the instructions (including the
// version token, excluding END),
// rejecting stage/version mismatches and unsupported opcodes.
func validate(tokens []uint32, shaderType Type) (int, error) {
	if len(tokens) == 0 {
		return 0, errors.New("empty token stream")
	}

	version := uint16(tokens[0] & 0x0000FFFF)
	streamType := Type(tokens[0] >> 16)

	if streamType != shaderType {
		return 0, errors.Errorf("shader type mismatch: stream %#04x", uint16(streamType))
	}
	if tokens[0]&0x0000FF00>>8 > 3 {
		return 0, errors.Errorf("unsupported shader version %d.%d", tokens[0]>>8&0xFF, tokens[0]&0xFF)
	}

	count := 1 // Version token
	for i := 1; ; i++ {
		if i >= len(tokens) {
			return 0, errors.New("unterminated token stream")
		}
		if tokens[i] == EndToken {
			break
		}

		if Opcode(tokens[i]&0x0000FFFF) == OpComment {
			i += int(tokens[i] & 0x7FFF0000 >> 16)
			continue
		}

		op := Opcode(tokens[i] & 0x0000FFFF)
		if unsupportedOpcode(shaderType, op) {
			return 0, errors.Errorf("unsupported %s opcode %#04x", map[Type]string{TypePixel: "pixel", TypeVertex: "vertex"}[shaderType], uint32(op))
		}

		size, err := Size(tokens[i], version)
		if err != nil {
			return 0, err
		}
		count++
		i += size
	}

	return count, nil
}

// streamLength returns the token count of the stream including the END token.
func streamLength(tokens []uint32) (int, error) {
	if len(tokens) == 0 {
		return 0, errors.New("empty token stream")
	}
	version := uint16(tokens[0] & 0x0000FFFF)
	n := 0
	for n < len(tokens) && tokens[n] != EndToken {
		size, err := Size(tokens[n], version)
		if err != nil {
			return 0, err
		}
		n += size + 1
	}
	if n >= len(tokens) {
		return 0, errors.New("unterminated token stream")
	}
	return n + 1, nil
}

// parse decodes the stream into sh.instructions. The caller has validated
// the header.
func (sh *Shader) parse(tokens []uint32, count int) error {
	sh.Version = uint16(tokens[0] & 0x0000FFFF)
	sh.Type = Type(tokens[0] >> 16)

	sh.instructions = make([]*Instruction, 0, count)
	sh.instructions = append(sh.instructions, versionInstruction(tokens[0]))

	pos := 1
	for i := 1; i < count; i++ {
		for Opcode(tokens[pos]&0x0000FFFF) == OpComment && !isVersionToken(tokens[pos]) {
			pos += int(tokens[pos]&0x7FFF0000>>16) + 1
		}

		size, err := Size(tokens[pos], sh.Version)
		if err != nil {
			return err
		}

		inst, err := decodeInstruction(tokens[pos:pos+size+1], sh.MajorVersion())
		if err != nil {
			return err
		}
		sh.instructions = append(sh.instructions, inst)

		pos += size + 1
	}

	return nil
}

func versionInstruction(token uint32) *Instruction {
	if token == EndToken {
		return NewInstruction(OpEnd)
	}
	return NewInstruction(Opcode(token))
}

// decodeInstruction decodes one operation token plus its operand tokens.
func decodeInstruction(tokens []uint32, majorVersion uint8) (*Instruction, error) {
	if tokens[0] == EndToken {
		return NewInstruction(OpEnd), nil
	}

	inst := NewInstruction(OpNop)
	if err := inst.parseOperationToken(tokens[0], majorVersion); err != nil {
		return nil, err
	}

	operand := tokens[1:]

	switch {
	case inst.Opcode.IsBranch():
		// No destination operand.
		for i := 0; i < len(operand) && i < 4; i++ {
			if err := inst.parseSourceToken(i, operand[i:], majorVersion); err != nil {
				return nil, err
			}
		}
	case inst.Opcode == OpDcl:
		if len(operand) < 2 {
			return nil, errors.New("truncated declaration")
		}
		inst.parseDeclarationToken(operand[0])
		if err := inst.parseDestinationToken(operand[1:], majorVersion); err != nil {
			return nil, err
		}
	default:
		if len(operand) > 0 {
			if err := inst.parseDestinationToken(operand, majorVersion); err != nil {
				return nil, err
			}
			if inst.Dst.Rel.Type != ParamVoid && majorVersion >= 3 {
				operand = operand[1:]
			}
			operand = operand[1:]
		}

		if inst.Predicate {
			if len(operand) == 0 {
				return nil, errors.New("predicated instruction missing predicate token")
			}
			inst.PredicateNot = Modifier(operand[0]&0x0F000000>>24) == ModifierNot
			inst.PredicateSwizzle = uint8(operand[0] & 0x00FF0000 >> 16)
			operand = operand[1:]
		}

		for i := 0; len(operand) > 0; i++ {
			if i >= 4 {
				return nil, errors.Errorf("too many source operands for %s", inst.Opcode)
			}
			if err := inst.parseSourceToken(i, operand, majorVersion); err != nil {
				return nil, err
			}
			operand = operand[1:]
			if inst.Src[i].Rel.Type != ParamVoid && majorVersion >= 2 && inst.Opcode != OpDef && inst.Opcode != OpDefI && inst.Opcode != OpDefB {
				operand = operand[1:]
			}
		}
	}

	return inst, nil
}

func (i *Instruction) parseOperationToken(token uint32, majorVersion uint8) error {
	i.Opcode = Opcode(token & 0x0000FFFF)
	i.Control = Control(token & 0x00FF0000 >> 16)
	switch i.Opcode {
	case OpTex, OpTexLdl, OpTexLdd:
		// Sampling control bits alias the comparison control field.
		i.Project = token&0x00010000 != 0
		i.Bias = token&0x00020000 != 0
	}

	size := token & 0x0F000000 >> 24
	i.Predicate = token&0x10000000 != 0
	i.Coissue = token&0x40000000 != 0

	if majorVersion < 2 {
		if size != 0 {
			return errors.Errorf("reserved length bits set in %s token", i.Opcode)
		}
		if i.Predicate {
			return errors.Errorf("predicate flag set in version %d shader", majorVersion)
		}
	}
	if token&0x20000000 != 0 {
		return errors.New("reserved bit 29 set in operation token")
	}
	if majorVersion >= 2 && i.Coissue {
		return errors.New("co-issue flag is reserved in version >= 2")
	}
	if token&0x80000000 != 0 {
		return errors.New("bit 31 set in operation token")
	}

	return nil
}

func (i *Instruction) parseDeclarationToken(token uint32) {
	i.SamplerType = SamplerType(token & 0x78000000 >> 27)
	i.Usage = Usage(token & 0x0000001F)
	i.UsageIndex = uint8(token & 0x000F0000 >> 16)
}

func parameterType(token uint32) ParameterType {
	return ParameterType(token&0x00001800>>8 | token&0x70000000>>28)
}

func (i *Instruction) parseDestinationToken(tokens []uint32, majorVersion uint8) error {
	dst := &i.Dst
	dst.Index = tokens[0] & 0x000007FF
	dst.Type = parameterType(tokens[0])

	relative := tokens[0]&0x00002000 != 0
	dst.Rel.Type = ParamVoid
	if relative {
		if majorVersion < 3 {
			return errors.New("relative destination is reserved below version 3")
		}
		if len(tokens) < 2 {
			return errors.New("truncated relative-address token")
		}
		dst.Rel.Type = parameterType(tokens[1])
		dst.Rel.Swizzle = uint8(tokens[1] & 0x00FF0000 >> 16)
	}

	if tokens[0]&0x0000C000 != 0 {
		return errors.New("reserved destination bits 14-15 set")
	}

	dst.Mask = uint8(tokens[0] & 0x000F0000 >> 16)
	dst.Saturate = tokens[0]&0x00100000 != 0
	dst.PartialPrecision = tokens[0]&0x00200000 != 0
	dst.Centroid = tokens[0]&0x00400000 != 0
	dst.Shift = int8(tokens[0]&0x0F000000>>20) >> 4

	if majorVersion >= 2 && dst.Shift != 0 {
		return errors.New("destination shift is reserved in version >= 2")
	}
	if tokens[0]&0x80000000 == 0 {
		return errors.New("bit 31 clear in destination token")
	}

	return nil
}

func (i *Instruction) parseSourceToken(n int, tokens []uint32, majorVersion uint8) error {
	src := &i.Src[n]
	src.Modifier = ModifierNone
	src.Swizzle = SwizzleIdentity
	src.Rel.Type = ParamVoid

	switch i.Opcode {
	case OpDef:
		src.Type = ParamFloatLiteral
		src.Value[0] = math.Float32frombits(tokens[0])
		return nil
	case OpDefB:
		src.Type = ParamBoolLiteral
		src.Boolean = tokens[0] != 0
		return nil
	case OpDefI:
		src.Type = ParamIntLiteral
		src.Integer = int32(tokens[0])
		return nil
	}

	src.Index = tokens[0] & 0x000007FF
	src.Type = parameterType(tokens[0])

	if tokens[0]&0x0000C000 != 0 {
		return errors.New("reserved source bits 14-15 set")
	}
	if tokens[0]&0x80000000 == 0 {
		return errors.New("bit 31 clear in source token")
	}

	src.Swizzle = uint8(tokens[0] & 0x00FF0000 >> 16)
	src.Modifier = Modifier(tokens[0] & 0x0F000000 >> 24)

	if tokens[0]&0x00002000 != 0 {
		src.Rel.Type = ParamAddr
		src.Rel.Swizzle = 0x00
		if majorVersion >= 2 {
			if len(tokens) < 2 {
				return errors.New("truncated relative-address token")
			}
			src.Rel.Type = parameterType(tokens[1])
			src.Rel.Swizzle = uint8(tokens[1] & 0x00FF0000 >> 16)
		}
	}

	return nil
}

// stripComments replaces comment blocks with NOP tokens in place.
func stripComments(tokens []uint32, version uint16) {
	for i := 0; i < len(tokens); {
		size, err := Size(tokens[i], version)
		if err != nil {
			return
		}
		if Opcode(tokens[i]&0x0000FFFF) == OpComment && !isVersionToken(tokens[i]) {
			for j := 0; j <= size && i+j < len(tokens); j++ {
				tokens[i+j] = uint32(OpNop)
			}
		}
		i += size + 1
	}
}

// newShader copies the stream, parses it, and runs the shared analyses.
func newShader(raw []uint32, shaderType Type) (*Shader, error) {
	count, err := validate(raw, shaderType)
	if err != nil {
		return nil, err
	}

	n, err := streamLength(raw)
	if err != nil {
		return nil, err
	}

	sh := &Shader{}
	sh.tokens = make([]uint32, n)
	copy(sh.tokens, raw[:n])

	if err := sh.parse(sh.tokens, count); err != nil {
		return nil, err
	}

	hashTokens := make([]uint32, n)
	copy(hashTokens, sh.tokens)
	stripComments(hashTokens, sh.Version)
	sh.hash = fnv1(hashTokens)

	sh.analyzeDirtyConstants()
	sh.analyzeDynamicBranching()
	sh.analyzeSamplers()

	return sh, nil
}
