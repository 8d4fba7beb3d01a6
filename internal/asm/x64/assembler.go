// Package x64 implements a direct x86-64 machine-code emitter: one method
// per instruction form, encoding REX prefixes, ModR/M and SIB bytes,
// immediates and PC-relative displacements into an append-only buffer with
// deferred fixups and bind-once labels.
package x64

import "fmt"

// Type is the operand size of an instruction form.
type Type uint8

const (
	TypeInt8 Type = iota
	TypeInt16
	TypeInt32
	TypeInt64
	TypeFloat32
	TypeFloat64
)

func (t Type) is64() bool {
	return t == TypeInt64
}

func (t Type) isByte() bool {
	return t == TypeInt8
}

// GPR is a general-purpose register encoding.
type GPR uint8

const (
	RAX GPR = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
)

// XMM is a vector register encoding.
type XMM uint8

const (
	XMM0 XMM = iota
	XMM1
	XMM2
	XMM3
	XMM4
	XMM5
	XMM6
	XMM7
	XMM8
	XMM9
	XMM10
	XMM11
	XMM12
	XMM13
	XMM14
	XMM15
)

// Cond is a branch condition code (the low nibble of the 0F 8x opcodes).
type Cond uint8

const (
	Overflow Cond = iota
	NoOverflow
	Below
	AboveEqual
	Equal
	NotEqual
	BelowEqual
	Above
	Sign
	NotSign
	Parity
	NoParity
	Less
	GreaterEqual
	LessEqual
	Greater
)

// FixupKind distinguishes absolute from PC-relative relocations.
type FixupKind uint8

const (
	FixupAbsolute FixupKind = iota
	FixupPCRel
)

// Fixup is a deferred relocation attached to a 4-byte field in the buffer.
type Fixup struct {
	Kind     FixupKind
	Position int
	Symbol   string
	Addend   int64
}

// Label marks a position in the generated code. While unbound it chains
// the 32-bit patch sites through the buffer itself and keeps the 8-bit
// near sites aside; Bind walks both chains and patches every site.
type Label struct {
	bound    bool
	linked   bool
	position int

	nearPositions []int
}

// IsBound reports whether the label has a final offset.
func (l *Label) IsBound() bool { return l.bound }

// Position returns the bound offset.
func (l *Label) Position() int {
	if !l.bound {
		panic("BUG: label not bound")
	}
	return l.position
}

func (l *Label) isLinked() bool { return l.linked }

func (l *Label) linkPosition() int {
	if !l.linked {
		panic("BUG: label has no links")
	}
	return l.position
}

func (l *Label) linkTo(position int) {
	if l.bound {
		panic("BUG: linking a bound label")
	}
	l.position = position
	l.linked = true
}

func (l *Label) bindTo(position int) {
	if l.bound {
		panic("BUG: label bound twice")
	}
	l.bound = true
	l.linked = false
	l.position = position
}

const maxNopSize = 8

// Assembler is the stateful machine-code buffer. One assembler exists per
// compiled function and is never shared.
type Assembler struct {
	buffer []byte
	fixups []*Fixup

	// bundleAlignLog2 is the function-entry alignment (bundle size).
	bundleAlignLog2 uint
}

// NewAssembler returns an empty assembler with 32-byte bundle alignment.
func NewAssembler() *Assembler {
	return &Assembler{bundleAlignLog2: 5}
}

// SetBundleAlign sets the log2 of the function-entry alignment.
func (a *Assembler) SetBundleAlign(log2 uint) {
	a.bundleAlignLog2 = log2
}

// Bytes returns the emitted machine code.
func (a *Assembler) Bytes() []byte {
	return a.buffer
}

// Position returns the current buffer offset.
func (a *Assembler) Position() int {
	return len(a.buffer)
}

// Fixups returns the pending relocations.
func (a *Assembler) Fixups() []*Fixup {
	return a.fixups
}

func (a *Assembler) emitUint8(b byte) {
	a.buffer = append(a.buffer, b)
}

func (a *Assembler) emitInt16(v int16) {
	a.buffer = append(a.buffer, byte(v), byte(v>>8))
}

func (a *Assembler) emitInt32(v int32) {
	a.buffer = append(a.buffer, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (a *Assembler) emitInt64(v int64) {
	a.emitInt32(int32(v))
	a.emitInt32(int32(v >> 32))
}

func (a *Assembler) load32(position int) int32 {
	b := a.buffer[position : position+4]
	return int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16 | int32(b[3])<<24
}

func (a *Assembler) store32(position int, v int32) {
	a.buffer[position+0] = byte(v)
	a.buffer[position+1] = byte(v >> 8)
	a.buffer[position+2] = byte(v >> 16)
	a.buffer[position+3] = byte(v >> 24)
}

func (a *Assembler) store8(position int, v int8) {
	a.buffer[position] = byte(v)
}

// createFixup registers a relocation at the current position.
func (a *Assembler) createFixup(kind FixupKind, symbol string, addend int64) *Fixup {
	f := &Fixup{Kind: kind, Position: len(a.buffer), Symbol: symbol, Addend: addend}
	a.fixups = append(a.fixups, f)
	return f
}

func isInt8(v int64) bool {
	return v >= -128 && v <= 127
}

func isInt32(v int64) bool {
	return v >= -2147483648 && v <= 2147483647
}

// REX prefix bits.
const (
	rexNone = 0x00
	rexB    = 0x01
	rexX    = 0x02
	rexR    = 0x04
	rexW    = 0x08
	rexBase = 0x40
)

// operandSizeOverride emits the 16-bit prefix.
func (a *Assembler) operandSizeOverride() {
	a.emitUint8(0x66)
}

// byteRegNeedsRex reports whether a byte-sized access to the register
// requires a REX prefix (spl, bpl, sil, dil).
func byteRegNeedsRex(reg uint8) bool {
	return reg >= 4 && reg <= 7
}

// rex computes the REX prefix for the given W/R/X/B constituents and emits
// it when non-empty or when a byte register forces the REX encoding path.
func (a *Assembler) rex(w bool, r, x, b uint8, forceByte bool) {
	prefix := byte(rexNone)
	if w {
		prefix |= rexW
	}
	if r >= 8 {
		prefix |= rexR
	}
	if x >= 8 {
		prefix |= rexX
	}
	if b >= 8 {
		prefix |= rexB
	}
	if prefix != rexNone || forceByte {
		a.emitUint8(rexBase | prefix)
	}
}

// emitRexB emits a REX prefix for a single r/m register operand.
func (a *Assembler) emitRexB(ty Type, reg uint8) {
	a.rex(ty.is64(), 0, 0, reg, ty.isByte() && byteRegNeedsRex(reg))
}

// emitRexRB emits a REX prefix for a register pair (reg field, r/m field).
func (a *Assembler) emitRexRB(ty Type, reg, rm uint8) {
	force := ty.isByte() && (byteRegNeedsRex(reg) || byteRegNeedsRex(rm))
	a.rex(ty.is64(), reg, 0, rm, force)
}

// emitRex emits a REX prefix for a register and a memory operand.
func (a *Assembler) emitRex(ty Type, addr *Address, reg uint8) {
	force := ty.isByte() && byteRegNeedsRex(reg)
	a.rex(ty.is64(), reg, addr.rexX, addr.rexB, force)
}

// emitRegisterOperand emits a register-direct ModR/M byte.
func (a *Assembler) emitRegisterOperand(rm int, reg uint8) {
	a.emitUint8(0xC0 + byte(rm<<3) + byte(reg&7))
}

// emitOperand emits the ModR/M byte (with the given reg/digit), the SIB
// byte when present, and the displacement. addend is the distance from the
// end of a PC-relative displacement field to the end of the instruction,
// folded into the fixup.
func (a *Assembler) emitOperand(rm int, operand *Address, addend int64) {
	if rm < 0 || rm >= 8 {
		panic("BUG: ModR/M digit out of range")
	}
	length := operand.length
	if length == 0 {
		panic("BUG: empty operand encoding")
	}
	if operand.encoding[0]&0x38 != 0 {
		panic("BUG: operand encodes a reg field")
	}

	displacementStart := 1
	a.emitUint8(operand.encoding[0] + byte(rm<<3))
	// When the addressing mode is not register-direct, r/m == rsp (0x4)
	// indicates an SIB byte follows.
	if operand.encoding[0]&0xC0 != 0xC0 && operand.encoding[0]&0x07 == 0x04 {
		a.emitUint8(operand.encoding[1])
		displacementStart = 2
	}

	if operand.fixupKind == fixupNone {
		for i := displacementStart; i < length; i++ {
			a.emitUint8(operand.encoding[i])
		}
		return
	}

	// Emit the fixup and a placeholder 4-byte displacement.
	if length-displacementStart != 4 {
		panic("BUG: relocated operand must have a 32-bit displacement")
	}
	fixupAddend := operand.fixupAddend
	if operand.fixupKind == fixupPCRel {
		fixupAddend -= addend
		a.createFixup(FixupPCRel, operand.fixupSymbol, fixupAddend)
	} else {
		a.createFixup(FixupAbsolute, operand.fixupSymbol, fixupAddend)
	}
	a.emitInt32(0)
}

// emitImmediate emits a 16- or 32-bit immediate according to the type.
func (a *Assembler) emitImmediate(ty Type, imm int64) {
	if ty == TypeInt16 {
		a.emitInt16(int16(imm))
		return
	}
	a.emitInt32(int32(imm))
}

// emitComplexI8 encodes a group-1 ALU op with an 8-bit operand size.
func (a *Assembler) emitComplexI8(rm int, operand *Address, imm int64) {
	if !isInt8(imm) {
		panic("BUG: immediate out of 8-bit range")
	}
	if operand.isRegister(RAX) {
		// Short form for al.
		a.emitUint8(0x04 + byte(rm<<3))
		a.emitUint8(byte(imm))
	} else {
		a.emitUint8(0x80)
		a.emitOperand(rm, operand, 1)
		a.emitUint8(byte(imm))
	}
}

// emitComplex encodes a group-1 ALU op with a 16/32/64-bit operand size.
func (a *Assembler) emitComplex(ty Type, rm int, operand *Address, imm int64) {
	switch {
	case isInt8(imm):
		// Sign-extended 8-bit immediate.
		a.emitUint8(0x83)
		a.emitOperand(rm, operand, 1)
		a.emitUint8(byte(imm))
	case operand.isRegister(RAX):
		// Short form for eax.
		a.emitUint8(0x05 + byte(rm<<3))
		a.emitImmediate(ty, imm)
	default:
		a.emitUint8(0x81)
		if ty == TypeInt16 {
			a.emitOperand(rm, operand, 2)
		} else {
			a.emitOperand(rm, operand, 4)
		}
		a.emitImmediate(ty, imm)
	}
}

// emitLabel emits a 32-bit displacement to a label, linking when unbound.
func (a *Assembler) emitLabel(label *Label, instructionSize int) {
	if label.IsBound() {
		offset := label.Position() - len(a.buffer)
		if offset > 0 {
			panic("BUG: bound label ahead of emission point")
		}
		a.emitInt32(int32(offset - instructionSize))
	} else {
		a.emitLabelLink(label)
	}
}

// emitLabelLink reserves a 32-bit field holding the previous chain head
// and pushes this site onto the label's link chain.
func (a *Assembler) emitLabelLink(label *Label) {
	if label.IsBound() {
		panic("BUG: linking a bound label")
	}
	position := len(a.buffer)
	if label.isLinked() {
		a.emitInt32(int32(label.linkPosition()))
	} else {
		a.emitInt32(-1)
	}
	label.linkTo(position)
}

// emitNearLabelLink reserves one byte and records the site on the near
// chain.
func (a *Assembler) emitNearLabelLink(label *Label) {
	if label.IsBound() {
		panic("BUG: linking a bound label")
	}
	position := len(a.buffer)
	a.emitUint8(0)
	label.nearPositions = append(label.nearPositions, position)
}

// Bind fixes the label at the current position and patches every linked
// site with boundPosition - (site + fieldWidth).
func (a *Assembler) Bind(label *Label) {
	bound := len(a.buffer)
	if label.IsBound() {
		panic("BUG: label bound twice")
	}
	for label.isLinked() {
		position := label.linkPosition()
		next := int(a.load32(position))
		a.store32(position, int32(bound-(position+4)))
		if next < 0 {
			label.linked = false
		} else {
			label.position = next
		}
	}
	for _, position := range label.nearPositions {
		offset := bound - (position + 1)
		if !isInt8(int64(offset)) {
			panic(fmt.Sprintf("BUG: near branch out of range: %d", offset))
		}
		a.store8(position, int8(offset))
	}
	label.nearPositions = nil
	label.bindTo(bound)
}

// Align pads with canonical NOPs so that offset+Position() is a multiple
// of alignment.
func (a *Assembler) Align(alignment, offset int) {
	if alignment&(alignment-1) != 0 {
		panic("BUG: alignment must be a power of two")
	}
	pos := offset + len(a.buffer)
	mod := pos & (alignment - 1)
	if mod == 0 {
		return
	}
	needed := alignment - mod
	for needed > maxNopSize {
		a.Nop(maxNopSize)
		needed -= maxNopSize
	}
	if needed > 0 {
		a.Nop(needed)
	}
}

// AlignFunction pads to the bundle boundary with hlt fillers, keeping the
// immutable code region free of reachable filler instructions.
func (a *Assembler) AlignFunction() {
	align := 1 << a.bundleAlignLog2
	for len(a.buffer)&(align-1) != 0 {
		a.Hlt()
	}
}

// Nop emits the canonical NOP of the requested size (1..8 bytes).
func (a *Assembler) Nop(size int) {
	switch size {
	case 1:
		a.emitUint8(0x90)
	case 2:
		a.emitUint8(0x66)
		a.emitUint8(0x90)
	case 3:
		a.emitUint8(0x0F)
		a.emitUint8(0x1F)
		a.emitUint8(0x00)
	case 4:
		a.emitUint8(0x0F)
		a.emitUint8(0x1F)
		a.emitUint8(0x40)
		a.emitUint8(0x00)
	case 5:
		a.emitUint8(0x0F)
		a.emitUint8(0x1F)
		a.emitUint8(0x44)
		a.emitUint8(0x00)
		a.emitUint8(0x00)
	case 6:
		a.emitUint8(0x66)
		a.emitUint8(0x0F)
		a.emitUint8(0x1F)
		a.emitUint8(0x44)
		a.emitUint8(0x00)
		a.emitUint8(0x00)
	case 7:
		a.emitUint8(0x0F)
		a.emitUint8(0x1F)
		a.emitUint8(0x80)
		a.emitUint8(0x00)
		a.emitUint8(0x00)
		a.emitUint8(0x00)
		a.emitUint8(0x00)
	case 8:
		a.emitUint8(0x0F)
		a.emitUint8(0x1F)
		a.emitUint8(0x84)
		a.emitUint8(0x00)
		a.emitUint8(0x00)
		a.emitUint8(0x00)
		a.emitUint8(0x00)
		a.emitUint8(0x00)
	default:
		panic("BUG: unsupported nop size")
	}
}

// Int3 emits a breakpoint.
func (a *Assembler) Int3() {
	a.emitUint8(0xCC)
}

// Hlt emits the privileged halt filler.
func (a *Assembler) Hlt() {
	a.emitUint8(0xF4)
}

// Ud2 emits the canonical undefined instruction.
func (a *Assembler) Ud2() {
	a.emitUint8(0x0F)
	a.emitUint8(0x0B)
}

// Ret emits a near return.
func (a *Assembler) Ret() {
	a.emitUint8(0xC3)
}

// RetImm pops imm additional bytes on return.
func (a *Assembler) RetImm(imm uint16) {
	a.emitUint8(0xC2)
	a.emitUint8(byte(imm))
	a.emitUint8(byte(imm >> 8))
}

// Mfence emits a full memory barrier.
func (a *Assembler) Mfence() {
	a.emitUint8(0x0F)
	a.emitUint8(0xAE)
	a.emitUint8(0xF0)
}

// Lock emits the bus-lock prefix for the following instruction.
func (a *Assembler) Lock() {
	a.emitUint8(0xF0)
}
