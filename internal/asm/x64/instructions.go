package x64

// Group-1 ALU digit assignments.
const (
	aluAdd = 0
	aluOr  = 1
	aluAdc = 2
	aluSbb = 3
	aluAnd = 4
	aluSub = 5
	aluXor = 6
	aluCmp = 7
)

// aluRR encodes op dst, src with both operands in registers.
func (a *Assembler) aluRR(digit int, ty Type, dst, src GPR) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRexRB(ty, uint8(dst), uint8(src))
	if ty.isByte() {
		a.emitUint8(byte(digit<<3) + 0x02)
	} else {
		a.emitUint8(byte(digit<<3) + 0x03)
	}
	a.emitRegisterOperand(int(dst&7), uint8(src))
}

// aluRM encodes op dst, [mem].
func (a *Assembler) aluRM(digit int, ty Type, dst GPR, src Address) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRex(ty, &src, uint8(dst))
	if ty.isByte() {
		a.emitUint8(byte(digit<<3) + 0x02)
	} else {
		a.emitUint8(byte(digit<<3) + 0x03)
	}
	a.emitOperand(int(dst&7), &src, 0)
}

// aluMR encodes op [mem], src.
func (a *Assembler) aluMR(digit int, ty Type, dst Address, src GPR) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRex(ty, &dst, uint8(src))
	if ty.isByte() {
		a.emitUint8(byte(digit << 3))
	} else {
		a.emitUint8(byte(digit<<3) + 0x01)
	}
	a.emitOperand(int(src&7), &dst, 0)
}

// aluRI encodes op reg, imm.
func (a *Assembler) aluRI(digit int, ty Type, dst GPR, imm int64) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRexB(ty, uint8(dst))
	operand := RegisterOperand(dst)
	if ty.isByte() {
		a.emitComplexI8(digit, &operand, imm)
	} else {
		a.emitComplex(ty, digit, &operand, imm)
	}
}

// aluMI encodes op [mem], imm.
func (a *Assembler) aluMI(digit int, ty Type, dst Address, imm int64) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRex(ty, &dst, 0)
	if ty.isByte() {
		a.emitComplexI8(digit, &dst, imm)
	} else {
		a.emitComplex(ty, digit, &dst, imm)
	}
}

// Add encodes add dst, src.
func (a *Assembler) Add(ty Type, dst, src GPR) { a.aluRR(aluAdd, ty, dst, src) }

// AddMem encodes add dst, [src].
func (a *Assembler) AddMem(ty Type, dst GPR, src Address) { a.aluRM(aluAdd, ty, dst, src) }

// AddToMem encodes add [dst], src.
func (a *Assembler) AddToMem(ty Type, dst Address, src GPR) { a.aluMR(aluAdd, ty, dst, src) }

// AddImm encodes add dst, imm.
func (a *Assembler) AddImm(ty Type, dst GPR, imm int64) { a.aluRI(aluAdd, ty, dst, imm) }

// AddMemImm encodes add [dst], imm.
func (a *Assembler) AddMemImm(ty Type, dst Address, imm int64) { a.aluMI(aluAdd, ty, dst, imm) }

// Adc encodes adc dst, src.
func (a *Assembler) Adc(ty Type, dst, src GPR) { a.aluRR(aluAdc, ty, dst, src) }

// AdcMem encodes adc dst, [src].
func (a *Assembler) AdcMem(ty Type, dst GPR, src Address) { a.aluRM(aluAdc, ty, dst, src) }

// AdcToMem encodes adc [dst], src.
func (a *Assembler) AdcToMem(ty Type, dst Address, src GPR) { a.aluMR(aluAdc, ty, dst, src) }

// AdcImm encodes adc dst, imm.
func (a *Assembler) AdcImm(ty Type, dst GPR, imm int64) { a.aluRI(aluAdc, ty, dst, imm) }

// Sub encodes sub dst, src.
func (a *Assembler) Sub(ty Type, dst, src GPR) { a.aluRR(aluSub, ty, dst, src) }

// SubMem encodes sub dst, [src].
func (a *Assembler) SubMem(ty Type, dst GPR, src Address) { a.aluRM(aluSub, ty, dst, src) }

// SubToMem encodes sub [dst], src.
func (a *Assembler) SubToMem(ty Type, dst Address, src GPR) { a.aluMR(aluSub, ty, dst, src) }

// SubImm encodes sub dst, imm.
func (a *Assembler) SubImm(ty Type, dst GPR, imm int64) { a.aluRI(aluSub, ty, dst, imm) }

// Sbb encodes sbb dst, src.
func (a *Assembler) Sbb(ty Type, dst, src GPR) { a.aluRR(aluSbb, ty, dst, src) }

// SbbMem encodes sbb dst, [src].
func (a *Assembler) SbbMem(ty Type, dst GPR, src Address) { a.aluRM(aluSbb, ty, dst, src) }

// SbbImm encodes sbb dst, imm.
func (a *Assembler) SbbImm(ty Type, dst GPR, imm int64) { a.aluRI(aluSbb, ty, dst, imm) }

// And encodes and dst, src.
func (a *Assembler) And(ty Type, dst, src GPR) { a.aluRR(aluAnd, ty, dst, src) }

// AndMem encodes and dst, [src].
func (a *Assembler) AndMem(ty Type, dst GPR, src Address) { a.aluRM(aluAnd, ty, dst, src) }

// AndImm encodes and dst, imm.
func (a *Assembler) AndImm(ty Type, dst GPR, imm int64) { a.aluRI(aluAnd, ty, dst, imm) }

// Or encodes or dst, src.
func (a *Assembler) Or(ty Type, dst, src GPR) { a.aluRR(aluOr, ty, dst, src) }

// OrMem encodes or dst, [src].
func (a *Assembler) OrMem(ty Type, dst GPR, src Address) { a.aluRM(aluOr, ty, dst, src) }

// OrImm encodes or dst, imm.
func (a *Assembler) OrImm(ty Type, dst GPR, imm int64) { a.aluRI(aluOr, ty, dst, imm) }

// Xor encodes xor dst, src.
func (a *Assembler) Xor(ty Type, dst, src GPR) { a.aluRR(aluXor, ty, dst, src) }

// XorMem encodes xor dst, [src].
func (a *Assembler) XorMem(ty Type, dst GPR, src Address) { a.aluRM(aluXor, ty, dst, src) }

// XorImm encodes xor dst, imm.
func (a *Assembler) XorImm(ty Type, dst GPR, imm int64) { a.aluRI(aluXor, ty, dst, imm) }

// Cmp encodes cmp left, right.
func (a *Assembler) Cmp(ty Type, left, right GPR) { a.aluRR(aluCmp, ty, left, right) }

// CmpMem encodes cmp left, [right].
func (a *Assembler) CmpMem(ty Type, left GPR, right Address) { a.aluRM(aluCmp, ty, left, right) }

// CmpMemReg encodes cmp [left], right.
func (a *Assembler) CmpMemReg(ty Type, left Address, right GPR) { a.aluMR(aluCmp, ty, left, right) }

// CmpImm encodes cmp left, imm.
func (a *Assembler) CmpImm(ty Type, left GPR, imm int64) { a.aluRI(aluCmp, ty, left, imm) }

// CmpMemImm encodes cmp [left], imm.
func (a *Assembler) CmpMemImm(ty Type, left Address, imm int64) { a.aluMI(aluCmp, ty, left, imm) }

// Test encodes test left, right.
func (a *Assembler) Test(ty Type, left, right GPR) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRexRB(ty, uint8(right), uint8(left))
	if ty.isByte() {
		a.emitUint8(0x84)
	} else {
		a.emitUint8(0x85)
	}
	a.emitRegisterOperand(int(right&7), uint8(left))
}

// TestImm encodes test reg, imm.
func (a *Assembler) TestImm(ty Type, reg GPR, imm int64) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRexB(ty, uint8(reg))
	if ty.isByte() {
		if reg == RAX {
			a.emitUint8(0xA8)
		} else {
			a.emitUint8(0xF6)
			a.emitRegisterOperand(0, uint8(reg))
		}
		a.emitUint8(byte(imm))
		return
	}
	if reg == RAX {
		a.emitUint8(0xA9)
	} else {
		a.emitUint8(0xF7)
		a.emitRegisterOperand(0, uint8(reg))
	}
	a.emitImmediate(ty, imm)
}

// Neg encodes neg reg.
func (a *Assembler) Neg(ty Type, reg GPR) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRexB(ty, uint8(reg))
	if ty.isByte() {
		a.emitUint8(0xF6)
	} else {
		a.emitUint8(0xF7)
	}
	a.emitRegisterOperand(3, uint8(reg))
}

// Not encodes not reg.
func (a *Assembler) Not(ty Type, reg GPR) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRexB(ty, uint8(reg))
	if ty.isByte() {
		a.emitUint8(0xF6)
	} else {
		a.emitUint8(0xF7)
	}
	a.emitRegisterOperand(2, uint8(reg))
}

// Mov encodes mov dst, src between registers.
func (a *Assembler) Mov(ty Type, dst, src GPR) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRexRB(ty, uint8(src), uint8(dst))
	if ty.isByte() {
		a.emitUint8(0x88)
	} else {
		a.emitUint8(0x89)
	}
	a.emitRegisterOperand(int(src&7), uint8(dst))
}

// MovImm encodes mov reg, imm32 (sign-extended for 64-bit).
func (a *Assembler) MovImm(ty Type, dst GPR, imm int64) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRexB(ty, uint8(dst))
	switch {
	case ty.isByte():
		a.emitUint8(0xB0 + byte(dst&7))
		a.emitUint8(byte(imm))
	case ty.is64():
		a.emitUint8(0xC7)
		a.emitRegisterOperand(0, uint8(dst))
		a.emitInt32(int32(imm))
	default:
		a.emitUint8(0xB8 + byte(dst&7))
		a.emitImmediate(ty, imm)
	}
}

// Movabs encodes a full 64-bit immediate load.
func (a *Assembler) Movabs(dst GPR, imm uint64) {
	a.emitRexB(TypeInt64, uint8(dst))
	a.emitUint8(0xB8 + byte(dst&7))
	a.emitInt64(int64(imm))
}

// MovMem encodes mov dst, [src].
func (a *Assembler) MovMem(ty Type, dst GPR, src Address) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRex(ty, &src, uint8(dst))
	if ty.isByte() {
		a.emitUint8(0x8A)
	} else {
		a.emitUint8(0x8B)
	}
	a.emitOperand(int(dst&7), &src, 0)
}

// MovToMem encodes mov [dst], src.
func (a *Assembler) MovToMem(ty Type, dst Address, src GPR) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRex(ty, &dst, uint8(src))
	if ty.isByte() {
		a.emitUint8(0x88)
	} else {
		a.emitUint8(0x89)
	}
	a.emitOperand(int(src&7), &dst, 0)
}

// MovMemImm encodes mov [dst], imm.
func (a *Assembler) MovMemImm(ty Type, dst Address, imm int64) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRex(ty, &dst, 0)
	if ty.isByte() {
		a.emitUint8(0xC6)
		a.emitOperand(0, &dst, 1)
		a.emitUint8(byte(imm))
		return
	}
	a.emitUint8(0xC7)
	if ty == TypeInt16 {
		a.emitOperand(0, &dst, 2)
	} else {
		a.emitOperand(0, &dst, 4)
	}
	a.emitImmediate(ty, imm)
}

// Movzx zero-extends an 8- or 16-bit source register. The zero extension
// covers the full 64 bits of the destination.
func (a *Assembler) Movzx(srcTy Type, dst, src GPR) {
	a.rex(false, uint8(dst), 0, uint8(src), srcTy.isByte() && byteRegNeedsRex(uint8(src)))
	a.emitUint8(0x0F)
	if srcTy.isByte() {
		a.emitUint8(0xB6)
	} else {
		a.emitUint8(0xB7)
	}
	a.emitRegisterOperand(int(dst&7), uint8(src))
}

// MovzxMem zero-extends an 8- or 16-bit memory source.
func (a *Assembler) MovzxMem(srcTy Type, dst GPR, src Address) {
	a.emitRex(TypeInt32, &src, uint8(dst))
	a.emitUint8(0x0F)
	if srcTy.isByte() {
		a.emitUint8(0xB6)
	} else {
		a.emitUint8(0xB7)
	}
	a.emitOperand(int(dst&7), &src, 0)
}

// Movsx sign-extends an 8-, 16- or 32-bit source register into a 64-bit
// destination.
func (a *Assembler) Movsx(srcTy Type, dst, src GPR) {
	a.emitRexRB(TypeInt64, uint8(dst), uint8(src))
	switch srcTy {
	case TypeInt8:
		a.emitUint8(0x0F)
		a.emitUint8(0xBE)
	case TypeInt16:
		a.emitUint8(0x0F)
		a.emitUint8(0xBF)
	case TypeInt32:
		a.emitUint8(0x63)
	default:
		panic("BUG: invalid movsx source width")
	}
	a.emitRegisterOperand(int(dst&7), uint8(src))
}

// MovsxMem sign-extends a memory source into a 64-bit destination.
func (a *Assembler) MovsxMem(srcTy Type, dst GPR, src Address) {
	a.emitRex(TypeInt64, &src, uint8(dst))
	switch srcTy {
	case TypeInt8:
		a.emitUint8(0x0F)
		a.emitUint8(0xBE)
	case TypeInt16:
		a.emitUint8(0x0F)
		a.emitUint8(0xBF)
	case TypeInt32:
		a.emitUint8(0x63)
	default:
		panic("BUG: invalid movsx source width")
	}
	a.emitOperand(int(dst&7), &src, 0)
}

// Lea computes an effective address.
func (a *Assembler) Lea(ty Type, dst GPR, src Address) {
	if ty != TypeInt32 && ty != TypeInt64 {
		panic("BUG: lea requires a 32- or 64-bit destination")
	}
	a.emitRex(ty, &src, uint8(dst))
	a.emitUint8(0x8D)
	a.emitOperand(int(dst&7), &src, 0)
}

// Cmov conditionally moves src into dst.
func (a *Assembler) Cmov(ty Type, cond Cond, dst, src GPR) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRexRB(ty, uint8(dst), uint8(src))
	a.emitUint8(0x0F)
	a.emitUint8(0x40 + byte(cond))
	a.emitRegisterOperand(int(dst&7), uint8(src))
}

// CmovMem conditionally loads [src] into dst.
func (a *Assembler) CmovMem(ty Type, cond Cond, dst GPR, src Address) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRex(ty, &src, uint8(dst))
	a.emitUint8(0x0F)
	a.emitUint8(0x40 + byte(cond))
	a.emitOperand(int(dst&7), &src, 0)
}

// Setcc stores the condition into a byte register.
func (a *Assembler) Setcc(cond Cond, dst GPR) {
	a.emitRexB(TypeInt8, uint8(dst))
	a.emitUint8(0x0F)
	a.emitUint8(0x90 + byte(cond))
	a.emitRegisterOperand(0, uint8(dst))
}

// Imul encodes the two-operand signed multiply.
func (a *Assembler) Imul(ty Type, dst, src GPR) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRexRB(ty, uint8(dst), uint8(src))
	a.emitUint8(0x0F)
	a.emitUint8(0xAF)
	a.emitRegisterOperand(int(dst&7), uint8(src))
}

// ImulMem encodes imul dst, [src].
func (a *Assembler) ImulMem(ty Type, dst GPR, src Address) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRex(ty, &src, uint8(dst))
	a.emitUint8(0x0F)
	a.emitUint8(0xAF)
	a.emitOperand(int(dst&7), &src, 0)
}

// ImulImm encodes imul dst, src, imm.
func (a *Assembler) ImulImm(ty Type, dst, src GPR, imm int64) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRexRB(ty, uint8(dst), uint8(src))
	if isInt8(imm) {
		a.emitUint8(0x6B)
		a.emitRegisterOperand(int(dst&7), uint8(src))
		a.emitUint8(byte(imm))
	} else {
		a.emitUint8(0x69)
		a.emitRegisterOperand(int(dst&7), uint8(src))
		a.emitImmediate(ty, imm)
	}
}

// Mul encodes the one-operand unsigned multiply into rdx:rax.
func (a *Assembler) Mul(ty Type, src GPR) { a.muldiv(ty, 4, src) }

// ImulRDX encodes the one-operand signed multiply into rdx:rax.
func (a *Assembler) ImulRDX(ty Type, src GPR) { a.muldiv(ty, 5, src) }

// Div encodes the unsigned divide of rdx:rax.
func (a *Assembler) Div(ty Type, src GPR) { a.muldiv(ty, 6, src) }

// Idiv encodes the signed divide of rdx:rax.
func (a *Assembler) Idiv(ty Type, src GPR) { a.muldiv(ty, 7, src) }

func (a *Assembler) muldiv(ty Type, digit int, src GPR) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRexB(ty, uint8(src))
	if ty.isByte() {
		a.emitUint8(0xF6)
	} else {
		a.emitUint8(0xF7)
	}
	a.emitRegisterOperand(digit, uint8(src))
}

// Cbw sign-extends al into ax.
func (a *Assembler) Cbw() {
	a.operandSizeOverride()
	a.emitUint8(0x98)
}

// Cwd sign-extends ax into dx:ax.
func (a *Assembler) Cwd() {
	a.operandSizeOverride()
	a.emitUint8(0x99)
}

// Cdq sign-extends eax into edx:eax.
func (a *Assembler) Cdq() {
	a.emitUint8(0x99)
}

// Cqo sign-extends rax into rdx:rax.
func (a *Assembler) Cqo() {
	a.emitUint8(rexBase | rexW)
	a.emitUint8(0x99)
}

// Shift digit assignments for group 2.
const (
	shiftRol = 0
	shiftRor = 1
	shiftShl = 4
	shiftShr = 5
	shiftSar = 7
)

// shiftImm encodes a group-2 shift of reg by an immediate count.
func (a *Assembler) shiftImm(digit int, ty Type, reg GPR, imm int64) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRexB(ty, uint8(reg))
	// The count is masked to 8 bits, not further, so an immediate behaves
	// identically to a count in cl.
	if imm == 1 {
		if ty.isByte() {
			a.emitUint8(0xD0)
		} else {
			a.emitUint8(0xD1)
		}
		a.emitRegisterOperand(digit, uint8(reg))
	} else {
		if ty.isByte() {
			a.emitUint8(0xC0)
		} else {
			a.emitUint8(0xC1)
		}
		a.emitRegisterOperand(digit, uint8(reg))
		a.emitUint8(byte(imm))
	}
}

// shiftCL encodes a group-2 shift of reg by cl.
func (a *Assembler) shiftCL(digit int, ty Type, reg GPR) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRexB(ty, uint8(reg))
	if ty.isByte() {
		a.emitUint8(0xD2)
	} else {
		a.emitUint8(0xD3)
	}
	a.emitRegisterOperand(digit, uint8(reg))
}

// ShlImm encodes shl reg, imm.
func (a *Assembler) ShlImm(ty Type, reg GPR, imm int64) { a.shiftImm(shiftShl, ty, reg, imm) }

// ShlCL encodes shl reg, cl.
func (a *Assembler) ShlCL(ty Type, reg GPR) { a.shiftCL(shiftShl, ty, reg) }

// ShrImm encodes shr reg, imm.
func (a *Assembler) ShrImm(ty Type, reg GPR, imm int64) { a.shiftImm(shiftShr, ty, reg, imm) }

// ShrCL encodes shr reg, cl.
func (a *Assembler) ShrCL(ty Type, reg GPR) { a.shiftCL(shiftShr, ty, reg) }

// SarImm encodes sar reg, imm.
func (a *Assembler) SarImm(ty Type, reg GPR, imm int64) { a.shiftImm(shiftSar, ty, reg, imm) }

// SarCL encodes sar reg, cl.
func (a *Assembler) SarCL(ty Type, reg GPR) { a.shiftCL(shiftSar, ty, reg) }

// RolImm encodes rol reg, imm.
func (a *Assembler) RolImm(ty Type, reg GPR, imm int64) { a.shiftImm(shiftRol, ty, reg, imm) }

// RolCL encodes rol reg, cl.
func (a *Assembler) RolCL(ty Type, reg GPR) { a.shiftCL(shiftRol, ty, reg) }

// RorImm encodes ror reg, imm.
func (a *Assembler) RorImm(ty Type, reg GPR, imm int64) { a.shiftImm(shiftRor, ty, reg, imm) }

// RorCL encodes ror reg, cl.
func (a *Assembler) RorCL(ty Type, reg GPR) { a.shiftCL(shiftRor, ty, reg) }

// Shld shifts dst left by cl, filling from src.
func (a *Assembler) Shld(ty Type, dst, src GPR) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRexRB(ty, uint8(src), uint8(dst))
	a.emitUint8(0x0F)
	a.emitUint8(0xA5)
	a.emitRegisterOperand(int(src&7), uint8(dst))
}

// ShldImm shifts dst left by imm, filling from src.
func (a *Assembler) ShldImm(ty Type, dst, src GPR, imm int64) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRexRB(ty, uint8(src), uint8(dst))
	a.emitUint8(0x0F)
	a.emitUint8(0xA4)
	a.emitRegisterOperand(int(src&7), uint8(dst))
	a.emitUint8(byte(imm))
}

// Shrd shifts dst right by cl, filling from src.
func (a *Assembler) Shrd(ty Type, dst, src GPR) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRexRB(ty, uint8(src), uint8(dst))
	a.emitUint8(0x0F)
	a.emitUint8(0xAD)
	a.emitRegisterOperand(int(src&7), uint8(dst))
}

// ShrdImm shifts dst right by imm, filling from src.
func (a *Assembler) ShrdImm(ty Type, dst, src GPR, imm int64) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRexRB(ty, uint8(src), uint8(dst))
	a.emitUint8(0x0F)
	a.emitUint8(0xAC)
	a.emitRegisterOperand(int(src&7), uint8(dst))
	a.emitUint8(byte(imm))
}

// Bsf finds the lowest set bit.
func (a *Assembler) Bsf(ty Type, dst, src GPR) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRexRB(ty, uint8(dst), uint8(src))
	a.emitUint8(0x0F)
	a.emitUint8(0xBC)
	a.emitRegisterOperand(int(dst&7), uint8(src))
}

// Bsr finds the highest set bit.
func (a *Assembler) Bsr(ty Type, dst, src GPR) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRexRB(ty, uint8(dst), uint8(src))
	a.emitUint8(0x0F)
	a.emitUint8(0xBD)
	a.emitRegisterOperand(int(dst&7), uint8(src))
}

// Bt tests the bit of src indexed by bit.
func (a *Assembler) Bt(ty Type, src, bit GPR) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRexRB(ty, uint8(bit), uint8(src))
	a.emitUint8(0x0F)
	a.emitUint8(0xA3)
	a.emitRegisterOperand(int(bit&7), uint8(src))
}

// Bswap reverses the byte order of a 32- or 64-bit register.
func (a *Assembler) Bswap(ty Type, reg GPR) {
	if ty != TypeInt32 && ty != TypeInt64 {
		panic("BUG: bswap requires a 32- or 64-bit register")
	}
	a.emitRexB(ty, uint8(reg))
	a.emitUint8(0x0F)
	a.emitUint8(0xC8 + byte(reg&7))
}

// Push encodes push reg.
func (a *Assembler) Push(reg GPR) {
	a.rex(false, 0, 0, uint8(reg), false)
	a.emitUint8(0x50 + byte(reg&7))
}

// PushImm encodes push imm32.
func (a *Assembler) PushImm(imm int32) {
	a.emitUint8(0x68)
	a.emitInt32(imm)
}

// Pop encodes pop reg.
func (a *Assembler) Pop(reg GPR) {
	a.rex(false, 0, 0, uint8(reg), false)
	a.emitUint8(0x58 + byte(reg&7))
}

// PopMem encodes pop [mem].
func (a *Assembler) PopMem(dst Address) {
	a.emitRex(TypeInt32, &dst, 0)
	a.emitUint8(0x8F)
	a.emitOperand(0, &dst, 0)
}

// Call encodes an indirect call through a register.
func (a *Assembler) Call(reg GPR) {
	a.rex(false, 0, 0, uint8(reg), false)
	a.emitUint8(0xFF)
	a.emitRegisterOperand(2, uint8(reg))
}

// CallMem encodes an indirect call through memory.
func (a *Assembler) CallMem(addr Address) {
	a.emitRex(TypeInt32, &addr, 0)
	a.emitUint8(0xFF)
	a.emitOperand(2, &addr, 0)
}

// CallSymbol encodes a direct call relocated against symbol.
func (a *Assembler) CallSymbol(symbol string, offset int64) {
	a.emitUint8(0xE8)
	a.createFixup(FixupPCRel, symbol, offset-4)
	a.emitInt32(0)
}

// CallAbsolute encodes a direct call to a fixed target, relocated against
// the load address.
func (a *Assembler) CallAbsolute(target int64) {
	a.emitUint8(0xE8)
	a.createFixup(FixupPCRel, "", target-4)
	a.emitInt32(0)
}

// J encodes a conditional branch to a label. near requests the 8-bit form
// when the label is still unbound.
func (a *Assembler) J(cond Cond, label *Label, near bool) {
	if label.IsBound() {
		const shortSize, longSize = 2, 6
		offset := label.Position() - len(a.buffer)
		if offset > 0 {
			panic("BUG: bound label ahead of emission point")
		}
		if isInt8(int64(offset - shortSize)) {
			a.emitUint8(0x70 + byte(cond))
			a.emitUint8(byte(offset - shortSize))
		} else {
			a.emitUint8(0x0F)
			a.emitUint8(0x80 + byte(cond))
			a.emitInt32(int32(offset - longSize))
		}
	} else if near {
		a.emitUint8(0x70 + byte(cond))
		a.emitNearLabelLink(label)
	} else {
		a.emitUint8(0x0F)
		a.emitUint8(0x80 + byte(cond))
		a.emitLabelLink(label)
	}
}

// Jmp encodes an unconditional branch to a label.
func (a *Assembler) Jmp(label *Label, near bool) {
	if label.IsBound() {
		const shortSize, longSize = 2, 5
		offset := label.Position() - len(a.buffer)
		if offset > 0 {
			panic("BUG: bound label ahead of emission point")
		}
		if isInt8(int64(offset - shortSize)) {
			a.emitUint8(0xEB)
			a.emitUint8(byte(offset - shortSize))
		} else {
			a.emitUint8(0xE9)
			a.emitInt32(int32(offset - longSize))
		}
	} else if near {
		a.emitUint8(0xEB)
		a.emitNearLabelLink(label)
	} else {
		a.emitUint8(0xE9)
		a.emitLabelLink(label)
	}
}

// JmpReg encodes a register-indirect branch.
func (a *Assembler) JmpReg(reg GPR) {
	a.rex(false, 0, 0, uint8(reg), false)
	a.emitUint8(0xFF)
	a.emitRegisterOperand(4, uint8(reg))
}

// JmpSymbol encodes a direct branch relocated against symbol.
func (a *Assembler) JmpSymbol(symbol string, offset int64) {
	a.emitUint8(0xE9)
	a.createFixup(FixupPCRel, symbol, offset-4)
	a.emitInt32(0)
}

// Cmpxchg compares [addr] with rax and exchanges with reg on match.
func (a *Assembler) Cmpxchg(ty Type, addr Address, reg GPR, locked bool) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	if locked {
		a.emitUint8(0xF0)
	}
	a.emitRex(ty, &addr, uint8(reg))
	a.emitUint8(0x0F)
	if ty.isByte() {
		a.emitUint8(0xB0)
	} else {
		a.emitUint8(0xB1)
	}
	a.emitOperand(int(reg&7), &addr, 0)
}

// Cmpxchg8b compares [addr] with edx:eax and exchanges with ecx:ebx on
// match.
func (a *Assembler) Cmpxchg8b(addr Address, locked bool) {
	if locked {
		a.emitUint8(0xF0)
	}
	a.emitRex(TypeInt32, &addr, 0)
	a.emitUint8(0x0F)
	a.emitUint8(0xC7)
	a.emitOperand(1, &addr, 0)
}

// Xadd exchanges and adds reg into [addr].
func (a *Assembler) Xadd(ty Type, addr Address, reg GPR, locked bool) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	if locked {
		a.emitUint8(0xF0)
	}
	a.emitRex(ty, &addr, uint8(reg))
	a.emitUint8(0x0F)
	if ty.isByte() {
		a.emitUint8(0xC0)
	} else {
		a.emitUint8(0xC1)
	}
	a.emitOperand(int(reg&7), &addr, 0)
}

// Xchg exchanges two registers, using the short form when rax is involved.
func (a *Assembler) Xchg(ty Type, reg0, reg1 GPR) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	if reg0 == RAX {
		a.emitRexB(ty, uint8(reg1))
		a.emitUint8(0x90 + byte(reg1&7))
		return
	}
	if reg1 == RAX {
		a.emitRexB(ty, uint8(reg0))
		a.emitUint8(0x90 + byte(reg0&7))
		return
	}
	a.emitRexRB(ty, uint8(reg0), uint8(reg1))
	if ty.isByte() {
		a.emitUint8(0x86)
	} else {
		a.emitUint8(0x87)
	}
	a.emitRegisterOperand(int(reg0&7), uint8(reg1))
}

// XchgMem exchanges reg with [addr]; the bus lock is implicit.
func (a *Assembler) XchgMem(ty Type, addr Address, reg GPR) {
	if ty == TypeInt16 {
		a.operandSizeOverride()
	}
	a.emitRex(ty, &addr, uint8(reg))
	if ty.isByte() {
		a.emitUint8(0x86)
	} else {
		a.emitUint8(0x87)
	}
	a.emitOperand(int(reg&7), &addr, 0)
}
