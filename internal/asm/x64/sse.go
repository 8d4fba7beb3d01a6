package x64

// RoundMode selects the SSE4.1 rounding behavior.
type RoundMode uint8

const (
	RoundNearest  RoundMode = 0
	RoundDown     RoundMode = 1
	RoundUp       RoundMode = 2
	RoundTruncate RoundMode = 3
)

// sseRR emits prefix 0F opcode modrm for a register pair.
func (a *Assembler) sseRR(prefix byte, opcode byte, dst, src uint8) {
	if prefix != 0 {
		a.emitUint8(prefix)
	}
	a.rex(false, dst, 0, src, false)
	a.emitUint8(0x0F)
	a.emitUint8(opcode)
	a.emitRegisterOperand(int(dst&7), src)
}

// sseRM emits prefix 0F opcode with a memory operand.
func (a *Assembler) sseRM(prefix byte, opcode byte, reg uint8, addr *Address) {
	if prefix != 0 {
		a.emitUint8(prefix)
	}
	a.rex(false, reg, addr.rexX, addr.rexB, false)
	a.emitUint8(0x0F)
	a.emitUint8(opcode)
	a.emitOperand(int(reg&7), addr, 0)
}

// sse38RR emits 66 0F 38 opcode for a register pair.
func (a *Assembler) sse38RR(opcode byte, dst, src uint8) {
	a.emitUint8(0x66)
	a.rex(false, dst, 0, src, false)
	a.emitUint8(0x0F)
	a.emitUint8(0x38)
	a.emitUint8(opcode)
	a.emitRegisterOperand(int(dst&7), src)
}

// sse3ARRImm emits 66 0F 3A opcode imm8 for a register pair.
func (a *Assembler) sse3ARRImm(opcode byte, dst, src uint8, imm uint8) {
	a.emitUint8(0x66)
	a.rex(false, dst, 0, src, false)
	a.emitUint8(0x0F)
	a.emitUint8(0x3A)
	a.emitUint8(opcode)
	a.emitRegisterOperand(int(dst&7), src)
	a.emitUint8(imm)
}

// Movss moves a scalar single between vector registers.
func (a *Assembler) Movss(dst, src XMM) { a.sseRR(0xF3, 0x11, uint8(src), uint8(dst)) }

// MovssLoad loads a scalar single from memory.
func (a *Assembler) MovssLoad(dst XMM, src Address) { a.sseRM(0xF3, 0x10, uint8(dst), &src) }

// MovssStore stores a scalar single to memory.
func (a *Assembler) MovssStore(dst Address, src XMM) { a.sseRM(0xF3, 0x11, uint8(src), &dst) }

// Movsd moves a scalar double between vector registers.
func (a *Assembler) Movsd(dst, src XMM) { a.sseRR(0xF2, 0x11, uint8(src), uint8(dst)) }

// MovsdLoad loads a scalar double from memory.
func (a *Assembler) MovsdLoad(dst XMM, src Address) { a.sseRM(0xF2, 0x10, uint8(dst), &src) }

// MovsdStore stores a scalar double to memory.
func (a *Assembler) MovsdStore(dst Address, src XMM) { a.sseRM(0xF2, 0x11, uint8(src), &dst) }

// Movaps moves an aligned packed-single vector.
func (a *Assembler) Movaps(dst, src XMM) { a.sseRR(0, 0x28, uint8(dst), uint8(src)) }

// MovapsLoad loads an aligned vector.
func (a *Assembler) MovapsLoad(dst XMM, src Address) { a.sseRM(0, 0x28, uint8(dst), &src) }

// MovapsStore stores an aligned vector.
func (a *Assembler) MovapsStore(dst Address, src XMM) { a.sseRM(0, 0x29, uint8(src), &dst) }

// Movups moves an unaligned packed-single vector.
func (a *Assembler) Movups(dst, src XMM) { a.sseRR(0, 0x10, uint8(dst), uint8(src)) }

// MovupsLoad loads an unaligned vector.
func (a *Assembler) MovupsLoad(dst XMM, src Address) { a.sseRM(0, 0x10, uint8(dst), &src) }

// MovupsStore stores an unaligned vector.
func (a *Assembler) MovupsStore(dst Address, src XMM) { a.sseRM(0, 0x11, uint8(src), &dst) }

// Movd moves a 32- or 64-bit GPR into a vector register.
func (a *Assembler) Movd(ty Type, dst XMM, src GPR) {
	a.emitUint8(0x66)
	a.rex(ty.is64(), uint8(dst), 0, uint8(src), false)
	a.emitUint8(0x0F)
	a.emitUint8(0x6E)
	a.emitRegisterOperand(int(dst&7), uint8(src))
}

// MovdLoad loads 32 or 64 bits from memory into a vector register.
func (a *Assembler) MovdLoad(ty Type, dst XMM, src Address) {
	a.emitUint8(0x66)
	a.rex(ty.is64(), uint8(dst), src.rexX, src.rexB, false)
	a.emitUint8(0x0F)
	a.emitUint8(0x6E)
	a.emitOperand(int(dst&7), &src, 0)
}

// MovdToGPR moves the low lanes of a vector register into a GPR.
func (a *Assembler) MovdToGPR(ty Type, dst GPR, src XMM) {
	a.emitUint8(0x66)
	a.rex(ty.is64(), uint8(src), 0, uint8(dst), false)
	a.emitUint8(0x0F)
	a.emitUint8(0x7E)
	a.emitRegisterOperand(int(src&7), uint8(dst))
}

// MovdStore stores the low lanes of a vector register to memory.
func (a *Assembler) MovdStore(ty Type, dst Address, src XMM) {
	a.emitUint8(0x66)
	a.rex(ty.is64(), uint8(src), dst.rexX, dst.rexB, false)
	a.emitUint8(0x0F)
	a.emitUint8(0x7E)
	a.emitOperand(int(src&7), &dst, 0)
}

// Movq moves the low quadword between vector registers, zeroing the rest.
func (a *Assembler) Movq(dst, src XMM) { a.sseRR(0xF3, 0x7E, uint8(dst), uint8(src)) }

// MovqLoad loads the low quadword from memory.
func (a *Assembler) MovqLoad(dst XMM, src Address) { a.sseRM(0xF3, 0x7E, uint8(dst), &src) }

// MovqStore stores the low quadword to memory.
func (a *Assembler) MovqStore(dst Address, src XMM) { a.sseRM(0x66, 0xD6, uint8(src), &dst) }

// Movhlps moves the high pair of src into the low pair of dst.
func (a *Assembler) Movhlps(dst, src XMM) { a.sseRR(0, 0x12, uint8(dst), uint8(src)) }

// Movlhps moves the low pair of src into the high pair of dst.
func (a *Assembler) Movlhps(dst, src XMM) { a.sseRR(0, 0x16, uint8(dst), uint8(src)) }

// Scalar single-precision arithmetic.

// Addss encodes addss dst, src.
func (a *Assembler) Addss(dst, src XMM) { a.sseRR(0xF3, 0x58, uint8(dst), uint8(src)) }

// Subss encodes subss dst, src.
func (a *Assembler) Subss(dst, src XMM) { a.sseRR(0xF3, 0x5C, uint8(dst), uint8(src)) }

// Mulss encodes mulss dst, src.
func (a *Assembler) Mulss(dst, src XMM) { a.sseRR(0xF3, 0x59, uint8(dst), uint8(src)) }

// Divss encodes divss dst, src.
func (a *Assembler) Divss(dst, src XMM) { a.sseRR(0xF3, 0x5E, uint8(dst), uint8(src)) }

// Minss encodes minss dst, src.
func (a *Assembler) Minss(dst, src XMM) { a.sseRR(0xF3, 0x5D, uint8(dst), uint8(src)) }

// Maxss encodes maxss dst, src.
func (a *Assembler) Maxss(dst, src XMM) { a.sseRR(0xF3, 0x5F, uint8(dst), uint8(src)) }

// Sqrtss encodes sqrtss dst, src.
func (a *Assembler) Sqrtss(dst, src XMM) { a.sseRR(0xF3, 0x51, uint8(dst), uint8(src)) }

// Ucomiss compares scalar singles and sets eflags.
func (a *Assembler) Ucomiss(left, right XMM) { a.sseRR(0, 0x2E, uint8(left), uint8(right)) }

// Packed single-precision arithmetic.

// Addps encodes addps dst, src.
func (a *Assembler) Addps(dst, src XMM) { a.sseRR(0, 0x58, uint8(dst), uint8(src)) }

// AddpsMem encodes addps dst, [src].
func (a *Assembler) AddpsMem(dst XMM, src Address) { a.sseRM(0, 0x58, uint8(dst), &src) }

// Subps encodes subps dst, src.
func (a *Assembler) Subps(dst, src XMM) { a.sseRR(0, 0x5C, uint8(dst), uint8(src)) }

// Mulps encodes mulps dst, src.
func (a *Assembler) Mulps(dst, src XMM) { a.sseRR(0, 0x59, uint8(dst), uint8(src)) }

// MulpsMem encodes mulps dst, [src].
func (a *Assembler) MulpsMem(dst XMM, src Address) { a.sseRM(0, 0x59, uint8(dst), &src) }

// Divps encodes divps dst, src.
func (a *Assembler) Divps(dst, src XMM) { a.sseRR(0, 0x5E, uint8(dst), uint8(src)) }

// Minps encodes minps dst, src.
func (a *Assembler) Minps(dst, src XMM) { a.sseRR(0, 0x5D, uint8(dst), uint8(src)) }

// Maxps encodes maxps dst, src.
func (a *Assembler) Maxps(dst, src XMM) { a.sseRR(0, 0x5F, uint8(dst), uint8(src)) }

// Sqrtps encodes sqrtps dst, src.
func (a *Assembler) Sqrtps(dst, src XMM) { a.sseRR(0, 0x51, uint8(dst), uint8(src)) }

// Rcpps encodes the packed reciprocal estimate.
func (a *Assembler) Rcpps(dst, src XMM) { a.sseRR(0, 0x53, uint8(dst), uint8(src)) }

// Rsqrtps encodes the packed reciprocal square-root estimate.
func (a *Assembler) Rsqrtps(dst, src XMM) { a.sseRR(0, 0x52, uint8(dst), uint8(src)) }

// Andps encodes andps dst, src.
func (a *Assembler) Andps(dst, src XMM) { a.sseRR(0, 0x54, uint8(dst), uint8(src)) }

// Andnps encodes andnps dst, src.
func (a *Assembler) Andnps(dst, src XMM) { a.sseRR(0, 0x55, uint8(dst), uint8(src)) }

// Orps encodes orps dst, src.
func (a *Assembler) Orps(dst, src XMM) { a.sseRR(0, 0x56, uint8(dst), uint8(src)) }

// Xorps encodes xorps dst, src.
func (a *Assembler) Xorps(dst, src XMM) { a.sseRR(0, 0x57, uint8(dst), uint8(src)) }

// Cmpps compares packed singles with the given predicate immediate.
func (a *Assembler) Cmpps(dst, src XMM, predicate uint8) {
	a.rex(false, uint8(dst), 0, uint8(src), false)
	a.emitUint8(0x0F)
	a.emitUint8(0xC2)
	a.emitRegisterOperand(int(dst&7), uint8(src))
	a.emitUint8(predicate)
}

// Shufps shuffles packed singles by the selector immediate.
func (a *Assembler) Shufps(dst, src XMM, selector uint8) {
	a.rex(false, uint8(dst), 0, uint8(src), false)
	a.emitUint8(0x0F)
	a.emitUint8(0xC6)
	a.emitRegisterOperand(int(dst&7), uint8(src))
	a.emitUint8(selector)
}

// Unpcklps interleaves the low packed singles.
func (a *Assembler) Unpcklps(dst, src XMM) { a.sseRR(0, 0x14, uint8(dst), uint8(src)) }

// Unpckhps interleaves the high packed singles.
func (a *Assembler) Unpckhps(dst, src XMM) { a.sseRR(0, 0x15, uint8(dst), uint8(src)) }

// Movmskps extracts the packed-single sign bits into a GPR.
func (a *Assembler) Movmskps(dst GPR, src XMM) { a.sseRR(0, 0x50, uint8(dst), uint8(src)) }

// Pmovmskb extracts the packed-byte sign bits into a GPR.
func (a *Assembler) Pmovmskb(dst GPR, src XMM) { a.sseRR(0x66, 0xD7, uint8(dst), uint8(src)) }

// Conversions.

// Cvtsi2ss converts a signed integer GPR to a scalar single.
func (a *Assembler) Cvtsi2ss(srcTy Type, dst XMM, src GPR) {
	a.emitUint8(0xF3)
	a.rex(srcTy.is64(), uint8(dst), 0, uint8(src), false)
	a.emitUint8(0x0F)
	a.emitUint8(0x2A)
	a.emitRegisterOperand(int(dst&7), uint8(src))
}

// Cvttss2si converts a scalar single to a signed integer, truncating.
func (a *Assembler) Cvttss2si(dstTy Type, dst GPR, src XMM) {
	a.emitUint8(0xF3)
	a.rex(dstTy.is64(), uint8(dst), 0, uint8(src), false)
	a.emitUint8(0x0F)
	a.emitUint8(0x2C)
	a.emitRegisterOperand(int(dst&7), uint8(src))
}

// Cvtss2si converts a scalar single to a signed integer, rounding.
func (a *Assembler) Cvtss2si(dstTy Type, dst GPR, src XMM) {
	a.emitUint8(0xF3)
	a.rex(dstTy.is64(), uint8(dst), 0, uint8(src), false)
	a.emitUint8(0x0F)
	a.emitUint8(0x2D)
	a.emitRegisterOperand(int(dst&7), uint8(src))
}

// Cvtdq2ps converts packed signed integers to packed singles.
func (a *Assembler) Cvtdq2ps(dst, src XMM) { a.sseRR(0, 0x5B, uint8(dst), uint8(src)) }

// Cvttps2dq converts packed singles to packed integers, truncating.
func (a *Assembler) Cvttps2dq(dst, src XMM) { a.sseRR(0xF3, 0x5B, uint8(dst), uint8(src)) }

// Cvtps2dq converts packed singles to packed integers, rounding.
func (a *Assembler) Cvtps2dq(dst, src XMM) { a.sseRR(0x66, 0x5B, uint8(dst), uint8(src)) }

// Cvtss2sd widens a scalar single to a double.
func (a *Assembler) Cvtss2sd(dst, src XMM) { a.sseRR(0xF3, 0x5A, uint8(dst), uint8(src)) }

// Cvtsd2ss narrows a scalar double to a single.
func (a *Assembler) Cvtsd2ss(dst, src XMM) { a.sseRR(0xF2, 0x5A, uint8(dst), uint8(src)) }

// Packed integer arithmetic (66-prefixed SSE2 forms).

// Paddb encodes paddb dst, src.
func (a *Assembler) Paddb(dst, src XMM) { a.sseRR(0x66, 0xFC, uint8(dst), uint8(src)) }

// Paddw encodes paddw dst, src.
func (a *Assembler) Paddw(dst, src XMM) { a.sseRR(0x66, 0xFD, uint8(dst), uint8(src)) }

// Paddd encodes paddd dst, src.
func (a *Assembler) Paddd(dst, src XMM) { a.sseRR(0x66, 0xFE, uint8(dst), uint8(src)) }

// Paddq encodes paddq dst, src.
func (a *Assembler) Paddq(dst, src XMM) { a.sseRR(0x66, 0xD4, uint8(dst), uint8(src)) }

// Psubb encodes psubb dst, src.
func (a *Assembler) Psubb(dst, src XMM) { a.sseRR(0x66, 0xF8, uint8(dst), uint8(src)) }

// Psubw encodes psubw dst, src.
func (a *Assembler) Psubw(dst, src XMM) { a.sseRR(0x66, 0xF9, uint8(dst), uint8(src)) }

// Psubd encodes psubd dst, src.
func (a *Assembler) Psubd(dst, src XMM) { a.sseRR(0x66, 0xFA, uint8(dst), uint8(src)) }

// Psubq encodes psubq dst, src.
func (a *Assembler) Psubq(dst, src XMM) { a.sseRR(0x66, 0xFB, uint8(dst), uint8(src)) }

// Pmullw multiplies packed words, keeping the low halves.
func (a *Assembler) Pmullw(dst, src XMM) { a.sseRR(0x66, 0xD5, uint8(dst), uint8(src)) }

// Pmulld multiplies packed dwords, keeping the low halves (SSE4.1).
func (a *Assembler) Pmulld(dst, src XMM) { a.sse38RR(0x40, uint8(dst), uint8(src)) }

// Pmulhw multiplies packed signed words, keeping the high halves.
func (a *Assembler) Pmulhw(dst, src XMM) { a.sseRR(0x66, 0xE5, uint8(dst), uint8(src)) }

// Pmulhuw multiplies packed unsigned words, keeping the high halves.
func (a *Assembler) Pmulhuw(dst, src XMM) { a.sseRR(0x66, 0xE4, uint8(dst), uint8(src)) }

// Pmuludq multiplies the even unsigned dwords into quadwords.
func (a *Assembler) Pmuludq(dst, src XMM) { a.sseRR(0x66, 0xF4, uint8(dst), uint8(src)) }

// Pmaddwd multiplies packed words and adds adjacent pairs.
func (a *Assembler) Pmaddwd(dst, src XMM) { a.sseRR(0x66, 0xF5, uint8(dst), uint8(src)) }

// Pand encodes pand dst, src.
func (a *Assembler) Pand(dst, src XMM) { a.sseRR(0x66, 0xDB, uint8(dst), uint8(src)) }

// Pandn encodes pandn dst, src.
func (a *Assembler) Pandn(dst, src XMM) { a.sseRR(0x66, 0xDF, uint8(dst), uint8(src)) }

// Por encodes por dst, src.
func (a *Assembler) Por(dst, src XMM) { a.sseRR(0x66, 0xEB, uint8(dst), uint8(src)) }

// Pxor encodes pxor dst, src.
func (a *Assembler) Pxor(dst, src XMM) { a.sseRR(0x66, 0xEF, uint8(dst), uint8(src)) }

// Pcmpeqb compares packed bytes for equality.
func (a *Assembler) Pcmpeqb(dst, src XMM) { a.sseRR(0x66, 0x74, uint8(dst), uint8(src)) }

// Pcmpeqw compares packed words for equality.
func (a *Assembler) Pcmpeqw(dst, src XMM) { a.sseRR(0x66, 0x75, uint8(dst), uint8(src)) }

// Pcmpeqd compares packed dwords for equality.
func (a *Assembler) Pcmpeqd(dst, src XMM) { a.sseRR(0x66, 0x76, uint8(dst), uint8(src)) }

// Pcmpgtb compares packed signed bytes.
func (a *Assembler) Pcmpgtb(dst, src XMM) { a.sseRR(0x66, 0x64, uint8(dst), uint8(src)) }

// Pcmpgtw compares packed signed words.
func (a *Assembler) Pcmpgtw(dst, src XMM) { a.sseRR(0x66, 0x65, uint8(dst), uint8(src)) }

// Pcmpgtd compares packed signed dwords.
func (a *Assembler) Pcmpgtd(dst, src XMM) { a.sseRR(0x66, 0x66, uint8(dst), uint8(src)) }

// Packed shifts: register forms and the group-14/13/12 immediate forms.

// Psllw shifts packed words left by the count register.
func (a *Assembler) Psllw(dst, count XMM) { a.sseRR(0x66, 0xF1, uint8(dst), uint8(count)) }

// PsllwImm shifts packed words left by an immediate count.
func (a *Assembler) PsllwImm(dst XMM, imm uint8) { a.psImm(0x71, 6, dst, imm) }

// Pslld shifts packed dwords left by the count register.
func (a *Assembler) Pslld(dst, count XMM) { a.sseRR(0x66, 0xF2, uint8(dst), uint8(count)) }

// PslldImm shifts packed dwords left by an immediate count.
func (a *Assembler) PslldImm(dst XMM, imm uint8) { a.psImm(0x72, 6, dst, imm) }

// Psllq shifts packed quadwords left by the count register.
func (a *Assembler) Psllq(dst, count XMM) { a.sseRR(0x66, 0xF3, uint8(dst), uint8(count)) }

// PsllqImm shifts packed quadwords left by an immediate count.
func (a *Assembler) PsllqImm(dst XMM, imm uint8) { a.psImm(0x73, 6, dst, imm) }

// Psrlw shifts packed words right (logical) by the count register.
func (a *Assembler) Psrlw(dst, count XMM) { a.sseRR(0x66, 0xD1, uint8(dst), uint8(count)) }

// PsrlwImm shifts packed words right (logical) by an immediate count.
func (a *Assembler) PsrlwImm(dst XMM, imm uint8) { a.psImm(0x71, 2, dst, imm) }

// Psrld shifts packed dwords right (logical) by the count register.
func (a *Assembler) Psrld(dst, count XMM) { a.sseRR(0x66, 0xD2, uint8(dst), uint8(count)) }

// PsrldImm shifts packed dwords right (logical) by an immediate count.
func (a *Assembler) PsrldImm(dst XMM, imm uint8) { a.psImm(0x72, 2, dst, imm) }

// Psrlq shifts packed quadwords right (logical) by the count register.
func (a *Assembler) Psrlq(dst, count XMM) { a.sseRR(0x66, 0xD3, uint8(dst), uint8(count)) }

// PsrlqImm shifts packed quadwords right (logical) by an immediate count.
func (a *Assembler) PsrlqImm(dst XMM, imm uint8) { a.psImm(0x73, 2, dst, imm) }

// Psraw shifts packed words right (arithmetic) by the count register.
func (a *Assembler) Psraw(dst, count XMM) { a.sseRR(0x66, 0xE1, uint8(dst), uint8(count)) }

// PsrawImm shifts packed words right (arithmetic) by an immediate count.
func (a *Assembler) PsrawImm(dst XMM, imm uint8) { a.psImm(0x71, 4, dst, imm) }

// Psrad shifts packed dwords right (arithmetic) by the count register.
func (a *Assembler) Psrad(dst, count XMM) { a.sseRR(0x66, 0xE2, uint8(dst), uint8(count)) }

// PsradImm shifts packed dwords right (arithmetic) by an immediate count.
func (a *Assembler) PsradImm(dst XMM, imm uint8) { a.psImm(0x72, 4, dst, imm) }

func (a *Assembler) psImm(opcode byte, digit int, dst XMM, imm uint8) {
	a.emitUint8(0x66)
	a.rex(false, 0, 0, uint8(dst), false)
	a.emitUint8(0x0F)
	a.emitUint8(opcode)
	a.emitRegisterOperand(digit, uint8(dst))
	a.emitUint8(imm)
}

// Pack and unpack.

// Punpcklbw interleaves the low bytes.
func (a *Assembler) Punpcklbw(dst, src XMM) { a.sseRR(0x66, 0x60, uint8(dst), uint8(src)) }

// Punpcklwd interleaves the low words.
func (a *Assembler) Punpcklwd(dst, src XMM) { a.sseRR(0x66, 0x61, uint8(dst), uint8(src)) }

// Punpckldq interleaves the low dwords.
func (a *Assembler) Punpckldq(dst, src XMM) { a.sseRR(0x66, 0x62, uint8(dst), uint8(src)) }

// Punpckhbw interleaves the high bytes.
func (a *Assembler) Punpckhbw(dst, src XMM) { a.sseRR(0x66, 0x68, uint8(dst), uint8(src)) }

// Punpckhwd interleaves the high words.
func (a *Assembler) Punpckhwd(dst, src XMM) { a.sseRR(0x66, 0x69, uint8(dst), uint8(src)) }

// Punpckhdq interleaves the high dwords.
func (a *Assembler) Punpckhdq(dst, src XMM) { a.sseRR(0x66, 0x6A, uint8(dst), uint8(src)) }

// Packsswb narrows packed words to signed-saturated bytes.
func (a *Assembler) Packsswb(dst, src XMM) { a.sseRR(0x66, 0x63, uint8(dst), uint8(src)) }

// Packssdw narrows packed dwords to signed-saturated words.
func (a *Assembler) Packssdw(dst, src XMM) { a.sseRR(0x66, 0x6B, uint8(dst), uint8(src)) }

// Packuswb narrows packed words to unsigned-saturated bytes.
func (a *Assembler) Packuswb(dst, src XMM) { a.sseRR(0x66, 0x67, uint8(dst), uint8(src)) }

// Packusdw narrows packed dwords to unsigned-saturated words (SSE4.1).
func (a *Assembler) Packusdw(dst, src XMM) { a.sse38RR(0x2B, uint8(dst), uint8(src)) }

// Pshufb shuffles bytes by the selector vector (SSSE3).
func (a *Assembler) Pshufb(dst, src XMM) { a.sse38RR(0x00, uint8(dst), uint8(src)) }

// Pshufd shuffles dwords by the selector immediate.
func (a *Assembler) Pshufd(dst, src XMM, selector uint8) {
	a.emitUint8(0x66)
	a.rex(false, uint8(dst), 0, uint8(src), false)
	a.emitUint8(0x0F)
	a.emitUint8(0x70)
	a.emitRegisterOperand(int(dst&7), uint8(src))
	a.emitUint8(selector)
}

// SSE4.1 blends, inserts and extracts.

// Pblendvb blends bytes under the xmm0 mask.
func (a *Assembler) Pblendvb(dst, src XMM) { a.sse38RR(0x10, uint8(dst), uint8(src)) }

// Blendvps blends packed singles under the xmm0 mask.
func (a *Assembler) Blendvps(dst, src XMM) { a.sse38RR(0x14, uint8(dst), uint8(src)) }

// Pinsrb inserts a byte from a GPR at the given lane.
func (a *Assembler) Pinsrb(dst XMM, src GPR, lane uint8) {
	a.sse3ARRImm(0x20, uint8(dst), uint8(src), lane)
}

// Pinsrw inserts a word from a GPR at the given lane.
func (a *Assembler) Pinsrw(dst XMM, src GPR, lane uint8) {
	a.emitUint8(0x66)
	a.rex(false, uint8(dst), 0, uint8(src), false)
	a.emitUint8(0x0F)
	a.emitUint8(0xC4)
	a.emitRegisterOperand(int(dst&7), uint8(src))
	a.emitUint8(lane)
}

// Pinsrd inserts a dword (or qword for TypeInt64) from a GPR.
func (a *Assembler) Pinsrd(ty Type, dst XMM, src GPR, lane uint8) {
	a.emitUint8(0x66)
	a.rex(ty.is64(), uint8(dst), 0, uint8(src), false)
	a.emitUint8(0x0F)
	a.emitUint8(0x3A)
	a.emitUint8(0x22)
	a.emitRegisterOperand(int(dst&7), uint8(src))
	a.emitUint8(lane)
}

// Pextrb extracts a byte lane into a GPR.
func (a *Assembler) Pextrb(dst GPR, src XMM, lane uint8) {
	a.sse3ARRImm(0x14, uint8(src), uint8(dst), lane)
}

// Pextrw extracts a word lane into a GPR.
func (a *Assembler) Pextrw(dst GPR, src XMM, lane uint8) {
	a.emitUint8(0x66)
	a.rex(false, uint8(dst), 0, uint8(src), false)
	a.emitUint8(0x0F)
	a.emitUint8(0xC5)
	a.emitRegisterOperand(int(dst&7), uint8(src))
	a.emitUint8(lane)
}

// Pextrd extracts a dword (or qword for TypeInt64) lane into a GPR.
func (a *Assembler) Pextrd(ty Type, dst GPR, src XMM, lane uint8) {
	a.emitUint8(0x66)
	a.rex(ty.is64(), uint8(src), 0, uint8(dst), false)
	a.emitUint8(0x0F)
	a.emitUint8(0x3A)
	a.emitUint8(0x16)
	a.emitRegisterOperand(int(src&7), uint8(dst))
	a.emitUint8(lane)
}

// Insertps inserts a single-precision lane by the selector immediate.
func (a *Assembler) Insertps(dst, src XMM, selector uint8) {
	a.sse3ARRImm(0x21, uint8(dst), uint8(src), selector)
}

// Roundps rounds packed singles by the given mode.
func (a *Assembler) Roundps(dst, src XMM, mode RoundMode) {
	a.sse3ARRImm(0x08, uint8(dst), uint8(src), uint8(mode))
}

// Roundss rounds a scalar single by the given mode.
func (a *Assembler) Roundss(dst, src XMM, mode RoundMode) {
	a.sse3ARRImm(0x0A, uint8(dst), uint8(src), uint8(mode))
}
