package x64

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/arch/x86/x86asm"
)

func decodeAll(t *testing.T, code []byte) []x86asm.Inst {
	t.Helper()
	var insts []x86asm.Inst
	for len(code) > 0 {
		inst, err := x86asm.Decode(code, 64)
		require.NoError(t, err, "undecodable bytes: % x", code)
		insts = append(insts, inst)
		code = code[inst.Len:]
	}
	return insts
}

func TestLockCmpxchg(t *testing.T) {
	a := NewAssembler()
	a.Cmpxchg(TypeInt32, BaseAddress(RDI, 0), RCX, true)

	require.Equal(t, []byte{0xF0, 0x0F, 0xB1, 0x0F}, a.Bytes())

	inst, err := x86asm.Decode(a.Bytes(), 64)
	require.NoError(t, err)
	require.Equal(t, x86asm.CMPXCHG, inst.Op)
	require.Equal(t, x86asm.PrefixLOCK, inst.Prefix[0]&x86asm.PrefixLOCK)
}

func TestCmpxchg8b(t *testing.T) {
	a := NewAssembler()
	a.Cmpxchg8b(BaseAddress(RSI, 0), true)

	require.Equal(t, []byte{0xF0, 0x0F, 0xC7, 0x0E}, a.Bytes())
}

func TestMovEncodings(t *testing.T) {
	a := NewAssembler()
	a.Mov(TypeInt64, RAX, RBX)
	require.Equal(t, []byte{0x48, 0x89, 0xD8}, a.Bytes())

	a = NewAssembler()
	a.Mov(TypeInt32, RCX, RDX)
	require.Equal(t, []byte{0x89, 0xD1}, a.Bytes())

	a = NewAssembler()
	a.Mov(TypeInt64, R8, R15)
	require.Equal(t, []byte{0x4D, 0x89, 0xF8}, a.Bytes())

	a = NewAssembler()
	a.Movabs(RAX, 0x1122334455667788)
	require.Equal(t, []byte{0x48, 0xB8, 0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11}, a.Bytes())
}

func TestExtendedRegistersForceRex(t *testing.T) {
	a := NewAssembler()
	a.Add(TypeInt32, R8, RAX)
	require.Equal(t, []byte{0x44, 0x03, 0xC0}, a.Bytes())

	a = NewAssembler()
	a.Add(TypeInt32, RAX, R8)
	require.Equal(t, []byte{0x41, 0x03, 0xC0}, a.Bytes())
}

func TestByteRegistersNeedRex(t *testing.T) {
	// mov dil, al requires a REX prefix to reach dil.
	a := NewAssembler()
	a.Mov(TypeInt8, RDI, RAX)
	require.Equal(t, []byte{0x40, 0x88, 0xC7}, a.Bytes())

	// mov bl, al does not.
	a = NewAssembler()
	a.Mov(TypeInt8, RBX, RAX)
	require.Equal(t, []byte{0x88, 0xC3}, a.Bytes())

	// movzx rax, sil.
	a = NewAssembler()
	a.Movzx(TypeInt8, RAX, RSI)
	require.Equal(t, []byte{0x40, 0x0F, 0xB6, 0xC6}, a.Bytes())
}

func TestMovzxMovsx(t *testing.T) {
	a := NewAssembler()
	a.Movzx(TypeInt8, RAX, RBX)
	require.Equal(t, []byte{0x0F, 0xB6, 0xC3}, a.Bytes())

	a = NewAssembler()
	a.Movzx(TypeInt16, RCX, RDX)
	require.Equal(t, []byte{0x0F, 0xB7, 0xCA}, a.Bytes())

	a = NewAssembler()
	a.Movsx(TypeInt32, RAX, RBX) // movsxd
	require.Equal(t, []byte{0x48, 0x63, 0xC3}, a.Bytes())

	a = NewAssembler()
	a.Movsx(TypeInt8, RAX, RBX)
	require.Equal(t, []byte{0x48, 0x0F, 0xBE, 0xC3}, a.Bytes())
}

func TestAddressingModes(t *testing.T) {
	// [rbp] needs an explicit zero displacement.
	a := NewAssembler()
	a.MovMem(TypeInt32, RAX, BaseAddress(RBP, 0))
	require.Equal(t, []byte{0x8B, 0x45, 0x00}, a.Bytes())

	// [rsp] needs an SIB byte.
	a = NewAssembler()
	a.MovMem(TypeInt32, RAX, BaseAddress(RSP, 0))
	require.Equal(t, []byte{0x8B, 0x04, 0x24}, a.Bytes())

	// [rbx + rcx*4 + 8]
	a = NewAssembler()
	a.MovMem(TypeInt32, RAX, BaseIndexAddress(RBX, RCX, Times4, 8))
	require.Equal(t, []byte{0x8B, 0x44, 0x8B, 0x08}, a.Bytes())

	// [rcx*8 + disp32] with no base.
	a = NewAssembler()
	a.MovMem(TypeInt32, RAX, IndexAddress(RCX, Times8, 0x100))
	require.Equal(t, []byte{0x8B, 0x04, 0xCD, 0x00, 0x01, 0x00, 0x00}, a.Bytes())

	// Absolute [disp32].
	a = NewAssembler()
	a.MovMem(TypeInt32, RAX, AbsoluteAddress(0x1000))
	require.Equal(t, []byte{0x8B, 0x04, 0x25, 0x00, 0x10, 0x00, 0x00}, a.Bytes())

	// Extended base and index registers set REX.X and REX.B.
	a = NewAssembler()
	a.MovMem(TypeInt64, RAX, BaseIndexAddress(R12, R9, Times1, 0))
	require.Equal(t, []byte{0x4B, 0x8B, 0x04, 0x0C}, a.Bytes())
}

func TestArithmeticImmediates(t *testing.T) {
	// Short form for small immediates.
	a := NewAssembler()
	a.AddImm(TypeInt32, RCX, 1)
	require.Equal(t, []byte{0x83, 0xC1, 0x01}, a.Bytes())

	// rax uses its dedicated form for wide immediates.
	a = NewAssembler()
	a.AddImm(TypeInt32, RAX, 0x1000)
	require.Equal(t, []byte{0x05, 0x00, 0x10, 0x00, 0x00}, a.Bytes())

	// Other registers take the 81 group form.
	a = NewAssembler()
	a.AddImm(TypeInt32, RCX, 0x1000)
	require.Equal(t, []byte{0x81, 0xC1, 0x00, 0x10, 0x00, 0x00}, a.Bytes())
}

func TestShifts(t *testing.T) {
	a := NewAssembler()
	a.ShlImm(TypeInt32, RAX, 1)
	require.Equal(t, []byte{0xD1, 0xE0}, a.Bytes())

	a = NewAssembler()
	a.ShlImm(TypeInt32, RAX, 4)
	require.Equal(t, []byte{0xC1, 0xE0, 0x04}, a.Bytes())

	a = NewAssembler()
	a.SarCL(TypeInt64, RDX)
	require.Equal(t, []byte{0x48, 0xD3, 0xFA}, a.Bytes())

	a = NewAssembler()
	a.ShldImm(TypeInt32, RAX, RDX, 8)
	require.Equal(t, []byte{0x0F, 0xA4, 0xD0, 0x08}, a.Bytes())
}

func TestSetccCmov(t *testing.T) {
	a := NewAssembler()
	a.Setcc(Equal, RAX)
	require.Equal(t, []byte{0x0F, 0x94, 0xC0}, a.Bytes())

	// setcc on rsi needs the REX byte-register path.
	a = NewAssembler()
	a.Setcc(Below, RSI)
	require.Equal(t, []byte{0x40, 0x0F, 0x92, 0xC6}, a.Bytes())

	a = NewAssembler()
	a.Cmov(TypeInt64, NotEqual, RAX, RBX)
	require.Equal(t, []byte{0x48, 0x0F, 0x45, 0xC3}, a.Bytes())
}

func TestMulDiv(t *testing.T) {
	a := NewAssembler()
	a.Imul(TypeInt32, RAX, RCX)
	require.Equal(t, []byte{0x0F, 0xAF, 0xC1}, a.Bytes())

	a = NewAssembler()
	a.ImulImm(TypeInt32, RAX, RCX, 10)
	require.Equal(t, []byte{0x6B, 0xC1, 0x0A}, a.Bytes())

	a = NewAssembler()
	a.Idiv(TypeInt32, RCX)
	require.Equal(t, []byte{0xF7, 0xF9}, a.Bytes())

	a = NewAssembler()
	a.Cqo()
	require.Equal(t, []byte{0x48, 0x99}, a.Bytes())
}

func TestBitScan(t *testing.T) {
	a := NewAssembler()
	a.Bsf(TypeInt32, RAX, RCX)
	require.Equal(t, []byte{0x0F, 0xBC, 0xC1}, a.Bytes())

	a = NewAssembler()
	a.Bsr(TypeInt64, RAX, RCX)
	require.Equal(t, []byte{0x48, 0x0F, 0xBD, 0xC1}, a.Bytes())

	a = NewAssembler()
	a.Bswap(TypeInt32, RDX)
	require.Equal(t, []byte{0x0F, 0xCA}, a.Bytes())
}

func TestStreamDecodes(t *testing.T) {
	a := NewAssembler()
	a.Link()
	a.MovImm(TypeInt32, RAX, 42)
	a.Add(TypeInt64, RAX, RDI)
	a.Test(TypeInt64, RAX, RAX)
	a.Setcc(NotEqual, RCX)
	a.Movzx(TypeInt8, RCX, RCX)
	a.Xchg(TypeInt32, RAX, RDX)
	a.Mfence()
	a.Unlink()
	a.Ret()

	ops := []x86asm.Op{
		x86asm.PUSH, x86asm.MOV, x86asm.MOV, x86asm.ADD, x86asm.TEST,
		x86asm.SETNE, x86asm.MOVZX, x86asm.XCHG, x86asm.MFENCE,
		x86asm.MOV, x86asm.POP, x86asm.RET,
	}

	insts := decodeAll(t, a.Bytes())
	require.Len(t, insts, len(ops))
	for i, inst := range insts {
		require.Equal(t, ops[i], inst.Op, "instruction %d", i)
	}
}
