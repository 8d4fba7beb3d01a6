package x64

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/arch/x86/x86asm"
)

func TestLabelBindPatchesLinks(t *testing.T) {
	a := NewAssembler()
	label := &Label{}

	a.Jmp(label, false) // E9 + 4-byte link
	a.Nop(3)
	a.J(Equal, label, false) // 0F 84 + 4-byte link
	a.Nop(1)

	bound := a.Position()
	a.Bind(label)

	require.True(t, label.IsBound())
	require.Equal(t, bound, label.Position())

	// Every site stores boundOffset - (sitePosition + fieldWidth).
	require.Equal(t, int32(bound-(1+4)), a.load32(1))
	require.Equal(t, int32(bound-(10+4)), a.load32(10))
}

func TestLabelNearLinks(t *testing.T) {
	a := NewAssembler()
	label := &Label{}

	a.J(NotEqual, label, true) // 75 + 1-byte link
	a.Nop(2)
	a.Jmp(label, true) // EB + 1-byte link
	a.Bind(label)

	bound := a.Position()
	require.Equal(t, byte(bound-(1+1)), a.Bytes()[1])
	require.Equal(t, byte(bound-(5+1)), a.Bytes()[5])
}

func TestBoundLabelBackwardBranch(t *testing.T) {
	a := NewAssembler()
	label := &Label{}
	a.Bind(label)

	a.J(Equal, label, false)
	// Short form: 74 FE (offset -2 back to the label).
	require.Equal(t, []byte{0x74, 0xFE}, a.Bytes())

	b := NewAssembler()
	top := &Label{}
	b.Bind(top)
	b.Jmp(top, false)
	require.Equal(t, []byte{0xEB, 0xFE}, b.Bytes())
}

func TestBindTwicePanics(t *testing.T) {
	a := NewAssembler()
	label := &Label{}
	a.Bind(label)

	require.Panics(t, func() { a.Bind(label) })
}

func TestFixupsStayInBounds(t *testing.T) {
	a := NewAssembler()
	a.CallSymbol("memcpy", 0)
	a.JmpSymbol("exit", 0)
	a.MovMem(TypeInt64, RAX, RipRelativeAddress("constants", 0))

	for _, fixup := range a.Fixups() {
		require.LessOrEqual(t, fixup.Position+4, a.Position())
	}

	require.Len(t, a.Fixups(), 3)
	require.Equal(t, FixupPCRel, a.Fixups()[0].Kind)
	require.Equal(t, int64(-4), a.Fixups()[0].Addend)
}

func TestAlign(t *testing.T) {
	a := NewAssembler()
	a.Ret()
	a.Align(16, 0)
	require.Equal(t, 16, a.Position())

	// Already aligned: no padding.
	a.Align(16, 0)
	require.Equal(t, 16, a.Position())

	// Large gaps are filled with maximal NOPs.
	a.Ret()
	a.Align(32, 0)
	require.Equal(t, 32, a.Position())

	// The padding decodes as NOPs.
	code := a.Bytes()[17:]
	for len(code) > 0 {
		inst, err := x86asm.Decode(code, 64)
		require.NoError(t, err)
		require.Equal(t, x86asm.NOP, inst.Op)
		code = code[inst.Len:]
	}
}

func TestAlignFunction(t *testing.T) {
	a := NewAssembler()
	a.Ret()
	a.AlignFunction()
	require.Equal(t, 32, a.Position())
	require.Equal(t, byte(0xF4), a.Bytes()[1]) // hlt filler

	a.SetBundleAlign(4)
	a.Ret()
	a.AlignFunction()
	require.Equal(t, 36, a.Position())
}

func TestPrologEpilog(t *testing.T) {
	a := NewAssembler()
	a.Link()
	a.StackSub(32)
	a.StackAdd(32)
	a.Unlink()
	a.Ret()

	expected := [][]interface{}{
		{x86asm.PUSH, "rbp"},
		{x86asm.MOV, "rbp"},
		{x86asm.SUB, "rsp"},
		{x86asm.ADD, "rsp"},
		{x86asm.MOV, "rsp"},
		{x86asm.POP, "rbp"},
		{x86asm.RET, ""},
	}

	code := a.Bytes()
	for _, want := range expected {
		inst, err := x86asm.Decode(code, 64)
		require.NoError(t, err)
		require.Equal(t, want[0], inst.Op)
		code = code[inst.Len:]
	}
	require.Empty(t, code)
}

func TestPushPopXMM(t *testing.T) {
	a := NewAssembler()
	a.PushXMM(XMM7)
	a.PopXMM(XMM7)

	code := a.Bytes()
	ops := []x86asm.Op{x86asm.SUB, x86asm.MOVUPS, x86asm.MOVUPS, x86asm.ADD}
	for _, op := range ops {
		inst, err := x86asm.Decode(code, 64)
		require.NoError(t, err)
		require.Equal(t, op, inst.Op)
		code = code[inst.Len:]
	}
	require.Empty(t, code)
}
