package x64

// Link emits the frame-pointer prolog: push rbp; mov rbp, rsp.
func (a *Assembler) Link() {
	a.Push(RBP)
	a.Mov(TypeInt64, RBP, RSP)
}

// Unlink emits the inverse of Link: mov rsp, rbp; pop rbp.
func (a *Assembler) Unlink() {
	a.Mov(TypeInt64, RSP, RBP)
	a.Pop(RBP)
}

// StackSub grows the stack frame by adjustment bytes.
func (a *Assembler) StackSub(adjustment int32) {
	if adjustment == 0 {
		return
	}
	a.SubImm(TypeInt64, RSP, int64(adjustment))
}

// StackAdd shrinks the stack frame by adjustment bytes.
func (a *Assembler) StackAdd(adjustment int32) {
	if adjustment == 0 {
		return
	}
	a.AddImm(TypeInt64, RSP, int64(adjustment))
}

// PushRegs pushes the registers in order.
func (a *Assembler) PushRegs(regs []GPR) {
	for _, reg := range regs {
		a.Push(reg)
	}
}

// PopRegs pops the registers in reverse order, undoing PushRegs.
func (a *Assembler) PopRegs(regs []GPR) {
	for i := len(regs) - 1; i >= 0; i-- {
		a.Pop(regs[i])
	}
}

// PushXMM spills a vector register through 16 bytes of stack.
func (a *Assembler) PushXMM(reg XMM) {
	a.StackSub(16)
	a.MovupsStore(BaseAddress(RSP, 0), reg)
}

// PopXMM restores a vector register spilled by PushXMM.
func (a *Assembler) PopXMM(reg XMM) {
	a.MovupsLoad(reg, BaseAddress(RSP, 0))
	a.StackAdd(16)
}
