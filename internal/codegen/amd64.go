package codegen

// AMD64 emits x86-64 machine code under the System V calling convention.
// Result lives in RAX, the secondary operand slot in RBX, and the pointer
// to the caller-supplied argument array is kept in R12 across the whole
// function body, which is why R12 (and RBX) are callee-saved in the
// prologue/epilogue.
type AMD64 struct {
	buffer
}

func NewAMD64() *AMD64 { return &AMD64{} }

func frameSize(localCount int) int {
	return ((localCount * 8) + 15) &^ 15
}

func stackOffset(slot int) int {
	return -(16 + (slot+1)*8)
}

func (g *AMD64) EmitPrologue(localCount int) {
	g.emit(0x55)             // push rbp
	g.emit(0x48); g.emit(0x89); g.emit(0xE5) // mov rbp, rsp
	g.emit(0x53)             // push rbx
	g.emit(0x41); g.emit(0x54) // push r12
	// mov r12, rdi
	g.emit(0x49); g.emit(0x89); g.emit(0xFC)

	size := frameSize(localCount)
	if size > 0 {
		if size <= 0x7F {
			g.emit(0x48); g.emit(0x83); g.emit(0xEC); g.emit(byte(size))
		} else {
			g.emit(0x48); g.emit(0x81); g.emit(0xEC)
			g.emit32(uint32(size))
		}
	}
	for i := 0; i < localCount; i++ {
		g.emitZeroLocal(i)
	}
}

// emitZeroLocal emits `mov qword [rbp-offset], 0` for local slot i.
func (g *AMD64) emitZeroLocal(i int) {
	off := stackOffset(i)
	g.emit(0x48); g.emit(0xC7)
	if off >= -128 && off <= 127 {
		g.emit(0x45) // modrm: [rbp+disp8]
		g.emit(byte(int8(off)))
	} else {
		g.emit(0x85) // modrm: [rbp+disp32]
		g.emit32(uint32(int32(off)))
	}
	g.emit32(0)
}

func (g *AMD64) EmitEpilogue() {
	// lea rsp, [rbp-16]
	g.emit(0x48); g.emit(0x8D); g.emit(0x65); g.emit(0xF0)
	g.emit(0x41); g.emit(0x5C) // pop r12
	g.emit(0x5B)               // pop rbx
	g.emit(0x5D)               // pop rbp
	g.emit(0xC3)               // ret
}

func (g *AMD64) emitMovRaxImm64(v uint64) {
	if v == 0 {
		g.emit(0x31); g.emit(0xC0) // xor eax, eax
		return
	}
	if v <= 0xFFFFFFFF {
		g.emit(0xB8) // mov eax, imm32 (zero-extends to rax)
		g.emit32(uint32(v))
		return
	}
	g.emit(0x48); g.emit(0xB8) // mov rax, imm64
	g.emit64(v)
}

func (g *AMD64) EmitLoadImmediate(value int64) { g.emitMovRaxImm64(uint64(value)) }

func (g *AMD64) EmitLoadBool(value bool) {
	if value {
		g.emitMovRaxImm64(1)
	} else {
		g.emitMovRaxImm64(0)
	}
}

func (g *AMD64) emitMovFromStack(off int, reg byte) {
	g.emit(0x48); g.emit(0x8B)
	if off >= -128 && off <= 127 {
		g.emit(0x45 | (reg << 3))
		g.emit(byte(int8(off)))
	} else {
		g.emit(0x85 | (reg << 3))
		g.emit32(uint32(int32(off)))
	}
}

func (g *AMD64) emitMovToStack(off int, reg byte) {
	g.emit(0x48); g.emit(0x89)
	if off >= -128 && off <= 127 {
		g.emit(0x45 | (reg << 3))
		g.emit(byte(int8(off)))
	} else {
		g.emit(0x85 | (reg << 3))
		g.emit32(uint32(int32(off)))
	}
}

func (g *AMD64) EmitLoadLocal(slot int)  { g.emitMovFromStack(stackOffset(slot), 0) } // rax
func (g *AMD64) EmitStoreLocal(slot int) { g.emitMovToStack(stackOffset(slot), 0) }

func (g *AMD64) EmitLoadArg(argIndex int) {
	// mov rax, [r12 + argIndex*8]
	g.emit(0x49); g.emit(0x8B); g.emit(0x44); g.emit(0x24); g.emit(byte(argIndex * 8))
}

func (g *AMD64) EmitPush() { g.emit(0x50) } // push rax
func (g *AMD64) EmitPop()  { g.emit(0x5B) } // pop rbx

func (g *AMD64) EmitAdd() { g.emit(0x48); g.emit(0x01); g.emit(0xD8) } // add rax, rbx

// EmitSub computes left-right: left was pushed first (now in rbx after
// pop), right is the result of the most recently compiled sub-expression
// (still in rax).
func (g *AMD64) EmitSub() {
	g.emit(0x48); g.emit(0x29); g.emit(0xC3) // sub rbx, rax
	g.emit(0x48); g.emit(0x89); g.emit(0xD8) // mov rax, rbx
}

func (g *AMD64) EmitMul() {
	g.emit(0x48); g.emit(0x0F); g.emit(0xAF); g.emit(0xC3) // imul rax, rbx
}

func (g *AMD64) EmitDiv() {
	g.emit(0x48); g.emit(0x89); g.emit(0xC1) // mov rcx, rax
	g.emit(0x48); g.emit(0x89); g.emit(0xD8) // mov rax, rbx
	g.emit(0x48); g.emit(0x99)               // cqo
	g.emit(0x48); g.emit(0xF7); g.emit(0xF9) // idiv rcx
}

func (g *AMD64) EmitMod() {
	g.emit(0x48); g.emit(0x89); g.emit(0xC1) // mov rcx, rax
	g.emit(0x48); g.emit(0x89); g.emit(0xD8) // mov rax, rbx
	g.emit(0x48); g.emit(0x99)               // cqo
	g.emit(0x48); g.emit(0xF7); g.emit(0xF9) // idiv rcx
	g.emit(0x48); g.emit(0x89); g.emit(0xD0) // mov rax, rdx
}

func (g *AMD64) emitCompare(setcc byte) {
	g.emit(0x48); g.emit(0x39); g.emit(0xC3) // cmp rbx, rax
	g.emit(0x0F); g.emit(setcc); g.emit(0xC0) // set<cc> al
	g.emit(0x48); g.emit(0x0F); g.emit(0xB6); g.emit(0xC0) // movzx rax, al
}

func (g *AMD64) EmitCompareEq() { g.emitCompare(0x94) } // sete
func (g *AMD64) EmitCompareNe() { g.emitCompare(0x95) } // setne
func (g *AMD64) EmitCompareLt() { g.emitCompare(0x9C) } // setl
func (g *AMD64) EmitCompareLe() { g.emitCompare(0x9E) } // setle
func (g *AMD64) EmitCompareGt() { g.emitCompare(0x9F) } // setg
func (g *AMD64) EmitCompareGe() { g.emitCompare(0x9D) } // setge

func (g *AMD64) EmitAnd() {
	g.emit(0x48); g.emit(0x85); g.emit(0xDB) // test rbx, rbx
	g.emit(0x0F); g.emit(0x95); g.emit(0xC1) // setne cl
	g.emit(0x48); g.emit(0x85); g.emit(0xC0) // test rax, rax
	g.emit(0x0F); g.emit(0x95); g.emit(0xC0) // setne al
	g.emit(0x20); g.emit(0xC8)               // and al, cl
	g.emit(0x48); g.emit(0x0F); g.emit(0xB6); g.emit(0xC0) // movzx rax, al
}

func (g *AMD64) EmitOr() {
	g.emit(0x48); g.emit(0x85); g.emit(0xDB) // test rbx, rbx
	g.emit(0x0F); g.emit(0x95); g.emit(0xC1) // setne cl
	g.emit(0x48); g.emit(0x85); g.emit(0xC0) // test rax, rax
	g.emit(0x0F); g.emit(0x95); g.emit(0xC0) // setne al
	g.emit(0x08); g.emit(0xC8)               // or al, cl
	g.emit(0x48); g.emit(0x0F); g.emit(0xB6); g.emit(0xC0) // movzx rax, al
}

func (g *AMD64) EmitNot() {
	g.emit(0x48); g.emit(0x85); g.emit(0xC0) // test rax, rax
	g.emit(0x0F); g.emit(0x94); g.emit(0xC0) // sete al
	g.emit(0x48); g.emit(0x0F); g.emit(0xB6); g.emit(0xC0) // movzx rax, al
}

func (g *AMD64) EmitNeg() {
	g.emit(0x48); g.emit(0xF7); g.emit(0xD8) // neg rax
}

func (g *AMD64) CreateLabel() *Label { return &Label{} }

func (g *AMD64) BindLabel(l *Label) {
	l.bound = true
	l.offset = len(g.code)
	for _, fixup := range l.pendingFixups {
		rel := int32(l.offset - (fixup + 4))
		g.patch32(fixup, rel)
	}
	l.pendingFixups = nil
}

func (g *AMD64) recordOrPatch(l *Label) (fixupOffset int) {
	fixupOffset = len(g.code)
	g.emit32(0)
	if l.bound {
		rel := int32(l.offset - (fixupOffset + 4))
		g.patch32(fixupOffset, rel)
	} else {
		l.pendingFixups = append(l.pendingFixups, fixupOffset)
	}
	return fixupOffset
}

func (g *AMD64) EmitJump(l *Label) {
	g.emit(0xE9)
	g.recordOrPatch(l)
}

func (g *AMD64) EmitJumpIfFalse(l *Label) {
	g.emit(0x48); g.emit(0x85); g.emit(0xC0) // test rax, rax
	g.emit(0x0F); g.emit(0x84)               // jz rel32
	g.recordOrPatch(l)
}

func (g *AMD64) EmitJumpIfTrue(l *Label) {
	g.emit(0x48); g.emit(0x85); g.emit(0xC0) // test rax, rax
	g.emit(0x0F); g.emit(0x85)               // jnz rel32
	g.recordOrPatch(l)
}

func (g *AMD64) EmitCallRuntime(funcPtr uintptr) {
	// mov r11, funcPtr ; call r11
	g.emit(0x49); g.emit(0xBB)
	g.emit64(uint64(funcPtr))
	g.emit(0x41); g.emit(0xFF); g.emit(0xD3)
}

func (g *AMD64) EmitReturn() { g.EmitEpilogue() }

func (g *AMD64) EmitLoadStringPtr(ptr uintptr) { g.emitMovRaxImm64(uint64(ptr)) }

// EmitSetCallArg moves the value currently in rax into the argIndex'th
// System V integer argument register (rdi, rsi, rdx, rcx, r8, r9).
func (g *AMD64) EmitSetCallArg(argIndex int) {
	switch argIndex {
	case 0: // mov rdi, rax
		g.emit(0x48); g.emit(0x89); g.emit(0xC7)
	case 1: // mov rsi, rax
		g.emit(0x48); g.emit(0x89); g.emit(0xC6)
	case 2: // mov rdx, rax
		g.emit(0x48); g.emit(0x89); g.emit(0xC2)
	case 3: // mov rcx, rax
		g.emit(0x48); g.emit(0x89); g.emit(0xC1)
	case 4: // mov r8, rax
		g.emit(0x49); g.emit(0x89); g.emit(0xC0)
	case 5: // mov r9, rax
		g.emit(0x49); g.emit(0x89); g.emit(0xC1)
	}
}
