package codegen

// ARM64 emits AArch64 machine code under AAPCS64. Result lives in X0, the
// secondary operand slot in X9, and the pointer to the caller-supplied
// argument array is kept in X19 across the whole function body.
type ARM64 struct {
	buffer
	lastFrameSize int
}

func NewARM64() *ARM64 { return &ARM64{} }

func arm64FrameSize(localCount int) int {
	return ((localCount*8 + 32) + 15) &^ 15
}

func arm64LocalOffset(slot int) int {
	return -(8 * (slot + 1))
}

func (g *ARM64) EmitPrologue(localCount int) {
	size := arm64FrameSize(localCount)
	g.lastFrameSize = size
	stpOff := ((-size) >> 3) & 0x7F
	// stp x29, x30, [sp, #-size]!
	g.emit32(0xA9800000 | (uint32(stpOff) << 15) | (30 << 10) | (31 << 5) | 29)
	g.emit32(0x910003FD)                               // mov x29, sp
	g.emit32(0xF9000000 | (2 << 10) | (31 << 5) | 19)   // str x19, [sp, #16]
	g.emit32(0xAA0003F3)                                // mov x19, x0

	for i := 0; i < localCount; i++ {
		off := arm64LocalOffset(i)
		g.emit32(0xF8000000 | ((uint32(off) & 0x1FF) << 12) | (29 << 5) | 31) // stur xzr, [x29, #off]
	}
}

func (g *ARM64) EmitEpilogue() {
	g.emitLdrX19(16)
	g.emitLdpPostSP(g.lastFrameSize)
	g.emit32(0xD65F03C0) // ret
}

func (g *ARM64) emitLdrX19(off int) {
	g.emit32(0xF9400000 | ((uint32(off) / 8) << 10) | (31 << 5) | 19)
}

func (g *ARM64) emitLdpPostSP(size int) {
	ldpOff := (size >> 3) & 0x7F
	g.emit32(0xA8C00000 | (uint32(ldpOff) << 15) | (30 << 10) | (31 << 5) | 29)
}

func (g *ARM64) emitMovz(reg byte, imm16 uint16, shift uint) {
	g.emit32(0xD2800000 | (uint32(shift/16) << 21) | (uint32(imm16) << 5) | uint32(reg))
}

func (g *ARM64) emitMovk(reg byte, imm16 uint16, shift uint) {
	base := uint32(0)
	switch shift {
	case 16:
		base = 0xF2A00000
	case 32:
		base = 0xF2C00000
	case 48:
		base = 0xF2E00000
	}
	g.emit32(base | (uint32(imm16) << 5) | uint32(reg))
}

func (g *ARM64) emitMovImm64(reg byte, value uint64) {
	g.emitMovz(reg, uint16(value), 0)
	if v := uint16(value >> 16); v != 0 {
		g.emitMovk(reg, v, 16)
	}
	if v := uint16(value >> 32); v != 0 {
		g.emitMovk(reg, v, 32)
	}
	if v := uint16(value >> 48); v != 0 {
		g.emitMovk(reg, v, 48)
	}
}

func (g *ARM64) EmitLoadImmediate(value int64) {
	if value >= 0 && value <= 0xFFFF {
		g.emitMovz(0, uint16(value), 0)
		return
	}
	if value < 0 && value >= -0x10000 {
		g.emit32(0x92800000 | ((^uint32(value) & 0xFFFF) << 5) | 0) // movn x0, ~value
		return
	}
	g.emitMovImm64(0, uint64(value))
}

func (g *ARM64) EmitLoadBool(value bool) {
	if value {
		g.emitMovz(0, 1, 0)
	} else {
		g.emitMovz(0, 0, 0)
	}
}

// emitLdrOffset/emitStrOffset use the scaled unsigned immediate form when
// the offset is non-negative, 8-aligned, and within a 12-bit scaled field;
// otherwise they fall back to the unscaled (9-bit signed) ldur/stur form,
// which is what locals -- always negative relative to x29 -- actually use.
func (g *ARM64) emitLdrOffset(reg byte, base byte, offset int) {
	if offset >= 0 && offset < 32768 && offset%8 == 0 {
		g.emit32(0xF9400000 | ((uint32(offset) / 8) << 10) | (uint32(base) << 5) | uint32(reg))
		return
	}
	g.emit32(0xF8400000 | ((uint32(offset) & 0x1FF) << 12) | (uint32(base) << 5) | uint32(reg))
}

func (g *ARM64) emitStrOffset(reg byte, base byte, offset int) {
	if offset >= 0 && offset < 32768 && offset%8 == 0 {
		g.emit32(0xF9000000 | ((uint32(offset) / 8) << 10) | (uint32(base) << 5) | uint32(reg))
		return
	}
	g.emit32(0xF8000000 | ((uint32(offset) & 0x1FF) << 12) | (uint32(base) << 5) | uint32(reg))
}

func (g *ARM64) EmitLoadLocal(slot int)  { g.emitLdrOffset(0, 29, arm64LocalOffset(slot)) }
func (g *ARM64) EmitStoreLocal(slot int) { g.emitStrOffset(0, 29, arm64LocalOffset(slot)) }

func (g *ARM64) EmitLoadArg(argIndex int) { g.emitLdrOffset(0, 19, argIndex*8) }

func (g *ARM64) EmitPush() { g.emit32(0xF81F0FE0) } // str x0, [sp, #-16]!
func (g *ARM64) EmitPop()  { g.emit32(0xF84107E9) } // ldr x9, [sp], #16

func (g *ARM64) EmitAdd() { g.emit32(0x8B000120) } // add x0, x9, x0
func (g *ARM64) EmitSub() { g.emit32(0xCB000120) } // sub x0, x9, x0
func (g *ARM64) EmitMul() { g.emit32(0x9B007D20) } // mul x0, x9, x0
func (g *ARM64) EmitDiv() { g.emit32(0x9AC00D20) } // sdiv x0, x9, x0

func (g *ARM64) EmitMod() {
	g.emit32(0x9AC00D2A) // sdiv x10, x9, x0
	g.emit32(0x9B00A540) // msub x0, x10, x0, x9
}

// cset condition field is the 4-bit ARM condition inverted (bit0 flipped).
const (
	condEQ = 0x0
	condNE = 0x1
	condGE = 0xA
	condLT = 0xB
	condGT = 0xC
	condLE = 0xD
)

func invertCond(c uint32) uint32 { return c ^ 1 }

func (g *ARM64) emitCsetFromCompare(cond uint32) {
	g.emit32(0xEB00013F) // cmp x9, x0
	g.emit32(0x9A9F07E0 | (invertCond(cond) << 12))
}

func (g *ARM64) EmitCompareEq() { g.emitCsetFromCompare(condEQ) }
func (g *ARM64) EmitCompareNe() { g.emitCsetFromCompare(condNE) }
func (g *ARM64) EmitCompareLt() { g.emitCsetFromCompare(condLT) }
func (g *ARM64) EmitCompareLe() { g.emitCsetFromCompare(condLE) }

// EmitCompareGt/EmitCompareGe emit the canonical gt/ge condition codes
// directly rather than deriving them by XOR-ing another condition's
// encoding, which is how the source computed them.
func (g *ARM64) EmitCompareGt() { g.emitCsetFromCompare(condGT) }
func (g *ARM64) EmitCompareGe() { g.emitCsetFromCompare(condGE) }

func (g *ARM64) EmitAnd() {
	g.emit32(0xF100013F) // cmp x9, #0
	g.emit32(0x9A9F07EA) // cset x10, ne
	g.emit32(0xF100001F) // cmp x0, #0
	g.emit32(0x9A9F07E0) // cset x0, ne
	g.emit32(0x8A000140) // and x0, x10, x0
}

func (g *ARM64) EmitOr() {
	g.emit32(0xF100013F) // cmp x9, #0
	g.emit32(0x9A9F07EA) // cset x10, ne
	g.emit32(0xF100001F) // cmp x0, #0
	g.emit32(0x9A9F07E0) // cset x0, ne
	g.emit32(0xAA000140) // orr x0, x10, x0
}

func (g *ARM64) EmitNot() {
	g.emit32(0xF100001F) // cmp x0, #0
	g.emit32(0x9A9F17E0) // cset x0, eq
}

func (g *ARM64) EmitNeg() { g.emit32(0xCB0003E0) } // neg x0, x0

func (g *ARM64) CreateLabel() *Label { return &Label{} }

func (g *ARM64) BindLabel(l *Label) {
	l.bound = true
	l.offset = len(g.code)
	for _, fixup := range l.pendingFixups {
		g.patchBranch(fixup, l.offset)
	}
	l.pendingFixups = nil
}

// patchBranch rewrites the instruction word at fixup to branch to target,
// distinguishing the unconditional B encoding (26-bit immediate) from the
// cbz/cbnz encoding (19-bit immediate at bits [23:5]).
func (g *ARM64) patchBranch(fixup int, target int) {
	insn := uint32(g.code[fixup]) | uint32(g.code[fixup+1])<<8 | uint32(g.code[fixup+2])<<16 | uint32(g.code[fixup+3])<<24
	rel := int32(target-fixup) / 4
	if insn&0xFC000000 == 0x14000000 {
		insn = (insn &^ 0x3FFFFFF) | (uint32(rel) & 0x3FFFFFF)
	} else {
		insn = (insn &^ (0x7FFFF << 5)) | ((uint32(rel) & 0x7FFFF) << 5)
	}
	g.code[fixup] = byte(insn)
	g.code[fixup+1] = byte(insn >> 8)
	g.code[fixup+2] = byte(insn >> 16)
	g.code[fixup+3] = byte(insn >> 24)
}

func (g *ARM64) recordOrPatch(l *Label, placeholder uint32) {
	fixup := len(g.code)
	g.emit32(placeholder)
	if l.bound {
		g.patchBranch(fixup, l.offset)
	} else {
		l.pendingFixups = append(l.pendingFixups, fixup)
	}
}

func (g *ARM64) EmitJump(l *Label)        { g.recordOrPatch(l, 0x14000000) }
func (g *ARM64) EmitJumpIfFalse(l *Label) { g.recordOrPatch(l, 0xB4000000) } // cbz x0, label
func (g *ARM64) EmitJumpIfTrue(l *Label)  { g.recordOrPatch(l, 0xB5000000) } // cbnz x0, label

func (g *ARM64) EmitCallRuntime(funcPtr uintptr) {
	g.emitMovImm64(10, uint64(funcPtr)) // x10 = funcPtr
	g.emit32(0xD63F0140)                // blr x10
}

func (g *ARM64) EmitReturn() { g.EmitEpilogue() }

func (g *ARM64) EmitLoadStringPtr(ptr uintptr) { g.emitMovImm64(0, uint64(ptr)) }

func (g *ARM64) EmitSetCallArg(argIndex int) {
	if argIndex == 0 {
		return // already in x0
	}
	g.emit32(0xAA0003E0 | uint32(argIndex)) // mov x<argIndex>, x0
}

