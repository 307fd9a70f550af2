// Package codegen emits native machine code for the two architectures the
// JIT targets: x86-64 (System V AMD64 ABI) and AArch64 (AAPCS64). Both
// back-ends implement the same Emitter contract so the driver package in
// internal/jit picks a back-end once and otherwise never branches on
// architecture itself.
package codegen

// Label marks a forward or backward branch target inside a function's code
// buffer. Until BindLabel is called its offset is unknown, so every branch that
// references it records its own byte offset in pendingFixups to be patched
// once the target address is known.
type Label struct {
	bound         bool
	offset        int
	pendingFixups []int
}

// Emitter is the shared contract both architecture back-ends satisfy. Every
// method appends bytes to an internal buffer; nothing here performs I/O or
// allocates executable memory -- that is internal/jit's job.
type Emitter interface {
	Code() []byte
	Reset()

	EmitPrologue(localCount int)
	EmitEpilogue()

	EmitLoadImmediate(value int64)
	EmitLoadBool(value bool)

	EmitLoadLocal(slot int)
	EmitStoreLocal(slot int)
	EmitLoadArg(argIndex int)

	EmitPush()
	EmitPop()

	EmitAdd()
	EmitSub()
	EmitMul()
	EmitDiv()
	EmitMod()

	EmitCompareEq()
	EmitCompareNe()
	EmitCompareLt()
	EmitCompareLe()
	EmitCompareGt()
	EmitCompareGe()

	EmitAnd()
	EmitOr()
	EmitNot()
	EmitNeg()

	CreateLabel() *Label
	BindLabel(l *Label)
	EmitJump(l *Label)
	EmitJumpIfFalse(l *Label)
	EmitJumpIfTrue(l *Label)

	EmitCallRuntime(funcPtr uintptr)
	EmitReturn()

	EmitLoadStringPtr(ptr uintptr)
	EmitSetCallArg(argIndex int)
}

// buffer is the common byte-accumulation helper embedded by both back-ends.
type buffer struct {
	code []byte
}

func (b *buffer) Code() []byte { return b.code }
func (b *buffer) Reset()       { b.code = b.code[:0] }

func (b *buffer) emit(by byte) { b.code = append(b.code, by) }

func (b *buffer) emit16(v uint16) {
	b.emit(byte(v))
	b.emit(byte(v >> 8))
}

func (b *buffer) emit32(v uint32) {
	b.emit(byte(v))
	b.emit(byte(v >> 8))
	b.emit(byte(v >> 16))
	b.emit(byte(v >> 24))
}

func (b *buffer) emit64(v uint64) {
	b.emit32(uint32(v))
	b.emit32(uint32(v >> 32))
}

func (b *buffer) patch32(offset int, value int32) {
	b.code[offset] = byte(value)
	b.code[offset+1] = byte(value >> 8)
	b.code[offset+2] = byte(value >> 16)
	b.code[offset+3] = byte(value >> 24)
}
