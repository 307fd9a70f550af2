package codegen

import "testing"

// TestAMD64LabelPatchesForwardAndBackwardJumps exercises both fixup paths:
// a forward branch (bound after the jump is emitted, patched by BindLabel)
// and a backward branch (bound before the jump is emitted, patched as the
// jump is emitted).
func TestAMD64LabelPatchesForwardAndBackwardJumps(t *testing.T) {
	g := NewAMD64()

	loopStart := g.CreateLabel()
	loopEnd := g.CreateLabel()

	g.BindLabel(loopStart) // backward target, known immediately
	g.EmitLoadImmediate(1)
	g.EmitJumpIfFalse(loopEnd) // forward reference, patched later
	g.EmitJump(loopStart)      // backward reference, patched now
	g.BindLabel(loopEnd)

	if !loopStart.bound || !loopEnd.bound {
		t.Fatal("expected both labels to be bound")
	}
	if len(loopEnd.pendingFixups) != 0 {
		t.Fatal("expected pending fixups to be cleared after BindLabel")
	}
	if len(g.Code()) == 0 {
		t.Fatal("expected non-empty code buffer")
	}
}

func TestARM64LabelPatchesForwardAndBackwardJumps(t *testing.T) {
	g := NewARM64()

	loopStart := g.CreateLabel()
	loopEnd := g.CreateLabel()

	g.BindLabel(loopStart)
	g.EmitLoadImmediate(1)
	g.EmitJumpIfFalse(loopEnd)
	g.EmitJump(loopStart)
	g.BindLabel(loopEnd)

	if !loopStart.bound || !loopEnd.bound {
		t.Fatal("expected both labels to be bound")
	}
	if len(loopEnd.pendingFixups) != 0 {
		t.Fatal("expected pending fixups to be cleared after BindLabel")
	}
}

func TestARM64CompareConditionsAreCanonical(t *testing.T) {
	// Gt and Ge must use their own canonical condition field rather than a
	// value derived by XOR-ing a different condition's encoding.
	g := NewARM64()
	g.EmitCompareGt()
	// Copy: Reset reuses the backing array that Code() returns.
	gt := append([]byte(nil), g.Code()...)
	g.Reset()
	g.EmitCompareLe()
	le := g.Code()

	// cset's condition field sits in bits [15:12] (inverted condition);
	// gt (field=LE=0xD) and le (field=GT=0xC) must differ there.
	gtField := (uint32(gt[len(gt)-1])<<24 | uint32(gt[len(gt)-2])<<16 | uint32(gt[len(gt)-3])<<8 | uint32(gt[len(gt)-4])) >> 12 & 0xF
	leField := (uint32(le[len(le)-1])<<24 | uint32(le[len(le)-2])<<16 | uint32(le[len(le)-3])<<8 | uint32(le[len(le)-4])) >> 12 & 0xF
	if gtField == leField {
		t.Fatalf("expected Gt and Le to produce distinct cset condition fields, both got %x", gtField)
	}
}

func TestAMD64PrologueZeroesLocalsAndRestoresFrame(t *testing.T) {
	g := NewAMD64()
	g.EmitPrologue(3)
	g.EmitEpilogue()
	code := g.Code()
	if len(code) == 0 {
		t.Fatal("expected non-empty prologue/epilogue code")
	}
	if code[len(code)-1] != 0xC3 {
		t.Fatalf("expected epilogue to end in ret (0xC3), got %#x", code[len(code)-1])
	}
}

func TestARM64PrologueZeroesLocalsAndRestoresFrame(t *testing.T) {
	g := NewARM64()
	g.EmitPrologue(3)
	g.EmitEpilogue()
	code := g.Code()
	if len(code) < 4 {
		t.Fatal("expected non-empty prologue/epilogue code")
	}
	last4 := uint32(code[len(code)-4]) | uint32(code[len(code)-3])<<8 | uint32(code[len(code)-2])<<16 | uint32(code[len(code)-1])<<24
	if last4 != 0xD65F03C0 {
		t.Fatalf("expected epilogue to end in ret (0xD65F03C0), got %#x", last4)
	}
}
