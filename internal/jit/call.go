package jit

import (
	"unsafe"

	"github.com/ebitengine/purego"
)

// invoke calls a published native entry point with args laid out exactly
// the way the codegen back-ends expect to read them: a single pointer
// argument (in rdi on x86-64, x0 on AArch64) to a contiguous int64 array,
// one slot per declared parameter. purego.SyscallN places that pointer in
// the correct argument register for the host's C calling convention, so
// the driver never needs its own hand-written call trampoline.
//
// SyscallN's errno return is meaningless here: entry is code this driver
// just generated, not a libc call that sets errno, so any non-zero value
// is leftover noise from something unrelated and must not fail the call.
func (d *Driver) invoke(entry uintptr, args []int64) (int64, error) {
	var argsPtr uintptr
	if len(args) > 0 {
		argsPtr = uintptr(unsafe.Pointer(&args[0]))
	}
	r1, _, _ := purego.SyscallN(entry, argsPtr)
	return int64(r1), nil
}
