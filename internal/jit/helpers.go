package jit

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"

	"slugjit/internal/value"
)

const maxCallArgs = 16

// runtimeHelpers are the handful of functions compiled code calls back
// into: printing, and staging/dispatching calls to other user functions.
// purego.NewCallback turns each Go closure into a System V / AAPCS64
// C-ABI function pointer that raw machine code can call directly, which
// is what lets a single process-wide Driver bridge generated code back
// into ordinary Go without cgo.
type runtimeHelpers struct {
	d *Driver

	callArgs     [maxCallArgs]int64
	callArgIndex int

	printIntPtr     uintptr
	printTabPtr     uintptr
	printNewlinePtr uintptr
	pushArgPtr      uintptr
	callFuncPtr     uintptr
}

func newRuntimeHelpers(d *Driver) *runtimeHelpers {
	rt := &runtimeHelpers{d: d}
	rt.printIntPtr = purego.NewCallback(rt.printInt)
	rt.printTabPtr = purego.NewCallback(rt.printTab)
	rt.printNewlinePtr = purego.NewCallback(rt.printNewline)
	rt.pushArgPtr = purego.NewCallback(rt.pushArg)
	rt.callFuncPtr = purego.NewCallback(rt.callFunc)
	return rt
}

func (rt *runtimeHelpers) printInt(v uintptr) uintptr {
	fmt.Print(int64(v))
	return 0
}

func (rt *runtimeHelpers) printTab(uintptr) uintptr {
	fmt.Print("\t")
	return 0
}

func (rt *runtimeHelpers) printNewline(uintptr) uintptr {
	fmt.Println()
	return 0
}

func (rt *runtimeHelpers) pushArg(v uintptr) uintptr {
	if rt.callArgIndex < maxCallArgs {
		rt.callArgs[rt.callArgIndex] = int64(v)
		rt.callArgIndex++
	}
	return 0
}

// callFunc dispatches a nested call made from within compiled code: a
// compiled target is invoked natively, otherwise the interpreter runs it,
// snapshotting and restoring its variable environment exactly as a
// purely-interpreted call would.
func (rt *runtimeHelpers) callFunc(namePtr uintptr) uintptr {
	name := goStringFromCString(namePtr)

	argCount := rt.callArgIndex
	rt.callArgIndex = 0
	args := make([]int64, argCount)
	copy(args, rt.callArgs[:argCount])

	if cf, ok := rt.d.compiled[name]; ok {
		result, err := rt.d.invoke(cf.entry, args)
		if err != nil {
			return 0
		}
		return uintptr(result)
	}

	vals := make([]value.Value, len(args))
	for i, a := range args {
		vals[i] = value.NewInteger(a)
	}
	result, err := rt.d.interp.CallInterpreted(name, vals)
	if err != nil {
		return 0
	}
	if result.Tag != value.Integer {
		return 0 // None (and any other non-integer result) coerces to 0
	}
	return uintptr(result.Int)
}

func goStringFromCString(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Pointer(ptr + uintptr(n))) != 0 {
		n++
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), n)
	return string(b)
}
