package jit

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// page is one mmap'd region backing a single compiled function's code.
type page struct {
	mem []byte
}

// pageAllocator hands out executable memory for compiled function bodies.
// Every region is mapped read-write first, the machine code is copied in,
// and only then is it flipped to read-execute -- write-then-protect, so a
// page is never simultaneously writable and executable.
type pageAllocator struct {
	pages []page
}

func (a *pageAllocator) publish(code []byte) (uintptr, error) {
	if len(code) == 0 {
		return 0, fmt.Errorf("jit: cannot publish empty code buffer")
	}
	size := pageAlign(len(code))
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, fmt.Errorf("jit: mmap %d bytes: %w", size, err)
	}
	copy(mem, code)

	if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		unix.Munmap(mem)
		return 0, fmt.Errorf("jit: mprotect rx: %w", err)
	}

	a.pages = append(a.pages, page{mem: mem})
	return uintptr(unsafe.Pointer(&mem[0])), nil
}

// Release unmaps every page this allocator has published. Compiled
// function pointers handed out before Release must not be used again.
func (a *pageAllocator) Release() error {
	var firstErr error
	for _, p := range a.pages {
		if err := unix.Munmap(p.mem); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.pages = nil
	return firstErr
}

func pageAlign(n int) int {
	pageSize := unix.Getpagesize()
	return (n + pageSize - 1) &^ (pageSize - 1)
}
