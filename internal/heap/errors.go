package heap

import "errors"

var (
	// ErrDoubleFree is the panic value raised when Free is called on a
	// pointer whose header already reads free. The free-list
	// invariants are already broken by the time this is detected, so
	// the process must not keep running the allocator.
	ErrDoubleFree = errors.New("segheap: double free detected")

	// ErrOutOfMemory wraps a failure of the underlying OS growth
	// primitive (mmap/mprotect).
	ErrOutOfMemory = errors.New("segheap: heap growth failed")
)
