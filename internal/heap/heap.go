package heap

import (
	"fmt"
	"log"
	"sync"
	"unsafe"

	"github.com/halcyon-systems/segheap/internal/config"
)

// Heap is a boundary-tagged, segregated-free-list allocator. The zero
// value is not usable; construct one with New. A Heap is safe for
// concurrent use: every public method acquires mu for its whole
// duration, including every exit path.
type Heap struct {
	mu sync.Mutex

	sentinels     [nLists]sentinel
	lastFencePost *header
	osChunks      []*header
	base          unsafe.Pointer

	arena       *arena
	arenaSize   uintptr
	maxOSChunks int
	logger      *log.Logger
}

// New constructs an independent Heap: its own mutex, free lists, and
// OS-memory reservation. Most programs want the package-level
// Alloc/Free/Calloc/Realloc/Verify wrappers over a single shared
// default instance instead; New exists for tests and callers that need
// isolation.
func New(opts ...config.Option) (*Heap, error) {
	cfg := config.Default()
	for _, opt := range opts {
		opt(cfg)
	}

	arenaSize := alignUp(cfg.ArenaSize, alignment)
	if arenaSize < 2*headerSize+minBlockSize {
		return nil, fmt.Errorf("segheap: arena size %d too small for two fenceposts and one minimal block", arenaSize)
	}

	a, err := newArena(cfg.ReserveSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutOfMemory, err)
	}

	h := &Heap{
		arena:       a,
		arenaSize:   arenaSize,
		maxOSChunks: cfg.MaxOSChunks,
		logger:      cfg.Logger,
	}
	h.initFreeLists()

	if err := h.growOnce(); err != nil {
		return nil, err
	}

	return h, nil
}

// Close releases the heap's OS-level memory reservations. Callers must
// not use the Heap, or any pointer it returned, afterward.
func (h *Heap) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.arena.close()
}

// Alloc returns a pointer to a freshly allocated, uninitialized region
// of at least n bytes, or nil when n is 0.
func (h *Heap) Alloc(n uintptr) unsafe.Pointer {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.allocLocked(n)
}

// Free releases a pointer previously returned by Alloc, Calloc, or
// Realloc. Freeing nil is a no-op; freeing an already-free pointer
// panics with ErrDoubleFree.
func (h *Heap) Free(p unsafe.Pointer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.freeLocked(p)
}

// Calloc allocates space for count elements of size bytes each and
// zero-fills it, equivalent to Alloc(count*size) followed by a zero
// fill of the returned region.
func (h *Heap) Calloc(count, size uintptr) unsafe.Pointer {
	h.mu.Lock()
	defer h.mu.Unlock()

	p := h.allocLocked(count * size)
	if p == nil {
		return nil
	}

	b := ptrToHeader(p)
	payload := unsafe.Slice((*byte)(p), int(b.size()-headerSize))
	for i := range payload {
		payload[i] = 0
	}

	return p
}

// Realloc allocates n bytes, copies min(n, old size) bytes from p into
// it, frees p, and returns the new pointer. Realloc(nil, n) behaves
// like Alloc(n); Realloc(p, 0) behaves like Free(p) and returns nil.
//
// The original allocator this one is modeled on copies n bytes
// unconditionally, which reads past the end of the old allocation
// whenever n exceeds it. segheap copies min(n, old size) instead — see
// DESIGN.md for the rationale.
func (h *Heap) Realloc(p unsafe.Pointer, n uintptr) unsafe.Pointer {
	h.mu.Lock()
	defer h.mu.Unlock()

	if p == nil {
		return h.allocLocked(n)
	}

	if n == 0 {
		h.freeLocked(p)

		return nil
	}

	oldSize := ptrToHeader(p).size() - headerSize

	newPtr := h.allocLocked(n)
	if newPtr == nil {
		return nil
	}

	copySize := n
	if oldSize < copySize {
		copySize = oldSize
	}

	dst := unsafe.Slice((*byte)(newPtr), int(copySize))
	src := unsafe.Slice((*byte)(p), int(copySize))
	copy(dst, src)

	h.freeLocked(p)

	return newPtr
}

// Verify checks free-list acyclicity (P5), free-list link consistency
// (P4), and, for every recorded region, boundary-tag agreement (P1) and
// the absence of adjacent free blocks (P2). It reports whether they all
// hold, along with a description of each violation found. It does not
// check that exact-size lists hold only blocks of their size (P3), that
// list membership matches block state (P6), or that a region ends in a
// fencepost (P7). It is intended for tests, not production paths.
func (h *Heap) Verify() (bool, []Violation) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var violations []Violation

	if v := h.detectCycle(); v != nil {
		violations = append(violations, *v)
	}

	if v := h.verifyLinks(); v != nil {
		violations = append(violations, *v)
	}

	violations = append(violations, h.verifyChunks()...)

	return len(violations) == 0, violations
}

var (
	defaultOnce sync.Once
	defaultHeap *Heap
)

func defaultInstance() *Heap {
	defaultOnce.Do(func() {
		h, err := New()
		if err != nil {
			panic(err)
		}

		defaultHeap = h
	})

	return defaultHeap
}

// Alloc allocates from the process-wide default Heap.
func Alloc(n uintptr) unsafe.Pointer { return defaultInstance().Alloc(n) }

// Free releases a pointer allocated from the process-wide default Heap.
func Free(p unsafe.Pointer) { defaultInstance().Free(p) }

// Calloc allocates and zero-fills from the process-wide default Heap.
func Calloc(count, size uintptr) unsafe.Pointer { return defaultInstance().Calloc(count, size) }

// Realloc reallocates a pointer from the process-wide default Heap.
func Realloc(p unsafe.Pointer, n uintptr) unsafe.Pointer { return defaultInstance().Realloc(p, n) }

// Verify checks the process-wide default Heap's invariants.
func Verify() (bool, []Violation) { return defaultInstance().Verify() }
