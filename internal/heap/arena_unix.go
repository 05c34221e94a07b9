//go:build unix

package heap

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// arena is the OS growth primitive: a sequence of virtual-address
// reservations, each committed page-by-page as growOnce asks for more.
// Reservations are never released, matching the "heap only grows"
// policy — the process's working set only includes the pages actually
// committed, not the whole reservation.
type arena struct {
	reserveSize uintptr
	regions     []*reservation
}

type reservation struct {
	mem       []byte
	committed uintptr
}

func newReservation(size uintptr) (*reservation, error) {
	mem, err := unix.Mmap(-1, 0, int(size), unix.PROT_NONE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("reserve %d bytes of address space: %w", size, err)
	}

	return &reservation{mem: mem}, nil
}

func newArena(reserveSize uintptr) (*arena, error) {
	first, err := newReservation(reserveSize)
	if err != nil {
		return nil, err
	}

	return &arena{reserveSize: reserveSize, regions: []*reservation{first}}, nil
}

// grow commits the next size bytes of the current reservation and
// returns their start address. When the current reservation is
// exhausted, a brand-new one is mapped — its address is unrelated to
// the old reservation's, so the next growOnce call will correctly see
// it as non-adjacent.
func (a *arena) grow(size uintptr) (unsafe.Pointer, error) {
	cur := a.regions[len(a.regions)-1]

	if cur.committed+size > uintptr(len(cur.mem)) {
		next, err := newReservation(maxUintptr(a.reserveSize, size))
		if err != nil {
			return nil, err
		}

		a.regions = append(a.regions, next)
		cur = next
	}

	start := unsafe.Pointer(&cur.mem[cur.committed])
	if err := unix.Mprotect(cur.mem[cur.committed:cur.committed+size], unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return nil, fmt.Errorf("commit %d bytes: %w", size, err)
	}

	cur.committed += size

	return start, nil
}

// close releases every reservation. Only ever safe once the owning
// Heap itself is unreachable — callers must not use the heap after
// calling Close.
func (a *arena) close() error {
	for _, r := range a.regions {
		if err := unix.Munmap(r.mem); err != nil {
			return err
		}
	}

	return nil
}

func maxUintptr(a, b uintptr) uintptr {
	if a > b {
		return a
	}

	return b
}
