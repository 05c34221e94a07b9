package heap

import (
	"fmt"
	"unsafe"
)

// Violation describes one structural invariant broken somewhere in the
// heap, as reported by Verify. Offset is relative to the first byte
// ever obtained from the OS growth primitive, so violations can be
// compared across runs independent of where the OS actually mapped
// memory.
type Violation struct {
	Kind   string
	List   int
	Offset uintptr
}

func (v Violation) String() string {
	if v.List >= 0 {
		return fmt.Sprintf("%s at offset 0x%x (free list %d)", v.Kind, v.Offset, v.List)
	}

	return fmt.Sprintf("%s at offset 0x%x", v.Kind, v.Offset)
}

func (h *Heap) offsetOf(hdr *header) uintptr {
	if h.base == nil {
		return 0
	}

	return uintptr(unsafe.Pointer(hdr)) - uintptr(h.base)
}

// detectCycle runs Floyd's tortoise-and-hare over every segregated
// list (P5).
func (h *Heap) detectCycle() *Violation {
	for i := range h.sentinels {
		sentinelHdr := &h.sentinels[i].hdr
		slow := linkOf(sentinelHdr).next
		fast := linkOf(linkOf(sentinelHdr).next).next

		for !sameAddr(fast, sentinelHdr) {
			if sameAddr(slow, fast) {
				return &Violation{Kind: "free-list cycle", List: i, Offset: h.offsetOf(slow)}
			}

			slow = linkOf(slow).next
			fast = linkOf(linkOf(fast).next).next
		}
	}

	return nil
}

// verifyLinks checks that every free-list node's neighbors agree it
// belongs there (P4).
func (h *Heap) verifyLinks() *Violation {
	for i := range h.sentinels {
		sentinelHdr := &h.sentinels[i].hdr

		for cur := linkOf(sentinelHdr).next; !sameAddr(cur, sentinelHdr); cur = linkOf(cur).next {
			l := linkOf(cur)
			if !sameAddr(linkOf(l.next).prev, cur) || !sameAddr(linkOf(l.prev).next, cur) {
				return &Violation{Kind: "inconsistent free-list links", List: i, Offset: h.offsetOf(cur)}
			}
		}
	}

	return nil
}

// verifyChunks walks every recorded region from its left fencepost to
// its right fencepost, checking the boundary-tag agreement between
// physical neighbors (P1) and that no two adjacent blocks are both
// free (P2). Regions absorbed by stitching are not walked from their
// own (never recorded) left fencepost, but remain reachable
// through the region that absorbed them.
func (h *Heap) verifyChunks() []Violation {
	var violations []Violation

	for _, leftFP := range h.osChunks {
		if leftFP.state() != stateFencepost {
			violations = append(violations, Violation{Kind: "missing left fencepost", List: -1, Offset: h.offsetOf(leftFP)})

			continue
		}

		prevFree := false
		for cur := rightNeighborOf(leftFP); cur.state() != stateFencepost; cur = rightNeighborOf(cur) {
			if rightNeighborOf(cur).leftSize != cur.size() {
				violations = append(violations, Violation{Kind: "boundary tag mismatch", List: -1, Offset: h.offsetOf(cur)})
			}

			curFree := cur.state() == stateFree
			if curFree && prevFree {
				violations = append(violations, Violation{Kind: "adjacent free blocks", List: -1, Offset: h.offsetOf(cur)})
			}

			prevFree = curFree
		}
	}

	return violations
}
