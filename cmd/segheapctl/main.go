// Command segheapctl drives a segheap.Heap through a randomized
// allocate/free workload and reports its final invariant and
// statistics, mirroring the way the teacher's own cmd/orizon-config
// wraps a library package behind a small flag-driven CLI.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"unsafe"

	"github.com/halcyon-systems/segheap/internal/config"
	"github.com/halcyon-systems/segheap/internal/heap"
)

// report is the JSON shape printed by --json.
type report struct {
	Ops        int              `json:"ops"`
	Allocated  int              `json:"allocated"`
	Freed      int              `json:"freed"`
	LiveAtEnd  int              `json:"live_at_end"`
	Verified   bool             `json:"verified"`
	Violations []heap.Violation `json:"violations,omitempty"`
	ArenaSize  uintptr          `json:"arena_size"`
	Seed       int64            `json:"seed"`
}

func main() {
	var (
		ops        int
		seed       int64
		arenaSize  uint
		jsonOutput bool
		maxReq     int
	)

	flag.IntVar(&ops, "ops", 10000, "number of randomized allocate/free operations to run")
	flag.Int64Var(&seed, "seed", 1, "PRNG seed for the workload")
	flag.UintVar(&arenaSize, "arena-size", 4<<20, "growth increment in bytes (ARENA_SIZE)")
	flag.IntVar(&maxReq, "max-request", 4096, "largest single allocation request size in bytes")
	flag.BoolVar(&jsonOutput, "json", false, "print the final report as JSON")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Drives a segheap allocator through a randomized workload and verifies it.\n\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	h, err := heap.New(config.WithArenaSize(uintptr(arenaSize)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "segheapctl: %v\n", err)
		os.Exit(1)
	}

	rep := runWorkload(h, ops, seed, maxReq)
	rep.ArenaSize = uintptr(arenaSize)

	if jsonOutput {
		data, _ := json.MarshalIndent(rep, "", "  ")
		fmt.Println(string(data))
	} else {
		printHuman(rep)
	}

	if !rep.Verified {
		os.Exit(1)
	}
}

func runWorkload(h *heap.Heap, ops int, seed int64, maxReq int) report {
	rng := rand.New(rand.NewSource(seed))
	live := make([]unsafe.Pointer, 0, ops)

	rep := report{Ops: ops, Seed: seed}

	for i := 0; i < ops; i++ {
		if len(live) > 0 && rng.Intn(2) == 0 {
			idx := rng.Intn(len(live))
			h.Free(live[idx])
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]
			rep.Freed++

			continue
		}

		n := uintptr(1 + rng.Intn(maxReq))
		if p := h.Alloc(n); p != nil {
			live = append(live, p)
			rep.Allocated++
		}
	}

	rep.LiveAtEnd = len(live)

	for _, p := range live {
		h.Free(p)
	}

	rep.Verified, rep.Violations = h.Verify()

	return rep
}

func printHuman(rep report) {
	fmt.Printf("ops=%d allocated=%d freed=%d live_at_end=%d verified=%t\n",
		rep.Ops, rep.Allocated, rep.Freed, rep.LiveAtEnd, rep.Verified)

	for _, v := range rep.Violations {
		fmt.Printf("  violation: %s\n", v.String())
	}
}
