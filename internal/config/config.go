// Package config holds the tunable knobs for a heap.Heap, wired
// through the same functional-options shape the rest of this module's
// teacher lineage uses for its allocators: a Config struct built by
// Default and mutated by a chain of Option values.
package config

import (
	"log"
	"os"
)

// Config collects every tunable constant that is part of the ABI
// between the allocator and its callers/tests.
type Config struct {
	// ArenaSize is the growth increment requested from the OS primitive
	// each time the free lists can't satisfy a request (ARENA_SIZE).
	ArenaSize uintptr

	// ReserveSize is how much virtual address space is reserved at
	// once; ArenaSize increments are committed out of it so that
	// consecutive growths land contiguously. Only meaningful on
	// platforms with a real mmap/mprotect backend.
	ReserveSize uintptr

	// MaxOSChunks bounds the debug list of region start fenceposts
	// used only by Verify (MAX_OS_CHUNKS).
	MaxOSChunks int

	// Logger receives non-fatal diagnostics (region stitching, growth
	// events). It is never on the double-free path, which must not
	// allocate.
	Logger *log.Logger
}

// Option mutates a Config produced by Default.
type Option func(*Config)

// Default returns the baseline configuration: a 4 MiB arena increment
// out of a 1 GiB reservation, a 16384-entry debug chunk list, and a
// stderr logger.
func Default() *Config {
	return &Config{
		ArenaSize:   4 << 20,
		ReserveSize: 1 << 30,
		MaxOSChunks: 16384,
		Logger:      log.New(os.Stderr, "segheap: ", log.LstdFlags),
	}
}

// WithArenaSize overrides the growth increment.
func WithArenaSize(n uintptr) Option {
	return func(c *Config) { c.ArenaSize = n }
}

// WithReserveSize overrides the virtual-address reservation size.
func WithReserveSize(n uintptr) Option {
	return func(c *Config) { c.ReserveSize = n }
}

// WithMaxOSChunks overrides the debug chunk-list bound.
func WithMaxOSChunks(n int) Option {
	return func(c *Config) { c.MaxOSChunks = n }
}

// WithLogger overrides the diagnostic logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Config) { c.Logger = l }
}
