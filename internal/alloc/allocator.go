// Package alloc provides space management for b2nd file writing.
package alloc

import (
	"fmt"
	"sync"
)

// Allocator hands out file space append-only. Freed space is tracked but
// never reused; a rewritten block simply leaves a hole behind.
type Allocator struct {
	mu sync.Mutex

	// eofAddr is the next allocation point
	eofAddr uint64

	// baseAddr is the lowest allocatable address, right after the
	// file header
	baseAddr uint64

	allocations []Allocation
	freeBlocks  []FreeBlock
	stats       Stats
}

// Allocation records a single block handed out.
type Allocation struct {
	Addr uint64
	Size uint64
	Tag  string // Optional tag for debugging
}

// FreeBlock records a block released back to the allocator.
type FreeBlock struct {
	Addr uint64
	Size uint64
}

// Stats contains allocation statistics.
type Stats struct {
	TotalAllocations uint64
	TotalBytesAlloc  uint64
	TotalBytesFree   uint64
	LargestAlloc     uint64
}

// New creates an Allocator starting at the given base address.
func New(baseAddr uint64) *Allocator {
	return &Allocator{
		eofAddr:  baseAddr,
		baseAddr: baseAddr,
	}
}

// Alloc allocates a block of the given size at the current EOF and
// returns its address.
func (a *Allocator) Alloc(size uint64) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.allocLocked(size, "")
}

// AllocTagged allocates a block with a tag for debugging.
func (a *Allocator) AllocTagged(size uint64, tag string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.allocLocked(size, tag)
}

func (a *Allocator) allocLocked(size uint64, tag string) uint64 {
	if size == 0 {
		return a.eofAddr
	}

	addr := a.eofAddr
	a.eofAddr += size

	a.allocations = append(a.allocations, Allocation{
		Addr: addr,
		Size: size,
		Tag:  tag,
	})

	a.stats.TotalAllocations++
	a.stats.TotalBytesAlloc += size
	if size > a.stats.LargestAlloc {
		a.stats.LargestAlloc = size
	}

	return addr
}

// Free marks a block as free. The space is not reused; tracking it keeps
// Validate honest about where holes came from.
func (a *Allocator) Free(addr, size uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.freeBlocks = append(a.freeBlocks, FreeBlock{
		Addr: addr,
		Size: size,
	})
	a.stats.TotalBytesFree += size
}

// EOFAddr returns the current end-of-file address.
func (a *Allocator) EOFAddr() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.eofAddr
}

// SetEOFAddr sets the EOF address when loading an existing file.
func (a *Allocator) SetEOFAddr(addr uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.eofAddr = addr
}

// BaseAddr returns the start of allocatable space.
func (a *Allocator) BaseAddr() uint64 {
	return a.baseAddr
}

// Stats returns a copy of the allocation statistics.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// AllocFunc adapts the allocator to the closure form taken by block
// writers.
func (a *Allocator) AllocFunc() func(size int64) uint64 {
	return func(size int64) uint64 {
		if size < 0 {
			panic("negative allocation size")
		}
		return a.Alloc(uint64(size))
	}
}

// Validate checks that allocations stay within bounds and do not overlap.
func (a *Allocator) Validate() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, alloc := range a.allocations {
		if alloc.Addr < a.baseAddr {
			return fmt.Errorf("allocation at 0x%x is before base address 0x%x", alloc.Addr, a.baseAddr)
		}
		if alloc.Addr+alloc.Size > a.eofAddr {
			return fmt.Errorf("allocation at 0x%x size %d extends past EOF 0x%x", alloc.Addr, alloc.Size, a.eofAddr)
		}
	}

	for i := 0; i < len(a.allocations); i++ {
		for j := i + 1; j < len(a.allocations); j++ {
			a1, a2 := a.allocations[i], a.allocations[j]
			if a1.Addr < a2.Addr+a2.Size && a2.Addr < a1.Addr+a1.Size {
				return fmt.Errorf("overlapping allocations: [0x%x, size %d] and [0x%x, size %d]",
					a1.Addr, a1.Size, a2.Addr, a2.Size)
			}
		}
	}

	return nil
}
