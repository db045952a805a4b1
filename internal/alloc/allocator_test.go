package alloc

import (
	"sync"
	"testing"
)

func TestAllocSequential(t *testing.T) {
	a := New(32)

	addr1 := a.Alloc(100)
	if addr1 != 32 {
		t.Errorf("first allocation at 0x%x, want 0x20", addr1)
	}
	addr2 := a.Alloc(50)
	if addr2 != 132 {
		t.Errorf("second allocation at 0x%x, want 132", addr2)
	}
	if a.EOFAddr() != 182 {
		t.Errorf("EOF = %d, want 182", a.EOFAddr())
	}
	if err := a.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestAllocZeroSize(t *testing.T) {
	a := New(32)

	addr := a.Alloc(0)
	if addr != 32 {
		t.Errorf("zero-size allocation at 0x%x, want base", addr)
	}
	if a.EOFAddr() != 32 {
		t.Errorf("zero-size allocation moved EOF to %d", a.EOFAddr())
	}

	stats := a.Stats()
	if stats.TotalAllocations != 0 {
		t.Errorf("zero-size allocation counted in stats: %+v", stats)
	}
}

func TestFreeLeavesHole(t *testing.T) {
	a := New(32)

	addr := a.Alloc(64)
	a.Free(addr, 64)

	// Freed space is never handed out again.
	next := a.Alloc(64)
	if next == addr {
		t.Error("freed block was reused")
	}
	if next != 96 {
		t.Errorf("allocation after free at %d, want 96", next)
	}

	stats := a.Stats()
	if stats.TotalBytesFree != 64 {
		t.Errorf("TotalBytesFree = %d, want 64", stats.TotalBytesFree)
	}
}

func TestSetEOFAddr(t *testing.T) {
	a := New(32)
	a.SetEOFAddr(4096)

	if addr := a.Alloc(10); addr != 4096 {
		t.Errorf("allocation after SetEOFAddr at %d, want 4096", addr)
	}
}

func TestStats(t *testing.T) {
	a := New(0)
	a.AllocTagged(10, "small")
	a.AllocTagged(500, "large")
	a.Alloc(20)

	stats := a.Stats()
	if stats.TotalAllocations != 3 {
		t.Errorf("TotalAllocations = %d, want 3", stats.TotalAllocations)
	}
	if stats.TotalBytesAlloc != 530 {
		t.Errorf("TotalBytesAlloc = %d, want 530", stats.TotalBytesAlloc)
	}
	if stats.LargestAlloc != 500 {
		t.Errorf("LargestAlloc = %d, want 500", stats.LargestAlloc)
	}
}

func TestAllocFunc(t *testing.T) {
	a := New(32)
	fn := a.AllocFunc()

	if addr := fn(16); addr != 32 {
		t.Errorf("AllocFunc allocation at %d, want 32", addr)
	}
	if a.EOFAddr() != 48 {
		t.Errorf("EOF = %d, want 48", a.EOFAddr())
	}
}

func TestConcurrentAlloc(t *testing.T) {
	a := New(0)

	var wg sync.WaitGroup
	const workers = 8
	const perWorker = 100

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				a.Alloc(8)
			}
		}()
	}
	wg.Wait()

	if a.EOFAddr() != workers*perWorker*8 {
		t.Errorf("EOF = %d, want %d", a.EOFAddr(), workers*perWorker*8)
	}
	if err := a.Validate(); err != nil {
		t.Errorf("Validate failed after concurrent allocation: %v", err)
	}
}
