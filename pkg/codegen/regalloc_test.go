package codegen

import "testing"

func TestNewRegisterAllocatorAllFree(t *testing.T) {
	r := NewRegisterAllocator()
	if !r.IsFree(0) || !r.IsFree(255) {
		t.Fatalf("expected every register free on a new allocator")
	}
	if r.FrameSize() != 0 || r.CleanSize() != 0 {
		t.Fatalf("expected zero frame/clean size, got %d/%d", r.FrameSize(), r.CleanSize())
	}
}

func TestAllocTempLowestContiguousRun(t *testing.T) {
	r := NewRegisterAllocator()
	a := r.AllocTemp(2)
	if a != 0 {
		t.Fatalf("expected first alloc at 0, got %d", a)
	}
	r.Free(0, 1) // leave register 1 in use, free register 0
	b := r.AllocTemp(1)
	if b != 0 {
		t.Fatalf("expected the freed lowest register 0 reused, got %d", b)
	}
}

func TestAllocTempSkipsInUseRegisters(t *testing.T) {
	r := NewRegisterAllocator()
	r.AllocTemp(1)    // reg 0
	r.AllocVariable(1) // reg 1
	r.Free(0, 1)       // free reg 0 again, reg 1 stays Variable
	got := r.AllocTemp(2)
	if got != 2 {
		t.Fatalf("expected a 2-register run to skip the lone free reg 0, got %d", got)
	}
}

func TestAllocTopPlacesAboveHighWaterMark(t *testing.T) {
	r := NewRegisterAllocator()
	r.AllocTemp(3) // regs 0-2, maxUsed=3
	r.Free(0, 3)
	got := r.AllocTempTop(2)
	if got != 3 {
		t.Fatalf("expected alloc_top to ignore the free run below and place at 3, got %d", got)
	}
}

func TestAllocRegSpecificSlot(t *testing.T) {
	r := NewRegisterAllocator()
	r.AllocReg(10)
	if r.IsFree(10) {
		t.Fatalf("expected register 10 to be in use")
	}
}

func TestAllocRegAlreadyInUsePanics(t *testing.T) {
	r := NewRegisterAllocator()
	r.AllocReg(3)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic allocating an already-used register")
		}
	}()
	r.AllocReg(3)
}

func TestFrameSizeTracksHighWaterMark(t *testing.T) {
	r := NewRegisterAllocator()
	r.AllocTemp(4)
	r.Free(0, 4)
	if r.FrameSize() != 4 {
		t.Fatalf("expected frame size to retain the high water mark 4, got %d", r.FrameSize())
	}
}

func TestCleanSizeOnlyCountsVariableRegisters(t *testing.T) {
	r := NewRegisterAllocator()
	r.AllocTemp(5)
	if r.CleanSize() != 0 {
		t.Fatalf("expected Temporary allocations not to affect clean size, got %d", r.CleanSize())
	}
	r.Free(0, 5)
	r.AllocVariable(2)
	if r.CleanSize() != 2 {
		t.Fatalf("expected clean size 2 after allocating 2 Variable registers, got %d", r.CleanSize())
	}
	r.Free(0, 1)
	if r.CleanSize() != 2 {
		t.Fatalf("expected clean size to retain its running maximum of 2, got %d", r.CleanSize())
	}
}

func TestResetClearsAllState(t *testing.T) {
	r := NewRegisterAllocator()
	r.AllocVariable(3)
	r.Reset()
	if r.FrameSize() != 0 || r.CleanSize() != 0 || !r.IsFree(0) {
		t.Fatalf("expected Reset to fully clear allocator state")
	}
}

func TestIsVariableDistinguishesFromTemporary(t *testing.T) {
	r := NewRegisterAllocator()
	r.AllocTemp(1)
	r.AllocVariable(1)
	if r.IsVariable(0) {
		t.Fatalf("expected register 0 (Temporary) not reported as Variable")
	}
	if !r.IsVariable(1) {
		t.Fatalf("expected register 1 (Variable) reported as Variable")
	}
}
