package codegen

import (
	"testing"

	"eel/pkg/value"
)

func TestConstPoolDedupesPrimitivesByValue(t *testing.T) {
	p := NewConstPool()
	i1 := p.Add(value.RealValue(3.5), false)
	i2 := p.Add(value.RealValue(3.5), false)
	if i1 != i2 {
		t.Fatalf("expected two equal reals to dedup to the same slot, got %d and %d", i1, i2)
	}
	if p.Len() != 1 {
		t.Fatalf("expected pool length 1, got %d", p.Len())
	}
}

func TestConstPoolDedupesStringsStructurally(t *testing.T) {
	p := NewConstPool()
	a := value.ObjRefValue(value.NewString("hello"))
	b := value.ObjRefValue(value.NewString("hello"))
	i1 := p.Add(a, false)
	i2 := p.Add(b, false)
	if i1 != i2 {
		t.Fatalf("expected two distinct-but-equal string objects to dedup, got %d and %d", i1, i2)
	}
}

func TestConstPoolKeepsDistinctStringsSeparate(t *testing.T) {
	p := NewConstPool()
	i1 := p.Add(value.ObjRefValue(value.NewString("a")), false)
	i2 := p.Add(value.ObjRefValue(value.NewString("b")), false)
	if i1 == i2 {
		t.Fatalf("expected distinct strings to occupy distinct slots")
	}
}

func TestConstPoolObjectConstantsDedupByPointer(t *testing.T) {
	p := NewConstPool()
	fnA := value.NewFunction(&value.FunctionData{Name: "a"})
	fnB := value.NewFunction(&value.FunctionData{Name: "a"})
	i1 := p.Add(value.ObjRefValue(fnA), false)
	i2 := p.Add(value.ObjRefValue(fnB), false)
	if i1 == i2 {
		t.Fatalf("expected two distinct function objects to occupy distinct slots despite equal names")
	}
}

func TestConstPoolSameModuleFunctionNotOwned(t *testing.T) {
	p := NewConstPool()
	fn := value.NewFunction(&value.FunctionData{Name: "f"})
	before := fn.RefCount()
	p.Add(value.ObjRefValue(fn), true)
	if fn.RefCount() != before {
		t.Fatalf("expected a same-module function reference not to be cloned, refcount changed from %d to %d", before, fn.RefCount())
	}
}

func TestConstPoolOwnedObjectIsClonedAndReleased(t *testing.T) {
	p := NewConstPool()
	s := value.NewString("owned")
	v := value.ObjRefValue(s)
	before := s.RefCount()
	p.Add(v, false)
	if s.RefCount() != before+1 {
		t.Fatalf("expected Add to clone (ref) an owned object constant, refcount %d -> %d", before, s.RefCount())
	}
	p.Release()
	if s.RefCount() != before {
		t.Fatalf("expected Release to drop the pool's owned reference, refcount back to %d, got %d", before, s.RefCount())
	}
}

func TestVarPoolAllocatesSequentialSlots(t *testing.T) {
	vp := NewVarPool()
	i1 := vp.Alloc("x")
	i2 := vp.Alloc("y")
	if i1 != 0 || i2 != 1 {
		t.Fatalf("expected sequential slots 0,1, got %d,%d", i1, i2)
	}
	if vp.Name(0) != "x" || vp.Name(1) != "y" {
		t.Fatalf("expected slot names preserved, got %q, %q", vp.Name(0), vp.Name(1))
	}
}
