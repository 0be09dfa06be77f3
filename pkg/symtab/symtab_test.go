package symtab

import "testing"

func TestInternerPointerEquality(t *testing.T) {
	it := NewInterner()
	a := it.Intern("foo")
	b := it.Intern("foo")
	if a != b {
		t.Fatal("expected same pointer for equal strings")
	}
	c := it.Intern("bar")
	if a == c {
		t.Fatal("expected different pointers for different strings")
	}
}

func TestAddBuildsChildList(t *testing.T) {
	it := NewInterner()
	root := Add(nil, it.Intern("root"), Namespace)
	x := Add(root, it.Intern("x"), Variable)
	y := Add(root, it.Intern("y"), Variable)
	if root.FirstChild != x || root.LastChild != y {
		t.Fatal("expected x first, y last")
	}
	if x.NextSibling != y || y.PrevSibling != x {
		t.Fatal("expected sibling links set")
	}
}

func TestUVLevelIncrementsPerFunction(t *testing.T) {
	it := NewInterner()
	root := Add(nil, it.Intern("root"), Namespace)
	fn := Add(root, it.Intern("f"), Function)
	if fn.UVLevel != root.UVLevel+1 {
		t.Fatalf("expected function to increment uv_level, got %d vs %d", fn.UVLevel, root.UVLevel)
	}
	inner := Add(fn, it.Intern("x"), Variable)
	if inner.UVLevel != fn.UVLevel {
		t.Fatalf("expected non-function child to inherit uv_level, got %d vs %d", inner.UVLevel, fn.UVLevel)
	}
}

func TestFreeDetachesAndRecurses(t *testing.T) {
	it := NewInterner()
	root := Add(nil, it.Intern("root"), Namespace)
	x := Add(root, it.Intern("x"), Variable)
	_ = Add(x, it.Intern("inner"), Variable)
	y := Add(root, it.Intern("y"), Variable)
	Free(x)
	if root.FirstChild != y || root.LastChild != y {
		t.Fatalf("expected only y to remain after freeing x")
	}
	if y.PrevSibling != nil {
		t.Fatal("expected y's prev sibling link cleared")
	}
}

func TestFinderDownFindsDescendantByName(t *testing.T) {
	it := NewInterner()
	root := Add(nil, it.Intern("root"), Namespace)
	a := Add(root, it.Intern("a"), Body)
	target := Add(a, it.Intern("needle"), Variable)
	_ = Add(root, it.Intern("b"), Body)

	found := LookupChild(root, it.Intern("needle"), Variable)
	if found != target {
		t.Fatalf("expected to find needle, got %v", found)
	}
}

func TestFinderUpWalksToAncestor(t *testing.T) {
	it := NewInterner()
	root := Add(nil, it.Intern("root"), Namespace)
	outerVar := Add(root, it.Intern("shared"), Variable)
	fn := Add(root, it.Intern("f"), Function)
	inner := Add(fn, it.Intern("inner"), Variable)

	found := Lookup(inner, it.Intern("shared"), Variable)
	if found != outerVar {
		t.Fatalf("expected to find outer variable via upward walk, got %v", found)
	}
}

func TestFinderMatchKindsOnly(t *testing.T) {
	it := NewInterner()
	root := Add(nil, it.Intern("root"), Namespace)
	Add(root, it.Intern("v"), Variable)
	fn := Add(root, it.Intern("f"), Function)

	f := NewFinder(root, nil, MaskOf(Function), MatchKinds|RecurseDown)
	found := f.Next()
	if found != fn {
		t.Fatalf("expected to find the function symbol, got %v", found)
	}
	if f.Next() != nil {
		t.Fatal("expected only one function symbol in the tree")
	}
}

func TestKindMask(t *testing.T) {
	m := MaskOf(Function, Class)
	if !m.Has(Function) || !m.Has(Class) {
		t.Fatal("expected mask to contain both kinds")
	}
	if m.Has(Variable) {
		t.Fatal("expected mask not to contain Variable")
	}
}
