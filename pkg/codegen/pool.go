package codegen

import (
	"bytes"

	"eel/pkg/value"
)

// poolEntry pairs a constant with whether the pool itself owns the
// reference (spec.md §4.5): the pool owns any object constant except a
// function belonging to the same module, which the module owns
// instead and the pool only points at.
type poolEntry struct {
	v    value.Value
	owns bool
}

// ConstPool is a function's constant pool: append-only, deduplicated
// per spec.md §4.5's three rules — value-equal for primitives,
// pointer-equal for object constants in general, and structural
// (byte-for-byte / element-for-element) equal specifically for
// string, table, and vector constants, since those are exactly the
// classes a constant folder can produce two independent-but-identical
// instances of.
//
// value.Binary(OpEq, ...) isn't used for the structural case: as
// wired, it short-circuits straight to pointer identity for any
// object pair before ever consulting a class's EQ metamethod, so it
// can't tell two equal-but-distinct strings apart. Pool dedup needs
// that distinction, so it compares payloads directly instead.
type ConstPool struct {
	entries []poolEntry
}

// NewConstPool returns an empty constant pool.
func NewConstPool() *ConstPool {
	return &ConstPool{}
}

// Add interns v into the pool, returning its index. ownedByModule
// marks a same-module function constant: the pool stores a reference
// to it without cloning or later dropping it, since the module owns
// the one refcount that matters.
func (p *ConstPool) Add(v value.Value, ownedByModule bool) int {
	for i, e := range p.entries {
		if poolEqual(e.v, v) {
			return i
		}
	}
	owns := v.IsObjRef() && !ownedByModule
	stored := v
	if owns {
		stored = v.Clone()
	}
	p.entries = append(p.entries, poolEntry{v: stored, owns: owns})
	return len(p.entries) - 1
}

// Values returns the pool contents in index order, for
// FunctionData.Constants.
func (p *ConstPool) Values() []value.Value {
	out := make([]value.Value, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.v
	}
	return out
}

// Len reports how many constants the pool holds.
func (p *ConstPool) Len() int { return len(p.entries) }

// Release drops every reference the pool itself owns. Called once the
// function's FunctionData has been built and the pool is no longer
// needed, mirroring the module/pool object-lifetime handoff spec.md
// §4.5 and §9 describe.
func (p *ConstPool) Release() {
	for _, e := range p.entries {
		if e.owns {
			e.v.Drop()
		}
	}
	p.entries = nil
}

// poolEqual decides whether two values should collapse to one pool
// slot.
func poolEqual(a, b value.Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	if a.IsPrimitive() {
		return a.Equal(b)
	}
	oa, ob := a.Object(), b.Object()
	if oa == ob {
		return true
	}
	if oa == nil || ob == nil || oa.Class != ob.Class {
		return false
	}
	switch oa.Class {
	case value.ClassString:
		sa, oka := oa.Payload.(*value.StringData)
		sb, okb := ob.Payload.(*value.StringData)
		return oka && okb && bytes.Equal(sa.Bytes, sb.Bytes)
	case value.ClassVector:
		va, oka := oa.Payload.(*value.VectorData)
		vb, okb := ob.Payload.(*value.VectorData)
		return oka && okb && va.ElemKind == vb.ElemKind && bytes.Equal(va.Data, vb.Data)
	case value.ClassTable:
		ta, oka := oa.Payload.(*value.TableData)
		tb, okb := ob.Payload.(*value.TableData)
		return oka && okb && tableEqual(ta, tb)
	default:
		return false
	}
}

func tableEqual(a, b *value.TableData) bool {
	if a.Len() != b.Len() {
		return false
	}
	ak, bk := a.Keys(), b.Keys()
	for i, k := range ak {
		if !k.Equal(bk[i]) {
			return false
		}
		av, _ := a.Get(k)
		bv, _ := b.Get(bk[i])
		if !poolEqual(av, bv) {
			return false
		}
	}
	return true
}

// VarPool is a module's static-variable pool (spec.md §4.5): each
// "static" declaration claims the next slot, independent of any
// function's register frame, and every module-level reference to it
// (GETVAR/SETVAR) indexes the same slot regardless of which function
// reads or writes it.
type VarPool struct {
	names []string
}

// NewVarPool returns an empty module variable pool.
func NewVarPool() *VarPool {
	return &VarPool{}
}

// Alloc claims the next slot for a static variable named name (for
// diagnostics only; the pool carries no values at compile time) and
// returns its index.
func (p *VarPool) Alloc(name string) int {
	p.names = append(p.names, name)
	return len(p.names) - 1
}

// Len reports how many static variable slots the module has claimed.
func (p *VarPool) Len() int { return len(p.names) }

// Name returns the declared name backing slot idx, for diagnostics.
func (p *VarPool) Name(idx int) string {
	if idx < 0 || idx >= len(p.names) {
		return ""
	}
	return p.names[idx]
}
