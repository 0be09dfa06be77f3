// Package value implements EEL's tagged-union Value type, its Object
// header and class payloads, and the dynamic operator dispatch table
// (spec.md §3 DATA MODEL, §4.7).
package value

import "math"

// Kind is the tag of a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindReal
	KindInteger
	KindBoolean
	KindClassId
	KindObjRef
	KindWeakRef
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindReal:
		return "real"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindClassId:
		return "classid"
	case KindObjRef:
		return "objref"
	case KindWeakRef:
		return "weakref"
	default:
		return "?"
	}
}

// Value is a tagged union, copied by assignment. ObjRef/WeakRef values
// participate in reference counting: Clone increments, Drop decrements
// (spec.md §3, §9 "Ref counting").
type Value struct {
	kind Kind
	num  uint64 // bit pattern: float64 bits (Real), int32 (Integer), 0/1 (Boolean), class id (ClassId)
	obj  *Object
}

var Nil = Value{kind: KindNil}

func RealValue(f float64) Value  { return Value{kind: KindReal, num: float64bits(f)} }
func IntegerValue(i int32) Value { return Value{kind: KindInteger, num: uint64(uint32(i))} }
func BooleanValue(b bool) Value {
	if b {
		return Value{kind: KindBoolean, num: 1}
	}
	return Value{kind: KindBoolean, num: 0}
}
func ClassIdValue(id ClassID) Value { return Value{kind: KindClassId, num: uint64(id)} }

// ObjRefValue wraps o as an owning reference. The caller transfers
// ownership of the one refcount o already carries (see Object.Ref for
// acquiring an additional one explicitly).
func ObjRefValue(o *Object) Value {
	if o == nil {
		return Nil
	}
	return Value{kind: KindObjRef, obj: o}
}

// WeakRefValue wraps o as a non-owning reference. Only storage
// locations that can hold a weak reference (static variables, index
// targets, per spec.md §4.4) should ever hold one.
func WeakRefValue(o *Object) Value {
	if o == nil {
		return Nil
	}
	return Value{kind: KindWeakRef, obj: o}
}

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsNil() bool     { return v.kind == KindNil }
func (v Value) IsObjRef() bool  { return v.kind == KindObjRef }
func (v Value) IsWeakRef() bool { return v.kind == KindWeakRef }
func (v Value) IsObject() bool  { return v.kind == KindObjRef || v.kind == KindWeakRef }
func (v Value) IsPrimitive() bool {
	return v.kind == KindNil || v.kind == KindReal || v.kind == KindInteger ||
		v.kind == KindBoolean || v.kind == KindClassId
}

func (v Value) Real() float64 {
	if v.kind != KindReal {
		return 0
	}
	return float64frombits(v.num)
}

func (v Value) Integer() int32 {
	switch v.kind {
	case KindInteger, KindClassId:
		return int32(uint32(v.num))
	case KindBoolean:
		return int32(v.num)
	default:
		return 0
	}
}

func (v Value) Boolean() bool { return v.kind == KindBoolean && v.num != 0 }

func (v Value) ClassId() ClassID { return ClassID(v.num) }

// Object returns the referenced Object for ObjRef/WeakRef values, or
// nil otherwise.
func (v Value) Object() *Object {
	if v.kind == KindObjRef || v.kind == KindWeakRef {
		return v.obj
	}
	return nil
}

// Truthy implements spec.md §4.7: Nil, Integer 0, Boolean false, Real
// 0.0 are false; any other primitive or any object reference is true.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindReal:
		return v.Real() != 0
	case KindInteger:
		return v.Integer() != 0
	case KindBoolean:
		return v.Boolean()
	case KindClassId:
		return true
	case KindObjRef, KindWeakRef:
		return v.obj != nil
	default:
		return false
	}
}

// Clone returns a copy of v, incrementing the target object's refcount
// when v is an owning ObjRef. WeakRef and primitive kinds are copied
// without any refcount effect.
func (v Value) Clone() Value {
	if v.kind == KindObjRef && v.obj != nil {
		v.obj.Ref()
	}
	return v
}

// Drop releases the reference v owns, if any. Call this exactly once
// per Value produced by Clone/ObjRefValue when the value's lifetime
// ends (constant pool teardown, register free, manipulator release).
func (v Value) Drop() {
	if v.kind == KindObjRef && v.obj != nil {
		v.obj.Unref()
	}
}

// Equal is primitive value-equality, used by the constant pool's
// value-equal deduplication (spec.md §4.5). Object equality for pool
// dedup goes through the class's EQ metamethod instead (operator.go).
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindReal, KindInteger, KindBoolean, KindClassId:
		return v.num == other.num
	case KindObjRef, KindWeakRef:
		return v.obj == other.obj
	default:
		return false
	}
}

func float64bits(f float64) uint64     { return math.Float64bits(f) }
func float64frombits(b uint64) float64 { return math.Float64frombits(b) }
