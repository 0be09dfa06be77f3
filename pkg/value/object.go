package value

import "sync/atomic"

// ClassID identifies an object's class. The built-in classes below are
// the ones this core's spec names (spec.md §3); user-defined classes
// (via ClassDef) get IDs allocated above ClassUserBase by the runtime,
// which is out of this core's scope.
type ClassID int32

const (
	ClassString ClassID = iota
	ClassFunction
	ClassModule
	ClassTable
	ClassArray
	ClassVector
	ClassClassDef
	ClassUserBase
)

// Object is the uniform header shared by every heap object: a class id
// and a refcount, followed by a class-specific Payload (spec.md §3).
// The runtime's "vm pointer" field from the original design is omitted:
// this core never dereferences it, and carrying one here would just be
// dead weight the compiler-only build can't exercise.
type Object struct {
	Class    ClassID
	refcount int32
	Payload  interface{}
}

// NewObject allocates an Object with an initial refcount of 1 (the
// reference the caller receives back from the constructor).
func NewObject(class ClassID, payload interface{}) *Object {
	return &Object{Class: class, refcount: 1, Payload: payload}
}

// Ref increments the refcount and returns o, so call sites read as
// `dest = src.Ref()` at an ownership-transfer boundary.
func (o *Object) Ref() *Object {
	atomic.AddInt32(&o.refcount, 1)
	return o
}

// Unref decrements the refcount. It returns true the first time the
// count reaches zero, so a caller can run class-specific teardown
// exactly once (spec.md §9 "Ref counting").
func (o *Object) Unref() bool {
	return atomic.AddInt32(&o.refcount, -1) == 0
}

// RefCount reports the current count, mainly for invariant assertions
// in tests (spec.md §8's module refsum comparisons).
func (o *Object) RefCount() int32 { return atomic.LoadInt32(&o.refcount) }

// --- Class payloads (spec.md §3) ---

// StringData is an immutable byte sequence. String objects are not
// interned: NewString allocates a fresh Object on every call, even for
// equal bytes.
type StringData struct {
	Bytes []byte
}

func NewString(s string) *Object {
	return NewObject(ClassString, &StringData{Bytes: []byte(s)})
}

func (s *StringData) String() string { return string(s.Bytes) }

// FunctionFlags are the call-contract and provenance flags a Function
// carries (spec.md §3).
type FunctionFlags uint16

const (
	FlagCFunc FunctionFlags = 1 << iota
	FlagArgs
	FlagResults
	FlagUpvalues
	FlagXBlock      // exception-handler sub-function (try/except)
	FlagExport      // exported from its module
	FlagDeclaration // forward declaration only, not yet defined
	FlagRoot        // module's __init_module
)

// NativeFunc is the signature for a C-function-equivalent callback.
// The VM that would invoke this is out of this core's scope; the type
// exists so Function can represent either call form per spec.md §3.
type NativeFunc func(args []Value) (Value, error)

// FunctionData is the Function object payload: either a native
// callback or a bytecode body, per spec.md §3's invariants.
type FunctionData struct {
	Name string

	// Bytecode form.
	Code      []byte
	Lines     []int // one entry per instruction, parallel to Code's instruction stream
	Constants []Value
	Module    *Object // defining module; not owned (module owns its functions)

	FrameSize int // number of registers (framesize)
	CleanSize int // number of Variable registers needing CLEAN on exit

	ReqArgs  int
	OptArgs  int
	TupArgs  int
	Results  int
	Flags    FunctionFlags

	// Native form.
	Native NativeFunc
}

func NewFunction(fd *FunctionData) *Object {
	return NewObject(ClassFunction, fd)
}

func (f *FunctionData) IsNative() bool { return f.Flags&FlagCFunc != 0 }

// InstructionCount returns how many instructions Code encodes,
// independent of encoding, derived purely from len(Lines) — the
// invariant spec.md §8 checks is that these two always agree.
func (f *FunctionData) InstructionCount() int { return len(f.Lines) }

// ModuleData is the Module object payload (spec.md §3).
type ModuleData struct {
	Name      string
	Exports   *TableData
	Variables []Value
	Objects   []*Object // objects created during compilation, for deterministic teardown
	RefSum    int32     // -1 while compiling; post-compile refcount afterward
}

func NewModule(name string) *Object {
	return NewObject(ClassModule, &ModuleData{
		Name:    name,
		Exports: NewTableData(),
		RefSum:  -1,
	})
}

// TableData is an ordered mapping from Value to Value with unique keys
// (spec.md §3). Insertion order is preserved for iteration; lookup is
// O(1) via an index into the parallel key/value slices.
type TableData struct {
	keys   []Value
	vals   []Value
	index  map[Value]int
}

func NewTableData() *TableData {
	return &TableData{index: make(map[Value]int)}
}

func (t *TableData) Get(key Value) (Value, bool) {
	if i, ok := t.index[key]; ok {
		return t.vals[i], true
	}
	return Nil, false
}

// Set inserts or updates key → val, preserving the position of an
// existing key.
func (t *TableData) Set(key, val Value) {
	if i, ok := t.index[key]; ok {
		t.vals[i] = val
		return
	}
	t.index[key] = len(t.keys)
	t.keys = append(t.keys, key)
	t.vals = append(t.vals, val)
}

func (t *TableData) Len() int { return len(t.keys) }

// Keys returns the keys in insertion order.
func (t *TableData) Keys() []Value { return t.keys }

func (t *TableData) Delete(key Value) bool {
	i, ok := t.index[key]
	if !ok {
		return false
	}
	delete(t.index, key)
	t.keys = append(t.keys[:i], t.keys[i+1:]...)
	t.vals = append(t.vals[:i], t.vals[i+1:]...)
	for k, idx := range t.index {
		if idx > i {
			t.index[k] = idx - 1
		}
	}
	return true
}

func NewTable() *Object { return NewObject(ClassTable, NewTableData()) }

// ArrayData is a dense, mutable sequence of Values.
type ArrayData struct {
	Elements []Value
}

func NewArray() *Object { return NewObject(ClassArray, &ArrayData{}) }

func (a *ArrayData) Len() int { return len(a.Elements) }

// VectorElemKind is one of the eight numeric element types a Vector
// can hold (spec.md §3).
type VectorElemKind uint8

const (
	VecS8 VectorElemKind = iota
	VecU8
	VecS16
	VecU16
	VecS32
	VecU32
	VecF32
	VecF64
)

func (k VectorElemKind) ElemSize() int {
	switch k {
	case VecS8, VecU8:
		return 1
	case VecS16, VecU16:
		return 2
	case VecS32, VecU32, VecF32:
		return 4
	case VecF64:
		return 8
	default:
		return 0
	}
}

// VectorData is a homogeneous numeric buffer. The core only needs its
// shape (element kind + length) to be a legal operand target for
// SizeOf/CastX/indexing; arithmetic over vectors is a VM/stdlib concern
// (spec.md §1 Non-goals) and is not implemented here.
type VectorData struct {
	ElemKind VectorElemKind
	Data     []byte
}

func (v *VectorData) Len() int {
	if sz := v.ElemKind.ElemSize(); sz > 0 {
		return len(v.Data) / sz
	}
	return 0
}

func NewVector(kind VectorElemKind, length int) *Object {
	return NewObject(ClassVector, &VectorData{ElemKind: kind, Data: make([]byte, length*kind.ElemSize())})
}

// ClassDef is the per-class descriptor: its name, id, and metamethod
// table (spec.md §3, §4.7).
type ClassDef struct {
	Name        string
	ID          ClassID
	Metamethods map[MetamethodKey]Metamethod
}

func NewClassDef(name string, id ClassID) *ClassDef {
	return &ClassDef{Name: name, ID: id, Metamethods: make(map[MetamethodKey]Metamethod)}
}

func NewClassDefObject(name string, id ClassID) *Object {
	return NewObject(ClassClassDef, NewClassDef(name, id))
}

func (cd *ClassDef) Install(op OperatorID, inplace bool, fn Metamethod) {
	cd.Metamethods[MetamethodKey{Op: op, InPlace: inplace}] = fn
}

func (cd *ClassDef) Lookup(op OperatorID, inplace bool) (Metamethod, bool) {
	fn, ok := cd.Metamethods[MetamethodKey{Op: op, InPlace: inplace}]
	return fn, ok
}
