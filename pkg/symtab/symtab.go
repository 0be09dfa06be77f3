// Package symtab implements EEL's symbol tree: a per-module namespace
// of tree-structured, parent/child/sibling-linked symbol tables, an
// interner for pointer-equality name matching, and the flag-driven
// Finder that is the single lookup primitive every name resolution in
// the compiler goes through (spec.md §4.3).
package symtab

import "sync"

// Kind is a symbol's role in the tree (spec.md §3).
type Kind uint8

const (
	Keyword Kind = iota
	Variable
	Upvalue
	Body
	Namespace
	Constant
	Class
	Module
	Function
	Operator
	kindCount
)

// KindMask is a bitmask over Kind values, used by Finder's MatchKinds.
type KindMask uint32

// Mask ORs k into the bitmask used by kind-matching finders.
func (k Kind) Mask() KindMask { return 1 << KindMask(k) }

// MaskOf builds a KindMask from a set of kinds.
func MaskOf(kinds ...Kind) KindMask {
	var m KindMask
	for _, k := range kinds {
		m |= k.Mask()
	}
	return m
}

func (m KindMask) Has(k Kind) bool { return m&k.Mask() != 0 }

// StorageKind is where a Variable-kind symbol's value actually lives
// (spec.md §3).
type StorageKind uint8

const (
	Stack StorageKind = iota
	Static
	Argument
	OptArg
	TupArg
)

// Name is an interned identifier. Two Names are the same identifier
// iff they are the same pointer (spec.md §4.3's "pointer-equality on
// interned string objects").
type Name struct {
	text string
}

func (n *Name) String() string {
	if n == nil {
		return ""
	}
	return n.text
}

// Interner hands out one *Name per distinct byte sequence, process-
// wide, so name comparisons elsewhere collapse to pointer equality
// (spec.md §5 "Interned strings are process-wide").
type Interner struct {
	mu    sync.Mutex
	table map[string]*Name
}

func NewInterner() *Interner {
	return &Interner{table: make(map[string]*Name)}
}

func (it *Interner) Intern(s string) *Name {
	it.mu.Lock()
	defer it.mu.Unlock()
	if n, ok := it.table[s]; ok {
		return n
	}
	n := &Name{text: s}
	it.table[s] = n
	return n
}

// Symbol is one tree node: parent/first-child/last-child/sibling
// links, a kind, an upvalue nesting level, and kind-specific payload
// fields (spec.md §3). Not every field is meaningful for every Kind;
// a single struct (rather than one type per Kind) matches the
// original's tagged-union symbol and keeps the tree-walking code in
// Finder blind to payload shape.
type Symbol struct {
	Name *Name
	Kind Kind

	Parent      *Symbol
	FirstChild  *Symbol
	LastChild   *Symbol
	NextSibling *Symbol
	PrevSibling *Symbol

	// UVLevel is the function-nesting depth at which this symbol was
	// declared; the difference between a reference's level and a
	// Variable symbol's UVLevel is the upvalue distance (spec.md §4.3).
	UVLevel int

	// Variable/Upvalue payload.
	Storage StorageKind
	Index   int // register, static index, or argument index depending on Storage

	// Constant payload (kind == Constant): the folded value.
	ConstValue interface{}

	// Class/Module/Function payload: a reference to the defining
	// object, resolved by the code generator / parser as needed.
	Object interface{}

	// Declaration marks a forward-declared Function symbol not yet
	// matched by a definition (spec.md §4.4).
	Declaration bool
	// Exported marks a symbol installed into its module's export
	// table.
	Exported bool
}

// Add creates a new child of parent with the given name and kind,
// appending it to parent's child list, and returns it.
func Add(parent *Symbol, name *Name, kind Kind) *Symbol {
	sym := &Symbol{Name: name, Kind: kind, Parent: parent}
	if parent == nil {
		return sym
	}
	sym.UVLevel = parent.UVLevel
	if kind == Function || kind == Body {
		// A function-kind symbol increments uv_level for its own
		// children (spec.md §4.3); bodies inherit a function's level
		// without incrementing further.
		if kind == Function {
			sym.UVLevel++
		}
	}
	if parent.LastChild == nil {
		parent.FirstChild = sym
	} else {
		parent.LastChild.NextSibling = sym
		sym.PrevSibling = parent.LastChild
	}
	parent.LastChild = sym
	return sym
}

// Rename changes sym's interned name.
func Rename(sym *Symbol, name *Name) { sym.Name = name }

// Free detaches sym from its parent's child list and recursively
// frees its children (spec.md §4.3). Symbols own their children and
// payload objects; this walks the subtree so any payload cleanup a
// caller layers on top (e.g. dropping an owned value.Value) can visit
// every node.
func Free(sym *Symbol) {
	if sym == nil {
		return
	}
	for c := sym.FirstChild; c != nil; {
		next := c.NextSibling
		Free(c)
		c = next
	}
	if sym.Parent != nil {
		if sym.PrevSibling != nil {
			sym.PrevSibling.NextSibling = sym.NextSibling
		} else {
			sym.Parent.FirstChild = sym.NextSibling
		}
		if sym.NextSibling != nil {
			sym.NextSibling.PrevSibling = sym.PrevSibling
		} else {
			sym.Parent.LastChild = sym.PrevSibling
		}
	}
	sym.FirstChild, sym.LastChild = nil, nil
	sym.NextSibling, sym.PrevSibling, sym.Parent = nil, nil, nil
}
