package symtab

// Flags selects a Finder's matching and traversal behavior (spec.md
// §4.3). RecurseUp and RecurseDown are mutually exclusive.
type Flags uint8

const (
	MatchName Flags = 1 << iota
	MatchKinds
	RecurseUp
	RecurseDown
)

// Finder is the single lookup primitive every name resolution in the
// compiler goes through. RecurseDown walks start's subtree depth-first
// pre-order (start counts as its own first candidate) — the query
// "find this symbol anywhere below here". RecurseUp treats start as a
// scope container: it scans start's own children (the declarations
// visible in that scope), then start.Parent's children, and so on —
// the query a name reference actually needs ("nearest enclosing scope
// that declares this name"), since the scope enclosing a reference is
// never itself a candidate, only what's declared in it (spec.md §4.3).
type Finder struct {
	Start   *Symbol
	Name    *Name
	Kinds   KindMask
	Flags   Flags
	current *Symbol // RecurseDown cursor
	container *Symbol // RecurseUp cursor: the scope whose children are being scanned
	started bool
}

// NewFinder builds a finder rooted at start with the given criteria.
func NewFinder(start *Symbol, name *Name, kinds KindMask, flags Flags) *Finder {
	return &Finder{Start: start, Name: name, Kinds: kinds, Flags: flags}
}

// Next advances the walk by one symbol and returns it, or nil when
// the walk is exhausted. Each call visits the next candidate node in
// traversal order and returns it only if it matches; non-matching
// nodes are skipped transparently within one Next() call.
func (f *Finder) Next() *Symbol {
	for {
		sym := f.advance()
		if sym == nil {
			return nil
		}
		if f.matches(sym) {
			return sym
		}
	}
}

func (f *Finder) matches(sym *Symbol) bool {
	if f.Flags&MatchName != 0 {
		if f.Name == nil || sym.Name != f.Name {
			return false
		}
	}
	if f.Flags&MatchKinds != 0 {
		if !f.Kinds.Has(sym.Kind) {
			return false
		}
	}
	return true
}

// advance moves to and returns the next node in traversal order,
// without applying match criteria, or nil at the end of the walk.
func (f *Finder) advance() *Symbol {
	if f.Flags&RecurseUp != 0 {
		return f.advanceUp()
	}
	if !f.started {
		f.started = true
		f.current = f.Start
		return f.current
	}
	if f.current == nil {
		return nil
	}
	if f.Flags&RecurseDown != 0 {
		f.current = nextDown(f.Start, f.current)
	} else {
		f.current = nil
	}
	return f.current
}

// advanceUp walks the container chain start, start.Parent, ...,
// yielding each container's children in order before moving up.
func (f *Finder) advanceUp() *Symbol {
	if !f.started {
		f.started = true
		f.container = f.Start
		f.current = nil
	}
	for f.container != nil {
		if f.current == nil {
			f.current = f.container.FirstChild
		} else {
			f.current = f.current.NextSibling
		}
		if f.current != nil {
			return f.current
		}
		f.container = f.container.Parent
	}
	return nil
}

// nextDown computes the next node in a depth-first pre-order walk of
// root's subtree after visiting cur.
func nextDown(root, cur *Symbol) *Symbol {
	if cur.FirstChild != nil {
		return cur.FirstChild
	}
	for cur != root {
		if cur.NextSibling != nil {
			return cur.NextSibling
		}
		cur = cur.Parent
		if cur == nil {
			return nil
		}
	}
	return nil
}

// Lookup finds the nearest enclosing scope (start, then start.Parent,
// and so on) that directly declares a symbol named name with one of
// kinds — the upvalue/variable resolution primitive.
func Lookup(start *Symbol, name *Name, kinds ...Kind) *Symbol {
	f := NewFinder(start, name, MaskOf(kinds...), MatchName|MatchKinds|RecurseUp)
	return f.Next()
}

// LookupChild is the downward equivalent: find the first descendant
// (including start itself) named name with one of kinds.
func LookupChild(start *Symbol, name *Name, kinds ...Kind) *Symbol {
	f := NewFinder(start, name, MaskOf(kinds...), MatchName|MatchKinds|RecurseDown)
	return f.Next()
}
