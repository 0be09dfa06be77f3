// Package events implements the compiler's per-context event lists:
// the Exit/Return/Result/Target cells plus one cell per register,
// used to detect dead code, enforce "no use before init", and
// propagate break targets across nested control constructs
// (spec.md §4.6).
package events

import "fmt"

// State is the three-valued lattice an event cell lives in. Maybe is
// the join of No and Yes; combining two cells takes the max under the
// order No < Maybe < Yes.
type State uint8

const (
	No State = iota
	Maybe
	Yes
)

func (s State) String() string {
	switch s {
	case No:
		return "No"
	case Maybe:
		return "Maybe"
	case Yes:
		return "Yes"
	default:
		return "?"
	}
}

// max returns the join of two states on the No < Maybe < Yes lattice.
func max(a, b State) State {
	if a > b {
		return a
	}
	return b
}

// MaxReg bounds the register-cell array: registers are addressed by a
// single unsigned byte in most instruction layouts (spec.md §4.5), so
// a frame can never exceed 256 registers.
const MaxReg = 256

// List is one context's event list: the four named cells, the
// per-register initialization cells, and the break-depth counters
// (spec.md §4.6).
type List struct {
	Exit   State
	Return State
	Result State
	Target State
	Regs   [MaxReg]State

	BreakTo      int
	MaybeBreakTo int
}

// Kind classifies how a context's event list is disposed of when the
// context is popped (spec.md §4.6 "Context pop behaviour").
type Kind uint8

const (
	// Conditional contexts: if/else branches, switch cases, loop
	// bodies. Their list moves up as a sibling for later merge().
	Conditional Kind = iota
	// NonConditional contexts merge directly into the parent.
	NonConditional
	// Function contexts discard everything except Return/Result
	// leaking from an xblock (try/except).
	Function
)

// Context is one compiler context's live event-tracking state, linked
// to its parent to support the ancestor-walking test_* queries.
type Context struct {
	Kind   Kind
	Events *List
	Parent *Context
	depth  int

	// Siblings accumulates the popped event lists of nested
	// conditional sub-contexts (if-branch, else-branch, each case)
	// awaiting Merge.
	Siblings []*List

	// declaredInCtx marks register indices declared directly inside
	// this context, so a conditional pop can drop their init cells
	// per spec.md §4.6 ("register-init events that refer to variables
	// declared inside the context are dropped").
	declaredInCtx map[int]bool
}

// NewRoot creates the outermost (function-level) context.
func NewRoot() *Context {
	return &Context{Kind: Function, Events: &List{}, declaredInCtx: map[int]bool{}}
}

// Push creates a child context of the given kind.
func (c *Context) Push(kind Kind) *Context {
	return &Context{
		Kind:          kind,
		Events:        &List{},
		Parent:        c,
		depth:         c.depth + 1,
		declaredInCtx: map[int]bool{},
	}
}

// Exit records that this context's statement sequence exits
// unconditionally (e.g. after a return/break/throw/continue).
func (c *Context) Exit() { c.Events.Exit = Yes }

// Return records a return statement.
func (c *Context) Return() { c.Events.Return = Yes }

// Result records a result-producing statement (spec.md's Result
// event, distinct from Return: used by expression-context functions).
func (c *Context) Result() { c.Events.Result = Yes }

// Target records that a backward jump may land at the current
// position, re-enabling code emission after a prior Exit.
func (c *Context) Target() { c.Events.Target = Yes }

// DeclareReg marks reg as declared directly within this context, so a
// conditional-context pop knows to drop its init cell rather than
// propagate it to the parent.
func (c *Context) DeclareReg(reg int) { c.declaredInCtx[reg] = true }

// Init marks reg as initialized. It is an internal invariant
// violation (panics — never expected from correct caller use) to
// init a register already marked Yes, or to pass a register outside
// [0, MaxReg).
func (c *Context) Init(reg int) {
	if reg < 0 || reg >= MaxReg {
		panic(fmt.Sprintf("events: register %d out of range", reg))
	}
	if c.Events.Regs[reg] == Yes {
		panic(fmt.Sprintf("events: register %d already initialized", reg))
	}
	c.Events.Regs[reg] = Yes
}

// Break records that a break has escaped to the context `target`,
// `target`'s depth levels up from c. The recorded break_to is the
// number of levels actually crossed; MaybeBreak records maybe_break_to
// instead when the break is only conditionally reached. A Conditional
// pop lowers each count by one level and never moves one into the other.
func (c *Context) Break(target *Context) {
	levels := c.depth - target.depth
	if levels > c.Events.BreakTo {
		c.Events.BreakTo = levels
	}
}

// MaybeBreak records a conditionally-reachable break, mirroring Break
// but updating maybe_break_to.
func (c *Context) MaybeBreak(target *Context) {
	levels := c.depth - target.depth
	if levels > c.Events.MaybeBreakTo {
		c.Events.MaybeBreakTo = levels
	}
}

// Pop disposes of c's event list into its parent according to c.Kind
// and returns the parent (spec.md §4.6 "Context pop behaviour").
func (c *Context) Pop() *Context {
	p := c.Parent
	if p == nil {
		return nil
	}
	switch c.Kind {
	case Conditional:
		moved := *c.Events
		moved.Exit = No
		moved.Target = No
		for reg := range c.declaredInCtx {
			moved.Regs[reg] = No
		}
		if moved.BreakTo > 0 {
			moved.BreakTo--
		}
		if moved.MaybeBreakTo > 0 {
			moved.MaybeBreakTo--
		}
		p.Siblings = append(p.Siblings, &moved)
	case NonConditional:
		mergeInto(p.Events, c.Events)
	case Function:
		result := &List{Return: c.Events.Return, Result: c.Events.Result}
		mergeInto(p.Events, result)
	}
	return p
}

// mergeInto folds src's cells into dst by taking the per-cell max,
// per spec.md §4.6's non-conditional merge rule.
func mergeInto(dst, src *List) {
	dst.Exit = max(dst.Exit, src.Exit)
	dst.Return = max(dst.Return, src.Return)
	dst.Result = max(dst.Result, src.Result)
	dst.Target = max(dst.Target, src.Target)
	for i := range dst.Regs {
		dst.Regs[i] = max(dst.Regs[i], src.Regs[i])
	}
	if src.BreakTo > dst.BreakTo {
		dst.BreakTo = src.BreakTo
	}
	if src.MaybeBreakTo > dst.MaybeBreakTo {
		dst.MaybeBreakTo = src.MaybeBreakTo
	}
}

// Modulator is the branch-group modality Merge clamps its combined
// result by (spec.md §4.6): Yes when every possible path was actually
// represented among the siblings (e.g. if/else with both arms), Maybe
// otherwise (e.g. if without else, or a loop that may run zero or
// more than one iteration).
type Modulator = State

// Merge combines c's accumulated Siblings (each produced by a
// Conditional child's Pop) into a single event list, replacing c's
// own Events, then clears Siblings. For each cell: summing N
// Yes-cells against the sibling count decides No/Yes/Maybe, then the
// result is clamped by modulator.
func (c *Context) Merge(modulator Modulator) {
	n := len(c.Siblings)
	if n == 0 {
		return
	}
	combined := &List{}
	combined.Exit = combineCell(cellValues(c.Siblings, func(l *List) State { return l.Exit }), n)
	combined.Return = combineCell(cellValues(c.Siblings, func(l *List) State { return l.Return }), n)
	combined.Result = combineCell(cellValues(c.Siblings, func(l *List) State { return l.Result }), n)
	combined.Target = combineCell(cellValues(c.Siblings, func(l *List) State { return l.Target }), n)
	for reg := 0; reg < MaxReg; reg++ {
		vals := make([]State, n)
		for i, s := range c.Siblings {
			vals[i] = s.Regs[reg]
		}
		combined.Regs[reg] = combineCell(vals, n)
	}
	for _, s := range c.Siblings {
		if s.BreakTo > combined.BreakTo {
			combined.BreakTo = s.BreakTo
		}
		if s.MaybeBreakTo > combined.MaybeBreakTo {
			combined.MaybeBreakTo = s.MaybeBreakTo
		}
	}
	clamp(combined, modulator)
	mergeInto(c.Events, combined)
	c.Siblings = nil
}

func cellValues(lists []*List, get func(*List) State) []State {
	vals := make([]State, len(lists))
	for i, l := range lists {
		vals[i] = get(l)
	}
	return vals
}

// combineCell applies spec.md §4.6's rule: all No -> No, all Yes -> Yes,
// anything else -> Maybe.
func combineCell(vals []State, n int) State {
	yesCount := 0
	noCount := 0
	for _, v := range vals {
		switch v {
		case Yes:
			yesCount++
		case No:
			noCount++
		}
	}
	switch {
	case noCount == n:
		return No
	case yesCount == n:
		return Yes
	default:
		return Maybe
	}
}

// clamp lowers every Yes cell in l to modulator when modulator is
// Maybe, since a conditionally-taken branch group can never promise
// more than Maybe even if every observed sibling agreed on Yes.
func clamp(l *List, modulator Modulator) {
	if modulator == Yes {
		return
	}
	capAt := func(s State) State {
		if s > modulator {
			return modulator
		}
		return s
	}
	l.Exit = capAt(l.Exit)
	l.Return = capAt(l.Return)
	l.Result = capAt(l.Result)
	l.Target = capAt(l.Target)
	for i := range l.Regs {
		l.Regs[i] = capAt(l.Regs[i])
	}
}

// TestExit computes spec.md's test_exit(): the combined Exit/Return
// across the current function, modulated by Target (a backward jump
// target clears Exit back to No, since code at that position is
// reachable again regardless of what preceded it).
func (c *Context) TestExit() State {
	cur := c
	combined := No
	for cur != nil {
		if cur.Events.Target == Yes {
			return No
		}
		combined = max(combined, max(cur.Events.Exit, cur.Events.Return))
		if cur.Kind == Function {
			break
		}
		cur = cur.Parent
	}
	return combined
}

// TestInit returns reg's initialization state by walking ancestors up
// to (and including) the enclosing function context.
func (c *Context) TestInit(reg int) State {
	cur := c
	for cur != nil {
		if s := cur.Events.Regs[reg]; s != No {
			return s
		}
		if cur.Kind == Function {
			break
		}
		cur = cur.Parent
	}
	return No
}

// TestResult returns the Result event across ancestors up to the
// enclosing function.
func (c *Context) TestResult() State {
	cur := c
	result := No
	for cur != nil {
		result = max(result, cur.Events.Result)
		if cur.Kind == Function {
			break
		}
		cur = cur.Parent
	}
	return result
}
