package parser

import (
	"eel/pkg/codegen"
	"eel/pkg/events"
	"eel/pkg/opcode"
	"eel/pkg/symtab"
)

// CtxFlag is a bitmask of the legality/role markers spec.md §3's
// "Compiler context" names: what break/continue/repeat/export may
// legally target this context, and what its Pop must do.
type CtxFlag uint16

const (
	// Breakable marks a context break may target directly: loop
	// bodies and switch statements.
	Breakable CtxFlag = 1 << iota
	// Continuable marks a context continue may target: loop bodies.
	Continuable
	// Conditional marks an if/switch-case branch, pushed with
	// events.Conditional and awaiting a sibling Merge.
	Conditional
	// Repeatable marks a loop body repeat jumps straight back to,
	// bypassing the loop's test code.
	Repeatable
	// Catcher marks an except (or dummy-except) xblock's own context:
	// its register 0 is reserved as a Variable holding the thrown
	// value, per the original compiler's xblock setup.
	Catcher
	// Root marks a function's outermost context (its body, before
	// any nested block).
	Root
	// XBlock marks a try/except sub-function context: compiled as
	// its own nested function object, referenced from TRY/UNTRY.
	XBlock
	// Wrapped marks a context whose Pop must NOT emit CLEAN, because
	// the enclosing construct (e.g. a for-loop's own bookkeeping)
	// already owns register lifetime across iterations.
	Wrapped
	// Keep marks a body context whose initializations should persist
	// into the parent rather than being cleared on exit (spec.md
	// §4.6: a block that is the body of a function, not a transient
	// nested scope).
	Keep
)

// Has reports whether f includes flag.
func (f CtxFlag) Has(flag CtxFlag) bool { return f&flag != 0 }

// Context is one compiler context: a stack frame of parse state,
// distinct from (but always carrying) an events.Context, the event
// tracker pkg/events already implements. Pushed on entering a block,
// loop, conditional arm, or function body; popped on leaving it.
type Context struct {
	Parent *Context
	Flags  CtxFlag

	// Symtab is the symbol-tree scope new declarations in this
	// context attach under (pkg/symtab.Symbol acting as its own
	// scope node).
	Symtab *symtab.Symbol

	// Coder is the function-under-construction this context emits
	// into. Shared by every non-XBlock descendant context of the same
	// function; a fresh one is pushed when entering a nested
	// function or xblock.
	Coder *codegen.Coder

	// Module is the module this context's function belongs to,
	// carried down so nested contexts can resolve `export` and
	// cross-module symbol lookups without re-threading it through
	// every call.
	Module *ModuleInfo

	// Func is the function-under-construction bookkeeping for the
	// nearest enclosing Root context: arity, export/upvalue-usage
	// flags, and the forward-declaration symbol it completes, if any.
	Func *FuncBuild

	// LoopStart is the code position `repeat`/`continue` resolve
	// against: the position a loop's test-and-branch sequence begins
	// at, recorded when a Breakable/Continuable/Repeatable context is
	// pushed.
	LoopStart int

	// pendingBreaks/pendingContinues are branch positions awaiting a
	// SetJump once this context's end (resp. its loop-test code) is
	// known, one list per nested Breakable/Continuable ancestor.
	pendingBreaks    []int
	pendingContinues []int

	// creator is a short diagnostic tag naming the grammar rule that
	// pushed this context (e.g. "if", "while", "try"), surfaced in
	// internal-error messages only.
	creator string

	// level is this context's static nesting depth from the module
	// root, used for upvalue-level bookkeeping when a nested function
	// references an enclosing local.
	level int

	// interner hands out the synthetic scope names Push/PushFunction
	// need when opening a new symbol-tree child.
	interner *symtab.Interner
}

// NewFunctionContext starts a fresh function body: a new Coder, a new
// child symbol scope, Root set, and level reset to 0 relative to its
// own frame (upvalue levels count function nestings, not block
// nestings).
func NewFunctionContext(parentScope *symtab.Symbol, interner *symtab.Interner, module *ModuleInfo, fillDeadCode bool) *Context {
	scope := symtab.Add(parentScope, interner.Intern("<function>"), symtab.Function)
	return &Context{
		Flags:    Root,
		Symtab:   scope,
		Coder:    codegen.NewCoder(fillDeadCode),
		Module:   module,
		Func:     &FuncBuild{},
		interner: interner,
	}
}

// Push creates a child context sharing this one's Coder and Module,
// opening a new symbol scope beneath Symtab. kind selects the
// events.Context disposition Coder.PushScope uses.
func (c *Context) Push(creator string, flags CtxFlag, kind events.Kind) *Context {
	c.Coder.PushScope(kind)
	scope := symtab.Add(c.Symtab, c.interner.Intern("<"+creator+">"), symtab.Body)
	return &Context{
		Parent:   c,
		Flags:    flags,
		Symtab:   scope,
		Coder:    c.Coder,
		Module:   c.Module,
		Func:     c.Func,
		creator:  creator,
		level:    c.level,
		interner: c.interner,
	}
}

// PushFunction starts a nested named function (a closure or an
// xblock's sub-function): its own Coder, level bumped by one, an
// otherwise-independent context tree rooted at scope. Root and Keep
// are set, so leaving the function body emits no CLEAN.
func (c *Context) PushFunction(creator string, flags CtxFlag, scope *symtab.Symbol, fillDeadCode bool) *Context {
	return &Context{
		Parent:   c,
		Flags:    flags | Root | Keep,
		Symtab:   scope,
		Coder:    codegen.NewCoder(fillDeadCode),
		Module:   c.Module,
		Func:     &FuncBuild{},
		creator:  creator,
		level:    c.level + 1,
		interner: c.interner,
	}
}

// Pop leaves c, emitting CLEAN for the frame's Variable registers
// unless Keep or Wrapped is set, folding c's events back into
// the parent via Coder.PopScope, and returning the parent context.
func (c *Context) Pop(line int) *Context {
	if !c.Flags.Has(Keep) && !c.Flags.Has(Wrapped) {
		c.emitClean(line)
	}
	c.Coder.PopScope()
	return c.Parent
}

// emitClean emits a CLEAN covering the frame's running Variable-register
// count (Regs.CleanSize), per spec.md §4.6: leaving
// a context clears its local Variable-kind registers in the parent,
// unless the leaving context is a body whose initializations should
// persist.
func (c *Context) emitClean(line int) {
	n := c.Coder.Regs.CleanSize()
	if n > 0 {
		c.Coder.Emit(opcode.OpClean, line, int32(n))
	}
}

// breakableAncestor walks up to the nearest Breakable context, or nil
// if break is used outside any loop/switch.
func (c *Context) breakableAncestor() *Context {
	for ctx := c; ctx != nil; ctx = ctx.Parent {
		if ctx.Flags.Has(Breakable) {
			return ctx
		}
	}
	return nil
}

// continuableAncestor walks up to the nearest Continuable context, or
// nil if continue is used outside any loop.
func (c *Context) continuableAncestor() *Context {
	for ctx := c; ctx != nil; ctx = ctx.Parent {
		if ctx.Flags.Has(Continuable) {
			return ctx
		}
	}
	return nil
}

// repeatableAncestor walks up to the nearest Repeatable context, or
// nil if repeat is used outside any loop.
func (c *Context) repeatableAncestor() *Context {
	for ctx := c; ctx != nil; ctx = ctx.Parent {
		if ctx.Flags.Has(Repeatable) {
			return ctx
		}
	}
	return nil
}

// functionRoot walks up to the nearest Root context: the current
// function's outermost context, for `return`'s event bookkeeping and
// for resolving upvalue levels.
func (c *Context) functionRoot() *Context {
	for ctx := c; ctx != nil; ctx = ctx.Parent {
		if ctx.Flags.Has(Root) {
			return ctx
		}
	}
	return c
}
