package parser

import (
	"eel/pkg/codegen"
	"eel/pkg/errors"
	"eel/pkg/lexer"
	"eel/pkg/source"
	"eel/pkg/symtab"
	"eel/pkg/value"
)

// ModuleInfo tracks the module object under construction: its runtime
// Module payload, the root symbol-tree namespace new top-level
// declarations attach under, and the Function objects compiled so far
// (spec.md §3, §9 "cyclic module/function references" — functions
// defined in this module are strong owned references from Functions;
// a reference to another module's function is a borrow the VM/loader
// resolves, out of this core's scope).
type ModuleInfo struct {
	Object    *value.Object
	Data      *value.ModuleData
	RootScope *symtab.Symbol
	Functions []*value.Object

	// Vars allocates the Static storage slots `static`/`constant`
	// declarations and function definitions claim (pkg/codegen's
	// VarPool), independent of any one function's register file.
	Vars *codegen.VarPool

	// pendingForward holds forward-declared (FlagDeclaration) function
	// symbols awaiting their matching definition, so ParseModule can
	// report any left unfulfilled once the body has been parsed in
	// full (spec.md §4.4).
	pendingForward map[*symtab.Symbol]bool
}

// NewModuleInfo allocates a module object named name (possibly "",
// when the source carries no `module Name;` header) rooted at a fresh
// Namespace-kind symbol under keywordRoot.
func NewModuleInfo(name string, keywordRoot *symtab.Symbol, interner *symtab.Interner) *ModuleInfo {
	obj := value.NewModule(name)
	root := symtab.Add(keywordRoot, interner.Intern("<module>"), symtab.Namespace)
	return &ModuleInfo{
		Object:         obj,
		Data:           obj.Payload.(*value.ModuleData),
		RootScope:      root,
		Vars:           codegen.NewVarPool(),
		pendingForward: map[*symtab.Symbol]bool{},
	}
}

// Parser is the recursive-descent driver over one module's source: it
// holds the shared lexer, interner, and error/warning sinks, plus the
// Context stack the grammar rules push and pop as they enter and
// leave scopes (spec.md §4.4). Unlike an AST-building parser, a
// Parser's methods mutate Context/Coder state and emit code directly;
// their return value is a *Manipulator (the rule-result token spec.md
// §4.4 calls for), never a syntax tree node.
type Parser struct {
	Lex      *lexer.Lexer
	Interner *symtab.Interner
	File     *source.SourceFile

	Module *ModuleInfo
	ctx    *Context

	fillDeadCode bool
	peephole     bool

	cur     lexer.Token
	curLine int

	Errors   []errors.CompilerError
	Warnings []*errors.Warning
}

// New builds a Parser over file, bootstrapping the keyword/operator
// vocabulary fresh so this module's symbol tree starts from the same
// root every compile does.
func New(file *source.SourceFile, tabSize int, fillDeadCode, peephole bool) *Parser {
	interner := symtab.NewInterner()
	keywordRoot := &symtab.Symbol{Name: interner.Intern("<root>"), Kind: symtab.Namespace}
	lexer.Bootstrap(keywordRoot, interner)

	module := NewModuleInfo("", keywordRoot, interner)
	lx := lexer.New(file, tabSize, module.RootScope, interner)

	return &Parser{
		Lex:          lx,
		Interner:     interner,
		File:         file,
		Module:       module,
		fillDeadCode: fillDeadCode,
		peephole:     peephole,
	}
}

// Coder returns the Coder the current context emits into.
func (p *Parser) Coder() *codegen.Coder { return p.ctx.Coder }

// posAt builds a best-effort Position for a line number already
// decided (the common case: a Manipulator operation deep inside an
// expression that only ever threaded a line number through, not a
// byte offset). Diagnostics raised directly off the current token
// should use p.pos() instead, which carries the real column/source.
func (p *Parser) posAt(line int) errors.Position {
	return errors.Position{Line: line, Source: p.File}
}

// pos returns the current token's precise source position.
func (p *Parser) pos() errors.Position { return p.Lex.Pos(p.cur.Pos) }

// line returns the current token's line number, the unit Coder.Emit's
// line table is keyed on.
func (p *Parser) line() int { return p.pos().Line }

// errorf records a Syntax-kind error at the current token and returns
// Void, so a parse rule can write `return p.errorf(...)`.
func (p *Parser) errorf(format string, args ...interface{}) *Manipulator {
	p.Errors = append(p.Errors, errors.New(errors.Syntax, p.pos(), format, args...))
	return Void
}

// errorAt is errorf with an explicit kind, for the Scope/Init/Type/
// Arity/Range/Numeric/Exception diagnostics the grammar rules raise.
func (p *Parser) errorAt(kind errors.Kind, format string, args ...interface{}) *Manipulator {
	p.Errors = append(p.Errors, errors.New(kind, p.pos(), format, args...))
	return Void
}

func (p *Parser) warnf(format string, args ...interface{}) {
	p.Warnings = append(p.Warnings, errors.NewWarning(p.pos(), format, args...))
}
