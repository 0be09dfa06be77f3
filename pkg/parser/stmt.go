package parser

import (
	"eel/pkg/errors"
	"eel/pkg/events"
	"eel/pkg/lexer"
	"eel/pkg/opcode"
	"eel/pkg/source"
	"eel/pkg/symtab"
	"eel/pkg/value"
)

// pushCtx installs ctx as the parser's current context and repoints
// the lexer's lookup scope at it, so names scanned from here on
// resolve against the new scope chain (spec.md §4.2 rule 7, §4.3).
func (p *Parser) pushCtx(ctx *Context) {
	p.ctx = ctx
	p.Lex.Scope = ctx.Symtab
}

// popCtx pops the current context, emitting its CLEAN and folding its
// events into the parent, then repoints the lexer at the parent's
// scope.
func (p *Parser) popCtx(line int) {
	p.ctx = p.ctx.Pop(line)
	p.Lex.Scope = p.ctx.Symtab
}

// identText extracts the raw identifier spelling of the current
// token, whether it resolved to an existing symbol (shadowing it) or
// arrived as a bare, previously-undeclared Name.
func (p *Parser) identText() (string, bool) {
	switch p.cur.Type {
	case lexer.TkName:
		return string(p.cur.Str), true
	default:
		if p.cur.Symbol != nil {
			return p.cur.Symbol.Name.String(), true
		}
		return "", false
	}
}

// parseBody parses one braced block or, lacking `{`, a single
// statement, always under its own pushed scope (spec.md §4.6's
// per-block Context).
func (p *Parser) parseBody(creator string, flags CtxFlag, kind events.Kind) {
	line := p.line()
	p.pushCtx(p.ctx.Push(creator, flags, kind))
	if p.acceptPunct('{') {
		for !(p.cur.Type == lexer.TkPunct && p.cur.Byte == '}') && p.cur.Type != lexer.TkEof {
			p.parseStatement()
		}
		p.expectPunct('}')
	} else {
		p.parseStatement()
	}
	p.popCtx(p.line())
	_ = line
}

// parseStatement parses and compiles one statement, dispatching on
// the current keyword/token (spec.md §4.4, §4.6).
func (p *Parser) parseStatement() {
	switch {
	case p.acceptPunct(';'):
		return
	case p.acceptPunct('{'):
		p.pushCtx(p.ctx.Push("block", 0, events.NonConditional))
		for !(p.cur.Type == lexer.TkPunct && p.cur.Byte == '}') && p.cur.Type != lexer.TkEof {
			p.parseStatement()
		}
		p.expectPunct('}')
		p.popCtx(p.line())
		return
	case p.isKeyword("local"), p.isKeyword("static"), p.isKeyword("shadow"),
		p.isKeyword("constant"), p.isKeyword("upvalue"):
		p.parseVarDecl()
		p.expectPunct(';')
		return
	case p.isKeyword("export"):
		p.next(0)
		p.parseExportable()
		return
	case p.isKeyword("function"), p.isKeyword("procedure"):
		p.parseFunctionDecl(false)
		return
	case p.isKeyword("if"):
		p.parseIf()
		return
	case p.isKeyword("while"):
		p.parseWhile()
		return
	case p.isKeyword("do"):
		p.parseDoLoop()
		return
	case p.isKeyword("for"):
		p.parseFor()
		return
	case p.isKeyword("switch"):
		p.parseSwitch()
		return
	case p.isKeyword("break"):
		p.parseBreak()
		return
	case p.isKeyword("continue"):
		p.parseContinue()
		return
	case p.isKeyword("repeat"):
		p.parseRepeat()
		return
	case p.isKeyword("return"):
		p.parseReturn()
		return
	case p.isKeyword("throw"):
		p.parseThrow()
		return
	case p.isKeyword("retry"):
		p.parseRetry()
		return
	case p.isKeyword("try"):
		p.parseTry()
		return
	case p.isKeyword("untry"):
		p.parseUntry()
		return
	case p.cur.Type == lexer.TkEof:
		return
	default:
		p.parseExprStatement()
	}
}

// --- declarations ---

// parseVarDecl parses `[shadow] (local|static|constant|upvalue) name
// [= expr] (, name [= expr])* ;` (statement-terminating `;` is
// consumed by the caller).
func (p *Parser) parseVarDecl() {
	shadow := p.acceptKeyword("shadow")

	var kw string
	switch {
	case p.acceptKeyword("local"):
		kw = "local"
	case p.acceptKeyword("static"):
		kw = "static"
	case p.acceptKeyword("constant"):
		kw = "constant"
	case p.acceptKeyword("upvalue"):
		kw = "upvalue"
	default:
		p.errorf("expected a declaration keyword")
		return
	}

	for {
		p.declareOne(kw, shadow)
		if !p.acceptPunct(',') {
			break
		}
	}
}

// declareOne declares a single name under the kw storage class,
// optionally initialized by `= expr`.
func (p *Parser) declareOne(kw string, shadow bool) {
	line := p.line()
	name, ok := p.identText()
	if !ok {
		p.errorf("expected an identifier")
		return
	}
	interned := p.Interner.Intern(name)
	p.next(0)

	if existing := symtab.Lookup(p.ctx.Symtab, interned, symtab.Variable, symtab.Constant, symtab.Upvalue); existing != nil {
		if existing.Parent == p.ctx.Symtab {
			p.errorAt(errors.Scope, "'%s' is already declared in this scope", name)
		} else if !shadow {
			p.errorAt(errors.Scope, "'%s' shadows an outer declaration; use 'shadow' to permit it", name)
		}
	}

	switch kw {
	case "local":
		reg := p.ctx.Coder.Regs.AllocVariable(1)
		sym := symtab.Add(p.ctx.Symtab, interned, symtab.Variable)
		sym.Storage = symtab.Stack
		sym.Index = reg
		p.ctx.Coder.Events.DeclareReg(reg)
		m := &Manipulator{Kind: MRegister, Reg: reg, Sym: sym}
		if p.acceptPunct('=') {
			init := p.parseExpression()
			if init.Kind == MConstant {
				m.StoreValue(p, line, init.Value, true)
			} else {
				src := init.Load(p, line)
				m.StoreFrom(p, line, src, true)
				init.FreeIfTemp(p)
			}
			p.ctx.Coder.Events.Init(reg)
		}
		// A bare `local x;` with no initializer leaves reg's init cell
		// at No: a later read is only legal once some (possibly
		// conditional) assignment actually reaches it.

	case "static":
		idx := p.Module.Vars.Alloc(name)
		sym := symtab.Add(p.ctx.Symtab, interned, symtab.Variable)
		sym.Storage = symtab.Static
		sym.Index = idx
		m := &Manipulator{Kind: MStaticVar, Sym: sym}
		if p.acceptPunct('=') {
			init := p.parseExpression()
			if init.Kind == MConstant {
				m.StoreValue(p, line, init.Value, true)
			} else {
				src := init.Load(p, line)
				m.StoreFrom(p, line, src, true)
				init.FreeIfTemp(p)
			}
		}

	case "constant":
		sym := symtab.Add(p.ctx.Symtab, interned, symtab.Constant)
		p.expectPunct('=')
		v := p.parseExpression()
		if v.Kind != MConstant {
			p.errorAt(errors.Numeric, "constant initializer must be a compile-time constant")
			return
		}
		sym.ConstValue = v.Value

	case "upvalue":
		outer := symtab.Lookup(p.ctx.Symtab.Parent, interned, symtab.Variable)
		if outer == nil || outer.Storage != symtab.Stack {
			p.errorAt(errors.Scope, "'%s' does not name an enclosing local variable", name)
			return
		}
		sym := symtab.Add(p.ctx.Symtab, interned, symtab.Upvalue)
		sym.Storage = symtab.Stack
		sym.Index = outer.Index
		sym.UVLevel = outer.UVLevel
		if p.ctx.Func != nil {
			p.ctx.Func.UsesUpvalues = true
		}
	}
}

// parseExportable parses the declaration an `export` prefix qualifies
// (spec.md §4.4: functions/procedures only; exporting a function that
// touches an upvalue is rejected once its body has been compiled).
func (p *Parser) parseExportable() {
	switch {
	case p.isKeyword("function"), p.isKeyword("procedure"):
		p.parseFunctionDecl(true)
	default:
		p.errorf("'export' must be followed by a function or procedure declaration")
	}
}

// --- assignment / expression statements ---

// parseExprStatement parses a bare expression statement, or an
// assignment/weak-assignment if an `=`/`(=)` follows a writable
// target (spec.md §4.4).
func (p *Parser) parseExprStatement() {
	line := p.line()
	target := p.parseExpression()

	switch {
	case p.cur.Type == lexer.TkPunct && p.cur.Byte == '=':
		p.next(0)
		p.assign(target, line, false)
	case p.cur.Type == lexer.TkWeakAssign:
		p.next(0)
		p.assign(target, line, true)
	case p.cur.Type == lexer.TkSymShortOp:
		opText := p.cur.Symbol.Name.String()
		op, ok := opByText[opText]
		if !ok {
			p.errorf("unknown shorthand operator '%s='", opText)
			p.next(0)
			break
		}
		p.next(0)
		p.assignShort(target, line, op)
	default:
		if target.Kind != MVoid {
			// A bare expression statement's value is discarded; if it
			// was loaded into a live temp (a call result, typically),
			// free it so the register doesn't leak for the rest of the
			// statement sequence.
			if target.Kind == MRegister && target.Temp {
				p.ctx.Coder.Regs.Free(target.Reg, 1)
			}
		}
	}
	p.expectPunct(';')
}

// assign compiles `target = rhs` (or the weak form), per spec.md
// §4.4's writable/weak-assignable rules and its broadcast-or-match
// multi-valued semantics: a single right-hand expression broadcasts
// to every target in a comma list; otherwise the lists must match
// length 1:1.
func (p *Parser) assign(first *Manipulator, line int, weak bool) {
	targets := []*Manipulator{first}
	for p.acceptPunct(',') {
		targets = append(targets, p.parseExpression())
	}
	values := p.parseExpressionList()
	if len(values) == 0 {
		p.errorf("expected an expression after '='")
		return
	}
	if len(values) != 1 && len(values) != len(targets) {
		p.errorAt(errors.Arity, "assignment has %d targets but %d values", len(targets), len(values))
		return
	}
	for i, t := range targets {
		if weak && !t.CanWeakAssign() {
			p.errorAt(errors.Scope, "weak assignment target must be a static variable or an indexed location")
			continue
		}
		if !weak && !t.IsWritable() {
			p.errorAt(errors.Scope, "assignment target is not writable")
			continue
		}
		var v *Manipulator
		if len(values) == 1 {
			v = values[0]
		} else {
			v = values[i]
		}
		first := t.Kind == MRegister && p.ctx.Coder.Events.TestInit(t.Reg) != events.Yes
		if v.Kind == MConstant {
			t.StoreValue(p, line, v.Value, first)
		} else {
			src := v.Load(p, line)
			t.StoreFrom(p, line, src, first)
			v.FreeIfTemp(p)
		}
		if t.Kind == MRegister {
			p.ctx.Coder.Events.Init(t.Reg)
		}
	}
}

// assignShort compiles `target <op>= rhs` (spec.md §6's shorthand
// update form) as target = target <op> rhs, mirroring the binary-
// operator application manipulator.go's loadOp already does for a
// plain MOp node, but storing the result back into target rather than
// leaving it in a temporary.
func (p *Parser) assignShort(target *Manipulator, line int, op value.OperatorID) {
	if !target.IsWritable() {
		p.errorAt(errors.Scope, "assignment target is not writable")
		return
	}
	c := p.ctx.Coder
	rhs := p.parseExpression()
	aReg := target.Load(p, line)
	dest := c.Regs.AllocTemp(1)
	if rhs.Kind == MConstant {
		c.EmitBOpBest(line, dest, aReg, op, rhs.Value, -1)
	} else {
		bReg := rhs.Load(p, line)
		c.EmitBOpBest(line, dest, aReg, op, value.Value{}, bReg)
		rhs.FreeIfTemp(p)
	}
	first := target.Kind == MRegister && c.Events.TestInit(target.Reg) != events.Yes
	target.StoreFrom(p, line, dest, first)
	if target.Kind == MRegister {
		c.Events.Init(target.Reg)
	}
	c.Regs.Free(dest, 1)
}

// --- control flow ---

func (p *Parser) parseIf() {
	line := p.line()
	p.next(0) // 'if'
	cond := p.parseExpression()

	if cond.Kind == MConstant {
		p.parseConstIf(cond.Value.Truthy(), line)
		return
	}

	r := cond.Load(p, line)
	skip := p.ctx.Coder.EmitJumpZ(line, r)
	cond.FreeIfTemp(p)

	p.parseBody("if", Conditional, events.Conditional)

	if p.acceptKeyword("else") {
		done := p.ctx.Coder.EmitJump(line)
		p.ctx.Coder.SetJump(skip, p.ctx.Coder.Pos())
		p.parseBody("else", Conditional, events.Conditional)
		p.ctx.Coder.SetJump(done, p.ctx.Coder.Pos())
		p.ctx.Coder.MergeScopes(events.Yes)
	} else {
		p.ctx.Coder.SetJump(skip, p.ctx.Coder.Pos())
		p.ctx.Coder.MergeScopes(events.Maybe)
	}
}

// parseConstIf compiles an `if` whose condition folded to a compile-
// time constant: the branch that can actually run is compiled as
// ordinary straight-line code (its effects merge into the parent
// unconditionally, not clamped the way a real runtime branch is), and
// the branch that can never run is still parsed, for syntax only, but
// contributes nothing to initialization/exit state.
func (p *Parser) parseConstIf(truthy bool, line int) {
	p.parseDeadOrLive(truthy, "if")
	if p.acceptKeyword("else") {
		p.parseDeadOrLive(!truthy, "else")
	}
}

// parseDeadOrLive parses one if/else arm whose reachability is already
// decided at compile time. A live arm folds straight into the
// enclosing context (NonConditional merge, no clamping). A dead arm's
// statements are still walked for syntax, but every instruction they'd
// emit is suppressed by Coder.Emit's own dead-code check, since the
// arm's events.Context is marked Exit before any of them run; its event
// list is then discarded outright rather than merged, so it cannot
// contribute a stray "maybe initialized" or "maybe exits" to the
// parent.
func (p *Parser) parseDeadOrLive(live bool, creator string) {
	ctx := p.ctx.Push(creator, 0, events.NonConditional)
	p.pushCtx(ctx)
	if !live {
		p.ctx.Coder.Events.Exit()
	}
	if p.acceptPunct('{') {
		for !(p.cur.Type == lexer.TkPunct && p.cur.Byte == '}') && p.cur.Type != lexer.TkEof {
			p.parseStatement()
		}
		p.expectPunct('}')
	} else {
		p.parseStatement()
	}
	if live {
		p.popCtx(p.line())
		return
	}
	// Discard wholesale: a plain PopScope would still fold this arm's
	// bookkeeping (e.g. which registers it initialized) into the
	// parent, even though every instruction it would have emitted was
	// already suppressed as dead code above.
	p.ctx.Coder.Events = p.ctx.Coder.Events.Parent
	p.ctx = p.ctx.Parent
	p.Lex.Scope = p.ctx.Symtab
}

func (p *Parser) parseWhile() {
	line := p.line()
	p.next(0) // 'while'
	c := p.ctx.Coder

	testPos := c.Pos()
	cond := p.parseExpression()
	r := cond.Load(p, line)
	skip := c.EmitJumpZ(line, r)
	cond.FreeIfTemp(p)

	bodyStart := c.Pos()
	loopCtx := p.ctx.Push("while", Breakable|Continuable|Repeatable, events.Conditional)
	loopCtx.LoopStart = bodyStart
	p.pushCtx(loopCtx)
	if p.acceptPunct('{') {
		for !(p.cur.Type == lexer.TkPunct && p.cur.Byte == '}') && p.cur.Type != lexer.TkEof {
			p.parseStatement()
		}
		p.expectPunct('}')
	} else {
		p.parseStatement()
	}
	p.popCtx(p.line())

	c.EmitJump(line)
	c.SetJump(c.Pos()-opcode.Size(opcode.OpJump), testPos)
	afterPos := c.Pos()
	c.SetJump(skip, afterPos)
	for _, pos := range loopCtx.pendingContinues {
		c.SetJump(pos, testPos)
	}
	for _, pos := range loopCtx.pendingBreaks {
		c.SetJump(pos, afterPos)
	}
	c.MergeScopes(events.Maybe)
}

func (p *Parser) parseDoLoop() {
	line := p.line()
	p.next(0) // 'do'
	c := p.ctx.Coder

	bodyStart := c.Pos()
	loopCtx := p.ctx.Push("do", Breakable|Continuable|Repeatable, events.Conditional)
	loopCtx.LoopStart = bodyStart
	p.pushCtx(loopCtx)
	if p.acceptPunct('{') {
		for !(p.cur.Type == lexer.TkPunct && p.cur.Byte == '}') && p.cur.Type != lexer.TkEof {
			p.parseStatement()
		}
		p.expectPunct('}')
	} else {
		p.parseStatement()
	}
	p.popCtx(p.line())

	testPos := c.Pos()
	negate := false
	switch {
	case p.acceptKeyword("while"):
	case p.acceptKeyword("until"):
		negate = true
	default:
		p.errorf("expected 'while' or 'until'")
	}
	cond := p.parseExpression()
	r := cond.Load(p, line)
	if negate {
		c.EmitJumpZ(line, r)
	} else {
		c.EmitJumpNZ(line, r)
	}
	c.SetJump(c.Pos()-opcode.Size(opcode.OpJumpZ), bodyStart)
	cond.FreeIfTemp(p)
	p.expectPunct(';')

	afterPos := c.Pos()
	for _, pos := range loopCtx.pendingContinues {
		c.SetJump(pos, testPos)
	}
	for _, pos := range loopCtx.pendingBreaks {
		c.SetJump(pos, afterPos)
	}
	c.MergeScopes(events.Maybe)
}

// parseFor parses `for <iter> = <start>, <limit>[, <step>] <body>`,
// emitting the PRELOOP/LOOP pair spec.md §4.5 names (scenario 3): one
// PRELOOP skips the body entirely when the range is already empty, one
// LOOP re-tests and branches back, `continue` patches to LOOP's own
// position, `break` patches to the position right after it.
func (p *Parser) parseFor() {
	line := p.line()
	p.next(0) // 'for'
	c := p.ctx.Coder

	name, ok := p.identText()
	if !ok {
		p.errorf("expected a loop variable name")
		return
	}
	interned := p.Interner.Intern(name)
	p.next(0)
	p.expectPunct('=')

	iterReg := c.Regs.AllocVariable(1)
	sym := symtab.Add(p.ctx.Symtab, interned, symtab.Variable)
	sym.Storage = symtab.Stack
	sym.Index = iterReg
	c.Events.DeclareReg(iterReg)

	start := p.parseExpression()
	(&Manipulator{Kind: MRegister, Reg: iterReg}).StoreFrom(p, line, start.Load(p, line), true)
	start.FreeIfTemp(p)
	c.Events.Init(iterReg)

	p.expectPunct(',')
	limit := p.parseExpression()
	limitReg := limit.Load(p, line)
	if !limit.Temp {
		tmp := c.Regs.AllocTemp(1)
		c.EmitMove(line, tmp, limitReg)
		limitReg = tmp
	}

	stepReg := c.Regs.AllocTemp(1)
	if p.acceptPunct(',') {
		step := p.parseExpression()
		r := step.Load(p, line)
		c.EmitMove(line, stepReg, r)
		step.FreeIfTemp(p)
	} else {
		c.EmitLDI(line, stepReg, 1)
	}

	skipPos := c.Emit(opcode.OpPreloop, line, int32(iterReg), int32(stepReg), int32(limitReg), 0)

	bodyStart := c.Pos()
	loopCtx := p.ctx.Push("for", Breakable|Continuable|Repeatable, events.Conditional)
	loopCtx.LoopStart = bodyStart
	p.pushCtx(loopCtx)
	if p.acceptPunct('{') {
		for !(p.cur.Type == lexer.TkPunct && p.cur.Byte == '}') && p.cur.Type != lexer.TkEof {
			p.parseStatement()
		}
		p.expectPunct('}')
	} else {
		p.parseStatement()
	}
	p.popCtx(p.line())

	loopPos := c.Pos()
	for _, pos := range loopCtx.pendingContinues {
		c.SetJump(pos, loopPos)
	}
	loopInstr := c.Emit(opcode.OpLoop, line, int32(iterReg), int32(stepReg), int32(limitReg), 0)
	c.SetJump(loopInstr, bodyStart)

	afterPos := c.Pos()
	c.SetJump(skipPos, afterPos)
	for _, pos := range loopCtx.pendingBreaks {
		c.SetJump(pos, afterPos)
	}
	c.Regs.Free(stepReg, 1)
	if limit.Kind != MRegister || limit.Temp {
		c.Regs.Free(limitReg, 1)
	}
	c.MergeScopes(events.Maybe)
}

// parseSwitch compiles `switch <expr> { case v1[, v2...] <body> ...
// default <body> }` against a single dispatch table (spec.md §4.4,
// scenario 4): case values map to the absolute code position their
// body starts at, stored as entries of a Table constant the SWITCH
// instruction's Bx operand names — built incrementally as each case's
// body position becomes known, rather than backpatched the way a
// branch offset is, since Bx (the constant-pool index) isn't the
// "last field" PatchBranch can rewrite.
func (p *Parser) parseSwitch() {
	line := p.line()
	p.next(0) // 'switch'
	c := p.ctx.Coder

	selector := p.parseExpression()
	selReg := selector.Load(p, line)

	table := value.NewTable()
	tableData := table.Payload.(*value.TableData)
	tableIdx := c.QueryConst(value.ObjRefValue(table), true)

	switchPos := c.Emit(opcode.OpSwitch, line, int32(selReg), int32(tableIdx), 0)
	selector.FreeIfTemp(p)

	p.expectPunct('{')
	haveDefault := false
	var defaultPos int
	for !(p.cur.Type == lexer.TkPunct && p.cur.Byte == '}') && p.cur.Type != lexer.TkEof {
		switch {
		case p.acceptKeyword("case"):
			var vals []value.Value
			for {
				v := p.parseExpression()
				if v.Kind != MConstant {
					p.errorAt(errors.Numeric, "case label must be a compile-time constant")
				} else {
					vals = append(vals, v.Value)
				}
				if !p.acceptPunct(',') {
					break
				}
			}
			caseStart := c.Pos()
			for _, v := range vals {
				if _, dup := tableData.Get(v); dup {
					p.errorAt(errors.Scope, "duplicate case value")
					continue
				}
				tableData.Set(v, value.IntegerValue(int32(caseStart)))
			}
			caseCtx := p.ctx.Push("case", Breakable, events.Conditional)
			p.pushCtx(caseCtx)
			for !p.isKeyword("case") && !p.isKeyword("default") && !(p.cur.Type == lexer.TkPunct && p.cur.Byte == '}') && p.cur.Type != lexer.TkEof {
				p.parseStatement()
			}
			for _, pos := range caseCtx.pendingBreaks {
				// patched once the switch's end position is known, below
				p.ctx.pendingBreaks = append(p.ctx.pendingBreaks, pos)
			}
			p.popCtx(p.line())
		case p.acceptKeyword("default"):
			haveDefault = true
			defaultPos = c.Pos()
			caseCtx := p.ctx.Push("default", Breakable, events.Conditional)
			p.pushCtx(caseCtx)
			for !p.isKeyword("case") && !p.isKeyword("default") && !(p.cur.Type == lexer.TkPunct && p.cur.Byte == '}') && p.cur.Type != lexer.TkEof {
				p.parseStatement()
			}
			for _, pos := range caseCtx.pendingBreaks {
				p.ctx.pendingBreaks = append(p.ctx.pendingBreaks, pos)
			}
			p.popCtx(p.line())
		default:
			p.errorf("expected 'case' or 'default'")
			p.next(0)
		}
	}
	p.expectPunct('}')

	afterPos := c.Pos()
	if haveDefault {
		c.SetJump(switchPos, defaultPos)
	} else {
		c.SetJump(switchPos, afterPos)
	}
	for _, pos := range p.ctx.pendingBreaks {
		c.SetJump(pos, afterPos)
	}
	p.ctx.pendingBreaks = nil
	c.MergeScopes(boolState(haveDefault))
}

func boolState(have bool) events.Modulator {
	if have {
		return events.Yes
	}
	return events.Maybe
}

func (p *Parser) parseBreak() {
	line := p.line()
	p.next(0) // 'break'
	target := p.ctx.breakableAncestor()
	if target == nil {
		p.errorAt(errors.Scope, "'break' used outside a loop or switch")
		p.expectPunct(';')
		return
	}
	pos := p.ctx.Coder.EmitJump(line)
	target.pendingBreaks = append(target.pendingBreaks, pos)
	p.expectPunct(';')
}

func (p *Parser) parseContinue() {
	line := p.line()
	p.next(0) // 'continue'
	target := p.ctx.continuableAncestor()
	if target == nil {
		p.errorAt(errors.Scope, "'continue' used outside a loop")
		p.expectPunct(';')
		return
	}
	pos := p.ctx.Coder.EmitJump(line)
	target.pendingContinues = append(target.pendingContinues, pos)
	p.expectPunct(';')
}

func (p *Parser) parseRepeat() {
	line := p.line()
	p.next(0) // 'repeat'
	target := p.ctx.repeatableAncestor()
	if target == nil {
		p.errorAt(errors.Scope, "'repeat' used outside a loop")
		p.expectPunct(';')
		return
	}
	pos := p.ctx.Coder.EmitJump(line)
	p.ctx.Coder.SetJump(pos, target.LoopStart)
	p.expectPunct(';')
}

func (p *Parser) parseReturn() {
	line := p.line()
	p.next(0) // 'return'
	root := p.ctx.functionRoot()
	if p.cur.Type == lexer.TkPunct && p.cur.Byte == ';' {
		p.ctx.Coder.EmitReturn(line)
	} else {
		v := p.parseExpression()
		r := v.Load(p, line)
		p.ctx.Coder.EmitReturnR(line, r)
		v.FreeIfTemp(p)
		root.Coder.Events.Result()
	}
	root.Coder.Events.Return()
	p.expectPunct(';')
}

func (p *Parser) parseThrow() {
	line := p.line()
	p.next(0) // 'throw'
	v := p.parseExpression()
	r := v.Load(p, line)
	p.ctx.Coder.EmitThrow(line, r)
	v.FreeIfTemp(p)
	p.expectPunct(';')
}

// parseRetry compiles `retry;`: a bare RETRY, unconditionally, matching
// the original parser's retrystat — there is no compile-time check
// that retry appears inside an except clause; a misplaced retry is
// left for the runtime to reject.
func (p *Parser) parseRetry() {
	line := p.line()
	p.next(0) // 'retry'
	p.ctx.Coder.Emit(opcode.OpRetry, line)
	p.expectPunct(';')
}

// compileXBlock parses one try/except/untry sub-function body — the
// original compiler's "xblock": a nested, unnamed function object
// compiled from the braced or single-statement body following its
// keyword, always closed by an unconditional trailing RETURN
// regardless of what the body's own statements already emitted (the
// original always appends a bare RETURN to every xblock). When
// catcher is set (an except, or dummy-except, body), register 0 is
// reserved as an initialized Variable before any statement compiles,
// holding the value a throw raised — register 0 lands there because
// it is the very first register a fresh Coder hands out. When dummy
// is set, no statements are parsed at all: this is the implicit
// except clause a bare `try <body>;` (no `except`) gets.
func (p *Parser) compileXBlock(name string, catcher, dummy bool) *value.FunctionData {
	line := p.line()
	flags := XBlock
	if catcher {
		flags |= Catcher
	}
	scope := symtab.Add(p.ctx.Symtab, p.Interner.Intern("<"+name+">"), symtab.Function)
	ctx := p.ctx.PushFunction(name, flags, scope, p.fillDeadCode)
	p.pushCtx(ctx)

	if catcher {
		reg0 := ctx.Coder.Regs.AllocVariable(1)
		ctx.Coder.Events.DeclareReg(reg0)
		ctx.Coder.Events.Init(reg0)
	}

	if !dummy {
		if p.acceptPunct('{') {
			for !(p.cur.Type == lexer.TkPunct && p.cur.Byte == '}') && p.cur.Type != lexer.TkEof {
				p.parseStatement()
			}
			p.expectPunct('}')
		} else {
			p.parseStatement()
		}
	}

	// Mark the end as reachable so the trailing RETURN is emitted even
	// after a body that already exited (e.g. one ending in throw).
	ctx.Coder.Events.Target()
	ctx.Coder.EmitReturn(line)
	fd := p.finishFunctionBody(ctx, value.FlagXBlock, "<"+name+">")
	p.ctx = ctx.Parent
	p.Lex.Scope = p.ctx.Symtab
	return fd
}

// parseTry compiles `try <body> [except <body>]`, per the original
// compiler's trystat: the try body and the except body each compile
// to their own xblock function, interned as constants, and the whole
// statement is exactly one `TRY except-const, try-const` instruction —
// no call, no automatic untry. Omitting `except` still compiles a
// (dummy, bodyless) except xblock, since TRY always needs both
// operands.
func (p *Parser) parseTry() {
	line := p.line()
	p.next(0) // 'try'

	tryFD := p.compileXBlock("try", false, false)

	var exceptFD *value.FunctionData
	if p.acceptKeyword("except") {
		exceptFD = p.compileXBlock("except", true, false)
	} else {
		exceptFD = p.compileXBlock("except", true, true)
	}

	c := p.ctx.Coder
	exceptConst := c.QueryConst(value.ObjRefValue(value.NewFunction(exceptFD)), false)
	tryConst := c.QueryConst(value.ObjRefValue(value.NewFunction(tryFD)), false)
	c.Emit(opcode.OpTry, line, int32(exceptConst), int32(tryConst))
	c.MergeScopes(events.Yes)
}

// parseUntry compiles the independent `untry <body>` statement, per
// the original compiler's untrystat: untry is not something try/except
// emits automatically, it is its own statement a caller writes
// explicitly, compiling its own (non-catcher) xblock and emitting
// `UNTRY` against it.
func (p *Parser) parseUntry() {
	line := p.line()
	p.next(0) // 'untry'
	fd := p.compileXBlock("untry", false, false)
	c := p.ctx.Coder
	k := c.QueryConst(value.ObjRefValue(value.NewFunction(fd)), false)
	c.Emit(opcode.OpUntry, line, int32(k))
	c.MergeScopes(events.Yes)
}

// finishFunctionBody closes out a nested xblock's Coder into a
// FunctionData, mirroring what parseFunctionDecl does for a named
// declaration, but without a symbol table slot of its own (an xblock
// is referenced purely via its constant-pool entry).
func (p *Parser) finishFunctionBody(ctx *Context, flags value.FunctionFlags, name string) *value.FunctionData {
	ctx.Pop(p.line())
	if p.peephole {
		ctx.Coder.ClosePeephole(0)
	}
	return &value.FunctionData{
		Name:      name,
		Code:      ctx.Coder.Code(),
		Lines:     ctx.Coder.Lines(),
		Constants: ctx.Coder.Pool.Values(),
		Module:    p.Module.Object,
		FrameSize: ctx.Coder.Regs.FrameSize(),
		CleanSize: ctx.Coder.Regs.CleanSize(),
		Flags:     flags,
	}
}

// --- functions ---

// parseFunctionDecl parses `function|procedure name ( params ) [->
// results] ( ; | body )`: a bare `;` after the header is a forward
// declaration (spec.md §4.4); a body completes either a fresh
// declaration or matches one pending by name, arity, and flags.
// `procedure` is `function` with an implicit zero-result contract.
func (p *Parser) parseFunctionDecl(exported bool) {
	line := p.line()
	isProcedure := p.isKeyword("procedure")
	p.next(0) // 'function'/'procedure'

	name, ok := p.identText()
	if !ok {
		p.errorf("expected a function name")
		return
	}
	interned := p.Interner.Intern(name)
	p.next(0)

	existing := symtab.LookupChild(p.ctx.Symtab, interned, symtab.Function)

	p.expectPunct('(')
	reqArgs, optArgs, tupArgs := 0, 0, 0
	scope := symtab.Add(p.ctx.Symtab, p.Interner.Intern("<"+name+">"), symtab.Function)
	for !(p.cur.Type == lexer.TkPunct && p.cur.Byte == ')') && p.cur.Type != lexer.TkEof {
		argName, ok := p.identText()
		if !ok {
			p.errorf("expected a parameter name")
			break
		}
		p.next(0)
		storage, idx := symtab.Argument, reqArgs
		switch {
		case p.acceptPunct('='):
			// optional argument: default-value expression is evaluated
			// by the call contract at the VM's call site, out of this
			// core's scope; only its presence (arity) matters here.
			p.parseExpression()
			storage, idx = symtab.OptArg, optArgs
			optArgs++
		case p.acceptKeyword("tuples"):
			storage, idx = symtab.TupArg, tupArgs
			tupArgs++
		default:
			reqArgs++
		}
		psym := symtab.Add(scope, p.Interner.Intern(argName), symtab.Variable)
		psym.Storage = storage
		psym.Index = idx
		if !p.acceptPunct(',') {
			break
		}
	}
	p.expectPunct(')')

	results := 0
	if !isProcedure && p.acceptPunct('-') {
		p.expectPunct('>')
		results = 1
	}

	if p.acceptPunct(';') {
		// forward declaration only
		sym := existing
		if sym == nil {
			sym = symtab.Add(p.ctx.Symtab, interned, symtab.Function)
		}
		sym.Declaration = true
		if existing == nil {
			idx := p.Module.Vars.Alloc(name)
			sym.Storage = symtab.Static
			sym.Index = idx
		}
		p.Module.pendingForward[sym] = true
		return
	}

	if existing != nil && !existing.Declaration {
		p.errorAt(errors.Scope, "function '%s' is already defined", name)
	}

	var sym *symtab.Symbol
	if existing != nil {
		sym = existing
		sym.Declaration = false
		delete(p.Module.pendingForward, sym)
	} else {
		sym = symtab.Add(p.ctx.Symtab, interned, symtab.Function)
		idx := p.Module.Vars.Alloc(name)
		sym.Storage = symtab.Static
		sym.Index = idx
	}

	fnCtx := p.ctx.PushFunction(name, 0, scope, p.fillDeadCode)
	fnCtx.Func = &FuncBuild{Name: name, ReqArgs: reqArgs, OptArgs: optArgs, TupArgs: tupArgs, Results: results, Exported: exported, Sym: sym}
	p.pushCtx(fnCtx)

	if p.acceptPunct('{') {
		for !(p.cur.Type == lexer.TkPunct && p.cur.Byte == '}') && p.cur.Type != lexer.TkEof {
			p.parseStatement()
		}
		p.expectPunct('}')
	} else {
		p.parseStatement()
	}

	if exported && fnCtx.Func.UsesUpvalues {
		p.errorAt(errors.Scope, "Functions that use upvalues cannot be exported")
	}

	// Every function body gets a trailing RETURN regardless of its own
	// statements' control flow; once the body already definitely
	// returned, Emit's dead-code check puts ILLEGAL/NOP filler here
	// instead (or nothing, when fillDeadCode is off).
	fnCtx.Coder.EmitReturn(line)

	fb := fnCtx.Func
	fd := &value.FunctionData{
		Name:      name,
		Module:    p.Module.Object,
		ReqArgs:   fb.ReqArgs,
		OptArgs:   fb.OptArgs,
		TupArgs:   fb.TupArgs,
		Results:   fb.Results,
		Flags:     fb.flags(),
	}
	fnCtx.Pop(p.line())
	if p.peephole {
		fnCtx.Coder.ClosePeephole(0)
	}
	fd.Code = fnCtx.Coder.Code()
	fd.Lines = fnCtx.Coder.Lines()
	fd.Constants = fnCtx.Coder.Pool.Values()
	fd.FrameSize = fnCtx.Coder.Regs.FrameSize()
	fd.CleanSize = fnCtx.Coder.Regs.CleanSize()

	p.ctx = fnCtx.Parent
	p.Lex.Scope = p.ctx.Symtab

	fnObj := value.NewFunction(fd)
	p.Module.Functions = append(p.Module.Functions, fnObj)
	if exported {
		sym.Exported = true
		p.Module.Data.Exports.Set(value.ObjRefValue(value.NewString(name)), value.ObjRefValue(fnObj))
	}

	store := &Manipulator{Kind: MStaticVar, Sym: sym}
	store.StoreValue(p, line, value.ObjRefValue(fnObj), true)
}

// --- module entry point ---

// ParseModule parses an entire module from src: an optional `module
// Name;` header, then top-level statements compiled into the
// synthetic `__init_module` function, finishing with the export scan
// and forward-declaration check spec.md §4.4/§8's compiled-artifact
// invariant calls for.
func ParseModule(file *source.SourceFile, tabSize int, fillDeadCode, peephole bool) (*ModuleInfo, []errors.CompilerError, []*errors.Warning) {
	p := New(file, tabSize, fillDeadCode, peephole)
	defer errors.Recover(asCompilerErrors(&p.Errors))

	p.next(0)

	if p.isKeyword("module") {
		p.next(0)
		name, ok := p.identText()
		if ok {
			p.Module.Data.Name = name
			p.Module.Object.Payload.(*value.ModuleData).Name = name
		}
		p.next(0)
		p.expectPunct(';')
	}

	root := NewFunctionContext(p.Module.RootScope, p.Interner, p.Module, fillDeadCode)
	root.Flags |= Keep
	root.Func = &FuncBuild{Name: "__init_module"}
	p.pushCtx(root)

	for p.cur.Type != lexer.TkEof {
		p.parseStatement()
	}
	root.Coder.EmitReturn(p.line())

	fd := &value.FunctionData{
		Name:   "__init_module",
		Module: p.Module.Object,
		Flags:  value.FlagRoot,
	}
	root.Pop(p.line())
	if p.peephole {
		root.Coder.ClosePeephole(0)
	}
	fd.Code = root.Coder.Code()
	fd.Lines = root.Coder.Lines()
	fd.Constants = root.Coder.Pool.Values()
	fd.FrameSize = root.Coder.Regs.FrameSize()
	fd.CleanSize = root.Coder.Regs.CleanSize()

	initObj := value.NewFunction(fd)
	p.Module.Functions = append(p.Module.Functions, initObj)
	p.Module.Data.Exports.Set(value.ObjRefValue(value.NewString("__init_module")), value.ObjRefValue(initObj))
	if p.Module.Data.Name != "" {
		p.Module.Data.Exports.Set(value.ObjRefValue(value.NewString("__modname")), value.ObjRefValue(value.NewString(p.Module.Data.Name)))
	}

	for decl := range p.Module.pendingForward {
		if decl.Declaration {
			p.errorAt(errors.Scope, "function '%s' was forward-declared but never defined", decl.Name.String())
		}
	}

	p.Module.Data.Variables = make([]value.Value, p.Module.Vars.Len())

	return p.Module, p.Errors, p.Warnings
}

func asCompilerErrors(errs *[]errors.CompilerError) *[]errors.CompilerError { return errs }
