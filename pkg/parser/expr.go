package parser

import (
	"eel/pkg/errors"
	"eel/pkg/lexer"
	"eel/pkg/opcode"
	"eel/pkg/symtab"
	"eel/pkg/value"
)

// next advances to the next token, recording it as p.cur. Lexing
// errors are reported as Syntax diagnostics; the caller sees TkWrong
// and should treat the construct as unparsable.
func (p *Parser) next(flags lexer.Flags) {
	tok, err := p.Lex.Lex(flags)
	if err != nil {
		if ce, ok := err.(errors.CompilerError); ok {
			p.Errors = append(p.Errors, ce)
		} else {
			p.Errors = append(p.Errors, errors.New(errors.Syntax, p.pos(), "%s", err.Error()))
		}
	}
	p.cur = tok
}

// accept consumes the current token if it is punctuation byte b,
// reporting whether it matched.
func (p *Parser) acceptPunct(b byte) bool {
	if p.cur.Type == lexer.TkPunct && p.cur.Byte == b {
		p.next(0)
		return true
	}
	return false
}

// expectPunct consumes punctuation byte b or records a Syntax error.
func (p *Parser) expectPunct(b byte) bool {
	if p.acceptPunct(b) {
		return true
	}
	p.errorf("expected '%c'", b)
	return false
}

// isKeyword reports whether the current token resolved to the named
// keyword symbol.
func (p *Parser) isKeyword(name string) bool {
	return p.cur.Type == lexer.TkSymKeyword && p.cur.Symbol != nil && p.cur.Symbol.Name.String() == name
}

// acceptKeyword consumes the current token if it is keyword name.
func (p *Parser) acceptKeyword(name string) bool {
	if p.isKeyword(name) {
		p.next(0)
		return true
	}
	return false
}

// expectKeyword consumes keyword name or records a Syntax error.
func (p *Parser) expectKeyword(name string) bool {
	if p.acceptKeyword(name) {
		return true
	}
	p.errorf("expected '%s'", name)
	return false
}

// operatorText returns the spelling of the current token if it is an
// operator-kind symbol (word or punctuation form) or a punctuation
// byte from the operator set, "" otherwise.
func (p *Parser) operatorText() string {
	if p.cur.Type == lexer.TkSymOperator && p.cur.Symbol != nil {
		return p.cur.Symbol.Name.String()
	}
	return ""
}

// parseExpressionList parses a comma-separated list of expressions
// (spec.md §4.4's multi-valued expression list), returning one
// Manipulator per element. An empty list is legal and returns nil.
func (p *Parser) parseExpressionList() []*Manipulator {
	var list []*Manipulator
	if p.cur.Type == lexer.TkPunct && (p.cur.Byte == ')' || p.cur.Byte == ';' || p.cur.Byte == '}') {
		return list
	}
	list = append(list, p.parseExpression())
	for p.acceptPunct(',') {
		list = append(list, p.parseExpression())
	}
	return list
}

// parseExpression parses a flat left-to-right chain of binary
// applications (spec.md §4.4: "precedence formally removed as of the
// source's own annotation"). A tighter-binding operator following a
// looser one only raises a non-fatal warning; it never reorders the
// chain.
func (p *Parser) parseExpression() *Manipulator {
	left := p.parseSimplexp()
	if left.Kind == MVoid {
		return left
	}
	prevClass := -1
	for {
		opText := p.operatorText()
		if opText == "" {
			break
		}
		switch opText {
		case "and", "or":
			line := p.line()
			p.next(0)
			left = p.parseShortCircuit(left, opText == "and", line)
			prevClass = -1
			continue
		}
		op, ok := opByText[opText]
		if !ok {
			break
		}
		line := p.line()
		p.next(0)
		right := p.parseSimplexp()
		if cls, known := precedenceClass[op]; known {
			if prevClass >= 0 && cls > prevClass {
				p.warnf("operator '%s' would have evaluated differently under pre-0.3.7 precedence", opText)
			}
			prevClass = cls
		}
		left = p.foldOrOp(line, left, right, op)
	}
	return left
}

// foldOrOp builds the binary MOp node for left `op` right, folding it
// to a single constant at parse time when both sides are already
// compile-time constants — spec.md §4.4's constant-folding requirement
// and scenario 1's "a single immediate load" expectation. A fold that
// hits a compile-time division by zero is reported as a Numeric error
// (spec.md §7) rather than silently left to the (nonexistent) runtime.
func (p *Parser) foldOrOp(line int, left, right *Manipulator, op value.OperatorID) *Manipulator {
	if left.Kind == MConstant && right.Kind == MConstant {
		v, err := value.Binary(op, left.Value, right.Value)
		if err != nil {
			p.errorAt(errors.Numeric, "%s", err.Error())
			return Void
		}
		return ConstManip(v)
	}
	return &Manipulator{Kind: MOp, Left: left, Right: right, Op: op}
}

// parseShortCircuit compiles `left and right`/`left or right`: left
// is loaded once into a result register, a conditional jump skips
// evaluating right when the outcome is already decided, and the
// result register is left holding whichever side's value decided the
// expression (spec.md §6 lists and/or as ordinary operator keywords,
// but their short-circuit evaluation is standard and has no bytecode
// form of its own to fold into — it compiles to the same
// JUMPZ/JUMPNZ control flow an `if` would use).
func (p *Parser) parseShortCircuit(left *Manipulator, isAnd bool, line int) *Manipulator {
	c := p.Coder()
	r := left.Load(p, line)
	if left.Kind != MRegister || left.Temp {
		// keep the result in a stable temp the rest of the chain can
		// keep referring to once right's evaluation has overwritten it
		stable := c.Regs.AllocTemp(1)
		c.EmitMove(line, stable, r)
		left.FreeIfTemp(p)
		r = stable
	}
	var skip int
	if isAnd {
		skip = c.EmitJumpZ(line, r)
	} else {
		skip = c.EmitJumpNZ(line, r)
	}
	right := p.parseSimplexp()
	rhs := right.Load(p, line)
	c.EmitMove(line, r, rhs)
	right.FreeIfTemp(p)
	c.SetJump(skip, c.Pos())
	return RegManip(r, true)
}

// parseSimplexp parses one unary-prefixed primary (spec.md §4.4's
// SIMPLEXP rule token): zero or more unary prefix operators applied
// to the following simplexp, bottoming out at parsePrimary.
func (p *Parser) parseSimplexp() *Manipulator {
	opText := p.operatorText()
	if op, ok := unaryOpByText[opText]; opText != "" && ok {
		p.next(0)
		operand := p.parseSimplexp()
		if operand.Kind == MVoid {
			return p.errorf("expected an operand after unary '%s'", opText)
		}
		if operand.Kind == MConstant {
			if v, err := value.Unary(op, operand.Value); err == nil {
				return ConstManip(v)
			}
		}
		return &Manipulator{Kind: MOp, Right: operand, Op: op}
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary expression followed by any number of
// index (`[...]`/`.name`) or call (`(...)`) suffixes.
func (p *Parser) parsePostfix() *Manipulator {
	m := p.parsePrimary()
	for {
		switch {
		case p.cur.Type == lexer.TkPunct && p.cur.Byte == '[':
			line := p.line()
			p.next(0)
			idx := p.parseExpression()
			p.expectPunct(']')
			obj := m.Load(p, line)
			m = &Manipulator{Kind: MIndex, Object: RegManip(obj, m.Kind != MRegister || m.Temp), Index: idx}
		case p.cur.Type == lexer.TkPunct && p.cur.Byte == '(':
			m = p.parseCall(m)
		default:
			return m
		}
	}
}

// parseCall emits the argument-push sequence and a CALL against
// callee, per the PUSH convention this core's PUSH opcode assumes:
// each argument is materialized into a fresh temporary and pushed
// immediately, freeing the temporary right away so the peephole pass
// can fuse producer and PUSH (pkg/codegen/peephole.go's BOP;PUSH ->
// PHBOP rule, among others).
func (p *Parser) parseCall(callee *Manipulator) *Manipulator {
	line := p.line()
	p.next(0) // '('
	args := p.parseExpressionList()
	p.expectPunct(')')

	c := p.Coder()
	for _, a := range args {
		reg := a.Load(p, line)
		c.Emit(opcode.OpPush, line)
		isTemp := a.Kind != MRegister || a.Temp
		if isTemp {
			c.Regs.Free(reg, 1)
		}
	}

	reg := callee.Load(p, line)
	dest := c.Regs.AllocTemp(1)
	c.Emit(opcode.OpCallR, line, int32(dest), int32(reg))
	callee.FreeIfTemp(p)
	return RegManip(dest, true)
}

// parsePrimary parses a literal, parenthesized expression, or a
// resolved-symbol reference (spec.md §4.4).
func (p *Parser) parsePrimary() *Manipulator {
	switch p.cur.Type {
	case lexer.TkIntNum:
		v := value.IntegerValue(int32(p.cur.Integer))
		p.next(0)
		return ConstManip(v)
	case lexer.TkRealNum:
		v := value.RealValue(p.cur.Real)
		p.next(0)
		return ConstManip(v)
	case lexer.TkString:
		v := value.ObjRefValue(value.NewString(string(p.cur.Str)))
		p.next(0)
		return ConstManip(v)
	case lexer.TkPunct:
		if p.cur.Byte == '(' {
			p.next(0)
			m := p.parseExpression()
			p.expectPunct(')')
			return m
		}
		return Void
	case lexer.TkSymKeyword:
		switch {
		case p.isKeyword("true"):
			p.next(0)
			return ConstManip(value.BooleanValue(true))
		case p.isKeyword("false"):
			p.next(0)
			return ConstManip(value.BooleanValue(false))
		case p.isKeyword("nil"):
			p.next(0)
			return ConstManip(value.Nil)
		case p.isKeyword("exception"):
			// Only meaningful inside an except (or untry) xblock, where
			// register 0 is reserved for the thrown value — see
			// compileXBlock's Catcher reg0 reservation in stmt.go.
			p.next(0)
			return RegManip(0, false)
		default:
			return p.errorf("unexpected keyword '%s' in expression", p.cur.Symbol.Name.String())
		}
	case lexer.TkSymConstant:
		sym := p.cur.Symbol
		p.next(0)
		return ConstManip(sym.ConstValue.(value.Value))
	case lexer.TkSymVariable:
		sym := p.cur.Symbol
		p.next(0)
		return p.manipForVariable(sym)
	case lexer.TkSymUpvalue:
		sym := p.cur.Symbol
		p.next(0)
		return p.manipForVariable(sym)
	case lexer.TkSymFunction:
		// A function declaration stores its compiled value into a
		// Static slot of its own (stmt.go's function-declaration
		// rule), so a reference to it reads exactly like a Static
		// variable reference.
		sym := p.cur.Symbol
		p.next(0)
		return &Manipulator{Kind: MStaticVar, Sym: sym}
	case lexer.TkName:
		return p.errorf("undeclared identifier")
	default:
		return Void
	}
}

// manipForVariable builds the Manipulator a reference to a Variable/
// Upvalue-kind symbol resolves to, per its storage kind (spec.md §3).
// A Stack-storage symbol declared at a shallower function level than
// the current one is an upvalue access — "uv_level difference between
// a reference and its definition IS the upvalue distance" — and marks
// the enclosing function as using upvalues (export-forbids-upvalues,
// spec.md §4.4).
func (p *Parser) manipForVariable(sym *symtab.Symbol) *Manipulator {
	if sym.Storage == symtab.Stack && sym.UVLevel < p.ctx.level {
		if p.ctx.Func != nil {
			p.ctx.Func.UsesUpvalues = true
		}
		return &Manipulator{Kind: MUpvalue, Sym: sym, Level: p.ctx.level - sym.UVLevel, Reg: sym.Index}
	}
	switch sym.Storage {
	case symtab.Static:
		return &Manipulator{Kind: MStaticVar, Sym: sym}
	case symtab.Argument, symtab.OptArg, symtab.TupArg:
		if sym.UVLevel < p.ctx.level {
			return p.errorAt(errors.Scope, "upvalue access to argument '%s' is not implemented", sym.Name.String())
		}
		return &Manipulator{Kind: MArgument, Sym: sym}
	default:
		return &Manipulator{Kind: MRegister, Reg: sym.Index, Sym: sym}
	}
}
