package parser

import (
	"eel/pkg/codegen"
	"eel/pkg/errors"
	"eel/pkg/events"
	"eel/pkg/opcode"
	"eel/pkg/symtab"
	"eel/pkg/value"
)

// ManipKind discriminates a Manipulator's variant (spec.md §3's
// "compile-time description of a location/expression").
type ManipKind uint8

const (
	MVoid ManipKind = iota
	MConstant
	MRegister // a live register, already holding a value (a temp or a named local)
	MStaticVar
	MArgument
	MUpvalue
	MOp
	MCast
	MIndex
)

// Manipulator is a compile-time handle to a readable/writable location
// or pending expression (spec.md §3). Every Manipulator is built fresh
// per use site: it is cheap, short-lived compiler state, never a
// runtime object, so it needs no refcounting of its own the way a
// runtime value does.
type Manipulator struct {
	Kind ManipKind

	// MConstant
	Value value.Value

	// MRegister, MIndex (destination slot), MCast result register
	Reg int
	// Temp marks Reg as a Temporary this Manipulator's consumer should
	// free once it has loaded the value — set for MRegister values
	// produced by an operator or call, never for a named local.
	Temp bool

	// MStaticVar / MArgument / MUpvalue / a named MRegister local
	Sym *symtab.Symbol

	// MUpvalue: Level is the number of function frames up from the
	// current one the referenced register lives in (spec.md §3's
	// "uv_level difference IS the upvalue distance"); Reg is that
	// frame's register index (reused from Sym.Index at build time).
	Level int

	// MOp. Left == nil marks a unary application of Op to Right.
	Left, Right *Manipulator
	Op          value.OperatorID

	// MCast. TargetKind selects CASTR/CASTI/CASTB for a primitive
	// target (value.KindReal/KindInteger/KindBoolean); any other kind
	// falls back to the generic CAST, which names an object class via
	// TargetClass instead.
	TargetKind  value.Kind
	TargetClass value.ClassID
	Inner       *Manipulator

	// MIndex
	Object, Index *Manipulator
}

// Void is the result of a construct that produced no value (spec.md
// §4.4's Void rule token repurposed as a Manipulator so every parse
// function can return one uniformly).
var Void = &Manipulator{Kind: MVoid}

// ConstManip wraps a literal value as a constant Manipulator.
func ConstManip(v value.Value) *Manipulator { return &Manipulator{Kind: MConstant, Value: v} }

// RegManip wraps an already-loaded register. temp marks it as a
// Temporary the consumer must free after loading.
func RegManip(reg int, temp bool) *Manipulator {
	return &Manipulator{Kind: MRegister, Reg: reg, Temp: temp}
}

// IsWritable reports whether m names a location assignment can target
// (spec.md §4.4's assignment-target rule).
func (m *Manipulator) IsWritable() bool {
	switch m.Kind {
	case MStaticVar, MArgument, MUpvalue, MIndex:
		return true
	case MRegister:
		return m.Sym != nil // a named local, not a bare computed temp
	default:
		return false
	}
}

// CanWeakAssign reports whether m can be the target of a weak
// assignment (spec.md §4.4: "static variables, index targets").
func (m *Manipulator) CanWeakAssign() bool {
	return m.Kind == MStaticVar || m.Kind == MIndex
}

// unaryOpcode maps the unary OperatorIDs to their dedicated
// instruction (spec.md §4.7/§4.8).
func unaryOpcode(op value.OperatorID) opcode.Opcode {
	switch op {
	case value.OpNeg:
		return opcode.OpNeg
	case value.OpNot:
		return opcode.OpNot
	case value.OpBitInv:
		return opcode.OpBNot
	case value.OpTypeOf:
		return opcode.OpTypeOf
	case value.OpSizeOf:
		return opcode.OpSizeOf
	case value.OpClone:
		return opcode.OpClone
	default:
		panic("parser: not a unary operator")
	}
}

// Load emits whatever code is needed to get m's value into some
// register and returns that register. FreeIfTemp releases it once the
// caller is done, if Load produced a fresh Temporary.
func (m *Manipulator) Load(p *Parser, line int) int {
	c := p.Coder()
	switch m.Kind {
	case MConstant:
		dest := c.Regs.AllocTemp(1)
		c.EmitLoadValue(line, dest, m.Value)
		return dest
	case MRegister:
		if m.Sym != nil && m.Sym.Storage == symtab.Stack {
			switch c.Events.TestInit(m.Reg) {
			case events.No:
				p.Errors = append(p.Errors, errors.New(errors.Init, p.posAt(line), "reading uninitialized variable '%s'", m.Sym.Name.String()))
			case events.Maybe:
				p.Errors = append(p.Errors, errors.New(errors.Init, p.posAt(line), "variable '%s' may be uninitialized at this point", m.Sym.Name.String()))
			}
		}
		return m.Reg
	case MStaticVar:
		dest := c.Regs.AllocTemp(1)
		c.EmitGetVar(line, dest, m.Sym.Index)
		return dest
	case MArgument:
		dest := c.Regs.AllocTemp(1)
		c.Emit(opcode.OpGetArgI, line, int32(dest), int32(m.Sym.Index))
		return dest
	case MUpvalue:
		dest := c.Regs.AllocTemp(1)
		c.Emit(opcode.OpGetUVal, line, int32(dest), int32(m.Level), int32(m.Reg))
		return dest
	case MOp:
		return m.loadOp(p, line)
	case MIndex:
		obj := m.Object.Load(p, line)
		idx := m.Index.Load(p, line)
		dest := c.Regs.AllocTemp(1)
		c.Emit(opcode.OpIndGet, line, int32(dest), int32(obj), int32(idx))
		m.Object.FreeIfTemp(p)
		m.Index.FreeIfTemp(p)
		return dest
	case MCast:
		src := m.Inner.Load(p, line)
		dest := src
		if !m.Inner.Temp {
			dest = c.Regs.AllocTemp(1)
		}
		switch m.TargetKind {
		case value.KindReal:
			c.Emit(opcode.OpCastR, line, int32(dest), int32(src))
		case value.KindInteger:
			c.Emit(opcode.OpCastI, line, int32(dest), int32(src))
		case value.KindBoolean:
			c.Emit(opcode.OpCastB, line, int32(dest), int32(src))
		default:
			c.Emit(opcode.OpCast, line, int32(dest), int32(src), int32(m.TargetClass))
		}
		m.Inner.FreeIfTemp(p)
		return dest
	default:
		errors.Abort(errors.New(errors.Internal, p.posAt(line), "cannot load manipulator kind %d", m.Kind))
		return -1
	}
}

// FreeIfTemp releases m's register if Load produced a Temporary,
// matching the discipline the peephole pass's "not keep-regs" gating
// relies on: free a temporary the instant its value is consumed.
func (m *Manipulator) FreeIfTemp(p *Parser) {
	if m.Kind == MRegister && m.Temp {
		p.Coder().Regs.Free(m.Reg, 1)
	}
}

// loadOp emits the operator application this node describes and
// returns the destination register.
func (m *Manipulator) loadOp(p *Parser, line int) int {
	c := p.Coder()
	if m.Left == nil {
		src := m.Right.Load(p, line)
		dest := src
		if !m.Right.Temp {
			dest = c.Regs.AllocTemp(1)
		}
		c.Emit(unaryOpcode(m.Op), line, int32(dest), int32(src))
		m.Right.FreeIfTemp(p)
		return dest
	}

	aReg := m.Left.Load(p, line)
	dest := aReg
	if !m.Left.Temp {
		dest = c.Regs.AllocTemp(1)
	}
	if m.Right.Kind == MConstant {
		c.EmitBOpBest(line, dest, aReg, m.Op, m.Right.Value, -1)
	} else {
		bReg := m.Right.Load(p, line)
		c.EmitBOpBest(line, dest, aReg, m.Op, value.Value{}, bReg)
		m.Right.FreeIfTemp(p)
	}
	m.Left.FreeIfTemp(p)
	return dest
}

// StoreFrom emits the assignment form appropriate to m's kind, writing
// the value currently in register src. first selects INIT over ASSIGN
// for a not-yet-initialized local/static (spec.md §4.6's init/assign
// event rule); the caller determines first by querying events.
func (m *Manipulator) StoreFrom(p *Parser, line int, src int, first bool) {
	c := p.Coder()
	switch m.Kind {
	case MRegister:
		if first {
			c.Emit(opcode.OpInit, line, int32(m.Reg), int32(src))
		} else {
			c.Emit(opcode.OpAssign, line, int32(m.Reg), int32(src))
		}
	case MStaticVar:
		c.EmitSetVar(line, src, m.Sym.Index)
	case MArgument:
		c.Emit(opcode.OpSetArgI, line, int32(src), int32(m.Sym.Index))
	case MUpvalue:
		c.Emit(opcode.OpSetUVal, line, int32(src), int32(m.Level), int32(m.Reg))
	case MIndex:
		obj := m.Object.Load(p, line)
		idx := m.Index.Load(p, line)
		c.Emit(opcode.OpIndSet, line, int32(src), int32(obj), int32(idx))
		m.Object.FreeIfTemp(p)
		m.Index.FreeIfTemp(p)
	default:
		errors.Abort(errors.New(errors.Internal, p.posAt(line), "manipulator kind %d is not writable", m.Kind))
	}
}

// StoreValue is the constant-folding-aware counterpart of StoreFrom:
// when v fits the query API's immediate or constant-pool shortcut the
// caller should prefer this over loading v into a register first.
func (m *Manipulator) StoreValue(p *Parser, line int, v value.Value, first bool) {
	c := p.Coder()
	switch m.Kind {
	case MRegister:
		if first {
			c.EmitInitValue(line, m.Reg, v)
		} else {
			c.EmitAssignValue(line, m.Reg, v)
		}
	default:
		src := c.Regs.AllocTemp(1)
		c.EmitLoadValue(line, src, v)
		m.StoreFrom(p, line, src, first)
		c.Regs.Free(src, 1)
	}
}
