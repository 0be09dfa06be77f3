package codegen

import (
	"eel/pkg/events"
	"eel/pkg/opcode"
	"eel/pkg/value"
)

// PushScope enters a nested control-flow context (an if-branch, a loop
// body, a switch case, ...), returning to the caller so it can later
// PopScope back. A thin forwarder over events.Context.Push kept here
// so parser code only ever imports pkg/codegen, not pkg/events
// directly, for anything it does through a Coder.
func (c *Coder) PushScope(kind events.Kind) {
	c.Events = c.Events.Push(kind)
}

// PopScope leaves the current context, folding its event list into the
// parent per events.Context.Pop's per-Kind rule.
func (c *Coder) PopScope() {
	c.Events = c.Events.Pop()
}

// MergeScopes combines every Conditional child popped since the last
// Merge (e.g. an if's branches, a switch's cases) under modulator,
// which is events.Yes only when the sibling set is known to be
// exhaustive (if/else both present, a switch with a default).
func (c *Coder) MergeScopes(modulator events.Modulator) {
	c.Events.Merge(modulator)
}

// QueryImmediate reports whether v can be encoded as a small signed
// 16-bit immediate operand — the first of the three shortcut forms
// spec.md §4.4's constant-folding query API picks between (immediate,
// constant-pool index, static-variable slot).
func (c *Coder) QueryImmediate(v value.Value) (int32, bool) {
	if v.Kind() != value.KindInteger {
		return 0, false
	}
	n := v.Integer()
	if n < -32768 || n > 32767 {
		return 0, false
	}
	return n, true
}

// QueryConst interns v into the function's constant pool and returns
// its index — the fallback shortcut form when QueryImmediate doesn't
// apply.
func (c *Coder) QueryConst(v value.Value, ownedByModule bool) int {
	return c.Pool.Add(v, ownedByModule)
}

// EmitLoadValue picks LDI over LDC when v fits as an immediate,
// writing it into dest.
func (c *Coder) EmitLoadValue(line, dest int, v value.Value) int {
	if imm, ok := c.QueryImmediate(v); ok {
		return c.Emit(opcode.OpLDI, line, int32(dest), imm)
	}
	return c.Emit(opcode.OpLDC, line, int32(dest), int32(c.QueryConst(v, false)))
}

// EmitInitValue picks INITI over INITC when v fits as an immediate,
// declaring dest as a newly-initialized local holding v.
func (c *Coder) EmitInitValue(line, dest int, v value.Value) int {
	if imm, ok := c.QueryImmediate(v); ok {
		return c.Emit(opcode.OpInitI, line, int32(dest), imm)
	}
	return c.Emit(opcode.OpInitC, line, int32(dest), int32(c.QueryConst(v, false)))
}

// EmitAssignValue picks ASSIGNI over ASSIGNC when v fits as an
// immediate, writing it to an already-initialized local dest.
func (c *Coder) EmitAssignValue(line, dest int, v value.Value) int {
	if imm, ok := c.QueryImmediate(v); ok {
		return c.Emit(opcode.OpAssignI, line, int32(dest), imm)
	}
	return c.Emit(opcode.OpAssignC, line, int32(dest), int32(c.QueryConst(v, false)))
}

// EmitPushValue picks PUSHI over PUSHC when v fits as an immediate.
func (c *Coder) EmitPushValue(line int, v value.Value) int {
	if imm, ok := c.QueryImmediate(v); ok {
		return c.Emit(opcode.OpPushI, line, imm)
	}
	return c.Emit(opcode.OpPushC, line, int32(c.QueryConst(v, false)))
}

// EmitBOp emits the fully general binary-operator form: d = a <op> b,
// all three register operands.
func (c *Coder) EmitBOp(line, dest, aReg int, op value.OperatorID, bReg int) int {
	return c.Emit(opcode.OpBOp, line, int32(dest), int32(aReg), int32(op), int32(bReg))
}

// EmitBOpBest picks BOPI/BOPC over the fully general BOP when the
// right operand folds to an immediate or constant-pool shortcut,
// falling back to bReg (the right operand's live register) otherwise
// — the binary-operator instance of spec.md §4.4's query-API
// requirement.
func (c *Coder) EmitBOpBest(line, dest, aReg int, op value.OperatorID, b value.Value, bReg int) int {
	if imm, ok := c.QueryImmediate(b); ok {
		return c.Emit(opcode.OpBOpI, line, int32(dest), int32(aReg), int32(op), imm)
	}
	if !b.IsNil() {
		return c.Emit(opcode.OpBOpC, line, int32(dest), int32(aReg), int32(op), int32(c.QueryConst(b, false)))
	}
	return c.EmitBOp(line, dest, aReg, op, bReg)
}

// EmitGetVar/EmitSetVar read and write a module static-variable slot —
// the third shortcut form the query API names, used whenever the
// symbol being referenced resolved to a Static-storage variable
// instead of a register-resident local (spec.md §4.3, §4.4).
func (c *Coder) EmitGetVar(line, dest, varIdx int) int {
	return c.Emit(opcode.OpGetVar, line, int32(dest), int32(varIdx))
}

func (c *Coder) EmitSetVar(line, src, varIdx int) int {
	return c.Emit(opcode.OpSetVar, line, int32(src), int32(varIdx))
}
