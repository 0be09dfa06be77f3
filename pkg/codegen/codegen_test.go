package codegen

import (
	"testing"

	"eel/pkg/events"
	"eel/pkg/opcode"
	"eel/pkg/value"
)

func TestQueryImmediateAcceptsInt16Range(t *testing.T) {
	c := NewCoder(true)
	if _, ok := c.QueryImmediate(value.IntegerValue(32767)); !ok {
		t.Fatalf("expected 32767 to fit as an immediate")
	}
	if _, ok := c.QueryImmediate(value.IntegerValue(-32768)); !ok {
		t.Fatalf("expected -32768 to fit as an immediate")
	}
}

func TestQueryImmediateRejectsOutOfRange(t *testing.T) {
	c := NewCoder(true)
	if _, ok := c.QueryImmediate(value.IntegerValue(32768)); ok {
		t.Fatalf("expected 32768 to overflow the immediate form")
	}
	if _, ok := c.QueryImmediate(value.IntegerValue(-32769)); ok {
		t.Fatalf("expected -32769 to overflow the immediate form")
	}
}

func TestQueryImmediateRejectsNonInteger(t *testing.T) {
	c := NewCoder(true)
	if _, ok := c.QueryImmediate(value.RealValue(1.0)); ok {
		t.Fatalf("expected a real value never to be offered as an immediate")
	}
}

func TestQueryConstInternsAndDedups(t *testing.T) {
	c := NewCoder(true)
	i1 := c.QueryConst(value.RealValue(2.5), false)
	i2 := c.QueryConst(value.RealValue(2.5), false)
	if i1 != i2 {
		t.Fatalf("expected QueryConst to dedup equal values, got %d and %d", i1, i2)
	}
}

func TestEmitLoadValuePicksImmediateForSmallInt(t *testing.T) {
	c := NewCoder(true)
	c.EmitLoadValue(1, 0, value.IntegerValue(7))
	ins := opcode.Decode(c.Code(), 0)
	if ins.Op != opcode.OpLDI {
		t.Fatalf("expected LDI for a small integer, got %s", ins.Op)
	}
}

func TestEmitLoadValuePicksConstForReal(t *testing.T) {
	c := NewCoder(true)
	c.EmitLoadValue(1, 0, value.RealValue(3.14))
	ins := opcode.Decode(c.Code(), 0)
	if ins.Op != opcode.OpLDC {
		t.Fatalf("expected LDC for a real value, got %s", ins.Op)
	}
	if c.Pool.Len() != 1 {
		t.Fatalf("expected the real value interned into the constant pool, got len %d", c.Pool.Len())
	}
}

func TestEmitInitValuePicksImmediateForSmallInt(t *testing.T) {
	c := NewCoder(true)
	c.EmitInitValue(1, 3, value.IntegerValue(-5))
	ins := opcode.Decode(c.Code(), 0)
	if ins.Op != opcode.OpInitI {
		t.Fatalf("expected INITI for a small integer, got %s", ins.Op)
	}
}

func TestEmitAssignValuePicksConstForOutOfRangeInt(t *testing.T) {
	c := NewCoder(true)
	c.EmitAssignValue(1, 3, value.IntegerValue(100000))
	ins := opcode.Decode(c.Code(), 0)
	if ins.Op != opcode.OpAssignC {
		t.Fatalf("expected ASSIGNC for an out-of-range integer, got %s", ins.Op)
	}
}

func TestEmitPushValuePicksImmediateForSmallInt(t *testing.T) {
	c := NewCoder(true)
	c.EmitPushValue(1, value.IntegerValue(1))
	ins := opcode.Decode(c.Code(), 0)
	if ins.Op != opcode.OpPushI {
		t.Fatalf("expected PUSHI for a small integer, got %s", ins.Op)
	}
}

func TestEmitBOpBestPicksImmediateForm(t *testing.T) {
	c := NewCoder(true)
	c.EmitBOpBest(1, 0, 1, value.OpAdd, value.IntegerValue(3), -1)
	ins := opcode.Decode(c.Code(), 0)
	if ins.Op != opcode.OpBOpI {
		t.Fatalf("expected BOPI when the right operand is a small integer, got %s", ins.Op)
	}
}

func TestEmitBOpBestPicksConstForm(t *testing.T) {
	c := NewCoder(true)
	c.EmitBOpBest(1, 0, 1, value.OpAdd, value.RealValue(9.5), -1)
	ins := opcode.Decode(c.Code(), 0)
	if ins.Op != opcode.OpBOpC {
		t.Fatalf("expected BOPC when the right operand is a constant-pool value, got %s", ins.Op)
	}
}

func TestEmitBOpBestFallsBackToGeneralForm(t *testing.T) {
	c := NewCoder(true)
	c.EmitBOpBest(1, 0, 1, value.OpAdd, value.Value{}, 2)
	ins := opcode.Decode(c.Code(), 0)
	if ins.Op != opcode.OpBOp {
		t.Fatalf("expected the fully general BOP when the right operand is itself a live register, got %s", ins.Op)
	}
	if ins.Operands[3] != 2 {
		t.Fatalf("expected the general form to reference register 2, got %v", ins.Operands)
	}
}

func TestEmitGetVarAndSetVar(t *testing.T) {
	c := NewCoder(true)
	c.EmitGetVar(1, 0, 4)
	ins := opcode.Decode(c.Code(), 0)
	if ins.Op != opcode.OpGetVar || ins.Operands[1] != 4 {
		t.Fatalf("expected GETVAR 0,4, got %v", ins)
	}
}

func TestMergeScopesYesWhenAllConditionalSiblingsExit(t *testing.T) {
	c := NewCoder(true)
	c.PushScope(events.Conditional)
	c.EmitReturn(1)
	c.Events.Return()
	c.PopScope()
	c.PushScope(events.Conditional)
	c.EmitReturn(1)
	c.Events.Return()
	c.PopScope()
	c.MergeScopes(events.Yes)
	if c.Events.TestExit() != events.Yes {
		t.Fatalf("expected an exhaustive if/else where both arms return to exit unconditionally")
	}
}

func TestMergeScopesMaybeWhenOnlyOneArmExits(t *testing.T) {
	c := NewCoder(true)
	c.PushScope(events.Conditional)
	c.EmitReturn(1)
	c.PopScope()
	c.MergeScopes(events.Maybe)
	if c.Events.TestExit() == events.Yes {
		t.Fatalf("expected an if without an else not to guarantee exit")
	}
}
