package codegen

import (
	"testing"

	"eel/pkg/opcode"
	"eel/pkg/value"
)

func TestPeepholeFusesTwoPushes(t *testing.T) {
	c := NewCoder(true)
	c.Emit(opcode.OpPush, 1)
	c.Emit(opcode.OpPush, 1)
	c.ClosePeephole(0)
	instrs := opcode.DecodeAll(c.Code())
	if len(instrs) != 1 || instrs[0].Op != opcode.OpPush2 {
		t.Fatalf("expected PUSH;PUSH -> PUSH2, got %v", instrs)
	}
}

func TestPeepholeFusesPush2AndPushIntoPush3(t *testing.T) {
	c := NewCoder(true)
	c.Emit(opcode.OpPush2, 1)
	c.Emit(opcode.OpPush, 1)
	c.ClosePeephole(0)
	instrs := opcode.DecodeAll(c.Code())
	if len(instrs) != 1 || instrs[0].Op != opcode.OpPush3 {
		t.Fatalf("expected PUSH2;PUSH -> PUSH3, got %v", instrs)
	}
}

func TestPeepholeCascadesFourPushesIntoPush4(t *testing.T) {
	c := NewCoder(true)
	c.Emit(opcode.OpPush, 1)
	c.Emit(opcode.OpPush, 1)
	c.Emit(opcode.OpPush, 1)
	c.Emit(opcode.OpPush, 1)
	c.ClosePeephole(0)
	instrs := opcode.DecodeAll(c.Code())
	if len(instrs) != 1 || instrs[0].Op != opcode.OpPush4 {
		t.Fatalf("expected four PUSHes to cascade down to one PUSH4, got %v", instrs)
	}
	if len(c.Lines()) != 1 {
		t.Fatalf("expected lineinfo to collapse to one entry, got %v", c.Lines())
	}
}

func TestPeepholeFusesPushConstPair(t *testing.T) {
	c := NewCoder(true)
	c.Emit(opcode.OpPushC, 1, 3)
	c.Emit(opcode.OpPushC, 1, 7)
	c.ClosePeephole(0)
	instrs := opcode.DecodeAll(c.Code())
	if len(instrs) != 1 || instrs[0].Op != opcode.OpPushC2 {
		t.Fatalf("expected PUSHC;PUSHC -> PUSHC2, got %v", instrs)
	}
	if instrs[0].Operands[0] != 3 || instrs[0].Operands[1] != 7 {
		t.Fatalf("expected operands (3,7) preserved, got %v", instrs[0].Operands)
	}
}

func TestPeepholeFusesNotJumpZIntoJumpNZ(t *testing.T) {
	c := NewCoder(true)
	c.Regs.AllocTemp(1) // reg 0 busy while NOT writes it
	c.Emit(opcode.OpNot, 1, 0, 1)
	c.Regs.Free(0, 1) // consumed by the jump: now free, enabling the rewrite
	c.Emit(opcode.OpJumpZ, 1, 0, 42)
	c.ClosePeephole(0)
	instrs := opcode.DecodeAll(c.Code())
	if len(instrs) != 1 || instrs[0].Op != opcode.OpJumpNZ {
		t.Fatalf("expected NOT;JUMPZ -> JUMPNZ, got %v", instrs)
	}
	if instrs[0].Operands[0] != 1 || instrs[0].Operands[1] != 42 {
		t.Fatalf("expected JUMPNZ on original register 1 with offset 42, got %v", instrs[0].Operands)
	}
}

func TestPeepholeDoesNotFuseWhenRegisterStillLive(t *testing.T) {
	c := NewCoder(true)
	c.Regs.AllocTemp(1) // reg 0: left allocated, simulating a still-needed value
	c.Emit(opcode.OpNot, 1, 0, 1)
	c.Emit(opcode.OpJumpZ, 1, 0, 42)
	c.ClosePeephole(0)
	instrs := opcode.DecodeAll(c.Code())
	if len(instrs) != 2 {
		t.Fatalf("expected no rewrite while register 0 is still allocated, got %v", instrs)
	}
}

func TestPeepholeFusesLDIInitIntoINITI(t *testing.T) {
	c := NewCoder(true)
	c.Regs.AllocTemp(1) // reg 0
	c.Emit(opcode.OpLDI, 1, 0, 9)
	c.Regs.Free(0, 1)
	c.Emit(opcode.OpInit, 1, 5, 0)
	c.ClosePeephole(0)
	instrs := opcode.DecodeAll(c.Code())
	if len(instrs) != 1 || instrs[0].Op != opcode.OpInitI {
		t.Fatalf("expected LDI;INIT -> INITI, got %v", instrs)
	}
	if instrs[0].Operands[0] != 5 || instrs[0].Operands[1] != 9 {
		t.Fatalf("expected INITI 5,9, got %v", instrs[0].Operands)
	}
}

func TestPeepholeFusesLDNilInitIntoINITNIL(t *testing.T) {
	c := NewCoder(true)
	c.Regs.AllocTemp(1)
	c.Emit(opcode.OpLDNil, 1, 0)
	c.Regs.Free(0, 1)
	c.Emit(opcode.OpInit, 1, 5, 0)
	c.ClosePeephole(0)
	instrs := opcode.DecodeAll(c.Code())
	if len(instrs) != 1 || instrs[0].Op != opcode.OpInitNil || instrs[0].Operands[0] != 5 {
		t.Fatalf("expected LDNIL;INIT -> INITNIL 5, got %v", instrs)
	}
}

func TestPeepholeFusesBOpPushIntoPHBOp(t *testing.T) {
	c := NewCoder(true)
	c.Regs.AllocTemp(1) // reg 0 holds the BOP result until PUSH consumes it
	c.EmitBOp(1, 0, 1, value.OpAdd, 2)
	c.Regs.Free(0, 1)
	c.Emit(opcode.OpPush, 1)
	c.ClosePeephole(0)
	instrs := opcode.DecodeAll(c.Code())
	if len(instrs) != 1 || instrs[0].Op != opcode.OpPHBOp {
		t.Fatalf("expected BOP;PUSH -> PHBOP, got %v", instrs)
	}
	if instrs[0].Operands[0] != 1 || instrs[0].Operands[1] != int32(value.OpAdd) || instrs[0].Operands[2] != 2 {
		t.Fatalf("expected PHBOP 1,ADD,2, got %v", instrs[0].Operands)
	}
}

func TestPeepholeCollapsesBOpAddToDedicatedOp(t *testing.T) {
	c := NewCoder(true)
	c.EmitBOp(1, 5, 1, value.OpAdd, 2)
	c.ClosePeephole(0)
	instrs := opcode.DecodeAll(c.Code())
	if len(instrs) != 1 || instrs[0].Op != opcode.OpAdd {
		t.Fatalf("expected BOP(ADD) -> dedicated ADD, got %v", instrs)
	}
	if instrs[0].Operands[0] != 5 || instrs[0].Operands[1] != 1 || instrs[0].Operands[2] != 2 {
		t.Fatalf("expected ADD 5,1,2, got %v", instrs[0].Operands)
	}
}

func TestPeepholeLeavesNonArithmeticBOpAlone(t *testing.T) {
	c := NewCoder(true)
	c.EmitBOp(1, 5, 1, value.OpIn, 2)
	c.ClosePeephole(0)
	instrs := opcode.DecodeAll(c.Code())
	if len(instrs) != 1 || instrs[0].Op != opcode.OpBOp {
		t.Fatalf("expected IN operator BOP to stay generic, got %v", instrs)
	}
}
