package opcode

import "testing"

func TestLayoutSizes(t *testing.T) {
	cases := []struct {
		l    Layout
		want int
	}{
		{Layout0, 1},
		{LayoutA, 2},
		{LayoutAx, 3},
		{LayoutAB, 3},
		{LayoutABC, 4},
		{LayoutABCD, 5},
		{LayoutSAx, 3},
		{LayoutABx, 4},
		{LayoutASBx, 4},
		{LayoutAxBx, 5},
		{LayoutAxSBx, 5},
		{LayoutABCx, 5},
		{LayoutABSCx, 5},
		{LayoutABxCx, 6},
		{LayoutABxSCx, 6},
		{LayoutABCDx, 6},
		{LayoutABCSDx, 6},
	}
	for _, c := range cases {
		if got := c.l.Size(); got != c.want {
			t.Errorf("%s.Size() = %d, want %d", c.l.Name(), got, c.want)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		op       Opcode
		operands []int32
	}{
		{OpReturn, nil},
		{OpReturnR, []int32{5}},
		{OpJump, []int32{-12}},
		{OpJumpZ, []int32{3, 200}},
		{OpMove, []int32{1, 2}},
		{OpBOp, []int32{0, 1, 2, 3}},
		{OpBOpI, []int32{0, 1, 2, -500}},
		{OpGetUVTArgI, []int32{1, 2, 3, 4}},
		{OpSwitch, []int32{1, 300, -20}},
		{OpPreloop, []int32{0, 1, 2, -100}},
		{OpTry, []int32{10, 20}},
	}
	for _, c := range cases {
		e := NewEncoder()
		e.Emit(c.op, 7, c.operands...)
		if len(e.Code) != Size(c.op) {
			t.Fatalf("%s: encoded %d bytes, want %d", Name(c.op), len(e.Code), Size(c.op))
		}
		ins := Decode(e.Code, 0)
		if ins.Op != c.op {
			t.Fatalf("decoded op %s, want %s", ins.Op, c.op)
		}
		if ins.Size != Size(c.op) {
			t.Fatalf("%s: decoded size %d, want %d", Name(c.op), ins.Size, Size(c.op))
		}
		if len(ins.Operands) != len(c.operands) {
			t.Fatalf("%s: decoded %d operands, want %d", Name(c.op), len(ins.Operands), len(c.operands))
		}
		for i := range c.operands {
			if ins.Operands[i] != c.operands[i] {
				t.Errorf("%s operand[%d] = %d, want %d", Name(c.op), i, ins.Operands[i], c.operands[i])
			}
		}
		if len(e.Lines) != 1 || e.Lines[0] != 7 {
			t.Fatalf("%s: expected one lineinfo entry = 7, got %v", Name(c.op), e.Lines)
		}
	}
}

func TestEmitWrongArityPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on arity mismatch")
		}
	}()
	e := NewEncoder()
	e.Emit(OpMove, 1, 5) // MOVE needs 2 operands
}

func TestDecodeAllMultipleInstructions(t *testing.T) {
	e := NewEncoder()
	e.Emit(OpLDI, 1, 0, 42)
	e.Emit(OpLDI, 2, 1, 7)
	e.Emit(OpReturn, 3)
	instrs := DecodeAll(e.Code)
	if len(instrs) != 3 {
		t.Fatalf("expected 3 instructions, got %d", len(instrs))
	}
	if instrs[0].Op != OpLDI || instrs[1].Op != OpLDI || instrs[2].Op != OpReturn {
		t.Fatalf("unexpected decode sequence: %v", instrs)
	}
	if instrs[2].PC != Size(OpLDI)*2 {
		t.Fatalf("expected RETURN at pc %d, got %d", Size(OpLDI)*2, instrs[2].PC)
	}
}

func TestPatchBranch(t *testing.T) {
	e := NewEncoder()
	pos := e.Emit(OpJump, 1, 0)
	e.PatchBranch(pos, -5)
	ins := Decode(e.Code, pos)
	if ins.Operands[0] != -5 {
		t.Fatalf("expected patched offset -5, got %d", ins.Operands[0])
	}
}

func TestNegativeSignedFieldsRoundTrip(t *testing.T) {
	e := NewEncoder()
	e.Emit(OpLDI, 1, 3, -32768)
	ins := Decode(e.Code, 0)
	if ins.Operands[1] != -32768 {
		t.Fatalf("expected -32768, got %d", ins.Operands[1])
	}
}
