package codegen

import (
	"eel/pkg/opcode"
	"eel/pkg/value"
)

// dedicatedBOp maps a BOP's operator operand to the 3-address opcode
// it collapses to when the compiler knows at dedicated-rewrite time
// that no operand needs the generic dispatch BOP carries (spec.md
// §4.5's 8th canonical rewrite). Only the primary arithmetic operators
// get a dedicated form; the Sym* reverse variants exist for
// compound-assignment reordering and have no 3-address shortcut of
// their own.
var dedicatedBOp = map[value.OperatorID]opcode.Opcode{
	value.OpAdd: opcode.OpAdd,
	value.OpSub: opcode.OpSub,
	value.OpMul: opcode.OpMul,
	value.OpDiv: opcode.OpDiv,
	value.OpMod: opcode.OpMod,
	value.OpPow: opcode.OpPower,
}

// ClosePeephole runs the optimiser over the closed fragment
// [start, c.Pos()): the parser calls this once it knows no branch can
// land inside that span, i.e. right before it resolves a branch
// target there or reaches the end of the function (spec.md §4.5).
// Repeats passes until none produces a further substitution.
func (c *Coder) ClosePeephole(start int) {
	for c.peepholePass(start, c.enc.Pos()) {
	}
}

// peepholePass scans every instruction within [fragStart, fragEnd)
// once, trying the two-instruction rules before the single-
// instruction dedicated-op rule at each position, and applies the
// first rewrite it finds, returning true if it applied one (so the
// caller re-scans from scratch, since a rewrite can expose a further
// one, e.g. PUSH2;PUSH2 -> PUSH4 after two PUSH;PUSH -> PUSH2
// rewrites already landed).
func (c *Coder) peepholePass(fragStart, fragEnd int) bool {
	all := opcode.DecodeAll(c.enc.Code)
	for i := range all {
		a := all[i]
		if a.PC < fragStart || a.PC+a.Size > fragEnd {
			continue
		}
		if i+1 < len(all) {
			b := all[i+1]
			// PUSH2;PUSH waits while another PUSH follows, so that the
			// trailing PUSH;PUSH fuses first and PUSH2;PUSH2 can then
			// become PUSH4.
			deferPush3 := a.Op == opcode.OpPush2 && b.Op == opcode.OpPush &&
				i+2 < len(all) && all[i+2].Op == opcode.OpPush && all[i+2].PC+all[i+2].Size <= fragEnd
			if b.PC+b.Size <= fragEnd && !deferPush3 {
				if newCode, newLines, ok := c.rewritePair(a, b, c.enc.Lines[i], c.enc.Lines[i+1]); ok {
					c.replace(i, 2, newCode, newLines)
					return true
				}
			}
		}
		if newCode, newLines, ok := c.rewriteSingle(a, c.enc.Lines[i]); ok {
			c.replace(i, 1, newCode, newLines)
			return true
		}
	}
	return false
}

// replace substitutes the count instructions starting at instruction
// index idx (whose byte span is known from the full decode) with
// newCode/newLines, removing the old byte span and line entries and
// splicing in the new ones (spec.md §4.5: "any difference in byte
// length and instruction count must be removed from the code buffer
// and the parallel lineinfo table starting at the substitution
// position").
func (c *Coder) replace(idx, count int, newCode []byte, newLines []int) {
	all := opcode.DecodeAll(c.enc.Code)
	startPC := all[idx].PC
	endPC := all[idx+count-1].PC + all[idx+count-1].Size

	code := append([]byte{}, c.enc.Code[:startPC]...)
	code = append(code, newCode...)
	code = append(code, c.enc.Code[endPC:]...)
	c.enc.Code = code

	lines := append([]int{}, c.enc.Lines[:idx]...)
	lines = append(lines, newLines...)
	lines = append(lines, c.enc.Lines[idx+count:]...)
	c.enc.Lines = lines

	c.shiftFragmentsAfter(startPC, len(newCode)-(endPC-startPC))
}

// shiftFragmentsAfter adjusts every fragment boundary past pos by
// delta, so ClosePeephole calls for fragments emitted after this one
// still line up with the rewritten buffer.
func (c *Coder) shiftFragmentsAfter(pos, delta int) {
	for i, f := range c.fragments {
		if f > pos {
			c.fragments[i] = f + delta
		}
	}
}

// rewritePair checks a,b against the canonical rewrite table and, on a
// match, returns the replacement instruction(s) pre-encoded. Every
// "same register, not keep-regs" rule gates on the register already
// being free in c.Regs: the parser frees a temporary the moment its
// value is consumed, so a register still allocated at fragment-close
// time means some other path still needs it and the rewrite would be
// unsound.
func (c *Coder) rewritePair(a, b opcode.Instruction, lineA, lineB int) ([]byte, []int, bool) {
	switch {
	case a.Op == opcode.OpPush && b.Op == opcode.OpPush:
		return encodeOne(opcode.OpPush2, lineA)
	case a.Op == opcode.OpPush2 && b.Op == opcode.OpPush:
		return encodeOne(opcode.OpPush3, lineA)
	case a.Op == opcode.OpPush2 && b.Op == opcode.OpPush2:
		return encodeOne(opcode.OpPush4, lineA)
	case a.Op == opcode.OpPushC && b.Op == opcode.OpPushC:
		return encodeOne(opcode.OpPushC2, lineA, a.Operands[0], b.Operands[0])
	case a.Op == opcode.OpPushC && b.Op == opcode.OpPushI:
		return encodeOne(opcode.OpPushCI, lineA, a.Operands[0], b.Operands[0])
	case a.Op == opcode.OpPushI && b.Op == opcode.OpPushC:
		return encodeOne(opcode.OpPushIC, lineA, b.Operands[0], a.Operands[0])
	case a.Op == opcode.OpNot && b.Op == opcode.OpJumpZ && a.Operands[0] == b.Operands[0] && c.Regs.IsFree(int(a.Operands[0])):
		return encodeOne(opcode.OpJumpNZ, lineB, a.Operands[1], b.Operands[1])
	case a.Op == opcode.OpLDI && b.Op == opcode.OpInit && a.Operands[0] == b.Operands[1] && c.Regs.IsFree(int(a.Operands[0])):
		return encodeOne(opcode.OpInitI, lineB, b.Operands[0], a.Operands[1])
	case a.Op == opcode.OpLDNil && b.Op == opcode.OpInit && a.Operands[0] == b.Operands[1] && c.Regs.IsFree(int(a.Operands[0])):
		return encodeOne(opcode.OpInitNil, lineB, b.Operands[0])
	case a.Op == opcode.OpLDC && b.Op == opcode.OpIndGet && a.Operands[0] == b.Operands[1] && c.Regs.IsFree(int(a.Operands[0])):
		// INDGET fields: (d, idx, o); INDGETC fields: (d, o, kc).
		return encodeOne(opcode.OpIndGetC, lineB, b.Operands[0], b.Operands[2], a.Operands[1])
	case a.Op == opcode.OpBOp && b.Op == opcode.OpPush && c.Regs.IsFree(int(a.Operands[0])):
		// BOP fields: (d, a, op, b); PHBOP fields: (a, op, b).
		return encodeOne(opcode.OpPHBOp, lineB, a.Operands[1], a.Operands[2], a.Operands[3])
	}
	return nil, nil, false
}

// rewriteSingle checks a lone instruction for the one single-
// instruction rule in the table: a BOP whose operator is one of the
// primary arithmetic ops collapses to its dedicated 3-address opcode
// regardless of what follows it (spec.md §4.5's 8th rewrite).
func (c *Coder) rewriteSingle(a opcode.Instruction, lineA int) ([]byte, []int, bool) {
	if a.Op != opcode.OpBOp {
		return nil, nil, false
	}
	dedicated, ok := dedicatedBOp[value.OperatorID(a.Operands[2])]
	if !ok {
		return nil, nil, false
	}
	// BOP fields: (d, a, op, b); dedicated op fields: (d, a, b).
	return encodeOne(dedicated, lineA, a.Operands[0], a.Operands[1], a.Operands[3])
}

// encodeOne encodes a single replacement instruction into standalone
// bytes and a matching one-entry line slice.
func encodeOne(op opcode.Opcode, line int, operands ...int32) ([]byte, []int, bool) {
	e := opcode.NewEncoder()
	e.Emit(op, line, operands...)
	return e.Code, e.Lines, true
}
