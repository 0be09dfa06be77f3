package codegen

import (
	"eel/pkg/events"
	"eel/pkg/opcode"
)

// branchOpcodes is the set spec.md §4.5 singles out: instructions a
// parser patches after the fact, once it knows where control actually
// has to land. Coder.Emit returns their position instead of -1 so the
// caller has a patch handle without the caller needing to know which
// opcodes are branches.
var branchOpcodes = map[opcode.Opcode]bool{
	opcode.OpJump:     true,
	opcode.OpJumpZ:    true,
	opcode.OpJumpNZ:   true,
	opcode.OpSwitch:   true,
	opcode.OpPreloop:  true,
	opcode.OpLoop:     true,
	opcode.OpReturn:   true,
	opcode.OpReturnR:  true,
	opcode.OpThrow:    true,
	opcode.OpRetry:    true,
	opcode.OpRetX:     true,
	opcode.OpRetXR:    true,
}

// exitOpcodes never fall through to the following instruction. Emitting
// one tells the events context the current path has exited, the same
// way the teacher's emitReturn/emitThrow call c.events.MarkExit.
var exitOpcodes = map[opcode.Opcode]bool{
	opcode.OpReturn:  true,
	opcode.OpReturnR: true,
	opcode.OpThrow:   true,
	opcode.OpRetry:   true,
	opcode.OpRetX:    true,
	opcode.OpRetXR:   true,
	opcode.OpJump:    true,
}

// Coder is the function-under-construction emission surface: an
// opcode.Encoder plus the bookkeeping spec.md §4.5 and §4.6 layer on
// top of it — fragment boundaries for the peephole pass, and the
// dead-code-elimination hook into events.Context.
//
// One Coder exists per function being compiled; the parser pushes a
// new one when it enters a nested procedure and pops back to the
// enclosing one on exit, the same stack discipline the teacher's
// Compiler keeps for its *Chunk.
type Coder struct {
	enc    *opcode.Encoder
	Events *events.Context
	Regs   *RegisterAllocator
	Pool   *ConstPool

	// fragments holds the starting position of every closed code
	// fragment: one begins at position 0 and after every branch-like
	// instruction, and one ends at every branch target. The peephole
	// pass (peephole.go) only ever rewrites within a single fragment,
	// since a jump into the middle of a rewritten sequence would land
	// on the wrong instruction.
	fragments []int

	// fillDeadCode selects what Emit does once Events reports the
	// current path has definitely exited (events.Yes): true replaces
	// the suppressed instruction with ILLEGAL/NOP filler so code
	// positions downstream don't shift; false emits nothing at all.
	// Set from NewCoder's argument; pkg/compiler passes true for every
	// compile, and config.Config has no switch for it.
	fillDeadCode bool
}

// NewCoder returns a Coder for one function, with a fresh register
// allocator, constant pool, and root events context.
func NewCoder(fillDeadCode bool) *Coder {
	return &Coder{
		enc:          opcode.NewEncoder(),
		Events:       events.NewRoot(),
		Regs:         NewRegisterAllocator(),
		Pool:         NewConstPool(),
		fragments:    []int{0},
		fillDeadCode: fillDeadCode,
	}
}

// Pos returns the position the next instruction will be written at.
func (c *Coder) Pos() int { return c.enc.Pos() }

// Code returns the accumulated instruction bytes.
func (c *Coder) Code() []byte { return c.enc.Code }

// Lines returns the accumulated per-instruction line table.
func (c *Coder) Lines() []int { return c.enc.Lines }

// Emit writes one instruction, honoring the dead-code and branch-patch
// return contract spec.md §4.5 defines:
//
//   - a branch instruction that is actually emitted returns its
//     position, for the caller to patch later via SetJump;
//   - any other actually-emitted instruction returns -1;
//   - once the current path has definitely exited
//     (Events.TestExit() == events.Yes), the instruction is either
//     suppressed or replaced with ILLEGAL/NOP fill, and Emit returns
//     -pos so a later SetJump against that position is silently a
//     no-op instead of corrupting an unrelated instruction.
func (c *Coder) Emit(op opcode.Opcode, line int, operands ...int32) int {
	if c.Events.TestExit() == events.Yes {
		pos := c.enc.Pos()
		if c.fillDeadCode {
			fillDead(c.enc, op, line)
		}
		return -pos
	}
	pos := c.enc.Emit(op, line, operands...)
	if exitOpcodes[op] {
		c.Events.Exit()
	}
	if branchOpcodes[op] {
		return pos
	}
	return -1
}

// fillDead replaces the instruction op would have occupied with
// ILLEGAL followed by NOP filler of the same total size, so that
// lineinfo stays one-entry-per-instruction (spec.md §8's invariant)
// and later positions are unaffected by the suppression.
func fillDead(enc *opcode.Encoder, op opcode.Opcode, line int) {
	size := opcode.Size(op)
	enc.Emit(opcode.OpIllegal, line)
	for i := 1; i < size; i++ {
		enc.Emit(opcode.OpNop, line)
	}
}

// SetJump patches the branch instruction at pos to target dst,
// ignoring patch requests against a dead-code fill position (any
// negative pos, per Emit's contract above).
func (c *Coder) SetJump(pos, dst int) {
	if pos < 0 {
		return
	}
	isize := opcode.Size(opcode.Opcode(c.enc.Code[pos]))
	offset := dst - pos - isize
	if offset < -32768 || offset > 32767 {
		panic("codegen: branch target out of 16-bit relative range")
	}
	c.enc.PatchBranch(pos, int32(offset))
}

// OpenFragment marks pos (normally c.Pos()) as the start of a new
// closed fragment: called after every branch-like emission and at
// every branch target the parser resolves, so the peephole pass never
// straddles a jump boundary.
func (c *Coder) OpenFragment(pos int) {
	if len(c.fragments) == 0 || c.fragments[len(c.fragments)-1] != pos {
		c.fragments = append(c.fragments, pos)
	}
}

// Fragments returns the fragment boundary positions gathered so far,
// in ascending order, with a final sentinel at the current end of
// code so callers can iterate [fragments[i], fragments[i+1]) pairs.
func (c *Coder) Fragments() []int {
	out := append([]int(nil), c.fragments...)
	if len(out) == 0 || out[len(out)-1] != c.enc.Pos() {
		out = append(out, c.enc.Pos())
	}
	return out
}

// --- Convenience wrappers, in the teacher's emit.go one-function-per-
// opcode idiom. These exist for the instructions the parser's control-
// flow constructs touch directly (so branch positions and exit-marking
// stay in one place); everything else goes through Emit generically.

// EmitJump emits an unconditional jump with a zero placeholder offset
// and returns its position for a later SetJump.
func (c *Coder) EmitJump(line int) int { return c.Emit(opcode.OpJump, line, 0) }

// EmitJumpZ emits a jump-if-falsy over register cond.
func (c *Coder) EmitJumpZ(line, cond int) int {
	return c.Emit(opcode.OpJumpZ, line, int32(cond), 0)
}

// EmitJumpNZ emits a jump-if-truthy over register cond.
func (c *Coder) EmitJumpNZ(line, cond int) int {
	return c.Emit(opcode.OpJumpNZ, line, int32(cond), 0)
}

// EmitReturn emits a bare return (no result register).
func (c *Coder) EmitReturn(line int) int { return c.Emit(opcode.OpReturn, line) }

// EmitReturnR emits a return carrying register r's value.
func (c *Coder) EmitReturnR(line, r int) int { return c.Emit(opcode.OpReturnR, line, int32(r)) }

// EmitThrow emits a throw of register r's value.
func (c *Coder) EmitThrow(line, r int) int { return c.Emit(opcode.OpThrow, line, int32(r)) }

// EmitMove emits a register-to-register move, skipping the redundant
// self-move a naive code path sometimes produces (the teacher's
// emitMove short-circuit in its emit.go).
func (c *Coder) EmitMove(line, dst, src int) int {
	if dst == src {
		return -1
	}
	return c.Emit(opcode.OpMove, line, int32(dst), int32(src))
}

// EmitLDNil loads nil into register r.
func (c *Coder) EmitLDNil(line, r int) int { return c.Emit(opcode.OpLDNil, line, int32(r)) }

// EmitLDTrue loads boolean true into register r.
func (c *Coder) EmitLDTrue(line, r int) int { return c.Emit(opcode.OpLDTrue, line, int32(r)) }

// EmitLDFalse loads boolean false into register r.
func (c *Coder) EmitLDFalse(line, r int) int { return c.Emit(opcode.OpLDFalse, line, int32(r)) }

// EmitLDI loads a small signed immediate into register r.
func (c *Coder) EmitLDI(line, r int, imm int32) int {
	return c.Emit(opcode.OpLDI, line, int32(r), imm)
}

// EmitLDC loads constant pool entry k into register r.
func (c *Coder) EmitLDC(line, r, k int) int {
	return c.Emit(opcode.OpLDC, line, int32(r), int32(k))
}
