package opcode

import "fmt"

// Encoder accumulates a function's code vector and its parallel
// lineinfo table, one entry per instruction (spec.md §4.1, §8's
// `F.lines.len == count_instructions(F.code)` invariant). It is the Go
// analogue of the original compiler's eel_codeXXX family
// (ec_coder.c), collapsed into one layout-driven Emit instead of one
// hand-written function per layout.
type Encoder struct {
	Code  []byte
	Lines []int
}

// NewEncoder returns an empty encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Pos returns the position the next instruction will be written at —
// used as a branch-fixup handle by the caller (spec.md §4.5's
// set_jump/get_jump).
func (e *Encoder) Pos() int { return len(e.Code) }

// Emit appends one instruction for op, writing operands according to
// op's layout in the order given. Operand count must match the
// layout's arity; panics (an internal invariant violation, not a
// user-facing error) if it doesn't, since only the code generator
// calls this and a mismatch there is a programming bug. Returns the
// position the instruction was written at.
func (e *Encoder) Emit(op Opcode, line int, operands ...int32) int {
	layout := LayoutOf(op)
	fields := layoutFields[layout]
	if len(operands) != len(fields) {
		panic(fmt.Sprintf("opcode %s expects %d operands (layout %s), got %d",
			Name(op), len(fields), layout.Name(), len(operands)))
	}
	pos := len(e.Code)
	e.Code = append(e.Code, byte(op))
	for i, f := range fields {
		writeField(&e.Code, f, operands[i])
	}
	e.Lines = append(e.Lines, line)
	return pos
}

func writeField(buf *[]byte, f field, v int32) {
	switch f.bytes {
	case 1:
		*buf = append(*buf, byte(uint8(v)))
	case 2:
		u := uint16(v)
		*buf = append(*buf, byte(u>>8), byte(u))
	}
}

func readField(code []byte, pos int, f field) int32 {
	switch f.bytes {
	case 1:
		v := code[pos]
		if f.signed {
			return int32(int8(v))
		}
		return int32(v)
	case 2:
		u := uint16(code[pos])<<8 | uint16(code[pos+1])
		if f.signed {
			return int32(int16(u))
		}
		return int32(u)
	}
	return 0
}

// PatchBranch rewrites the branch offset of the instruction at pos,
// whose last operand field is the branch target, to newOffset.
// Equivalent to the original's eel_code_setjump (ec_coder.c).
func (e *Encoder) PatchBranch(pos int, newOffset int32) {
	op := Opcode(e.Code[pos])
	fields := layoutFields[LayoutOf(op)]
	if len(fields) == 0 {
		return
	}
	last := fields[len(fields)-1]
	off := pos + 1
	for _, f := range fields[:len(fields)-1] {
		off += f.bytes
	}
	writeField2(e.Code, off, last, newOffset)
}

func writeField2(buf []byte, pos int, f field, v int32) {
	switch f.bytes {
	case 1:
		buf[pos] = byte(uint8(v))
	case 2:
		u := uint16(v)
		buf[pos] = byte(u >> 8)
		buf[pos+1] = byte(u)
	}
}

// RemoveLineInfo drops `count` lineinfo entries starting at `start`,
// mirroring eel_code_remove_lineinfo, used by the peephole pass when
// it deletes dead instructions.
func (e *Encoder) RemoveLineInfo(start, count int) {
	e.Lines = append(e.Lines[:start], e.Lines[start+count:]...)
}

// RemoveBytes removes `count` bytes starting at `start` from the code
// vector, mirroring eel_code_remove_bytes.
func (e *Encoder) RemoveBytes(start, count int) {
	e.Code = append(e.Code[:start], e.Code[start+count:]...)
}

// Instruction is one decoded instruction: its opcode, its operand
// values in layout order, and its size in bytes.
type Instruction struct {
	PC       int
	Op       Opcode
	Operands []int32
	Size     int
}

// Decode reads the single instruction starting at pc.
func Decode(code []byte, pc int) Instruction {
	op := Opcode(code[pc])
	fields := layoutFields[LayoutOf(op)]
	operands := make([]int32, len(fields))
	pos := pc + 1
	for i, f := range fields {
		operands[i] = readField(code, pos, f)
		pos += f.bytes
	}
	return Instruction{PC: pc, Op: op, Operands: operands, Size: pos - pc}
}

// DecodeAll walks an entire code vector into its instruction sequence.
// Used by tests asserting the encode/decode round-trip property
// (spec.md §8) and by disassembly.
func DecodeAll(code []byte) []Instruction {
	var out []Instruction
	pc := 0
	for pc < len(code) {
		ins := Decode(code, pc)
		out = append(out, ins)
		pc += ins.Size
	}
	return out
}

// String renders an instruction generically: name followed by its raw
// operand values. A caller wanting constant/register-aware formatting
// (e.g. resolving a PUSHC operand to its constant's printed value)
// builds on top of this with its own per-opcode formatting, since that
// needs the constant pool which this package intentionally does not
// depend on.
func (i Instruction) String() string {
	s := fmt.Sprintf("%04d  %-10s", i.PC, Name(i.Op))
	for _, v := range i.Operands {
		s += fmt.Sprintf(" %d", v)
	}
	return s
}

// Disassemble renders every instruction in code, one per line.
func Disassemble(code []byte) string {
	out := ""
	for _, ins := range DecodeAll(code) {
		out += ins.String() + "\n"
	}
	return out
}
