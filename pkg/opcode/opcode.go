// Package opcode defines EEL's bytecode instruction set: the opcode
// enum, the fixed operand-layout table, and the shared encode/decode/
// disassemble logic all three of the code generator, a future VM, and
// any inspection tooling build on (spec.md §4.8).
package opcode

import "fmt"

// Layout identifies an opcode's operand shape. A letter is a 1-byte
// unsigned field; `s` prefixed means signed; a trailing `x` means the
// field is 2 bytes instead of 1 (spec.md §4.5, §4.8). This is the
// exact fixed set spec.md names — no opcode may use a shape outside
// it.
type Layout uint8

const (
	Layout0 Layout = iota
	LayoutA
	LayoutAx
	LayoutAB
	LayoutABC
	LayoutABCD
	LayoutSAx
	LayoutABx
	LayoutASBx
	LayoutAxBx
	LayoutAxSBx
	LayoutABCx
	LayoutABSCx
	LayoutABxCx
	LayoutABxSCx
	LayoutABCDx
	LayoutABCSDx
)

// field describes one operand slot within a layout: its byte width
// and whether it is sign-extended on decode.
type field struct {
	bytes  int
	signed bool
}

var layoutFields = map[Layout][]field{
	Layout0:      {},
	LayoutA:      {{1, false}},
	LayoutAx:     {{2, false}},
	LayoutAB:     {{1, false}, {1, false}},
	LayoutABC:    {{1, false}, {1, false}, {1, false}},
	LayoutABCD:   {{1, false}, {1, false}, {1, false}, {1, false}},
	LayoutSAx:    {{2, true}},
	LayoutABx:    {{1, false}, {2, false}},
	LayoutASBx:   {{1, false}, {2, true}},
	LayoutAxBx:   {{2, false}, {2, false}},
	LayoutAxSBx:  {{2, false}, {2, true}},
	LayoutABCx:   {{1, false}, {1, false}, {2, false}},
	LayoutABSCx:  {{1, false}, {1, false}, {2, true}},
	LayoutABxCx:  {{1, false}, {2, false}, {2, false}},
	LayoutABxSCx: {{1, false}, {2, false}, {2, true}},
	LayoutABCDx:  {{1, false}, {1, false}, {1, false}, {2, false}},
	LayoutABCSDx: {{1, false}, {1, false}, {1, false}, {2, true}},
}

// Name returns the layout's canonical name, as spec.md §4.5 writes it.
func (l Layout) Name() string {
	names := [...]string{
		"0", "A", "Ax", "AB", "ABC", "ABCD", "sAx", "ABx", "AsBx",
		"AxBx", "AxsBx", "ABCx", "ABsCx", "ABxCx", "ABxsCx", "ABCDx", "ABCsDx",
	}
	if int(l) < len(names) {
		return names[l]
	}
	return "?"
}

// Size returns the total instruction size in bytes, including the
// opcode byte itself.
func (l Layout) Size() int {
	n := 1
	for _, f := range layoutFields[l] {
		n += f.bytes
	}
	return n
}

// Arity returns the number of operand fields a layout carries.
func (l Layout) Arity() int { return len(layoutFields[l]) }

// Opcode is a single EEL VM instruction's symbolic identity. The
// ordering below has no significance beyond grouping (flow, call/args,
// memory, arguments, indexing, operators, objects, exceptions), per
// spec.md §4.8's categorization.
type Opcode uint8

const (
	OpIllegal Opcode = iota
	OpNop

	// Flow control.
	OpJump
	OpJumpZ
	OpJumpNZ
	OpSwitch
	OpPreloop
	OpLoop
	OpReturn
	OpReturnR
	OpThrow
	OpRetry
	OpRetX
	OpRetXR

	// Call / argument stack.
	OpPush
	OpPush2
	OpPush3
	OpPush4
	OpPushI
	OpPushC
	OpPushC2
	OpPushCI
	OpPushIC
	OpPHTrue
	OpPHFalse
	OpPushNil
	OpPHVar
	OpPHUVal
	OpPHArgs
	OpPushTup
	OpCall
	OpCallR
	OpCCall
	OpCCallR
	OpClean

	// Memory / locals.
	OpMove
	OpInit
	OpAssign
	OpInitI
	OpAssignI
	OpInitC
	OpAssignC
	OpInitNil
	OpAsnNil
	OpLDI
	OpLDC
	OpLDNil
	OpLDTrue
	OpLDFalse
	OpGetVar
	OpSetVar
	OpGetUVal
	OpSetUVal

	// Arguments.
	OpGetArgI
	OpSetArgI
	OpPHArgI
	OpPHArgI2
	OpGetUVArgI
	OpSetUVArgI
	OpGetTArgI
	OpGetUVTArgI
	OpArgC
	OpTupC
	OpSpec
	OpTSpec

	// Indexing.
	OpIndGet
	OpIndSet
	OpIndGetI
	OpIndSetI
	OpIndGetC
	OpIndSetC

	// Operators.
	OpBOp
	OpIPBOp
	OpBOpI
	OpBOpC
	OpBOpS
	OpPHBOp
	OpPHBOpI
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPower
	OpPHAdd
	OpPHSub
	OpPHMul
	OpPHDiv
	OpPHMod
	OpPHPower
	OpNeg
	OpNot
	OpBNot
	OpCastR
	OpCastI
	OpCastB
	OpCast
	OpTypeOf
	OpSizeOf
	OpWeakRef

	// Objects.
	OpNew
	OpClone

	// Exceptions.
	OpTry
	OpUntry

	opCount
)

type descriptor struct {
	name   string
	layout Layout
}

var table = [opCount]descriptor{
	OpIllegal: {"ILLEGAL", Layout0},
	OpNop:     {"NOP", Layout0},

	OpJump:    {"JUMP", LayoutSAx},
	OpJumpZ:   {"JUMPZ", LayoutASBx},
	OpJumpNZ:  {"JUMPNZ", LayoutASBx},
	OpSwitch:  {"SWITCH", LayoutABxSCx},
	OpPreloop: {"PRELOOP", LayoutABCSDx},
	OpLoop:    {"LOOP", LayoutABCSDx},
	OpReturn:  {"RETURN", Layout0},
	OpReturnR: {"RETURNR", LayoutA},
	OpThrow:   {"THROW", LayoutA},
	OpRetry:   {"RETRY", Layout0},
	OpRetX:    {"RETX", Layout0},
	OpRetXR:   {"RETXR", LayoutA},

	OpPush:    {"PUSH", Layout0},
	OpPush2:   {"PUSH2", Layout0},
	OpPush3:   {"PUSH3", Layout0},
	OpPush4:   {"PUSH4", Layout0},
	OpPushI:   {"PUSHI", LayoutSAx},
	OpPushC:   {"PUSHC", LayoutAx},
	OpPushC2:  {"PUSHC2", LayoutAxBx},
	OpPushCI:  {"PUSHCI", LayoutAxSBx},
	OpPushIC:  {"PUSHIC", LayoutAxSBx},
	OpPHTrue:  {"PHTRUE", Layout0},
	OpPHFalse: {"PHFALSE", Layout0},
	OpPushNil: {"PUSHNIL", Layout0},
	OpPHVar:   {"PHVAR", LayoutAx},
	OpPHUVal:  {"PHUVAL", LayoutAB},
	OpPHArgs:  {"PHARGS", Layout0},
	OpPushTup: {"PUSHTUP", Layout0},
	OpCall:    {"CALL", LayoutA},
	OpCallR:   {"CALLR", LayoutAB},
	OpCCall:   {"CCALL", LayoutABx},
	OpCCallR:  {"CCALLR", LayoutABCx},
	OpClean:   {"CLEAN", LayoutA},

	OpMove:     {"MOVE", LayoutAB},
	OpInit:     {"INIT", LayoutAB},
	OpAssign:   {"ASSIGN", LayoutAB},
	OpInitI:    {"INITI", LayoutASBx},
	OpAssignI:  {"ASSIGNI", LayoutASBx},
	OpInitC:    {"INITC", LayoutABx},
	OpAssignC:  {"ASSIGNC", LayoutABx},
	OpInitNil:  {"INITNIL", LayoutA},
	OpAsnNil:   {"ASNNIL", LayoutA},
	OpLDI:      {"LDI", LayoutASBx},
	OpLDC:      {"LDC", LayoutABx},
	OpLDNil:    {"LDNIL", LayoutA},
	OpLDTrue:   {"LDTRUE", LayoutA},
	OpLDFalse:  {"LDFALSE", LayoutA},
	OpGetVar:   {"GETVAR", LayoutABx},
	OpSetVar:   {"SETVAR", LayoutABx},
	OpGetUVal:  {"GETUVAL", LayoutABC},
	OpSetUVal:  {"SETUVAL", LayoutABC},

	OpGetArgI:    {"GETARGI", LayoutAB},
	OpSetArgI:    {"SETARGI", LayoutAB},
	OpPHArgI:     {"PHARGI", LayoutA},
	OpPHArgI2:    {"PHARGI2", LayoutAB},
	OpGetUVArgI:  {"GETUVARGI", LayoutABC},
	OpSetUVArgI:  {"SETUVARGI", LayoutABC},
	OpGetTArgI:   {"GETTARGI", LayoutABC},
	OpGetUVTArgI: {"GETUVTARGI", LayoutABCD},
	OpArgC:       {"ARGC", LayoutA},
	OpTupC:       {"TUPC", LayoutA},
	OpSpec:       {"SPEC", LayoutAB},
	OpTSpec:      {"TSPEC", LayoutAB},

	OpIndGet:  {"INDGET", LayoutABC},
	OpIndSet:  {"INDSET", LayoutABC},
	OpIndGetI: {"INDGETI", LayoutABC},
	OpIndSetI: {"INDSETI", LayoutABC},
	OpIndGetC: {"INDGETC", LayoutABCx},
	OpIndSetC: {"INDSETC", LayoutABCx},

	OpBOp:     {"BOP", LayoutABCD},
	OpIPBOp:   {"IPBOP", LayoutABCD},
	OpBOpI:    {"BOPI", LayoutABCSDx},
	OpBOpC:    {"BOPC", LayoutABCDx},
	OpBOpS:    {"BOPS", LayoutABCD},
	OpPHBOp:   {"PHBOP", LayoutABC},
	OpPHBOpI:  {"PHBOPI", LayoutABCx},
	OpAdd:     {"ADD", LayoutABC},
	OpSub:     {"SUB", LayoutABC},
	OpMul:     {"MUL", LayoutABC},
	OpDiv:     {"DIV", LayoutABC},
	OpMod:     {"MOD", LayoutABC},
	OpPower:   {"POWER", LayoutABC},
	OpPHAdd:   {"PHADD", LayoutAB},
	OpPHSub:   {"PHSUB", LayoutAB},
	OpPHMul:   {"PHMUL", LayoutAB},
	OpPHDiv:   {"PHDIV", LayoutAB},
	OpPHMod:   {"PHMOD", LayoutAB},
	OpPHPower: {"PHPOWER", LayoutAB},
	OpNeg:     {"NEG", LayoutAB},
	OpNot:     {"NOT", LayoutAB},
	OpBNot:    {"BNOT", LayoutAB},
	OpCastR:   {"CASTR", LayoutAB},
	OpCastI:   {"CASTI", LayoutAB},
	OpCastB:   {"CASTB", LayoutAB},
	OpCast:    {"CAST", LayoutABC},
	OpTypeOf:  {"TYPEOF", LayoutAB},
	OpSizeOf:  {"SIZEOF", LayoutAB},
	OpWeakRef: {"WEAKREF", LayoutAB},

	OpNew:   {"NEW", LayoutAB},
	OpClone: {"CLONE", LayoutAB},

	OpTry:    {"TRY", LayoutAxBx},
	OpUntry:  {"UNTRY", LayoutAx},
}

// Name returns op's symbolic name, or "<BAD OP>" if op is out of
// range (mirrors the teacher's disassembler's unknown-opcode guard).
func Name(op Opcode) string {
	if int(op) < len(table) {
		return table[op].name
	}
	return "<BAD OP>"
}

// LayoutOf returns op's operand layout.
func LayoutOf(op Opcode) Layout {
	if int(op) < len(table) {
		return table[op].layout
	}
	return Layout0
}

// Size returns the full encoded size of op, in bytes.
func Size(op Opcode) int { return LayoutOf(op).Size() }

func (op Opcode) String() string { return Name(op) }
