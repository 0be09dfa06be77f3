package parser

import "eel/pkg/value"

// opByText maps the spelling a name-operator or punctuation-operator
// token resolves to onto the OperatorID the code generator dispatches
// on (spec.md §4.7, §6). Grounded on original_source's ESSX_* token
// mapping in e_operate.h/ec_lexer.h, carried over onto the symbol
// names lexer.NameOperators/PunctOperators installs.
var opByText = map[string]value.OperatorID{
	"+":  value.OpAdd,
	"-":  value.OpSub,
	"*":  value.OpMul,
	"/":  value.OpDiv,
	"%":  value.OpMod,
	"**": value.OpPow,
	"==": value.OpEq,
	"!=": value.OpNe,
	"<":  value.OpLt,
	"<=": value.OpLe,
	">":  value.OpGt,
	">=": value.OpGe,
	"&":  value.OpBitAnd,
	"|":  value.OpBitOr,
	"^":  value.OpBitXor,
	"~":  value.OpBitInv,
	"<<": value.OpLShift,
	">>": value.OpRShift,
	"in":  value.OpIn,
	"~=": value.OpMatch,
	// "xor" has no short-circuit form (both sides are always needed to
	// decide it) and reduces to bitwise xor over the boolean 0/1
	// encoding, so it shares BitXor's dispatch rather than getting its
	// own OperatorID.
	"xor": value.OpBitXor,

	"rol":  value.OpRol,
	"ror":  value.OpRor,
	"brev": value.OpBRev,
	"min":  value.OpMin,
	"max":  value.OpMax,

	"typeof": value.OpTypeOf,
	"sizeof": value.OpSizeOf,
	"clone":  value.OpClone,
	"not":    value.OpNot,
}

// precedenceClass groups operators into the pre-0.3.7 precedence tiers
// spec.md §4.4 says are no longer load-bearing but are still checked
// to emit a non-fatal warning when a tighter-binding operator follows
// a looser one in a flat left-to-right chain. Higher binds tighter.
var precedenceClass = map[value.OperatorID]int{
	value.OpMul: 5, value.OpDiv: 5, value.OpMod: 5, value.OpPow: 5,
	value.OpAdd: 4, value.OpSub: 4,
	value.OpLShift: 3, value.OpRShift: 3,
	value.OpLt: 2, value.OpLe: 2, value.OpGt: 2, value.OpGe: 2,
	value.OpEq: 1, value.OpNe: 1,
	value.OpBitAnd: 0, value.OpBitOr: 0, value.OpBitXor: 0, value.OpIn: 0,
	value.OpMatch: 0,
	value.OpRol: 0, value.OpRor: 0, value.OpBRev: 0,
	value.OpMin: 0, value.OpMax: 0,
}

// unaryOpByText maps a prefix-operator spelling to its unary
// OperatorID (spec.md §4.7) — distinct from opByText since "-" as a
// prefix is Neg, not the binary Sub its infix spelling shares the text
// with.
var unaryOpByText = map[string]value.OperatorID{
	"-":      value.OpNeg,
	"~":      value.OpBitInv,
	"not":    value.OpNot,
	"typeof": value.OpTypeOf,
	"sizeof": value.OpSizeOf,
	"clone":  value.OpClone,
}
