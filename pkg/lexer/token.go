package lexer

import "eel/pkg/symtab"

// TokenType is the kind of token lex returns (spec.md §4.2). Symbol
// tokens (TkSym*) carry the resolved *symtab.Symbol in Token.Symbol;
// TkName is an identifier that did not resolve to anything yet.
type TokenType int

const (
	TkWrong TokenType = iota // rule didn't match, caller must restore state
	TkVoid                   // parsed but produced no value
	TkEof

	TkRealNum
	TkIntNum
	TkString
	TkName

	TkWeakAssign // the `(=)` trigraph

	TkSymKeyword
	TkSymConstant
	TkSymClass
	TkSymVariable
	TkSymUpvalue
	TkSymFunction
	TkSymOperator
	TkSymShortOp // `<op>=` shorthand update form
	TkSymBody
	TkSymNamespace
	TkSymGeneric // resolved symbol whose kind doesn't have its own token (e.g. Module)

	TkPunct // a single byte passed through verbatim, see Token.Byte
)

func (t TokenType) String() string {
	switch t {
	case TkWrong:
		return "WRONG"
	case TkVoid:
		return "VOID"
	case TkEof:
		return "EOF"
	case TkRealNum:
		return "REALNUM"
	case TkIntNum:
		return "INTNUM"
	case TkString:
		return "STRING"
	case TkName:
		return "NAME"
	case TkWeakAssign:
		return "WEAKASSIGN"
	case TkSymKeyword:
		return "KEYWORD"
	case TkSymConstant:
		return "SYMCONSTANT"
	case TkSymClass:
		return "SYMCLASS"
	case TkSymVariable:
		return "SYMVARIABLE"
	case TkSymUpvalue:
		return "SYMUPVALUE"
	case TkSymFunction:
		return "SYMFUNCTION"
	case TkSymOperator:
		return "SYMOPERATOR"
	case TkSymShortOp:
		return "SYMSHORTOP"
	case TkSymBody:
		return "SYMBODY"
	case TkSymNamespace:
		return "SYMNAMESPACE"
	case TkSymGeneric:
		return "SYMGENERIC"
	case TkPunct:
		return "PUNCT"
	default:
		return "?"
	}
}

// tokenTypeForKind maps a resolved symtab.Kind to the token type lex
// returns when an identifier resolves to a symbol of that kind
// (spec.md §4.2 rule 7).
func tokenTypeForKind(k symtab.Kind) TokenType {
	switch k {
	case symtab.Keyword:
		return TkSymKeyword
	case symtab.Constant:
		return TkSymConstant
	case symtab.Class:
		return TkSymClass
	case symtab.Variable:
		return TkSymVariable
	case symtab.Upvalue:
		return TkSymUpvalue
	case symtab.Function:
		return TkSymFunction
	case symtab.Operator:
		return TkSymOperator
	case symtab.Body:
		return TkSymBody
	case symtab.Namespace:
		return TkSymNamespace
	default:
		return TkSymGeneric
	}
}

// Token is one lexical unit plus its literal value, if any (spec.md
// §4.2's "last token, last lexical value" lexer state made concrete).
type Token struct {
	Type TokenType
	Pos  int // byte offset of the token's first byte

	Byte byte // TkPunct: the punctuation byte itself

	Real    float64 // TkRealNum
	Integer int64   // TkIntNum
	Str     []byte  // TkString: the unescaped value

	Symbol  *symtab.Symbol // TkSym*, TkSymShortOp: the resolved symbol
	InPlace bool           // true when written as `.<op>` (spec.md §6)
}
