package lexer

import "eel/pkg/symtab"

// Keywords is the exact keyword set spec.md §6 names, grounded on
// original_source's ec_lexer.h EEL_token keyword block (TK_KW_*).
// "function" is deliberately absent: only "procedure" is a keyword;
// spec.md §4.4's prose uses "function" informally for the callables
// procedure declares.
var Keywords = []string{
	"include", "import", "as", "end", "eelversion",
	"return", "if", "else", "switch", "case", "default",
	"for", "do", "while", "until", "break", "continue", "repeat",
	"try", "untry", "except", "throw", "retry", "exception",
	"local", "static", "upvalue", "export", "shadow", "constant",
	"procedure",
	"true", "false", "nil",
	"arguments", "tuples", "specified",
}

// NameOperators is the alphabetic operator vocabulary (spec.md §4.2
// rule 7 treats these exactly like keywords during name resolution,
// returning TkSymOperator rather than TkName), grounded on
// original_source's ESSX_TYPEOF..ESSX_IN block.
var NameOperators = []string{
	"typeof", "sizeof", "clone", "not", "and", "or", "xor", "in",
	"rol", "ror", "brev", "min", "max",
}

// Bootstrap installs the keyword, alphabetic-operator and
// punctuation-operator vocabularies as Keyword/Operator-kind symbols
// directly under root, so that the lexer's ordinary name-resolution
// path (Lookup through symtab) is what turns "if" or "typeof" into the
// right token — the lexer itself has no hardcoded keyword switch.
// Returns the installed Symbol for each word, keyed by its spelling,
// for callers that need to refer back to one.
func Bootstrap(root *symtab.Symbol, interner *symtab.Interner) map[string]*symtab.Symbol {
	installed := make(map[string]*symtab.Symbol, len(Keywords)+len(NameOperators))
	for _, kw := range Keywords {
		sym := symtab.Add(root, interner.Intern(kw), symtab.Keyword)
		installed[kw] = sym
	}
	for _, op := range NameOperators {
		sym := symtab.Add(root, interner.Intern(op), symtab.Operator)
		installed[op] = sym
	}
	for _, op := range PunctOperators {
		sym := symtab.Add(root, interner.Intern(op), symtab.Operator)
		installed[op] = sym
	}
	return installed
}

// PunctOperators is the punctuation-operator vocabulary built from the
// byte set spec.md §6 reserves for operators (`! # % & * + − / : < =
// > ? @ ^ | ~`). Deliberately excludes a bare "=" (assignment is a
// plain punctuation token, not an operator symbol) so the greedy
// operator scan in lexer.go falls through to TkPunct for it.
var PunctOperators = []string{
	"+", "-", "*", "/", "%", "**",
	"==", "!=", "<", "<=", ">", ">=",
	"&", "|", "^", "~", "<<", ">>", "~=",
}
