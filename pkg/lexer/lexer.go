// Package lexer tokenizes EEL source, resolving identifiers against
// the compiler's live symbol tree as it scans rather than producing
// bare identifier tokens for a later binding pass (spec.md §4.2).
package lexer

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"eel/pkg/errors"
	"eel/pkg/source"
	"eel/pkg/symtab"
)

// Flags qualifies one Lex call's rules (spec.md §4.2).
type Flags uint8

const (
	ReportEoln Flags = 1 << iota
	LocalsOnly
	NoOperators
	NoSkipWhite
	DottedName
	Characters
)

// maxOperatorBytes bounds the greedy operator scan (spec.md §4.2 rule 8
// / the "operator token longer than 16 bytes" error condition).
const maxOperatorBytes = 16

// operatorBytes is the punctuation-operator character set spec.md §6
// reserves.
const operatorBytes = "!#%&*+-/:<=>?@^|~"

func isOperatorByte(b byte) bool {
	for i := 0; i < len(operatorBytes); i++ {
		if operatorBytes[i] == b {
			return true
		}
	}
	return false
}

// hist is one push-back stack slot: the token produced plus where the
// reader's cursor and lookup scope stood right before it was scanned,
// so Relex can rewind and re-scan the same bytes under different flags.
type hist struct {
	tok      Token
	startPos int
	scope    *symtab.Symbol
}

// Lexer holds a reader over one module's source plus the lookup scope
// used to resolve names into keyword/variable/operator/etc. tokens as
// they're scanned (spec.md §4.2). Unlike the teacher's lexer, it never
// manufactures a bare identifier token for later binding: resolution
// happens inline, against whatever symbol tree the caller has built up
// so far.
type Lexer struct {
	file *source.SourceFile
	r    *source.Reader

	// Scope is the current lookup scope: a symtab.Symbol whose
	// enclosing chain is searched by an identifier scan (spec.md
	// §4.3's Lookup). The parser repoints it as it pushes/pops
	// contexts.
	Scope *symtab.Symbol
	// Interner is shared with the symbol table so a name scanned here
	// and a name added to the tree elsewhere are pointer-equal.
	Interner *symtab.Interner

	// Stripped holds the pre-tokenised symbol table for "stripped"
	// source (spec.md §6): byte b in [128, 128+len(Stripped)) refers
	// to Stripped[b-128]. Nil when the input is plain text.
	Stripped []*symtab.Symbol

	history [2]hist
	histLen int
	pushed  *Token // set by Unlex; the next Lex returns this without scanning

	// narrowed holds a one-shot scope narrowing set by a NAMESPACE
	// symbol immediately followed by '.' (spec.md §4.2 rule 7): the
	// next name scanned is resolved only among this symbol's direct
	// children, never walking further up the scope chain.
	narrowed *symtab.Symbol
}

// New builds a lexer over file, resolving names starting from scope.
func New(file *source.SourceFile, tabSize int, scope *symtab.Symbol, interner *symtab.Interner) *Lexer {
	return &Lexer{
		file:     file,
		r:        source.NewReader([]byte(file.Content), tabSize),
		Scope:    scope,
		Interner: interner,
	}
}

// Pos returns the current error-reporting position for a byte offset.
func (l *Lexer) Pos(byteOffset int) errors.Position {
	line, col := l.r.LineCount(byteOffset)
	return errors.Position{Line: line, Column: col, StartPos: byteOffset, EndPos: byteOffset, Source: l.file}
}

func (l *Lexer) errAt(pos int, format string, args ...interface{}) error {
	p := l.Pos(pos)
	p.EndPos = l.r.Tell()
	return errors.New(errors.Syntax, p, format, args...)
}

// peekAt looks ahead offset bytes from the cursor without consuming
// anything. Lookahead always goes through Data/Tell directly rather
// than GetChar+Unget, since Reader.ReadNumber manipulates pos directly
// and is blind to the push-back stack: leaving the stack non-empty
// before calling it would desync its starting point from Tell().
func (l *Lexer) peekAt(offset int) (byte, bool) {
	p := l.r.Tell() + offset
	if p < 0 || p >= len(l.r.Data) {
		return 0, false
	}
	return l.r.Data[p], true
}

func (l *Lexer) peek() (byte, bool) { return l.peekAt(0) }

func (l *Lexer) advance() (byte, bool) { return l.r.GetChar() }

// Lex scans and returns the next token (spec.md §4.2). It is the only
// entry point that advances the reader for real; Unlex/Relex operate
// on what Lex already produced.
func (l *Lexer) Lex(flags Flags) (Token, error) {
	if l.pushed != nil {
		tok := *l.pushed
		l.pushed = nil
		return tok, nil
	}
	start := l.r.Tell()
	scope := l.Scope
	tok, err := l.scan(flags)
	if err != nil {
		return tok, err
	}
	if l.histLen < 2 {
		l.history[l.histLen] = hist{tok: tok, startPos: start, scope: scope}
		l.histLen++
	} else {
		l.history[0] = l.history[1]
		l.history[1] = hist{tok: tok, startPos: start, scope: scope}
	}
	return tok, nil
}

// Unlex pushes the last token scanned back so the next Lex call
// returns it again without re-scanning. Only one token of push-back is
// supported at a time (spec.md §4.2).
func (l *Lexer) Unlex() {
	if l.histLen == 0 {
		return
	}
	t := l.history[l.histLen-1].tok
	l.pushed = &t
}

// Relex rewinds to the start of the last token scanned and re-scans it
// under new flags — used when a caller discovers, after the fact, that
// different lexical rules should have applied (spec.md §4.2).
func (l *Lexer) Relex(flags Flags) (Token, error) {
	if l.histLen == 0 {
		return Token{Type: TkWrong}, nil
	}
	h := l.history[l.histLen-1]
	l.r.SeekSet(h.startPos)
	l.Scope = h.scope
	l.pushed = nil
	l.histLen--
	return l.Lex(flags)
}

func (l *Lexer) scan(flags Flags) (Token, error) {
	if flags&NoSkipWhite == 0 {
		if err := l.skipWhitespaceAndComments(flags); err != nil {
			return Token{Type: TkWrong}, err
		}
	}

	start := l.r.Tell()
	b, ok := l.peek()
	if !ok {
		return Token{Type: TkEof, Pos: start}, nil
	}

	if flags&ReportEoln != 0 && b == '\n' {
		l.advance()
		return Token{Type: TkPunct, Byte: '\n', Pos: start}, nil
	}

	if b < 32 && b != '\t' && b != '\n' && b != '\r' && !(b >= 1 && b <= 8) {
		return Token{Type: TkWrong}, l.errAt(start, "illegal control byte 0x%02x in source", b)
	}

	// Rule 4: pre-tokenised stripped source.
	if l.Stripped != nil && int(b) >= 128 && int(b)-128 < len(l.Stripped) {
		l.advance()
		sym := l.Stripped[b-128]
		return Token{Type: tokenTypeForKind(sym.Kind), Pos: start, Symbol: sym}, nil
	}

	// Rule: raw single-character scanning mode (ec_lexer.c's
	// ELF_CHARACTERS), used by a caller that wants "one printable byte
	// as its own token" rather than the normal identifier/operator
	// grammar — e.g. scanning a format-spec character by character.
	if flags&Characters != 0 && b > ' ' && b <= 127 {
		l.advance()
		return Token{Type: TkPunct, Pos: start, Byte: b}, nil
	}

	// Weak-assignment trigraph `(=)`.
	if b == '(' {
		if c1, ok1 := l.peekAt(1); ok1 && c1 == '=' {
			if c2, ok2 := l.peekAt(2); ok2 && c2 == ')' {
				l.advance()
				l.advance()
				l.advance()
				return Token{Type: TkWeakAssign, Pos: start}, nil
			}
		}
	}

	// Character literal.
	if b == '\'' {
		l.advance()
		return l.readCharLiteral(start)
	}

	// String literal.
	if b == '"' {
		l.advance()
		return l.readStringLiteral(start)
	}

	// `.<op>` in-place operator form, or a bare `.`.
	if b == '.' && flags&NoOperators == 0 {
		if c1, ok1 := l.peekAt(1); ok1 && isOperatorByte(c1) {
			l.advance()
			tok, err := l.scanOperator(start, l.Scope)
			if err == nil && (tok.Type == TkSymOperator || tok.Type == TkSymShortOp) {
				tok.InPlace = true
			}
			return tok, err
		}
	}

	// Identifier / keyword / symbol-resolved name, or a namespace
	// member narrowed by a preceding `NAMESPACE.` (rule 7).
	if isIdentStart(b) {
		if l.narrowed != nil {
			ns := l.narrowed
			l.narrowed = nil
			return l.readNamespaceMember(start, ns)
		}
		return l.readName(start, l.Scope, flags)
	}

	// Operator scan.
	if flags&NoOperators == 0 && isOperatorByte(b) {
		return l.scanOperator(start, l.Scope)
	}

	// Numeric literal.
	if isDigit(b) {
		val, kind, numErr := l.r.ReadNumber()
		if numErr != nil {
			return Token{Type: TkWrong}, l.errAt(start, "%s", numErr.Error())
		}
		if kind == source.NumReal {
			return Token{Type: TkRealNum, Pos: start, Real: val}, nil
		}
		return Token{Type: TkIntNum, Pos: start, Integer: int64(val)}, nil
	}

	// Punctuation fallback.
	l.advance()
	return Token{Type: TkPunct, Pos: start, Byte: b}, nil
}

func (l *Lexer) skipWhitespaceAndComments(flags Flags) error {
	for {
		b, ok := l.peek()
		if !ok {
			return nil
		}
		if b == '\n' && flags&ReportEoln != 0 {
			return nil
		}
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' || (b >= 1 && b <= 8) {
			l.advance()
			continue
		}
		if b == '/' {
			c1, ok1 := l.peekAt(1)
			if ok1 && c1 == '/' {
				l.advance()
				l.advance()
				for {
					c, ok := l.peek()
					if !ok || c == '\n' {
						break
					}
					l.advance()
				}
				continue
			}
			if ok1 && c1 == '*' {
				start := l.r.Tell()
				l.advance()
				l.advance()
				for {
					c, ok := l.peek()
					if !ok {
						return l.errAt(start, "unterminated block comment")
					}
					if c == '*' {
						if c2, ok2 := l.peekAt(1); ok2 && c2 == '/' {
							l.advance()
							l.advance()
							break
						}
					}
					l.advance()
				}
				continue
			}
			// '/' followed by anything else is a punctuation/operator
			// token; leave it for scan() to consume.
			return nil
		}
		return nil
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isIdentStart(b byte) bool {
	return b == '_' || b == '$' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b >= 128
}

func isIdentCont(b byte) bool {
	return isIdentStart(b) || isDigit(b)
}

// scanIdentBytes consumes an identifier's raw bytes, decoding UTF-8
// sequences past the ASCII range so multi-byte letters are accepted.
func (l *Lexer) scanIdentBytes() []byte {
	raw := make([]byte, 0, 16)
	for {
		b, ok := l.peek()
		if !ok {
			break
		}
		if b < 128 {
			if !isIdentCont(b) {
				break
			}
			raw = append(raw, b)
			l.advance()
			continue
		}
		r, size := utf8.DecodeRune(l.r.Data[l.r.Tell():])
		if r == utf8.RuneError || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			break
		}
		for i := 0; i < size; i++ {
			l.advance()
		}
		raw = append(raw, []byte(string(r))...)
	}
	return raw
}

// readName scans an identifier (ASCII fast path plus Unicode letters,
// NFC-normalized before interning so visually identical names scanned
// via different Unicode decompositions collapse to one symbol) and
// resolves it against scope (spec.md §4.2 rule 7).
func (l *Lexer) readName(start int, scope *symtab.Symbol, flags Flags) (Token, error) {
	raw := l.scanIdentBytes()
	normalized := norm.NFC.String(string(raw))
	name := l.Interner.Intern(normalized)

	if sym := symtab.Lookup(scope, name, kindsForFlags(flags)...); sym != nil {
		if sym.Kind == symtab.Namespace {
			if c1, ok := l.peek(); ok && c1 == '.' {
				l.advance()
				// Record the narrowing for the NEXT Lex call; this
				// call still returns the namespace symbol itself.
				l.narrowed = sym
			}
		}
		return Token{Type: tokenTypeForKind(sym.Kind), Pos: start, Symbol: sym}, nil
	}

	return Token{Type: TkName, Pos: start, Str: raw}, nil
}

// readNamespaceMember resolves a name immediately following
// `NAMESPACE.` among ns's direct children only — a narrowed lookup
// that never continues past ns into its enclosing scope (spec.md §4.2
// rule 7).
func (l *Lexer) readNamespaceMember(start int, ns *symtab.Symbol) (Token, error) {
	raw := l.scanIdentBytes()
	normalized := norm.NFC.String(string(raw))
	name := l.Interner.Intern(normalized)

	for c := ns.FirstChild; c != nil; c = c.NextSibling {
		if c.Name == name {
			return Token{Type: tokenTypeForKind(c.Kind), Pos: start, Symbol: c}, nil
		}
	}
	return Token{Type: TkWrong}, l.errAt(start, "'%s' is not a member of namespace '%s'", normalized, ns.Name)
}

func kindsForFlags(flags Flags) []symtab.Kind {
	if flags&LocalsOnly == 0 {
		return []symtab.Kind{
			symtab.Keyword, symtab.Variable, symtab.Upvalue, symtab.Body,
			symtab.Namespace, symtab.Constant, symtab.Class, symtab.Function,
			symtab.Operator,
		}
	}
	return []symtab.Kind{
		symtab.Keyword, symtab.Variable, symtab.Body, symtab.Namespace,
		symtab.Constant, symtab.Class, symtab.Function, symtab.Operator,
	}
}

// scanOperator implements spec.md §4.2 rule 8: greedily eat operator
// bytes up to 16, then look up the longest prefix that resolves to a
// registered Operator symbol, shortening from the right otherwise. If
// the shortened-away suffix was exactly one trailing '=', the match is
// reported as TkSymShortOp (the `<op>=` shorthand-update form) instead
// of TkSymOperator.
func (l *Lexer) scanOperator(start int, scope *symtab.Symbol) (Token, error) {
	var buf []byte
	for len(buf) < maxOperatorBytes {
		b, ok := l.peek()
		if !ok || !isOperatorByte(b) {
			break
		}
		buf = append(buf, b)
		l.advance()
	}
	if len(buf) == 0 {
		b, _ := l.peek()
		l.advance()
		return Token{Type: TkPunct, Pos: start, Byte: b}, nil
	}
	if len(buf) >= maxOperatorBytes {
		if b, ok := l.peek(); ok && isOperatorByte(b) {
			return Token{Type: TkWrong}, l.errAt(start, "operator token longer than %d bytes", maxOperatorBytes)
		}
	}

	for length := len(buf); length >= 1; length-- {
		droppedEqual := length == len(buf)-1 && buf[length] == '='
		candidate := l.Interner.Intern(string(buf[:length]))
		if sym := symtab.Lookup(scope, candidate, symtab.Operator); sym != nil {
			for i := len(buf) - 1; i >= length; i-- {
				l.r.Unget(buf[i])
			}
			if droppedEqual {
				return Token{Type: TkSymShortOp, Pos: start, Symbol: sym}, nil
			}
			return Token{Type: TkSymOperator, Pos: start, Symbol: sym}, nil
		}
	}

	for i := len(buf) - 1; i >= 1; i-- {
		l.r.Unget(buf[i])
	}
	return Token{Type: TkPunct, Pos: start, Byte: buf[0]}, nil
}

// readCharLiteral packs up to 4 escaped/raw bytes big-endian into an
// integer (spec.md §4.2 rule 5).
func (l *Lexer) readCharLiteral(start int) (Token, error) {
	var packed int64
	for {
		b, ok := l.advance()
		if !ok {
			return Token{Type: TkWrong}, l.errAt(start, "unterminated character literal")
		}
		if b == '\'' {
			break
		}
		if b == '\\' {
			esc, err := l.readEscape(start)
			if err != nil {
				return Token{Type: TkWrong}, err
			}
			packed = packed<<8 | int64(esc)
			continue
		}
		if b < 32 && b != '\t' {
			return Token{Type: TkWrong}, l.errAt(start, "illegal control byte in character literal")
		}
		packed = packed<<8 | int64(b)
	}
	return Token{Type: TkIntNum, Pos: start, Integer: packed}, nil
}

// readStringLiteral shares the quoted-literal escape grammar of
// readCharLiteral (spec.md §4.2: "both ' and \" share one escape
// parser"): C-style escapes, numeric escapes, adjacent-run
// continuation, and silent filtering of unescaped \n \r \t.
func (l *Lexer) readStringLiteral(start int) (Token, error) {
	var out []byte
	for {
		done, err := l.readStringRunInto(&out, start)
		if err != nil {
			return Token{Type: TkWrong}, err
		}
		if done {
			break
		}
	}

	// String continuation: "a" "b" with only whitespace between them
	// concatenates into one token, whether or not a newline separated
	// the runs; no warning is raised for runs on the same line.
	for {
		savePos := l.r.Tell()
		l.skipWhitespaceTrackingNewline()
		c, ok := l.peek()
		if !ok || c != '"' {
			l.r.SeekSet(savePos)
			break
		}
		l.advance()
		for {
			done, err := l.readStringRunInto(&out, start)
			if err != nil {
				return Token{Type: TkWrong}, err
			}
			if done {
				break
			}
		}
	}

	return Token{Type: TkString, Pos: start, Str: out}, nil
}

// readStringRunInto consumes bytes up to and including the closing
// quote of one run, appending decoded value bytes to *out. Returns
// done=true once the closing quote has been consumed.
func (l *Lexer) readStringRunInto(out *[]byte, litStart int) (bool, error) {
	b, ok := l.advance()
	if !ok {
		return false, l.errAt(litStart, "unterminated string literal")
	}
	if b == '"' {
		return true, nil
	}
	if b == '\\' {
		esc, err := l.readEscape(litStart)
		if err != nil {
			return false, err
		}
		*out = append(*out, esc)
		return false, nil
	}
	if b == '\n' || b == '\r' || b == '\t' {
		return false, nil
	}
	if b < 32 {
		return false, l.errAt(litStart, "illegal control byte in string literal")
	}
	*out = append(*out, b)
	return false, nil
}

func (l *Lexer) skipWhitespaceTrackingNewline() bool {
	saw := false
	for {
		b, ok := l.peek()
		if !ok || (b != ' ' && b != '\t' && b != '\n' && b != '\r') {
			return saw
		}
		if b == '\n' {
			saw = true
		}
		l.advance()
	}
}

// readEscape consumes the escape sequence after a backslash already
// consumed by the caller, returning the decoded byte.
func (l *Lexer) readEscape(litStart int) (byte, error) {
	b, ok := l.advance()
	if !ok {
		return 0, l.errAt(litStart, "unterminated escape sequence")
	}
	switch b {
	case 'a':
		return 7, nil
	case 'b':
		return 8, nil
	case 'c':
		return 27, nil
	case 'f':
		return 12, nil
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 't':
		return '\t', nil
	case 'v':
		return 11, nil
	case 'x':
		return l.readFixedDigitsEscape(litStart, 2, 16)
	case 'd':
		return l.readFixedDigitsEscape(litStart, 2, 10)
	case '0', '1', '2', '3':
		v := int(b - '0')
		for i := 0; i < 2; i++ {
			c, ok := l.peek()
			if !ok || c < '0' || c > '7' {
				break
			}
			v = v*8 + int(c-'0')
			l.advance()
		}
		if v > 255 {
			return 0, l.errAt(litStart, "numeric escape out of range")
		}
		return byte(v), nil
	default:
		return b, nil
	}
}

func (l *Lexer) readFixedDigitsEscape(litStart int, digits, base int) (byte, error) {
	v := 0
	for i := 0; i < digits; i++ {
		c, ok := l.advance()
		if !ok {
			return 0, l.errAt(litStart, "unterminated numeric escape")
		}
		d, ok := hexDigitValue(c)
		if !ok || d >= base {
			return 0, l.errAt(litStart, "bad digit in numeric escape")
		}
		v = v*base + d
	}
	if v > 255 {
		return 0, l.errAt(litStart, "numeric escape out of range")
	}
	return byte(v), nil
}

func hexDigitValue(b byte) (int, bool) {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0'), true
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10, true
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10, true
	default:
		return 0, false
	}
}
