package cpp

import "strings"

// keywords is the fixed table the Tokenizer checks an identifier
// against after scanning it. A match gets Kind KEYWORD instead of
// IDENT, but IsExpandable stays true either way: #define can still
// redefine a keyword spelling, however unusual that is in practice.
var keywords = map[string]struct{}{
	"auto": {}, "break": {}, "case": {}, "char": {}, "const": {},
	"continue": {}, "default": {}, "do": {}, "double": {}, "else": {},
	"enum": {}, "extern": {}, "float": {}, "for": {}, "goto": {},
	"if": {}, "inline": {}, "int": {}, "long": {}, "register": {},
	"restrict": {}, "return": {}, "short": {}, "signed": {}, "sizeof": {},
	"static": {}, "struct": {}, "switch": {}, "typedef": {}, "union": {},
	"unsigned": {}, "void": {}, "volatile": {}, "while": {},
	"_Bool": {}, "_Complex": {}, "_Imaginary": {},
}

// Lexer tokenizes a single already-spliced logical line. It never
// crosses a line boundary; joining lines is the Input Reader's job and
// deciding when to ask for another line is the Driver's.
type Lexer struct {
	line   string
	pos    int
	loc    SourceLoc
	atBOL  bool
	strtab *StringTable
}

// NewLexer creates a tokenizer over one logical line's text.
func NewLexer(line string, loc SourceLoc, strtab *StringTable) *Lexer {
	return &Lexer{line: line, loc: loc, atBOL: true, strtab: strtab}
}

// Next returns the next token on the line, or an EOF token once the
// line's text is exhausted (the caller, typically the Driver, turns
// that into a NEWLINE terminating the line).
func (l *Lexer) Next() Token {
	ws := l.skipWhitespaceAndComments()

	if l.pos >= len(l.line) {
		return Token{Kind: EOF, Loc: l.loc, LeadingWS: ws}
	}

	c := l.line[l.pos]

	if c == '#' && l.atBOL {
		l.atBOL = false
		l.pos++
		if l.pos < len(l.line) && l.line[l.pos] == '#' {
			l.pos++
			return Token{Kind: HASHHASH, Text: "##", Loc: l.loc, LeadingWS: ws}
		}
		return Token{Kind: HASH, Text: "#", Loc: l.loc, LeadingWS: ws}
	}
	l.atBOL = false

	if c == '#' && l.pos+1 < len(l.line) && l.line[l.pos+1] == '#' {
		l.pos += 2
		return Token{Kind: HASHHASH, Text: "##", Loc: l.loc, LeadingWS: ws}
	}

	switch {
	case c == '"':
		return l.scanString(ws, "")
	case c == '\'':
		return l.scanCharConst(ws, "")
	case isDigit(c) || (c == '.' && l.pos+1 < len(l.line) && isDigit(l.line[l.pos+1])):
		return l.scanNumber(ws)
	case c == 'L' || c == 'u' || c == 'U':
		if prefix, ok := l.stringPrefix(); ok {
			save := l.pos
			l.pos += len(prefix)
			if l.pos < len(l.line) && l.line[l.pos] == '"' {
				return l.scanString(ws, prefix)
			}
			if l.pos < len(l.line) && l.line[l.pos] == '\'' {
				return l.scanCharConst(ws, prefix)
			}
			l.pos = save
		}
		return l.scanIdentifier(ws)
	case isIdentStart(c):
		return l.scanIdentifier(ws)
	default:
		return l.scanPunctuator(ws)
	}
}

// stringPrefix recognizes L, u, U, u8 string/char prefixes without
// consuming them.
func (l *Lexer) stringPrefix() (string, bool) {
	rest := l.line[l.pos:]
	if strings.HasPrefix(rest, "u8") {
		return "u8", true
	}
	if strings.HasPrefix(rest, "L") || strings.HasPrefix(rest, "u") || strings.HasPrefix(rest, "U") {
		return rest[:1], true
	}
	return "", false
}

func (l *Lexer) skipWhitespaceAndComments() int {
	n := 0
	for l.pos < len(l.line) {
		c := l.line[l.pos]
		if c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v' {
			l.pos++
			n++
			continue
		}
		if c == '/' && l.pos+1 < len(l.line) && l.line[l.pos+1] == '/' {
			l.pos = len(l.line)
			n++
			continue
		}
		if c == '/' && l.pos+1 < len(l.line) && l.line[l.pos+1] == '*' {
			end := strings.Index(l.line[l.pos+2:], "*/")
			if end < 0 {
				// Unterminated block comment within one logical line is
				// handled by the Input Reader (it joins continuation
				// lines before handing text to the Lexer); treat the
				// remainder as consumed whitespace.
				l.pos = len(l.line)
			} else {
				l.pos = l.pos + 2 + end + 2
			}
			n++
			continue
		}
		break
	}
	return n
}

func (l *Lexer) scanIdentifier(ws int) Token {
	start := l.pos
	for l.pos < len(l.line) && isIdentCont(l.line[l.pos]) {
		l.pos++
	}
	text := l.intern(l.line[start:l.pos])
	kind := IDENT
	if _, ok := keywords[text]; ok {
		kind = KEYWORD
	}
	return Token{Kind: kind, Text: text, Loc: l.loc, LeadingWS: ws, IsExpandable: true}
}

func (l *Lexer) scanNumber(ws int) Token {
	start := l.pos
	for l.pos < len(l.line) {
		c := l.line[l.pos]
		if isDigit(c) || isIdentCont(c) || c == '.' {
			if (c == 'e' || c == 'E' || c == 'p' || c == 'P') && l.pos+1 < len(l.line) {
				next := l.line[l.pos+1]
				if next == '+' || next == '-' {
					l.pos += 2
					continue
				}
			}
			l.pos++
			continue
		}
		break
	}
	return Token{Kind: PP_NUMBER, Text: l.line[start:l.pos], Loc: l.loc, LeadingWS: ws}
}

func (l *Lexer) scanString(ws int, prefix string) Token {
	start := l.pos
	l.pos++ // opening quote
	for l.pos < len(l.line) {
		c := l.line[l.pos]
		if c == '"' {
			l.pos++
			break
		}
		if c == '\\' && l.pos+1 < len(l.line) {
			l.pos += 2
			continue
		}
		l.pos++
	}
	return Token{Kind: PP_STRING, Text: prefix + l.line[start:l.pos], Loc: l.loc, LeadingWS: ws}
}

func (l *Lexer) scanCharConst(ws int, prefix string) Token {
	start := l.pos
	l.pos++ // opening quote
	for l.pos < len(l.line) {
		c := l.line[l.pos]
		if c == '\'' {
			l.pos++
			break
		}
		if c == '\\' && l.pos+1 < len(l.line) {
			l.pos += 2
			continue
		}
		l.pos++
	}
	return Token{Kind: PP_CHAR, Text: prefix + l.line[start:l.pos], Loc: l.loc, LeadingWS: ws}
}

// threeCharPuncts and twoCharPuncts list multi-character punctuators in
// maximal-munch priority order.
var threeCharPuncts = []string{"<<=", ">>=", "..."}
var twoCharPuncts = []string{
	"->", "++", "--", "<<", ">>", "<=", ">=", "==", "!=",
	"&&", "||", "*=", "/=", "%=", "+=", "-=", "&=", "^=", "|=",
}

func (l *Lexer) scanPunctuator(ws int) Token {
	rest := l.line[l.pos:]
	if len(rest) >= 3 {
		for _, p := range threeCharPuncts {
			if rest[:3] == p {
				l.pos += 3
				return Token{Kind: PUNCT, Text: p, Loc: l.loc, LeadingWS: ws}
			}
		}
	}
	if len(rest) >= 2 {
		for _, p := range twoCharPuncts {
			if rest[:2] == p {
				l.pos += 2
				return Token{Kind: PUNCT, Text: p, Loc: l.loc, LeadingWS: ws}
			}
		}
	}
	start := l.pos
	l.pos++
	return Token{Kind: PUNCT, Text: l.line[start:l.pos], Loc: l.loc, LeadingWS: ws}
}

// ScanHeaderName scans the remainder of the current position as a
// `<file>` or `"file"` header name, for use only right after the
// Directive Engine recognizes `#include`/`#include_next`. Returns ok
// false if the next token does not look like a header name (it may be
// a macro that expands to one; the caller falls back to Next()).
func (l *Lexer) ScanHeaderName() (Token, bool) {
	ws := l.skipWhitespaceAndComments()
	if l.pos >= len(l.line) {
		return Token{}, false
	}
	start := l.pos
	switch l.line[l.pos] {
	case '<':
		l.pos++
		for l.pos < len(l.line) && l.line[l.pos] != '>' {
			l.pos++
		}
		if l.pos >= len(l.line) {
			l.pos = start
			return Token{}, false
		}
		l.pos++ // '>'
		return Token{Kind: HEADER_NAME, Text: l.line[start:l.pos], Loc: l.loc, LeadingWS: ws}, true
	case '"':
		tok := l.scanString(ws, "")
		tok.Kind = HEADER_NAME
		return tok, true
	default:
		return Token{}, false
	}
}

func (l *Lexer) intern(s string) string {
	if l.strtab == nil {
		return s
	}
	id := l.strtab.Intern(s)
	canon, _ := l.strtab.Lookup(id)
	return canon
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

// TokensToText renders tokens back to source text, writing a single
// space before each token whose LeadingWS is non-zero. It builds
// #error/#warning messages, a macro-expanded #include operand and the
// text of an ignored #pragma.
func TokensToText(toks []Token) string {
	var sb strings.Builder
	for _, t := range toks {
		for i := 0; i < t.LeadingWS && i < 1; i++ {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.Text)
	}
	return sb.String()
}
