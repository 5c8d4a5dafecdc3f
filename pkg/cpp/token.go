package cpp

import "fmt"

// TokenKind classifies a preprocessing token. Punctuators and keywords
// are each a single kind distinguished by Text, following the same
// maximal-munch-by-spelling convention the lexer already uses for
// operators.
type TokenKind int

const (
	EOF TokenKind = iota
	IDENT
	KEYWORD
	PP_NUMBER
	PP_CHAR
	PP_STRING
	PUNCT
	HASH     // '#' at beginning of a directive line
	HASHHASH // '##' inside a macro replacement list
	HEADER_NAME
	NEWLINE
	PLACEHOLDER // empty macro-argument stand-in during ## processing
	PARAM       // parameter reference inside a stored replacement list

	// Produced only by the Literal Converter, never by the Lexer.
	NUMBER
	STRING
)

func (k TokenKind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case IDENT:
		return "IDENT"
	case KEYWORD:
		return "KEYWORD"
	case PP_NUMBER:
		return "PP_NUMBER"
	case PP_CHAR:
		return "PP_CHAR"
	case PP_STRING:
		return "PP_STRING"
	case PUNCT:
		return "PUNCT"
	case HASH:
		return "HASH"
	case HASHHASH:
		return "HASHHASH"
	case HEADER_NAME:
		return "HEADER_NAME"
	case NEWLINE:
		return "NEWLINE"
	case PLACEHOLDER:
		return "PLACEHOLDER"
	case PARAM:
		return "PARAM"
	case NUMBER:
		return "NUMBER"
	case STRING:
		return "STRING"
	default:
		return "UNKNOWN"
	}
}

// NumType is the C type a converted NUMBER token carries, picked as the
// smallest fitting rung of the usual ladder (LP64 sizes).
type NumType int

const (
	TypeInt NumType = iota
	TypeUInt
	TypeLong
	TypeULong
	TypeLongLong
	TypeULongLong
	TypeFloat
	TypeDouble
	TypeLongDouble
)

// Suffix is the canonical literal suffix for the type, used when a
// typed number is printed back as text.
func (n NumType) Suffix() string {
	switch n {
	case TypeUInt:
		return "u"
	case TypeLong:
		return "l"
	case TypeULong:
		return "ul"
	case TypeLongLong:
		return "ll"
	case TypeULongLong:
		return "ull"
	case TypeFloat:
		return "f"
	case TypeLongDouble:
		return "L"
	default:
		return ""
	}
}

func (n NumType) IsUnsigned() bool {
	return n == TypeUInt || n == TypeULong || n == TypeULongLong
}

// SourceLoc pinpoints a token in the logical (post-splice) input.
type SourceLoc struct {
	File string
	Line int
}

func (l SourceLoc) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// VarArgsParam is the sentinel ParamIndex used for __VA_ARGS__.
const VarArgsParam = -1

// HideSet is a persistent, copy-on-write set of macro names a token is
// currently forbidden from re-expanding against (its "blue paint").
// With and Union never mutate an operand (Union returns the other
// operand itself when one side is nil), so sharing a HideSet between
// tokens is safe.
type HideSet struct {
	names map[string]struct{}
}

// Has reports whether name is in the set. A nil HideSet is empty.
func (h *HideSet) Has(name string) bool {
	if h == nil {
		return false
	}
	_, ok := h.names[name]
	return ok
}

// With returns a new HideSet containing h's members plus name. A nil
// receiver acts as the empty set.
func (h *HideSet) With(name string) *HideSet {
	out := &HideSet{names: make(map[string]struct{}, h.size()+1)}
	if h != nil {
		for n := range h.names {
			out.names[n] = struct{}{}
		}
	}
	out.names[name] = struct{}{}
	return out
}

func (h *HideSet) size() int {
	if h == nil {
		return 0
	}
	return len(h.names)
}

// Union returns a new HideSet containing the members of both h and o.
func Union(h, o *HideSet) *HideSet {
	if h == nil {
		return o
	}
	if o == nil {
		return h
	}
	out := &HideSet{names: make(map[string]struct{}, len(h.names)+len(o.names))}
	for n := range h.names {
		out.names[n] = struct{}{}
	}
	for n := range o.names {
		out.names[n] = struct{}{}
	}
	return out
}

// Intersect returns a new HideSet containing only names present in both
// h and o. Used by function-like macro substitution (the new hideset is
// the intersection of the invoking name's hideset and the closing ')'
// token's hideset, per the classic algorithm).
func Intersect(h, o *HideSet) *HideSet {
	if h == nil || o == nil {
		return nil
	}
	out := &HideSet{names: make(map[string]struct{})}
	for n := range h.names {
		if _, ok := o.names[n]; ok {
			out.names[n] = struct{}{}
		}
	}
	return out
}

// Token is a single preprocessing token. It is a value type: copying a
// Token never aliases mutable state, since HideSet is itself immutable.
type Token struct {
	Kind TokenKind
	Text string
	Loc  SourceLoc

	// LeadingWS is the count of whitespace characters (spaces,
	// elided comments) immediately preceding this token on its line.
	LeadingWS int

	// IsExpandable marks a token whose Text could name a macro: set on
	// IDENT and KEYWORD alike, since #define may target either.
	IsExpandable bool

	// Hide is this token's blue paint. Checked before a macro-name
	// IDENT is considered for expansion.
	Hide *HideSet

	// ParamIndex is set on PARAM tokens stored inside a function-like
	// macro's replacement list; VarArgsParam marks __VA_ARGS__.
	ParamIndex int

	// IsStringify/IsPaste mark, inside a stored replacement list, that
	// this token is the operand immediately following '#' or adjacent
	// to '##' — set once at #define time so the Expander need not
	// re-scan neighbors on every invocation.
	IsStringify bool
	IsPaste     bool

	// Set by the Literal Converter on NUMBER/STRING tokens.
	NumType    NumType
	IntValue   uint64
	IsUnsigned bool
	IsFloat    bool
	FloatValue float64
	Bytes      []byte
}

// Painted reports whether name is in this token's hideset.
func (t Token) Painted(name string) bool {
	return t.Hide.Has(name)
}

// WithHide returns a copy of t painted with an additional name.
func (t Token) WithHide(name string) Token {
	t.Hide = t.Hide.With(name)
	return t
}

// WithHideSet returns a copy of t with its hideset replaced entirely.
func (t Token) WithHideSet(h *HideSet) Token {
	t.Hide = h
	return t
}

// IsIdent reports whether t is an identifier with the given spelling.
func (t Token) IsIdent(text string) bool {
	return t.Kind == IDENT && t.Text == text
}

// IsPunct reports whether t is a punctuator with the given spelling.
func (t Token) IsPunct(text string) bool {
	return t.Kind == PUNCT && t.Text == text
}

// TokenSeq is a growable, random-access token buffer: the working line
// under expansion (the Expander's cursor reads from one and splices
// substitutions back into it).
type TokenSeq struct {
	toks []Token
}

func NewTokenSeq(cap int) *TokenSeq {
	return &TokenSeq{toks: make([]Token, 0, cap)}
}

func (s *TokenSeq) Len() int            { return len(s.toks) }
func (s *TokenSeq) At(i int) Token      { return s.toks[i] }
func (s *TokenSeq) Set(i int, t Token)  { s.toks[i] = t }
func (s *TokenSeq) PushBack(t Token)    { s.toks = append(s.toks, t) }
func (s *TokenSeq) Slice() []Token      { return s.toks }
func (s *TokenSeq) Reset()              { s.toks = s.toks[:0] }

func (s *TokenSeq) PopBack() (Token, bool) {
	if len(s.toks) == 0 {
		return Token{}, false
	}
	t := s.toks[len(s.toks)-1]
	s.toks = s.toks[:len(s.toks)-1]
	return t, true
}

func (s *TokenSeq) AppendAll(ts []Token) {
	s.toks = append(s.toks, ts...)
}

// Insert splices ts into the sequence just before index i. Rescanning
// uses this to put a macro's substitution back in front of the read
// position so it is seen again.
func (s *TokenSeq) Insert(i int, ts []Token) {
	rest := append([]Token{}, s.toks[i:]...)
	s.toks = append(append(s.toks[:i:i], ts...), rest...)
}
