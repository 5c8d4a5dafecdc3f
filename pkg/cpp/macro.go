package cpp

import (
	"fmt"
	"time"
)

// MacroKind distinguishes object-like, function-like, and builtin
// macros (the latter computing their replacement at expansion time
// instead of storing one).
type MacroKind int

const (
	MacroObject MacroKind = iota
	MacroFunction
	MacroBuiltin
)

// PositionFunc reports the current file and line the Driver is
// expanding at, letting the builtin macros __FILE__/__LINE__ consult
// live position state without the Macro Table holding a reference to
// the Driver itself.
type PositionFunc func() SourceLoc

// Macro is one #define'd (or builtin) name.
type Macro struct {
	Name        string
	Kind        MacroKind
	Params      []string // function-like parameter names, in order
	IsVariadic  bool      // last parameter is ... or a named __VA_ARGS__ form
	Replacement []Token   // stored with PARAM tokens standing in for parameters
	Loc         SourceLoc

	// Builtin computes the replacement tokens for a MacroBuiltin macro
	// at the point of invocation.
	Builtin func(invokeLoc SourceLoc) []Token
}

func (m *Macro) String() string {
	switch m.Kind {
	case MacroFunction:
		return fmt.Sprintf("#define %s(...)", m.Name)
	default:
		return fmt.Sprintf("#define %s", m.Name)
	}
}

// MacroTable holds every currently-defined macro, object-like,
// function-like, or builtin. An identical redefinition is a silent
// no-op; __FILE__/__LINE__ cannot be #undef'd.
type MacroTable struct {
	macros map[string]*Macro
	pos    PositionFunc
}

// NewMacroTable builds a table pre-populated with the builtin macros a
// hosted C preprocessor provides, resolving __FILE__/__LINE__ through
// pos rather than the Macro Table itself tracking position;
// __DATE__/__TIME__ are fixed when the table is built.
func NewMacroTable(pos PositionFunc) *MacroTable {
	t := &MacroTable{macros: make(map[string]*Macro), pos: pos}
	t.initBuiltins()
	return t
}

func (t *MacroTable) initBuiltins() {
	def := func(name string, fn func(SourceLoc) []Token) {
		t.macros[name] = &Macro{Name: name, Kind: MacroBuiltin, Builtin: fn}
	}

	// __FILE__/__LINE__ resolve against the live input position, not the
	// invoking token's origin, which for a token inside a replacement
	// list would be the #define site.
	def("__FILE__", func(loc SourceLoc) []Token {
		if t.pos != nil {
			loc = t.pos()
		}
		return []Token{{Kind: PP_STRING, Text: quoteString(loc.File), Loc: loc}}
	})
	def("__LINE__", func(loc SourceLoc) []Token {
		if t.pos != nil {
			loc = t.pos()
		}
		return []Token{{Kind: PP_NUMBER, Text: fmt.Sprintf("%d", loc.Line), Loc: loc}}
	})
	// __DATE__/__TIME__ are fixed at table construction, like a real
	// compiler fixing them at translation start.
	date := time.Now().Format("Jan _2 2006")
	clock := time.Now().Format("15:04:05")
	def("__DATE__", func(loc SourceLoc) []Token {
		return []Token{{Kind: PP_STRING, Text: quoteString(date), Loc: loc}}
	})
	def("__TIME__", func(loc SourceLoc) []Token {
		return []Token{{Kind: PP_STRING, Text: quoteString(clock), Loc: loc}}
	})

	simple := func(name, text string, kind TokenKind) {
		t.macros[name] = &Macro{Name: name, Kind: MacroObject, Replacement: []Token{{Kind: kind, Text: text}}}
	}
	simple("__STDC__", "1", PP_NUMBER)
	simple("__STDC_VERSION__", "201112L", PP_NUMBER)
	simple("__STDC_HOSTED__", "1", PP_NUMBER)

	simple("__GNUC__", "4", PP_NUMBER)
	simple("__GNUC_MINOR__", "2", PP_NUMBER)
	simple("__GNUC_PATCHLEVEL__", "1", PP_NUMBER)
	simple("__GNUC_STDC_INLINE__", "1", PP_NUMBER)

	simple("__SIZEOF_SHORT__", "2", PP_NUMBER)
	simple("__SIZEOF_INT__", "4", PP_NUMBER)
	simple("__SIZEOF_LONG__", "8", PP_NUMBER)
	simple("__SIZEOF_LONG_LONG__", "8", PP_NUMBER)
	simple("__SIZEOF_POINTER__", "8", PP_NUMBER)
	simple("__SIZEOF_FLOAT__", "4", PP_NUMBER)
	simple("__SIZEOF_DOUBLE__", "8", PP_NUMBER)

	simple("__ORDER_LITTLE_ENDIAN__", "1234", PP_NUMBER)
	simple("__ORDER_BIG_ENDIAN__", "4321", PP_NUMBER)
	simple("__BYTE_ORDER__", "1234", PP_NUMBER)
	simple("__LITTLE_ENDIAN__", "1", PP_NUMBER)

	simple("__LP64__", "1", PP_NUMBER)
	simple("__x86_64__", "1", PP_NUMBER)

	simple("__CHAR_BIT__", "8", PP_NUMBER)
	simple("__SCHAR_MAX__", "127", PP_NUMBER)
	simple("__SHRT_MAX__", "32767", PP_NUMBER)
	simple("__INT_MAX__", "2147483647", PP_NUMBER)
	simple("__LONG_MAX__", "9223372036854775807L", PP_NUMBER)
	simple("__LONG_LONG_MAX__", "9223372036854775807LL", PP_NUMBER)
	simple("__UINT8_MAX__", "255", PP_NUMBER)
	simple("__UINT16_MAX__", "65535", PP_NUMBER)
	simple("__UINT32_MAX__", "4294967295U", PP_NUMBER)
	simple("__UINT64_MAX__", "18446744073709551615ULL", PP_NUMBER)
	simple("__SIZE_MAX__", "18446744073709551615UL", PP_NUMBER)
}

func quoteString(s string) string {
	return `"` + s + `"`
}

// Define installs m, or is a silent no-op if an identical macro with
// the same name is already defined. Only a differing redefinition is a
// diagnostic, which the caller surfaces — the table itself just reports
// whether the body changed.
func (t *MacroTable) Define(m *Macro) (redefined bool) {
	if existing, ok := t.macros[m.Name]; ok {
		if macrosEqual(existing, m) {
			return false
		}
		t.macros[m.Name] = m
		return true
	}
	t.macros[m.Name] = m
	return false
}

// Undefine removes a macro. __FILE__/__LINE__/__DATE__/__TIME__ cannot
// be undefined, matching every hosted C preprocessor's behavior even
// though the standard leaves it implementation-defined.
func (t *MacroTable) Undefine(name string) {
	switch name {
	case "__FILE__", "__LINE__", "__DATE__", "__TIME__":
		return
	}
	delete(t.macros, name)
}

func (t *MacroTable) Lookup(name string) (*Macro, bool) {
	m, ok := t.macros[name]
	return m, ok
}

func (t *MacroTable) IsDefined(name string) bool {
	_, ok := t.macros[name]
	return ok
}

// Names returns every defined macro name, for -dM style listing.
func (t *MacroTable) Names() []string {
	names := make([]string, 0, len(t.macros))
	for n := range t.macros {
		names = append(names, n)
	}
	return names
}

func macrosEqual(a, b *Macro) bool {
	if a.Kind != b.Kind || a.IsVariadic != b.IsVariadic {
		return false
	}
	if len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		if a.Params[i] != b.Params[i] {
			return false
		}
	}
	if len(a.Replacement) != len(b.Replacement) {
		return false
	}
	for i := range a.Replacement {
		if !tokensEqualForRedefinition(a.Replacement[i], b.Replacement[i]) {
			return false
		}
	}
	return true
}

// tokensEqualForRedefinition compares spelling and whitespace presence
// (not byte-for-byte LeadingWS count) per the standard's identical-
// redefinition rule: "separated by white space identical to the
// separation" only cares whether whitespace is present, not how much.
func tokensEqualForRedefinition(a, b Token) bool {
	if a.Kind != b.Kind || a.Text != b.Text {
		return false
	}
	if (a.LeadingWS > 0) != (b.LeadingWS > 0) {
		return false
	}
	if a.Kind == PARAM && a.ParamIndex != b.ParamIndex {
		return false
	}
	return true
}

// ApplyCmdlineDefine installs a -D NAME or -D NAME=value definition,
// in the same spelling the command line accepts.
func (t *MacroTable) ApplyCmdlineDefine(spec string, strtab *StringTable) error {
	name := spec
	value := "1"
	for i := 0; i < len(spec); i++ {
		if spec[i] == '=' {
			name = spec[:i]
			value = spec[i+1:]
			break
		}
	}
	if name == "" {
		return fmt.Errorf("invalid -D argument: %q", spec)
	}
	lx := NewLexer(value, SourceLoc{File: "<command-line>", Line: 1}, strtab)
	var repl []Token
	for {
		tok := lx.Next()
		if tok.Kind == EOF {
			break
		}
		repl = append(repl, tok)
	}
	t.Define(&Macro{Name: name, Kind: MacroObject, Replacement: repl, Loc: SourceLoc{File: "<command-line>", Line: 1}})
	return nil
}
