package cpp

import (
	"fmt"
	"strconv"
	"strings"
)

// DirectiveKind enumerates the recognized `#`-line directives.
type DirectiveKind int

const (
	DirInclude DirectiveKind = iota
	DirIncludeNext
	DirDefine
	DirUndef
	DirIf
	DirIfdef
	DirIfndef
	DirElif
	DirElse
	DirEndif
	DirLine
	DirError
	DirWarning
	DirPragma
	DirEmpty // a lone '#' on a line, a no-op per the standard
	DirUnknown
)

func (k DirectiveKind) String() string {
	switch k {
	case DirInclude:
		return "include"
	case DirIncludeNext:
		return "include_next"
	case DirDefine:
		return "define"
	case DirUndef:
		return "undef"
	case DirIf:
		return "if"
	case DirIfdef:
		return "ifdef"
	case DirIfndef:
		return "ifndef"
	case DirElif:
		return "elif"
	case DirElse:
		return "else"
	case DirEndif:
		return "endif"
	case DirLine:
		return "line"
	case DirError:
		return "error"
	case DirWarning:
		return "warning"
	case DirPragma:
		return "pragma"
	case DirEmpty:
		return ""
	default:
		return "unknown"
	}
}

// Directive is the parsed form of one `#`-line. Only the fields
// relevant to Kind are populated.
type Directive struct {
	Kind DirectiveKind
	Loc  SourceLoc

	// include / include_next
	HeaderName   string
	IsSystemIncl bool // <...> rather than "..."

	// define
	MacroName      string
	IsFunctionLike bool
	MacroParams    []string
	IsVariadic     bool
	MacroBody      []Token

	// undef / ifdef / ifndef
	Identifier string

	// if / elif
	Expr []Token

	// line
	LineNum  int
	FileName string // empty if not given

	// error / warning
	Message string

	// pragma
	PragmaTokens []Token

	Unknown string
}

// directiveNames maps the identifier following '#' to its kind.
var directiveNames = map[string]DirectiveKind{
	"include":      DirInclude,
	"include_next": DirIncludeNext,
	"define":       DirDefine,
	"undef":        DirUndef,
	"if":           DirIf,
	"ifdef":        DirIfdef,
	"ifndef":       DirIfndef,
	"elif":         DirElif,
	"else":         DirElse,
	"endif":        DirEndif,
	"line":         DirLine,
	"error":        DirError,
	"warning":      DirWarning,
	"pragma":       DirPragma,
}

// ParseDirective parses the directive name and body out of the tokens
// following a line-leading '#' (not including the '#' itself). toks
// must not contain the trailing NEWLINE.
func ParseDirective(toks []Token, loc SourceLoc) (*Directive, error) {
	if len(toks) == 0 {
		return &Directive{Kind: DirEmpty, Loc: loc}, nil
	}
	nameTok := toks[0]
	if nameTok.Kind != IDENT && nameTok.Kind != KEYWORD {
		return nil, fmt.Errorf("%s: expected directive name", loc)
	}
	kind, ok := directiveNames[nameTok.Text]
	rest := toks[1:]
	if !ok {
		return &Directive{Kind: DirUnknown, Loc: loc, Unknown: nameTok.Text}, nil
	}

	switch kind {
	case DirInclude, DirIncludeNext:
		return parseInclude(kind, rest, loc)
	case DirDefine:
		return parseDefine(rest, loc)
	case DirUndef:
		return parseSingleIdent(kind, rest, loc)
	case DirIfdef, DirIfndef:
		return parseSingleIdent(kind, rest, loc)
	case DirIf, DirElif:
		return &Directive{Kind: kind, Loc: loc, Expr: rest}, nil
	case DirElse, DirEndif:
		return &Directive{Kind: kind, Loc: loc}, nil
	case DirLine:
		return parseLine(rest, loc)
	case DirError, DirWarning:
		return &Directive{Kind: kind, Loc: loc, Message: TokensToText(rest)}, nil
	case DirPragma:
		return &Directive{Kind: kind, Loc: loc, PragmaTokens: rest}, nil
	}
	return nil, fmt.Errorf("%s: unhandled directive %q", loc, nameTok.Text)
}

func parseInclude(kind DirectiveKind, toks []Token, loc SourceLoc) (*Directive, error) {
	if len(toks) == 0 {
		return nil, fmt.Errorf("%s: #%s expects \"FILENAME\" or <FILENAME>", loc, kind)
	}
	first := toks[0]
	if first.Kind == HEADER_NAME {
		name := first.Text
		system := strings.HasPrefix(name, "<")
		name = strings.Trim(name, "<>\"")
		return &Directive{Kind: kind, Loc: loc, HeaderName: name, IsSystemIncl: system}, nil
	}
	// Macro-expanded form: a plain string literal, or re-pasted '<' ...
	// '>' tokens after expansion. The Driver is responsible for
	// expanding toks and re-parsing before calling this in that case;
	// here we only handle what already looks like a header name.
	text := TokensToText(toks)
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "\"") && strings.HasSuffix(text, "\"") && len(text) >= 2 {
		return &Directive{Kind: kind, Loc: loc, HeaderName: text[1 : len(text)-1], IsSystemIncl: false}, nil
	}
	if strings.HasPrefix(text, "<") && strings.HasSuffix(text, ">") && len(text) >= 2 {
		return &Directive{Kind: kind, Loc: loc, HeaderName: text[1 : len(text)-1], IsSystemIncl: true}, nil
	}
	return nil, fmt.Errorf("%s: #%s expects \"FILENAME\" or <FILENAME>", loc, kind)
}

func parseDefine(toks []Token, loc SourceLoc) (*Directive, error) {
	if len(toks) == 0 || (toks[0].Kind != IDENT && toks[0].Kind != KEYWORD) {
		return nil, fmt.Errorf("%s: macro name missing", loc)
	}
	name := toks[0].Text
	d := &Directive{Kind: DirDefine, Loc: loc, MacroName: name}

	rest := toks[1:]
	if len(rest) > 0 && rest[0].IsPunct("(") && rest[0].LeadingWS == 0 {
		params, variadic, afterParen, err := parseParamList(rest[1:], loc)
		if err != nil {
			return nil, err
		}
		d.IsFunctionLike = true
		d.MacroParams = params
		d.IsVariadic = variadic
		d.MacroBody, err = bindParams(afterParen, params, variadic, loc)
		if err != nil {
			return nil, err
		}
		return d, nil
	}

	body, err := bindParams(rest, nil, false, loc)
	if err != nil {
		return nil, err
	}
	d.MacroBody = body
	return d, nil
}

// parseParamList reads a function-like macro's parameter list after
// the opening '(' (already consumed) up to and past the matching ')'.
func parseParamList(toks []Token, loc SourceLoc) (params []string, variadic bool, rest []Token, err error) {
	i := 0
	for i < len(toks) {
		t := toks[i]
		if t.IsPunct(")") {
			return params, variadic, toks[i+1:], nil
		}
		if t.IsPunct("...") {
			variadic = true
			i++
			if i >= len(toks) || !toks[i].IsPunct(")") {
				return nil, false, nil, fmt.Errorf("%s: missing ')' in macro parameter list", loc)
			}
			return params, variadic, toks[i+1:], nil
		}
		if t.Kind != IDENT && t.Kind != KEYWORD {
			return nil, false, nil, fmt.Errorf("%s: expected parameter name", loc)
		}
		params = append(params, t.Text)
		i++
		if i < len(toks) && toks[i].IsPunct(",") {
			i++
			continue
		}
		if i < len(toks) && toks[i].IsPunct(")") {
			return params, variadic, toks[i+1:], nil
		}
		if i >= len(toks) {
			break
		}
	}
	return nil, false, nil, fmt.Errorf("%s: missing ')' in macro parameter list", loc)
}

// bindParams rewrites IDENT tokens in body that name a parameter into
// PARAM tokens carrying that parameter's index, and validates '#'/'##'
// placement, tagging the neighbor operands with IsStringify/IsPaste so
// the Expander need not re-scan at every invocation. A mid-line '#'
// arrives from the Lexer as an ordinary punctuator (only a line-leading
// '#' gets the HASH kind); inside a function-like replacement list it
// is normalized to HASH here so the Expander sees one spelling.
func bindParams(body []Token, params []string, variadic bool, loc SourceLoc) ([]Token, error) {
	functionLike := params != nil || variadic

	index := func(name string) (int, bool) {
		for i, p := range params {
			if p == name {
				return i, true
			}
		}
		if variadic && name == "__VA_ARGS__" {
			return VarArgsParam, true
		}
		return 0, false
	}

	out := make([]Token, len(body))
	copy(out, body)

	for i := range out {
		if functionLike && out[i].IsPunct("#") {
			out[i].Kind = HASH
		}
		if out[i].Kind == IDENT {
			if idx, ok := index(out[i].Text); ok {
				out[i] = Token{Kind: PARAM, ParamIndex: idx, Loc: out[i].Loc, LeadingWS: out[i].LeadingWS}
			}
		}
	}

	for i := range out {
		switch out[i].Kind {
		case HASH:
			if i+1 >= len(out) || out[i+1].Kind != PARAM {
				return nil, fmt.Errorf("%s: '#' is not followed by a macro parameter", loc)
			}
			out[i+1].IsStringify = true
		case HASHHASH:
			if i == 0 || i == len(out)-1 {
				return nil, fmt.Errorf("%s: '##' cannot appear at either end of a macro expansion", loc)
			}
			out[i-1].IsPaste = true
			out[i+1].IsPaste = true
		}
	}
	return out, nil
}

func parseSingleIdent(kind DirectiveKind, toks []Token, loc SourceLoc) (*Directive, error) {
	if len(toks) == 0 || (toks[0].Kind != IDENT && toks[0].Kind != KEYWORD) {
		return nil, fmt.Errorf("%s: #%s expects an identifier", loc, kind)
	}
	return &Directive{Kind: kind, Loc: loc, Identifier: toks[0].Text}, nil
}

func parseLine(toks []Token, loc SourceLoc) (*Directive, error) {
	if len(toks) == 0 || toks[0].Kind != PP_NUMBER {
		return nil, fmt.Errorf("%s: #line expects a line number", loc)
	}
	n, err := strconv.Atoi(toks[0].Text)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid #line number %q", loc, toks[0].Text)
	}
	d := &Directive{Kind: DirLine, Loc: loc, LineNum: n}
	if len(toks) > 1 {
		if toks[1].Kind != PP_STRING {
			return nil, fmt.Errorf("%s: invalid #line filename", loc)
		}
		name := strings.Trim(toks[1].Text, "\"")
		d.FileName = name
	}
	return d, nil
}
