package cpp

import "fmt"

// cursor is a read head over the working-line TokenSeq, which can
// optionally grow by pulling from feed when it runs dry. With feed nil,
// a cursor behaves like a plain iterator — exactly what macro-argument
// and #if expression expansion need, since those never cross a line
// boundary. With feed set to the Driver's raw-token source, the same
// expand loop also serves a content line whose function-like macro
// invocation's closing ')' has not appeared yet, without a separate
// two-pass "try once, refill, retry" mechanism.
type cursor struct {
	seq  *TokenSeq
	pos  int
	feed func() (Token, bool)
}

func newCursor(toks []Token, feed func() (Token, bool)) *cursor {
	seq := NewTokenSeq(len(toks))
	seq.AppendAll(toks)
	return &cursor{seq: seq, feed: feed}
}

func (c *cursor) next() (Token, bool) {
	if c.pos < c.seq.Len() {
		t := c.seq.At(c.pos)
		c.pos++
		return t, true
	}
	if c.feed == nil {
		return Token{}, false
	}
	t, ok := c.feed()
	if !ok {
		return Token{}, false
	}
	c.seq.PushBack(t)
	c.pos++
	return t, true
}

// buffered reports whether unread tokens remain in the working line,
// not counting anything feed could still supply.
func (c *cursor) buffered() bool { return c.pos < c.seq.Len() }

// pushFront re-inserts repl just before the next unread token, the
// mechanism by which a macro's substitution becomes eligible for
// rescanning (including further macro calls within it).
func (c *cursor) pushFront(repl []Token) {
	c.seq.Insert(c.pos, repl)
}

// Expander performs macro substitution and rescan. It holds no
// per-invocation state between calls; every hideset lives on the
// tokens themselves (token.go's HideSet), so nothing here needs
// resetting between lines or between nested expansions of arguments.
type Expander struct {
	macros *MacroTable
	strtab *StringTable
	diag   *diagContext
}

func NewExpander(macros *MacroTable, strtab *StringTable, diag *diagContext) *Expander {
	return &Expander{macros: macros, strtab: strtab, diag: diag}
}

// Expand fully macro-expands a fixed token slice (a macro argument, or
// an #if/#elif expression) with no further input available.
func (e *Expander) Expand(toks []Token) ([]Token, error) {
	return e.expand(toks, nil)
}

// ExpandLine expands a content line. feed supplies more raw tokens
// (crossing into subsequent logical lines, NEWLINE included) for the
// case where a function-like macro's argument list is not yet closed at
// the end of the line currently in hand.
func (e *Expander) ExpandLine(toks []Token, feed func() (Token, bool)) ([]Token, error) {
	return e.expand(toks, feed)
}

func (e *Expander) expand(toks []Token, feed func() (Token, bool)) ([]Token, error) {
	c := newCursor(toks, feed)
	var out []Token

	for {
		tok, ok := c.next()
		if !ok {
			break
		}
		if tok.Kind == NEWLINE && !c.buffered() {
			// A content line's terminator: stop here rather than let a
			// feed keep pulling the rest of the file into one pass. Fixed
			// buffers (macro arguments, #if expressions) never contain a
			// NEWLINE, so this only ever fires for feed-driven callers.
			// Tokens a cross-line peek already pulled past the NEWLINE
			// stay buffered and are drained first.
			out = append(out, tok)
			break
		}
		if tok.Kind == NEWLINE {
			out = append(out, tok)
			continue
		}
		if !tok.IsExpandable || tok.Painted(tok.Text) {
			out = append(out, tok)
			continue
		}
		m, found := e.macros.Lookup(tok.Text)
		if !found {
			out = append(out, tok)
			continue
		}

		switch m.Kind {
		case MacroObject:
			repl := e.substituteObject(m, tok)
			c.pushFront(repl)

		case MacroBuiltin:
			repl := m.Builtin(tok.Loc)
			painted := make([]Token, len(repl))
			for i, r := range repl {
				r.Loc = tok.Loc
				r.LeadingWS = tok.LeadingWS
				painted[i] = r.WithHideSet(tok.Hide.With(tok.Text))
			}
			c.pushFront(painted)

		case MacroFunction:
			if _, found := e.peekParen(c); !found {
				out = append(out, tok)
				continue
			}
			args, closeParen, err := e.collectArgs(c, m, tok.Loc)
			if err != nil {
				return nil, err
			}
			repl, err := e.substituteFunction(m, tok, args, closeParen)
			if err != nil {
				return nil, err
			}
			c.pushFront(repl)
		}
	}
	return out, nil
}

// peekParen skips NEWLINE tokens looking for a function-like macro's
// opening '(' (the call may span lines); if none is found before a
// non-NEWLINE, non-'(' token or end of input, every peeked token is
// pushed back so they remain ordinary output.
func (e *Expander) peekParen(c *cursor) (Token, bool) {
	var skipped []Token
	for {
		t, ok := c.next()
		if !ok {
			c.pushFront(skipped)
			return Token{}, false
		}
		if t.Kind == NEWLINE {
			skipped = append(skipped, t)
			continue
		}
		if t.IsPunct("(") {
			return t, true
		}
		skipped = append(skipped, t)
		c.pushFront(skipped)
		return Token{}, false
	}
}

// collectArgs reads a function-like macro invocation's argument list
// after the opening '(' already consumed by peekParen, splitting on
// top-level commas and nesting '()', '[]', and '{}' together. NEWLINE
// tokens inside the invocation are dropped, which is what joins the
// lines of a cross-line call.
func (e *Expander) collectArgs(c *cursor, m *Macro, loc SourceLoc) (args [][]Token, closeParen Token, err error) {
	var cur []Token
	depth := 0
	for {
		t, ok := c.next()
		if !ok {
			return nil, Token{}, fmt.Errorf("%s: unterminated invocation of macro %q", loc, m.Name)
		}
		if t.Kind == NEWLINE {
			continue
		}
		switch {
		case t.IsPunct("(") || t.IsPunct("[") || t.IsPunct("{"):
			depth++
			cur = append(cur, t)
		case t.IsPunct(")") || t.IsPunct("]") || t.IsPunct("}"):
			if depth == 0 && t.IsPunct(")") {
				args = append(args, cur)
				closeParen = t
				return finalizeArgs(args, m), closeParen, nil
			}
			depth--
			cur = append(cur, t)
		case t.IsPunct(",") && depth == 0 && !m.lastParamIsVariadicCollector(len(args)):
			args = append(args, cur)
			cur = nil
		default:
			cur = append(cur, t)
		}
	}
}

// lastParamIsVariadicCollector reports whether the argument currently
// being collected (argsSoFar is the count already closed off) is the
// variadic tail, in which case a ',' no longer separates arguments —
// it is data belonging to __VA_ARGS__.
func (m *Macro) lastParamIsVariadicCollector(argsSoFar int) bool {
	return m.IsVariadic && argsSoFar >= len(m.Params)
}

func finalizeArgs(args [][]Token, m *Macro) [][]Token {
	if len(args) == 1 && len(args[0]) == 0 && len(m.Params) == 0 && !m.IsVariadic {
		return nil // f() invoked with zero arguments, not one empty argument
	}
	return args
}

// substituteObject builds an object-like macro's output: the stored
// replacement list, pasted where '##' appears, with every resulting
// token's hideset the union of the invoking token's hideset and the
// macro's own name — the rule that stops A -> B -> A ping-pong after
// one round trip.
func (e *Expander) substituteObject(m *Macro, invoker Token) []Token {
	body := e.pasteReplacementList(m.Replacement, nil, m)
	newHide := invoker.Hide.With(m.Name)
	out := make([]Token, len(body))
	for i, t := range body {
		if i == 0 {
			t.LeadingWS = invoker.LeadingWS
		}
		out[i] = t.WithHideSet(Union(t.Hide, newHide))
	}
	return out
}

// substituteFunction builds a function-like macro's output: arguments
// bound to PARAM tokens (pre-expanded unless adjacent to '#'/'##'),
// stringification, pasting, then painting with the intersection of the
// invoking name token's hideset and the closing ')' token's hideset,
// unioned with the macro's own name. Every token of the result,
// substituted argument tokens included, receives that paint on top of
// its own hideset.
func (e *Expander) substituteFunction(m *Macro, invoker Token, args [][]Token, closeParen Token) ([]Token, error) {
	if err := validateArgCount(m, args, invoker.Loc); err != nil {
		return nil, err
	}

	expandedArgs := make([][]Token, len(args))
	for i, a := range args {
		ex, err := e.Expand(a)
		if err != nil {
			return nil, err
		}
		expandedArgs[i] = ex
	}

	body := e.pasteReplacementList(m.Replacement, argBinder{raw: args, expanded: expandedArgs, m: m}, m)

	newHide := Intersect(invoker.Hide, closeParen.Hide).With(m.Name)

	out := make([]Token, len(body))
	for i, t := range body {
		if i == 0 {
			t.LeadingWS = invoker.LeadingWS
		}
		out[i] = t.WithHideSet(Union(t.Hide, newHide))
	}
	return out, nil
}

func validateArgCount(m *Macro, args [][]Token, loc SourceLoc) error {
	want := len(m.Params)
	got := len(args)
	if m.IsVariadic {
		if got < want {
			return fmt.Errorf("%s: macro %q requires at least %d arguments, got %d", loc, m.Name, want, got)
		}
		return nil
	}
	if got != want {
		return fmt.Errorf("%s: macro %q requires %d arguments, got %d", loc, m.Name, want, got)
	}
	return nil
}

type argBinder struct {
	raw      [][]Token
	expanded [][]Token
	m        *Macro
}

func (b argBinder) rawFor(idx int) []Token {
	if idx == VarArgsParam {
		return varArgsSlice(b.raw, len(b.m.Params))
	}
	if idx < len(b.raw) {
		return b.raw[idx]
	}
	return nil
}

func (b argBinder) expandedFor(idx int) []Token {
	if idx == VarArgsParam {
		return varArgsSlice(b.expanded, len(b.m.Params))
	}
	if idx < len(b.expanded) {
		return b.expanded[idx]
	}
	return nil
}

func varArgsSlice(args [][]Token, namedCount int) []Token {
	var out []Token
	for i := namedCount; i < len(args); i++ {
		if i > namedCount {
			out = append(out, Token{Kind: PUNCT, Text: ","})
		}
		out = append(out, args[i]...)
	}
	return out
}

type argLookup interface {
	rawFor(int) []Token
	expandedFor(int) []Token
}

// pasteReplacementList walks a stored replacement list, binding PARAM
// tokens to arguments (object-like macros pass a nil binder, since
// they have none) and performing '#' stringification and '##' pasting.
// It first breaks body into segments, one per replacement-list
// position (a PARAM position may expand to zero or many tokens), then
// joins segments that a HASHHASH separated by actually concatenating
// spellings and re-lexing. A parameter that expands to nothing leaves a
// PLACEHOLDER token in its segment when it is a paste operand, so the
// paste cancels cleanly instead of gluing two unrelated neighbors.
func (e *Expander) pasteReplacementList(body []Token, binder argLookup, m *Macro) []Token {
	type segment struct {
		toks      []Token
		pasteNext bool // a HASHHASH follows this segment in body
		vaArgs    bool // this segment is a __VA_ARGS__ expansion
	}
	var segs []segment

	for i := 0; i < len(body); i++ {
		t := body[i]
		switch {
		case t.Kind == HASH && binder != nil && i+1 < len(body) && body[i+1].Kind == PARAM:
			arg := binder.rawFor(body[i+1].ParamIndex)
			segs = append(segs, segment{toks: []Token{stringifyArg(arg, t)}})
			i++
		case t.Kind == PARAM:
			var arg []Token
			if t.IsPaste {
				arg = binder.rawFor(t.ParamIndex)
			} else {
				arg = binder.expandedFor(t.ParamIndex)
			}
			toks := append([]Token{}, arg...)
			if len(toks) == 0 && t.IsPaste {
				toks = []Token{{Kind: PLACEHOLDER, Loc: t.Loc}}
			}
			if len(toks) > 0 {
				toks[0].LeadingWS = t.LeadingWS
			}
			segs = append(segs, segment{toks: toks, vaArgs: t.ParamIndex == VarArgsParam})
		case t.Kind == HASHHASH:
			if len(segs) > 0 {
				segs[len(segs)-1].pasteNext = true
			}
			continue
		default:
			segs = append(segs, segment{toks: []Token{t}})
		}
	}

	var out []Token
	pendingPaste := false
	for _, seg := range segs {
		if pendingPaste && len(out) > 0 && len(seg.toks) > 0 {
			left := out[len(out)-1]
			right := seg.toks[0]
			switch {
			case right.Kind == PLACEHOLDER:
				// Empty right operand: the left token survives unchanged,
				// except the GNU `, ## __VA_ARGS__` form, which swallows
				// the comma when the variadic tail is empty.
				if seg.vaArgs && left.IsPunct(",") {
					out = out[:len(out)-1]
				}
			case seg.vaArgs && left.IsPunct(","):
				// The same GNU form with a non-empty tail pastes nothing:
				// the comma and the arguments pass through as written.
				out = append(out, seg.toks[0])
			case left.Kind == PLACEHOLDER:
				right.LeadingWS = left.LeadingWS
				out[len(out)-1] = right
			default:
				out[len(out)-1] = e.pasteTokens(left, right)
			}
			out = append(out, seg.toks[1:]...)
		} else {
			out = append(out, seg.toks...)
		}
		pendingPaste = seg.pasteNext
	}

	kept := out[:0]
	for _, t := range out {
		if t.Kind != PLACEHOLDER {
			kept = append(kept, t)
		}
	}
	return kept
}

// pasteTokens concatenates two tokens' spellings and re-lexes the
// result. A combination that does not form a single preprocessing token
// is diagnosed and the left operand's pasted spelling is kept anyway so
// processing can continue.
func (e *Expander) pasteTokens(left, right Token) Token {
	text := left.Text + right.Text
	lx := NewLexer(text, left.Loc, e.strtab)
	first := lx.Next()
	if rest := lx.Next(); rest.Kind != EOF {
		e.diag.warn(DiagMacro, left.Loc, "pasting %q and %q does not give a valid preprocessing token", left.Text, right.Text)
	}
	first.LeadingWS = left.LeadingWS
	return first
}

func stringifyArg(arg []Token, hashTok Token) Token {
	text := stringifyText(arg)
	return Token{Kind: PP_STRING, Text: text, Loc: hashTok.Loc, LeadingWS: hashTok.LeadingWS}
}

// stringifyText implements the '#' operator's text rule: each token's
// spelling in order, a single space between tokens that had whitespace
// between them in the source, and '"'/'\\' inside any string or
// character literal operand backslash-escaped.
func stringifyText(arg []Token) string {
	var sb []byte
	for i, t := range arg {
		if i > 0 && t.LeadingWS > 0 {
			sb = append(sb, ' ')
		}
		spelling := t.Text
		if t.Kind == PP_STRING || t.Kind == PP_CHAR {
			for j := 0; j < len(spelling); j++ {
				if spelling[j] == '"' || spelling[j] == '\\' {
					sb = append(sb, '\\')
				}
				sb = append(sb, spelling[j])
			}
		} else {
			sb = append(sb, spelling...)
		}
	}
	return `"` + string(sb) + `"`
}
