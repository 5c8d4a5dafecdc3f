package cpp

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// condState is one frame of the conditional-inclusion stack.
type condState int

const (
	condTaken condState = iota
	condSkipping
	condTakenAlready
)

type condFrame struct {
	state        condState
	parentActive bool
	sawElse      bool
	loc          SourceLoc
}

// Driver is the Preprocessor's lookahead-buffered, parser-facing token
// source. It reads logical lines, routes directive lines to the
// directive machinery, feeds content lines through the Expander, and
// queues the results. Content-line expansion runs through
// Expander.ExpandLine with a feed callback (Driver.nextRaw) that
// transparently pulls more raw input across a line boundary whenever a
// function-like macro invocation's ')' has not appeared yet, so a
// macro call may span lines while everything else may not.
type Driver struct {
	input    *InputReader
	strtab   *StringTable
	macros   *MacroTable
	expander *Expander
	resolver *PathResolver
	diag     *diagContext
	opts     Options

	curLexer *Lexer

	condStack []condFrame
	ready     []Token

	// ioErr carries a fatal input-side condition (unterminated comment
	// at end of file) out of nextRaw, whose feed-shaped signature has no
	// error channel of its own.
	ioErr error

	outputPreprocessed bool
}

func NewDriver(input *InputReader, strtab *StringTable, macros *MacroTable, resolver *PathResolver, diag *diagContext, opts Options) *Driver {
	return &Driver{
		input:    input,
		strtab:   strtab,
		macros:   macros,
		expander: NewExpander(macros, strtab, diag),
		resolver: resolver,
		diag:     diag,
		opts:     opts,
	}
}

func (d *Driver) isActive() bool {
	if len(d.condStack) == 0 {
		return true
	}
	return d.condStack[len(d.condStack)-1].state == condTaken
}

// nextRaw returns the next unexpanded token from the active input
// file, converting end-of-line into a NEWLINE token and popping
// exhausted files from the include stack.
func (d *Driver) nextRaw() (Token, bool) {
	for {
		if d.curLexer == nil {
			text, loc, ok := d.input.GetPrepLine()
			if !ok {
				if d.input.UnterminatedComment() {
					d.ioErr = d.diag.fatal(DiagLexical, SourceLoc{File: d.input.CurrentFile(), Line: d.input.CurrentLine()}, "unterminated comment at end of file")
					return Token{}, false
				}
				closed := d.input.PopFile()
				d.resolver.FileClosed(closed)
				if d.input.Depth() == 0 {
					return Token{}, false
				}
				continue
			}
			d.curLexer = NewLexer(text, loc, d.strtab)
		}
		t := d.curLexer.Next()
		if t.Kind == EOF {
			d.curLexer = nil
			return Token{Kind: NEWLINE, Loc: t.Loc}, true
		}
		return t, true
	}
}

// fill ensures at least n tokens are ready for consumption, processing
// whole lines at a time (a directive line, a skipped line, or a
// fully-expanded content line) until enough are buffered or input ends.
// The buffer is not considered ready while its last token is a STRING:
// the next line may begin with an adjacent literal that still has to be
// joined, so filling continues until a non-string settles the question.
func (d *Driver) fill(n int) error {
	for len(d.ready) < n || d.lastIsJoinableString() {
		more, err := d.processOneLine()
		if err != nil {
			return err
		}
		if !more {
			for len(d.ready) < n {
				d.ready = append(d.ready, Token{Kind: EOF})
			}
			return nil
		}
	}
	return nil
}

func (d *Driver) lastIsJoinableString() bool {
	if d.outputPreprocessed || len(d.ready) == 0 {
		return false
	}
	return d.ready[len(d.ready)-1].Kind == STRING
}

func (d *Driver) processOneLine() (more bool, err error) {
	tok, ok := d.nextRaw()
	if !ok {
		if d.ioErr != nil {
			return false, d.ioErr
		}
		if len(d.condStack) > 0 {
			top := d.condStack[len(d.condStack)-1]
			return false, d.diag.fatal(DiagDirectiveSyntax, top.loc, "unterminated #if")
		}
		return false, nil
	}
	if tok.Kind == NEWLINE {
		return true, nil
	}
	if tok.Kind == HASH {
		return true, d.processDirectiveLine()
	}
	if !d.isActive() {
		for tok.Kind != NEWLINE {
			tok, ok = d.nextRaw()
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}
	return true, d.processContentLine(tok)
}

// processContentLine expands a line of ordinary tokens (first already
// read as tok) and appends the result to the ready buffer, handling
// the `_Pragma` unary operator and adjacent string-literal joining the
// way add_to_lookahead does.
func (d *Driver) processContentLine(tok Token) error {
	expanded, err := d.expander.ExpandLine([]Token{tok}, d.nextRaw)
	if err != nil {
		return d.diag.fatal(DiagMacro, tok.Loc, "%s", err)
	}
	if d.ioErr != nil {
		return d.ioErr
	}
	expanded = d.resolvePragmaOperators(expanded)

	for _, t := range expanded {
		if t.Kind == NEWLINE && !d.outputPreprocessed {
			continue
		}
		if err := d.addToLookahead(t); err != nil {
			return err
		}
	}
	return nil
}

// resolvePragmaOperators scans expanded content-line tokens for the
// `_Pragma ( "string" )` sequence and executes it as if it had been a
// `#pragma` directive, per C99 6.10.9; the operator itself contributes
// no tokens to the line's output.
func (d *Driver) resolvePragmaOperators(toks []Token) []Token {
	var out []Token
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.IsIdent("_Pragma") && i+3 < len(toks) &&
			toks[i+1].IsPunct("(") &&
			(toks[i+2].Kind == PP_STRING || toks[i+2].Kind == STRING) &&
			toks[i+3].IsPunct(")") {
			body := destringize(toks[i+2].Text)
			lx := NewLexer(body, t.Loc, d.strtab)
			var pragmaToks []Token
			for {
				pt := lx.Next()
				if pt.Kind == EOF {
					break
				}
				pragmaToks = append(pragmaToks, pt)
			}
			d.handlePragma(pragmaToks, t.Loc)
			i += 3
			continue
		}
		out = append(out, t)
	}
	return out
}

func destringize(text string) string {
	s := strings.TrimPrefix(text, "L")
	s = strings.TrimPrefix(s, "u8")
	s = strings.Trim(s, "\"")
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\\`, `\`)
	return s
}

// addToLookahead appends t to the ready queue, converting preprocessing
// literals to typed tokens and joining adjacent string literals, unless
// -E output mode wants the original spelling preserved untouched.
func (d *Driver) addToLookahead(t Token) error {
	if d.outputPreprocessed {
		d.ready = append(d.ready, t)
		return nil
	}
	switch t.Kind {
	case PP_CHAR, PP_NUMBER:
		converted, err := ConvertLiteral(t)
		if err != nil {
			return d.diag.fatal(DiagLexical, t.Loc, "%s", err)
		}
		d.ready = append(d.ready, converted)
		return nil
	case PP_STRING:
		converted, err := ConvertLiteral(t)
		if err != nil {
			return d.diag.fatal(DiagLexical, t.Loc, "%s", err)
		}
		if n := len(d.ready); n > 0 && d.ready[n-1].Kind == STRING {
			d.ready[n-1].Bytes = append(d.ready[n-1].Bytes, converted.Bytes...)
			return nil
		}
		d.ready = append(d.ready, converted)
		return nil
	default:
		d.ready = append(d.ready, t)
		return nil
	}
}

// Next consumes and returns the next token, pulling more input lines
// as needed.
func (d *Driver) Next() (Token, error) {
	if err := d.fill(1); err != nil {
		return Token{}, err
	}
	t := d.ready[0]
	d.ready = d.ready[1:]
	if d.opts.Verbose {
		fmt.Fprintf(os.Stderr, "token( %s )\n", describeToken(t))
	}
	return t, nil
}

func describeToken(t Token) string {
	switch t.Kind {
	case NUMBER:
		if t.IsFloat {
			return fmt.Sprintf("%s %g%s", t.Kind, t.FloatValue, t.NumType.Suffix())
		}
		if t.IsUnsigned {
			return fmt.Sprintf("%s %d%s", t.Kind, t.IntValue, t.NumType.Suffix())
		}
		return fmt.Sprintf("%s %d%s", t.Kind, int64(t.IntValue), t.NumType.Suffix())
	case STRING:
		return fmt.Sprintf("%s %q", t.Kind, string(t.Bytes))
	case NEWLINE, EOF:
		return t.Kind.String()
	default:
		return fmt.Sprintf("%s %s", t.Kind, t.Text)
	}
}

// Peek returns the next token without consuming it.
func (d *Driver) Peek() (Token, error) { return d.PeekN(1) }

// PeekN returns the nth not-yet-consumed token (1-based) without
// consuming any.
func (d *Driver) PeekN(n int) (Token, error) {
	if err := d.fill(n); err != nil {
		return Token{}, err
	}
	return d.ready[n-1], nil
}

// Consume requires the next token to have the given kind, returning it.
func (d *Driver) Consume(kind TokenKind) (Token, error) {
	t, err := d.Next()
	if err != nil {
		return Token{}, err
	}
	if t.Kind != kind {
		return t, d.diag.fatal(DiagLexical, t.Loc, "unexpected %s, expected %s", t.Kind, kind)
	}
	return t, nil
}

// InjectLine feeds a single synthetic line (e.g. a command-line -D
// definition rendered as `#define ...`) directly into the pipeline
// without consuming real input, trimming the EOF sentinels that fill()
// otherwise appends once input temporarily runs dry.
func (d *Driver) InjectLine(text string) error {
	d.input.PushText("<command-line>", text)
	if err := d.fill(0); err != nil {
		return err
	}
	for len(d.ready) > 0 && d.ready[len(d.ready)-1].Kind == EOF {
		d.ready = d.ready[:len(d.ready)-1]
	}
	return nil
}

// processDirectiveLine parses and executes one `#`-prefixed line. When
// nested inside a false conditional block, only the conditional
// directives themselves are recognized (to track nesting); everything
// else is silently discarded, matching the standard's requirement that
// skipped groups need not even be well-formed outside of balanced
// conditionals.
func (d *Driver) processDirectiveLine() error {
	loc := SourceLoc{File: d.input.CurrentFile(), Line: d.input.CurrentLine()}
	name, ok := d.nextRaw()
	if !ok {
		return nil
	}
	if name.Kind == NEWLINE {
		return nil // lone '#': null directive, a no-op
	}

	if !d.isActive() {
		return d.processStructuralOnly(name, loc)
	}

	toks, err := d.readDirectiveBody(name)
	if err != nil {
		return err
	}
	// #include's operand may be built by macros; expand before parsing
	// unless the header-name fast path already claimed the line.
	switch name.Text {
	case "include", "include_next", "line":
		if len(toks) > 0 && toks[0].Kind != HEADER_NAME {
			toks, err = d.expander.Expand(toks)
			if err != nil {
				return d.diag.fatal(DiagMacro, loc, "%s", err)
			}
		}
	}
	full := append([]Token{name}, toks...)
	dir, err := ParseDirective(full, loc)
	if err != nil {
		return d.diag.fatal(DiagDirectiveSyntax, loc, "%s", err)
	}
	return d.execDirective(dir)
}

// processStructuralOnly handles a directive line encountered while
// skipping a false conditional branch: only #if/#ifdef/#ifndef/#elif/
// #else/#endif affect the conditional stack; anything else, including
// syntactically broken content, is discarded unread.
func (d *Driver) processStructuralOnly(name Token, loc SourceLoc) error {
	switch name.Text {
	case "if", "ifdef", "ifndef":
		d.discardRestOfLine()
		d.condStack = append(d.condStack, condFrame{state: condSkipping, parentActive: false, loc: loc})
		return nil
	case "elif":
		// The one skipped directive whose body still matters: an #elif
		// on a frame that is SKIPPING under an active parent must have
		// its condition evaluated, or SKIPPING could never flip to TAKEN.
		if n := len(d.condStack); n > 0 {
			top := d.condStack[n-1]
			if top.parentActive && top.state == condSkipping && !top.sawElse {
				toks, err := d.readDirectiveBody(name)
				if err != nil {
					return err
				}
				v, err := d.evalIfExpr(toks, loc)
				if err != nil {
					return err
				}
				return d.execElif(&v, loc)
			}
		}
		d.discardRestOfLine()
		return d.execElif(nil, loc)
	case "else":
		d.discardRestOfLine()
		return d.execElse(loc)
	case "endif":
		d.discardRestOfLine()
		return d.execEndif(loc)
	default:
		d.discardRestOfLine()
		return nil
	}
}

func (d *Driver) discardRestOfLine() {
	for {
		t, ok := d.nextRaw()
		if !ok || t.Kind == NEWLINE {
			return
		}
	}
}

// readDirectiveBody collects the raw tokens of a directive line after
// its name, special-casing #include/#include_next's header-name form
// so `<stdio.h>` lexes as one token instead of colliding with the
// `<`/`.`/`>` punctuators a generic scan would produce.
func (d *Driver) readDirectiveBody(name Token) ([]Token, error) {
	if (name.Text == "include" || name.Text == "include_next") && d.curLexer != nil {
		if hdr, ok := d.curLexer.ScanHeaderName(); ok {
			d.discardRestOfLine()
			return []Token{hdr}, nil
		}
	}
	var toks []Token
	for {
		t, ok := d.nextRaw()
		if !ok || t.Kind == NEWLINE {
			break
		}
		toks = append(toks, t)
	}
	return toks, nil
}

func (d *Driver) execDirective(dir *Directive) error {
	switch dir.Kind {
	case DirEmpty:
		return nil
	case DirInclude, DirIncludeNext:
		return d.execInclude(dir)
	case DirDefine:
		return d.execDefine(dir)
	case DirUndef:
		d.macros.Undefine(dir.Identifier)
		return nil
	case DirIf:
		return d.execIf(dir)
	case DirIfdef:
		d.pushIf(d.macros.IsDefined(dir.Identifier), dir.Loc)
		return nil
	case DirIfndef:
		d.pushIf(!d.macros.IsDefined(dir.Identifier), dir.Loc)
		return nil
	case DirElif:
		return d.execElifExpr(dir)
	case DirElse:
		return d.execElse(dir.Loc)
	case DirEndif:
		return d.execEndif(dir.Loc)
	case DirLine:
		d.input.SetLine(dir.LineNum)
		if dir.FileName != "" {
			d.input.SetFile(dir.FileName)
		}
		return nil
	case DirError:
		return d.diag.fatal(DiagUserSignaled, dir.Loc, "#error %s", dir.Message)
	case DirWarning:
		d.diag.warn(DiagUserSignaled, dir.Loc, "#warning %s", dir.Message)
		return nil
	case DirPragma:
		d.handlePragma(dir.PragmaTokens, dir.Loc)
		return nil
	case DirUnknown:
		d.diag.warn(DiagDirectiveSyntax, dir.Loc, "ignored unknown directive #%s", dir.Unknown)
		return nil
	}
	return nil
}

func (d *Driver) pushIf(cond bool, loc SourceLoc) {
	parentActive := d.isActive()
	state := condSkipping
	if parentActive && cond {
		state = condTaken
	}
	d.condStack = append(d.condStack, condFrame{state: state, parentActive: parentActive, loc: loc})
}

func (d *Driver) execIf(dir *Directive) error {
	v, err := d.evalIfExpr(dir.Expr, dir.Loc)
	if err != nil {
		return err
	}
	d.pushIf(v, dir.Loc)
	return nil
}

func (d *Driver) execElifExpr(dir *Directive) error {
	if len(d.condStack) == 0 {
		return d.diag.fatal(DiagDirectiveSyntax, dir.Loc, "#elif without #if")
	}
	top := &d.condStack[len(d.condStack)-1]
	if !top.parentActive || top.state != condSkipping {
		return d.execElif(nil, dir.Loc)
	}
	v, err := d.evalIfExpr(dir.Expr, dir.Loc)
	if err != nil {
		return err
	}
	return d.execElif(&v, dir.Loc)
}

// execElif applies #elif's state transition. v is nil when the
// condition need not (or cannot, while skipping) be evaluated.
func (d *Driver) execElif(v *bool, loc SourceLoc) error {
	if len(d.condStack) == 0 {
		return d.diag.fatal(DiagDirectiveSyntax, loc, "#elif without #if")
	}
	top := &d.condStack[len(d.condStack)-1]
	if top.sawElse {
		return d.diag.fatal(DiagDirectiveSyntax, loc, "#elif after #else")
	}
	if !top.parentActive {
		top.state = condSkipping
		return nil
	}
	switch top.state {
	case condTaken:
		top.state = condTakenAlready
	case condTakenAlready:
		// stays
	case condSkipping:
		if v != nil && *v {
			top.state = condTaken
		}
	}
	return nil
}

func (d *Driver) execElse(loc SourceLoc) error {
	if len(d.condStack) == 0 {
		return d.diag.fatal(DiagDirectiveSyntax, loc, "#else without #if")
	}
	top := &d.condStack[len(d.condStack)-1]
	if top.sawElse {
		return d.diag.fatal(DiagDirectiveSyntax, loc, "#else after #else")
	}
	top.sawElse = true
	if !top.parentActive {
		top.state = condSkipping
		return nil
	}
	switch top.state {
	case condTaken:
		top.state = condTakenAlready
	case condTakenAlready:
		// stays
	case condSkipping:
		top.state = condTaken
	}
	return nil
}

func (d *Driver) execEndif(loc SourceLoc) error {
	if len(d.condStack) == 0 {
		return d.diag.fatal(DiagDirectiveSyntax, loc, "#endif without #if")
	}
	d.condStack = d.condStack[:len(d.condStack)-1]
	return nil
}

// evalIfExpr resolves `defined` (which must see un-expanded operands),
// macro-expands everything else, then evaluates the resulting constant
// expression.
func (d *Driver) evalIfExpr(toks []Token, loc SourceLoc) (bool, error) {
	resolved, err := d.resolveDefined(toks, loc)
	if err != nil {
		return false, err
	}
	expanded, err := d.expander.Expand(resolved)
	if err != nil {
		return false, d.diag.fatal(DiagMacro, loc, "%s", err)
	}
	v, err := evalConstantExpr(expanded, loc)
	if err != nil {
		return false, d.diag.fatal(DiagConditionalExpr, loc, "%s", err)
	}
	return v.truthy(), nil
}

func (d *Driver) resolveDefined(toks []Token, loc SourceLoc) ([]Token, error) {
	var out []Token
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if !t.IsIdent("defined") {
			out = append(out, t)
			continue
		}
		i++
		parens := false
		if i < len(toks) && toks[i].IsPunct("(") {
			parens = true
			i++
		}
		if i >= len(toks) || !toks[i].IsExpandable {
			return nil, d.diag.fatal(DiagConditionalExpr, loc, "expected identifier after 'defined'")
		}
		name := toks[i].Text
		i++
		if parens {
			if i >= len(toks) || !toks[i].IsPunct(")") {
				return nil, d.diag.fatal(DiagConditionalExpr, loc, "expected ')' to close 'defined'")
			}
		} else {
			i--
		}
		val := "0"
		if d.macros.IsDefined(name) {
			val = "1"
		}
		out = append(out, Token{Kind: PP_NUMBER, Text: val, Loc: loc})
	}
	return out, nil
}

func (d *Driver) execDefine(dir *Directive) error {
	kind := MacroObject
	if dir.IsFunctionLike {
		kind = MacroFunction
	}
	m := &Macro{
		Name:        dir.MacroName,
		Kind:        kind,
		Params:      dir.MacroParams,
		IsVariadic:  dir.IsVariadic,
		Replacement: dir.MacroBody,
		Loc:         dir.Loc,
	}
	if redefined := d.macros.Define(m); redefined {
		d.diag.warn(DiagMacro, dir.Loc, "%q redefined", dir.MacroName)
	}
	return nil
}

func (d *Driver) execInclude(dir *Directive) error {
	name := dir.HeaderName
	var path string
	var slot int
	var err error
	if dir.Kind == DirIncludeNext {
		path, slot, err = d.resolver.ResolveNext(name, d.input.CurrentFile())
	} else {
		path, slot, err = d.resolver.Resolve(name, dir.IsSystemIncl, d.input.CurrentFile())
	}
	if err != nil {
		return d.diag.fatal(DiagIncludeResolution, dir.Loc, "%s", err)
	}
	if d.resolver.IsAlreadyIncluded(path) {
		return nil
	}
	if err := d.resolver.PushFile(path, slot); err != nil {
		return d.diag.fatal(DiagIncludeResolution, dir.Loc, "%s", err)
	}
	if err := d.input.PushFile(path); err != nil {
		d.resolver.PopFile()
		return d.diag.fatal(DiagIncludeResolution, dir.Loc, "%s", err)
	}
	return nil
}

// handlePragma interprets a #pragma's token list. Only `once` is given
// meaning; anything else is passed through to the Sink as an
// informational diagnostic rather than silently dropped.
func (d *Driver) handlePragma(toks []Token, loc SourceLoc) {
	if len(toks) == 1 && toks[0].IsIdent("once") {
		d.resolver.MarkPragmaOnce(d.input.CurrentFile())
		return
	}
	d.diag.warn(DiagDirectiveSyntax, loc, "ignored #pragma %s", TokensToText(toks))
}

// SetOutputPreprocessed toggles -E mode, in which literal conversion
// and string-joining are skipped so the original spelling survives to
// the text emitter unchanged.
func (d *Driver) SetOutputPreprocessed(v bool) { d.outputPreprocessed = v }

// Preprocess drives the pipeline to end of input in -E mode, writing
// the textual form of every token to w: LeadingWS as that many spaces,
// spellings otherwise verbatim (strings and character constants keep
// their original quotes and escapes), NEWLINE as a line break.
func (d *Driver) Preprocess(w io.Writer) error {
	d.SetOutputPreprocessed(true)
	needLine := false
	for {
		t, err := d.Next()
		if err != nil {
			return err
		}
		if t.Kind == EOF {
			if needLine {
				if _, err := io.WriteString(w, "\n"); err != nil {
					return err
				}
			}
			return nil
		}
		if t.Kind == NEWLINE {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
			needLine = false
			continue
		}
		if t.LeadingWS > 0 {
			if _, err := io.WriteString(w, strings.Repeat(" ", t.LeadingWS)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, t.Text); err != nil {
			return err
		}
		needLine = true
	}
}
