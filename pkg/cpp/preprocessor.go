package cpp

import "io"

// Preprocessor is one translation unit's preprocessing pipeline, wired
// together from Options: String Table, Macro Table, Input Reader, Path
// Resolver, Expander, and the lookahead Driver. Its lifecycle is
// Init -> (Next/Peek/PeekN/Consume or Preprocess) -> Clear; after Clear
// the instance is reusable for another translation unit. Instances are
// independent, so concurrent translation units each get their own.
type Preprocessor struct {
	opts     Options
	strtab   *StringTable
	macros   *MacroTable
	input    *InputReader
	resolver *PathResolver
	diag     *diagContext
	driver   *Driver
}

// NewPreprocessor builds an unstarted instance; Init opens the primary
// file and applies the command-line macro set.
func NewPreprocessor(opts Options) *Preprocessor {
	p := &Preprocessor{opts: opts}
	p.wire()
	return p
}

func (p *Preprocessor) wire() {
	p.strtab = NewStringTable()
	p.input = NewInputReader()
	p.macros = NewMacroTable(func() SourceLoc {
		return SourceLoc{File: p.input.CurrentFile(), Line: p.input.CurrentLine()}
	})
	p.resolver = NewPathResolver()
	for _, dir := range p.opts.IncludePaths {
		p.resolver.AddUserPath(dir)
	}
	for _, dir := range p.opts.SystemPaths {
		p.resolver.AddSystemPath(dir)
	}
	for _, dir := range DefaultSystemPaths() {
		p.resolver.AddSystemPath(dir)
	}
	p.diag = newDiagContext(p.opts.Sink, p.opts.SuppressWarnings)
	p.driver = NewDriver(p.input, p.strtab, p.macros, p.resolver, p.diag, p.opts)
}

// Init opens the primary source file and installs the -D/-U macro set
// on top of the builtins.
func (p *Preprocessor) Init(path string) error {
	for _, spec := range p.opts.Defines {
		if err := p.macros.ApplyCmdlineDefine(spec, p.strtab); err != nil {
			return err
		}
	}
	for _, name := range p.opts.Undefines {
		p.macros.Undefine(name)
	}
	if err := p.input.PushFile(path); err != nil {
		return p.diag.fatal(DiagIncludeResolution, SourceLoc{File: path}, "%s", err)
	}
	return p.resolver.PushFile(path, 0)
}

// InitText starts the instance over an in-memory source instead of a
// file on disk, for embedding and tests.
func (p *Preprocessor) InitText(name, text string) error {
	for _, spec := range p.opts.Defines {
		if err := p.macros.ApplyCmdlineDefine(spec, p.strtab); err != nil {
			return err
		}
	}
	for _, u := range p.opts.Undefines {
		p.macros.Undefine(u)
	}
	p.input.PushText(name, text)
	return nil
}

// Next returns the next parser-facing token. At end of input it keeps
// returning EOF tokens.
func (p *Preprocessor) Next() (Token, error) { return p.driver.Next() }

// Peek returns the next token without consuming it.
func (p *Preprocessor) Peek() (Token, error) { return p.driver.Peek() }

// PeekN returns the nth pending token (1-based) without consuming any.
func (p *Preprocessor) PeekN(n int) (Token, error) { return p.driver.PeekN(n) }

// Consume returns the next token after checking its kind; a mismatch is
// a fatal diagnostic.
func (p *Preprocessor) Consume(kind TokenKind) (Token, error) { return p.driver.Consume(kind) }

// InjectLine splices raw text into the input as if it were the next
// line of the current file.
func (p *Preprocessor) InjectLine(text string) error { return p.driver.InjectLine(text) }

// Preprocess runs the whole translation unit in -E mode, writing its
// textual form to w.
func (p *Preprocessor) Preprocess(w io.Writer) error { return p.driver.Preprocess(w) }

// Macros exposes the macro table, e.g. for a -dM style listing.
func (p *Preprocessor) Macros() *MacroTable { return p.macros }

// ErrorCount reports how many error-severity diagnostics were emitted.
func (p *Preprocessor) ErrorCount() int { return p.diag.errorCount }

// Clear releases the string table, macro table, input buffers, and
// lookahead queue, returning the instance to its unstarted state.
func (p *Preprocessor) Clear() {
	p.wire()
}
