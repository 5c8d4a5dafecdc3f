package cpp

import (
	"fmt"
	"os"
)

// Severity distinguishes a warning (processing continues) from an
// error (fatal to the translation unit).
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// DiagKind tags the category of a Diagnostic.
type DiagKind int

const (
	DiagLexical DiagKind = iota
	DiagDirectiveSyntax
	DiagIncludeResolution
	DiagMacro
	DiagConditionalExpr
	DiagUserSignaled
)

// Diagnostic is one reported problem, carrying its source location and
// kind so a caller can format or filter it without re-deriving context.
type Diagnostic struct {
	Kind     DiagKind
	Severity Severity
	Loc      SourceLoc
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Loc, d.Severity, d.Message)
}

// Sink receives diagnostics as they are produced. pkg/cpp never calls
// os.Exit itself; a FatalError returned from the Preprocessor's public
// methods is how callers learn processing must stop.
type Sink interface {
	Report(Diagnostic)
}

// FatalError wraps the diagnostic that ended processing, letting
// callers at the translation-unit boundary (cmd/cpp) decide on the
// exit code instead of the library deciding for them.
type FatalError struct {
	Diagnostic Diagnostic
}

func (e *FatalError) Error() string { return e.Diagnostic.String() }

// diagContext carries the Sink plus policy knobs (suppressing
// #warning) shared by every component that can report a diagnostic.
type diagContext struct {
	sink             Sink
	suppressWarnings bool
	errorCount       int
}

func newDiagContext(sink Sink, suppressWarnings bool) *diagContext {
	if sink == nil {
		sink = StderrSink{}
	}
	return &diagContext{sink: sink, suppressWarnings: suppressWarnings}
}

func (d *diagContext) warn(kind DiagKind, loc SourceLoc, format string, args ...any) {
	if d.suppressWarnings && kind == DiagUserSignaled {
		return
	}
	d.sink.Report(Diagnostic{Kind: kind, Severity: SeverityWarning, Loc: loc, Message: fmt.Sprintf(format, args...)})
}

// fatal reports the diagnostic and returns a *FatalError for the
// caller to propagate; it never calls os.Exit itself.
func (d *diagContext) fatal(kind DiagKind, loc SourceLoc, format string, args ...any) error {
	diag := Diagnostic{Kind: kind, Severity: SeverityError, Loc: loc, Message: fmt.Sprintf(format, args...)}
	d.errorCount++
	d.sink.Report(diag)
	return &FatalError{Diagnostic: diag}
}

// StderrSink is the default Sink: it writes each diagnostic to stderr
// in "file:line: severity: message" form.
type StderrSink struct{}

func (StderrSink) Report(d Diagnostic) { fmt.Fprintln(os.Stderr, d.String()) }

// CollectingSink accumulates diagnostics in memory, useful for tests
// and for embedding the preprocessor in another tool that wants to
// format diagnostics itself rather than print them directly.
type CollectingSink struct {
	Diagnostics []Diagnostic
}

func (s *CollectingSink) Report(d Diagnostic) { s.Diagnostics = append(s.Diagnostics, d) }
