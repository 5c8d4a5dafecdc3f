package cpp

// Options configures a Preprocessor.
type Options struct {
	Defines      []string // "NAME" or "NAME=value", in -D order
	Undefines    []string // -U names, applied after Defines
	IncludePaths []string // -I directories
	SystemPaths  []string // -isystem directories

	// SuppressWarnings silences #warning, matching -w for the one
	// warning class the spec makes suppressible.
	SuppressWarnings bool

	// Verbose dumps each token handed to the consumer on stderr in a
	// `token( ... )` form.
	Verbose bool

	// Sink receives every diagnostic; nil defaults to StderrSink.
	Sink Sink
}
