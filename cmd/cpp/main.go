package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/raymyers/cpp/pkg/cpp"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// Preprocessor options
var (
	includePaths     []string
	systemPaths      []string
	defineFlags      []string
	undefineFlags    []string
	preprocessOnly   bool // -E flag
	suppressWarnings bool
	verboseTokens    bool
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	// Normalize cc-style single-dash long flags to double-dash for
	// pflag compatibility
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// longFlagNames lists long flags that should also accept single-dash
// style, the spelling every C compiler driver uses
var longFlagNames = []string{"isystem", "verbose"}

// normalizeFlags converts cc-style single-dash flags like -isystem to --isystem
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		for _, flagName := range longFlagNames {
			if arg == "-"+flagName {
				result[i] = "--" + flagName
				break
			}
		}
		if result[i] == "" {
			result[i] = arg
		}
	}
	return result
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cpp [file]",
		Short: "cpp is a standalone C preprocessor",
		Long: `cpp runs the preprocessing phases of C translation: line splicing,
comment elision, directive handling, and macro expansion. With -E the
result is written to stdout; otherwise it is written next to the input
with an .i extension.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			filename := args[0]

			if preprocessOnly {
				return preprocessTo(filename, out, errOut)
			}
			return preprocessToFile(filename, out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().StringArrayVarP(&includePaths, "include", "I", nil, "Add directory to include search path")
	rootCmd.Flags().StringArrayVar(&systemPaths, "isystem", nil, "Add directory to system include search path")
	rootCmd.Flags().StringArrayVarP(&defineFlags, "define", "D", nil, "Define macro (NAME or NAME=VALUE)")
	rootCmd.Flags().StringArrayVarP(&undefineFlags, "undefine", "U", nil, "Undefine macro")
	rootCmd.Flags().BoolVarP(&preprocessOnly, "preprocess", "E", false, "Preprocess only, output to stdout")
	rootCmd.Flags().BoolVarP(&suppressWarnings, "no-warnings", "w", false, "Suppress #warning diagnostics")
	rootCmd.Flags().BoolVar(&verboseTokens, "verbose", false, "Dump each produced token to stderr")

	return rootCmd
}

// buildOptions creates cpp.Options from CLI flags, routing diagnostics
// to errOut
func buildOptions(errOut io.Writer) cpp.Options {
	return cpp.Options{
		Defines:          defineFlags,
		Undefines:        undefineFlags,
		IncludePaths:     includePaths,
		SystemPaths:      systemPaths,
		SuppressWarnings: suppressWarnings,
		Verbose:          verboseTokens,
		Sink:             writerSink{w: errOut},
	}
}

// writerSink prints diagnostics to the command's error stream
type writerSink struct {
	w io.Writer
}

func (s writerSink) Report(d cpp.Diagnostic) {
	fmt.Fprintln(s.w, d.String())
}

// preprocessTo preprocesses filename and writes the text to w (-E flag)
func preprocessTo(filename string, w, errOut io.Writer) error {
	pp := cpp.NewPreprocessor(buildOptions(errOut))
	if err := pp.Init(filename); err != nil {
		fmt.Fprintf(errOut, "cpp: error reading %s: %v\n", filename, err)
		return err
	}
	if err := pp.Preprocess(w); err != nil {
		return err
	}
	return nil
}

// preprocessToFile preprocesses filename into the matching .i file
func preprocessToFile(filename string, out, errOut io.Writer) error {
	outputFilename := preprocessedOutputFilename(filename)

	outFile, err := os.Create(outputFilename)
	if err != nil {
		fmt.Fprintf(errOut, "cpp: error creating %s: %v\n", outputFilename, err)
		return err
	}
	defer outFile.Close()

	if err := preprocessTo(filename, outFile, errOut); err != nil {
		return err
	}

	fmt.Fprintf(errOut, "cpp: wrote %s\n", outputFilename)
	return nil
}

// preprocessedOutputFilename returns the output filename:
// input.c -> input.i
func preprocessedOutputFilename(filename string) string {
	ext := ".c"
	if strings.HasSuffix(filename, ext) {
		return filename[:len(filename)-len(ext)] + ".i"
	}
	return filename + ".i"
}
