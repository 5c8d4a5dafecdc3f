package cpp

import (
	"os"
	"path/filepath"
	"strings"
)

// MaxIncludeDepth bounds include nesting, guarding against runaway
// circular includes that PushFile's cycle check alone cannot catch
// (e.g. a chain of distinct files that never repeats but never ends).
const MaxIncludeDepth = 200

// PathResolver locates the file an #include/#include_next names and
// tracks the bookkeeping (pragma-once, cycle detection, #include_next's
// resume point) the Directive Engine needs to act on it.
type PathResolver struct {
	UserPaths    []string // -I directories
	SystemPaths  []string // -isystem directories
	includeStack []string
	searchIndex  []int // per includeStack entry, the search-path slot that produced it
	includedOnce map[string]bool
}

func NewPathResolver() *PathResolver {
	return &PathResolver{includedOnce: make(map[string]bool)}
}

func (r *PathResolver) AddUserPath(path string)   { r.UserPaths = append(r.UserPaths, path) }
func (r *PathResolver) AddSystemPath(path string) { r.SystemPaths = append(r.SystemPaths, path) }

// DefaultSystemPaths returns the conventional system include
// directories that exist on this host. A standalone preprocessor has
// no compiler driver to interrogate for its private header locations;
// anything beyond these is the operator's job via -isystem.
func DefaultSystemPaths() []string {
	var paths []string
	for _, p := range []string{"/usr/local/include", "/usr/include"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			paths = append(paths, p)
		}
	}
	return paths
}

// searchList is the canonical ordered path list; the slot indices
// recorded for #include_next are positions in this list, with -1
// standing for "found next to the including file", so Resolve and
// ResolveNext agree on what an index means.
func (r *PathResolver) searchList() []string {
	return append(append([]string{}, r.UserPaths...), r.SystemPaths...)
}

// Resolve finds filename for a plain #include. The quote form looks in
// the including file's own directory first, then both forms walk the
// user and system paths in order.
func (r *PathResolver) Resolve(filename string, angled bool, currentFile string) (path string, index int, err error) {
	if !angled {
		if dir := filepath.Dir(currentFile); dir != "" {
			full := filepath.Join(dir, filename)
			if info, err := os.Stat(full); err == nil && !info.IsDir() {
				abs, aerr := filepath.Abs(full)
				if aerr != nil {
					abs = full
				}
				return abs, -1, nil
			}
		}
	}
	return searchFrom(r.searchList(), filename, 0, angled)
}

// ResolveNext implements #include_next: search resumes one slot past
// whichever search-path entry produced currentFile, per GCC's
// documented semantics, so a header can #include_next "itself" from a
// later directory in the list without recursing into its own copy.
func (r *PathResolver) ResolveNext(filename string, currentFile string) (path string, index int, err error) {
	from := 0
	for i, f := range r.includeStack {
		if f == currentFile && i < len(r.searchIndex) {
			from = r.searchIndex[i] + 1
		}
	}
	return searchFrom(r.searchList(), filename, from, true)
}

func searchFrom(list []string, filename string, from int, angled bool) (string, int, error) {
	for i := from; i < len(list); i++ {
		full := filepath.Join(list[i], filename)
		if info, err := os.Stat(full); err == nil && !info.IsDir() {
			abs, err := filepath.Abs(full)
			if err != nil {
				abs = full
			}
			return abs, i, nil
		}
	}
	kind := "quoted"
	if angled {
		kind = "angled"
	}
	return "", 0, &IncludeError{Filename: filename, Kind: kind}
}

// PushFile records path as now open, detecting include cycles, and
// remembers which search-path slot produced it for a later
// #include_next from within it.
func (r *PathResolver) PushFile(path string, slot int) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	for _, f := range r.includeStack {
		if f == abs {
			return &CircularIncludeError{Path: abs, Stack: r.includeStack}
		}
	}
	if len(r.includeStack) >= MaxIncludeDepth {
		return &CircularIncludeError{Path: abs, Stack: r.includeStack}
	}
	r.includeStack = append(r.includeStack, abs)
	r.searchIndex = append(r.searchIndex, slot)
	return nil
}

func (r *PathResolver) PopFile() {
	if len(r.includeStack) > 0 {
		r.includeStack = r.includeStack[:len(r.includeStack)-1]
		r.searchIndex = r.searchIndex[:len(r.searchIndex)-1]
	}
}

// FileClosed pops the include stack if path is its top entry. Files the
// resolver never saw (injected in-memory text) leave the stack alone.
func (r *PathResolver) FileClosed(path string) {
	if len(r.includeStack) == 0 {
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if r.includeStack[len(r.includeStack)-1] == abs {
		r.PopFile()
	}
}

func (r *PathResolver) IncludeDepth() int { return len(r.includeStack) }

func (r *PathResolver) MarkPragmaOnce(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	r.includedOnce[abs] = true
}

func (r *PathResolver) IsAlreadyIncluded(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return r.includedOnce[abs]
}

// IncludeError indicates that an include file was not found anywhere
// in the search list.
type IncludeError struct {
	Filename string
	Kind     string
}

func (e *IncludeError) Error() string {
	return "include file not found: " + e.Filename + " (" + e.Kind + ")"
}

// CircularIncludeError indicates a circular include dependency, or
// nesting past MaxIncludeDepth (the practical symptom of a cycle that
// never repeats a literal path, e.g. a chain of generated wrapper
// headers).
type CircularIncludeError struct {
	Path  string
	Stack []string
}

func (e *CircularIncludeError) Error() string {
	var sb strings.Builder
	sb.WriteString("circular include detected: ")
	sb.WriteString(e.Path)
	sb.WriteString("\ninclude stack:\n")
	for i, f := range e.Stack {
		sb.WriteString(strings.Repeat("  ", i+1))
		sb.WriteString(filepath.Base(f))
		sb.WriteString("\n")
	}
	return sb.String()
}
