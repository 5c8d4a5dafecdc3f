package cpp

import (
	"os"
	"path/filepath"
	"testing"
)

func writeHeader(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestQuotedIncludeFindsSiblingFirst(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()
	writeHeader(t, dir, "h.h", "sibling\n")
	writeHeader(t, other, "h.h", "elsewhere\n")
	main := writeHeader(t, dir, "main.c", "")

	r := NewPathResolver()
	r.AddUserPath(other)

	path, idx, err := r.Resolve("h.h", false, main)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(path) != dir || idx != -1 {
		t.Errorf("path=%q idx=%d, want sibling at -1", path, idx)
	}
}

func TestAngledIncludeSkipsSibling(t *testing.T) {
	dir := t.TempDir()
	sys := t.TempDir()
	writeHeader(t, dir, "h.h", "sibling\n")
	writeHeader(t, sys, "h.h", "system\n")
	main := writeHeader(t, dir, "main.c", "")

	r := NewPathResolver()
	r.AddSystemPath(sys)

	path, _, err := r.Resolve("h.h", true, main)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(path) != sys {
		t.Errorf("angled include resolved to %q, want the system copy", path)
	}
}

func TestUserPathsBeforeSystemPaths(t *testing.T) {
	user := t.TempDir()
	sys := t.TempDir()
	writeHeader(t, user, "h.h", "user\n")
	writeHeader(t, sys, "h.h", "system\n")

	r := NewPathResolver()
	r.AddUserPath(user)
	r.AddSystemPath(sys)

	path, idx, err := r.Resolve("h.h", true, "")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(path) != user || idx != 0 {
		t.Errorf("path=%q idx=%d", path, idx)
	}
}

func TestResolveNotFound(t *testing.T) {
	r := NewPathResolver()
	r.AddUserPath(t.TempDir())
	_, _, err := r.Resolve("no-such-header.h", true, "")
	if err == nil {
		t.Fatal("expected not-found error")
	}
	if _, ok := err.(*IncludeError); !ok {
		t.Errorf("err = %T", err)
	}
}

func TestResolveNextSkipsEarlierSlots(t *testing.T) {
	d1 := t.TempDir()
	d2 := t.TempDir()
	first := writeHeader(t, d1, "wrap.h", "first\n")
	writeHeader(t, d2, "wrap.h", "second\n")

	r := NewPathResolver()
	r.AddUserPath(d1)
	r.AddUserPath(d2)

	path, idx, err := r.Resolve("wrap.h", true, "")
	if err != nil || idx != 0 {
		t.Fatalf("initial resolve: %q %d %v", path, idx, err)
	}
	if err := r.PushFile(path, idx); err != nil {
		t.Fatal(err)
	}

	abs, _ := filepath.Abs(first)
	next, nidx, err := r.ResolveNext("wrap.h", abs)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(next) != d2 || nidx != 1 {
		t.Errorf("include_next resolved %q idx=%d, want the copy in %q", next, nidx, d2)
	}
}

func TestCircularIncludeDetected(t *testing.T) {
	dir := t.TempDir()
	a := writeHeader(t, dir, "a.h", "")

	r := NewPathResolver()
	if err := r.PushFile(a, 0); err != nil {
		t.Fatal(err)
	}
	err := r.PushFile(a, 0)
	if err == nil {
		t.Fatal("expected circular include error")
	}
	if _, ok := err.(*CircularIncludeError); !ok {
		t.Errorf("err = %T", err)
	}

	r.PopFile()
	if err := r.PushFile(a, 0); err != nil {
		t.Errorf("re-including after pop should work: %v", err)
	}
}

func TestFileClosedPopsMatchingTop(t *testing.T) {
	dir := t.TempDir()
	a := writeHeader(t, dir, "a.h", "")
	b := writeHeader(t, dir, "b.h", "")

	r := NewPathResolver()
	if err := r.PushFile(a, 0); err != nil {
		t.Fatal(err)
	}
	if err := r.PushFile(b, 0); err != nil {
		t.Fatal(err)
	}

	r.FileClosed("<command-line>") // not on the stack: no effect
	if r.IncludeDepth() != 2 {
		t.Fatalf("depth = %d", r.IncludeDepth())
	}
	r.FileClosed(b)
	if r.IncludeDepth() != 1 {
		t.Errorf("depth after close = %d", r.IncludeDepth())
	}
}

func TestPragmaOnceTracking(t *testing.T) {
	dir := t.TempDir()
	h := writeHeader(t, dir, "once.h", "")

	r := NewPathResolver()
	if r.IsAlreadyIncluded(h) {
		t.Fatal("fresh file marked included")
	}
	r.MarkPragmaOnce(h)
	if !r.IsAlreadyIncluded(h) {
		t.Error("pragma once not recorded")
	}
}

func TestDefaultSystemPathsExist(t *testing.T) {
	for _, p := range DefaultSystemPaths() {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			t.Errorf("%q reported as a default system path but is not a directory", p)
		}
	}
}
