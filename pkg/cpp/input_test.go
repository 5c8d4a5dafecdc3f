package cpp

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetPrepLineSplicesContinuations(t *testing.T) {
	r := NewInputReader()
	r.PushText("test.c", "int x = \\\n1 + \\\n2;\nnext\n")

	line, loc, ok := r.GetPrepLine()
	if !ok {
		t.Fatal("expected a line")
	}
	if line != "int x = 1 + 2;" {
		t.Errorf("spliced line = %q", line)
	}
	if loc.Line != 1 {
		t.Errorf("spliced line starts at line %d, want 1", loc.Line)
	}

	line, loc, ok = r.GetPrepLine()
	if !ok || line != "next" {
		t.Fatalf("second line = %q, ok=%v", line, ok)
	}
	if loc.Line != 4 {
		t.Errorf("second line number = %d, want 4", loc.Line)
	}
}

func TestBlockCommentBecomesOneSpace(t *testing.T) {
	r := NewInputReader()
	r.PushText("test.c", "a/* comment */b\n")
	line, _, _ := r.GetPrepLine()
	if line != "a b" {
		t.Errorf("line = %q, want %q", line, "a b")
	}
}

func TestBlockCommentAcrossLines(t *testing.T) {
	r := NewInputReader()
	r.PushText("test.c", "a /* open\nstill inside\nclose */ b\nc\n")

	line, _, _ := r.GetPrepLine()
	if line != "a  " {
		t.Errorf("first line = %q", line)
	}
	line, _, _ = r.GetPrepLine()
	if line != "" {
		t.Errorf("swallowed line = %q, want empty", line)
	}
	line, _, _ = r.GetPrepLine()
	if line != "  b" {
		t.Errorf("closing line = %q", line)
	}
	line, _, _ = r.GetPrepLine()
	if line != "c" {
		t.Errorf("after comment = %q", line)
	}
}

func TestCommentMarkersInsideStringsIgnored(t *testing.T) {
	r := NewInputReader()
	r.PushText("test.c", "s = \"/* not a comment */\"; // real\n")
	line, _, _ := r.GetPrepLine()
	if line != `s = "/* not a comment */"; ` {
		t.Errorf("line = %q", line)
	}
}

func TestUnterminatedComment(t *testing.T) {
	r := NewInputReader()
	r.PushText("test.c", "a /* never closed\n")
	r.GetPrepLine()
	if _, _, ok := r.GetPrepLine(); ok {
		t.Fatal("expected end of input")
	}
	if !r.UnterminatedComment() {
		t.Error("unterminated comment not flagged")
	}
}

func TestIncludeStack(t *testing.T) {
	r := NewInputReader()
	r.PushText("outer.c", "outer1\nouter2\n")

	line, _, _ := r.GetPrepLine()
	if line != "outer1" {
		t.Fatalf("line = %q", line)
	}

	r.PushText("inner.h", "inner1\n")
	if r.CurrentFile() != "inner.h" {
		t.Errorf("CurrentFile = %q", r.CurrentFile())
	}
	line, _, _ = r.GetPrepLine()
	if line != "inner1" {
		t.Fatalf("line = %q", line)
	}

	if _, _, ok := r.GetPrepLine(); ok {
		t.Fatal("inner file should be exhausted")
	}
	if popped := r.PopFile(); popped != "inner.h" {
		t.Errorf("PopFile = %q", popped)
	}

	line, _, _ = r.GetPrepLine()
	if line != "outer2" {
		t.Fatalf("resumed line = %q", line)
	}
}

func TestSetLineAndFile(t *testing.T) {
	r := NewInputReader()
	r.PushText("test.c", "a\nb\n")
	r.GetPrepLine()
	r.SetLine(100)
	r.SetFile("other.c")
	_, loc, _ := r.GetPrepLine()
	if loc.File != "other.c" || loc.Line != 100 {
		t.Errorf("loc after #line = %v", loc)
	}
}

func TestPushFileReadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.c")
	if err := os.WriteFile(path, []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewInputReader()
	if err := r.PushFile(path); err != nil {
		t.Fatal(err)
	}
	line, loc, ok := r.GetPrepLine()
	if !ok || line != "x" || loc.File != path {
		t.Errorf("line=%q loc=%v ok=%v", line, loc, ok)
	}

	if err := r.PushFile(filepath.Join(dir, "missing.h")); err == nil {
		t.Error("opening a missing file should fail")
	}
}
