package cpp

import "testing"

func lexAll(input string) []Token {
	lx := NewLexer(input, SourceLoc{File: "test.c", Line: 1}, NewStringTable())
	var toks []Token
	for {
		t := lx.Next()
		if t.Kind == EOF {
			return toks
		}
		toks = append(toks, t)
	}
}

func TestNextToken(t *testing.T) {
	input := `int main() { return x + 42; }`

	tests := []struct {
		expectedKind TokenKind
		expectedText string
	}{
		{KEYWORD, "int"},
		{IDENT, "main"},
		{PUNCT, "("},
		{PUNCT, ")"},
		{PUNCT, "{"},
		{KEYWORD, "return"},
		{IDENT, "x"},
		{PUNCT, "+"},
		{PP_NUMBER, "42"},
		{PUNCT, ";"},
		{PUNCT, "}"},
	}

	toks := lexAll(input)
	if len(toks) != len(tests) {
		t.Fatalf("token count wrong. expected=%d, got=%d", len(tests), len(toks))
	}
	for i, tt := range tests {
		if toks[i].Kind != tt.expectedKind {
			t.Fatalf("tests[%d] - kind wrong. expected=%v, got=%v", i, tt.expectedKind, toks[i].Kind)
		}
		if toks[i].Text != tt.expectedText {
			t.Fatalf("tests[%d] - text wrong. expected=%q, got=%q", i, tt.expectedText, toks[i].Text)
		}
	}
}

func TestPunctuatorsMaximalMunch(t *testing.T) {
	input := `<<= >>= ... -> ++ -- << >> <= >= == != && || *= /= %= += -= &= ^= |= < > = ! ~ ^ , ? :`

	expected := []string{
		"<<=", ">>=", "...", "->", "++", "--", "<<", ">>", "<=", ">=",
		"==", "!=", "&&", "||", "*=", "/=", "%=", "+=", "-=", "&=",
		"^=", "|=", "<", ">", "=", "!", "~", "^", ",", "?", ":",
	}

	toks := lexAll(input)
	if len(toks) != len(expected) {
		t.Fatalf("token count wrong. expected=%d, got=%d", len(expected), len(toks))
	}
	for i, want := range expected {
		if toks[i].Kind != PUNCT || toks[i].Text != want {
			t.Fatalf("tests[%d] - punctuator wrong. expected=%q, got=%q (%v)", i, want, toks[i].Text, toks[i].Kind)
		}
	}
}

func TestPreprocessingNumbers(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"42", "42"},
		{"0x1F", "0x1F"},
		{"0b101", "0b101"},
		{"017", "017"},
		{"1.5", "1.5"},
		{"1.5e+3", "1.5e+3"},
		{"1E-9", "1E-9"},
		{"0x1.8p3", "0x1.8p3"},
		{"0x1p-4", "0x1p-4"},
		{"42ULL", "42ULL"},
		{"3.14f", "3.14f"},
		{".5", ".5"},
	}

	for _, tt := range tests {
		toks := lexAll(tt.input)
		if len(toks) != 1 {
			t.Fatalf("%q - expected one token, got %d", tt.input, len(toks))
		}
		if toks[0].Kind != PP_NUMBER || toks[0].Text != tt.want {
			t.Errorf("%q - got %v %q", tt.input, toks[0].Kind, toks[0].Text)
		}
	}
}

func TestStringAndCharLiterals(t *testing.T) {
	tests := []struct {
		input string
		kind  TokenKind
		want  string
	}{
		{`"hello"`, PP_STRING, `"hello"`},
		{`"a\"b"`, PP_STRING, `"a\"b"`},
		{`L"wide"`, PP_STRING, `L"wide"`},
		{`u8"utf"`, PP_STRING, `u8"utf"`},
		{`'a'`, PP_CHAR, `'a'`},
		{`'\n'`, PP_CHAR, `'\n'`},
		{`L'w'`, PP_CHAR, `L'w'`},
		{`'\''`, PP_CHAR, `'\''`},
	}

	for _, tt := range tests {
		toks := lexAll(tt.input)
		if len(toks) != 1 {
			t.Fatalf("%q - expected one token, got %d", tt.input, len(toks))
		}
		if toks[0].Kind != tt.kind || toks[0].Text != tt.want {
			t.Errorf("%q - got %v %q, want %v %q", tt.input, toks[0].Kind, toks[0].Text, tt.kind, tt.want)
		}
	}
}

func TestPrefixedIdentifierIsNotString(t *testing.T) {
	toks := lexAll("Label u8x")
	if len(toks) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(toks))
	}
	for i, want := range []string{"Label", "u8x"} {
		if toks[i].Kind != IDENT || toks[i].Text != want {
			t.Errorf("token %d: got %v %q", i, toks[i].Kind, toks[i].Text)
		}
	}
}

func TestLeadingWhitespaceCount(t *testing.T) {
	toks := lexAll("a   b")
	if len(toks) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(toks))
	}
	if toks[0].LeadingWS != 0 {
		t.Errorf("first token LeadingWS = %d, want 0", toks[0].LeadingWS)
	}
	if toks[1].LeadingWS != 3 {
		t.Errorf("second token LeadingWS = %d, want 3", toks[1].LeadingWS)
	}
}

func TestHashAtLineStart(t *testing.T) {
	toks := lexAll("#define X 1")
	if toks[0].Kind != HASH {
		t.Fatalf("line-leading '#' kind = %v, want HASH", toks[0].Kind)
	}
	// A '#' later on the line is an ordinary punctuator; only '##' keeps
	// a dedicated kind everywhere.
	toks = lexAll("a # b ## c")
	kinds := []TokenKind{IDENT, PUNCT, IDENT, HASHHASH, IDENT}
	for i, k := range kinds {
		if toks[i].Kind != k {
			t.Errorf("token %d kind = %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestScanHeaderName(t *testing.T) {
	lx := NewLexer("<stdio.h>", SourceLoc{}, nil)
	hdr, ok := lx.ScanHeaderName()
	if !ok || hdr.Kind != HEADER_NAME || hdr.Text != "<stdio.h>" {
		t.Fatalf("angle header: got ok=%v %v %q", ok, hdr.Kind, hdr.Text)
	}

	lx = NewLexer(`"local.h"`, SourceLoc{}, nil)
	hdr, ok = lx.ScanHeaderName()
	if !ok || hdr.Kind != HEADER_NAME || hdr.Text != `"local.h"` {
		t.Fatalf("quoted header: got ok=%v %v %q", ok, hdr.Kind, hdr.Text)
	}

	lx = NewLexer("MACRO_NAME", SourceLoc{}, nil)
	if _, ok = lx.ScanHeaderName(); ok {
		t.Fatal("identifier should not scan as a header name")
	}
}

func TestLineCommentsCountAsWhitespace(t *testing.T) {
	toks := lexAll("a // trailing comment")
	if len(toks) != 1 || toks[0].Text != "a" {
		t.Fatalf("expected just 'a', got %d tokens", len(toks))
	}

	toks = lexAll("a /* mid */ b")
	if len(toks) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(toks))
	}
	if toks[1].LeadingWS == 0 {
		t.Error("token after a block comment should carry whitespace")
	}
}
