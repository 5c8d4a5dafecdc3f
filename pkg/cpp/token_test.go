package cpp

import "testing"

func TestHideSetBasics(t *testing.T) {
	var h *HideSet
	if h.Has("A") {
		t.Error("nil hideset should contain nothing")
	}

	h1 := h.With("A")
	if !h1.Has("A") || h1.Has("B") {
		t.Error("With did not add exactly A")
	}

	h2 := h1.With("B")
	if !h2.Has("A") || !h2.Has("B") {
		t.Error("With lost a member")
	}
	if h1.Has("B") {
		t.Error("With mutated its receiver")
	}
}

func TestHideSetUnionIntersect(t *testing.T) {
	a := (*HideSet)(nil).With("A").With("B")
	b := (*HideSet)(nil).With("B").With("C")

	u := Union(a, b)
	for _, name := range []string{"A", "B", "C"} {
		if !u.Has(name) {
			t.Errorf("union missing %s", name)
		}
	}

	i := Intersect(a, b)
	if !i.Has("B") || i.Has("A") || i.Has("C") {
		t.Error("intersect wrong")
	}
	if Intersect(a, nil) != nil {
		t.Error("intersect with nil should be nil")
	}
	if Union(a, nil) != a || Union(nil, b) != b {
		t.Error("union with nil should return the other side")
	}
}

func TestTokenPaint(t *testing.T) {
	tok := Token{Kind: IDENT, Text: "A", IsExpandable: true}
	if tok.Painted("A") {
		t.Error("fresh token should be unpainted")
	}
	painted := tok.WithHide("A")
	if !painted.Painted("A") {
		t.Error("paint not applied")
	}
	if tok.Painted("A") {
		t.Error("painting must not mutate the original value")
	}
}

func TestTokenSeq(t *testing.T) {
	s := NewTokenSeq(4)
	s.PushBack(Token{Kind: IDENT, Text: "a"})
	s.PushBack(Token{Kind: IDENT, Text: "b"})

	if s.Len() != 2 {
		t.Fatalf("Len = %d", s.Len())
	}
	if s.At(1).Text != "b" {
		t.Errorf("At(1) = %q", s.At(1).Text)
	}

	s.Set(0, Token{Kind: IDENT, Text: "c"})
	if s.At(0).Text != "c" {
		t.Errorf("Set did not take")
	}

	back, ok := s.PopBack()
	if !ok || back.Text != "b" {
		t.Errorf("PopBack = %q ok=%v", back.Text, ok)
	}
	if s.Len() != 1 {
		t.Errorf("Len after pop = %d", s.Len())
	}

	s.AppendAll([]Token{{Text: "d"}, {Text: "e"}})
	if s.Len() != 3 {
		t.Errorf("Len after AppendAll = %d", s.Len())
	}

	s.Insert(1, []Token{{Text: "x"}, {Text: "y"}})
	want := []string{"c", "x", "y", "d", "e"}
	if s.Len() != len(want) {
		t.Fatalf("Len after Insert = %d", s.Len())
	}
	for i, w := range want {
		if s.At(i).Text != w {
			t.Errorf("At(%d) = %q, want %q", i, s.At(i).Text, w)
		}
	}
	s.Reset()
	if s.Len() != 0 {
		t.Errorf("Len after Reset = %d", s.Len())
	}
	if _, ok := s.PopBack(); ok {
		t.Error("PopBack on empty should report not ok")
	}
}

func TestNumTypeSuffix(t *testing.T) {
	tests := []struct {
		nt   NumType
		want string
	}{
		{TypeInt, ""},
		{TypeUInt, "u"},
		{TypeLong, "l"},
		{TypeULong, "ul"},
		{TypeLongLong, "ll"},
		{TypeULongLong, "ull"},
		{TypeFloat, "f"},
		{TypeDouble, ""},
		{TypeLongDouble, "L"},
	}
	for _, tt := range tests {
		if got := tt.nt.Suffix(); got != tt.want {
			t.Errorf("Suffix(%d) = %q, want %q", tt.nt, got, tt.want)
		}
	}
}
