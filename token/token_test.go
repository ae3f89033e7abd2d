package token

import (
	"testing"
)

func TestHidesetContains(t *testing.T) {
	hs := NewHideset("FOO").Union(NewHideset("BAR"))

	tests := []struct {
		name string
		want bool
	}{
		{"FOO", true},
		{"BAR", true},
		{"BAZ", false},
	}
	for _, tt := range tests {
		if got := hs.Contains(tt.name); got != tt.want {
			t.Errorf("Contains(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}

	var empty *Hideset
	if empty.Contains("FOO") {
		t.Errorf("empty hideset should contain nothing")
	}
}

func TestHidesetIntersection(t *testing.T) {
	hs1 := NewHideset("A").Union(NewHideset("B").Union(NewHideset("C")))
	hs2 := NewHideset("B").Union(NewHideset("C").Union(NewHideset("D")))

	got := hs1.Intersection(hs2)

	for _, name := range []string{"B", "C"} {
		if !got.Contains(name) {
			t.Errorf("intersection should contain %q", name)
		}
	}
	for _, name := range []string{"A", "D"} {
		if got.Contains(name) {
			t.Errorf("intersection should not contain %q", name)
		}
	}
}

func TestHidesetUnionDoesNotMutate(t *testing.T) {
	hs1 := NewHideset("A")
	hs1.Union(NewHideset("B"))

	if hs1.Contains("B") {
		t.Errorf("Union must not mutate its receiver")
	}
}

func makeStream(spellings ...string) *Token {
	head := Token{}
	cur := &head
	for _, s := range spellings {
		cur.Next = &Token{Kind: PUNCT, Loc: []byte(s)}
		cur = cur.Next
	}
	cur.Next = &Token{Kind: EOF}
	return head.Next
}

func TestAppend(t *testing.T) {
	tok1 := makeStream("a", "b")
	tok2 := makeStream("c")

	got := Append(tok1, tok2)

	var spellings []string
	for tok := got; !tok.IsEOF(); tok = tok.Next {
		spellings = append(spellings, tok.Text())
	}
	want := []string{"a", "b", "c"}
	if len(spellings) != len(want) {
		t.Fatalf("Append produced %v, want %v", spellings, want)
	}
	for i := range want {
		if spellings[i] != want[i] {
			t.Errorf("Append[%d] = %q, want %q", i, spellings[i], want[i])
		}
	}

	// The original first list must be left intact.
	if tok1.Next.Next.Kind != EOF {
		t.Errorf("Append must not splice the original list")
	}
}

func TestConsume(t *testing.T) {
	tok := makeStream(";", "x")

	rest, ok := Consume(tok, ";")
	if !ok || !rest.Is("x") {
		t.Errorf("Consume(\";\") = (%q, %v), want (\"x\", true)", rest.Text(), ok)
	}

	rest, ok = Consume(tok, ",")
	if ok || rest != tok {
		t.Errorf("Consume of a non-matching token must not advance")
	}
}
