package preprocessor

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"ncc/lexer"
	"ncc/token"
)

func preprocess(t *testing.T, src string) *token.Token {
	t.Helper()
	tok, err := preprocessErr(src, nil)
	if err != nil {
		t.Fatalf("Preprocess raised an error: %v", err)
	}
	return tok
}

func preprocessErr(src string, includePaths []string) (*token.Token, error) {
	file := &token.File{Name: "test.c", FileNo: 1, Contents: []byte(src)}
	tok, err := lexer.Tokenize(file)
	if err != nil {
		return nil, err
	}
	return New(includePaths).Preprocess(tok)
}

func spellings(tok *token.Token) []string {
	var out []string
	for ; tok != nil && !tok.IsEOF(); tok = tok.Next {
		out = append(out, tok.Text())
	}
	return out
}

func TestObjectLikeMacro(t *testing.T) {
	tok := preprocess(t, "#define N 42\nint x = N;\n")
	got := spellings(tok)
	want := []string{"int", "x", "=", "42", ";"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expansion = %v, want %v", got, want)
	}
}

func TestFunctionLikeMacro(t *testing.T) {
	tok := preprocess(t, "#define SQR(x) ((x)*(x))\nSQR(3+1)\n")
	got := strings.Join(spellings(tok), "")
	want := "((3+1)*(3+1))"
	if got != want {
		t.Errorf("expansion = %q, want %q", got, want)
	}
}

func TestFunctionLikeMacroWithoutArgsIsIdent(t *testing.T) {
	tok := preprocess(t, "#define F(x) x\nint F = 1;\n")
	got := spellings(tok)
	want := []string{"int", "F", "=", "1", ";"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("bare function-like macro name = %v, want %v", got, want)
	}
}

func TestHidesetStopsRecursion(t *testing.T) {
	// A macro must never re-expand inside its own expansion.
	tok := preprocess(t, "#define foo foo\nfoo\n")
	got := spellings(tok)
	want := []string{"foo"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("self-referential macro = %v, want %v", got, want)
	}
}

func TestMutuallyRecursiveMacros(t *testing.T) {
	tok := preprocess(t, "#define A B\n#define B A\nA\n")
	got := spellings(tok)
	want := []string{"A"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("mutually recursive macros = %v, want %v", got, want)
	}
}

func TestStringize(t *testing.T) {
	tok := preprocess(t, "#define STR(x) #x\nSTR(a  b)\n")
	if tok.Kind != token.STR {
		t.Fatalf("stringize should produce a string literal, got %v", tok.Kind)
	}
	if got := string(tok.Str); got != "a b\x00" {
		t.Errorf("stringized = %q, want %q", got, "a b\x00")
	}
}

func TestTokenPasting(t *testing.T) {
	tok := preprocess(t, "#define CAT(a,b) a##b\nCAT(foo,1)\n")
	got := spellings(tok)
	want := []string{"foo1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("pasted = %v, want %v", got, want)
	}
}

func TestPastingWithEmptyArgument(t *testing.T) {
	tok := preprocess(t, "#define CAT(a,b) a##b\nCAT(,x) CAT(y,)\n")
	got := spellings(tok)
	want := []string{"x", "y"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("empty-side paste = %v, want %v", got, want)
	}
}

func TestInvalidPasteIsAnError(t *testing.T) {
	if _, err := preprocessErr("#define CAT(a,b) a##b\nCAT(1,=)\n", nil); err == nil {
		t.Errorf("pasting an invalid token should be an error")
	}
}

func TestVarArgs(t *testing.T) {
	tok := preprocess(t, "#define CALL(f, ...) f(__VA_ARGS__)\nCALL(g, 1, 2)\n")
	got := strings.Join(spellings(tok), "")
	want := "g(1,2)"
	if got != want {
		t.Errorf("__VA_ARGS__ = %q, want %q", got, want)
	}
}

func TestConditionals(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			"if taken",
			"#if 1\na\n#else\nb\n#endif\n",
			[]string{"a"},
		},
		{
			"if not taken",
			"#if 0\na\n#else\nb\n#endif\n",
			[]string{"b"},
		},
		{
			"elif",
			"#if 0\na\n#elif 1\nb\n#else\nc\n#endif\n",
			[]string{"b"},
		},
		{
			"nested",
			"#if 1\n#if 0\na\n#endif\nb\n#endif\n",
			[]string{"b"},
		},
		{
			"defined operator",
			"#define A 2\n#if defined(A) && A==2\nyes\n#else\nno\n#endif\n",
			[]string{"yes"},
		},
		{
			"defined without parens",
			"#define A 1\n#if defined A\nyes\n#endif\n",
			[]string{"yes"},
		},
		{
			"unknown identifiers are zero",
			"#if FOO\na\n#else\nb\n#endif\n",
			[]string{"b"},
		},
		{
			"ifdef",
			"#define X\n#ifdef X\na\n#endif\n#ifndef X\nb\n#endif\n",
			[]string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := spellings(preprocess(t, tt.src))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("tokens = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUndef(t *testing.T) {
	tok := preprocess(t, "#define N 1\n#undef N\nN\n")
	got := spellings(tok)
	want := []string{"N"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("undefined macro = %v, want %v", got, want)
	}
}

func TestUnterminatedConditionalIsAnError(t *testing.T) {
	if _, err := preprocessErr("#if 1\na\n", nil); err == nil {
		t.Errorf("an unterminated #if should be an error")
	}
}

func TestErrorDirective(t *testing.T) {
	_, err := preprocessErr("#error something went wrong\n", nil)
	if err == nil {
		t.Fatalf("#error should abort preprocessing")
	}
	if !strings.Contains(err.Error(), "something went wrong") {
		t.Errorf("diagnostic %q should carry the directive text", err)
	}
}

func TestPragmaIsIgnored(t *testing.T) {
	tok := preprocess(t, "#pragma once\nx\n")
	got := spellings(tok)
	want := []string{"x"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tokens = %v, want %v", got, want)
	}
}

func TestNullDirective(t *testing.T) {
	tok := preprocess(t, "#\nx\n")
	got := spellings(tok)
	want := []string{"x"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tokens = %v, want %v", got, want)
	}
}

func TestLineMacro(t *testing.T) {
	tok := preprocess(t, "\n\n__LINE__\n")
	if tok.Kind != token.NUM || tok.Val != 3 {
		t.Errorf("__LINE__ = (%v, %d), want (NUM, 3)", tok.Kind, tok.Val)
	}
}

func TestFileMacro(t *testing.T) {
	tok := preprocess(t, "__FILE__\n")
	if tok.Kind != token.STR || string(tok.Str) != "test.c\x00" {
		t.Errorf("__FILE__ = (%v, %q), want the file name", tok.Kind, tok.Str)
	}
}

func TestPredefinedMacros(t *testing.T) {
	tok := preprocess(t, "#if __STDC__ && __x86_64__ && _LP64\nok\n#endif\n")
	got := spellings(tok)
	want := []string{"ok"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("predefines = %v, want %v", got, want)
	}
}

func TestAdjacentStringConcatenation(t *testing.T) {
	tok := preprocess(t, "\"ab\" \"cd\"\n")
	if tok.Kind != token.STR {
		t.Fatalf("kind = %v, want STR", tok.Kind)
	}
	if got := string(tok.Str); got != "abcd\x00" {
		t.Errorf("joined literal = %q, want %q", got, "abcd\x00")
	}
	if !tok.Next.IsEOF() {
		t.Errorf("adjacent literals should merge into a single token")
	}
}

func TestInclude(t *testing.T) {
	dir := t.TempDir()
	header := filepath.Join(dir, "defs.h")
	if err := os.WriteFile(header, []byte("#define FROM_HEADER 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		src  string
	}{
		{"quoted", "#include \"" + header + "\"\nFROM_HEADER\n"},
		{"angle bracket", "#include <defs.h>\nFROM_HEADER\n"},
		{"macro form", "#define H <defs.h>\n#include H\nFROM_HEADER\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := preprocessErr(tt.src, []string{dir})
			if err != nil {
				t.Fatalf("Preprocess raised an error: %v", err)
			}
			got := spellings(tok)
			want := []string{"7"}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("tokens = %v, want %v", got, want)
			}
		})
	}
}

func TestIncludeNotFoundIsAnError(t *testing.T) {
	if _, err := preprocessErr("#include <no/such/file.h>\n", nil); err == nil {
		t.Errorf("a missing include should be an error")
	}
}

func TestDriverDefines(t *testing.T) {
	file := &token.File{Name: "test.c", FileNo: 1, Contents: []byte("#if A==2\nyes\n#endif\n")}
	tok, err := lexer.Tokenize(file)
	if err != nil {
		t.Fatal(err)
	}

	pp := New(nil)
	pp.Define("A", "2")
	out, err := pp.Preprocess(tok)
	if err != nil {
		t.Fatalf("Preprocess raised an error: %v", err)
	}
	got := spellings(out)
	want := []string{"yes"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tokens = %v, want %v", got, want)
	}
}

func TestPrintTokens(t *testing.T) {
	tok := preprocess(t, "#define N 42\nint x = N;\nint y;\n")

	var buf bytes.Buffer
	PrintTokens(&buf, tok)

	want := "int x = 42;\nint y;\n"
	if got := buf.String(); got != want {
		t.Errorf("PrintTokens = %q, want %q", got, want)
	}
}
