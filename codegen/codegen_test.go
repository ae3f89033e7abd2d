package codegen

import (
	"bytes"
	"strings"
	"testing"

	"ncc/lexer"
	"ncc/parser"
	"ncc/preprocessor"
	"ncc/token"
)

// compile runs the whole back half of the pipeline on src and returns
// the emitted assembly.
func compile(t *testing.T, src string, opts Options) string {
	t.Helper()

	file := &token.File{Name: "test.c", FileNo: 1, Contents: []byte(src)}
	tok, err := lexer.Tokenize(file)
	if err != nil {
		t.Fatalf("Tokenize raised an error: %v", err)
	}
	tok, err = preprocessor.New(nil).Preprocess(tok)
	if err != nil {
		t.Fatalf("Preprocess raised an error: %v", err)
	}

	prog, err := parser.Parse(tok)
	if err != nil {
		t.Fatalf("Parse raised an error: %v", err)
	}
	AssignLVarOffsets(prog)

	var buf bytes.Buffer
	if err := Generate(&buf, prog, []*token.File{file}, opts); err != nil {
		t.Fatalf("Generate raised an error: %v", err)
	}
	return buf.String()
}

func wantContains(t *testing.T, asm string, wants ...string) {
	t.Helper()
	for _, w := range wants {
		if !strings.Contains(asm, w) {
			t.Errorf("assembly should contain %q\n%s", w, asm)
		}
	}
}

func TestArithmetic(t *testing.T) {
	asm := compile(t, "int main() { return 1+2*3; }", Options{})

	wantContains(t, asm,
		".intel_syntax noprefix",
		".file 1 \"test.c\"",
		".globl main",
		"main:",
		"  push rbp",
		"  mov rbp, rsp",
		"  mov [rbp-8], r12",
		"  mov [rbp-32], r15",
		"  imul",
		"  add",
		"  mov rax, r10",
		".L.return.main:",
		"  ret",
	)
}

func TestComparisonLowersToSetcc(t *testing.T) {
	asm := compile(t, "int main() { return 3 < 5; }", Options{})
	wantContains(t, asm, "  cmp r10, r11", "  setl al", "  movzx r10, al")
}

func TestUnsignedComparison(t *testing.T) {
	asm := compile(t, "int main() { unsigned int a = 1; return a < 2u; }", Options{})
	wantContains(t, asm, "  setb al")
}

func TestDivisionUsesIdiv(t *testing.T) {
	asm := compile(t, "int main() { return 10 / 3 + 10 % 3; }", Options{})
	wantContains(t, asm, "  cqo", "  idiv", "  mov r11, rdx")
}

func TestIfElse(t *testing.T) {
	asm := compile(t, "int main() { if (1) return 2; else return 3; }", Options{})
	wantContains(t, asm, "  je .L.else.", ".L.else.", ".L.end.")
}

func TestForLoop(t *testing.T) {
	src := "int main() { int i; int s = 0; for (i = 0; i < 10; i = i + 1) s = s + i; return s; }"
	asm := compile(t, src, Options{})
	wantContains(t, asm, ".L.begin.", ".L.continue.", ".L.break.", "  jmp .L.begin.")
}

func TestWhileBreakContinue(t *testing.T) {
	src := "int main() { int i = 0; while (1) { i = i + 1; if (i < 5) continue; break; } return i; }"
	asm := compile(t, src, Options{})
	wantContains(t, asm, "  jmp .L.break.", "  jmp .L.continue.")
}

func TestSwitch(t *testing.T) {
	src := `
int main() {
  switch (2) {
  case 1: return 10;
  case 2: return 20;
  default: return 30;
  }
}
`
	asm := compile(t, src, Options{})
	wantContains(t, asm, "  cmp rax, 1", "  cmp rax, 2", "  je .L.case.", ".L.default.")
}

func TestGotoAndLabels(t *testing.T) {
	src := "int main() { goto done; done: return 1; }"
	asm := compile(t, src, Options{})
	wantContains(t, asm, "  jmp .L.label.main.done", ".L.label.main.done:")
}

func TestFrameLayout(t *testing.T) {
	file := &token.File{Name: "t.c", FileNo: 1, Contents: []byte(
		"int main() { char c; int i; long l; char buf[13]; return 0; }")}
	tok, err := lexer.Tokenize(file)
	if err != nil {
		t.Fatal(err)
	}
	if err := lexer.ConvertPPTokens(tok); err != nil {
		t.Fatal(err)
	}
	prog, err := parser.Parse(tok)
	if err != nil {
		t.Fatal(err)
	}
	AssignLVarOffsets(prog)

	fn := prog.Funcs[0]
	if fn.StackSize%16 != 0 {
		t.Errorf("stack size %d is not a multiple of 16", fn.StackSize)
	}
	for _, v := range fn.Locals {
		if v.Offset%v.Align != 0 {
			t.Errorf("local %q at offset %d violates alignment %d", v.Name, v.Offset, v.Align)
		}
		if v.Offset < 32 {
			t.Errorf("local %q overlaps the callee-saved area", v.Name)
		}
	}
}

func TestFunctionCall(t *testing.T) {
	src := "int add(int a, int b) { return a + b; } int main() { return add(1, 2); }"
	asm := compile(t, src, Options{})
	wantContains(t, asm,
		"  push r10",
		"  push r11",
		"  pop rdi",
		"  pop rsi",
		"  mov al, 0",
		"  call add",
		"  pop r11",
		"  pop r10",
	)
}

func TestParamsSpillToFrame(t *testing.T) {
	asm := compile(t, "int f(int a, long b) { return a; }", Options{})
	wantContains(t, asm, "], edi", "], rsi")
}

func TestGlobalsAndData(t *testing.T) {
	src := `int g = 7; int z; char *s = "ab" "cd"; int main() { return s[3]; }`
	asm := compile(t, src, Options{})
	wantContains(t, asm,
		".data",
		".globl g",
		"g:",
		"  .byte 7",
		".bss",
		"z:",
		"  .zero 4",
		".L.data.0:",
		"  .byte 97",  // 'a'
		"  .byte 100", // 'd' - the adjacent literals were merged into one
		"  .quad .L.data.0+0",
	)
}

func TestStaticGlobalIsNotExported(t *testing.T) {
	asm := compile(t, "static int hidden = 1; int main() { return hidden; }", Options{})
	if strings.Contains(asm, ".globl hidden") {
		t.Errorf("a static global must not be exported:\n%s", asm)
	}
}

func TestFloatArithmetic(t *testing.T) {
	asm := compile(t, "double f(double a, double b) { return a + b * 2.0; }", Options{})
	wantContains(t, asm, "  addsd", "  mulsd", "  movsd xmm0, xmm8")
}

func TestIntToFloatCast(t *testing.T) {
	asm := compile(t, "double f(int x) { return (double)x; }", Options{})
	wantContains(t, asm, "  cvtsi2sd")
}

func TestDeepExpressionSpills(t *testing.T) {
	// Right-nested additions exceed the six register slots; the
	// generator must spill to the machine stack instead of failing.
	src := "int main() { return 1+(2+(3+(4+(5+(6+(7+(8+9))))))); }"
	asm := compile(t, src, Options{})
	wantContains(t, asm, "  push r10", "  pop r10", "  push r11", "  pop r11")
}

func TestFPIC(t *testing.T) {
	asm := compile(t, "int f(); int g; int main() { return g + f(); }", Options{FPIC: true})
	wantContains(t, asm, "@GOTPCREL", "  call f@PLT")
}

func TestVariadicSaveArea(t *testing.T) {
	asm := compile(t, "int f(int a, ...) { return a; }", Options{})
	wantContains(t, asm,
		"  mov [rbp-128], rdi",
		"  mov [rbp-88], r9",
		"  movsd [rbp-80], xmm0",
		"  movsd [rbp-40], xmm5",
	)
}

func TestLocDirectives(t *testing.T) {
	asm := compile(t, "int main() {\nreturn 3;\n}", Options{})
	wantContains(t, asm, "  .loc 1 2")
}

func TestStructMemberAccess(t *testing.T) {
	src := "struct P { char a; int b; }; int main() { struct P p; p.b = 5; return p.b; }"
	asm := compile(t, src, Options{})
	wantContains(t, asm, "  add r10, 4", "  movsxd")
}

func TestStructAssignmentCopiesBytes(t *testing.T) {
	src := "struct P { int a; int b; }; int main() { struct P x; struct P y; x.a = 1; y = x; return y.a; }"
	asm := compile(t, src, Options{})
	wantContains(t, asm, "  mov al, byte ptr [r10+0]", "  mov byte ptr [r11+7], al")
}

func TestBitfieldAccess(t *testing.T) {
	src := "struct B { int a : 3; int b : 4; }; int main() { struct B x; x.b = 5; return x.b; }"
	asm := compile(t, src, Options{})
	wantContains(t, asm, "  shl rax, 3", "  shl r10, 57", "  sar r10, 60")
}

func TestStrayBreakIsAnError(t *testing.T) {
	file := &token.File{Name: "t.c", FileNo: 1, Contents: []byte("int main() { break; }")}
	tok, _ := lexer.Tokenize(file)
	_ = lexer.ConvertPPTokens(tok)
	prog, err := parser.Parse(tok)
	if err != nil {
		t.Fatal(err)
	}
	AssignLVarOffsets(prog)

	var buf bytes.Buffer
	if err := Generate(&buf, prog, nil, Options{}); err == nil {
		t.Errorf("a break outside a loop should be an error")
	}
}
