package parser

import (
	"reflect"
	"testing"

	"ncc/ast"
	"ncc/lexer"
	"ncc/token"
	"ncc/types"
)

// tokenizeSrc prepares a token stream the way the driver would hand it
// to the parser: tokenized and with pp-numbers converted. Directives
// are not needed by these tests, so the preprocessor is skipped.
func tokenizeSrc(t *testing.T, src string) *token.Token {
	t.Helper()
	file := &token.File{Name: "test.c", FileNo: 1, Contents: []byte(src)}
	tok, err := lexer.Tokenize(file)
	if err != nil {
		t.Fatalf("Tokenize raised an error: %v", err)
	}
	if err := lexer.ConvertPPTokens(tok); err != nil {
		t.Fatalf("ConvertPPTokens raised an error: %v", err)
	}
	return tok
}

func parseProgram(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := Parse(tokenizeSrc(t, src))
	if err != nil {
		t.Fatalf("Parse(%q) raised an error: %v", src, err)
	}
	return prog
}

func findGlobal(t *testing.T, prog *ast.Program, name string) *ast.Var {
	t.Helper()
	for _, v := range prog.Globals {
		if v.Name == name {
			return v
		}
	}
	t.Fatalf("global %q not found", name)
	return nil
}

func TestConstExpr(t *testing.T) {
	tests := []struct {
		src  string
		want int64
	}{
		{"1+2*3", 7},
		{"(1+2)*3", 9},
		{"10/3", 3},
		{"10%3", 1},
		{"1<<4", 16},
		{"256>>4", 16},
		{"7&3", 3},
		{"4|1", 5},
		{"6^3", 5},
		{"1<2", 1},
		{"2<=1", 0},
		{"3==3", 1},
		{"3!=3", 0},
		{"1 ? 10 : 20", 10},
		{"0 ? 10 : 20", 20},
		{"!0", 1},
		{"~0", -1},
		{"-5+3", -2},
		{"1 && 2", 1},
		{"1 && 0", 0},
		{"0 || 3", 1},
		{"sizeof(long)", 8},
		{"sizeof(int)", 4},
		{"sizeof(char*)", 8},
		{"sizeof(int[10])", 40},
		{"(long)3", 3},
		{"(char)257", 1},
		{"(unsigned char)-1", 255},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			val, rest, err := ConstExpr(tokenizeSrc(t, tt.src))
			if err != nil {
				t.Fatalf("ConstExpr(%q) raised an error: %v", tt.src, err)
			}
			if !rest.IsEOF() {
				t.Fatalf("ConstExpr(%q) left tokens behind", tt.src)
			}
			if val != tt.want {
				t.Errorf("ConstExpr(%q) = %d, want %d", tt.src, val, tt.want)
			}
		})
	}
}

func TestNonConstantIsAnError(t *testing.T) {
	if _, _, err := ConstExpr(tokenizeSrc(t, "x+1")); err == nil {
		t.Errorf("a free identifier should not fold as a constant")
	}
}

func TestStructLayout(t *testing.T) {
	prog := parseProgram(t, "struct P {char a; int b;} p;")
	ty := findGlobal(t, prog, "p").Ty

	if ty.Size != 8 {
		t.Errorf("struct size = %d, want 8", ty.Size)
	}
	if ty.Align != 4 {
		t.Errorf("struct align = %d, want 4", ty.Align)
	}

	var offs []int
	for mem := ty.Members; mem != nil; mem = mem.Next {
		offs = append(offs, mem.Off)
	}
	if !reflect.DeepEqual(offs, []int{0, 4}) {
		t.Errorf("member offsets = %v, want [0 4]", offs)
	}

	// The struct invariant: size is a multiple of alignment and the
	// alignment is the max member alignment.
	if ty.Size%ty.Align != 0 {
		t.Errorf("size %d is not a multiple of align %d", ty.Size, ty.Align)
	}
}

func TestUnionLayout(t *testing.T) {
	prog := parseProgram(t, "union U {char a[3]; int b; short c;} u;")
	ty := findGlobal(t, prog, "u").Ty

	if ty.Size != 4 || ty.Align != 4 {
		t.Errorf("union size/align = %d/%d, want 4/4", ty.Size, ty.Align)
	}
	for mem := ty.Members; mem != nil; mem = mem.Next {
		if mem.Off != 0 {
			t.Errorf("union member at offset %d, want 0", mem.Off)
		}
	}
}

func TestBitfieldLayout(t *testing.T) {
	prog := parseProgram(t, "struct B {int a : 3; int b : 4; int c : 30;} x;")
	ty := findGlobal(t, prog, "x").Ty

	var got []struct{ off, bitOff, width int }
	for mem := ty.Members; mem != nil; mem = mem.Next {
		got = append(got, struct{ off, bitOff, width int }{mem.Off, mem.BitOffset, mem.BitWidth})
	}

	// a and b pack into the first unit; c would straddle it and moves
	// to the next one.
	want := []struct{ off, bitOff, width int }{
		{0, 0, 3},
		{0, 3, 4},
		{4, 0, 30},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("bitfield layout = %v, want %v", got, want)
	}
	if ty.Size != 8 {
		t.Errorf("struct size = %d, want 8", ty.Size)
	}
}

func TestEnum(t *testing.T) {
	src := `
enum E { A, B, C = 10, D };
int main() { return C; }
`
	prog := parseProgram(t, src)

	ret := prog.Funcs[0].Body.Body
	if ret.Kind != ast.RETURN {
		t.Fatalf("expected a return statement, got %v", ret.Kind)
	}
	val := ret.Lhs
	for val.Kind == ast.CAST {
		val = val.Lhs
	}
	if val.Val != 10 {
		t.Errorf("enum constant C should fold to 10, got %d", val.Val)
	}
}

func TestTypedef(t *testing.T) {
	prog := parseProgram(t, "typedef long T; T x;")
	v := findGlobal(t, prog, "x")
	if v.Ty.Kind != types.LONG {
		t.Errorf("typedef-declared variable has kind %v, want long", v.Ty.Kind)
	}
}

func TestDeclaratorShapes(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		check func(*testing.T, *types.Type)
	}{
		{
			"pointer to function",
			"int (*fp)(int);",
			func(t *testing.T, ty *types.Type) {
				if ty.Kind != types.PTR || ty.Base.Kind != types.FUNC {
					t.Errorf("kind chain = %v->%v, want ptr->func", ty.Kind, ty.Base.Kind)
				}
			},
		},
		{
			"array of pointers",
			"char *a[4];",
			func(t *testing.T, ty *types.Type) {
				if ty.Kind != types.ARRAY || ty.Base.Kind != types.PTR || ty.Size != 32 {
					t.Errorf("char *a[4] parsed as %v size %d", ty.Kind, ty.Size)
				}
			},
		},
		{
			"pointer to array",
			"char (*pa)[4];",
			func(t *testing.T, ty *types.Type) {
				if ty.Kind != types.PTR || ty.Base.Kind != types.ARRAY || ty.Base.Size != 4 {
					t.Errorf("char (*pa)[4] parsed wrong")
				}
			},
		},
		{
			"multi-dimensional array",
			"int m[2][3];",
			func(t *testing.T, ty *types.Type) {
				if ty.Size != 24 || ty.Base.Size != 12 {
					t.Errorf("int m[2][3] sizes = %d/%d, want 24/12", ty.Size, ty.Base.Size)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := parseProgram(t, tt.src)
			if len(prog.Globals) == 0 {
				t.Fatalf("no global parsed")
			}
			tt.check(t, prog.Globals[len(prog.Globals)-1].Ty)
		})
	}
}

func TestFunctionParamsDecay(t *testing.T) {
	prog := parseProgram(t, "int f(int a[10]) { return a[0]; }")
	fn := prog.Funcs[0]
	if fn.Params[0].Ty.Kind != types.PTR {
		t.Errorf("array parameter should decay to a pointer")
	}
}

func TestGlobalInitializer(t *testing.T) {
	prog := parseProgram(t, "int g[3] = {1, 2, 3};")
	v := findGlobal(t, prog, "g")

	want := []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0}
	if !reflect.DeepEqual(v.InitData, want) {
		t.Errorf("init bytes = %v, want %v", v.InitData, want)
	}
}

func TestGlobalFlexibleArray(t *testing.T) {
	prog := parseProgram(t, "int g[] = {1, 2, 3, 4};")
	v := findGlobal(t, prog, "g")
	if v.Ty.ArrayLen != 4 || v.Ty.Size != 16 {
		t.Errorf("flexible array fixed to len %d size %d, want 4/16", v.Ty.ArrayLen, v.Ty.Size)
	}
}

func TestGlobalPointerRelocation(t *testing.T) {
	prog := parseProgram(t, "int x[4]; int *p = x + 1;")
	v := findGlobal(t, prog, "p")

	if v.Rel == nil {
		t.Fatalf("pointer initializer should produce a relocation")
	}
	if v.Rel.Label != "x" || v.Rel.Addend != 4 || v.Rel.Offset != 0 {
		t.Errorf("relocation = {%s %d %d}, want {x 4 0}",
			v.Rel.Label, v.Rel.Addend, v.Rel.Offset)
	}
}

func TestStringLiteralGlobal(t *testing.T) {
	prog := parseProgram(t, `char *s = "ab";`)

	v := findGlobal(t, prog, "s")
	if v.Rel == nil {
		t.Fatalf("string pointer initializer should relocate to the literal's label")
	}

	lit := findGlobal(t, prog, v.Rel.Label)
	if !reflect.DeepEqual(lit.InitData, []byte{'a', 'b', 0}) {
		t.Errorf("literal data = %v, want \"ab\\0\"", lit.InitData)
	}
	if lit.Ty.Kind != types.ARRAY || lit.Ty.ArrayLen != 3 {
		t.Errorf("literal type = %v len %d, want char[3]", lit.Ty.Kind, lit.Ty.ArrayLen)
	}
}

func TestLocalInitializerLowersToAssignments(t *testing.T) {
	prog := parseProgram(t, "int main() { int a[2] = {1, 2}; return a[1]; }")

	decl := prog.Funcs[0].Body.Body
	if decl.Kind != ast.BLOCK {
		t.Fatalf("declaration should parse to a block")
	}
	stmt := decl.Body
	if stmt.Kind != ast.EXPRSTMT {
		t.Fatalf("initializer should lower to an expression statement")
	}
	// The lowered form starts by zeroing the variable.
	n := stmt.Lhs
	for n.Kind == ast.COMMA {
		n = n.Lhs
	}
	if n.Kind != ast.MEMZERO {
		t.Errorf("lowered initializer should begin with a memzero, got %v", n.Kind)
	}
}

func TestScopesShadow(t *testing.T) {
	src := `
int x;
int main() {
  long x;
  { char x; }
  return sizeof(x);
}
`
	prog := parseProgram(t, src)

	// After the inner block closes, x resolves to the long again; the
	// return statement folded sizeof(x) at parse time.
	body := prog.Funcs[0].Body.Body
	var ret *ast.Node
	for n := body; n != nil; n = n.Next {
		if n.Kind == ast.RETURN {
			ret = n
		}
	}
	if ret == nil {
		t.Fatalf("return not found")
	}
	val := ret.Lhs
	for val.Kind == ast.CAST {
		val = val.Lhs
	}
	if val.Val != 8 {
		t.Errorf("sizeof(x) = %d, want 8 (the shadowing long)", val.Val)
	}
}

func TestUndefinedVariableIsAnError(t *testing.T) {
	if _, err := Parse(tokenizeSrc(t, "int main() { return y; }")); err == nil {
		t.Errorf("an undefined variable should be an error")
	}
}

func TestUndefinedGotoLabelIsAnError(t *testing.T) {
	if _, err := Parse(tokenizeSrc(t, "int main() { goto nowhere; return 0; }")); err == nil {
		t.Errorf("a goto to an undefined label should be an error")
	}
}

func TestInvalidTypeCombination(t *testing.T) {
	if _, err := Parse(tokenizeSrc(t, "char int x;")); err == nil {
		t.Errorf("char int should be rejected")
	}
	if _, err := Parse(tokenizeSrc(t, "long long int y;")); err != nil {
		t.Errorf("long long int should be accepted, got %v", err)
	}
}

func TestPointerArithmeticScaling(t *testing.T) {
	prog := parseProgram(t, "int f(int *p) { return *(p + 2); }")

	ret := prog.Funcs[0].Body.Body
	deref := ret.Lhs
	for deref.Kind == ast.CAST {
		deref = deref.Lhs
	}
	if deref.Kind != ast.DEREF {
		t.Fatalf("expected a dereference, got %v", deref.Kind)
	}

	add := deref.Lhs
	if add.Kind != ast.ADD {
		t.Fatalf("expected an addition, got %v", add.Kind)
	}
	// The integer side must have been scaled by sizeof(int).
	mul := add.Rhs
	for mul.Kind == ast.CAST {
		mul = mul.Lhs
	}
	if mul.Kind != ast.MUL {
		t.Fatalf("expected a multiplication, got %v", mul.Kind)
	}
	scale := mul.Rhs
	for scale.Kind == ast.CAST {
		scale = scale.Lhs
	}
	if scale.Val != 4 {
		t.Errorf("pointer addend should scale by 4")
	}
}

func TestSwitchCollectsCases(t *testing.T) {
	src := `
int f(int x) {
  switch (x) {
  case 1: return 10;
  case 2: return 20;
  default: return 30;
  }
}
`
	prog := parseProgram(t, src)

	var sw *ast.Node
	for n := prog.Funcs[0].Body.Body; n != nil; n = n.Next {
		if n.Kind == ast.SWITCH {
			sw = n
		}
	}
	if sw == nil {
		t.Fatalf("switch not found")
	}

	var vals []int64
	for cs := sw.Cases; cs != nil; cs = cs.CaseNext {
		vals = append(vals, cs.Val)
	}
	if !reflect.DeepEqual(vals, []int64{2, 1}) {
		t.Errorf("case values = %v, want [2 1]", vals)
	}
	if sw.DefaultCase == nil {
		t.Errorf("default case not recorded")
	}
}

func TestVariadicFunction(t *testing.T) {
	prog := parseProgram(t, "int f(int a, ...) { return a; }")
	if !prog.Funcs[0].IsVariadic {
		t.Errorf("f should be variadic")
	}
}

func TestStaticFunction(t *testing.T) {
	prog := parseProgram(t, "static int f() { return 1; }")
	if !prog.Funcs[0].IsStatic {
		t.Errorf("f should be static")
	}
}
