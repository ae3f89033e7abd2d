package types

import "testing"

func TestPrimitiveSizes(t *testing.T) {
	tests := []struct {
		name  string
		ty    *Type
		size  int
		align int
	}{
		{"char", Char, 1, 1},
		{"short", Short, 2, 2},
		{"int", Int, 4, 4},
		{"long", Long, 8, 8},
		{"float", Float, 4, 4},
		{"double", Double, 8, 8},
		{"_Bool", Bool, 1, 1},
		{"unsigned long", ULong, 8, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.ty.Size != tt.size || tt.ty.Align != tt.align {
				t.Errorf("%s: size/align = %d/%d, want %d/%d",
					tt.name, tt.ty.Size, tt.ty.Align, tt.size, tt.align)
			}
		})
	}
}

func TestPointerTo(t *testing.T) {
	ty := PointerTo(Int)
	if ty.Kind != PTR || ty.Size != 8 || ty.Align != 8 {
		t.Errorf("PointerTo(Int) = kind %v size %d align %d", ty.Kind, ty.Size, ty.Align)
	}
	if ty.Base != Int {
		t.Errorf("PointerTo(Int).Base should be Int")
	}
}

func TestArrayOf(t *testing.T) {
	ty := ArrayOf(Int, 10)
	if ty.Size != 40 {
		t.Errorf("ArrayOf(Int, 10).Size = %d, want 40", ty.Size)
	}
	if ty.Align != 4 {
		t.Errorf("ArrayOf(Int, 10).Align = %d, want 4", ty.Align)
	}

	ty2 := ArrayOf(ty, 3)
	if ty2.Size != 120 {
		t.Errorf("nested array size = %d, want 120", ty2.Size)
	}
}

func TestCopyDoesNotAlias(t *testing.T) {
	ty := Copy(Int)
	ty.IsConst = true
	if Int.IsConst {
		t.Errorf("Copy must not alias the shared singleton")
	}
}

func TestClassifiers(t *testing.T) {
	if !IsInteger(Bool) || !IsInteger(EnumType()) || IsInteger(Double) {
		t.Errorf("IsInteger misclassifies")
	}
	if !IsFlonum(Float) || IsFlonum(Long) {
		t.Errorf("IsFlonum misclassifies")
	}
	if !IsNumeric(Char) || !IsNumeric(Double) || IsNumeric(PointerTo(Int)) {
		t.Errorf("IsNumeric misclassifies")
	}
}

func TestAlignTo(t *testing.T) {
	tests := []struct{ n, align, want int }{
		{0, 8, 0},
		{1, 8, 8},
		{8, 8, 8},
		{11, 8, 16},
		{17, 16, 32},
	}
	for _, tt := range tests {
		if got := AlignTo(tt.n, tt.align); got != tt.want {
			t.Errorf("AlignTo(%d, %d) = %d, want %d", tt.n, tt.align, got, tt.want)
		}
	}
	if got := AlignDown(13, 8); got != 8 {
		t.Errorf("AlignDown(13, 8) = %d, want 8", got)
	}
}

func TestFuncType(t *testing.T) {
	ty := FuncType(Int)
	if ty.Kind != FUNC || ty.ReturnTy != Int {
		t.Errorf("FuncType(Int) malformed")
	}
}
