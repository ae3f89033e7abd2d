package ast

import (
	"testing"

	"ncc/types"
)

func num(val int64, ty *types.Type) *Node {
	n := NewNum(val, nil)
	n.Ty = ty
	return n
}

func TestUsualArithConversions(t *testing.T) {
	tests := []struct {
		name string
		lhs  *types.Type
		rhs  *types.Type
		want *types.Type
	}{
		{"int+int", types.Int, types.Int, types.Int},
		{"char+char promotes", types.Char, types.Char, types.Int},
		{"int+long widens", types.Int, types.Long, types.Long},
		{"int+uint goes unsigned", types.Int, types.UInt, types.UInt},
		{"long+ulong goes unsigned", types.Long, types.ULong, types.ULong},
		{"uint+long widens signed", types.UInt, types.Long, types.Long},
		{"int+double floats", types.Int, types.Double, types.Double},
		{"float+float stays float", types.Float, types.Float, types.Float},
		{"float+double widens", types.Float, types.Double, types.Double},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := NewBinary(ADD, num(1, tt.lhs), num(1, tt.rhs), nil)
			AddType(node)
			if node.Ty.Kind != tt.want.Kind || node.Ty.IsUnsigned != tt.want.IsUnsigned {
				t.Errorf("result type = %v/unsigned=%v, want %v/unsigned=%v",
					node.Ty.Kind, node.Ty.IsUnsigned, tt.want.Kind, tt.want.IsUnsigned)
			}
		})
	}
}

func TestComparisonYieldsInt(t *testing.T) {
	node := NewBinary(LT, num(1, types.Long), num(2, types.Long), nil)
	AddType(node)
	if node.Ty != types.Int {
		t.Errorf("comparison type = %v, want int", node.Ty.Kind)
	}
}

func TestAddrDeref(t *testing.T) {
	v := &Var{Name: "x", Ty: types.Int, IsLocal: true}
	ref := NewVarRef(v, nil)

	addr := NewUnary(ADDR, ref, nil)
	AddType(addr)
	if addr.Ty.Kind != types.PTR || addr.Ty.Base != types.Int {
		t.Fatalf("&x type = %v, want int*", addr.Ty.Kind)
	}

	deref := NewUnary(DEREF, addr, nil)
	AddType(deref)
	if deref.Ty != types.Int {
		t.Errorf("*&x type = %v, want int", deref.Ty.Kind)
	}
}

func TestAddrOfArrayDecays(t *testing.T) {
	v := &Var{Name: "a", Ty: types.ArrayOf(types.Char, 8), IsLocal: true}
	addr := NewUnary(ADDR, NewVarRef(v, nil), nil)
	AddType(addr)
	if addr.Ty.Kind != types.PTR || addr.Ty.Base != types.Char {
		t.Errorf("&array should have the element pointer type")
	}
}

func TestAssignTakesLHSType(t *testing.T) {
	v := &Var{Name: "c", Ty: types.Char, IsLocal: true}
	node := NewBinary(ASSIGN, NewVarRef(v, nil), num(300, types.Int), nil)
	AddType(node)

	if node.Ty != types.Char {
		t.Errorf("assignment type = %v, want char", node.Ty.Kind)
	}
	if node.Rhs.Kind != CAST {
		t.Errorf("assignment must cast its right-hand side")
	}
}

func TestShiftKeepsLHSType(t *testing.T) {
	node := NewBinary(SHL, num(1, types.Long), num(2, types.Int), nil)
	AddType(node)
	if node.Ty != types.Long {
		t.Errorf("shift type = %v, want long", node.Ty.Kind)
	}
}

func TestNumDefaultsToIntOrLong(t *testing.T) {
	small := NewNum(42, nil)
	AddType(small)
	if small.Ty != types.Int {
		t.Errorf("42 should type as int")
	}

	big := NewNum(1<<40, nil)
	AddType(big)
	if big.Ty != types.Long {
		t.Errorf("1<<40 should type as long")
	}
}
