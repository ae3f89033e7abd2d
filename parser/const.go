package parser

import (
	"ncc/ast"
	"ncc/token"
	"ncc/types"
)

// constExpr parses and folds a constant expression at the cursor.
func (p *Parser) constExpr() int64 {
	node := p.conditional()
	ast.AddType(node)
	return p.eval(node)
}

// eval folds node to an integer. Anything not computable at compile
// time is a fatal diagnostic.
func (p *Parser) eval(node *ast.Node) int64 {
	return p.eval2(node, nil)
}

// eval2 folds node, optionally allowing the value to be the address of
// a global symbol plus an offset. When label is non-nil and the value
// turns out to be symbolic, *label names the symbol and the return
// value is the addend.
func (p *Parser) eval2(node *ast.Node, label *string) int64 {
	if node.Ty != nil && types.IsFlonum(node.Ty) {
		return int64(p.evalDouble(node))
	}

	switch node.Kind {
	case ast.ADD:
		return p.eval2(node.Lhs, label) + p.eval(node.Rhs)
	case ast.SUB:
		return p.eval2(node.Lhs, label) - p.eval(node.Rhs)
	case ast.MUL:
		return p.eval(node.Lhs) * p.eval(node.Rhs)
	case ast.DIV:
		rhs := p.eval(node.Rhs)
		if rhs == 0 {
			token.Fail(node.Rhs.Tok, "division by zero")
		}
		if node.Ty.IsUnsigned {
			return int64(uint64(p.eval(node.Lhs)) / uint64(rhs))
		}
		return p.eval(node.Lhs) / rhs
	case ast.MOD:
		rhs := p.eval(node.Rhs)
		if rhs == 0 {
			token.Fail(node.Rhs.Tok, "division by zero")
		}
		if node.Ty.IsUnsigned {
			return int64(uint64(p.eval(node.Lhs)) % uint64(rhs))
		}
		return p.eval(node.Lhs) % rhs
	case ast.BITAND:
		return p.eval(node.Lhs) & p.eval(node.Rhs)
	case ast.BITOR:
		return p.eval(node.Lhs) | p.eval(node.Rhs)
	case ast.BITXOR:
		return p.eval(node.Lhs) ^ p.eval(node.Rhs)
	case ast.SHL:
		return p.eval(node.Lhs) << uint64(p.eval(node.Rhs))
	case ast.SHR:
		if node.Ty.IsUnsigned && node.Ty.Size == 8 {
			return int64(uint64(p.eval(node.Lhs)) >> uint64(p.eval(node.Rhs)))
		}
		return p.eval(node.Lhs) >> uint64(p.eval(node.Rhs))
	case ast.EQ:
		return boolToInt(p.eval(node.Lhs) == p.eval(node.Rhs))
	case ast.NE:
		return boolToInt(p.eval(node.Lhs) != p.eval(node.Rhs))
	case ast.LT:
		if node.Lhs.Ty.IsUnsigned {
			return boolToInt(uint64(p.eval(node.Lhs)) < uint64(p.eval(node.Rhs)))
		}
		return boolToInt(p.eval(node.Lhs) < p.eval(node.Rhs))
	case ast.LE:
		if node.Lhs.Ty.IsUnsigned {
			return boolToInt(uint64(p.eval(node.Lhs)) <= uint64(p.eval(node.Rhs)))
		}
		return boolToInt(p.eval(node.Lhs) <= p.eval(node.Rhs))
	case ast.COND:
		if p.eval(node.Cond) != 0 {
			return p.eval2(node.Then, label)
		}
		return p.eval2(node.Els, label)
	case ast.COMMA:
		return p.eval2(node.Rhs, label)
	case ast.NOT:
		return boolToInt(p.eval(node.Lhs) == 0)
	case ast.BITNOT:
		return ^p.eval(node.Lhs)
	case ast.LOGAND:
		return boolToInt(p.eval(node.Lhs) != 0 && p.eval(node.Rhs) != 0)
	case ast.LOGOR:
		return boolToInt(p.eval(node.Lhs) != 0 || p.eval(node.Rhs) != 0)
	case ast.CAST:
		val := p.eval2(node.Lhs, label)
		if !types.IsInteger(node.Ty) || node.Ty.Size == 8 {
			return val
		}
		switch node.Ty.Size {
		case 1:
			if node.Ty.IsUnsigned {
				return int64(uint8(val))
			}
			return int64(int8(val))
		case 2:
			if node.Ty.IsUnsigned {
				return int64(uint16(val))
			}
			return int64(int16(val))
		default:
			if node.Ty.IsUnsigned {
				return int64(uint32(val))
			}
			return int64(int32(val))
		}
	case ast.ADDR:
		return p.evalRVal(node.Lhs, label)
	case ast.MEMBER:
		if label == nil {
			token.Fail(node.Tok, "not a compile-time constant")
		}
		if node.Ty.Kind != types.ARRAY {
			token.Fail(node.Tok, "invalid initializer")
		}
		return p.evalRVal(node.Lhs, label) + int64(node.Mem.Off)
	case ast.VARREF:
		if label == nil {
			token.Fail(node.Tok, "not a compile-time constant")
		}
		if node.Var.Ty.Kind != types.ARRAY && node.Var.Ty.Kind != types.FUNC {
			token.Fail(node.Tok, "invalid initializer")
		}
		*label = node.Var.Name
		return 0
	case ast.NUM:
		return node.Val
	}

	token.Fail(node.Tok, "not a compile-time constant")
	return 0
}

// evalRVal resolves the symbol an address-constant refers to.
func (p *Parser) evalRVal(node *ast.Node, label *string) int64 {
	switch node.Kind {
	case ast.VARREF:
		if node.Var.IsLocal {
			token.Fail(node.Tok, "not a compile-time constant")
		}
		if label == nil {
			token.Fail(node.Tok, "not a compile-time constant")
		}
		*label = node.Var.Name
		return 0
	case ast.DEREF:
		return p.eval2(node.Lhs, label)
	case ast.MEMBER:
		return p.evalRVal(node.Lhs, label) + int64(node.Mem.Off)
	}

	token.Fail(node.Tok, "invalid initializer")
	return 0
}

// evalDouble folds a floating constant expression.
func (p *Parser) evalDouble(node *ast.Node) float64 {
	if types.IsInteger(node.Ty) {
		if node.Ty.IsUnsigned {
			return float64(uint64(p.eval(node)))
		}
		return float64(p.eval(node))
	}

	switch node.Kind {
	case ast.ADD:
		return p.evalDouble(node.Lhs) + p.evalDouble(node.Rhs)
	case ast.SUB:
		return p.evalDouble(node.Lhs) - p.evalDouble(node.Rhs)
	case ast.MUL:
		return p.evalDouble(node.Lhs) * p.evalDouble(node.Rhs)
	case ast.DIV:
		return p.evalDouble(node.Lhs) / p.evalDouble(node.Rhs)
	case ast.COND:
		if p.eval(node.Cond) != 0 {
			return p.evalDouble(node.Then)
		}
		return p.evalDouble(node.Els)
	case ast.COMMA:
		return p.evalDouble(node.Rhs)
	case ast.CAST:
		if types.IsFlonum(node.Lhs.Ty) {
			return p.evalDouble(node.Lhs)
		}
		return float64(p.eval(node.Lhs))
	case ast.NUM:
		return node.FVal
	}

	token.Fail(node.Tok, "not a compile-time constant")
	return 0
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
