package parser

import (
	"ncc/ast"
	"ncc/token"
	"ncc/types"
)

// newAdd builds `lhs + rhs`, overloading + for pointer arithmetic:
// `ptr + n` scales n by the pointee size so the sum points n elements
// ahead.
func newAdd(lhs, rhs *ast.Node, tok *token.Token) *ast.Node {
	ast.AddType(lhs)
	ast.AddType(rhs)

	// num + num
	if types.IsNumeric(lhs.Ty) && types.IsNumeric(rhs.Ty) {
		return ast.NewBinary(ast.ADD, lhs, rhs, tok)
	}

	if lhs.Ty.Base != nil && rhs.Ty.Base != nil {
		token.Fail(tok, "invalid operands")
	}

	// Canonicalize `num + ptr` to `ptr + num`.
	if lhs.Ty.Base == nil && rhs.Ty.Base != nil {
		lhs, rhs = rhs, lhs
	}
	if lhs.Ty.Base == nil || !types.IsInteger(rhs.Ty) {
		token.Fail(tok, "invalid operands")
	}

	// ptr + num
	rhs = ast.NewBinary(ast.MUL, rhs, ast.NewNum(int64(lhs.Ty.Base.Size), tok), tok)
	return ast.NewBinary(ast.ADD, lhs, rhs, tok)
}

// newSub builds `lhs - rhs` with the pointer overloads: `ptr - n`
// scales, and `ptr - ptr` yields the element count between the two.
func newSub(lhs, rhs *ast.Node, tok *token.Token) *ast.Node {
	ast.AddType(lhs)
	ast.AddType(rhs)

	// num - num
	if types.IsNumeric(lhs.Ty) && types.IsNumeric(rhs.Ty) {
		return ast.NewBinary(ast.SUB, lhs, rhs, tok)
	}

	// ptr - num
	if lhs.Ty.Base != nil && types.IsInteger(rhs.Ty) {
		rhs = ast.NewBinary(ast.MUL, rhs, ast.NewNum(int64(lhs.Ty.Base.Size), tok), tok)
		return ast.NewBinary(ast.SUB, lhs, rhs, tok)
	}

	// ptr - ptr
	if lhs.Ty.Base != nil && rhs.Ty.Base != nil {
		if lhs.Ty.Base.Size != rhs.Ty.Base.Size {
			token.Fail(tok, "invalid operands")
		}
		node := ast.NewBinary(ast.SUB, lhs, rhs, tok)
		node.Ty = types.Long
		return ast.NewBinary(ast.DIV, node, ast.NewNum(int64(lhs.Ty.Base.Size), tok), tok)
	}

	token.Fail(tok, "invalid operands")
	return nil
}

// expr = assign ("," expr)?
func (p *Parser) expr() *ast.Node {
	node := p.assign()

	if p.equal(",") {
		tok := p.next()
		return ast.NewBinary(ast.COMMA, node, p.expr(), tok)
	}
	return node
}

// toAssign converts `A op= B` into `tmp = &A, *tmp = *tmp op B` so that
// A's side effects run once.
func (p *Parser) toAssign(binary *ast.Node) *ast.Node {
	ast.AddType(binary.Lhs)
	ast.AddType(binary.Rhs)
	tok := binary.Tok

	v := p.newLVar("", types.PointerTo(binary.Lhs.Ty))

	expr1 := ast.NewBinary(ast.ASSIGN, ast.NewVarRef(v, tok),
		ast.NewUnary(ast.ADDR, binary.Lhs, tok), tok)

	expr2 := ast.NewBinary(ast.ASSIGN,
		ast.NewUnary(ast.DEREF, ast.NewVarRef(v, tok), tok),
		ast.NewBinary(binary.Kind,
			ast.NewUnary(ast.DEREF, ast.NewVarRef(v, tok), tok),
			binary.Rhs, tok),
		tok)

	return ast.NewBinary(ast.COMMA, expr1, expr2, tok)
}

// assign = conditional (assign-op assign)?
// assign-op = "=" | "+=" | "-=" | "*=" | "/=" | "%=" | "&=" | "|=" | "^="
//           | "<<=" | ">>="
func (p *Parser) assign() *ast.Node {
	node := p.conditional()

	switch {
	case p.equal("="):
		tok := p.next()
		return ast.NewBinary(ast.ASSIGN, node, p.assign(), tok)
	case p.equal("+="):
		tok := p.next()
		return p.toAssign(newAdd(node, p.assign(), tok))
	case p.equal("-="):
		tok := p.next()
		return p.toAssign(newSub(node, p.assign(), tok))
	case p.equal("*="):
		tok := p.next()
		return p.toAssign(ast.NewBinary(ast.MUL, node, p.assign(), tok))
	case p.equal("/="):
		tok := p.next()
		return p.toAssign(ast.NewBinary(ast.DIV, node, p.assign(), tok))
	case p.equal("%="):
		tok := p.next()
		return p.toAssign(ast.NewBinary(ast.MOD, node, p.assign(), tok))
	case p.equal("&="):
		tok := p.next()
		return p.toAssign(ast.NewBinary(ast.BITAND, node, p.assign(), tok))
	case p.equal("|="):
		tok := p.next()
		return p.toAssign(ast.NewBinary(ast.BITOR, node, p.assign(), tok))
	case p.equal("^="):
		tok := p.next()
		return p.toAssign(ast.NewBinary(ast.BITXOR, node, p.assign(), tok))
	case p.equal("<<="):
		tok := p.next()
		return p.toAssign(ast.NewBinary(ast.SHL, node, p.assign(), tok))
	case p.equal(">>="):
		tok := p.next()
		return p.toAssign(ast.NewBinary(ast.SHR, node, p.assign(), tok))
	}
	return node
}

// conditional = logor ("?" expr ":" conditional)?
func (p *Parser) conditional() *ast.Node {
	cond := p.logor()

	if !p.equal("?") {
		return cond
	}

	node := ast.NewNode(ast.COND, p.next())
	node.Cond = cond
	node.Then = p.expr()
	p.skip(":")
	node.Els = p.conditional()
	return node
}

// logor = logand ("||" logand)*
func (p *Parser) logor() *ast.Node {
	node := p.logand()
	for p.equal("||") {
		tok := p.next()
		node = ast.NewBinary(ast.LOGOR, node, p.logand(), tok)
	}
	return node
}

// logand = bitor ("&&" bitor)*
func (p *Parser) logand() *ast.Node {
	node := p.bitor()
	for p.equal("&&") {
		tok := p.next()
		node = ast.NewBinary(ast.LOGAND, node, p.bitor(), tok)
	}
	return node
}

// bitor = bitxor ("|" bitxor)*
func (p *Parser) bitor() *ast.Node {
	node := p.bitxor()
	for p.equal("|") {
		tok := p.next()
		node = ast.NewBinary(ast.BITOR, node, p.bitxor(), tok)
	}
	return node
}

// bitxor = bitand ("^" bitand)*
func (p *Parser) bitxor() *ast.Node {
	node := p.bitand()
	for p.equal("^") {
		tok := p.next()
		node = ast.NewBinary(ast.BITXOR, node, p.bitand(), tok)
	}
	return node
}

// bitand = equality ("&" equality)*
func (p *Parser) bitand() *ast.Node {
	node := p.equality()
	for p.equal("&") {
		tok := p.next()
		node = ast.NewBinary(ast.BITAND, node, p.equality(), tok)
	}
	return node
}

// equality = relational ("==" relational | "!=" relational)*
func (p *Parser) equality() *ast.Node {
	node := p.relational()

	for {
		switch {
		case p.equal("=="):
			tok := p.next()
			node = ast.NewBinary(ast.EQ, node, p.relational(), tok)
		case p.equal("!="):
			tok := p.next()
			node = ast.NewBinary(ast.NE, node, p.relational(), tok)
		default:
			return node
		}
	}
}

// relational = shift ("<" shift | "<=" shift | ">" shift | ">=" shift)*
func (p *Parser) relational() *ast.Node {
	node := p.shift()

	for {
		switch {
		case p.equal("<"):
			tok := p.next()
			node = ast.NewBinary(ast.LT, node, p.shift(), tok)
		case p.equal("<="):
			tok := p.next()
			node = ast.NewBinary(ast.LE, node, p.shift(), tok)
		case p.equal(">"):
			tok := p.next()
			node = ast.NewBinary(ast.LT, p.shift(), node, tok)
		case p.equal(">="):
			tok := p.next()
			node = ast.NewBinary(ast.LE, p.shift(), node, tok)
		default:
			return node
		}
	}
}

// shift = add ("<<" add | ">>" add)*
func (p *Parser) shift() *ast.Node {
	node := p.add()

	for {
		switch {
		case p.equal("<<"):
			tok := p.next()
			node = ast.NewBinary(ast.SHL, node, p.add(), tok)
		case p.equal(">>"):
			tok := p.next()
			node = ast.NewBinary(ast.SHR, node, p.add(), tok)
		default:
			return node
		}
	}
}

// add = mul ("+" mul | "-" mul)*
func (p *Parser) add() *ast.Node {
	node := p.mul()

	for {
		switch {
		case p.equal("+"):
			tok := p.next()
			node = newAdd(node, p.mul(), tok)
		case p.equal("-"):
			tok := p.next()
			node = newSub(node, p.mul(), tok)
		default:
			return node
		}
	}
}

// mul = cast ("*" cast | "/" cast | "%" cast)*
func (p *Parser) mul() *ast.Node {
	node := p.cast()

	for {
		switch {
		case p.equal("*"):
			tok := p.next()
			node = ast.NewBinary(ast.MUL, node, p.cast(), tok)
		case p.equal("/"):
			tok := p.next()
			node = ast.NewBinary(ast.DIV, node, p.cast(), tok)
		case p.equal("%"):
			tok := p.next()
			node = ast.NewBinary(ast.MOD, node, p.cast(), tok)
		default:
			return node
		}
	}
}

// cast = "(" typename ")" cast | unary
func (p *Parser) cast() *ast.Node {
	if p.equal("(") && p.isTypename(p.tok.Next) {
		start := p.tok
		p.next()
		ty := p.typename()
		p.skip(")")
		node := ast.NewCast(p.cast(), ty)
		node.Tok = start
		return node
	}

	return p.unary()
}

// newIncDec builds the value-preserving rewrite of A++/A--:
// `(typeof A)((A += addend) - addend)`.
func (p *Parser) newIncDec(node *ast.Node, tok *token.Token, addend int64) *ast.Node {
	ast.AddType(node)
	return ast.NewCast(
		newAdd(p.toAssign(newAdd(node, ast.NewNum(addend, tok), tok)),
			ast.NewNum(-addend, tok), tok),
		node.Ty)
}

// unary = ("+" | "-" | "*" | "&" | "!" | "~") cast
//       | ("++" | "--") unary
//       | postfix
func (p *Parser) unary() *ast.Node {
	switch {
	case p.equal("+"):
		p.next()
		return p.cast()

	case p.equal("-"):
		tok := p.next()
		return ast.NewBinary(ast.SUB, ast.NewNum(0, tok), p.cast(), tok)

	case p.equal("&"):
		tok := p.next()
		return ast.NewUnary(ast.ADDR, p.cast(), tok)

	case p.equal("*"):
		tok := p.next()
		return ast.NewUnary(ast.DEREF, p.cast(), tok)

	case p.equal("!"):
		tok := p.next()
		return ast.NewUnary(ast.NOT, p.cast(), tok)

	case p.equal("~"):
		tok := p.next()
		return ast.NewUnary(ast.BITNOT, p.cast(), tok)

	case p.equal("++"):
		// ++i is i += 1.
		tok := p.next()
		return p.toAssign(newAdd(p.unary(), ast.NewNum(1, tok), tok))

	case p.equal("--"):
		tok := p.next()
		return p.toAssign(newSub(p.unary(), ast.NewNum(1, tok), tok))
	}

	return p.postfix()
}

func getStructMember(ty *types.Type, tok *token.Token) *types.Member {
	for mem := ty.Members; mem != nil; mem = mem.Next {
		if mem.Name != nil && mem.Name.Is(tok.Text()) {
			return mem
		}
	}
	token.Fail(tok, "no such member")
	return nil
}

func structRef(lhs *ast.Node, tok *token.Token) *ast.Node {
	ast.AddType(lhs)
	if lhs.Ty.Kind != types.STRUCT && lhs.Ty.Kind != types.UNION {
		token.Fail(lhs.Tok, "not a struct nor a union")
	}

	node := ast.NewUnary(ast.MEMBER, lhs, tok)
	node.Mem = getStructMember(lhs.Ty, tok)
	return node
}

// postfix = primary ("[" expr "]" | "." ident | "->" ident | "++" | "--")*
func (p *Parser) postfix() *ast.Node {
	node := p.primary()

	for {
		switch {
		case p.equal("["):
			// x[y] is short for *(x+y).
			start := p.next()
			idx := p.expr()
			p.skip("]")
			node = ast.NewUnary(ast.DEREF, newAdd(node, idx, start), start)

		case p.equal("."):
			p.next()
			node = structRef(node, p.tok)
			p.next()

		case p.equal("->"):
			// x->y is short for (*x).y.
			tok := p.next()
			node = ast.NewUnary(ast.DEREF, node, tok)
			node = structRef(node, p.tok)
			p.next()

		case p.equal("++"):
			tok := p.next()
			node = p.newIncDec(node, tok, 1)

		case p.equal("--"):
			tok := p.next()
			node = p.newIncDec(node, tok, -1)

		default:
			return node
		}
	}
}

// funcall = ident "(" (assign ("," assign)*)? ")"
//
// Arguments are cast to the declared parameter types; floats passed to
// the variadic tail promote to double.
func (p *Parser) funcall() *ast.Node {
	start := p.next()
	p.skip("(")

	sc := p.findVar(start)
	var funcTy *types.Type
	if sc != nil {
		if sc.v == nil || sc.v.Ty.Kind != types.FUNC {
			token.Fail(start, "not a function")
		}
		funcTy = sc.v.Ty
	} else {
		token.Warnf(start, "implicit declaration of a function")
	}

	head := ast.Node{}
	cur := &head
	var paramTy *types.Type
	if funcTy != nil {
		paramTy = funcTy.Params
	}

	for !p.equal(")") {
		if cur != &head {
			p.skip(",")
		}

		arg := p.assign()
		ast.AddType(arg)

		if paramTy != nil {
			if paramTy.Kind == types.STRUCT || paramTy.Kind == types.UNION {
				token.Fail(arg.Tok, "passing structs by value is not supported")
			}
			arg = ast.NewCast(arg, paramTy)
			paramTy = paramTy.Next
		} else if arg.Ty.Kind == types.FLOAT {
			// Default argument promotion.
			arg = ast.NewCast(arg, types.Double)
		}

		cur.Next = arg
		cur = cur.Next
	}
	p.skip(")")

	node := ast.NewNode(ast.FUNCALL, start)
	node.FuncName = start.Text()
	node.FuncTy = funcTy
	node.Args = head.Next
	if funcTy != nil {
		node.Ty = funcTy.ReturnTy
		if node.Ty.Kind == types.STRUCT || node.Ty.Kind == types.UNION {
			token.Fail(start, "returning structs by value is not supported")
		}
	} else {
		node.Ty = types.Int
	}
	return node
}

// primary = "(" "{" stmt+ "}" ")"
//         | "(" expr ")"
//         | "sizeof" "(" typename ")"
//         | "sizeof" unary
//         | ident func-args?
//         | str
//         | num
func (p *Parser) primary() *ast.Node {
	if p.equal("(") && p.tok.Next.Is("{") {
		// GNU statement expression.
		node := ast.NewNode(ast.STMTEXPR, p.tok)
		p.next()
		p.next()
		node.Body = p.compoundStmt().Body
		p.skip(")")
		return node
	}

	if p.consume("(") {
		node := p.expr()
		p.skip(")")
		return node
	}

	if p.equal("sizeof") {
		tok := p.next()
		if p.equal("(") && p.isTypename(p.tok.Next) {
			p.next()
			ty := p.typename()
			p.skip(")")
			return sizeofNum(ty, tok)
		}
		node := p.unary()
		ast.AddType(node)
		return sizeofNum(node.Ty, tok)
	}

	if p.tok.Kind == token.IDENT {
		// Function call
		if p.tok.Next.Is("(") {
			return p.funcall()
		}

		// Variable or enum constant
		sc := p.findVar(p.tok)
		if sc == nil {
			token.Fail(p.tok, "undefined variable")
		}

		tok := p.next()
		if sc.v != nil {
			return ast.NewVarRef(sc.v, tok)
		}
		if sc.enumTy != nil {
			n := ast.NewNum(int64(sc.enumVal), tok)
			n.Ty = sc.enumTy
			return n
		}
		token.Fail(tok, "undefined variable")
	}

	if p.tok.Kind == token.STR {
		v := p.newStringLiteral(p.tok)
		tok := p.next()
		return ast.NewVarRef(v, tok)
	}

	if p.tok.Kind != token.NUM {
		token.Fail(p.tok, "expected an expression")
	}

	tok := p.next()
	node := ast.NewNode(ast.NUM, tok)
	switch tok.NumTy {
	case token.NumFloat:
		node.FVal = tok.FVal
		node.Ty = types.Float
	case token.NumDouble:
		node.FVal = tok.FVal
		node.Ty = types.Double
	case token.NumUInt:
		node.Val = tok.Val
		node.Ty = types.UInt
	case token.NumLong:
		node.Val = tok.Val
		node.Ty = types.Long
	case token.NumULong:
		node.Val = tok.Val
		node.Ty = types.ULong
	default:
		node.Val = tok.Val
		node.Ty = types.Int
	}
	return node
}

func sizeofNum(ty *types.Type, tok *token.Token) *ast.Node {
	if ty.IsIncomplete {
		token.Fail(tok, "sizeof of an incomplete type")
	}
	node := ast.NewNum(int64(ty.Size), tok)
	node.Ty = types.ULong
	return node
}
