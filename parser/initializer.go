package parser

import (
	"encoding/binary"
	"math"

	"ncc/ast"
	"ncc/token"
	"ncc/types"
)

// initializer is the parsed form of one brace-structured initializer,
// mirroring the shape of the initialized type.
type initializer struct {
	ty  *types.Type
	tok *token.Token

	expr *ast.Node // leaf: a single assignment expression

	children []*initializer // array elements or struct/union members
	mem      *types.Member  // the member this child initializes

	// isFlexible marks an incomplete array whose length is fixed by its
	// initializer.
	isFlexible bool
}

func newInitializer(ty *types.Type, isFlexible bool) *initializer {
	init := &initializer{ty: ty}

	if ty.Kind == types.ARRAY {
		if isFlexible && ty.ArrayLen < 0 {
			init.isFlexible = true
			return init
		}
		init.children = make([]*initializer, ty.ArrayLen)
		for i := range init.children {
			init.children[i] = newInitializer(ty.Base, false)
		}
		return init
	}

	if ty.Kind == types.STRUCT || ty.Kind == types.UNION {
		for mem := ty.Members; mem != nil; mem = mem.Next {
			child := newInitializer(mem.Ty, false)
			child.mem = mem
			init.children = append(init.children, child)
		}
		return init
	}

	return init
}

// countArrayInitElements counts the elements of a braced initializer
// for a flexible array by tentatively parsing it and rewinding.
func (p *Parser) countArrayInitElements(ty *types.Type) int {
	save := p.tok
	dummy := newInitializer(ty.Base, false)

	i := 0
	for first := true; !p.consumeEndOfBraces(); first = false {
		if !first {
			p.skip(",")
		}
		p.initializer2(dummy)
		i++
	}

	p.tok = save
	return i
}

// consumeEndOfBraces accepts `}` or the trailing-comma form `,}`.
func (p *Parser) consumeEndOfBraces() bool {
	if p.consume("}") {
		return true
	}
	if p.equal(",") && p.tok.Next.Is("}") {
		p.next()
		p.next()
		return true
	}
	return false
}

// stringInitializer fills a char array from a string literal token.
func (p *Parser) stringInitializer(init *initializer) {
	tok := p.next()

	if init.isFlexible {
		*init = *newInitializer(types.ArrayOf(init.ty.Base, len(tok.Str)), false)
	}

	n := init.ty.ArrayLen
	if len(tok.Str) < n {
		n = len(tok.Str)
	}
	for i := 0; i < n; i++ {
		init.children[i].expr = ast.NewNum(int64(tok.Str[i]), tok)
	}
}

// arrayInitializer = "{" initializer ("," initializer)* ","? "}"
func (p *Parser) arrayInitializer(init *initializer) {
	tok := p.tok
	p.skip("{")

	if init.isFlexible {
		n := p.countArrayInitElements(init.ty)
		*init = *newInitializer(types.ArrayOf(init.ty.Base, n), false)
	}

	i := 0
	for first := true; !p.consumeEndOfBraces(); first = false {
		if !first {
			p.skip(",")
		}
		if i >= len(init.children) {
			token.Fail(p.tok, "too many initializers")
		}
		p.initializer2(init.children[i])
		i++
	}
	init.tok = tok
}

// structInitializer = "{" initializer ("," initializer)* ","? "}"
func (p *Parser) structInitializer(init *initializer) {
	tok := p.tok
	p.skip("{")

	i := 0
	for first := true; !p.consumeEndOfBraces(); first = false {
		if !first {
			p.skip(",")
		}
		// Anonymous bitfields take no initializer.
		for i < len(init.children) && init.children[i].mem != nil &&
			init.children[i].mem.Name == nil {
			i++
		}
		if i >= len(init.children) {
			token.Fail(p.tok, "too many initializers")
		}
		p.initializer2(init.children[i])
		i++
	}
	init.tok = tok
}

// initializer2 dispatches on the initialized type.
func (p *Parser) initializer2(init *initializer) {
	init.tok = p.tok

	if init.ty.Kind == types.ARRAY {
		if p.tok.Kind == token.STR {
			p.stringInitializer(init)
			return
		}
		p.arrayInitializer(init)
		return
	}

	if init.ty.Kind == types.STRUCT {
		if p.equal("{") {
			p.structInitializer(init)
			return
		}
		// A struct can be initialized from another struct rvalue.
		expr := p.assign()
		ast.AddType(expr)
		if expr.Ty.Kind == types.STRUCT {
			init.expr = expr
			return
		}
		token.Fail(init.tok, "invalid initializer")
	}

	if init.ty.Kind == types.UNION {
		// Only the first member of a union can be initialized.
		p.skip("{")
		p.initializer2(init.children[0])
		p.consumeEndOfBraces()
		return
	}

	// A scalar initializer may be surrounded by braces.
	if p.consume("{") {
		p.initializer2(init)
		p.skip("}")
		return
	}

	init.expr = p.assign()
	ast.AddType(init.expr)
}

func (p *Parser) parseInitializer(ty *types.Type) (*initializer, *types.Type) {
	init := newInitializer(ty, true)
	p.initializer2(init)
	return init, init.ty
}

// initDesg is a designator chain rooted at a variable: which element or
// member a leaf initializer lands in.
type initDesg struct {
	next *initDesg
	idx  int
	mem  *types.Member
	v    *ast.Var
}

// initDesgExpr builds the lvalue expression addressed by a designator.
func initDesgExpr(desg *initDesg, tok *token.Token) *ast.Node {
	if desg.v != nil {
		return ast.NewVarRef(desg.v, tok)
	}

	if desg.mem != nil {
		node := ast.NewUnary(ast.MEMBER, initDesgExpr(desg.next, tok), tok)
		node.Mem = desg.mem
		return node
	}

	lhs := initDesgExpr(desg.next, tok)
	rhs := ast.NewNum(int64(desg.idx), tok)
	return ast.NewUnary(ast.DEREF, newAdd(lhs, rhs, tok), tok)
}

// createLVarInit lowers an initializer tree to a chain of assignment
// expressions joined by the comma operator.
func createLVarInit(init *initializer, ty *types.Type, desg *initDesg, tok *token.Token) *ast.Node {
	if ty.Kind == types.ARRAY {
		node := ast.NewNode(ast.NULLEXPR, tok)
		for i := 0; i < ty.ArrayLen; i++ {
			d := initDesg{next: desg, idx: i}
			rhs := createLVarInit(init.children[i], ty.Base, &d, tok)
			node = ast.NewBinary(ast.COMMA, node, rhs, tok)
		}
		return node
	}

	if (ty.Kind == types.STRUCT || ty.Kind == types.UNION) && init.expr == nil {
		node := ast.NewNode(ast.NULLEXPR, tok)
		i := 0
		for mem := ty.Members; mem != nil; mem = mem.Next {
			if mem.Name == nil {
				i++
				continue
			}
			d := initDesg{next: desg, mem: mem}
			rhs := createLVarInit(init.children[i], mem.Ty, &d, tok)
			node = ast.NewBinary(ast.COMMA, node, rhs, tok)
			i++
			if ty.Kind == types.UNION {
				break
			}
		}
		return node
	}

	if init.expr == nil {
		return ast.NewNode(ast.NULLEXPR, tok)
	}

	lhs := initDesgExpr(desg, tok)
	return ast.NewBinary(ast.ASSIGN, lhs, init.expr, tok)
}

// lvarInitializer compiles a local initializer to statements: the
// variable's storage is zeroed first, then every present expression is
// assigned, so omitted elements end up zero as the language requires.
func (p *Parser) lvarInitializer(v *ast.Var, tok *token.Token) *ast.Node {
	init, ty := p.parseInitializer(v.Ty)
	v.Ty = ty

	desg := initDesg{v: v}

	memzero := ast.NewNode(ast.MEMZERO, tok)
	memzero.Var = v

	node := ast.NewBinary(ast.COMMA, memzero,
		createLVarInit(init, v.Ty, &desg, tok), tok)
	return node
}

// Global initializers are evaluated at parse time into raw bytes plus
// relocations for address-valued slots.

func writeBytes(buf []byte, off, sz int, val uint64) {
	switch sz {
	case 1:
		buf[off] = byte(val)
	case 2:
		binary.LittleEndian.PutUint16(buf[off:], uint16(val))
	case 4:
		binary.LittleEndian.PutUint32(buf[off:], uint32(val))
	default:
		binary.LittleEndian.PutUint64(buf[off:], val)
	}
}

// writeGVarData evaluates one leaf and writes its bytes, recording a
// relocation when the value is the address of another symbol.
func (p *Parser) writeGVarData(cur *ast.Relocation, init *initializer, ty *types.Type, buf []byte, off int) *ast.Relocation {
	if ty.Kind == types.ARRAY {
		sz := ty.Base.Size
		for i := 0; i < ty.ArrayLen; i++ {
			cur = p.writeGVarData(cur, init.children[i], ty.Base, buf, off+sz*i)
		}
		return cur
	}

	if ty.Kind == types.STRUCT {
		i := 0
		for mem := ty.Members; mem != nil; mem = mem.Next {
			if mem.IsBitfield && init.children[i].expr != nil {
				val := p.eval(init.children[i].expr)
				unit := uint64(readBytes(buf, off+mem.Off, mem.Ty.Size))
				mask := uint64(1)<<mem.BitWidth - 1
				unit |= (uint64(val) & mask) << mem.BitOffset
				writeBytes(buf, off+mem.Off, mem.Ty.Size, unit)
			} else {
				cur = p.writeGVarData(cur, init.children[i], mem.Ty, buf, off+mem.Off)
			}
			i++
		}
		return cur
	}

	if ty.Kind == types.UNION {
		return p.writeGVarData(cur, init.children[0], ty.Members.Ty, buf, off)
	}

	if init.expr == nil {
		return cur
	}

	if ty.Kind == types.FLOAT {
		val := p.evalDouble(init.expr)
		writeBytes(buf, off, 4, uint64(math.Float32bits(float32(val))))
		return cur
	}
	if ty.Kind == types.DOUBLE {
		val := p.evalDouble(init.expr)
		writeBytes(buf, off, 8, math.Float64bits(val))
		return cur
	}

	var label string
	val := p.eval2(init.expr, &label)

	if label == "" {
		writeBytes(buf, off, ty.Size, uint64(val))
		return cur
	}

	rel := &ast.Relocation{Offset: off, Label: label, Addend: val}
	cur.Next = rel
	return rel
}

func readBytes(buf []byte, off, sz int) uint64 {
	switch sz {
	case 1:
		return uint64(buf[off])
	case 2:
		return uint64(binary.LittleEndian.Uint16(buf[off:]))
	case 4:
		return uint64(binary.LittleEndian.Uint32(buf[off:]))
	default:
		return binary.LittleEndian.Uint64(buf[off:])
	}
}

// gvarInitializer parses and evaluates a global variable's initializer.
func (p *Parser) gvarInitializer(v *ast.Var) {
	init, ty := p.parseInitializer(v.Ty)
	v.Ty = ty

	if ty.IsIncomplete || ty.Size < 0 {
		token.Fail(v.Tok, "variable has incomplete type")
	}

	head := ast.Relocation{}
	buf := make([]byte, ty.Size)
	p.writeGVarData(&head, init, ty, buf, 0)
	v.InitData = buf
	v.Rel = head.Next
}
