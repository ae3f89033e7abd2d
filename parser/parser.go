// Package parser implements a recursive descent parser over the
// preprocessed token stream, producing a typed AST with lexically
// scoped symbol tables for variables/typedefs and for struct, union and
// enum tags. It also hosts the constant-expression evaluator shared
// with the preprocessor.
package parser

import (
	"ncc/ast"
	"ncc/token"
	"ncc/types"
)

// Parser carries all mutable parsing state: the token cursor, the two
// scope stacks, the variable lists under construction and the
// per-function bookkeeping for switch and goto resolution.
type Parser struct {
	tok *token.Token

	locals  []*ast.Var
	globals []*ast.Var

	varScope   []varScopeEntry
	tagScope   []tagScopeEntry
	scopeDepth int

	labelCnt int

	curFnReturnTy *types.Type
	curSwitch     *ast.Node
	gotos         []*ast.Node
	labels        []*ast.Node
}

// varAttr accumulates storage-class specifiers seen in a declaration.
type varAttr struct {
	isTypedef bool
	isStatic  bool
	isExtern  bool
}

// Parse consumes the whole stream and returns the translation unit.
func Parse(tok *token.Token) (prog *ast.Program, err error) {
	defer token.Recover(&err)

	p := &Parser{tok: tok}
	return p.program(), nil
}

// EvalConstExpr folds one constant expression at the head of tok. It is
// the preprocessor's #if evaluator and panics with a *token.Diagnostic
// on error; callers outside the pipeline should use ConstExpr.
func EvalConstExpr(tok *token.Token) (int64, *token.Token) {
	p := &Parser{tok: tok}
	val := p.constExpr()
	return val, p.tok
}

// ConstExpr is the error-returning form of EvalConstExpr.
func ConstExpr(tok *token.Token) (val int64, rest *token.Token, err error) {
	defer token.Recover(&err)
	val, rest = EvalConstExpr(tok)
	return val, rest, nil
}

// Cursor helpers. The parser holds a single token cursor; peek/advance
// replace the rest/tok threading a pure-functional style would need.

func (p *Parser) equal(s string) bool {
	return p.tok.Is(s)
}

func (p *Parser) next() *token.Token {
	t := p.tok
	p.tok = p.tok.Next
	return t
}

func (p *Parser) skip(s string) {
	p.tok = token.Skip(p.tok, s)
}

func (p *Parser) consume(s string) bool {
	rest, ok := token.Consume(p.tok, s)
	p.tok = rest
	return ok
}

func getIdent(tok *token.Token) string {
	if tok == nil || tok.Kind != token.IDENT {
		token.Fail(tok, "expected an identifier")
	}
	return tok.Text()
}

// program = (typedef | funcdef | global-var)*
func (p *Parser) program() *ast.Program {
	var funcs []*ast.Function

	for !p.tok.IsEOF() {
		start := p.tok
		attr := varAttr{}
		basety := p.typespec(&attr)

		// typedef
		if attr.isTypedef {
			p.parseTypedef(basety)
			continue
		}

		// A bare struct/union/enum declaration.
		if p.consume(";") {
			continue
		}

		ty := p.declarator(basety)

		// Function
		if ty.Kind == types.FUNC {
			p.newGVar(getIdent(ty.Name), ty, false)
			if !p.consume(";") {
				p.tok = start
				funcs = append(funcs, p.funcdef())
			}
			continue
		}

		// Global variables
		p.globalVar(ty, &attr)
		for !p.consume(";") {
			p.skip(",")
			ty = p.declarator(basety)
			p.globalVar(ty, &attr)
		}
	}

	return &ast.Program{Globals: p.globals, Funcs: funcs}
}

func (p *Parser) parseTypedef(basety *types.Type) {
	for first := true; !p.consume(";"); first = false {
		if !first {
			p.skip(",")
		}
		ty := p.declarator(basety)
		p.pushScope(getIdent(ty.Name)).typeDef = ty
	}
}

func (p *Parser) globalVar(ty *types.Type, attr *varAttr) {
	if ty.Kind == types.VOID {
		token.Fail(ty.Name, "variable declared void")
	}
	v := p.newGVar(getIdent(ty.Name), ty, !attr.isExtern)
	v.Tok = ty.Name
	v.IsStatic = attr.isStatic

	if p.consume("=") {
		p.gvarInitializer(v)
	}
}

// funcdef = typespec declarator compound-stmt
func (p *Parser) funcdef() *ast.Function {
	p.locals = nil
	p.gotos = nil
	p.labels = nil

	attr := varAttr{}
	ty := p.typespec(&attr)
	ty = p.declarator(ty)

	fn := &ast.Function{
		Name:       getIdent(ty.Name),
		IsStatic:   attr.isStatic,
		IsVariadic: ty.IsVariadic,
	}
	p.curFnReturnTy = ty.ReturnTy

	p.enterScope()
	for t := ty.Params; t != nil; t = t.Next {
		v := p.newLVar(getIdent(t.Name), t)
		fn.Params = append(fn.Params, v)
	}

	p.skip("{")
	fn.Body = p.compoundStmt()
	fn.Locals = p.locals
	p.leaveScope()

	p.resolveGotos(fn)
	return fn
}

// resolveGotos checks that every goto in the function names a defined
// label.
func (p *Parser) resolveGotos(fn *ast.Function) {
	defined := map[string]bool{}
	for _, l := range p.labels {
		defined[l.LabelName] = true
	}
	for _, g := range p.gotos {
		if !defined[g.LabelName] {
			token.Fail(g.Tok, "use of undeclared label '%s'", g.LabelName)
		}
	}
}

// Type-specifier counters. Each typename keyword gets a two-bit slot so
// repeated keywords overflow into an invalid combination.
const (
	tsVoid = 1 << (2 * iota)
	tsBool
	tsChar
	tsShort
	tsInt
	tsLong
	tsFloat
	tsDouble
	tsOther
	tsSigned   = 1 << 20
	tsUnsigned = 1 << 22
)

// typespec = typename typename*
//
// The order of typenames does not matter: `int long static` means the
// same as `static long int`. Only a limited set of combinations is
// valid; the counter encoding lets one switch validate them all.
func (p *Parser) typespec(attr *varAttr) *types.Type {
	ty := types.Int
	counter := 0
	isConst := false

	for p.isTypename(p.tok) {
		tok := p.tok

		// Storage-class specifiers.
		if p.equal("typedef") || p.equal("static") || p.equal("extern") {
			if attr == nil {
				token.Fail(tok, "storage class specifier is not allowed in this context")
			}
			switch {
			case p.equal("typedef"):
				attr.isTypedef = true
			case p.equal("static"):
				attr.isStatic = true
			default:
				attr.isExtern = true
			}
			if attr.isTypedef && (attr.isStatic || attr.isExtern) {
				token.Fail(tok, "typedef may not be used together with static or extern")
			}
			p.next()
			continue
		}

		if p.consume("const") {
			isConst = true
			continue
		}

		// User-defined types.
		ty2 := p.findTypedef(tok)
		if p.equal("struct") || p.equal("union") || p.equal("enum") || ty2 != nil {
			if counter != 0 {
				break
			}
			switch {
			case p.equal("struct"):
				p.next()
				ty = p.structDecl()
			case p.equal("union"):
				p.next()
				ty = p.unionDecl()
			case p.equal("enum"):
				p.next()
				ty = p.enumSpecifier()
			default:
				ty = ty2
				p.next()
			}
			counter += tsOther
			continue
		}

		// Built-in types.
		switch {
		case p.equal("void"):
			counter += tsVoid
		case p.equal("_Bool"):
			counter += tsBool
		case p.equal("char"):
			counter += tsChar
		case p.equal("short"):
			counter += tsShort
		case p.equal("int"):
			counter += tsInt
		case p.equal("long"):
			counter += tsLong
		case p.equal("float"):
			counter += tsFloat
		case p.equal("double"):
			counter += tsDouble
		case p.equal("signed"):
			counter |= tsSigned
		case p.equal("unsigned"):
			counter |= tsUnsigned
		default:
			token.Fail(tok, "internal error")
		}

		switch counter {
		case tsVoid:
			ty = types.Void
		case tsBool:
			ty = types.Bool
		case tsChar, tsSigned + tsChar:
			ty = types.Char
		case tsUnsigned + tsChar:
			ty = types.UChar
		case tsShort, tsShort + tsInt,
			tsSigned + tsShort, tsSigned + tsShort + tsInt:
			ty = types.Short
		case tsUnsigned + tsShort, tsUnsigned + tsShort + tsInt:
			ty = types.UShort
		case tsInt, tsSigned, tsSigned + tsInt:
			ty = types.Int
		case tsUnsigned, tsUnsigned + tsInt:
			ty = types.UInt
		case tsLong, tsLong + tsInt, tsLong + tsLong, tsLong + tsLong + tsInt,
			tsSigned + tsLong, tsSigned + tsLong + tsInt,
			tsSigned + tsLong + tsLong, tsSigned + tsLong + tsLong + tsInt:
			ty = types.Long
		case tsUnsigned + tsLong, tsUnsigned + tsLong + tsInt,
			tsUnsigned + tsLong + tsLong, tsUnsigned + tsLong + tsLong + tsInt:
			ty = types.ULong
		case tsFloat:
			ty = types.Float
		case tsDouble, tsLong + tsDouble:
			ty = types.Double
		default:
			token.Fail(tok, "invalid type")
		}

		p.next()
	}

	if isConst {
		ty = types.Copy(ty)
		ty.IsConst = true
	}
	return ty
}

// isTypename reports whether tok starts a declaration.
func (p *Parser) isTypename(tok *token.Token) bool {
	switch tok.Text() {
	case "void", "_Bool", "char", "short", "int", "long", "float", "double",
		"signed", "unsigned", "struct", "union", "enum",
		"typedef", "static", "extern", "const":
		return true
	}
	return p.findTypedef(tok) != nil
}

// funcParams = ("void" ")") | (param ("," param)* (","? "...")? ")")
// param = typespec declarator
func (p *Parser) funcParams(ty *types.Type) *types.Type {
	if p.equal("void") && p.tok.Next.Is(")") {
		p.next()
		p.next()
		return types.FuncType(ty)
	}

	head := types.Type{}
	cur := &head
	isVariadic := false

	for !p.equal(")") {
		if cur != &head {
			p.skip(",")
		}

		if p.equal("...") {
			isVariadic = true
			p.next()
			break
		}

		basety := p.typespec(nil)
		ty2 := p.declarator(basety)

		// Arrays in parameter position decay to pointers.
		if ty2.Kind == types.ARRAY {
			name := ty2.Name
			ty2 = types.PointerTo(ty2.Base)
			ty2.Name = name
		}

		cur.Next = types.Copy(ty2)
		cur = cur.Next
	}
	p.skip(")")

	fn := types.FuncType(ty)
	fn.Params = head.Next
	fn.IsVariadic = isVariadic
	return fn
}

// arrayDimensions = constExpr? "]" typeSuffix
func (p *Parser) arrayDimensions(ty *types.Type) *types.Type {
	if p.consume("]") {
		ty = p.typeSuffix(ty)
		arr := types.ArrayOf(ty, 0)
		arr.ArrayLen = -1
		arr.IsIncomplete = true
		return arr
	}

	sz := p.constExpr()
	p.skip("]")
	ty = p.typeSuffix(ty)
	return types.ArrayOf(ty, int(sz))
}

// typeSuffix = "(" funcParams | "[" arrayDimensions | ε
func (p *Parser) typeSuffix(ty *types.Type) *types.Type {
	if p.consume("(") {
		return p.funcParams(ty)
	}
	if p.consume("[") {
		return p.arrayDimensions(ty)
	}
	return ty
}

// declarator = "*"* ("(" declarator ")" | ident) typeSuffix
//
// A parenthesized declarator binds tighter than the suffix that follows
// it, which is what distinguishes a pointer-to-function from a
// function-returning-pointer. The nested declarator is parsed against a
// placeholder type that is patched once the suffix is known.
func (p *Parser) declarator(ty *types.Type) *types.Type {
	for p.consume("*") {
		ty = types.PointerTo(ty)
	}

	if p.equal("(") {
		p.next()
		placeholder := &types.Type{}
		newTy := p.declarator(placeholder)
		p.skip(")")
		*placeholder = *p.typeSuffix(ty)
		return newTy
	}

	// The name may be omitted where a parameter ends (`,` `)`) or an
	// array suffix follows; Name is then nil.
	namePos := p.tok
	var name *token.Token
	if p.tok.Kind == token.IDENT {
		name = p.next()
	} else if !p.equal(",") && !p.equal(")") && !p.equal("[") {
		token.Fail(p.tok, "expected a variable name")
	}

	ty = p.typeSuffix(ty)
	ty = types.Copy(ty)
	ty.Name = name
	ty.NamePos = namePos
	return ty
}

// abstractDeclarator = "*"* ("(" abstractDeclarator ")")? typeSuffix
func (p *Parser) abstractDeclarator(ty *types.Type) *types.Type {
	for p.consume("*") {
		ty = types.PointerTo(ty)
	}

	if p.equal("(") {
		p.next()
		placeholder := &types.Type{}
		newTy := p.abstractDeclarator(placeholder)
		p.skip(")")
		*placeholder = *p.typeSuffix(ty)
		return newTy
	}

	return p.typeSuffix(ty)
}

// typename = typespec abstractDeclarator
func (p *Parser) typename() *types.Type {
	ty := p.typespec(nil)
	return p.abstractDeclarator(ty)
}

// enumSpecifier = ident? "{" enumList? "}" | ident
// enumList = ident ("=" constExpr)? ("," ident ("=" constExpr)?)* ","?
func (p *Parser) enumSpecifier() *types.Type {
	ty := types.EnumType()

	var tag *token.Token
	if p.tok.Kind == token.IDENT {
		tag = p.next()
	}

	if tag != nil && !p.equal("{") {
		sc := p.findTag(tag)
		if sc == nil {
			token.Fail(tag, "unknown enum type")
		}
		if sc.ty.Kind != types.ENUM {
			token.Fail(tag, "not an enum tag")
		}
		return sc.ty
	}

	p.skip("{")

	// Read the enumerators, entering each into the variable scope.
	val := 0
	for first := true; !p.consume("}"); first = false {
		if !first {
			p.skip(",")
			if p.consume("}") {
				break
			}
		}

		name := getIdent(p.tok)
		p.next()

		if p.consume("=") {
			val = int(p.constExpr())
		}

		sc := p.pushScope(name)
		sc.enumTy = ty
		sc.enumVal = val
		val++
	}

	if tag != nil {
		p.pushTagScope(tag, ty)
	}
	return ty
}

// declaration = typespec (declarator ("=" initializer)?
//               ("," declarator ("=" initializer)?)*)? ";"
func (p *Parser) declaration() *ast.Node {
	start := p.tok
	attr := varAttr{}
	basety := p.typespec(&attr)

	if attr.isTypedef {
		p.parseTypedef(basety)
		return ast.NewNode(ast.BLOCK, start)
	}

	head := ast.Node{}
	cur := &head

	for first := true; !p.equal(";"); first = false {
		if !first {
			p.skip(",")
		}

		ty := p.declarator(basety)
		if ty.Kind == types.VOID {
			token.Fail(ty.Name, "variable declared void")
		}

		if attr.isStatic {
			// Block-scope statics live in the data segment under an
			// anonymous label.
			v := p.newAnonGVar(getIdent(ty.Name), ty)
			if p.consume("=") {
				p.gvarInitializer(v)
			}
			continue
		}

		if attr.isExtern {
			p.newGVar(getIdent(ty.Name), ty, false)
			continue
		}

		v := p.newLVar(getIdent(ty.Name), ty)
		v.Tok = ty.Name

		if p.consume("=") {
			node := p.lvarInitializer(v, ty.Name)
			cur.Next = ast.NewUnary(ast.EXPRSTMT, node, ty.Name)
			cur = cur.Next
		}

		if v.Ty.IsIncomplete || v.Ty.Size < 0 {
			token.Fail(ty.Name, "variable has incomplete type")
		}
	}

	node := ast.NewNode(ast.BLOCK, start)
	node.Body = head.Next
	p.skip(";")
	return node
}

// newAnonGVar registers a block-scope static: visible under its source
// name in the current scope, emitted under a fresh label.
func (p *Parser) newAnonGVar(name string, ty *types.Type) *ast.Var {
	v := &ast.Var{Name: p.newLabel(), Ty: ty, Align: ty.Align, IsStatic: true}
	p.globals = append(p.globals, v)
	p.pushScope(name).v = v
	return v
}

// structMembers = (typespec (declarator? (":" constExpr)?)
//                  ("," declarator (":" constExpr)?)* ";")* "}"
func (p *Parser) structMembers(ty *types.Type) {
	head := types.Member{}
	cur := &head

	for !p.consume("}") {
		basety := p.typespec(nil)

		for first := true; !p.consume(";"); first = false {
			if !first {
				p.skip(",")
			}

			mem := &types.Member{Tok: p.tok}

			if p.equal(":") {
				// Anonymous bitfield.
				mem.Ty = basety
			} else {
				mem.Ty = p.declarator(basety)
				mem.Name = mem.Ty.Name
			}
			mem.Align = mem.Ty.Align

			if p.consume(":") {
				mem.IsBitfield = true
				mem.BitWidth = int(p.constExpr())
				if mem.BitWidth < 0 || mem.BitWidth > mem.Ty.Size*8 {
					token.Fail(mem.Tok, "invalid bitfield width")
				}
			}

			cur.Next = mem
			cur = cur.Next
		}
	}

	ty.Members = head.Next
}

// structUnionDecl parses the common tag-and-members form.
func (p *Parser) structUnionDecl(kind types.TypeKind) *types.Type {
	var tag *token.Token
	if p.tok.Kind == token.IDENT {
		tag = p.next()
	}

	if tag != nil && !p.equal("{") {
		sc := p.findTag(tag)
		if sc == nil {
			token.Fail(tag, "unknown struct type")
		}
		return sc.ty
	}

	p.skip("{")

	ty := types.StructType()
	ty.Kind = kind
	p.structMembers(ty)

	if tag != nil {
		p.pushTagScope(tag, ty)
	}
	return ty
}

// structDecl lays struct members out with alignment accumulation.
// A bitfield that would straddle its storage unit is moved to the next
// one; it never spans units.
func (p *Parser) structDecl() *types.Type {
	ty := p.structUnionDecl(types.STRUCT)
	if !ty.IsIncomplete {
		// A tag reference to an already laid-out struct.
		return ty
	}

	bits := 0
	for mem := ty.Members; mem != nil; mem = mem.Next {
		if mem.IsBitfield {
			unit := mem.Ty.Size * 8
			if mem.BitWidth == 0 {
				// Zero-width bitfields force unit alignment.
				bits = types.AlignTo(bits, unit)
				continue
			}
			if bits/unit != (bits+mem.BitWidth-1)/unit {
				bits = types.AlignTo(bits, unit)
			}
			mem.Off = types.AlignDown(bits/8, mem.Ty.Size)
			mem.BitOffset = bits - mem.Off*8
			bits += mem.BitWidth
		} else {
			bits = types.AlignTo(bits, mem.Align*8)
			mem.Off = bits / 8
			bits += mem.Ty.Size * 8
		}

		if ty.Align < mem.Align {
			ty.Align = mem.Align
		}
	}

	ty.Size = types.AlignTo(bits, ty.Align*8) / 8
	ty.IsIncomplete = false
	return ty
}

// unionDecl places every member at offset zero and takes the maximum
// size and alignment.
func (p *Parser) unionDecl() *types.Type {
	ty := p.structUnionDecl(types.UNION)
	if !ty.IsIncomplete {
		return ty
	}

	for mem := ty.Members; mem != nil; mem = mem.Next {
		if ty.Align < mem.Align {
			ty.Align = mem.Align
		}
		if ty.Size < mem.Ty.Size {
			ty.Size = mem.Ty.Size
		}
	}
	ty.Size = types.AlignTo(ty.Size, ty.Align)
	ty.IsIncomplete = false
	return ty
}

// stmt = "return" expr? ";"
//      | "if" "(" expr ")" stmt ("else" stmt)?
//      | "for" "(" (declaration | exprStmt? ";") expr? ";" expr? ")" stmt
//      | "while" "(" expr ")" stmt
//      | "do" stmt "while" "(" expr ")" ";"
//      | "switch" "(" expr ")" stmt
//      | "case" constExpr ":" stmt
//      | "default" ":" stmt
//      | "goto" ident ";"
//      | "break" ";" | "continue" ";"
//      | ident ":" stmt
//      | "{" compound-stmt "}"
//      | expr-stmt ";"
func (p *Parser) stmt() *ast.Node {
	switch {
	case p.equal("return"):
		node := ast.NewNode(ast.RETURN, p.next())
		if p.consume(";") {
			return node
		}
		exp := p.expr()
		p.skip(";")

		ast.AddType(exp)
		if p.curFnReturnTy != nil && p.curFnReturnTy.Kind != types.STRUCT &&
			p.curFnReturnTy.Kind != types.UNION && p.curFnReturnTy.Kind != types.VOID {
			exp = ast.NewCast(exp, p.curFnReturnTy)
		}
		node.Lhs = exp
		return node

	case p.equal("if"):
		node := ast.NewNode(ast.IF, p.next())
		p.skip("(")
		node.Cond = p.expr()
		p.skip(")")
		node.Then = p.stmt()
		if p.consume("else") {
			node.Els = p.stmt()
		}
		return node

	case p.equal("for"):
		node := ast.NewNode(ast.FOR, p.next())
		p.skip("(")

		p.enterScope()
		if p.isTypename(p.tok) {
			node.Init = p.declaration()
		} else {
			if !p.equal(";") {
				node.Init = p.exprStmt()
			}
			p.skip(";")
		}

		if !p.equal(";") {
			node.Cond = p.expr()
		}
		p.skip(";")

		if !p.equal(")") {
			node.Inc = p.exprStmt()
		}
		p.skip(")")

		node.Then = p.stmt()
		p.leaveScope()
		return node

	case p.equal("while"):
		node := ast.NewNode(ast.FOR, p.next())
		p.skip("(")
		node.Cond = p.expr()
		p.skip(")")
		node.Then = p.stmt()
		return node

	case p.equal("do"):
		node := ast.NewNode(ast.DO, p.next())
		node.Then = p.stmt()
		p.skip("while")
		p.skip("(")
		node.Cond = p.expr()
		p.skip(")")
		p.skip(";")
		return node

	case p.equal("switch"):
		node := ast.NewNode(ast.SWITCH, p.next())
		p.skip("(")
		node.Cond = p.expr()
		p.skip(")")

		sw := p.curSwitch
		p.curSwitch = node
		node.Then = p.stmt()
		p.curSwitch = sw
		return node

	case p.equal("case"):
		if p.curSwitch == nil {
			token.Fail(p.tok, "stray case")
		}
		node := ast.NewNode(ast.CASE, p.next())
		node.Val = p.constExpr()
		p.skip(":")
		node.Lhs = p.stmt()
		node.CaseNext = p.curSwitch.Cases
		p.curSwitch.Cases = node
		return node

	case p.equal("default"):
		if p.curSwitch == nil {
			token.Fail(p.tok, "stray default")
		}
		node := ast.NewNode(ast.CASE, p.next())
		p.skip(":")
		node.Lhs = p.stmt()
		p.curSwitch.DefaultCase = node
		return node

	case p.equal("goto"):
		node := ast.NewNode(ast.GOTO, p.next())
		node.LabelName = getIdent(p.tok)
		p.next()
		p.skip(";")
		p.gotos = append(p.gotos, node)
		return node

	case p.equal("break"):
		node := ast.NewNode(ast.BREAK, p.next())
		p.skip(";")
		return node

	case p.equal("continue"):
		node := ast.NewNode(ast.CONTINUE, p.next())
		p.skip(";")
		return node

	case p.tok.Kind == token.IDENT && p.tok.Next.Is(":"):
		node := ast.NewNode(ast.LABEL, p.tok)
		node.LabelName = p.tok.Text()
		p.next()
		p.next()
		node.Lhs = p.stmt()
		p.labels = append(p.labels, node)
		return node

	case p.equal("{"):
		p.next()
		return p.compoundStmt()
	}

	node := p.exprStmt()
	p.skip(";")
	return node
}

// compoundStmt parses up to the closing brace, pushing a scope.
func (p *Parser) compoundStmt() *ast.Node {
	node := ast.NewNode(ast.BLOCK, p.tok)

	head := ast.Node{}
	cur := &head

	p.enterScope()
	for !p.consume("}") {
		if p.isTypename(p.tok) {
			cur.Next = p.declaration()
		} else {
			cur.Next = p.stmt()
		}
		cur = cur.Next
		ast.AddType(cur)
	}
	p.leaveScope()

	node.Body = head.Next
	return node
}

// exprStmt wraps an expression in a statement node. The trailing
// semicolon is left for the caller, so `for` clauses can share this.
func (p *Parser) exprStmt() *ast.Node {
	if p.equal(";") {
		// Null statement.
		return ast.NewNode(ast.BLOCK, p.tok)
	}
	node := ast.NewNode(ast.EXPRSTMT, p.tok)
	node.Lhs = p.expr()
	return node
}
