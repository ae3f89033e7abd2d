package parser

import (
	"strconv"

	"ncc/ast"
	"ncc/token"
	"ncc/types"
)

// varScopeEntry binds an identifier to a variable, a typedef or an
// enumerator constant within one lexical depth.
type varScopeEntry struct {
	name  string
	depth int

	v       *ast.Var
	typeDef *types.Type
	enumTy  *types.Type
	enumVal int
}

// tagScopeEntry binds a struct/union/enum tag within one lexical depth.
type tagScopeEntry struct {
	name  string
	depth int
	ty    *types.Type
}

// enterScope opens a new block scope.
func (p *Parser) enterScope() {
	p.scopeDepth++
}

// leaveScope pops every binding deeper than the new depth from both
// scope stacks.
func (p *Parser) leaveScope() {
	p.scopeDepth--

	n := len(p.varScope)
	for n > 0 && p.varScope[n-1].depth > p.scopeDepth {
		n--
	}
	p.varScope = p.varScope[:n]

	n = len(p.tagScope)
	for n > 0 && p.tagScope[n-1].depth > p.scopeDepth {
		n--
	}
	p.tagScope = p.tagScope[:n]
}

// findVar looks tok's spelling up in the variable scope, innermost
// binding first.
func (p *Parser) findVar(tok *token.Token) *varScopeEntry {
	for i := len(p.varScope) - 1; i >= 0; i-- {
		if p.varScope[i].name == tok.Text() {
			return &p.varScope[i]
		}
	}
	return nil
}

func (p *Parser) findTag(tok *token.Token) *tagScopeEntry {
	for i := len(p.tagScope) - 1; i >= 0; i-- {
		if p.tagScope[i].name == tok.Text() {
			return &p.tagScope[i]
		}
	}
	return nil
}

func (p *Parser) pushScope(name string) *varScopeEntry {
	p.varScope = append(p.varScope, varScopeEntry{name: name, depth: p.scopeDepth})
	return &p.varScope[len(p.varScope)-1]
}

func (p *Parser) pushTagScope(tok *token.Token, ty *types.Type) {
	p.tagScope = append(p.tagScope, tagScopeEntry{
		name:  tok.Text(),
		depth: p.scopeDepth,
		ty:    ty,
	})
}

// findTypedef returns the typedef bound to tok, if any.
func (p *Parser) findTypedef(tok *token.Token) *types.Type {
	if tok.Kind != token.IDENT {
		return nil
	}
	if sc := p.findVar(tok); sc != nil {
		return sc.typeDef
	}
	return nil
}

// newLVar creates a local variable in the current function and scope.
func (p *Parser) newLVar(name string, ty *types.Type) *ast.Var {
	v := &ast.Var{Name: name, Ty: ty, IsLocal: true, Align: ty.Align}
	p.locals = append(p.locals, v)
	p.pushScope(name).v = v
	return v
}

// newGVar creates a global variable binding. emit controls whether the
// variable is part of the output object (function declarations and
// extern variables are not).
func (p *Parser) newGVar(name string, ty *types.Type, emit bool) *ast.Var {
	v := &ast.Var{Name: name, Ty: ty, Align: ty.Align}
	if emit {
		p.globals = append(p.globals, v)
	}
	p.pushScope(name).v = v
	return v
}

// newLabel returns a fresh anonymous data label.
func (p *Parser) newLabel() string {
	label := ".L.data." + strconv.Itoa(p.labelCnt)
	p.labelCnt++
	return label
}

// newStringLiteral materializes a string literal as an anonymous global
// array of char, NUL included.
func (p *Parser) newStringLiteral(tok *token.Token) *ast.Var {
	ty := types.ArrayOf(types.Char, len(tok.Str))
	v := p.newGVar(p.newLabel(), ty, true)
	v.Tok = tok
	v.InitData = tok.Str
	return v
}
