// Package codegen emits x86-64 assembly in the GAS Intel dialect for
// one translation unit. Expressions evaluate on a virtual stack mapped
// onto the registers r10-r15 (xmm8-xmm13 for floating
// values), spilling to the machine stack past depth six. Calls follow
// the SysV calling convention.
package codegen

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"ncc/ast"
	"ncc/token"
	"ncc/types"
)

// Options control code generation.
type Options struct {
	// FPIC emits position-independent references for globals and calls.
	FPIC bool
}

var argRegs = []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}

// Generator holds the state of one emission run.
type Generator struct {
	w    *bufio.Writer
	opts Options

	stack regStack

	labelCnt int
	brk      []string // break target stack
	cont     []string // continue target stack

	curFn *ast.Function
}

// Generate writes the assembly for prog. files is the input-file
// registry backing the .file directives.
func Generate(w io.Writer, prog *ast.Program, files []*token.File, opts Options) (err error) {
	defer token.Recover(&err)

	g := &Generator{w: bufio.NewWriter(w), opts: opts}
	g.stack.g = g

	g.println(".intel_syntax noprefix")
	for _, f := range files {
		g.printf(".file %d \"%s\"\n", f.FileNo, f.Name)
	}

	g.emitData(prog)
	g.emitText(prog)

	return g.w.Flush()
}

func (g *Generator) printf(format string, args ...any) {
	fmt.Fprintf(g.w, format, args...)
}

func (g *Generator) println(s string) {
	fmt.Fprintln(g.w, s)
}

func (g *Generator) count() int {
	g.labelCnt++
	return g.labelCnt
}

// emitData writes every global object into .data or .bss.
func (g *Generator) emitData(prog *ast.Program) {
	for _, v := range prog.Globals {
		if !v.IsStatic && !strings.HasPrefix(v.Name, ".L") {
			g.printf(".globl %s\n", v.Name)
		}

		if v.InitData == nil {
			g.println(".bss")
			g.printf(".align %d\n", v.Align)
			g.printf("%s:\n", v.Name)
			g.printf("  .zero %d\n", v.Ty.Size)
			continue
		}

		g.println(".data")
		g.printf(".align %d\n", v.Align)
		g.printf("%s:\n", v.Name)

		rel := v.Rel
		for pos := 0; pos < len(v.InitData); {
			if rel != nil && rel.Offset == pos {
				g.printf("  .quad %s%+d\n", rel.Label, rel.Addend)
				rel = rel.Next
				pos += 8
			} else {
				g.printf("  .byte %d\n", v.InitData[pos])
				pos++
			}
		}
	}
}

func (g *Generator) emitText(prog *ast.Program) {
	for _, fn := range prog.Funcs {
		if !fn.IsStatic {
			g.printf(".globl %s\n", fn.Name)
		}
		g.println(".text")
		g.printf("%s:\n", fn.Name)
		g.curFn = fn

		// Prologue. r12-r15 are spilled into the 32 bytes the frame
		// layout reserved below rbp.
		g.println("  push rbp")
		g.println("  mov rbp, rsp")
		g.printf("  sub rsp, %d\n", fn.StackSize)
		g.println("  mov [rbp-8], r12")
		g.println("  mov [rbp-16], r13")
		g.println("  mov [rbp-24], r14")
		g.println("  mov [rbp-32], r15")

		if fn.IsVariadic {
			g.emitVarArgSaveArea()
		}

		// Save passed arguments into their parameter slots.
		gp, fp := 0, 0
		for _, v := range fn.Params {
			if types.IsFlonum(v.Ty) {
				if fp >= 8 {
					token.Fail(v.Tok, "stack-passed parameters are not supported")
				}
				mov := "movss"
				if v.Ty.Size == 8 {
					mov = "movsd"
				}
				g.printf("  %s [rbp-%d], xmm%d\n", mov, v.Offset, fp)
				fp++
			} else {
				if gp >= len(argRegs) {
					token.Fail(v.Tok, "stack-passed parameters are not supported")
				}
				g.printf("  mov [rbp-%d], %s\n", v.Offset, sized(argRegs[gp], v.Ty.Size))
				gp++
			}
		}

		g.genStmt(fn.Body)
		if g.stack.top() != 0 {
			token.Fail(fn.Body.Tok, "internal error: register stack not empty")
		}

		// Epilogue.
		g.printf(".L.return.%s:\n", fn.Name)
		g.println("  mov r12, [rbp-8]")
		g.println("  mov r13, [rbp-16]")
		g.println("  mov r14, [rbp-24]")
		g.println("  mov r15, [rbp-32]")
		g.println("  mov rsp, rbp")
		g.println("  pop rbp")
		g.println("  ret")
	}
}

// emitVarArgSaveArea spills the argument registers into the 96-byte
// register save area a variadic frame reserves between rbp-128 and
// rbp-32: six general-purpose words followed by six xmm words.
func (g *Generator) emitVarArgSaveArea() {
	for i, r := range argRegs {
		g.printf("  mov [rbp-%d], %s\n", 128-8*i, r)
	}
	for i := 0; i < 6; i++ {
		g.printf("  movsd [rbp-%d], xmm%d\n", 80-8*i, i)
	}
}

// genStmt emits one statement. Statements leave the register stack as
// they found it.
func (g *Generator) genStmt(node *ast.Node) {
	if node.Tok != nil && node.Tok.File != nil {
		g.printf("  .loc %d %d\n", node.Tok.File.FileNo, node.Tok.LineNo)
	}

	switch node.Kind {
	case ast.BLOCK:
		for n := node.Body; n != nil; n = n.Next {
			g.genStmt(n)
		}

	case ast.EXPRSTMT:
		g.genExpr(node.Lhs)
		g.stack.pop()

	case ast.RETURN:
		if node.Lhs != nil {
			g.genExpr(node.Lhs)
			if types.IsFlonum(node.Lhs.Ty) {
				mov := "movss"
				if node.Lhs.Ty.Size == 8 {
					mov = "movsd"
				}
				g.printf("  %s xmm0, %s\n", mov, g.stack.fp(0))
			} else {
				g.printf("  mov rax, %s\n", g.stack.gp(0))
			}
			g.stack.pop()
		}
		g.printf("  jmp .L.return.%s\n", g.curFn.Name)

	case ast.IF:
		c := g.count()
		g.genExpr(node.Cond)
		g.cmpZero(node.Cond.Ty)
		g.stack.pop()
		g.printf("  je .L.else.%d\n", c)
		g.genStmt(node.Then)
		g.printf("  jmp .L.end.%d\n", c)
		g.printf(".L.else.%d:\n", c)
		if node.Els != nil {
			g.genStmt(node.Els)
		}
		g.printf(".L.end.%d:\n", c)

	case ast.FOR:
		c := g.count()
		brk := ".L.break." + strconv.Itoa(c)
		cont := ".L.continue." + strconv.Itoa(c)
		g.brk = append(g.brk, brk)
		g.cont = append(g.cont, cont)

		if node.Init != nil {
			g.genStmt(node.Init)
		}
		g.printf(".L.begin.%d:\n", c)
		if node.Cond != nil {
			g.genExpr(node.Cond)
			g.cmpZero(node.Cond.Ty)
			g.stack.pop()
			g.printf("  je %s\n", brk)
		}
		g.genStmt(node.Then)
		g.printf("%s:\n", cont)
		if node.Inc != nil {
			g.genStmt(node.Inc)
		}
		g.printf("  jmp .L.begin.%d\n", c)
		g.printf("%s:\n", brk)

		g.brk = g.brk[:len(g.brk)-1]
		g.cont = g.cont[:len(g.cont)-1]

	case ast.DO:
		c := g.count()
		brk := ".L.break." + strconv.Itoa(c)
		cont := ".L.continue." + strconv.Itoa(c)
		g.brk = append(g.brk, brk)
		g.cont = append(g.cont, cont)

		g.printf(".L.begin.%d:\n", c)
		g.genStmt(node.Then)
		g.printf("%s:\n", cont)
		g.genExpr(node.Cond)
		g.cmpZero(node.Cond.Ty)
		g.stack.pop()
		g.printf("  jne .L.begin.%d\n", c)
		g.printf("%s:\n", brk)

		g.brk = g.brk[:len(g.brk)-1]
		g.cont = g.cont[:len(g.cont)-1]

	case ast.SWITCH:
		c := g.count()
		brk := ".L.break." + strconv.Itoa(c)
		g.brk = append(g.brk, brk)

		// The scrutinee moves to rax so its slot can be released before
		// any branching happens.
		g.genExpr(node.Cond)
		g.printf("  mov rax, %s\n", g.stack.gp(0))
		g.stack.pop()

		// Compare the scrutinee against each case in turn.
		for cs := node.Cases; cs != nil; cs = cs.CaseNext {
			cs.CaseLabel = ".L.case." + strconv.Itoa(g.count())
			if cs.Val == int64(int32(cs.Val)) {
				g.printf("  cmp rax, %d\n", cs.Val)
			} else {
				g.printf("  movabs rdx, %d\n", cs.Val)
				g.println("  cmp rax, rdx")
			}
			g.printf("  je %s\n", cs.CaseLabel)
		}
		if node.DefaultCase != nil {
			node.DefaultCase.CaseLabel = ".L.default." + strconv.Itoa(c)
			g.printf("  jmp %s\n", node.DefaultCase.CaseLabel)
		} else {
			g.printf("  jmp %s\n", brk)
		}

		g.genStmt(node.Then)
		g.printf("%s:\n", brk)
		g.brk = g.brk[:len(g.brk)-1]

	case ast.CASE:
		g.printf("%s:\n", node.CaseLabel)
		g.genStmt(node.Lhs)

	case ast.BREAK:
		if len(g.brk) == 0 {
			token.Fail(node.Tok, "stray break")
		}
		g.printf("  jmp %s\n", g.brk[len(g.brk)-1])

	case ast.CONTINUE:
		if len(g.cont) == 0 {
			token.Fail(node.Tok, "stray continue")
		}
		g.printf("  jmp %s\n", g.cont[len(g.cont)-1])

	case ast.GOTO:
		g.printf("  jmp .L.label.%s.%s\n", g.curFn.Name, node.LabelName)

	case ast.LABEL:
		g.printf(".L.label.%s.%s:\n", g.curFn.Name, node.LabelName)
		g.genStmt(node.Lhs)

	default:
		token.Fail(node.Tok, "internal error: invalid statement")
	}
}

// genAddr pushes the address of an lvalue onto the register stack.
func (g *Generator) genAddr(node *ast.Node) {
	switch node.Kind {
	case ast.VARREF:
		r := g.stack.push(false)
		if node.Var.IsLocal {
			g.printf("  lea %s, [rbp-%d]\n", r, node.Var.Offset)
		} else if g.opts.FPIC {
			g.printf("  mov %s, [rip+%s@GOTPCREL]\n", r, node.Var.Name)
		} else {
			g.printf("  lea %s, [rip+%s]\n", r, node.Var.Name)
		}

	case ast.DEREF:
		g.genExpr(node.Lhs)

	case ast.MEMBER:
		g.genAddr(node.Lhs)
		g.printf("  add %s, %d\n", g.stack.gp(0), node.Mem.Off)

	case ast.COMMA:
		g.genExpr(node.Lhs)
		g.stack.pop()
		g.genAddr(node.Rhs)

	default:
		token.Fail(node.Tok, "not an lvalue")
	}
}

// load dereferences the address on top of the stack into a value of
// type ty. Arrays, structs, unions and functions stay as addresses.
func (g *Generator) load(ty *types.Type) {
	switch ty.Kind {
	case types.ARRAY, types.STRUCT, types.UNION, types.FUNC:
		return
	}

	r := g.stack.gp(0)

	if types.IsFlonum(ty) {
		g.stack.setBank(true)
		mov := "movss"
		if ty.Size == 8 {
			mov = "movsd"
		}
		g.printf("  %s %s, [%s]\n", mov, g.stack.fp(0), r)
		return
	}

	// Values live in registers fully extended to 64 bits according to
	// their type's signedness.
	switch {
	case ty.Size == 1 && ty.IsUnsigned, ty.Kind == types.BOOL:
		g.printf("  movzx %s, byte ptr [%s]\n", r, r)
	case ty.Size == 1:
		g.printf("  movsx %s, byte ptr [%s]\n", r, r)
	case ty.Size == 2 && ty.IsUnsigned:
		g.printf("  movzx %s, word ptr [%s]\n", r, r)
	case ty.Size == 2:
		g.printf("  movsx %s, word ptr [%s]\n", r, r)
	case ty.Size == 4 && ty.IsUnsigned:
		g.printf("  mov %s, dword ptr [%s]\n", sized(r, 4), r)
	case ty.Size == 4:
		g.printf("  movsxd %s, dword ptr [%s]\n", r, r)
	default:
		g.printf("  mov %s, [%s]\n", r, r)
	}
}

// store writes the value in the second stack slot through the address
// on top, pops the address and leaves the value as the result.
func (g *Generator) store(ty *types.Type) {
	rd := g.stack.gp(0) // address

	switch {
	case ty.Kind == types.STRUCT || ty.Kind == types.UNION:
		rs := g.stack.gp(1) // source address
		for i := 0; i < ty.Size; i++ {
			g.printf("  mov al, byte ptr [%s+%d]\n", rs, i)
			g.printf("  mov byte ptr [%s+%d], al\n", rd, i)
		}

	case types.IsFlonum(ty):
		mov := "movss"
		if ty.Size == 8 {
			mov = "movsd"
		}
		g.printf("  %s [%s], %s\n", mov, rd, g.stack.fp(1))

	default:
		g.printf("  mov [%s], %s\n", rd, sized(g.stack.gp(1), ty.Size))
	}

	g.stack.pop()
}

// storeBitfield read-modify-writes a bitfield member. The address of
// the containing storage unit is on top, the value below it.
func (g *Generator) storeBitfield(mem *types.Member) {
	rd := g.stack.gp(0)
	rs := g.stack.gp(1)
	unit := mem.Ty.Size
	mask := uint64(1)<<uint(mem.BitWidth) - 1

	g.printf("  mov rax, %s\n", rs)
	g.printf("  movabs rcx, %d\n", mask)
	g.println("  and rax, rcx")
	g.printf("  shl rax, %d\n", mem.BitOffset)

	g.loadUnit("rdx", rd, unit)
	g.printf("  movabs rcx, %d\n", ^(mask << uint(mem.BitOffset)))
	g.println("  and rdx, rcx")
	g.println("  or rdx, rax")
	g.printf("  mov [%s], %s\n", rd, sized("rdx", unit))

	g.stack.pop()
}

func (g *Generator) loadUnit(dst, addr string, size int) {
	switch size {
	case 1:
		g.printf("  movzx %s, byte ptr [%s]\n", dst, addr)
	case 2:
		g.printf("  movzx %s, word ptr [%s]\n", dst, addr)
	case 4:
		g.printf("  mov %s, dword ptr [%s]\n", sized(dst, 4), addr)
	default:
		g.printf("  mov %s, [%s]\n", dst, addr)
	}
}

// cmpZero compares the value on top of the stack against zero, setting
// the flags for a je/jne.
func (g *Generator) cmpZero(ty *types.Type) {
	if types.IsFlonum(ty) {
		cmp := "ucomiss"
		xor := "xorps"
		if ty.Size == 8 {
			cmp = "ucomisd"
			xor = "xorpd"
		}
		g.printf("  %s xmm14, xmm14\n", xor)
		g.printf("  %s %s, xmm14\n", cmp, g.stack.fp(0))
		return
	}
	g.printf("  cmp %s, 0\n", g.stack.gp(0))
}

// cast converts the top of the stack from one type to another.
func (g *Generator) cast(from, to *types.Type) {
	if to.Kind == types.VOID {
		return
	}

	if to.Kind == types.BOOL {
		g.cmpZero(from)
		r := g.stack.gp(0)
		g.stack.setBank(false)
		g.println("  setne al")
		g.printf("  movzx %s, al\n", r)
		return
	}

	if types.IsFlonum(from) {
		if types.IsFlonum(to) {
			if from.Size == 4 && to.Size == 8 {
				g.printf("  cvtss2sd %s, %s\n", g.stack.fp(0), g.stack.fp(0))
			} else if from.Size == 8 && to.Size == 4 {
				g.printf("  cvtsd2ss %s, %s\n", g.stack.fp(0), g.stack.fp(0))
			}
			return
		}

		cvt := "cvttss2si"
		if from.Size == 8 {
			cvt = "cvttsd2si"
		}
		x := g.stack.fp(0)
		g.stack.setBank(false)
		g.printf("  %s %s, %s\n", cvt, g.stack.gp(0), x)
		g.truncate(to)
		return
	}

	if types.IsFlonum(to) {
		cvt := "cvtsi2ss"
		if to.Size == 8 {
			cvt = "cvtsi2sd"
		}
		r := g.stack.gp(0)
		g.stack.setBank(true)
		g.printf("  %s %s, %s\n", cvt, g.stack.fp(0), r)
		return
	}

	g.truncate(to)
}

// truncate re-canonicalizes the top gp value to the target integer
// width and signedness. Values 8 bytes wide need no work.
func (g *Generator) truncate(to *types.Type) {
	r := g.stack.gp(0)
	switch {
	case to.Size == 1 && to.IsUnsigned:
		g.printf("  movzx %s, %s\n", r, sized(r, 1))
	case to.Size == 1:
		g.printf("  movsx %s, %s\n", r, sized(r, 1))
	case to.Size == 2 && to.IsUnsigned:
		g.printf("  movzx %s, %s\n", r, sized(r, 2))
	case to.Size == 2:
		g.printf("  movsx %s, %s\n", r, sized(r, 2))
	case to.Size == 4 && to.IsUnsigned:
		g.printf("  mov %s, %s\n", sized(r, 4), sized(r, 4))
	case to.Size == 4:
		g.printf("  movsxd %s, %s\n", r, sized(r, 4))
	}
}

// genExpr evaluates an expression, leaving its value in a fresh slot on
// the register stack.
func (g *Generator) genExpr(node *ast.Node) {
	switch node.Kind {
	case ast.NUM:
		if types.IsFlonum(node.Ty) {
			x := g.stack.push(true)
			if node.Ty.Size == 4 {
				g.printf("  mov eax, %d\n", floatBits32(node.FVal))
				g.printf("  movd %s, eax\n", x)
			} else {
				g.printf("  movabs rax, %d\n", floatBits64(node.FVal))
				g.printf("  movq %s, rax\n", x)
			}
			return
		}
		r := g.stack.push(false)
		if node.Val == int64(int32(node.Val)) {
			g.printf("  mov %s, %d\n", r, node.Val)
		} else {
			g.printf("  movabs %s, %d\n", r, node.Val)
		}
		return

	case ast.VARREF:
		g.genAddr(node)
		g.load(node.Ty)
		return

	case ast.MEMBER:
		g.genAddr(node)
		g.load(node.Ty)
		if node.Mem.IsBitfield {
			r := g.stack.gp(0)
			g.printf("  shl %s, %d\n", r, 64-node.Mem.BitWidth-node.Mem.BitOffset)
			if node.Mem.Ty.IsUnsigned {
				g.printf("  shr %s, %d\n", r, 64-node.Mem.BitWidth)
			} else {
				g.printf("  sar %s, %d\n", r, 64-node.Mem.BitWidth)
			}
		}
		return

	case ast.DEREF:
		g.genExpr(node.Lhs)
		g.load(node.Ty)
		return

	case ast.ADDR:
		g.genAddr(node.Lhs)
		return

	case ast.ASSIGN:
		g.genExpr(node.Rhs)
		g.genAddr(node.Lhs)
		if node.Lhs.Kind == ast.MEMBER && node.Lhs.Mem.IsBitfield {
			g.storeBitfield(node.Lhs.Mem)
		} else {
			g.store(node.Ty)
		}
		return

	case ast.CAST:
		g.genExpr(node.Lhs)
		g.cast(node.Lhs.Ty, node.Ty)
		return

	case ast.COMMA:
		g.genExpr(node.Lhs)
		g.stack.pop()
		g.genExpr(node.Rhs)
		return

	case ast.NULLEXPR:
		r := g.stack.push(false)
		g.printf("  mov %s, 0\n", r)
		return

	case ast.MEMZERO:
		g.printf("  lea rdi, [rbp-%d]\n", node.Var.Offset)
		g.printf("  mov rcx, %d\n", node.Var.Ty.Size)
		g.println("  mov al, 0")
		g.println("  rep stosb")
		r := g.stack.push(false)
		g.printf("  mov %s, 0\n", r)
		return

	case ast.NOT:
		g.genExpr(node.Lhs)
		g.cmpZero(node.Lhs.Ty)
		r := g.stack.gp(0)
		g.stack.setBank(false)
		g.println("  sete al")
		g.printf("  movzx %s, al\n", r)
		return

	case ast.BITNOT:
		g.genExpr(node.Lhs)
		g.printf("  not %s\n", g.stack.gp(0))
		return

	case ast.LOGAND:
		c := g.count()
		r := g.stack.push(false)
		g.genExpr(node.Lhs)
		g.cmpZero(node.Lhs.Ty)
		g.stack.pop()
		g.printf("  je .L.false.%d\n", c)
		g.genExpr(node.Rhs)
		g.cmpZero(node.Rhs.Ty)
		g.stack.pop()
		g.printf("  je .L.false.%d\n", c)
		g.printf("  mov %s, 1\n", r)
		g.printf("  jmp .L.end.%d\n", c)
		g.printf(".L.false.%d:\n", c)
		g.printf("  mov %s, 0\n", r)
		g.printf(".L.end.%d:\n", c)
		return

	case ast.LOGOR:
		c := g.count()
		r := g.stack.push(false)
		g.genExpr(node.Lhs)
		g.cmpZero(node.Lhs.Ty)
		g.stack.pop()
		g.printf("  jne .L.true.%d\n", c)
		g.genExpr(node.Rhs)
		g.cmpZero(node.Rhs.Ty)
		g.stack.pop()
		g.printf("  jne .L.true.%d\n", c)
		g.printf("  mov %s, 0\n", r)
		g.printf("  jmp .L.end.%d\n", c)
		g.printf(".L.true.%d:\n", c)
		g.printf("  mov %s, 1\n", r)
		g.printf(".L.end.%d:\n", c)
		return

	case ast.COND:
		c := g.count()
		isFloat := node.Ty != nil && types.IsFlonum(node.Ty)
		r := g.stack.push(isFloat)

		g.genExpr(node.Cond)
		g.cmpZero(node.Cond.Ty)
		g.stack.pop()
		g.printf("  je .L.else.%d\n", c)

		g.genExpr(node.Then)
		g.moveTo(r, isFloat)
		g.stack.pop()
		g.printf("  jmp .L.end.%d\n", c)

		g.printf(".L.else.%d:\n", c)
		g.genExpr(node.Els)
		g.moveTo(r, isFloat)
		g.stack.pop()
		g.printf(".L.end.%d:\n", c)
		return

	case ast.STMTEXPR:
		// The last statement's expression value is left on the stack.
		last := node.Body
		for last.Next != nil {
			last = last.Next
		}
		for n := node.Body; n != last; n = n.Next {
			g.genStmt(n)
		}
		g.genExpr(last.Lhs)
		return

	case ast.FUNCALL:
		g.genFuncall(node)
		return
	}

	// Binary operators: evaluate both sides, combine into the lower
	// slot, pop the upper.
	g.genExpr(node.Lhs)
	g.genExpr(node.Rhs)

	if types.IsFlonum(node.Lhs.Ty) {
		g.genFloatBinary(node)
		return
	}

	rd := g.stack.gp(1)
	rs := g.stack.gp(0)

	switch node.Kind {
	case ast.ADD:
		g.printf("  add %s, %s\n", rd, rs)
	case ast.SUB:
		g.printf("  sub %s, %s\n", rd, rs)
	case ast.MUL:
		g.printf("  imul %s, %s\n", rd, rs)
	case ast.DIV, ast.MOD:
		g.printf("  mov rax, %s\n", rd)
		if node.Ty.IsUnsigned {
			g.println("  mov rdx, 0")
			g.printf("  div %s\n", rs)
		} else {
			g.println("  cqo")
			g.printf("  idiv %s\n", rs)
		}
		if node.Kind == ast.MOD {
			g.printf("  mov %s, rdx\n", rd)
		} else {
			g.printf("  mov %s, rax\n", rd)
		}
	case ast.BITAND:
		g.printf("  and %s, %s\n", rd, rs)
	case ast.BITOR:
		g.printf("  or %s, %s\n", rd, rs)
	case ast.BITXOR:
		g.printf("  xor %s, %s\n", rd, rs)
	case ast.SHL:
		g.printf("  mov rcx, %s\n", rs)
		g.printf("  shl %s, cl\n", rd)
	case ast.SHR:
		g.printf("  mov rcx, %s\n", rs)
		if node.Ty.IsUnsigned {
			g.printf("  shr %s, cl\n", rd)
		} else {
			g.printf("  sar %s, cl\n", rd)
		}
	case ast.EQ, ast.NE, ast.LT, ast.LE:
		g.printf("  cmp %s, %s\n", rd, rs)
		g.printf("  %s al\n", setcc(node.Kind, node.Lhs.Ty.IsUnsigned))
		g.printf("  movzx %s, al\n", rd)
	default:
		token.Fail(node.Tok, "internal error: invalid expression")
	}

	g.stack.pop()
}

func setcc(kind ast.NodeKind, isUnsigned bool) string {
	switch kind {
	case ast.EQ:
		return "sete"
	case ast.NE:
		return "setne"
	case ast.LT:
		if isUnsigned {
			return "setb"
		}
		return "setl"
	default:
		if isUnsigned {
			return "setbe"
		}
		return "setle"
	}
}

// genFloatBinary combines the two xmm values on top of the stack.
func (g *Generator) genFloatBinary(node *ast.Node) {
	sd := node.Lhs.Ty.Size == 8
	suffix := "ss"
	cmp := "ucomiss"
	if sd {
		suffix = "sd"
		cmp = "ucomisd"
	}

	xd := g.stack.fp(1)
	xs := g.stack.fp(0)

	switch node.Kind {
	case ast.ADD:
		g.printf("  add%s %s, %s\n", suffix, xd, xs)
	case ast.SUB:
		g.printf("  sub%s %s, %s\n", suffix, xd, xs)
	case ast.MUL:
		g.printf("  mul%s %s, %s\n", suffix, xd, xs)
	case ast.DIV:
		g.printf("  div%s %s, %s\n", suffix, xd, xs)
	case ast.EQ, ast.NE:
		g.printf("  %s %s, %s\n", cmp, xd, xs)
		if node.Kind == ast.EQ {
			g.println("  sete al")
			g.println("  setnp dl")
			g.println("  and al, dl")
		} else {
			g.println("  setne al")
			g.println("  setp dl")
			g.println("  or al, dl")
		}
		g.finishFloatCompare()
	case ast.LT, ast.LE:
		// a < b is b > a on the flipped compare.
		g.printf("  %s %s, %s\n", cmp, xs, xd)
		if node.Kind == ast.LT {
			g.println("  seta al")
		} else {
			g.println("  setae al")
		}
		g.finishFloatCompare()
	default:
		token.Fail(node.Tok, "internal error: invalid expression")
	}

	g.stack.pop()
}

// finishFloatCompare moves the byte result into the destination slot's
// gp register and retags the slot.
func (g *Generator) finishFloatCompare() {
	rd := g.stack.gp(1)
	g.printf("  movzx %s, al\n", rd)
	g.stack.banks[g.stack.top()-2] = false
}

// moveTo copies the top slot's value into a specific register, used to
// merge the arms of a conditional into one slot.
func (g *Generator) moveTo(dst string, isFloat bool) {
	if isFloat {
		if g.stack.banks[g.stack.top()-1] {
			g.printf("  movaps %s, %s\n", dst, g.stack.fp(0))
		} else {
			g.printf("  movq %s, %s\n", dst, g.stack.gp(0))
		}
		return
	}
	g.printf("  mov %s, %s\n", dst, g.stack.gp(0))
}

// pushArg evaluates one call argument and pushes its value onto the
// machine stack, keeping the spill discipline intact.
func (g *Generator) pushArg(arg *ast.Node) {
	g.genExpr(arg)
	if g.stack.banks[g.stack.top()-1] {
		g.printf("  movq rax, %s\n", g.stack.fp(0))
	} else {
		g.printf("  mov rax, %s\n", g.stack.gp(0))
	}
	// Destroying the slot first lets any displaced value come back off
	// the machine stack before the argument goes on top of it.
	g.stack.pop()
	g.println("  push rax")
	g.stack.depth++
}

// genFuncall lowers a call: arguments are evaluated onto the machine
// stack right to left, the register-class ones popped into rdi..r9 and
// xmm0.., the remainder left in place, rsp aligned to 16.
func (g *Generator) genFuncall(node *ast.Node) {
	// The expression-stack scratch registers r10/r11 and the whole xmm
	// bank are caller-saved; preserve them across the call.
	g.println("  push r10")
	g.println("  push r11")
	g.println("  sub rsp, 48")
	for i, x := range fpRegs {
		g.printf("  movsd [rsp+%d], %s\n", 8*i, x)
	}
	g.stack.depth += 8

	// Classify arguments: the first six integer and first eight float
	// arguments travel in registers, the rest on the stack.
	var args []*ast.Node
	for a := node.Args; a != nil; a = a.Next {
		args = append(args, a)
	}

	gp, fp := 0, 0
	var regArgs, stackArgs []*ast.Node
	regClass := make(map[*ast.Node]int)
	for _, a := range args {
		if types.IsFlonum(a.Ty) {
			if fp < 8 {
				regClass[a] = fp
				fp++
				regArgs = append(regArgs, a)
			} else {
				stackArgs = append(stackArgs, a)
			}
		} else {
			if gp < 6 {
				regClass[a] = gp
				gp++
				regArgs = append(regArgs, a)
			} else {
				stackArgs = append(stackArgs, a)
			}
		}
	}

	// Keep rsp 16-byte aligned at the call instruction.
	pad := 0
	if (g.stack.depth+len(stackArgs))%2 != 0 {
		pad = 1
		g.println("  sub rsp, 8")
		g.stack.depth++
	}

	for _, a := range lo.Reverse(stackArgs) {
		g.pushArg(a)
	}
	for _, a := range lo.Reverse(regArgs) {
		g.pushArg(a)
	}

	// Pop register arguments, leftmost first.
	for _, a := range regArgs {
		if types.IsFlonum(a.Ty) {
			g.printf("  movsd xmm%d, [rsp]\n", regClass[a])
			g.println("  add rsp, 8")
		} else {
			g.printf("  pop %s\n", argRegs[regClass[a]])
		}
		g.stack.depth--
	}

	// Variadic callees find the number of vector arguments in al.
	g.printf("  mov al, %d\n", fp)

	if g.opts.FPIC {
		g.printf("  call %s@PLT\n", node.FuncName)
	} else {
		g.printf("  call %s\n", node.FuncName)
	}

	if n := len(stackArgs) + pad; n > 0 {
		g.printf("  add rsp, %d\n", 8*n)
		g.stack.depth -= n
	}

	for i, x := range fpRegs {
		g.printf("  movsd %s, [rsp+%d]\n", x, 8*i)
	}
	g.println("  add rsp, 48")
	g.println("  pop r11")
	g.println("  pop r10")
	g.stack.depth -= 8

	// The result becomes a fresh slot, re-extended to the canonical
	// 64-bit form for narrow integer returns.
	if node.Ty != nil && types.IsFlonum(node.Ty) {
		x := g.stack.push(true)
		if node.Ty.Size == 4 {
			g.printf("  movss %s, xmm0\n", x)
		} else {
			g.printf("  movsd %s, xmm0\n", x)
		}
	} else {
		r := g.stack.push(false)
		g.printf("  mov %s, rax\n", r)
		if node.Ty != nil && types.IsInteger(node.Ty) {
			g.truncate(node.Ty)
		}
	}
}

func floatBits32(v float64) uint32 {
	return math.Float32bits(float32(v))
}

func floatBits64(v float64) uint64 {
	return math.Float64bits(v)
}
