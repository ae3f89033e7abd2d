package parser

import (
	"encoding/json"
	"fmt"
	"os"

	"ncc/ast"
	"ncc/types"
)

var nodeKindNames = map[ast.NodeKind]string{
	ast.ADD: "Add", ast.SUB: "Sub", ast.MUL: "Mul", ast.DIV: "Div",
	ast.MOD: "Mod", ast.BITAND: "BitAnd", ast.BITOR: "BitOr",
	ast.BITXOR: "BitXor", ast.SHL: "Shl", ast.SHR: "Shr",
	ast.EQ: "Eq", ast.NE: "Ne", ast.LT: "Lt", ast.LE: "Le",
	ast.ASSIGN: "Assign", ast.COND: "Cond", ast.COMMA: "Comma",
	ast.MEMBER: "Member", ast.ADDR: "Addr", ast.DEREF: "Deref",
	ast.NOT: "Not", ast.BITNOT: "BitNot", ast.LOGAND: "LogAnd",
	ast.LOGOR: "LogOr", ast.RETURN: "Return", ast.IF: "If",
	ast.FOR: "For", ast.DO: "Do", ast.SWITCH: "Switch", ast.CASE: "Case",
	ast.BLOCK: "Block", ast.BREAK: "Break", ast.CONTINUE: "Continue",
	ast.GOTO: "Goto", ast.LABEL: "Label", ast.FUNCALL: "Funcall",
	ast.EXPRSTMT: "ExprStmt", ast.STMTEXPR: "StmtExpr",
	ast.NULLEXPR: "NullExpr", ast.MEMZERO: "MemZero",
	ast.VARREF: "Var", ast.NUM: "Num", ast.CAST: "Cast",
}

// nodeJSON builds a JSON-friendly representation of one node using maps
// and slices, omitting empty children.
func nodeJSON(n *ast.Node) any {
	if n == nil {
		return nil
	}

	m := map[string]any{"kind": nodeKindNames[n.Kind]}
	if n.Ty != nil {
		m["type"] = typeString(n.Ty)
	}

	put := func(key string, child *ast.Node) {
		if child != nil {
			m[key] = nodeJSON(child)
		}
	}
	put("lhs", n.Lhs)
	put("rhs", n.Rhs)
	put("cond", n.Cond)
	put("then", n.Then)
	put("else", n.Els)
	put("init", n.Init)
	put("inc", n.Inc)

	if n.Body != nil {
		var stmts []any
		for s := n.Body; s != nil; s = s.Next {
			stmts = append(stmts, nodeJSON(s))
		}
		m["body"] = stmts
	}

	switch n.Kind {
	case ast.NUM:
		if n.Ty != nil && types.IsFlonum(n.Ty) {
			m["value"] = n.FVal
		} else {
			m["value"] = n.Val
		}
	case ast.VARREF, ast.MEMZERO:
		m["name"] = n.Var.Name
	case ast.FUNCALL:
		m["name"] = n.FuncName
		var args []any
		for a := n.Args; a != nil; a = a.Next {
			args = append(args, nodeJSON(a))
		}
		m["args"] = args
	case ast.GOTO, ast.LABEL:
		m["label"] = n.LabelName
	case ast.MEMBER:
		if n.Mem.Name != nil {
			m["member"] = n.Mem.Name.Text()
		}
	case ast.CASE:
		m["value"] = n.Val
	}
	return m
}

func typeString(ty *types.Type) string {
	switch ty.Kind {
	case types.VOID:
		return "void"
	case types.BOOL:
		return "_Bool"
	case types.CHAR, types.SHORT, types.INT, types.LONG:
		name := map[types.TypeKind]string{
			types.CHAR: "char", types.SHORT: "short",
			types.INT: "int", types.LONG: "long",
		}[ty.Kind]
		if ty.IsUnsigned {
			return "unsigned " + name
		}
		return name
	case types.FLOAT:
		return "float"
	case types.DOUBLE:
		return "double"
	case types.ENUM:
		return "enum"
	case types.PTR:
		return typeString(ty.Base) + "*"
	case types.ARRAY:
		return fmt.Sprintf("%s[%d]", typeString(ty.Base), ty.ArrayLen)
	case types.FUNC:
		return typeString(ty.ReturnTy) + "()"
	case types.STRUCT:
		return "struct"
	case types.UNION:
		return "union"
	}
	return "?"
}

// programJSON renders a whole translation unit.
func programJSON(prog *ast.Program) any {
	var globals []any
	for _, v := range prog.Globals {
		globals = append(globals, map[string]any{
			"name": v.Name,
			"type": typeString(v.Ty),
		})
	}

	var funcs []any
	for _, fn := range prog.Funcs {
		var params []any
		for _, v := range fn.Params {
			params = append(params, map[string]any{
				"name": v.Name,
				"type": typeString(v.Ty),
			})
		}
		funcs = append(funcs, map[string]any{
			"name":   fn.Name,
			"params": params,
			"body":   nodeJSON(fn.Body),
		})
	}

	return map[string]any{"globals": globals, "functions": funcs}
}

// PrintASTJSON writes the AST as prettified JSON to standard output.
func PrintASTJSON(prog *ast.Program) error {
	data, err := json.MarshalIndent(programJSON(prog), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// WriteASTJSONToFile writes the AST for the program to a .json file at
// the given path.
func WriteASTJSONToFile(prog *ast.Program, path string) error {
	data, err := json.MarshalIndent(programJSON(prog), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
