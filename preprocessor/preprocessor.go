// Package preprocessor sits between the lexer and the parser. It
// resolves directives, expands macros with the Prosser hideset
// discipline, searches include paths, evaluates #if conditions with the
// parser's constant-expression evaluator, and finally merges adjacent
// string literals.
package preprocessor

import (
	"os"
	"path/filepath"

	"ncc/lexer"
	"ncc/parser"
	"ncc/token"
)

// Conditional-inclusion context: which branch of an #if chain the
// preprocessor is currently inside.
const (
	inThen = iota
	inElif
	inElse
)

// condIncl is one frame of the conditional-inclusion stack.
type condIncl struct {
	ctx      int
	tok      *token.Token // the directive token, for error recovery
	included bool         // has any branch of this chain been taken
}

// Preprocessor holds the mutable state of one preprocessing run: the
// macro table, the conditional stack and the include search path.
type Preprocessor struct {
	macros    *Macro
	condStack []condIncl

	includePaths []string

	fileMacro *Macro
	lineMacro *Macro
}

// New returns a preprocessor with the predefined macros installed and
// the given include search path.
func New(includePaths []string) *Preprocessor {
	p := &Preprocessor{includePaths: includePaths}
	p.initMacros()
	return p
}

// Preprocess runs the directive and macro pass over tok, then converts
// preprocessing numbers and merges adjacent string literals. The input
// stream is consumed.
func (p *Preprocessor) Preprocess(tok *token.Token) (out *token.Token, err error) {
	defer token.Recover(&err)

	tok = p.preprocess2(tok)
	if len(p.condStack) > 0 {
		token.Fail(p.condStack[len(p.condStack)-1].tok, "unterminated conditional directive")
	}
	if err := lexer.ConvertPPTokens(tok); err != nil {
		return nil, err
	}
	joinAdjacentStringLiterals(tok)
	return tok, nil
}

func isHash(tok *token.Token) bool {
	return tok.AtBOL && tok.Is("#")
}

// skipLine warns about and drops extraneous tokens between the end of a
// directive and the newline.
func skipLine(tok *token.Token) *token.Token {
	if tok.AtBOL {
		return tok
	}
	token.Warnf(tok, "extra token")
	for !tok.AtBOL {
		tok = tok.Next
	}
	return tok
}

// copyLine copies tokens up to the next newline and terminates the copy
// with an EOF, returning the copy and the remainder of the stream.
func copyLine(tok *token.Token) (line, rest *token.Token) {
	head := token.Token{}
	cur := &head

	for ; !tok.AtBOL; tok = tok.Next {
		cur.Next = tok.Copy()
		cur = cur.Next
	}
	cur.Next = token.NewEOF(tok)
	return head.Next, tok
}

// preprocess2 visits every token, expanding macros and executing
// directives.
func (p *Preprocessor) preprocess2(tok *token.Token) *token.Token {
	head := token.Token{}
	cur := &head

	for !tok.IsEOF() {
		// If it is a macro, expand it.
		if expanded, ok := p.expandMacro(tok); ok {
			tok = expanded
			continue
		}

		// Pass through anything that is not a directive.
		if !isHash(tok) {
			cur.Next = tok
			cur = cur.Next
			tok = tok.Next
			continue
		}

		start := tok
		tok = tok.Next

		switch {
		case tok.Is("include"):
			path := p.readIncludePath(&tok, tok.Next)
			included, err := lexer.TokenizeFile(path)
			if err != nil {
				token.Fail(tok, "%s: %s", path, err)
			}
			tok = token.Append(included, tok)

		case tok.Is("define"):
			tok = p.readMacroDefinition(tok.Next)

		case tok.Is("undef"):
			tok = tok.Next
			if tok.Kind != token.IDENT {
				token.Fail(tok, "macro name must be an identifier")
			}
			name := tok.Text()
			tok = skipLine(tok.Next)
			p.Undef(name)

		case tok.Is("if"):
			val := p.evalConstExpr(&tok, tok.Next)
			p.pushCondIncl(start, val != 0)
			if val == 0 {
				tok = skipCondIncl(tok)
			}

		case tok.Is("ifdef"):
			defined := p.findMacro(tok.Next) != nil
			p.pushCondIncl(tok, defined)
			tok = skipLine(tok.Next.Next)
			if !defined {
				tok = skipCondIncl(tok)
			}

		case tok.Is("ifndef"):
			defined := p.findMacro(tok.Next) != nil
			p.pushCondIncl(tok, !defined)
			tok = skipLine(tok.Next.Next)
			if defined {
				tok = skipCondIncl(tok)
			}

		case tok.Is("elif"):
			if len(p.condStack) == 0 || p.top().ctx == inElse {
				token.Fail(start, "stray #elif")
			}
			p.top().ctx = inElif
			if !p.top().included && p.evalConstExpr(&tok, tok.Next) != 0 {
				p.top().included = true
			} else {
				tok = skipCondIncl(tok)
			}

		case tok.Is("else"):
			if len(p.condStack) == 0 || p.top().ctx == inElse {
				token.Fail(start, "stray #else")
			}
			p.top().ctx = inElse
			tok = skipLine(tok.Next)
			if p.top().included {
				tok = skipCondIncl(tok)
			}

		case tok.Is("endif"):
			if len(p.condStack) == 0 {
				token.Fail(start, "stray #endif")
			}
			p.condStack = p.condStack[:len(p.condStack)-1]
			tok = skipLine(tok.Next)

		case tok.Is("error"):
			line, _ := copyLine(tok.Next)
			token.Fail(tok, "%s", joinTokens(line, nil))

		case tok.Is("pragma"):
			// Pragmas are ignored.
			for !tok.AtBOL {
				tok = tok.Next
			}

		case tok.AtBOL:
			// `#` on a line of its own is the null directive.

		default:
			token.Fail(tok, "invalid preprocessor directive")
		}
	}

	cur.Next = tok
	return head.Next
}

func (p *Preprocessor) top() *condIncl {
	return &p.condStack[len(p.condStack)-1]
}

func (p *Preprocessor) pushCondIncl(tok *token.Token, included bool) {
	p.condStack = append(p.condStack, condIncl{ctx: inThen, tok: tok, included: included})
}

// skipCondIncl2 fast-forwards to the #endif matching an inactive nested
// conditional.
func skipCondIncl2(tok *token.Token) *token.Token {
	for !tok.IsEOF() {
		if isHash(tok) &&
			(tok.Next.Is("if") || tok.Next.Is("ifdef") || tok.Next.Is("ifndef")) {
			tok = skipCondIncl2(tok.Next.Next)
			continue
		}
		if isHash(tok) && tok.Next.Is("endif") {
			return tok.Next.Next
		}
		tok = tok.Next
	}
	return tok
}

// skipCondIncl skips an inactive branch until the next #else, #elif or
// #endif at the same nesting level.
func skipCondIncl(tok *token.Token) *token.Token {
	for !tok.IsEOF() {
		if isHash(tok) &&
			(tok.Next.Is("if") || tok.Next.Is("ifdef") || tok.Next.Is("ifndef")) {
			tok = skipCondIncl2(tok.Next.Next)
			continue
		}
		if isHash(tok) &&
			(tok.Next.Is("elif") || tok.Next.Is("else") || tok.Next.Is("endif")) {
			break
		}
		tok = tok.Next
	}
	return tok
}

// readConstExpr copies the #if argument line, substituting defined(X)
// and defined X with 1 or 0.
func (p *Preprocessor) readConstExpr(rest **token.Token, tok *token.Token) *token.Token {
	tok, *rest = copyLine(tok)

	head := token.Token{}
	cur := &head

	for !tok.IsEOF() {
		if tok.Is("defined") {
			start := tok
			var hasParen bool
			tok, hasParen = token.Consume(tok.Next, "(")

			if tok.Kind != token.IDENT {
				token.Fail(start, "macro name must be an identifier")
			}
			defined := p.findMacro(tok) != nil
			tok = tok.Next

			if hasParen {
				tok = token.Skip(tok, ")")
			}

			val := 0
			if defined {
				val = 1
			}
			cur.Next = newNumToken(val, start)
			cur = cur.Next
			continue
		}

		cur.Next = tok
		cur = cur.Next
		tok = tok.Next
	}

	cur.Next = tok
	return head.Next
}

// evalConstExpr evaluates an #if/#elif condition. The line is macro
// expanded, remaining identifiers become 0 as the standard requires,
// pp-numbers are converted, and the parser's constant evaluator folds
// the result.
func (p *Preprocessor) evalConstExpr(rest **token.Token, tok *token.Token) int64 {
	start := tok
	expr := p.readConstExpr(rest, tok)
	expr = p.preprocess2(expr)

	if expr.IsEOF() {
		token.Fail(start, "no expression")
	}

	for t := expr; !t.IsEOF(); t = t.Next {
		if t.Kind == token.IDENT {
			next := t.Next
			*t = *newNumToken(0, t)
			t.Next = next
		}
	}

	if err := lexer.ConvertPPTokens(expr); err != nil {
		panic(err)
	}

	val, rest2 := parser.EvalConstExpr(expr)
	if !rest2.IsEOF() {
		token.Fail(rest2, "extra token")
	}
	return val
}

// readMacroDefinition handles the line after #define.
func (p *Preprocessor) readMacroDefinition(tok *token.Token) *token.Token {
	if tok.Kind != token.IDENT {
		token.Fail(tok, "macro name must be an identifier")
	}
	name := tok.Text()
	tok = tok.Next

	if !tok.HasSpace && tok.Is("(") {
		// Function-like macro.
		params, isVariadic, rest := readMacroParams(tok.Next)
		body, rest2 := copyLine(rest)
		m := p.addMacro(name, false, body)
		m.params = params
		m.isVariadic = isVariadic
		return rest2
	}

	// Object-like macro.
	body, rest := copyLine(tok)
	p.addMacro(name, true, body)
	return rest
}

func readMacroParams(tok *token.Token) (params []string, isVariadic bool, rest *token.Token) {
	for !tok.Is(")") {
		if len(params) > 0 {
			tok = token.Skip(tok, ",")
		}

		if tok.Is("...") {
			isVariadic = true
			tok = tok.Next
			break
		}

		if tok.Kind != token.IDENT {
			token.Fail(tok, "expected an identifier")
		}
		params = append(params, tok.Text())
		tok = tok.Next
	}
	return params, isVariadic, token.Skip(tok, ")")
}

// readMacroArgOne collects one actual argument: tokens up to an
// unnested `,` (or `)` for the variadic rest).
func readMacroArgOne(rest **token.Token, tok *token.Token, readRest bool) *macroArg {
	head := token.Token{}
	cur := &head
	level := 0

	for {
		if level == 0 && tok.Is(")") {
			break
		}
		if level == 0 && !readRest && tok.Is(",") {
			break
		}
		if tok.IsEOF() {
			token.Fail(tok, "premature end of input")
		}

		if tok.Is("(") {
			level++
		} else if tok.Is(")") {
			level--
		}

		cur.Next = tok.Copy()
		cur = cur.Next
		tok = tok.Next
	}

	*rest = tok
	return &macroArg{tok: head.Next}
}

func readMacroArgs(rest **token.Token, tok *token.Token, m *Macro) []*macroArg {
	start := tok
	tok = tok.Next.Next // skip the macro name and "("

	var args []*macroArg
	for i, name := range m.params {
		if i > 0 {
			tok = token.Skip(tok, ",")
		}
		arg := readMacroArgOne(&tok, tok, false)
		arg.name = name
		args = append(args, arg)
	}

	if m.isVariadic {
		if len(m.params) > 0 {
			tok = token.Skip(tok, ",")
		}
		arg := readMacroArgOne(&tok, tok, true)
		arg.name = "__VA_ARGS__"
		args = append(args, arg)
	} else if !tok.Is(")") {
		token.Fail(start, "too many arguments")
	}

	token.Skip(tok, ")")
	*rest = tok
	return args
}

func findArg(args []*macroArg, tok *token.Token) *macroArg {
	if tok.Kind != token.IDENT {
		return nil
	}
	for _, arg := range args {
		if arg.name == tok.Text() {
			return arg
		}
	}
	return nil
}

// stringize renders an argument's tokens as a single string literal,
// preserving inter-token spacing. hash positions the result.
func stringize(hash *token.Token, arg *token.Token) *token.Token {
	return newStrToken(joinTokens(arg, nil), hash)
}

// paste concatenates the spellings of two tokens and retokenizes the
// result, which must form exactly one token.
func paste(lhs, rhs *token.Token) *token.Token {
	buf := append([]byte{}, lhs.Loc...)
	buf = append(buf, rhs.Loc...)
	spelling := string(buf)
	tok := tokenizeBuffer(lhs, append(buf, '\n'))
	if !tok.Next.IsEOF() {
		token.Fail(lhs, "pasting forms '%s', an invalid token", spelling)
	}
	return tok
}

// subst replaces parameters in a function-like macro body with the
// actual arguments, applying the # and ## operators.
func subst(tok *token.Token, args []*macroArg) *token.Token {
	head := token.Token{}
	cur := &head

	for !tok.IsEOF() {
		// A macro parameter is replaced by its actuals.
		if arg := findArg(args, tok); arg != nil {
			tok = tok.Next

			// x##y becomes y if x is the empty argument list.
			if arg.tok == nil && tok.Is("##") {
				tok = tok.Next
				continue
			}

			for t := arg.tok; t != nil && !t.IsEOF(); t = t.Next {
				cur.Next = t.Copy()
				cur = cur.Next
			}
			continue
		}

		// x##y: the LHS is already emitted; paste it with whatever
		// comes next.
		if tok.Is("##") {
			tok = tok.Next
			rhs := findArg(args, tok)

			if rhs == nil {
				*cur = *paste(cur, tok)
				tok = tok.Next
				continue
			}

			tok = tok.Next

			// x##y becomes x if y is the empty argument list.
			if rhs.tok == nil {
				continue
			}

			*cur = *paste(cur, rhs.tok)
			for t := rhs.tok.Next; t != nil && !t.IsEOF(); t = t.Next {
				cur.Next = t.Copy()
				cur = cur.Next
			}
			continue
		}

		// "#" followed by a parameter becomes the stringized actuals.
		if tok.Is("#") {
			if arg := findArg(args, tok.Next); arg != nil {
				cur.Next = stringize(tok, arg.tok)
				cur = cur.Next
				tok = tok.Next.Next
				continue
			}
		}

		cur.Next = tok.Copy()
		cur = cur.Next
		tok = tok.Next
	}

	return head.Next
}

// expandMacro applies one macro expansion at tok if tok names a macro
// not hidden there. It returns the stream to continue scanning from and
// whether an expansion happened.
func (p *Preprocessor) expandMacro(tok *token.Token) (*token.Token, bool) {
	if tok.Hideset.Contains(tok.Text()) {
		return nil, false
	}

	m := p.findMacro(tok)
	if m == nil {
		return nil, false
	}

	// __FILE__ and __LINE__ are computed here rather than stored.
	if m == p.fileMacro {
		t := newStrToken(tok.File.Name, tok)
		t.Next = tok.Next
		return t, true
	}
	if m == p.lineMacro {
		t := newNumToken(tok.LineNo, tok)
		t.Next = tok.Next
		return t, true
	}

	// Object-like macro application.
	if m.isObjlike {
		hs := tok.Hideset.Union(token.NewHideset(m.name))
		body := token.AddHideset(m.body, hs)
		return token.Append(body, tok.Next), true
	}

	// A function-like macro name without an argument list is an
	// ordinary identifier.
	if !tok.Next.Is("(") {
		return nil, false
	}

	// Function-like macro application. The new hideset is the
	// intersection of the macro token's and the closing parenthesis's
	// hidesets, plus the macro itself, per Prosser's algorithm.
	macroToken := tok
	args := readMacroArgs(&tok, tok, m)
	rparen := tok

	hs := macroToken.Hideset.Intersection(rparen.Hideset)
	hs = hs.Union(token.NewHideset(m.name))

	body := subst(m.body, args)
	body = token.AddHideset(body, hs)
	return token.Append(body, rparen.Next), true
}

// readIncludePath resolves the three #include argument forms.
func (p *Preprocessor) readIncludePath(rest **token.Token, tok *token.Token) string {
	// Pattern 1: #include "foo.h". The quoted spelling is used verbatim;
	// escape sequences are not interpreted in include filenames.
	if tok.Kind == token.STR {
		start := tok
		filename := string(tok.Loc[1 : len(tok.Loc)-1])
		*rest = skipLine(tok.Next)

		if fileExists(filename) {
			return filename
		}
		return p.searchIncludePaths(filename, start)
	}

	// Pattern 2: #include <foo.h>.
	if tok.Is("<") {
		start := tok
		for !tok.Is(">") {
			if tok.IsEOF() {
				token.Fail(tok, "expected '>'")
			}
			tok = tok.Next
		}
		filename := joinTokens(start.Next, tok)
		*rest = skipLine(tok.Next)
		return p.searchIncludePaths(filename, start)
	}

	// Pattern 3: #include FOO. The line is macro-expanded and
	// reinterpreted as one of the other two forms.
	if tok.Kind == token.IDENT {
		line, r := copyLine(tok)
		*rest = r
		tok2 := p.preprocess2(line)
		var ignored *token.Token
		return p.readIncludePath(&ignored, tok2)
	}

	token.Fail(tok, "expected a filename")
	return ""
}

func (p *Preprocessor) searchIncludePaths(filename string, start *token.Token) string {
	for _, dir := range p.includePaths {
		path := filepath.Join(dir, filename)
		if fileExists(path) {
			return path
		}
	}
	token.Fail(start, "'%s': file not found", filename)
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// joinAdjacentStringLiterals merges consecutive string literal tokens
// into one, as the C phases of translation require.
func joinAdjacentStringLiterals(tok *token.Token) {
	for tok != nil {
		if tok.Kind == token.STR && tok.Next != nil && tok.Next.Kind == token.STR {
			next := tok.Next

			str := append(tok.Str[:len(tok.Str)-1:len(tok.Str)-1], next.Str...)
			spelling := append(append([]byte{}, tok.Loc...), next.Loc...)

			tok.Str = str
			tok.Loc = spelling
			tok.Off = -1
			tok.Next = next.Next
		} else {
			tok = tok.Next
		}
	}
}
