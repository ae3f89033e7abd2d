package preprocessor

import (
	"fmt"

	"ncc/lexer"
	"ncc/token"
)

// Macro is one #define entry. The table is a LIFO list: find looks only
// at the most recent binding of a name, and #undef shadows earlier ones
// with a deleted tombstone (find then reports no macro) instead of
// removing anything.
type Macro struct {
	next       *Macro
	name       string
	isObjlike  bool
	params     []string
	isVariadic bool
	body       *token.Token
	deleted    bool
}

// macroArg is one actual argument of a function-like macro invocation.
// tok is nil for an empty argument slot.
type macroArg struct {
	name string
	tok  *token.Token
}

func (p *Preprocessor) findMacro(tok *token.Token) *Macro {
	if tok.Kind != token.IDENT {
		return nil
	}
	for m := p.macros; m != nil; m = m.next {
		if m.name == tok.Text() {
			if m.deleted {
				return nil
			}
			return m
		}
	}
	return nil
}

func (p *Preprocessor) addMacro(name string, isObjlike bool, body *token.Token) *Macro {
	m := &Macro{next: p.macros, name: name, isObjlike: isObjlike, body: body}
	p.macros = m
	return m
}

// Define installs an object-like macro whose body is the tokenization of
// buf. The driver uses this for -D flags; initMacros for the predefined
// set.
func (p *Preprocessor) Define(name, buf string) {
	file := &token.File{Name: "<built-in>", FileNo: 1, Contents: []byte(buf + "\n")}
	tok, err := lexer.Tokenize(file)
	if err != nil {
		panic(err)
	}
	p.addMacro(name, true, tok)
}

// Undef shadows name with a deleted entry.
func (p *Preprocessor) Undef(name string) {
	m := p.addMacro(name, true, nil)
	m.deleted = true
}

// initMacros installs the predefined macro set: target assumptions for
// LP64 ELF x86-64 linux, the standard feature-test macros, and the GNU
// keyword aliases.
func (p *Preprocessor) initMacros() {
	predefined := [][2]string{
		{"__ncc__", "1"},
		{"_LP64", "1"},
		{"__ELF__", "1"},
		{"__LP64__", "1"},
		{"__SIZEOF_DOUBLE__", "8"},
		{"__SIZEOF_FLOAT__", "4"},
		{"__SIZEOF_INT__", "4"},
		{"__SIZEOF_LONG_DOUBLE__", "8"},
		{"__SIZEOF_LONG_LONG__", "8"},
		{"__SIZEOF_LONG__", "8"},
		{"__SIZEOF_POINTER__", "8"},
		{"__SIZEOF_PTRDIFF_T__", "8"},
		{"__SIZEOF_SHORT__", "2"},
		{"__SIZEOF_SIZE_T__", "8"},
		{"__STDC_HOSTED__", "1"},
		{"__STDC_ISO_10646__", "201103L"},
		{"__STDC_NO_ATOMICS__", "1"},
		{"__STDC_NO_COMPLEX__", "1"},
		{"__STDC_NO_THREADS__", "1"},
		{"__STDC_NO_VLA__", "1"},
		{"__STDC_UTF_16__", "1"},
		{"__STDC_UTF_32__", "1"},
		{"__STDC_VERSION__", "201112L"},
		{"__STDC__", "1"},
		{"__amd64", "1"},
		{"__amd64__", "1"},
		{"__gnu_linux__", "1"},
		{"__linux", "1"},
		{"__linux__", "1"},
		{"__unix", "1"},
		{"__unix__", "1"},
		{"__x86_64", "1"},
		{"__x86_64__", "1"},
		{"linux", "1"},
		{"__alignof__", "alignof"},
		{"__const__", "const"},
		{"__inline__", "inline"},
		{"__restrict", "restrict"},
		{"__restrict__", "restrict"},
		{"__signed__", "signed"},
		{"__typeof__", "typeof"},
		{"__volatile__", "volatile"},
	}
	for _, kv := range predefined {
		p.Define(kv[0], kv[1])
	}

	// __FILE__ and __LINE__ are computed at the expansion site.
	p.fileMacro = p.addMacro("__FILE__", true, nil)
	p.lineMacro = p.addMacro("__LINE__", true, nil)
}

// tokenizeBuffer tokenizes a preprocessor-synthesized buffer, stamping
// the tokens with tmpl's file so diagnostics still name the expansion
// site.
func tokenizeBuffer(tmpl *token.Token, buf []byte) *token.Token {
	file := &token.File{Name: tmpl.File.Name, FileNo: tmpl.File.FileNo, Contents: buf}
	tok, err := lexer.Tokenize(file)
	if err != nil {
		panic(err)
	}
	return tok
}

// newNumToken returns a freshly tokenized decimal constant.
func newNumToken(val int, tmpl *token.Token) *token.Token {
	return tokenizeBuffer(tmpl, []byte(fmt.Sprintf("%d\n", val)))
}

// newStrToken returns a freshly tokenized string literal holding str.
func newStrToken(str string, tmpl *token.Token) *token.Token {
	return tokenizeBuffer(tmpl, quoteString(str))
}

// quoteString double-quotes str, escaping backslashes and quotes.
func quoteString(str string) []byte {
	buf := []byte{'"'}
	for i := 0; i < len(str); i++ {
		if str[i] == '\\' || str[i] == '"' {
			buf = append(buf, '\\')
		}
		buf = append(buf, str[i])
	}
	return append(buf, '"', '\n')
}

// joinTokens renders the spellings of [tok, end) into one string,
// separating tokens that were separated in the source.
func joinTokens(tok, end *token.Token) string {
	var buf []byte
	for t := tok; t != nil && t != end && !t.IsEOF(); t = t.Next {
		if t != tok && t.HasSpace {
			buf = append(buf, ' ')
		}
		buf = append(buf, t.Loc...)
	}
	return string(buf)
}
