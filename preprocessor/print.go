package preprocessor

import (
	"fmt"
	"io"

	"ncc/token"
)

// PrintTokens writes a preprocessed stream the way -E output is
// expected: one line break per original source line, one space between
// tokens that were separated in the source.
func PrintTokens(w io.Writer, tok *token.Token) {
	first := true
	for ; tok != nil && !tok.IsEOF(); tok = tok.Next {
		if tok.AtBOL && !first {
			fmt.Fprintln(w)
		} else if tok.HasSpace && !first {
			fmt.Fprint(w, " ")
		}
		fmt.Fprint(w, tok.Text())
		first = false
	}
	fmt.Fprintln(w)
}
