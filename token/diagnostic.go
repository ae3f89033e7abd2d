package token

import (
	"fmt"
	"os"
	"strings"
)

// Diagnostic is a fatal, token-located compilation error. Its message
// renders as
//
//	<file>:<line>: error: <message>
//	<offending source line>
//	        ^
//
// Internal phase helpers abort by panicking with a *Diagnostic; every
// exported pipeline entry point recovers and returns it as an error, so
// the first error always stops the pipeline.
type Diagnostic struct {
	Tok     *Token
	Message string
}

func (d *Diagnostic) Error() string {
	if d.Tok == nil || d.Tok.File == nil {
		return "error: " + d.Message
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:%d: error: %s", d.Tok.File.Name, d.Tok.LineNo, d.Message)
	if line, col := sourceLine(d.Tok); line != "" {
		fmt.Fprintf(&sb, "\n%s\n%s^", line, strings.Repeat(" ", col))
	}
	return sb.String()
}

// sourceLine locates the physical line holding the token and the token's
// column within it. Tokens with no offset (Off is -1, as for merged
// string literals) yield no caret line.
func sourceLine(tok *Token) (string, int) {
	contents := tok.File.Contents
	off := tok.Off
	if off < 0 || off >= len(contents) {
		return "", 0
	}
	start := off
	for start > 0 && contents[start-1] != '\n' {
		start--
	}
	end := off
	for end < len(contents) && contents[end] != '\n' {
		end++
	}
	return string(contents[start:end]), off - start
}

// Errorf builds a token-located diagnostic.
func Errorf(tok *Token, format string, args ...any) *Diagnostic {
	return &Diagnostic{Tok: tok, Message: fmt.Sprintf(format, args...)}
}

// Fail aborts the current phase with a token-located diagnostic. The
// phase's exported entry point recovers it via Recover.
func Fail(tok *Token, format string, args ...any) {
	panic(Errorf(tok, format, args...))
}

// Recover converts a *Diagnostic panic into an error assignment, for use
// in deferred form at phase boundaries:
//
//	defer token.Recover(&err)
//
// Any other panic value is re-raised.
func Recover(err *error) {
	switch v := recover().(type) {
	case nil:
	case *Diagnostic:
		*err = v
	default:
		panic(v)
	}
}

// Warnf prints a token-located warning to stderr. Warnings never abort.
func Warnf(tok *Token, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if tok == nil || tok.File == nil {
		fmt.Fprintf(os.Stderr, "warning: %s\n", msg)
		return
	}
	fmt.Fprintf(os.Stderr, "%s:%d: warning: %s\n", tok.File.Name, tok.LineNo, msg)
	if line, col := sourceLine(tok); line != "" {
		fmt.Fprintf(os.Stderr, "%s\n%s^\n", line, strings.Repeat(" ", col))
	}
}
