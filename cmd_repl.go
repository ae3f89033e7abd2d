package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"

	"ncc/lexer"
	"ncc/parser"
	"ncc/preprocessor"
	"ncc/token"
)

// replCmd is an interactive constant-expression evaluator. Each line is
// tokenized, run through the session's preprocessor and folded with the
// parser's constant evaluator, so macros defined with #define lines
// participate in later expressions.
type replCmd struct{}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start an interactive constant-expression session" }
func (*replCmd) Usage() string {
	return `repl:
  Evaluate C constant expressions interactively. #define and #undef
  lines update the session's macro table.
`
}

func (r *replCmd) SetFlags(f *flag.FlagSet) {}

func (r *replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rl, err := readline.New("ncc> ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer rl.Close()

	pp := preprocessor.New(nil)
	lineNo := 0

	for {
		line, err := rl.Readline()
		if err != nil {
			return subcommands.ExitSuccess
		}
		if line == "exit" {
			return subcommands.ExitSuccess
		}

		lineNo++
		evalLine(pp, line, lineNo)
	}
}

func evalLine(pp *preprocessor.Preprocessor, line string, lineNo int) {
	file := &token.File{
		Name:     fmt.Sprintf("<repl:%d>", lineNo),
		FileNo:   1,
		Contents: []byte(line + "\n"),
	}

	tok, err := lexer.Tokenize(file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}

	tok, err = pp.Preprocess(tok)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	if tok.IsEOF() {
		// A directive-only line leaves nothing to evaluate.
		return
	}

	val, rest, err := parser.ConstExpr(tok)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	if !rest.IsEOF() {
		fmt.Fprintln(os.Stderr, token.Errorf(rest, "extra token"))
		return
	}
	fmt.Println(val)
}
