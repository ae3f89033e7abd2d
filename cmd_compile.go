package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/samber/lo"

	"ncc/codegen"
	"ncc/lexer"
	"ncc/parser"
	"ncc/preprocessor"
	"ncc/token"
)

// multiFlag collects a repeatable string flag.
type multiFlag []string

func (m *multiFlag) String() string {
	return strings.Join(*m, ",")
}

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

// compileCmd implements the compiler driver: tokenize, preprocess,
// parse, lay out stack frames and emit assembly to stdout.
type compileCmd struct {
	includes       multiFlag
	defines        multiFlag
	undefs         multiFlag
	preprocessOnly bool
	fpic           bool
}

func (*compileCmd) Name() string     { return "compile" }
func (*compileCmd) Synopsis() string { return "Compile a C source file to x86-64 assembly" }
func (*compileCmd) Usage() string {
	return `compile [ -I<dir> ]... [ -E ] [ -D<name>[=value] ] [ -U<name> ] [ -fpic ] <file>:
  Compile one translation unit to GAS Intel-syntax assembly on stdout.
`
}

func (c *compileCmd) SetFlags(f *flag.FlagSet) {
	f.Var(&c.includes, "I", "append a directory to the include search path")
	f.Var(&c.defines, "D", "define an object-like macro, default value 1")
	f.Var(&c.undefs, "U", "undefine a macro")
	f.BoolVar(&c.preprocessOnly, "E", false, "stop after preprocessing and print the token stream")
	f.BoolVar(&c.fpic, "fpic", false, "emit position-independent references for globals")
}

func (c *compileCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "error: no input files")
		return subcommands.ExitFailure
	}

	if err := c.run(args[0]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *compileCmd) run(filename string) (err error) {
	defer token.Recover(&err)

	tok, err := lexer.TokenizeFile(filename)
	if err != nil {
		return fmt.Errorf("error: %s: %w", filename, err)
	}

	pp := preprocessor.New(c.searchPath())
	for _, d := range c.defines {
		name, body, found := strings.Cut(d, "=")
		if !found {
			body = "1"
		}
		pp.Define(name, body)
	}
	for _, u := range c.undefs {
		pp.Undef(u)
	}

	tok, err = pp.Preprocess(tok)
	if err != nil {
		return err
	}

	if c.preprocessOnly {
		preprocessor.PrintTokens(os.Stdout, tok)
		return nil
	}

	prog, err := parser.Parse(tok)
	if err != nil {
		return err
	}

	codegen.AssignLVarOffsets(prog)

	return codegen.Generate(os.Stdout, prog, lexer.InputFiles(), codegen.Options{
		FPIC: c.fpic,
	})
}

// searchPath builds the include search path: INCLUDE_PATH entries
// first, then -I directories in order.
func (c *compileCmd) searchPath() []string {
	env := lo.Compact(strings.Split(os.Getenv("INCLUDE_PATH"), ":"))
	return append(env, c.includes...)
}
