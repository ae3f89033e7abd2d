package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/subcommands"

	"ncc/lexer"
	"ncc/parser"
	"ncc/preprocessor"
)

// astCmd dumps the typed AST of a translation unit, either as
// prettified JSON or as a raw deep dump.
type astCmd struct {
	raw     bool
	outFile string
}

func (*astCmd) Name() string     { return "ast" }
func (*astCmd) Synopsis() string { return "Dump the typed AST of a C source file" }
func (*astCmd) Usage() string {
	return `ast [ -spew ] [ -o <file> ] <file>:
  Parse a translation unit and dump its AST.
`
}

func (c *astCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.raw, "spew", false, "dump the raw node graph instead of JSON")
	f.StringVar(&c.outFile, "o", "", "write the JSON dump to a file")
}

func (c *astCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "error: no input files")
		return subcommands.ExitFailure
	}

	tok, err := lexer.TokenizeFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s: %v\n", args[0], err)
		return subcommands.ExitFailure
	}

	pp := preprocessor.New(nil)
	tok, err = pp.Preprocess(tok)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	prog, err := parser.Parse(tok)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if c.raw {
		spew.Dump(prog)
		return subcommands.ExitSuccess
	}
	if c.outFile != "" {
		if err := parser.WriteASTJSONToFile(prog, c.outFile); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}
	if err := parser.PrintASTJSON(prog); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
