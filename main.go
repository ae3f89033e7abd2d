// ncc is a small C compiler targeting x86-64 SysV. It reads one
// translation unit and writes GAS Intel-syntax assembly to stdout.
//
// The usual compiler-style invocation
//
//	ncc [ -I<dir> ]... [ -E ] [ -D<name>[=value] ] [ -U<name> ] [ -fpic ] <file>
//
// is the implicit `compile` subcommand; `ast` and `repl` expose the
// debugging surfaces.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
)

var commandNames = map[string]bool{
	"compile":  true,
	"ast":      true,
	"repl":     true,
	"help":     true,
	"flags":    true,
	"commands": true,
}

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&compileCmd{}, "")
	subcommands.Register(&astCmd{}, "")
	subcommands.Register(&replCmd{}, "")

	args := os.Args[1:]

	for _, a := range args {
		if a == "--help" {
			fmt.Fprintln(os.Stderr, "usage: ncc [ -I<dir> ]... [ -E ] [ -D<name>[=value] ] [ -U<name> ] [ -fpic ] <file>")
			os.Exit(1)
		}
	}

	// A bare `ncc -E foo.c` style invocation is the compile command.
	if len(args) == 0 || !commandNames[args[0]] {
		args = append([]string{"compile"}, args...)
	}

	os.Args = append(os.Args[:1], normalizeArgs(args)...)
	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}

// normalizeArgs splits the GCC-style joined option forms -I<dir>,
// -D<name>[=value] and -U<name> that the flag package cannot express.
func normalizeArgs(args []string) []string {
	var out []string
	for _, a := range args {
		switch {
		case len(a) > 2 && strings.HasPrefix(a, "-I"):
			out = append(out, "-I", a[2:])
		case len(a) > 2 && strings.HasPrefix(a, "-D"):
			out = append(out, "-D", a[2:])
		case len(a) > 2 && strings.HasPrefix(a, "-U"):
			out = append(out, "-U", a[2:])
		default:
			out = append(out, a)
		}
	}
	return out
}
