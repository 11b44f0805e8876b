// Command shellfront is the shellfront CLI: dump the lexer's token stream,
// dump the parsed AST as the §6 JSON-like document, or run the semantic
// analyzer and print its diagnostics. Grounded on the teacher's
// cmd/scaf/main.go (an urfave/cli/v3 app registering one *cli.Command per
// subcommand, with dialects side-imported for registration), replacing
// fmt/test/generate with tokens/parse/check.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

var version = "dev"

func main() {
	app := &cli.Command{
		Name:    "shellfront",
		Version: version,
		Usage:   "Shell-language front end: lexer, parser, and semantic analyzer",
		Commands: []*cli.Command{
			tokensCommand(),
			parseCommand(),
			checkCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func readInput(args []string) (path string, content []byte, err error) {
	if len(args) == 0 {
		content, err = readStdin()

		return "<stdin>", content, err
	}

	path = args[0]
	content, err = os.ReadFile(path) //#nosec G304 -- path comes from user args, matching the teacher's cmd/scaf file commands

	return path, content, err
}
