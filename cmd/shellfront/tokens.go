package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/shellfront/core"
)

func tokensCommand() *cli.Command {
	return &cli.Command{
		Name:      "tokens",
		Usage:     "Dump the lexer's token stream",
		ArgsUsage: "[file]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print tokens as JSON instead of a table",
			},
			&cli.BoolFlag{
				Name:  "summary",
				Usage: "print per-kind token counts instead of the stream",
			},
		},
		Action: runTokens,
	}
}

func runTokens(_ context.Context, cmd *cli.Command) error {
	path, content, err := readInput(cmd.Args().Slice())
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	set := shell.NewSourceSet()
	idx := set.Add(path, string(content))

	stream, diags := shell.Tokenize(idx, set)

	if cmd.Bool("summary") {
		return printTokenSummary(os.Stdout, stream)
	}

	if cmd.Bool("json") {
		return printTokensJSON(os.Stdout, stream.Tokens())
	}

	printTokensTable(os.Stdout, stream.Tokens())

	if len(diags) > 0 {
		fmt.Fprintf(os.Stderr, "%s: %d lexical diagnostics\n", humanize.Comma(int64(len(diags))), len(diags))

		for _, d := range diags {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", formatSpan(d.Span), d.Message)
		}
	}

	return nil
}

func printTokensTable(out *os.File, tokens []shell.Token) {
	for _, t := range tokens {
		fmt.Fprintf(out, "%-20s %-12s %q\n", formatSpan(t.Span), t.Kind.String(), t.Raw)
	}
}

func printTokensJSON(out *os.File, tokens []shell.Token) error {
	docs := make([]shell.Doc, len(tokens))
	for i, t := range tokens {
		docs[i] = shell.Doc{
			"kind":  t.Kind.String(),
			"raw":   t.Raw,
			"value": t.Value,
			"span":  shell.ExportSpan(t.Span),
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	return enc.Encode(docs)
}

func printTokenSummary(out *os.File, stream *shell.TokenStream) error {
	counts := stream.KindCounts()

	for kind, n := range counts {
		fmt.Fprintf(out, "%-12s %s\n", kind.String(), humanize.Comma(int64(n)))
	}

	return nil
}

func formatSpan(s shell.Span) string {
	if s.IsUnknown() {
		return "?:?"
	}

	return fmt.Sprintf("%d:%d", s.Start.Line, s.Start.Column)
}
