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

func parseCommand() *cli.Command {
	return &cli.Command{
		Name:      "parse",
		Usage:     "Parse a file and dump the AST as the §6 JSON-like document",
		ArgsUsage: "[file]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "optimize",
				Usage: "run the §4.9 optimizer passes before printing",
			},
		},
		Action: runParse,
	}
}

func runParse(_ context.Context, cmd *cli.Command) error {
	path, content, err := readInput(cmd.Args().Slice())
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	set := shell.NewSourceSet()
	idx := set.Add(path, string(content))

	program, diags := shell.Parse(set, idx)

	var stats shell.OptimizerStats

	if cmd.Bool("optimize") && program != nil {
		opt := shell.NewOptimizer(nil, shell.NewStaticCommandRegistry())

		root, s := opt.Optimize(program)
		stats = s

		if p, ok := root.(*shell.Program); ok {
			program = p
		}
	}

	var astDoc shell.Doc
	if program != nil {
		astDoc = shell.ExportNode(program)
	}

	doc := shell.Doc{
		"ast":         astDoc,
		"diagnostics": exportDiagnostics(diags),
	}

	if cmd.Bool("optimize") {
		doc["optimizer"] = shell.Doc{
			"constantsFolded":    stats.ConstantsFolded,
			"branchesEliminated": stats.BranchesEliminated,
			"subexprsShared":     stats.SubexprsShared,
			"commandsMerged":     stats.CommandsMerged,
			"pipelinesOptimized": stats.PipelinesOptimized,
			"nodesBefore":        stats.NodesBefore,
			"nodesAfter":         stats.NodesAfter,
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding AST: %w", err)
	}

	if len(diags) > 0 {
		fmt.Fprintf(os.Stderr, "%s diagnostics\n", humanize.Comma(int64(len(diags))))
	}

	return nil
}

func exportDiagnostics(diags []shell.Diagnostic) []any {
	out := make([]any, len(diags))
	for i, d := range diags {
		out[i] = shell.ExportDiagnostic(d)
	}

	return out
}
