package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/shellfront/core"
	"github.com/shellfront/core/analysis"
)

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Run the semantic analyzer and print its diagnostics",
		ArgsUsage: "[file]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "promote warnings to errors (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging to stderr",
			},
		},
		Action: runCheck,
	}
}

func runCheck(_ context.Context, cmd *cli.Command) error {
	path, content, err := readInput(cmd.Args().Slice())
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	cfg, loadErr := shell.LoadConfig(workingDir(path))
	if loadErr != nil {
		cfg = &shell.Config{}
	}

	if cmd.Bool("strict") {
		cfg.Strict = true
	}

	logger, err := buildLogger(cmd.Bool("verbose"))
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}

	defer func() { _ = logger.Sync() }()

	az := analysis.NewAnalyzer(
		shell.NewStaticCommandRegistry(),
		shell.OSFilesystemProbe{},
		shell.NewOSEnvironmentResolver(cfg),
		cfg,
		logger,
	)

	result := az.Analyze(path, string(content))

	for _, d := range result.Diagnostics {
		fmt.Fprintf(os.Stdout, "%s: %s: %s\n", formatSpan(d.Span), d.Severity, d.Message)

		for _, fix := range d.Fixes {
			fmt.Fprintf(os.Stdout, "  fix: %s (%s)\n", fix.Replacement, fix.Description)
		}
	}

	errCount := 0

	for _, d := range result.Diagnostics {
		if d.Severity >= shell.SeverityError {
			errCount++
		}
	}

	fmt.Fprintf(os.Stderr, "%s diagnostics, %s errors\n",
		humanize.Comma(int64(len(result.Diagnostics))), humanize.Comma(int64(errCount)))

	if errCount > 0 {
		return cli.Exit("", 1)
	}

	return nil
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}

	return cfg.Build()
}

func workingDir(path string) string {
	if path == "<stdin>" {
		dir, err := os.Getwd()
		if err != nil {
			return "."
		}

		return dir
	}

	return dirOf(path)
}
