package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/salmonumbrella/planview/internal/plan"
)

var (
	parsePartial bool
	parseStats   bool
)

var parseCmd = &cobra.Command{
	Use:   "parse [file|-]",
	Short: "Build a plan tree from plan text",
	Long: `Read execution plan text and print the reconstructed tree.

The depth of each line comes from --style:
  auto    detect from the text (default)
  tree    sqlite3-shell connectors such as "|--" and "` + "`" + `--"
  indent  leading whitespace, --indent spaces per level
  arrow   PostgreSQL EXPLAIN output with "->" markers

Examples:
  sqlite3 app.db "EXPLAIN QUERY PLAN SELECT ..." | planview parse
  planview parse plan.txt --style indent --indent 4
  planview parse plan.txt -o json --query '.[].children[].label'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

var stepsCmd = &cobra.Command{
	Use:   "steps [file|-]",
	Short: "List plan nodes in pre-order with parent links",
	Long: `Read execution plan text and print one row per node: pre-order id,
parent id (0 for roots), depth, source line and label.

Examples:
  planview steps plan.txt
  planview steps plan.txt --result-sort-by depth --result-desc --result-limit 5`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSteps,
}

func init() {
	parseCmd.Flags().BoolVar(&parsePartial, "partial", false, "On a malformed line, print the tree built so far before failing")
	parseCmd.Flags().BoolVar(&parseStats, "stats", false, "Print root, node and depth counts instead of the tree")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(stepsCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	text, err := readPlanText(ctx, args)
	if err != nil {
		return err
	}

	roots, err := buildForest(ctx, text)
	if err != nil {
		var parseErr *plan.ParseError
		if parsePartial && errors.As(err, &parseErr) {
			if printErr := printForest(roots); printErr != nil {
				return printErr
			}
		}
		return err
	}

	if parseStats {
		return printStructured(plan.Summarize(roots))
	}
	return printForest(roots)
}

func runSteps(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	text, err := readPlanText(ctx, args)
	if err != nil {
		return err
	}
	roots, err := buildForest(ctx, text)
	if err != nil {
		return err
	}
	return printSteps(roots)
}

// readPlanText reads the named file, or stdin for "-" or when input is piped.
func readPlanText(ctx context.Context, args []string) (string, error) {
	src := "-"
	if len(args) > 0 {
		src = args[0]
	} else if !inputHasData(stdinFromContext(ctx)) {
		return "", fmt.Errorf("plan text required: pass a file or pipe it on stdin")
	}
	return readRawInput(src, stdinFromContext(ctx))
}

// buildForest parses text with the resolved depth style. On a structural
// error it returns the partial forest alongside the error.
func buildForest(ctx context.Context, text string) ([]*plan.Node, error) {
	style := depthStyle
	if style == plan.StyleAuto || style == "" {
		style = plan.DetectStyle(text)
		debugf(ctx, "detected depth style %s", style)
	}
	parser := plan.NewLineParser(style, indentWidth, text)

	b, err := plan.Scan(text, parser)
	roots := b.Roots()
	if err != nil {
		debugf(ctx, "parse stopped with %d root(s) built", len(roots))
		return roots, err
	}
	stats := plan.Summarize(roots)
	debugf(ctx, "built %d node(s) under %d root(s), max depth %d", stats.Nodes, stats.Roots, stats.MaxDepth)
	return roots, nil
}
