package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/salmonumbrella/planview/internal/output"
	"github.com/salmonumbrella/planview/internal/plan"
)

func structuredOutputRequested() bool {
	return output.IsStructured(GetOutputFormat())
}

func printStructured(data interface{}) error {
	ctx := currentContext()
	printer := output.NewPrinter(stdoutFromContext(ctx), GetOutputFormat())
	return printer.Print(ctx, data)
}

// forestView prints a forest as a connector tree in text mode and as nested
// nodes everywhere else.
type forestView struct {
	roots []*plan.Node
	opts  plan.RenderOptions
}

func (f forestView) RenderText(w io.Writer) error {
	return plan.Render(w, f.roots, f.opts)
}

// printForest writes roots in the selected format. Table output lists one
// row per node.
func printForest(roots []*plan.Node) error {
	if roots == nil {
		roots = []*plan.Node{}
	}
	switch GetOutputFormat() {
	case output.FormatText:
		return printStructured(forestView{roots: roots, opts: renderOpts})
	case output.FormatTable:
		return printStructured(plan.Steps(roots))
	default:
		return printStructured(roots)
	}
}

// printSteps writes the flattened pre-order listing. Text mode falls back
// to a table because a bare list of structs reads poorly.
func printSteps(roots []*plan.Node) error {
	steps := plan.Steps(roots)
	if steps == nil {
		steps = []plan.Step{}
	}
	if GetOutputFormat() == output.FormatText {
		ctx := currentContext()
		shown, _ := output.ApplyAgentOptions(ctx, steps).([]plan.Step)
		return output.NewPrinter(stdoutFromContext(ctx), output.FormatTable).Print(ctx, stepsTable(shown))
	}
	return printStructured(steps)
}

// stepsTable indents each label by its depth so the text listing still reads
// as a tree.
func stepsTable(steps []plan.Step) output.Table {
	table := output.Table{Headers: []string{"id", "parent", "depth", "line", "label"}}
	for _, s := range steps {
		table.Rows = append(table.Rows, []string{
			strconv.Itoa(s.ID),
			strconv.Itoa(s.Parent),
			strconv.Itoa(s.Depth),
			strconv.Itoa(s.Line),
			strings.Repeat("  ", s.Depth) + s.Label,
		})
	}
	return table
}

// printNotice writes a human-facing status line unless --quiet is set.
func printNotice(ctx context.Context, format string, args ...interface{}) {
	if output.QuietFromContext(ctx) {
		return
	}
	_, _ = fmt.Fprintf(stderrFromContext(ctx), format+"\n", args...)
}

func currentContext() context.Context {
	if rootCmd != nil && rootCmd.Context() != nil {
		return rootCmd.Context()
	}
	return context.Background()
}
