package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/salmonumbrella/planview/internal/output"
	"github.com/salmonumbrella/planview/internal/source"
)

var (
	explainSQLFile  string
	explainInitFile string
	explainRaw      bool
	explainTimeout  time.Duration
)

var explainCmd = &cobra.Command{
	Use:   "explain [sql]",
	Short: "Explain a query against SQLite and print its plan tree",
	Long: `Run EXPLAIN QUERY PLAN for a statement against a SQLite database and
print the plan as a tree.

The database comes from --dsn, PLANVIEW_DSN, a stored profile (--profile,
PLANVIEW_PROFILE or the profile config key), the dsn config key, or an
in-memory database. Use --init to run schema statements first, which is
handy with the in-memory database.

Examples:
  planview explain --dsn app.db "SELECT * FROM orders WHERE customer_id = 7"
  planview explain --init schema.sql --sql-file report.sql -o json
  planview explain -p staging --raw "SELECT count(*) FROM events"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExplain,
}

func init() {
	explainCmd.Flags().StringVar(&explainSQLFile, "sql-file", "", "Read the statement from a file (use - for stdin)")
	explainCmd.Flags().StringVar(&explainInitFile, "init", "", "Run SQL from this file before explaining (use - for stdin)")
	explainCmd.Flags().BoolVar(&explainRaw, "raw", false, "Print the fetched plan text without building a tree")
	explainCmd.Flags().DurationVar(&explainTimeout, "timeout", 30*time.Second, "Limit for fetching the plan (0 = no limit)")

	rootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	query, err := explainQuery(ctx, args)
	if err != nil {
		return err
	}

	dsn, from, err := resolveDSN(cmd, loadedConfig)
	if err != nil {
		return err
	}
	debugf(ctx, "dsn from %s", from)

	src, err := openPlanSource(ctx, dsn)
	if err != nil {
		return err
	}
	defer src.Close()

	if strings.TrimSpace(explainInitFile) != "" {
		statements, err := readInputSource(explainInitFile, stdinFromContext(ctx))
		if err != nil {
			return err
		}
		if err := src.Exec(ctx, statements); err != nil {
			return fmt.Errorf("init: %w", err)
		}
		debugf(ctx, "ran init statements from %s", explainInitFile)
	}

	text, err := fetchPlanText(ctx, src, query)
	if err != nil {
		return err
	}

	if explainRaw {
		if GetOutputFormat() == output.FormatText {
			_, err := io.WriteString(stdoutFromContext(ctx), text)
			return err
		}
		return printStructured(map[string]string{"query": query, "plan_text": text})
	}

	roots, err := buildForest(ctx, text)
	if err != nil {
		return err
	}
	return printForest(roots)
}

func explainQuery(ctx context.Context, args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(explainSQLFile) != "" {
		return "", source.ValidationError{Message: "use either a statement argument or --sql-file, not both"}
	}
	if strings.TrimSpace(explainSQLFile) != "" {
		return readInputSource(explainSQLFile, stdinFromContext(ctx))
	}
	if len(args) == 0 {
		return "", source.ValidationError{Message: "statement required: pass it as an argument or with --sql-file"}
	}
	return args[0], nil
}

// fetchPlanText bounds the collaborator call by --timeout. Parsing happens
// after the text is fully fetched and is not cancellable.
func fetchPlanText(ctx context.Context, src source.PlanSource, query string) (string, error) {
	if explainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, explainTimeout)
		defer cancel()
	}
	text, err := src.FetchPlanText(ctx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("fetching plan timed out after %s: %w", explainTimeout, err)
		}
		return "", err
	}
	debugf(ctx, "fetched %d byte(s) of plan text", len(text))
	return text, nil
}
