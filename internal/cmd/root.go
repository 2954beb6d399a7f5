package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/salmonumbrella/planview/internal/config"
	"github.com/salmonumbrella/planview/internal/output"
	"github.com/salmonumbrella/planview/internal/plan"
)

var (
	// Version is set at build time
	version = "dev"
	// Commit is set at build time
	commit = "none"
	// Date is set at build time
	date = "unknown"
)

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(versionTemplate())
}

func versionTemplate() string {
	return fmt.Sprintf("planview version %s (commit: %s, built: %s)\n", version, commit, date)
}

// Global flags
var (
	dsnFlag     string
	profileName string
	outputFmt   string
	outputType  output.Format
	debug       bool
	configFile  string
	queryExpr   string
	queryFile   string
	errorFmt    string
	quietFlag   bool
	yesFlag     bool
	resultLimit int
	resultSort  string
	resultDesc  bool
	styleFlag   string
	indentFlag  int
	colorFlag   string
	unicodeFlag bool
)

// Settings resolved in PersistentPreRunE.
var (
	loadedConfig *config.Config
	depthStyle   plan.Style
	indentWidth  int
	renderOpts   plan.RenderOptions
)

var rootCmd = &cobra.Command{
	Use:   "planview",
	Short: "Rebuild and inspect query execution plan trees",
	Long: `planview turns the flat, indented text of a query execution plan into a
tree you can print, filter and export.

Plan text can come from a file, stdin, or a live SQLite database
(EXPLAIN QUERY PLAN). Indented outlines, sqlite3-shell connector trees and
PostgreSQL EXPLAIN output are understood.

Environment Variables:
  PLANVIEW_DSN       SQLite data source name for explain
  PLANVIEW_PROFILE   Stored connection profile to use for explain`,
	Version:       version,
	SilenceUsage:  false,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceErrors = true

		skipConfigLoad := cmd.Name() == "config" || (cmd.Parent() != nil && cmd.Parent().Name() == "config")
		cfg := &config.Config{}
		if !skipConfigLoad {
			loadedCfg, err := loadConfigFromFlag()
			if err != nil {
				return formatConfigLoadError(err)
			}
			cfg = loadedCfg
		}
		loadedConfig = cfg

		// Output format selection: --output > config > default
		formatStr := outputFmt
		if !flagChanged(cmd, "output") && !flagChanged(cmd, "format") && strings.TrimSpace(cfg.OutputFormat) != "" {
			formatStr = strings.TrimSpace(cfg.OutputFormat)
		}
		if !flagChanged(cmd, "output") && !flagChanged(cmd, "format") && !isTerminal(cmd.OutOrStdout()) && strings.TrimSpace(cfg.OutputFormat) == "" {
			formatStr = "json"
		}
		format, err := output.ParseFormat(formatStr)
		if err != nil {
			return err
		}
		outputType = format
		outputFmt = string(format)

		// jq query
		if queryExpr != "" && queryFile != "" {
			return fmt.Errorf("use only one of --query or --query-file")
		}
		if queryFile != "" {
			loaded, err := readInputSource(queryFile, cmd.InOrStdin())
			if err != nil {
				return err
			}
			queryExpr = loaded
		}

		// Default quiet mode for non-interactive structured output
		if !flagChanged(cmd, "quiet") && !isTerminal(cmd.OutOrStdout()) && output.IsStructured(outputType) {
			quietFlag = true
		}

		ctx := cmd.Context()
		ctx = withIO(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		ctx = output.WithFormat(ctx, outputType)
		ctx = output.WithQuery(ctx, queryExpr)
		ctx = output.WithYes(ctx, yesFlag)
		ctx = output.WithLimit(ctx, resultLimit)
		ctx = output.WithSort(ctx, resultSort, resultDesc)
		ctx = output.WithQuiet(ctx, quietFlag)
		ctx = WithErrorFormat(ctx, errorFmt)
		ctx = withDebug(ctx, debug)
		cmd.SetContext(ctx)
		// Printers and the error envelope read the root context.
		cmd.Root().SetContext(ctx)

		if err := validateErrorFormat(errorFmt); err != nil {
			return err
		}
		if err := resolveParseSettings(cmd, cfg); err != nil {
			return err
		}
		// Usage is printed for flag mistakes only, not for failures in RunE.
		cmd.SilenceUsage = true
		debugf(ctx, "output=%s style=%s indent=%d color=%v", outputType, depthStyle, indentWidth, renderOpts.Color)
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		printCommandError(currentContext(), err)
		return err
	}
	return nil
}

// GetOutputFormat returns the configured output format
func GetOutputFormat() output.Format {
	if outputType != "" {
		return outputType
	}
	parsed, err := output.ParseFormat(outputFmt)
	if err != nil {
		return output.FormatText
	}
	return parsed
}

func init() {
	rootCmd.SetVersionTemplate(versionTemplate())

	// Global flags
	rootCmd.PersistentFlags().StringVar(&dsnFlag, "dsn", "", "SQLite data source name (env: PLANVIEW_DSN)")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "Stored connection profile (env: PLANVIEW_PROFILE)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "text", "Output format (text|json|ndjson|table|yaml)")
	rootCmd.PersistentFlags().StringVar(&outputFmt, "format", "text", "Alias for --output")
	rootCmd.PersistentFlags().StringVar(&queryExpr, "query", "", "jq expression to filter JSON output")
	rootCmd.PersistentFlags().StringVar(&queryFile, "query-file", "", "Read jq expression from file (use - for stdin)")
	rootCmd.PersistentFlags().StringVar(&errorFmt, "error-format", "auto", "Error output format (auto|text|json|yaml)")
	rootCmd.PersistentFlags().BoolVar(&quietFlag, "quiet", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&yesFlag, "yes", "y", false, "Skip confirmation prompts (for automation)")
	rootCmd.PersistentFlags().IntVar(&resultLimit, "result-limit", 0, "Limit number of results in output (0 = unlimited)")
	rootCmd.PersistentFlags().StringVar(&resultSort, "result-sort-by", "", "Sort output results by field")
	rootCmd.PersistentFlags().BoolVar(&resultDesc, "result-desc", false, "Sort output results in descending order")
	rootCmd.PersistentFlags().StringVar(&styleFlag, "style", "", "Depth convention of plan text (auto|tree|indent|arrow)")
	rootCmd.PersistentFlags().IntVar(&indentFlag, "indent", 0, "Spaces per level for --style indent (default 2)")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", "", "Colorize tree output (auto|always|never)")
	rootCmd.PersistentFlags().BoolVar(&unicodeFlag, "unicode", false, "Draw trees with box-drawing characters")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: ~/.config/planview/config.yaml)")
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
