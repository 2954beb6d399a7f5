package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/salmonumbrella/planview/internal/output"
)

func withTestContext(t *testing.T, format output.Format, yes bool) (*bytes.Buffer, *bytes.Buffer, func()) {
	t.Helper()
	in := &bytes.Buffer{}
	out := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}

	ctx := withIO(context.Background(), in, out, errBuf)
	ctx = output.WithFormat(ctx, format)
	ctx = output.WithYes(ctx, yes)
	ctx = output.WithQuiet(ctx, true)
	rootCmd.SetContext(ctx)

	prevType := outputType
	prevFmt := outputFmt
	outputType = format
	outputFmt = string(format)

	return out, errBuf, func() {
		outputType = prevType
		outputFmt = prevFmt
		rootCmd.SetContext(context.Background())
	}
}

// snapshotCLIState captures command globals and returns a function that
// puts them back, resetting every flag to its default.
func snapshotCLIState() func() {
	prevOutputType := outputType
	prevConfig := loadedConfig
	prevStyle := depthStyle
	prevIndent := indentWidth
	prevRender := renderOpts
	prevEnvGet := envGet
	prevOpenStore := openSecretsStore
	prevOpenSource := openPlanSource

	prevOut := rootCmd.OutOrStdout()
	prevErr := rootCmd.ErrOrStderr()
	prevIn := rootCmd.InOrStdin()
	prevCtx := rootCmd.Context()

	return func() {
		resetFlags(rootCmd)
		outputType = prevOutputType
		loadedConfig = prevConfig
		depthStyle = prevStyle
		indentWidth = prevIndent
		renderOpts = prevRender
		envGet = prevEnvGet
		openSecretsStore = prevOpenStore
		openPlanSource = prevOpenSource

		rootCmd.SetOut(prevOut)
		rootCmd.SetErr(prevErr)
		rootCmd.SetIn(prevIn)
		rootCmd.SetContext(prevCtx)
		rootCmd.SetArgs(nil)
	}
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

type cliResult struct {
	stdout string
	stderr string
	err    error
}

// runCLI executes the root command the way main does, with an isolated
// config path and environment. Stubs installed before the call stay in
// place for its duration.
func runCLI(t *testing.T, env map[string]string, stdin string, args ...string) cliResult {
	t.Helper()
	restore := snapshotCLIState()
	defer restore()

	in := strings.NewReader(stdin)
	out := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errBuf)
	rootCmd.SetContext(withIO(context.Background(), in, out, errBuf))

	envGet = func(key string) string { return env[key] }

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))

	err := rootCmd.Execute()
	if err != nil {
		printCommandError(currentContext(), err)
	}
	return cliResult{stdout: out.String(), stderr: errBuf.String(), err: err}
}
