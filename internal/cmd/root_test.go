package cmd

import (
	"strings"
	"testing"
)

func TestVersionOutput(t *testing.T) {
	prevV, prevC, prevD := version, commit, date
	defer SetVersionInfo(prevV, prevC, prevD)

	SetVersionInfo("1.2.3", "abc123", "2026-01-02")
	res := runCLI(t, nil, "", "--version")
	if res.err != nil {
		t.Fatalf("execute: %v", res.err)
	}
	if res.stdout != "planview version 1.2.3 (commit: abc123, built: 2026-01-02)\n" {
		t.Fatalf("unexpected version output: %q", res.stdout)
	}
}

func TestRootRegistersCommands(t *testing.T) {
	want := []string{"config", "explain", "parse", "profile", "steps"}
	var got []string
	for _, c := range rootCmd.Commands() {
		got = append(got, c.Name())
	}
	joined := strings.Join(got, ",")
	for _, name := range want {
		if !strings.Contains(joined, name) {
			t.Errorf("missing command %s in %s", name, joined)
		}
	}
}

func TestStructuredOutputKeepsStderrClean(t *testing.T) {
	res := runCLI(t, nil, "A\n", "-o", "json", "parse")
	if res.err != nil {
		t.Fatalf("execute: %v", res.err)
	}
	if res.stderr != "" {
		t.Fatalf("expected no stderr noise, got %q", res.stderr)
	}
}
