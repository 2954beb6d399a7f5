package cmd

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
)

func TestWithIO(t *testing.T) {
	in := strings.NewReader("input")
	out := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}

	ctx := withIO(context.Background(), in, out, errBuf)

	if stdinFromContext(ctx) != in {
		t.Error("expected stdin to be the provided reader")
	}
	if stdoutFromContext(ctx) != out {
		t.Error("expected stdout to be the provided buffer")
	}
	if stderrFromContext(ctx) != errBuf {
		t.Error("expected stderr to be the provided buffer")
	}
}

func TestIOFallsBackToProcessStreams(t *testing.T) {
	contexts := map[string]context.Context{
		"nil":    nil,
		"empty":  context.Background(),
		"nil io": withIO(context.Background(), nil, nil, nil),
	}
	for name, ctx := range contexts {
		if stdinFromContext(ctx) != os.Stdin {
			t.Errorf("%s: expected os.Stdin", name)
		}
		if stdoutFromContext(ctx) != os.Stdout {
			t.Errorf("%s: expected os.Stdout", name)
		}
		if stderrFromContext(ctx) != os.Stderr {
			t.Errorf("%s: expected os.Stderr", name)
		}
	}
}

func TestDebugf(t *testing.T) {
	errBuf := &bytes.Buffer{}
	ctx := withIO(context.Background(), nil, nil, errBuf)

	debugf(ctx, "style=%s", "tree")
	if errBuf.Len() != 0 {
		t.Fatalf("expected no output without --debug, got %q", errBuf.String())
	}

	debugf(withDebug(ctx, true), "style=%s", "tree")
	if errBuf.String() != "debug: style=tree\n" {
		t.Fatalf("unexpected debug output: %q", errBuf.String())
	}
}
