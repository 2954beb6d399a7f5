package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
)

type (
	ioKey          struct{}
	errorFormatKey struct{}
	debugKey       struct{}
)

// streams are the command's stdin, stdout and stderr. Unset streams fall
// back to the process ones.
type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

func withIO(ctx context.Context, in io.Reader, out, err io.Writer) context.Context {
	return context.WithValue(ctx, ioKey{}, streams{in: in, out: out, err: err})
}

func streamsFrom(ctx context.Context) streams {
	var s streams
	if ctx != nil {
		s, _ = ctx.Value(ioKey{}).(streams)
	}
	if s.in == nil {
		s.in = os.Stdin
	}
	if s.out == nil {
		s.out = os.Stdout
	}
	if s.err == nil {
		s.err = os.Stderr
	}
	return s
}

func stdinFromContext(ctx context.Context) io.Reader  { return streamsFrom(ctx).in }
func stdoutFromContext(ctx context.Context) io.Writer { return streamsFrom(ctx).out }
func stderrFromContext(ctx context.Context) io.Writer { return streamsFrom(ctx).err }

// WithErrorFormat stores the --error-format value.
func WithErrorFormat(ctx context.Context, format string) context.Context {
	return context.WithValue(ctx, errorFormatKey{}, format)
}

// ErrorFormatFromContext returns the stored --error-format value.
func ErrorFormatFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(errorFormatKey{}).(string)
	return v
}

func withDebug(ctx context.Context, on bool) context.Context {
	return context.WithValue(ctx, debugKey{}, on)
}

// debugf prints a diagnostic line on stderr when --debug is set.
func debugf(ctx context.Context, format string, args ...interface{}) {
	if ctx == nil {
		return
	}
	if on, _ := ctx.Value(debugKey{}).(bool); !on {
		return
	}
	_, _ = fmt.Fprintf(stderrFromContext(ctx), "debug: "+format+"\n", args...)
}
