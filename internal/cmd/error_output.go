package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/salmonumbrella/planview/internal/output"
	"github.com/salmonumbrella/planview/internal/plan"
	"github.com/salmonumbrella/planview/internal/secrets"
	"github.com/salmonumbrella/planview/internal/source"
)

var errorFormats = map[string]bool{"": true, "auto": true, "text": true, "json": true, "yaml": true}

func validateErrorFormat(format string) error {
	if !errorFormats[strings.ToLower(strings.TrimSpace(format))] {
		return fmt.Errorf("invalid --error-format %q (expected auto|text|json|yaml)", format)
	}
	return nil
}

// effectiveErrorFormat resolves "auto" from the output format so that
// structured output gets structured errors.
func effectiveErrorFormat(ctx context.Context) string {
	format := strings.ToLower(strings.TrimSpace(ErrorFormatFromContext(ctx)))
	if format != "" && format != "auto" {
		return format
	}
	switch output.FormatFromContext(ctx) {
	case output.FormatJSON, output.FormatNDJSON:
		return "json"
	case output.FormatYAML:
		return "yaml"
	}
	return "text"
}

// printCommandError writes err to stderr. Encoding failures are dropped;
// there is nowhere left to report them.
func printCommandError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	w := stderrFromContext(ctx)

	switch effectiveErrorFormat(ctx) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		_ = enc.Encode(buildErrorEnvelope(err))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		_ = enc.Encode(buildErrorEnvelope(err))
		_ = enc.Close()
	default:
		_, _ = fmt.Fprintln(w, err)
	}
}

// buildErrorEnvelope classifies err for machine consumers. Parse errors carry
// the offending line so callers can point at it.
func buildErrorEnvelope(err error) map[string]interface{} {
	payload := map[string]interface{}{
		"error": map[string]interface{}{
			"message": err.Error(),
		},
	}

	errMap := payload["error"].(map[string]interface{})
	errMap["category"] = "system"
	errMap["type"] = "error"

	var parseErr *plan.ParseError
	if errors.As(err, &parseErr) {
		errMap["type"] = "parse"
		errMap["category"] = "user"
		errMap["line"] = parseErr.Line
		errMap["text"] = parseErr.Text
		errMap["reason"] = parseErr.Reason
	}

	var validationErr source.ValidationError
	if errors.As(err, &validationErr) {
		errMap["type"] = "validation"
		errMap["category"] = "user"
	}

	var connErr source.ConnectionError
	if errors.As(err, &connErr) {
		errMap["type"] = "connection"
		errMap["category"] = "system"
	}

	var queryErr source.QueryError
	if errors.As(err, &queryErr) {
		errMap["type"] = "query"
		errMap["category"] = "user"
	}

	if errors.Is(err, secrets.ErrProfileNotFound) {
		errMap["type"] = "not_found"
		errMap["category"] = "user"
	}

	if errors.Is(err, context.DeadlineExceeded) {
		errMap["subtype"] = "timeout"
	}

	return payload
}
