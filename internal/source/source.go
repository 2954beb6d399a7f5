// Package source fetches raw execution plan text from a database session.
package source

import (
	"context"
	"fmt"
)

// PlanSource returns the textual execution plan for a query. Implementations
// own a database session and must be closed.
type PlanSource interface {
	// FetchPlanText asks the database how it would execute query and returns
	// the plan in its line-oriented text form.
	FetchPlanText(ctx context.Context, query string) (string, error)

	// Exec runs setup statements (schema, indexes) on the session.
	Exec(ctx context.Context, statements string) error

	// Close releases the session.
	Close() error
}

// Error types for plan source failures. They never describe plan text
// structure; see plan.ParseError for that.
type (
	// ValidationError indicates unusable input such as an empty query.
	ValidationError struct{ Message string }
	// ConnectionError indicates the session could not be opened.
	ConnectionError struct {
		Message string
		Err     error
	}
	// QueryError indicates the database rejected the statement.
	QueryError struct {
		Query string
		Err   error
	}
)

func (e ValidationError) Error() string { return e.Message }

func (e ConnectionError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e ConnectionError) Unwrap() error { return e.Err }

func (e QueryError) Error() string {
	return fmt.Sprintf("explain failed: %v", e.Err)
}

func (e QueryError) Unwrap() error { return e.Err }
