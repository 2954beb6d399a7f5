package source

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// DefaultDSN opens a private in-memory database.
const DefaultDSN = ":memory:"

var explainPrefix = regexp.MustCompile(`(?is)^\s*explain(\s+query\s+plan)?\s+`)

// SQLite is a PlanSource backed by a SQLite session.
type SQLite struct {
	db  *sql.DB
	dsn string
}

// Open connects to the SQLite database named by dsn. The pool is limited to
// one connection so that in-memory databases keep their schema between
// calls.
func Open(ctx context.Context, dsn string) (*SQLite, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = DefaultDSN
	}
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, ConnectionError{Message: "opening database", Err: err}
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, ConnectionError{Message: fmt.Sprintf("connecting to %s", dsn), Err: err}
	}
	return &SQLite{db: db, dsn: dsn}, nil
}

// DSN returns the data source name the session was opened with.
func (s *SQLite) DSN() string {
	return s.dsn
}

// Exec runs setup statements.
func (s *SQLite) Exec(ctx context.Context, statements string) error {
	if strings.TrimSpace(statements) == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, statements); err != nil {
		return QueryError{Query: statements, Err: err}
	}
	return nil
}

// FetchPlanText runs EXPLAIN QUERY PLAN and renders the result the way the
// sqlite3 shell does. A leading EXPLAIN or EXPLAIN QUERY PLAN in query is
// accepted and replaced.
func (s *SQLite) FetchPlanText(ctx context.Context, query string) (string, error) {
	stmt := normalizeQuery(query)
	if stmt == "" {
		return "", ValidationError{Message: "query required"}
	}

	rows, err := s.db.QueryContext(ctx, "EXPLAIN QUERY PLAN "+stmt)
	if err != nil {
		return "", QueryError{Query: stmt, Err: err}
	}
	defer rows.Close()

	var steps []eqpRow
	for rows.Next() {
		var r eqpRow
		var notused int64
		if err := rows.Scan(&r.id, &r.parent, &notused, &r.detail); err != nil {
			return "", QueryError{Query: stmt, Err: fmt.Errorf("reading plan row: %w", err)}
		}
		steps = append(steps, r)
	}
	if err := rows.Err(); err != nil {
		return "", QueryError{Query: stmt, Err: err}
	}
	return renderEQP(steps), nil
}

// Close closes the session.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func normalizeQuery(query string) string {
	q := strings.TrimSpace(query)
	q = strings.TrimSpace(strings.TrimRight(q, "; \t\r\n"))
	return explainPrefix.ReplaceAllString(q, "")
}

type eqpRow struct {
	id     int64
	parent int64
	detail string
}

// renderEQP lays out EXPLAIN QUERY PLAN rows as an indented tree under a
// "QUERY PLAN" header. Rows link to their parent by id; parent 0 is the top.
func renderEQP(rows []eqpRow) string {
	var b strings.Builder
	b.WriteString("QUERY PLAN\n")
	renderEQPLevel(&b, rows, 0, "", make(map[int64]bool))
	return b.String()
}

func renderEQPLevel(b *strings.Builder, rows []eqpRow, parent int64, prefix string, seen map[int64]bool) {
	var kids []eqpRow
	for _, r := range rows {
		if r.parent == parent && !seen[r.id] {
			kids = append(kids, r)
		}
	}
	for i, r := range kids {
		seen[r.id] = true
		connector, next := "|--", "|  "
		if i == len(kids)-1 {
			connector, next = "`--", "   "
		}
		b.WriteString(prefix + connector + r.detail + "\n")
		renderEQPLevel(b, rows, r.id, prefix+next, seen)
	}
}
