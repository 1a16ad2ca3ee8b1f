package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/johnrirwin/channelfeed/internal/query"
)

// Querier is the subset of *sql.DB the source needs
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// PostgresSource executes condition trees against Postgres
type PostgresSource struct {
	db Querier
}

// NewPostgresSource creates a source over an open connection
func NewPostgresSource(db Querier) *PostgresSource {
	return &PostgresSource{db: db}
}

// Select runs a filtered, ordered and limited read
func (s *PostgresSource) Select(ctx context.Context, table string, fields []string, where query.Condition, order []query.Order, limit query.Limit) ([]query.Row, error) {
	stmt, args, err := buildSelect(table, fields, where, order, limit)
	if err != nil {
		return nil, fmt.Errorf("compile select on %s: %w", table, err)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	var out []query.Row
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		row := make(query.Row, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", table, err)
	}
	return out, nil
}

// Count returns the number of matching rows
func (s *PostgresSource) Count(ctx context.Context, table string, where query.Condition) (int64, error) {
	c := &compiler{}
	cond, err := c.compile(where)
	if err != nil {
		return 0, fmt.Errorf("compile count on %s: %w", table, err)
	}

	var n int64
	stmt := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", quote(table), cond)
	if err := s.db.QueryRowContext(ctx, stmt, c.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// Exists reports whether any row matches
func (s *PostgresSource) Exists(ctx context.Context, table string, where query.Condition) (bool, error) {
	c := &compiler{}
	cond, err := c.compile(where)
	if err != nil {
		return false, fmt.Errorf("compile exists on %s: %w", table, err)
	}

	var exists bool
	stmt := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s)", quote(table), cond)
	if err := s.db.QueryRowContext(ctx, stmt, c.args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists %s: %w", table, err)
	}
	return exists, nil
}

// Update sets columns on every matching row and returns the affected count
func (s *PostgresSource) Update(ctx context.Context, table string, set map[string]interface{}, where query.Condition) (int64, error) {
	if len(set) == 0 {
		return 0, nil
	}

	c := &compiler{}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	assignments := make([]string, len(keys))
	for i, k := range keys {
		assignments[i] = quote(k) + " = " + c.bind(set[k])
	}

	cond, err := c.compile(where)
	if err != nil {
		return 0, fmt.Errorf("compile update on %s: %w", table, err)
	}

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s", quote(table), strings.Join(assignments, ", "), cond)
	res, err := s.db.ExecContext(ctx, stmt, c.args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

var _ query.DataSource = (*PostgresSource)(nil)
