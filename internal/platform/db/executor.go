package db

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stockdesk/stockdesk/internal/shared"
)

// Querier is the subset of pgx operations the executor needs. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so the same executor runs standalone
// statements and statements inside a bulk transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Row is a generic result row keyed by column name.
type Row map[string]any

// Field pairs an allow-listed column name with its new value for updates.
type Field struct {
	Column string
	Value  any
}

// identifierPattern validates SQL identifiers (table and column names).
var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var placeholderPattern = regexp.MustCompile(`\$(\d+)`)

// Executor enforces parameter binding for all SQL reaching the database.
// Query text is always a fixed template supplied by the caller; values travel
// exclusively through the parameter list.
type Executor struct {
	q Querier
}

// NewExecutor wraps a Querier.
func NewExecutor(q Querier) *Executor {
	return &Executor{q: q}
}

// WithQuerier returns an executor bound to a different Querier, typically a
// transaction obtained from the same pool.
func (e *Executor) WithQuerier(q Querier) *Executor {
	return &Executor{q: q}
}

// SelectOne runs query and returns the first row, or nil when no row matches.
func (e *Executor) SelectOne(ctx context.Context, query string, params ...any) (Row, error) {
	if err := checkBinding(query, len(params)); err != nil {
		return nil, err
	}
	rows, err := e.q.Query(ctx, query, params...)
	if err != nil {
		return nil, &shared.StorageError{Op: "select one", Err: err}
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, &shared.StorageError{Op: "select one", Err: err}
		}
		return nil, nil
	}
	row, err := scanRow(rows)
	if err != nil {
		return nil, &shared.StorageError{Op: "select one", Err: err}
	}
	return row, nil
}

// SelectAll runs query and returns every matching row.
func (e *Executor) SelectAll(ctx context.Context, query string, params ...any) ([]Row, error) {
	if err := checkBinding(query, len(params)); err != nil {
		return nil, err
	}
	rows, err := e.q.Query(ctx, query, params...)
	if err != nil {
		return nil, &shared.StorageError{Op: "select all", Err: err}
	}
	defer rows.Close()
	result := []Row{}
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, &shared.StorageError{Op: "select all", Err: err}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &shared.StorageError{Op: "select all", Err: err}
	}
	return result, nil
}

// Exec runs a write statement with the same binding check applied to reads.
// Returns the affected row count.
func (e *Executor) Exec(ctx context.Context, query string, params ...any) (int64, error) {
	if err := checkBinding(query, len(params)); err != nil {
		return 0, err
	}
	tag, err := e.q.Exec(ctx, query, params...)
	if err != nil {
		return 0, &shared.StorageError{Op: "exec", Err: err}
	}
	return tag.RowsAffected(), nil
}

// Update sets the given fields on table for rows matching where. The where
// clause numbers its placeholders from $1 relative to whereParams; the
// executor renumbers them past the SET parameters. Returns the affected row
// count.
func (e *Executor) Update(ctx context.Context, table string, fields []Field, where string, whereParams ...any) (int64, error) {
	if err := checkIdentifier(table); err != nil {
		return 0, err
	}
	if len(fields) == 0 {
		return 0, &shared.QueryBindingError{Reason: "update requires at least one field"}
	}
	if err := checkBinding(where, len(whereParams)); err != nil {
		return 0, err
	}

	assignments := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+len(whereParams))
	for i, f := range fields {
		if err := checkIdentifier(f.Column); err != nil {
			return 0, err
		}
		assignments = append(assignments, fmt.Sprintf("%s = $%d", f.Column, i+1))
		args = append(args, f.Value)
	}
	args = append(args, whereParams...)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		table, strings.Join(assignments, ", "), shiftPlaceholders(where, len(fields)))
	tag, err := e.q.Exec(ctx, query, args...)
	if err != nil {
		return 0, &shared.StorageError{Op: "update " + table, Err: err}
	}
	return tag.RowsAffected(), nil
}

// Delete removes rows from table matching where and returns the affected row
// count.
func (e *Executor) Delete(ctx context.Context, table string, where string, whereParams ...any) (int64, error) {
	if err := checkIdentifier(table); err != nil {
		return 0, err
	}
	if strings.TrimSpace(where) == "" {
		return 0, &shared.QueryBindingError{Reason: "delete requires a where clause"}
	}
	if err := checkBinding(where, len(whereParams)); err != nil {
		return 0, err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", table, where)
	tag, err := e.q.Exec(ctx, query, whereParams...)
	if err != nil {
		return 0, &shared.StorageError{Op: "delete " + table, Err: err}
	}
	return tag.RowsAffected(), nil
}

// IsConstraintViolation reports whether err stems from an integrity
// constraint (foreign key, unique, check).
func IsConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return strings.HasPrefix(pgErr.Code, "23")
}

// checkBinding verifies that placeholder usage matches the parameter list:
// every index from $1 to $n appears at least once and n equals the number of
// supplied parameters. Failures surface before the database is touched.
func checkBinding(query string, paramCount int) error {
	matches := placeholderPattern.FindAllStringSubmatch(query, -1)
	seen := map[int]bool{}
	max := 0
	for _, m := range matches {
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 1 {
			return &shared.QueryBindingError{Reason: "malformed placeholder " + m[0]}
		}
		seen[idx] = true
		if idx > max {
			max = idx
		}
	}
	if max != paramCount {
		return &shared.QueryBindingError{
			Reason: fmt.Sprintf("query references %d placeholders, %d parameters supplied", max, paramCount),
		}
	}
	for i := 1; i <= max; i++ {
		if !seen[i] {
			return &shared.QueryBindingError{Reason: fmt.Sprintf("placeholder $%d unused", i)}
		}
	}
	return nil
}

func checkIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return &shared.QueryBindingError{Reason: "invalid identifier " + strconv.Quote(name)}
	}
	return nil
}

// shiftPlaceholders renumbers $1..$n in clause by offset.
func shiftPlaceholders(clause string, offset int) string {
	if offset == 0 {
		return clause
	}
	return placeholderPattern.ReplaceAllStringFunc(clause, func(m string) string {
		idx, err := strconv.Atoi(m[1:])
		if err != nil {
			return m
		}
		return "$" + strconv.Itoa(idx+offset)
	})
}

func scanRow(rows pgx.Rows) (Row, error) {
	values, err := rows.Values()
	if err != nil {
		return nil, err
	}
	row := make(Row, len(values))
	for i, fd := range rows.FieldDescriptions() {
		row[fd.Name] = values[i]
	}
	return row, nil
}
