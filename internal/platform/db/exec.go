package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx, so repositories run the same
// statements inside or outside a unit of work.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Mode selects how many rows Execute returns.
type Mode int

const (
	// ModeNone discards any result rows.
	ModeNone Mode = iota
	// ModeOne returns at most the first row.
	ModeOne
	// ModeAll returns every row.
	ModeAll
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeOne:
		return "one"
	case ModeAll:
		return "all"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Row is a result row keyed by column name.
type Row = map[string]any

// Result carries the rows produced by Execute.
type Result struct {
	Rows []Row
}

// One returns the first row, or nil when the statement matched nothing.
func (r Result) One() Row {
	if len(r.Rows) == 0 {
		return nil
	}
	return r.Rows[0]
}

// Execute runs one parameterized statement and returns its rows as mappings
// according to mode.
func Execute(ctx context.Context, q DBTX, mode Mode, stmt string, args ...any) (Result, error) {
	switch mode {
	case ModeNone:
		if _, err := q.Exec(ctx, stmt, args...); err != nil {
			return Result{}, fmt.Errorf("platform/db: exec: %w", Classify(err))
		}
		return Result{}, nil
	case ModeOne:
		rows, err := q.Query(ctx, stmt, args...)
		if err != nil {
			return Result{}, fmt.Errorf("platform/db: query one: %w", Classify(err))
		}
		row, err := pgx.CollectOneRow(rows, pgx.RowToMap)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return Result{}, nil
			}
			return Result{}, fmt.Errorf("platform/db: query one: %w", Classify(err))
		}
		return Result{Rows: []Row{row}}, nil
	case ModeAll:
		rows, err := q.Query(ctx, stmt, args...)
		if err != nil {
			return Result{}, fmt.Errorf("platform/db: query all: %w", Classify(err))
		}
		all, err := pgx.CollectRows(rows, pgx.RowToMap)
		if err != nil {
			return Result{}, fmt.Errorf("platform/db: query all: %w", Classify(err))
		}
		return Result{Rows: all}, nil
	default:
		return Result{}, fmt.Errorf("platform/db: unsupported %s", mode)
	}
}

// One runs stmt and scans the single resulting row into T by column name.
// It returns shared.ErrNotFound when no row matches.
func One[T any](ctx context.Context, q DBTX, stmt string, args ...any) (T, error) {
	var zero T
	rows, err := q.Query(ctx, stmt, args...)
	if err != nil {
		return zero, Classify(err)
	}
	v, err := pgx.CollectOneRow(rows, pgx.RowToStructByNameLax[T])
	if err != nil {
		return zero, Classify(err)
	}
	return v, nil
}

// All runs stmt and scans every resulting row into T by column name.
func All[T any](ctx context.Context, q DBTX, stmt string, args ...any) ([]T, error) {
	rows, err := q.Query(ctx, stmt, args...)
	if err != nil {
		return nil, Classify(err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[T])
	if err != nil {
		return nil, Classify(err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Exec runs stmt and returns the number of affected rows.
func Exec(ctx context.Context, q DBTX, stmt string, args ...any) (int64, error) {
	tag, err := q.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, Classify(err)
	}
	return tag.RowsAffected(), nil
}
