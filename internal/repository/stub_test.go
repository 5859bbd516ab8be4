package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubRow struct {
	scan func(dest ...any) error
}

func (r stubRow) Scan(dest ...any) error {
	if r.scan == nil {
		return errors.New("no row")
	}
	return r.scan(dest...)
}

// stubRows replays fixed values through reflection into Scan targets.
type stubRows struct {
	values [][]any
	pos    int
	err    error
}

func (r *stubRows) Close()                                       {}
func (r *stubRows) Err() error                                   { return r.err }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

func (r *stubRows) Next() bool {
	if r.pos >= len(r.values) {
		return false
	}
	r.pos++
	return true
}

func (r *stubRows) Values() ([]any, error) {
	return r.values[r.pos-1], nil
}

func (r *stubRows) Scan(dest ...any) error {
	return assign(r.values[r.pos-1], dest)
}

func assign(values []any, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("scan: have %d values, %d targets", len(values), len(dest))
	}
	for i, v := range values {
		target := reflect.ValueOf(dest[i]).Elem()
		if v == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(v))
	}
	return nil
}

type execCall struct {
	query string
	args  []any
}

// stubDB records calls and answers with canned rows.
type stubDB struct {
	queryRow func(query string, args []any) pgx.Row
	query    func(query string, args []any) (pgx.Rows, error)
	exec     func(query string, args []any) (pgconn.CommandTag, error)

	calls []execCall
}

func (s *stubDB) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.calls = append(s.calls, execCall{query, args})
	if s.exec == nil {
		return pgconn.CommandTag{}, fmt.Errorf("unsupported exec: %s", query)
	}
	return s.exec(query, args)
}

func (s *stubDB) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	s.calls = append(s.calls, execCall{query, args})
	if s.query == nil {
		return nil, fmt.Errorf("unsupported query: %s", query)
	}
	return s.query(query, args)
}

func (s *stubDB) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.calls = append(s.calls, execCall{query, args})
	if s.queryRow == nil {
		return stubRow{scan: func(dest ...any) error {
			return fmt.Errorf("unsupported query: %s", query)
		}}
	}
	return s.queryRow(query, args)
}

func jsonRow(raw string) pgx.Row {
	return stubRow{scan: func(dest ...any) error {
		*(dest[0].(*[]byte)) = []byte(raw)
		return nil
	}}
}
