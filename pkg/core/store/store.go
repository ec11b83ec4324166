// Package store is the boundary to the relational row store. Business code
// talks to RowStore; PGStore backs it with Postgres and MemoryStore keeps
// rows in process for tests and local runs.
package store

import (
	"context"
	"errors"
)

// PageSize is the maximum number of rows returned by one Select call.
const PageSize = 1000

// ErrNotFound is returned by lookups that expect exactly one row.
var ErrNotFound = errors.New("row not found")

// Row is one record as exchanged with the store. Values are nil, string,
// bool, float64/int64 family numbers or time.Time.
type Row map[string]interface{}

type Op string

const (
	OpEq     Op = "eq"
	OpGte    Op = "gte"
	OpLte    Op = "lte"
	OpILike  Op = "ilike" // substring match, case-insensitive
	OpIn     Op = "in"
	OpIsNull Op = "is_null"
)

type Filter struct {
	Column string
	Op     Op
	Value  interface{}
}

func Eq(col string, v interface{}) Filter      { return Filter{Column: col, Op: OpEq, Value: v} }
func Gte(col string, v interface{}) Filter     { return Filter{Column: col, Op: OpGte, Value: v} }
func Lte(col string, v interface{}) Filter     { return Filter{Column: col, Op: OpLte, Value: v} }
func ILike(col string, sub string) Filter      { return Filter{Column: col, Op: OpILike, Value: sub} }
func In(col string, vals []interface{}) Filter { return Filter{Column: col, Op: OpIn, Value: vals} }

type Order struct {
	Column string
	Desc   bool
}

// Query selects a page of rows. Empty Columns means all columns.
type Query struct {
	Columns []string
	Filters []Filter
	OrderBy []Order
	Limit   int
	Offset  int
}

// RowStore is the generic query API the core is written against.
type RowStore interface {
	Select(ctx context.Context, table string, q Query) ([]Row, error)
	// Upsert inserts rows or updates the existing row sharing the conflict
	// columns. A nil value never overwrites a stored non-null value.
	// It returns the number of rows written.
	Upsert(ctx context.Context, table string, rows []Row, conflictColumns []string) (int, error)
	Delete(ctx context.Context, table string, filters []Filter) (int, error)
}

// SelectAll pages through every matching row PageSize rows at a time.
// q.OrderBy should be set so pages are stable.
func SelectAll(ctx context.Context, s RowStore, table string, q Query) ([]Row, error) {
	var all []Row
	q.Limit = PageSize
	q.Offset = 0
	for {
		page, err := s.Select(ctx, table, q)
		if err != nil {
			return all, err
		}
		all = append(all, page...)
		if len(page) < PageSize {
			return all, nil
		}
		q.Offset += PageSize
	}
}

// SelectOne returns the first matching row or ErrNotFound.
func SelectOne(ctx context.Context, s RowStore, table string, filters ...Filter) (Row, error) {
	rows, err := s.Select(ctx, table, Query{Filters: filters, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}
