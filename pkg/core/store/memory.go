package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore implements RowStore in process. Upserts follow the same
// COALESCE semantics as PGStore. Hooks allow tests to inject failures.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string][]Row

	// UpsertHook runs before each upsert; a non-nil error aborts it.
	UpsertHook func(table string, rows []Row) error
	// SelectErr forces Select on a table to fail.
	SelectErr map[string]error

	upsertCalls int
}

var _ RowStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string][]Row)}
}

func (s *MemoryStore) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	if err := s.SelectErr[table]; err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Row
	for _, r := range s.tables[table] {
		ok, err := matchAll(r, q.Filters)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, r)
		}
	}

	if len(q.OrderBy) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, o := range q.OrderBy {
				c := compareValues(matched[i][o.Column], matched[j][o.Column])
				if c == 0 {
					continue
				}
				if o.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[q.Offset:]
	}
	limit := q.Limit
	if limit <= 0 || limit > PageSize {
		limit = PageSize
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]Row, len(matched))
	for i, r := range matched {
		if len(q.Columns) == 0 {
			out[i] = r.Clone()
			continue
		}
		proj := make(Row, len(q.Columns))
		for _, c := range q.Columns {
			proj[c] = r[c]
		}
		out[i] = proj
	}
	return out, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, table string, rows []Row, conflictColumns []string) (int, error) {
	if len(conflictColumns) == 0 {
		return 0, fmt.Errorf("upsert %s: no conflict columns", table)
	}
	if s.UpsertHook != nil {
		if err := s.UpsertHook(table, rows); err != nil {
			return 0, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertCalls++

	seen := map[string]bool{}
	for _, r := range rows {
		key := conflictKey(r, conflictColumns)
		if seen[key] {
			return 0, fmt.Errorf("upsert %s: ON CONFLICT DO UPDATE command cannot affect row a second time (key %q)", table, key)
		}
		seen[key] = true
	}

	existing := s.tables[table]
	for _, r := range rows {
		key := conflictKey(r, conflictColumns)
		idx := -1
		for i, e := range existing {
			if conflictKey(e, conflictColumns) == key {
				idx = i
				break
			}
		}
		if idx < 0 {
			existing = append(existing, r.Clone())
			continue
		}
		merged := existing[idx].Clone()
		for k, v := range r {
			if v != nil {
				merged[k] = v
			}
		}
		existing[idx] = merged
	}
	s.tables[table] = existing
	return len(rows), nil
}

func (s *MemoryStore) Delete(ctx context.Context, table string, filters []Filter) (int, error) {
	if len(filters) == 0 {
		return 0, fmt.Errorf("delete %s: refusing to delete without filters", table)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []Row
	deleted := 0
	for _, r := range s.tables[table] {
		ok, err := matchAll(r, filters)
		if err != nil {
			return 0, err
		}
		if ok {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	s.tables[table] = kept
	return deleted, nil
}

// Rows returns a copy of every row in a table, in insertion order.
func (s *MemoryStore) Rows(table string) []Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Row, len(s.tables[table]))
	for i, r := range s.tables[table] {
		out[i] = r.Clone()
	}
	return out
}

// Seed appends rows without conflict handling.
func (s *MemoryStore) Seed(table string, rows ...Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.tables[table] = append(s.tables[table], r.Clone())
	}
}

// UpsertCalls counts successful upsert calls across all tables.
func (s *MemoryStore) UpsertCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.upsertCalls
}

func conflictKey(r Row, cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = keyPart(r[c])
	}
	return strings.Join(parts, "\x1f")
}

func keyPart(v interface{}) string {
	if v == nil {
		return "\x00"
	}
	if f, ok := Numeric(v); ok {
		return fmt.Sprintf("%g", f)
	}
	return fmt.Sprint(v)
}

func matchAll(r Row, filters []Filter) (bool, error) {
	for _, f := range filters {
		ok, err := match(r, f)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func match(r Row, f Filter) (bool, error) {
	v := r[f.Column]
	switch f.Op {
	case OpEq, "":
		return v != nil && compareValues(v, f.Value) == 0, nil
	case OpGte:
		return v != nil && compareValues(v, f.Value) >= 0, nil
	case OpLte:
		return v != nil && compareValues(v, f.Value) <= 0, nil
	case OpILike:
		if v == nil {
			return false, nil
		}
		return strings.Contains(strings.ToLower(keyPart(v)), strings.ToLower(fmt.Sprint(f.Value))), nil
	case OpIn:
		vals, ok := f.Value.([]interface{})
		if !ok {
			return false, fmt.Errorf("filter %s: in expects []interface{}", f.Column)
		}
		for _, candidate := range vals {
			if v != nil && compareValues(v, candidate) == 0 {
				return true, nil
			}
		}
		return false, nil
	case OpIsNull:
		return v == nil, nil
	}
	return false, fmt.Errorf("unsupported filter op %q", f.Op)
}

// compareValues orders nil first, numbers numerically, times chronologically
// and everything else as text.
func compareValues(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	fa, okA := Numeric(a)
	fb, okB := Numeric(b)
	if okA && okB {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	ta, okA := a.(time.Time)
	tb, okB := b.(time.Time)
	if okA && okB {
		return ta.Compare(tb)
	}
	return strings.Compare(keyPart(a), keyPart(b))
}
