package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore implements RowStore on a Postgres pool.
type PGStore struct {
	pool *pgxpool.Pool
}

var _ RowStore = (*PGStore)(nil)

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// whereClause renders filters starting at placeholder $start.
func whereClause(filters []Filter, start int) (string, []interface{}, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	var parts []string
	var args []interface{}
	n := start
	for _, f := range filters {
		col := ident(f.Column)
		switch f.Op {
		case OpEq, "":
			parts = append(parts, fmt.Sprintf("%s = $%d", col, n))
			args = append(args, f.Value)
			n++
		case OpGte:
			parts = append(parts, fmt.Sprintf("%s >= $%d", col, n))
			args = append(args, f.Value)
			n++
		case OpLte:
			parts = append(parts, fmt.Sprintf("%s <= $%d", col, n))
			args = append(args, f.Value)
			n++
		case OpILike:
			parts = append(parts, fmt.Sprintf("%s::text ILIKE $%d", col, n))
			args = append(args, "%"+fmt.Sprint(f.Value)+"%")
			n++
		case OpIn:
			parts = append(parts, fmt.Sprintf("%s = ANY($%d)", col, n))
			args = append(args, f.Value)
			n++
		case OpIsNull:
			parts = append(parts, fmt.Sprintf("%s IS NULL", col))
		default:
			return "", nil, fmt.Errorf("unsupported filter op %q", f.Op)
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

// selectSQL renders a paged SELECT for q.
func selectSQL(table string, q Query) (string, []interface{}, error) {
	cols := "*"
	if len(q.Columns) > 0 {
		quoted := make([]string, len(q.Columns))
		for i, c := range q.Columns {
			quoted[i] = ident(c)
		}
		cols = strings.Join(quoted, ", ")
	}

	where, args, err := whereClause(q.Filters, 1)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s%s", cols, ident(table), where)
	if len(q.OrderBy) > 0 {
		var orders []string
		for _, o := range q.OrderBy {
			dir := "ASC NULLS LAST"
			if o.Desc {
				dir = "DESC NULLS LAST"
			}
			orders = append(orders, ident(o.Column)+" "+dir)
		}
		sb.WriteString(" ORDER BY " + strings.Join(orders, ", "))
	}
	limit := q.Limit
	if limit <= 0 || limit > PageSize {
		limit = PageSize
	}
	fmt.Fprintf(&sb, " LIMIT %d OFFSET %d", limit, q.Offset)
	return sb.String(), args, nil
}

func (s *PGStore) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	sql, args, err := selectSQL(table, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		row := make(Row, len(fields))
		for i, fd := range fields {
			row[fd.Name] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return out, nil
}

// upsertSQL renders one INSERT ... ON CONFLICT statement for rows. Columns
// are the sorted union of keys across rows; absent keys are sent as NULL and
// COALESCE keeps the stored value for them.
func upsertSQL(table string, rows []Row, conflictColumns []string) (string, []interface{}, error) {
	if len(conflictColumns) == 0 {
		return "", nil, fmt.Errorf("upsert %s: no conflict columns", table)
	}

	colSet := map[string]bool{}
	for _, r := range rows {
		for k := range r {
			colSet[k] = true
		}
	}
	for _, c := range conflictColumns {
		colSet[c] = true
	}
	cols := make([]string, 0, len(colSet))
	for c := range colSet {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	isConflict := map[string]bool{}
	for _, c := range conflictColumns {
		isConflict[c] = true
	}

	quotedCols := make([]string, len(cols))
	for i, c := range cols {
		quotedCols[i] = ident(c)
	}

	args := make([]interface{}, 0, len(rows)*len(cols))
	valueGroups := make([]string, 0, len(rows))
	n := 1
	for _, r := range rows {
		ph := make([]string, len(cols))
		for i, c := range cols {
			ph[i] = fmt.Sprintf("$%d", n)
			args = append(args, r[c])
			n++
		}
		valueGroups = append(valueGroups, "("+strings.Join(ph, ", ")+")")
	}

	var updates []string
	for _, c := range cols {
		if isConflict[c] {
			continue
		}
		q := ident(c)
		updates = append(updates, fmt.Sprintf("%s = COALESCE(EXCLUDED.%s, t.%s)", q, q, q))
	}

	quotedConflict := make([]string, len(conflictColumns))
	for i, c := range conflictColumns {
		quotedConflict[i] = ident(c)
	}

	action := "DO NOTHING"
	if len(updates) > 0 {
		action = "DO UPDATE SET " + strings.Join(updates, ", ")
	}
	sql := fmt.Sprintf("INSERT INTO %s AS t (%s) VALUES %s ON CONFLICT (%s) %s",
		ident(table),
		strings.Join(quotedCols, ", "),
		strings.Join(valueGroups, ", "),
		strings.Join(quotedConflict, ", "),
		action,
	)
	return sql, args, nil
}

// Upsert writes all rows in one statement built by upsertSQL.
func (s *PGStore) Upsert(ctx context.Context, table string, rows []Row, conflictColumns []string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	sql, args, err := upsertSQL(table, rows, conflictColumns)
	if err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("upsert %s: %w", table, err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PGStore) Delete(ctx context.Context, table string, filters []Filter) (int, error) {
	if len(filters) == 0 {
		return 0, fmt.Errorf("delete %s: refusing to delete without filters", table)
	}
	where, args, err := whereClause(filters, 1)
	if err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, "DELETE FROM "+ident(table)+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table, err)
	}
	return int(tag.RowsAffected()), nil
}

// normalizeValue maps pgx decoded types onto the Row value vocabulary.
func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case pgtype.Numeric:
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(t).String()
	case int32:
		return int64(t)
	case int16:
		return int64(t)
	case float32:
		return float64(t)
	}
	return v
}
