package store

import (
	"reflect"
	"testing"
)

func TestWhereClause(t *testing.T) {
	tests := []struct {
		name    string
		filters []Filter
		start   int
		want    string
		args    []interface{}
		wantErr bool
	}{
		{name: "empty", want: ""},
		{
			name:    "eq and range",
			filters: []Filter{Eq("country", "Norway"), Gte("year", 2024), Lte("year", 2026)},
			start:   1,
			want:    ` WHERE "country" = $1 AND "year" >= $2 AND "year" <= $3`,
			args:    []interface{}{"Norway", 2024, 2026},
		},
		{
			name:    "default op is eq",
			filters: []Filter{{Column: "operator", Value: "Equinor"}},
			start:   4,
			want:    ` WHERE "operator" = $4`,
			args:    []interface{}{"Equinor"},
		},
		{
			name:    "ilike wraps value",
			filters: []Filter{ILike("summary", "tie-back")},
			start:   1,
			want:    ` WHERE "summary"::text ILIKE $1`,
			args:    []interface{}{"%tie-back%"},
		},
		{
			name:    "in and is null",
			filters: []Filter{In("segment", []interface{}{"SURF", "SPS"}), {Column: "deleted_at", Op: OpIsNull}, Eq("region", "Europe")},
			start:   1,
			want:    ` WHERE "segment" = ANY($1) AND "deleted_at" IS NULL AND "region" = $2`,
			args:    []interface{}{[]interface{}{"SURF", "SPS"}, "Europe"},
		},
		{
			name:    "quotes hostile identifiers",
			filters: []Filter{Eq(`name"; DROP TABLE x; --`, 1)},
			start:   1,
			want:    ` WHERE "name""; DROP TABLE x; --" = $1`,
			args:    []interface{}{1},
		},
		{
			name:    "unknown op",
			filters: []Filter{{Column: "year", Op: "between", Value: 1}},
			start:   1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, args, err := whereClause(tt.filters, tt.start)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("clause\n got %s\nwant %s", got, tt.want)
			}
			if !reflect.DeepEqual(args, tt.args) {
				t.Errorf("args = %#v, want %#v", args, tt.args)
			}
		})
	}
}

func TestUpsertSQL(t *testing.T) {
	tests := []struct {
		name     string
		rows     []Row
		conflict []string
		want     string
		args     []interface{}
		wantErr  bool
	}{
		{
			name: "union of columns with coalesce updates",
			rows: []Row{
				{"external_id": "a", "value": 12.5},
				{"external_id": "b", "supplier": "OneSubsea"},
			},
			conflict: []string{"external_id"},
			want: `INSERT INTO "contracts" AS t ("external_id", "supplier", "value") VALUES ($1, $2, $3), ($4, $5, $6) ` +
				`ON CONFLICT ("external_id") DO UPDATE SET "supplier" = COALESCE(EXCLUDED."supplier", t."supplier"), ` +
				`"value" = COALESCE(EXCLUDED."value", t."value")`,
			args: []interface{}{"a", nil, 12.5, "b", "OneSubsea", nil},
		},
		{
			name:     "only conflict columns does nothing on conflict",
			rows:     []Row{{"development_project": "Castberg", "asset": "Isflak"}},
			conflict: []string{"development_project", "asset"},
			want:     `INSERT INTO "contracts" AS t ("asset", "development_project") VALUES ($1, $2) ON CONFLICT ("development_project", "asset") DO NOTHING`,
			args:     []interface{}{"Isflak", "Castberg"},
		},
		{
			name:     "conflict column missing from rows is sent as null",
			rows:     []Row{{"value": 1.0}},
			conflict: []string{"external_id"},
			want:     `INSERT INTO "contracts" AS t ("external_id", "value") VALUES ($1, $2) ON CONFLICT ("external_id") DO UPDATE SET "value" = COALESCE(EXCLUDED."value", t."value")`,
			args:     []interface{}{nil, 1.0},
		},
		{
			name:    "no conflict columns",
			rows:    []Row{{"value": 1.0}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, args, err := upsertSQL("contracts", tt.rows, tt.conflict)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("sql\n got %s\nwant %s", got, tt.want)
			}
			if !reflect.DeepEqual(args, tt.args) {
				t.Errorf("args = %#v, want %#v", args, tt.args)
			}
		})
	}
}

func TestSelectSQL(t *testing.T) {
	got, args, err := selectSQL("awards", Query{
		Columns: []string{"year", "value"},
		Filters: []Filter{Gte("year", 2024)},
		OrderBy: []Order{{Column: "year", Desc: true}, {Column: "id"}},
		Limit:   5000,
		Offset:  2000,
	})
	if err != nil {
		t.Fatal(err)
	}
	want := `SELECT "year", "value" FROM "awards" WHERE "year" >= $1 ORDER BY "year" DESC NULLS LAST, "id" ASC NULLS LAST LIMIT 1000 OFFSET 2000`
	if got != want {
		t.Errorf("sql\n got %s\nwant %s", got, want)
	}
	if !reflect.DeepEqual(args, []interface{}{2024}) {
		t.Errorf("args = %#v", args)
	}

	if got, _, _ := selectSQL("awards", Query{}); got != `SELECT * FROM "awards" LIMIT 1000 OFFSET 0` {
		t.Errorf("bare select = %s", got)
	}
}
