package postgres

import (
	"strings"
	"testing"

	"csvplan/internal/schema"
	"csvplan/internal/storage"
)

// TestQuoteIdent verifies Postgres identifier quoting and escaping.
func TestQuoteIdent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"name", `"name"`},
		{"", `""`},
		{"user name", `"user name"`},
		{`weird"name`, `"weird""name"`},
	}
	for _, tt := range tests {
		if got := quoteIdent(tt.in); got != tt.want {
			t.Fatalf("quoteIdent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestQuoteFQN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"users", `"users"`},
		{"public.users", `"public"."users"`},
		{".public..users.", `"public"."users"`},
		{`sch."table"`, `"sch"."""table"""`},
	}
	for _, tt := range tests {
		if got := quoteFQN(tt.in); got != tt.want {
			t.Fatalf("quoteFQN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMapType(t *testing.T) {
	t.Parallel()

	want := map[schema.Type]string{
		schema.String:  "TEXT",
		schema.Int:     "INTEGER",
		schema.Long:    "BIGINT",
		schema.Double:  "DOUBLE PRECISION",
		schema.Boolean: "BOOLEAN",
	}
	for typ, sql := range want {
		if got := MapType(typ); got != sql {
			t.Fatalf("MapType(%v)=%q want=%q", typ, got, sql)
		}
	}
}

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	got, err := BuildCreateTableSQL(storage.TableDef{
		Name: "public.quotes",
		Columns: []storage.ColumnDef{
			{Name: "symbol", Type: schema.String},
			{Name: "bid", Type: schema.Double, Nullable: true},
		},
	})
	if err != nil {
		t.Fatalf("BuildCreateTableSQL: %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS \"public\".\"quotes\" (\n  \"symbol\" TEXT NOT NULL,\n  \"bid\" DOUBLE PRECISION\n);"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}

	if _, err := BuildCreateTableSQL(storage.TableDef{Name: "t"}); err == nil || !strings.Contains(err.Error(), "at least one column") {
		t.Fatalf("err=%v", err)
	}
}
