package storage

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"csvplan/internal/schema"
)

func TestEnsureTable(t *testing.T) {
	t.Parallel()

	RegisterDDL("fake-ddl", func(td TableDef) (string, error) {
		return "CREATE " + td.Name, nil
	})
	def := TableDef{Name: "t", Columns: []ColumnDef{{Name: "a", Type: schema.Long}}}

	repo := &fakeRepo{}
	if err := EnsureTable(context.Background(), "fake-ddl", repo, def); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	if !reflect.DeepEqual(repo.execs, []string{"CREATE t"}) {
		t.Fatalf("execs=%v", repo.execs)
	}

	if err := EnsureTable(context.Background(), "none", repo, def); err != nil {
		t.Fatalf("none: %v", err)
	}
	if err := EnsureTable(context.Background(), "no-such-kind", repo, def); err == nil || !strings.Contains(err.Error(), "no DDL builder") {
		t.Fatalf("err=%v", err)
	}
}

func TestEnsureTable_BuilderError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	RegisterDDL("fake-ddl-err", func(TableDef) (string, error) { return "", boom })
	err := EnsureTable(context.Background(), "fake-ddl-err", &fakeRepo{},
		TableDef{Name: "t", Columns: []ColumnDef{{Name: "a"}}})
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v want %v", err, boom)
	}
}

func TestTableDef_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		def  TableDef
		ok   bool
	}{
		{"ok", TableDef{Name: "t", Columns: []ColumnDef{{Name: "a"}}}, true},
		{"no name", TableDef{Name: " ", Columns: []ColumnDef{{Name: "a"}}}, false},
		{"no columns", TableDef{Name: "t"}, false},
		{"blank column", TableDef{Name: "t", Columns: []ColumnDef{{Name: ""}}}, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := tt.def.Validate(); (err == nil) != tt.ok {
				t.Fatalf("Validate()=%v ok=%v", err, tt.ok)
			}
		})
	}
}

func TestSplitQualified(t *testing.T) {
	t.Parallel()

	tests := map[string][]string{
		"users":           {"users"},
		"public.users":    {"public", "users"},
		".public..users.": {"public", "users"},
		"":                {},
	}
	for in, want := range tests {
		if got := SplitQualified(in); !reflect.DeepEqual(got, want) {
			t.Fatalf("SplitQualified(%q)=%q want=%q", in, got, want)
		}
	}
}
