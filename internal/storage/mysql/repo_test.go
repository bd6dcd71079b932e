package mysql

import (
	"context"
	"strings"
	"testing"

	"csvplan/internal/schema"
	"csvplan/internal/storage"
)

// TestRegistrationUsesNewRepositoryHook verifies that the "mysql" backend goes
// through the newRepository hook and that the returned repository delegates
// Close. It swaps a package variable, so it is not parallel.
func TestRegistrationUsesNewRepositoryHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var (
		gotCfg Config
		closed bool
	)
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return &Repository{}, func() { closed = true }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{
		Kind:    "mysql",
		DSN:     "user:pass@tcp(localhost:3306)/csvplan",
		Table:   "csvplan.quotes",
		Columns: []string{"symbol", "price"},
	})
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	if gotCfg.Table != "csvplan.quotes" || len(gotCfg.Columns) != 2 {
		t.Fatalf("cfg=%+v", gotCfg)
	}
	repo.Close()
	if !closed {
		t.Fatalf("Close did not call closeFn")
	}
}

func TestNewRepository_BadDSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dsn  string
		want string
	}{
		{"", "DSN must not be empty"},
		{"user:pass@tcp(localhost:3306)", "mysql dsn"},
	}
	for _, tt := range tests {
		_, _, err := NewRepository(context.Background(), Config{DSN: tt.dsn})
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("dsn %q: got=%v want substring %q", tt.dsn, err, tt.want)
		}
	}
}

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	got, err := BuildCreateTableSQL(storage.TableDef{
		Name: "csvplan.quotes",
		Columns: []storage.ColumnDef{
			{Name: "symbol", Type: schema.String},
			{Name: "volume", Type: schema.Long},
			{Name: "odd`name", Type: schema.Boolean, Nullable: true},
		},
	})
	if err != nil {
		t.Fatalf("BuildCreateTableSQL: %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS `csvplan`.`quotes` (\n" +
		"  `symbol` TEXT NOT NULL,\n  `volume` BIGINT NOT NULL,\n  `odd``name` BOOLEAN\n);"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
	if _, err := BuildCreateTableSQL(storage.TableDef{Name: "t"}); err == nil {
		t.Fatalf("expected error for a table without columns")
	}
}

func TestMapType(t *testing.T) {
	t.Parallel()

	want := map[schema.Type]string{
		schema.String:  "TEXT",
		schema.Int:     "INT",
		schema.Long:    "BIGINT",
		schema.Double:  "DOUBLE",
		schema.Boolean: "BOOLEAN",
	}
	for typ, sql := range want {
		if got := MapType(typ); got != sql {
			t.Errorf("MapType(%v)=%q want=%q", typ, got, sql)
		}
	}
}

func TestInsertSQL(t *testing.T) {
	t.Parallel()

	got := insertSQL("db.quotes", []string{"symbol", "price"})
	want := "INSERT INTO `db`.`quotes` (`symbol`, `price`) VALUES (?, ?)"
	if got != want {
		t.Errorf("got=%s want=%s", got, want)
	}
}
