package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"csvplan/internal/schema"
)

// TableDef describes a destination table to create.
type TableDef struct {
	// Name may be schema-qualified ("public.quotes").
	Name    string
	Columns []ColumnDef
}

// ColumnDef is one destination column. Type is the decoded value type; each
// backend maps it to its own SQL type.
type ColumnDef struct {
	Name     string
	Type     schema.Type
	Nullable bool
}

// Validate checks the parts every dialect needs.
func (t TableDef) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("ddl: table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("ddl: at least one column is required")
	}
	for _, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("ddl: column with empty name in table %s", t.Name)
		}
	}
	return nil
}

// DDLBuilder renders an idempotent CREATE TABLE statement for one backend.
type DDLBuilder func(t TableDef) (string, error)

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBuilder{}
)

// RegisterDDL registers the CREATE TABLE builder for a storage kind.
func RegisterDDL(kind string, fn DDLBuilder) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureTable creates t through repo unless it exists. Kind "none" is a
// no-op.
func EnsureTable(ctx context.Context, kind string, repo Repository, t TableDef) error {
	if kind == "none" {
		return nil
	}
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL builder registered for storage.kind=%q", kind)
	}
	if err := t.Validate(); err != nil {
		return err
	}
	stmt, err := fn(t)
	if err != nil {
		return fmt.Errorf("build DDL: %w", err)
	}
	if err := repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("apply DDL: %w", err)
	}
	return nil
}

// SplitQualified splits "schema.table" into its non-empty, trimmed segments.
func SplitQualified(name string) []string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
