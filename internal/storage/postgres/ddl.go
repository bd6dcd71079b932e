package postgres

import (
	"fmt"
	"strings"

	"csvplan/internal/schema"
	"csvplan/internal/storage"
)

// MapType returns the Postgres column type for a decoded value type.
func MapType(t schema.Type) string {
	switch t {
	case schema.Int:
		return "INTEGER"
	case schema.Long:
		return "BIGINT"
	case schema.Double:
		return "DOUBLE PRECISION"
	case schema.Boolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// BuildCreateTableSQL renders a CREATE TABLE IF NOT EXISTS statement with
// double-quoted identifiers.
func BuildCreateTableSQL(t storage.TableDef) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("postgres %w", err)
	}
	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		def := quoteIdent(strings.TrimSpace(c.Name)) + " " + MapType(c.Type)
		if !c.Nullable {
			def += " NOT NULL"
		}
		cols = append(cols, def)
	}
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		quoteFQN(t.Name),
		strings.Join(cols, ",\n  "),
	), nil
}

// quoteIdent quotes one identifier segment: weird"name becomes "weird""name".
func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// quoteFQN quotes each segment of a possibly schema-qualified name.
func quoteFQN(name string) string {
	parts := storage.SplitQualified(name)
	for i, p := range parts {
		parts[i] = quoteIdent(p)
	}
	return strings.Join(parts, ".")
}
