package sqlite

import (
	"fmt"
	"strings"

	"csvplan/internal/schema"
	"csvplan/internal/storage"
)

// MapType returns the SQLite type affinity for a decoded value type.
// Booleans are stored as 0/1 integers.
func MapType(t schema.Type) string {
	switch t {
	case schema.Int, schema.Long, schema.Boolean:
		return "INTEGER"
	case schema.Double:
		return "REAL"
	default:
		return "TEXT"
	}
}

// BuildCreateTableSQL renders CREATE TABLE IF NOT EXISTS with double-quoted
// identifiers. A dotted name ("main.quotes") has each segment quoted.
func BuildCreateTableSQL(t storage.TableDef) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("sqlite %w", err)
	}
	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		var sb strings.Builder
		sb.WriteString(quoteIdent(strings.TrimSpace(c.Name)))
		sb.WriteByte(' ')
		sb.WriteString(MapType(c.Type))
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())
	}
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		quoteFQN(t.Name),
		strings.Join(cols, ",\n  "),
	), nil
}

func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func quoteFQN(fqn string) string {
	parts := storage.SplitQualified(fqn)
	for i, p := range parts {
		parts[i] = quoteIdent(p)
	}
	return strings.Join(parts, ".")
}
