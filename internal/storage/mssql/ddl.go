package mssql

import (
	"fmt"
	"strings"

	"csvplan/internal/schema"
	"csvplan/internal/storage"
)

// MapType returns the SQL Server column type for a decoded value type.
func MapType(t schema.Type) string {
	switch t {
	case schema.Int:
		return "INT"
	case schema.Long:
		return "BIGINT"
	case schema.Double:
		return "FLOAT"
	case schema.Boolean:
		return "BIT"
	default:
		return "NVARCHAR(MAX)"
	}
}

// BuildCreateTableSQL renders a CREATE TABLE guarded by OBJECT_ID, since
// T-SQL has no CREATE TABLE IF NOT EXISTS.
//
//	IF OBJECT_ID(N'[dbo].[quotes]', N'U') IS NULL
//	BEGIN
//	  CREATE TABLE [dbo].[quotes] (
//	    [symbol] NVARCHAR(MAX) NOT NULL,
//	    [bid] FLOAT
//	  );
//	END;
func BuildCreateTableSQL(t storage.TableDef) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("mssql %w", err)
	}
	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		def := quoteIdent(strings.TrimSpace(c.Name)) + " " + MapType(c.Type)
		if !c.Nullable {
			def += " NOT NULL"
		}
		cols = append(cols, def)
	}
	fqn := quoteFQN(t.Name)
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %s (\n    %s\n  );\nEND;",
		strings.ReplaceAll(fqn, "'", "''"),
		fqn,
		strings.Join(cols, ",\n    "),
	), nil
}

// quoteIdent brackets one identifier, escaping ']'.
func quoteIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}

func quoteFQN(fqn string) string {
	parts := storage.SplitQualified(fqn)
	for i, p := range parts {
		parts[i] = quoteIdent(p)
	}
	return strings.Join(parts, ".")
}
