// Package mssql implements storage.Repository for Microsoft SQL Server. Each
// batch goes through the TDS bulk-copy path of go-mssqldb inside its own
// transaction.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"
)

// Config holds MSSQL repository configuration.
type Config struct {
	// DSN is a sqlserver:// URL or an ADO connection string.
	DSN string

	// Table may be schema-qualified, e.g. "dbo.quotes".
	Table string

	Columns []string
}

// Repository writes rows into one SQL Server table.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository checks the DSN before dialing so a typo fails without a
// network round trip.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mssql: open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("mssql: ping: %w", err)
	}
	return &Repository{db: db, cfg: cfg}, func() { _ = db.Close() }, nil
}

// CopyFrom bulk-copies rows and reports the count the server acknowledged.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (n int64, err error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mssql: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(r.cfg.Table, mssql.BulkOptions{}, columns...))
	if err != nil {
		return 0, fmt.Errorf("mssql: prepare bulk: %w", err)
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			err = fmt.Errorf("mssql: row %d has %d values for %d columns", i, len(row), len(columns))
		} else if _, err = stmt.ExecContext(ctx, row...); err != nil {
			err = fmt.Errorf("mssql: bulk row %d: %w", i, err)
		}
		if err != nil {
			return 0, errors.Join(err, stmt.Close())
		}
	}

	// An argument-less Exec flushes the bulk copy.
	res, err := stmt.ExecContext(ctx)
	err = errors.Join(err, stmt.Close())
	if err != nil {
		return 0, fmt.Errorf("mssql: bulk flush: %w", err)
	}
	if n, err = res.RowsAffected(); err != nil {
		return 0, fmt.Errorf("mssql: rows affected: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("mssql: commit: %w", err)
	}
	return n, nil
}

// Exec runs a statement, typically DDL. Blank statements are skipped.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if strings.TrimSpace(sqlText) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("mssql: exec: %w", err)
	}
	return nil
}
