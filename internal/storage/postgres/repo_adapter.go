package postgres

import (
	"context"

	"csvplan/internal/storage"
)

// newRepository is swapped by tests.
var newRepository = NewRepository

func open(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, Table: cfg.Table, Columns: cfg.Columns})
	if err != nil {
		return nil, err
	}
	return storage.WithClose(r, closeFn), nil
}

func init() {
	storage.Register("postgres", open)
	storage.RegisterDDL("postgres", BuildCreateTableSQL)
}
