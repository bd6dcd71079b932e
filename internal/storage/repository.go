// Package storage contains the backend-agnostic contracts for persisting
// decoded rows: the Repository interface, a registry of backend factories,
// and the batched loader that feeds them.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Writer is the part of a backend that touches the table.
type Writer interface {
	// CopyFrom bulk-inserts rows aligned to columns and returns how many
	// rows the backend reports as written.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)

	// Exec runs a statement, typically DDL.
	Exec(ctx context.Context, sql string) error
}

// Repository writes rows into one destination table.
type Repository interface {
	Writer
	Close()
}

// WithClose turns a Writer plus the function releasing its connection into a
// Repository. A nil closeFn makes Close a no-op.
func WithClose(w Writer, closeFn func()) Repository {
	return &closer{Writer: w, closeFn: closeFn}
}

type closer struct {
	Writer
	closeFn func()
	once    sync.Once
}

func (c *closer) Close() {
	c.once.Do(func() {
		if c.closeFn != nil {
			c.closeFn()
		}
	})
}

// Config is what a backend factory needs to open a Repository.
type Config struct {
	Kind    string
	DSN     string
	Table   string
	Columns []string
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind, replacing any earlier
// registration. Backends call it from init.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository with the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func init() {
	Register("none", func(context.Context, Config) (Repository, error) {
		return Discard{}, nil
	})
}

// Discard accepts every row and stores nothing. It backs storage.kind "none".
type Discard struct{}

func (Discard) CopyFrom(_ context.Context, _ []string, rows [][]any) (int64, error) {
	return int64(len(rows)), nil
}

func (Discard) Exec(context.Context, string) error { return nil }
func (Discard) Close()                             {}
