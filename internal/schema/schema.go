// Package schema describes the record a CSV stream decodes into: an ordered
// list of named columns, each bound to exactly one output.
package schema

import (
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	ErrDuplicateColumn = errors.New("schema: duplicate column name")
	ErrNoOutput        = errors.New("schema: column has no output")
	ErrEmptyName       = errors.New("schema: empty column name")
	ErrNoColumns       = errors.New("schema: no columns")

	// ErrEmptyField is returned when a required column has an empty value.
	ErrEmptyField = errors.New("empty value for required column")
)

var schemaSeq atomic.Uint64

// Schema is an immutable, ordered set of columns for records of type T.
type Schema[T any] struct {
	id        uint64
	newRecord func() *T
	columns   []*Column[T]
	byName    map[string]*Column[T]
}

// New builds a schema. newRecord constructs the record for each row; nil
// means new(T). Column names are case-sensitive and must be unique.
func New[T any](newRecord func() *T, cols ...*Column[T]) (*Schema[T], error) {
	if len(cols) == 0 {
		return nil, ErrNoColumns
	}
	if newRecord == nil {
		newRecord = func() *T { return new(T) }
	}
	s := &Schema[T]{
		id:        schemaSeq.Add(1),
		newRecord: newRecord,
		columns:   make([]*Column[T], len(cols)),
		byName:    make(map[string]*Column[T], len(cols)),
	}
	for i, in := range cols {
		if in == nil {
			return nil, fmt.Errorf("%w: column %d is nil", ErrNoOutput, i)
		}
		if in.name == "" {
			return nil, fmt.Errorf("%w: column %d", ErrEmptyName, i)
		}
		if in.out == nil {
			return nil, fmt.Errorf("%w: %q", ErrNoOutput, in.name)
		}
		if _, dup := s.byName[in.name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, in.name)
		}
		c := *in
		c.index = i
		c.bind()
		s.columns[i] = &c
		s.byName[c.name] = &c
	}
	return s, nil
}

// ID identifies the schema within the process; plan caches key on it.
func (s *Schema[T]) ID() uint64 { return s.id }

// Len returns the number of columns.
func (s *Schema[T]) Len() int { return len(s.columns) }

// Column returns the column at position i.
func (s *Schema[T]) Column(i int) *Column[T] { return s.columns[i] }

// Lookup finds a column by exact name.
func (s *Schema[T]) Lookup(name string) (*Column[T], bool) {
	c, ok := s.byName[name]
	return c, ok
}

// Names returns the column names in schema order.
func (s *Schema[T]) Names() []string {
	out := make([]string, len(s.columns))
	for i, c := range s.columns {
		out[i] = c.name
	}
	return out
}

// NewRecord constructs an empty record.
func (s *Schema[T]) NewRecord() *T { return s.newRecord() }
