package plan

import (
	"encoding/binary"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/singleflight"

	"csvplan/internal/reconcile"
	"csvplan/internal/schema"
)

// Cache compiles at most one plan per distinct header (or arity) of a
// schema. Published plans are read without locking.
type Cache[T any] struct {
	schema *schema.Schema[T]
	plans  sync.Map // uint64 -> *entry[T]
	group  singleflight.Group

	compiles atomic.Uint64
	hits     atomic.Uint64
}

type entry[T any] struct {
	names []string // nil for positional entries
	arity int
	plan  *Plan[T]
	err   error
}

// NewCache returns an empty cache for s.
func NewCache[T any](s *schema.Schema[T]) *Cache[T] {
	return &Cache[T]{schema: s}
}

// Schema returns the schema plans are compiled for.
func (c *Cache[T]) Schema() *schema.Schema[T] { return c.schema }

// ForHeader returns the plan for a source whose first row is names. A header
// that matches no column is remembered and reported as
// reconcile.ErrNoUsableColumns with a nil plan.
func (c *Cache[T]) ForHeader(names []string) (*Plan[T], error) {
	key := c.key(names, -1)
	if e, ok := c.lookup(key, names, -1); ok {
		return e.plan, e.err
	}
	v, _, _ := c.group.Do(strconv.FormatUint(key, 16), func() (any, error) {
		if e, ok := c.lookup(key, names, -1); ok {
			return e, nil
		}
		e := &entry[T]{names: slices.Clone(names)}
		m, err := reconcile.Reconcile(names, c.schema)
		if err != nil {
			e.err = err
		} else {
			e.plan = Compile(m)
		}
		c.compiles.Add(1)
		c.store(key, e)
		return e, nil
	})
	e := v.(*entry[T])
	if !slices.Equal(e.names, names) {
		// Hash collision with a different header: compile without caching.
		return c.compileUncached(names)
	}
	return e.plan, e.err
}

// Positional returns the plan that decodes every schema column in order.
func (c *Cache[T]) Positional() *Plan[T] {
	arity := c.schema.Len()
	key := c.key(nil, arity)
	if e, ok := c.lookup(key, nil, arity); ok {
		return e.plan
	}
	v, _, _ := c.group.Do(strconv.FormatUint(key, 16), func() (any, error) {
		if e, ok := c.lookup(key, nil, arity); ok {
			return e, nil
		}
		e := &entry[T]{arity: arity, plan: Compile(reconcile.Positional(c.schema))}
		c.compiles.Add(1)
		c.store(key, e)
		return e, nil
	})
	return v.(*entry[T]).plan
}

// Stats reports how many plans were compiled and how many requests were
// served from the cache.
func (c *Cache[T]) Stats() (compiles, hits uint64) {
	return c.compiles.Load(), c.hits.Load()
}

func (c *Cache[T]) lookup(key uint64, names []string, arity int) (*entry[T], bool) {
	v, ok := c.plans.Load(key)
	if !ok {
		return nil, false
	}
	e := v.(*entry[T])
	if e.arity != max(arity, 0) || !slices.Equal(e.names, names) {
		return nil, false
	}
	c.hits.Add(1)
	return e, true
}

// store publishes e unless a colliding entry already owns the key.
func (c *Cache[T]) store(key uint64, e *entry[T]) {
	c.plans.LoadOrStore(key, e)
}

func (c *Cache[T]) compileUncached(names []string) (*Plan[T], error) {
	m, err := reconcile.Reconcile(names, c.schema)
	if err != nil {
		return nil, err
	}
	c.compiles.Add(1)
	return Compile(m), nil
}

// key hashes the schema identity with either the header names or, for
// positional plans, the arity.
func (c *Cache[T]) key(names []string, arity int) uint64 {
	size := 16
	for _, n := range names {
		size += len(n) + 1
	}
	buf := make([]byte, 0, size)
	buf = binary.LittleEndian.AppendUint64(buf, c.schema.ID())
	if arity >= 0 {
		buf = append(buf, 0xff)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(arity))
		return xxh3.Hash(buf)
	}
	for _, n := range names {
		buf = append(buf, n...)
		buf = append(buf, 0)
	}
	return xxh3.Hash(buf)
}

