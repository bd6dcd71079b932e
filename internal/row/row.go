// Package row defines the pooled positional record that decoded CSV rows are
// written into on their way to storage.
package row

import "sync"

// Row holds one decoded record in destination column order. V feeds bulk
// insert APIs ([]any per row) directly; a nil element is stored as NULL.
//
// The decoding goroutine fills V, the loader frees the row after the batch
// holding it has been flushed. Nothing may keep r or r.V after Free.
type Row struct {
	V []any
}

var pool sync.Pool

// Get returns a Row with len(V) == width and every element nil.
func Get(width int) *Row {
	if v := pool.Get(); v != nil {
		r := v.(*Row)
		if cap(r.V) < width {
			r.V = make([]any, width)
		}
		r.V = r.V[:width]
		clear(r.V)
		return r
	}
	return &Row{V: make([]any, width)}
}

// Free returns r to the pool.
func (r *Row) Free() {
	pool.Put(r)
}
