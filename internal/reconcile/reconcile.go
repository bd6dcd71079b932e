// Package reconcile lines up the columns found in a CSV source with the
// columns of a schema.
package reconcile

import (
	"errors"
	"strings"

	"csvplan/internal/schema"
)

// ErrNoUsableColumns is returned when no source column matches the schema.
var ErrNoUsableColumns = errors.New("reconcile: no source column matches the schema")

// Mapping assigns a schema column (or nothing) to every source position.
type Mapping[T any] struct {
	// Columns has one entry per source column; nil entries are skipped.
	Columns []*schema.Column[T]
	// First and Last are the lowest and highest source positions in use.
	First int
	Last  int
}

// Width is the number of columns in the source.
func (m *Mapping[T]) Width() int { return len(m.Columns) }

// Used counts the mapped source positions.
func (m *Mapping[T]) Used() int {
	n := 0
	for _, c := range m.Columns {
		if c != nil {
			n++
		}
	}
	return n
}

// Reconcile maps header names onto s by exact name. Unknown names are
// skipped; when a name repeats, its first occurrence is decoded and the
// others are skipped.
func Reconcile[T any](names []string, s *schema.Schema[T]) (*Mapping[T], error) {
	m := &Mapping[T]{Columns: make([]*schema.Column[T], len(names)), First: -1, Last: -1}
	seen := make(map[int]bool, s.Len())
	for i, name := range names {
		c, ok := s.Lookup(name)
		if !ok || seen[c.Index()] {
			continue
		}
		seen[c.Index()] = true
		m.Columns[i] = c
		if m.First < 0 {
			m.First = i
		}
		m.Last = i
	}
	if m.First < 0 {
		return nil, ErrNoUsableColumns
	}
	return m, nil
}

// Positional maps the source one-to-one onto the schema's column order, for
// sources without a header.
func Positional[T any](s *schema.Schema[T]) *Mapping[T] {
	m := &Mapping[T]{Columns: make([]*schema.Column[T], s.Len()), Last: s.Len() - 1}
	for i := range m.Columns {
		m.Columns[i] = s.Column(i)
	}
	return m
}

const bom = "\uFEFF"

// ParseHeader splits a header line on divider. Each name is trimmed and a
// pair of surrounding double quotes is removed. A leading UTF-8 byte order
// mark and the line terminator are dropped. Quotes do not protect dividers
// here; use a scanner for headers that need that.
func ParseHeader(line string, divider byte) []string {
	line = strings.TrimPrefix(line, bom)
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	if line == "" {
		return nil
	}
	parts := strings.Split(line, string([]byte{divider}))
	for i, p := range parts {
		parts[i] = CleanName(p)
	}
	return parts
}

// CleanName trims a header name and strips one pair of surrounding quotes.
func CleanName(name string) string {
	name = strings.TrimSpace(name)
	if len(name) >= 2 && name[0] == '"' && name[len(name)-1] == '"' {
		name = name[1 : len(name)-1]
	}
	return name
}
