// Package plan compiles a reconciled column mapping into a flat list of
// steps. A decoder walks the steps for every row; all decisions about which
// columns to decode, which to skip and where the row ends are made here,
// once per mapping.
package plan

import (
	"fmt"
	"strings"
	"sync/atomic"

	"csvplan/internal/reconcile"
	"csvplan/internal/schema"
)

// Op is the kind of a step.
type Op uint8

const (
	// OpDecode scans one field and hands it to Column.
	OpDecode Op = iota
	// OpSkipColumns consumes N fields without decoding them.
	OpSkipColumns
	// OpSkipToLineBreak consumes the rest of the row.
	OpSkipToLineBreak
)

func (o Op) String() string {
	switch o {
	case OpDecode:
		return "decode"
	case OpSkipColumns:
		return "skip"
	case OpSkipToLineBreak:
		return "skip-to-eol"
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// Step is one instruction of a plan.
type Step[T any] struct {
	Op     Op
	Column *schema.Column[T]
	// Last marks a decode step for the final source column; its field ends
	// at the linebreak.
	Last bool
	// Source is the source position the step starts at.
	Source int
	// N is the number of fields an OpSkipColumns step consumes.
	N int
}

// Plan is an immutable, shareable decoding program.
type Plan[T any] struct {
	ID    uint64
	Name  string
	Steps []Step[T]
	// Width is the number of columns in the source.
	Width int
}

var seq atomic.Uint64

// Compile turns m into a plan. Consecutive unmapped columns collapse into a
// single skip step and everything after the last mapped column becomes one
// skip to the end of the row. A nil mapping yields a nil plan.
func Compile[T any](m *reconcile.Mapping[T]) *Plan[T] {
	if m == nil || m.First < 0 {
		return nil
	}
	width := m.Width()
	steps := make([]Step[T], 0, m.Last-m.First+3)
	if m.First > 0 {
		steps = append(steps, Step[T]{Op: OpSkipColumns, N: m.First})
	}
	gap := 0
	for i := m.First; i <= m.Last; i++ {
		c := m.Columns[i]
		if c == nil {
			gap++
			continue
		}
		if gap > 0 {
			steps = append(steps, Step[T]{Op: OpSkipColumns, Source: i - gap, N: gap})
			gap = 0
		}
		steps = append(steps, Step[T]{Op: OpDecode, Column: c, Source: i, Last: i == width-1})
	}
	if m.Last < width-1 {
		steps = append(steps, Step[T]{Op: OpSkipToLineBreak, Source: m.Last + 1})
	}

	id := seq.Add(1)
	return &Plan[T]{
		ID:    id,
		Name:  fmt.Sprintf("plan-%d", id),
		Steps: steps,
		Width: width,
	}
}

// Decoded counts the decode steps.
func (p *Plan[T]) Decoded() int {
	n := 0
	for _, s := range p.Steps {
		if s.Op == OpDecode {
			n++
		}
	}
	return n
}

// String renders the steps, e.g. "plan-3[skip(2) decode(name) skip-to-eol]".
func (p *Plan[T]) String() string {
	if p == nil {
		return "plan-nil"
	}
	var b strings.Builder
	b.WriteString(p.Name)
	b.WriteByte('[')
	for i, s := range p.Steps {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s.Op.String())
		switch s.Op {
		case OpDecode:
			b.WriteByte('(')
			b.WriteString(s.Column.Name())
			if s.Last {
				b.WriteString(",last")
			}
			b.WriteByte(')')
		case OpSkipColumns:
			fmt.Fprintf(&b, "(%d)", s.N)
		}
	}
	b.WriteByte(']')
	return b.String()
}
