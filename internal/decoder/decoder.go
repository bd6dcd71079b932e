// Package decoder runs compiled plans over byte streams and produces typed
// records.
package decoder

import (
	"io"

	"csvplan/internal/buffer"
	"csvplan/internal/plan"
	"csvplan/internal/scan"
	"csvplan/internal/schema"
)

// Decoder reads records of type T from one stream. It is not safe for
// concurrent use; create one decoder per stream from a shared Factory.
type Decoder[T any] struct {
	src       *buffer.Source
	sc        *scan.Scanner
	plan      *plan.Plan[T]
	schema    *schema.Schema[T]
	ctx       any
	skipLines bool

	row int64
	err error
}

func newDecoder[T any](src *buffer.Source, sc *scan.Scanner, p *plan.Plan[T], s *schema.Schema[T], ctx any) *Decoder[T] {
	d := sc.Dialect()
	return &Decoder[T]{
		src:       src,
		sc:        sc,
		plan:      p,
		schema:    s,
		ctx:       ctx,
		skipLines: d.SkipComments || d.SkipEmptyLines,
	}
}

// Next decodes the next row. It returns io.EOF once the stream is exhausted,
// and keeps returning it.
//
// A *FieldError means only the current row failed; the rest of that row has
// been consumed and Next may be called again. Any other error is a
// *DecodeError and is terminal.
func (d *Decoder[T]) Next() (*T, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.plan == nil {
		d.err = io.EOF
		return nil, d.err
	}

	src, sc := d.src, d.sc
	if d.skipLines {
		eof, err := sc.SkipLines(src)
		if err != nil {
			return nil, d.fail(err, -1)
		}
		if eof {
			d.err = io.EOF
			return nil, d.err
		}
	} else {
		ok, err := src.Ensure()
		if err != nil {
			return nil, d.fail(err, -1)
		}
		if !ok {
			d.err = io.EOF
			return nil, d.err
		}
	}

	d.row++
	rec := d.schema.NewRecord()
	steps := d.plan.Steps
	for i := range steps {
		st := &steps[i]
		switch st.Op {
		case plan.OpDecode:
			start, end, err := sc.Field(src, st.Last)
			if err != nil {
				return nil, d.fail(err, st.Source)
			}
			field := src.Buf[start:end]
			if err := st.Column.Decode(rec, d.ctx, field); err != nil {
				fe := &FieldError{Row: d.row, Field: st.Column.Name(), Value: string(field), Err: err}
				if !st.Last {
					if err := sc.SkipToLineBreak(src); err != nil {
						return nil, d.fail(err, st.Source+1)
					}
				}
				return nil, fe
			}
		case plan.OpSkipColumns:
			if err := sc.SkipColumns(src, st.N); err != nil {
				return nil, d.fail(err, st.Source)
			}
		case plan.OpSkipToLineBreak:
			if err := sc.SkipToLineBreak(src); err != nil {
				return nil, d.fail(err, st.Source)
			}
		}
	}
	return rec, nil
}

// Row returns the number of rows started so far, including failed ones.
func (d *Decoder[T]) Row() int64 { return d.row }

// Plan returns the plan the decoder runs, or nil for an empty decoder.
func (d *Decoder[T]) Plan() *plan.Plan[T] { return d.plan }

func (d *Decoder[T]) fail(err error, column int) error {
	d.err = &DecodeError{Row: d.row, Column: column, Err: err}
	return d.err
}
