// Package strarray reads CSV rows as plain string slices. The row width is
// taken from the first line, so every row is split into exactly that many
// fields without a schema.
package strarray

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"csvplan/internal/buffer"
	"csvplan/internal/decoder"
	"csvplan/internal/reconcile"
	"csvplan/internal/scan"
)

// ErrUnsupported is returned by Build for dialect options this reader does
// not implement.
var ErrUnsupported = errors.New("strarray: unsupported dialect option")

// Options configures Build.
type Options struct {
	// BufferLength bounds the longest field and the first line. Defaults to
	// buffer.DefaultSize.
	BufferLength int

	// ColumnIndexes maps source column names to output positions. When set,
	// the first row is read as a header and every following row is returned
	// in that fixed layout.
	ColumnIndexes map[string]int
}

// Reader returns one []string per row.
type Reader struct {
	src   *buffer.Source
	sc    *scan.Scanner
	width int
	proj  *reconcile.Projection

	header []string
	row    int64
	err    error
}

// Build peeks at the first line of r to learn the column count and returns a
// reader positioned at the start of the stream (or after the header when
// ColumnIndexes is set). An empty stream yields a reader that returns io.EOF.
func Build(r io.Reader, d scan.Dialect, opts Options) (*Reader, error) {
	if d.SkipComments {
		return nil, fmt.Errorf("%w: skipping comments", ErrUnsupported)
	}
	if d.SkipEmptyLines {
		return nil, fmt.Errorf("%w: skipping empty lines", ErrUnsupported)
	}
	sc, err := scan.New(d)
	if err != nil {
		return nil, err
	}

	src := buffer.New(r, opts.BufferLength)
	width := 0
	for {
		n, complete := sc.CountColumns(src.Unread())
		width = n
		if complete {
			break
		}
		got, err := src.Fill()
		if errors.Is(err, buffer.ErrBufferFull) {
			return nil, fmt.Errorf("strarray: first line does not fit in %d bytes: %w", src.Size(), err)
		}
		if err != nil {
			return nil, err
		}
		if got == 0 {
			break
		}
	}

	rd := &Reader{src: src, sc: sc, width: width}
	if width == 0 {
		rd.err = io.EOF
		return rd, nil
	}
	if opts.ColumnIndexes != nil {
		header, err := rd.Next()
		if err == io.EOF {
			return rd, nil
		}
		if err != nil {
			return nil, err
		}
		// A UTF-8 BOM belongs to the stream, not to the first name.
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
		rd.header = header
		p, _ := reconcile.Project(header, opts.ColumnIndexes)
		rd.proj = &p
	}
	return rd, nil
}

// Width is the number of fields per source row.
func (r *Reader) Width() int { return r.width }

// Header returns the row consumed for column mapping, if any.
func (r *Reader) Header() []string { return r.header }

// Next returns the next row. Errors other than io.EOF are terminal and
// wrapped in *decoder.DecodeError.
func (r *Reader) Next() ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	ok, err := r.src.Ensure()
	if err != nil {
		return nil, r.fail(err, -1)
	}
	if !ok {
		r.err = io.EOF
		return nil, r.err
	}

	r.row++
	row := make([]string, r.width)
	last := r.width - 1
	for i := range row {
		start, end, err := r.sc.Field(r.src, i == last)
		if err != nil {
			return nil, r.fail(err, i)
		}
		row[i] = string(r.src.Buf[start:end])
	}
	if r.proj != nil {
		return r.proj.Apply(row), nil
	}
	return row, nil
}

func (r *Reader) fail(err error, column int) error {
	r.err = &decoder.DecodeError{Row: r.row, Column: column, Err: err}
	return r.err
}
