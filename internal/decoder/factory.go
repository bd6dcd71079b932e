package decoder

import (
	"errors"
	"io"
	"strings"

	"csvplan/internal/buffer"
	"csvplan/internal/plan"
	"csvplan/internal/reconcile"
	"csvplan/internal/scan"
	"csvplan/internal/schema"
)

// Options tunes decoders beyond the dialect.
type Options struct {
	// BufferLength is the size of each decoder's buffer. The longest field
	// plus its terminator (divider or linebreak) must fit in it. Defaults to
	// buffer.DefaultSize.
	BufferLength int
}

func (o Options) bufferLength() int {
	if o.BufferLength <= 0 {
		return buffer.DefaultSize
	}
	return o.BufferLength
}

// Factory creates decoders for one plan. It is immutable and safe to share.
// A factory without a plan creates decoders that return io.EOF at once.
type Factory[T any] struct {
	plan   *plan.Plan[T]
	schema *schema.Schema[T]
	sc     *scan.Scanner
	bufLen int
}

// Plan returns the compiled plan, nil when the source has no usable column.
func (f *Factory[T]) Plan() *plan.Plan[T] { return f.plan }

// New returns a decoder reading rows from r.
func (f *Factory[T]) New(r io.Reader) *Decoder[T] {
	return f.NewWithContext(r, nil)
}

// NewWithContext is New with a context value passed to Triple columns.
func (f *Factory[T]) NewWithContext(r io.Reader, ctx any) *Decoder[T] {
	return newDecoder(buffer.New(r, f.bufLen), f.sc, f.plan, f.schema, ctx)
}

// NewFromBuffer returns a decoder for a stream whose first bytes the caller
// already read into buf[off:off+n]; r supplies the rest.
//
// buf becomes the decoder's buffer when it holds at least BufferLength bytes
// plus one spare slot; a smaller buf is copied into a buffer of BufferLength
// bytes (or n, when n is larger).
func (f *Factory[T]) NewFromBuffer(r io.Reader, buf []byte, off, n int) *Decoder[T] {
	return f.NewFromBufferWithContext(r, buf, off, n, nil)
}

// NewFromBufferWithContext combines NewFromBuffer and NewWithContext.
func (f *Factory[T]) NewFromBufferWithContext(r io.Reader, buf []byte, off, n int, ctx any) *Decoder[T] {
	var src *buffer.Source
	if len(buf) > f.bufLen && off+n < len(buf) {
		src = buffer.NewFilled(r, buf, off, n)
	} else {
		src = buffer.NewCopy(r, buf[off:off+n], f.bufLen)
	}
	return newDecoder(src, f.sc, f.plan, f.schema, ctx)
}

// Mapper binds a schema to a dialect and produces factories for concrete
// source layouts. Plans are cached per header, so a mapper shared by many
// streams compiles each distinct layout once.
type Mapper[T any] struct {
	schema *schema.Schema[T]
	sc     *scan.Scanner
	cache  *plan.Cache[T]
	opts   Options
}

// NewMapper validates the dialect and returns a mapper for s.
func NewMapper[T any](s *schema.Schema[T], d scan.Dialect, opts Options) (*Mapper[T], error) {
	if s == nil {
		return nil, errors.New("decoder: nil schema")
	}
	sc, err := scan.New(d)
	if err != nil {
		return nil, err
	}
	return &Mapper[T]{
		schema: s,
		sc:     sc,
		cache:  plan.NewCache(s),
		opts:   opts,
	}, nil
}

// Cache exposes the plan cache, e.g. for compile statistics.
func (m *Mapper[T]) Cache() *plan.Cache[T] { return m.cache }

// Schema returns the mapper's schema.
func (m *Mapper[T]) Schema() *schema.Schema[T] { return m.schema }

// Static returns a factory for sources whose header is already known. The
// header row itself must not be fed to the decoders.
func (m *Mapper[T]) Static(header []string) *Factory[T] {
	p, _ := m.cache.ForHeader(header)
	return m.factory(p)
}

// StaticLine is Static for a raw header line such as "id,name,price".
func (m *Mapper[T]) StaticLine(line string) *Factory[T] {
	return m.Static(reconcile.ParseHeader(line, m.sc.Dialect().Divider))
}

// Default returns a factory for headerless sources laid out in schema order.
func (m *Mapper[T]) Default() *Factory[T] {
	return m.factory(m.cache.Positional())
}

// Decode reads the header row from r, picks the plan for it and returns a
// decoder positioned on the first data row. A stream without a header, or
// whose header matches no column, yields a decoder that returns io.EOF.
func (m *Mapper[T]) Decode(r io.Reader) (*Decoder[T], error) {
	return m.DecodeWithContext(r, nil)
}

// DecodeWithContext is Decode with a context value for Triple columns.
func (m *Mapper[T]) DecodeWithContext(r io.Reader, ctx any) (*Decoder[T], error) {
	src := buffer.New(r, m.opts.bufferLength())
	d := m.sc.Dialect()
	if d.SkipComments || d.SkipEmptyLines {
		if _, err := m.sc.SkipLines(src); err != nil {
			return nil, &DecodeError{Column: -1, Err: err}
		}
	}
	names, err := m.sc.Header(src)
	if err == io.EOF {
		return newDecoder[T](src, m.sc, nil, m.schema, ctx), nil
	}
	if err != nil {
		return nil, &DecodeError{Column: -1, Err: err}
	}
	for i, n := range names {
		if i == 0 {
			n = strings.TrimPrefix(n, "\uFEFF")
		}
		names[i] = reconcile.CleanName(n)
	}
	p, _ := m.cache.ForHeader(names)
	return newDecoder(src, m.sc, p, m.schema, ctx), nil
}

func (m *Mapper[T]) factory(p *plan.Plan[T]) *Factory[T] {
	return &Factory[T]{
		plan:   p,
		schema: m.schema,
		sc:     m.sc,
		bufLen: m.opts.bufferLength(),
	}
}
