package schema

import (
	"fmt"
	"strings"

	"csvplan/internal/convert"
	"csvplan/internal/scan"
)

// Type is the value type a column converts its field into.
type Type uint8

const (
	String Type = iota
	Int
	Long
	Double
	Boolean
)

func (t Type) String() string {
	switch t {
	case String:
		return "string"
	case Int:
		return "int"
	case Long:
		return "long"
	case Double:
		return "double"
	case Boolean:
		return "boolean"
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// ParseType maps a type name used in pipeline configs to a Type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "string", "text":
		return String, nil
	case "int", "integer":
		return Int, nil
	case "long", "bigint", "int64":
		return Long, nil
	case "double", "float", "numeric":
		return Double, nil
	case "bool", "boolean":
		return Boolean, nil
	}
	return String, fmt.Errorf("schema: unknown column type %q", s)
}

// output writes a field value into a record. ctx is the decoder's context
// value, nil unless the decoder was created with one.
type output[T any] func(rec *T, ctx any, field []byte) error

// Column maps one named CSV column onto a record. Columns are immutable once
// added to a Schema and may be shared by any number of decoders.
type Column[T any] struct {
	name         string
	index        int
	typ          Type
	optional     bool
	trimLeading  bool
	trimTrailing bool

	out    output[T]
	decode output[T]
}

// Option adjusts a column at construction.
type Option func(*options)

type options struct {
	optional     bool
	trimLeading  bool
	trimTrailing bool
	typ          *Type
}

// Optional lets the field be empty; the record keeps its zero value.
func Optional() Option { return func(o *options) { o.optional = true } }

// Trim strips spaces and tabs on both sides before conversion.
func Trim() Option {
	return func(o *options) { o.trimLeading, o.trimTrailing = true, true }
}

func TrimLeading() Option  { return func(o *options) { o.trimLeading = true } }
func TrimTrailing() Option { return func(o *options) { o.trimTrailing = true } }

// As records the value type of a consumer column. It does not change how the
// field is decoded.
func As(t Type) Option { return func(o *options) { o.typ = &t } }

func newColumn[T any](name string, typ Type, opts []Option) *Column[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.typ != nil {
		typ = *o.typ
	}
	return &Column[T]{
		name:         name,
		typ:          typ,
		optional:     o.optional,
		trimLeading:  o.trimLeading,
		trimTrailing: o.trimTrailing,
	}
}

// SetString stores the field as a string.
func SetString[T any](name string, set func(*T, string), opts ...Option) *Column[T] {
	c := newColumn[T](name, String, opts)
	if set != nil {
		c.out = func(rec *T, _ any, b []byte) error {
			set(rec, string(b))
			return nil
		}
	}
	return c
}

// SetInt stores the field as a 32-bit integer.
func SetInt[T any](name string, set func(*T, int), opts ...Option) *Column[T] {
	c := newColumn[T](name, Int, opts)
	if set != nil {
		c.out = func(rec *T, _ any, b []byte) error {
			v, err := convert.ParseInt(b)
			if err != nil {
				return err
			}
			set(rec, v)
			return nil
		}
	}
	return c
}

// SetLong stores the field as a 64-bit integer.
func SetLong[T any](name string, set func(*T, int64), opts ...Option) *Column[T] {
	c := newColumn[T](name, Long, opts)
	if set != nil {
		c.out = func(rec *T, _ any, b []byte) error {
			v, err := convert.ParseInt64(b)
			if err != nil {
				return err
			}
			set(rec, v)
			return nil
		}
	}
	return c
}

// SetDouble stores the field as a float64.
func SetDouble[T any](name string, set func(*T, float64), opts ...Option) *Column[T] {
	c := newColumn[T](name, Double, opts)
	if set != nil {
		c.out = func(rec *T, _ any, b []byte) error {
			v, err := convert.ParseFloat(b)
			if err != nil {
				return err
			}
			set(rec, v)
			return nil
		}
	}
	return c
}

// SetBool stores the field as a bool.
func SetBool[T any](name string, set func(*T, bool), opts ...Option) *Column[T] {
	c := newColumn[T](name, Boolean, opts)
	if set != nil {
		c.out = func(rec *T, _ any, b []byte) error {
			v, err := convert.ParseBool(b)
			if err != nil {
				return err
			}
			set(rec, v)
			return nil
		}
	}
	return c
}

// Pair hands the raw field bytes to fn. The slice aliases the decoder's
// buffer and must be copied if retained.
func Pair[T any](name string, fn func(rec *T, field []byte) error, opts ...Option) *Column[T] {
	c := newColumn[T](name, String, opts)
	if fn != nil {
		c.out = func(rec *T, _ any, b []byte) error { return fn(rec, b) }
	}
	return c
}

// Triple is Pair with the decoder's context value passed along.
func Triple[T any](name string, fn func(rec *T, ctx any, field []byte) error, opts ...Option) *Column[T] {
	c := newColumn[T](name, String, opts)
	if fn != nil {
		c.out = output[T](fn)
	}
	return c
}

func (c *Column[T]) Name() string       { return c.name }
func (c *Column[T]) Index() int         { return c.index }
func (c *Column[T]) Type() Type         { return c.typ }
func (c *Column[T]) Optional() bool     { return c.optional }
func (c *Column[T]) TrimLeading() bool  { return c.trimLeading }
func (c *Column[T]) TrimTrailing() bool { return c.trimTrailing }

// Decode trims field as configured and writes it into rec. An empty field is
// skipped for optional columns and rejected with ErrEmptyField otherwise.
func (c *Column[T]) Decode(rec *T, ctx any, field []byte) error {
	return c.decode(rec, ctx, field)
}

// bind composes trimming, the empty check and the output into one closure
// so decoding a field never switches on column configuration.
func (c *Column[T]) bind() {
	out, optional := c.out, c.optional
	body := func(rec *T, ctx any, b []byte) error {
		if len(b) == 0 {
			if optional {
				return nil
			}
			return ErrEmptyField
		}
		return out(rec, ctx, b)
	}
	if !c.trimLeading && !c.trimTrailing {
		c.decode = body
		return
	}
	lead, trail := c.trimLeading, c.trimTrailing
	c.decode = func(rec *T, ctx any, b []byte) error {
		s, e := scan.Trim(b, 0, len(b), lead, trail)
		return body(rec, ctx, b[s:e])
	}
}
