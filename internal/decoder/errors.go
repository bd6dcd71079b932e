package decoder

import (
	"fmt"

	"csvplan/internal/schema"
)

// ErrEmptyField is wrapped by a FieldError when a required column is empty
// after trimming.
var ErrEmptyField = schema.ErrEmptyField

// FieldError reports a field that could not be stored in its column. The
// row it belongs to is skipped; the decoder continues with the next row.
type FieldError struct {
	Row   int64
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("row %d, field %q: %v (value %q)", e.Row, e.Field, e.Err, e.Value)
}

func (e *FieldError) Unwrap() error { return e.Err }

// DecodeError is a terminal failure: malformed structure, a field longer
// than the buffer, or an error from the underlying reader. Every later call
// to Next returns the same error.
type DecodeError struct {
	Row int64
	// Column is the source column being scanned, or -1 between rows.
	Column int
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Column < 0 {
		return fmt.Sprintf("decode row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("decode row %d, column %d: %v", e.Row, e.Column, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
