package scan

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsafeDelimiter reports a divider, quote, or escape byte that could
	// collide with multi-byte UTF-8 sequences or with the line terminator.
	ErrUnsafeDelimiter = errors.New("scan: unsafe delimiter character")

	// ErrDuplicateDelimiter reports a quote or escape byte equal to the divider.
	ErrDuplicateDelimiter = errors.New("scan: delimiter characters must be distinct")
)

// Dialect configures how rows and fields are delimited. The zero value of a
// byte field selects its default; use DefaultDialect for the RFC4180 setup.
type Dialect struct {
	// Divider separates columns. Default ','.
	Divider byte
	// Quote starts and ends a quoted field. Default '"'.
	Quote byte
	// Escape makes the next byte inside a quoted field literal. When equal to
	// Quote, a doubled quote is a literal quote. Default equal to Quote.
	Escape byte

	// CarriageReturn selects "\r\n" row terminators. A '\r' directly before
	// the '\n' ending a row is not part of the last field, and "\r\n" counts
	// as an empty line.
	CarriageReturn bool

	// SkipComments drops lines whose first byte is '#'.
	SkipComments bool
	// SkipEmptyLines drops zero-length lines.
	SkipEmptyLines bool

	// QuotedLinebreaks allows '\n' inside quoted fields. When false, a
	// linebreak inside quotes is an error and skipping trailing columns can
	// jump straight to the next '\n'.
	QuotedLinebreaks bool
}

// DefaultDialect returns the RFC4180 dialect: comma divider, double-quote
// quoting with doubling as escape, LF rows, linebreaks allowed in quotes.
func DefaultDialect() Dialect {
	return Dialect{
		Divider:          ',',
		Quote:            '"',
		Escape:           '"',
		QuotedLinebreaks: true,
	}
}

func (d Dialect) withDefaults() Dialect {
	if d.Divider == 0 {
		d.Divider = ','
	}
	if d.Quote == 0 {
		d.Quote = '"'
	}
	if d.Escape == 0 {
		d.Escape = d.Quote
	}
	return d
}

// Doubling reports whether a doubled quote encodes a literal quote.
func (d Dialect) Doubling() bool {
	d = d.withDefaults()
	return d.Escape == d.Quote
}

// Validate checks the character safety rules. Delimiters must be 7-bit
// ASCII so they can never match a byte inside a multi-byte UTF-8 sequence;
// none may be a linebreak; quote and escape must differ from the divider.
func (d Dialect) Validate() error {
	d = d.withDefaults()
	for _, c := range []struct {
		name string
		b    byte
	}{
		{"divider", d.Divider},
		{"quote", d.Quote},
		{"escape", d.Escape},
	} {
		if c.b >= 0x80 || c.b == '\n' {
			return fmt.Errorf("%w: cannot use %q as %s", ErrUnsafeDelimiter, c.b, c.name)
		}
		if d.CarriageReturn && c.b == '\r' {
			return fmt.Errorf("%w: cannot use '\\r' as %s in carriage-return mode", ErrUnsafeDelimiter, c.name)
		}
	}
	if d.Quote == d.Divider {
		return fmt.Errorf("%w: quote %q equals divider", ErrDuplicateDelimiter, d.Quote)
	}
	if d.Escape == d.Divider {
		return fmt.Errorf("%w: escape %q equals divider", ErrDuplicateDelimiter, d.Escape)
	}
	return nil
}
