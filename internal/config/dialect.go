package config

import (
	"fmt"

	"csvplan/internal/scan"
)

// Dialect builds the scan dialect from the parser options. Missing keys take
// the defaults of scan.DefaultDialect.
func (p Parser) Dialect() (scan.Dialect, error) {
	d := scan.DefaultDialect()
	o := p.Options

	for _, k := range []struct {
		key string
		dst *byte
	}{
		{"divider", &d.Divider},
		{"quote", &d.Quote},
		{"escape", &d.Escape},
	} {
		b, ok := o.Byte(k.key, *k.dst)
		if !ok {
			return d, fmt.Errorf("parser.options.%s must be a one-byte string", k.key)
		}
		*k.dst = b
	}
	// A custom quote without an explicit escape keeps doubling.
	if _, set := o["escape"]; !set {
		d.Escape = d.Quote
	}

	d.CarriageReturn = o.Bool("carriage_return", d.CarriageReturn)
	d.SkipComments = o.Bool("skip_comments", d.SkipComments)
	d.SkipEmptyLines = o.Bool("skip_empty_lines", d.SkipEmptyLines)
	d.QuotedLinebreaks = o.Bool("quoted_linebreaks", d.QuotedLinebreaks)

	if err := d.Validate(); err != nil {
		return d, err
	}
	return d, nil
}

// HasHeader reports whether input files start with a header row.
func (p Parser) HasHeader() bool { return p.Options.Bool("has_header", true) }

// Header returns a configured header line, or "".
func (p Parser) Header() string { return p.Options.String("header", "") }

// BufferLength returns the decoder buffer size, or 0 for the default.
func (p Parser) BufferLength() int { return p.Options.Int("buffer_length", 0) }
