// Package scan splits a buffer.Source into fields. It understands quoting,
// escaping and line terminators but never interprets field contents: every
// call returns a span into the source buffer that stays valid until the next
// call on the same Source.
package scan

import (
	"bytes"
	"errors"
	"io"

	"csvplan/internal/buffer"
)

var (
	// ErrShortRow is returned when a row ends before a column that is not the
	// last one of the row.
	ErrShortRow = errors.New("scan: row has fewer columns than expected")

	// ErrUnterminatedQuote is returned when the stream ends inside a quoted field.
	ErrUnterminatedQuote = errors.New("scan: unterminated quoted field")

	// ErrQuotedLinebreak is returned for a linebreak inside a quoted field when
	// the dialect does not allow them.
	ErrQuotedLinebreak = errors.New("scan: linebreak inside quoted field")
)

type mode uint8

const (
	modeMiddle mode = iota // must end at a divider
	modeLast               // ends at the linebreak, dividers are data
	modeAny                // ends at whichever comes first
)

// Scanner holds a validated dialect. It keeps no per-stream state and is safe
// to share between goroutines; the Source passed to each call is not.
type Scanner struct {
	d        Dialect
	divider  byte
	quote    byte
	escape   byte
	doubling bool
}

// New validates d and returns a Scanner for it. Zero delimiter bytes take
// their defaults.
func New(d Dialect) (*Scanner, error) {
	d = d.withDefaults()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &Scanner{
		d:        d,
		divider:  d.Divider,
		quote:    d.Quote,
		escape:   d.Escape,
		doubling: d.Escape == d.Quote,
	}, nil
}

// Dialect returns the dialect with defaults applied.
func (s *Scanner) Dialect() Dialect { return s.d }

// Field scans the field starting at src.Offset and returns its span in
// src.Buf. A middle field (last == false) must end at a divider; reaching a
// linebreak first is ErrShortRow. The last field ends at the linebreak and
// keeps any dividers it contains. On success src.Offset points past the
// terminator.
//
// Quoted fields are unescaped in place, so the span holds the field value
// without quotes or escape bytes.
func (s *Scanner) Field(src *buffer.Source, last bool) (start, end int, err error) {
	m := modeMiddle
	if last {
		m = modeLast
	}
	start, end, _, err = s.scan(src, m, true)
	return start, end, err
}

// NextField scans the next field up to a divider or a linebreak, whichever
// comes first, and reports whether it ended the row. It returns io.EOF when
// called at the end of the stream.
func (s *Scanner) NextField(src *buffer.Source) (start, end int, eol bool, err error) {
	return s.scan(src, modeAny, true)
}

// SkipColumns consumes n middle fields without unescaping them.
func (s *Scanner) SkipColumns(src *buffer.Source, n int) error {
	for ; n > 0; n-- {
		if _, _, _, err := s.scan(src, modeMiddle, false); err != nil {
			return err
		}
	}
	return nil
}

// SkipToLineBreak consumes the rest of the current row. When quoted
// linebreaks are disabled the next '\n' ends the row and quotes are ignored.
func (s *Scanner) SkipToLineBreak(src *buffer.Source) error {
	if !s.d.QuotedLinebreaks {
		for {
			if k := bytes.IndexByte(src.Buf[src.Offset:src.Range], '\n'); k >= 0 {
				src.Offset += k + 1
				return nil
			}
			src.Offset = src.Range
			ok, err := fill(src)
			if err != nil || !ok {
				return err
			}
		}
	}
	for {
		_, _, eol, err := s.scan(src, modeAny, false)
		if err == io.EOF {
			return nil
		}
		if err != nil || eol {
			return err
		}
	}
}

// SkipLines consumes comment lines and empty lines in front of the next row,
// as enabled by the dialect. It reports eof when the stream has no more bytes.
func (s *Scanner) SkipLines(src *buffer.Source) (eof bool, err error) {
	for {
		ok, err := src.Ensure()
		if err != nil {
			return false, err
		}
		if !ok {
			return true, nil
		}
		c := src.Buf[src.Offset]
		switch {
		case s.d.SkipEmptyLines && c == '\n':
			src.Offset++
		case s.d.SkipEmptyLines && s.d.CarriageReturn && c == '\r':
			if src.Offset+1 >= src.Range {
				if _, err := src.Fill(); err != nil {
					return false, err
				}
			}
			if src.Offset+1 >= src.Range || src.Buf[src.Offset+1] != '\n' {
				return false, nil
			}
			src.Offset += 2
		case s.d.SkipComments && c == '#':
			if err := skipLine(src); err != nil {
				return false, err
			}
		default:
			return false, nil
		}
	}
}

// Header scans one complete row and returns its fields as strings.
func (s *Scanner) Header(src *buffer.Source) ([]string, error) {
	var out []string
	for {
		start, end, eol, err := s.scan(src, modeAny, true)
		if err != nil {
			if err == io.EOF && len(out) > 0 {
				return out, nil
			}
			return nil, err
		}
		out = append(out, string(src.Buf[start:end]))
		if eol {
			return out, nil
		}
	}
}

// CountColumns counts the fields of the first line in buf, honouring quotes.
// complete reports whether the line's terminator was found within buf. An
// empty buf has zero columns.
func (s *Scanner) CountColumns(buf []byte) (n int, complete bool) {
	if len(buf) == 0 {
		return 0, false
	}
	n = 1
	inQuote, atStart := false, true
	for i := 0; i < len(buf); i++ {
		c := buf[i]
		if inQuote {
			switch {
			case !s.doubling && c == s.escape:
				i++
			case c == s.quote:
				if s.doubling && i+1 < len(buf) && buf[i+1] == s.quote {
					i++
				} else {
					inQuote = false
				}
			}
			continue
		}
		switch {
		case atStart && c == s.quote:
			inQuote, atStart = true, false
		case c == s.divider:
			n++
			atStart = true
		case c == '\n':
			return n, true
		default:
			atStart = false
		}
	}
	return n, false
}

// Trim narrows buf[start:end] by removing spaces and tabs from the requested
// sides.
func Trim(buf []byte, start, end int, leading, trailing bool) (int, int) {
	if leading {
		for start < end && isBlank(buf[start]) {
			start++
		}
	}
	if trailing {
		for end > start && isBlank(buf[end-1]) {
			end--
		}
	}
	return start, end
}

func isBlank(c byte) bool { return c == ' ' || c == '\t' }

func (s *Scanner) scan(src *buffer.Source, m mode, keep bool) (int, int, bool, error) {
	if src.Offset >= src.Range {
		ok, err := fill(src)
		if err != nil {
			return 0, 0, false, err
		}
		if !ok {
			return 0, 0, false, io.EOF
		}
	}
	if src.Buf[src.Offset] == s.quote {
		return s.scanQuoted(src, m, keep)
	}
	return s.scanPlain(src, m)
}

func (s *Scanner) scanPlain(src *buffer.Source, m mode) (int, int, bool, error) {
	i := src.Offset
	for {
		buf := src.Buf[:src.Range]
		if m == modeLast {
			if k := bytes.IndexByte(buf[i:], '\n'); k >= 0 {
				return s.endRow(src, src.Offset, i+k)
			}
			i = len(buf)
		} else {
			for ; i < len(buf); i++ {
				c := buf[i]
				if c == s.divider {
					start := src.Offset
					src.Offset = i + 1
					return start, i, false, nil
				}
				if c == '\n' {
					if m == modeMiddle {
						return 0, 0, false, ErrShortRow
					}
					return s.endRow(src, src.Offset, i)
				}
			}
		}

		rel := i - src.Offset
		ok, err := fill(src)
		if err != nil {
			return 0, 0, false, err
		}
		if !ok {
			return 0, 0, false, io.ErrUnexpectedEOF
		}
		i = src.Offset + rel
	}
}

// endRow finishes an unquoted field terminated by the linebreak at nl.
func (s *Scanner) endRow(src *buffer.Source, start, nl int) (int, int, bool, error) {
	end := nl
	if s.d.CarriageReturn && end > start && src.Buf[end-1] == '\r' {
		end--
	}
	src.Offset = nl + 1
	return start, end, true, nil
}

// scanQuoted reads a field whose first byte is the quote. Unescaped bytes are
// written back at w, which never passes the read cursor i.
func (s *Scanner) scanQuoted(src *buffer.Source, m mode, keep bool) (int, int, bool, error) {
	i := src.Offset + 1
	w := src.Offset
	for {
		if i >= src.Range {
			ri, rw := i-src.Offset, w-src.Offset
			ok, err := fill(src)
			if err != nil {
				return 0, 0, false, err
			}
			if !ok {
				return 0, 0, false, ErrUnterminatedQuote
			}
			i, w = src.Offset+ri, src.Offset+rw
		}

		buf := src.Buf[:src.Range]
		k := s.special(buf[i:])
		if k < 0 {
			k = len(buf) - i
		}
		if !s.d.QuotedLinebreaks && bytes.IndexByte(buf[i:i+k], '\n') >= 0 {
			return 0, 0, false, ErrQuotedLinebreak
		}
		if keep && w != i {
			copy(buf[w:], buf[i:i+k])
		}
		w += k
		i += k
		if i >= len(buf) {
			continue
		}

		// buf[i] is a quote or an escape byte; both need the byte after it.
		if i+1 >= src.Range {
			ri, rw := i-src.Offset, w-src.Offset
			ok, err := fill(src)
			if err != nil {
				return 0, 0, false, err
			}
			i, w = src.Offset+ri, src.Offset+rw
			buf = src.Buf[:src.Range]
			if !ok {
				if buf[i] == s.quote {
					return s.afterQuote(src, src.Offset, w, i+1, m)
				}
				return 0, 0, false, ErrUnterminatedQuote
			}
		}

		if buf[i] == s.quote {
			if s.doubling && buf[i+1] == s.quote {
				if keep {
					buf[w] = s.quote
				}
				w++
				i += 2
				continue
			}
			return s.afterQuote(src, src.Offset, w, i+1, m)
		}
		if buf[i+1] == '\n' && !s.d.QuotedLinebreaks {
			return 0, 0, false, ErrQuotedLinebreak
		}
		if keep {
			buf[w] = buf[i+1]
		}
		w++
		i += 2
	}
}

// afterQuote looks for the terminator of a quoted field whose value is
// buf[start:end]. Bytes between the closing quote and the terminator are
// dropped.
func (s *Scanner) afterQuote(src *buffer.Source, start, end, i int, m mode) (int, int, bool, error) {
	for {
		buf := src.Buf[:src.Range]
		for ; i < len(buf); i++ {
			c := buf[i]
			if c == '\n' {
				if m == modeMiddle {
					return 0, 0, false, ErrShortRow
				}
				src.Offset = i + 1
				return start, end, true, nil
			}
			if c == s.divider && m != modeLast {
				src.Offset = i + 1
				return start, end, false, nil
			}
		}

		rs, re, ri := start-src.Offset, end-src.Offset, i-src.Offset
		ok, err := fill(src)
		if err != nil {
			return 0, 0, false, err
		}
		start, end, i = src.Offset+rs, src.Offset+re, src.Offset+ri
		if !ok {
			if m == modeMiddle {
				return 0, 0, false, ErrShortRow
			}
			src.Offset = src.Range
			return start, end, true, nil
		}
	}
}

// special returns the index of the first byte in b that needs handling
// inside a quoted field, or -1.
func (s *Scanner) special(b []byte) int {
	if s.doubling {
		return bytes.IndexByte(b, s.quote)
	}
	for i, c := range b {
		if c == s.quote || c == s.escape {
			return i
		}
	}
	return -1
}

// skipLine consumes bytes through the next '\n'. Nothing before it needs to
// be kept, so the window is released before each refill.
func skipLine(src *buffer.Source) error {
	for {
		if k := bytes.IndexByte(src.Buf[src.Offset:src.Range], '\n'); k >= 0 {
			src.Offset += k + 1
			return nil
		}
		src.Offset = src.Range
		ok, err := fill(src)
		if err != nil || !ok {
			return err
		}
	}
}

func fill(src *buffer.Source) (bool, error) {
	n, err := src.Fill()
	return n > 0, err
}
