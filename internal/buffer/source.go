// Package buffer implements the fixed-size byte window the decoding engine
// scans over. A Source never grows: when a scan reaches the end of valid data
// it asks for a refill, which compacts the unread tail to the start of the
// buffer and reads more bytes behind it. Memory stays bounded by the
// configured length regardless of input size.
package buffer

import (
	"bytes"
	"errors"
	"io"
)

// DefaultSize is the buffer length used when callers pass a non-positive size.
const DefaultSize = 64 * 1024

// maxEmptyReads bounds consecutive (0, nil) reads before giving up, mirroring
// bufio.Reader.
const maxEmptyReads = 100

// ErrBufferFull is returned by Fill when the unread window already occupies
// the whole buffer, i.e. a single field is longer than the buffer length. It
// is terminal for the decoder that owns the Source.
var ErrBufferFull = errors.New("buffer: field exceeds buffer length")

// Source is a refillable window over an io.Reader.
//
// Buf[Offset:Range] holds bytes that have been read but not consumed. Callers
// index Buf directly in their hot loops and call Fill only when they reach
// Range. Buf has one byte more than the usable size so a missing final line
// terminator can be synthesized without another allocation.
//
// A Source has exactly one owner and is not safe for concurrent use.
type Source struct {
	Buf    []byte
	Offset int
	Range  int

	r    io.Reader
	size int
	eof  bool
	err  error
}

// New returns a Source reading from r with a usable window of size bytes.
func New(r io.Reader, size int) *Source {
	if size <= 0 {
		size = DefaultSize
	}
	return &Source{
		Buf:  make([]byte, size+1),
		r:    r,
		size: size,
	}
}

// NewFilled returns a Source whose first bytes were already read from r by
// the caller, e.g. while peeking at a header. The valid data is
// buf[offset:offset+length]. buf is adopted as storage when it has room for
// the terminator slot; otherwise the data is copied into a fresh buffer of at
// least DefaultSize.
func NewFilled(r io.Reader, buf []byte, offset, length int) *Source {
	if offset < 0 || length < 0 || offset+length > len(buf) {
		panic("buffer: prefilled window out of range")
	}
	if offset+length < len(buf) && len(buf) > 1 {
		return &Source{
			Buf:    buf,
			Offset: offset,
			Range:  offset + length,
			r:      r,
			size:   len(buf) - 1,
		}
	}
	size := max(length, DefaultSize)
	s := New(r, size)
	s.Range = copy(s.Buf, buf[offset:offset+length])
	return s
}

// NewCopy returns a Source of the given size whose window starts with a copy
// of data. The size grows to len(data) when data does not fit.
func NewCopy(r io.Reader, data []byte, size int) *Source {
	s := New(r, max(size, len(data)))
	s.Range = copy(s.Buf, data)
	return s
}

// Size reports the usable buffer length.
func (s *Source) Size() int { return s.size }

// Fill compacts the unread window to the start of the buffer and appends as
// many bytes from the underlying reader as fit. It returns the number of bytes
// appended; 0 with a nil error means the stream is exhausted.
//
// When the reader reaches EOF and the stream did not end with '\n', a '\n' is
// appended once so the final row is terminated like every other row.
//
// Read errors other than io.EOF are sticky: bytes that arrived with the error
// are kept and the error is reported by this and every later call.
func (s *Source) Fill() (int, error) {
	if s.Offset > 0 {
		s.Range = copy(s.Buf, s.Buf[s.Offset:s.Range])
		s.Offset = 0
	}
	if s.err != nil {
		return 0, s.err
	}
	if s.eof {
		return 0, nil
	}
	if s.Range >= s.size {
		return 0, ErrBufferFull
	}

	for empty := 0; ; {
		n, err := s.r.Read(s.Buf[s.Range:s.size])
		if n < 0 || n > s.size-s.Range {
			return 0, errors.New("buffer: reader returned invalid count")
		}
		s.Range += n
		switch {
		case err == io.EOF:
			s.eof = true
			if s.Range > 0 && s.Buf[s.Range-1] != '\n' {
				s.Buf[s.Range] = '\n'
				s.Range++
				n++
			}
			return n, nil
		case err != nil:
			s.err = err
			if n > 0 {
				return n, nil
			}
			return 0, err
		case n > 0:
			return n, nil
		}
		empty++
		if empty >= maxEmptyReads {
			s.err = io.ErrNoProgress
			return 0, s.err
		}
	}
}

// Ensure makes at least one unread byte available. It returns false at the
// end of the stream.
func (s *Source) Ensure() (bool, error) {
	if s.Offset < s.Range {
		return true, nil
	}
	n, err := s.Fill()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Unread returns the bytes that have been buffered but not consumed. The
// slice aliases Buf and is only valid until the next Fill.
func (s *Source) Unread() []byte { return s.Buf[s.Offset:s.Range] }

// Reader returns a reader over the unconsumed remainder of the stream: the
// buffered bytes followed by whatever the underlying reader still has. The
// Source must not be used after calling Reader.
func (s *Source) Reader() io.Reader {
	rest := append([]byte(nil), s.Unread()...)
	if s.eof || s.err != nil {
		return bytes.NewReader(rest)
	}
	return io.MultiReader(bytes.NewReader(rest), s.r)
}
