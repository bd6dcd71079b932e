package file

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding"
)

// Local opens a file from the local disk.
type Local struct {
	path string
	enc  encoding.Encoding
}

// NewLocal returns a Local source for path. The value is safe for concurrent
// use; every Open returns a separate descriptor.
func NewLocal(path string) *Local { return &Local{path: path} }

// WithEncoding returns a copy of l that transcodes the file from enc to
// UTF-8. A nil enc reads the bytes as they are.
func (l *Local) WithEncoding(enc encoding.Encoding) *Local {
	c := *l
	c.enc = enc
	return &c
}

// Name returns the path.
func (l *Local) Name() string { return l.path }

// Open checks ctx, opens the file with a sequential-read hint, and wraps it
// in a decoder when an encoding is set. Filesystem errors are wrapped with
// the path and still match errors.Is(err, os.ErrNotExist).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	adviseSequential(f)
	if l.enc == nil {
		return f, nil
	}
	return &decodedFile{Reader: Decode(f, l.enc), f: f}, nil
}

type decodedFile struct {
	io.Reader
	f *os.File
}

func (d *decodedFile) Close() error { return d.f.Close() }
