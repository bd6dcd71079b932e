package httpds

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"csvplan/internal/datasource/file"

	"golang.org/x/text/encoding"
)

// Remote is a datasource.Source over one URL.
type Remote struct {
	c   *Client
	url string
	enc encoding.Encoding
}

// NewRemote returns a source that downloads url with c.
func NewRemote(c *Client, url string) *Remote { return &Remote{c: c, url: url} }

// WithEncoding returns a copy of r that transcodes the body from enc.
func (r *Remote) WithEncoding(enc encoding.Encoding) *Remote {
	cp := *r
	cp.enc = enc
	return &cp
}

// Name returns the URL.
func (r *Remote) Name() string { return r.url }

// Open starts the download and streams the body.
func (r *Remote) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := r.c.Get(ctx, r.url, nil)
	if err != nil {
		return nil, err
	}
	if r.enc == nil {
		return resp.Body, nil
	}
	return &decodedBody{Reader: file.Decode(resp.Body, r.enc), body: resp.Body}, nil
}

type decodedBody struct {
	io.Reader
	body io.Closer
}

func (d *decodedBody) Close() error { return d.body.Close() }

// Head returns at most n bytes from the start of url. A Range header asks the
// server for only that much; servers that ignore it are cut client side.
func (c *Client) Head(ctx context.Context, url string, n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("httpds: n must be > 0")
	}
	h := make(http.Header)
	h.Set("Range", fmt.Sprintf("bytes=0-%d", n-1))

	resp, err := c.Get(ctx, url, h)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(io.LimitReader(resp.Body, int64(n))); err != nil {
		return nil, fmt.Errorf("httpds: read %s: %w", url, err)
	}
	return buf.Bytes(), nil
}
