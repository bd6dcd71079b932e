// Package datasource abstracts where CSV bytes come from.
package datasource

import (
	"context"
	"io"
)

// Source opens one input stream. Each call returns an independent reader.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)

	// Name identifies the input in logs and errors.
	Name() string
}
