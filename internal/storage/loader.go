package storage

import (
	"context"
	"errors"
	"log"
	"time"

	"csvplan/internal/row"
)

// CopyFn is a backend's bulk insert. It receives rows aligned to columns and
// returns the number of rows reported as inserted.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains pooled rows from in, groups them into batches of
// batchSize and calls copyFn for each non-empty batch. Rows go back to the
// pool once their batch has been handed to copyFn, whether or not it
// succeeded. It returns the total reported by copyFn and the first error.
//
// Several LoadBatches calls may share one channel; each keeps its own batch.
func LoadBatches(
	ctx context.Context,
	columns []string,
	in <-chan *row.Row,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, errors.New("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, errors.New("copyFn must not be nil")
	}

	b := &batch{
		columns: columns,
		copyFn:  copyFn,
		pending: make([]*row.Row, 0, batchSize),
		values:  make([][]any, 0, batchSize),
		start:   time.Now(),
	}
	b.last = b.start

	for {
		select {
		case <-ctx.Done():
			b.release()
			return b.total, ctx.Err()

		case r, ok := <-in:
			if !ok {
				tail := len(b.pending)
				if err := b.flush(ctx); err != nil {
					return b.total, err
				}
				log.Printf("loader: input closed, final_flush=%d total_inserted=%d", tail, b.total)
				return b.total, nil
			}
			b.pending = append(b.pending, r)
			if len(b.pending) == cap(b.pending) {
				if err := b.flush(ctx); err != nil {
					return b.total, err
				}
			}
		}
	}
}

// batch is one loader's pending rows plus its progress counters.
type batch struct {
	columns []string
	copyFn  CopyFn
	pending []*row.Row
	values  [][]any

	total   int64
	flushes int64

	start     time.Time
	last      time.Time
	lastTotal int64
}

func (b *batch) flush(ctx context.Context) error {
	if len(b.pending) == 0 {
		return nil
	}
	b.values = b.values[:0]
	for _, r := range b.pending {
		b.values = append(b.values, r.V)
	}
	n, err := b.copyFn(ctx, b.columns, b.values)
	b.total += n
	b.release()
	if err != nil {
		log.Printf("loader: copy failed after=%d total=%d err=%v", n, b.total, err)
		return err
	}
	b.flushes++
	b.progress(n)
	return nil
}

// release returns pending rows to the pool.
func (b *batch) release() {
	for i, r := range b.pending {
		r.Free()
		b.pending[i] = nil
	}
	b.pending = b.pending[:0]
	clear(b.values)
}

func (b *batch) progress(n int64) {
	now := time.Now()
	since := now.Sub(b.last)
	var rps float64
	if since > 0 {
		rps = float64(b.total-b.lastTotal) / since.Seconds()
	}
	log.Printf("batch #%d: rps=%.0f inserted=%d total_inserted=%d elapsed=%s since_last=%s",
		b.flushes, rps, n, b.total,
		now.Sub(b.start).Truncate(time.Millisecond), since.Truncate(time.Millisecond))
	b.last, b.lastTotal = now, b.total
}
