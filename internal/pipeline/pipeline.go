// Package pipeline runs a configured load end to end: every input (local file or URL) is
// decoded through one shared decoder.Mapper, and the rows are batched into
// the configured storage backend.
//
// Concurrency model:
//
//	N readers (one input each, runtime.reader_workers)
//	     → bounded channel of pooled rows (runtime.channel_buffer)
//	     → M loaders (storage.LoadBatches, runtime.loader_workers)
//
// Rows that fail to decode are counted, sampled into the log and skipped. A
// storage error cancels the readers; a reader error cancels the loaders.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"csvplan/internal/config"
	"csvplan/internal/datasource"
	"csvplan/internal/datasource/file"
	"csvplan/internal/decoder"
	"csvplan/internal/metrics"
	"csvplan/internal/row"
	"csvplan/internal/schema"
	"csvplan/internal/storage"

	"golang.org/x/sync/errgroup"
)

// Summary reports what a run did.
type Summary struct {
	Files       int
	Rows        int64 // rows decoded and handed to storage
	FieldErrors int64 // rows skipped because a field failed to convert
	Inserted    int64
	Batches     int64
	Plans       PlanStats
	Elapsed     time.Duration
}

// PlanStats reports decode plan cache activity across all files.
type PlanStats struct {
	Compiled uint64
	Cached   uint64
}

// Test seams.
var (
	newRepositoryFn = storage.New
	readListFn      = file.ReadList
)

type runtimeConfig struct {
	readerWorkers  int
	loaderWorkers  int
	batchSize      int
	bufferSize     int
	logFieldErrors int
}

// newRuntimeConfig resolves runtime settings: config value, then environment,
// then default.
func newRuntimeConfig(p config.Pipeline) runtimeConfig {
	return runtimeConfig{
		readerWorkers:  pickInt(p.Runtime.ReaderWorkers, getenvInt("CSVPLAN_READER_WORKERS", 1)),
		loaderWorkers:  pickInt(p.Runtime.LoaderWorkers, getenvInt("CSVPLAN_LOADER_WORKERS", 1)),
		batchSize:      pickInt(p.Runtime.BatchSize, getenvInt("CSVPLAN_BATCH_SIZE", 10000)),
		bufferSize:     pickInt(p.Runtime.ChannelBuffer, getenvInt("CSVPLAN_CH_BUFFER", 4096)),
		logFieldErrors: pickInt(p.Runtime.LogFieldErrors, getenvInt("CSVPLAN_LOG_FIELD_ERRORS", 10)),
	}
}

// runner holds the state shared by the reader goroutines of one run.
type runner struct {
	job       string
	mapper    *decoder.Mapper[row.Row]
	static    *decoder.Factory[row.Row]
	rows      chan *row.Row
	maxErrors int64

	decoded     atomic.Int64
	fieldErrors *errAgg
}

// Run executes p and returns a summary. The returned summary is filled in as
// far as the run got, also when err is non-nil.
func Run(ctx context.Context, p config.Pipeline) (sum Summary, err error) {
	start := time.Now()
	job := p.Job
	if job == "" {
		job = "csvload"
	}
	defer func() {
		sum.Elapsed = time.Since(start)
		metrics.RecordStep(job, "run", err, sum.Elapsed)
	}()

	rt := newRuntimeConfig(p)

	d, err := p.Parser.Dialect()
	if err != nil {
		return sum, fmt.Errorf("parser: %w", err)
	}
	sch, err := BuildSchema(p.Columns)
	if err != nil {
		return sum, fmt.Errorf("schema: %w", err)
	}
	mapper, err := decoder.NewMapper(sch, d, decoder.Options{BufferLength: p.Parser.BufferLength()})
	if err != nil {
		return sum, fmt.Errorf("decoder: %w", err)
	}
	sources, err := buildSources(p.Source)
	if err != nil {
		return sum, fmt.Errorf("source: %w", err)
	}
	if len(sources) == 0 {
		return sum, errors.New("source: no input files")
	}
	sum.Files = len(sources)

	columns := p.StorageColumns()
	if len(columns) != len(p.Columns) {
		return sum, fmt.Errorf("storage.db.columns has %d entries, want %d", len(columns), len(p.Columns))
	}

	repo, err := initRepository(ctx, p, columns)
	if err != nil {
		return sum, err
	}
	defer repo.Close()

	if p.Storage.DB.AutoCreateTable {
		if err := ensureTableExists(ctx, repo, p, columns); err != nil {
			return sum, err
		}
	}

	r := &runner{
		job:         job,
		mapper:      mapper,
		rows:        make(chan *row.Row, rt.bufferSize),
		maxErrors:   int64(p.Runtime.MaxFieldErrors),
		fieldErrors: newErrAgg(rt.logFieldErrors),
	}
	switch {
	case p.Parser.Header() != "":
		r.static = mapper.StaticLine(p.Parser.Header())
	case !p.Parser.HasHeader():
		r.static = mapper.Default()
	}

	log.Printf(
		"run: job=%s source=%s inputs=%d storage=%s table=%s reader_workers=%d loader_workers=%d batch_size=%d",
		job, p.Source.Kind, len(sources), p.Storage.Kind, p.Storage.DB.Table, rt.readerWorkers, rt.loaderWorkers, rt.batchSize,
	)

	var inserted, batches atomic.Int64
	copyFn := func(ctx context.Context, cols []string, rows [][]any) (int64, error) {
		t0 := time.Now()
		n, err := repo.CopyFrom(ctx, cols, rows)
		metrics.RecordStep(job, "load", err, time.Since(t0))
		if err != nil {
			return n, err
		}
		batches.Add(1)
		metrics.RecordBatches(job, 1)
		metrics.RecordRow(job, "inserted", n)
		return n, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < rt.loaderWorkers; i++ {
		g.Go(func() error {
			n, err := storage.LoadBatches(gctx, columns, r.rows, rt.batchSize, copyFn)
			inserted.Add(n)
			if err != nil {
				return fmt.Errorf("load: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		defer close(r.rows)
		rg, rctx := errgroup.WithContext(gctx)
		rg.SetLimit(rt.readerWorkers)
		for _, src := range sources {
			rg.Go(func() error { return r.decodeSource(rctx, src) })
		}
		return rg.Wait()
	})
	err = g.Wait()

	sum.Rows = r.decoded.Load()
	sum.FieldErrors = r.fieldErrors.total()
	sum.Inserted = inserted.Load()
	sum.Batches = batches.Load()
	sum.Plans.Compiled, sum.Plans.Cached = mapper.Cache().Stats()
	metrics.RecordPlan(job, sum.Plans.Compiled, sum.Plans.Cached)

	r.fieldErrors.log("rejected rows")
	sum.Elapsed = time.Since(start)
	logSummary(sum)
	return sum, err
}

// decodeSource streams one input into r.rows.
func (r *runner) decodeSource(ctx context.Context, src datasource.Source) (err error) {
	path := src.Name()
	start := time.Now()
	var decoded, rejected int64
	defer func() {
		metrics.RecordStep(r.job, "decode", err, time.Since(start))
		metrics.RecordRow(r.job, "decoded", decoded)
		metrics.RecordRow(r.job, "field_errors", rejected)
	}()

	rc, err := src.Open(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()

	dec, err := r.open(rc)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	for {
		rec, err := dec.Next()
		if err == io.EOF {
			break
		}
		var fe *decoder.FieldError
		if errors.As(err, &fe) {
			rejected++
			total := r.fieldErrors.add(fmt.Sprintf("%s: %v", path, fe))
			if r.maxErrors > 0 && total > r.maxErrors {
				return fmt.Errorf("%w: %d rows rejected, max_field_errors=%d", ErrTooManyFieldErrors, total, r.maxErrors)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		select {
		case r.rows <- rec:
			decoded++
			r.decoded.Add(1)
		case <-ctx.Done():
			rec.Free()
			return ctx.Err()
		}
	}

	log.Printf("input done: %s rows=%d rejected=%d elapsed=%s",
		path, decoded, rejected, time.Since(start).Truncate(time.Millisecond))
	return nil
}

func (r *runner) open(rc io.Reader) (*decoder.Decoder[row.Row], error) {
	if r.static != nil {
		return r.static.New(rc), nil
	}
	return r.mapper.Decode(rc)
}

// initRepository opens the storage backend for p.
func initRepository(ctx context.Context, p config.Pipeline, columns []string) (storage.Repository, error) {
	repo, err := newRepositoryFn(ctx, storage.Config{
		Kind:    p.Storage.Kind,
		DSN:     p.Storage.DB.DSN,
		Table:   p.Storage.DB.Table,
		Columns: columns,
	})
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	return repo, nil
}

// ensureTableExists creates the destination table from the column types.
func ensureTableExists(ctx context.Context, repo storage.Repository, p config.Pipeline, columns []string) error {
	log.Printf("auto-create table enabled for %s", p.Storage.DB.Table)
	t := storage.TableDef{Name: p.Storage.DB.Table, Columns: make([]storage.ColumnDef, len(p.Columns))}
	for i, c := range p.Columns {
		typ, err := schema.ParseType(c.Type)
		if err != nil {
			return err
		}
		t.Columns[i] = storage.ColumnDef{Name: columns[i], Type: typ, Nullable: c.Optional}
	}
	if err := storage.EnsureTable(ctx, p.Storage.Kind, repo, t); err != nil {
		return err
	}
	log.Printf("table ensured: %s", p.Storage.DB.Table)
	return nil
}

func logSummary(s Summary) {
	log.Printf(
		"summary: files=%d decoded=%d field_errors=%d inserted=%d batches=%d plans_compiled=%d plans_cached=%d elapsed=%s",
		s.Files, s.Rows, s.FieldErrors, s.Inserted, s.Batches, s.Plans.Compiled, s.Plans.Cached,
		s.Elapsed.Truncate(time.Millisecond),
	)
}

// getenvInt reads an int from environment, returning def when unset/invalid.
func getenvInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

// pickInt chooses a when it is positive, otherwise b.
func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}
