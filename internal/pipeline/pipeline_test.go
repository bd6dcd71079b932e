package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"csvplan/internal/config"
	"csvplan/internal/decoder"
	"csvplan/internal/scan"
	"csvplan/internal/storage"

	_ "csvplan/internal/storage/sqlite"
)

func writeCSV(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func basePipeline(paths ...string) config.Pipeline {
	return config.Pipeline{
		Job:    "test",
		Source: config.Source{Kind: "file", File: config.SourceFile{Paths: paths}},
		Parser: config.Parser{Kind: "csv", Options: config.Options{}},
		Columns: []config.Column{
			{Name: "id", Type: "int"},
			{Name: "name", Trim: "both"},
			{Name: "price", Type: "double", Optional: true},
			{Name: "active", Type: "boolean", Optional: true},
		},
		Storage: config.Storage{Kind: "none"},
		Runtime: config.RuntimeConfig{ReaderWorkers: 1, BatchSize: 2, ChannelBuffer: 4},
	}
}

/*
TestBuildSchema decodes one row through the generated schema and checks the
Go types written into the row.
*/
func TestBuildSchema(t *testing.T) {
	t.Parallel()

	sch, err := BuildSchema(append(basePipeline().Columns, config.Column{Name: "big", Type: "long"}))
	if err != nil {
		t.Fatalf("BuildSchema: %v", err)
	}
	m, err := decoder.NewMapper(sch, scan.DefaultDialect(), decoder.Options{})
	if err != nil {
		t.Fatalf("NewMapper: %v", err)
	}
	dec, err := m.Decode(strings.NewReader("big,active,id,name\n9000000000,yes,7,  x  \n"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	r, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	defer r.Free()

	want := []any{int32(7), "x", nil, true, int64(9000000000)}
	if len(r.V) != len(want) {
		t.Fatalf("width got=%d want=%d", len(r.V), len(want))
	}
	for i := range want {
		if r.V[i] != want[i] {
			t.Fatalf("V[%d] got=%#v want=%#v", i, r.V[i], want[i])
		}
	}
}

func TestBuildSchema_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cols []config.Column
	}{
		{"no columns", nil},
		{"bad type", []config.Column{{Name: "a", Type: "date"}}},
		{"bad trim", []config.Column{{Name: "a", Trim: "middle"}}},
		{"duplicate", []config.Column{{Name: "a"}, {Name: "a"}}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := BuildSchema(tc.cols); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

/*
TestRun_DryRun decodes three files with two distinct header layouts into the
discarding backend. The shared mapper compiles one plan per layout and
reuses it for the repeated header; the bad row is counted and skipped.
*/
func TestRun_DryRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeCSV(t, dir, "a.csv", "id,name,price\n1,a,1.5\n2,b,\n")
	b := writeCSV(t, dir, "b.csv", "price,name,id,extra\n2.5,c,3,zzz\nnope,d,4,zzz\n")
	c := writeCSV(t, dir, "c.csv", "id,name,price\n5,e,5\n")

	sum, err := Run(context.Background(), basePipeline(a, b, c))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Files != 3 || sum.Rows != 4 || sum.FieldErrors != 1 {
		t.Fatalf("summary=%+v want files=3 rows=4 field_errors=1", sum)
	}
	if sum.Inserted != sum.Rows {
		t.Fatalf("inserted got=%d want=%d", sum.Inserted, sum.Rows)
	}
	if sum.Batches != 2 {
		t.Fatalf("batches got=%d want=2", sum.Batches)
	}
	if sum.Plans.Compiled != 2 || sum.Plans.Cached == 0 {
		t.Fatalf("plans=%+v want compiled=2 cached>0", sum.Plans)
	}
}

func TestRun_SQLite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := writeCSV(t, dir, "in.csv", "id;name;price;active\n1; a ;1.5;true\n2;b;;n\n3;c;2;\n")
	dsn := "file:" + filepath.Join(dir, "out.db")

	p := basePipeline(in)
	p.Parser.Options["divider"] = ";"
	p.Columns[1].Target = "label"
	p.Storage = config.Storage{
		Kind: "sqlite",
		DB:   config.DBConfig{DSN: dsn, Table: "items", AutoCreateTable: true},
	}

	sum, err := Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Inserted != 3 || sum.FieldErrors != 0 {
		t.Fatalf("summary=%+v", sum)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var n, ids, nullPrices int
	var label string
	err = db.QueryRow(`SELECT COUNT(*), SUM(id), SUM(price IS NULL), MIN(label) FROM items`).Scan(&n, &ids, &nullPrices, &label)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if n != 3 || ids != 6 || nullPrices != 1 || label != "a" {
		t.Fatalf("count=%d ids=%d null_prices=%d min_label=%q", n, ids, nullPrices, label)
	}
}

func TestRun_MaxFieldErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := writeCSV(t, dir, "bad.csv", "id,name\nx,a\ny,b\nz,c\n1,d\n")

	p := basePipeline(in)
	p.Runtime.MaxFieldErrors = 2

	sum, err := Run(context.Background(), p)
	if !errors.Is(err, ErrTooManyFieldErrors) {
		t.Fatalf("err=%v want ErrTooManyFieldErrors", err)
	}
	if sum.FieldErrors != 3 {
		t.Fatalf("field_errors got=%d want=3", sum.FieldErrors)
	}

	p.Runtime.MaxFieldErrors = 0
	sum, err = Run(context.Background(), p)
	if err != nil {
		t.Fatalf("unlimited: %v", err)
	}
	if sum.FieldErrors != 3 || sum.Rows != 1 {
		t.Fatalf("summary=%+v", sum)
	}
}

func TestRun_HeaderModes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	noHeader := writeCSV(t, dir, "nh.csv", "1,a,2.5,true\n2,b,,\n")
	reordered := writeCSV(t, dir, "ro.csv", "a,1\nb,2\n")

	// Without a header, columns are taken in schema order.
	p := basePipeline(noHeader)
	p.Parser.Options["has_header"] = false
	sum, err := Run(context.Background(), p)
	if err != nil {
		t.Fatalf("headerless: %v", err)
	}
	if sum.Rows != 2 || sum.FieldErrors != 0 {
		t.Fatalf("headerless summary=%+v", sum)
	}

	// A configured header line replaces the file's own.
	p = basePipeline(reordered)
	p.Parser.Options["header"] = "name,id"
	p.Parser.Options["has_header"] = false
	sum, err = Run(context.Background(), p)
	if err != nil {
		t.Fatalf("static header: %v", err)
	}
	if sum.Rows != 2 || sum.FieldErrors != 0 {
		t.Fatalf("static header summary=%+v", sum)
	}
}

func TestRun_ListSourceAndEncoding(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// "žluť" in windows-1250.
	writeCSV(t, dir, "cz.csv", "id,name\n1,\x9elu\x9d\n")
	list := writeCSV(t, dir, "inputs.txt", "# inputs\ncz.csv\n")

	p := basePipeline()
	p.Source.File = config.SourceFile{List: list, Encoding: "windows-1250"}
	sum, err := Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Files != 1 || sum.Rows != 1 {
		t.Fatalf("summary=%+v", sum)
	}
}

func TestRun_HTTPSource(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"/a.csv": "id,name\n1,a\n2,b\n",
		"/b.csv": "name,id\nc,3\n",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, body)
	}))
	defer srv.Close()

	p := basePipeline()
	p.Source = config.Source{Kind: "http", HTTP: config.SourceHTTP{URLs: []string{srv.URL + "/a.csv", srv.URL + "/b.csv"}}}
	sum, err := Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Files != 2 || sum.Rows != 3 {
		t.Fatalf("summary=%+v want files=2 rows=3", sum)
	}

	p.Source.HTTP.URLs = []string{srv.URL + "/missing.csv"}
	if _, err := Run(context.Background(), p); err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("err=%v want a 404 error", err)
	}
}

func TestRun_ConfigErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := writeCSV(t, dir, "a.csv", "id\n1\n")

	tests := []struct {
		name   string
		mutate func(p *config.Pipeline)
		want   string
	}{
		{"bad dialect", func(p *config.Pipeline) { p.Parser.Options["divider"] = "\n" }, "parser"},
		{"bad column", func(p *config.Pipeline) { p.Columns[0].Type = "date" }, "schema"},
		{"bad encoding", func(p *config.Pipeline) { p.Source.File.Encoding = "ebcdic" }, "source"},
		{"no inputs", func(p *config.Pipeline) { p.Source.File.Paths = nil }, "no input files"},
		{"column count", func(p *config.Pipeline) { p.Storage.DB.Columns = []string{"x"} }, "storage.db.columns"},
		{"unknown storage", func(p *config.Pipeline) { p.Storage.Kind = "oracle" }, "unsupported storage.kind"},
		{"missing file", func(p *config.Pipeline) { p.Source.File.Paths = []string{filepath.Join(dir, "nope.csv")} }, "nope.csv"},
		{"unknown source", func(p *config.Pipeline) { p.Source.Kind = "s3" }, "unknown source kind"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := basePipeline(in)
			tc.mutate(&p)
			if _, err := Run(context.Background(), p); err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err=%v want containing %q", err, tc.want)
			}
		})
	}
}

// ---- storage failures --------------------------------------------------------

type failingRepo struct {
	mu     sync.Mutex
	calls  int
	failAt int
	closed bool
}

func (f *failingRepo) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls >= f.failAt {
		return 0, errors.New("disk full")
	}
	return int64(len(rows)), nil
}

func (f *failingRepo) Exec(ctx context.Context, sql string) error { return nil }

func (f *failingRepo) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

/*
TestRun_StorageErrorStopsReaders replaces the repository factory, so it must
not run in parallel with other tests of this package that call Run.
*/
func TestRun_StorageErrorStopsReaders(t *testing.T) {
	orig := newRepositoryFn
	defer func() { newRepositoryFn = orig }()

	repo := &failingRepo{failAt: 2}
	newRepositoryFn = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return repo, nil
	}

	var b strings.Builder
	b.WriteString("id,name\n")
	for i := 0; i < 1000; i++ {
		b.WriteString("1,x\n")
	}
	in := writeCSV(t, t.TempDir(), "big.csv", b.String())

	p := basePipeline(in)
	p.Storage.Kind = "fake"
	sum, err := Run(context.Background(), p)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("err=%v want disk full", err)
	}
	if sum.Inserted != 2 || sum.Batches != 1 {
		t.Fatalf("summary=%+v want inserted=2 batches=1", sum)
	}
	if !repo.closed {
		t.Fatalf("repository was not closed")
	}
}

func TestNewRuntimeConfig_EnvOverrides(t *testing.T) {
	t.Setenv("CSVPLAN_BATCH_SIZE", "123")
	t.Setenv("CSVPLAN_READER_WORKERS", "bogus")

	rt := newRuntimeConfig(config.Pipeline{})
	if rt.batchSize != 123 {
		t.Fatalf("batchSize got=%d want=123", rt.batchSize)
	}
	if rt.readerWorkers != 1 {
		t.Fatalf("readerWorkers got=%d want=1", rt.readerWorkers)
	}

	rt = newRuntimeConfig(config.Pipeline{Runtime: config.RuntimeConfig{BatchSize: 7}})
	if rt.batchSize != 7 {
		t.Fatalf("config value should win: got=%d", rt.batchSize)
	}
}
