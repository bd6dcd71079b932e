// Package config defines the JSON-serializable pipeline model used by the
// csvload command. Field names mirror the JSON keys of pipeline files, and
// decoding is done with the standard library plus a small Options helper for
// typed access to parser settings.
//
// Example (trimmed):
//
//	{
//	  "job":     "quotes",
//	  "source":  { "kind": "file", "file": { "path": "data/quotes.csv", "encoding": "utf-8" } },
//	  "parser":  { "kind": "csv", "options": { "divider": ";", "carriage_return": true } },
//	  "columns": [
//	    { "name": "symbol", "type": "string", "trim": "both" },
//	    { "name": "bid", "type": "double", "optional": true }
//	  ],
//	  "storage": { "kind": "postgres", "db": { "dsn": "...", "table": "public.quotes" } }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the run for logs and metrics labels.
	Job string `json:"job"`

	// Source describes where input data comes from.
	Source Source `json:"source"`

	// Parser configures the CSV dialect and decoder options.
	Parser Parser `json:"parser"`

	// Columns lists the CSV columns to decode, in the order they are written
	// to storage. Columns absent from a file's header are not decoded.
	Columns []Column `json:"columns"`

	Storage Storage       `json:"storage"`
	Runtime RuntimeConfig `json:"runtime"`
}

// RuntimeConfig controls concurrency, batching, and channel buffer sizes.
type RuntimeConfig struct {
	ReaderWorkers int `json:"reader_workers"`
	LoaderWorkers int `json:"loader_workers"`
	BatchSize     int `json:"batch_size"`
	ChannelBuffer int `json:"channel_buffer"`

	// MaxFieldErrors aborts the run once more rows than this failed to
	// decode. Zero means no limit.
	MaxFieldErrors int `json:"max_field_errors"`

	// LogFieldErrors is how many rejected rows are logged per file.
	LogFieldErrors int `json:"log_field_errors"`
}

// Source identifies the data source.
type Source struct {
	// Kind selects the source implementation: "file" or "http".
	Kind string `json:"kind"`

	// File carries options for the "file" source kind.
	File SourceFile `json:"file"`

	// HTTP carries options for the "http" source kind.
	HTTP SourceHTTP `json:"http"`
}

// SourceFile holds configuration for the "file" source kind. Path, Paths and
// List are combined; every named file is decoded with the same plan cache.
type SourceFile struct {
	Path  string   `json:"path"`
	Paths []string `json:"paths"`

	// List names a text file with one input path per line.
	List string `json:"list"`

	// Encoding is the character set of the input files (e.g. "utf-8",
	// "utf-16le", "windows-1250"). Empty means UTF-8.
	Encoding string `json:"encoding"`
}

// SourceHTTP holds configuration for the "http" source kind. Every URL is
// downloaded and decoded as it streams in.
type SourceHTTP struct {
	URLs []string `json:"urls"`

	// Encoding is the character set of the responses. Empty means UTF-8.
	Encoding string `json:"encoding"`

	// TimeoutSeconds bounds each download. Zero means 30s.
	TimeoutSeconds int `json:"timeout_seconds"`

	// MaxRetries is the number of retries on transport errors, 429 and 5xx.
	MaxRetries int `json:"max_retries"`

	InsecureSkipVerify bool              `json:"insecure_skip_verify"`
	Headers            map[string]string `json:"headers"`
}

// Parser selects how raw bytes are split into rows and fields.
type Parser struct {
	// Kind selects the parser implementation. Current value: "csv".
	Kind string `json:"kind"`

	// Options is a free-form map. For CSV the keys are:
	//   divider, quote, escape (one-byte strings),
	//   carriage_return, skip_comments, skip_empty_lines,
	//   quoted_linebreaks, has_header (bool),
	//   header (string, a header line used instead of the file's own),
	//   buffer_length (int)
	Options Options `json:"options"`
}

// Column maps one CSV column to a destination column.
type Column struct {
	// Name is the header name in the CSV file.
	Name string `json:"name"`

	// Target is the destination column name. Defaults to Name.
	Target string `json:"target"`

	// Type is one of string, int, long, double, boolean.
	Type string `json:"type"`

	// Optional allows empty fields; they are stored as NULL.
	Optional bool `json:"optional"`

	// Trim is "", "both", "leading" or "trailing".
	Trim string `json:"trim"`
}

// TargetName returns Target, or Name when Target is empty.
func (c Column) TargetName() string {
	if c.Target != "" {
		return c.Target
	}
	return c.Name
}

// Storage selects the sink used to persist decoded rows.
type Storage struct {
	// Kind selects the storage implementation: "postgres", "sqlite",
	// "mssql", "mysql", or "none" for a dry run.
	Kind string `json:"kind"`

	DB DBConfig `json:"db"`
}

// DBConfig configures the DB sink.
type DBConfig struct {
	// DSN is the driver connection string.
	DSN string `json:"dsn"`

	// Table is the destination table name (e.g., "public.my_table").
	Table string `json:"table"`

	// Columns enumerates the destination columns. When empty the targets of
	// Pipeline.Columns are used.
	Columns []string `json:"columns"`

	// AutoCreateTable creates the table from the column types when missing.
	AutoCreateTable bool `json:"auto_create_table"`
}

// Load reads and decodes a pipeline file.
func Load(path string) (Pipeline, error) {
	var p Pipeline
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("decode config %s: %w", path, err)
	}
	return p, nil
}

// StorageColumns returns the destination columns for the DB sink.
func (p Pipeline) StorageColumns() []string {
	if len(p.Storage.DB.Columns) > 0 {
		return p.Storage.DB.Columns
	}
	out := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		out[i] = c.TargetName()
	}
	return out
}

// InputPaths returns every input file named by the source, in order.
// The List file is read with readList.
func (s SourceFile) InputPaths(readList func(string) ([]string, error)) ([]string, error) {
	var out []string
	if s.Path != "" {
		out = append(out, s.Path)
	}
	out = append(out, s.Paths...)
	if s.List != "" {
		more, err := readList(s.List)
		if err != nil {
			return nil, fmt.Errorf("read list %s: %w", s.List, err)
		}
		out = append(out, more...)
	}
	return out, nil
}

// Options is a small helper to fetch typed values from arbitrary JSON maps.
// It performs only minimal type coercion and returns the provided default
// when a key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers decode as float64,
// so both float64 and int are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Byte returns the single byte of a one-byte string value for key. ok is
// false when the key is present but not a one-byte string; def is returned
// with ok true when the key is absent.
func (o Options) Byte(key string, def byte) (b byte, ok bool) {
	v, present := o[key]
	if !present {
		return def, true
	}
	s, isString := v.(string)
	if !isString || len(s) != 1 {
		return def, false
	}
	return s[0], true
}

// StringSlice returns a []string for key when the value is an array of
// strings. Returns nil when the key is missing or the value is not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// UnmarshalJSON makes a missing or null "options" object decode to a
// non-nil, empty Options map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
