package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"csvplan/internal/datasource/file"
	"csvplan/internal/schema"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "columns[1].type"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline performs static validation of a Pipeline. It does not
// mutate the pipeline; callers decide whether warnings are fatal.
//
//	p, err := config.Load(path)
//	if err != nil { ... }
//	for _, iss := range config.ValidatePipeline(p) {
//	    fmt.Printf("%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
//	}
func ValidatePipeline(p Pipeline) []Issue {
	var l lint
	if strings.TrimSpace(p.Job) == "" {
		l.warnf("job", "job is empty; metrics will be labeled with the default job name")
	}
	l.source(p.Source)
	l.parser(p.Parser)
	l.columns(p.Columns)
	l.storage(p)
	l.runtime(p.Runtime)
	return l.issues
}

// lint collects issues in the order they are found.
type lint struct {
	issues []Issue
}

func (l *lint) add(sev IssueSeverity, path, format string, args ...any) {
	l.issues = append(l.issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
}

func (l *lint) errorf(path, format string, args ...any) { l.add(SeverityError, path, format, args...) }
func (l *lint) warnf(path, format string, args ...any)  { l.add(SeverityWarning, path, format, args...) }

func (l *lint) encoding(path, name string) {
	if _, err := file.LookupEncoding(name); err != nil {
		l.errorf(path, "%v", err)
	}
}

func (l *lint) source(s Source) {
	if strings.TrimSpace(s.Kind) == "" {
		l.errorf("source.kind", "source.kind must not be empty")
		return
	}
	switch s.Kind {
	case "file":
		f := s.File
		if strings.TrimSpace(f.Path) == "" && len(f.Paths) == 0 && strings.TrimSpace(f.List) == "" {
			l.errorf("source.file", "file source requires path, paths, or list")
		}
		for i, p := range f.Paths {
			if strings.TrimSpace(p) == "" {
				l.errorf(fmt.Sprintf("source.file.paths[%d]", i), "path must not be empty")
			}
		}
		l.encoding("source.file.encoding", f.Encoding)
	case "http":
		l.httpSource(s.HTTP)
	default:
		l.errorf("source.kind", "unknown source kind %q", s.Kind)
	}
}

func (l *lint) httpSource(h SourceHTTP) {
	if len(h.URLs) == 0 {
		l.errorf("source.http.urls", "http source requires at least one url")
	}
	for i, raw := range h.URLs {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			l.errorf(fmt.Sprintf("source.http.urls[%d]", i), "%q is not an http(s) url", raw)
		}
	}
	l.encoding("source.http.encoding", h.Encoding)
	if h.TimeoutSeconds < 0 || h.MaxRetries < 0 {
		l.errorf("source.http", "timeout_seconds and max_retries must not be negative")
	}
	if h.InsecureSkipVerify {
		l.warnf("source.http.insecure_skip_verify", "TLS certificate verification is disabled")
	}
}

func (l *lint) parser(p Parser) {
	if strings.TrimSpace(p.Kind) == "" {
		l.errorf("parser.kind", "parser.kind must not be empty")
		return
	}
	if p.Kind != "csv" {
		l.errorf("parser.kind", "unknown parser kind %q", p.Kind)
		return
	}
	if _, err := p.Dialect(); err != nil {
		l.errorf("parser.options", "%v", err)
	}
	if n := p.BufferLength(); n < 0 || (n > 0 && n < 16) {
		l.errorf("parser.options.buffer_length", "buffer_length=%d; use 0 for the default or at least 16", n)
	}
	if p.Header() != "" && p.Options.Bool("has_header", false) {
		l.warnf("parser.options.header", "header is set and has_header is true; the file's header row will be skipped as data")
	}
}

func (l *lint) columns(cols []Column) {
	if len(cols) == 0 {
		l.errorf("columns", "at least one column is required")
		return
	}
	seen := make(map[string]int, len(cols))
	for i, c := range cols {
		base := fmt.Sprintf("columns[%d]", i)
		if strings.TrimSpace(c.Name) == "" {
			l.errorf(base+".name", "column name must not be empty")
		} else if j, dup := seen[c.Name]; dup {
			l.errorf(base+".name", "duplicate column %q (also columns[%d])", c.Name, j)
		} else {
			seen[c.Name] = i
		}
		if _, err := schema.ParseType(c.Type); err != nil {
			l.errorf(base+".type", "%v", err)
		}
		switch c.Trim {
		case "", "both", "leading", "trailing":
		default:
			l.errorf(base+".trim", "trim must be both, leading or trailing, got %q", c.Trim)
		}
	}
}

// storageKinds are the backends shipped in storage/all.
var storageKinds = []string{"none", "postgres", "mssql", "mysql", "sqlite"}

func (l *lint) storage(p Pipeline) {
	s := p.Storage
	if strings.TrimSpace(s.Kind) == "" {
		l.errorf("storage.kind", "storage.kind must not be empty; use \"none\" for a dry run")
		return
	}
	if !slices.Contains(storageKinds, s.Kind) {
		l.warnf("storage.kind", "unknown storage kind %q; ensure a matching backend is registered", s.Kind)
	}
	if s.Kind == "none" {
		return
	}
	if strings.TrimSpace(s.DB.DSN) == "" {
		l.errorf("storage.db.dsn", "storage.db.dsn must not be empty")
	}
	if strings.TrimSpace(s.DB.Table) == "" {
		l.errorf("storage.db.table", "storage.db.table must not be empty")
	}
	if n := len(s.DB.Columns); n > 0 && n != len(p.Columns) {
		l.errorf("storage.db.columns", "storage.db.columns has %d entries but %d columns are decoded", n, len(p.Columns))
	}
}

func (l *lint) runtime(r RuntimeConfig) {
	if r.BatchSize <= 0 {
		l.warnf("runtime.batch_size", "batch_size=%d; the default will be used", r.BatchSize)
	}
	for _, f := range []struct {
		name string
		v    int
	}{
		{"reader_workers", r.ReaderWorkers},
		{"loader_workers", r.LoaderWorkers},
		{"channel_buffer", r.ChannelBuffer},
		{"max_field_errors", r.MaxFieldErrors},
		{"log_field_errors", r.LogFieldErrors},
	} {
		if f.v < 0 {
			l.errorf("runtime."+f.name, "%s must not be negative", f.name)
		}
	}
}
