// Command csvcut selects columns from a CSV file by header name and writes
// them, in the requested order, to stdout.
package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"csvplan/internal/datasource/file"
	"csvplan/internal/scan"
	"csvplan/internal/strarray"

	"github.com/fatih/color"
)

type options struct {
	columns  []string
	dialect  scan.Dialect
	bufLen   int
	noHeader bool
	strict   bool
}

func main() {
	var (
		path     = flag.String("file", "", "CSV file to read (default stdin)")
		columns  = flag.String("columns", "", "comma separated header names to keep, in output order")
		divider  = flag.String("divider", ",", "field divider (single byte), also used for output")
		encName  = flag.String("encoding", "", "input encoding (default utf-8)")
		crlf     = flag.Bool("crlf", false, "input rows end with \\r\\n")
		bufLen   = flag.Int("buffer", 0, "longest field in bytes (default 64KiB)")
		noHeader = flag.Bool("no-header", false, "do not write the header row")
		strict   = flag.Bool("strict", false, "fail when a requested column is missing")
	)
	flag.Parse()

	opt := options{
		columns:  splitColumns(*columns),
		dialect:  scan.DefaultDialect(),
		bufLen:   *bufLen,
		noHeader: *noHeader,
		strict:   *strict,
	}
	if len(opt.columns) == 0 {
		fatalf("-columns is required")
	}
	if len(*divider) != 1 {
		fatalf("-divider must be a single byte, got %q", *divider)
	}
	opt.dialect.Divider = (*divider)[0]
	opt.dialect.CarriageReturn = *crlf

	enc, err := file.LookupEncoding(*encName)
	if err != nil {
		fatalf("%v", err)
	}
	var in io.Reader = file.Decode(os.Stdin, enc)
	if *path != "" {
		rc, err := file.NewLocal(*path).WithEncoding(enc).Open(context.Background())
		if err != nil {
			fatalf("%v", err)
		}
		defer rc.Close()
		in = rc
	}

	out := bufio.NewWriter(os.Stdout)
	err = cut(in, out, os.Stderr, opt)
	if ferr := out.Flush(); err == nil {
		err = ferr
	}
	if err != nil {
		fatalf("%v", err)
	}
}

// cut copies the selected columns of every row in r to w. Requested names
// absent from the header produce empty fields and a warning on warn.
func cut(r io.Reader, w, warn io.Writer, opt options) error {
	indexes := make(map[string]int, len(opt.columns))
	for i, c := range opt.columns {
		if _, dup := indexes[c]; dup {
			return fmt.Errorf("column %q requested twice", c)
		}
		indexes[c] = i
	}

	rd, err := strarray.Build(r, opt.dialect, strarray.Options{
		BufferLength:  opt.bufLen,
		ColumnIndexes: indexes,
	})
	if err != nil {
		return err
	}
	if missing := missingColumns(rd.Header(), opt.columns); len(missing) > 0 {
		if opt.strict {
			return fmt.Errorf("columns not in header: %s", strings.Join(missing, ", "))
		}
		color.New(color.FgYellow).Fprintf(warn, "warning: columns not in header: %s\n", strings.Join(missing, ", "))
	}

	cw := csv.NewWriter(w)
	cw.Comma = rune(opt.dialect.Divider)
	if !opt.noHeader {
		if err := cw.Write(opt.columns); err != nil {
			return err
		}
	}

	width := len(opt.columns)
	for {
		rec, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		// Projection width stops at the last matched column.
		for len(rec) < width {
			rec = append(rec, "")
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func missingColumns(header, want []string) []string {
	have := make(map[string]struct{}, len(header))
	for _, h := range header {
		have[h] = struct{}{}
	}
	var missing []string
	for _, c := range want {
		if _, ok := have[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

func splitColumns(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func fatalf(format string, a ...any) {
	color.New(color.FgRed).Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
