// Command csvprobe samples the head of a CSV file or URL, infers column types and
// prints either a column table or a ready-to-edit csvload pipeline config.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"csvplan/internal/probe"
	"csvplan/internal/scan"

	"github.com/fatih/color"
)

var (
	flagFile     = flag.String("file", "", "CSV file or http(s) URL to sample")
	flagBytes    = flag.Int("bytes", probe.DefaultMaxBytes, "number of bytes to sample from the start of the file")
	flagDivider  = flag.String("divider", ",", "field divider (single byte)")
	flagQuote    = flag.String("quote", `"`, "quote character (single byte)")
	flagEncoding = flag.String("encoding", "", "input encoding, e.g. windows-1250 (default utf-8)")
	flagName     = flag.String("name", "", "job and table name (default: file base name)")
	flagBackend  = flag.String("backend", "postgres", "storage backend: postgres, mssql, mysql, sqlite or none")
	flagJSON     = flag.Bool("json", false, "print a pipeline config instead of the column table")
	flagOut      = flag.String("out", "", "also write the pipeline config to this path")
)

func main() {
	flag.Parse()
	if *flagFile == "" {
		fatalf("-file is required")
	}

	d := scan.DefaultDialect()
	var err error
	if d.Divider, err = singleByte("divider", *flagDivider); err != nil {
		fatalf("%v", err)
	}
	if d.Quote, err = singleByte("quote", *flagQuote); err != nil {
		fatalf("%v", err)
	}
	d.Escape = d.Quote

	p, res, err := probe.Probe(context.Background(), probe.Options{
		Path:     *flagFile,
		MaxBytes: *flagBytes,
		Encoding: *flagEncoding,
		Dialect:  d,
		Name:     *flagName,
		Backend:  *flagBackend,
	})
	if err != nil {
		fatalf("%v", err)
	}

	body, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		fatalf("encode config: %v", err)
	}
	body = append(body, '\n')

	if *flagOut != "" {
		if err := os.WriteFile(*flagOut, body, 0o644); err != nil {
			fatalf("write %s: %v", *flagOut, err)
		}
	}
	if *flagJSON {
		os.Stdout.Write(body)
		return
	}
	printColumns(os.Stdout, res)
	color.New(color.Faint).Fprintf(os.Stderr, "sampled %d rows, %d columns, table %s\n",
		res.Rows, len(res.Columns), p.Storage.DB.Table)
}

// printColumns writes one "header,name,type" line per column.
func printColumns(w io.Writer, res probe.Result) {
	typc := color.New(color.FgCyan).SprintFunc()
	for _, c := range res.Columns {
		line := fmt.Sprintf("%s,%s,%s", c.Header, c.Name, typc(c.Type))
		if c.Optional {
			line += ",optional"
		}
		fmt.Fprintln(w, line)
	}
}

func singleByte(name, s string) (byte, error) {
	if len(s) != 1 {
		return 0, fmt.Errorf("-%s must be a single byte, got %q", name, s)
	}
	return s[0], nil
}

func fatalf(format string, a ...any) {
	color.New(color.FgRed).Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
