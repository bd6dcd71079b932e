package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"csvplan/internal/config"
)

const helperEnv = "GO_WANT_MAIN_HELPER"

// TestHelperProcess is a standard sub-process test helper.
// When invoked with GO_WANT_MAIN_HELPER=1, it will:
//  1. Strip arguments up to and including a literal "--" marker
//  2. Set os.Args to the remaining list (the CLI flags)
//  3. Call main()
//  4. Exit(0) on success
func TestHelperProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}

	args := os.Args
	sep := -1
	for i, a := range args {
		if a == "--" {
			sep = i
			break
		}
	}
	if sep >= 0 && sep+1 < len(args) {
		os.Args = append([]string{args[0]}, args[sep+1:]...)
	} else {
		os.Args = []string{args[0]}
	}

	main()
	os.Exit(0)
}

// runMainSubprocess runs the test binary in a separate process,
// invoking TestHelperProcess which calls main() with the provided flags.
func runMainSubprocess(t *testing.T, workdir string, flags ...string) (stdout string, stderr string, err error) {
	t.Helper()

	cmd := exec.Command(os.Args[0], "-test.run=TestHelperProcess", "--")
	cmd.Env = append(os.Environ(), helperEnv+"=1")
	cmd.Args = append(cmd.Args, flags...)
	if workdir != "" {
		cmd.Dir = workdir
	}

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err = cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

func writeCSV(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

// A small CSV with Czech headers to exercise normalization and type inference.
const inspectionsCSV = "" +
	"PČV,Typ,Kód STK,Platnost od,Aktuální,Nájezd\n" +
	"123,A,15,02.01.2024,true,120000\n" +
	"456,B,22,04.01.2024,false,\n"

func TestMain_JSONOutput(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "inspections.csv", inspectionsCSV)

	stdout, stderr, err := runMainSubprocess(t, dir,
		"-file", path,
		"-name", "Technické prohlídky",
		"-json",
	)
	if err != nil {
		t.Fatalf("main returned error: %v, stderr: %s", err, stderr)
	}
	if !json.Valid([]byte(stdout)) {
		t.Fatalf("output is not valid JSON:\n%s", stdout)
	}

	var p config.Pipeline
	if err := json.Unmarshal([]byte(stdout), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Job != "technicke_prohlidky" {
		t.Errorf("job: got=%q want=%q", p.Job, "technicke_prohlidky")
	}
	if p.Storage.Kind != "postgres" || p.Storage.DB.Table != "public.technicke_prohlidky" {
		t.Errorf("storage: got=%s %s", p.Storage.Kind, p.Storage.DB.Table)
	}
	if !p.Storage.DB.AutoCreateTable {
		t.Errorf("expected auto_create_table")
	}

	want := []config.Column{
		{Name: "PČV", Target: "pcv", Type: "int"},
		{Name: "Typ", Target: "typ", Type: "string"},
		{Name: "Kód STK", Target: "kod_stk", Type: "int"},
		{Name: "Platnost od", Target: "platnost_od", Type: "string"},
		{Name: "Aktuální", Target: "aktualni", Type: "boolean"},
		{Name: "Nájezd", Target: "najezd", Type: "int", Optional: true},
	}
	if len(p.Columns) != len(want) {
		t.Fatalf("columns: got=%d want=%d", len(p.Columns), len(want))
	}
	for i := range want {
		if p.Columns[i] != want[i] {
			t.Errorf("columns[%d]: got=%+v want=%+v", i, p.Columns[i], want[i])
		}
	}
}

func TestMain_ColumnTable(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "small.csv", "PČV;Typ;Stav\n123;A;ok\n456;B;ok\n")

	stdout, stderr, err := runMainSubprocess(t, dir, "-file", path, "-divider", ";")
	if err != nil {
		t.Fatalf("main returned error: %v, stderr: %s", err, stderr)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	want := []string{"PČV,pcv,int", "Typ,typ,string", "Stav,stav,string"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines want %d:\n%s", len(lines), len(want), stdout)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got=%q want=%q", i, lines[i], want[i])
		}
	}
	if !strings.Contains(stderr, "sampled 2 rows, 3 columns, table public.small") {
		t.Errorf("unexpected note: %s", stderr)
	}
}

// TestMain_OutIsLoadable verifies the written config passes validation, so a
// probe followed by csvload needs no manual edits for a dry run.
func TestMain_OutIsLoadable(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "semi.csv", "a;b\r\n1;x\r\n2;y\r\n")
	out := filepath.Join(dir, "pipeline.json")

	_, stderr, err := runMainSubprocess(t, dir,
		"-file", path,
		"-divider", ";",
		"-backend", "none",
		"-out", out,
	)
	if err != nil {
		t.Fatalf("main returned error: %v, stderr: %s", err, stderr)
	}

	p, err := config.Load(out)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if issues := config.ValidatePipeline(p); config.HasErrors(issues) {
		t.Fatalf("generated config has errors: %v", issues)
	}
	d, err := p.Parser.Dialect()
	if err != nil {
		t.Fatalf("dialect: %v", err)
	}
	if d.Divider != ';' || !d.CarriageReturn {
		t.Errorf("dialect: got divider=%q crlf=%v want ';' true", d.Divider, d.CarriageReturn)
	}
}

func TestMain_URL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		io.WriteString(w, inspectionsCSV)
	}))
	t.Cleanup(srv.Close)

	stdout, stderr, err := runMainSubprocess(t, t.TempDir(),
		"-file", srv.URL+"/inspections.csv", "-backend", "mssql", "-json")
	if err != nil {
		t.Fatalf("main returned error: %v, stderr: %s", err, stderr)
	}
	var p config.Pipeline
	if err := json.Unmarshal([]byte(stdout), &p); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if p.Source.Kind != "http" || p.Storage.DB.Table != "dbo.inspections" {
		t.Errorf("got source=%s table=%s", p.Source.Kind, p.Storage.DB.Table)
	}
	if len(p.Columns) != 6 {
		t.Errorf("columns: got=%d want=6", len(p.Columns))
	}
}

func TestMain_Errors(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "x.csv", "a,b\n1,2\n")

	tests := []struct {
		name  string
		flags []string
		want  string
	}{
		{"no file", nil, "-file is required"},
		{"missing file", []string{"-file", filepath.Join(dir, "nope.csv")}, "nope.csv"},
		{"bad divider", []string{"-file", path, "-divider", "ab"}, "-divider must be a single byte"},
		{"bad encoding", []string{"-file", path, "-encoding", "klingon"}, "klingon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := runMainSubprocess(t, dir, tt.flags...)
			if err == nil {
				t.Fatalf("expected non-zero exit")
			}
			if !strings.Contains(stderr, tt.want) {
				t.Errorf("stderr: got=%q want substring %q", stderr, tt.want)
			}
		})
	}
}

func TestSingleByte(t *testing.T) {
	t.Parallel()
	if b, err := singleByte("divider", "|"); err != nil || b != '|' {
		t.Errorf("got=%q,%v want='|',nil", b, err)
	}
	if _, err := singleByte("quote", ""); err == nil {
		t.Errorf("expected error for empty value")
	}
}
