package strarray

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"csvplan/internal/buffer"
	"csvplan/internal/decoder"
	"csvplan/internal/scan"
)

func readAll(t *testing.T, r *Reader) [][]string {
	t.Helper()
	var out [][]string
	for {
		row, err := r.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("row %d: %v", len(out)+1, err)
		}
		out = append(out, row)
	}
}

func TestBuild_CountsColumnsOnFirstLine(t *testing.T) {
	t.Parallel()

	r, err := Build(strings.NewReader("a,\"b,\nb\",c\n1,2,3,4\nx,y,z"), scan.DefaultDialect(), Options{BufferLength: 16})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if r.Width() != 3 {
		t.Fatalf("width=%d want=3", r.Width())
	}
	got := readAll(t, r)
	want := [][]string{{"a", "b,\nb", "c"}, {"1", "2", "3,4"}, {"x", "y", "z"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got=%q want=%q", got, want)
	}
}

func TestBuild_EmptyStream(t *testing.T) {
	t.Parallel()

	r, err := Build(strings.NewReader(""), scan.DefaultDialect(), Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := r.Next(); err != io.EOF {
			t.Fatalf("err=%v want EOF", err)
		}
	}
}

func TestBuild_RejectsLineSkipping(t *testing.T) {
	t.Parallel()

	for _, d := range []scan.Dialect{
		{SkipComments: true},
		{SkipEmptyLines: true},
	} {
		if _, err := Build(strings.NewReader("a\n"), d, Options{}); !errors.Is(err, ErrUnsupported) {
			t.Fatalf("dialect %+v: err=%v want=%v", d, err, ErrUnsupported)
		}
	}
}

func TestBuild_FirstLineTooLong(t *testing.T) {
	t.Parallel()

	_, err := Build(strings.NewReader(strings.Repeat("x,", 20)+"\n"), scan.DefaultDialect(), Options{BufferLength: 8})
	if !errors.Is(err, buffer.ErrBufferFull) {
		t.Fatalf("err=%v want=%v", err, buffer.ErrBufferFull)
	}
}

func TestReader_ShortRowIsTerminal(t *testing.T) {
	t.Parallel()

	r, err := Build(strings.NewReader("a,b,c\n1,2\n3,4,5\n"), scan.DefaultDialect(), Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := r.Next(); err != nil {
		t.Fatalf("first row: %v", err)
	}
	_, err = r.Next()
	var de *decoder.DecodeError
	if !errors.As(err, &de) || !errors.Is(err, scan.ErrShortRow) || de.Column != 1 {
		t.Fatalf("err=%v", err)
	}
	if _, again := r.Next(); again != err {
		t.Fatalf("error not sticky: %v", again)
	}
}

func TestReader_ColumnIndexes(t *testing.T) {
	t.Parallel()

	d := scan.DefaultDialect()
	d.Divider = ';'
	d.CarriageReturn = true
	r, err := Build(strings.NewReader("id;name;skip;city\r\n1;Ann;x;Oslo\r\n2;Bob;y;Rome\r\n"), d, Options{
		ColumnIndexes: map[string]int{"city": 0, "id": 2},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if h := r.Header(); !reflect.DeepEqual(h, []string{"id", "name", "skip", "city"}) {
		t.Fatalf("header=%q", h)
	}
	got := readAll(t, r)
	want := [][]string{{"Oslo", "", "1"}, {"Rome", "", "2"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got=%q want=%q", got, want)
	}
}

func TestReader_ColumnIndexesIgnoreBOM(t *testing.T) {
	t.Parallel()

	r, err := Build(strings.NewReader("\uFEFFid,city\n1,Oslo\n"), scan.DefaultDialect(), Options{
		ColumnIndexes: map[string]int{"id": 0, "city": 1},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if h := r.Header(); !reflect.DeepEqual(h, []string{"id", "city"}) {
		t.Fatalf("header=%q", h)
	}
	got := readAll(t, r)
	if want := [][]string{{"1", "Oslo"}}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got=%q want=%q", got, want)
	}
}
