package scan

import (
	"bytes"
	"strings"
	"testing"

	"csvplan/internal/buffer"
)

func buildCSV(n int) []byte {
	var sb strings.Builder
	sb.Grow(n * 64)
	sb.WriteString("pcv,typ,stav,platnost_od,aktualni\n")
	for i := 0; i < n; i++ {
		sb.WriteString("123456,\"E - Evidenční\",Nezjištěno,07.10.2011,True\n")
	}
	return []byte(sb.String())
}

func BenchmarkScanner_Header(b *testing.B) {
	data := buildCSV(50_000)
	sc, _ := New(DefaultDialect())
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		src := buffer.New(bytes.NewReader(data), buffer.DefaultSize)
		rows := 0
		for {
			if _, err := sc.Header(src); err != nil {
				break
			}
			rows++
		}
		if rows != 50_001 {
			b.Fatalf("rows=%d", rows)
		}
	}
}

func BenchmarkScanner_SkipToLineBreak(b *testing.B) {
	data := buildCSV(50_000)
	d := DefaultDialect()
	d.QuotedLinebreaks = false
	sc, _ := New(d)
	b.SetBytes(int64(len(data)))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		src := buffer.New(bytes.NewReader(data), buffer.DefaultSize)
		for {
			if eof, _ := sc.SkipLines(src); eof {
				break
			}
			if _, _, err := sc.Field(src, false); err != nil {
				b.Fatalf("field: %v", err)
			}
			if err := sc.SkipToLineBreak(src); err != nil {
				b.Fatalf("skip: %v", err)
			}
		}
	}
}
