package pipeline

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"csvplan/internal/config"
	"csvplan/internal/datasource"
	"csvplan/internal/datasource/file"
	"csvplan/internal/datasource/httpds"
)

// buildSources resolves the configured inputs, in order.
func buildSources(s config.Source) ([]datasource.Source, error) {
	var out []datasource.Source
	switch s.Kind {
	case "", "file":
		enc, err := file.LookupEncoding(s.File.Encoding)
		if err != nil {
			return nil, err
		}
		paths, err := s.File.InputPaths(readListFn)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			out = append(out, file.NewLocal(p).WithEncoding(enc))
		}
	case "http":
		enc, err := file.LookupEncoding(s.HTTP.Encoding)
		if err != nil {
			return nil, err
		}
		c := newHTTPClient(s.HTTP)
		for _, u := range s.HTTP.URLs {
			out = append(out, httpds.NewRemote(c, strings.TrimSpace(u)).WithEncoding(enc))
		}
	default:
		return nil, fmt.Errorf("unknown source kind %q", s.Kind)
	}
	return out, nil
}

func newHTTPClient(h config.SourceHTTP) *httpds.Client {
	hdr := make(http.Header, len(h.Headers))
	for k, v := range h.Headers {
		hdr.Set(k, v)
	}
	return httpds.NewClient(httpds.Config{
		Timeout:            time.Duration(h.TimeoutSeconds) * time.Second,
		MaxRetries:         h.MaxRetries,
		InsecureSkipVerify: h.InsecureSkipVerify,
		Header:             hdr,
	})
}
