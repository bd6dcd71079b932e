package pipeline

import (
	"errors"
	"log"
	"sync"
)

// ErrTooManyFieldErrors aborts a run once runtime.max_field_errors rows
// have been rejected.
var ErrTooManyFieldErrors = errors.New("too many rejected rows")

// errAgg counts messages and keeps the first limit of them for the summary.
type errAgg struct {
	mu    sync.Mutex
	limit int
	count int64
	first []string
}

func newErrAgg(limit int) *errAgg {
	return &errAgg{limit: limit}
}

// add records msg and returns the running count.
func (a *errAgg) add(msg string) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.first) < a.limit {
		a.first = append(a.first, msg)
	}
	a.count++
	return a.count
}

func (a *errAgg) total() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

func (a *errAgg) log(what string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.count == 0 {
		return
	}
	log.Printf("%s: %d (showing first %d)", what, a.count, len(a.first))
	for i, s := range a.first {
		log.Printf("  #%03d: %s", i+1, s)
	}
}
