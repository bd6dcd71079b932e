package storage

import (
	"context"
	"errors"
	"slices"
	"testing"
)

type fakeRepo struct {
	closed bool
	execs  []string
}

func (f *fakeRepo) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	return int64(len(rows)), nil
}

func (f *fakeRepo) Exec(ctx context.Context, sql string) error {
	f.execs = append(f.execs, sql)
	return nil
}

func (f *fakeRepo) Close() { f.closed = true }

func TestRegistry(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var gotCfg Config
	Register("registry-ok", func(ctx context.Context, cfg Config) (Repository, error) {
		gotCfg = cfg
		return &fakeRepo{}, nil
	})
	Register("registry-err", func(context.Context, Config) (Repository, error) { return nil, boom })

	tests := []struct {
		name    string
		kind    string
		wantErr error
		wantMsg string
	}{
		{"registered", "registry-ok", nil, ""},
		{"factory error", "registry-err", boom, ""},
		{"unknown", "oracle", nil, "unsupported storage.kind=oracle"},
	}
	for _, tt := range tests {
		repo, err := New(context.Background(), Config{Kind: tt.kind, Table: "t", Columns: []string{"a"}})
		switch {
		case tt.wantErr != nil:
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("%s: got=%v want=%v", tt.name, err, tt.wantErr)
			}
		case tt.wantMsg != "":
			if err == nil || err.Error() != tt.wantMsg {
				t.Errorf("%s: got=%v want=%q", tt.name, err, tt.wantMsg)
			}
		default:
			if err != nil || repo == nil {
				t.Fatalf("%s: repo=%v err=%v", tt.name, repo, err)
			}
			if gotCfg.Table != "t" || !slices.Equal(gotCfg.Columns, []string{"a"}) {
				t.Errorf("%s: factory got cfg=%+v", tt.name, gotCfg)
			}
		}
	}

	kinds := ListKinds()
	if !slices.Contains(kinds, "registry-ok") || !slices.Contains(kinds, "none") {
		t.Errorf("ListKinds=%v", kinds)
	}
	if !slices.IsSorted(kinds) {
		t.Errorf("ListKinds not sorted: %v", kinds)
	}
	kinds[0] = "mutated"
	if slices.Contains(ListKinds(), "mutated") {
		t.Errorf("ListKinds must return a copy")
	}
}

func TestRegister_Replaces(t *testing.T) {
	t.Parallel()

	var calls []string
	Register("replace", func(context.Context, Config) (Repository, error) {
		calls = append(calls, "first")
		return &fakeRepo{}, nil
	})
	Register("replace", func(context.Context, Config) (Repository, error) {
		calls = append(calls, "second")
		return &fakeRepo{}, nil
	})
	if _, err := New(context.Background(), Config{Kind: "replace"}); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(calls, []string{"second"}) {
		t.Errorf("got=%v want=[second]", calls)
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	repo, err := New(context.Background(), Config{Kind: "none"})
	if err != nil {
		t.Fatalf("New(none): %v", err)
	}
	defer repo.Close()

	n, err := repo.CopyFrom(context.Background(), []string{"a"}, [][]any{{int32(1)}, {nil}, {"x"}})
	if err != nil || n != 3 {
		t.Errorf("CopyFrom: got=%d,%v want=3,nil", n, err)
	}
	if err := repo.Exec(context.Background(), "CREATE TABLE x (a INTEGER)"); err != nil {
		t.Errorf("Exec: %v", err)
	}
}

func TestWithClose(t *testing.T) {
	t.Parallel()

	calls := 0
	w := &fakeRepo{}
	repo := WithClose(w, func() { calls++ })
	if err := repo.Exec(context.Background(), "SELECT 1"); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	repo.Close()
	repo.Close()
	if calls != 1 {
		t.Errorf("closeFn calls: got=%d want=1", calls)
	}
	if !slices.Equal(w.execs, []string{"SELECT 1"}) {
		t.Errorf("execs: got=%v", w.execs)
	}

	WithClose(w, nil).Close()
}
