package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type batchRecorder struct {
	mu      sync.Mutex
	batches [][]string
	ch      chan struct{}
}

func newBatchRecorder() *batchRecorder {
	return &batchRecorder{ch: make(chan struct{}, 16)}
}

func (r *batchRecorder) onImport(_ context.Context, paths []string) {
	r.mu.Lock()
	r.batches = append(r.batches, paths)
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *batchRecorder) wait(t *testing.T) []string {
	t.Helper()
	select {
	case <-r.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for import batch")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches[len(r.batches)-1]
}

func TestWatcher_batchesDebouncedChanges(t *testing.T) {
	dir := t.TempDir()
	rec := newBatchRecorder()
	w := New([]string{dir}, []string{".yaml"}, true, rec.onImport, WithDebounce(100*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	for _, p := range []string{a, b, filepath.Join(dir, "ignored.bin")} {
		if err := os.WriteFile(p, []byte("suppliers: []"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	// rewrite within the debounce window; still one entry per file
	if err := os.WriteFile(a, []byte("suppliers: []\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got := rec.wait(t)
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("batch = %v, want [%s %s]", got, a, b)
	}
}

func TestWatcher_newSubdirectory(t *testing.T) {
	dir := t.TempDir()
	rec := newBatchRecorder()
	w := New([]string{dir}, []string{".xlsx"}, true, rec.onImport, WithDebounce(100*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	sub := filepath.Join(dir, "2026")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	f := filepath.Join(sub, "catalogo.xlsx")
	if err := os.WriteFile(f, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	got := rec.wait(t)
	if len(got) != 1 || got[0] != f {
		t.Errorf("batch = %v, want [%s]", got, f)
	}
}

func TestWatcher_Sync(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	top := filepath.Join(dir, "top.yml")
	nested := filepath.Join(sub, "nested.yml")
	for _, p := range []string{top, nested, filepath.Join(dir, "readme.txt")} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name      string
		recursive bool
		want      []string
	}{
		{"recursive", true, []string{top, nested}},
		{"flat", false, []string{top}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			w := New([]string{dir}, []string{"yml"}, tt.recursive, func(_ context.Context, paths []string) {
				got = paths
			})
			w.Sync(context.Background())
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for _, p := range tt.want {
				found := false
				for _, g := range got {
					found = found || g == p
				}
				if !found {
					t.Errorf("missing %s in %v", p, got)
				}
			}
		})
	}
}

func TestWatcher_Start_createsMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "catalogo")
	w := New([]string{root}, nil, false, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		t.Fatalf("root not created: %v", err)
	}
	w.Stop() // idempotent
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path string
		exts []string
		want bool
	}{
		{"a.yaml", []string{".yaml"}, true},
		{"a.YAML", []string{"yaml"}, true},
		{"a.yml", []string{".yaml"}, false},
		{"a.xlsx", nil, true},
		{"noext", []string{".yaml"}, false},
	}
	for _, tt := range tests {
		if got := MatchExtension(tt.path, tt.exts); got != tt.want {
			t.Errorf("MatchExtension(%q, %v) = %v, want %v", tt.path, tt.exts, got, tt.want)
		}
	}
}
