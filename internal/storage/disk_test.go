package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()

	db := filepath.Join(dir, "licita.db")
	if err := os.WriteFile(db, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(db+"-wal", []byte("wal"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := DiskUsageBytes(db)
	if err != nil {
		t.Fatal(err)
	}
	if got != 8 {
		t.Errorf("database with wal: got %d bytes, want 8", got)
	}

	sub := filepath.Join(dir, "bleve")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "a"), []byte("ab"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = DiskUsageBytes(sub, filepath.Join(dir, "missing"), "", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	if got != 2 {
		t.Errorf("dir with missing/empty paths: got %d bytes, want 2", got)
	}
}

func TestUsage(t *testing.T) {
	dir := t.TempDir()
	cache := filepath.Join(dir, "vectors.bin")
	if err := os.WriteFile(cache, []byte("1234"), 0644); err != nil {
		t.Fatal(err)
	}
	report, total, err := Usage(map[string]string{
		"vector_cache": cache,
		"database":     filepath.Join(dir, "none.db"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if total != 4 || len(report) != 2 {
		t.Fatalf("total=%d report=%+v", total, report)
	}
	if report[0].Name != "database" || report[0].Bytes != 0 || report[1].Bytes != 4 {
		t.Errorf("report = %+v", report)
	}
}
