package maintenance

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/pgzip"
)

func TestGzipFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "room.db")
	want := bytes.Repeat([]byte("multipixel chunk bytes "), 4096)
	if err := os.WriteFile(src, want, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	dst := filepath.Join(dir, "room.db.gz")
	if err := gzipFile(src, dst); err != nil {
		t.Fatalf("gzipFile: %v", err)
	}

	f, err := os.Open(dst)
	if err != nil {
		t.Fatalf("Open compressed: %v", err)
	}
	defer f.Close()

	zr, err := pgzip.NewReader(f)
	if err != nil {
		t.Fatalf("pgzip.NewReader: %v", err)
	}
	defer zr.Close()

	got, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round-tripped content mismatch: got %d bytes, want %d bytes", len(got), len(want))
	}
}

func TestGzipFileMissingSourceErrors(t *testing.T) {
	dir := t.TempDir()
	err := gzipFile(filepath.Join(dir, "does-not-exist.db"), filepath.Join(dir, "out.gz"))
	if err == nil {
		t.Fatal("gzipFile with a missing source should error")
	}
}
