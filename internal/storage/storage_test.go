package storage

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/ehrlich-b/multipixel/internal/codec"
	"github.com/ehrlich-b/multipixel/internal/pixel"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "room.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestChunkSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	data := []byte{1, 2, 3, 4, 5}

	if err := s.ChunkSave(3, -4, data, CompressionLZ4); err != nil {
		t.Fatalf("ChunkSave: %v", err)
	}
	blob, err := s.ChunkLoad(3, -4)
	if err != nil {
		t.Fatalf("ChunkLoad: %v", err)
	}
	if blob == nil {
		t.Fatal("ChunkLoad returned nil after a save")
	}
	if !bytes.Equal(blob.Data, data) {
		t.Errorf("loaded data = %v, want %v", blob.Data, data)
	}
	if blob.Compression != CompressionLZ4 {
		t.Errorf("loaded compression = %d, want %d", blob.Compression, CompressionLZ4)
	}
}

func TestChunkLoadMissingReturnsNilNoError(t *testing.T) {
	s := openTestStore(t)
	blob, err := s.ChunkLoad(99, 99)
	if err != nil {
		t.Fatalf("ChunkLoad: %v", err)
	}
	if blob != nil {
		t.Fatalf("expected nil blob for a chunk never saved, got %+v", blob)
	}
}

func TestChunkSaveWithinWindowUpdatesInPlace(t *testing.T) {
	s := openTestStore(t)
	if err := s.ChunkSave(0, 0, []byte{1}, CompressionNone); err != nil {
		t.Fatalf("ChunkSave: %v", err)
	}
	if err := s.ChunkSave(0, 0, []byte{2}, CompressionNone); err != nil {
		t.Fatalf("ChunkSave: %v", err)
	}

	var rows int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM chunk_data WHERE x=0 AND y=0`).Scan(&rows); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 1 {
		t.Fatalf("chunk_data has %d rows at (0,0), want 1 (in-place update)", rows)
	}

	blob, err := s.ChunkLoad(0, 0)
	if err != nil {
		t.Fatalf("ChunkLoad: %v", err)
	}
	if !bytes.Equal(blob.Data, []byte{2}) {
		t.Fatalf("loaded data = %v, want latest write [2]", blob.Data)
	}
}

func TestPreviewSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	data := []byte{9, 9, 9}
	if err := s.PreviewSave(1, 2, 3, data); err != nil {
		t.Fatalf("PreviewSave: %v", err)
	}
	got, err := s.PreviewLoad(1, 2, 3)
	if err != nil {
		t.Fatalf("PreviewLoad: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("PreviewLoad = %v, want %v", got, data)
	}
}

func TestPreviewSaveOverwritesPriorTile(t *testing.T) {
	s := openTestStore(t)
	if err := s.PreviewSave(1, 1, 1, []byte{1}); err != nil {
		t.Fatalf("PreviewSave: %v", err)
	}
	if err := s.PreviewSave(1, 1, 1, []byte{2}); err != nil {
		t.Fatalf("PreviewSave: %v", err)
	}
	got, err := s.PreviewLoad(1, 1, 1)
	if err != nil {
		t.Fatalf("PreviewLoad: %v", err)
	}
	if !bytes.Equal(got, []byte{2}) {
		t.Errorf("PreviewLoad = %v, want [2] (latest write)", got)
	}
}

func TestChunkListAllReturnsEveryDistinctPosition(t *testing.T) {
	s := openTestStore(t)
	positions := [][2]int32{{0, 0}, {1, 0}, {0, 1}}
	for _, p := range positions {
		if err := s.ChunkSave(p[0], p[1], []byte{1}, CompressionNone); err != nil {
			t.Fatalf("ChunkSave(%v): %v", p, err)
		}
	}
	got, err := s.ChunkListAll()
	if err != nil {
		t.Fatalf("ChunkListAll: %v", err)
	}
	if len(got) != len(positions) {
		t.Fatalf("ChunkListAll returned %d positions, want %d", len(got), len(positions))
	}
}

func TestMigrateSetsUserVersion(t *testing.T) {
	s := openTestStore(t)
	v, err := s.userVersion()
	if err != nil {
		t.Fatalf("userVersion: %v", err)
	}
	if v != currentSchemaVersion {
		t.Fatalf("userVersion = %d, want %d", v, currentSchemaVersion)
	}
}

func TestMigrateRGBToRGBAConvertsRawAndCompressedRows(t *testing.T) {
	s := openTestStore(t)

	rgb := make([]byte, pixel.ChunkImageSizeRGB)
	for i := range rgb {
		rgb[i] = byte(i)
	}
	if err := s.ChunkSave(1, 1, rgb, CompressionNone); err != nil {
		t.Fatalf("ChunkSave (raw): %v", err)
	}
	if err := s.ChunkSave(2, 2, codec.CompressLZ4(rgb), CompressionLZ4); err != nil {
		t.Fatalf("ChunkSave (compressed): %v", err)
	}

	if err := s.MigrateRGBToRGBA(); err != nil {
		t.Fatalf("MigrateRGBToRGBA: %v", err)
	}

	for _, pos := range []ChunkPos{{X: 1, Y: 1}, {X: 2, Y: 2}} {
		blob, err := s.ChunkLoad(pos.X, pos.Y)
		if err != nil {
			t.Fatalf("ChunkLoad(%v): %v", pos, err)
		}
		if blob.Compression != CompressionLZ4 {
			t.Fatalf("ChunkLoad(%v) compression = %d, want %d", pos, blob.Compression, CompressionLZ4)
		}
		rgba, err := codec.DecompressLZ4(blob.Data, pixel.ChunkImageSizeRGBA)
		if err != nil {
			t.Fatalf("DecompressLZ4(%v): %v", pos, err)
		}
		for i := 0; i+3 < len(rgba); i += 4 {
			j := i / 4 * 3
			if rgba[i] != rgb[j] || rgba[i+1] != rgb[j+1] || rgba[i+2] != rgb[j+2] {
				t.Fatalf("%v: pixel %d RGB mismatch after migration", pos, i/4)
			}
			if rgba[i+3] != 255 {
				t.Fatalf("%v: pixel %d alpha = %d, want 255", pos, i/4, rgba[i+3])
			}
		}
	}
}

func TestMigrateRGBToRGBALeavesAlreadyRGBARowsAlone(t *testing.T) {
	s := openTestStore(t)
	rgba := make([]byte, pixel.ChunkImageSizeRGBA)
	if err := s.ChunkSave(9, 9, codec.CompressLZ4(rgba), CompressionLZ4); err != nil {
		t.Fatalf("ChunkSave: %v", err)
	}

	if err := s.MigrateRGBToRGBA(); err != nil {
		t.Fatalf("MigrateRGBToRGBA: %v", err)
	}

	blob, err := s.ChunkLoad(9, 9)
	if err != nil {
		t.Fatalf("ChunkLoad: %v", err)
	}
	got, err := codec.DecompressLZ4(blob.Data, pixel.ChunkImageSizeRGBA)
	if err != nil {
		t.Fatalf("DecompressLZ4: %v", err)
	}
	if !bytes.Equal(got, rgba) {
		t.Fatal("an already-RGBA row should be left untouched by the migration")
	}
}

func TestCheckpointAndVacuumIntoDoNotError(t *testing.T) {
	s := openTestStore(t)
	if err := s.ChunkSave(0, 0, []byte{1, 2, 3}, CompressionNone); err != nil {
		t.Fatalf("ChunkSave: %v", err)
	}
	if err := s.Checkpoint(); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}
	dst := filepath.Join(t.TempDir(), "backup.db")
	if err := s.VacuumInto(dst); err != nil {
		t.Fatalf("VacuumInto: %v", err)
	}

	copy2, err := Open(dst)
	if err != nil {
		t.Fatalf("Open backup: %v", err)
	}
	defer copy2.Close()
	blob, err := copy2.ChunkLoad(0, 0)
	if err != nil {
		t.Fatalf("ChunkLoad from backup: %v", err)
	}
	if blob == nil || !bytes.Equal(blob.Data, []byte{1, 2, 3}) {
		t.Fatalf("backup chunk data = %+v, want [1 2 3]", blob)
	}
}
