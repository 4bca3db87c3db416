package storage

import (
	"fmt"

	"github.com/ehrlich-b/multipixel/internal/codec"
	"github.com/ehrlich-b/multipixel/internal/pixel"
)

// migrate brings a freshly-opened database up to currentSchemaVersion. v0
// (a fresh file, user_version=0) creates the schema directly at v1 rather
// than creating a v0 schema and migrating it, since no deployment of this
// server has ever shipped v0 standalone; the v0->v1 *data* migration below
// exists to handle a database file copied in from the original RGB-only
// multipixel schema (SPEC_FULL.md §12).
func (s *Store) migrate() error {
	v, err := s.userVersion()
	if err != nil {
		return fmt.Errorf("storage: read schema version: %w", err)
	}

	switch v {
	case 0:
		if err := s.createSchemaV1(); err != nil {
			return err
		}
		return s.setUserVersion(currentSchemaVersion)
	case currentSchemaVersion:
		return nil
	default:
		return fmt.Errorf("storage: unsupported schema version %d", v)
	}
}

func (s *Store) createSchemaV1() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chunk_data (
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			data BLOB NOT NULL,
			modified INTEGER NOT NULL,
			created INTEGER NOT NULL,
			compression INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunk_data_x ON chunk_data(x)`,
		`CREATE INDEX IF NOT EXISTS idx_chunk_data_y ON chunk_data(y)`,
		`CREATE TABLE IF NOT EXISTS previews (
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			zoom INTEGER NOT NULL,
			data BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_previews_x ON previews(x)`,
		`CREATE INDEX IF NOT EXISTS idx_previews_y ON previews(y)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("storage: schema: %w", err)
		}
	}
	return nil
}

// MigrateRGBToRGBA re-encodes every chunk_data row whose blob is a bare RGB
// buffer (196608 bytes decompressed) into RGBA (alpha=255), matching
// original_source/src/database.rs's v0->v1 chunk migration. It is exposed as
// a standalone operation (rather than folded silently into migrate()) so an
// operator can run it explicitly against a database imported from an older
// deployment; a freshly created database never needs it.
func (s *Store) MigrateRGBToRGBA() error {
	rows, err := s.db.Query(`SELECT rowid, data, compression FROM chunk_data`)
	if err != nil {
		return fmt.Errorf("storage: migrate rgb->rgba: query: %w", err)
	}
	type row struct {
		id          int64
		data        []byte
		compression int
	}
	var pending []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.data, &r.compression); err != nil {
			rows.Close()
			return err
		}
		pending = append(pending, r)
	}
	rows.Close()

	for _, r := range pending {
		raw := r.data
		if r.compression == CompressionLZ4 {
			// Every chunk blob this migration targets is, by definition, a
			// pre-RGBA row: its only possible decompressed shape is the RGB
			// base layer size, never RGBA (a fixed size, not a guess, since
			// chunk tiles are always 256x256).
			decoded, err := codec.DecompressLZ4(r.data, pixel.ChunkImageSizeRGB)
			if err != nil {
				continue // corrupted row; leave as-is, matches DecompressionError policy (§7)
			}
			raw = decoded
		}
		if len(raw) != pixel.ChunkImageSizeRGB {
			continue // already RGBA-shaped or not a plain chunk RGB buffer
		}
		rgba := make([]byte, 0, pixel.ChunkImageSizeRGBA)
		for i := 0; i+2 < len(raw); i += 3 {
			rgba = append(rgba, raw[i], raw[i+1], raw[i+2], 255)
		}
		compressed := codec.CompressLZ4(rgba)
		if _, err := s.db.Exec(`UPDATE chunk_data SET data=?, compression=? WHERE rowid=?`,
			compressed, CompressionLZ4, r.id); err != nil {
			return fmt.Errorf("storage: migrate rgb->rgba: update rowid %d: %w", r.id, err)
		}
	}
	return nil
}
