package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ChunkBlob is a stored chunk snapshot as read back from chunk_data.
type ChunkBlob struct {
	Data        []byte
	Compression int
	Modified    time.Time
	Created     time.Time
}

// ChunkSave persists a chunk snapshot, following the 4-hour snapshot window
// of original_source/src/database.rs: if the most recent row at (x,y) was
// created within snapshotWindow, it is updated in place; otherwise a new
// history row is inserted, preserving the older snapshot.
func (s *Store) ChunkSave(x, y int32, data []byte, compression int) error {
	now := time.Now()

	var id int64
	var createdUnix int64
	err := s.db.QueryRow(
		`SELECT rowid, created FROM chunk_data WHERE x=? AND y=? ORDER BY modified DESC LIMIT 1`,
		x, y).Scan(&id, &createdUnix)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.Exec(
			`INSERT INTO chunk_data (x,y,data,modified,created,compression) VALUES (?,?,?,?,?,?)`,
			x, y, data, now.Unix(), now.Unix(), compression)
		if err != nil {
			return fmt.Errorf("storage: insert chunk (%d,%d): %w", x, y, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("storage: lookup chunk (%d,%d): %w", x, y, err)
	}

	created := time.Unix(createdUnix, 0)
	if now.Sub(created) <= snapshotWindow {
		_, err = s.db.Exec(
			`UPDATE chunk_data SET data=?, modified=?, compression=? WHERE rowid=?`,
			data, now.Unix(), compression, id)
		if err != nil {
			return fmt.Errorf("storage: update chunk (%d,%d): %w", x, y, err)
		}
		return nil
	}

	_, err = s.db.Exec(
		`INSERT INTO chunk_data (x,y,data,modified,created,compression) VALUES (?,?,?,?,?,?)`,
		x, y, data, now.Unix(), now.Unix(), compression)
	if err != nil {
		return fmt.Errorf("storage: insert snapshot chunk (%d,%d): %w", x, y, err)
	}
	return nil
}

// ChunkLoad returns the latest snapshot at (x,y), or (nil, nil) if none
// exists yet.
func (s *Store) ChunkLoad(x, y int32) (*ChunkBlob, error) {
	var b ChunkBlob
	var modifiedUnix, createdUnix int64
	err := s.db.QueryRow(
		`SELECT data, compression, modified, created FROM chunk_data WHERE x=? AND y=? ORDER BY modified DESC LIMIT 1`,
		x, y).Scan(&b.Data, &b.Compression, &modifiedUnix, &createdUnix)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: load chunk (%d,%d): %w", x, y, err)
	}
	b.Modified = time.Unix(modifiedUnix, 0)
	b.Created = time.Unix(createdUnix, 0)
	return &b, nil
}

// ChunkPos is a light-weight coordinate pair used by listing operations that
// don't need the full blob.
type ChunkPos struct {
	X, Y int32
}

// ChunkListAll returns the distinct positions of every chunk ever saved,
// used at startup when preview_system.process_all_at_start is set and by the
// admin process_preview_system command.
func (s *Store) ChunkListAll() ([]ChunkPos, error) {
	rows, err := s.db.Query(`SELECT DISTINCT x, y FROM chunk_data`)
	if err != nil {
		return nil, fmt.Errorf("storage: list chunks: %w", err)
	}
	defer rows.Close()

	var out []ChunkPos
	for rows.Next() {
		var p ChunkPos
		if err := rows.Scan(&p.X, &p.Y); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PreviewSave upserts the preview tile at (x,y,zoom).
func (s *Store) PreviewSave(x, y int32, zoom uint8, data []byte) error {
	_, err := s.db.Exec(
		`DELETE FROM previews WHERE x=? AND y=? AND zoom=?`, x, y, zoom)
	if err != nil {
		return fmt.Errorf("storage: preview save (%d,%d,%d): %w", x, y, zoom, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO previews (x,y,zoom,data) VALUES (?,?,?,?)`, x, y, zoom, data)
	if err != nil {
		return fmt.Errorf("storage: preview save (%d,%d,%d): %w", x, y, zoom, err)
	}
	return nil
}

// PreviewLoad returns the stored preview blob, or nil if absent.
func (s *Store) PreviewLoad(x, y int32, zoom uint8) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(
		`SELECT data FROM previews WHERE x=? AND y=? AND zoom=?`, x, y, zoom).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: preview load (%d,%d,%d): %w", x, y, zoom, err)
	}
	return data, nil
}

// Checkpoint forces a WAL checkpoint, used by internal/maintenance before a
// VACUUM INTO backup snapshot.
func (s *Store) Checkpoint() error {
	_, err := s.db.Exec(`PRAGMA wal_checkpoint(TRUNCATE)`)
	return err
}

// VacuumInto writes a compacted, consistent copy of the database to path.
func (s *Store) VacuumInto(path string) error {
	_, err := s.db.Exec(`VACUUM INTO ?`, path)
	return err
}
