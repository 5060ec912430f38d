package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// MaterializeToDisk issues an atomic copy of the in-memory database to
// targetPath. Uses sqlite's VACUUM INTO to write a complete, defragmented
// snapshot to a temp file in the same directory, then renames it into place
// so that a crash mid-write never leaves a partial target file behind —
// after this call returns, a crash does not lose data.
func (s *Store) MaterializeToDisk(targetPath string) error {
	dir := filepath.Dir(targetPath)
	tmp, err := os.CreateTemp(dir, ".store-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for materialize: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	os.Remove(tmpPath) // VACUUM INTO requires the destination not to exist

	if _, err := s.db.Exec(fmt.Sprintf("VACUUM INTO '%s'", tmpPath)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("vacuum into %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, targetPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename %s to %s: %w", tmpPath, targetPath, err)
	}
	return nil
}
