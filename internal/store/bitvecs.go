package store

import "fmt"

// InsertFunctionBitvecs bulk-inserts one usage-bitmap blob per function.
// Called once, after the writer's aggregate has been fully flushed, so there
// is exactly one row per (source_id, function_id). A conflicting row has its
// blob replaced rather than accumulated, unlike UpsertFunctions/UpsertLines.
func (s *Store) InsertFunctionBitvecs(resolver *SourceResolver, batch []FunctionBitvec) error {
	for start := 0; start < len(batch); start += maxBatchRows {
		end := start + maxBatchRows
		if end > len(batch) {
			end = len(batch)
		}
		if err := s.insertBitvecsChunk(resolver, batch[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) insertBitvecsChunk(resolver *SourceResolver, chunk []FunctionBitvec) error {
	if len(chunk) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin bitvecs transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO function_bitvecs (source_id, function_id, data)
		VALUES (?, ?, ?)
		ON CONFLICT(source_id, function_id) DO UPDATE SET data = excluded.data
	`)
	if err != nil {
		return fmt.Errorf("prepare bitvecs insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range chunk {
		sourceID, err := resolver.GetOrCreate(b.SourcePath)
		if err != nil {
			return fmt.Errorf("resolve source for bitvec: %w", err)
		}
		functionID, ok, err := s.FunctionID(sourceID, b.StartLine, b.StartCol)
		if err != nil {
			return fmt.Errorf("resolve function id for bitvec: %w", err)
		}
		if !ok {
			return fmt.Errorf("bitvec references unknown function at %s:%d:%d", b.SourcePath, b.StartLine, b.StartCol)
		}
		if _, err := stmt.Exec(sourceID, functionID, b.Data); err != nil {
			return fmt.Errorf("insert bitvec for function %d: %w", functionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bitvecs insert: %w", err)
	}
	return nil
}

// FunctionBitmap reads back the bitmap blob for one function, used by
// the testable-properties suite and diagnostics.
func (s *Store) FunctionBitmap(functionID int64) ([]byte, error) {
	row := s.db.QueryRow(`SELECT data FROM function_bitvecs WHERE function_id = ?`, functionID)
	var data []byte
	if err := row.Scan(&data); err != nil {
		return nil, fmt.Errorf("read bitmap for function %d: %w", functionID, err)
	}
	return data, nil
}
