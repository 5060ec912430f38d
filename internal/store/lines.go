package store

import "fmt"

// UpsertLines batches (source_id, line_no)-keyed increments, same shape and
// batching discipline as UpsertFunctions.
func (s *Store) UpsertLines(resolver *SourceResolver, batch []LineUpsert) error {
	for start := 0; start < len(batch); start += maxBatchRows {
		end := start + maxBatchRows
		if end > len(batch) {
			end = len(batch)
		}
		if err := s.upsertLinesChunk(resolver, batch[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) upsertLinesChunk(resolver *SourceResolver, chunk []LineUpsert) error {
	if len(chunk) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin lines transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO lines (source_id, line_no, benchmark_usage_count)
		VALUES (?, ?, ?)
		ON CONFLICT(source_id, line_no) DO UPDATE SET
			benchmark_usage_count = benchmark_usage_count + excluded.benchmark_usage_count
	`)
	if err != nil {
		return fmt.Errorf("prepare lines upsert: %w", err)
	}
	defer stmt.Close()

	for _, l := range chunk {
		sourceID, err := resolver.GetOrCreate(l.SourcePath)
		if err != nil {
			return fmt.Errorf("resolve source for line %d: %w", l.LineNo, err)
		}
		if _, err := stmt.Exec(sourceID, l.LineNo, l.Count); err != nil {
			return fmt.Errorf("upsert line %d: %w", l.LineNo, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit lines upsert: %w", err)
	}
	return nil
}
