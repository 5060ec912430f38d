package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// maxBatchRows caps how many rows go into one statement-group transaction.
const maxBatchRows = 400

// UpsertFunctions batches (source_id, start_line, start_col)-keyed inserts,
// adding Count to any existing benchmark_usage_count rather than overwriting
// it. resolver supplies source ids lazily for paths not yet seen.
func (s *Store) UpsertFunctions(resolver *SourceResolver, batch []FunctionUpsert) error {
	for start := 0; start < len(batch); start += maxBatchRows {
		end := start + maxBatchRows
		if end > len(batch) {
			end = len(batch)
		}
		if err := s.upsertFunctionsChunk(resolver, batch[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) upsertFunctionsChunk(resolver *SourceResolver, chunk []FunctionUpsert) error {
	if len(chunk) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin functions transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO functions (source_id, name, start_line, start_col, end_line, end_col, benchmark_usage_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, start_line, start_col) DO UPDATE SET
			benchmark_usage_count = benchmark_usage_count + excluded.benchmark_usage_count,
			end_line = excluded.end_line,
			end_col = excluded.end_col,
			name = excluded.name
	`)
	if err != nil {
		return fmt.Errorf("prepare functions upsert: %w", err)
	}
	defer stmt.Close()

	for _, f := range chunk {
		sourceID, err := resolver.GetOrCreate(f.SourcePath)
		if err != nil {
			return fmt.Errorf("resolve source for function %s: %w", f.Name, err)
		}
		if _, err := stmt.Exec(sourceID, f.Name, f.StartLine, f.StartCol, f.EndLine, f.EndCol, f.Count); err != nil {
			return fmt.Errorf("upsert function %s: %w", f.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit functions upsert: %w", err)
	}
	return nil
}

// FunctionID looks up the id assigned to a function by its unique key.
func (s *Store) FunctionID(sourceID int64, startLine, startCol int) (int64, bool, error) {
	row := s.db.QueryRow(
		`SELECT id FROM functions WHERE source_id = ? AND start_line = ? AND start_col = ?`,
		sourceID, startLine, startCol,
	)
	var id int64
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("lookup function id: %w", err)
	}
	return id, true, nil
}
