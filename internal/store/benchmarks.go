package store

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// InsertBenchmarks populates the benchmarks table once at ingest; benchmark
// ids are assigned 1..N in the order given, fixed for the life of the store
// regardless of the concurrency used to process them later.
func (s *Store) InsertBenchmarks(paths []string, prefixOf func(path string) string) ([]Benchmark, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin benchmarks transaction: %w", err)
	}
	defer tx.Rollback()

	sqlStr, _, err := sq.Insert("benchmarks").Columns("id", "path", "prefix").Values(0, "", "").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build benchmarks SQL: %w", err)
	}
	stmt, err := tx.Prepare(sqlStr)
	if err != nil {
		return nil, fmt.Errorf("prepare benchmarks statement: %w", err)
	}
	defer stmt.Close()

	benches := make([]Benchmark, 0, len(paths))
	for i, p := range paths {
		id := int64(i + 1)
		prefix := ""
		if prefixOf != nil {
			prefix = prefixOf(p)
		}
		if _, err := stmt.Exec(id, p, prefix); err != nil {
			return nil, fmt.Errorf("insert benchmark %s: %w", p, err)
		}
		benches = append(benches, Benchmark{ID: id, Path: p, Prefix: prefix})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit benchmarks: %w", err)
	}
	return benches, nil
}

// ListBenchmarks returns every benchmark row, ordered by id. Used by
// `evaluate` to re-run the exec template over a store's existing benchmark set.
func (s *Store) ListBenchmarks() ([]Benchmark, error) {
	rows, err := sq.Select("id", "path", "prefix").From("benchmarks").OrderBy("id").RunWith(s.db).Query()
	if err != nil {
		return nil, fmt.Errorf("list benchmarks: %w", err)
	}
	defer rows.Close()

	var out []Benchmark
	for rows.Next() {
		var b Benchmark
		if err := rows.Scan(&b.ID, &b.Path, &b.Prefix); err != nil {
			return nil, fmt.Errorf("scan benchmark: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate benchmarks: %w", err)
	}
	return out, nil
}
