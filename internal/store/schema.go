package store

import (
	"database/sql"
	"fmt"
)

// createSchema creates the tables required by the coverage pipeline.
// Uses a transaction for atomicity - all schema creation succeeds or fails
// together. Foreign keys are deliberately left disabled (see applyPragmas)
// to keep batched insertion fast; the pipeline's own invariants (append-only
// sources/functions, monotonic counters) substitute for FK enforcement.
func createSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	tables := []struct {
		name string
		ddl  string
	}{
		{"config", createConfigTable},
		{"benchmarks", createBenchmarksTable},
		{"sources", createSourcesTable},
		{"functions", createFunctionsTable},
		{"function_bitvecs", createFunctionBitvecsTable},
		{"lines", createLinesTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("create %s table: %w", table.name, err)
		}
	}

	for i, idx := range schemaIndexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("create index %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}

// applyPragmas tunes the connection for bulk ingest: synchronous writes off
// during the build, temp tables in memory, WAL enabled, a cache of at least
// 10MB, foreign keys left off.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA foreign_keys = OFF",
		"PRAGMA synchronous = OFF",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA journal_mode = WAL",
		"PRAGMA cache_size = -10000", // negative: size in KiB, so 10MB
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}
	return nil
}

const createConfigTable = `
CREATE TABLE config (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
)
`

const createBenchmarksTable = `
CREATE TABLE benchmarks (
    id     INTEGER PRIMARY KEY,
    path   TEXT NOT NULL,
    prefix TEXT NOT NULL DEFAULT ''
)
`

const createSourcesTable = `
CREATE TABLE sources (
    id   INTEGER PRIMARY KEY,
    path TEXT NOT NULL UNIQUE
)
`

const createFunctionsTable = `
CREATE TABLE functions (
    id                   INTEGER PRIMARY KEY,
    source_id            INTEGER NOT NULL,
    name                 TEXT NOT NULL,
    start_line           INTEGER NOT NULL,
    start_col            INTEGER NOT NULL,
    end_line             INTEGER NOT NULL,
    end_col              INTEGER NOT NULL,
    benchmark_usage_count INTEGER NOT NULL DEFAULT 0,
    UNIQUE(source_id, start_line, start_col)
)
`

const createFunctionBitvecsTable = `
CREATE TABLE function_bitvecs (
    source_id   INTEGER NOT NULL,
    function_id INTEGER NOT NULL,
    data        BLOB NOT NULL,
    UNIQUE(source_id, function_id)
)
`

const createLinesTable = `
CREATE TABLE lines (
    id                    INTEGER PRIMARY KEY,
    source_id             INTEGER NOT NULL,
    line_no               INTEGER NOT NULL,
    benchmark_usage_count INTEGER NOT NULL DEFAULT 0,
    UNIQUE(source_id, line_no)
)
`

var schemaIndexes = []string{
	"CREATE INDEX idx_functions_source_id ON functions(source_id)",
	"CREATE INDEX idx_functions_name ON functions(name)",
	"CREATE INDEX idx_lines_source_id ON lines(source_id)",
	"CREATE INDEX idx_function_bitvecs_function_id ON function_bitvecs(function_id)",
}

// resultTableDDL returns the DDL for a per-invocation result table, named
// result_benchmarks_<tag> or evaluation_benchmarks_<tag>_<millis>.
func resultTableDDL(tableName string) string {
	return fmt.Sprintf(`
CREATE TABLE %s (
    id          INTEGER PRIMARY KEY,
    bench_id    INTEGER NOT NULL,
    time_ms     INTEGER NOT NULL,
    exit_code   INTEGER NOT NULL,
    stdout      TEXT NOT NULL,
    stderr      TEXT NOT NULL
)
`, tableName)
}
