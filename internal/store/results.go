package store

import (
	"fmt"
	"regexp"
)

var validTableTag = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// validResultTable matches the table names this package generates
// (result_benchmarks_<tag>, evaluation_benchmarks_<tag>_<millis>) and the
// externally produced optimization_result_p0_<NNNN> decision tables it reads
// (see removeconfig.TableName).
var validResultTable = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// CreateResultTable creates result_benchmarks_<tag>, the table one `coverage`
// invocation appends its per-benchmark run results to.
func (s *Store) CreateResultTable(tag string) (string, error) {
	return s.createTaggedTable("result_benchmarks", tag)
}

// CreateEvaluationTable creates evaluation_benchmarks_<tag>_<millis>, the
// table one `evaluate` invocation appends its re-run timings to.
func (s *Store) CreateEvaluationTable(tag string, millis int64) (string, error) {
	return s.createTaggedTable("evaluation_benchmarks", fmt.Sprintf("%s_%d", tag, millis))
}

func (s *Store) createTaggedTable(prefix, tag string) (string, error) {
	if !validTableTag.MatchString(tag) {
		return "", fmt.Errorf("invalid table tag %q: must match [A-Za-z0-9_]+", tag)
	}
	name := prefix + "_" + tag
	if _, err := s.db.Exec(resultTableDDL(name)); err != nil {
		return "", fmt.Errorf("create table %s: %w", name, err)
	}
	return name, nil
}

// InsertRunResult appends one row to the active result table.
func (s *Store) InsertRunResult(table string, r RunResult) error {
	if !validResultTable.MatchString(table) {
		return fmt.Errorf("invalid result table name %q", table)
	}
	query := fmt.Sprintf(
		`INSERT INTO %s (bench_id, time_ms, exit_code, stdout, stderr) VALUES (?, ?, ?, ?, ?)`,
		table,
	)
	if _, err := s.db.Exec(query, r.BenchmarkID, r.TimeMs, r.ExitCode, r.Stdout, r.Stderr); err != nil {
		return fmt.Errorf("insert run result into %s: %w", table, err)
	}
	return nil
}

// ReadDecisions reads the (function_id, use_function) rows from a decision
// table produced by the external optimization step, named per
// removeconfig.TableName.
func (s *Store) ReadDecisions(table string) ([]Decision, error) {
	if !validResultTable.MatchString(table) {
		return nil, fmt.Errorf("invalid decision table name %q", table)
	}
	query := fmt.Sprintf(`SELECT function_id, use_function FROM %s`, table)
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("read decisions from %s: %w", table, err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var d Decision
		var use int
		if err := rows.Scan(&d.FunctionID, &use); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.UseFunction = use != 0
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}
	return out, nil
}

// FunctionByID reads back the function row a Decision refers to, resolving
// its source path for the removal engine.
func (s *Store) FunctionByID(id int64) (sourcePath, name string, startLine, startCol, endLine, endCol int, err error) {
	row := s.db.QueryRow(`
		SELECT sources.path, functions.name, functions.start_line, functions.start_col, functions.end_line, functions.end_col
		FROM functions JOIN sources ON sources.id = functions.source_id
		WHERE functions.id = ?
	`, id)
	if err := row.Scan(&sourcePath, &name, &startLine, &startCol, &endLine, &endCol); err != nil {
		return "", "", 0, 0, 0, 0, fmt.Errorf("lookup function %d: %w", id, err)
	}
	return sourcePath, name, startLine, startCol, endLine, endCol, nil
}
