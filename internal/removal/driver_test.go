package removal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covpare/pare/internal/removeconfig"
	"github.com/covpare/pare/internal/store"
)

// seedStore builds an in-memory store holding one source file with two
// functions and a p=0.99 decision table marking both unused, the shape the
// external optimization step leaves behind.
func seedStore(t *testing.T, sourcePath string) *store.Store {
	t.Helper()

	st, err := store.OpenForIngest(filepath.Join(t.TempDir(), "never-materialized.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	db := st.DB()
	_, err = db.Exec(`INSERT INTO sources (id, path) VALUES (1, ?)`, sourcePath)
	require.NoError(t, err)
	_, err = db.Exec(`
		INSERT INTO functions (id, source_id, name, start_line, start_col, end_line, end_col, benchmark_usage_count)
		VALUES (1, 1, 'unused_a', 1, 12, 3, 0, 0),
		       (2, 1, 'keep_me', 5, 11, 7, 0, 40)
	`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE optimization_result_p0_9900 (function_id INTEGER, use_function INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO optimization_result_p0_9900 VALUES (1, 0), (2, 1)`)
	require.NoError(t, err)
	return st
}

const driverSrc = "int unused_a() {\n" +
	"    do_thing();\n" +
	"}\n" +
	"\n" +
	"int keep_me() {\n" +
	"    return 7;\n" +
	"}\n"

func TestEngine_Run_RemovesOnlyUnusedFunctions(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "solver.cpp")
	require.NoError(t, os.WriteFile(src, []byte(driverSrc), 0o644))

	st := seedStore(t, src)
	cfg := &removeconfig.Config{P: 0.99, Placeholder: `UNREACHABLE("{func_name}");`}

	stats, err := NewEngine(cfg, st).Run()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FunctionsRemoved)
	assert.Zero(t, stats.FunctionsMissed)

	out, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Contains(t, string(out), "int unused_a() {\n"+`UNREACHABLE("unused_a");}`)
	assert.Contains(t, string(out), "int keep_me() {\n    return 7;\n}")
}

// A path-rewrite rule maps the reported build-tree path onto the real
// source location before the detector opens the file.
func TestEngine_Run_AppliesPathRewrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "solver.cpp")
	require.NoError(t, os.WriteFile(src, []byte(driverSrc), 0o644))

	st := seedStore(t, "/build/solver.cpp")
	cfg := &removeconfig.Config{
		P:                 0.99,
		Placeholder:       "X",
		ReplacePathPrefix: map[string]string{"/build/": dir + "/"},
	}

	stats, err := NewEngine(cfg, st).Run()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FunctionsRemoved)

	out, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Contains(t, string(out), "int unused_a() {\nX}")
}

// A file matching an ignore.path_prefix rule is skipped entirely and
// contributes nothing to the removed counts.
func TestEngine_Run_IgnoredPathPrefixSkipsFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "solver.cpp")
	require.NoError(t, os.WriteFile(src, []byte(driverSrc), 0o644))

	st := seedStore(t, src)
	cfg := &removeconfig.Config{
		P:           0.99,
		Placeholder: "X",
		Ignore:      removeconfig.GlobalIgnore{PathPrefix: []string{dir}},
	}

	stats, err := NewEngine(cfg, st).Run()
	require.NoError(t, err)
	assert.Zero(t, stats.FunctionsRemoved)

	out, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, driverSrc, string(out))
}

func TestEngine_Run_ReconciliationMissIsRecordedNotFatal(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "solver.cpp")
	require.NoError(t, os.WriteFile(src, []byte(driverSrc), 0o644))

	st := seedStore(t, src)
	// Point the reported lines far away from any detected body and use a name
	// the detector never saw, so both lookup strategies miss.
	_, err := st.DB().Exec(`UPDATE functions SET name = 'ghost', start_line = 90, end_line = 99 WHERE id = 1`)
	require.NoError(t, err)

	cfg := &removeconfig.Config{P: 0.99, Placeholder: "X"}
	stats, err := NewEngine(cfg, st).Run()
	require.NoError(t, err)
	assert.Zero(t, stats.FunctionsRemoved)
	assert.Equal(t, 1, stats.FunctionsMissed)
	assert.Equal(t, []string{"ghost"}, stats.PerFile[src].Missed)
}

func TestEngine_Run_NoChangeLeavesFileAlone(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "solver.cpp")
	require.NoError(t, os.WriteFile(src, []byte(driverSrc), 0o644))

	st := seedStore(t, src)
	cfg := &removeconfig.Config{P: 0.99, Placeholder: "X", NoChange: true}

	stats, err := NewEngine(cfg, st).Run()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FunctionsRemoved)

	out, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, driverSrc, string(out))
}
