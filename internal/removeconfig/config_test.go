package removeconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "remove.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
db = "result.db"
p = 0.99
no_change = true
placeholder = 'ABORT("{func_name} in {file_name}");'
prelude = ['#include "abort.h"']

[ignore]
constructors = true
destructors = true
path_prefix = ["/usr/include"]

[replace_path_prefix]
"/build/" = "/src/"

[path."src/foo.cpp".ignore]
functions = ["ns::helper"]
line_ranges = [[10, 20]]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "result.db", cfg.DB)
	assert.Equal(t, 0.99, cfg.P)
	assert.True(t, cfg.NoChange)
	assert.Equal(t, `ABORT("{func_name} in {file_name}");`, cfg.Placeholder)
	assert.Equal(t, []string{`#include "abort.h"`}, cfg.Prelude)
	assert.True(t, cfg.Ignore.Constructors)
	assert.Equal(t, "/src/foo.cpp", cfg.RewritePath("/build/foo.cpp"))
}

func TestLoad_DefaultsPlaceholder(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, "db = \"x.db\"\np = 0.5\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPlaceholder, cfg.Placeholder)
}

func TestLoad_RejectsMissingDB(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "p = 0.5\n"))
	require.Error(t, err)
}

func TestLoad_RejectsBadThreshold(t *testing.T) {
	t.Parallel()

	for _, body := range []string{"db = \"x\"\np = 0.0\n", "db = \"x\"\np = 1.5\n"} {
		_, err := Load(writeConfig(t, body))
		require.Error(t, err)
	}
}

func TestTableName(t *testing.T) {
	t.Parallel()

	name, err := TableName(0.99)
	require.NoError(t, err)
	assert.Equal(t, "optimization_result_p0_9900", name)

	name, err = TableName(1.0)
	require.NoError(t, err)
	assert.Equal(t, "optimization_result_p0_10000", name)

	_, err = TableName(0)
	require.Error(t, err)
	_, err = TableName(1.01)
	require.Error(t, err)
}

func TestIgnoreFile(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Ignore: GlobalIgnore{PathPrefix: []string{"/usr/include"}},
		Path: map[string]PathConfig{
			"gen/lexer.cpp": {Ignore: PathIgnore{All: true}},
		},
	}
	assert.True(t, cfg.IgnoreFile("/usr/include/vector"))
	assert.True(t, cfg.IgnoreFile("gen/lexer.cpp"))
	assert.False(t, cfg.IgnoreFile("src/solver.cpp"))
}

func TestIgnoreFunction(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Ignore: GlobalIgnore{Constructors: true, Destructors: true},
		Path: map[string]PathConfig{
			"src/foo.cpp": {Ignore: PathIgnore{
				Functions:  []string{"ns::helper"},
				LineRanges: [][]int{{10, 20}},
			}},
		},
	}

	assert.True(t, cfg.IgnoreFunction("src/foo.cpp", "Foo::Foo", 1, 2))
	assert.True(t, cfg.IgnoreFunction("src/foo.cpp", "Foo::~Foo", 1, 2))
	assert.True(t, cfg.IgnoreFunction("src/foo.cpp", "ns::helper", 30, 40))
	assert.True(t, cfg.IgnoreFunction("src/foo.cpp", "ns::inner", 12, 18))
	assert.False(t, cfg.IgnoreFunction("src/foo.cpp", "ns::inner", 5, 25))
	assert.False(t, cfg.IgnoreFunction("src/bar.cpp", "ns::helper", 30, 40))
}
