package coverreader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// fakeTool is a tiny script-backed "coverage tool" used to exercise Reader
// without depending on gcov being installed: it ignores its arguments and
// echoes a fixed JSON document per chunk invocation.
func fakeTool(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "faketool.sh")
	writeFile(t, path, "#!/bin/sh\n"+script+"\n")
	require.NoError(t, os.Chmod(path, 0o755))
	return path
}

func TestReader_Read_EmptyPrefixDirYieldsEmptyMap(t *testing.T) {
	t.Parallel()

	r := &Reader{ToolPath: "true", BuildDir: t.TempDir()}
	out, err := r.Read(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestReader_Read_ParsesToolOutputAndCleansArtifacts(t *testing.T) {
	t.Parallel()

	prefixDir := t.TempDir()
	buildDir := t.TempDir()

	gcdaPath := filepath.Join(prefixDir, "foo.gcda")
	writeFile(t, gcdaPath, "fake artifact")
	gcnoTarget := filepath.Join(buildDir, "foo.gcno")
	writeFile(t, gcnoTarget, "fake gcno")

	doc := `{"files":[{"file":"foo.cc","functions":[` +
		`{"name":"f","start_line":1,"start_column":1,"end_line":3,"end_column":1,"execution_count":2}` +
		`],"lines":[{"line_number":2,"count":2}]}]}`
	tool := fakeTool(t, "cat <<'EOF'\n"+doc+"\nEOF")

	r := &Reader{ToolPath: tool, BuildDir: buildDir}
	out, err := r.Read(context.Background(), prefixDir)
	require.NoError(t, err)
	require.Contains(t, out, "foo.cc")
	require.Len(t, out["foo.cc"].Functions, 1)
	require.Equal(t, int64(1), out["foo.cc"].Functions[0].Usage)

	_, err = os.Stat(gcdaPath)
	require.True(t, os.IsNotExist(err), "artifact should be removed after processing")
	_, err = os.Lstat(filepath.Join(prefixDir, "foo.gcno"))
	require.True(t, os.IsNotExist(err), "reconstructed symlink should be removed after processing")
}

func TestReader_Read_ToolFailureSkipsChunk(t *testing.T) {
	t.Parallel()

	prefixDir := t.TempDir()
	writeFile(t, filepath.Join(prefixDir, "foo.gcda"), "fake artifact")
	tool := fakeTool(t, "echo boom 1>&2\nexit 1")

	r := &Reader{ToolPath: tool, BuildDir: t.TempDir()}
	out, err := r.Read(context.Background(), prefixDir)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestReader_Read_MalformedDocumentIsFatal(t *testing.T) {
	t.Parallel()

	prefixDir := t.TempDir()
	writeFile(t, filepath.Join(prefixDir, "foo.gcda"), "fake artifact")
	tool := fakeTool(t, "echo 'not json'")

	r := &Reader{ToolPath: tool, BuildDir: t.TempDir()}
	_, err := r.Read(context.Background(), prefixDir)
	require.Error(t, err)

	var malformed *ErrMalformedDocument
	require.ErrorAs(t, err, &malformed)
}

func TestMergeFileCoverage_MaxAcrossChunks(t *testing.T) {
	t.Parallel()

	dst := map[string]FileCoverage{}
	mergeFileCoverage(dst, FileCoverage{
		Path:      "a.cc",
		Functions: []FuncResult{{Name: "f", StartLine: 1, StartCol: 1, Usage: 0}},
		Lines:     []LineResult{{LineNo: 5, Usage: 0}},
	})
	mergeFileCoverage(dst, FileCoverage{
		Path:      "a.cc",
		Functions: []FuncResult{{Name: "f", StartLine: 1, StartCol: 1, Usage: 1}},
		Lines:     []LineResult{{LineNo: 5, Usage: 1}},
	})

	got := dst["a.cc"]
	require.Len(t, got.Functions, 1)
	require.Equal(t, int64(1), got.Functions[0].Usage)
	require.Len(t, got.Lines, 1)
	require.Equal(t, int64(1), got.Lines[0].Usage)
}
