package runner

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTemplate_RequiresExactlyOnePlaceholder(t *testing.T) {
	t.Parallel()

	_, err := ParseTemplate("solver --tlimit 5")
	require.Error(t, err)

	_, err = ParseTemplate("solver {} {}")
	require.Error(t, err)

	tmpl, err := ParseTemplate("solver --tlimit 5 {}")
	require.NoError(t, err)
	assert.Equal(t, []string{"solver", "--tlimit", "5", "bench.smt2"}, tmpl.Build("bench.smt2"))
}

func TestParseTemplate_QuotedWords(t *testing.T) {
	t.Parallel()

	tmpl, err := ParseTemplate(`solver --opt "two words" {}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"solver", "--opt", "two words", "x"}, tmpl.Build("x"))
}

func TestRunner_Run_SuccessAndExitCode(t *testing.T) {
	t.Parallel()

	tmpl, err := ParseTemplate("true {}")
	require.NoError(t, err)
	r := New(tmpl, nil)

	res, err := r.Run(context.Background(), 1, "/dev/null")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, int64(1), res.BenchmarkID)
}

func TestRunner_Run_NonZeroExitCode(t *testing.T) {
	t.Parallel()

	tmpl, err := ParseTemplate("false {}")
	require.NoError(t, err)
	r := New(tmpl, nil)

	res, err := r.Run(context.Background(), 2, "/dev/null")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExitCode)
}

func TestRunner_Run_SetsGCOVPrefixEnv(t *testing.T) {
	t.Parallel()

	tmpl, err := ParseTemplate("sh -c env {}")
	require.NoError(t, err)
	r := New(tmpl, func(benchmarkID int64) string { return "/tmp/prefix-1" })

	res, err := r.Run(context.Background(), 1, "-")
	require.NoError(t, err)
	assert.True(t, strings.Contains(res.Stdout, "GCOV_PREFIX=/tmp/prefix-1"))
}
