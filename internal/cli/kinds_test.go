package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKinds(t *testing.T) {
	t.Parallel()

	k, err := parseKinds("functions,lines")
	require.NoError(t, err)
	assert.True(t, k.Functions)
	assert.True(t, k.Lines)
	assert.False(t, k.Branches)

	k, err = parseKinds("functions")
	require.NoError(t, err)
	assert.True(t, k.Functions)
	assert.False(t, k.Lines)

	k, err = parseKinds("functions, branches")
	require.NoError(t, err)
	assert.True(t, k.Branches)
}

func TestParseKinds_RejectsBranchesOnly(t *testing.T) {
	t.Parallel()

	_, err := parseKinds("branches")
	require.Error(t, err)
}

func TestParseKinds_RejectsUnknownAndEmpty(t *testing.T) {
	t.Parallel()

	_, err := parseKinds("functions,bogus")
	require.Error(t, err)

	_, err = parseKinds("")
	require.Error(t, err)
}

func TestPathRewriter(t *testing.T) {
	t.Parallel()

	rw, err := pathRewriter([]string{"/build/", "/src/"})
	require.NoError(t, err)
	assert.Equal(t, "/src/foo.cpp", rw("/build/foo.cpp"))
	assert.Equal(t, "/other/foo.cpp", rw("/other/foo.cpp"))

	ident, err := pathRewriter(nil)
	require.NoError(t, err)
	assert.Equal(t, "/x", ident("/x"))

	_, err = pathRewriter([]string{"/only-one"})
	require.Error(t, err)
}
