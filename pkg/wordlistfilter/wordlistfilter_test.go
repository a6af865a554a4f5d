package wordlistfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLengthFilter(t *testing.T) {
	pred, err := Registry.Construct("length", "0,1-2")
	require.NoError(t, err)

	ok, err := pred("")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = pred("ab")
	assert.True(t, ok)

	ok, _ = pred("abc")
	assert.False(t, ok)
}

func TestContainsAlias(t *testing.T) {
	pred, err := Registry.Construct("c", "adm")
	require.NoError(t, err)
	ok, _ := pred("administrator")
	assert.True(t, ok)
	ok, _ = pred("user")
	assert.False(t, ok)
}

func TestStartsEnds(t *testing.T) {
	starts, err := Registry.Construct("starts", "api_")
	require.NoError(t, err)
	ok, _ := starts("api_users")
	assert.True(t, ok)

	ends, err := Registry.Construct("ends", ".bak")
	require.NoError(t, err)
	ok, _ = ends("config.bak")
	assert.True(t, ok)
}

func TestRegexFilter(t *testing.T) {
	pred, err := Registry.Construct("regex", `^\d+$`)
	require.NoError(t, err)
	ok, _ := pred("12345")
	assert.True(t, ok)
	ok, _ = pred("abc")
	assert.False(t, ok)
}

func TestRegexFilterInvalidPattern(t *testing.T) {
	_, err := Registry.Construct("regex", "(unclosed")
	require.Error(t, err)
}
