package wordlist

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandGlobSourcesPlainPathPassesThrough(t *testing.T) {
	out, err := ExpandGlobSources([]Source{{Path: "words.txt", Key: "$"}})
	require.NoError(t, err)
	assert.Equal(t, []Source{{Path: "words.txt", Key: "$"}}, out)
}

func TestExpandGlobSourcesExpandsMatches(t *testing.T) {
	dir := t.TempDir()
	writeWordlist(t, dir, "a.txt", "x\n")
	writeWordlist(t, dir, "b.txt", "y\n")

	out, err := ExpandGlobSources([]Source{{Path: filepath.Join(dir, "*.txt"), Key: "$"}})
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, src := range out {
		assert.Equal(t, "$", src.Key)
	}
}

func TestExpandGlobSourcesNoMatchIsError(t *testing.T) {
	dir := t.TempDir()
	_, err := ExpandGlobSources([]Source{{Path: filepath.Join(dir, "*.txt"), Key: "$"}})
	require.Error(t, err)
}
