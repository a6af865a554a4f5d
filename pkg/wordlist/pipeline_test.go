package wordlist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWordlist(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadBasic(t *testing.T) {
	dir := t.TempDir()
	path := writeWordlist(t, dir, "words.txt", "admin\nusers\n\nlogin\n")

	out, err := Load(Options{Sources: []Source{{Path: path, Key: "$"}}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "$", out[0].Key)
	assert.ElementsMatch(t, []string{"admin", "users", "login"}, out[0].Words)
}

func TestLoadStripsComments(t *testing.T) {
	dir := t.TempDir()
	path := writeWordlist(t, dir, "words.txt", "# full comment\nadmin # inline note\nliteral#hash\n")

	out, err := Load(Options{Sources: []Source{{Path: path, Key: "$"}}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"admin", "literal#hash"}, out[0].Words)
}

func TestLoadIncludeComments(t *testing.T) {
	dir := t.TempDir()
	path := writeWordlist(t, dir, "words.txt", "# this is a word now\nadmin\n")

	out, err := Load(Options{Sources: []Source{{Path: path, Key: "$"}}, IncludeComments: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"# this is a word now", "admin"}, out[0].Words)
}

func TestLoadDeduplicates(t *testing.T) {
	dir := t.TempDir()
	path := writeWordlist(t, dir, "words.txt", "admin\nadmin\nAdmin\n")

	out, err := Load(Options{
		Sources:    []Source{{Path: path, Key: "$"}},
		Transforms: []TransformSpec{{Name: "case", Arg: "lower"}},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"admin"}, out[0].Words)
}

func TestLoadScopedTransformAppliesOnlyToMatchingKey(t *testing.T) {
	dir := t.TempDir()
	p1 := writeWordlist(t, dir, "a.txt", "admin\n")
	p2 := writeWordlist(t, dir, "b.txt", "admin\n")

	out, err := Load(Options{
		Sources: []Source{{Path: p1, Key: "A"}, {Path: p2, Key: "B"}},
		Transforms: []TransformSpec{
			{Scope: []string{"A"}, Name: "case", Arg: "upper"},
		},
	})
	require.NoError(t, err)

	byKey := map[string][]string{}
	for _, wl := range out {
		byKey[wl.Key] = wl.Words
	}
	assert.Equal(t, []string{"ADMIN"}, byKey["A"])
	assert.Equal(t, []string{"admin"}, byKey["B"])
}

func TestLoadFilterExpressionScoping(t *testing.T) {
	dir := t.TempDir()
	p1 := writeWordlist(t, dir, "a.txt", "ab\nabcdef\n")
	p2 := writeWordlist(t, dir, "b.txt", "ab\nabcdef\n")

	out, err := Load(Options{
		Sources:    []Source{{Path: p1, Key: "A"}, {Path: p2, Key: "B"}},
		FilterExpr: "[A]length:1-3",
	})
	require.NoError(t, err)

	byKey := map[string][]string{}
	for _, wl := range out {
		byKey[wl.Key] = wl.Words
	}
	assert.Equal(t, []string{"ab"}, byKey["A"])
	assert.ElementsMatch(t, []string{"ab", "abcdef"}, byKey["B"]) // neutral: atom doesn't apply to B
}

func TestLoadMergeDirective(t *testing.T) {
	dir := t.TempDir()
	p1 := writeWordlist(t, dir, "a.txt", "one\n")
	p2 := writeWordlist(t, dir, "b.txt", "two\n")

	out, err := Load(Options{
		Sources: []Source{{Path: p1, Key: "A"}, {Path: p2, Key: "B"}},
		Merges:  []MergeDirective{{Sources: []string{"A", "B"}, Dest: "C"}},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "C", out[0].Key)
	assert.ElementsMatch(t, []string{"one", "two"}, out[0].Words)
}

func TestLoadEmptyAfterFilterIsError(t *testing.T) {
	dir := t.TempDir()
	path := writeWordlist(t, dir, "words.txt", "admin\n")

	_, err := Load(Options{
		Sources:    []Source{{Path: path, Key: "$"}},
		FilterExpr: "length:100",
	})
	require.ErrorIs(t, err, ErrNoWords)
}

func TestLoadUnreadableSourceErrors(t *testing.T) {
	_, err := Load(Options{Sources: []Source{{Path: "/nonexistent/path.txt", Key: "$"}}})
	require.Error(t, err)
}
