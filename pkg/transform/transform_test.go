package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaseTransform(t *testing.T) {
	tests := []struct {
		name string
		arg  string
		in   string
		want string
	}{
		{"upper", "upper", "Admin", "ADMIN"},
		{"lower", "lower", "Admin", "admin"},
		{"capitalize", "capitalize", "admin", "Admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, err := Registry.Construct("case", tt.arg)
			require.NoError(t, err)
			got, err := fn(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCaseTransformInvalid(t *testing.T) {
	_, err := Registry.Construct("case", "sideways")
	require.Error(t, err)
}

func TestPrefixSuffix(t *testing.T) {
	prefix, err := Registry.Construct("p", "/api/")
	require.NoError(t, err)
	got, _ := prefix("users")
	assert.Equal(t, "/api/users", got)

	suffix, err := Registry.Construct("suf", ".php")
	require.NoError(t, err)
	got, _ = suffix("index")
	assert.Equal(t, "index.php", got)
}

func TestRemove(t *testing.T) {
	fn, err := Registry.Construct("remove", "_bak")
	require.NoError(t, err)
	got, _ := fn("config_bak.php")
	assert.Equal(t, "config.php", got)

	got, _ = fn("untouched")
	assert.Equal(t, "untouched", got)
}

func TestReplace(t *testing.T) {
	fn, err := Registry.Construct("replace", "foo=bar")
	require.NoError(t, err)
	got, _ := fn("foofoo")
	assert.Equal(t, "barbar", got)
}

func TestReplaceMissingEquals(t *testing.T) {
	_, err := Registry.Construct("replace", "foobar")
	require.Error(t, err)
}

func TestEncode(t *testing.T) {
	tests := []struct {
		format string
		in     string
		want   string
	}{
		{"hex", "ab", "6162"},
		{"base64", "ab", "YWI="},
	}
	for _, tt := range tests {
		fn, err := Registry.Construct("encode", tt.format)
		require.NoError(t, err)
		got, err := fn(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
