package responsefilter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusAtom(t *testing.T) {
	pred, err := Registry.Construct("status", "200-299,404")
	require.NoError(t, err)

	ok, err := pred(&Response{Status: 204})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = pred(&Response{Status: 404})
	assert.True(t, ok)

	ok, _ = pred(&Response{Status: 500})
	assert.False(t, ok)
}

func TestTimeAtomDefaultMicroseconds(t *testing.T) {
	pred, err := Registry.Construct("time", "100-500")
	require.NoError(t, err)
	ok, err := pred(&Response{Elapsed: 200 * time.Microsecond})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTimeAtomWithUnits(t *testing.T) {
	pred, err := Registry.Construct("time", ">1s")
	require.NoError(t, err)
	ok, err := pred(&Response{Elapsed: 2 * time.Second})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = pred(&Response{Elapsed: 500 * time.Millisecond})
	assert.False(t, ok)
}

func TestLengthAtomNeedsBody(t *testing.T) {
	nb, err := Registry.NeedsBody("length")
	require.NoError(t, err)
	assert.True(t, nb)

	nb, err = Registry.NeedsBody("status")
	require.NoError(t, err)
	assert.False(t, nb)
}

func TestLengthAtomBoundary(t *testing.T) {
	pred, err := Registry.Construct("length", "0,1-2")
	require.NoError(t, err)

	for n, want := range map[int]bool{0: true, 1: true, 2: true, 3: false} {
		ok, err := pred(&Response{Body: make([]byte, n)})
		require.NoError(t, err)
		assert.Equal(t, want, ok, "length %d", n)
	}
}

func TestHeaderAtom(t *testing.T) {
	pred, err := Registry.Construct("header", "X-Powered-By=PHP/8.1")
	require.NoError(t, err)

	ok, err := pred(&Response{Headers: map[string][]string{
		"X-Powered-By": {"nginx", "PHP/8.1"},
	}})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = pred(&Response{Headers: map[string][]string{"X-Powered-By": {"nginx"}}})
	assert.False(t, ok)
}

func TestHeaderAtomMissingEquals(t *testing.T) {
	_, err := Registry.Construct("header", "novalue")
	require.Error(t, err)
}

func TestRegexAtom(t *testing.T) {
	pred, err := Registry.Construct("regex", "error \\d+")
	require.NoError(t, err)
	ok, _ := pred(&Response{Body: []byte("boom: error 42 occurred")})
	assert.True(t, ok)
}

func TestTypeAtom(t *testing.T) {
	pred, err := Registry.Construct("type", "directory")
	require.NoError(t, err)
	ok, _ := pred(&Response{Classification: ClassificationDirectory})
	assert.True(t, ok)
	ok, _ = pred(&Response{Classification: ClassificationFile})
	assert.False(t, ok)
}

func TestTypeAtomInvalidLiteral(t *testing.T) {
	_, err := Registry.Construct("type", "bogus")
	require.Error(t, err)
}

func TestScriptAtomWithoutEvaluatorIsFalse(t *testing.T) {
	SetScriptEvaluator(nil)
	pred, err := Registry.Construct("script", "check.sh")
	require.NoError(t, err)
	ok, err := pred(&Response{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScriptAtomWithEvaluator(t *testing.T) {
	defer SetScriptEvaluator(nil)
	SetScriptEvaluator(func(path string, r *Response) (bool, error) {
		return path == "check.sh", nil
	})
	pred, err := Registry.Construct("script", "check.sh")
	require.NoError(t, err)
	ok, err := pred(&Response{})
	require.NoError(t, err)
	assert.True(t, ok)
}
