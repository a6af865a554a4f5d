package intrange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantStart int
		wantEnd   int
		wantErr   bool
	}{
		{"single value", "42", 42, 42, false},
		{"greater than", ">10", 11, maxInt(), false},
		{"less than", "<10", minInt(), 9, false},
		{"closed range", "5-10", 5, 10, false},
		{"empty string", "", 0, 0, true},
		{"invalid operand", ">abc", 0, 0, true},
		{"invalid start", "a-10", 0, 0, true},
		{"invalid end", "10-a", 0, 0, true},
		{"start after end", "10-5", 0, 0, true},
		{"too many hyphens", "1-2-3", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse[int](tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, got.Start)
			assert.Equal(t, tt.wantEnd, got.End)
		})
	}
}

func TestParseGreaterThanAtMaxIsEmpty(t *testing.T) {
	r, err := Parse[uint8](">255")
	require.NoError(t, err)
	for v := uint8(0); ; v++ {
		assert.False(t, r.Contains(v))
		if v == 255 {
			break
		}
	}
}

func TestParseLessThanAtMinIsEmpty(t *testing.T) {
	r, err := Parse[uint8]("<0")
	require.NoError(t, err)
	for v := uint8(0); ; v++ {
		assert.False(t, r.Contains(v))
		if v == 255 {
			break
		}
	}
}

func TestParseList(t *testing.T) {
	ranges, err := ParseList[int]("0,1-2")
	require.NoError(t, err)
	require.Len(t, ranges, 2)
	assert.True(t, AnyContains(ranges, 0))
	assert.True(t, AnyContains(ranges, 1))
	assert.True(t, AnyContains(ranges, 2))
	assert.False(t, AnyContains(ranges, 3))
}

func TestParseWithMapperDuration(t *testing.T) {
	mapper := func(raw string) (int64, error) {
		return int64(len(raw)), nil
	}
	r, err := ParseWithMapper("ab-abcd", mapper)
	require.NoError(t, err)
	assert.Equal(t, int64(2), r.Start)
	assert.Equal(t, int64(4), r.End)
}

func maxInt() int {
	return int(^uint(0) >> 1)
}

func minInt() int {
	return -maxInt() - 1
}
