package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextVersion(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"1.0.0", "1.0.1"},
		{"1.0.3", "1.0.4"},
		{"1.0.9", "1.0.10"},
		{"2.9", "2.10"},
		{"7", "8"},
		{"1.x.4", "1.x.5"},
	}

	for _, tt := range tests {
		got, err := NextVersion(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.expected, got)
	}
}

func TestNextVersion_Invalid(t *testing.T) {
	for _, in := range []string{"", "1.0.beta", "1.0.-1", "1.0."} {
		_, err := NextVersion(in)
		assert.ErrorIs(t, err, ErrInvalidVersion, in)
	}
}

func TestCompareVersions(t *testing.T) {
	assert.Equal(t, 0, CompareVersions("1.0.0", "1.0.0"))
	assert.Equal(t, -1, CompareVersions("1.0.9", "1.0.10"))
	assert.Equal(t, 1, CompareVersions("2.0", "1.9.9"))
	assert.Equal(t, 0, CompareVersions("1.0", "1.0.0"))
	assert.Equal(t, -1, CompareVersions("1.0", "1.0.1"))
}

func TestChecksum(t *testing.T) {
	// sha256("")
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Checksum(""))
	assert.Equal(t, Checksum("abc"), Checksum("abc"))
	assert.NotEqual(t, Checksum("abc"), Checksum("abd"))
	assert.Len(t, Checksum("anything"), 64)
}
