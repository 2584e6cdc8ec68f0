package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringIntegerEncoding(t *testing.T) {
	s := NewString([]byte("12345"))
	assert.True(t, s.IsIntEncoded())
	n, ok := s.Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(12345), n)
	assert.Equal(t, "12345", string(s.Bytes()))
}

func TestStringRejectsNonCanonicalIntegers(t *testing.T) {
	for _, raw := range []string{"007", "+5", " 5", "5 ", "1e3", ""} {
		s := NewString([]byte(raw))
		assert.False(t, s.IsIntEncoded(), "raw=%q", raw)
		assert.Equal(t, raw, string(s.Bytes()))
	}
}

func TestStringEqualAcrossEncodings(t *testing.T) {
	encoded := NewStringFromInt(42)
	raw := NewString([]byte("42"))
	assert.True(t, encoded.Equal(raw))
	assert.True(t, raw.Equal(encoded))
}

func TestStringSetBytesReencodes(t *testing.T) {
	s := NewString([]byte("hello"))
	assert.False(t, s.IsIntEncoded())
	s.SetBytes([]byte("99"))
	assert.True(t, s.IsIntEncoded())
	assert.Equal(t, 2, s.Len())
}
