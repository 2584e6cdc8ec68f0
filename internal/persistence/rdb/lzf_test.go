package rdb

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLZFRoundTrip(t *testing.T) {
	inputs := [][]byte{
		bytes.Repeat([]byte("abcabcabcabc"), 50),
		[]byte(strings.Repeat("x", 1000)),
		[]byte("hello, hello, hello, world world world"),
	}
	for _, in := range inputs {
		out, ok := lzfCompress(in)
		require.True(t, ok, "expected compression to be profitable for repetitive input")
		got, err := lzfDecompress(out, len(in))
		require.NoError(t, err)
		assert.Equal(t, in, got)
	}
}

func TestLZFRejectsUncompressible(t *testing.T) {
	_, ok := lzfCompress([]byte("ab"))
	assert.False(t, ok)
}

func TestLZFCorruptStream(t *testing.T) {
	_, err := lzfDecompress([]byte{0xff, 0xff, 0xff}, 100)
	assert.Error(t, err)
}
