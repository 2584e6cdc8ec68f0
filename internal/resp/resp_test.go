package resp

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadInline(t *testing.T) {
	r := NewReader(bufio.NewReader(bytes.NewBufferString("PING hello   world\r\n")))
	args, err := r.Command()
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("PING"), []byte("hello"), []byte("world")}, args)
}

func TestReadMultiBulk(t *testing.T) {
	raw := "*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n"
	r := NewReader(bufio.NewReader(bytes.NewBufferString(raw)))
	args, err := r.Command()
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("SET"), []byte("foo"), []byte("bar")}, args)
}

func TestReadMultipleCommandsSequentially(t *testing.T) {
	raw := "PING\r\n*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n"
	r := NewReader(bufio.NewReader(bytes.NewBufferString(raw)))

	args, err := r.Command()
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("PING")}, args)

	args, err = r.Command()
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("GET"), []byte("foo")}, args)
}

func TestReadMultiBulkBadLength(t *testing.T) {
	raw := "*2\r\n$3\r\nfoo\r\n$3\r\nbar\r\n" // well-formed control case; the bad length comes below
	r := NewReader(bufio.NewReader(bytes.NewBufferString(raw)))
	_, err := r.Command()
	assert.NoError(t, err)

	bad := "*1\r\n$4\r\nabc\r\n" // declares length 4 but payload is 3 bytes + CRLF
	r2 := NewReader(bufio.NewReader(bytes.NewBufferString(bad)))
	_, err = r2.Command()
	assert.Error(t, err)
}

func TestWriterEncodings(t *testing.T) {
	var buf []byte
	buf = Status(buf, "OK")
	buf = Error(buf, "ERR bad")
	buf = Integer(buf, 42)
	buf = Bulk(buf, []byte("hi"))
	buf = NilBulk(buf)
	buf = BulkArray(buf, [][]byte{[]byte("a"), []byte("b")})

	expected := "+OK\r\n" +
		"-ERR bad\r\n" +
		":42\r\n" +
		"$2\r\nhi\r\n" +
		"$-1\r\n" +
		"*2\r\n$1\r\na\r\n$1\r\nb\r\n"
	assert.Equal(t, expected, string(buf))
}
