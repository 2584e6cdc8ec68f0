package aof

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkvs-io/kvstored/internal/keyspace"
	"github.com/mkvs-io/kvstored/internal/object"
)

func TestAppendAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appendonly.aof")
	now := time.Unix(1700000000, 0)

	w, err := Open(path, FsyncAlways)
	require.NoError(t, err)

	require.NoError(t, w.Append(0, now, [][]byte{[]byte("SET"), []byte("a"), []byte("1")}))
	require.NoError(t, w.Append(1, now, [][]byte{[]byte("SET"), []byte("b"), []byte("2")}))
	require.NoError(t, w.Append(1, now, [][]byte{[]byte("SET"), []byte("c"), []byte("3")}))
	require.NoError(t, w.Close())

	store := keyspace.NewStore(2)
	require.NoError(t, Replay(path, store))

	db0, err := store.DB(0)
	require.NoError(t, err)
	v, ok := db0.Lookup("a", now)
	require.True(t, ok)
	assert.Equal(t, "1", string(v.(*object.String).Bytes()))

	db1, err := store.DB(1)
	require.NoError(t, err)
	v, ok = db1.Lookup("b", now)
	require.True(t, ok)
	assert.Equal(t, "2", string(v.(*object.String).Bytes()))
	v, ok = db1.Lookup("c", now)
	require.True(t, ok)
	assert.Equal(t, "3", string(v.(*object.String).Bytes()))
}

func TestReplayMissingFileIsNotAnError(t *testing.T) {
	store := keyspace.NewStore(1)
	err := Replay(filepath.Join(t.TempDir(), "does-not-exist.aof"), store)
	assert.NoError(t, err)
}

func TestRewriteExpiryToExpireAt(t *testing.T) {
	now := time.Unix(1700000000, 0)

	out := RewriteExpiry([][]byte{[]byte("EXPIRE"), []byte("k"), []byte("10")}, now)
	require.Len(t, out, 3)
	assert.Equal(t, "EXPIREAT", string(out[0]))
	assert.Equal(t, "k", string(out[1]))
	assert.Equal(t, "1700000010", string(out[2]))

	out = RewriteExpiry([][]byte{[]byte("PEXPIRE"), []byte("k"), []byte("5000")}, now)
	assert.Equal(t, "EXPIREAT", string(out[0]))
	assert.Equal(t, "1700000005", string(out[2]))

	passthrough := [][]byte{[]byte("SET"), []byte("k"), []byte("v")}
	assert.Equal(t, passthrough, RewriteExpiry(passthrough, now))
}

func TestParseFsyncPolicy(t *testing.T) {
	p, err := ParseFsyncPolicy("always")
	require.NoError(t, err)
	assert.Equal(t, FsyncAlways, p)

	p, err = ParseFsyncPolicy("everysec")
	require.NoError(t, err)
	assert.Equal(t, FsyncEverySec, p)

	p, err = ParseFsyncPolicy("no")
	require.NoError(t, err)
	assert.Equal(t, FsyncNever, p)

	_, err = ParseFsyncPolicy("bogus")
	assert.Error(t, err)
}
