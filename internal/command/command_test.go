package command

import (
	"testing"
	"time"

	"github.com/mkvs-io/kvstored/internal/keyspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext() *Context {
	authed := true
	var dirty int64
	return &Context{
		Store:         keyspace.NewStore(16),
		DBIndex:       0,
		Now:           func() time.Time { return time.Unix(1000, 0) },
		Dirty:         &dirty,
		Authenticated: &authed,
	}
}

func run(ctx *Context, args ...string) string {
	raw := make([][]byte, len(args))
	for i, a := range args {
		raw[i] = []byte(a)
	}
	ctx.Out = nil
	Dispatch(ctx, raw)
	return string(ctx.Out)
}

func TestSetGetDelRoundTrip(t *testing.T) {
	ctx := newTestContext()
	assert.Equal(t, "+OK\r\n", run(ctx, "SET", "foo", "bar"))
	assert.Equal(t, "$3\r\nbar\r\n", run(ctx, "GET", "foo"))
	assert.Equal(t, ":1\r\n", run(ctx, "DEL", "foo"))
	assert.Equal(t, "$-1\r\n", run(ctx, "GET", "foo"))
}

func TestIncrByOnNewAndExistingKey(t *testing.T) {
	ctx := newTestContext()
	assert.Equal(t, ":5\r\n", run(ctx, "INCRBY", "counter", "5"))
	assert.Equal(t, ":7\r\n", run(ctx, "INCRBY", "counter", "2"))
	assert.Equal(t, ":6\r\n", run(ctx, "DECR", "counter"))
}

func TestRPushLRange(t *testing.T) {
	ctx := newTestContext()
	assert.Equal(t, ":3\r\n", run(ctx, "RPUSH", "mylist", "a", "b", "c"))
	assert.Equal(t, "*3\r\n$1\r\na\r\n$1\r\nb\r\n$1\r\nc\r\n", run(ctx, "LRANGE", "mylist", "0", "-1"))
}

func TestSAddSInterSDiff(t *testing.T) {
	ctx := newTestContext()
	run(ctx, "SADD", "s1", "a", "b", "c")
	run(ctx, "SADD", "s2", "b", "c", "d")
	inter := run(ctx, "SINTER", "s1", "s2")
	assert.Contains(t, inter, "*2\r\n")
	diff := run(ctx, "SDIFF", "s1", "s2")
	assert.Equal(t, "*1\r\n$1\r\na\r\n", diff)
}

func TestZAddZRangeByScoreWithScores(t *testing.T) {
	ctx := newTestContext()
	run(ctx, "ZADD", "z", "1", "a", "2", "b", "3", "c")
	out := run(ctx, "ZRANGEBYSCORE", "z", "1", "2", "WITHSCORES")
	assert.Contains(t, out, "a")
	assert.Contains(t, out, "b")
	assert.NotContains(t, out, "\r\nc\r\n")

	rev := run(ctx, "ZREVRANGEBYSCORE", "z", "2", "1")
	assert.Equal(t, "*2\r\n$1\r\nb\r\n$1\r\na\r\n", rev)
}

func TestExpireTTL(t *testing.T) {
	ctx := newTestContext()
	run(ctx, "SET", "k", "v")
	assert.Equal(t, ":1\r\n", run(ctx, "EXPIRE", "k", "100"))
	assert.Equal(t, ":100\r\n", run(ctx, "TTL", "k"))
}

func TestUnknownCommandAndArity(t *testing.T) {
	ctx := newTestContext()
	assert.Contains(t, run(ctx, "NOPE"), "-ERR unknown command")
	assert.Contains(t, run(ctx, "GET"), "-ERR wrong number of arguments")
}

func TestWrongTypeError(t *testing.T) {
	ctx := newTestContext()
	run(ctx, "SET", "k", "v")
	assert.Contains(t, run(ctx, "LPUSH", "k", "x"), "WRONGTYPE")
}

func TestAuthGating(t *testing.T) {
	authed := false
	ctx := &Context{
		Store:         keyspace.NewStore(1),
		Now:           func() time.Time { return time.Unix(1000, 0) },
		Dirty:         new(int64),
		Authenticated: &authed,
		RequirePass:   "secret",
	}
	assert.Contains(t, run(ctx, "GET", "k"), "ERR operation not permitted")
	assert.Equal(t, "+OK\r\n", run(ctx, "AUTH", "secret"))
	require.True(t, authed)
	assert.Equal(t, "$-1\r\n", run(ctx, "GET", "k"))
}

func TestSortStub(t *testing.T) {
	ctx := newTestContext()
	assert.Contains(t, run(ctx, "SORT", "k"), "ERR SORT is not implemented")
}
