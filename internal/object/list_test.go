package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strs(vals ...string) []*String {
	out := make([]*String, len(vals))
	for i, v := range vals {
		out[i] = NewString([]byte(v))
	}
	return out
}

func names(vals []*String) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v.Bytes())
	}
	return out
}

func TestListPushPopOrder(t *testing.T) {
	l := NewList()
	l.PushRight(NewString([]byte("b")))
	l.PushRight(NewString([]byte("c")))
	l.PushLeft(NewString([]byte("a")))
	require.Equal(t, 3, l.Len())
	assert.Equal(t, []string{"a", "b", "c"}, names(l.ToSlice()))

	v, ok := l.PopLeft()
	require.True(t, ok)
	assert.Equal(t, "a", string(v.Bytes()))

	v, ok = l.PopRight()
	require.True(t, ok)
	assert.Equal(t, "c", string(v.Bytes()))

	assert.Equal(t, 1, l.Len())
}

func TestListRangeClamping(t *testing.T) {
	l := NewList()
	for _, v := range strs("a", "b", "c", "d", "e") {
		l.PushRight(v)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names(l.Range(0, 2)))
	assert.Equal(t, []string{"d", "e"}, names(l.Range(-2, -1)))
	assert.Nil(t, l.Range(3, 1))
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, names(l.Range(0, -1)))
}

func TestListTrim(t *testing.T) {
	l := NewList()
	for _, v := range strs("a", "b", "c", "d", "e") {
		l.PushRight(v)
	}
	l.Trim(1, 3)
	assert.Equal(t, []string{"b", "c", "d"}, names(l.ToSlice()))
}

func TestListSetOutOfRange(t *testing.T) {
	l := NewList()
	l.PushRight(NewString([]byte("a")))
	assert.True(t, l.Set(0, NewString([]byte("x"))))
	assert.False(t, l.Set(5, NewString([]byte("y"))))
}

// LREM on a list and on its mirror image: removing count=+k from the head
// of one and count=-k from the tail of the other produces reversed output,
// per spec.md §8's LREM direction property.
func TestListRemEqualDirectionProperty(t *testing.T) {
	forward := NewList()
	for _, v := range strs("a", "b", "a", "c", "a") {
		forward.PushRight(v)
	}
	removed := forward.RemoveEqual(2, NewString([]byte("a")))
	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"b", "c", "a"}, names(forward.ToSlice()))

	backward := NewList()
	for _, v := range strs("a", "c", "a", "b", "a") {
		backward.PushRight(v)
	}
	removed = backward.RemoveEqual(-2, NewString([]byte("a")))
	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"a", "c", "b"}, names(backward.ToSlice()))
}

func TestListInsert(t *testing.T) {
	l := NewList()
	for _, v := range strs("a", "c") {
		l.PushRight(v)
	}
	assert.True(t, l.InsertBefore(NewString([]byte("c")), NewString([]byte("b"))))
	assert.Equal(t, []string{"a", "b", "c"}, names(l.ToSlice()))
	assert.True(t, l.InsertAfter(NewString([]byte("c")), NewString([]byte("d"))))
	assert.Equal(t, []string{"a", "b", "c", "d"}, names(l.ToSlice()))
	assert.False(t, l.InsertBefore(NewString([]byte("missing")), NewString([]byte("z"))))
}
