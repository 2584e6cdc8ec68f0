package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ZADD/ZCARD/skiplist-length/hashmap-size equality property from
// spec.md §8: the skip list and the score map never diverge in size.
func TestScoreSetSizeInvariant(t *testing.T) {
	z := NewScoreSet()
	assert.True(t, z.Add("a", 1))
	assert.True(t, z.Add("b", 2))
	assert.False(t, z.Add("a", 5)) // update, not insert
	require.Equal(t, 2, z.Len())
	assert.Equal(t, 2, z.index.Len())

	assert.True(t, z.Remove("b"))
	assert.Equal(t, 1, z.Len())
	assert.Equal(t, 1, z.index.Len())
}

func TestScoreSetIncrBy(t *testing.T) {
	z := NewScoreSet()
	got := z.IncrBy("a", 5)
	assert.Equal(t, float64(5), got)
	got = z.IncrBy("a", -2)
	assert.Equal(t, float64(3), got)
	score, ok := z.Score("a")
	require.True(t, ok)
	assert.Equal(t, float64(3), score)
}

func TestScoreSetRankAndRange(t *testing.T) {
	z := NewScoreSet()
	z.Add("a", 1)
	z.Add("b", 2)
	z.Add("c", 3)

	rank, ok := z.Rank("b")
	require.True(t, ok)
	assert.Equal(t, 1, rank)

	revRank, ok := z.RevRank("b")
	require.True(t, ok)
	assert.Equal(t, 1, revRank)

	members := z.RangeByRank(0, -1)
	require.Len(t, members, 3)
	assert.Equal(t, "a", members[0].Name)
	assert.Equal(t, "c", members[2].Name)

	rev := z.RevRangeByRank(0, -1)
	assert.Equal(t, "c", rev[0].Name)
	assert.Equal(t, "a", rev[2].Name)
}

func TestScoreSetRangeAndCountByScore(t *testing.T) {
	z := NewScoreSet()
	for i, m := range []string{"a", "b", "c", "d"} {
		z.Add(m, float64(i+1))
	}
	assert.Equal(t, 2, z.Count(2, 3))

	members := z.RangeByScore(2, 3)
	require.Len(t, members, 2)
	assert.Equal(t, "b", members[0].Name)
	assert.Equal(t, "c", members[1].Name)

	rev := z.RevRangeByScore(3, 2)
	require.Len(t, rev, 2)
	assert.Equal(t, "c", rev[0].Name)
	assert.Equal(t, "b", rev[1].Name)
}

func TestScoreSetRemoveRanges(t *testing.T) {
	z := NewScoreSet()
	for i, m := range []string{"a", "b", "c", "d", "e"} {
		z.Add(m, float64(i+1))
	}

	removed := z.RemoveRangeByScore(2, 3)
	assert.ElementsMatch(t, []string{"b", "c"}, removed)
	assert.Equal(t, 3, z.Len())

	removed = z.RemoveRangeByRank(0, 0)
	assert.Equal(t, []string{"a"}, removed)
	assert.Equal(t, 2, z.Len())
}
