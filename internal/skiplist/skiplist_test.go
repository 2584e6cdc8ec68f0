package skiplist

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndRank(t *testing.T) {
	s := New()
	members := []struct {
		score  float64
		member string
	}{
		{1, "a"}, {2, "b"}, {1.5, "c"}, {3, "d"}, {1.5, "aa"},
	}
	for _, m := range members {
		s.Insert(m.score, m.member)
	}
	require.Equal(t, 5, s.Len())

	// Expected order: a(1), aa(1.5), c(1.5), b(2), d(3)
	order := []string{"a", "aa", "c", "b", "d"}
	for i, name := range order {
		n := s.GetByRank(i + 1)
		require.NotNil(t, n)
		assert.Equal(t, name, n.Member)
		rank, ok := s.Rank(n.Score, n.Member)
		assert.True(t, ok)
		assert.Equal(t, i+1, rank)
	}
}

func TestDelete(t *testing.T) {
	s := New()
	s.Insert(1, "a")
	s.Insert(2, "b")
	s.Insert(3, "c")
	require.True(t, s.Delete(2, "b"))
	require.False(t, s.Delete(2, "b"))
	require.Equal(t, 2, s.Len())

	n := s.GetByRank(1)
	require.Equal(t, "a", n.Member)
	n = s.GetByRank(2)
	require.Equal(t, "c", n.Member)
}

func TestFirstWithScoreAndDeleteRange(t *testing.T) {
	s := New()
	for i := 1; i <= 10; i++ {
		s.Insert(float64(i), fmt.Sprintf("m%02d", i))
	}

	n := s.FirstWithScore(5)
	require.NotNil(t, n)
	assert.Equal(t, "m05", n.Member)

	var removed []string
	count := s.DeleteRangeByScore(3, 6, func(member string) {
		removed = append(removed, member)
	})
	assert.Equal(t, 4, count)
	assert.ElementsMatch(t, []string{"m03", "m04", "m05", "m06"}, removed)
	assert.Equal(t, 6, s.Len())
}

func TestLastWithScore(t *testing.T) {
	s := New()
	for i := 1; i <= 10; i++ {
		s.Insert(float64(i), fmt.Sprintf("m%02d", i))
	}

	n := s.LastWithScore(6)
	require.NotNil(t, n)
	assert.Equal(t, "m06", n.Member)

	assert.Nil(t, s.LastWithScore(0))
}

// Property test: for every node at every level, span[level] equals the
// count of level-0 nodes strictly between this node and its next-at-level
// node, plus one (spec.md §8).
func TestSpanInvariant(t *testing.T) {
	s := New()
	for i := 0; i < 500; i++ {
		s.Insert(rand.Float64()*100, fmt.Sprintf("member-%d", i))
	}

	x := s.header
	for level := 0; level < s.level; level++ {
		node := x
		for node.levels[level].forward != nil || node == s.header {
			fwd := node.levels[level].forward
			if fwd == nil {
				break
			}
			gap := countLevelZeroHops(node, fwd)
			assert.Equal(t, gap, node.levels[level].span, "level %d", level)
			node = fwd
		}
	}
}

func countLevelZeroHops(from, to *Node) int {
	n := 0
	x := from.levels[0].forward
	if from == nil {
		return 0
	}
	// from may be the header (level 0 forward chain works the same way).
	for x != to {
		n++
		x = x.levels[0].forward
	}
	n++
	return n
}

func TestRankOutOfRange(t *testing.T) {
	s := New()
	s.Insert(1, "a")
	assert.Nil(t, s.GetByRank(0))
	assert.Nil(t, s.GetByRank(2))
	_, ok := s.Rank(5, "zzz")
	assert.False(t, ok)
}
