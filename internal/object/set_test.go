package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Cardinality property from spec.md §8: after n distinct SADDs and m < n
// SREMs of distinct previously-added members, SCARD equals n - m.
func TestSetCardinalityProperty(t *testing.T) {
	s := NewSet()
	members := []string{"a", "b", "c", "d", "e"}
	for _, m := range members {
		assert.True(t, s.Add(m))
	}
	assert.False(t, s.Add("a"))
	require.Equal(t, len(members), s.Len())

	assert.True(t, s.Remove("b"))
	assert.True(t, s.Remove("d"))
	assert.False(t, s.Remove("z"))
	assert.Equal(t, len(members)-2, s.Len())
}

func TestSetInterUnionDiff(t *testing.T) {
	a := NewSet()
	for _, m := range []string{"x", "y", "z"} {
		a.Add(m)
	}
	b := NewSet()
	for _, m := range []string{"y", "z", "w"} {
		b.Add(m)
	}

	inter := Inter(a, b)
	assert.ElementsMatch(t, []string{"y", "z"}, inter.Members())

	union := Union(a, b)
	assert.ElementsMatch(t, []string{"x", "y", "z", "w"}, union.Members())

	diff := Diff(a, b)
	assert.ElementsMatch(t, []string{"x"}, diff.Members())
}

func TestSetPopRemovesMember(t *testing.T) {
	s := NewSet()
	s.Add("only")
	m, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, "only", m)
	assert.Equal(t, 0, s.Len())

	_, ok = s.Pop()
	assert.False(t, ok)
}

func TestSetRandomMembersCount(t *testing.T) {
	s := NewSet()
	for _, m := range []string{"a", "b", "c"} {
		s.Add(m)
	}
	distinct := s.RandomMembers(2)
	assert.Len(t, distinct, 2)

	capped := s.RandomMembers(10)
	assert.Len(t, capped, 3)

	repeated := s.RandomMembers(-5)
	assert.Len(t, repeated, 5)
}
