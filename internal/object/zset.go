package object

import (
	"github.com/mkvs-io/kvstored/internal/skiplist"
)

// ScoreSet is the sorted-set value engine: a member→score hash map kept in
// lockstep with a score-ordered skip list, per spec.md §4.4 ("O(1) score
// lookup, O(log N) rank/range operations"). The hash map is the source of
// truth for membership; the skip list is purely a secondary index.
type ScoreSet struct {
	scores map[string]float64
	index  *skiplist.SkipList
}

func (*ScoreSet) Kind() Kind { return KindScoreSet }

// NewScoreSet returns an empty sorted set.
func NewScoreSet() *ScoreSet {
	return &ScoreSet{
		scores: make(map[string]float64),
		index:  skiplist.New(),
	}
}

// Len returns the cardinality (ZCARD).
func (z *ScoreSet) Len() int { return len(z.scores) }

// Clone returns an independent deep copy (see package-level Clone).
func (z *ScoreSet) Clone() *ScoreSet {
	out := NewScoreSet()
	for _, m := range z.RangeByRank(0, -1) {
		out.Add(m.Name, m.Score)
	}
	return out
}

// Score returns a member's score and true, or (0, false) if absent
// (ZSCORE).
func (z *ScoreSet) Score(member string) (float64, bool) {
	s, ok := z.scores[member]
	return s, ok
}

// Add inserts or updates a member's score, returning true if the member
// is new (ZADD). Updating an existing member's score removes and
// re-inserts it in the skip list, since the list is ordered by score.
func (z *ScoreSet) Add(member string, score float64) bool {
	if old, ok := z.scores[member]; ok {
		if old != score {
			z.index.Delete(old, member)
			z.index.Insert(score, member)
		}
		z.scores[member] = score
		return false
	}
	z.scores[member] = score
	z.index.Insert(score, member)
	return true
}

// IncrBy adds delta to member's score (creating it with score delta if
// absent) and returns the new score (ZINCRBY).
func (z *ScoreSet) IncrBy(member string, delta float64) float64 {
	newScore := delta
	if old, ok := z.scores[member]; ok {
		newScore = old + delta
	}
	z.Add(member, newScore)
	return newScore
}

// Remove deletes a member, returning true if it was present (ZREM).
func (z *ScoreSet) Remove(member string) bool {
	score, ok := z.scores[member]
	if !ok {
		return false
	}
	delete(z.scores, member)
	z.index.Delete(score, member)
	return true
}

// Rank returns the 0-based ascending rank of member and true, or
// (0, false) if absent (ZRANK).
func (z *ScoreSet) Rank(member string) (int, bool) {
	score, ok := z.scores[member]
	if !ok {
		return 0, false
	}
	r, ok := z.index.Rank(score, member)
	if !ok {
		return 0, false
	}
	return r - 1, true
}

// RevRank returns the 0-based descending rank of member and true, or
// (0, false) if absent (ZREVRANK).
func (z *ScoreSet) RevRank(member string) (int, bool) {
	r, ok := z.Rank(member)
	if !ok {
		return 0, false
	}
	return z.Len() - 1 - r, true
}

// Member pairs a member name with its score, returned by Range-family
// queries.
type Member struct {
	Name  string
	Score float64
}

// RangeByRank returns members with 0-based ascending rank in [start, end]
// after the same negative-index clamping rules as List.Range (ZRANGE).
func (z *ScoreSet) RangeByRank(start, end int) []Member {
	n := z.Len()
	if start < 0 {
		start += n
	}
	if end < 0 {
		end += n
	}
	if start < 0 {
		start = 0
	}
	if end >= n {
		end = n - 1
	}
	if start > end || n == 0 {
		return nil
	}
	out := make([]Member, 0, end-start+1)
	node := z.index.GetByRank(start + 1)
	for i := start; i <= end && node != nil; i++ {
		out = append(out, Member{Name: node.Member, Score: node.Score})
		node = node.Forward(0)
	}
	return out
}

// RevRangeByRank returns the same rank window as RangeByRank but in
// descending score order (ZREVRANGE).
func (z *ScoreSet) RevRangeByRank(start, end int) []Member {
	fwd := z.RangeByRank(start, end)
	out := make([]Member, len(fwd))
	for i, m := range fwd {
		out[len(fwd)-1-i] = m
	}
	return out
}

// RangeByScore returns every member with min <= score <= max, in
// ascending order (ZRANGEBYSCORE).
func (z *ScoreSet) RangeByScore(min, max float64) []Member {
	var out []Member
	for node := z.index.FirstWithScore(min); node != nil && node.Score <= max; node = node.Forward(0) {
		out = append(out, Member{Name: node.Member, Score: node.Score})
	}
	return out
}

// RevRangeByScore returns every member with min <= score <= max, in
// descending order (ZREVRANGEBYSCORE).
func (z *ScoreSet) RevRangeByScore(max, min float64) []Member {
	var out []Member
	for node := z.index.LastWithScore(max); node != nil && node.Score >= min; node = node.Backward() {
		out = append(out, Member{Name: node.Member, Score: node.Score})
	}
	return out
}

// Count returns the number of members with min <= score <= max (ZCOUNT).
func (z *ScoreSet) Count(min, max float64) int {
	count := 0
	for node := z.index.FirstWithScore(min); node != nil && node.Score <= max; node = node.Forward(0) {
		count++
	}
	return count
}

// RemoveRangeByScore removes every member with min <= score <= max,
// returning the names removed (ZREMRANGEBYSCORE).
func (z *ScoreSet) RemoveRangeByScore(min, max float64) []string {
	var removed []string
	z.index.DeleteRangeByScore(min, max, func(member string) {
		removed = append(removed, member)
		delete(z.scores, member)
	})
	return removed
}

// RemoveRangeByRank removes every member with 0-based ascending rank in
// [start, end] after clamping, returning the names removed
// (ZREMRANGEBYRANK).
func (z *ScoreSet) RemoveRangeByRank(start, end int) []string {
	members := z.RangeByRank(start, end)
	removed := make([]string, 0, len(members))
	for _, m := range members {
		z.Remove(m.Name)
		removed = append(removed, m.Name)
	}
	return removed
}
