// Package skiplist implements a score-ordered, rank-tracking skip list:
// the index half of the ScoreSet value engine (the other half is a
// member→score hash map kept in lockstep by the caller).
//
// Ordering is (score ascending, member lexicographic) — see less.
// Every forward link at every level carries a span: the number of
// level-0 hops it covers. Summing spans along the descent path from the
// header to a node gives that node's 1-based rank, which is what makes
// GetByRank and Rank run in O(log N) instead of O(N).
package skiplist

import (
	"math/rand/v2"
)

// MaxLevel bounds how tall any node's forward-pointer tower can grow.
// 32 levels comfortably cover lists far larger than this store will ever
// hold in memory (p=1/4 per level makes level 32 astronomically unlikely).
const MaxLevel = 32

// levelProbability is the per-level probability of growing one more level;
// P=1/4 is the classic choice, trading a little extra expected height for
// fewer expected comparisons per level than P=1/2.
const levelProbability = 0.25

// Node is one entry in the skip list.
type Node struct {
	Score   float64
	Member  string
	backward *Node
	levels   []level
}

type level struct {
	forward *Node
	span    int
}

// Level returns how many forward levels this node participates in.
func (n *Node) Level() int { return len(n.levels) }

// Forward returns the next node at the given level, or nil at the tail.
func (n *Node) Forward(i int) *Node { return n.levels[i].forward }

// Backward returns the node immediately before this one at level 0, or
// nil if this is the first node.
func (n *Node) Backward() *Node { return n.backward }

// SkipList is the score-ordered index. The zero value is not usable; use
// New.
type SkipList struct {
	header *Node
	tail   *Node
	length int
	level  int // number of levels currently in use, >= 1
}

// New returns an empty skip list.
func New() *SkipList {
	return &SkipList{
		header: &Node{levels: make([]level, MaxLevel)},
		level:  1,
	}
}

// Len returns the number of members currently indexed.
func (s *SkipList) Len() int { return s.length }

func less(score1 float64, member1 string, score2 float64, member2 string) bool {
	if score1 != score2 {
		return score1 < score2
	}
	return member1 < member2
}

func randomLevel() int {
	lvl := 1
	for lvl < MaxLevel && rand.Float64() < levelProbability {
		lvl++
	}
	return lvl
}

// Insert adds (score, member) to the list. The caller guarantees the
// member is not already present (the companion hash map is the source of
// truth for membership; the skip list never checks for duplicates).
func (s *SkipList) Insert(score float64, member string) *Node {
	var update [MaxLevel]*Node
	var rank [MaxLevel]int

	x := s.header
	for i := s.level - 1; i >= 0; i-- {
		if i == s.level-1 {
			rank[i] = 0
		} else {
			rank[i] = rank[i+1]
		}
		for x.levels[i].forward != nil &&
			less(x.levels[i].forward.Score, x.levels[i].forward.Member, score, member) {
			rank[i] += x.levels[i].span
			x = x.levels[i].forward
		}
		update[i] = x
	}

	lvl := randomLevel()
	if lvl > s.level {
		for i := s.level; i < lvl; i++ {
			rank[i] = 0
			update[i] = s.header
			update[i].levels[i].span = s.length
		}
		s.level = lvl
	}

	node := &Node{Score: score, Member: member, levels: make([]level, lvl)}
	for i := 0; i < lvl; i++ {
		node.levels[i].forward = update[i].levels[i].forward
		update[i].levels[i].forward = node

		node.levels[i].span = update[i].levels[i].span - (rank[0] - rank[i])
		update[i].levels[i].span = rank[0] - rank[i] + 1
	}

	// Untouched higher levels gained one more level-0 hop.
	for i := lvl; i < s.level; i++ {
		update[i].levels[i].span++
	}

	if update[0] == s.header {
		node.backward = nil
	} else {
		node.backward = update[0]
	}
	if node.levels[0].forward != nil {
		node.levels[0].forward.backward = node
	} else {
		s.tail = node
	}
	s.length++
	return node
}

// search descends the tower recording, per level, the last node visited
// before overshooting (score, member) — the classic "update" vector.
func (s *SkipList) search(score float64, member string) (update [MaxLevel]*Node) {
	x := s.header
	for i := s.level - 1; i >= 0; i-- {
		for x.levels[i].forward != nil &&
			less(x.levels[i].forward.Score, x.levels[i].forward.Member, score, member) {
			x = x.levels[i].forward
		}
		update[i] = x
	}
	return update
}

// Delete removes (score, member) if present, returning true on success.
func (s *SkipList) Delete(score float64, member string) bool {
	update := s.search(score, member)
	x := update[0].levels[0].forward
	if x != nil && x.Score == score && x.Member == member {
		s.deleteNode(x, &update)
		return true
	}
	return false
}

func (s *SkipList) deleteNode(x *Node, update *[MaxLevel]*Node) {
	for i := 0; i < s.level; i++ {
		if update[i].levels[i].forward == x {
			update[i].levels[i].span += x.levels[i].span - 1
			update[i].levels[i].forward = x.levels[i].forward
		} else {
			update[i].levels[i].span--
		}
	}
	if x.levels[0].forward != nil {
		x.levels[0].forward.backward = x.backward
	} else {
		s.tail = x.backward
	}
	for s.level > 1 && s.header.levels[s.level-1].forward == nil {
		s.level--
	}
	s.length--
}

// FirstWithScore returns the first node (in list order) whose score is
// >= min, or nil if none exists.
func (s *SkipList) FirstWithScore(min float64) *Node {
	x := s.header
	for i := s.level - 1; i >= 0; i-- {
		for x.levels[i].forward != nil && x.levels[i].forward.Score < min {
			x = x.levels[i].forward
		}
	}
	return x.levels[0].forward
}

// LastWithScore returns the last node whose score is <= max, or nil if
// every member scores above max.
func (s *SkipList) LastWithScore(max float64) *Node {
	x := s.header
	for i := s.level - 1; i >= 0; i-- {
		for x.levels[i].forward != nil && x.levels[i].forward.Score <= max {
			x = x.levels[i].forward
		}
	}
	if x == s.header {
		return nil
	}
	return x
}

// DeleteRangeByScore removes every node with min <= score <= max, invoking
// onDelete for each (so the caller can also remove it from the companion
// hash map). Returns the number of nodes removed.
func (s *SkipList) DeleteRangeByScore(min, max float64, onDelete func(member string)) int {
	update := s.searchFirstAtOrAbove(min)
	x := update[0].levels[0].forward
	removed := 0
	for x != nil && x.Score <= max {
		next := x.levels[0].forward
		s.deleteNode(x, &update)
		if onDelete != nil {
			onDelete(x.Member)
		}
		removed++
		x = next
	}
	return removed
}

func (s *SkipList) searchFirstAtOrAbove(min float64) (update [MaxLevel]*Node) {
	x := s.header
	for i := s.level - 1; i >= 0; i-- {
		for x.levels[i].forward != nil && x.levels[i].forward.Score < min {
			x = x.levels[i].forward
		}
		update[i] = x
	}
	return update
}

// GetByRank returns the node at 1-based rank r, or nil if out of range.
func (s *SkipList) GetByRank(r int) *Node {
	if r < 1 || r > s.length {
		return nil
	}
	traversed := 0
	x := s.header
	for i := s.level - 1; i >= 0; i-- {
		for x.levels[i].forward != nil && traversed+x.levels[i].span <= r {
			traversed += x.levels[i].span
			x = x.levels[i].forward
		}
		if traversed == r {
			return x
		}
	}
	return nil
}

// Rank returns the 1-based rank of (score, member) and true, or (0, false)
// if it is not present.
func (s *SkipList) Rank(score float64, member string) (int, bool) {
	rank := 0
	x := s.header
	for i := s.level - 1; i >= 0; i-- {
		for x.levels[i].forward != nil &&
			(x.levels[i].forward.Score < score ||
				(x.levels[i].forward.Score == score && x.levels[i].forward.Member <= member)) {
			rank += x.levels[i].span
			x = x.levels[i].forward
		}
		if x != s.header && x.Score == score && x.Member == member {
			return rank, true
		}
	}
	return 0, false
}

// First returns the lowest-ordered node, or nil if the list is empty.
func (s *SkipList) First() *Node { return s.header.levels[0].forward }

// Last returns the highest-ordered node, or nil if the list is empty.
func (s *SkipList) Last() *Node { return s.tail }
