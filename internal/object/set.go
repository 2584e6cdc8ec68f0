package object

import "math/rand/v2"

// Set is an unordered collection of unique String members, implemented as
// a Go map keyed by the member's decoded byte form (spec.md §4.3).
type Set struct {
	members map[string]struct{}
}

func (*Set) Kind() Kind { return KindSet }

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{members: make(map[string]struct{})}
}

// Len returns the cardinality (SCARD).
func (s *Set) Len() int { return len(s.members) }

// Add inserts a member, returning true if it was newly added (SADD).
func (s *Set) Add(member string) bool {
	if _, ok := s.members[member]; ok {
		return false
	}
	s.members[member] = struct{}{}
	return true
}

// Remove deletes a member, returning true if it was present (SREM).
func (s *Set) Remove(member string) bool {
	if _, ok := s.members[member]; !ok {
		return false
	}
	delete(s.members, member)
	return true
}

// Contains reports membership (SISMEMBER).
func (s *Set) Contains(member string) bool {
	_, ok := s.members[member]
	return ok
}

// Members returns every member, in unspecified order (SMEMBERS).
func (s *Set) Members() []string {
	out := make([]string, 0, len(s.members))
	for m := range s.members {
		out = append(out, m)
	}
	return out
}

// Pop removes and returns one uniformly-random member (SPOP). Returns
// ("", false) if the set is empty, per the Open Question decision in
// SPEC_FULL.md §11: sampling draws from math/rand/v2 uniformly over the
// live member set rather than over bucket order.
func (s *Set) Pop() (string, bool) {
	m, ok := s.RandomMember()
	if !ok {
		return "", false
	}
	delete(s.members, m)
	return m, true
}

// RandomMember returns one uniformly-random member without removing it
// (SRANDMEMBER with no count).
func (s *Set) RandomMember() (string, bool) {
	n := len(s.members)
	if n == 0 {
		return "", false
	}
	target := rand.IntN(n)
	i := 0
	for m := range s.members {
		if i == target {
			return m, true
		}
		i++
	}
	panic("unreachable: map iteration shorter than its own length")
}

// RandomMembers returns up to |count| members (SRANDMEMBER with a count).
// A non-negative count returns distinct members, capped at the set's
// cardinality. A negative count returns -count members allowing
// repeats, per spec.md §4.3.
func (s *Set) RandomMembers(count int) []string {
	if count >= 0 {
		all := s.Members()
		rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
		if count < len(all) {
			all = all[:count]
		}
		return all
	}
	n := -count
	out := make([]string, 0, n)
	all := s.Members()
	if len(all) == 0 {
		return out
	}
	for i := 0; i < n; i++ {
		out = append(out, all[rand.IntN(len(all))])
	}
	return out
}

// Clone returns an independent deep copy (see package-level Clone).
func (s *Set) Clone() *Set {
	out := NewSet()
	for m := range s.members {
		out.members[m] = struct{}{}
	}
	return out
}

// Inter returns the intersection of s with others (SINTER).
func Inter(sets ...*Set) *Set {
	out := NewSet()
	if len(sets) == 0 {
		return out
	}
	smallest := sets[0]
	for _, s := range sets[1:] {
		if s.Len() < smallest.Len() {
			smallest = s
		}
	}
candidate:
	for m := range smallest.members {
		for _, s := range sets {
			if s == smallest {
				continue
			}
			if !s.Contains(m) {
				continue candidate
			}
		}
		out.members[m] = struct{}{}
	}
	return out
}

// Union returns the union of sets (SUNION).
func Union(sets ...*Set) *Set {
	out := NewSet()
	for _, s := range sets {
		for m := range s.members {
			out.members[m] = struct{}{}
		}
	}
	return out
}

// Diff returns the members of the first set not present in any other
// (SDIFF).
func Diff(first *Set, rest ...*Set) *Set {
	out := NewSet()
outer:
	for m := range first.members {
		for _, s := range rest {
			if s.Contains(m) {
				continue outer
			}
		}
		out.members[m] = struct{}{}
	}
	return out
}
