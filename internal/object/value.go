// Package object implements the four polymorphic value kinds a key can
// hold (String, List, Set, ScoreSet) behind a small, closed dispatch
// surface, per spec.md §3/§9 ("polymorphic values... avoid open
// inheritance: the set of value kinds is closed and known at compile
// time").
package object

// Kind identifies which of the four value engines a Value is.
type Kind int

const (
	KindString Kind = iota
	KindList
	KindSet
	KindScoreSet
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindScoreSet:
		return "zset"
	default:
		return "unknown"
	}
}

// Value is the tagged union every key maps to. Concrete kinds are String,
// List, Set and ScoreSet below; no other implementation is expected or
// supported — callers type-switch or call Kind() rather than relying on
// interface satisfaction to discover behavior.
type Value interface {
	Kind() Kind
}

// Clone returns a deep copy of v. Used by internal/persistence/rewrite to
// take the frozen, point-in-time logical copy of the keyspace that stands
// in for fork()'s copy-on-write isolation (design note §9 "Copy-on-write
// snapshotting"): without a real child process, the background rewriter
// must own values the main loop can no longer mutate out from under it.
func Clone(v Value) Value {
	switch val := v.(type) {
	case *String:
		return val.Clone()
	case *List:
		return val.Clone()
	case *Set:
		return val.Clone()
	case *ScoreSet:
		return val.Clone()
	default:
		panic("object: Clone of unknown value kind")
	}
}
