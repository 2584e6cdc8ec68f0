package keyspace

import (
	"fmt"
	"time"

	"github.com/mkvs-io/kvstored/internal/object"
)

// Store holds every numbered database (spec.md §4.3 "Multi-database
// SELECT/MOVE").
type Store struct {
	dbs []*Database
}

// NewStore returns a Store with n empty databases.
func NewStore(n int) *Store {
	dbs := make([]*Database, n)
	for i := range dbs {
		dbs[i] = NewDatabase()
	}
	return &Store{dbs: dbs}
}

// Count returns the number of configured databases.
func (s *Store) Count() int { return len(s.dbs) }

// DB returns database index, or an error if out of range (SELECT).
func (s *Store) DB(index int) (*Database, error) {
	if index < 0 || index >= len(s.dbs) {
		return nil, fmt.Errorf("DB index is out of range")
	}
	return s.dbs[index], nil
}

// Move re-homes key from srcIndex to dstIndex, failing if the indices are
// equal, the key is absent in src, or the key already exists in dst, per
// spec.md §4.3 "MOVE atomically re-homes a key".
func (s *Store) Move(srcIndex, dstIndex int, key string, now time.Time) (bool, error) {
	if srcIndex == dstIndex {
		return false, fmt.Errorf("source and destination objects are the same")
	}
	src, err := s.DB(srcIndex)
	if err != nil {
		return false, err
	}
	dst, err := s.DB(dstIndex)
	if err != nil {
		return false, err
	}
	v, ok := src.Lookup(key, now)
	if !ok {
		return false, nil
	}
	if _, exists := dst.Lookup(key, now); exists {
		return false, nil
	}
	var ttl *int64
	if exp, hasTTL := src.expires[key]; hasTTL {
		ttl = &exp
	}
	dst.dict[key] = v
	if ttl != nil {
		dst.expires[key] = *ttl
	}
	delete(src.dict, key)
	delete(src.expires, key)
	return true, nil
}

// Clone returns a deep, independent copy of every database in s — the
// frozen point-in-time keyspace a background snapshot/rewrite goroutine
// serializes while the main loop keeps mutating the original (see
// Database.Clone and internal/persistence/rewrite).
func (s *Store) Clone(now time.Time) *Store {
	out := &Store{dbs: make([]*Database, len(s.dbs))}
	for i, db := range s.dbs {
		out.dbs[i] = db.Clone(now)
	}
	return out
}

// FlushAll empties every database (FLUSHALL).
func (s *Store) FlushAll() {
	for _, db := range s.dbs {
		db.Flush()
	}
}

// ValueKind exposes a value's kind string for TYPE, without requiring
// callers to import package object just to type-switch.
func ValueKind(v object.Value) string {
	if v == nil {
		return "none"
	}
	return v.Kind().String()
}
