// Package keyspace implements the store's per-database key dictionaries:
// the dict/expires/blockingKeys triple from spec.md §4.3, lazy expiration
// on lookup, and multi-database SELECT/MOVE.
//
// A Database is touched from several goroutines (one per client
// connection, plus the cron loop), but connserver.Server runs every
// command and cron task under its single execMu, so unlike the teacher's
// pkg/metricstore.Level (which guards concurrent access with
// sync.RWMutex because many HTTP handlers read it at once) these maps
// carry no lock of their own.
package keyspace

import (
	"time"

	"github.com/mkvs-io/kvstored/internal/object"
)

// Waiter is a client parked on a blocking list-pop, waiting for a push
// against one of its keys. The keyspace only needs to know how to hand a
// value to it and how it's ordered (FIFO); connserver defines the
// concrete type.
type Waiter interface {
	Deliver(key string, value *object.String)
}

// Database is one numbered keyspace (spec.md §4.3).
type Database struct {
	dict         map[string]object.Value
	expires      map[string]int64 // unix seconds; absent = no TTL
	blockingKeys map[string][]Waiter
}

// NewDatabase returns an empty database.
func NewDatabase() *Database {
	return &Database{
		dict:         make(map[string]object.Value),
		expires:      make(map[string]int64),
		blockingKeys: make(map[string][]Waiter),
	}
}

// expireIfNeeded deletes key in-place if it has a TTL that has passed,
// per spec.md §4.3 "Lazy expiration". Returns true if the key was
// (already, or just now) absent.
func (d *Database) expireIfNeeded(key string, now time.Time) bool {
	exp, hasTTL := d.expires[key]
	if !hasTTL {
		_, exists := d.dict[key]
		return !exists
	}
	if now.Unix() > exp {
		delete(d.dict, key)
		delete(d.expires, key)
		return true
	}
	return false
}

// Lookup returns the value stored at key, applying lazy expiration first.
func (d *Database) Lookup(key string, now time.Time) (object.Value, bool) {
	if d.expireIfNeeded(key, now) {
		return nil, false
	}
	v, ok := d.dict[key]
	return v, ok
}

// Set stores value at key, clearing any previous TTL (as every write
// command that replaces a key's value does, per Redis semantics spec.md
// assumes throughout its SET/LPUSH/SADD/ZADD examples).
func (d *Database) Set(key string, value object.Value) {
	d.dict[key] = value
	delete(d.expires, key)
}

// SetKeepTTL stores value at key without touching any existing TTL (used
// by INCR/DECR/INCRBY/DECRBY when they replace a counter's value).
func (d *Database) SetKeepTTL(key string, value object.Value) {
	d.dict[key] = value
}

// Delete removes key and its TTL, returning true if it was present.
func (d *Database) Delete(key string, now time.Time) bool {
	if d.expireIfNeeded(key, now) {
		return false
	}
	_, existed := d.dict[key]
	delete(d.dict, key)
	delete(d.expires, key)
	return existed
}

// Exists reports whether key is present (after lazy expiration).
func (d *Database) Exists(key string, now time.Time) bool {
	_, ok := d.Lookup(key, now)
	return ok
}

// Expire sets key's absolute expiry time. Returns false if the key does
// not exist.
func (d *Database) Expire(key string, at time.Time, now time.Time) bool {
	if !d.Exists(key, now) {
		return false
	}
	d.expires[key] = at.Unix()
	return true
}

// Persist removes key's TTL, returning true if it had one.
func (d *Database) Persist(key string, now time.Time) bool {
	if !d.Exists(key, now) {
		return false
	}
	if _, hasTTL := d.expires[key]; !hasTTL {
		return false
	}
	delete(d.expires, key)
	return true
}

// TTL returns the remaining lifetime in seconds (-1 if the key has no
// TTL, -2 if the key does not exist), per the conventional semantics
// spec.md's §8 EXPIRE/TTL scenario exercises.
func (d *Database) TTL(key string, now time.Time) int64 {
	if !d.Exists(key, now) {
		return -2
	}
	exp, hasTTL := d.expires[key]
	if !hasTTL {
		return -1
	}
	remaining := exp - now.Unix()
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// ExpireAt returns the absolute unix-seconds expiry and true, or
// (0, false) if the key has no TTL or does not exist.
func (d *Database) ExpireAt(key string, now time.Time) (int64, bool) {
	if !d.Exists(key, now) {
		return 0, false
	}
	exp, hasTTL := d.expires[key]
	return exp, hasTTL
}

// Keys returns every live key (after lazily expiring each one), for KEYS
// and RANDOMKEY to filter/sample from.
func (d *Database) Keys(now time.Time) []string {
	out := make([]string, 0, len(d.dict))
	for k := range d.dict {
		if !d.expireIfNeeded(k, now) {
			out = append(out, k)
		}
	}
	return out
}

// Size returns the number of keys in the dict without forcing a full
// lazy-expire sweep (DBSIZE counts possibly-expired-but-not-yet-reaped keys, matching
// real Redis's own DBSIZE behavior).
func (d *Database) Size() int { return len(d.dict) }

// Flush removes every key, TTL and blocking waiter (FLUSHDB).
func (d *Database) Flush() {
	d.dict = make(map[string]object.Value)
	d.expires = make(map[string]int64)
	d.blockingKeys = make(map[string][]Waiter)
}

// Rename moves the value (and TTL) at src to dst, deleting src. Returns
// false if src does not exist.
func (d *Database) Rename(src, dst string, now time.Time) bool {
	v, ok := d.Lookup(src, now)
	if !ok {
		return false
	}
	d.dict[dst] = v
	if exp, hasTTL := d.expires[src]; hasTTL {
		d.expires[dst] = exp
	} else {
		delete(d.expires, dst)
	}
	delete(d.dict, src)
	delete(d.expires, src)
	return true
}

// Clone returns a deep, independent copy of d: every value is
// object.Clone'd and every TTL is copied, so the result can be handed to
// a background rewriter as the frozen logical snapshot design note §9's
// fork substitute requires (see internal/persistence/rewrite).
func (d *Database) Clone(now time.Time) *Database {
	out := NewDatabase()
	for k := range d.dict {
		if d.expireIfNeeded(k, now) {
			continue
		}
		out.dict[k] = object.Clone(d.dict[k])
	}
	for k, exp := range d.expires {
		if _, ok := out.dict[k]; ok {
			out.expires[k] = exp
		}
	}
	return out
}

// ExpireSample implements the cron-driven active-expiration pass spec.md
// §4.3 describes alongside lazy expiration: it samples up to limit keys
// that carry a TTL and reaps the expired ones, returning how many were
// reaped.
func (d *Database) ExpireSample(limit int, now time.Time) int {
	reaped := 0
	sampled := 0
	for k := range d.expires {
		if sampled >= limit {
			break
		}
		sampled++
		if d.expireIfNeeded(k, now) {
			reaped++
		}
	}
	return reaped
}

// AddBlockingWaiter parks w on key's waiter queue (spec.md §4.3 "Blocking
// on lists").
func (d *Database) AddBlockingWaiter(key string, w Waiter) {
	d.blockingKeys[key] = append(d.blockingKeys[key], w)
}

// PopBlockingWaiter removes and returns the oldest waiter parked on key,
// deleting the queue entry once drained (never left empty, per spec.md
// §4.3's Database field description).
func (d *Database) PopBlockingWaiter(key string) (Waiter, bool) {
	queue, ok := d.blockingKeys[key]
	if !ok || len(queue) == 0 {
		return nil, false
	}
	w := queue[0]
	if len(queue) == 1 {
		delete(d.blockingKeys, key)
	} else {
		d.blockingKeys[key] = queue[1:]
	}
	return w, true
}

// HasWaiters reports whether any client is parked on key.
func (d *Database) HasWaiters(key string) bool {
	return len(d.blockingKeys[key]) > 0
}

// RemoveWaiter removes w from key's waiter queue, deleting the queue
// entry once it is empty. No command or connection path calls it.
func (d *Database) RemoveWaiter(key string, w Waiter) {
	queue, ok := d.blockingKeys[key]
	if !ok {
		return
	}
	for i, cur := range queue {
		if cur == w {
			queue = append(queue[:i], queue[i+1:]...)
			break
		}
	}
	if len(queue) == 0 {
		delete(d.blockingKeys, key)
	} else {
		d.blockingKeys[key] = queue
	}
}
