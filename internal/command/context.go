// Package command implements the dispatcher: a static name→{handler,
// arity, flags} table (spec.md §4.3) and the handlers for the full
// command surface in SPEC_FULL.md §4.1.
package command

import (
	"time"

	"github.com/mkvs-io/kvstored/internal/keyspace"
)

// Context is the per-dispatch environment a handler runs against. It
// bundles exactly what spec.md §4.3/§5 says a command may touch: the
// current database (via Store+DBIndex, so SELECT/MOVE can change it),
// the reply buffer, and the server-wide counters handlers must update
// (Dirty) or consult (UsedMemory/MaxMemory for DenyOOM).
type Context struct {
	Store   *keyspace.Store
	DBIndex int

	Out []byte // reply bytes accumulate here; handlers append, never replace

	Now func() time.Time

	Dirty       *int64 // incremented by every mutating command, per spec.md §4.5.3's save-params rule
	UsedMemory  func() int64
	MaxMemory   int64 // 0 means unlimited

	// Authenticated reports whether the connection has passed AUTH, when
	// requirepass is configured. Commands other than AUTH/PING/QUIT are
	// rejected until this is true.
	Authenticated *bool
	RequirePass   string

	// Server-level operations a handful of commands need access to, kept
	// as thin callbacks so this package does not import internal/server
	// and create an import cycle.
	Shutdown    func()
	Save        func() error
	BGSave      func() error
	BGRewriteAOF func() error
	LastSave    func() time.Time
	Info        func() string
}

func (c *Context) db() *keyspace.Database {
	d, err := c.Store.DB(c.DBIndex)
	if err != nil {
		// The dispatcher never lets DBIndex drift out of range; a SELECT
		// to an invalid index fails before DBIndex is updated.
		panic("command: context DBIndex out of range: " + err.Error())
	}
	return d
}

func (c *Context) markDirty() {
	if c.Dirty != nil {
		*c.Dirty++
	}
}
