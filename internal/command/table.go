package command

import (
	"fmt"
	"strings"

	"github.com/mkvs-io/kvstored/internal/resp"
)

// Flags is the per-command bitset from spec.md §4.3.
type Flags uint8

const (
	FlagInline Flags = 1 << iota
	FlagBulk
	FlagDenyOOM
)

// Handler executes one command, writing its reply into ctx.Out.
type Handler func(ctx *Context, args [][]byte)

// Spec describes one command's dispatch metadata.
type Spec struct {
	Name string
	// Arity >= 0 requires an exact argument count (including the command
	// name itself); Arity < 0 means "at least |Arity|" (spec.md §4.3).
	Arity   int
	Flags   Flags
	Handler Handler
}

func (s *Spec) arityOK(argc int) bool {
	if s.Arity >= 0 {
		return argc == s.Arity
	}
	return argc >= -s.Arity
}

// Table is the static dispatch map, keyed by lowercase command name.
var Table = map[string]*Spec{}

func register(name string, arity int, flags Flags, h Handler) {
	Table[name] = &Spec{Name: name, Arity: arity, Flags: flags, Handler: h}
}

// Lookup returns the command's spec and true, or (nil, false) if unknown.
func Lookup(name string) (*Spec, bool) {
	s, ok := Table[strings.ToLower(name)]
	return s, ok
}

// Dispatch implements spec.md §4.3's "Command lookup path": the
// requirepass gate (only AUTH, PING and QUIT pass while unauthenticated),
// unknown command, arity mismatch, DenyOOM-over-cap, or handler execution
// — in that order. Each failed check appends one error reply to ctx.Out;
// an empty args slice appends nothing, and the handler writes its own
// reply (SHUTDOWN writes none).
func Dispatch(ctx *Context, args [][]byte) {
	if len(args) == 0 {
		return
	}
	name := strings.ToLower(string(args[0]))

	if ctx.RequirePass != "" && !*ctx.Authenticated && name != "auth" && name != "ping" && name != "quit" {
		ctx.Out = resp.Error(ctx.Out, "ERR operation not permitted")
		return
	}

	spec, ok := Table[name]
	if !ok {
		ctx.Out = resp.Error(ctx.Out, fmt.Sprintf("ERR unknown command '%s'", args[0]))
		return
	}
	if !spec.arityOK(len(args)) {
		ctx.Out = resp.Error(ctx.Out, fmt.Sprintf("ERR wrong number of arguments for '%s' command", spec.Name))
		return
	}
	if spec.Flags&FlagDenyOOM != 0 && ctx.MaxMemory > 0 && ctx.UsedMemory != nil && ctx.UsedMemory() > ctx.MaxMemory {
		ctx.Out = resp.Error(ctx.Out, "ERR command not allowed when used memory > 'maxmemory'")
		return
	}
	spec.Handler(ctx, args)
}
