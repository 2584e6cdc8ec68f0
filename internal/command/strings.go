package command

import (
	"github.com/mkvs-io/kvstored/internal/object"
	"github.com/mkvs-io/kvstored/internal/resp"
)

func init() {
	register("set", -3, FlagBulk|FlagDenyOOM, cmdSet)
	register("get", 2, FlagInline, cmdGet)
	register("setnx", 3, FlagBulk|FlagDenyOOM, cmdSetNX)
	register("getset", 3, FlagBulk|FlagDenyOOM, cmdGetSet)
	register("append", 3, FlagBulk|FlagDenyOOM, cmdAppend)
	register("strlen", 2, FlagInline, cmdStrlen)
	register("mset", -3, FlagBulk|FlagDenyOOM, cmdMSet)
	register("mget", -2, FlagInline, cmdMGet)
	register("incr", 2, FlagInline|FlagDenyOOM, cmdIncr)
	register("decr", 2, FlagInline|FlagDenyOOM, cmdDecr)
	register("incrby", 3, FlagInline|FlagDenyOOM, cmdIncrBy)
	register("decrby", 3, FlagInline|FlagDenyOOM, cmdDecrBy)
	register("getrange", 4, FlagInline, cmdGetRange)
	register("setrange", 4, FlagBulk|FlagDenyOOM, cmdSetRange)
}

func cmdSet(ctx *Context, args [][]byte) {
	key, value := string(args[1]), args[2]
	ctx.db().Set(key, object.NewString(value))
	ctx.markDirty()
	replyOK(ctx)
}

func cmdGet(ctx *Context, args [][]byte) {
	s, ok, wrongType := lookupString(ctx, string(args[1]))
	if wrongType {
		replyWrongType(ctx)
		return
	}
	if !ok {
		replyNilBulk(ctx)
		return
	}
	replyBulk(ctx, s.Bytes())
}

func cmdSetNX(ctx *Context, args [][]byte) {
	key := string(args[1])
	if ctx.db().Exists(key, ctx.Now()) {
		replyInt(ctx, 0)
		return
	}
	ctx.db().Set(key, object.NewString(args[2]))
	ctx.markDirty()
	replyInt(ctx, 1)
}

func cmdGetSet(ctx *Context, args [][]byte) {
	key := string(args[1])
	old, ok, wrongType := lookupString(ctx, key)
	if wrongType {
		replyWrongType(ctx)
		return
	}
	ctx.db().Set(key, object.NewString(args[2]))
	ctx.markDirty()
	if !ok {
		replyNilBulk(ctx)
		return
	}
	replyBulk(ctx, old.Bytes())
}

func cmdAppend(ctx *Context, args [][]byte) {
	key := string(args[1])
	s, ok, wrongType := lookupString(ctx, key)
	if wrongType {
		replyWrongType(ctx)
		return
	}
	if !ok {
		s = object.NewString(nil)
		ctx.db().Set(key, s)
	}
	s.SetBytes(append(append([]byte(nil), s.Bytes()...), args[2]...))
	ctx.markDirty()
	replyInt(ctx, int64(s.Len()))
}

func cmdStrlen(ctx *Context, args [][]byte) {
	s, ok, wrongType := lookupString(ctx, string(args[1]))
	if wrongType {
		replyWrongType(ctx)
		return
	}
	if !ok {
		replyInt(ctx, 0)
		return
	}
	replyInt(ctx, int64(s.Len()))
}

func cmdMSet(ctx *Context, args [][]byte) {
	pairs := args[1:]
	if len(pairs)%2 != 0 {
		replyErr(ctx, "ERR wrong number of arguments for 'mset' command")
		return
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		ctx.db().Set(string(pairs[i]), object.NewString(pairs[i+1]))
	}
	ctx.markDirty()
	replyOK(ctx)
}

func cmdMGet(ctx *Context, args [][]byte) {
	ctx.Out = resp.MultiBulkHeader(ctx.Out, len(args)-1)
	for _, k := range args[1:] {
		s, ok, wrongType := lookupString(ctx, string(k))
		if ok && !wrongType {
			replyBulk(ctx, s.Bytes())
		} else {
			replyNilBulk(ctx)
		}
	}
}

func cmdIncr(ctx *Context, args [][]byte) { incrDecrBy(ctx, string(args[1]), 1) }
func cmdDecr(ctx *Context, args [][]byte) { incrDecrBy(ctx, string(args[1]), -1) }

func cmdIncrBy(ctx *Context, args [][]byte) {
	delta, ok := parseInt(args[2])
	if !ok {
		replyErr(ctx, "ERR value is not an integer or out of range")
		return
	}
	incrDecrBy(ctx, string(args[1]), delta)
}

func cmdDecrBy(ctx *Context, args [][]byte) {
	delta, ok := parseInt(args[2])
	if !ok {
		replyErr(ctx, "ERR value is not an integer or out of range")
		return
	}
	incrDecrBy(ctx, string(args[1]), -delta)
}

func incrDecrBy(ctx *Context, key string, delta int64) {
	s, ok, wrongType := lookupString(ctx, key)
	if wrongType {
		replyWrongType(ctx)
		return
	}
	var cur int64
	if ok {
		n, isInt := s.Int64()
		if !isInt {
			replyErr(ctx, "ERR value is not an integer or out of range")
			return
		}
		cur = n
	}
	next := cur + delta
	ctx.db().SetKeepTTL(key, object.NewStringFromInt(next))
	ctx.markDirty()
	replyInt(ctx, next)
}

func cmdGetRange(ctx *Context, args [][]byte) {
	s, ok, wrongType := lookupString(ctx, string(args[1]))
	if wrongType {
		replyWrongType(ctx)
		return
	}
	if !ok {
		replyBulk(ctx, nil)
		return
	}
	start, ok1 := parseInt(args[2])
	end, ok2 := parseInt(args[3])
	if !ok1 || !ok2 {
		replyErr(ctx, "ERR value is not an integer or out of range")
		return
	}
	b := s.Bytes()
	lo, hi, empty := clampStringRange(int(start), int(end), len(b))
	if empty {
		replyBulk(ctx, nil)
		return
	}
	replyBulk(ctx, b[lo:hi+1])
}

func cmdSetRange(ctx *Context, args [][]byte) {
	offset, ok := parseInt(args[2])
	if !ok || offset < 0 {
		replyErr(ctx, "ERR offset is out of range")
		return
	}
	key := string(args[1])
	patch := args[3]
	s, ok2, wrongType := lookupString(ctx, key)
	if wrongType {
		replyWrongType(ctx)
		return
	}
	var cur []byte
	if ok2 {
		cur = append([]byte(nil), s.Bytes()...)
	}
	needed := int(offset) + len(patch)
	if len(cur) < needed {
		grown := make([]byte, needed)
		copy(grown, cur)
		cur = grown
	}
	copy(cur[offset:], patch)
	if !ok2 {
		s = object.NewString(nil)
		ctx.db().Set(key, s)
	}
	s.SetBytes(cur)
	ctx.markDirty()
	replyInt(ctx, int64(len(cur)))
}

// clampStringRange mirrors List's negative-index clamping for GETRANGE
// (spec.md §4.2's List semantics generalize directly to byte ranges).
func clampStringRange(start, end, length int) (lo, hi int, empty bool) {
	if start < 0 {
		start += length
	}
	if end < 0 {
		end += length
	}
	if start < 0 {
		start = 0
	}
	if end >= length {
		end = length - 1
	}
	if length == 0 || start > end {
		return 0, 0, true
	}
	return start, end, false
}
