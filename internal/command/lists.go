package command

import (
	"github.com/mkvs-io/kvstored/internal/object"
	"github.com/mkvs-io/kvstored/internal/resp"
)

func init() {
	register("lpush", -3, FlagBulk|FlagDenyOOM, cmdLPush)
	register("rpush", -3, FlagBulk|FlagDenyOOM, cmdRPush)
	register("lpop", 2, FlagInline, cmdLPop)
	register("rpop", 2, FlagInline, cmdRPop)
	register("llen", 2, FlagInline, cmdLLen)
	register("lrange", 4, FlagInline, cmdLRange)
	register("ltrim", 4, FlagInline, cmdLTrim)
	register("lindex", 3, FlagInline, cmdLIndex)
	register("lset", 4, FlagBulk, cmdLSet)
	register("lrem", 4, FlagBulk, cmdLRem)
	register("linsert", 5, FlagBulk|FlagDenyOOM, cmdLInsert)
}

func getOrCreateList(ctx *Context, key string) (*object.List, bool) {
	l, ok, wrongType := lookupList(ctx, key)
	if wrongType {
		replyWrongType(ctx)
		return nil, false
	}
	if !ok {
		l = object.NewList()
		ctx.db().Set(key, l)
	}
	return l, true
}

func cmdLPush(ctx *Context, args [][]byte) {
	key := string(args[1])
	l, ok := getOrCreateList(ctx, key)
	if !ok {
		return
	}
	for _, v := range args[2:] {
		l.PushLeft(object.NewString(v))
	}
	ctx.markDirty()
	replyInt(ctx, int64(l.Len()))
}

func cmdRPush(ctx *Context, args [][]byte) {
	key := string(args[1])
	l, ok := getOrCreateList(ctx, key)
	if !ok {
		return
	}
	for _, v := range args[2:] {
		l.PushRight(object.NewString(v))
	}
	ctx.markDirty()
	replyInt(ctx, int64(l.Len()))
}

func cmdLPop(ctx *Context, args [][]byte) {
	popList(ctx, string(args[1]), true)
}

func cmdRPop(ctx *Context, args [][]byte) {
	popList(ctx, string(args[1]), false)
}

func popList(ctx *Context, key string, fromLeft bool) {
	l, ok, wrongType := lookupList(ctx, key)
	if wrongType {
		replyWrongType(ctx)
		return
	}
	if !ok {
		replyNilBulk(ctx)
		return
	}
	var v *object.String
	var popped bool
	if fromLeft {
		v, popped = l.PopLeft()
	} else {
		v, popped = l.PopRight()
	}
	if !popped {
		replyNilBulk(ctx)
		return
	}
	if l.Len() == 0 {
		ctx.db().Delete(key, ctx.Now())
	}
	ctx.markDirty()
	replyBulk(ctx, v.Bytes())
}

func cmdLLen(ctx *Context, args [][]byte) {
	l, ok, wrongType := lookupList(ctx, string(args[1]))
	if wrongType {
		replyWrongType(ctx)
		return
	}
	if !ok {
		replyInt(ctx, 0)
		return
	}
	replyInt(ctx, int64(l.Len()))
}

func cmdLRange(ctx *Context, args [][]byte) {
	l, ok, wrongType := lookupList(ctx, string(args[1]))
	if wrongType {
		replyWrongType(ctx)
		return
	}
	if !ok {
		ctx.Out = resp.MultiBulkHeader(ctx.Out, 0)
		return
	}
	start, ok1 := parseInt(args[2])
	end, ok2 := parseInt(args[3])
	if !ok1 || !ok2 {
		replyErr(ctx, "ERR value is not an integer or out of range")
		return
	}
	items := l.Range(int(start), int(end))
	raw := make([][]byte, len(items))
	for i, v := range items {
		raw[i] = v.Bytes()
	}
	ctx.Out = resp.BulkArray(ctx.Out, raw)
}

func cmdLTrim(ctx *Context, args [][]byte) {
	l, ok, wrongType := lookupList(ctx, string(args[1]))
	if wrongType {
		replyWrongType(ctx)
		return
	}
	if !ok {
		replyOK(ctx)
		return
	}
	start, ok1 := parseInt(args[2])
	end, ok2 := parseInt(args[3])
	if !ok1 || !ok2 {
		replyErr(ctx, "ERR value is not an integer or out of range")
		return
	}
	l.Trim(int(start), int(end))
	if l.Len() == 0 {
		ctx.db().Delete(string(args[1]), ctx.Now())
	}
	ctx.markDirty()
	replyOK(ctx)
}

func cmdLIndex(ctx *Context, args [][]byte) {
	l, ok, wrongType := lookupList(ctx, string(args[1]))
	if wrongType {
		replyWrongType(ctx)
		return
	}
	if !ok {
		replyNilBulk(ctx)
		return
	}
	idx, okIdx := parseInt(args[2])
	if !okIdx {
		replyErr(ctx, "ERR value is not an integer or out of range")
		return
	}
	v, found := l.Index(int(idx))
	if !found {
		replyNilBulk(ctx)
		return
	}
	replyBulk(ctx, v.Bytes())
}

func cmdLSet(ctx *Context, args [][]byte) {
	l, ok, wrongType := lookupList(ctx, string(args[1]))
	if wrongType {
		replyWrongType(ctx)
		return
	}
	if !ok {
		replyErr(ctx, "ERR no such key")
		return
	}
	idx, okIdx := parseInt(args[2])
	if !okIdx {
		replyErr(ctx, "ERR value is not an integer or out of range")
		return
	}
	if !l.Set(int(idx), object.NewString(args[3])) {
		replyErr(ctx, "ERR index out of range")
		return
	}
	ctx.markDirty()
	replyOK(ctx)
}

func cmdLRem(ctx *Context, args [][]byte) {
	l, ok, wrongType := lookupList(ctx, string(args[1]))
	if wrongType {
		replyWrongType(ctx)
		return
	}
	if !ok {
		replyInt(ctx, 0)
		return
	}
	count, okCount := parseInt(args[2])
	if !okCount {
		replyErr(ctx, "ERR value is not an integer or out of range")
		return
	}
	removed := l.RemoveEqual(int(count), object.NewString(args[3]))
	if l.Len() == 0 {
		ctx.db().Delete(string(args[1]), ctx.Now())
	}
	if removed > 0 {
		ctx.markDirty()
	}
	replyInt(ctx, int64(removed))
}

func cmdLInsert(ctx *Context, args [][]byte) {
	l, ok, wrongType := lookupList(ctx, string(args[1]))
	if wrongType {
		replyWrongType(ctx)
		return
	}
	if !ok {
		replyInt(ctx, 0)
		return
	}
	before := equalFoldBytes(args[2], []byte("before"))
	after := equalFoldBytes(args[2], []byte("after"))
	if !before && !after {
		replyErr(ctx, "ERR syntax error")
		return
	}
	pivot := object.NewString(args[3])
	value := object.NewString(args[4])
	var inserted bool
	if before {
		inserted = l.InsertBefore(pivot, value)
	} else {
		inserted = l.InsertAfter(pivot, value)
	}
	if !inserted {
		replyInt(ctx, -1)
		return
	}
	ctx.markDirty()
	replyInt(ctx, int64(l.Len()))
}

func equalFoldBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
