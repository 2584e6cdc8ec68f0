package command

import (
	"math/rand/v2"
	"path"
	"time"

	"github.com/mkvs-io/kvstored/internal/keyspace"
	"github.com/mkvs-io/kvstored/internal/resp"
)

func init() {
	register("del", -2, FlagInline, cmdDel)
	register("exists", 2, FlagInline, cmdExists)
	register("type", 2, FlagInline, cmdType)
	register("expire", 3, FlagInline, cmdExpire)
	register("expireat", 3, FlagInline, cmdExpireAt)
	register("pexpire", 3, FlagInline, cmdPExpire)
	register("ttl", 2, FlagInline, cmdTTL)
	register("persist", 2, FlagInline, cmdPersist)
	register("rename", 3, FlagInline, cmdRename)
	register("renamenx", 3, FlagInline, cmdRenameNX)
	register("keys", 2, FlagInline, cmdKeys)
	register("randomkey", 1, FlagInline, cmdRandomKey)
	register("select", 2, FlagInline, cmdSelect)
	register("move", 3, FlagInline, cmdMove)
	register("flushdb", 1, FlagInline, cmdFlushDB)
	register("flushall", 1, FlagInline, cmdFlushAll)
	register("dbsize", 1, FlagInline, cmdDBSize)
}

func cmdDel(ctx *Context, args [][]byte) {
	var n int64
	for _, k := range args[1:] {
		if ctx.db().Delete(string(k), ctx.Now()) {
			n++
		}
	}
	if n > 0 {
		ctx.markDirty()
	}
	replyInt(ctx, n)
}

func cmdExists(ctx *Context, args [][]byte) {
	if ctx.db().Exists(string(args[1]), ctx.Now()) {
		replyInt(ctx, 1)
		return
	}
	replyInt(ctx, 0)
}

func cmdType(ctx *Context, args [][]byte) {
	v, ok := ctx.db().Lookup(string(args[1]), ctx.Now())
	if !ok {
		ctx.Out = resp.Status(ctx.Out, "none")
		return
	}
	ctx.Out = resp.Status(ctx.Out, keyspace.ValueKind(v))
}

func cmdExpire(ctx *Context, args [][]byte) {
	secs, ok := parseInt(args[2])
	if !ok {
		replyErr(ctx, "ERR value is not an integer or out of range")
		return
	}
	at := ctx.Now().Add(time.Duration(secs) * time.Second)
	setExpiry(ctx, string(args[1]), at)
}

func cmdExpireAt(ctx *Context, args [][]byte) {
	unixSecs, ok := parseInt(args[2])
	if !ok {
		replyErr(ctx, "ERR value is not an integer or out of range")
		return
	}
	setExpiry(ctx, string(args[1]), time.Unix(unixSecs, 0))
}

func cmdPExpire(ctx *Context, args [][]byte) {
	ms, ok := parseInt(args[2])
	if !ok {
		replyErr(ctx, "ERR value is not an integer or out of range")
		return
	}
	at := ctx.Now().Add(time.Duration(ms) * time.Millisecond)
	setExpiry(ctx, string(args[1]), at)
}

func setExpiry(ctx *Context, key string, at time.Time) {
	if ctx.db().Expire(key, at, ctx.Now()) {
		ctx.markDirty()
		replyInt(ctx, 1)
		return
	}
	replyInt(ctx, 0)
}

func cmdTTL(ctx *Context, args [][]byte) {
	replyInt(ctx, ctx.db().TTL(string(args[1]), ctx.Now()))
}

func cmdPersist(ctx *Context, args [][]byte) {
	if ctx.db().Persist(string(args[1]), ctx.Now()) {
		ctx.markDirty()
		replyInt(ctx, 1)
		return
	}
	replyInt(ctx, 0)
}

func cmdRename(ctx *Context, args [][]byte) {
	if !ctx.db().Rename(string(args[1]), string(args[2]), ctx.Now()) {
		replyErr(ctx, "ERR no such key")
		return
	}
	ctx.markDirty()
	replyOK(ctx)
}

func cmdRenameNX(ctx *Context, args [][]byte) {
	if ctx.db().Exists(string(args[2]), ctx.Now()) {
		replyInt(ctx, 0)
		return
	}
	if !ctx.db().Rename(string(args[1]), string(args[2]), ctx.Now()) {
		replyErr(ctx, "ERR no such key")
		return
	}
	ctx.markDirty()
	replyInt(ctx, 1)
}

func cmdKeys(ctx *Context, args [][]byte) {
	pattern := string(args[1])
	all := ctx.db().Keys(ctx.Now())
	var matched [][]byte
	for _, k := range all {
		if ok, _ := path.Match(pattern, k); ok {
			matched = append(matched, []byte(k))
		}
	}
	ctx.Out = resp.BulkArray(ctx.Out, matched)
}

func cmdRandomKey(ctx *Context, args [][]byte) {
	all := ctx.db().Keys(ctx.Now())
	if len(all) == 0 {
		replyNilBulk(ctx)
		return
	}
	replyBulk(ctx, []byte(all[rand.IntN(len(all))]))
}

func cmdSelect(ctx *Context, args [][]byte) {
	idx, ok := parseInt(args[1])
	if !ok {
		replyErr(ctx, "ERR value is not an integer or out of range")
		return
	}
	if _, err := ctx.Store.DB(int(idx)); err != nil {
		replyErr(ctx, "ERR DB index is out of range")
		return
	}
	ctx.DBIndex = int(idx)
	replyOK(ctx)
}

func cmdMove(ctx *Context, args [][]byte) {
	dst, ok := parseInt(args[2])
	if !ok {
		replyErr(ctx, "ERR value is not an integer or out of range")
		return
	}
	moved, err := ctx.Store.Move(ctx.DBIndex, int(dst), string(args[1]), ctx.Now())
	if err != nil {
		replyErr(ctx, "ERR "+err.Error())
		return
	}
	if moved {
		ctx.markDirty()
		replyInt(ctx, 1)
		return
	}
	replyInt(ctx, 0)
}

func cmdFlushDB(ctx *Context, args [][]byte) {
	ctx.db().Flush()
	ctx.markDirty()
	replyOK(ctx)
}

func cmdFlushAll(ctx *Context, args [][]byte) {
	ctx.Store.FlushAll()
	ctx.markDirty()
	replyOK(ctx)
}

func cmdDBSize(ctx *Context, args [][]byte) {
	replyInt(ctx, int64(ctx.db().Size()))
}
