package command

import (
	"github.com/mkvs-io/kvstored/internal/object"
	"github.com/mkvs-io/kvstored/internal/resp"
)

func init() {
	register("sadd", -3, FlagBulk|FlagDenyOOM, cmdSAdd)
	register("srem", -3, FlagBulk, cmdSRem)
	register("scard", 2, FlagInline, cmdSCard)
	register("sismember", 3, FlagBulk, cmdSIsMember)
	register("smembers", 2, FlagInline, cmdSMembers)
	register("spop", 2, FlagInline, cmdSPop)
	register("srandmember", -2, FlagInline, cmdSRandMember)
	register("sinter", -2, FlagInline, cmdSInter)
	register("sunion", -2, FlagInline, cmdSUnion)
	register("sdiff", -2, FlagInline, cmdSDiff)
	register("sinterstore", -3, FlagInline|FlagDenyOOM, cmdSInterStore)
	register("sunionstore", -3, FlagInline|FlagDenyOOM, cmdSUnionStore)
	register("sdiffstore", -3, FlagInline|FlagDenyOOM, cmdSDiffStore)
}

func getOrCreateSet(ctx *Context, key string) (*object.Set, bool) {
	s, ok, wrongType := lookupSet(ctx, key)
	if wrongType {
		replyWrongType(ctx)
		return nil, false
	}
	if !ok {
		s = object.NewSet()
		ctx.db().Set(key, s)
	}
	return s, true
}

func cmdSAdd(ctx *Context, args [][]byte) {
	key := string(args[1])
	s, ok := getOrCreateSet(ctx, key)
	if !ok {
		return
	}
	var added int64
	for _, m := range args[2:] {
		if s.Add(string(m)) {
			added++
		}
	}
	if added > 0 {
		ctx.markDirty()
	}
	replyInt(ctx, added)
}

func cmdSRem(ctx *Context, args [][]byte) {
	key := string(args[1])
	s, ok, wrongType := lookupSet(ctx, key)
	if wrongType {
		replyWrongType(ctx)
		return
	}
	if !ok {
		replyInt(ctx, 0)
		return
	}
	var removed int64
	for _, m := range args[2:] {
		if s.Remove(string(m)) {
			removed++
		}
	}
	if s.Len() == 0 {
		ctx.db().Delete(key, ctx.Now())
	}
	if removed > 0 {
		ctx.markDirty()
	}
	replyInt(ctx, removed)
}

func cmdSCard(ctx *Context, args [][]byte) {
	s, ok, wrongType := lookupSet(ctx, string(args[1]))
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

func cmdSIsMember(ctx *Context, args [][]byte) {
	s, ok, wrongType := lookupSet(ctx, string(args[1]))
	if wrongType {
		replyWrongType(ctx)
		return
	}
	if ok && s.Contains(string(args[2])) {
		replyInt(ctx, 1)
		return
	}
	replyInt(ctx, 0)
}

func cmdSMembers(ctx *Context, args [][]byte) {
	s, ok, wrongType := lookupSet(ctx, string(args[1]))
	if wrongType {
		replyWrongType(ctx)
		return
	}
	if !ok {
		ctx.Out = resp.MultiBulkHeader(ctx.Out, 0)
		return
	}
	writeMembers(ctx, s.Members())
}

func writeMembers(ctx *Context, members []string) {
	raw := make([][]byte, len(members))
	for i, m := range members {
		raw[i] = []byte(m)
	}
	ctx.Out = resp.BulkArray(ctx.Out, raw)
}

func cmdSPop(ctx *Context, args [][]byte) {
	key := string(args[1])
	s, ok, wrongType := lookupSet(ctx, key)
	if wrongType {
		replyWrongType(ctx)
		return
	}
	if !ok {
		replyNilBulk(ctx)
		return
	}
	m, popped := s.Pop()
	if !popped {
		replyNilBulk(ctx)
		return
	}
	if s.Len() == 0 {
		ctx.db().Delete(key, ctx.Now())
	}
	ctx.markDirty()
	replyBulk(ctx, []byte(m))
}

func cmdSRandMember(ctx *Context, args [][]byte) {
	s, ok, wrongType := lookupSet(ctx, string(args[1]))
	if wrongType {
		replyWrongType(ctx)
		return
	}
	if len(args) == 2 {
		if !ok {
			replyNilBulk(ctx)
			return
		}
		m, found := s.RandomMember()
		if !found {
			replyNilBulk(ctx)
			return
		}
		replyBulk(ctx, []byte(m))
		return
	}
	count, okCount := parseInt(args[2])
	if !okCount {
		replyErr(ctx, "ERR value is not an integer or out of range")
		return
	}
	if !ok {
		ctx.Out = resp.MultiBulkHeader(ctx.Out, 0)
		return
	}
	writeMembers(ctx, s.RandomMembers(int(count)))
}

func fetchSets(ctx *Context, keys [][]byte) ([]*object.Set, bool) {
	sets := make([]*object.Set, 0, len(keys))
	for _, k := range keys {
		s, ok, wrongType := lookupSet(ctx, string(k))
		if wrongType {
			replyWrongType(ctx)
			return nil, false
		}
		if !ok {
			s = object.NewSet()
		}
		sets = append(sets, s)
	}
	return sets, true
}

func cmdSInter(ctx *Context, args [][]byte) {
	sets, ok := fetchSets(ctx, args[1:])
	if !ok {
		return
	}
	writeMembers(ctx, object.Inter(sets...).Members())
}

func cmdSUnion(ctx *Context, args [][]byte) {
	sets, ok := fetchSets(ctx, args[1:])
	if !ok {
		return
	}
	writeMembers(ctx, object.Union(sets...).Members())
}

func cmdSDiff(ctx *Context, args [][]byte) {
	sets, ok := fetchSets(ctx, args[1:])
	if !ok {
		return
	}
	writeMembers(ctx, object.Diff(sets[0], sets[1:]...).Members())
}

// storeSetResult implements the REDESIGN FLAG applied in SPEC_FULL.md §8:
// STORE variants always overwrite the destination with the result, even
// if empty, in which case the destination key is deleted.
func storeSetResult(ctx *Context, dst string, result *object.Set) {
	if result.Len() == 0 {
		ctx.db().Delete(dst, ctx.Now())
	} else {
		ctx.db().Set(dst, result)
	}
	ctx.markDirty()
	replyInt(ctx, int64(result.Len()))
}

func cmdSInterStore(ctx *Context, args [][]byte) {
	sets, ok := fetchSets(ctx, args[2:])
	if !ok {
		return
	}
	storeSetResult(ctx, string(args[1]), object.Inter(sets...))
}

func cmdSUnionStore(ctx *Context, args [][]byte) {
	sets, ok := fetchSets(ctx, args[2:])
	if !ok {
		return
	}
	storeSetResult(ctx, string(args[1]), object.Union(sets...))
}

func cmdSDiffStore(ctx *Context, args [][]byte) {
	sets, ok := fetchSets(ctx, args[2:])
	if !ok {
		return
	}
	storeSetResult(ctx, string(args[1]), object.Diff(sets[0], sets[1:]...))
}
