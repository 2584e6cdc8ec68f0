package command

import (
	"strconv"
	"strings"

	"github.com/mkvs-io/kvstored/internal/object"
	"github.com/mkvs-io/kvstored/internal/resp"
)

func init() {
	register("zadd", -4, FlagBulk|FlagDenyOOM, cmdZAdd)
	register("zrem", -3, FlagBulk, cmdZRem)
	register("zincrby", 4, FlagBulk|FlagDenyOOM, cmdZIncrBy)
	register("zscore", 3, FlagBulk, cmdZScore)
	register("zcard", 2, FlagInline, cmdZCard)
	register("zrank", 3, FlagBulk, cmdZRank)
	register("zrevrank", 3, FlagBulk, cmdZRevRank)
	register("zrange", -4, FlagInline, cmdZRange)
	register("zrevrange", -4, FlagInline, cmdZRevRange)
	register("zrangebyscore", -4, FlagInline, cmdZRangeByScore)
	register("zrevrangebyscore", -4, FlagInline, cmdZRevRangeByScore)
	register("zcount", 4, FlagInline, cmdZCount)
	register("zremrangebyscore", 4, FlagInline, cmdZRemRangeByScore)
	register("zremrangebyrank", 4, FlagInline, cmdZRemRangeByRank)
}

func getOrCreateZSet(ctx *Context, key string) (*object.ScoreSet, bool) {
	z, ok, wrongType := lookupScoreSet(ctx, key)
	if wrongType {
		replyWrongType(ctx)
		return nil, false
	}
	if !ok {
		z = object.NewScoreSet()
		ctx.db().Set(key, z)
	}
	return z, true
}

func cmdZAdd(ctx *Context, args [][]byte) {
	rest := args[2:]
	if len(rest)%2 != 0 {
		replyErr(ctx, "ERR syntax error")
		return
	}
	key := string(args[1])
	z, ok := getOrCreateZSet(ctx, key)
	if !ok {
		return
	}
	var added int64
	for i := 0; i+1 < len(rest); i += 2 {
		score, okScore := parseFloat(rest[i])
		if !okScore {
			replyErr(ctx, "ERR value is not a valid float")
			return
		}
		if z.Add(string(rest[i+1]), score) {
			added++
		}
	}
	ctx.markDirty()
	replyInt(ctx, added)
}

func cmdZRem(ctx *Context, args [][]byte) {
	key := string(args[1])
	z, ok, wrongType := lookupScoreSet(ctx, key)
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
		if z.Remove(string(m)) {
			removed++
		}
	}
	if z.Len() == 0 {
		ctx.db().Delete(key, ctx.Now())
	}
	if removed > 0 {
		ctx.markDirty()
	}
	replyInt(ctx, removed)
}

func cmdZIncrBy(ctx *Context, args [][]byte) {
	delta, ok := parseFloat(args[2])
	if !ok {
		replyErr(ctx, "ERR value is not a valid float")
		return
	}
	key := string(args[1])
	z, okz := getOrCreateZSet(ctx, key)
	if !okz {
		return
	}
	newScore := z.IncrBy(string(args[3]), delta)
	ctx.markDirty()
	replyBulk(ctx, formatScore(newScore))
}

func cmdZScore(ctx *Context, args [][]byte) {
	z, ok, wrongType := lookupScoreSet(ctx, string(args[1]))
	if wrongType {
		replyWrongType(ctx)
		return
	}
	if !ok {
		replyNilBulk(ctx)
		return
	}
	score, found := z.Score(string(args[2]))
	if !found {
		replyNilBulk(ctx)
		return
	}
	replyBulk(ctx, formatScore(score))
}

func cmdZCard(ctx *Context, args [][]byte) {
	z, ok, wrongType := lookupScoreSet(ctx, string(args[1]))
	if wrongType {
		replyWrongType(ctx)
		return
	}
	if !ok {
		replyInt(ctx, 0)
		return
	}
	replyInt(ctx, int64(z.Len()))
}

func cmdZRank(ctx *Context, args [][]byte) {
	zrankImpl(ctx, args, false)
}

func cmdZRevRank(ctx *Context, args [][]byte) {
	zrankImpl(ctx, args, true)
}

func zrankImpl(ctx *Context, args [][]byte, reverse bool) {
	z, ok, wrongType := lookupScoreSet(ctx, string(args[1]))
	if wrongType {
		replyWrongType(ctx)
		return
	}
	if !ok {
		replyNilBulk(ctx)
		return
	}
	var rank int
	var found bool
	if reverse {
		rank, found = z.RevRank(string(args[2]))
	} else {
		rank, found = z.Rank(string(args[2]))
	}
	if !found {
		replyNilBulk(ctx)
		return
	}
	replyInt(ctx, int64(rank))
}

func cmdZRange(ctx *Context, args [][]byte) {
	zrangeImpl(ctx, args, false)
}

func cmdZRevRange(ctx *Context, args [][]byte) {
	zrangeImpl(ctx, args, true)
}

func zrangeImpl(ctx *Context, args [][]byte, reverse bool) {
	withScores := false
	if len(args) == 5 {
		if !strings.EqualFold(string(args[4]), "withscores") {
			replyErr(ctx, "ERR syntax error")
			return
		}
		withScores = true
	} else if len(args) != 4 {
		replyErr(ctx, "ERR syntax error")
		return
	}
	z, ok, wrongType := lookupScoreSet(ctx, string(args[1]))
	if wrongType {
		replyWrongType(ctx)
		return
	}
	start, ok1 := parseInt(args[2])
	end, ok2 := parseInt(args[3])
	if !ok1 || !ok2 {
		replyErr(ctx, "ERR value is not an integer or out of range")
		return
	}
	var members []object.Member
	if ok {
		if reverse {
			members = z.RevRangeByRank(int(start), int(end))
		} else {
			members = z.RangeByRank(int(start), int(end))
		}
	}
	writeZMembers(ctx, members, withScores)
}

func cmdZRangeByScore(ctx *Context, args [][]byte) {
	min, ok1 := parseFloat(args[2])
	max, ok2 := parseFloat(args[3])
	if !ok1 || !ok2 {
		replyErr(ctx, "ERR min or max is not a float")
		return
	}
	withScores := false
	limitOffset, limitCount := 0, -1
	i := 4
	for i < len(args) {
		switch strings.ToLower(string(args[i])) {
		case "withscores":
			withScores = true
			i++
		case "limit":
			if i+2 >= len(args) {
				replyErr(ctx, "ERR syntax error")
				return
			}
			off, okOff := parseInt(args[i+1])
			cnt, okCnt := parseInt(args[i+2])
			if !okOff || !okCnt {
				replyErr(ctx, "ERR value is not an integer or out of range")
				return
			}
			limitOffset, limitCount = int(off), int(cnt)
			i += 3
		default:
			replyErr(ctx, "ERR syntax error")
			return
		}
	}

	z, ok, wrongType := lookupScoreSet(ctx, string(args[1]))
	if wrongType {
		replyWrongType(ctx)
		return
	}
	var members []object.Member
	if ok {
		members = z.RangeByScore(min, max)
	}
	members = applyLimit(members, limitOffset, limitCount)
	writeZMembers(ctx, members, withScores)
}

// cmdZRevRangeByScore mirrors cmdZRangeByScore with the score window given
// high-to-low (max before min), per ZREVRANGEBYSCORE's argument order.
func cmdZRevRangeByScore(ctx *Context, args [][]byte) {
	max, ok1 := parseFloat(args[2])
	min, ok2 := parseFloat(args[3])
	if !ok1 || !ok2 {
		replyErr(ctx, "ERR min or max is not a float")
		return
	}
	withScores := false
	limitOffset, limitCount := 0, -1
	i := 4
	for i < len(args) {
		switch strings.ToLower(string(args[i])) {
		case "withscores":
			withScores = true
			i++
		case "limit":
			if i+2 >= len(args) {
				replyErr(ctx, "ERR syntax error")
				return
			}
			off, okOff := parseInt(args[i+1])
			cnt, okCnt := parseInt(args[i+2])
			if !okOff || !okCnt {
				replyErr(ctx, "ERR value is not an integer or out of range")
				return
			}
			limitOffset, limitCount = int(off), int(cnt)
			i += 3
		default:
			replyErr(ctx, "ERR syntax error")
			return
		}
	}

	z, ok, wrongType := lookupScoreSet(ctx, string(args[1]))
	if wrongType {
		replyWrongType(ctx)
		return
	}
	var members []object.Member
	if ok {
		members = z.RevRangeByScore(max, min)
	}
	members = applyLimit(members, limitOffset, limitCount)
	writeZMembers(ctx, members, withScores)
}

// applyLimit implements ZRANGEBYSCORE's "negative limit disables the cap;
// offset skips within the filtered range" rule from spec.md §4.2.
func applyLimit(members []object.Member, offset, count int) []object.Member {
	if offset > 0 {
		if offset >= len(members) {
			return nil
		}
		members = members[offset:]
	}
	if count >= 0 && count < len(members) {
		members = members[:count]
	}
	return members
}

func writeZMembers(ctx *Context, members []object.Member, withScores bool) {
	n := len(members)
	if withScores {
		ctx.Out = resp.MultiBulkHeader(ctx.Out, n*2)
	} else {
		ctx.Out = resp.MultiBulkHeader(ctx.Out, n)
	}
	for _, m := range members {
		replyBulk(ctx, []byte(m.Name))
		if withScores {
			replyBulk(ctx, formatScore(m.Score))
		}
	}
}

func cmdZCount(ctx *Context, args [][]byte) {
	min, ok1 := parseFloat(args[2])
	max, ok2 := parseFloat(args[3])
	if !ok1 || !ok2 {
		replyErr(ctx, "ERR min or max is not a float")
		return
	}
	z, ok, wrongType := lookupScoreSet(ctx, string(args[1]))
	if wrongType {
		replyWrongType(ctx)
		return
	}
	if !ok {
		replyInt(ctx, 0)
		return
	}
	replyInt(ctx, int64(z.Count(min, max)))
}

func cmdZRemRangeByScore(ctx *Context, args [][]byte) {
	min, ok1 := parseFloat(args[2])
	max, ok2 := parseFloat(args[3])
	if !ok1 || !ok2 {
		replyErr(ctx, "ERR min or max is not a float")
		return
	}
	key := string(args[1])
	z, ok, wrongType := lookupScoreSet(ctx, key)
	if wrongType {
		replyWrongType(ctx)
		return
	}
	if !ok {
		replyInt(ctx, 0)
		return
	}
	removed := z.RemoveRangeByScore(min, max)
	if z.Len() == 0 {
		ctx.db().Delete(key, ctx.Now())
	}
	if len(removed) > 0 {
		ctx.markDirty()
	}
	replyInt(ctx, int64(len(removed)))
}

func cmdZRemRangeByRank(ctx *Context, args [][]byte) {
	start, ok1 := parseInt(args[2])
	end, ok2 := parseInt(args[3])
	if !ok1 || !ok2 {
		replyErr(ctx, "ERR value is not an integer or out of range")
		return
	}
	key := string(args[1])
	z, ok, wrongType := lookupScoreSet(ctx, key)
	if wrongType {
		replyWrongType(ctx)
		return
	}
	if !ok {
		replyInt(ctx, 0)
		return
	}
	removed := z.RemoveRangeByRank(int(start), int(end))
	if z.Len() == 0 {
		ctx.db().Delete(key, ctx.Now())
	}
	if len(removed) > 0 {
		ctx.markDirty()
	}
	replyInt(ctx, int64(len(removed)))
}

func formatScore(f float64) []byte {
	return []byte(strconv.FormatFloat(f, 'g', -1, 64))
}
