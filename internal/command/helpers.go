package command

import (
	"strconv"

	"github.com/mkvs-io/kvstored/internal/object"
	"github.com/mkvs-io/kvstored/internal/resp"
)

const wrongTypeErr = "WRONGTYPE Operation against a key holding the wrong kind of value"

// lookupString fetches key expecting a *object.String. ok=false with no
// error means the key is absent; wrongType=true means it holds some other
// kind.
func lookupString(ctx *Context, key string) (s *object.String, ok bool, wrongType bool) {
	v, exists := ctx.db().Lookup(key, ctx.Now())
	if !exists {
		return nil, false, false
	}
	s, isString := v.(*object.String)
	if !isString {
		return nil, true, true
	}
	return s, true, false
}

func lookupList(ctx *Context, key string) (l *object.List, ok bool, wrongType bool) {
	v, exists := ctx.db().Lookup(key, ctx.Now())
	if !exists {
		return nil, false, false
	}
	l, isList := v.(*object.List)
	if !isList {
		return nil, true, true
	}
	return l, true, false
}

func lookupSet(ctx *Context, key string) (s *object.Set, ok bool, wrongType bool) {
	v, exists := ctx.db().Lookup(key, ctx.Now())
	if !exists {
		return nil, false, false
	}
	s, isSet := v.(*object.Set)
	if !isSet {
		return nil, true, true
	}
	return s, true, false
}

func lookupScoreSet(ctx *Context, key string) (z *object.ScoreSet, ok bool, wrongType bool) {
	v, exists := ctx.db().Lookup(key, ctx.Now())
	if !exists {
		return nil, false, false
	}
	z, isZSet := v.(*object.ScoreSet)
	if !isZSet {
		return nil, true, true
	}
	return z, true, false
}

func replyWrongType(ctx *Context) {
	ctx.Out = resp.Error(ctx.Out, wrongTypeErr)
}

func replyInt(ctx *Context, n int64) {
	ctx.Out = resp.Integer(ctx.Out, n)
}

func replyBulk(ctx *Context, b []byte) {
	ctx.Out = resp.Bulk(ctx.Out, b)
}

func replyNilBulk(ctx *Context) {
	ctx.Out = resp.NilBulk(ctx.Out)
}

func replyOK(ctx *Context) {
	ctx.Out = resp.Status(ctx.Out, "OK")
}

func replyErr(ctx *Context, msg string) {
	ctx.Out = resp.Error(ctx.Out, msg)
}

func parseInt(arg []byte) (int64, bool) {
	n, err := strconv.ParseInt(string(arg), 10, 64)
	return n, err == nil
}

func parseFloat(arg []byte) (float64, bool) {
	f, err := strconv.ParseFloat(string(arg), 64)
	return f, err == nil
}
