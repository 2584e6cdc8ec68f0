package command

import (
	"fmt"

	"github.com/mkvs-io/kvstored/internal/resp"
)

func init() {
	register("ping", -1, FlagInline, cmdPing)
	register("echo", 2, FlagBulk, cmdEcho)
	register("auth", 2, FlagBulk, cmdAuth)
	register("quit", 1, FlagInline, cmdQuit)
	register("lastsave", 1, FlagInline, cmdLastSave)
	register("save", 1, FlagInline, cmdSave)
	register("bgsave", 1, FlagInline, cmdBGSave)
	register("bgrewriteaof", 1, FlagInline, cmdBGRewriteAOF)
	register("shutdown", -1, FlagInline, cmdShutdown)
	register("info", -1, FlagInline, cmdInfo)
	register("command", -1, FlagInline, cmdCommand)
	register("sort", -2, FlagInline, cmdSort)
}

func cmdPing(ctx *Context, args [][]byte) {
	if len(args) == 2 {
		replyBulk(ctx, args[1])
		return
	}
	ctx.Out = resp.Status(ctx.Out, "PONG")
}

func cmdEcho(ctx *Context, args [][]byte) {
	replyBulk(ctx, args[1])
}

func cmdAuth(ctx *Context, args [][]byte) {
	if ctx.RequirePass == "" {
		replyErr(ctx, "ERR Client sent AUTH, but no password is set")
		return
	}
	if string(args[1]) != ctx.RequirePass {
		replyErr(ctx, "ERR invalid password")
		return
	}
	*ctx.Authenticated = true
	replyOK(ctx)
}

func cmdQuit(ctx *Context, args [][]byte) {
	replyOK(ctx)
}

func cmdLastSave(ctx *Context, args [][]byte) {
	if ctx.LastSave == nil {
		replyInt(ctx, 0)
		return
	}
	replyInt(ctx, ctx.LastSave().Unix())
}

func cmdSave(ctx *Context, args [][]byte) {
	if ctx.Save == nil {
		replyErr(ctx, "ERR save is not configured")
		return
	}
	if err := ctx.Save(); err != nil {
		replyErr(ctx, "ERR "+err.Error())
		return
	}
	replyOK(ctx)
}

func cmdBGSave(ctx *Context, args [][]byte) {
	if ctx.BGSave == nil {
		replyErr(ctx, "ERR save is not configured")
		return
	}
	if err := ctx.BGSave(); err != nil {
		replyErr(ctx, "ERR "+err.Error())
		return
	}
	ctx.Out = resp.Status(ctx.Out, "Background saving started")
}

func cmdBGRewriteAOF(ctx *Context, args [][]byte) {
	if ctx.BGRewriteAOF == nil {
		replyErr(ctx, "ERR appendonly is not enabled")
		return
	}
	if err := ctx.BGRewriteAOF(); err != nil {
		replyErr(ctx, "ERR "+err.Error())
		return
	}
	ctx.Out = resp.Status(ctx.Out, "Background append only file rewriting started")
}

func cmdShutdown(ctx *Context, args [][]byte) {
	if ctx.Shutdown != nil {
		ctx.Shutdown()
	}
	// No reply: the connection is torn down as part of shutdown, matching
	// real Redis's SHUTDOWN (which never replies on the success path).
}

func cmdInfo(ctx *Context, args [][]byte) {
	if ctx.Info == nil {
		replyBulk(ctx, nil)
		return
	}
	replyBulk(ctx, []byte(ctx.Info()))
}

func cmdCommand(ctx *Context, args [][]byte) {
	if len(args) >= 2 && string(args[1]) == "count" {
		replyInt(ctx, int64(len(Table)))
		return
	}
	ctx.Out = resp.MultiBulkHeader(ctx.Out, len(Table))
	for _, spec := range Table {
		ctx.Out = resp.MultiBulkHeader(ctx.Out, 3)
		replyBulk(ctx, []byte(spec.Name))
		replyInt(ctx, int64(spec.Arity))
		replyBulk(ctx, []byte(fmt.Sprintf("flags=%d", spec.Flags)))
	}
}

func cmdSort(ctx *Context, args [][]byte) {
	replyErr(ctx, "ERR SORT is not implemented")
}
