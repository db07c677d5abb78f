package httpadapter

import (
	"context"
	"slices"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

const (
	corsAllowMethods = "GET,POST,OPTIONS"
	corsAllowHeaders = "Content-Type,Accept"
)

// allowOrigin returns the Access-Control-Allow-Origin value for origin. An
// empty allow list admits any origin.
func allowOrigin(allowed []string, origin string) string {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return "*"
	}
	if slices.Contains(allowed, origin) {
		return origin
	}
	return ""
}

func applyCORSHeaders(ctx *app.RequestContext, allowed []string) {
	origin := allowOrigin(allowed, string(ctx.Request.Header.Peek("Origin")))
	if origin == "" {
		return
	}
	ctx.Response.Header.Set("Access-Control-Allow-Origin", origin)
	if origin != "*" {
		ctx.Response.Header.Set("Vary", "Origin")
	}
	ctx.Response.Header.Set("Access-Control-Allow-Methods", corsAllowMethods)
	ctx.Response.Header.Set("Access-Control-Allow-Headers", corsAllowHeaders)
	ctx.Response.Header.Set("Access-Control-Max-Age", "600")
}

func corsMiddleware(allowed []string) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		applyCORSHeaders(ctx, allowed)
		if string(ctx.Method()) == consts.MethodOptions {
			ctx.AbortWithStatus(consts.StatusNoContent)
			return
		}
		ctx.Next(c)
	}
}
