package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORSMiddleware answers browser cross-origin requests for the
// configured origins only. Unlisted origins get no CORS headers at
// all, so the browser refuses to expose the response.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))

	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return func(ctx *gin.Context) {
		// responses differ per Origin, so caches must key on it
		ctx.Header("Vary", "Origin")

		origin := ctx.GetHeader("Origin")

		if _, ok := allowed[origin]; ok && origin != "" {
			ctx.Header("Access-Control-Allow-Origin", origin)
			ctx.Header("Access-Control-Allow-Credentials", "true")
			ctx.Header("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			ctx.Header("Access-Control-Allow-Headers", "Authorization,Content-Type")
			ctx.Header("Access-Control-Max-Age", "600")
		}

		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}

		ctx.Next()
	}
}
