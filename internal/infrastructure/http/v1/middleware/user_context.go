package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	appctx "hubchantier/internal/core/context"
)

// HeaderUserID names the acting user when bearer auth is disabled.
const HeaderUserID = "X-User-ID"

// UserContext trusts the X-User-ID header as the acting user.
//
// Only mount it when auth is disabled (local development, tests behind a
// gateway that already authenticated the caller); with auth enabled the
// Auth middleware fills the user from the token.
func UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid := strings.TrimSpace(c.GetHeader(HeaderUserID)); uid != "" {
			ctx := appctx.WithUserID(c.Request.Context(), uid)
			c.Request = c.Request.WithContext(ctx)
			c.Set("user_id", uid)
		}
		c.Next()
	}
}
