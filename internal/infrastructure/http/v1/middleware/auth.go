package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"hubchantier/internal/core/apperror"
	appctx "hubchantier/internal/core/context"
)

// JWTValidator is implemented by auth.JWTService.
type JWTValidator interface {
	ValidateToken(token string) (*appctx.UserContext, error)
}

// Auth requires "Authorization: Bearer <jwt>" and puts the token's user in
// the request context. The user id also lands under the "user_id" gin key.
func Auth(validator JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, token, found := strings.Cut(c.GetHeader("Authorization"), " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			unauthorized(c, apperror.NewUnauthorized("Jeton d'authentification manquant ou mal forme"))
			return
		}

		user, err := validator.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			unauthorized(c, apperror.NewUnauthorized("Jeton d'authentification invalide").WithCause(err))
			return
		}

		c.Request = c.Request.WithContext(appctx.WithUser(c.Request.Context(), user))
		c.Set("user_id", user.UserID)
		c.Next()
	}
}

func unauthorized(c *gin.Context, err *apperror.AppError) {
	_ = c.Error(err)
	c.Abort()
}
