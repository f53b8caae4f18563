package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hubchantier/internal/core/apperror"
	"hubchantier/pkg/logger"
)

// ErrorHandler renders the last error pushed with c.Error as
// {code, message, details}. Only AppError content reaches the client;
// anything else is logged and answered with a bare 500 and the request id.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		ctx := c.Request.Context()
		err := c.Errors.Last().Err

		appErr, ok := apperror.AsAppError(err)
		if !ok {
			logger.Error(ctx, "unhandled error", "route", c.FullPath(), "error", err)
			appErr = apperror.NewInternal(err).WithDetail("request_id", c.GetString("request_id"))
		} else if appErr.HTTPStatus >= http.StatusInternalServerError || appErr.Err != nil {
			logger.Warn(ctx, "request failed", "code", appErr.Code, "cause", appErr.Err)
		}

		c.JSON(appErr.HTTPStatus, gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
			"details": appErr.Details,
		})
	}
}
