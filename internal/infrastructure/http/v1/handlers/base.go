// Package handlers adapts the quote use cases to gin.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"hubchantier/internal/core/apperror"
	"hubchantier/internal/core/id"
)

// BaseHandler holds the helpers shared by the resource handlers. Errors
// are pushed to the gin context; middleware.ErrorHandler writes them.
type BaseHandler struct {
	now func() time.Time
}

func NewBaseHandler() *BaseHandler {
	return &BaseHandler{now: time.Now}
}

// BindJSON decodes the body into obj, reporting a validation error on
// failure.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("Corps de requete invalide").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// ParamID reads a UUID path parameter.
func (h *BaseHandler) ParamID(c *gin.Context, name string) (id.ID, bool) {
	parsed, err := id.Parse(c.Param(name))
	if err != nil {
		h.Error(c, apperror.NewValidation("Identifiant invalide").WithDetail("param", name))
		return id.Nil(), false
	}
	return parsed, true
}

// QueryInt reads an optional integer query parameter.
func (h *BaseHandler) QueryInt(c *gin.Context, key string, fallback int) (int, bool) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		h.Error(c, apperror.NewValidation("Parametre entier attendu").WithDetail("param", key))
		return 0, false
	}
	return n, true
}

func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Today is the reference date for the expired flag of quote payloads.
func (h *BaseHandler) Today() time.Time {
	return h.now().UTC()
}

func (h *BaseHandler) OK(c *gin.Context, body any)      { c.JSON(http.StatusOK, body) }
func (h *BaseHandler) Created(c *gin.Context, body any) { c.JSON(http.StatusCreated, body) }
func (h *BaseHandler) NoContent(c *gin.Context)         { c.Status(http.StatusNoContent) }
