package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubchantier/internal/core/apperror"
	appctx "hubchantier/internal/core/context"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTrace_KeepsValidRequestID(t *testing.T) {
	r := gin.New()
	r.Use(Trace())
	var seen string
	r.GET("/x", func(c *gin.Context) {
		seen = appctx.GetRequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	w := serve(r, req)

	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))
	assert.NotEmpty(t, w.Header().Get(HeaderTraceID))
}

func TestTrace_ReplacesBadRequestID(t *testing.T) {
	r := gin.New()
	r.Use(Trace())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, strings.Repeat("a", maxRequestIDLen+1))
	w := serve(r, req)

	got := w.Header().Get(HeaderRequestID)
	assert.NotEmpty(t, got)
	assert.NotEqual(t, strings.Repeat("a", maxRequestIDLen+1), got)
	assert.False(t, validRequestID("two words"))
}

func TestErrorHandler_AppError(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/x", func(c *gin.Context) {
		_ = c.Error(apperror.NewInvalidTransition("draft", "accepted"))
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), apperror.CodeInvalidTransition)
	assert.Contains(t, w.Body.String(), `"current_status":"draft"`)
}

func TestErrorHandler_HidesUnknownErrors(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/x", func(c *gin.Context) {
		_ = c.Error(errors.New("pq: password authentication failed"))
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(), ErrorHandler())
	r.GET("/x", func(c *gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

type stubValidator struct {
	user *appctx.UserContext
	err  error
}

func (s stubValidator) ValidateToken(string) (*appctx.UserContext, error) {
	return s.user, s.err
}

func TestAuth(t *testing.T) {
	newRouter := func(v JWTValidator) *gin.Engine {
		r := gin.New()
		r.Use(ErrorHandler(), Auth(v))
		r.GET("/x", func(c *gin.Context) {
			c.String(http.StatusOK, appctx.GetUserID(c.Request.Context()))
		})
		return r
	}

	ok := newRouter(stubValidator{user: &appctx.UserContext{UserID: "u-1"}})
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer abc")
	w := serve(ok, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-1", w.Body.String())

	w = serve(ok, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	bad := newRouter(stubValidator{err: errors.New("expired")})
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "bearer abc")
	w = serve(bad, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserContext_Header(t *testing.T) {
	r := gin.New()
	r.Use(UserContext())
	r.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, appctx.GetUserID(c.Request.Context()))
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderUserID, " estimator-9 ")
	w := serve(r, req)
	assert.Equal(t, "estimator-9", w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Empty(t, w.Body.String())
}

type observed struct {
	method, route string
	status        int
}

type recordingObserver struct{ calls []observed }

func (o *recordingObserver) ObserveHTTP(method, route string, status int, _ time.Duration) {
	o.calls = append(o.calls, observed{method, route, status})
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	obs := &recordingObserver{}
	r := gin.New()
	r.Use(Metrics(obs))
	r.GET("/quotes/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	serve(r, httptest.NewRequest(http.MethodGet, "/quotes/abc", nil))

	require.Len(t, obs.calls, 1)
	assert.Equal(t, observed{"GET", "/quotes/:id", http.StatusNoContent}, obs.calls[0])
}
