package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hubchantier/internal/core/apperror"
	appctx "hubchantier/internal/core/context"
	"hubchantier/internal/infrastructure/storage/postgres"
	"hubchantier/pkg/logger"
)

const (
	HeaderIdempotencyKey      = "X-Idempotency-Key"
	HeaderIdempotencyReplayed = "X-Idempotency-Replayed"

	maxIdempotencyKeyLen = 255
)

// IdempotencyStore is implemented by postgres.IdempotencyStore.
type IdempotencyStore interface {
	AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*postgres.IdempotencyReplay, error)
	CompleteKey(ctx context.Context, key, userID string, replay postgres.IdempotencyReplay) error
	ReleaseKey(ctx context.Context, key, userID string) error
}

// Idempotency dedupes POST, PUT and PATCH requests carrying an
// X-Idempotency-Key header. A key is bound to the user, the route and a
// hash of the body. The first 2xx response is stored and replayed to
// retries; any other outcome releases the key.
//
// maxBody bounds the body read for hashing. Mount it after the middleware
// that sets the acting user.
func Idempotency(store IdempotencyStore, maxBody int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}

		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			_ = c.Error(apperror.NewValidation("Cle d'idempotence trop longue").
				WithDetail("max_length", maxIdempotencyKeyLen))
			c.Abort()
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody+1))
		if err != nil {
			_ = c.Error(apperror.NewValidation("Corps de requete illisible").WithCause(err))
			c.Abort()
			return
		}
		if int64(len(body)) > maxBody {
			appErr := apperror.NewValidation("Corps de requete trop volumineux pour une requete idempotente").
				WithDetail("max_bytes", maxBody)
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			_ = c.Error(appErr)
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		sum := sha256.Sum256(body)

		ctx := c.Request.Context()
		userID := appctx.GetUserID(ctx)
		operation := c.Request.Method + " " + c.FullPath()

		replay, err := store.AcquireKey(ctx, key, userID, operation, hex.EncodeToString(sum[:]))
		if err != nil {
			if _, ok := apperror.AsAppError(err); !ok {
				err = apperror.NewInternal(err).WithDetail("component", "idempotency")
			}
			_ = c.Error(err)
			c.Abort()
			return
		}
		if replay != nil {
			c.Header(HeaderIdempotencyReplayed, "true")
			c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			c.Abort()
			return
		}

		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder
		c.Next()

		storeCtx := context.WithoutCancel(ctx)
		status := recorder.Status()
		if len(c.Errors) == 0 && status >= http.StatusOK && status < http.StatusMultipleChoices {
			err := store.CompleteKey(storeCtx, key, userID, postgres.IdempotencyReplay{
				StatusCode:  status,
				ContentType: recorder.Header().Get("Content-Type"),
				Body:        recorder.body.Bytes(),
			})
			if err != nil {
				logger.Warn(ctx, "idempotency key not completed", "idempotency_key", key, "error", err)
			}
			return
		}
		if err := store.ReleaseKey(storeCtx, key, userID); err != nil {
			logger.Warn(ctx, "idempotency key not released", "idempotency_key", key, "error", err)
		}
	}
}

// bodyRecorder keeps a copy of the response body.
type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *bodyRecorder) WriteString(s string) (int, error) {
	r.body.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}
