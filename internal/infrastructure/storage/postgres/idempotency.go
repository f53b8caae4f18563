package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"hubchantier/internal/core/apperror"
)

// IdempotencyStatus is the state of a keyed request.
type IdempotencyStatus string

const (
	IdempotencyPending   IdempotencyStatus = "pending"
	IdempotencyCompleted IdempotencyStatus = "completed"
)

const (
	// DefaultIdempotencyTTL is how long a completed response is replayed.
	DefaultIdempotencyTTL = 24 * time.Hour

	// idempotencyStaleAfter marks a pending key as left by a crashed request.
	idempotencyStaleAfter = time.Minute
)

// IdempotencyReplay is a stored HTTP response.
type IdempotencyReplay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

type idempotencyRow struct {
	Operation   string            `db:"operation"`
	RequestHash string            `db:"request_hash"`
	Status      IdempotencyStatus `db:"status"`
	Response    []byte            `db:"response"`
	StatusCode  int               `db:"response_status"`
	ContentType string            `db:"response_content_type"`
	UpdatedAt   time.Time         `db:"updated_at"`
	ExpiresAt   time.Time         `db:"expires_at"`
	Inserted    bool              `db:"inserted"`
}

const (
	// The no-op update makes RETURNING yield the existing row; xmax = 0
	// only for a fresh insert.
	acquireKeySQL = `
		INSERT INTO sys_idempotency (user_id, idempotency_key, operation, request_hash, status, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, 'pending', $5, $5, $6)
		ON CONFLICT (user_id, idempotency_key) DO UPDATE SET updated_at = sys_idempotency.updated_at
		RETURNING operation, request_hash, status, response, response_status, response_content_type,
		          updated_at, expires_at, (xmax = 0) AS inserted`

	reclaimKeySQL = `
		UPDATE sys_idempotency
		SET operation = $3, request_hash = $4, status = 'pending', response = NULL,
		    response_status = 0, response_content_type = '',
		    created_at = $5, updated_at = $5, expires_at = $6
		WHERE user_id = $1 AND idempotency_key = $2 AND updated_at = $7`

	completeKeySQL = `
		UPDATE sys_idempotency
		SET status = 'completed', response = $3, response_status = $4, response_content_type = $5, updated_at = $6
		WHERE user_id = $1 AND idempotency_key = $2`

	releaseKeySQL = `
		DELETE FROM sys_idempotency
		WHERE user_id = $1 AND idempotency_key = $2 AND status = 'pending'`

	cleanupKeysSQL = `DELETE FROM sys_idempotency WHERE expires_at < $1`
)

// IdempotencyStore remembers the response of requests sent with an
// idempotency key, per user, so a retried write replays instead of
// running twice.
type IdempotencyStore struct {
	txManager *TxManager
	ttl       time.Duration
	now       func() time.Time
}

// NewIdempotencyStore creates a store; ttl <= 0 means DefaultIdempotencyTTL.
func NewIdempotencyStore(txManager *TxManager, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyStore{txManager: txManager, ttl: ttl, now: time.Now}
}

// AcquireKey claims key for the request. It returns:
//   - (nil, nil) when the caller now owns the key and must run the request
//   - (replay, nil) when the same request already completed
//   - (nil, AppError) when the key is in use or was used for another request
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*IdempotencyReplay, error) {
	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)

	var row idempotencyRow
	if err := pgxscan.Get(ctx, s.txManager.GetQuerier(ctx), &row, acquireKeySQL,
		userID, key, operation, requestHash, now, expiresAt); err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}

	replay, reclaim, err := resolveKey(row, key, operation, requestHash, now)
	if err != nil || !reclaim {
		return replay, err
	}

	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx, reclaimKeySQL,
		userID, key, operation, requestHash, now, expiresAt, row.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("reclaim idempotency key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperror.NewIdempotencyConflict(key)
	}
	return nil, nil
}

// resolveKey decides what an existing or fresh row means for a request.
func resolveKey(row idempotencyRow, key, operation, requestHash string, now time.Time) (replay *IdempotencyReplay, reclaim bool, err error) {
	switch {
	case row.Inserted:
		return nil, false, nil
	case row.ExpiresAt.Before(now):
		return nil, true, nil
	case row.Status == IdempotencyPending && now.Sub(row.UpdatedAt) > idempotencyStaleAfter:
		return nil, true, nil
	case row.Operation != operation || row.RequestHash != requestHash:
		return nil, false, apperror.NewIdempotencyMismatch(key).
			WithDetail("operation", row.Operation)
	case row.Status == IdempotencyPending:
		return nil, false, apperror.NewIdempotencyConflict(key)
	}

	contentType := row.ContentType
	if contentType == "" {
		contentType = "application/json; charset=utf-8"
	}
	return &IdempotencyReplay{StatusCode: row.StatusCode, ContentType: contentType, Body: row.Response}, false, nil
}

// CompleteKey stores the response to replay for key.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key, userID string, replay IdempotencyReplay) error {
	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, completeKeySQL,
		userID, key, replay.Body, replay.StatusCode, replay.ContentType, s.now().UTC())
	if err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

// ReleaseKey forgets a pending key so the request can be retried.
func (s *IdempotencyStore) ReleaseKey(ctx context.Context, key, userID string) error {
	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, releaseKeySQL, userID, key); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// CleanupExpired removes keys past their expiry and returns how many.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx, cleanupKeysSQL, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
