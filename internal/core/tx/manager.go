// Package tx lets domain services demand transactional execution without
// knowing the storage behind it.
package tx

import "context"

// Manager runs fn atomically. fn receives a context carrying the
// transaction; a nested call joins the enclosing transaction. Returning an
// error rolls everything back.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager is implemented by managers able to open read-only
// transactions, used for consistent multi-table reads.
type ReadOnlyManager interface {
	Manager
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// RunReadOnly prefers a read-only transaction and falls back to a regular one.
func RunReadOnly(ctx context.Context, m Manager, fn func(ctx context.Context) error) error {
	if ro, ok := m.(ReadOnlyManager); ok {
		return ro.ReadOnly(ctx, fn)
	}
	return m.RunInTransaction(ctx, fn)
}
