// Package domain holds the types shared by every aggregate: list paging and
// lifecycle hooks.
package domain

import (
	"context"

	"hubchantier/internal/core/id"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// ListFilter is embedded by aggregate specific filters.
type ListFilter struct {
	Search         string  // case-insensitive match on number and client
	IDs            []id.ID // restrict to these ids when non-empty
	IncludeDeleted bool
	OrderBy        string // column name, "-" prefix for descending
	Limit          int
	Offset         int
}

// DefaultListFilter returns the first page, newest first.
func DefaultListFilter() ListFilter {
	return ListFilter{Limit: DefaultPageSize, OrderBy: "-created_at"}
}

// Normalize resets out of range paging values.
func (f *ListFilter) Normalize() {
	if f.Limit <= 0 || f.Limit > MaxPageSize {
		f.Limit = DefaultPageSize
	}
	f.Offset = max(f.Offset, 0)
}

// ListResult is one page plus the total match count.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// HasMore reports whether rows remain after this page.
func (r ListResult[T]) HasMore() bool {
	return int64(r.Offset+len(r.Items)) < r.TotalCount
}

// HookEvent names a lifecycle point of an aggregate.
type HookEvent string

const (
	BeforeCreate HookEvent = "before_create"
	AfterCreate  HookEvent = "after_create"
	BeforeUpdate HookEvent = "before_update"
	BeforeDelete HookEvent = "before_delete"
)

// Hook runs at a lifecycle point. A Before hook error aborts the operation
// and its transaction.
type Hook[T any] func(ctx context.Context, entity T) error

// HookRegistry keeps hooks per event in registration order. It is filled
// at wiring time and read-only afterwards.
type HookRegistry[T any] struct {
	hooks map[HookEvent][]Hook[T]
}

func NewHookRegistry[T any]() *HookRegistry[T] {
	return &HookRegistry[T]{hooks: make(map[HookEvent][]Hook[T])}
}

func (r *HookRegistry[T]) On(event HookEvent, hook Hook[T]) {
	r.hooks[event] = append(r.hooks[event], hook)
}

// Run calls the hooks of event and stops at the first error.
func (r *HookRegistry[T]) Run(ctx context.Context, event HookEvent, entity T) error {
	for _, hook := range r.hooks[event] {
		if err := hook(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}
