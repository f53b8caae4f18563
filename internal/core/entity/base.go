package entity

import (
	"context"
	"time"

	"hubchantier/internal/core/id"
)

// Validatable is implemented by aggregate members that check their own
// invariants without touching storage.
type Validatable interface {
	Validate(ctx context.Context) error
}

// Identity is embedded by every persisted row: primary key plus the
// optimistic locking counter.
type Identity struct {
	ID      id.ID `db:"id" json:"id"`
	Version int   `db:"row_version" json:"rowVersion"`
}

// NewIdentity returns a fresh identity at version 1.
func NewIdentity() Identity {
	return Identity{ID: id.New(), Version: 1}
}

// Touch bumps the row version. Repositories call it right after a
// successful conditional update.
func (i *Identity) Touch() {
	i.Version++
}

// Audited adds creation and modification stamps to an Identity.
type Audited struct {
	Identity

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
	UpdatedBy string    `db:"updated_by" json:"updatedBy,omitempty"`
}

// NewAudited returns a fresh identity with both stamps set to now (UTC).
func NewAudited() Audited {
	now := time.Now().UTC()
	return Audited{Identity: NewIdentity(), CreatedAt: now, UpdatedAt: now}
}

// Stamp moves UpdatedAt to now. The version is left to the repository.
func (a *Audited) Stamp() {
	a.UpdatedAt = time.Now().UTC()
}
