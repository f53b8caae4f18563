// Package entity holds the building blocks embedded by domain rows.
package entity

import "time"

// SoftDelete marks a row as deleted without removing it.
type SoftDelete struct {
	DeletedAt *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
	DeletedBy *string    `db:"deleted_by" json:"deletedBy,omitempty"`
}

func (s *SoftDelete) IsDeleted() bool {
	return s.DeletedAt != nil
}

// MarkDeleted stamps the deletion. An empty userID leaves DeletedBy nil.
func (s *SoftDelete) MarkDeleted(userID string) {
	now := time.Now().UTC()
	s.DeletedAt = &now
	s.DeletedBy = nil
	if userID != "" {
		s.DeletedBy = &userID
	}
}

// Restore clears the deletion stamp.
func (s *SoftDelete) Restore() {
	s.DeletedAt, s.DeletedBy = nil, nil
}
