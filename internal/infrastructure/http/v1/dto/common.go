// Package dto provides Data Transfer Objects for API requests/responses.
// Amounts and rates travel as decimal strings.
package dto

import (
	"fmt"
	"time"

	"hubchantier/internal/core/apperror"
)

const dateLayout = "2006-01-02"

// ListResponse wraps list results with pagination.
type ListResponse struct {
	Items      any   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// parseDate reads an optional YYYY-MM-DD field.
func parseDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *raw)
	if err != nil {
		return nil, apperror.NewValidation(fmt.Sprintf("Date invalide pour %s: %s (format attendu AAAA-MM-JJ)", field, *raw)).
			WithDetail("field", field)
	}
	return &t, nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}
