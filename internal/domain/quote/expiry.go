package quote

import (
	"context"
	"time"

	"hubchantier/internal/core/id"
	"hubchantier/internal/domain"
	"hubchantier/pkg/logger"
)

// expirablePageSize bounds each listing page of the expiry sweep.
const expirablePageSize = 200

// ExpireOverdue marks as expired every sent or viewed quote whose validity
// date is before today. A quote that fails to transition is logged and
// skipped; the returned count covers the successful ones only.
func (s *Service) ExpireOverdue(ctx context.Context, today time.Time) (int, error) {
	var overdue []id.ID
	for _, status := range []Status{StatusSent, StatusViewed} {
		ids, err := s.overdueWithStatus(ctx, status, today)
		if err != nil {
			return 0, err
		}
		overdue = append(overdue, ids...)
	}

	expired := 0
	for _, quoteID := range overdue {
		if _, err := s.Transition(ctx, quoteID, ActionMarkExpired); err != nil {
			logger.Warn(ctx, "quote expiry skipped", "quote_id", quoteID, "error", err)
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *Service) overdueWithStatus(ctx context.Context, status Status, today time.Time) ([]id.ID, error) {
	var ids []id.ID
	for offset := 0; ; offset += expirablePageSize {
		filter := ListFilter{ListFilter: domain.DefaultListFilter(), Status: &status}
		filter.Limit = expirablePageSize
		filter.Offset = offset
		filter.OrderBy = "created_at"

		page, err := s.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		for _, q := range page.Items {
			if q.IsExpired(today) {
				ids = append(ids, q.ID)
			}
		}
		if !page.HasMore() || len(page.Items) == 0 {
			return ids, nil
		}
	}
}
