package quote

import (
	"context"
	"fmt"

	"hubchantier/internal/core/id"
)

// GetActive fetches a quote header, treating soft-deleted quotes as absent.
func GetActive(ctx context.Context, repo QuoteRepository, quoteID id.ID) (*Quote, error) {
	q, err := repo.GetByID(ctx, quoteID)
	if err != nil {
		return nil, NormalizeNotFound(err, EntityQuote, quoteID)
	}
	if q.IsDeleted() {
		return nil, NewQuoteNotFound(quoteID)
	}
	return q, nil
}

// LoadAggregate fetches a live quote with its lots, lines and cost items in
// stored order.
func LoadAggregate(ctx context.Context, repos Repositories, quoteID id.ID) (*Quote, error) {
	q, err := GetActive(ctx, repos.Quotes, quoteID)
	if err != nil {
		return nil, err
	}
	if err := LoadChildren(ctx, repos, q); err != nil {
		return nil, err
	}
	return q, nil
}

// LoadChildren fills q.Lots and everything below.
func LoadChildren(ctx context.Context, repos Repositories, q *Quote) error {
	lots, err := repos.Lots.ListByQuote(ctx, q.ID)
	if err != nil {
		return fmt.Errorf("list lots: %w", err)
	}
	for _, lot := range lots {
		lines, err := repos.Lines.ListByLot(ctx, lot.ID)
		if err != nil {
			return fmt.Errorf("list lines of lot %s: %w", lot.Code, err)
		}
		for _, line := range lines {
			items, err := repos.CostItems.ListByLine(ctx, line.ID)
			if err != nil {
				return fmt.Errorf("list cost items: %w", err)
			}
			line.CostItems = items
		}
		lot.Lines = lines
	}
	q.Lots = lots
	return nil
}

// LineCount counts lines over all loaded lots.
func (q *Quote) LineCount() int {
	n := 0
	for _, lot := range q.Lots {
		n += len(lot.Lines)
	}
	return n
}
