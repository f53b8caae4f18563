package quote_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"hubchantier/internal/core/id"
	"hubchantier/internal/domain/quote"
	"hubchantier/internal/infrastructure/storage/postgres"
)

// CostItemRepo is the PostgreSQL store of cost items. Rows keep insertion
// order through created_at.
type CostItemRepo struct {
	table
}

var _ quote.CostItemRepository = (*CostItemRepo)(nil)

func NewCostItemRepo(txManager *postgres.TxManager) *CostItemRepo {
	return &CostItemRepo{
		table: newTable(txManager, "quote_cost_items", quote.EntityCostItem, postgres.ExtractDBColumns[quote.CostItem]()),
	}
}

func (r *CostItemRepo) Create(ctx context.Context, item *quote.CostItem) error {
	return r.insert(ctx, item, nil)
}

// CreateMany copies items in slice order; created_at defaults to
// clock_timestamp() per row, so ListByLine returns the same order.
func (r *CostItemRepo) CreateMany(ctx context.Context, items []quote.CostItem) error {
	return copyRows(ctx, r.table, items)
}

func (r *CostItemRepo) ListByLine(ctx context.Context, lineID id.ID) ([]quote.CostItem, error) {
	var items []quote.CostItem
	q := r.baseSelect().
		Where(squirrel.Eq{"line_id": lineID}).
		OrderBy("created_at", "id")
	if err := r.list(ctx, &items, q); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *CostItemRepo) DeleteByLine(ctx context.Context, lineID id.ID) error {
	return r.delete(ctx, squirrel.Eq{"line_id": lineID}, lineID.String(), false)
}
