package quote_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"hubchantier/internal/core/id"
	"hubchantier/internal/domain/quote"
	"hubchantier/internal/infrastructure/storage/postgres"
)

// LotRepo is the PostgreSQL store of lots.
type LotRepo struct {
	table
}

var _ quote.LotRepository = (*LotRepo)(nil)

func NewLotRepo(txManager *postgres.TxManager) *LotRepo {
	return &LotRepo{
		table: newTable(txManager, "quote_lots", quote.EntityLot, postgres.ExtractDBColumns[quote.Lot]()),
	}
}

func (r *LotRepo) Create(ctx context.Context, lot *quote.Lot) error {
	return r.insert(ctx, lot, nil)
}

func (r *LotRepo) CreateMany(ctx context.Context, lots []*quote.Lot) error {
	return copyRows(ctx, r.table, lots)
}

func (r *LotRepo) GetByID(ctx context.Context, lotID id.ID) (*quote.Lot, error) {
	var lot quote.Lot
	if err := r.get(ctx, &lot, squirrel.Eq{"id": lotID}, lotID.String()); err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *LotRepo) ListByQuote(ctx context.Context, quoteID id.ID) ([]*quote.Lot, error) {
	var lots []*quote.Lot
	q := r.baseSelect().
		Where(squirrel.Eq{"quote_id": quoteID}).
		OrderBy("sort_order", "id")
	if err := r.list(ctx, &lots, q); err != nil {
		return nil, err
	}
	return lots, nil
}

func (r *LotRepo) Update(ctx context.Context, lot *quote.Lot) error {
	if err := r.update(ctx, lot, lot.ID, lot.Version); err != nil {
		return err
	}
	lot.Touch()
	return nil
}

func (r *LotRepo) Delete(ctx context.Context, lotID id.ID) error {
	return r.delete(ctx, squirrel.Eq{"id": lotID}, lotID.String(), true)
}
