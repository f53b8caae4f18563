package quote_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"hubchantier/internal/core/id"
	"hubchantier/internal/domain/quote"
	"hubchantier/internal/infrastructure/storage/postgres"
)

// LineRepo is the PostgreSQL store of lines.
type LineRepo struct {
	table
}

var _ quote.LineRepository = (*LineRepo)(nil)

func NewLineRepo(txManager *postgres.TxManager) *LineRepo {
	return &LineRepo{
		table: newTable(txManager, "quote_lines", quote.EntityLine, postgres.ExtractDBColumns[quote.Line]()),
	}
}

func (r *LineRepo) Create(ctx context.Context, line *quote.Line) error {
	return r.insert(ctx, line, nil)
}

func (r *LineRepo) CreateMany(ctx context.Context, lines []*quote.Line) error {
	return copyRows(ctx, r.table, lines)
}

func (r *LineRepo) GetByID(ctx context.Context, lineID id.ID) (*quote.Line, error) {
	var line quote.Line
	if err := r.get(ctx, &line, squirrel.Eq{"id": lineID}, lineID.String()); err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *LineRepo) ListByLot(ctx context.Context, lotID id.ID) ([]*quote.Line, error) {
	var lines []*quote.Line
	q := r.baseSelect().
		Where(squirrel.Eq{"lot_id": lotID}).
		OrderBy("sort_order", "id")
	if err := r.list(ctx, &lines, q); err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *LineRepo) Update(ctx context.Context, line *quote.Line) error {
	if err := r.update(ctx, line, line.ID, line.Version); err != nil {
		return err
	}
	line.Touch()
	return nil
}

func (r *LineRepo) Delete(ctx context.Context, lineID id.ID) error {
	return r.delete(ctx, squirrel.Eq{"id": lineID}, lineID.String(), true)
}
