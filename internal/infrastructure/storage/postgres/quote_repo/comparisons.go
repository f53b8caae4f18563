package quote_repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"

	"hubchantier/internal/core/id"
	"hubchantier/internal/domain/quote"
	"hubchantier/internal/infrastructure/storage/postgres"
)

// comparisonRow adds the JSONB per-lot deltas to the flat comparison columns.
type comparisonRow struct {
	quote.Comparison
	LotsJSON []byte `db:"lots"`
}

// ComparisonRepo is the PostgreSQL store of version comparisons.
type ComparisonRepo struct {
	table
}

var _ quote.ComparisonRepository = (*ComparisonRepo)(nil)

func NewComparisonRepo(txManager *postgres.TxManager) *ComparisonRepo {
	cols := append(postgres.ExtractDBColumns[quote.Comparison](), "lots")
	return &ComparisonRepo{
		table: newTable(txManager, "quote_comparisons", quote.EntityComparison, cols),
	}
}

func (r *ComparisonRepo) Save(ctx context.Context, c *quote.Comparison) error {
	lots := c.Lots
	if lots == nil {
		lots = []quote.LotDelta{}
	}
	payload, err := json.Marshal(lots)
	if err != nil {
		return fmt.Errorf("marshal lot deltas: %w", err)
	}
	return r.insert(ctx, c, map[string]any{"lots": payload})
}

func (r *ComparisonRepo) GetByID(ctx context.Context, comparisonID id.ID) (*quote.Comparison, error) {
	var row comparisonRow
	if err := r.get(ctx, &row, squirrel.Eq{"id": comparisonID}, comparisonID.String()); err != nil {
		return nil, err
	}

	c := row.Comparison
	if len(row.LotsJSON) > 0 {
		if err := json.Unmarshal(row.LotsJSON, &c.Lots); err != nil {
			return nil, fmt.Errorf("unmarshal lot deltas: %w", err)
		}
	}
	return &c, nil
}
