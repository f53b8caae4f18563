package quote_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"hubchantier/internal/core/id"
	"hubchantier/internal/domain"
	"hubchantier/internal/domain/quote"
	"hubchantier/internal/infrastructure/storage/postgres"
)

// sortableQuoteCols are accepted by ListFilter.OrderBy.
var sortableQuoteCols = map[string]bool{
	"number":         true,
	"client_name":    true,
	"creation_date":  true,
	"created_at":     true,
	"updated_at":     true,
	"total_ht":       true,
	"version_number": true,
}

// QuoteRepo is the PostgreSQL store of quote headers.
type QuoteRepo struct {
	table
}

var _ quote.QuoteRepository = (*QuoteRepo)(nil)

// NewQuoteRepo creates a quote repository.
func NewQuoteRepo(txManager *postgres.TxManager) *QuoteRepo {
	return &QuoteRepo{
		table: newTable(txManager, "quotes", quote.EntityQuote, postgres.ExtractDBColumns[quote.Quote]()),
	}
}

func (r *QuoteRepo) Create(ctx context.Context, q *quote.Quote) error {
	return r.insert(ctx, q, nil)
}

func (r *QuoteRepo) GetByID(ctx context.Context, quoteID id.ID) (*quote.Quote, error) {
	var q quote.Quote
	if err := r.get(ctx, &q, squirrel.Eq{"id": quoteID}, quoteID.String()); err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuoteRepo) GetByNumber(ctx context.Context, number string) (*quote.Quote, error) {
	var q quote.Quote
	if err := r.get(ctx, &q, squirrel.Eq{"number": number}, number); err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuoteRepo) Update(ctx context.Context, q *quote.Quote) error {
	if err := r.update(ctx, q, q.ID, q.Version); err != nil {
		return err
	}
	q.Touch()
	return nil
}

func (r *QuoteRepo) ListByParent(ctx context.Context, parentID id.ID) ([]*quote.Quote, error) {
	var items []*quote.Quote
	q := r.baseSelect().
		Where(squirrel.Eq{"parent_id": parentID}).
		OrderBy("version_number", "created_at", "id")
	if err := r.list(ctx, &items, q); err != nil {
		return nil, err
	}
	return items, nil
}

// List returns a page of quotes with the total count of matching rows.
func (r *QuoteRepo) List(ctx context.Context, filter quote.ListFilter) (domain.ListResult[*quote.Quote], error) {
	filter.Normalize()
	result := domain.ListResult[*quote.Quote]{Limit: filter.Limit, Offset: filter.Offset}

	q := r.applyFilter(r.baseSelect(), filter)

	countSQL, countArgs, err := r.Builder().
		Select("COUNT(*)").
		FromSelect(q, "sub").
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := pgxscan.Get(ctx, r.querier(ctx), &result.TotalCount, countSQL, countArgs...); err != nil {
		return result, fmt.Errorf("count quotes: %w", err)
	}

	q = q.OrderBy(orderClause(filter.OrderBy), "id").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset))

	items := make([]*quote.Quote, 0, filter.Limit)
	if err := r.list(ctx, &items, q); err != nil {
		return result, err
	}
	result.Items = items
	return result, nil
}

func (r *QuoteRepo) applyFilter(q squirrel.SelectBuilder, filter quote.ListFilter) squirrel.SelectBuilder {
	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deleted_at": nil})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if name := strings.TrimSpace(filter.ClientName); name != "" {
		q = q.Where(squirrel.ILike{"client_name": "%" + name + "%"})
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"number": pattern},
			squirrel.ILike{"client_name": pattern},
			squirrel.ILike{"subject": pattern},
		})
	}
	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.IDs})
	}
	return q
}

// orderClause turns "-created_at" into "created_at DESC". Unknown columns
// fall back to newest first.
func orderClause(orderBy string) string {
	col := strings.TrimSpace(orderBy)
	dir := "ASC"
	if strings.HasPrefix(col, "-") {
		col = col[1:]
		dir = "DESC"
	}
	if !sortableQuoteCols[col] {
		return "created_at DESC"
	}
	return col + " " + dir
}
