package quote

import (
	"context"

	"hubchantier/internal/core/id"
	"hubchantier/internal/domain"
)

// Repositories return an apperror not-found when an id does not resolve;
// use cases turn it into the entity-specific error.

// QuoteRepository persists quote headers.
type QuoteRepository interface {
	Create(ctx context.Context, q *Quote) error
	GetByID(ctx context.Context, quoteID id.ID) (*Quote, error)
	GetByNumber(ctx context.Context, number string) (*Quote, error)
	// Update persists header fields with optimistic locking on the row version.
	Update(ctx context.Context, q *Quote) error
	// ListByParent returns direct children (revisions and variants).
	ListByParent(ctx context.Context, parentID id.ID) ([]*Quote, error)
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Quote], error)
}

// ListFilter for filtering quotes.
type ListFilter struct {
	domain.ListFilter

	Status     *Status
	ClientName string
}

// LotRepository persists lots.
type LotRepository interface {
	Create(ctx context.Context, lot *Lot) error
	// CreateMany inserts lots in one round trip.
	CreateMany(ctx context.Context, lots []*Lot) error
	GetByID(ctx context.Context, lotID id.ID) (*Lot, error)
	// ListByQuote returns lots ordered by sort order.
	ListByQuote(ctx context.Context, quoteID id.ID) ([]*Lot, error)
	Update(ctx context.Context, lot *Lot) error
	// Delete removes the lot with its lines and cost items.
	Delete(ctx context.Context, lotID id.ID) error
}

// LineRepository persists lines.
type LineRepository interface {
	Create(ctx context.Context, line *Line) error
	// CreateMany inserts lines in one round trip; their lots must exist.
	CreateMany(ctx context.Context, lines []*Line) error
	GetByID(ctx context.Context, lineID id.ID) (*Line, error)
	// ListByLot returns lines ordered by sort order.
	ListByLot(ctx context.Context, lotID id.ID) ([]*Line, error)
	Update(ctx context.Context, line *Line) error
	// Delete removes the line with its cost items.
	Delete(ctx context.Context, lineID id.ID) error
}

// CostItemRepository persists cost items.
type CostItemRepository interface {
	Create(ctx context.Context, item *CostItem) error
	// CreateMany inserts items in slice order, which ListByLine keeps.
	CreateMany(ctx context.Context, items []CostItem) error
	ListByLine(ctx context.Context, lineID id.ID) ([]CostItem, error)
	DeleteByLine(ctx context.Context, lineID id.ID) error
}

// JournalRepository stores the audit trail of a quote.
type JournalRepository interface {
	Save(ctx context.Context, entry *JournalEntry) error
	ListByQuote(ctx context.Context, quoteID id.ID) ([]JournalEntry, error)
}

// ComparisonRepository stores version comparisons.
type ComparisonRepository interface {
	Save(ctx context.Context, c *Comparison) error
	GetByID(ctx context.Context, comparisonID id.ID) (*Comparison, error)
}

// Repositories bundles every store of the aggregate.
type Repositories struct {
	Quotes      QuoteRepository
	Lots        LotRepository
	Lines       LineRepository
	CostItems   CostItemRepository
	Journal     JournalRepository
	Comparisons ComparisonRepository
}
