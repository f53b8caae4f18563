// Package quotetest provides an in-memory implementation of the quote
// repositories with snapshot-based transactions, for use case tests.
package quotetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"hubchantier/internal/core/apperror"
	"hubchantier/internal/core/id"
	"hubchantier/internal/domain"
	"hubchantier/internal/domain/quote"
)

// Store holds every table in memory. It implements tx.ReadOnlyManager:
// a failing transaction restores the state captured when it began.
type Store struct {
	mu          sync.Mutex
	quotes      map[id.ID]quote.Quote
	lots        map[id.ID]quote.Lot
	lines       map[id.ID]quote.Line
	costItems   map[id.ID][]quote.CostItem
	journal     []quote.JournalEntry
	comparisons map[id.ID]quote.Comparison

	// Transactions counts top-level transactions, ReadOnlyTransactions
	// counts the read-only ones.
	Transactions         int
	ReadOnlyTransactions int

	// Inserts counts single-row creates per entity, Batches the CreateMany
	// calls that wrote at least one row.
	Inserts map[string]int
	Batches map[string]int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		quotes:      make(map[id.ID]quote.Quote),
		lots:        make(map[id.ID]quote.Lot),
		lines:       make(map[id.ID]quote.Line),
		costItems:   make(map[id.ID][]quote.CostItem),
		comparisons: make(map[id.ID]quote.Comparison),
		Inserts:     make(map[string]int),
		Batches:     make(map[string]int),
	}
}

// Writes returns the single-row and bulk insert counts of entity.
func (s *Store) Writes(entity string) (inserts, batches int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Inserts[entity], s.Batches[entity]
}

// Repositories returns repositories backed by the store.
func (s *Store) Repositories() quote.Repositories {
	return quote.Repositories{
		Quotes:      quoteRepo{s},
		Lots:        lotRepo{s},
		Lines:       lineRepo{s},
		CostItems:   costItemRepo{s},
		Journal:     journalRepo{s},
		Comparisons: comparisonRepo{s},
	}
}

type txKey struct{}

// RunInTransaction implements tx.Manager.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	s.Transactions++
	snap := s.snapshot()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.restore(snap)
		s.mu.Unlock()
		return err
	}
	return nil
}

// ReadOnly implements tx.ReadOnlyManager.
func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	s.ReadOnlyTransactions++
	s.mu.Unlock()
	return s.RunInTransaction(ctx, fn)
}

type snapshot struct {
	quotes      map[id.ID]quote.Quote
	lots        map[id.ID]quote.Lot
	lines       map[id.ID]quote.Line
	costItems   map[id.ID][]quote.CostItem
	journal     []quote.JournalEntry
	comparisons map[id.ID]quote.Comparison
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		quotes:      make(map[id.ID]quote.Quote, len(s.quotes)),
		lots:        make(map[id.ID]quote.Lot, len(s.lots)),
		lines:       make(map[id.ID]quote.Line, len(s.lines)),
		costItems:   make(map[id.ID][]quote.CostItem, len(s.costItems)),
		journal:     append([]quote.JournalEntry(nil), s.journal...),
		comparisons: make(map[id.ID]quote.Comparison, len(s.comparisons)),
	}
	for k, v := range s.quotes {
		snap.quotes[k] = v
	}
	for k, v := range s.lots {
		snap.lots[k] = v
	}
	for k, v := range s.lines {
		snap.lines[k] = v
	}
	for k, v := range s.costItems {
		snap.costItems[k] = append([]quote.CostItem(nil), v...)
	}
	for k, v := range s.comparisons {
		snap.comparisons[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.quotes = snap.quotes
	s.lots = snap.lots
	s.lines = snap.lines
	s.costItems = snap.costItems
	s.journal = snap.journal
	s.comparisons = snap.comparisons
}

// Journal returns a copy of every journal entry in insertion order.
func (s *Store) Journal() []quote.JournalEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]quote.JournalEntry(nil), s.journal...)
}

// Comparisons returns every stored comparison.
func (s *Store) Comparisons() []quote.Comparison {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]quote.Comparison, 0, len(s.comparisons))
	for _, c := range s.comparisons {
		out = append(out, c)
	}
	return out
}

// QuoteCount returns the number of stored quotes, deleted ones included.
func (s *Store) QuoteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.quotes)
}

// --- quotes ---

type quoteRepo struct{ s *Store }

func (r quoteRepo) Create(ctx context.Context, q *quote.Quote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.quotes[q.ID]; exists {
		return apperror.NewDuplicate(quote.EntityQuote, "id", q.ID.String())
	}
	for _, other := range r.s.quotes {
		if other.Number == q.Number {
			return apperror.NewDuplicate(quote.EntityQuote, "number", q.Number)
		}
	}
	r.s.quotes[q.ID] = headerOf(q)
	return nil
}

func (r quoteRepo) GetByID(ctx context.Context, quoteID id.ID) (*quote.Quote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q, ok := r.s.quotes[quoteID]
	if !ok {
		return nil, apperror.NewNotFound(quote.EntityQuote, quoteID.String())
	}
	return &q, nil
}

func (r quoteRepo) GetByNumber(ctx context.Context, number string) (*quote.Quote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, q := range r.s.quotes {
		if q.Number == number {
			found := q
			return &found, nil
		}
	}
	return nil, apperror.NewNotFound(quote.EntityQuote, number)
}

func (r quoteRepo) Update(ctx context.Context, q *quote.Quote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.quotes[q.ID]
	if !ok {
		return apperror.NewNotFound(quote.EntityQuote, q.ID.String())
	}
	if stored.Version != q.Version {
		return apperror.NewConcurrentModification(quote.EntityQuote, q.ID.String())
	}
	q.Touch()
	r.s.quotes[q.ID] = headerOf(q)
	return nil
}

func (r quoteRepo) ListByParent(ctx context.Context, parentID id.ID) ([]*quote.Quote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*quote.Quote
	for _, q := range r.s.quotes {
		if q.ParentID != nil && *q.ParentID == parentID {
			child := q
			out = append(out, &child)
		}
	}
	sortQuotes(out)
	return out, nil
}

func (r quoteRepo) List(ctx context.Context, filter quote.ListFilter) (domain.ListResult[*quote.Quote], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matched []*quote.Quote
	for _, q := range r.s.quotes {
		if q.IsDeleted() && !filter.IncludeDeleted {
			continue
		}
		if filter.Status != nil && q.Status != *filter.Status {
			continue
		}
		if filter.ClientName != "" && !strings.Contains(strings.ToLower(q.ClientName), strings.ToLower(filter.ClientName)) {
			continue
		}
		if filter.Search != "" && !strings.Contains(q.Number, filter.Search) {
			continue
		}
		item := q
		matched = append(matched, &item)
	}
	sortQuotes(matched)

	result := domain.ListResult[*quote.Quote]{TotalCount: int64(len(matched)), Limit: filter.Limit, Offset: filter.Offset}
	start := min(filter.Offset, len(matched))
	end := len(matched)
	if filter.Limit > 0 {
		end = min(start+filter.Limit, len(matched))
	}
	result.Items = matched[start:end]
	return result, nil
}

func headerOf(q *quote.Quote) quote.Quote {
	h := *q
	h.Lots = nil
	return h
}

func sortQuotes(qs []*quote.Quote) {
	sort.Slice(qs, func(i, j int) bool {
		if qs[i].VersionNumber != qs[j].VersionNumber {
			return qs[i].VersionNumber < qs[j].VersionNumber
		}
		return qs[i].Number < qs[j].Number
	})
}

// --- lots ---

type lotRepo struct{ s *Store }

func (r lotRepo) Create(ctx context.Context, lot *quote.Lot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.lots {
		if other.QuoteID == lot.QuoteID && other.Order == lot.Order {
			return apperror.NewDuplicate(quote.EntityLot, "order", lot.Code)
		}
	}
	r.s.lots[lot.ID] = lotHeader(lot)
	r.s.Inserts[quote.EntityLot]++
	return nil
}

func (r lotRepo) CreateMany(ctx context.Context, lots []*quote.Lot) error {
	if len(lots) == 0 {
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, lot := range lots {
		if _, ok := r.s.quotes[lot.QuoteID]; !ok {
			return apperror.NewNotFound(quote.EntityQuote, lot.QuoteID.String())
		}
		for _, other := range r.s.lots {
			if other.QuoteID == lot.QuoteID && other.Order == lot.Order {
				return apperror.NewDuplicate(quote.EntityLot, "order", lot.Code)
			}
		}
		for _, other := range lots[:i] {
			if other.QuoteID == lot.QuoteID && other.Order == lot.Order {
				return apperror.NewDuplicate(quote.EntityLot, "order", lot.Code)
			}
		}
	}
	for _, lot := range lots {
		r.s.lots[lot.ID] = lotHeader(lot)
	}
	r.s.Batches[quote.EntityLot]++
	return nil
}

func (r lotRepo) GetByID(ctx context.Context, lotID id.ID) (*quote.Lot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	lot, ok := r.s.lots[lotID]
	if !ok {
		return nil, apperror.NewNotFound(quote.EntityLot, lotID.String())
	}
	return &lot, nil
}

func (r lotRepo) ListByQuote(ctx context.Context, quoteID id.ID) ([]*quote.Lot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*quote.Lot
	for _, lot := range r.s.lots {
		if lot.QuoteID == quoteID {
			item := lot
			out = append(out, &item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (r lotRepo) Update(ctx context.Context, lot *quote.Lot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.lots[lot.ID]
	if !ok {
		return apperror.NewNotFound(quote.EntityLot, lot.ID.String())
	}
	if stored.Version != lot.Version {
		return apperror.NewConcurrentModification(quote.EntityLot, lot.ID.String())
	}
	lot.Touch()
	r.s.lots[lot.ID] = lotHeader(lot)
	return nil
}

func (r lotRepo) Delete(ctx context.Context, lotID id.ID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.lots[lotID]; !ok {
		return apperror.NewNotFound(quote.EntityLot, lotID.String())
	}
	for lineID, line := range r.s.lines {
		if line.LotID == lotID {
			delete(r.s.costItems, lineID)
			delete(r.s.lines, lineID)
		}
	}
	delete(r.s.lots, lotID)
	return nil
}

func lotHeader(lot *quote.Lot) quote.Lot {
	h := *lot
	h.Lines = nil
	return h
}

// --- lines ---

type lineRepo struct{ s *Store }

func (r lineRepo) Create(ctx context.Context, line *quote.Line) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.lots[line.LotID]; !ok {
		return apperror.NewNotFound(quote.EntityLot, line.LotID.String())
	}
	r.s.lines[line.ID] = lineHeader(line)
	r.s.Inserts[quote.EntityLine]++
	return nil
}

func (r lineRepo) CreateMany(ctx context.Context, lines []*quote.Line) error {
	if len(lines) == 0 {
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, line := range lines {
		if _, ok := r.s.lots[line.LotID]; !ok {
			return apperror.NewNotFound(quote.EntityLot, line.LotID.String())
		}
	}
	for _, line := range lines {
		r.s.lines[line.ID] = lineHeader(line)
	}
	r.s.Batches[quote.EntityLine]++
	return nil
}

func (r lineRepo) GetByID(ctx context.Context, lineID id.ID) (*quote.Line, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	line, ok := r.s.lines[lineID]
	if !ok {
		return nil, apperror.NewNotFound(quote.EntityLine, lineID.String())
	}
	return &line, nil
}

func (r lineRepo) ListByLot(ctx context.Context, lotID id.ID) ([]*quote.Line, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*quote.Line
	for _, line := range r.s.lines {
		if line.LotID == lotID {
			item := line
			out = append(out, &item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (r lineRepo) Update(ctx context.Context, line *quote.Line) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.lines[line.ID]
	if !ok {
		return apperror.NewNotFound(quote.EntityLine, line.ID.String())
	}
	if stored.Version != line.Version {
		return apperror.NewConcurrentModification(quote.EntityLine, line.ID.String())
	}
	line.Touch()
	r.s.lines[line.ID] = lineHeader(line)
	return nil
}

func (r lineRepo) Delete(ctx context.Context, lineID id.ID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.lines[lineID]; !ok {
		return apperror.NewNotFound(quote.EntityLine, lineID.String())
	}
	delete(r.s.costItems, lineID)
	delete(r.s.lines, lineID)
	return nil
}

func lineHeader(line *quote.Line) quote.Line {
	h := *line
	h.CostItems = nil
	return h
}

// --- cost items ---

type costItemRepo struct{ s *Store }

func (r costItemRepo) Create(ctx context.Context, item *quote.CostItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.lines[item.LineID]; !ok {
		return apperror.NewNotFound(quote.EntityLine, item.LineID.String())
	}
	r.s.costItems[item.LineID] = append(r.s.costItems[item.LineID], *item)
	r.s.Inserts[quote.EntityCostItem]++
	return nil
}

func (r costItemRepo) CreateMany(ctx context.Context, items []quote.CostItem) error {
	if len(items) == 0 {
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, item := range items {
		if _, ok := r.s.lines[item.LineID]; !ok {
			return apperror.NewNotFound(quote.EntityLine, item.LineID.String())
		}
	}
	for _, item := range items {
		r.s.costItems[item.LineID] = append(r.s.costItems[item.LineID], item)
	}
	r.s.Batches[quote.EntityCostItem]++
	return nil
}

func (r costItemRepo) ListByLine(ctx context.Context, lineID id.ID) ([]quote.CostItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]quote.CostItem(nil), r.s.costItems[lineID]...), nil
}

func (r costItemRepo) DeleteByLine(ctx context.Context, lineID id.ID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.costItems, lineID)
	return nil
}

// --- journal ---

type journalRepo struct{ s *Store }

func (r journalRepo) Save(ctx context.Context, entry *quote.JournalEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	r.s.journal = append(r.s.journal, *entry)
	return nil
}

func (r journalRepo) ListByQuote(ctx context.Context, quoteID id.ID) ([]quote.JournalEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []quote.JournalEntry
	for _, e := range r.s.journal {
		if e.QuoteID == quoteID {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- comparisons ---

type comparisonRepo struct{ s *Store }

func (r comparisonRepo) Save(ctx context.Context, c *quote.Comparison) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.comparisons[c.ID] = *c
	return nil
}

func (r comparisonRepo) GetByID(ctx context.Context, comparisonID id.ID) (*quote.Comparison, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.comparisons[comparisonID]
	if !ok {
		return nil, apperror.NewNotFound(quote.EntityComparison, comparisonID.String())
	}
	return &c, nil
}
