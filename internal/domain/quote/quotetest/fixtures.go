package quotetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"hubchantier/internal/core/id"
	"hubchantier/internal/domain/quote"
)

// Dec parses a decimal literal, panicking on malformed test input.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DecPtr is Dec returning a pointer, for optional rates.
func DecPtr(s string) *decimal.Decimal {
	d := Dec(s)
	return &d
}

// Today is the fixed creation date of seeded quotes.
var Today = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

// SeedQuote stores a draft quote. Options run before storing.
func (s *Store) SeedQuote(t testing.TB, number string, opts ...func(*quote.Quote)) *quote.Quote {
	t.Helper()
	q := quote.NewQuote(number, "Acme", Today)
	for _, opt := range opts {
		opt(q)
	}
	if err := s.Repositories().Quotes.Create(context.Background(), q); err != nil {
		t.Fatalf("seed quote %s: %v", number, err)
	}
	return q
}

// SeedLot stores a lot.
func (s *Store) SeedLot(t testing.TB, quoteID id.ID, code string, order int, opts ...func(*quote.Lot)) *quote.Lot {
	t.Helper()
	lot := quote.NewLot(quoteID, code, "Lot "+code, order)
	for _, opt := range opts {
		opt(lot)
	}
	if err := s.Repositories().Lots.Create(context.Background(), lot); err != nil {
		t.Fatalf("seed lot %s: %v", code, err)
	}
	return lot
}

// SeedLine stores a line with quantity 1 and unit price 0 unless options say otherwise.
func (s *Store) SeedLine(t testing.TB, lotID id.ID, designation string, order int, opts ...func(*quote.Line)) *quote.Line {
	t.Helper()
	line := quote.NewLine(lotID, designation, quote.UnitPiece, decimal.NewFromInt(1), decimal.Zero, Dec("20"), order)
	for _, opt := range opts {
		opt(line)
	}
	if err := s.Repositories().Lines.Create(context.Background(), line); err != nil {
		t.Fatalf("seed line %s: %v", designation, err)
	}
	return line
}

// SeedCostItem stores a cost item of quantity × unitPrice.
func (s *Store) SeedCostItem(t testing.TB, lineID id.ID, costType quote.CostType, quantity, unitPrice string) quote.CostItem {
	t.Helper()
	item := quote.NewCostItem(lineID, costType, string(costType), Dec(quantity), Dec(unitPrice))
	if err := s.Repositories().CostItems.Create(context.Background(), &item); err != nil {
		t.Fatalf("seed cost item: %v", err)
	}
	return item
}

// SeedWorkedExample stores the reference quote: one lot, one line, labor
// 5040 + materials 2800 + materials 170 (raw cost 8010), overhead 19%,
// global margin 15%.
func (s *Store) SeedWorkedExample(t testing.TB) (*quote.Quote, *quote.Lot, *quote.Line) {
	t.Helper()
	q := s.SeedQuote(t, "DEV-001", func(q *quote.Quote) {
		q.GlobalMargin = Dec("15")
		q.OverheadCoefficient = DecPtr("19")
	})
	lot := s.SeedLot(t, q.ID, "01", 1)
	line := s.SeedLine(t, lot.ID, "Demolition", 1)
	s.SeedCostItem(t, line.ID, quote.CostLabor, "120", "42")
	s.SeedCostItem(t, line.ID, quote.CostMaterials, "40", "70")
	s.SeedCostItem(t, line.ID, quote.CostMaterials, "1", "170")
	return q, lot, line
}
