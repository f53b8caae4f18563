// Package pricing resolves the margin rate of every line of a quote and
// turns raw costs into sale prices.
package pricing

import (
	"github.com/shopspring/decimal"

	"hubchantier/internal/domain/quote"
)

// Level tags which override supplied a line's margin rate.
type Level string

const (
	LevelLine     Level = "ligne"
	LevelLot      Level = "lot"
	LevelCostType Level = "type_debourse"
	LevelGlobal   Level = "global"
)

// Resolver reports the rate one override level supplies for a line, if any.
// Line.CostItems must be loaded.
type Resolver func(q *quote.Quote, lot *quote.Lot, line *quote.Line) (decimal.Decimal, Level, bool)

// DefaultChain is the override priority: line, lot, cost type, global.
var DefaultChain = []Resolver{LineOverride, LotOverride, CostTypeRate, GlobalRate}

// LineOverride supplies the line's own margin.
func LineOverride(_ *quote.Quote, _ *quote.Lot, line *quote.Line) (decimal.Decimal, Level, bool) {
	if line.MarginRate == nil {
		return decimal.Zero, "", false
	}
	return *line.MarginRate, LevelLine, true
}

// LotOverride supplies the owning lot's margin.
func LotOverride(_ *quote.Quote, lot *quote.Lot, _ *quote.Line) (decimal.Decimal, Level, bool) {
	if lot.MarginRate == nil {
		return decimal.Zero, "", false
	}
	return *lot.MarginRate, LevelLot, true
}

// CostTypeRate supplies the quote rate of the line's cost type. It applies
// only when every cost item of the line shares one type; lines without
// cost items or with mixed types fall through to the next level.
func CostTypeRate(q *quote.Quote, _ *quote.Lot, line *quote.Line) (decimal.Decimal, Level, bool) {
	ct, ok := line.SingleCostType()
	if !ok {
		return decimal.Zero, "", false
	}
	rate := q.CostTypeMargin(ct)
	if rate == nil {
		return decimal.Zero, "", false
	}
	return *rate, LevelCostType, true
}

// GlobalRate always supplies the quote's global margin.
func GlobalRate(q *quote.Quote, _ *quote.Lot, _ *quote.Line) (decimal.Decimal, Level, bool) {
	return q.GlobalMargin, LevelGlobal, true
}

// Resolve walks chain and returns the first defined rate. An exhausted
// chain falls back to the global margin.
func Resolve(chain []Resolver, q *quote.Quote, lot *quote.Lot, line *quote.Line) (decimal.Decimal, Level) {
	for _, resolve := range chain {
		if rate, level, ok := resolve(q, lot, line); ok {
			return rate, level
		}
	}
	return q.GlobalMargin, LevelGlobal
}
