package pricing

import (
	"github.com/shopspring/decimal"

	"hubchantier/internal/core/id"
	"hubchantier/internal/core/types"
	"hubchantier/internal/domain/quote"
)

// LineMargin is the priced breakdown of one line.
type LineMargin struct {
	LineID      id.ID
	LotID       id.ID
	LotCode     string
	Designation string
	// RawCost is the exact sum of the line's cost items.
	RawCost decimal.Decimal
	// CostAfterOverhead and SalePrice are the line alone at its resolved rate.
	CostAfterOverhead decimal.Decimal
	SalePrice         decimal.Decimal
	MarginRate        decimal.Decimal
	Level             Level
}

// LotSummary aggregates the raw cost of one lot.
type LotSummary struct {
	LotID     id.ID
	Code      string
	Label     string
	RawCost   decimal.Decimal
	LineCount int
}

// Report is the priced breakdown of a quote.
type Report struct {
	QuoteID             id.ID
	GlobalMargin        decimal.Decimal
	OverheadCoefficient decimal.Decimal
	Lines               []LineMargin
	Lots                []LotSummary

	TotalRawCost           decimal.Decimal
	TotalCostAfterOverhead decimal.Decimal
	TotalSalePrice         decimal.Decimal
	GlobalMarginAmount     decimal.Decimal

	// HasLots is false for an empty quote, whose totals render as "0".
	HasLots bool
}

// Engine computes margins reports. It holds no state besides configuration
// and is safe for concurrent use.
type Engine struct {
	chain            []Resolver
	fallbackOverhead decimal.Decimal
}

// NewEngine creates an engine. fallbackOverhead applies to quotes without
// their own coefficient; an empty chain means DefaultChain.
func NewEngine(fallbackOverhead decimal.Decimal, chain ...Resolver) *Engine {
	if len(chain) == 0 {
		chain = DefaultChain
	}
	return &Engine{chain: chain, fallbackOverhead: fallbackOverhead}
}

// Compute prices a loaded aggregate. Lots and lines are visited in stored
// order so the per-line list is stable.
//
// Quote totals apply the two markups once on the summed raw cost, rounding
// each stage to cents:
//
//	costAfterOverhead = round2(raw × (1 + overhead/100))
//	salePrice         = round2(costAfterOverhead × (1 + globalMargin/100))
//	margin            = salePrice − costAfterOverhead
func (e *Engine) Compute(q *quote.Quote) *Report {
	overhead := q.EffectiveOverhead(e.fallbackOverhead)
	report := &Report{
		QuoteID:             q.ID,
		GlobalMargin:        q.GlobalMargin,
		OverheadCoefficient: overhead,
		Lines:               make([]LineMargin, 0),
		Lots:                make([]LotSummary, 0, len(q.Lots)),
		HasLots:             len(q.Lots) > 0,
	}

	total := decimal.Zero
	for _, lot := range q.Lots {
		lotTotal := decimal.Zero
		for _, line := range lot.Lines {
			raw := line.RawCost()
			rate, level := Resolve(e.chain, q, lot, line)
			costAfter := types.RoundMoney(types.Markup(raw, overhead))

			report.Lines = append(report.Lines, LineMargin{
				LineID:            line.ID,
				LotID:             lot.ID,
				LotCode:           lot.Code,
				Designation:       line.Designation,
				RawCost:           raw,
				CostAfterOverhead: costAfter,
				SalePrice:         types.RoundMoney(types.Markup(costAfter, rate)),
				MarginRate:        rate,
				Level:             level,
			})
			lotTotal = lotTotal.Add(raw)
		}
		report.Lots = append(report.Lots, LotSummary{
			LotID:     lot.ID,
			Code:      lot.Code,
			Label:     lot.Label,
			RawCost:   lotTotal,
			LineCount: len(lot.Lines),
		})
		total = total.Add(lotTotal)
	}

	report.TotalRawCost = total
	report.TotalCostAfterOverhead = types.RoundMoney(types.Markup(total, overhead))
	report.TotalSalePrice = types.RoundMoney(types.Markup(report.TotalCostAfterOverhead, q.GlobalMargin))
	report.GlobalMarginAmount = report.TotalSalePrice.Sub(report.TotalCostAfterOverhead)
	return report
}
