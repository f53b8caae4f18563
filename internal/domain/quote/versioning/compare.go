package versioning

import (
	"time"

	"github.com/shopspring/decimal"

	"hubchantier/internal/core/id"
	"hubchantier/internal/domain/quote"
	"hubchantier/internal/domain/quote/pricing"
)

// Compare builds the target minus source deltas of two priced quotes. Lots
// are matched by code: source order first, then lots only the target has.
func Compare(src, dst *quote.Quote, srcReport, dstReport *pricing.Report) *quote.Comparison {
	cmp := &quote.Comparison{
		ID:            id.New(),
		SourceQuoteID: src.ID,
		TargetQuoteID: dst.ID,
		SourceNumber:  src.Number,
		TargetNumber:  dst.Number,

		RawCostDelta:           dstReport.TotalRawCost.Sub(srcReport.TotalRawCost),
		CostAfterOverheadDelta: dstReport.TotalCostAfterOverhead.Sub(srcReport.TotalCostAfterOverhead),
		SalePriceDelta:         dstReport.TotalSalePrice.Sub(srcReport.TotalSalePrice),
		MarginDelta:            dstReport.GlobalMarginAmount.Sub(srcReport.GlobalMarginAmount),
		TotalHTDelta:           dst.TotalHT.Sub(src.TotalHT),
		LotCountDelta:          len(dst.Lots) - len(src.Lots),
		LineCountDelta:         dst.LineCount() - src.LineCount(),
		Lots:                   []quote.LotDelta{},
		CreatedAt:              time.Now().UTC(),
	}

	target := make(map[string]pricing.LotSummary, len(dstReport.Lots))
	for _, l := range dstReport.Lots {
		target[l.Code] = l
	}
	matched := make(map[string]bool, len(srcReport.Lots))

	for _, s := range srcReport.Lots {
		delta := quote.LotDelta{
			Code:          s.Code,
			Label:         s.Label,
			Presence:      quote.LotOnlySource,
			SourceRawCost: s.RawCost,
			TargetRawCost: decimal.Zero,
		}
		lineDelta := -s.LineCount
		if t, ok := target[s.Code]; ok {
			delta.Presence = quote.LotInBoth
			delta.Label = t.Label
			delta.TargetRawCost = t.RawCost
			lineDelta += t.LineCount
			matched[s.Code] = true
		}
		delta.RawCostDelta = delta.TargetRawCost.Sub(delta.SourceRawCost)
		delta.LineCountDelta = lineDelta
		cmp.Lots = append(cmp.Lots, delta)
	}

	for _, t := range dstReport.Lots {
		if matched[t.Code] {
			continue
		}
		cmp.Lots = append(cmp.Lots, quote.LotDelta{
			Code:           t.Code,
			Label:          t.Label,
			Presence:       quote.LotOnlyTarget,
			SourceRawCost:  decimal.Zero,
			TargetRawCost:  t.RawCost,
			RawCostDelta:   t.RawCost,
			LineCountDelta: t.LineCount,
		})
	}
	return cmp
}
