package pricing

import "hubchantier/internal/core/types"

// ReportDTO is the wire form of a Report: every amount and rate is a
// decimal string. Raw costs are exact; the other amounts have two places.
type ReportDTO struct {
	QuoteID                string    `json:"quoteId"`
	GlobalMargin           string    `json:"globalMargin"`
	OverheadCoefficient    string    `json:"overheadCoefficient"`
	Lines                  []LineDTO `json:"lines"`
	Lots                   []LotDTO  `json:"lots"`
	TotalRawCost           string    `json:"totalRawCost"`
	TotalCostAfterOverhead string    `json:"totalCostAfterOverhead"`
	TotalSalePrice         string    `json:"totalSalePriceHt"`
	GlobalMarginAmount     string    `json:"globalMarginAmount"`
}

// LineDTO is the wire form of LineMargin.
type LineDTO struct {
	LineID            string `json:"lineId"`
	LotID             string `json:"lotId"`
	LotCode           string `json:"lotCode"`
	Designation       string `json:"designation"`
	RawCost           string `json:"rawCost"`
	CostAfterOverhead string `json:"costAfterOverhead"`
	SalePrice         string `json:"salePriceHt"`
	MarginRate        string `json:"marginRate"`
	Level             string `json:"level"`
}

// LotDTO is the wire form of LotSummary.
type LotDTO struct {
	LotID     string `json:"lotId"`
	Code      string `json:"code"`
	Label     string `json:"label"`
	RawCost   string `json:"rawCost"`
	LineCount int    `json:"lineCount"`
}

// DTO renders the report for transport.
func (r *Report) DTO() ReportDTO {
	dto := ReportDTO{
		QuoteID:                r.QuoteID.String(),
		GlobalMargin:           types.FormatRate(r.GlobalMargin),
		OverheadCoefficient:    types.FormatRate(r.OverheadCoefficient),
		Lines:                  make([]LineDTO, 0, len(r.Lines)),
		Lots:                   make([]LotDTO, 0, len(r.Lots)),
		TotalRawCost:           "0",
		TotalCostAfterOverhead: "0",
		TotalSalePrice:         "0",
		GlobalMarginAmount:     "0",
	}
	if r.HasLots {
		dto.TotalRawCost = r.TotalRawCost.String()
		dto.TotalCostAfterOverhead = types.FormatMoney(r.TotalCostAfterOverhead)
		dto.TotalSalePrice = types.FormatMoney(r.TotalSalePrice)
		dto.GlobalMarginAmount = types.FormatMoney(r.GlobalMarginAmount)
	}
	for _, l := range r.Lines {
		dto.Lines = append(dto.Lines, LineDTO{
			LineID:            l.LineID.String(),
			LotID:             l.LotID.String(),
			LotCode:           l.LotCode,
			Designation:       l.Designation,
			RawCost:           l.RawCost.String(),
			CostAfterOverhead: types.FormatMoney(l.CostAfterOverhead),
			SalePrice:         types.FormatMoney(l.SalePrice),
			MarginRate:        types.FormatRate(l.MarginRate),
			Level:             string(l.Level),
		})
	}
	for _, l := range r.Lots {
		dto.Lots = append(dto.Lots, LotDTO{
			LotID:     l.LotID.String(),
			Code:      l.Code,
			Label:     l.Label,
			RawCost:   l.RawCost.String(),
			LineCount: l.LineCount,
		})
	}
	return dto
}
