package dto

import (
	"time"

	"hubchantier/internal/core/types"
	"hubchantier/internal/domain/quote"
)

// CreateVariantRequest names the variant label (ECO, STD, PREM, ALT).
type CreateVariantRequest struct {
	Label string `json:"label" binding:"required"`
}

// FreezeRequest carries an optional freeze comment.
type FreezeRequest struct {
	Comment string `json:"comment"`
}

// CompareRequest names the two quotes to compare.
type CompareRequest struct {
	SourceQuoteID string `json:"sourceQuoteId" binding:"required"`
	TargetQuoteID string `json:"targetQuoteId" binding:"required"`
}

// VersionResponse is one member of a quote family.
type VersionResponse struct {
	ID            string  `json:"id"`
	Number        string  `json:"number"`
	VersionNumber int     `json:"versionNumber"`
	VersionType   string  `json:"versionType"`
	VariantLabel  *string `json:"variantLabel,omitempty"`
	ParentID      *string `json:"parentId,omitempty"`
	Status        string  `json:"status"`
	Frozen        bool    `json:"frozen"`
	TotalHT       string  `json:"totalHt"`
}

// FromVersions maps a family listing.
func FromVersions(items []*quote.Quote) []VersionResponse {
	out := make([]VersionResponse, 0, len(items))
	for _, q := range items {
		v := VersionResponse{
			ID:            q.ID.String(),
			Number:        q.Number,
			VersionNumber: q.VersionNumber,
			VersionType:   string(q.VersionType),
			Status:        string(q.Status),
			Frozen:        q.Frozen,
			TotalHT:       types.FormatMoney(q.TotalHT),
		}
		if q.VariantLabel != nil {
			label := string(*q.VariantLabel)
			v.VariantLabel = &label
		}
		if q.ParentID != nil {
			parent := q.ParentID.String()
			v.ParentID = &parent
		}
		out = append(out, v)
	}
	return out
}

// ComparisonResponse is the stored comparison between two versions.
type ComparisonResponse struct {
	ID                     string             `json:"id"`
	SourceQuoteID          string             `json:"sourceQuoteId"`
	TargetQuoteID          string             `json:"targetQuoteId"`
	SourceNumber           string             `json:"sourceNumber"`
	TargetNumber           string             `json:"targetNumber"`
	GeneratedBy            string             `json:"generatedBy"`
	RawCostDelta           string             `json:"rawCostDelta"`
	CostAfterOverheadDelta string             `json:"costAfterOverheadDelta"`
	SalePriceDelta         string             `json:"salePriceDelta"`
	MarginDelta            string             `json:"marginDelta"`
	TotalHTDelta           string             `json:"totalHtDelta"`
	LotCountDelta          int                `json:"lotCountDelta"`
	LineCountDelta         int                `json:"lineCountDelta"`
	Lots                   []LotDeltaResponse `json:"lots"`
	CreatedAt              time.Time          `json:"createdAt"`
}

// LotDeltaResponse compares one lot code.
type LotDeltaResponse struct {
	Code           string `json:"code"`
	Label          string `json:"label"`
	Presence       string `json:"presence"`
	SourceRawCost  string `json:"sourceRawCost"`
	TargetRawCost  string `json:"targetRawCost"`
	RawCostDelta   string `json:"rawCostDelta"`
	LineCountDelta int    `json:"lineCountDelta"`
}

// FromComparison maps a comparison.
func FromComparison(c *quote.Comparison) ComparisonResponse {
	resp := ComparisonResponse{
		ID:                     c.ID.String(),
		SourceQuoteID:          c.SourceQuoteID.String(),
		TargetQuoteID:          c.TargetQuoteID.String(),
		SourceNumber:           c.SourceNumber,
		TargetNumber:           c.TargetNumber,
		GeneratedBy:            c.GeneratedBy,
		RawCostDelta:           c.RawCostDelta.String(),
		CostAfterOverheadDelta: types.FormatMoney(c.CostAfterOverheadDelta),
		SalePriceDelta:         types.FormatMoney(c.SalePriceDelta),
		MarginDelta:            types.FormatMoney(c.MarginDelta),
		TotalHTDelta:           types.FormatMoney(c.TotalHTDelta),
		LotCountDelta:          c.LotCountDelta,
		LineCountDelta:         c.LineCountDelta,
		Lots:                   make([]LotDeltaResponse, 0, len(c.Lots)),
		CreatedAt:              c.CreatedAt,
	}
	for _, l := range c.Lots {
		resp.Lots = append(resp.Lots, LotDeltaResponse{
			Code:           l.Code,
			Label:          l.Label,
			Presence:       string(l.Presence),
			SourceRawCost:  l.SourceRawCost.String(),
			TargetRawCost:  l.TargetRawCost.String(),
			RawCostDelta:   l.RawCostDelta.String(),
			LineCountDelta: l.LineCountDelta,
		})
	}
	return resp
}
