// Package versioning creates revisions and variants of quotes, freezes
// versions and compares them.
package versioning

import (
	"github.com/shopspring/decimal"

	"hubchantier/internal/core/entity"
	"hubchantier/internal/domain/quote"
)

// Clone deep-copies a loaded aggregate under a new number. Every entity gets
// a fresh id; the copy is a live draft linked to src.
func Clone(src *quote.Quote, number string) *quote.Quote {
	dst := *src
	dst.Audited = entity.NewAudited()
	dst.SoftDelete = entity.SoftDelete{}
	dst.Number = number
	dst.Status = quote.StatusDraft
	dst.Frozen = false
	dst.FreezeComment = nil
	dst.FrozenAt = nil
	parentID := src.ID
	dst.ParentID = &parentID
	dst.VariantLabel = nil

	dst.ClientEmail = copyString(src.ClientEmail)
	dst.ClientPhone = copyString(src.ClientPhone)
	dst.ClientAddress = copyString(src.ClientAddress)
	if src.ValidityDate != nil {
		v := *src.ValidityDate
		dst.ValidityDate = &v
	}
	for _, ct := range quote.CostTypes {
		dst.SetCostTypeMargin(ct, copyRate(src.CostTypeMargin(ct)))
	}
	dst.OverheadCoefficient = copyRate(src.OverheadCoefficient)

	dst.Lots = make([]*quote.Lot, 0, len(src.Lots))
	for _, srcLot := range src.Lots {
		lot := quote.NewLot(dst.ID, srcLot.Code, srcLot.Label, srcLot.Order)
		lot.MarginRate = copyRate(srcLot.MarginRate)

		for _, srcLine := range srcLot.Lines {
			line := quote.NewLine(lot.ID, srcLine.Designation, srcLine.Unit,
				srcLine.Quantity, srcLine.UnitPrice, srcLine.VATRate, srcLine.Order)
			line.MarginRate = copyRate(srcLine.MarginRate)
			if srcLine.ArticleID != nil {
				articleID := *srcLine.ArticleID
				line.ArticleID = &articleID
			}

			for _, srcItem := range srcLine.CostItems {
				item := quote.NewCostItem(line.ID, srcItem.Type, srcItem.Label, srcItem.Quantity, srcItem.UnitPrice)
				item.Profession = copyString(srcItem.Profession)
				item.HourlyRate = copyRate(srcItem.HourlyRate)
				line.CostItems = append(line.CostItems, item)
			}
			lot.Lines = append(lot.Lines, line)
		}
		dst.Lots = append(dst.Lots, lot)
	}
	return &dst
}

func copyRate(r *decimal.Decimal) *decimal.Decimal {
	if r == nil {
		return nil
	}
	v := *r
	return &v
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
