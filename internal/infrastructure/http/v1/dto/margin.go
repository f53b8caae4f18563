package dto

import (
	"fmt"

	"github.com/shopspring/decimal"

	"hubchantier/internal/core/apperror"
	"hubchantier/internal/domain/quote"
	"hubchantier/internal/domain/quote/pricing"
)

// SetGlobalMarginRequest replaces the quote-level rates. A costTypeMargins
// key set to null clears that rate.
type SetGlobalMarginRequest struct {
	GlobalMargin        *decimal.Decimal            `json:"globalMargin"`
	CostTypeMargins     map[string]*decimal.Decimal `json:"costTypeMargins,omitempty"`
	OverheadCoefficient *decimal.Decimal            `json:"overheadCoefficient,omitempty"`
}

// ToInput converts the request to the use case input.
func (r *SetGlobalMarginRequest) ToInput() (pricing.GlobalMarginInput, error) {
	if r.GlobalMargin == nil {
		return pricing.GlobalMarginInput{}, apperror.NewValidation("La marge globale est obligatoire").
			WithDetail("field", "globalMargin")
	}
	in := pricing.GlobalMarginInput{
		GlobalMargin:        *r.GlobalMargin,
		OverheadCoefficient: r.OverheadCoefficient,
	}
	if len(r.CostTypeMargins) > 0 {
		in.CostTypeMargins = make(map[quote.CostType]*decimal.Decimal, len(r.CostTypeMargins))
		for key, rate := range r.CostTypeMargins {
			ct := quote.CostType(key)
			if !ct.IsValid() {
				return pricing.GlobalMarginInput{}, apperror.NewValidation(fmt.Sprintf("Type de debourse inconnu: %s", key)).
					WithDetail("field", "costTypeMargins")
			}
			in.CostTypeMargins[ct] = rate
		}
	}
	return in, nil
}

// SetMarginRequest sets or clears (null) a lot or line override.
type SetMarginRequest struct {
	MarginRate *decimal.Decimal `json:"marginRate"`
}
