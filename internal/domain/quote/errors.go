package quote

import (
	"fmt"

	"hubchantier/internal/core/apperror"
	"hubchantier/internal/core/id"
)

// Entity names used in not-found details.
const (
	EntityQuote      = "quote"
	EntityLot        = "lot"
	EntityLine       = "line"
	EntityCostItem   = "cost_item"
	EntityComparison = "comparison"
)

func NewQuoteNotFound(quoteID id.ID) *apperror.AppError {
	return apperror.NewNotFound(EntityQuote, quoteID.String())
}

func NewLotNotFound(lotID id.ID) *apperror.AppError {
	return apperror.NewNotFound(EntityLot, lotID.String())
}

func NewLineNotFound(lineID id.ID) *apperror.AppError {
	return apperror.NewNotFound(EntityLine, lineID.String())
}

func NewComparisonNotFound(comparisonID id.ID) *apperror.AppError {
	return apperror.NewNotFound(EntityComparison, comparisonID.String())
}

// NewNotImportable reports a quote whose status forbids DPGF import.
func NewNotImportable(q *Quote) *apperror.AppError {
	return apperror.NewBusinessRule(apperror.CodeNotImportable,
		fmt.Sprintf("Le devis %s ne peut pas recevoir d'import en statut %s", q.Number, q.Status)).
		WithDetail("quote_id", q.ID.String()).
		WithDetail("current_status", string(q.Status))
}

// NormalizeNotFound maps any repository not-found onto the entity the use
// case asked for, keeping other errors untouched.
func NormalizeNotFound(err error, entityName string, entityID id.ID) error {
	if err == nil {
		return nil
	}
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound(entityName, entityID.String()).WithCause(err)
	}
	return err
}

// NewVersionFrozen reports an attempt to change a frozen version.
func NewVersionFrozen(q *Quote) *apperror.AppError {
	return apperror.NewBusinessRule(apperror.CodeVersionFrozen,
		fmt.Sprintf("Le devis %s est une version figee", q.Number)).
		WithDetail("quote_id", q.ID.String())
}
