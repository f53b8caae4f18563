package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"hubchantier/internal/core/apperror"
	appctx "hubchantier/internal/core/context"
	"hubchantier/internal/core/id"
	"hubchantier/internal/core/tx"
	"hubchantier/internal/core/types"
	"hubchantier/internal/domain/quote"
	"hubchantier/pkg/logger"
)

// Observer receives every computed report.
type Observer interface {
	ObserveReport(r *Report)
}

// Service provides the margin use cases: the read-only report and the three
// margin mutations.
type Service struct {
	repos     quote.Repositories
	txManager tx.Manager
	engine    *Engine
	observer  Observer
}

// NewService creates a pricing service.
func NewService(repos quote.Repositories, txManager tx.Manager, engine *Engine) *Service {
	return &Service{repos: repos, txManager: txManager, engine: engine}
}

// WithObserver attaches a report observer.
func (s *Service) WithObserver(o Observer) *Service {
	s.observer = o
	return s
}

// ComputeMargins prices the whole tree of a quote.
func (s *Service) ComputeMargins(ctx context.Context, quoteID id.ID) (*Report, error) {
	var report *Report
	err := tx.RunReadOnly(ctx, s.txManager, func(ctx context.Context) error {
		q, err := quote.LoadAggregate(ctx, s.repos, quoteID)
		if err != nil {
			return err
		}
		report = s.engine.Compute(q)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.observer != nil {
		s.observer.ObserveReport(report)
	}
	return report, nil
}

// GlobalMarginInput updates the quote-level rates. A CostTypeMargins key
// mapped to nil clears that rate; absent keys are left unchanged.
type GlobalMarginInput struct {
	GlobalMargin        decimal.Decimal
	CostTypeMargins     map[quote.CostType]*decimal.Decimal
	OverheadCoefficient *decimal.Decimal
}

// GlobalMarginResult echoes the stored quote-level rates.
type GlobalMarginResult struct {
	QuoteID             string             `json:"quoteId"`
	GlobalMargin        string             `json:"globalMargin"`
	CostTypeMargins     map[string]*string `json:"costTypeMargins"`
	OverheadCoefficient *string            `json:"overheadCoefficient"`
}

// LotMarginResult echoes a lot override.
type LotMarginResult struct {
	LotID      string  `json:"lotId"`
	QuoteID    string  `json:"quoteId"`
	Code       string  `json:"code"`
	MarginRate *string `json:"marginRate"`
}

// LineMarginResult echoes a line override.
type LineMarginResult struct {
	LineID     string  `json:"lineId"`
	LotID      string  `json:"lotId"`
	QuoteID    string  `json:"quoteId"`
	MarginRate *string `json:"marginRate"`
}

// SetGlobalMargin replaces the global margin and optionally the per cost type
// rates and the overhead coefficient.
func (s *Service) SetGlobalMargin(ctx context.Context, quoteID id.ID, in GlobalMarginInput) (*GlobalMarginResult, error) {
	var q *quote.Quote
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		if q, err = quote.GetActive(ctx, s.repos.Quotes, quoteID); err != nil {
			return err
		}
		if err := q.CanEdit(); err != nil {
			return err
		}
		if err := validateGlobalInput(in); err != nil {
			return err
		}

		old := types.FormatRate(q.GlobalMargin)
		q.GlobalMargin = in.GlobalMargin
		for ct, rate := range in.CostTypeMargins {
			q.SetCostTypeMargin(ct, rate)
		}
		if in.OverheadCoefficient != nil {
			q.OverheadCoefficient = in.OverheadCoefficient
		}
		q.UpdatedBy = appctx.GetUserID(ctx)
		q.Stamp()

		if err := s.repos.Quotes.Update(ctx, q); err != nil {
			return fmt.Errorf("update quote margins: %w", err)
		}
		return quote.Record(ctx, s.repos.Journal, quote.NewJournalEntry(ctx, q.ID, quote.JournalMarginUpdated, "marge_globale",
			fmt.Sprintf("Marge globale du devis %s: %s%% -> %s%%", q.Number, old, types.FormatRate(q.GlobalMargin)),
			map[string]any{"old": old, "new": types.FormatRate(q.GlobalMargin)}))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "global margin updated", "quote_id", q.ID, "rate", q.GlobalMargin.String())
	return globalResult(q), nil
}

// SetLotMargin sets or clears (nil) the override of a lot.
func (s *Service) SetLotMargin(ctx context.Context, lotID id.ID, rate *decimal.Decimal) (*LotMarginResult, error) {
	var lot *quote.Lot
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		if lot, err = s.repos.Lots.GetByID(ctx, lotID); err != nil {
			return quote.NormalizeNotFound(err, quote.EntityLot, lotID)
		}
		q, err := quote.GetActive(ctx, s.repos.Quotes, lot.QuoteID)
		if err != nil {
			return err
		}
		if err := q.CanEdit(); err != nil {
			return err
		}
		if err := validateRate(rate, false); err != nil {
			return err
		}

		old := types.FormatOptionalRate(lot.MarginRate)
		lot.MarginRate = rate
		if err := s.repos.Lots.Update(ctx, lot); err != nil {
			return fmt.Errorf("update lot margin: %w", err)
		}
		return quote.Record(ctx, s.repos.Journal, quote.NewJournalEntry(ctx, q.ID, quote.JournalMarginUpdated, "marge_lot",
			fmt.Sprintf("Marge du lot %s: %s -> %s", lot.Code, describe(old), describe(types.FormatOptionalRate(rate))),
			map[string]any{"lot_id": lot.ID.String(), "old": old, "new": types.FormatOptionalRate(rate)}))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "lot margin updated", "lot_id", lot.ID, "cleared", rate == nil)
	return &LotMarginResult{
		LotID:      lot.ID.String(),
		QuoteID:    lot.QuoteID.String(),
		Code:       lot.Code,
		MarginRate: types.FormatOptionalRate(lot.MarginRate),
	}, nil
}

// SetLineMargin sets or clears (nil) the override of a line.
func (s *Service) SetLineMargin(ctx context.Context, lineID id.ID, rate *decimal.Decimal) (*LineMarginResult, error) {
	var line *quote.Line
	var lot *quote.Lot
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		if line, err = s.repos.Lines.GetByID(ctx, lineID); err != nil {
			return quote.NormalizeNotFound(err, quote.EntityLine, lineID)
		}
		if lot, err = s.repos.Lots.GetByID(ctx, line.LotID); err != nil {
			return quote.NormalizeNotFound(err, quote.EntityLot, line.LotID)
		}
		q, err := quote.GetActive(ctx, s.repos.Quotes, lot.QuoteID)
		if err != nil {
			return err
		}
		if err := q.CanEdit(); err != nil {
			return err
		}
		if err := validateRate(rate, true); err != nil {
			return err
		}

		old := types.FormatOptionalRate(line.MarginRate)
		line.MarginRate = rate
		if err := s.repos.Lines.Update(ctx, line); err != nil {
			return fmt.Errorf("update line margin: %w", err)
		}
		return quote.Record(ctx, s.repos.Journal, quote.NewJournalEntry(ctx, q.ID, quote.JournalMarginUpdated, "marge_ligne",
			fmt.Sprintf("Marge de la ligne %q (lot %s): %s -> %s", line.Designation, lot.Code,
				describe(old), describe(types.FormatOptionalRate(rate))),
			map[string]any{"line_id": line.ID.String(), "lot_id": lot.ID.String(), "old": old, "new": types.FormatOptionalRate(rate)}))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "line margin updated", "line_id", line.ID, "cleared", rate == nil)
	return &LineMarginResult{
		LineID:     line.ID.String(),
		LotID:      lot.ID.String(),
		QuoteID:    lot.QuoteID.String(),
		MarginRate: types.FormatOptionalRate(line.MarginRate),
	}, nil
}

func validateGlobalInput(in GlobalMarginInput) error {
	if in.GlobalMargin.IsNegative() {
		return apperror.NewValidation("Le taux de marge globale ne peut pas etre negatif").
			WithDetail("field", "global_margin")
	}
	for ct, rate := range in.CostTypeMargins {
		if !ct.IsValid() {
			return apperror.NewValidation(fmt.Sprintf("Type de debourse inconnu: %s", ct)).
				WithDetail("field", "cost_type_margins")
		}
		if rate != nil && rate.IsNegative() {
			return apperror.NewValidation(fmt.Sprintf("Le taux de marge %s ne peut pas etre negatif", ct)).
				WithDetail("field", "cost_type_margins")
		}
	}
	if in.OverheadCoefficient != nil && in.OverheadCoefficient.IsNegative() {
		return apperror.NewValidation("Le coefficient de frais generaux ne peut pas etre negatif").
			WithDetail("field", "overhead_coefficient")
	}
	return nil
}

var hundred = decimal.NewFromInt(100)

func validateRate(rate *decimal.Decimal, capped bool) error {
	if rate == nil {
		return nil
	}
	if rate.IsNegative() {
		return apperror.NewValidation("Le taux de marge ne peut pas etre negatif").
			WithDetail("field", "margin_rate")
	}
	if capped && rate.GreaterThan(hundred) {
		return apperror.NewValidation("Le taux de marge doit etre compris entre 0 et 100").
			WithDetail("field", "margin_rate")
	}
	return nil
}

func globalResult(q *quote.Quote) *GlobalMarginResult {
	res := &GlobalMarginResult{
		QuoteID:             q.ID.String(),
		GlobalMargin:        types.FormatRate(q.GlobalMargin),
		CostTypeMargins:     make(map[string]*string, len(quote.CostTypes)),
		OverheadCoefficient: types.FormatOptionalRate(q.OverheadCoefficient),
	}
	for _, ct := range quote.CostTypes {
		res.CostTypeMargins[string(ct)] = types.FormatOptionalRate(q.CostTypeMargin(ct))
	}
	return res
}

func describe(rate *string) string {
	if rate == nil {
		return "herite"
	}
	return *rate + "%"
}
