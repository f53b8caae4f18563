package quote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hubchantier/internal/core/apperror"
	appctx "hubchantier/internal/core/context"
	"hubchantier/internal/core/id"
	"hubchantier/internal/core/numerator"
	"hubchantier/internal/core/tx"
	"hubchantier/internal/domain"
	"hubchantier/pkg/logger"
)

// NumeratorStrategy keeps quote numbers gapless.
var NumeratorStrategy = numerator.StrategyStrict

// PricingDefaults are the company-wide values used when a quote carries none.
type PricingDefaults struct {
	GlobalMargin        decimal.Decimal
	VATRate             decimal.Decimal
	OverheadCoefficient decimal.Decimal
	NumberPrefix        string
}

// DefaultPricing returns the built-in defaults (15% margin, 20% VAT, 19% overhead).
func DefaultPricing() PricingDefaults {
	return PricingDefaults{
		GlobalMargin:        defaultMargin,
		VATRate:             defaultVATRate,
		OverheadCoefficient: decimal.NewFromInt(19),
		NumberPrefix:        "DEV",
	}
}

// Service provides quote management use cases: header CRUD, workflow and
// the lot/line/cost item tree.
type Service struct {
	repos     Repositories
	numerator numerator.Generator
	txManager tx.Manager
	defaults  PricingDefaults
	hooks     *domain.HookRegistry[*Quote]
}

// NewService creates a new quote service.
func NewService(repos Repositories, gen numerator.Generator, txManager tx.Manager, defaults PricingDefaults) *Service {
	return &Service{
		repos:     repos,
		numerator: gen,
		txManager: txManager,
		defaults:  defaults,
		hooks:     domain.NewHookRegistry[*Quote](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Quote] {
	return s.hooks
}

// CreateInput carries the fields accepted at quote creation.
type CreateInput struct {
	Number              string
	ClientName          string
	ClientEmail         *string
	ClientPhone         *string
	ClientAddress       *string
	Subject             string
	CreationDate        *time.Time
	ValidityDate        *time.Time
	VATRate             *decimal.Decimal
	GlobalMargin        *decimal.Decimal
	OverheadCoefficient *decimal.Decimal
	RetentionRate       *decimal.Decimal
}

// Create creates a draft quote, numbering it when no number is given.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Quote, error) {
	creation := dateOnly(time.Now().UTC())
	if in.CreationDate != nil {
		creation = dateOnly(*in.CreationDate)
	}

	q := NewQuote(in.Number, in.ClientName, creation)
	q.ClientEmail = in.ClientEmail
	q.ClientPhone = in.ClientPhone
	q.ClientAddress = in.ClientAddress
	q.Subject = strings.TrimSpace(in.Subject)
	q.ValidityDate = in.ValidityDate
	q.VATRate = s.defaults.VATRate
	q.GlobalMargin = s.defaults.GlobalMargin
	q.OverheadCoefficient = in.OverheadCoefficient
	q.CreatedBy = appctx.GetUserID(ctx)
	q.UpdatedBy = q.CreatedBy
	if in.VATRate != nil {
		q.VATRate = *in.VATRate
	}
	if in.GlobalMargin != nil {
		q.GlobalMargin = *in.GlobalMargin
	}
	if in.RetentionRate != nil {
		q.RetentionRate = *in.RetentionRate
	}

	if err := s.hooks.Run(ctx, domain.BeforeCreate, q); err != nil {
		return nil, err
	}

	if q.Number == "" {
		cfg := numerator.DefaultConfig(s.defaults.NumberPrefix)
		number, err := s.numerator.GetNextNumber(ctx, cfg, &numerator.Options{Strategy: NumeratorStrategy}, creation)
		if err != nil {
			return nil, fmt.Errorf("generate number: %w", err)
		}
		q.Number = number
	}

	if err := q.Validate(ctx); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repos.Quotes.GetByNumber(ctx, q.Number); err == nil {
			return apperror.NewDuplicate(EntityQuote, "number", q.Number)
		} else if !apperror.IsNotFound(err) {
			return fmt.Errorf("check number: %w", err)
		}

		if err := s.repos.Quotes.Create(ctx, q); err != nil {
			return fmt.Errorf("create quote: %w", err)
		}
		return Record(ctx, s.repos.Journal, NewJournalEntry(ctx, q.ID, JournalCreated, "creation",
			fmt.Sprintf("Devis %s cree pour %s", q.Number, q.ClientName), nil))
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.Run(ctx, domain.AfterCreate, q); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "quote created",
		"quote_id", q.ID,
		"number", q.Number)

	return q, nil
}

// Get returns a quote with its full tree.
func (s *Service) Get(ctx context.Context, quoteID id.ID) (*Quote, error) {
	var q *Quote
	err := tx.RunReadOnly(ctx, s.txManager, func(ctx context.Context) error {
		var err error
		q, err = LoadAggregate(ctx, s.repos, quoteID)
		return err
	})
	return q, err
}

// List returns quote headers.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Quote], error) {
	filter.Normalize()
	var result domain.ListResult[*Quote]
	err := tx.RunReadOnly(ctx, s.txManager, func(ctx context.Context) error {
		var err error
		result, err = s.repos.Quotes.List(ctx, filter)
		return err
	})
	return result, err
}

// History returns the journal of a quote.
func (s *Service) History(ctx context.Context, quoteID id.ID) ([]JournalEntry, error) {
	var entries []JournalEntry
	err := tx.RunReadOnly(ctx, s.txManager, func(ctx context.Context) error {
		if _, err := s.repos.Quotes.GetByID(ctx, quoteID); err != nil {
			return NormalizeNotFound(err, EntityQuote, quoteID)
		}
		var err error
		entries, err = s.repos.Journal.ListByQuote(ctx, quoteID)
		return err
	})
	return entries, err
}

// UpdateInput carries header changes; nil fields are left untouched.
type UpdateInput struct {
	ClientName    *string
	ClientEmail   *string
	ClientPhone   *string
	ClientAddress *string
	Subject       *string
	ValidityDate  *time.Time
	VATRate       *decimal.Decimal
	RetentionRate *decimal.Decimal
}

// Update changes header fields of a draft quote.
func (s *Service) Update(ctx context.Context, quoteID id.ID, in UpdateInput) (*Quote, error) {
	var q *Quote
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		if q, err = GetActive(ctx, s.repos.Quotes, quoteID); err != nil {
			return err
		}
		if err := q.CanEdit(); err != nil {
			return err
		}
		if err := s.hooks.Run(ctx, domain.BeforeUpdate, q); err != nil {
			return err
		}

		changed := applyUpdate(q, in)
		if err := q.Validate(ctx); err != nil {
			return err
		}
		q.UpdatedBy = appctx.GetUserID(ctx)
		q.Stamp()

		if err := s.repos.Quotes.Update(ctx, q); err != nil {
			return fmt.Errorf("update quote: %w", err)
		}
		return Record(ctx, s.repos.Journal, NewJournalEntry(ctx, q.ID, JournalUpdated, "en_tete",
			fmt.Sprintf("Devis %s modifie", q.Number), map[string]any{"fields": changed}))
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

func applyUpdate(q *Quote, in UpdateInput) []string {
	var changed []string
	if in.ClientName != nil {
		q.ClientName = strings.TrimSpace(*in.ClientName)
		changed = append(changed, "clientName")
	}
	if in.ClientEmail != nil {
		q.ClientEmail = in.ClientEmail
		changed = append(changed, "clientEmail")
	}
	if in.ClientPhone != nil {
		q.ClientPhone = in.ClientPhone
		changed = append(changed, "clientPhone")
	}
	if in.ClientAddress != nil {
		q.ClientAddress = in.ClientAddress
		changed = append(changed, "clientAddress")
	}
	if in.Subject != nil {
		q.Subject = strings.TrimSpace(*in.Subject)
		changed = append(changed, "subject")
	}
	if in.ValidityDate != nil {
		q.ValidityDate = in.ValidityDate
		changed = append(changed, "validityDate")
	}
	if in.VATRate != nil {
		q.VATRate = *in.VATRate
		changed = append(changed, "vatRate")
	}
	if in.RetentionRate != nil {
		q.RetentionRate = *in.RetentionRate
		changed = append(changed, "retentionRate")
	}
	return changed
}

// Delete soft-deletes a quote.
func (s *Service) Delete(ctx context.Context, quoteID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		q, err := GetActive(ctx, s.repos.Quotes, quoteID)
		if err != nil {
			return err
		}
		if err := s.hooks.Run(ctx, domain.BeforeDelete, q); err != nil {
			return err
		}

		q.MarkDeleted(appctx.GetUserID(ctx))
		q.Stamp()
		if err := s.repos.Quotes.Update(ctx, q); err != nil {
			return fmt.Errorf("delete quote: %w", err)
		}
		return Record(ctx, s.repos.Journal, NewJournalEntry(ctx, q.ID, JournalDeleted, "suppression",
			fmt.Sprintf("Devis %s supprime", q.Number), nil))
	})
}

// Transition applies a workflow action and persists the new status.
func (s *Service) Transition(ctx context.Context, quoteID id.ID, action Action) (*Quote, error) {
	var q *Quote
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		if q, err = GetActive(ctx, s.repos.Quotes, quoteID); err != nil {
			return err
		}

		from := q.Status
		if err := q.Apply(action); err != nil {
			return err
		}
		q.UpdatedBy = appctx.GetUserID(ctx)

		if err := s.repos.Quotes.Update(ctx, q); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		return Record(ctx, s.repos.Journal, NewJournalEntry(ctx, q.ID, JournalStatusChanged, "statut",
			fmt.Sprintf("Statut du devis %s: %s -> %s", q.Number, from, q.Status),
			map[string]any{"from": string(from), "to": string(q.Status)}))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "quote status changed",
		"quote_id", q.ID,
		"action", string(action),
		"status", string(q.Status))

	return q, nil
}

// LotInput carries the fields of a new lot.
type LotInput struct {
	Code       string
	Label      string
	MarginRate *decimal.Decimal
}

// AddLot appends a lot after the existing ones.
func (s *Service) AddLot(ctx context.Context, quoteID id.ID, in LotInput) (*Lot, error) {
	var lot *Lot
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		q, err := s.editable(ctx, quoteID)
		if err != nil {
			return err
		}
		if q.Lots, err = s.repos.Lots.ListByQuote(ctx, q.ID); err != nil {
			return fmt.Errorf("list lots: %w", err)
		}
		if q.LotByCode(strings.TrimSpace(in.Code)) != nil {
			return apperror.NewDuplicate(EntityLot, "code", in.Code)
		}

		lot = NewLot(q.ID, in.Code, in.Label, q.MaxLotOrder()+1)
		lot.MarginRate = in.MarginRate
		if err := lot.Validate(ctx); err != nil {
			return err
		}
		if err := s.repos.Lots.Create(ctx, lot); err != nil {
			return fmt.Errorf("create lot: %w", err)
		}
		return Record(ctx, s.repos.Journal, NewJournalEntry(ctx, q.ID, JournalLotAdded, "lot",
			fmt.Sprintf("Lot %s ajoute", lot.Code), map[string]any{"lot_id": lot.ID.String()}))
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// LineInput carries the fields of a new line.
type LineInput struct {
	Designation string
	Unit        string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	VATRate     *decimal.Decimal
	MarginRate  *decimal.Decimal
	ArticleID   *id.ID
}

// AddLine appends a line to a lot. VAT defaults to the quote rate.
func (s *Service) AddLine(ctx context.Context, lotID id.ID, in LineInput) (*Line, error) {
	var line *Line
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		lot, err := s.repos.Lots.GetByID(ctx, lotID)
		if err != nil {
			return NormalizeNotFound(err, EntityLot, lotID)
		}
		q, err := s.editable(ctx, lot.QuoteID)
		if err != nil {
			return err
		}
		if lot.Lines, err = s.repos.Lines.ListByLot(ctx, lot.ID); err != nil {
			return fmt.Errorf("list lines: %w", err)
		}

		unit, _ := ParseUnit(in.Unit)
		vat := q.VATRate
		if in.VATRate != nil {
			vat = *in.VATRate
		}
		line = NewLine(lot.ID, in.Designation, unit, in.Quantity, in.UnitPrice, vat, lot.MaxLineOrder()+1)
		line.MarginRate = in.MarginRate
		line.ArticleID = in.ArticleID
		if err := line.Validate(ctx); err != nil {
			return err
		}
		if err := s.repos.Lines.Create(ctx, line); err != nil {
			return fmt.Errorf("create line: %w", err)
		}
		if err := s.refreshTotals(ctx, q); err != nil {
			return err
		}
		return Record(ctx, s.repos.Journal, NewJournalEntry(ctx, q.ID, JournalLineAdded, "ligne",
			fmt.Sprintf("Ligne %q ajoutee au lot %s", line.Designation, lot.Code),
			map[string]any{"line_id": line.ID.String(), "lot_id": lot.ID.String()}))
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// DeleteLine removes a line and its cost items.
func (s *Service) DeleteLine(ctx context.Context, lineID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		line, lot, q, err := s.lineContext(ctx, lineID)
		if err != nil {
			return err
		}
		if err := q.CanEdit(); err != nil {
			return err
		}
		if err := s.repos.CostItems.DeleteByLine(ctx, line.ID); err != nil {
			return fmt.Errorf("delete cost items: %w", err)
		}
		if err := s.repos.Lines.Delete(ctx, line.ID); err != nil {
			return fmt.Errorf("delete line: %w", err)
		}
		if err := s.refreshTotals(ctx, q); err != nil {
			return err
		}
		return Record(ctx, s.repos.Journal, NewJournalEntry(ctx, q.ID, JournalLineDeleted, "ligne",
			fmt.Sprintf("Ligne %q supprimee du lot %s", line.Designation, lot.Code),
			map[string]any{"line_id": line.ID.String()}))
	})
}

// CostItemInput carries the fields of a new cost item.
type CostItemInput struct {
	Type       CostType
	Label      string
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
	Profession *string
	HourlyRate *decimal.Decimal
}

// AddCostItem attaches a raw cost component to a line.
func (s *Service) AddCostItem(ctx context.Context, lineID id.ID, in CostItemInput) (*CostItem, error) {
	var item CostItem
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		line, _, q, err := s.lineContext(ctx, lineID)
		if err != nil {
			return err
		}
		if err := q.CanEdit(); err != nil {
			return err
		}

		item = NewCostItem(line.ID, in.Type, in.Label, in.Quantity, in.UnitPrice)
		item.Profession = in.Profession
		item.HourlyRate = in.HourlyRate
		if err := item.Validate(ctx); err != nil {
			return err
		}
		if err := s.repos.CostItems.Create(ctx, &item); err != nil {
			return fmt.Errorf("create cost item: %w", err)
		}
		return Record(ctx, s.repos.Journal, NewJournalEntry(ctx, q.ID, JournalCostItemAdded, "debourse",
			fmt.Sprintf("Debourse %s (%s) ajoute", item.Label, item.Type),
			map[string]any{"line_id": line.ID.String(), "total": item.Total.String()}))
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Service) editable(ctx context.Context, quoteID id.ID) (*Quote, error) {
	q, err := GetActive(ctx, s.repos.Quotes, quoteID)
	if err != nil {
		return nil, err
	}
	if err := q.CanEdit(); err != nil {
		return nil, err
	}
	return q, nil
}

// lineContext resolves a line with its owning lot and live quote.
func (s *Service) lineContext(ctx context.Context, lineID id.ID) (*Line, *Lot, *Quote, error) {
	line, err := s.repos.Lines.GetByID(ctx, lineID)
	if err != nil {
		return nil, nil, nil, NormalizeNotFound(err, EntityLine, lineID)
	}
	lot, err := s.repos.Lots.GetByID(ctx, line.LotID)
	if err != nil {
		return nil, nil, nil, NormalizeNotFound(err, EntityLot, line.LotID)
	}
	q, err := GetActive(ctx, s.repos.Quotes, lot.QuoteID)
	if err != nil {
		return nil, nil, nil, err
	}
	return line, lot, q, nil
}

// refreshTotals reloads the tree and persists TotalHT/TotalTTC.
func (s *Service) refreshTotals(ctx context.Context, q *Quote) error {
	return RefreshTotals(ctx, s.repos, q)
}

// RefreshTotals recomputes and persists the HT/TTC totals of q.
func RefreshTotals(ctx context.Context, repos Repositories, q *Quote) error {
	if err := LoadChildren(ctx, repos, q); err != nil {
		return err
	}
	q.RecalculateTotals()
	q.Stamp()
	if err := repos.Quotes.Update(ctx, q); err != nil {
		return fmt.Errorf("update totals: %w", err)
	}
	return nil
}
