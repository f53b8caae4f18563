package quote_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubchantier/internal/core/apperror"
	appctx "hubchantier/internal/core/context"
	"hubchantier/internal/core/id"
	"hubchantier/internal/core/numerator"
	"hubchantier/internal/domain"
	"hubchantier/internal/domain/quote"
	"hubchantier/internal/domain/quote/quotetest"
)

type fixture struct {
	store *quotetest.Store
	svc   *quote.Service
	ctx   context.Context
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := quotetest.NewStore()
	gen := &numerator.MockGenerator{
		GetNextNumberFunc: func(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
			return cfg.Prefix + "-2026-00042", nil
		},
	}
	return fixture{
		store: store,
		svc:   quote.NewService(store.Repositories(), gen, store, quote.DefaultPricing()),
		ctx:   appctx.WithUserID(context.Background(), "estimator-1"),
	}
}

func TestService_Create(t *testing.T) {
	f := newFixture(t)

	q, err := f.svc.Create(f.ctx, quote.CreateInput{
		Number:              "DEV-001",
		ClientName:          "Acme",
		GlobalMargin:        quotetest.DecPtr("15"),
		OverheadCoefficient: quotetest.DecPtr("19"),
	})
	require.NoError(t, err)

	assert.Equal(t, quote.StatusDraft, q.Status)
	assert.Equal(t, "estimator-1", q.CreatedBy)
	assert.Equal(t, "20", q.VATRate.String())

	journal := f.store.Journal()
	require.Len(t, journal, 1)
	assert.Equal(t, quote.JournalCreated, journal[0].Action)
	assert.Equal(t, "estimator-1", journal[0].UserID)
}

func TestService_Create_GeneratesNumber(t *testing.T) {
	f := newFixture(t)

	q, err := f.svc.Create(f.ctx, quote.CreateInput{ClientName: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "DEV-2026-00042", q.Number)
}

func TestService_Create_RejectsDuplicateNumber(t *testing.T) {
	f := newFixture(t)
	f.store.SeedQuote(t, "DEV-001")

	_, err := f.svc.Create(f.ctx, quote.CreateInput{Number: "DEV-001", ClientName: "Other"})
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))
	assert.Equal(t, 1, f.store.QuoteCount())
}

func TestService_Create_RejectsBadRetention(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(f.ctx, quote.CreateInput{
		Number:        "DEV-001",
		ClientName:    "Acme",
		RetentionRate: quotetest.DecPtr("3"),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "contrainte legale")
	assert.Zero(t, f.store.QuoteCount())
}

func TestService_Create_BeforeCreateHookCanVeto(t *testing.T) {
	f := newFixture(t)
	f.svc.Hooks().On(domain.BeforeCreate, func(ctx context.Context, q *quote.Quote) error {
		return errors.New("blocked")
	})

	_, err := f.svc.Create(f.ctx, quote.CreateInput{Number: "DEV-001", ClientName: "Acme"})
	assert.EqualError(t, err, "blocked")
	assert.Zero(t, f.store.QuoteCount())
}

func TestService_Update_RetentionThree(t *testing.T) {
	f := newFixture(t)
	q := f.store.SeedQuote(t, "DEV-001")

	_, err := f.svc.Update(f.ctx, q.ID, quote.UpdateInput{RetentionRate: quotetest.DecPtr("3")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0 ou 5")

	stored, err := f.svc.Get(f.ctx, q.ID)
	require.NoError(t, err)
	assert.True(t, stored.RetentionRate.IsZero())
}

func TestService_Update(t *testing.T) {
	f := newFixture(t)
	q := f.store.SeedQuote(t, "DEV-001")
	name := "Acme Construction"

	updated, err := f.svc.Update(f.ctx, q.ID, quote.UpdateInput{
		ClientName:    &name,
		RetentionRate: quotetest.DecPtr("5"),
	})
	require.NoError(t, err)
	assert.Equal(t, name, updated.ClientName)
	assert.Equal(t, "5", updated.RetentionRate.String())
	assert.Equal(t, "estimator-1", updated.UpdatedBy)
}

func TestService_Update_SentQuoteIsLocked(t *testing.T) {
	f := newFixture(t)
	q := f.store.SeedQuote(t, "DEV-001", func(q *quote.Quote) { q.Status = quote.StatusSent })

	_, err := f.svc.Update(f.ctx, q.ID, quote.UpdateInput{Subject: new(string)})
	assert.True(t, apperror.HasCode(err, apperror.CodeNotModifiable))
}

func TestService_Get_NotFound(t *testing.T) {
	f := newFixture(t)
	missing := id.New()

	_, err := f.svc.Get(f.ctx, missing)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNotFound, appErr.Code)
	assert.Equal(t, quote.EntityQuote, appErr.Details["entity"])
	assert.Equal(t, missing.String(), appErr.Details["id"])
	assert.Equal(t, 1, f.store.ReadOnlyTransactions)
}

func TestService_Delete(t *testing.T) {
	f := newFixture(t)
	q := f.store.SeedQuote(t, "DEV-001")

	require.NoError(t, f.svc.Delete(f.ctx, q.ID))

	_, err := f.svc.Get(f.ctx, q.ID)
	assert.True(t, apperror.IsNotFound(err))
	assert.True(t, apperror.IsNotFound(f.svc.Delete(f.ctx, q.ID)))

	list, err := f.svc.List(f.ctx, quote.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestService_TransitionScenario(t *testing.T) {
	f := newFixture(t)
	q := f.store.SeedQuote(t, "DEV-001")

	for _, action := range []quote.Action{quote.ActionSubmit, quote.ActionSend, quote.ActionMarkViewed, quote.ActionAccept} {
		_, err := f.svc.Transition(f.ctx, q.ID, action)
		require.NoError(t, err, action)
	}

	stored, err := f.svc.Get(f.ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, quote.StatusAccepted, stored.Status)

	history, err := f.svc.History(f.ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "viewed", history[3].Details.Data["from"])
	assert.Equal(t, "accepted", history[3].Details.Data["to"])
}

func TestService_Transition_Invalid(t *testing.T) {
	f := newFixture(t)
	q := f.store.SeedQuote(t, "DEV-001")

	_, err := f.svc.Transition(f.ctx, q.ID, quote.ActionAccept)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidTransition, appErr.Code)
	assert.Equal(t, "draft", appErr.Details["current_status"])
	assert.Equal(t, "accepted", appErr.Details["target_status"])
	assert.Empty(t, f.store.Journal())
}

func TestService_BuildTree(t *testing.T) {
	f := newFixture(t)
	q := f.store.SeedQuote(t, "DEV-001", func(q *quote.Quote) { q.VATRate = quotetest.Dec("10") })

	lot1, err := f.svc.AddLot(f.ctx, q.ID, quote.LotInput{Code: "01", Label: "Demolition"})
	require.NoError(t, err)
	lot2, err := f.svc.AddLot(f.ctx, q.ID, quote.LotInput{Code: "02", Label: "Gros oeuvre"})
	require.NoError(t, err)
	assert.Equal(t, 1, lot1.Order)
	assert.Equal(t, 2, lot2.Order)

	_, err = f.svc.AddLot(f.ctx, q.ID, quote.LotInput{Code: "01"})
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))

	line, err := f.svc.AddLine(f.ctx, lot1.ID, quote.LineInput{
		Designation: "Wall demolition",
		Unit:        "m2",
		Quantity:    quotetest.Dec("25"),
		UnitPrice:   quotetest.Dec("30"),
	})
	require.NoError(t, err)
	assert.Equal(t, quote.UnitSquareMeter, line.Unit)
	assert.Equal(t, "10", line.VATRate.String())
	assert.Equal(t, 1, line.Order)

	item, err := f.svc.AddCostItem(f.ctx, line.ID, quote.CostItemInput{
		Type:      quote.CostLabor,
		Label:     "Manoeuvre",
		Quantity:  quotetest.Dec("10"),
		UnitPrice: quotetest.Dec("38.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, "385", item.Total.String())

	full, err := f.svc.Get(f.ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, full.Lots, 2)
	require.Len(t, full.Lots[0].Lines, 1)
	require.Len(t, full.Lots[0].Lines[0].CostItems, 1)
	assert.Equal(t, "750.00", full.TotalHT.StringFixed(2))
	assert.Equal(t, "825.00", full.TotalTTC.StringFixed(2))

	require.NoError(t, f.svc.DeleteLine(f.ctx, line.ID))
	full, err = f.svc.Get(f.ctx, q.ID)
	require.NoError(t, err)
	assert.Empty(t, full.Lots[0].Lines)
	assert.True(t, full.TotalHT.IsZero())
}

func TestService_AddLine_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AddLine(f.ctx, id.New(), quote.LineInput{Designation: "x"})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, quote.EntityLot, appErr.Details["entity"])

	q := f.store.SeedQuote(t, "DEV-001")
	lot := f.store.SeedLot(t, q.ID, "01", 1)
	_, err = f.svc.AddLine(f.ctx, lot.ID, quote.LineInput{Designation: "  "})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.AddCostItem(f.ctx, id.New(), quote.CostItemInput{Type: quote.CostLabor, Label: "x"})
	appErr, ok = apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, quote.EntityLine, appErr.Details["entity"])
}
