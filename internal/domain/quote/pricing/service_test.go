package pricing_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubchantier/internal/core/apperror"
	appctx "hubchantier/internal/core/context"
	"hubchantier/internal/core/id"
	"hubchantier/internal/domain/quote"
	"hubchantier/internal/domain/quote/pricing"
	"hubchantier/internal/domain/quote/quotetest"
)

type recorder struct {
	reports []*pricing.Report
}

func (r *recorder) ObserveReport(report *pricing.Report) {
	r.reports = append(r.reports, report)
}

type fixture struct {
	store *quotetest.Store
	svc   *pricing.Service
	obs   *recorder
	ctx   context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := quotetest.NewStore()
	obs := &recorder{}
	svc := pricing.NewService(store.Repositories(), store, pricing.NewEngine(quotetest.Dec("19"))).WithObserver(obs)
	return &fixture{
		store: store,
		svc:   svc,
		obs:   obs,
		ctx:   appctx.WithUserID(context.Background(), "estimator-1"),
	}
}

func requireCode(t *testing.T, err error, code string) *apperror.AppError {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func TestService_ComputeMargins_WorkedExample(t *testing.T) {
	f := newFixture(t)
	q, _, _ := f.store.SeedWorkedExample(t)

	first, err := f.svc.ComputeMargins(f.ctx, q.ID)
	require.NoError(t, err)
	second, err := f.svc.ComputeMargins(f.ctx, q.ID)
	require.NoError(t, err)

	dto := first.DTO()
	assert.Equal(t, "9531.90", dto.TotalCostAfterOverhead)
	assert.Equal(t, "10961.69", dto.TotalSalePrice)
	assert.Equal(t, "1429.79", dto.GlobalMarginAmount)
	require.Len(t, dto.Lines, 1)
	assert.Equal(t, "global", dto.Lines[0].Level)

	// Reading twice yields identical output.
	assert.Equal(t, dto, second.DTO())
	assert.Equal(t, 2, f.store.ReadOnlyTransactions)
	assert.Len(t, f.obs.reports, 2)
}

func TestService_ComputeMargins_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ComputeMargins(f.ctx, id.New())
	requireCode(t, err, apperror.CodeNotFound)
	assert.Empty(t, f.obs.reports)
}

func TestService_SetGlobalMargin(t *testing.T) {
	f := newFixture(t)
	q := f.store.SeedQuote(t, "DEV-010", func(q *quote.Quote) {
		q.SetCostTypeMargin(quote.CostMaterials, quotetest.DecPtr("8"))
		q.SetCostTypeMargin(quote.CostTravel, quotetest.DecPtr("5"))
	})

	res, err := f.svc.SetGlobalMargin(f.ctx, q.ID, pricing.GlobalMarginInput{
		GlobalMargin: quotetest.Dec("18.5"),
		CostTypeMargins: map[quote.CostType]*decimal.Decimal{
			quote.CostLabor:  quotetest.DecPtr("25"),
			quote.CostTravel: nil,
		},
		OverheadCoefficient: quotetest.DecPtr("21"),
	})
	require.NoError(t, err)

	assert.Equal(t, "18.5", res.GlobalMargin)
	require.NotNil(t, res.CostTypeMargins["labor"])
	assert.Equal(t, "25", *res.CostTypeMargins["labor"])
	require.NotNil(t, res.CostTypeMargins["materials"], "absent keys are left unchanged")
	assert.Equal(t, "8", *res.CostTypeMargins["materials"])
	assert.Nil(t, res.CostTypeMargins["travel"], "nil clears the rate")
	require.NotNil(t, res.OverheadCoefficient)
	assert.Equal(t, "21", *res.OverheadCoefficient)

	stored, err := f.store.Repositories().Quotes.GetByID(f.ctx, q.ID)
	require.NoError(t, err)
	assert.True(t, stored.GlobalMargin.Equal(quotetest.Dec("18.5")))
	assert.Equal(t, "estimator-1", stored.UpdatedBy)

	journal := f.store.Journal()
	require.Len(t, journal, 1)
	assert.Equal(t, quote.JournalMarginUpdated, journal[0].Action)
	assert.Equal(t, "marge_globale", journal[0].Details.ModificationType)
}

func TestService_SetGlobalMargin_KeepsOverheadWhenOmitted(t *testing.T) {
	f := newFixture(t)
	q, _, _ := f.store.SeedWorkedExample(t)

	_, err := f.svc.SetGlobalMargin(f.ctx, q.ID, pricing.GlobalMarginInput{GlobalMargin: quotetest.Dec("20")})
	require.NoError(t, err)

	report, err := f.svc.ComputeMargins(f.ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "19", report.DTO().OverheadCoefficient)
	// 9531.90 × 1.20
	assert.Equal(t, "11438.28", report.DTO().TotalSalePrice)
}

func TestService_SetGlobalMargin_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   pricing.GlobalMarginInput
	}{
		{"negative global", pricing.GlobalMarginInput{GlobalMargin: quotetest.Dec("-1")}},
		{"negative cost type", pricing.GlobalMarginInput{
			GlobalMargin:    quotetest.Dec("10"),
			CostTypeMargins: map[quote.CostType]*decimal.Decimal{quote.CostLabor: quotetest.DecPtr("-3")},
		}},
		{"unknown cost type", pricing.GlobalMarginInput{
			GlobalMargin:    quotetest.Dec("10"),
			CostTypeMargins: map[quote.CostType]*decimal.Decimal{"fuel": quotetest.DecPtr("3")},
		}},
		{"negative overhead", pricing.GlobalMarginInput{
			GlobalMargin:        quotetest.Dec("10"),
			OverheadCoefficient: quotetest.DecPtr("-0.5"),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			q := f.store.SeedQuote(t, "DEV-011")

			_, err := f.svc.SetGlobalMargin(f.ctx, q.ID, tt.in)
			requireCode(t, err, apperror.CodeValidation)

			stored, err := f.store.Repositories().Quotes.GetByID(f.ctx, q.ID)
			require.NoError(t, err)
			assert.True(t, stored.GlobalMargin.Equal(quotetest.Dec("15")))
			assert.Empty(t, f.store.Journal())
		})
	}
}

func TestService_SetGlobalMargin_LockedQuote(t *testing.T) {
	f := newFixture(t)
	sent := f.store.SeedQuote(t, "DEV-012", func(q *quote.Quote) { q.Status = quote.StatusSent })
	frozen := f.store.SeedQuote(t, "DEV-013", func(q *quote.Quote) { q.Frozen = true })

	_, err := f.svc.SetGlobalMargin(f.ctx, sent.ID, pricing.GlobalMarginInput{GlobalMargin: quotetest.Dec("10")})
	requireCode(t, err, apperror.CodeNotModifiable)

	_, err = f.svc.SetGlobalMargin(f.ctx, frozen.ID, pricing.GlobalMarginInput{GlobalMargin: quotetest.Dec("10")})
	requireCode(t, err, apperror.CodeVersionFrozen)
}

func TestService_OverrideScenario(t *testing.T) {
	f := newFixture(t)
	q, lot, line := f.store.SeedWorkedExample(t)

	level := func() string {
		t.Helper()
		report, err := f.svc.ComputeMargins(f.ctx, q.ID)
		require.NoError(t, err)
		require.Len(t, report.Lines, 1)
		return string(report.Lines[0].Level)
	}

	lotRes, err := f.svc.SetLotMargin(f.ctx, lot.ID, quotetest.DecPtr("20"))
	require.NoError(t, err)
	require.NotNil(t, lotRes.MarginRate)
	assert.Equal(t, "20", *lotRes.MarginRate)
	assert.Equal(t, "01", lotRes.Code)
	assert.Equal(t, "lot", level())

	lineRes, err := f.svc.SetLineMargin(f.ctx, line.ID, quotetest.DecPtr("25"))
	require.NoError(t, err)
	assert.Equal(t, lot.ID.String(), lineRes.LotID)
	assert.Equal(t, q.ID.String(), lineRes.QuoteID)
	assert.Equal(t, "ligne", level())

	lineRes, err = f.svc.SetLineMargin(f.ctx, line.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, lineRes.MarginRate)
	assert.Equal(t, "lot", level())

	_, err = f.svc.SetLotMargin(f.ctx, lot.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "global", level())

	journal := f.store.Journal()
	require.Len(t, journal, 4)
	assert.Equal(t, "marge_lot", journal[0].Details.ModificationType)
	assert.Equal(t, "marge_ligne", journal[1].Details.ModificationType)
	assert.Contains(t, journal[1].Details.Message, "lot 01")
}

func TestService_SetLotMargin_Errors(t *testing.T) {
	f := newFixture(t)
	q := f.store.SeedQuote(t, "DEV-020")
	lot := f.store.SeedLot(t, q.ID, "01", 1)

	_, err := f.svc.SetLotMargin(f.ctx, id.New(), quotetest.DecPtr("10"))
	appErr := requireCode(t, err, apperror.CodeNotFound)
	assert.Contains(t, appErr.Message, "lot")

	_, err = f.svc.SetLotMargin(f.ctx, lot.ID, quotetest.DecPtr("-2"))
	appErr = requireCode(t, err, apperror.CodeValidation)
	assert.Contains(t, appErr.Message, "negatif")
}

func TestService_SetLineMargin_Errors(t *testing.T) {
	f := newFixture(t)
	q := f.store.SeedQuote(t, "DEV-021")
	lot := f.store.SeedLot(t, q.ID, "01", 1)
	line := f.store.SeedLine(t, lot.ID, "Enduit", 1)

	_, err := f.svc.SetLineMargin(f.ctx, id.New(), quotetest.DecPtr("10"))
	requireCode(t, err, apperror.CodeNotFound)

	_, err = f.svc.SetLineMargin(f.ctx, line.ID, quotetest.DecPtr("-1"))
	appErr := requireCode(t, err, apperror.CodeValidation)
	assert.Contains(t, appErr.Message, "negatif")

	_, err = f.svc.SetLineMargin(f.ctx, line.ID, quotetest.DecPtr("100.01"))
	requireCode(t, err, apperror.CodeValidation)

	stored, err := f.store.Repositories().Lines.GetByID(f.ctx, line.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.MarginRate)
}
