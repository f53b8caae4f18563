package quote

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubchantier/internal/core/apperror"
	"hubchantier/internal/core/id"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

var day = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

func TestNewQuote_Defaults(t *testing.T) {
	q := NewQuote("  DEV-001 ", " Acme ", day)

	assert.Equal(t, "DEV-001", q.Number)
	assert.Equal(t, "Acme", q.ClientName)
	assert.Equal(t, StatusDraft, q.Status)
	assert.Equal(t, "15", q.GlobalMargin.String())
	assert.Equal(t, "20", q.VATRate.String())
	assert.True(t, q.RetentionRate.IsZero())
	assert.Equal(t, 1, q.VersionNumber)
	assert.Equal(t, VersionOriginal, q.VersionType)
	assert.False(t, q.Frozen)
	require.NoError(t, q.Validate(context.Background()))
}

func TestQuote_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(q *Quote)
		field  string
	}{
		{"blank number", func(q *Quote) { q.Number = "   " }, "number"},
		{"blank client", func(q *Quote) { q.ClientName = "" }, "clientName"},
		{"validity before creation", func(q *Quote) {
			v := day.AddDate(0, 0, -1)
			q.ValidityDate = &v
		}, "validityDate"},
		{"vat above 100", func(q *Quote) { q.VATRate = dec("100.01") }, "vatRate"},
		{"negative margin", func(q *Quote) { q.GlobalMargin = dec("-1") }, "globalMargin"},
		{"negative labor margin", func(q *Quote) { q.LaborMargin = decPtr("-5") }, "laborMargin"},
		{"negative overhead", func(q *Quote) { q.OverheadCoefficient = decPtr("-0.1") }, "overheadCoefficient"},
		{"unknown status", func(q *Quote) { q.Status = "archived" }, "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQuote("DEV-001", "Acme", day)
			tt.mutate(q)
			err := q.Validate(context.Background())
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}
}

func TestQuote_ValidityDateSameDayIsValid(t *testing.T) {
	q := NewQuote("DEV-001", "Acme", day)
	same := day.Add(15 * time.Hour)
	q.ValidityDate = &same
	assert.NoError(t, q.Validate(context.Background()))
}

func TestQuote_RetentionRateMustBeZeroOrFive(t *testing.T) {
	for _, ok := range []string{"0", "5", "5.00"} {
		q := NewQuote("DEV-001", "Acme", day)
		q.RetentionRate = dec(ok)
		assert.NoError(t, q.Validate(context.Background()), ok)
	}
	for _, bad := range []string{"3", "10", "4.99", "-5"} {
		q := NewQuote("DEV-001", "Acme", day)
		q.RetentionRate = dec(bad)
		err := q.Validate(context.Background())
		require.Error(t, err, bad)
		assert.Contains(t, err.Error(), "0 ou 5")
		assert.Contains(t, err.Error(), "contrainte legale")
	}
}

func TestQuote_IsExpired(t *testing.T) {
	q := NewQuote("DEV-001", "Acme", day)
	assert.False(t, q.IsExpired(day.AddDate(1, 0, 0)))

	validity := day.AddDate(0, 0, 10)
	q.ValidityDate = &validity
	assert.False(t, q.IsExpired(validity))
	assert.False(t, q.IsExpired(validity.Add(23*time.Hour)))
	assert.True(t, q.IsExpired(validity.AddDate(0, 0, 1)))
}

func TestQuote_IsDeleted(t *testing.T) {
	q := NewQuote("DEV-001", "Acme", day)
	assert.False(t, q.IsDeleted())
	q.MarkDeleted("u-1")
	assert.True(t, q.IsDeleted())
}

func TestQuote_CanEdit(t *testing.T) {
	q := NewQuote("DEV-001", "Acme", day)
	require.NoError(t, q.CanEdit())

	q.Status = StatusSent
	assert.True(t, apperror.HasCode(q.CanEdit(), apperror.CodeNotModifiable))

	q.Status = StatusDraft
	q.Frozen = true
	assert.True(t, apperror.HasCode(q.CanEdit(), apperror.CodeVersionFrozen))

	q.Frozen = false
	q.MarkDeleted("")
	assert.True(t, apperror.IsNotFound(q.CanEdit()))
}

func TestQuote_IsImportable(t *testing.T) {
	for _, s := range Statuses {
		q := NewQuote("DEV-001", "Acme", day)
		q.Status = s
		want := s == StatusDraft || s == StatusInNegotiation
		assert.Equal(t, want, q.IsImportable(), s)
	}
}

func TestQuote_Freeze(t *testing.T) {
	q := NewQuote("DEV-001", "Acme", day)
	require.NoError(t, q.Freeze("  superseded  "))
	assert.True(t, q.Frozen)
	require.NotNil(t, q.FreezeComment)
	assert.Equal(t, "superseded", *q.FreezeComment)
	assert.NotNil(t, q.FrozenAt)

	err := q.Freeze("")
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "deja fige")
}

func TestQuote_CostTypeMargin(t *testing.T) {
	q := NewQuote("DEV-001", "Acme", day)
	for _, ct := range CostTypes {
		assert.Nil(t, q.CostTypeMargin(ct))
		q.SetCostTypeMargin(ct, decPtr("12"))
		require.NotNil(t, q.CostTypeMargin(ct))
		assert.Equal(t, "12", q.CostTypeMargin(ct).String())
		q.SetCostTypeMargin(ct, nil)
		assert.Nil(t, q.CostTypeMargin(ct))
	}
	assert.Nil(t, q.CostTypeMargin("fuel"))
}

func TestQuote_EffectiveOverhead(t *testing.T) {
	q := NewQuote("DEV-001", "Acme", day)
	assert.Equal(t, "19", q.EffectiveOverhead(dec("19")).String())
	q.OverheadCoefficient = decPtr("0")
	assert.Equal(t, "0", q.EffectiveOverhead(dec("19")).String())
}

func TestQuote_RecalculateTotals(t *testing.T) {
	q := NewQuote("DEV-001", "Acme", day)
	lot := NewLot(q.ID, "01", "Gros oeuvre", 1)
	lot.Lines = []*Line{
		NewLine(lot.ID, "Wall demolition", UnitSquareMeter, dec("25"), dec("30"), dec("20"), 1),
		NewLine(lot.ID, "Debris removal", UnitCubicMeter, dec("10"), dec("50"), dec("10"), 2),
	}
	q.Lots = []*Lot{lot}

	q.RecalculateTotals()

	assert.Equal(t, "1250.00", q.TotalHT.StringFixed(2))
	// 750 × 1.2 + 500 × 1.1
	assert.Equal(t, "1450.00", q.TotalTTC.StringFixed(2))
}

func TestLine_Validate(t *testing.T) {
	lotID := id.New()
	valid := func() *Line {
		return NewLine(lotID, "Enduit", UnitSquareMeter, dec("3"), dec("12.5"), dec("20"), 1)
	}
	require.NoError(t, valid().Validate(context.Background()))

	tests := []struct {
		name   string
		mutate func(l *Line)
	}{
		{"blank designation", func(l *Line) { l.Designation = " " }},
		{"negative quantity", func(l *Line) { l.Quantity = dec("-1") }},
		{"negative price", func(l *Line) { l.UnitPrice = dec("-0.01") }},
		{"margin above 100", func(l *Line) { l.MarginRate = decPtr("101") }},
		{"negative margin", func(l *Line) { l.MarginRate = decPtr("-1") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := valid()
			tt.mutate(l)
			assert.True(t, apperror.IsValidation(l.Validate(context.Background())))
		})
	}
}

func TestLot_Validate(t *testing.T) {
	lot := NewLot(id.New(), " 02 ", "Plomberie", 2)
	assert.Equal(t, "02", lot.Code)
	require.NoError(t, lot.Validate(context.Background()))

	lot.MarginRate = decPtr("-2")
	err := lot.Validate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negatif")

	lot.MarginRate = nil
	lot.Code = ""
	assert.Error(t, lot.Validate(context.Background()))
}

func TestLine_RawCostAndSingleCostType(t *testing.T) {
	line := NewLine(id.New(), "Mur", UnitSquareMeter, dec("1"), dec("0"), dec("20"), 1)
	_, ok := line.SingleCostType()
	assert.False(t, ok)
	assert.True(t, line.RawCost().IsZero())

	line.CostItems = []CostItem{
		NewCostItem(line.ID, CostMaterials, "Parpaings", dec("3.333"), dec("3")),
		NewCostItem(line.ID, CostMaterials, "Mortier", dec("1"), dec("0.001")),
	}
	ct, ok := line.SingleCostType()
	assert.True(t, ok)
	assert.Equal(t, CostMaterials, ct)
	assert.True(t, line.RawCost().Equal(dec("10")))

	line.CostItems = append(line.CostItems, NewCostItem(line.ID, CostLabor, "Macon", dec("1"), dec("40")))
	_, ok = line.SingleCostType()
	assert.False(t, ok)
}

func TestCostItem(t *testing.T) {
	item := NewCostItem(id.New(), CostLabor, "Macon", dec("8"), dec("45.5"))
	assert.Equal(t, "364", item.Total.String())
	assert.True(t, item.Amount().Equal(item.Total))
	require.NoError(t, item.Validate(context.Background()))

	item.Type = "fuel"
	assert.Error(t, item.Validate(context.Background()))
}

func TestParseVariantLabel(t *testing.T) {
	label, err := ParseVariantLabel(" prem ")
	require.NoError(t, err)
	assert.Equal(t, VariantPremium, label)

	for _, bad := range []string{"", "  ", "LUX"} {
		_, err := ParseVariantLabel(bad)
		assert.True(t, apperror.IsValidation(err), bad)
	}
}

func TestParseUnit(t *testing.T) {
	tests := []struct {
		in   string
		want Unit
		ok   bool
	}{
		{"m2", UnitSquareMeter, true},
		{"M²", UnitSquareMeter, true},
		{"ml", UnitLinearMeter, true},
		{"m3", UnitCubicMeter, true},
		{"Kg", UnitKilogram, true},
		{"h", UnitHour, true},
		{"jour", UnitDay, true},
		{"Forfait", UnitLumpSum, true},
		{"ENS", UnitSet, true},
		{"u", UnitPiece, true},
		{"", UnitPiece, false},
		{"boisseau", UnitPiece, false},
	}
	for _, tt := range tests {
		got, ok := ParseUnit(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}
