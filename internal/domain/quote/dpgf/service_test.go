package dpgf_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"hubchantier/internal/core/apperror"
	appctx "hubchantier/internal/core/context"
	"hubchantier/internal/core/id"
	"hubchantier/internal/domain/quote"
	"hubchantier/internal/domain/quote/dpgf"
	"hubchantier/internal/domain/quote/quotetest"
)

const scenarioCSV = "lot;description;unite;quantite;pu\n" +
	"01;Wall demolition;m2;25;30\n" +
	"01;Debris removal;m3;10;50\n"

type counter struct {
	imports []*dpgf.Result
}

func (c *counter) ObserveImport(r *dpgf.Result) {
	c.imports = append(c.imports, r)
}

type fixture struct {
	store *quotetest.Store
	svc   *dpgf.Service
	obs   *counter
	ctx   context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := quotetest.NewStore()
	obs := &counter{}
	return &fixture{
		store: store,
		svc:   dpgf.NewService(store.Repositories(), store, 0).WithObserver(obs),
		obs:   obs,
		ctx:   appctx.WithUserID(context.Background(), "estimator-1"),
	}
}

func (f *fixture) lots(t *testing.T, quoteID id.ID) []*quote.Lot {
	t.Helper()
	lots, err := f.store.Repositories().Lots.ListByQuote(f.ctx, quoteID)
	require.NoError(t, err)
	return lots
}

func (f *fixture) lines(t *testing.T, lotID id.ID) []*quote.Line {
	t.Helper()
	lines, err := f.store.Repositories().Lines.ListByLot(f.ctx, lotID)
	require.NoError(t, err)
	return lines
}

func TestImport_Scenario(t *testing.T) {
	f := newFixture(t)
	q := f.store.SeedQuote(t, "DEV-001", func(q *quote.Quote) {
		q.OverheadCoefficient = quotetest.DecPtr("19")
	})

	res, err := f.svc.Import(f.ctx, q.ID, "dpgf.csv", []byte(scenarioCSV), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, res.LotsCreated)
	assert.Equal(t, 2, res.LinesCreated)
	assert.Equal(t, 0, res.LinesSkipped)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, []dpgf.CreatedLot{{Code: "01", Order: 1, LineCount: 2}}, res.Lots)

	lots := f.lots(t, q.ID)
	require.Len(t, lots, 1)
	lines := f.lines(t, lots[0].ID)
	require.Len(t, lines, 2)
	assert.Equal(t, "Wall demolition", lines[0].Designation)
	assert.Equal(t, quote.UnitSquareMeter, lines[0].Unit)
	assert.Equal(t, quote.UnitCubicMeter, lines[1].Unit)
	assert.Equal(t, []int{1, 2}, []int{lines[0].Order, lines[1].Order})
	assert.True(t, lines[0].VATRate.Equal(q.VATRate), "lines inherit the quote VAT")

	stored, err := f.store.Repositories().Quotes.GetByID(f.ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "1250.00", stored.TotalHT.StringFixed(2))

	journal := f.store.Journal()
	require.Len(t, journal, 1)
	assert.Equal(t, quote.JournalImported, journal[0].Action)
	assert.Equal(t, "estimator-1", journal[0].UserID)
	assert.Contains(t, journal[0].Details.Message, "dpgf.csv")

	require.Len(t, f.obs.imports, 1)
}

func TestImport_WritesInBulk(t *testing.T) {
	f := newFixture(t)
	q := f.store.SeedQuote(t, "DEV-003")
	data := "lot;description;unite;quantite;pu\n" +
		"01;Wall demolition;m2;25;30\n" +
		"02;Painting;m2;40;12\n" +
		"01;Debris removal;m3;10;50\n" +
		"02;Primer;m2;40;4\n"

	res, err := f.svc.Import(f.ctx, q.ID, "dpgf.csv", []byte(data), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.LotsCreated)
	assert.Equal(t, 4, res.LinesCreated)

	inserts, batches := f.store.Writes(quote.EntityLot)
	assert.Equal(t, []int{0, 1}, []int{inserts, batches}, "lots")
	inserts, batches = f.store.Writes(quote.EntityLine)
	assert.Equal(t, []int{0, 1}, []int{inserts, batches}, "lines")

	lots := f.lots(t, q.ID)
	require.Len(t, lots, 2)
	assert.Len(t, f.lines(t, lots[0].ID), 2)
	assert.Len(t, f.lines(t, lots[1].ID), 2)
}

func TestImport_RowTolerance(t *testing.T) {
	f := newFixture(t)
	q := f.store.SeedQuote(t, "DEV-002")
	data := "lot;description;unite;quantite;pu\n" +
		"01;Bad quantity;m2;-5;12\n" +
		"01;   ;m2;1;1\n" +
		"01;Bad price;u;2;n/a\n" +
		"01;Dash;u;-;-\n"

	res, err := f.svc.Import(f.ctx, q.ID, "dpgf.csv", []byte(data), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, res.LinesCreated)
	assert.Equal(t, 1, res.LinesSkipped)
	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0], "Ligne 2")
	assert.Contains(t, res.Warnings[1], "Ligne 4")

	lines := f.lines(t, f.lots(t, q.ID)[0].ID)
	require.Len(t, lines, 3)
	assert.True(t, lines[0].Quantity.IsZero())
	assert.Equal(t, "12", lines[0].UnitPrice.String())
	assert.True(t, lines[1].UnitPrice.IsZero())
}

func TestImport_LotNumberingContinues(t *testing.T) {
	f := newFixture(t)
	q := f.store.SeedQuote(t, "DEV-003")
	first := f.store.SeedLot(t, q.ID, "01", 1)
	f.store.SeedLot(t, q.ID, "02", 2)
	f.store.SeedLine(t, first.ID, "Existant", 1)

	data := "lot;description;unite;quantite;pu\n" +
		"05;Charpente;m3;2;800\n" +
		"01;Complement;u;1;10\n" +
		";Nettoyage;forfait;1;150\n" +
		"05;Couverture;m2;90;45\n"

	res, err := f.svc.Import(f.ctx, q.ID, "dpgf.csv", []byte(data), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, res.LotsCreated)
	assert.Equal(t, 4, res.LinesCreated)
	assert.Equal(t, []dpgf.CreatedLot{
		{Code: "05", Order: 3, LineCount: 2},
		{Code: dpgf.DefaultLotCode, Order: 4, LineCount: 1},
	}, res.Lots)

	existing := f.lines(t, first.ID)
	require.Len(t, existing, 2)
	assert.Equal(t, 2, existing[1].Order, "lines append after existing ones")

	lots := f.lots(t, q.ID)
	require.Len(t, lots, 4)
	assert.Equal(t, "Divers", lots[3].Label)
}

func TestImport_Spreadsheet(t *testing.T) {
	f := newFixture(t)
	q := f.store.SeedQuote(t, "DEV-004")

	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	rows := [][]any{
		{"Titre du DPGF"},
		{"Lot", "Designation", "Unite", "Quantite", "PU"},
		{"A", "Cloisons", "m2", 40, "35,5"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, wb.SetSheetRow(sheet, cell, &row))
	}
	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)

	mapping := dpgf.DefaultMapping()
	mapping.DataRow = 2
	res, err := f.svc.Import(f.ctx, q.ID, "dpgf.xlsx", buf.Bytes(), &mapping)
	require.NoError(t, err)

	assert.Equal(t, 1, res.LinesCreated)
	lines := f.lines(t, f.lots(t, q.ID)[0].ID)
	require.Len(t, lines, 1)
	assert.Equal(t, "35.5", lines[0].UnitPrice.String())
}

func TestImport_Preconditions(t *testing.T) {
	tests := []struct {
		name     string
		seed     func(q *quote.Quote)
		filename string
		data     string
		code     string
		message  string
	}{
		{"sent quote", func(q *quote.Quote) { q.Status = quote.StatusSent }, "dpgf.csv", scenarioCSV, apperror.CodeNotImportable, ""},
		{"frozen version", func(q *quote.Quote) { q.Frozen = true }, "dpgf.csv", scenarioCSV, apperror.CodeVersionFrozen, ""},
		{"unsupported extension", nil, "dpgf.pdf", scenarioCSV, apperror.CodeImportFormat, "dpgf.pdf"},
		{"header only", nil, "dpgf.csv", "lot;description;unite;quantite;pu\n", apperror.CodeImportFormat, "Aucune ligne"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			var opts []func(*quote.Quote)
			if tt.seed != nil {
				opts = append(opts, tt.seed)
			}
			q := f.store.SeedQuote(t, "DEV-005", opts...)

			_, err := f.svc.Import(f.ctx, q.ID, tt.filename, []byte(tt.data), nil)
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, appErr.Code)
			if tt.message != "" {
				assert.Contains(t, appErr.Message, tt.message)
			}
			assert.Empty(t, f.lots(t, q.ID))
			assert.Empty(t, f.store.Journal())
			assert.Empty(t, f.obs.imports)
		})
	}
}

func TestImport_NotImportableNamesStatus(t *testing.T) {
	f := newFixture(t)
	q := f.store.SeedQuote(t, "DEV-006", func(q *quote.Quote) { q.Status = quote.StatusAccepted })

	_, err := f.svc.Import(f.ctx, q.ID, "dpgf.csv", []byte(scenarioCSV), nil)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "accepted", appErr.Details["current_status"])
}

func TestImport_NegotiationAllowed(t *testing.T) {
	f := newFixture(t)
	q := f.store.SeedQuote(t, "DEV-007", func(q *quote.Quote) { q.Status = quote.StatusInNegotiation })

	res, err := f.svc.Import(f.ctx, q.ID, "dpgf.csv", []byte(scenarioCSV), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.LinesCreated)
}

func TestImport_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Import(f.ctx, id.New(), "dpgf.csv", []byte(scenarioCSV), nil)
	assert.True(t, apperror.IsNotFound(err))
}

func TestImport_FileTooLarge(t *testing.T) {
	store := quotetest.NewStore()
	svc := dpgf.NewService(store.Repositories(), store, 16)
	q := store.SeedQuote(t, "DEV-008")

	_, err := svc.Import(context.Background(), q.ID, "dpgf.csv", []byte(scenarioCSV), nil)
	assert.True(t, apperror.HasCode(err, apperror.CodeImportFormat))
	assert.EqualValues(t, 16, svc.MaxFileSize())
}

func TestImport_InvalidMapping(t *testing.T) {
	f := newFixture(t)
	q := f.store.SeedQuote(t, "DEV-009")
	mapping := dpgf.DefaultMapping()
	mapping.Description = -2

	_, err := f.svc.Import(f.ctx, q.ID, "dpgf.csv", []byte(scenarioCSV), &mapping)
	assert.True(t, apperror.IsValidation(err))
}

func TestResult_ToMap(t *testing.T) {
	res := &dpgf.Result{
		Filename:     "dpgf.csv",
		LotsCreated:  1,
		LinesCreated: 2,
		LinesSkipped: 1,
		Lots:         []dpgf.CreatedLot{{Code: "01", Order: 3, LineCount: 2}},
		Warnings:     []string{"Ligne 3: quantite negative (-1), remplacee par 0"},
	}

	m := res.ToMap()
	assert.Equal(t, 1, m["lots_created"])
	assert.Equal(t, 2, m["lines_created"])
	assert.Equal(t, 1, m["lines_skipped"])
	assert.Equal(t, []map[string]any{{"code": "01", "order": 3, "line_count": 2}}, m["lots"])
	assert.Equal(t, res.Warnings, m["warnings"])
}
