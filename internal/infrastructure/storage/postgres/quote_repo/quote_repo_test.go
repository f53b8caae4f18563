package quote_repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubchantier/internal/core/id"
	"hubchantier/internal/domain"
	"hubchantier/internal/domain/quote"
	"hubchantier/internal/domain/quote/quotetest"
)

func TestOrderClause(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "created_at DESC"},
		{"-created_at", "created_at DESC"},
		{"number", "number ASC"},
		{"-total_ht", "total_ht DESC"},
		{"password; DROP TABLE quotes", "created_at DESC"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, orderClause(tt.in))
		})
	}
}

func TestUniqueField(t *testing.T) {
	field, value := uniqueField("quotes_number_key", map[string]any{"number": "DEV-001"})
	assert.Equal(t, "number", field)
	assert.Equal(t, "DEV-001", value)

	field, value = uniqueField("quote_lots_code_key", map[string]any{"code": "02"})
	assert.Equal(t, "code", field)
	assert.Equal(t, "02", value)

	field, value = uniqueField("other", nil)
	assert.Equal(t, "other", field)
	assert.Empty(t, value)
}

func TestQuoteRepo_ApplyFilter(t *testing.T) {
	repo := NewQuoteRepo(nil)
	sent := quote.StatusSent

	t.Run("defaults hide deleted quotes", func(t *testing.T) {
		sql, args, err := repo.applyFilter(repo.baseSelect(), quote.ListFilter{}).ToSql()
		require.NoError(t, err)
		assert.Contains(t, sql, "deleted_at IS NULL")
		assert.Empty(t, args)
	})

	t.Run("status client and search", func(t *testing.T) {
		filter := quote.ListFilter{
			ListFilter: domain.ListFilter{Search: "DEV", IncludeDeleted: true},
			Status:     &sent,
			ClientName: "Martin",
		}
		sql, args, err := repo.applyFilter(repo.baseSelect(), filter).ToSql()
		require.NoError(t, err)
		assert.NotContains(t, sql, "deleted_at IS NULL")
		assert.Contains(t, sql, "status = $1")
		assert.Contains(t, sql, "client_name ILIKE $2")
		assert.Contains(t, sql, "number ILIKE $3")
		assert.Equal(t, []any{sent, "%Martin%", "%DEV%", "%DEV%", "%DEV%"}, args)
	})
}

func TestTable_Columns(t *testing.T) {
	repo := NewLotRepo(nil)
	lot := quote.NewLot(id.New(), "01", "Gros oeuvre", 1)
	lot.MarginRate = quotetest.DecPtr("12")

	all, err := repo.columns(lot, nil)
	require.NoError(t, err)
	assert.Equal(t, lot.ID, all["id"])
	assert.Equal(t, 1, all["row_version"])
	assert.Equal(t, "01", all["code"])
	assert.NotContains(t, all, "lines")

	set, err := repo.columns(lot, immutableCols)
	require.NoError(t, err)
	assert.NotContains(t, set, "id")
	assert.NotContains(t, set, "row_version")
	assert.Equal(t, lot.MarginRate, set["margin_rate"])
}

func TestComparisonRepo_SelectsLots(t *testing.T) {
	repo := NewComparisonRepo(nil)
	assert.Contains(t, repo.selectCols, "lots")
	assert.Contains(t, repo.selectCols, "total_ht_delta")
}

func TestTable_RowValues(t *testing.T) {
	repo := NewLineRepo(nil)
	lotID := id.New()
	line := quote.NewLine(lotID, "Wall demolition", quote.UnitSquareMeter,
		quotetest.Dec("25"), quotetest.Dec("30"), quotetest.Dec("20"), 3)

	values := repo.rowValues(line)
	require.Len(t, values, len(repo.selectCols))

	byColumn := make(map[string]any, len(values))
	for i, col := range repo.selectCols {
		byColumn[col] = values[i]
	}
	assert.Equal(t, line.ID, byColumn["id"])
	assert.Equal(t, lotID, byColumn["lot_id"])
	assert.Equal(t, "Wall demolition", byColumn["designation"])
	assert.Equal(t, 3, byColumn["sort_order"])
	assert.Nil(t, byColumn["margin_rate"])

	items := NewCostItemRepo(nil)
	item := quote.NewCostItem(line.ID, quote.CostLabor, "Labor", quotetest.Dec("10"), quotetest.Dec("40"))
	assert.Len(t, items.rowValues(item), len(items.selectCols))
	assert.NotContains(t, items.selectCols, "created_at")
}

func TestCopyRows_Empty(t *testing.T) {
	repo := NewLineRepo(nil)
	require.NoError(t, repo.CreateMany(context.Background(), nil))
}

func TestUniqueField_MissingValue(t *testing.T) {
	field, value := uniqueField("quote_lots_code_key", nil)
	assert.Equal(t, "code", field)
	assert.Empty(t, value)
}
