package dpgf

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"hubchantier/internal/core/types"
	"hubchantier/internal/domain/quote"
)

// DefaultLotCode groups rows without a lot code.
const DefaultLotCode = "DIVERS"

// Row is one parsed data row.
type Row struct {
	// Number is the 1-based row number in the file.
	Number      int
	LotCode     string
	Description string
	Unit        quote.Unit
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// ParseRow extracts a row. ok is false when the description is blank.
// Malformed amounts become zero and add a warning.
func ParseRow(cells []string, number int, m ColumnMapping) (row Row, warnings []string, ok bool) {
	row = Row{
		Number:      number,
		Description: cell(cells, m.Description),
	}
	if row.Description == "" {
		return row, nil, false
	}

	row.LotCode = cell(cells, m.Lot)
	if row.LotCode == "" {
		row.LotCode = DefaultLotCode
	}
	row.Unit, _ = quote.ParseUnit(cell(cells, m.Unit))

	var warn string
	if row.Quantity, warn = parseAmount(cell(cells, m.Quantity), number, "quantite"); warn != "" {
		warnings = append(warnings, warn)
	}
	if row.UnitPrice, warn = parseAmount(cell(cells, m.UnitPrice), number, "prix unitaire"); warn != "" {
		warnings = append(warnings, warn)
	}
	return row, warnings, true
}

func cell(cells []string, i int) string {
	if i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

// parseAmount never fails: blank and "-" are zero silently, negative or
// non-numeric values are zero with a warning.
func parseAmount(raw string, number int, field string) (decimal.Decimal, string) {
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "€"))
	if raw == "" || raw == "-" {
		return decimal.Zero, ""
	}
	d, err := types.ParseDecimalLenient(raw)
	if err != nil {
		return decimal.Zero, fmt.Sprintf("Ligne %d: %s %q non numerique, remplacee par 0", number, field, raw)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Sprintf("Ligne %d: %s negative (%s), remplacee par 0", number, field, raw)
	}
	return d, ""
}
