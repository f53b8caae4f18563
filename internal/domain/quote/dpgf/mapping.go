// Package dpgf imports DPGF bills of quantities (CSV or spreadsheet) into
// the lots and lines of a quote.
package dpgf

import (
	"fmt"

	"hubchantier/internal/core/apperror"
)

// ColumnMapping locates the fields of a row. Indices are zero-based.
type ColumnMapping struct {
	Lot         int `json:"lot" yaml:"lot"`
	Description int `json:"description" yaml:"description"`
	Unit        int `json:"unit" yaml:"unit"`
	Quantity    int `json:"quantity" yaml:"quantity"`
	UnitPrice   int `json:"unitPrice" yaml:"unit_price"`
	// DataRow is the first data row; rows before it are headers.
	DataRow int `json:"dataRow" yaml:"data_row"`
	// Sheet is the spreadsheet sheet index, ignored for CSV.
	Sheet int `json:"sheet" yaml:"sheet"`
}

// DefaultMapping is lot;description;unit;quantity;unit price with one header row.
func DefaultMapping() ColumnMapping {
	return ColumnMapping{
		Lot:         0,
		Description: 1,
		Unit:        2,
		Quantity:    3,
		UnitPrice:   4,
		DataRow:     1,
		Sheet:       0,
	}
}

// Validate rejects negative indices.
func (m ColumnMapping) Validate() error {
	fields := []struct {
		name  string
		value int
	}{
		{"lot", m.Lot},
		{"description", m.Description},
		{"unit", m.Unit},
		{"quantity", m.Quantity},
		{"unit_price", m.UnitPrice},
		{"data_row", m.DataRow},
		{"sheet", m.Sheet},
	}
	for _, f := range fields {
		if f.value < 0 {
			return apperror.NewValidation(fmt.Sprintf("Index de colonne invalide pour %s: %d", f.name, f.value)).
				WithDetail("field", f.name)
		}
	}
	return nil
}
