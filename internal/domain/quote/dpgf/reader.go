package dpgf

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"hubchantier/internal/core/apperror"
)

// Format is a supported file kind.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var extensions = map[string]Format{
	".csv":  FormatCSV,
	".xlsx": FormatXLSX,
	".xlsm": FormatXLSX,
}

// DetectFormat maps a filename extension to a format.
func DetectFormat(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	return "", apperror.NewImportFormat(fmt.Sprintf("Format de fichier non supporte: %q (attendu .csv, .xlsx ou .xlsm)", filename)).
		WithDetail("filename", filename).
		WithDetail("extension", ext)
}

// ReadRows returns the data rows of the file, headers excluded.
func ReadRows(filename string, data []byte, mapping ColumnMapping) ([][]string, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	switch format {
	case FormatXLSX:
		rows, err = readSpreadsheet(data, mapping.Sheet)
	default:
		rows, err = readCSV(data)
	}
	if err != nil {
		return nil, apperror.NewImportFormat(fmt.Sprintf("Fichier %s illisible: %v", filename, err)).
			WithDetail("filename", filename).
			WithCause(err)
	}

	if len(rows) <= mapping.DataRow {
		return nil, apperror.NewImportFormat(fmt.Sprintf("Aucune ligne de donnees dans le fichier %s", filename)).
			WithDetail("filename", filename)
	}
	return rows[mapping.DataRow:], nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// sniffDelimiter picks the most frequent of ';', ',' and tab on the first
// line. French exports default to ';'.
func sniffDelimiter(data []byte) rune {
	first := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		first = data[:i]
	}
	best, bestCount := ';', bytes.Count(first, []byte{';'})
	for _, d := range []rune{',', '\t'} {
		if n := bytes.Count(first, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func readSpreadsheet(data []byte, sheetIndex int) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if sheetIndex >= len(sheets) {
		return nil, fmt.Errorf("sheet %d out of range (%d sheets)", sheetIndex, len(sheets))
	}
	return f.GetRows(sheets[sheetIndex])
}
