package dpgf

import (
	"context"
	"fmt"

	"hubchantier/internal/core/apperror"
	"hubchantier/internal/core/id"
	"hubchantier/internal/core/tx"
	"hubchantier/internal/domain/quote"
	"hubchantier/pkg/logger"
)

// DefaultMaxFileSize bounds uploads when no limit is configured.
const DefaultMaxFileSize = 10 << 20

// CreatedLot describes a lot introduced by an import.
type CreatedLot struct {
	Code      string `json:"code"`
	Order     int    `json:"order"`
	LineCount int    `json:"lineCount"`
}

// Result summarizes an import.
type Result struct {
	QuoteID      id.ID        `json:"quoteId"`
	Filename     string       `json:"filename"`
	LotsCreated  int          `json:"lotsCreated"`
	LinesCreated int          `json:"linesCreated"`
	LinesSkipped int          `json:"linesSkipped"`
	Lots         []CreatedLot `json:"lots"`
	Warnings     []string     `json:"warnings"`
}

// ToMap is the plain map form of the result.
func (r *Result) ToMap() map[string]any {
	lots := make([]map[string]any, 0, len(r.Lots))
	for _, l := range r.Lots {
		lots = append(lots, map[string]any{
			"code":       l.Code,
			"order":      l.Order,
			"line_count": l.LineCount,
		})
	}
	warnings := make([]string, len(r.Warnings))
	copy(warnings, r.Warnings)
	return map[string]any{
		"quote_id":      r.QuoteID.String(),
		"filename":      r.Filename,
		"lots_created":  r.LotsCreated,
		"lines_created": r.LinesCreated,
		"lines_skipped": r.LinesSkipped,
		"lots":          lots,
		"warnings":      warnings,
	}
}

// Observer receives every completed import.
type Observer interface {
	ObserveImport(r *Result)
}

// Service imports DPGF files into quotes.
type Service struct {
	repos       quote.Repositories
	txManager   tx.Manager
	maxFileSize int64
	observer    Observer
}

// NewService creates an import service. maxFileSize <= 0 means DefaultMaxFileSize.
func NewService(repos quote.Repositories, txManager tx.Manager, maxFileSize int64) *Service {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Service{repos: repos, txManager: txManager, maxFileSize: maxFileSize}
}

// WithObserver attaches an import observer.
func (s *Service) WithObserver(o Observer) *Service {
	s.observer = o
	return s
}

// MaxFileSize returns the upload limit in bytes.
func (s *Service) MaxFileSize() int64 {
	return s.maxFileSize
}

// Import reads filename/data and appends its rows to the quote. A nil
// mapping means DefaultMapping. Malformed rows are tolerated; file-level
// problems abort the whole import.
func (s *Service) Import(ctx context.Context, quoteID id.ID, filename string, data []byte, mapping *ColumnMapping) (*Result, error) {
	m := DefaultMapping()
	if mapping != nil {
		m = *mapping
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var result *Result
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		q, err := quote.GetActive(ctx, s.repos.Quotes, quoteID)
		if err != nil {
			return err
		}
		if !q.IsImportable() {
			return quote.NewNotImportable(q)
		}
		if q.Frozen {
			return quote.NewVersionFrozen(q)
		}
		if int64(len(data)) > s.maxFileSize {
			return apperror.NewImportFormat(fmt.Sprintf("Fichier %s trop volumineux (%d octets, maximum %d)",
				filename, len(data), s.maxFileSize)).WithDetail("filename", filename)
		}

		rows, err := ReadRows(filename, data, m)
		if err != nil {
			return err
		}

		result, err = s.apply(ctx, q, rows, m)
		if err != nil {
			return err
		}
		result.Filename = filename

		if err := quote.RefreshTotals(ctx, s.repos, q); err != nil {
			return err
		}
		return quote.Record(ctx, s.repos.Journal, quote.NewJournalEntry(ctx, q.ID, quote.JournalImported, "import_dpgf",
			fmt.Sprintf("Import DPGF %s: %d lot(s), %d ligne(s) creee(s), %d ignoree(s)",
				filename, result.LotsCreated, result.LinesCreated, result.LinesSkipped),
			map[string]any{
				"filename":      filename,
				"lots_created":  result.LotsCreated,
				"lines_created": result.LinesCreated,
				"lines_skipped": result.LinesSkipped,
				"warnings":      len(result.Warnings),
			}))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "dpgf imported",
		"quote_id", quoteID,
		"filename", filename,
		"lots_created", result.LotsCreated,
		"lines_created", result.LinesCreated,
		"lines_skipped", result.LinesSkipped,
		"warnings", len(result.Warnings))

	if s.observer != nil {
		s.observer.ObserveImport(result)
	}
	return result, nil
}

// apply builds the lots and lines of rows in encounter order, then writes
// them with one bulk insert per table.
func (s *Service) apply(ctx context.Context, q *quote.Quote, rows [][]string, m ColumnMapping) (*Result, error) {
	lots, err := s.repos.Lots.ListByQuote(ctx, q.ID)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	q.Lots = lots

	result := &Result{QuoteID: q.ID, Lots: []CreatedLot{}, Warnings: []string{}}
	created := make(map[string]int) // lot code -> index in result.Lots
	nextOrder := q.MaxLotOrder() + 1
	// Lines already present per lot are loaded once, on first use.
	loaded := make(map[id.ID]bool)

	var newLots []*quote.Lot
	var newLines []*quote.Line

	for i, cells := range rows {
		row, warnings, ok := ParseRow(cells, m.DataRow+i+1, m)
		if !ok {
			result.LinesSkipped++
			continue
		}
		result.Warnings = append(result.Warnings, warnings...)

		lot := q.LotByCode(row.LotCode)
		if lot == nil {
			lot = quote.NewLot(q.ID, row.LotCode, lotLabel(row.LotCode), nextOrder)
			nextOrder++
			newLots = append(newLots, lot)
			q.Lots = append(q.Lots, lot)
			loaded[lot.ID] = true
			created[lot.Code] = len(result.Lots)
			result.Lots = append(result.Lots, CreatedLot{Code: lot.Code, Order: lot.Order})
			result.LotsCreated++
		}
		if !loaded[lot.ID] {
			if lot.Lines, err = s.repos.Lines.ListByLot(ctx, lot.ID); err != nil {
				return nil, fmt.Errorf("list lines: %w", err)
			}
			loaded[lot.ID] = true
		}

		line := quote.NewLine(lot.ID, row.Description, row.Unit, row.Quantity, row.UnitPrice, q.VATRate, lot.MaxLineOrder()+1)
		if err := line.Validate(ctx); err != nil {
			return nil, fmt.Errorf("row %d: %w", row.Number, err)
		}
		lot.Lines = append(lot.Lines, line)
		newLines = append(newLines, line)
		result.LinesCreated++
		if idx, ok := created[lot.Code]; ok {
			result.Lots[idx].LineCount++
		}
	}

	if err := s.repos.Lots.CreateMany(ctx, newLots); err != nil {
		return nil, fmt.Errorf("create lots: %w", err)
	}
	if err := s.repos.Lines.CreateMany(ctx, newLines); err != nil {
		return nil, fmt.Errorf("create lines: %w", err)
	}
	return result, nil
}

func lotLabel(code string) string {
	if code == DefaultLotCode {
		return "Divers"
	}
	return "Lot " + code
}
