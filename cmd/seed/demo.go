package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"hubchantier/internal/core/id"
	"hubchantier/internal/domain/quote"
)

type demoCostItem struct {
	Type      quote.CostType
	Label     string
	Quantity  string
	UnitPrice string
}

type demoLine struct {
	Designation string
	Unit        string
	Quantity    string
	UnitPrice   string
	CostItems   []demoCostItem
}

type demoLot struct {
	Code  string
	Label string
	Lines []demoLine
}

type demoQuote struct {
	ClientName string
	Subject    string
	Overhead   string
	Margin     string
	Lots       []demoLot
}

// QuoteSeeder is the subset of quote.Service used for seeding.
type QuoteSeeder interface {
	Create(ctx context.Context, in quote.CreateInput) (*quote.Quote, error)
	AddLot(ctx context.Context, quoteID id.ID, in quote.LotInput) (*quote.Lot, error)
	AddLine(ctx context.Context, lotID id.ID, in quote.LineInput) (*quote.Line, error)
	AddCostItem(ctx context.Context, lineID id.ID, in quote.CostItemInput) (*quote.CostItem, error)
}

func demoQuotes() []demoQuote {
	return []demoQuote{
		{
			ClientName: "SCI Les Tilleuls",
			Subject:    "Renovation appartement T3",
			Overhead:   "19",
			Margin:     "15",
			Lots: []demoLot{
				{
					Code:  "01",
					Label: "Demolition",
					Lines: []demoLine{
						{
							Designation: "Depose cloisons et evacuation",
							Unit:        "forfait",
							Quantity:    "1",
							UnitPrice:   "9500",
							CostItems: []demoCostItem{
								{quote.CostLabor, "Main d'oeuvre demolition", "120", "42"},
								{quote.CostMaterials, "Bennes", "40", "70"},
								{quote.CostMaterials, "Protection chantier", "1", "170"},
							},
						},
					},
				},
				{
					Code:  "02",
					Label: "Peinture",
					Lines: []demoLine{
						{
							Designation: "Peinture murs deux couches",
							Unit:        "m2",
							Quantity:    "85",
							UnitPrice:   "24",
							CostItems: []demoCostItem{
								{quote.CostLabor, "Peintre", "32", "38"},
								{quote.CostMaterials, "Peinture acrylique", "12", "45"},
							},
						},
					},
				},
			},
		},
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// seedQuote creates one demo quote through the regular use cases so the
// journal and the cached totals are filled like any other quote.
func seedQuote(ctx context.Context, svc QuoteSeeder, demo demoQuote) (*quote.Quote, error) {
	q, err := svc.Create(ctx, quote.CreateInput{
		ClientName:          demo.ClientName,
		Subject:             demo.Subject,
		GlobalMargin:        decPtr(demo.Margin),
		OverheadCoefficient: decPtr(demo.Overhead),
	})
	if err != nil {
		return nil, fmt.Errorf("create quote: %w", err)
	}

	for _, l := range demo.Lots {
		lot, err := svc.AddLot(ctx, q.ID, quote.LotInput{Code: l.Code, Label: l.Label})
		if err != nil {
			return nil, fmt.Errorf("add lot %s: %w", l.Code, err)
		}
		for _, ln := range l.Lines {
			line, err := svc.AddLine(ctx, lot.ID, quote.LineInput{
				Designation: ln.Designation,
				Unit:        ln.Unit,
				Quantity:    dec(ln.Quantity),
				UnitPrice:   dec(ln.UnitPrice),
			})
			if err != nil {
				return nil, fmt.Errorf("add line %q: %w", ln.Designation, err)
			}
			for _, ci := range ln.CostItems {
				if _, err := svc.AddCostItem(ctx, line.ID, quote.CostItemInput{
					Type:      ci.Type,
					Label:     ci.Label,
					Quantity:  dec(ci.Quantity),
					UnitPrice: dec(ci.UnitPrice),
				}); err != nil {
					return nil, fmt.Errorf("add cost item %q: %w", ci.Label, err)
				}
			}
		}
	}
	return q, nil
}
