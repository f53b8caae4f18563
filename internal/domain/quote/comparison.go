package quote

import (
	"time"

	"github.com/shopspring/decimal"

	"hubchantier/internal/core/id"
)

// Comparison records the price deltas between two versions of a quote.
// Deltas are target minus source.
type Comparison struct {
	ID            id.ID  `db:"id" json:"id"`
	SourceQuoteID id.ID  `db:"source_quote_id" json:"sourceQuoteId"`
	TargetQuoteID id.ID  `db:"target_quote_id" json:"targetQuoteId"`
	SourceNumber  string `db:"source_number" json:"sourceNumber"`
	TargetNumber  string `db:"target_number" json:"targetNumber"`
	GeneratedBy   string `db:"generated_by" json:"generatedBy"`

	RawCostDelta           decimal.Decimal `db:"raw_cost_delta" json:"rawCostDelta"`
	CostAfterOverheadDelta decimal.Decimal `db:"cost_after_overhead_delta" json:"costAfterOverheadDelta"`
	SalePriceDelta         decimal.Decimal `db:"sale_price_delta" json:"salePriceDelta"`
	MarginDelta            decimal.Decimal `db:"margin_delta" json:"marginDelta"`
	TotalHTDelta           decimal.Decimal `db:"total_ht_delta" json:"totalHtDelta"`
	LotCountDelta          int             `db:"lot_count_delta" json:"lotCountDelta"`
	LineCountDelta         int             `db:"line_count_delta" json:"lineCountDelta"`

	// Lots holds per-lot deltas matched by lot code.
	Lots []LotDelta `db:"-" json:"lots"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// LotDelta compares one lot code across two versions.
type LotDelta struct {
	Code           string          `json:"code"`
	Label          string          `json:"label"`
	Presence       LotPresence     `json:"presence"`
	SourceRawCost  decimal.Decimal `json:"sourceRawCost"`
	TargetRawCost  decimal.Decimal `json:"targetRawCost"`
	RawCostDelta   decimal.Decimal `json:"rawCostDelta"`
	LineCountDelta int             `json:"lineCountDelta"`
}

// LotPresence tells in which version a lot code exists.
type LotPresence string

const (
	LotInBoth     LotPresence = "both"
	LotOnlySource LotPresence = "removed"
	LotOnlyTarget LotPresence = "added"
)
