package quote

import (
	"context"
	"fmt"
	"time"

	appctx "hubchantier/internal/core/context"
	"hubchantier/internal/core/id"
)

// Journal actions.
const (
	JournalCreated             = "created"
	JournalUpdated             = "updated"
	JournalDeleted             = "deleted"
	JournalStatusChanged       = "status_changed"
	JournalLotAdded            = "lot_added"
	JournalLineAdded           = "line_added"
	JournalLineDeleted         = "line_deleted"
	JournalCostItemAdded       = "cost_item_added"
	JournalMarginUpdated       = "margin_updated"
	JournalImported            = "dpgf_imported"
	JournalRevisionCreated     = "revision_created"
	JournalVariantCreated      = "variant_created"
	JournalVersionFrozen       = "version_frozen"
	JournalComparisonGenerated = "comparison_generated"
)

// JournalEntry is one audit record attached to a quote.
type JournalEntry struct {
	ID        id.ID          `db:"id" json:"id"`
	QuoteID   id.ID          `db:"quote_id" json:"quoteId"`
	Action    string         `db:"action" json:"action"`
	UserID    string         `db:"user_id" json:"userId"`
	Details   JournalDetails `db:"-" json:"details"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}

// JournalDetails is the structured payload of an entry.
type JournalDetails struct {
	Message          string         `json:"message"`
	ModificationType string         `json:"modification_type"`
	Data             map[string]any `json:"data,omitempty"`
}

// NewJournalEntry builds an entry authored by the user carried in ctx.
func NewJournalEntry(ctx context.Context, quoteID id.ID, action, modificationType, message string, data map[string]any) *JournalEntry {
	return &JournalEntry{
		ID:      id.New(),
		QuoteID: quoteID,
		Action:  action,
		UserID:  appctx.GetUserID(ctx),
		Details: JournalDetails{
			Message:          message,
			ModificationType: modificationType,
			Data:             data,
		},
		CreatedAt: time.Now().UTC(),
	}
}

// Record saves a journal entry, wrapping storage failures.
func Record(ctx context.Context, repo JournalRepository, entry *JournalEntry) error {
	if err := repo.Save(ctx, entry); err != nil {
		return fmt.Errorf("save journal entry %s: %w", entry.Action, err)
	}
	return nil
}
