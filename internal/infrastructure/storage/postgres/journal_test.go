package postgres

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "hubchantier/internal/core/context"
	"hubchantier/internal/core/id"
	"hubchantier/internal/domain/quote"
)

func TestJournalStore_EncodeSmallDetails(t *testing.T) {
	store, err := NewJournalStore(nil)
	require.NoError(t, err)

	ctx := appctx.WithUserID(context.Background(), "estimator-1")
	entry := quote.NewJournalEntry(ctx, id.New(), quote.JournalStatusChanged, "statut", "Statut du devis DEV-001: draft -> pending_validation",
		map[string]any{"from": "draft", "to": "pending_validation"})

	row, err := store.encode(entry)
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, row.CompressionAlgo)
	assert.Nil(t, row.DetailsCompressed)
	assert.Contains(t, string(row.Details), `"modification_type":"statut"`)

	back, err := store.decode(row)
	require.NoError(t, err)
	assert.Equal(t, entry.Details.Message, back.Details.Message)
	assert.Equal(t, "pending_validation", back.Details.Data["to"])
	assert.Equal(t, "estimator-1", back.UserID)
}

func TestJournalStore_CompressesLargeDetails(t *testing.T) {
	store, err := NewJournalStore(nil)
	require.NoError(t, err)

	warnings := make([]any, 0, 800)
	for i := 0; i < 800; i++ {
		warnings = append(warnings, "Ligne 12: quantite \"abc\" non numerique, remplacee par 0")
	}
	entry := quote.NewJournalEntry(context.Background(), id.New(), quote.JournalImported, "import_dpgf",
		"Import DPGF "+strings.Repeat("x", 10), map[string]any{"warnings": warnings})

	row, err := store.encode(entry)
	require.NoError(t, err)
	assert.Equal(t, CompressionZstd, row.CompressionAlgo)
	assert.Nil(t, row.Details)
	assert.NotEmpty(t, row.DetailsCompressed)

	back, err := store.decode(row)
	require.NoError(t, err)
	assert.Len(t, back.Details.Data["warnings"], 800)
}

func TestJournalStore_FillsMissingIdentity(t *testing.T) {
	store, err := NewJournalStore(nil)
	require.NoError(t, err)

	row, err := store.encode(&quote.JournalEntry{QuoteID: id.New(), Action: quote.JournalUpdated})
	require.NoError(t, err)
	assert.False(t, id.IsNil(row.ID))
	assert.False(t, row.CreatedAt.IsZero())
}
