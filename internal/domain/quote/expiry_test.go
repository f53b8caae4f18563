package quote_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubchantier/internal/domain/quote"
	"hubchantier/internal/domain/quote/quotetest"
)

func TestService_ExpireOverdue(t *testing.T) {
	f := newFixture(t)
	today := quotetest.Today.AddDate(0, 1, 0)
	past := quotetest.Today.AddDate(0, 0, 10)
	future := today.AddDate(0, 0, 5)

	withStatus := func(s quote.Status, validity *time.Time) func(*quote.Quote) {
		return func(q *quote.Quote) {
			q.Status = s
			q.ValidityDate = validity
		}
	}

	sentOverdue := f.store.SeedQuote(t, "DEV-101", withStatus(quote.StatusSent, &past))
	viewedOverdue := f.store.SeedQuote(t, "DEV-102", withStatus(quote.StatusViewed, &past))
	sentValid := f.store.SeedQuote(t, "DEV-103", withStatus(quote.StatusSent, &future))
	sentOpen := f.store.SeedQuote(t, "DEV-104", withStatus(quote.StatusSent, nil))
	draftOverdue := f.store.SeedQuote(t, "DEV-105", withStatus(quote.StatusDraft, &past))
	// validity day equal to today is still valid
	sentToday := f.store.SeedQuote(t, "DEV-106", withStatus(quote.StatusSent, &today))

	n, err := f.svc.ExpireOverdue(f.ctx, today)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	status := func(q *quote.Quote) quote.Status {
		got, err := f.store.Repositories().Quotes.GetByID(f.ctx, q.ID)
		require.NoError(t, err)
		return got.Status
	}
	assert.Equal(t, quote.StatusExpired, status(sentOverdue))
	assert.Equal(t, quote.StatusExpired, status(viewedOverdue))
	assert.Equal(t, quote.StatusSent, status(sentValid))
	assert.Equal(t, quote.StatusSent, status(sentOpen))
	assert.Equal(t, quote.StatusDraft, status(draftOverdue))
	assert.Equal(t, quote.StatusSent, status(sentToday))

	entries := 0
	for _, e := range f.store.Journal() {
		if e.Action == quote.JournalStatusChanged {
			entries++
		}
	}
	assert.Equal(t, 2, entries)

	n, err = f.svc.ExpireOverdue(f.ctx, today)
	require.NoError(t, err)
	assert.Zero(t, n)
}
