package quote_repo

import (
	"hubchantier/internal/domain/quote"
	"hubchantier/internal/infrastructure/storage/postgres"
)

// Repositories wires every PostgreSQL store of the quote aggregate.
func Repositories(txManager *postgres.TxManager, journal quote.JournalRepository) quote.Repositories {
	return quote.Repositories{
		Quotes:      NewQuoteRepo(txManager),
		Lots:        NewLotRepo(txManager),
		Lines:       NewLineRepo(txManager),
		CostItems:   NewCostItemRepo(txManager),
		Journal:     journal,
		Comparisons: NewComparisonRepo(txManager),
	}
}
