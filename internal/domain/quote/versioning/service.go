package versioning

import (
	"context"
	"fmt"
	"sort"
	"time"

	"hubchantier/internal/core/apperror"
	appctx "hubchantier/internal/core/context"
	"hubchantier/internal/core/id"
	"hubchantier/internal/core/tx"
	"hubchantier/internal/domain/quote"
	"hubchantier/internal/domain/quote/pricing"
	"hubchantier/pkg/logger"
)

// maxFamilyDepth bounds the walk up parent links.
const maxFamilyDepth = 256

// Service manages the versions of a quote family. A family is an original
// quote with every revision and variant derived from it.
type Service struct {
	repos     quote.Repositories
	txManager tx.Manager
	engine    *pricing.Engine
}

// NewService creates a versioning service. engine prices both sides of a
// comparison.
func NewService(repos quote.Repositories, txManager tx.Manager, engine *pricing.Engine) *Service {
	return &Service{repos: repos, txManager: txManager, engine: engine}
}

// CreateRevision copies the source under the next version number of its
// family and freezes the source.
func (s *Service) CreateRevision(ctx context.Context, sourceID id.ID) (*quote.Quote, error) {
	var rev *quote.Quote
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		src, err := quote.LoadAggregate(ctx, s.repos, sourceID)
		if err != nil {
			return err
		}
		root, family, err := s.family(ctx, src)
		if err != nil {
			return err
		}

		next := 1
		for _, member := range family {
			if member.VersionNumber > next {
				next = member.VersionNumber
			}
		}
		next++

		number, err := s.uniqueNumber(ctx, fmt.Sprintf("%s-R%d", root.Number, next))
		if err != nil {
			return err
		}
		rev = Clone(src, number)
		rev.VersionNumber = next
		rev.VersionType = quote.VersionRevision
		if err := s.persist(ctx, rev); err != nil {
			return err
		}

		if !src.Frozen {
			if err := src.Freeze(fmt.Sprintf("Revision %s creee", rev.Number)); err != nil {
				return err
			}
			src.UpdatedBy = appctx.GetUserID(ctx)
			if err := s.repos.Quotes.Update(ctx, src); err != nil {
				return fmt.Errorf("freeze source: %w", err)
			}
			if err := quote.Record(ctx, s.repos.Journal, quote.NewJournalEntry(ctx, src.ID, quote.JournalVersionFrozen, "version",
				fmt.Sprintf("Version %s figee par la revision %s", src.Number, rev.Number),
				map[string]any{"revision_id": rev.ID.String()})); err != nil {
				return err
			}
		}

		return quote.Record(ctx, s.repos.Journal, quote.NewJournalEntry(ctx, rev.ID, quote.JournalRevisionCreated, "version",
			fmt.Sprintf("Revision %d creee depuis %s", rev.VersionNumber, src.Number),
			map[string]any{"source_id": src.ID.String(), "version_number": rev.VersionNumber}))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "quote revision created",
		"source_id", sourceID,
		"revision_id", rev.ID,
		"version", rev.VersionNumber)
	return rev, nil
}

// CreateVariant copies the source as an alternative offer tagged with label.
// The source stays editable.
func (s *Service) CreateVariant(ctx context.Context, sourceID id.ID, label string) (*quote.Quote, error) {
	variantLabel, err := quote.ParseVariantLabel(label)
	if err != nil {
		return nil, err
	}

	var variant *quote.Quote
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		src, err := quote.LoadAggregate(ctx, s.repos, sourceID)
		if err != nil {
			return err
		}

		number, err := s.uniqueNumber(ctx, fmt.Sprintf("%s-%s", src.Number, variantLabel))
		if err != nil {
			return err
		}
		variant = Clone(src, number)
		variant.VersionNumber = src.VersionNumber
		variant.VersionType = quote.VersionVariant
		variant.VariantLabel = &variantLabel
		if err := s.persist(ctx, variant); err != nil {
			return err
		}

		return quote.Record(ctx, s.repos.Journal, quote.NewJournalEntry(ctx, variant.ID, quote.JournalVariantCreated, "version",
			fmt.Sprintf("Variante %s creee depuis %s", variantLabel, src.Number),
			map[string]any{"source_id": src.ID.String(), "label": string(variantLabel)}))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "quote variant created",
		"source_id", sourceID,
		"variant_id", variant.ID,
		"label", string(variantLabel))
	return variant, nil
}

// FreezeVersion makes a quote immutable. comment is optional.
func (s *Service) FreezeVersion(ctx context.Context, quoteID id.ID, comment string) (*quote.Quote, error) {
	var q *quote.Quote
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		if q, err = quote.GetActive(ctx, s.repos.Quotes, quoteID); err != nil {
			return err
		}
		if err := q.Freeze(comment); err != nil {
			return err
		}
		q.UpdatedBy = appctx.GetUserID(ctx)
		if err := s.repos.Quotes.Update(ctx, q); err != nil {
			return fmt.Errorf("freeze quote: %w", err)
		}

		data := map[string]any{}
		if q.FreezeComment != nil {
			data["comment"] = *q.FreezeComment
		}
		return quote.Record(ctx, s.repos.Journal, quote.NewJournalEntry(ctx, q.ID, quote.JournalVersionFrozen, "version",
			fmt.Sprintf("Version %s figee", q.Number), data))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "quote version frozen", "quote_id", q.ID)
	return q, nil
}

// ListVersions returns the live members of the quote's family ordered by
// version number, the original first and variants after their version.
func (s *Service) ListVersions(ctx context.Context, quoteID id.ID) ([]*quote.Quote, error) {
	var versions []*quote.Quote
	err := tx.RunReadOnly(ctx, s.txManager, func(ctx context.Context) error {
		q, err := quote.GetActive(ctx, s.repos.Quotes, quoteID)
		if err != nil {
			return err
		}
		_, family, err := s.family(ctx, q)
		if err != nil {
			return err
		}
		for _, member := range family {
			if !member.IsDeleted() {
				versions = append(versions, member)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(versions, func(i, j int) bool {
		a, b := versions[i], versions[j]
		if a.VersionNumber != b.VersionNumber {
			return a.VersionNumber < b.VersionNumber
		}
		if (a.VersionType == quote.VersionVariant) != (b.VersionType == quote.VersionVariant) {
			return b.VersionType == quote.VersionVariant
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return versions, nil
}

// CompareVersions prices both quotes and records target minus source deltas.
func (s *Service) CompareVersions(ctx context.Context, sourceID, targetID id.ID) (*quote.Comparison, error) {
	if sourceID == targetID {
		return nil, apperror.NewValidation("Les deux versions comparees doivent etre des devis differents").
			WithDetail("source_id", sourceID.String())
	}

	var cmp *quote.Comparison
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		src, err := quote.LoadAggregate(ctx, s.repos, sourceID)
		if err != nil {
			return err
		}
		dst, err := quote.LoadAggregate(ctx, s.repos, targetID)
		if err != nil {
			return err
		}

		cmp = Compare(src, dst, s.engine.Compute(src), s.engine.Compute(dst))
		cmp.GeneratedBy = appctx.GetUserID(ctx)
		if err := s.repos.Comparisons.Save(ctx, cmp); err != nil {
			return fmt.Errorf("save comparison: %w", err)
		}

		data := map[string]any{
			"comparison_id":    cmp.ID.String(),
			"sale_price_delta": cmp.SalePriceDelta.StringFixed(2),
		}
		if err := quote.Record(ctx, s.repos.Journal, quote.NewJournalEntry(ctx, src.ID, quote.JournalComparisonGenerated, "comparaison",
			fmt.Sprintf("Comparaison %s -> %s generee", src.Number, dst.Number), data)); err != nil {
			return err
		}
		return quote.Record(ctx, s.repos.Journal, quote.NewJournalEntry(ctx, dst.ID, quote.JournalComparisonGenerated, "comparaison",
			fmt.Sprintf("Comparaison %s -> %s generee", src.Number, dst.Number), data))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "quote versions compared",
		"comparison_id", cmp.ID,
		"source_id", sourceID,
		"target_id", targetID)
	return cmp, nil
}

// GetComparison fetches a stored comparison.
func (s *Service) GetComparison(ctx context.Context, comparisonID id.ID) (*quote.Comparison, error) {
	var cmp *quote.Comparison
	err := tx.RunReadOnly(ctx, s.txManager, func(ctx context.Context) error {
		var err error
		cmp, err = s.repos.Comparisons.GetByID(ctx, comparisonID)
		return quote.NormalizeNotFound(err, quote.EntityComparison, comparisonID)
	})
	if err != nil {
		return nil, err
	}
	return cmp, nil
}

// family returns the root of q's family and every member, deleted ones
// included so version numbers are never reused.
func (s *Service) family(ctx context.Context, q *quote.Quote) (*quote.Quote, []*quote.Quote, error) {
	root := q
	for depth := 0; root.ParentID != nil; depth++ {
		if depth >= maxFamilyDepth {
			return nil, nil, fmt.Errorf("quote %s: version chain deeper than %d", q.ID, maxFamilyDepth)
		}
		parent, err := s.repos.Quotes.GetByID(ctx, *root.ParentID)
		if err != nil {
			return nil, nil, quote.NormalizeNotFound(err, quote.EntityQuote, *root.ParentID)
		}
		root = parent
	}

	members := []*quote.Quote{root}
	seen := map[id.ID]bool{root.ID: true}
	for i := 0; i < len(members); i++ {
		children, err := s.repos.Quotes.ListByParent(ctx, members[i].ID)
		if err != nil {
			return nil, nil, fmt.Errorf("list versions: %w", err)
		}
		for _, child := range children {
			if !seen[child.ID] {
				seen[child.ID] = true
				members = append(members, child)
			}
		}
	}
	return root, members, nil
}

// uniqueNumber returns base, or base with a numeric suffix when taken.
func (s *Service) uniqueNumber(ctx context.Context, base string) (string, error) {
	number := base
	for i := 2; ; i++ {
		_, err := s.repos.Quotes.GetByNumber(ctx, number)
		if apperror.IsNotFound(err) {
			return number, nil
		}
		if err != nil {
			return "", fmt.Errorf("check number %s: %w", number, err)
		}
		number = fmt.Sprintf("%s-%d", base, i)
	}
}

// persist stores a cloned aggregate, header first.
func (s *Service) persist(ctx context.Context, q *quote.Quote) error {
	q.CreatedBy = appctx.GetUserID(ctx)
	q.UpdatedBy = q.CreatedBy
	q.CreatedAt = time.Now().UTC()
	q.UpdatedAt = q.CreatedAt
	if err := q.Validate(ctx); err != nil {
		return err
	}
	if err := s.repos.Quotes.Create(ctx, q); err != nil {
		return fmt.Errorf("create version: %w", err)
	}
	var lines []*quote.Line
	var items []quote.CostItem
	for _, lot := range q.Lots {
		lines = append(lines, lot.Lines...)
		for _, line := range lot.Lines {
			items = append(items, line.CostItems...)
		}
	}
	if err := s.repos.Lots.CreateMany(ctx, q.Lots); err != nil {
		return fmt.Errorf("copy lots: %w", err)
	}
	if err := s.repos.Lines.CreateMany(ctx, lines); err != nil {
		return fmt.Errorf("copy lines: %w", err)
	}
	if err := s.repos.CostItems.CreateMany(ctx, items); err != nil {
		return fmt.Errorf("copy cost items: %w", err)
	}
	return nil
}
