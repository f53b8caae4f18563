// Package numerator allocates quote numbers from the sys_sequences table.
package numerator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	corenumerator "hubchantier/internal/core/numerator"
	"hubchantier/internal/infrastructure/storage/postgres"
)

const (
	// advanceSQL reserves $2 values and returns the last one.
	advanceSQL = `
		INSERT INTO sys_sequences (key, current_val) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + $2
		RETURNING current_val`

	resetSQL = `
		INSERT INTO sys_sequences (key, current_val) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET current_val = $2
		RETURNING current_val`
)

var errNotInitialized = errors.New("numerator service is not initialized")

// Querier is the subset of pgx used for sequence allocation.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierSource resolves the querier bound to the caller's transaction.
// *postgres.TxManager implements it.
type QuerierSource interface {
	GetQuerier(ctx context.Context) postgres.Querier
}

// block is a reserved range (next-1, last].
type block struct {
	next, last int64
}

// Service implements corenumerator.Generator.
//
// Strict numbers are taken through source, inside the caller's
// transaction, so a failed quote creation gives its number back. Cached
// ranges go through ranges, normally the pool, and are never rolled back.
type Service struct {
	source QuerierSource
	ranges Querier

	mu     sync.Mutex
	blocks map[string]*block
}

var _ corenumerator.Generator = (*Service)(nil)

func New(source QuerierSource, ranges Querier) *Service {
	return &Service{source: source, ranges: ranges, blocks: make(map[string]*block)}
}

func (s *Service) GetNextNumber(ctx context.Context, cfg corenumerator.Config, opts *corenumerator.Options, period time.Time) (string, error) {
	if s == nil {
		return "", errNotInitialized
	}
	key := buildKey(cfg, period)

	var (
		n   int64
		err error
	)
	if opts != nil && opts.Strategy == corenumerator.StrategyCached {
		n, err = s.nextCached(ctx, key, opts.RangeSize)
	} else {
		n, err = advance(ctx, s.source.GetQuerier(ctx), key, 1)
		if err != nil {
			err = fmt.Errorf("strict next %s: %w", key, err)
		}
	}
	if err != nil {
		return "", err
	}
	return formatNumber(cfg, period, n), nil
}

func (s *Service) nextCached(ctx context.Context, key string, size int64) (int64, error) {
	if size <= 0 {
		size = corenumerator.DefaultRangeSize
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.blocks[key]
	if b == nil || b.next > b.last {
		last, err := advance(ctx, s.ranges, key, size)
		if err != nil {
			return 0, fmt.Errorf("reserve range %s: %w", key, err)
		}
		b = &block{next: last - size + 1, last: last}
		s.blocks[key] = b
	}
	n := b.next
	b.next++
	return n, nil
}

func advance(ctx context.Context, q Querier, key string, by int64) (int64, error) {
	var last int64
	err := q.QueryRow(ctx, advanceSQL, key, by).Scan(&last)
	return last, err
}

// SetNextNumber moves the counter and drops any cached range for it.
func (s *Service) SetNextNumber(ctx context.Context, cfg corenumerator.Config, period time.Time, value int64) error {
	if s == nil {
		return errNotInitialized
	}
	key := buildKey(cfg, period)

	s.mu.Lock()
	delete(s.blocks, key)
	s.mu.Unlock()

	var current int64
	if err := s.source.GetQuerier(ctx).QueryRow(ctx, resetSQL, key, value).Scan(&current); err != nil {
		return fmt.Errorf("set sequence %s: %w", key, err)
	}
	return nil
}

// buildKey names the counter: DEV_2026, DEV_2026_03 or DEV.
func buildKey(cfg corenumerator.Config, period time.Time) string {
	switch cfg.ResetPeriod {
	case corenumerator.PeriodMonth:
		return cfg.Prefix + "_" + period.Format("2006_01")
	case corenumerator.PeriodYear:
		return cfg.Prefix + "_" + period.Format("2006")
	default:
		return cfg.Prefix
	}
}

func formatNumber(cfg corenumerator.Config, period time.Time, n int64) string {
	width := cfg.PadWidth
	if width <= 0 {
		width = 5
	}
	var b strings.Builder
	b.WriteString(cfg.Prefix)
	if cfg.IncludeYear {
		b.WriteString(period.Format("-2006"))
	}
	fmt.Fprintf(&b, "-%0*d", width, n)
	return b.String()
}
