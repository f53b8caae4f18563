// Package numerator defines how quote numbers such as DEV-2026-00042 are
// allocated. The PostgreSQL implementation lives in infrastructure.
package numerator

import (
	"context"
	"time"
)

// Strategy selects how sequence values are reserved.
type Strategy int

const (
	// StrategyStrict takes one value per call inside the caller's
	// transaction: no gaps, numbers roll back with the quote.
	StrategyStrict Strategy = iota
	// StrategyCached reserves RangeSize values at once and serves them from
	// memory. A restart loses the rest of the range.
	StrategyCached
)

// DefaultRangeSize applies to StrategyCached when Options.RangeSize is unset.
const DefaultRangeSize = 50

type Options struct {
	Strategy  Strategy
	RangeSize int64
}

// Period controls when the counter starts again from 1.
type Period string

const (
	PeriodYear  Period = "year"
	PeriodMonth Period = "month"
	PeriodNever Period = "never"
)

// Config describes the number layout: Prefix[-YYYY]-NNNNN.
type Config struct {
	Prefix      string
	IncludeYear bool
	PadWidth    int // 5 when zero
	ResetPeriod Period
}

// DefaultConfig is the quote layout: yearly counter, year in the number,
// five digits.
func DefaultConfig(prefix string) Config {
	return Config{Prefix: prefix, IncludeYear: true, PadWidth: 5, ResetPeriod: PeriodYear}
}

// Generator allocates numbers. period is the business date of the quote and
// picks the counter.
type Generator interface {
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)
	// SetNextNumber moves the counter, e.g. after loading quotes numbered
	// by another tool. The next call returns value+1.
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}
