// Package scheduler runs the jobs that are due at fixed points in time.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tally-ledger/backend/internal/types"
)

// Resetter starts a new month unless that has been done already.
type Resetter interface {
	ResetIfDue(ctx context.Context) (bool, error)
}

// Monthly calls a Resetter at the start of every month in UTC.
type Monthly struct {
	resetter Resetter
	now      func() time.Time
	after    func(time.Duration) <-chan time.Time
}

type Option func(*Monthly)

// WithClock replaces time.Now and time.After.
func WithClock(now func() time.Time, after func(time.Duration) <-chan time.Time) Option {
	return func(m *Monthly) {
		m.now = now
		m.after = after
	}
}

func NewMonthly(r Resetter, opts ...Option) *Monthly {
	m := &Monthly{
		resetter: r,
		now:      time.Now,
		after:    time.After,
	}

	for _, o := range opts {
		o(m)
	}

	return m
}

// NextBoundary returns the start of the month following t.
func NextBoundary(t time.Time) time.Time {
	return types.MonthOf(t).AddDate(0, 1).Start()
}

// Run blocks until ctx is cancelled. A month that started while nothing was
// running is reset right away. A failed reset is logged and retried at the
// next boundary only.
func (m *Monthly) Run(ctx context.Context) error {
	m.reset(ctx, types.MonthOf(m.now()))

	for {
		now := m.now()
		next := NextBoundary(now)
		log.Debug().Time("next", next).Msg("Scheduler")

		select {
		case <-ctx.Done():
			return nil
		case <-m.after(next.Sub(now)):
		}

		// Timers may fire early when the wall clock jumps
		if m.now().Before(next) {
			continue
		}

		m.reset(ctx, types.MonthOf(next))
	}
}

func (m *Monthly) reset(ctx context.Context, month types.Month) {
	done, err := m.resetter.ResetIfDue(ctx)
	if err != nil {
		log.Error().Err(err).Str("month", month.String()).Msg("Monthly reset failed")
		return
	}

	if !done {
		log.Debug().Str("month", month.String()).Msg("Monthly reset not due")
		return
	}

	log.Info().Str("month", month.String()).Msg("Monthly reset done")
}
