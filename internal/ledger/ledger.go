// Package ledger keeps users, categories, expenses and alerts consistent
// with each other.
//
// Every operation that writes runs in exactly one database transaction.
// Category totals and alert states are recomputed inside that transaction,
// so readers only ever see states in which they agree with the expenses.
package ledger

import (
	"context"
	"time"

	"github.com/tally-ledger/backend/internal/attachment"
	"github.com/tally-ledger/backend/internal/models"
	"github.com/tally-ledger/backend/internal/notify"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Ledger struct {
	db           *gorm.DB
	now          func() time.Time
	notifier     notify.Notifier
	files        attachment.Store
	passwordCost int

	Users      *Users
	Categories *Categories
	Expenses   *Expenses
	Alerts     *Alerts
}

type Option func(*Ledger)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithNotifier sets where alert transitions are delivered after commit.
func WithNotifier(n notify.Notifier) Option {
	return func(l *Ledger) {
		l.notifier = n
	}
}

// WithAttachments enables attachments for expenses.
func WithAttachments(s attachment.Store) Option {
	return func(l *Ledger) {
		l.files = s
	}
}

// WithPasswordCost sets the bcrypt cost for new password hashes.
func WithPasswordCost(cost int) Option {
	return func(l *Ledger) {
		l.passwordCost = cost
	}
}

func New(db *gorm.DB, opts ...Option) *Ledger {
	l := &Ledger{
		db:           db,
		now:          time.Now,
		notifier:     notify.Log{},
		passwordCost: bcrypt.DefaultCost,
	}

	for _, o := range opts {
		o(l)
	}

	// The alert engine is the leaf, every other manager builds on it
	l.Alerts = &Alerts{l: l}
	l.Categories = &Categories{l: l, alerts: l.Alerts}
	l.Expenses = &Expenses{l: l, categories: l.Categories}
	l.Users = &Users{l: l, categories: l.Categories}

	return l
}

// Ping checks that the database is reachable.
func (l *Ledger) Ping(ctx context.Context) error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return storageFailure(err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return storageFailure(err)
	}
	return nil
}

// ResetMonthly starts a new month. All category totals go back to zero and
// all alerts back to Active in a single transaction.
func (l *Ledger) ResetMonthly(ctx context.Context) error {
	return l.run(ctx, func(u *unit) error {
		if _, err := recordReset(u); err != nil {
			return err
		}
		return resetMonth(u)
	})
}

// ResetIfDue resets unless the current month has been reset already, and
// reports whether it did. It catches up on a month boundary that passed
// while nothing was running.
//
// A database without any recorded reset adopts the current month without
// resetting it.
func (l *Ledger) ResetIfDue(ctx context.Context) (bool, error) {
	var reset bool
	err := l.run(ctx, func(u *unit) error {
		recorded, err := recordReset(u)
		if err != nil || !recorded {
			return err
		}

		var earlier int64
		err = u.tx.Model(&models.MonthlyReset{}).Where("month < ?", u.month.String()).Count(&earlier).Error
		if err != nil || earlier == 0 {
			return err
		}

		reset = true
		return resetMonth(u)
	})
	if err != nil {
		return false, err
	}

	return reset, nil
}

// recordReset marks the current month as reset. It reports false if the
// month was marked before.
//
// The primary key serializes concurrent callers, only one of them records
// the month.
func recordReset(u *unit) (bool, error) {
	result := u.tx.
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.MonthlyReset{Month: u.month.String(), At: u.now})
	return result.RowsAffected == 1, result.Error
}

func resetMonth(u *unit) error {
	if err := resetCategories(u); err != nil {
		return err
	}
	return resetAlerts(u)
}

// Page selects a window of a list. A Limit of zero or less means no limit.
type Page struct {
	Offset int
	Limit  int
}

func (p Page) apply(q *gorm.DB) *gorm.DB {
	if p.Offset > 0 {
		q = q.Offset(p.Offset)
	}
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}
	return q
}

func paginate[T any](items []T, p Page) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	if p.Offset > 0 {
		items = items[p.Offset:]
	}

	if p.Limit > 0 && p.Limit < len(items) {
		items = items[:p.Limit]
	}
	return items
}
