package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tally-ledger/backend/internal/models"
	"github.com/tally-ledger/backend/internal/notify"
	"github.com/tally-ledger/backend/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// unit is the unit of work of one ledger operation. Every read and write of
// the operation goes through tx.
type unit struct {
	tx    *gorm.DB
	now   time.Time
	month types.Month

	// Delivered only after a successful commit
	events   []notify.Event
	cleanups []func()
}

// inMonth reports whether t counts towards the current category totals.
func (u *unit) inMonth(t time.Time) bool {
	return u.month.Contains(t)
}

// forUpdate returns a query that locks the selected rows until the
// transaction ends. sqlite has no row locks, there is only one writer.
func (u *unit) forUpdate() *gorm.DB {
	if u.tx.Dialector.Name() == "postgres" {
		return u.tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return u.tx
}

// run executes fn in a transaction. Either every write of fn is committed
// or none is.
func (l *Ledger) run(ctx context.Context, fn func(u *unit) error) error {
	tx := l.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return storageFailure(tx.Error)
	}

	now := l.now().UTC()
	u := &unit{tx: tx, now: now, month: types.MonthOf(now)}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(u); err != nil {
		tx.Rollback()
		return classify(err)
	}

	if err := tx.Commit().Error; err != nil {
		return storageFailure(err)
	}

	// Delivery must not be cut short by the caller going away after commit
	notifyCtx := context.WithoutCancel(ctx)
	for _, e := range u.events {
		if err := l.notifier.Notify(notifyCtx, e); err != nil {
			log.Error().Err(err).Str("event", string(e.Type)).Str("alert", e.AlertID.String()).Msg("Notifier")
		}
	}

	for _, f := range u.cleanups {
		f()
	}

	return nil
}

// read runs a query outside of a transaction.
func (l *Ledger) read(ctx context.Context) *gorm.DB {
	return l.db.WithContext(ctx)
}

var kinds = []error{
	models.ErrGeneral,
	models.ErrResourceNotFound,
	models.ErrConflict,
	models.ErrValidation,
	models.ErrInvalidState,
	models.ErrInvalidCredentials,
}

// classify keeps errors of a known kind and turns all others into
// storage failures.
func classify(err error) error {
	if err == nil {
		return nil
	}

	for _, k := range kinds {
		if errors.Is(err, k) {
			return err
		}
	}

	return storageFailure(err)
}

func storageFailure(err error) error {
	log.Error().Msgf("%T: %v", err, err.Error())
	return models.ErrGeneral
}
