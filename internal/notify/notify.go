// Package notify delivers alert transitions to the outside world once the
// transaction that caused them has committed.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	AlertTriggered EventType = "alert.triggered"
	AlertReverted  EventType = "alert.reverted"
)

// Event describes one status change of an alert.
type Event struct {
	Type         EventType       `json:"type"`
	AlertID      uuid.UUID       `json:"alertId"`
	OwnerID      uuid.UUID       `json:"ownerId"`
	CategoryID   uuid.UUID       `json:"categoryId"`
	Name         string          `json:"name"`
	Message      string          `json:"message"`
	Condition    string          `json:"condition"`
	Amount       decimal.Decimal `json:"amount"`
	CurrentValue decimal.Decimal `json:"currentValue"`
	At           time.Time       `json:"at"`
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Notifier receives committed alert transitions.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Log writes events to the global zerolog logger.
type Log struct{}

func (Log) Notify(_ context.Context, e Event) error {
	log.Info().
		Str("event", string(e.Type)).
		Str("alert", e.AlertID.String()).
		Str("owner", e.OwnerID.String()).
		Str("category", e.CategoryID.String()).
		Str("current", e.CurrentValue.String()).
		Msg(e.Message)
	return nil
}

// Multi fans an event out to all notifiers. All of them are called even
// if one fails.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
