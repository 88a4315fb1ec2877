package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tally-ledger/backend/internal/types"
	"gorm.io/gorm"
)

type AlertStatus string

const (
	AlertActive    AlertStatus = "Active"
	AlertTriggered AlertStatus = "Triggered"
)

// Condition is the comparison of an alert between the current value of
// its category and the alert amount.
type Condition string

const (
	ConditionGreaterThan Condition = "greater than"
	ConditionLessThan    Condition = "less than"
	ConditionEqualTo     Condition = "equal to"
)

// ParseCondition parses user input into a Condition.
func ParseCondition(s string) (Condition, error) {
	c := Condition(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case ConditionGreaterThan, ConditionLessThan, ConditionEqualTo:
		return c, nil
	}

	return "", fmt.Errorf("%w, got '%s'", ErrUnknownCondition, s)
}

// Holds reports whether the condition is met for current compared to amount.
func (c Condition) Holds(current, amount decimal.Decimal) (bool, error) {
	switch c {
	case ConditionGreaterThan:
		return current.GreaterThan(amount), nil
	case ConditionLessThan:
		return current.LessThan(amount), nil
	case ConditionEqualTo:
		return current.Equal(amount), nil
	}

	return false, fmt.Errorf("%w: '%s'", ErrInvalidCondition, c)
}

// Alert watches the current value of a category.
//
// Status is never set directly. It is derived from the condition every time
// the current value of the category changes.
type Alert struct {
	DefaultModel
	OwnerID          uuid.UUID     `json:"ownerId" gorm:"uniqueIndex:alert_owner_name"`
	Owner            User          `json:"-"`
	CategoryID       uuid.UUID     `json:"categoryId" gorm:"index"`
	Category         Category      `json:"-"`
	Name             string        `json:"name" gorm:"uniqueIndex:alert_owner_name" example:"Food budget exceeded"`
	Condition        Condition     `json:"condition" example:"greater than"`
	Amount           types.Decimal `json:"amount" example:"100" swaggertype:"number"`
	Message          string        `json:"message" example:"You spent more than planned on food"`
	Status           AlertStatus   `json:"status" example:"Active"`
	TriggeredAt      *time.Time    `json:"triggeredAt" example:"2024-03-14T12:00:00Z"`
	TriggeredHistory []time.Time   `json:"triggeredHistory" gorm:"serializer:json"`
}

func (a *Alert) BeforeSave(_ *gorm.DB) error {
	a.Name = strings.TrimSpace(a.Name)
	if a.Status == "" {
		a.Status = AlertActive
	}
	return nil
}

func (a *Alert) AfterFind(tx *gorm.DB) error {
	if a.TriggeredAt != nil {
		t := a.TriggeredAt.In(time.UTC)
		a.TriggeredAt = &t
	}
	return a.DefaultModel.AfterFind(tx)
}
