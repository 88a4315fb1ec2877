package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/tally-ledger/backend/internal/models"
	"github.com/tally-ledger/backend/internal/types"
	"github.com/tally-ledger/backend/internal/notify"
)

// Alerts is the alert engine. It reads categories, but never writes them.
type Alerts struct {
	l *Ledger
}

type AlertCreate struct {
	Category  string // Name of the category, the uncategorized category if empty
	Name      string
	Condition string
	Amount    decimal.Decimal
	Message   string
}

type AlertUpdate struct {
	Category  *string
	Name      *string
	Condition *string
	Amount    *decimal.Decimal
	Message   *string
}

type AlertFilter struct {
	CategoryID uuid.UUID
	Status     models.AlertStatus
	Page
}

// Create creates an alert and evaluates it right away. An alert for a
// threshold that is already crossed starts out Triggered.
func (m *Alerts) Create(ctx context.Context, ownerID uuid.UUID, in AlertCreate) (models.Alert, error) {
	condition, err := models.ParseCondition(in.Condition)
	if err != nil {
		return models.Alert{}, err
	}

	alert := models.Alert{
		OwnerID:   ownerID,
		Name:      in.Name,
		Condition: condition,
		Amount:    types.NewDecimal(in.Amount),
		Message:   in.Message,
		Status:    models.AlertActive,
	}

	err = m.l.run(ctx, func(u *unit) error {
		category, err := referencedCategory(u, in.Category, ownerID)
		if err != nil {
			return err
		}
		alert.CategoryID = category.ID

		if err := u.tx.Create(&alert).Error; err != nil {
			return err
		}

		if err := linkUser(u, ownerID, models.UserAlerts, alert.ID); err != nil {
			return err
		}

		if err := push(u, category.ID, models.CategoryAlerts, alert.ID); err != nil {
			return err
		}

		return m.evaluate(u, &alert, category.CurrentValue.Decimal)
	})
	if err != nil {
		return models.Alert{}, err
	}

	return alert, nil
}

// Update changes the alert and evaluates it against the current value of
// its, possibly new, category.
func (m *Alerts) Update(ctx context.Context, ownerID, id uuid.UUID, in AlertUpdate) (models.Alert, error) {
	var condition models.Condition
	if in.Condition != nil {
		c, err := models.ParseCondition(*in.Condition)
		if err != nil {
			return models.Alert{}, err
		}
		condition = c
	}

	var alert models.Alert
	err := m.l.run(ctx, func(u *unit) error {
		if err := u.tx.First(&alert, "id = ? AND owner_id = ?", id, ownerID).Error; err != nil {
			return err
		}

		// The category is locked before the alert, as expense changes do
		var category models.Category
		if in.Category != nil {
			c, err := referencedCategory(u, *in.Category, ownerID)
			if err != nil {
				return err
			}
			category = c
		} else if err := u.forUpdate().First(&category, "id = ?", alert.CategoryID).Error; err != nil {
			return err
		}

		if err := u.forUpdate().First(&alert, "id = ?", alert.ID).Error; err != nil {
			return err
		}

		if in.Category != nil {
			if category.ID != alert.CategoryID {
				if err := pull(u, alert.CategoryID, models.CategoryAlerts, alert.ID); err != nil {
					return err
				}
				if err := push(u, category.ID, models.CategoryAlerts, alert.ID); err != nil {
					return err
				}
				alert.CategoryID = category.ID
			}
		}

		if in.Name != nil {
			alert.Name = *in.Name
		}
		if in.Condition != nil {
			alert.Condition = condition
		}
		if in.Amount != nil {
			alert.Amount = types.NewDecimal(*in.Amount)
		}
		if in.Message != nil {
			alert.Message = *in.Message
		}

		err := u.tx.Model(&alert).Select("CategoryID", "Name", "Condition", "Amount", "Message").Updates(&alert).Error
		if err != nil {
			return err
		}

		return m.evaluate(u, &alert, category.CurrentValue.Decimal)
	})
	if err != nil {
		return models.Alert{}, err
	}

	return alert, nil
}

// Delete deletes an alert and removes it from the lists of its user and
// its category.
func (m *Alerts) Delete(ctx context.Context, ownerID, id uuid.UUID) (models.Alert, error) {
	var alert models.Alert
	err := m.l.run(ctx, func(u *unit) error {
		if err := u.tx.First(&alert, "id = ? AND owner_id = ?", id, ownerID).Error; err != nil {
			return err
		}

		if err := pull(u, ownerID, models.UserAlerts, alert.ID); err != nil {
			return err
		}

		return m.delete(u, []models.Alert{alert})
	})
	if err != nil {
		return models.Alert{}, err
	}

	return alert, nil
}

func (m *Alerts) FindByID(ctx context.Context, ownerID, id uuid.UUID) (models.Alert, error) {
	var alert models.Alert
	err := m.l.read(ctx).First(&alert, "id = ? AND owner_id = ?", id, ownerID).Error
	return alert, classify(err)
}

// FindAll returns the alerts of the user matching the filter and the total
// number of matches.
func (m *Alerts) FindAll(ctx context.Context, ownerID uuid.UUID, f AlertFilter) ([]models.Alert, int64, error) {
	q := m.l.read(ctx).Model(&models.Alert{}).Where("owner_id = ?", ownerID)
	if f.CategoryID != uuid.Nil {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, classify(err)
	}

	alerts := []models.Alert{}
	err := f.apply(q.Order("name ASC")).Find(&alerts).Error
	return alerts, total, classify(err)
}

// ResetAllMonthly sets every alert back to Active. The trigger history is
// kept.
func (m *Alerts) ResetAllMonthly(ctx context.Context) error {
	return m.l.run(ctx, resetAlerts)
}

func resetAlerts(u *unit) error {
	result := u.tx.
		Model(&models.Alert{}).
		Where("status <> ? OR triggered_at IS NOT NULL", models.AlertActive).
		Updates(map[string]any{"status": models.AlertActive, "triggered_at": nil})
	if result.Error != nil {
		return result.Error
	}

	log.Info().Int64("alerts", result.RowsAffected).Msg("Monthly reset")
	return nil
}

// reevaluate evaluates every alert of the category against total.
func (m *Alerts) reevaluate(u *unit, categoryID uuid.UUID, total decimal.Decimal) error {
	var alerts []models.Alert
	if err := u.tx.Where("category_id = ?", categoryID).Order("created_at ASC").Find(&alerts).Error; err != nil {
		return err
	}

	for i := range alerts {
		if err := m.evaluate(u, &alerts[i], total); err != nil {
			return err
		}
	}

	return nil
}

// evaluate derives the status of the alert from total and persists it if
// it changed.
//
// A transition to Triggered records the time in triggered_at and appends it
// to the history. A transition back to Active clears triggered_at only, the
// history is an audit log of all triggers.
func (m *Alerts) evaluate(u *unit, alert *models.Alert, total decimal.Decimal) error {
	holds, err := alert.Condition.Holds(total, alert.Amount.Decimal)
	if err != nil {
		return fmt.Errorf("alert %s: %w", alert.ID, err)
	}

	status := models.AlertActive
	if holds {
		status = models.AlertTriggered
	}

	if status == alert.Status {
		return nil
	}

	event := notify.AlertReverted
	if status == models.AlertTriggered {
		at := u.now
		alert.TriggeredAt = &at
		alert.TriggeredHistory = append(alert.TriggeredHistory, at)
		event = notify.AlertTriggered
	} else {
		alert.TriggeredAt = nil
	}
	alert.Status = status

	err = u.tx.Model(alert).Select("Status", "TriggeredAt", "TriggeredHistory").Updates(alert).Error
	if err != nil {
		return err
	}

	log.Debug().Str("alert", alert.ID.String()).Str("status", string(status)).Str("total", total.String()).Msg("Alert")

	u.events = append(u.events, notify.Event{
		Type:         event,
		AlertID:      alert.ID,
		OwnerID:      alert.OwnerID,
		CategoryID:   alert.CategoryID,
		Name:         alert.Name,
		Message:      alert.Message,
		Condition:    string(alert.Condition),
		Amount:       alert.Amount.Decimal,
		CurrentValue: total,
		At:           u.now,
	})

	return nil
}

// delete removes the alerts and takes them off the lists of their
// categories. Pulling them from the user lists is left to the caller.
func (m *Alerts) delete(u *unit, alerts []models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(alerts))
	for _, a := range alerts {
		if err := pull(u, a.CategoryID, models.CategoryAlerts, a.ID); err != nil {
			return err
		}
		ids = append(ids, a.ID)
	}

	return u.tx.Where("id IN ?", ids).Delete(&models.Alert{}).Error
}

// deleteAllForCategory deletes the alerts of the category and returns
// their IDs.
func (m *Alerts) deleteAllForCategory(u *unit, categoryID uuid.UUID) ([]uuid.UUID, error) {
	return m.deleteWhere(u, "category_id = ?", categoryID)
}

// deleteAllForUser deletes the alerts of the user and returns their IDs.
func (m *Alerts) deleteAllForUser(u *unit, userID uuid.UUID) ([]uuid.UUID, error) {
	return m.deleteWhere(u, "owner_id = ?", userID)
}

func (m *Alerts) deleteWhere(u *unit, query string, arg uuid.UUID) ([]uuid.UUID, error) {
	var alerts []models.Alert
	if err := u.tx.Where(query, arg).Find(&alerts).Error; err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(alerts))
	for _, a := range alerts {
		ids = append(ids, a.ID)
	}

	return ids, m.delete(u, alerts)
}
