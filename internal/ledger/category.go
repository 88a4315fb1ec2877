package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/tally-ledger/backend/internal/models"
	"github.com/tally-ledger/backend/internal/types"
	"gorm.io/gorm"
)

// Categories manages categories and their running totals.
type Categories struct {
	l      *Ledger
	alerts *Alerts
}

type CategoryCreate struct {
	Name     string
	MinValue decimal.Decimal
	MaxValue decimal.Decimal
}

type CategoryUpdate struct {
	Name     *string
	MinValue *decimal.Decimal
	MaxValue *decimal.Decimal
}

func validateCategory(name string, minValue, maxValue decimal.Decimal) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: the category name must not be empty", models.ErrValidation)
	}

	if minValue.GreaterThan(maxValue) {
		return models.ErrCategoryBounds
	}

	return nil
}

func reserved(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), models.UncategorizedName)
}

// Create creates a category and appends it to the categories of the owner.
func (m *Categories) Create(ctx context.Context, ownerID uuid.UUID, in CategoryCreate) (models.Category, error) {
	if err := validateCategory(in.Name, in.MinValue, in.MaxValue); err != nil {
		return models.Category{}, err
	}

	if reserved(in.Name) {
		return models.Category{}, models.ErrCategoryNameReserved
	}

	category := models.Category{
		OwnerID:      ownerID,
		Name:         in.Name,
		MinValue:     types.NewDecimal(in.MinValue),
		MaxValue:     types.NewDecimal(in.MaxValue),
		CurrentValue: types.NewDecimal(decimal.Zero),
	}

	err := m.l.run(ctx, func(u *unit) error {
		if err := userExists(u, ownerID); err != nil {
			return err
		}

		if err := u.tx.Create(&category).Error; err != nil {
			return err
		}

		return push(u, ownerID, models.UserCategories, category.ID)
	})
	if err != nil {
		return models.Category{}, err
	}

	return category, nil
}

// createUncategorized creates the category expenses of the owner fall back to.
func (m *Categories) createUncategorized(u *unit, ownerID uuid.UUID) (models.Category, error) {
	category := models.Category{
		OwnerID:       ownerID,
		Name:          models.UncategorizedName,
		CurrentValue:  types.NewDecimal(decimal.Zero),
		Uncategorized: true,
	}

	return category, u.tx.Create(&category).Error
}

// referencedCategory resolves and locks the category an expense or alert
// names. A name the owner does not have is invalid input, not a missing
// resource.
func referencedCategory(u *unit, name string, ownerID uuid.UUID) (models.Category, error) {
	category, err := categoryByName(u.forUpdate(), name, ownerID)
	if errors.Is(err, models.ErrResourceNotFound) {
		return category, fmt.Errorf("%w: category '%s'", models.ErrReferencedResourceAbsent, strings.TrimSpace(name))
	}
	return category, err
}

// categoryByName returns the category of the owner with the name. An empty
// name selects the uncategorized category.
func categoryByName(tx *gorm.DB, name string, ownerID uuid.UUID) (models.Category, error) {
	q := tx.Where("owner_id = ?", ownerID)

	name = strings.TrimSpace(name)
	if name == "" {
		q = q.Where("uncategorized = ?", true)
	} else {
		q = q.Where("name = ?", name)
	}

	var category models.Category
	err := q.First(&category).Error
	return category, err
}

func (m *Categories) FindByName(ctx context.Context, name string, ownerID uuid.UUID) (uuid.UUID, error) {
	category, err := categoryByName(m.l.read(ctx), name, ownerID)
	if err != nil {
		return uuid.Nil, classify(err)
	}

	return category.ID, nil
}

func (m *Categories) FindByID(ctx context.Context, id, ownerID uuid.UUID) (models.Category, error) {
	var category models.Category
	err := m.l.read(ctx).First(&category, "id = ? AND owner_id = ?", id, ownerID).Error
	return category, classify(err)
}

// FindAll returns the categories of the owner sorted by name.
func (m *Categories) FindAll(ctx context.Context, ownerID uuid.UUID, page Page) ([]models.Category, int64, error) {
	q := m.l.read(ctx).Model(&models.Category{}).Where("owner_id = ?", ownerID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, classify(err)
	}

	categories := []models.Category{}
	err := page.apply(q.Order("name ASC")).Find(&categories).Error
	return categories, total, classify(err)
}

// Update changes name and bounds of a category. The uncategorized category
// keeps its name.
func (m *Categories) Update(ctx context.Context, id, ownerID uuid.UUID, in CategoryUpdate) (models.Category, error) {
	var category models.Category
	err := m.l.run(ctx, func(u *unit) error {
		if err := u.forUpdate().First(&category, "id = ? AND owner_id = ?", id, ownerID).Error; err != nil {
			return err
		}

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if category.Uncategorized && name != category.Name {
				return models.ErrUncategorizedImmutable
			}
			if !category.Uncategorized && reserved(name) {
				return models.ErrCategoryNameReserved
			}
			category.Name = name
		}
		if in.MinValue != nil {
			category.MinValue = types.NewDecimal(*in.MinValue)
		}
		if in.MaxValue != nil {
			category.MaxValue = types.NewDecimal(*in.MaxValue)
		}

		if err := validateCategory(category.Name, category.MinValue.Decimal, category.MaxValue.Decimal); err != nil {
			return err
		}

		return u.tx.Model(&category).Select("Name", "MinValue", "MaxValue").Updates(&category).Error
	})
	if err != nil {
		return models.Category{}, err
	}

	return category, nil
}

// Delete deletes a category.
//
// Its expenses move to the uncategorized category of the owner together
// with their share of the current total, so the sum over all categories of
// the owner does not change. The alerts of the category are deleted.
func (m *Categories) Delete(ctx context.Context, id, ownerID uuid.UUID) (models.Category, error) {
	var category models.Category
	err := m.l.run(ctx, func(u *unit) error {
		if err := u.forUpdate().First(&category, "id = ? AND owner_id = ?", id, ownerID).Error; err != nil {
			return err
		}

		if category.Uncategorized {
			return models.ErrUncategorizedImmutable
		}

		var fallback models.Category
		if err := u.forUpdate().First(&fallback, "owner_id = ? AND uncategorized = ?", ownerID, true).Error; err != nil {
			return err
		}

		var expenseIDs []uuid.UUID
		err := u.tx.
			Model(&models.Expense{}).
			Where("category_id = ?", category.ID).
			Order("created_at ASC").
			Pluck("id", &expenseIDs).
			Error
		if err != nil {
			return err
		}

		if len(expenseIDs) > 0 {
			err := u.tx.
				Model(&models.Expense{}).
				Where("id IN ?", expenseIDs).
				Update("category_id", fallback.ID).
				Error
			if err != nil {
				return err
			}

			if err := push(u, fallback.ID, models.CategoryExpenses, expenseIDs...); err != nil {
				return err
			}
		}

		if err := m.adjust(u, &fallback, category.CurrentValue.Decimal); err != nil {
			return err
		}

		alertIDs, err := m.alerts.deleteAllForCategory(u, category.ID)
		if err != nil {
			return err
		}

		if err := pull(u, ownerID, models.UserAlerts, alertIDs...); err != nil {
			return err
		}

		if err := pull(u, ownerID, models.UserCategories, category.ID); err != nil {
			return err
		}

		if err := dropReferences(u, category.ID); err != nil {
			return err
		}

		log.Debug().
			Str("category", category.ID.String()).
			Int("expenses", len(expenseIDs)).
			Int("alerts", len(alertIDs)).
			Msg("Deleting category")

		return u.tx.Delete(&category).Error
	})
	if err != nil {
		return models.Category{}, err
	}

	return category, nil
}

// addExpense lists the expense in the category and adds its amount to the
// total if it falls into the current month.
func (m *Categories) addExpense(u *unit, categoryID, expenseID uuid.UUID, amount decimal.Decimal, date time.Time) error {
	if err := push(u, categoryID, models.CategoryExpenses, expenseID); err != nil {
		return err
	}

	if !u.inMonth(date) {
		return nil
	}

	return m.adjustByID(u, categoryID, amount)
}

// removeExpense is the inverse of addExpense.
func (m *Categories) removeExpense(u *unit, categoryID, expenseID uuid.UUID, amount decimal.Decimal, date time.Time) error {
	if err := pull(u, categoryID, models.CategoryExpenses, expenseID); err != nil {
		return err
	}

	if !u.inMonth(date) {
		return nil
	}

	return m.adjustByID(u, categoryID, amount.Neg())
}

// updateExpense applies a change of amount or date of an expense that stays
// in the category. Each side only counts if it falls into the current month.
func (m *Categories) updateExpense(u *unit, categoryID, expenseID uuid.UUID, oldAmount, newAmount decimal.Decimal, oldDate, newDate time.Time) error {
	if err := push(u, categoryID, models.CategoryExpenses, expenseID); err != nil {
		return err
	}

	delta := decimal.Zero
	if u.inMonth(oldDate) {
		delta = delta.Sub(oldAmount)
	}
	if u.inMonth(newDate) {
		delta = delta.Add(newAmount)
	}

	return m.adjustByID(u, categoryID, delta)
}

func (m *Categories) adjustByID(u *unit, categoryID uuid.UUID, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}

	var category models.Category
	if err := u.forUpdate().First(&category, "id = ?", categoryID).Error; err != nil {
		return err
	}

	return m.adjust(u, &category, delta)
}

// adjust adds delta to the total of a locked category and re-evaluates its
// alerts against the new total.
func (m *Categories) adjust(u *unit, category *models.Category, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}

	category.CurrentValue = types.NewDecimal(category.CurrentValue.Add(delta))
	err := u.tx.Model(category).Update("current_value", category.CurrentValue).Error
	if err != nil {
		return err
	}

	return m.alerts.reevaluate(u, category.ID, category.CurrentValue.Decimal)
}

// deletion counts what deleteAllForUser deleted.
type deletion struct {
	categories, expenses, alerts int
}

// deleteAllForUser deletes the categories of the user together with their
// expenses and alerts. The categories are locked before anything else, in
// the same order expense changes lock them.
func (m *Categories) deleteAllForUser(u *unit, ownerID uuid.UUID) (deletion, error) {
	var categories []models.Category
	if err := u.forUpdate().Where("owner_id = ?", ownerID).Find(&categories).Error; err != nil {
		return deletion{}, err
	}

	alertIDs, err := m.alerts.deleteAllForUser(u, ownerID)
	if err != nil {
		return deletion{}, err
	}

	var expenseIDs []uuid.UUID
	if err := u.tx.Model(&models.Expense{}).Where("owner_id = ?", ownerID).Pluck("id", &expenseIDs).Error; err != nil {
		return deletion{}, err
	}

	if err := m.l.deleteAttachments(u, expenseIDs...); err != nil {
		return deletion{}, err
	}

	if err := u.tx.Where("owner_id = ?", ownerID).Delete(&models.Expense{}).Error; err != nil {
		return deletion{}, err
	}

	for _, c := range categories {
		if err := dropReferences(u, c.ID); err != nil {
			return deletion{}, err
		}
	}

	if err := u.tx.Where("owner_id = ?", ownerID).Delete(&models.Category{}).Error; err != nil {
		return deletion{}, err
	}

	return deletion{categories: len(categories), expenses: len(expenseIDs), alerts: len(alertIDs)}, nil
}

// ResetAllCurrentValues sets the total of every category back to zero.
// Alerts are not touched.
func (m *Categories) ResetAllCurrentValues(ctx context.Context) error {
	return m.l.run(ctx, resetCategories)
}

func resetCategories(u *unit) error {
	result := u.tx.
		Model(&models.Category{}).
		Where("current_value <> ?", types.NewDecimal(decimal.Zero)).
		Update("current_value", types.NewDecimal(decimal.Zero))
	if result.Error != nil {
		return result.Error
	}

	log.Info().Int64("categories", result.RowsAffected).Msg("Monthly reset")
	return nil
}
