package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/ryanuber/go-glob"
	"github.com/shopspring/decimal"
	"github.com/tally-ledger/backend/internal/attachment"
	"github.com/tally-ledger/backend/internal/models"
	"github.com/tally-ledger/backend/internal/types"
	"gorm.io/gorm"
)

// Expenses manages expenses. Every change is forwarded to the categories so
// their totals follow.
type Expenses struct {
	l          *Ledger
	categories *Categories
}

type ExpenseCreate struct {
	Concept  string
	Amount   decimal.Decimal
	Date     time.Time // Defaults to now
	Category string    // Name of the category, the uncategorized category if empty
}

type ExpenseUpdate struct {
	Concept  *string
	Amount   *decimal.Decimal
	Date     *time.Time
	Category *string
}

// ExpenseFilter selects expenses. Zero values match everything.
type ExpenseFilter struct {
	CategoryID uuid.UUID
	Concept    string // Glob pattern, compared case-insensitively
	FromDate   time.Time
	UntilDate  time.Time
	Page
}

func validateConcept(concept string) error {
	if strings.TrimSpace(concept) == "" {
		return fmt.Errorf("%w: the concept must not be empty", models.ErrValidation)
	}
	return nil
}

// Create records an expense in the named category.
func (m *Expenses) Create(ctx context.Context, ownerID uuid.UUID, in ExpenseCreate) (models.Expense, error) {
	if err := validateConcept(in.Concept); err != nil {
		return models.Expense{}, err
	}

	expense := models.Expense{
		OwnerID: ownerID,
		Concept: in.Concept,
		Amount:  types.NewDecimal(in.Amount),
		Date:    in.Date,
	}

	err := m.l.run(ctx, func(u *unit) error {
		if expense.Date.IsZero() {
			expense.Date = u.now
		}

		category, err := referencedCategory(u, in.Category, ownerID)
		if err != nil {
			return err
		}
		expense.CategoryID = category.ID

		if err := u.tx.Create(&expense).Error; err != nil {
			return err
		}

		if err := linkUser(u, ownerID, models.UserExpenses, expense.ID); err != nil {
			return err
		}

		return m.categories.addExpense(u, category.ID, expense.ID, expense.Amount.Decimal, expense.Date)
	})
	if err != nil {
		return models.Expense{}, err
	}

	return expense, nil
}

// Update changes an expense. The stored version is read inside the
// transaction, so the totals are corrected by what actually changed.
func (m *Expenses) Update(ctx context.Context, ownerID, id uuid.UUID, in ExpenseUpdate) (models.Expense, error) {
	if in.Concept != nil {
		if err := validateConcept(*in.Concept); err != nil {
			return models.Expense{}, err
		}
	}

	var expense models.Expense
	err := m.l.run(ctx, func(u *unit) error {
		if err := u.forUpdate().First(&expense, "id = ? AND owner_id = ?", id, ownerID).Error; err != nil {
			return err
		}
		old := expense

		if in.Category != nil {
			category, err := referencedCategory(u, *in.Category, ownerID)
			if err != nil {
				return err
			}
			expense.CategoryID = category.ID
		}
		if in.Concept != nil {
			expense.Concept = *in.Concept
		}
		if in.Amount != nil {
			expense.Amount = types.NewDecimal(*in.Amount)
		}
		if in.Date != nil {
			expense.Date = *in.Date
		}

		err := u.tx.Model(&expense).Select("CategoryID", "Concept", "Amount", "Date").Updates(&expense).Error
		if err != nil {
			return err
		}

		if expense.CategoryID != old.CategoryID {
			if err := m.categories.removeExpense(u, old.CategoryID, expense.ID, old.Amount.Decimal, old.Date); err != nil {
				return err
			}
			return m.categories.addExpense(u, expense.CategoryID, expense.ID, expense.Amount.Decimal, expense.Date)
		}

		if expense.Amount.Equal(old.Amount.Decimal) && expense.Date.Equal(old.Date) {
			return nil
		}

		return m.categories.updateExpense(u, expense.CategoryID, expense.ID, old.Amount.Decimal, expense.Amount.Decimal, old.Date, expense.Date)
	})
	if err != nil {
		return models.Expense{}, err
	}

	return expense, nil
}

// Delete deletes an expense together with its attachment.
func (m *Expenses) Delete(ctx context.Context, ownerID, id uuid.UUID) (models.Expense, error) {
	var expense models.Expense
	err := m.l.run(ctx, func(u *unit) error {
		if err := u.forUpdate().First(&expense, "id = ? AND owner_id = ?", id, ownerID).Error; err != nil {
			return err
		}

		if err := pull(u, ownerID, models.UserExpenses, expense.ID); err != nil {
			return err
		}

		if err := m.categories.removeExpense(u, expense.CategoryID, expense.ID, expense.Amount.Decimal, expense.Date); err != nil {
			return err
		}

		if err := m.l.deleteAttachments(u, expense.ID); err != nil {
			return err
		}

		return u.tx.Delete(&expense).Error
	})
	if err != nil {
		return models.Expense{}, err
	}

	return expense, nil
}

func (m *Expenses) FindByID(ctx context.Context, ownerID, id uuid.UUID) (models.Expense, error) {
	var expense models.Expense
	err := m.l.read(ctx).First(&expense, "id = ? AND owner_id = ?", id, ownerID).Error
	return expense, classify(err)
}

// FindByCategory returns the expenses of a category, newest first.
func (m *Expenses) FindByCategory(ctx context.Context, ownerID, categoryID uuid.UUID) ([]models.Expense, error) {
	if _, err := m.categories.FindByID(ctx, categoryID, ownerID); err != nil {
		return nil, err
	}

	expenses, _, err := m.FindAll(ctx, ownerID, ExpenseFilter{CategoryID: categoryID})
	return expenses, err
}

// FindAll returns the expenses of the owner matching the filter, newest
// first, and the total number of matches.
func (m *Expenses) FindAll(ctx context.Context, ownerID uuid.UUID, f ExpenseFilter) ([]models.Expense, int64, error) {
	q := m.l.read(ctx).Model(&models.Expense{}).Where("owner_id = ?", ownerID)

	if f.CategoryID != uuid.Nil {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if !f.FromDate.IsZero() {
		q = q.Where("date >= ?", f.FromDate.UTC())
	}
	if !f.UntilDate.IsZero() {
		q = q.Where("date < ?", f.UntilDate.UTC())
	}
	q = q.Order("date DESC, created_at DESC")

	// Glob patterns cannot be expressed in SQL portably, the concept is
	// filtered here and paginated afterwards.
	if f.Concept != "" {
		var all []models.Expense
		if err := q.Find(&all).Error; err != nil {
			return nil, 0, classify(err)
		}

		pattern := strings.ToLower(f.Concept)
		matches := []models.Expense{}
		for _, e := range all {
			if glob.Glob(pattern, strings.ToLower(e.Concept)) {
				matches = append(matches, e)
			}
		}

		return paginate(matches, f.Page), int64(len(matches)), nil
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, classify(err)
	}

	expenses := []models.Expense{}
	err := f.apply(q).Find(&expenses).Error
	return expenses, total, classify(err)
}

// Attach stores a file for the expense. An expense has at most one
// attachment.
func (m *Expenses) Attach(ctx context.Context, ownerID, id uuid.UUID, fileName, contentType string, r io.Reader) (models.Expense, error) {
	if m.l.files == nil {
		return models.Expense{}, models.ErrAttachmentsDisabled
	}

	if strings.TrimSpace(fileName) == "" {
		return models.Expense{}, fmt.Errorf("%w: the file name must not be empty", models.ErrValidation)
	}

	if _, err := m.FindByID(ctx, ownerID, id); err != nil {
		return models.Expense{}, err
	}

	location, size, err := m.l.files.Save(r)
	if err != nil {
		return models.Expense{}, storageFailure(err)
	}

	var expense models.Expense
	err = m.l.run(ctx, func(u *unit) error {
		if err := u.forUpdate().First(&expense, "id = ? AND owner_id = ?", id, ownerID).Error; err != nil {
			return err
		}

		if expense.Attachment != nil {
			return models.ErrAttachmentExists
		}

		file := models.Attachment{
			ExpenseID:       expense.ID,
			FileName:        strings.TrimSpace(fileName),
			ContentType:     contentType,
			Size:            size,
			StorageLocation: location,
		}
		if err := u.tx.Create(&file).Error; err != nil {
			return err
		}

		expense.Attachment = file.Snapshot()
		return u.tx.Model(&expense).Select("Attachment").Updates(&expense).Error
	})
	if err != nil {
		m.l.removeFile(location)
		return models.Expense{}, err
	}

	return expense, nil
}

// Attachment returns the attachment of the expense and its content. The
// caller must close the reader.
func (m *Expenses) Attachment(ctx context.Context, ownerID, id uuid.UUID) (models.Attachment, io.ReadCloser, error) {
	if m.l.files == nil {
		return models.Attachment{}, nil, models.ErrAttachmentsDisabled
	}

	expense, err := m.FindByID(ctx, ownerID, id)
	if err != nil {
		return models.Attachment{}, nil, err
	}

	if expense.Attachment == nil {
		return models.Attachment{}, nil, models.ErrNoAttachment
	}

	var file models.Attachment
	if err := m.l.read(ctx).First(&file, "expense_id = ?", expense.ID).Error; err != nil {
		return models.Attachment{}, nil, classify(err)
	}

	content, err := m.l.files.Open(file.StorageLocation)
	if err != nil {
		return models.Attachment{}, nil, storageFailure(err)
	}

	return file, content, nil
}

// Detach deletes the attachment of the expense. The file is removed once
// the transaction has committed.
func (m *Expenses) Detach(ctx context.Context, ownerID, id uuid.UUID) (models.Expense, error) {
	if m.l.files == nil {
		return models.Expense{}, models.ErrAttachmentsDisabled
	}

	var expense models.Expense
	err := m.l.run(ctx, func(u *unit) error {
		if err := u.forUpdate().First(&expense, "id = ? AND owner_id = ?", id, ownerID).Error; err != nil {
			return err
		}

		if expense.Attachment == nil {
			return models.ErrNoAttachment
		}

		if err := m.l.deleteAttachments(u, expense.ID); err != nil {
			return err
		}

		expense.Attachment = nil
		return u.tx.Model(&expense).Update("attachment", gorm.Expr("NULL")).Error
	})
	if err != nil {
		return models.Expense{}, err
	}

	return expense, nil
}

// deleteAttachments deletes the attachment rows of the expenses. Their
// files are removed after commit.
func (l *Ledger) deleteAttachments(u *unit, expenseIDs ...uuid.UUID) error {
	if len(expenseIDs) == 0 {
		return nil
	}

	var files []models.Attachment
	if err := u.tx.Where("expense_id IN ?", expenseIDs).Find(&files).Error; err != nil {
		return err
	}

	if len(files) == 0 {
		return nil
	}

	if err := u.tx.Where("expense_id IN ?", expenseIDs).Delete(&models.Attachment{}).Error; err != nil {
		return err
	}

	for _, f := range files {
		location := f.StorageLocation
		u.cleanups = append(u.cleanups, func() { l.removeFile(location) })
	}

	return nil
}

func (l *Ledger) removeFile(location string) {
	if l.files == nil {
		return
	}

	err := l.files.Delete(location)
	if err != nil && !errors.Is(err, attachment.ErrNotFound) {
		log.Error().Err(err).Str("location", location).Msg("Could not delete attachment file")
	}
}
