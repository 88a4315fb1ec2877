package ledger_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tally-ledger/backend/internal/ledger"
	"github.com/tally-ledger/backend/internal/models"
)

func (suite *TestSuiteStandard) TestExpenseRoundTrip() {
	user := suite.createTestUser("ada@example.com")
	food := suite.createTestCategory(user.ID, "Food", 100)
	suite.createTestExpense(user.ID, "Food", "12.34", now)

	before := suite.category(user.ID, food.ID).CurrentValue

	expense := suite.createTestExpense(user.ID, "Food", "50", now)
	suite.assertDecimal(before.Add(decimal.NewFromInt(50)).String(), suite.category(user.ID, food.ID).CurrentValue)

	refs, err := suite.ledger.Users.References(suite.ctx, user.ID)
	suite.Require().Nil(err)
	suite.Assert().Contains(refs.Expenses, expense.ID)

	deleted, err := suite.ledger.Expenses.Delete(suite.ctx, user.ID, expense.ID)
	suite.Require().Nil(err)
	suite.Assert().Equal(expense.ID, deleted.ID)
	suite.assertDecimal(before.String(), suite.category(user.ID, food.ID).CurrentValue)

	refs, err = suite.ledger.Users.References(suite.ctx, user.ID)
	suite.Require().Nil(err)
	suite.Assert().NotContains(refs.Expenses, expense.ID)
	suite.Assert().Equal(int64(0), suite.count(&models.Reference{}, "target_id = ?", expense.ID))

	_, err = suite.ledger.Expenses.Delete(suite.ctx, user.ID, expense.ID)
	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)
}

func (suite *TestSuiteStandard) TestExpenseDefaults() {
	user := suite.createTestUser("ada@example.com")
	uncategorizedID, err := suite.ledger.Categories.FindByName(suite.ctx, "", user.ID)
	suite.Require().Nil(err)

	expense, err := suite.ledger.Expenses.Create(suite.ctx, user.ID, ledger.ExpenseCreate{Concept: " Coffee ", Amount: decimal.NewFromFloat(2.5)})
	suite.Require().Nil(err)

	suite.Assert().Equal("Coffee", expense.Concept)
	suite.Assert().True(now.Equal(expense.Date))
	suite.Assert().Equal(uncategorizedID, expense.CategoryID)
	suite.assertDecimal("2.5", suite.category(user.ID, uncategorizedID).CurrentValue)

	_, err = suite.ledger.Expenses.Create(suite.ctx, user.ID, ledger.ExpenseCreate{Concept: "  ", Amount: decimal.NewFromInt(1)})
	suite.Assert().ErrorIs(err, models.ErrValidation)

	_, err = suite.ledger.Expenses.Create(suite.ctx, user.ID, ledger.ExpenseCreate{Concept: "Tea", Category: "Drinks"})
	suite.Assert().ErrorIs(err, models.ErrReferencedResourceAbsent)
}

func (suite *TestSuiteStandard) TestExpenseOutsideMonth() {
	user := suite.createTestUser("ada@example.com")
	food := suite.createTestCategory(user.ID, "Food", 100)

	lastMonth := time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)
	nextMonth := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	old := suite.createTestExpense(user.ID, "Food", "40", lastMonth)
	suite.createTestExpense(user.ID, "Food", "60", nextMonth)
	suite.assertDecimal("0", suite.category(user.ID, food.ID).CurrentValue)

	// Moving the date into the current month counts the expense
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := suite.ledger.Expenses.Update(suite.ctx, user.ID, old.ID, ledger.ExpenseUpdate{Date: &date})
	suite.Require().Nil(err)
	suite.assertDecimal("40", suite.category(user.ID, food.ID).CurrentValue)

	// and moving it out again removes it
	_, err = suite.ledger.Expenses.Update(suite.ctx, user.ID, old.ID, ledger.ExpenseUpdate{Date: &lastMonth})
	suite.Require().Nil(err)
	suite.assertDecimal("0", suite.category(user.ID, food.ID).CurrentValue)

	_, err = suite.ledger.Expenses.Delete(suite.ctx, user.ID, old.ID)
	suite.Require().Nil(err)
	suite.assertDecimal("0", suite.category(user.ID, food.ID).CurrentValue)
}

func (suite *TestSuiteStandard) TestExpenseUpdateAmount() {
	user := suite.createTestUser("ada@example.com")
	food := suite.createTestCategory(user.ID, "Food", 100)
	expense := suite.createTestExpense(user.ID, "Food", "25", now)
	suite.createTestAlert(user.ID, "Food", "Big spender", "greater than", 30)

	amount := decimal.NewFromInt(35)
	concept := "Dinner"
	updated, err := suite.ledger.Expenses.Update(suite.ctx, user.ID, expense.ID, ledger.ExpenseUpdate{Amount: &amount, Concept: &concept})
	suite.Require().Nil(err)
	suite.Assert().Equal("Dinner", updated.Concept)
	suite.assertDecimal("35", suite.category(user.ID, food.ID).CurrentValue)
	suite.assertAlertsConsistent(user.ID)

	amount = decimal.NewFromInt(-5)
	_, err = suite.ledger.Expenses.Update(suite.ctx, user.ID, expense.ID, ledger.ExpenseUpdate{Amount: &amount})
	suite.Require().Nil(err)
	suite.assertDecimal("-5", suite.category(user.ID, food.ID).CurrentValue)
	suite.assertAlertsConsistent(user.ID)

	empty := ""
	_, err = suite.ledger.Expenses.Update(suite.ctx, user.ID, expense.ID, ledger.ExpenseUpdate{Concept: &empty})
	suite.Assert().ErrorIs(err, models.ErrValidation)

	missing := "Drinks"
	_, err = suite.ledger.Expenses.Update(suite.ctx, user.ID, expense.ID, ledger.ExpenseUpdate{Category: &missing})
	suite.Assert().ErrorIs(err, models.ErrReferencedResourceAbsent)
	suite.assertDecimal("-5", suite.category(user.ID, food.ID).CurrentValue)
}

// TestFoodScenario creates an expense that pushes a category over the
// amount of its alert.
func (suite *TestSuiteStandard) TestFoodScenario() {
	user := suite.createTestUser("ada@example.com")
	food := suite.createTestCategory(user.ID, "Food", 100)
	suite.createTestExpense(user.ID, "Food", "80", now)
	alert := suite.createTestAlert(user.ID, "Food", "Food budget", "greater than", 100)
	suite.Require().Equal(models.AlertActive, alert.Status)
	suite.Require().Empty(suite.events.events)

	suite.createTestExpense(user.ID, "Food", "25", now)

	suite.assertDecimal("105", suite.category(user.ID, food.ID).CurrentValue)

	alert = suite.alert(user.ID, alert.ID)
	suite.Assert().Equal(models.AlertTriggered, alert.Status)
	suite.Require().NotNil(alert.TriggeredAt)
	suite.Assert().True(now.Equal(*alert.TriggeredAt))
	suite.Require().Len(alert.TriggeredHistory, 1)
	suite.Assert().True(now.Equal(alert.TriggeredHistory[0]))

	suite.Require().Len(suite.events.events, 1)
	event := suite.events.events[0]
	suite.Assert().Equal(alert.ID, event.AlertID)
	suite.Assert().Equal(user.ID, event.OwnerID)
	suite.assertDecimal("105", event.CurrentValue)
}

// TestTransportScenario moves an expense between two categories with
// alerts of their own.
func (suite *TestSuiteStandard) TestTransportScenario() {
	user := suite.createTestUser("ada@example.com")
	food := suite.createTestCategory(user.ID, "Food", 100)
	transport := suite.createTestCategory(user.ID, "Transport", 50)

	suite.createTestExpense(user.ID, "Food", "80", now)
	expense := suite.createTestExpense(user.ID, "Food", "25", now)
	suite.createTestExpense(user.ID, "Transport", "10", now)

	foodAlert := suite.createTestAlert(user.ID, "Food", "Food budget", "greater than", 100)
	transportAlert := suite.createTestAlert(user.ID, "Transport", "Transport budget", "greater than", 30)
	suite.Require().Equal(models.AlertTriggered, foodAlert.Status)
	suite.Require().Equal(models.AlertActive, transportAlert.Status)

	category := "Transport"
	updated, err := suite.ledger.Expenses.Update(suite.ctx, user.ID, expense.ID, ledger.ExpenseUpdate{Category: &category})
	suite.Require().Nil(err)
	suite.Assert().Equal(transport.ID, updated.CategoryID)

	suite.assertDecimal("80", suite.category(user.ID, food.ID).CurrentValue)
	suite.assertDecimal("35", suite.category(user.ID, transport.ID).CurrentValue)

	foodAlert = suite.alert(user.ID, foodAlert.ID)
	suite.Assert().Equal(models.AlertActive, foodAlert.Status)
	suite.Assert().Nil(foodAlert.TriggeredAt)
	suite.Assert().Len(foodAlert.TriggeredHistory, 1)

	transportAlert = suite.alert(user.ID, transportAlert.ID)
	suite.Assert().Equal(models.AlertTriggered, transportAlert.Status)
	suite.Assert().Len(transportAlert.TriggeredHistory, 1)

	suite.Assert().Equal(int64(1), suite.count(&models.Reference{}, "owner_id = ? AND target_id = ?", transport.ID, expense.ID))
	suite.Assert().Equal(int64(0), suite.count(&models.Reference{}, "owner_id = ? AND target_id = ?", food.ID, expense.ID))
	suite.assertAlertsConsistent(user.ID)
}

func (suite *TestSuiteStandard) TestExpenseOwnership() {
	user := suite.createTestUser("ada@example.com")
	other := suite.createTestUser("bob@example.com")
	expense := suite.createTestExpense(user.ID, "", "10", now)

	_, err := suite.ledger.Expenses.FindByID(suite.ctx, other.ID, expense.ID)
	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)

	amount := decimal.NewFromInt(1)
	_, err = suite.ledger.Expenses.Update(suite.ctx, other.ID, expense.ID, ledger.ExpenseUpdate{Amount: &amount})
	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)

	_, err = suite.ledger.Expenses.Delete(suite.ctx, other.ID, expense.ID)
	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)

	uncategorizedID, err := suite.ledger.Categories.FindByName(suite.ctx, "", user.ID)
	suite.Require().Nil(err)
	_, err = suite.ledger.Expenses.FindByCategory(suite.ctx, other.ID, uncategorizedID)
	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)
}

func (suite *TestSuiteStandard) TestFindAllExpenses() {
	user := suite.createTestUser("ada@example.com")
	food := suite.createTestCategory(user.ID, "Food", 100)

	suite.ledger.Expenses.Create(suite.ctx, user.ID, ledger.ExpenseCreate{Concept: "Coffee beans", Amount: decimal.NewFromInt(12), Date: now, Category: "Food"})
	suite.ledger.Expenses.Create(suite.ctx, user.ID, ledger.ExpenseCreate{Concept: "Coffee to go", Amount: decimal.NewFromInt(3), Date: now.Add(-time.Hour)})
	suite.ledger.Expenses.Create(suite.ctx, user.ID, ledger.ExpenseCreate{Concept: "Bread", Amount: decimal.NewFromInt(4), Date: now.AddDate(0, -1, 0), Category: "Food"})

	tests := []struct {
		name   string
		filter ledger.ExpenseFilter
		want   []string
		total  int64
	}{
		{"All", ledger.ExpenseFilter{}, []string{"Coffee beans", "Coffee to go", "Bread"}, 3},
		{"Category", ledger.ExpenseFilter{CategoryID: food.ID}, []string{"Coffee beans", "Bread"}, 2},
		{"Glob", ledger.ExpenseFilter{Concept: "coffee*"}, []string{"Coffee beans", "Coffee to go"}, 2},
		{"Glob inner", ledger.ExpenseFilter{Concept: "*E*"}, []string{"Coffee beans", "Coffee to go", "Bread"}, 3},
		{"Glob no match", ledger.ExpenseFilter{Concept: "tea*"}, []string{}, 0},
		{"Glob paginated", ledger.ExpenseFilter{Concept: "coffee*", Page: ledger.Page{Offset: 1, Limit: 5}}, []string{"Coffee to go"}, 2},
		{"From", ledger.ExpenseFilter{FromDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}, []string{"Coffee beans", "Coffee to go"}, 2},
		{"Until", ledger.ExpenseFilter{UntilDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}, []string{"Bread"}, 1},
		{"Paginated", ledger.ExpenseFilter{Page: ledger.Page{Offset: 1, Limit: 1}}, []string{"Coffee to go"}, 3},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			expenses, total, err := suite.ledger.Expenses.FindAll(suite.ctx, user.ID, tt.filter)
			suite.Require().Nil(err)
			suite.Assert().Equal(tt.total, total)

			concepts := []string{}
			for _, e := range expenses {
				concepts = append(concepts, e.Concept)
			}
			suite.Assert().Equal(tt.want, concepts)
		})
	}
}

func (suite *TestSuiteStandard) TestAttachments() {
	user := suite.createTestUser("ada@example.com")
	expense := suite.createTestExpense(user.ID, "", "10", now)

	_, _, err := suite.ledger.Expenses.Attachment(suite.ctx, user.ID, expense.ID)
	suite.Assert().ErrorIs(err, models.ErrNoAttachment)

	updated, err := suite.ledger.Expenses.Attach(suite.ctx, user.ID, expense.ID, "receipt.txt", "text/plain", bytes.NewBufferString("ten euros"))
	suite.Require().Nil(err)
	suite.Require().NotNil(updated.Attachment)
	suite.Assert().Equal("receipt.txt", updated.Attachment.FileName)
	suite.Assert().Equal(int64(9), updated.Attachment.Size)

	found, err := suite.ledger.Expenses.FindByID(suite.ctx, user.ID, expense.ID)
	suite.Require().Nil(err)
	suite.Assert().Equal(updated.Attachment, found.Attachment)

	file, content, err := suite.ledger.Expenses.Attachment(suite.ctx, user.ID, expense.ID)
	suite.Require().Nil(err)
	data, err := io.ReadAll(content)
	content.Close()
	suite.Require().Nil(err)
	suite.Assert().Equal("ten euros", string(data))
	suite.Assert().Equal(found.Attachment.ID, file.ID)
	suite.Assert().Equal("text/plain", file.ContentType)

	// A second attachment is rejected and its file is not kept
	_, err = suite.ledger.Expenses.Attach(suite.ctx, user.ID, expense.ID, "other.txt", "text/plain", bytes.NewBufferString("other"))
	suite.Assert().ErrorIs(err, models.ErrAttachmentExists)
	files, err := os.ReadDir(suite.files)
	suite.Require().Nil(err)
	suite.Assert().Len(files, 1)

	// Other users cannot see it
	other := suite.createTestUser("bob@example.com")
	_, _, err = suite.ledger.Expenses.Attachment(suite.ctx, other.ID, expense.ID)
	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)

	detached, err := suite.ledger.Expenses.Detach(suite.ctx, user.ID, expense.ID)
	suite.Require().Nil(err)
	suite.Assert().Nil(detached.Attachment)
	suite.Assert().NoFileExists(filepath.Join(suite.files, file.StorageLocation))

	found, err = suite.ledger.Expenses.FindByID(suite.ctx, user.ID, expense.ID)
	suite.Require().Nil(err)
	suite.Assert().Nil(found.Attachment)

	_, err = suite.ledger.Expenses.Detach(suite.ctx, user.ID, expense.ID)
	suite.Assert().ErrorIs(err, models.ErrNoAttachment)

	// Deleting an expense removes its attachment
	_, err = suite.ledger.Expenses.Attach(suite.ctx, user.ID, expense.ID, "receipt.txt", "text/plain", bytes.NewBufferString("ten euros"))
	suite.Require().Nil(err)
	_, err = suite.ledger.Expenses.Delete(suite.ctx, user.ID, expense.ID)
	suite.Require().Nil(err)
	suite.Assert().Equal(int64(0), suite.count(&models.Attachment{}, "1 = 1"))
	files, err = os.ReadDir(suite.files)
	suite.Require().Nil(err)
	suite.Assert().Empty(files)
}

func (suite *TestSuiteStandard) TestAttachmentsDisabled() {
	l := ledger.New(suite.db)
	ctx := context.Background()
	user := suite.createTestUser("ada@example.com")
	expense := suite.createTestExpense(user.ID, "", "10", now)

	_, err := l.Expenses.Attach(ctx, user.ID, expense.ID, "a.txt", "text/plain", bytes.NewBufferString("a"))
	suite.Assert().ErrorIs(err, models.ErrAttachmentsDisabled)

	_, _, err = l.Expenses.Attachment(ctx, user.ID, expense.ID)
	suite.Assert().ErrorIs(err, models.ErrAttachmentsDisabled)

	_, err = l.Expenses.Detach(ctx, user.ID, uuid.New())
	suite.Assert().ErrorIs(err, models.ErrAttachmentsDisabled)
}

func (suite *TestSuiteStandard) TestExpensePrecision() {
	user := suite.createTestUser("ada@example.com")
	food := suite.createTestCategory(user.ID, "Food", 0)

	// A large amount must not swallow a small one
	suite.createTestExpense(user.ID, "Food", "0.00000001", now)
	large := suite.createTestExpense(user.ID, "Food", "98765432.1", now)
	_, err := suite.ledger.Expenses.Delete(suite.ctx, user.ID, large.ID)
	suite.Require().Nil(err)
	suite.assertDecimal("0.00000001", suite.category(user.ID, food.ID).CurrentValue)

	rent := suite.createTestCategory(user.ID, "Rent", 0)
	alert, err := suite.ledger.Alerts.Create(suite.ctx, user.ID, ledger.AlertCreate{
		Category:  "Rent",
		Name:      "Exact",
		Condition: "equal to",
		Amount:    decimal.RequireFromString("123456789.12345679"),
	})
	suite.Require().Nil(err)
	suite.Require().Equal(models.AlertActive, alert.Status)

	expense := suite.createTestExpense(user.ID, "Rent", "123456789.12345678", now)
	suite.assertDecimal("123456789.12345678", suite.category(user.ID, rent.ID).CurrentValue)
	stored, err := suite.ledger.Expenses.FindByID(suite.ctx, user.ID, expense.ID)
	suite.Require().Nil(err)
	suite.assertDecimal("123456789.12345678", stored.Amount)
	suite.Assert().Equal(models.AlertActive, suite.alert(user.ID, alert.ID).Status)

	suite.createTestExpense(user.ID, "Rent", "0.00000001", now)
	suite.assertDecimal("123456789.12345679", suite.category(user.ID, rent.ID).CurrentValue)
	suite.Assert().Equal(models.AlertTriggered, suite.alert(user.ID, alert.ID).Status)
	suite.assertAlertsConsistent(user.ID)
}
