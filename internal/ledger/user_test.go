package ledger_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/tally-ledger/backend/internal/ledger"
	"github.com/tally-ledger/backend/internal/models"
)

func (suite *TestSuiteStandard) TestRegister() {
	user := suite.createTestUser("  Ada@Example.com ")

	suite.Assert().Equal("ada@example.com", user.Email)
	suite.Assert().Equal(models.RoleUser, user.Role)
	suite.Assert().NotEqual("correct horse", user.PasswordHash)

	refs, err := suite.ledger.Users.References(suite.ctx, user.ID)
	suite.Require().Nil(err)
	suite.Require().Len(refs.Categories, 1)
	suite.Assert().Empty(refs.Expenses)
	suite.Assert().Empty(refs.Alerts)

	uncategorized := suite.category(user.ID, refs.Categories[0])
	suite.Assert().True(uncategorized.Uncategorized)
	suite.Assert().Equal(models.UncategorizedName, uncategorized.Name)
	suite.assertDecimal("0", uncategorized.CurrentValue)
}

func (suite *TestSuiteStandard) TestRegisterEmailConflict() {
	suite.createTestUser("A@x.com")

	_, err := suite.ledger.Users.Register(suite.ctx, ledger.UserCreate{
		Name:     "Another",
		Surname:  "Person",
		Email:    "a@x.com",
		Password: "12345678",
	})
	suite.Assert().ErrorIs(err, models.ErrConflict)
	suite.Assert().ErrorIs(err, models.ErrEmailNotUnique)

	// The failed registration left nothing behind
	suite.Assert().Equal(int64(1), suite.count(&models.User{}, "1 = 1"))
	suite.Assert().Equal(int64(1), suite.count(&models.Category{}, "1 = 1"))
}

func (suite *TestSuiteStandard) TestRegisterValidation() {
	tests := []struct {
		name string
		in   ledger.UserCreate
	}{
		{"No name", ledger.UserCreate{Surname: "L", Email: "a@x.com", Password: "12345678"}},
		{"Blank surname", ledger.UserCreate{Name: "A", Surname: "  ", Email: "a@x.com", Password: "12345678"}},
		{"No at", ledger.UserCreate{Name: "A", Surname: "L", Email: "ax.com", Password: "12345678"}},
		{"No domain", ledger.UserCreate{Name: "A", Surname: "L", Email: "a@", Password: "12345678"}},
		{"Short password", ledger.UserCreate{Name: "A", Surname: "L", Email: "a@x.com", Password: "1234567"}},
		{"Long password", ledger.UserCreate{Name: "A", Surname: "L", Email: "a@x.com", Password: string(bytes.Repeat([]byte("a"), 73))}},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			_, err := suite.ledger.Users.Register(suite.ctx, tt.in)
			suite.Assert().ErrorIs(err, models.ErrValidation)
		})
	}

	suite.Assert().Equal(int64(0), suite.count(&models.User{}, "1 = 1"))
}

func (suite *TestSuiteStandard) TestAuthenticate() {
	user := suite.createTestUser("ada@example.com")

	found, err := suite.ledger.Users.Authenticate(suite.ctx, "ADA@example.com", "correct horse")
	suite.Require().Nil(err)
	suite.Assert().Equal(user.ID, found.ID)

	_, err = suite.ledger.Users.Authenticate(suite.ctx, "ada@example.com", "wrong horse")
	suite.Assert().ErrorIs(err, models.ErrInvalidCredentials)

	_, err = suite.ledger.Users.Authenticate(suite.ctx, "bob@example.com", "correct horse")
	suite.Assert().ErrorIs(err, models.ErrInvalidCredentials)
}

func (suite *TestSuiteStandard) TestUserUpdate() {
	user := suite.createTestUser("ada@example.com")
	suite.createTestUser("bob@example.com")

	name := "Augusta"
	updated, err := suite.ledger.Users.Update(suite.ctx, user.ID, ledger.UserUpdate{Name: &name})
	suite.Require().Nil(err)
	suite.Assert().Equal("Augusta", updated.Name)
	suite.Assert().Equal("Lovelace", updated.Surname)
	suite.Assert().Equal(user.PasswordHash, updated.PasswordHash)

	taken := "BOB@example.com"
	_, err = suite.ledger.Users.Update(suite.ctx, user.ID, ledger.UserUpdate{Email: &taken})
	suite.Assert().ErrorIs(err, models.ErrEmailNotUnique)

	// Changing only the case keeps the email
	same := "ADA@example.com"
	_, err = suite.ledger.Users.Update(suite.ctx, user.ID, ledger.UserUpdate{Email: &same})
	suite.Assert().Nil(err)

	password := "a new password"
	_, err = suite.ledger.Users.Update(suite.ctx, user.ID, ledger.UserUpdate{Password: &password})
	suite.Require().Nil(err)

	_, err = suite.ledger.Users.Authenticate(suite.ctx, "ada@example.com", "correct horse")
	suite.Assert().ErrorIs(err, models.ErrInvalidCredentials)
	_, err = suite.ledger.Users.Authenticate(suite.ctx, "ada@example.com", "a new password")
	suite.Assert().Nil(err)

	_, err = suite.ledger.Users.Update(suite.ctx, uuid.New(), ledger.UserUpdate{Name: &name})
	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)
}

func (suite *TestSuiteStandard) TestSetRole() {
	user := suite.createTestUser("ada@example.com")

	admin, err := suite.ledger.Users.SetRole(suite.ctx, user.ID, models.RoleAdmin)
	suite.Require().Nil(err)
	suite.Assert().Equal(models.RoleAdmin, admin.Role)

	found, err := suite.ledger.Users.FindByEmail(suite.ctx, "ada@example.com")
	suite.Require().Nil(err)
	suite.Assert().Equal(models.RoleAdmin, found.Role)

	_, err = suite.ledger.Users.SetRole(suite.ctx, user.ID, "root")
	suite.Assert().ErrorIs(err, models.ErrValidation)
}

func (suite *TestSuiteStandard) TestUserReferences() {
	user := suite.createTestUser("ada@example.com")
	target := uuid.New()

	// Adding twice keeps a single entry
	suite.Require().Nil(suite.ledger.Users.AddExpense(suite.ctx, user.ID, target))
	suite.Require().Nil(suite.ledger.Users.AddExpense(suite.ctx, user.ID, target))

	refs, err := suite.ledger.Users.References(suite.ctx, user.ID)
	suite.Require().Nil(err)
	suite.Assert().Equal([]uuid.UUID{target}, refs.Expenses)

	suite.Require().Nil(suite.ledger.Users.RemoveExpense(suite.ctx, user.ID, target))
	suite.Require().Nil(suite.ledger.Users.RemoveExpense(suite.ctx, user.ID, target))

	refs, err = suite.ledger.Users.References(suite.ctx, user.ID)
	suite.Require().Nil(err)
	suite.Assert().Empty(refs.Expenses)

	suite.Assert().ErrorIs(suite.ledger.Users.AddAlert(suite.ctx, uuid.New(), target), models.ErrResourceNotFound)
	suite.Assert().ErrorIs(suite.ledger.Users.RemoveCategory(suite.ctx, uuid.New(), target), models.ErrResourceNotFound)
}

func (suite *TestSuiteStandard) TestUserDeleteCascade() {
	user := suite.createTestUser("ada@example.com")
	other := suite.createTestUser("bob@example.com")

	for _, owner := range []uuid.UUID{user.ID, other.ID} {
		suite.createTestCategory(owner, "Food", 100)
		suite.createTestCategory(owner, "Transport", 50)
		suite.createTestExpense(owner, "Food", "80", now)
		expense := suite.createTestExpense(owner, "Transport", "12.5", now)
		suite.createTestExpense(owner, "", "3", now)
		suite.createTestAlert(owner, "Food", "Food budget", "greater than", 50)
		suite.createTestAlert(owner, "", "Nothing uncategorized", "equal to", 0)

		_, err := suite.ledger.Expenses.Attach(suite.ctx, owner, expense.ID, "ticket.txt", "text/plain", bytes.NewBufferString("12.50"))
		suite.Require().Nil(err)
	}

	var categoryIDs []uuid.UUID
	suite.Require().Nil(suite.db.Model(&models.Category{}).Where("owner_id = ?", user.ID).Pluck("id", &categoryIDs).Error)

	deleted, err := suite.ledger.Users.Delete(suite.ctx, user.ID)
	suite.Require().Nil(err)
	suite.Assert().Equal(user.ID, deleted.ID)

	suite.Assert().Equal(int64(0), suite.count(&models.User{}, "id = ?", user.ID))
	suite.Assert().Equal(int64(0), suite.count(&models.Category{}, "owner_id = ?", user.ID))
	suite.Assert().Equal(int64(0), suite.count(&models.Expense{}, "owner_id = ?", user.ID))
	suite.Assert().Equal(int64(0), suite.count(&models.Alert{}, "owner_id = ?", user.ID))
	suite.Assert().Equal(int64(0), suite.count(&models.Reference{}, "owner_id = ?", user.ID))
	suite.Assert().Equal(int64(0), suite.count(&models.Reference{}, "owner_id IN ?", categoryIDs))

	// The other user is untouched
	suite.Assert().Equal(int64(3), suite.count(&models.Category{}, "owner_id = ?", other.ID))
	suite.Assert().Equal(int64(3), suite.count(&models.Expense{}, "owner_id = ?", other.ID))
	suite.Assert().Equal(int64(2), suite.count(&models.Alert{}, "owner_id = ?", other.ID))
	suite.Assert().Equal(int64(1), suite.count(&models.Attachment{}, "1 = 1"))

	// Only the attachment file of the other user is left
	files, err := os.ReadDir(suite.files)
	suite.Require().Nil(err)
	suite.Assert().Len(files, 1)

	var remaining models.Attachment
	suite.Require().Nil(suite.db.First(&remaining).Error)
	suite.Assert().FileExists(filepath.Join(suite.files, remaining.StorageLocation))

	_, err = suite.ledger.Users.Delete(suite.ctx, user.ID)
	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)
}

func (suite *TestSuiteStandard) TestFindAllUsers() {
	suite.createTestUser("carol@example.com")
	suite.createTestUser("ada@example.com")
	suite.createTestUser("bob@example.com")

	users, total, err := suite.ledger.Users.FindAll(suite.ctx, ledger.Page{Offset: 1, Limit: 1})
	suite.Require().Nil(err)
	suite.Assert().Equal(int64(3), total)
	suite.Require().Len(users, 1)
	suite.Assert().Equal("bob@example.com", users[0].Email)
}
