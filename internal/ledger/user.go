package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tally-ledger/backend/internal/auth"
	"github.com/tally-ledger/backend/internal/models"
	"golang.org/x/exp/slices"
)

// Users manages users and owns the lists of their resources.
type Users struct {
	l          *Ledger
	categories *Categories
}

type UserCreate struct {
	Name     string
	Surname  string
	Email    string
	Password string
}

type UserUpdate struct {
	Name     *string
	Surname  *string
	Email    *string
	Password *string
}

// UserReferences are the resource lists of a user in the order the
// resources were added.
type UserReferences struct {
	Categories []uuid.UUID `json:"categories"`
	Expenses   []uuid.UUID `json:"expenses"`
	Alerts     []uuid.UUID `json:"alerts"`
}

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt ignores everything after
)

var roles = []models.Role{models.RoleUser, models.RoleAdmin}

func validateName(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s must not be empty", models.ErrValidation, field)
	}
	return nil
}

func validateEmail(email string) error {
	local, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || local == "" || domain == "" {
		return fmt.Errorf("%w: email is not a valid address", models.ErrValidation)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return fmt.Errorf("%w: password must be between %d and %d characters", models.ErrValidation, minPasswordLength, maxPasswordLength)
	}
	return nil
}

// Register creates a user together with its uncategorized category.
func (m *Users) Register(ctx context.Context, in UserCreate) (models.User, error) {
	err := errors.Join(
		validateName("name", in.Name),
		validateName("surname", in.Surname),
		validateEmail(in.Email),
		validatePassword(in.Password),
	)
	if err != nil {
		return models.User{}, err
	}

	hash, err := auth.HashPassword(in.Password, m.l.passwordCost)
	if err != nil {
		return models.User{}, storageFailure(err)
	}

	user := models.User{
		Name:         in.Name,
		Surname:      in.Surname,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}

	err = m.l.run(ctx, func(u *unit) error {
		if err := emailAvailable(u, in.Email, uuid.Nil); err != nil {
			return err
		}

		if err := u.tx.Create(&user).Error; err != nil {
			return err
		}

		category, err := m.categories.createUncategorized(u, user.ID)
		if err != nil {
			return err
		}

		return push(u, user.ID, models.UserCategories, category.ID)
	})
	if err != nil {
		return models.User{}, err
	}

	log.Info().Str("user", user.ID.String()).Msg("Registered")
	return user, nil
}

// emailAvailable checks that no user other than except uses the email.
// The unique index catches races, this check gives the better error.
func emailAvailable(u *unit, email string, except uuid.UUID) error {
	var count int64
	err := u.tx.
		Model(&models.User{}).
		Where("email = ? AND id <> ?", models.NormalizeEmail(email), except).
		Count(&count).
		Error
	if err != nil {
		return err
	}

	if count > 0 {
		return models.ErrEmailNotUnique
	}
	return nil
}

// Authenticate returns the user with the email if the password matches.
func (m *Users) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	user, err := m.FindByEmail(ctx, email)
	if errors.Is(err, models.ErrResourceNotFound) {
		return models.User{}, models.ErrInvalidCredentials
	} else if err != nil {
		return models.User{}, err
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return models.User{}, models.ErrInvalidCredentials
	}

	return user, nil
}

// Update changes the given fields. A new password is hashed before it is
// stored.
func (m *Users) Update(ctx context.Context, id uuid.UUID, in UserUpdate) (models.User, error) {
	var errs []error
	if in.Name != nil {
		errs = append(errs, validateName("name", *in.Name))
	}
	if in.Surname != nil {
		errs = append(errs, validateName("surname", *in.Surname))
	}
	if in.Email != nil {
		errs = append(errs, validateEmail(*in.Email))
	}
	if in.Password != nil {
		errs = append(errs, validatePassword(*in.Password))
	}
	if err := errors.Join(errs...); err != nil {
		return models.User{}, err
	}

	var hash string
	if in.Password != nil {
		h, err := auth.HashPassword(*in.Password, m.l.passwordCost)
		if err != nil {
			return models.User{}, storageFailure(err)
		}
		hash = h
	}

	var user models.User
	err := m.l.run(ctx, func(u *unit) error {
		if err := u.forUpdate().First(&user, "id = ?", id).Error; err != nil {
			return err
		}

		if in.Email != nil && models.NormalizeEmail(*in.Email) != user.Email {
			if err := emailAvailable(u, *in.Email, user.ID); err != nil {
				return err
			}
			user.Email = *in.Email
		}
		if in.Name != nil {
			user.Name = *in.Name
		}
		if in.Surname != nil {
			user.Surname = *in.Surname
		}
		if hash != "" {
			user.PasswordHash = hash
		}

		return u.tx.Model(&user).Select("Name", "Surname", "Email", "PasswordHash").Updates(&user).Error
	})
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

// SetRole changes the role of a user.
func (m *Users) SetRole(ctx context.Context, id uuid.UUID, role models.Role) (models.User, error) {
	if !slices.Contains(roles, role) {
		return models.User{}, fmt.Errorf("%w: role must be one of %v", models.ErrValidation, roles)
	}

	var user models.User
	err := m.l.run(ctx, func(u *unit) error {
		if err := u.forUpdate().First(&user, "id = ?", id).Error; err != nil {
			return err
		}

		user.Role = role
		return u.tx.Model(&user).Update("role", role).Error
	})
	if err != nil {
		return models.User{}, err
	}

	log.Info().Str("user", user.ID.String()).Str("role", string(role)).Msg("Role changed")
	return user, nil
}

// Delete deletes a user and everything the user owns.
func (m *Users) Delete(ctx context.Context, id uuid.UUID) (models.User, error) {
	var user models.User
	err := m.l.run(ctx, func(u *unit) error {
		if err := u.tx.First(&user, "id = ?", id).Error; err != nil {
			return err
		}

		// The user row is locked last, new expenses hold a key share lock
		// on it while their category is locked
		removed, err := m.categories.deleteAllForUser(u, user.ID)
		if err != nil {
			return err
		}

		if err := dropReferences(u, user.ID); err != nil {
			return err
		}

		log.Info().
			Str("user", user.ID.String()).
			Int("categories", removed.categories).
			Int("expenses", removed.expenses).
			Int("alerts", removed.alerts).
			Msg("Deleting user")

		return u.tx.Delete(&user).Error
	})
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (m *Users) FindByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	var user models.User
	err := m.l.read(ctx).First(&user, "id = ?", id).Error
	return user, classify(err)
}

func (m *Users) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := m.l.read(ctx).First(&user, "email = ?", models.NormalizeEmail(email)).Error
	return user, classify(err)
}

// FindAll returns all users sorted by email.
func (m *Users) FindAll(ctx context.Context, page Page) ([]models.User, int64, error) {
	q := m.l.read(ctx).Model(&models.User{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, classify(err)
	}

	users := []models.User{}
	err := page.apply(q.Order("email ASC")).Find(&users).Error
	return users, total, classify(err)
}

// References returns the resource lists of the user.
func (m *Users) References(ctx context.Context, id uuid.UUID) (UserReferences, error) {
	if _, err := m.FindByID(ctx, id); err != nil {
		return UserReferences{}, err
	}

	db := m.l.read(ctx)
	var refs UserReferences
	var err error

	if refs.Categories, err = references(db, id, models.UserCategories); err != nil {
		return UserReferences{}, classify(err)
	}
	if refs.Expenses, err = references(db, id, models.UserExpenses); err != nil {
		return UserReferences{}, classify(err)
	}
	if refs.Alerts, err = references(db, id, models.UserAlerts); err != nil {
		return UserReferences{}, classify(err)
	}

	return refs, nil
}

func (m *Users) AddCategory(ctx context.Context, userID, categoryID uuid.UUID) error {
	return m.link(ctx, userID, models.UserCategories, categoryID)
}

func (m *Users) AddExpense(ctx context.Context, userID, expenseID uuid.UUID) error {
	return m.link(ctx, userID, models.UserExpenses, expenseID)
}

func (m *Users) AddAlert(ctx context.Context, userID, alertID uuid.UUID) error {
	return m.link(ctx, userID, models.UserAlerts, alertID)
}

func (m *Users) RemoveCategory(ctx context.Context, userID, categoryID uuid.UUID) error {
	return m.unlink(ctx, userID, models.UserCategories, categoryID)
}

func (m *Users) RemoveExpense(ctx context.Context, userID, expenseID uuid.UUID) error {
	return m.unlink(ctx, userID, models.UserExpenses, expenseID)
}

func (m *Users) RemoveAlert(ctx context.Context, userID, alertID uuid.UUID) error {
	return m.unlink(ctx, userID, models.UserAlerts, alertID)
}

func (m *Users) link(ctx context.Context, userID uuid.UUID, kind models.ReferenceKind, target uuid.UUID) error {
	return m.l.run(ctx, func(u *unit) error {
		return linkUser(u, userID, kind, target)
	})
}

func (m *Users) unlink(ctx context.Context, userID uuid.UUID, kind models.ReferenceKind, target uuid.UUID) error {
	return m.l.run(ctx, func(u *unit) error {
		if err := userExists(u, userID); err != nil {
			return err
		}
		return pull(u, userID, kind, target)
	})
}

// linkUser appends targets to a list of the user.
func linkUser(u *unit, userID uuid.UUID, kind models.ReferenceKind, targets ...uuid.UUID) error {
	if err := userExists(u, userID); err != nil {
		return err
	}
	return push(u, userID, kind, targets...)
}

func userExists(u *unit, id uuid.UUID) error {
	var user models.User
	return u.tx.Select("id").First(&user, "id = ?", id).Error
}
