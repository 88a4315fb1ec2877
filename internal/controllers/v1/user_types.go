package v1

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tally-ledger/backend/internal/httputil"
	"github.com/tally-ledger/backend/internal/ledger"
	"github.com/tally-ledger/backend/internal/models"
)

// UserEditable contains the data needed to register
type UserEditable struct {
	Name     string `json:"name" example:"Ada"`
	Surname  string `json:"surname" example:"Lovelace"`
	Email    string `json:"email" binding:"required" example:"ada@example.com"`
	Password string `json:"password" binding:"required" example:"correct horse battery staple"` // Between 8 and 72 characters
}

func (editable UserEditable) model() ledger.UserCreate {
	return ledger.UserCreate{
		Name:     editable.Name,
		Surname:  editable.Surname,
		Email:    editable.Email,
		Password: editable.Password,
	}
}

// UserPatch contains the fields of a user that can be updated. Fields
// that are not sent stay unchanged.
type UserPatch struct {
	Name     *string `json:"name" example:"Ada"`
	Surname  *string `json:"surname" example:"King"`
	Email    *string `json:"email" example:"ada.king@example.com"`
	Password *string `json:"password" example:"another horse battery staple"`
}

func (p UserPatch) model() ledger.UserUpdate {
	return ledger.UserUpdate{
		Name:     p.Name,
		Surname:  p.Surname,
		Email:    p.Email,
		Password: p.Password,
	}
}

type UserLinks struct {
	Self       string `json:"self" example:"https://example.com/api/v1/users/me"`
	Categories string `json:"categories" example:"https://example.com/api/v1/categories"`
	Expenses   string `json:"expenses" example:"https://example.com/api/v1/expenses"`
	Alerts     string `json:"alerts" example:"https://example.com/api/v1/alerts"`
}

type User struct {
	models.User
	Links      *UserLinks             `json:"links,omitempty"`      // Only set for the authenticated user
	References *ledger.UserReferences `json:"references,omitempty"` // IDs of the resources of the user, in the order they were added
}

// newUser returns the API representation of the authenticated user.
func newUser(c *gin.Context, model models.User, refs ledger.UserReferences) User {
	url := c.GetString(httputil.ContextURL)

	return User{
		User: model,
		Links: &UserLinks{
			Self:       fmt.Sprintf("%s/v1/users/me", url),
			Categories: fmt.Sprintf("%s/v1/categories", url),
			Expenses:   fmt.Sprintf("%s/v1/expenses", url),
			Alerts:     fmt.Sprintf("%s/v1/alerts", url),
		},
		References: &refs,
	}
}

type UserResponse struct {
	Data  *User   `json:"data"`                                                          // Data for the user
	Error *string `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type UserListResponse struct {
	Data       []User      `json:"data"`                                                          // List of users
	Error      *string     `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination `json:"pagination"`                                                    // Pagination information
}

type UserQueryFilter struct {
	PageQuery
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"ada@example.com"`
	Password string `json:"password" binding:"required" example:"correct horse battery staple"`
}

type Login struct {
	Token     string    `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."` // Bearer token for the Authorization header
	ExpiresAt time.Time `json:"expiresAt" example:"2024-03-16T12:00:00Z"`                // Time the token expires
	User      User      `json:"user"`
}

type LoginResponse struct {
	Data  *Login  `json:"data"`
	Error *string `json:"error" example:"email or password is not correct"` // The error, if any occurred
}
