package models

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the owner of all other resources.
type User struct {
	DefaultModel
	Name         string `json:"name" example:"Ada"`
	Surname      string `json:"surname" example:"Lovelace"`
	Email        string `json:"email" gorm:"uniqueIndex:user_email" example:"ada@example.com"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role" gorm:"default:user" example:"user"`
}

// NormalizeEmail returns the form in which emails are stored and compared.
func NormalizeEmail(email string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(email))
}

func (u *User) BeforeSave(_ *gorm.DB) error {
	u.Name = strings.TrimSpace(u.Name)
	u.Surname = strings.TrimSpace(u.Surname)
	u.Email = NormalizeEmail(u.Email)

	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}
