package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tally-ledger/backend/internal/types"
	"gorm.io/gorm"
)

// Expense is a single amount spent on a date, attributed to one category.
type Expense struct {
	DefaultModel
	OwnerID    uuid.UUID           `json:"ownerId" gorm:"index" example:"52d967d3-33f4-4b04-9ba7-772e5ab9d0ce"`
	Owner      User                `json:"-"`
	CategoryID uuid.UUID           `json:"categoryId" gorm:"index" example:"9e0f3b1a-2b3c-4d5e-8f90-1a2b3c4d5e6f"`
	Category   Category            `json:"-"`
	Concept    string              `json:"concept" example:"Groceries"`
	Amount     types.Decimal       `json:"amount" example:"25.5" swaggertype:"number"`
	Date       time.Time           `json:"date" example:"2024-03-14T12:00:00Z"`
	Attachment *AttachmentSnapshot `json:"attachment" gorm:"serializer:json"` // Copy of the attachment metadata taken when the file was uploaded
}

// AttachmentSnapshot is the attachment metadata stored on the expense itself.
type AttachmentSnapshot struct {
	ID          uuid.UUID `json:"id"`
	FileName    string    `json:"fileName" example:"receipt.pdf"`
	ContentType string    `json:"contentType" example:"application/pdf"`
	Size        int64     `json:"size" example:"20480"`
}

func (e *Expense) BeforeSave(_ *gorm.DB) error {
	e.Concept = strings.TrimSpace(e.Concept)
	e.Date = e.Date.In(time.UTC)
	return nil
}

func (e *Expense) AfterFind(tx *gorm.DB) error {
	e.Date = e.Date.In(time.UTC)
	return e.DefaultModel.AfterFind(tx)
}
