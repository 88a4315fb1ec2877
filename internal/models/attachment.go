package models

import (
	"github.com/google/uuid"
)

// Attachment is a file uploaded for an expense. The bytes live in the
// attachment store under StorageLocation.
type Attachment struct {
	DefaultModel
	ExpenseID       uuid.UUID `json:"expenseId" gorm:"uniqueIndex:attachment_expense"`
	Expense         Expense   `json:"-"`
	FileName        string    `json:"fileName" example:"receipt.pdf"`
	ContentType     string    `json:"contentType" example:"application/pdf"`
	Size            int64     `json:"size" example:"20480"`
	StorageLocation string    `json:"-"`
}

// Snapshot returns the metadata that is copied onto the expense.
func (a Attachment) Snapshot() *AttachmentSnapshot {
	return &AttachmentSnapshot{
		ID:          a.ID,
		FileName:    a.FileName,
		ContentType: a.ContentType,
		Size:        a.Size,
	}
}
