package models

import "github.com/google/uuid"

// ReferenceKind names one of the id lists a user or a category holds.
type ReferenceKind string

const (
	UserCategories   ReferenceKind = "user.categories"
	UserExpenses     ReferenceKind = "user.expenses"
	UserAlerts       ReferenceKind = "user.alerts"
	CategoryExpenses ReferenceKind = "category.expenses"
	CategoryAlerts   ReferenceKind = "category.alerts"
)

// Reference is one entry of an ordered id list. The list order is the
// order in which entries were added.
type Reference struct {
	ID       uint          `gorm:"primaryKey;autoIncrement"`
	OwnerID  uuid.UUID     `gorm:"uniqueIndex:reference_owner_kind_target"`
	Kind     ReferenceKind `gorm:"uniqueIndex:reference_owner_kind_target"`
	TargetID uuid.UUID     `gorm:"uniqueIndex:reference_owner_kind_target;index"`
}
