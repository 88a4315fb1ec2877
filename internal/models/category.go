package models

import (
	"strings"

	"github.com/google/uuid"
	"github.com/tally-ledger/backend/internal/types"
	"gorm.io/gorm"
)

// UncategorizedName is the name of the category every user owns from
// registration on.
const UncategorizedName = "uncategorized"

// Category groups expenses and keeps their running total for the current month.
type Category struct {
	DefaultModel
	OwnerID       uuid.UUID     `json:"ownerId" gorm:"uniqueIndex:category_owner_name" example:"52d967d3-33f4-4b04-9ba7-772e5ab9d0ce"` // ID of the user owning the category
	Owner         User          `json:"-"`
	Name          string        `json:"name" gorm:"uniqueIndex:category_owner_name" example:"Food"` // Name of the category, unique per user
	MinValue      types.Decimal `json:"minValue" example:"0" swaggertype:"number"`                  // Lower bound of the spending band
	MaxValue      types.Decimal `json:"maxValue" example:"300" swaggertype:"number"`                // Upper bound of the spending band
	CurrentValue  types.Decimal `json:"currentValue" example:"105.5" swaggertype:"number"`
	Uncategorized bool          `json:"uncategorized" example:"false"` // Set for the category expenses fall back to
}

func (c *Category) BeforeSave(_ *gorm.DB) error {
	c.Name = strings.TrimSpace(c.Name)
	return nil
}
