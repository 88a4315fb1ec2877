package v1

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/tally-ledger/backend/internal/httputil"
	"github.com/tally-ledger/backend/internal/ledger"
	"github.com/tally-ledger/backend/internal/models"
)

// CategoryEditable represents all user configurable parameters
type CategoryEditable struct {
	Name     string          `json:"name" binding:"required" example:"Food"`      // Name of the category, unique per user
	MinValue decimal.Decimal `json:"minValue" example:"0" swaggertype:"number"`   // Lower bound of the spending band
	MaxValue decimal.Decimal `json:"maxValue" example:"300" swaggertype:"number"` // Upper bound of the spending band
}

func (editable CategoryEditable) model() ledger.CategoryCreate {
	return ledger.CategoryCreate{
		Name:     editable.Name,
		MinValue: editable.MinValue,
		MaxValue: editable.MaxValue,
	}
}

// CategoryPatch contains the fields of a category that can be updated.
type CategoryPatch struct {
	Name     *string          `json:"name" example:"Groceries"`
	MinValue *decimal.Decimal `json:"minValue" example:"50" swaggertype:"number"`
	MaxValue *decimal.Decimal `json:"maxValue" example:"250" swaggertype:"number"`
}

func (p CategoryPatch) model() ledger.CategoryUpdate {
	return ledger.CategoryUpdate{
		Name:     p.Name,
		MinValue: p.MinValue,
		MaxValue: p.MaxValue,
	}
}

type CategoryLinks struct {
	Self     string `json:"self" example:"https://example.com/api/v1/categories/3b1ea324-d438-4419-882a-2fc91d71772f"`              // The category itself
	Expenses string `json:"expenses" example:"https://example.com/api/v1/categories/3b1ea324-d438-4419-882a-2fc91d71772f/expenses"` // Expenses in this category
	Alerts   string `json:"alerts" example:"https://example.com/api/v1/alerts?category=3b1ea324-d438-4419-882a-2fc91d71772f"`       // Alerts watching this category
}

type Category struct {
	models.Category
	Links CategoryLinks `json:"links"`
}

func newCategory(c *gin.Context, model models.Category) Category {
	url := c.GetString(httputil.ContextURL)

	return Category{
		Category: model,
		Links: CategoryLinks{
			Self:     fmt.Sprintf("%s/v1/categories/%s", url, model.ID),
			Expenses: fmt.Sprintf("%s/v1/categories/%s/expenses", url, model.ID),
			Alerts:   fmt.Sprintf("%s/v1/alerts?category=%s", url, model.ID),
		},
	}
}

type CategoryListResponse struct {
	Data       []Category  `json:"data"`                                                          // List of categories
	Error      *string     `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination `json:"pagination"`                                                    // Pagination information
}

type CategoryCreateResponse struct {
	Data  []CategoryResponse `json:"data"`                                                          // List of the created categories or their respective error
	Error *string            `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

func (c *CategoryCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	c.Data = append(c.Data, CategoryResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type CategoryResponse struct {
	Data  *Category `json:"data"`                                                          // Data for the category
	Error *string   `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type CategoryQueryFilter struct {
	PageQuery
}
