package v1

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/tally-ledger/backend/internal/httputil"
	"github.com/tally-ledger/backend/internal/ledger"
	"github.com/tally-ledger/backend/internal/models"
	tally_uuid "github.com/tally-ledger/backend/internal/uuid"
)

// ExpenseEditable represents all user configurable parameters
type ExpenseEditable struct {
	Concept  string          `json:"concept" binding:"required" example:"Groceries"`
	Amount   decimal.Decimal `json:"amount" example:"25.5" swaggertype:"number"`
	Date     time.Time       `json:"date" example:"2024-03-14T12:00:00Z"` // Defaults to the time of the request
	Category string          `json:"category" example:"Food"`             // Name of the category. The uncategorized category is used if empty.
}

func (editable ExpenseEditable) model() ledger.ExpenseCreate {
	return ledger.ExpenseCreate{
		Concept:  editable.Concept,
		Amount:   editable.Amount,
		Date:     editable.Date,
		Category: editable.Category,
	}
}

// ExpensePatch contains the fields of an expense that can be updated.
type ExpensePatch struct {
	Concept  *string          `json:"concept" example:"Groceries"`
	Amount   *decimal.Decimal `json:"amount" example:"27" swaggertype:"number"`
	Date     *time.Time       `json:"date" example:"2024-03-15T12:00:00Z"`
	Category *string          `json:"category" example:"Food"`
}

func (p ExpensePatch) model() ledger.ExpenseUpdate {
	return ledger.ExpenseUpdate{
		Concept:  p.Concept,
		Amount:   p.Amount,
		Date:     p.Date,
		Category: p.Category,
	}
}

type ExpenseLinks struct {
	Self       string `json:"self" example:"https://example.com/api/v1/expenses/ae0d5a4e-8a8b-4e0c-9f3b-0c6d1f2a3b4c"`
	Category   string `json:"category" example:"https://example.com/api/v1/categories/3b1ea324-d438-4419-882a-2fc91d71772f"`
	Attachment string `json:"attachment" example:"https://example.com/api/v1/expenses/ae0d5a4e-8a8b-4e0c-9f3b-0c6d1f2a3b4c/attachment"`
}

type Expense struct {
	models.Expense
	Links ExpenseLinks `json:"links"`
}

func newExpense(c *gin.Context, model models.Expense) Expense {
	url := c.GetString(httputil.ContextURL)

	return Expense{
		Expense: model,
		Links: ExpenseLinks{
			Self:       fmt.Sprintf("%s/v1/expenses/%s", url, model.ID),
			Category:   fmt.Sprintf("%s/v1/categories/%s", url, model.CategoryID),
			Attachment: fmt.Sprintf("%s/v1/expenses/%s/attachment", url, model.ID),
		},
	}
}

type ExpenseListResponse struct {
	Data       []Expense   `json:"data"`                                                          // List of expenses
	Error      *string     `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination `json:"pagination"`                                                    // Pagination information
}

type ExpenseCreateResponse struct {
	Data  []ExpenseResponse `json:"data"`                                                          // List of the created expenses or their respective error
	Error *string           `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

func (e *ExpenseCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	e.Data = append(e.Data, ExpenseResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type ExpenseResponse struct {
	Data  *Expense `json:"data"`                                                          // Data for the expense
	Error *string  `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type ExpenseQueryFilter struct {
	Category  tally_uuid.UUID `form:"category"`                                        // By ID of the category
	Concept   string          `form:"concept"`                                         // Glob pattern for the concept, e.g. "coffee*"
	FromDate  time.Time       `form:"fromDate" time_format:"2006-01-02" time_utc:"1"`  // Expenses on or after this date
	UntilDate time.Time       `form:"untilDate" time_format:"2006-01-02" time_utc:"1"` // Expenses before this date
	PageQuery
}

func (f ExpenseQueryFilter) model(c *gin.Context) (ledger.ExpenseFilter, error) {
	if !f.FromDate.IsZero() && !f.UntilDate.IsZero() && !f.FromDate.Before(f.UntilDate) {
		return ledger.ExpenseFilter{}, errInvalidDateSpan
	}

	return ledger.ExpenseFilter{
		CategoryID: f.Category.UUID,
		Concept:    f.Concept,
		FromDate:   f.FromDate,
		UntilDate:  f.UntilDate,
		Page:       f.page(c.Request.URL),
	}, nil
}
