package v1

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/tally-ledger/backend/internal/httputil"
	"github.com/tally-ledger/backend/internal/ledger"
	"github.com/tally-ledger/backend/internal/models"
	tally_uuid "github.com/tally-ledger/backend/internal/uuid"
)

// AlertEditable represents all user configurable parameters
type AlertEditable struct {
	Category  string          `json:"category" example:"Food"` // Name of the watched category. The uncategorized category is used if empty.
	Name      string          `json:"name" binding:"required" example:"Food budget exceeded"`
	Condition string          `json:"condition" binding:"required" example:"greater than" enums:"greater than,less than,equal to"`
	Amount    decimal.Decimal `json:"amount" example:"100" swaggertype:"number"`
	Message   string          `json:"message" example:"You spent more than planned on food"`
}

func (editable AlertEditable) model() ledger.AlertCreate {
	return ledger.AlertCreate{
		Category:  editable.Category,
		Name:      editable.Name,
		Condition: editable.Condition,
		Amount:    editable.Amount,
		Message:   editable.Message,
	}
}

// AlertPatch contains the fields of an alert that can be updated. The
// alert is evaluated again after every update.
type AlertPatch struct {
	Category  *string          `json:"category" example:"Groceries"`
	Name      *string          `json:"name" example:"Groceries budget exceeded"`
	Condition *string          `json:"condition" example:"greater than"`
	Amount    *decimal.Decimal `json:"amount" example:"120" swaggertype:"number"`
	Message   *string          `json:"message" example:"Slow down on groceries"`
}

func (p AlertPatch) model() ledger.AlertUpdate {
	return ledger.AlertUpdate{
		Category:  p.Category,
		Name:      p.Name,
		Condition: p.Condition,
		Amount:    p.Amount,
		Message:   p.Message,
	}
}

type AlertLinks struct {
	Self     string `json:"self" example:"https://example.com/api/v1/alerts/1e0a5a4e-8a8b-4e0c-9f3b-0c6d1f2a3b4c"`
	Category string `json:"category" example:"https://example.com/api/v1/categories/3b1ea324-d438-4419-882a-2fc91d71772f"`
}

type Alert struct {
	models.Alert
	Links AlertLinks `json:"links"`
}

func newAlert(c *gin.Context, model models.Alert) Alert {
	url := c.GetString(httputil.ContextURL)

	return Alert{
		Alert: model,
		Links: AlertLinks{
			Self:     fmt.Sprintf("%s/v1/alerts/%s", url, model.ID),
			Category: fmt.Sprintf("%s/v1/categories/%s", url, model.CategoryID),
		},
	}
}

type AlertListResponse struct {
	Data       []Alert     `json:"data"`                                                          // List of alerts
	Error      *string     `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination `json:"pagination"`                                                    // Pagination information
}

type AlertCreateResponse struct {
	Data  []AlertResponse `json:"data"`                                                          // List of the created alerts or their respective error
	Error *string         `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

func (a *AlertCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	a.Data = append(a.Data, AlertResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type AlertResponse struct {
	Data  *Alert  `json:"data"`                                                          // Data for the alert
	Error *string `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type AlertQueryFilter struct {
	Category tally_uuid.UUID `form:"category"` // By ID of the watched category
	Status   string          `form:"status"`   // By status, "Active" or "Triggered"
	PageQuery
}

func (f AlertQueryFilter) model(c *gin.Context) (ledger.AlertFilter, error) {
	s := models.AlertStatus(f.Status)
	if s != "" && s != models.AlertActive && s != models.AlertTriggered {
		return ledger.AlertFilter{}, errInvalidStatus
	}

	return ledger.AlertFilter{
		CategoryID: f.Category.UUID,
		Status:     s,
		Page:       f.page(c.Request.URL),
	}, nil
}
