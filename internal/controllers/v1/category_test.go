package v1_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	v1 "github.com/tally-ledger/backend/internal/controllers/v1"
	"github.com/tally-ledger/backend/internal/models"
	"github.com/tally-ledger/backend/test"
)

func (suite *TestSuiteStandard) createCategory(t *testing.T, token string, c v1.CategoryEditable, expectedStatus ...int) v1.CategoryResponse {
	if c.Name == "" {
		c.Name = uuid.NewString()
	}

	// Default to 201 Created as expected status
	if len(expectedStatus) == 0 {
		expectedStatus = append(expectedStatus, http.StatusCreated)
	}

	r := suite.request(t, http.MethodPost, "/v1/categories", token, []v1.CategoryEditable{c})
	test.AssertHTTPStatus(t, &r, expectedStatus...)

	var response v1.CategoryCreateResponse
	test.DecodeResponse(t, &r, &response)

	if r.Code == http.StatusCreated {
		return response.Data[0]
	}

	return v1.CategoryResponse{}
}

// getCategory reads the category directly from the API.
func (suite *TestSuiteStandard) getCategory(t *testing.T, token string, id uuid.UUID) v1.Category {
	r := suite.request(t, http.MethodGet, fmt.Sprintf("/v1/categories/%s", id), token, nil)
	test.AssertHTTPStatus(t, &r, http.StatusOK)

	var response v1.CategoryResponse
	test.DecodeResponse(t, &r, &response)
	return *response.Data
}

// TestCategoriesDBClosed verifies that errors are processed correctly when
// the database is closed.
func (suite *TestSuiteStandard) TestCategoriesDBClosed() {
	token := suite.registerUser(suite.T(), "ada@example.com")
	suite.CloseDB()

	r := suite.request(suite.T(), http.MethodGet, "/v1/categories", token, nil)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusInternalServerError)

	var response v1.CategoryListResponse
	test.DecodeResponse(suite.T(), &r, &response)
	assert.Contains(suite.T(), *response.Error, models.ErrGeneral.Error())

	suite.createCategory(suite.T(), token, v1.CategoryEditable{}, http.StatusInternalServerError)
}

func (suite *TestSuiteStandard) TestCategoriesCreate() {
	token := suite.registerUser(suite.T(), "ada@example.com")
	suite.createCategory(suite.T(), token, v1.CategoryEditable{Name: "Food"})

	tests := []struct {
		name     string
		editable v1.CategoryEditable
		status   int
	}{
		{"Valid", v1.CategoryEditable{Name: "Rent", MinValue: decimal.NewFromInt(500), MaxValue: decimal.NewFromInt(900)}, http.StatusCreated},
		{"Duplicate name", v1.CategoryEditable{Name: "Food"}, http.StatusConflict},
		{"Reserved name", v1.CategoryEditable{Name: models.UncategorizedName}, http.StatusBadRequest},
		{"Bounds swapped", v1.CategoryEditable{Name: "Travel", MinValue: decimal.NewFromInt(10), MaxValue: decimal.NewFromInt(5)}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			c := suite.createCategory(t, token, tt.editable, tt.status)
			if tt.status == http.StatusCreated {
				assert.Equal(t, tt.editable.Name, c.Data.Name)
				assert.True(t, c.Data.CurrentValue.IsZero())
				assert.Equal(t, fmt.Sprintf("http://example.com/v1/categories/%s", c.Data.ID), c.Data.Links.Self)
			}
		})
	}
}

// TestCategoriesCreateMixed verifies that the response status is the highest
// status of all creations and that valid categories are still created.
func (suite *TestSuiteStandard) TestCategoriesCreateMixed() {
	token := suite.registerUser(suite.T(), "ada@example.com")

	r := suite.request(suite.T(), http.MethodPost, "/v1/categories", token, []v1.CategoryEditable{
		{Name: "Food"},
		{Name: "Food"},
	})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusConflict)

	var response v1.CategoryCreateResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Require().Len(response.Data, 2)
	assert.Equal(suite.T(), "Food", response.Data[0].Data.Name)
	assert.NotNil(suite.T(), response.Data[1].Error)
}

func (suite *TestSuiteStandard) TestCategoriesIsolation() {
	ada := suite.registerUser(suite.T(), "ada@example.com")
	bob := suite.registerUser(suite.T(), "bob@example.com")

	c := suite.createCategory(suite.T(), ada, v1.CategoryEditable{Name: "Food"})

	// Names are unique per user only
	suite.createCategory(suite.T(), bob, v1.CategoryEditable{Name: "Food"})

	// Other users cannot see the category
	r := suite.request(suite.T(), http.MethodGet, fmt.Sprintf("/v1/categories/%s", c.Data.ID), bob, nil)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNotFound)

	r = suite.request(suite.T(), http.MethodDelete, fmt.Sprintf("/v1/categories/%s", c.Data.ID), bob, nil)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNotFound)
}

func (suite *TestSuiteStandard) TestCategoriesList() {
	token := suite.registerUser(suite.T(), "ada@example.com")
	suite.createCategory(suite.T(), token, v1.CategoryEditable{Name: "Food"})
	suite.createCategory(suite.T(), token, v1.CategoryEditable{Name: "Rent"})

	tests := []struct {
		name   string
		query  string
		names  []string
		limit  int
		offset uint
	}{
		{"All", "", []string{"Food", "Rent", models.UncategorizedName}, 50, 0},
		{"Limit", "?limit=1", []string{"Food"}, 1, 0},
		{"Offset", "?offset=1&limit=1", []string{"Rent"}, 1, 1},
		{"Unlimited", "?limit=-1", []string{"Food", "Rent", models.UncategorizedName}, -1, 0},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := suite.request(t, http.MethodGet, "/v1/categories"+tt.query, token, nil)
			test.AssertHTTPStatus(t, &r, http.StatusOK)

			var response v1.CategoryListResponse
			test.DecodeResponse(t, &r, &response)

			names := make([]string, 0, len(response.Data))
			for _, c := range response.Data {
				names = append(names, c.Name)
			}
			assert.Equal(t, tt.names, names)
			assert.Equal(t, int64(3), response.Pagination.Total)
			assert.Equal(t, tt.limit, response.Pagination.Limit)
			assert.Equal(t, tt.offset, response.Pagination.Offset)
		})
	}
}

func (suite *TestSuiteStandard) TestCategoriesOptions() {
	token := suite.registerUser(suite.T(), "ada@example.com")

	tests := []struct {
		name   string
		id     string
		status int
	}{
		{"No Category with this ID", uuid.New().String(), http.StatusNotFound},
		{"Not a valid UUID", "NotParseableAsUUID", http.StatusBadRequest},
		{"Category exists", suite.createCategory(suite.T(), token, v1.CategoryEditable{}).Data.ID.String(), http.StatusNoContent},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := suite.request(t, http.MethodOptions, fmt.Sprintf("/v1/categories/%s", tt.id), token, nil)
			test.AssertHTTPStatus(t, &r, tt.status)

			if tt.status == http.StatusNoContent {
				assert.Equal(t, "OPTIONS, GET, PATCH, DELETE", r.Header().Get("allow"))
			}
		})
	}

	r := suite.request(suite.T(), http.MethodOptions, "/v1/categories", "", nil)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNoContent)
	assert.Equal(suite.T(), "OPTIONS, GET, POST", r.Header().Get("allow"))
}

func (suite *TestSuiteStandard) TestCategoriesUpdate() {
	token := suite.registerUser(suite.T(), "ada@example.com")
	c := suite.createCategory(suite.T(), token, v1.CategoryEditable{Name: "Food", MaxValue: decimal.NewFromInt(300)})
	suite.createCategory(suite.T(), token, v1.CategoryEditable{Name: "Rent"})

	path := fmt.Sprintf("/v1/categories/%s", c.Data.ID)

	name := "Groceries"
	r := suite.request(suite.T(), http.MethodPatch, path, token, v1.CategoryPatch{Name: &name})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.CategoryResponse
	test.DecodeResponse(suite.T(), &r, &response)
	assert.Equal(suite.T(), "Groceries", response.Data.Name)
	assert.True(suite.T(), decimal.NewFromInt(300).Equal(response.Data.MaxValue.Decimal), "MaxValue must be unchanged")

	tests := []struct {
		name   string
		patch  any
		status int
	}{
		{"Duplicate name", v1.CategoryPatch{Name: ptr("Rent")}, http.StatusConflict},
		{"Min above max", v1.CategoryPatch{MinValue: ptr(decimal.NewFromInt(400))}, http.StatusBadRequest},
		{"Broken body", `{"name": 3}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := suite.request(t, http.MethodPatch, path, token, tt.patch)
			test.AssertHTTPStatus(t, &r, tt.status)
		})
	}
}

func (suite *TestSuiteStandard) TestCategoriesUncategorizedImmutable() {
	token := suite.registerUser(suite.T(), "ada@example.com")

	r := suite.request(suite.T(), http.MethodGet, "/v1/users/me", token, nil)
	var me v1.UserResponse
	test.DecodeResponse(suite.T(), &r, &me)
	path := fmt.Sprintf("/v1/categories/%s", me.Data.References.Categories[0])

	r = suite.request(suite.T(), http.MethodPatch, path, token, v1.CategoryPatch{Name: ptr("Other")})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)

	r = suite.request(suite.T(), http.MethodDelete, path, token, nil)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
}

// TestCategoriesDelete verifies that the expenses of a deleted category are
// moved to the uncategorized category together with their total.
func (suite *TestSuiteStandard) TestCategoriesDelete() {
	token := suite.registerUser(suite.T(), "ada@example.com")
	c := suite.createCategory(suite.T(), token, v1.CategoryEditable{Name: "Food"})
	e := suite.createExpense(suite.T(), token, v1.ExpenseEditable{Concept: "Bread", Amount: decimal.NewFromInt(4), Category: "Food"})
	suite.createAlert(suite.T(), token, v1.AlertEditable{Name: "Too much food", Category: "Food", Condition: "greater than", Amount: decimal.NewFromInt(100)})

	r := suite.request(suite.T(), http.MethodDelete, fmt.Sprintf("/v1/categories/%s", c.Data.ID), token, nil)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNoContent)

	r = suite.request(suite.T(), http.MethodGet, fmt.Sprintf("/v1/categories/%s", c.Data.ID), token, nil)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNotFound)

	expense := suite.getExpense(suite.T(), token, e.Data.ID)
	uncategorized := suite.getCategory(suite.T(), token, expense.CategoryID)
	assert.True(suite.T(), uncategorized.Uncategorized)
	assert.True(suite.T(), decimal.NewFromInt(4).Equal(uncategorized.CurrentValue.Decimal), "Total must move with the expenses, is %s", uncategorized.CurrentValue)

	// The alerts of the category are gone
	r = suite.request(suite.T(), http.MethodGet, "/v1/alerts", token, nil)
	var alerts v1.AlertListResponse
	test.DecodeResponse(suite.T(), &r, &alerts)
	assert.Len(suite.T(), alerts.Data, 0)
}

func (suite *TestSuiteStandard) TestCategoriesExpenses() {
	token := suite.registerUser(suite.T(), "ada@example.com")
	c := suite.createCategory(suite.T(), token, v1.CategoryEditable{Name: "Food"})
	suite.createExpense(suite.T(), token, v1.ExpenseEditable{Concept: "Bread", Amount: decimal.NewFromInt(4), Category: "Food"})
	suite.createExpense(suite.T(), token, v1.ExpenseEditable{Concept: "Bus", Amount: decimal.NewFromInt(2)})

	r := suite.request(suite.T(), http.MethodGet, fmt.Sprintf("/v1/categories/%s/expenses", c.Data.ID), token, nil)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.ExpenseListResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Require().Len(response.Data, 1)
	assert.Equal(suite.T(), "Bread", response.Data[0].Concept)

	r = suite.request(suite.T(), http.MethodGet, fmt.Sprintf("/v1/categories/%s/expenses", uuid.New()), token, nil)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNotFound)
}

func ptr[T any](v T) *T {
	return &v
}
