package v1

import (
	"errors"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tally-ledger/backend/internal/auth"
	"github.com/tally-ledger/backend/internal/httputil"
)

// RegisterExpenseRoutes registers the routes for expenses with
// the RouterGroup that is passed.
func (co Controller) RegisterExpenseRoutes(r *gin.RouterGroup) {
	r.OPTIONS("", OptionsExpenseList)

	authenticated := r.Group("", co.authenticated())

	// Root group
	{
		authenticated.GET("", co.GetExpenses)
		authenticated.POST("", co.CreateExpenses)
	}

	// Expense with ID
	{
		authenticated.OPTIONS("/:id", co.OptionsExpenseDetail)
		authenticated.GET("/:id", co.GetExpense)
		authenticated.PATCH("/:id", co.UpdateExpense)
		authenticated.DELETE("/:id", co.DeleteExpense)
	}

	// Attachment of the expense
	{
		authenticated.OPTIONS("/:id/attachment", co.OptionsExpenseAttachment)
		authenticated.GET("/:id/attachment", co.GetExpenseAttachment)
		authenticated.POST("/:id/attachment", co.CreateExpenseAttachment)
		authenticated.DELETE("/:id/attachment", co.DeleteExpenseAttachment)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Expenses
// @Success		204
// @Router			/v1/expenses [options]
func OptionsExpenseList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Expenses
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Security		Bearer
// @Router			/v1/expenses/{id} [options]
func (co Controller) OptionsExpenseDetail(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	_, err = co.Ledger.Expenses.FindByID(c.Request.Context(), auth.UserID(c), uri.ID.UUID)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	httputil.OptionsGetPatchDelete(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Expenses
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Security		Bearer
// @Router			/v1/expenses/{id}/attachment [options]
func (co Controller) OptionsExpenseAttachment(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	_, err = co.Ledger.Expenses.FindByID(c.Request.Context(), auth.UserID(c), uri.ID.UUID)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	httputil.OptionsGetPostDelete(c)
}

// @Summary		Create expenses
// @Description	Creates expenses from the list of submitted expense data. The response code is the highest response code number that a single expense creation would have caused. If it is not equal to 201, at least one expense has an error.
// @Tags			Expenses
// @Produce		json
// @Success		201			{object}	ExpenseCreateResponse
// @Failure		400			{object}	ExpenseCreateResponse
// @Failure		404			{object}	ExpenseCreateResponse
// @Failure		500			{object}	ExpenseCreateResponse
// @Param			expenses	body		[]ExpenseEditable	true	"Expenses"
// @Security		Bearer
// @Router			/v1/expenses [post]
func (co Controller) CreateExpenses(c *gin.Context) {
	var editables []ExpenseEditable

	// Bind data and return error if not possible
	err := httputil.BindData(c, &editables)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ExpenseCreateResponse{
			Error: &e,
		})
		return
	}

	// The final http status. Will be modified when errors occur
	status := http.StatusCreated
	r := ExpenseCreateResponse{}

	for _, editable := range editables {
		expense, err := co.Ledger.Expenses.Create(c.Request.Context(), auth.UserID(c), editable.model())
		if err != nil {
			status = r.appendError(err, status)
			continue
		}

		data := newExpense(c, expense)
		r.Data = append(r.Data, ExpenseResponse{Data: &data})
	}

	c.JSON(status, r)
}

// @Summary		Get expenses
// @Description	Returns the expenses of the authenticated user, newest first
// @Tags			Expenses
// @Produce		json
// @Success		200			{object}	ExpenseListResponse
// @Failure		400			{object}	ExpenseListResponse
// @Failure		500			{object}	ExpenseListResponse
// @Param			category	query		string	false	"Filter by category ID"
// @Param			concept		query		string	false	"Filter by concept. Supports * as wildcard, case-insensitive."
// @Param			fromDate	query		string	false	"Expenses on or after this date, formatted as YYYY-MM-DD"
// @Param			untilDate	query		string	false	"Expenses before this date, formatted as YYYY-MM-DD"
// @Param			offset		query		uint	false	"The offset of the first expense returned. Defaults to 0."
// @Param			limit		query		int		false	"Maximum number of expenses to return. Defaults to 50."
// @Security		Bearer
// @Router			/v1/expenses [get]
func (co Controller) GetExpenses(c *gin.Context) {
	var filter ExpenseQueryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		s := err.Error()
		c.JSON(http.StatusBadRequest, ExpenseListResponse{Error: &s})
		return
	}

	f, err := filter.model(c)
	if err != nil {
		s := err.Error()
		c.JSON(http.StatusBadRequest, ExpenseListResponse{Error: &s})
		return
	}

	expenses, total, err := co.Ledger.Expenses.FindAll(c.Request.Context(), auth.UserID(c), f)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), ExpenseListResponse{Error: &s})
		return
	}

	data := make([]Expense, 0, len(expenses))
	for _, expense := range expenses {
		data = append(data, newExpense(c, expense))
	}

	c.JSON(http.StatusOK, ExpenseListResponse{
		Data:       data,
		Pagination: newPagination(len(data), total, f.Page),
	})
}

// @Summary		Get expense
// @Description	Returns a specific expense
// @Tags			Expenses
// @Produce		json
// @Success		200	{object}	ExpenseResponse
// @Failure		400	{object}	ExpenseResponse
// @Failure		404	{object}	ExpenseResponse
// @Failure		500	{object}	ExpenseResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Security		Bearer
// @Router			/v1/expenses/{id} [get]
func (co Controller) GetExpense(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), ExpenseResponse{Error: &s})
		return
	}

	expense, err := co.Ledger.Expenses.FindByID(c.Request.Context(), auth.UserID(c), uri.ID.UUID)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), ExpenseResponse{Error: &s})
		return
	}

	data := newExpense(c, expense)
	c.JSON(http.StatusOK, ExpenseResponse{Data: &data})
}

// @Summary		Update expense
// @Description	Update an existing expense. Only values to be updated need to be specified.
// @Tags			Expenses
// @Accept			json
// @Produce		json
// @Success		200		{object}	ExpenseResponse
// @Failure		400		{object}	ExpenseResponse
// @Failure		404		{object}	ExpenseResponse
// @Failure		500		{object}	ExpenseResponse
// @Param			id		path		URIID			true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			expense	body		ExpensePatch	true	"Expense"
// @Security		Bearer
// @Router			/v1/expenses/{id} [patch]
func (co Controller) UpdateExpense(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), ExpenseResponse{Error: &s})
		return
	}

	var patch ExpensePatch
	err = httputil.BindData(c, &patch)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), ExpenseResponse{Error: &s})
		return
	}

	expense, err := co.Ledger.Expenses.Update(c.Request.Context(), auth.UserID(c), uri.ID.UUID, patch.model())
	if err != nil {
		s := err.Error()
		c.JSON(status(err), ExpenseResponse{Error: &s})
		return
	}

	data := newExpense(c, expense)
	c.JSON(http.StatusOK, ExpenseResponse{Data: &data})
}

// @Summary		Delete expense
// @Description	Deletes an expense and its attachment
// @Tags			Expenses
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Security		Bearer
// @Router			/v1/expenses/{id} [delete]
func (co Controller) DeleteExpense(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	_, err = co.Ledger.Expenses.Delete(c.Request.Context(), auth.UserID(c), uri.ID.UUID)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary		Get expense attachment
// @Description	Returns the file attached to the expense
// @Tags			Expenses
// @Produce		application/octet-stream
// @Success		200	{file}		file
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Security		Bearer
// @Router			/v1/expenses/{id}/attachment [get]
func (co Controller) GetExpenseAttachment(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	file, content, err := co.Ledger.Expenses.Attachment(c.Request.Context(), auth.UserID(c), uri.ID.UUID)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}
	defer content.Close()

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.DataFromReader(http.StatusOK, file.Size, contentType, content, map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": file.FileName}),
	})
}

// @Summary		Attach file to expense
// @Description	Uploads a file for the expense. An expense has at most one attachment.
// @Tags			Expenses
// @Accept			multipart/form-data
// @Produce		json
// @Success		201		{object}	ExpenseResponse
// @Failure		400		{object}	ExpenseResponse
// @Failure		404		{object}	ExpenseResponse
// @Failure		409		{object}	ExpenseResponse
// @Failure		413		{object}	ExpenseResponse
// @Failure		500		{object}	ExpenseResponse
// @Param			id		path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			file	formData	file	true	"File to attach"
// @Security		Bearer
// @Router			/v1/expenses/{id}/attachment [post]
func (co Controller) CreateExpenseAttachment(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), ExpenseResponse{Error: &s})
		return
	}

	limit := co.maxAttachmentSize()
	if c.Request.ContentLength > limit {
		s := errFileTooLarge.Error()
		c.JSON(http.StatusRequestEntityTooLarge, ExpenseResponse{Error: &s})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s := errFileTooLarge.Error()
			c.JSON(http.StatusRequestEntityTooLarge, ExpenseResponse{Error: &s})
			return
		}

		s := errNoFilePost.Error()
		c.JSON(http.StatusBadRequest, ExpenseResponse{Error: &s})
		return
	}

	f, err := header.Open()
	if err != nil {
		s := errNoFilePost.Error()
		c.JSON(http.StatusBadRequest, ExpenseResponse{Error: &s})
		return
	}
	defer f.Close()

	expense, err := co.Ledger.Expenses.Attach(c.Request.Context(), auth.UserID(c), uri.ID.UUID, header.Filename, header.Header.Get("Content-Type"), f)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), ExpenseResponse{Error: &s})
		return
	}

	data := newExpense(c, expense)
	c.JSON(http.StatusCreated, ExpenseResponse{Data: &data})
}

// @Summary		Delete expense attachment
// @Description	Deletes the file attached to the expense
// @Tags			Expenses
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Security		Bearer
// @Router			/v1/expenses/{id}/attachment [delete]
func (co Controller) DeleteExpenseAttachment(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	_, err = co.Ledger.Expenses.Detach(c.Request.Context(), auth.UserID(c), uri.ID.UUID)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	c.Status(http.StatusNoContent)
}
