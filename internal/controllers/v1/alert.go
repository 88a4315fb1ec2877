package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tally-ledger/backend/internal/auth"
	"github.com/tally-ledger/backend/internal/httputil"
)

// RegisterAlertRoutes registers the routes for alerts with
// the RouterGroup that is passed.
func (co Controller) RegisterAlertRoutes(r *gin.RouterGroup) {
	r.OPTIONS("", OptionsAlertList)

	authenticated := r.Group("", co.authenticated())

	// Root group
	{
		authenticated.GET("", co.GetAlerts)
		authenticated.POST("", co.CreateAlerts)
	}

	// Alert with ID
	{
		authenticated.OPTIONS("/:id", co.OptionsAlertDetail)
		authenticated.GET("/:id", co.GetAlert)
		authenticated.PATCH("/:id", co.UpdateAlert)
		authenticated.DELETE("/:id", co.DeleteAlert)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Alerts
// @Success		204
// @Router			/v1/alerts [options]
func OptionsAlertList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Alerts
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Security		Bearer
// @Router			/v1/alerts/{id} [options]
func (co Controller) OptionsAlertDetail(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	_, err = co.Ledger.Alerts.FindByID(c.Request.Context(), auth.UserID(c), uri.ID.UUID)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	httputil.OptionsGetPatchDelete(c)
}

// @Summary		Create alerts
// @Description	Creates alerts from the list of submitted alert data. Every alert is evaluated right away. The response code is the highest response code number that a single alert creation would have caused. If it is not equal to 201, at least one alert has an error.
// @Tags			Alerts
// @Produce		json
// @Success		201		{object}	AlertCreateResponse
// @Failure		400		{object}	AlertCreateResponse
// @Failure		404		{object}	AlertCreateResponse
// @Failure		409		{object}	AlertCreateResponse
// @Failure		500		{object}	AlertCreateResponse
// @Param			alerts	body		[]AlertEditable	true	"Alerts"
// @Security		Bearer
// @Router			/v1/alerts [post]
func (co Controller) CreateAlerts(c *gin.Context) {
	var editables []AlertEditable

	// Bind data and return error if not possible
	err := httputil.BindData(c, &editables)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), AlertCreateResponse{
			Error: &e,
		})
		return
	}

	// The final http status. Will be modified when errors occur
	status := http.StatusCreated
	r := AlertCreateResponse{}

	for _, editable := range editables {
		alert, err := co.Ledger.Alerts.Create(c.Request.Context(), auth.UserID(c), editable.model())
		if err != nil {
			status = r.appendError(err, status)
			continue
		}

		data := newAlert(c, alert)
		r.Data = append(r.Data, AlertResponse{Data: &data})
	}

	c.JSON(status, r)
}

// @Summary		Get alerts
// @Description	Returns the alerts of the authenticated user ordered by name
// @Tags			Alerts
// @Produce		json
// @Success		200			{object}	AlertListResponse
// @Failure		400			{object}	AlertListResponse
// @Failure		500			{object}	AlertListResponse
// @Param			category	query		string	false	"Filter by category ID"
// @Param			status		query		string	false	"Filter by status"	Enums(Active, Triggered)
// @Param			offset		query		uint	false	"The offset of the first alert returned. Defaults to 0."
// @Param			limit		query		int		false	"Maximum number of alerts to return. Defaults to 50."
// @Security		Bearer
// @Router			/v1/alerts [get]
func (co Controller) GetAlerts(c *gin.Context) {
	var filter AlertQueryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		s := err.Error()
		c.JSON(http.StatusBadRequest, AlertListResponse{Error: &s})
		return
	}

	f, err := filter.model(c)
	if err != nil {
		s := err.Error()
		c.JSON(http.StatusBadRequest, AlertListResponse{Error: &s})
		return
	}

	alerts, total, err := co.Ledger.Alerts.FindAll(c.Request.Context(), auth.UserID(c), f)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), AlertListResponse{Error: &s})
		return
	}

	data := make([]Alert, 0, len(alerts))
	for _, alert := range alerts {
		data = append(data, newAlert(c, alert))
	}

	c.JSON(http.StatusOK, AlertListResponse{
		Data:       data,
		Pagination: newPagination(len(data), total, f.Page),
	})
}

// @Summary		Get alert
// @Description	Returns a specific alert
// @Tags			Alerts
// @Produce		json
// @Success		200	{object}	AlertResponse
// @Failure		400	{object}	AlertResponse
// @Failure		404	{object}	AlertResponse
// @Failure		500	{object}	AlertResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Security		Bearer
// @Router			/v1/alerts/{id} [get]
func (co Controller) GetAlert(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), AlertResponse{Error: &s})
		return
	}

	alert, err := co.Ledger.Alerts.FindByID(c.Request.Context(), auth.UserID(c), uri.ID.UUID)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), AlertResponse{Error: &s})
		return
	}

	data := newAlert(c, alert)
	c.JSON(http.StatusOK, AlertResponse{Data: &data})
}

// @Summary		Update alert
// @Description	Update an existing alert. Only values to be updated need to be specified. The status is derived from the new values.
// @Tags			Alerts
// @Accept			json
// @Produce		json
// @Success		200		{object}	AlertResponse
// @Failure		400		{object}	AlertResponse
// @Failure		404		{object}	AlertResponse
// @Failure		409		{object}	AlertResponse
// @Failure		500		{object}	AlertResponse
// @Param			id		path		URIID		true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			alert	body		AlertPatch	true	"Alert"
// @Security		Bearer
// @Router			/v1/alerts/{id} [patch]
func (co Controller) UpdateAlert(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), AlertResponse{Error: &s})
		return
	}

	var patch AlertPatch
	err = httputil.BindData(c, &patch)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), AlertResponse{Error: &s})
		return
	}

	alert, err := co.Ledger.Alerts.Update(c.Request.Context(), auth.UserID(c), uri.ID.UUID, patch.model())
	if err != nil {
		s := err.Error()
		c.JSON(status(err), AlertResponse{Error: &s})
		return
	}

	data := newAlert(c, alert)
	c.JSON(http.StatusOK, AlertResponse{Data: &data})
}

// @Summary		Delete alert
// @Description	Deletes an alert
// @Tags			Alerts
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Security		Bearer
// @Router			/v1/alerts/{id} [delete]
func (co Controller) DeleteAlert(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	_, err = co.Ledger.Alerts.Delete(c.Request.Context(), auth.UserID(c), uri.ID.UUID)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	c.Status(http.StatusNoContent)
}
