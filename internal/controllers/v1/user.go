package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tally-ledger/backend/internal/auth"
	"github.com/tally-ledger/backend/internal/httputil"
	"github.com/tally-ledger/backend/internal/models"
)

// RegisterAuthRoutes registers the routes for authentication with
// the RouterGroup that is passed.
func (co Controller) RegisterAuthRoutes(r *gin.RouterGroup) {
	r.OPTIONS("/login", OptionsLogin)
	r.POST("/login", co.Login)
}

// RegisterUserRoutes registers the routes for users with
// the RouterGroup that is passed.
func (co Controller) RegisterUserRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", OptionsUserList)
		r.POST("", co.RegisterUser)
		r.GET("", co.authenticated(), auth.RequireRole(string(models.RoleAdmin)), co.GetUsers)
	}

	// The authenticated user
	{
		r.OPTIONS("/me", OptionsUserMe)
		r.GET("/me", co.authenticated(), co.GetMe)
		r.PATCH("/me", co.authenticated(), co.UpdateMe)
		r.DELETE("/me", co.authenticated(), co.DeleteMe)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Auth
// @Success		204
// @Router			/v1/auth/login [options]
func OptionsLogin(c *gin.Context) {
	httputil.OptionsPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Users
// @Success		204
// @Router			/v1/users [options]
func OptionsUserList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Users
// @Success		204
// @Router			/v1/users/me [options]
func OptionsUserMe(c *gin.Context) {
	httputil.OptionsGetPatchDelete(c)
}

// @Summary		Log in
// @Description	Returns a bearer token for the user with the given credentials
// @Tags			Auth
// @Accept			json
// @Produce		json
// @Success		200			{object}	LoginResponse
// @Failure		400			{object}	LoginResponse
// @Failure		401			{object}	LoginResponse
// @Failure		500			{object}	LoginResponse
// @Param			credentials	body		LoginRequest	true	"Credentials"
// @Router			/v1/auth/login [post]
func (co Controller) Login(c *gin.Context) {
	var credentials LoginRequest
	err := httputil.BindData(c, &credentials)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), LoginResponse{Error: &s})
		return
	}

	user, err := co.Ledger.Users.Authenticate(c.Request.Context(), credentials.Email, credentials.Password)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), LoginResponse{Error: &s})
		return
	}

	token, expires, err := co.Tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		s := models.ErrGeneral.Error()
		c.JSON(http.StatusInternalServerError, LoginResponse{Error: &s})
		return
	}

	refs, err := co.Ledger.Users.References(c.Request.Context(), user.ID)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), LoginResponse{Error: &s})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Data: &Login{
		Token:     token,
		ExpiresAt: expires,
		User:      newUser(c, user, refs),
	}})
}

// @Summary		Register user
// @Description	Registers a new user. Every user starts out with the uncategorized category.
// @Tags			Users
// @Accept			json
// @Produce		json
// @Success		201		{object}	UserResponse
// @Failure		400		{object}	UserResponse
// @Failure		409		{object}	UserResponse
// @Failure		500		{object}	UserResponse
// @Param			user	body		UserEditable	true	"User"
// @Router			/v1/users [post]
func (co Controller) RegisterUser(c *gin.Context) {
	var editable UserEditable
	err := httputil.BindData(c, &editable)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), UserResponse{Error: &s})
		return
	}

	user, err := co.Ledger.Users.Register(c.Request.Context(), editable.model())
	if err != nil {
		s := err.Error()
		c.JSON(status(err), UserResponse{Error: &s})
		return
	}

	refs, err := co.Ledger.Users.References(c.Request.Context(), user.ID)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), UserResponse{Error: &s})
		return
	}

	data := newUser(c, user, refs)
	c.JSON(http.StatusCreated, UserResponse{Data: &data})
}

// @Summary		Get users
// @Description	Returns a list of all users. Only available to administrators.
// @Tags			Users
// @Produce		json
// @Success		200		{object}	UserListResponse
// @Failure		401		{object}	httpError
// @Failure		403		{object}	httpError
// @Failure		500		{object}	UserListResponse
// @Param			offset	query		uint	false	"The offset of the first user returned. Defaults to 0."
// @Param			limit	query		int		false	"Maximum number of users to return. Defaults to 50."
// @Security		Bearer
// @Router			/v1/users [get]
func (co Controller) GetUsers(c *gin.Context) {
	var filter UserQueryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		s := err.Error()
		c.JSON(http.StatusBadRequest, UserListResponse{Error: &s})
		return
	}

	page := filter.page(c.Request.URL)
	users, total, err := co.Ledger.Users.FindAll(c.Request.Context(), page)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), UserListResponse{Error: &s})
		return
	}

	data := make([]User, 0, len(users))
	for _, user := range users {
		data = append(data, User{User: user})
	}

	c.JSON(http.StatusOK, UserListResponse{
		Data:       data,
		Pagination: newPagination(len(data), total, page),
	})
}

// @Summary		Get the authenticated user
// @Description	Returns the authenticated user and the IDs of all their resources
// @Tags			Users
// @Produce		json
// @Success		200	{object}	UserResponse
// @Failure		401	{object}	httpError
// @Failure		404	{object}	UserResponse
// @Failure		500	{object}	UserResponse
// @Security		Bearer
// @Router			/v1/users/me [get]
func (co Controller) GetMe(c *gin.Context) {
	user, err := co.Ledger.Users.FindByID(c.Request.Context(), auth.UserID(c))
	if err != nil {
		s := err.Error()
		c.JSON(status(err), UserResponse{Error: &s})
		return
	}

	refs, err := co.Ledger.Users.References(c.Request.Context(), user.ID)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), UserResponse{Error: &s})
		return
	}

	data := newUser(c, user, refs)
	c.JSON(http.StatusOK, UserResponse{Data: &data})
}

// @Summary		Update the authenticated user
// @Description	Updates the authenticated user. Only values to be updated need to be specified.
// @Tags			Users
// @Accept			json
// @Produce		json
// @Success		200		{object}	UserResponse
// @Failure		400		{object}	UserResponse
// @Failure		401		{object}	httpError
// @Failure		409		{object}	UserResponse
// @Failure		500		{object}	UserResponse
// @Param			user	body		UserPatch	true	"User"
// @Security		Bearer
// @Router			/v1/users/me [patch]
func (co Controller) UpdateMe(c *gin.Context) {
	var patch UserPatch
	err := httputil.BindData(c, &patch)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), UserResponse{Error: &s})
		return
	}

	user, err := co.Ledger.Users.Update(c.Request.Context(), auth.UserID(c), patch.model())
	if err != nil {
		s := err.Error()
		c.JSON(status(err), UserResponse{Error: &s})
		return
	}

	refs, err := co.Ledger.Users.References(c.Request.Context(), user.ID)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), UserResponse{Error: &s})
		return
	}

	data := newUser(c, user, refs)
	c.JSON(http.StatusOK, UserResponse{Data: &data})
}

// @Summary		Delete the authenticated user
// @Description	Deletes the authenticated user with all their categories, expenses, alerts and attachments
// @Tags			Users
// @Success		204
// @Failure		401	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Security		Bearer
// @Router			/v1/users/me [delete]
func (co Controller) DeleteMe(c *gin.Context) {
	_, err := co.Ledger.Users.Delete(c.Request.Context(), auth.UserID(c))
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	c.Status(http.StatusNoContent)
}
