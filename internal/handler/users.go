package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Yoseph1994/adventurehub/internal/model"
	"github.com/Yoseph1994/adventurehub/internal/service"
)

// UserHandler serves the admin user management endpoints.
type UserHandler struct {
	Auth *service.AuthService
}

// NewUserHandler wires the account endpoints to auth.
func NewUserHandler(auth *service.AuthService) *UserHandler { return &UserHandler{Auth: auth} }

func userFilter(c echo.Context, active *bool) model.UserFilter {
	f := model.UserFilter{IsActive: active}
	f.Page, _ = strconv.Atoi(c.QueryParam("page"))
	f.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if r := model.Role(c.QueryParam("role")); r.Valid() {
		f.Role = &r
	}
	return f
}

func (h *UserHandler) list(c echo.Context, active *bool) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	users, err := h.Auth.ListUsers(ctx, userFilter(c, active))
	if err != nil {
		return err
	}
	return results(c, "users", users)
}

// List returns every user.
func (h *UserHandler) List(c echo.Context) error { return h.list(c, nil) }

// ListActive returns active users.
func (h *UserHandler) ListActive(c echo.Context) error {
	active := true
	return h.list(c, &active)
}

// ListInactive returns deactivated users.
func (h *UserHandler) ListInactive(c echo.Context) error {
	active := false
	return h.list(c, &active)
}

// Get returns one user.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Auth.GetUser(ctx, id)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, echo.Map{"user": u})
}

// Create registers a user with any role but superAdmin.  The new user
// still verifies their email.
func (h *UserHandler) Create(c echo.Context) error {
	var in service.SignupInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Auth.CreateUser(ctx, in)
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, echo.Map{"user": u})
}

// Update changes a user's role or active flag.
func (h *UserHandler) Update(c echo.Context) error {
	me, err := actor(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var in service.AdminUpdateInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Auth.AdminUpdate(ctx, me, id, in)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, echo.Map{"user": u})
}

// Delete deactivates another user's account.
func (h *UserHandler) Delete(c echo.Context) error {
	me, err := actor(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.AdminDelete(ctx, me, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
