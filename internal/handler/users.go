package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/booking"
	"github.com/iliyamo/event-booking/internal/model"
)

// UserStore is the account persistence the admin screens need.
type UserStore interface {
	Create(ctx context.Context, username, email, password string, role model.Role, cost int) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	Update(ctx context.Context, id string, p model.UserPatch, cost int) (*model.User, error)
	Delete(ctx context.Context, id string) error
}

// UserHandler serves /api/users.  Every route is admin only.
type UserHandler struct {
	Users      UserStore
	BcryptCost int
	Timeout    time.Duration
}

func NewUserHandler(users UserStore, cost int, timeout time.Duration) *UserHandler {
	return &UserHandler{Users: users, BcryptCost: cost, Timeout: timeout}
}

func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	users, err := h.Users.List(ctx)
	if err != nil {
		return respondError(c, err, "failed to list users")
	}
	return c.JSON(http.StatusOK, users)
}

func (h *UserHandler) Get(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	u, err := h.Users.GetByID(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err, "failed to load user")
	}
	return c.JSON(http.StatusOK, u)
}

// Create handles POST /api/users.  Duplicate usernames and emails answer
// 400.
func (h *UserHandler) Create(c echo.Context) error {
	var in booking.NewUserInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := booking.ValidateNewUser(&in); err != nil {
		return respondError(c, err, "")
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	u, err := h.Users.Create(ctx, in.Username, in.Email, in.Password, in.Role, h.BcryptCost)
	if err != nil {
		return respondError(c, err, "could not create user")
	}
	return c.JSON(http.StatusCreated, u)
}

// Update handles PATCH /api/users/:id.  A new password is re-hashed and
// signs the user out everywhere; demoting the last admin answers 400.
func (h *UserHandler) Update(c echo.Context) error {
	var p model.UserPatch
	if err := c.Bind(&p); err != nil {
		return badRequest(c, "invalid request body")
	}
	if p.Username == nil && p.Email == nil && p.Password == nil && p.Role == nil {
		return badRequest(c, "no fields to update")
	}
	if err := booking.ValidateUserPatch(&p); err != nil {
		return respondError(c, err, "")
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	u, err := h.Users.Update(ctx, c.Param("id"), p, h.BcryptCost)
	if err != nil {
		return respondError(c, err, "could not update user")
	}
	return c.JSON(http.StatusOK, u)
}

// Delete handles DELETE /api/users/:id.  Removing the last admin answers
// 400.
func (h *UserHandler) Delete(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	if err := h.Users.Delete(ctx, c.Param("id")); err != nil {
		return respondError(c, err, "could not delete user")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
