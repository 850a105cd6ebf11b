package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/repository"
)

// Seeder replaces the database contents with the demo dataset.
type Seeder interface {
	Seed(ctx context.Context, now time.Time) (repository.SeedResult, error)
}

// AdminHandler serves the dashboard numbers and the demo seed.
type AdminHandler struct {
	Events  EventStore
	Seeder  Seeder
	Timeout time.Duration
	Now     func() time.Time
}

func NewAdminHandler(events EventStore, seeder Seeder, timeout time.Duration) *AdminHandler {
	return &AdminHandler{Events: events, Seeder: seeder, Timeout: timeout, Now: time.Now}
}

// Stats handles GET /api/admin/stats.
func (h *AdminHandler) Stats(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()
	s, err := h.Events.Stats(ctx, h.Now())
	if err != nil {
		return respondError(c, err, "failed to compute stats")
	}
	return c.JSON(http.StatusOK, s)
}

// Seed handles POST /api/seed.  It wipes every table, so the router only
// mounts it when seeding is enabled.
func (h *AdminHandler) Seed(c echo.Context) error {
	ctx, cancel := withTimeout(c, 4*h.Timeout)
	defer cancel()
	res, err := h.Seeder.Seed(ctx, h.Now())
	if err != nil {
		return respondError(c, err, "seed failed")
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "users": res.Users, "count": res.Events})
}
