package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/handler"
)

// registerAdmin mounts user management, the dashboard and, when enabled,
// the demo seed.  The seed wipes every table and is never mounted in a
// deployment that did not opt in with SEED_ENABLED.
func registerAdmin(api *echo.Group, u *handler.UserHandler, a *handler.AdminHandler, g guards, seed bool) {
	users := api.Group("/users", g.adminOnly)
	users.GET("", u.List)
	users.POST("", u.Create)
	users.GET("/:id", u.Get)
	users.PATCH("/:id", u.Update)
	users.DELETE("/:id", u.Delete)

	api.GET("/admin/stats", a.Stats, g.adminOnly)

	if seed {
		api.POST("/seed", a.Seed, g.invalidate)
	}
}
