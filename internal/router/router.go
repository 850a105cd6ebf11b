// Package router wires handlers and middleware onto echo.  Everything but
// the health check lives under /api.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/handler"
	"github.com/iliyamo/event-booking/internal/middleware"
	"github.com/iliyamo/event-booking/internal/model"
)

// Handlers are the endpoint implementations to mount.
type Handlers struct {
	Auth     *handler.AuthHandler
	Events   *handler.EventHandler
	Bookings *handler.BookingHandler
	Users    *handler.UserHandler
	Admin    *handler.AdminHandler
	DB       handler.Pinger
}

// Options carry the middleware settings.  A nil Redis client turns rate
// limiting and caching into pass-throughs.
type Options struct {
	JWTSecret   string
	Redis       *redis.Client
	RateLimit   config.RateLimitConfig
	Cache       config.CacheConfig
	SeedEnabled bool
}

// guards are the middleware chains shared by the route files.
type guards struct {
	signedIn   echo.MiddlewareFunc
	adminOnly  echo.MiddlewareFunc
	cache      echo.MiddlewareFunc
	invalidate echo.MiddlewareFunc
	limit      echo.MiddlewareFunc
}

// Register mounts every route on e.
func Register(e *echo.Echo, h Handlers, o Options) {
	RegisterRoutes(e, h.DB)

	// Tokens are verified for every /api request; handlers and RequireRole
	// decide what a guest may do.  A bad token is a 401 even on public
	// routes.
	api := e.Group("/api", middleware.OptionalJWT(o.JWTSecret))
	g := guards{
		signedIn:   middleware.RequireRole(model.RoleUser, model.RoleAdmin),
		adminOnly:  middleware.RequireRole(model.RoleAdmin),
		cache:      middleware.NewRedisCache(o.Cache, o.Redis),
		invalidate: middleware.InvalidateCache(o.Cache, o.Redis),
		limit:      middleware.NewTokenBucket(o.RateLimit, o.Redis),
	}

	registerAuth(api, h.Auth, g)
	registerEvents(api, h.Events, g)
	registerBookings(api, h.Bookings, g)
	registerAdmin(api, h.Users, h.Admin, g, o.SeedEnabled)
}

// RegisterRoutes registers the routes that live outside /api.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

func registerAuth(api *echo.Group, a *handler.AuthHandler, g guards) {
	r := api.Group("/auth")
	r.POST("/login", a.Login, g.limit)
	r.POST("/refresh", a.Refresh, g.limit)
	// Logout accepts a refresh token in the body or falls back to the
	// bearer session and revokes all of its refresh tokens.
	r.POST("/logout", a.Logout)
	r.GET("/me", a.Me, g.signedIn)
}
