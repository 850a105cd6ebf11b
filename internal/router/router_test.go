package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/handler"
	"github.com/iliyamo/event-booking/internal/utils"
)

const testSecret = "router-test-secret"

// newServer mounts every route on stores that are never reached: the
// requests below are all stopped by middleware first.
func newServer(seed bool) *echo.Echo {
	e := echo.New()
	Register(e, Handlers{
		Auth:     handler.NewAuthHandler(config.Config{}, nil, nil),
		Events:   handler.NewEventHandler(nil, 0),
		Bookings: handler.NewBookingHandler(nil, nil, 0),
		Users:    handler.NewUserHandler(nil, 4, 0),
		Admin:    handler.NewAdminHandler(nil, nil, 0),
	}, Options{JWTSecret: testSecret, SeedEnabled: seed})
	return e
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, "u1", "someone", "someone@example.com", role, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func do(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRegister_RouteTable(t *testing.T) {
	routes := map[string]bool{}
	for _, r := range newServer(true).Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /healthz",
		"POST /api/auth/login",
		"POST /api/auth/refresh",
		"POST /api/auth/logout",
		"GET /api/auth/me",
		"GET /api/events",
		"GET /api/events/:id",
		"GET /api/events/:id/slots",
		"GET /api/events/export.csv",
		"GET /api/events/:id/bookings.csv",
		"POST /api/events",
		"PATCH /api/events/:id",
		"DELETE /api/events/:id",
		"POST /api/events/:id/publish",
		"POST /api/events/:id/unpublish",
		"POST /api/events/:id/cancel",
		"POST /api/events/:id/duplicate",
		"POST /api/bookings",
		"GET /api/bookings",
		"GET /api/bookings/:id",
		"GET /api/bookings/:id/calendar.ics",
		"GET /api/bookings/export.csv",
		"PATCH /api/bookings/:id",
		"DELETE /api/bookings/:id",
		"POST /api/bookings/:id/cancel",
		"POST /api/bookings/:id/approve",
		"POST /api/bookings/:id/reject",
		"POST /api/bookings/:id/check-in",
		"POST /api/bookings/:id/undo-check-in",
		"GET /api/users",
		"POST /api/users",
		"PATCH /api/users/:id",
		"DELETE /api/users/:id",
		"GET /api/admin/stats",
		"POST /api/seed",
	} {
		assert.True(t, routes[want], "missing route %s", want)
	}
}

func TestRegister_SeedNeedsOptIn(t *testing.T) {
	for _, r := range newServer(false).Routes() {
		assert.NotEqual(t, "/api/seed", r.Path)
	}
	rec := do(newServer(false), http.MethodPost, "/api/seed", "")
	assert.NotEqual(t, http.StatusCreated, rec.Code)
}

func TestRegister_Guards(t *testing.T) {
	e := newServer(false)
	user := bearer(t, "user")

	cases := []struct {
		name, method, path, auth string
		want                     int
	}{
		{"guest creates event", http.MethodPost, "/api/events", "", http.StatusUnauthorized},
		{"user creates event", http.MethodPost, "/api/events", user, http.StatusForbidden},
		{"guest lists bookings", http.MethodGet, "/api/bookings", "", http.StatusUnauthorized},
		{"user approves booking", http.MethodPost, "/api/bookings/b1/approve", user, http.StatusForbidden},
		{"user patches booking", http.MethodPatch, "/api/bookings/b1", user, http.StatusForbidden},
		{"user exports events", http.MethodGet, "/api/events/export.csv", user, http.StatusForbidden},
		{"user lists users", http.MethodGet, "/api/users", user, http.StatusForbidden},
		{"guest reads stats", http.MethodGet, "/api/admin/stats", "", http.StatusUnauthorized},
		{"guest me", http.MethodGet, "/api/auth/me", "", http.StatusUnauthorized},
		{"bad token on public route", http.MethodGet, "/api/events", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", http.MethodGet, "/api/events", "Basic abc", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, do(e, tc.method, tc.path, tc.auth).Code)
		})
	}
}

func TestRegister_MeWithToken(t *testing.T) {
	rec := do(newServer(false), http.MethodGet, "/api/auth/me", bearer(t, "admin"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"admin"`)
	assert.Contains(t, rec.Body.String(), "someone@example.com")
}

func TestHealthz_NoDatabase(t *testing.T) {
	rec := do(newServer(false), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
