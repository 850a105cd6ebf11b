package middleware

// identity.go holds the context keys JWTAuth fills in and the accessors
// handlers and the other middleware read them through.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/model"
)

const (
	ctxUserID   = "user_id"
	ctxUsername = "username"
	ctxEmail    = "email"
	ctxRole     = "role"
)

// Session is the verified identity of the caller.
type Session struct {
	UserID   string
	Username string
	Email    string
	Role     model.Role
}

// IsAdmin reports whether the session carries the admin role.
func (s Session) IsAdmin() bool { return s.Role == model.RoleAdmin }

// CurrentSession returns the caller's session.  ok is false for guests.
func CurrentSession(c echo.Context) (Session, bool) {
	id, _ := c.Get(ctxUserID).(string)
	if id == "" {
		return Session{}, false
	}
	name, _ := c.Get(ctxUsername).(string)
	email, _ := c.Get(ctxEmail).(string)
	role, _ := c.Get(ctxRole).(string)
	return Session{UserID: id, Username: name, Email: email, Role: model.Role(role)}, true
}

// SetSession stores s on the context the way JWTAuth does.
func SetSession(c echo.Context, s Session) {
	c.Set(ctxUserID, s.UserID)
	c.Set(ctxUsername, s.Username)
	c.Set(ctxEmail, s.Email)
	c.Set(ctxRole, string(s.Role))
}

// userID returns the caller's id or "guest".
func userID(c echo.Context) string {
	if s, ok := CurrentSession(c); ok {
		return s.UserID
	}
	return "guest"
}

// roleOf returns the caller's role or "guest".
func roleOf(c echo.Context) string {
	if s, ok := CurrentSession(c); ok && s.Role != "" {
		return string(s.Role)
	}
	return "guest"
}
