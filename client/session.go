package client

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/iliyamo/event-booking/internal/model"
)

// Identity is the signed-in account.
type Identity struct {
	ID       string     `json:"id"`
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
}

type tokenPair struct {
	Identity
	Access struct {
		Token   string    `json:"token"`
		Expires time.Time `json:"expires"`
	} `json:"access"`
	Refresh struct {
		Token   string    `json:"token"`
		Expires time.Time `json:"expires"`
	} `json:"refresh"`
}

// Session holds the tokens issued by the server.  It is only filled by a
// successful login or refresh; nothing on the client can mark itself
// signed in.
type Session struct {
	mu       sync.RWMutex
	identity Identity
	access   string
	refresh  string
	expires  time.Time
}

func (s *Session) set(p tokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = p.Identity
	s.access = p.Access.Token
	s.refresh = p.Refresh.Token
	s.expires = p.Access.Expires
}

func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = Identity{}
	s.access, s.refresh = "", ""
	s.expires = time.Time{}
}

// AccessToken returns the bearer token, or "" when signed out.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

func (s *Session) refreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// SignedIn reports whether the server issued tokens to this session.
func (s *Session) SignedIn() bool { return s.AccessToken() != "" }

// Identity returns the signed-in account; the zero value when signed out.
func (s *Session) Identity() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// IsAdmin reports whether the signed-in account is an admin.
func (s *Session) IsAdmin() bool { return s.Identity().Role == model.RoleAdmin }

// Expired reports whether the access token is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access != "" && !now.Before(s.expires)
}

// Login exchanges credentials for tokens.  On any failure the session is
// left signed out.
func (c *Client) Login(ctx context.Context, username, password string) (Identity, error) {
	c.Session.clear()
	var p tokenPair
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &p); err != nil {
		return Identity{}, err
	}
	c.Session.set(p)
	return p.Identity, nil
}

// Refresh rotates the token pair.  A rejected refresh token signs the
// session out.
func (c *Client) Refresh(ctx context.Context) error {
	rt := c.Session.refreshToken()
	if rt == "" {
		return &APIError{Status: http.StatusUnauthorized, Message: "not signed in"}
	}
	var p tokenPair
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, map[string]string{"refreshToken": rt}, &p); err != nil {
		if IsStatus(err, http.StatusUnauthorized) {
			c.Session.clear()
		}
		return err
	}
	c.Session.set(p)
	return nil
}

// Logout revokes the refresh token on the server and clears the session.
// The session is cleared even when the server cannot be reached.
func (c *Client) Logout(ctx context.Context) error {
	rt := c.Session.refreshToken()
	defer c.Session.clear()
	if rt == "" {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, map[string]string{"refreshToken": rt}, nil)
}
