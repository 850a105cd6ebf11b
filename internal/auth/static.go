package auth

import (
	"context"

	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/utils"
)

type staticUser struct {
	Identity
	hash string
}

// StaticAuthenticator is the development fallback: the fixed admin/admin
// and user/user accounts.  Passwords are bcrypt hashed once at startup so
// the comparison path matches the directory.
type StaticAuthenticator struct {
	byName map[string]staticUser
	byID   map[string]Identity
}

// NewStaticAuthenticator hashes the development passwords with cost.
func NewStaticAuthenticator(cost int) (*StaticAuthenticator, error) {
	fixed := []struct {
		id       Identity
		password string
	}{
		{Identity{ID: "dev-admin", Username: "admin", Email: "admin@eventnext.com", Role: model.RoleAdmin}, "admin"},
		{Identity{ID: "dev-user", Username: "user", Email: "user@eventnext.com", Role: model.RoleUser}, "user"},
	}
	s := &StaticAuthenticator{byName: map[string]staticUser{}, byID: map[string]Identity{}}
	for _, f := range fixed {
		hash, err := utils.HashPassword(f.password, cost)
		if err != nil {
			return nil, err
		}
		s.byName[f.id.Username] = staticUser{Identity: f.id, hash: hash}
		s.byID[f.id.ID] = f.id
	}
	return s, nil
}

func (s *StaticAuthenticator) Authenticate(_ context.Context, username, password string) (Identity, error) {
	u, ok := s.byName[username]
	if !ok {
		burnCompare(password)
		return Identity{}, ErrInvalidCredentials
	}
	if !utils.VerifyPassword(u.hash, password) {
		return Identity{}, ErrInvalidCredentials
	}
	return u.Identity, nil
}

func (s *StaticAuthenticator) Lookup(_ context.Context, id string) (Identity, error) {
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return Identity{}, ErrInvalidCredentials
}
