// Package auth checks login credentials.  The users table is the
// canonical source; a fixed development table can be chained behind it
// when AUTH_DEV_FALLBACK is set.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/repository"
	"github.com/iliyamo/event-booking/internal/utils"
)

// ErrInvalidCredentials covers unknown usernames and wrong passwords alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Identity is the authenticated principal put into access tokens.
type Identity struct {
	ID       string     `json:"id"`
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
}

// Authenticator verifies a username/password pair and resolves a user id
// back to an identity when a refresh token is exchanged.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (Identity, error)
	Lookup(ctx context.Context, id string) (Identity, error)
}

// UserStore is the part of the user repository the directory needs.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// burnCompare spends one bcrypt comparison so unknown usernames answer in
// about the time a wrong password takes.
func burnCompare(password string) {
	dummyOnce.Do(func() {
		dummyHash, _ = utils.HashPassword("not-a-real-password", bcrypt.DefaultCost)
	})
	utils.VerifyPassword(dummyHash, password)
}

// DirectoryAuthenticator checks credentials against the users table.
type DirectoryAuthenticator struct {
	Users UserStore
}

func identityOf(u *model.User) Identity {
	return Identity{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

func (d DirectoryAuthenticator) Authenticate(ctx context.Context, username, password string) (Identity, error) {
	u, err := d.Users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		burnCompare(password)
		return Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return Identity{}, fmt.Errorf("lookup user: %w", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Identity{}, ErrInvalidCredentials
	}
	return identityOf(u), nil
}

func (d DirectoryAuthenticator) Lookup(ctx context.Context, id string) (Identity, error) {
	u, err := d.Users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return Identity{}, err
	}
	return identityOf(u), nil
}

// Chain tries each authenticator in order.  ErrInvalidCredentials moves on
// to the next one; any other error is remembered and returned only when no
// later authenticator accepts the credentials.
type Chain []Authenticator

func (c Chain) Authenticate(ctx context.Context, username, password string) (Identity, error) {
	return c.first(func(a Authenticator) (Identity, error) { return a.Authenticate(ctx, username, password) })
}

func (c Chain) Lookup(ctx context.Context, id string) (Identity, error) {
	return c.first(func(a Authenticator) (Identity, error) { return a.Lookup(ctx, id) })
}

func (c Chain) first(try func(Authenticator) (Identity, error)) (Identity, error) {
	var firstErr error
	for _, a := range c {
		id, err := try(a)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, ErrInvalidCredentials) && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return Identity{}, firstErr
	}
	return Identity{}, ErrInvalidCredentials
}
