package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/repository"
	"github.com/iliyamo/event-booking/internal/utils"
)

type mockUsers struct{ mock.Mock }

func (m *mockUsers) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUsers) GetByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func storedUser(t *testing.T, password string) *model.User {
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	return &model.User{ID: "u1", Username: "alice", Email: "alice@example.com", PasswordHash: hash, Role: model.RoleAdmin}
}

func TestDirectoryAuthenticator(t *testing.T) {
	ctx := context.Background()
	users := new(mockUsers)
	users.On("GetByUsername", ctx, "alice").Return(storedUser(t, "wonder"), nil)
	users.On("GetByUsername", ctx, "ghost").Return(nil, repository.ErrUserNotFound)
	d := DirectoryAuthenticator{Users: users}

	id, err := d.Authenticate(ctx, "alice", "wonder")
	require.NoError(t, err)
	assert.Equal(t, Identity{ID: "u1", Username: "alice", Email: "alice@example.com", Role: model.RoleAdmin}, id)

	_, err = d.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = d.Authenticate(ctx, "ghost", "wonder")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	users.AssertExpectations(t)
}

func TestStaticAuthenticator(t *testing.T) {
	s, err := NewStaticAuthenticator(bcrypt.MinCost)
	require.NoError(t, err)
	ctx := context.Background()

	id, err := s.Authenticate(ctx, "admin", "admin")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, id.Role)

	id, err = s.Authenticate(ctx, "user", "user")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, id.Role)

	_, err = s.Authenticate(ctx, "admin", "user")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Authenticate(ctx, "root", "root")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	back, err := s.Lookup(ctx, "dev-user")
	require.NoError(t, err)
	assert.Equal(t, "user", back.Username)
}

func TestChain_DirectoryFirstThenFallback(t *testing.T) {
	ctx := context.Background()
	users := new(mockUsers)
	users.On("GetByUsername", ctx, "alice").Return(storedUser(t, "wonder"), nil)
	users.On("GetByUsername", ctx, "admin").Return(nil, repository.ErrUserNotFound)
	users.On("GetByUsername", ctx, "nobody").Return(nil, repository.ErrUserNotFound)
	static, err := NewStaticAuthenticator(bcrypt.MinCost)
	require.NoError(t, err)
	chain := Chain{DirectoryAuthenticator{Users: users}, static}

	id, err := chain.Authenticate(ctx, "alice", "wonder")
	require.NoError(t, err)
	assert.Equal(t, "u1", id.ID)

	id, err = chain.Authenticate(ctx, "admin", "admin")
	require.NoError(t, err)
	assert.Equal(t, "dev-admin", id.ID)

	_, err = chain.Authenticate(ctx, "nobody", "x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestChain_InfrastructureErrorSurfaces(t *testing.T) {
	ctx := context.Background()
	users := new(mockUsers)
	down := errors.New("connection refused")
	users.On("GetByUsername", ctx, "bob").Return(nil, down)
	static, err := NewStaticAuthenticator(bcrypt.MinCost)
	require.NoError(t, err)

	_, err = Chain{DirectoryAuthenticator{Users: users}, static}.Authenticate(ctx, "bob", "pw")
	assert.ErrorIs(t, err, down)

	// The fallback still answers for its own accounts while the database is down.
	users.On("GetByUsername", ctx, "user").Return(nil, down)
	id, err := Chain{DirectoryAuthenticator{Users: users}, static}.Authenticate(ctx, "user", "user")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, id.Role)
}
