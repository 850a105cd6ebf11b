package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking/internal/auth"
	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/repository"
	"github.com/iliyamo/event-booking/internal/utils"
)

var testCfg = config.Config{JWTSecret: "test-secret", AccessTTLMin: 15, RefreshTTLDays: 7}

var annaID = auth.Identity{ID: "u-anna", Username: "anna", Email: "anna@example.com", Role: model.RoleUser}

func TestLogin_MissingFields(t *testing.T) {
	h := NewAuthHandler(testCfg, &mockAuth{}, &mockTokens{})
	c, rec := newCtx(http.MethodPost, "/api/auth/login", `{"username":"anna"}`, guest)

	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Username and password are required")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	a := &mockAuth{}
	a.On("Authenticate", mock.Anything, "anna", "wrong").Return(auth.Identity{}, auth.ErrInvalidCredentials)
	h := NewAuthHandler(testCfg, a, &mockTokens{})
	c, rec := newCtx(http.MethodPost, "/api/auth/login", `{"username":"anna","password":"wrong"}`, guest)

	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_IssuesVerifiableTokens(t *testing.T) {
	a := &mockAuth{}
	a.On("Authenticate", mock.Anything, "anna", "secret").Return(annaID, nil)
	tokens := &mockTokens{}
	tokens.On("StoreRefresh", mock.Anything, "u-anna", mock.AnythingOfType("string"), mock.Anything).Return(nil)
	h := NewAuthHandler(testCfg, a, tokens)
	c, rec := newCtx(http.MethodPost, "/api/auth/login", `{"username":" anna ","password":"secret"}`, guest)

	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Role    string `json:"role"`
		Access  struct{ Token string } `json:"access"`
		Refresh struct{ Token string } `json:"refresh"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "u-anna", resp.ID)
	assert.Equal(t, "user", resp.Role)
	assert.NotEmpty(t, resp.Refresh.Token)

	claims, err := utils.ParseAccessToken(testCfg.JWTSecret, resp.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, "u-anna", claims.Subject)
	assert.Equal(t, "anna@example.com", claims.Email)
	tokens.AssertExpectations(t)
}

func TestLogin_StoreFailureIs500(t *testing.T) {
	a := &mockAuth{}
	a.On("Authenticate", mock.Anything, "anna", "secret").Return(annaID, nil)
	tokens := &mockTokens{}
	tokens.On("StoreRefresh", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("db down"))
	h := NewAuthHandler(testCfg, a, tokens)
	c, rec := newCtx(http.MethodPost, "/api/auth/login", `{"username":"anna","password":"secret"}`, guest)

	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestRefresh_RotatesToken(t *testing.T) {
	hash := utils.HashRefreshRaw("old-token")
	tokens := &mockTokens{}
	tokens.On("ValidateRefresh", mock.Anything, hash).Return("u-anna", nil)
	tokens.On("RevokeByHash", mock.Anything, hash).Return(nil)
	tokens.On("StoreRefresh", mock.Anything, "u-anna", mock.Anything, mock.Anything).Return(nil)
	a := &mockAuth{}
	a.On("Lookup", mock.Anything, "u-anna").Return(annaID, nil)
	h := NewAuthHandler(testCfg, a, tokens)
	c, rec := newCtx(http.MethodPost, "/api/auth/refresh", `{"refreshToken":"old-token"}`, guest)

	require.NoError(t, h.Refresh(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	tokens.AssertExpectations(t)
}

func TestRefresh_InvalidOrDeletedUser(t *testing.T) {
	tokens := &mockTokens{}
	tokens.On("ValidateRefresh", mock.Anything, utils.HashRefreshRaw("bad")).Return("", errors.New("no rows"))
	h := NewAuthHandler(testCfg, &mockAuth{}, tokens)
	c, rec := newCtx(http.MethodPost, "/api/auth/refresh", `{"refreshToken":"bad"}`, guest)
	require.NoError(t, h.Refresh(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	hash := utils.HashRefreshRaw("orphan")
	tokens.On("ValidateRefresh", mock.Anything, hash).Return("u-gone", nil)
	tokens.On("RevokeByHash", mock.Anything, hash).Return(nil)
	a := &mockAuth{}
	a.On("Lookup", mock.Anything, "u-gone").Return(auth.Identity{}, auth.ErrInvalidCredentials)
	h = NewAuthHandler(testCfg, a, tokens)
	c, rec = newCtx(http.MethodPost, "/api/auth/refresh", `{"refreshToken":"orphan"}`, guest)
	require.NoError(t, h.Refresh(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefresh_ConsumeMustSucceedBeforeIssuing(t *testing.T) {
	hash := utils.HashRefreshRaw("raced")
	tokens := &mockTokens{}
	tokens.On("ValidateRefresh", mock.Anything, hash).Return("u-anna", nil)
	// a concurrent refresh consumed the token between validate and revoke
	tokens.On("RevokeByHash", mock.Anything, hash).Return(repository.ErrRefreshInvalid).Once()
	h := NewAuthHandler(testCfg, &mockAuth{}, tokens)
	c, rec := newCtx(http.MethodPost, "/api/auth/refresh", `{"refreshToken":"raced"}`, guest)
	require.NoError(t, h.Refresh(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tokens.On("RevokeByHash", mock.Anything, hash).Return(errors.New("db down")).Once()
	c, rec = newCtx(http.MethodPost, "/api/auth/refresh", `{"refreshToken":"raced"}`, guest)
	require.NoError(t, h.Refresh(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")

	tokens.AssertNotCalled(t, "StoreRefresh", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLogout_AlreadyConsumedToken(t *testing.T) {
	hash := utils.HashRefreshRaw("gone")
	tokens := &mockTokens{}
	tokens.On("ValidateRefresh", mock.Anything, hash).Return("u-anna", nil)
	tokens.On("RevokeByHash", mock.Anything, hash).Return(repository.ErrRefreshInvalid)
	h := NewAuthHandler(testCfg, &mockAuth{}, tokens)
	c, rec := newCtx(http.MethodPost, "/api/auth/logout", `{"refreshToken":"gone"}`, guest)
	require.NoError(t, h.Logout(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout(t *testing.T) {
	hash := utils.HashRefreshRaw("tok")
	tokens := &mockTokens{}
	tokens.On("ValidateRefresh", mock.Anything, hash).Return("u-anna", nil)
	tokens.On("RevokeByHash", mock.Anything, hash).Return(nil)
	tokens.On("RevokeAllForUser", mock.Anything, "u-anna").Return(nil)
	h := NewAuthHandler(testCfg, &mockAuth{}, tokens)

	c, rec := newCtx(http.MethodPost, "/api/auth/logout", `{"refreshToken":"tok"}`, guest)
	require.NoError(t, h.Logout(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	tokens.AssertCalled(t, "RevokeByHash", mock.Anything, hash)

	c, rec = newCtx(http.MethodPost, "/api/auth/logout", `{}`, attendee)
	require.NoError(t, h.Logout(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	tokens.AssertCalled(t, "RevokeAllForUser", mock.Anything, "u-anna")

	c, rec = newCtx(http.MethodPost, "/api/auth/logout", `{}`, guest)
	require.NoError(t, h.Logout(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMe(t *testing.T) {
	h := NewAuthHandler(testCfg, &mockAuth{}, &mockTokens{})
	c, rec := newCtx(http.MethodGet, "/api/auth/me", "", attendee)

	require.NoError(t, h.Me(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"u-anna","username":"anna","email":"anna@example.com","role":"user"}`, rec.Body.String())
}
