package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/soundscape/server/internal/middleware"
	"github.com/soundscape/server/internal/models"
	"github.com/soundscape/server/internal/modules/user"
	"github.com/soundscape/server/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	upserted map[string]user.UpsertUserDTO
	admins   map[string]bool
	err      error
}

func (f *fakeUsers) Upsert(_ context.Context, id string, dto *user.UpsertUserDTO) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.upserted[id] = *dto
	u := &models.User{FullName: dto.FullName, ImageURL: dto.ImageURL, Email: dto.Email}
	u.ID = id
	return u, nil
}

func (f *fakeUsers) IsAdmin(_ context.Context, _, email string) (bool, error) {
	return f.admins[email], f.err
}

func newRouter(users Users, claims *jwt.Claims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(users).RegisterRoutes(r.Group(""), func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, claims.Principal())
		c.Set(middleware.ContextKeyEmail, claims.Email)
		c.Set(middleware.ContextKeyClaims, claims)
	})
	return r
}

func TestCallbackFillsMissingFieldsFromClaims(t *testing.T) {
	users := &fakeUsers{upserted: map[string]user.UpsertUserDTO{}}
	claims := &jwt.Claims{UserID: "user_1", Email: "amy@example.com", Name: "Amy", Picture: "https://cdn/amy.png"}
	r := newRouter(users, claims)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/callback", strings.NewReader(`{"fullName":"Amy Rahman"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, user.UpsertUserDTO{
		FullName: "Amy Rahman",
		ImageURL: "https://cdn/amy.png",
		Email:    "amy@example.com",
	}, users.upserted["user_1"])
}

func TestCallbackWithoutBody(t *testing.T) {
	users := &fakeUsers{upserted: map[string]user.UpsertUserDTO{}}
	r := newRouter(users, &jwt.Claims{UserID: "user_2", Name: "Bob"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/callback", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bob", users.upserted["user_2"].FullName)
}

func TestCallbackRejectsMalformedBody(t *testing.T) {
	users := &fakeUsers{upserted: map[string]user.UpsertUserDTO{}}
	r := newRouter(users, &jwt.Claims{UserID: "user_1"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/callback", strings.NewReader(`{"fullName":`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, users.upserted)
}

func TestCheck(t *testing.T) {
	users := &fakeUsers{admins: map[string]bool{"root@example.com": true}}

	check := func(claims *jwt.Claims) checkResponse {
		w := httptest.NewRecorder()
		newRouter(users, claims).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/check", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var out checkResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		return out
	}

	assert.Equal(t, checkResponse{ID: "admin_1", IsAdmin: true}, check(&jwt.Claims{UserID: "admin_1", Email: "root@example.com"}))
	assert.Equal(t, checkResponse{ID: "user_1"}, check(&jwt.Claims{UserID: "user_1", Email: "amy@example.com"}))

	users.err = errors.New("store down")
	w := httptest.NewRecorder()
	newRouter(users, &jwt.Claims{UserID: "user_1"}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/check", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
