package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"spotfence/config"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runAuth(t *testing.T, token, authHeader string) (*httptest.ResponseRecorder, bool) {
	t.Helper()

	cfg := &config.Config{}
	cfg.HTTP.APIToken = token
	m := NewAuthMiddleware(cfg)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	err := m.Authenticate(func(c echo.Context) error {
		called = true

		return c.NoContent(http.StatusOK)
	})(c)
	require.NoError(t, err)

	return rec, called
}

func TestAuthenticateAcceptsValidToken(t *testing.T) {
	rec, called := runAuth(t, "sekrit", "Bearer sekrit")

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticateRejectsMissingHeader(t *testing.T) {
	rec, called := runAuth(t, "sekrit", "")

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateRejectsWrongToken(t *testing.T) {
	rec, called := runAuth(t, "sekrit", "Bearer nope")

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateRejectsNonBearerFormat(t *testing.T) {
	rec, called := runAuth(t, "sekrit", "Basic sekrit")

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateDisabledWithoutConfiguredToken(t *testing.T) {
	rec, called := runAuth(t, "", "")

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}
