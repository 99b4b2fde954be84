package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"spotfence/config"

	"github.com/labstack/echo/v4"
)

// AuthMiddleware guards the API with the static bearer token shared between
// the companion app and this service. There is exactly one paired client, so
// a shared secret is the whole authentication model.
type AuthMiddleware struct {
	token string
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(cfg *config.Config) *AuthMiddleware {
	return &AuthMiddleware{token: cfg.HTTP.APIToken}
}

// Authenticate validates the Authorization bearer token. When no token is
// configured the check is disabled, which is only acceptable in development.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if m.token == "" {
			return next(c)
		}

		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Authorization header is missing"})
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid token format, must be Bearer token"})
		}

		if subtle.ConstantTimeCompare([]byte(tokenString), []byte(m.token)) != 1 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid token"})
		}

		return next(c)
	}
}
