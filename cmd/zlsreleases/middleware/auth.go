package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireAdminAuth implements the publish endpoint's Basic-auth gate: a
// constant-time comparison of fixed-length SHA-256 digests of the
// presented and configured credentials, so neither the admin password nor
// its length can be recovered through a timing side channel.
// An unconfigured password is a 500, not a 401: the endpoint is unusable
// until an operator sets one, and that is a server misconfiguration, not
// a caller's bad credentials.
func RequireAdminAuth(username, password string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if password == "" {
				return echo.NewHTTPError(http.StatusInternalServerError, "publish admin credential is not configured")
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader != "" && !strings.HasPrefix(authHeader, "Basic ") {
				return echo.NewHTTPError(http.StatusBadRequest, "malformed Authorization scheme, expected Basic")
			}

			user, pass, ok := c.Request().BasicAuth()
			if !ok {
				c.Response().Header().Set("WWW-Authenticate", `Basic realm="admin"`)
				if authHeader == "" {
					return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
				}
				return echo.NewHTTPError(http.StatusBadRequest, "malformed Basic credentials")
			}

			gotUser, wantUser := sha256.Sum256([]byte(user)), sha256.Sum256([]byte(username))
			gotPass, wantPass := sha256.Sum256([]byte(pass)), sha256.Sum256([]byte(password))
			userMatch := subtle.ConstantTimeCompare(gotUser[:], wantUser[:]) == 1
			passMatch := subtle.ConstantTimeCompare(gotPass[:], wantPass[:]) == 1
			if !userMatch || !passMatch {
				c.Response().Header().Set("WWW-Authenticate", `Basic realm="admin"`)
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
			}

			return next(c)
		}
	}
}
