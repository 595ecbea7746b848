package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// CORS implements permissive, hand-rolled preflight handling: every
// response carries a wide-open CORS header set, and OPTIONS requests are
// answered directly rather than falling through to a route handler. The
// echo/v4 middleware.CORS() helper targets a single default policy; this
// handler's rule for distinguishing an actual preflight from a bare
// OPTIONS probe needs its own branch.
func CORS() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("Access-Control-Allow-Origin", "*")
			h.Set("Access-Control-Allow-Methods", "GET, HEAD, POST, OPTIONS")

			if c.Request().Method != http.MethodOptions {
				return next(c)
			}

			req := c.Request()
			if req.Header.Get("Origin") != "" &&
				req.Header.Get("Access-Control-Request-Method") != "" &&
				req.Header.Get("Access-Control-Request-Headers") != "" {
				h.Set("Access-Control-Allow-Headers", req.Header.Get("Access-Control-Request-Headers"))
				h.Set("Access-Control-Max-Age", "86400")
				return c.NoContent(http.StatusOK)
			}

			h.Set("Allow", "GET, HEAD, POST, OPTIONS")
			return c.NoContent(http.StatusOK)
		}
	}
}
