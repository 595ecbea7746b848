package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zigtools/zlsreleases/common/bootstrap"
)

// IndexHandler serves GET /v1/zls/index.json by redirecting to the
// materialized blob under the configured public URL base: the index is
// written once per publish, not computed per-request.
type IndexHandler struct {
	components *bootstrap.Components
}

// NewIndexHandler creates a new index handler.
func NewIndexHandler(components *bootstrap.Components) *IndexHandler {
	return &IndexHandler{components: components}
}

// Index issues a 301 redirect to the public URL of the materialized
// index.json blob.
func (h *IndexHandler) Index(c echo.Context) error {
	base := h.components.Config.Service.PublicURLBase
	if base == "" {
		return echo.NewHTTPError(http.StatusInternalServerError, "public URL base is not configured")
	}
	return c.Redirect(http.StatusMovedPermanently, base+"/index.json")
}
