package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zigtools/zlsreleases/cmd/zlsreleases/models"
	"github.com/zigtools/zlsreleases/cmd/zlsreleases/service"
	"github.com/zigtools/zlsreleases/common/bootstrap"
)

// SelectVersionHandler serves the read path: select the best ZLS release
// for a requested Zig version and compatibility regime.
type SelectVersionHandler struct {
	components *bootstrap.Components
	selector   *service.Selector
	formatter  *service.Formatter
}

// NewSelectVersionHandler creates a new select-version handler.
func NewSelectVersionHandler(components *bootstrap.Components, selector *service.Selector, formatter *service.Formatter) *SelectVersionHandler {
	return &SelectVersionHandler{components: components, selector: selector, formatter: formatter}
}

// SelectVersion handles GET /v1/zls/select-version.
func (h *SelectVersionHandler) SelectVersion(c echo.Context) error {
	ctx := c.Request().Context()

	if h.components.Config.Service.PublicURLBase == "" {
		return echo.NewHTTPError(http.StatusInternalServerError, "public URL base is not configured")
	}

	zigVersionRaw := c.QueryParam("zig_version")
	if zigVersionRaw == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "zig_version is required")
	}
	zigVersion, err := models.ParseVersion(zigVersionRaw)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	compatRaw := c.QueryParam("compatibility")
	if compatRaw == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "compatibility is required")
	}
	compat, err := models.ParseRequestedCompatibility(compatRaw)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.selector.SelectVersion(ctx, zigVersion, compat)
	if err != nil {
		h.components.Logger.Error("select-version failed", "zig_version", zigVersionRaw, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	// Tagged selections are cacheable for longer: a tagged Zig's answer
	// only changes when a new ZLS tag is published for its minor, which
	// is rare. Development-build answers can change on every CI run.
	if zigVersion.IsTagged() {
		c.Response().Header().Set("Cache-Control", "public, max-age=3600")
	} else {
		c.Response().Header().Set("Cache-Control", "public, max-age=300")
	}

	if result.IsFailure() {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"code":    int(*result.Failure),
			"message": result.Failure.Message(zigVersion),
		})
	}

	body, err := h.formatter.FormatRelease(result.Record)
	if err != nil {
		h.components.Logger.Error("format release failed", "zls_version", result.Record.ZLSVersion.String(), "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, body)
}
