// Package routes registers the HTTP surface, one function per resource
// group.
package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/zigtools/zlsreleases/cmd/zlsreleases/container"
	"github.com/zigtools/zlsreleases/cmd/zlsreleases/handlers"
	zlsmw "github.com/zigtools/zlsreleases/cmd/zlsreleases/middleware"
)

// RegisterZLSRoutes registers the select-version, index, and publish
// routes under /v1/zls.
func RegisterZLSRoutes(e *echo.Echo, c *container.Container) {
	selectVersionHandler := handlers.NewSelectVersionHandler(c.Components, c.Selector, c.Formatter)
	indexHandler := handlers.NewIndexHandler(c.Components)
	publishHandler := handlers.NewPublishHandler(c.Components, c.Publisher)

	publishAuth := zlsmw.RequireAdminAuth(c.Components.Config.Publish.AdminUsername, c.Components.Config.Publish.AdminPassword)
	publishRateLimit := zlsmw.NewRateLimiter(
		c.Components.Config.Publish.RateLimitPerMinute,
		c.Components.Config.Publish.RateLimitBurst,
	).Middleware()

	zls := e.Group("/v1/zls")
	zls.GET("/select-version", selectVersionHandler.SelectVersion)
	zls.GET("/index.json", indexHandler.Index)
	zls.POST("/publish", publishHandler.Publish, publishAuth, publishRateLimit)
	zls.POST("/publish/multipart", publishHandler.PublishMultipart, publishAuth, publishRateLimit)
}
