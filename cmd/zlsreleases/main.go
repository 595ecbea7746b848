package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/zigtools/zlsreleases/cmd/zlsreleases/container"
	"github.com/zigtools/zlsreleases/cmd/zlsreleases/middleware"
	"github.com/zigtools/zlsreleases/cmd/zlsreleases/repository"
	"github.com/zigtools/zlsreleases/cmd/zlsreleases/routes"
	"github.com/zigtools/zlsreleases/common/blobstore"
	"github.com/zigtools/zlsreleases/common/bootstrap"
	"github.com/zigtools/zlsreleases/common/db"
	"github.com/zigtools/zlsreleases/common/server"
)

func main() {
	ctx := context.Background()

	components, err := bootstrap.Setup(ctx, "zlsreleases", bootstrap.WithDBInitHook(runSchemaMigrations))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to bootstrap zlsreleases: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize service container: %v\n", err)
		os.Exit(1)
	}

	e := setupEcho()
	setupMiddleware(e)
	setupHealthCheck(e)
	routes.RegisterZLSRoutes(e, serviceContainer)

	startServer(e, components)
}

// runSchemaMigrations creates the zls_releases and zls_blobs tables if
// they do not already exist.
func runSchemaMigrations(database *db.DB) error {
	ctx := context.Background()
	if _, err := database.Exec(ctx, repository.Schema); err != nil {
		return fmt.Errorf("apply release store schema: %w", err)
	}
	if _, err := database.Exec(ctx, blobstore.Schema); err != nil {
		return fmt.Errorf("apply blob store schema: %w", err)
	}
	return nil
}

func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	// HTTPErrorHandler renders the typed validator errors as
	// {"error": "..."} bodies instead of echo's default HTML page.
	e.HTTPErrorHandler = jsonErrorHandler
	return e
}

func jsonErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	message := "internal error"
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		message = fmt.Sprintf("%v", he.Message)
	}
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]string{"error": message})
	}
}

func setupMiddleware(e *echo.Echo) {
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.CORS())
}

func setupHealthCheck(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "zlsreleases",
		})
	})
}

// startServer hands the Echo router to the common server wrapper, which
// owns graceful shutdown on SIGINT/SIGTERM.
func startServer(e *echo.Echo, components *bootstrap.Components) {
	srv := server.New(
		components.Config.Service.Name,
		components.Config.Service.Port,
		e,
		components.Logger,
	)

	if err := srv.Start(); err != nil {
		components.Logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
