// Package container wires repositories and services onto bootstrap
// components as a set of long-lived singletons constructed once at
// startup.
package container

import (
	"time"

	"github.com/zigtools/zlsreleases/cmd/zlsreleases/repository"
	"github.com/zigtools/zlsreleases/cmd/zlsreleases/service"
	"github.com/zigtools/zlsreleases/common/blobstore"
	"github.com/zigtools/zlsreleases/common/bootstrap"
)

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// Container holds all initialized services and repositories.
type Container struct {
	Components *bootstrap.Components

	ReleaseRepo *repository.ReleaseRepository
	Blobs       *blobstore.PostgresStore

	Selector     *service.Selector
	Validator    *service.Validator
	Formatter    *service.Formatter
	Materializer *service.Materializer
	Publisher    *service.Publisher
}

// NewContainer initializes all services and repositories once.
func NewContainer(components *bootstrap.Components) (*Container, error) {
	releaseRepo := repository.NewReleaseRepository(components.DB)
	blobs := blobstore.New(components.DB)

	selector := service.NewSelector(releaseRepo, components.Logger)
	formatter := service.NewFormatter(components.Config.Service.PublicURLBase)
	materializer := service.NewMaterializer(selector, formatter, blobs, components.Logger)
	validator := service.NewValidator(releaseRepo, components.Config.Publish.ForceMinisign, nowMillis, components.Logger)
	publisher := service.NewPublisher(validator, blobs, materializer, components.Queue, components.Logger)

	return &Container{
		Components:   components,
		ReleaseRepo:  releaseRepo,
		Blobs:        blobs,
		Selector:     selector,
		Validator:    validator,
		Formatter:    formatter,
		Materializer: materializer,
		Publisher:    publisher,
	}, nil
}
