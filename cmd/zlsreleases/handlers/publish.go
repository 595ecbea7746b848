package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zigtools/zlsreleases/cmd/zlsreleases/models"
	"github.com/zigtools/zlsreleases/cmd/zlsreleases/service"
	"github.com/zigtools/zlsreleases/common/bootstrap"
)

// PublishHandler serves the write path: validate and accept (or reject) a
// publish request.
type PublishHandler struct {
	components *bootstrap.Components
	publisher  *service.Publisher
}

// NewPublishHandler creates a new publish handler.
func NewPublishHandler(components *bootstrap.Components, publisher *service.Publisher) *PublishHandler {
	return &PublishHandler{components: components, publisher: publisher}
}

// Publish handles POST /v1/zls/publish with the canonical JSON body:
// artifact metadata only, no inline bytes. Bytes are expected to already
// be staged in the blob store under the matching VersionedBlobKey by
// whatever uploaded them.
func (h *PublishHandler) Publish(c echo.Context) error {
	var req models.PublishRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	return h.publish(c, &req)
}

// PublishMultipart handles the legacy form-encoded publish variant:
// metadata fields plus the raw artifact bytes (and optional .minisig
// sidecars) as file parts, kept alongside the JSON endpoint for
// compatibility with older uploaders.
func (h *PublishHandler) PublishMultipart(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed multipart form")
	}

	req := &models.PublishRequest{
		ZLSVersion:               c.FormValue("zlsVersion"),
		ZigVersion:               c.FormValue("zigVersion"),
		MinimumBuildZigVersion:   c.FormValue("minimumBuildZigVersion"),
		MinimumRuntimeZigVersion: c.FormValue("minimumRuntimeZigVersion"),
		Compatibility:            c.FormValue("compatibility"),
		Artifacts:                map[string]models.ArtifactUpload{},
	}

	sigParts := map[string][]byte{}
	for fileName, headers := range form.File {
		if len(headers) == 0 {
			continue
		}
		content, err := readFormFile(headers[0])
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "failed to read artifact part "+fileName)
		}
		if len(fileName) > 8 && fileName[len(fileName)-8:] == ".minisig" {
			sigParts[fileName[:len(fileName)-8]] = content
			continue
		}
		req.Artifacts[fileName] = models.ArtifactUpload{
			FileName: fileName,
			Shasum:   c.FormValue(fileName + ".shasum"),
			Size:     int64(len(content)),
			Content:  content,
		}
	}
	for baseName, sig := range sigParts {
		if upload, ok := req.Artifacts[baseName]; ok {
			upload.Minisig = sig
			req.Artifacts[baseName] = upload
		}
	}

	return h.publish(c, req)
}

func readFormFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *PublishHandler) publish(c echo.Context, req *models.PublishRequest) error {
	ctx := c.Request().Context()

	outcome, err := h.publisher.Publish(ctx, req)
	if err != nil {
		return publishErrorResponse(err)
	}

	h.components.Logger.Info("published release",
		"zls_version", outcome.Record.ZLSVersion.String(),
		"first_write", outcome.FirstWrite,
		"uploads", len(outcome.Uploads),
	)
	return c.NoContent(http.StatusOK)
}

// publishErrorResponse maps a validator error to the handler's 4xx
// taxonomy; an unsupported major version alone gets a fixed 418 response.
func publishErrorResponse(err error) error {
	if errors.Is(err, models.ErrUnsupportedMajor) {
		return echo.NewHTTPError(http.StatusTeapot, err.Error())
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
