package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zigtools/zlsreleases/cmd/zlsreleases/models"
	"github.com/zigtools/zlsreleases/common/blobstore"
	"github.com/zigtools/zlsreleases/common/logger"
	"github.com/zigtools/zlsreleases/common/queue"
)

// deferredWorkTopic is the MemoryQueue topic the publish handler's
// post-commit hooks are dispatched on.
const deferredWorkTopic = "zlsreleases.deferred-work"

// Publisher sits in front of the Validator and owns the two things the
// validator's Publish call must not block on: writing artifact bytes to
// the blob store, and re-materializing index.json. It subscribes to its
// own deferred-work topic at construction so callers only ever call
// Publish.
type Publisher struct {
	validator    *Validator
	blobs        blobstore.Store
	materializer *Materializer
	queue        queue.Queue
	log          *logger.Logger
}

// NewPublisher creates a new Publisher and subscribes its deferred-work
// handler to q.
func NewPublisher(validator *Validator, blobs blobstore.Store, materializer *Materializer, q queue.Queue, log *logger.Logger) *Publisher {
	p := &Publisher{validator: validator, blobs: blobs, materializer: materializer, queue: q, log: log}

	// The subscription runs for the lifetime of the process: it is given
	// context.Background(), which is never cancelled.
	if err := q.Subscribe(context.Background(), deferredWorkTopic, p.handleDeferredWork); err != nil {
		log.Error("failed to subscribe publisher to deferred-work topic", "error", err)
	}
	return p
}

// Publish runs the validator's eight checks and, on acceptance, schedules
// the deferred work rather than performing it inline.
func (p *Publisher) Publish(ctx context.Context, req *models.PublishRequest) (*PublishOutcome, error) {
	outcome, err := p.validator.Publish(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(outcome.Uploads) == 0 && !outcome.FirstWrite {
		return outcome, nil
	}

	queuedUploads := make([]queuedUpload, len(outcome.Uploads))
	for i, u := range outcome.Uploads {
		queuedUploads[i] = queuedUpload{FileName: u.FileName, Shasum: u.Shasum, Size: u.Size, Content: u.Content, Minisig: u.Minisig}
	}

	work := deferredWorkPayload{
		ZLSVersion:  outcome.Record.ZLSVersion.String(),
		Uploads:     queuedUploads,
		Materialize: outcome.FirstWrite,
	}
	payload, err := json.Marshal(work)
	if err != nil {
		return nil, fmt.Errorf("marshal deferred work: %w", err)
	}

	if err := p.queue.Publish(ctx, deferredWorkTopic, outcome.Record.ZLSVersion.String(), payload); err != nil {
		// The record is already committed, so a failure here is logged,
		// not returned; the blob writes and index refresh for this
		// publish are not run and nothing re-enqueues them.
		p.log.Error("failed to enqueue deferred work", "zls_version", outcome.Record.ZLSVersion.String(), "error", err)
	}

	return outcome, nil
}

// queuedUpload is the deferred-work wire shape for one artifact upload.
// Unlike models.ArtifactUpload (whose Content/Minisig are tagged json:"-"
// because a PublishRequest never carries them inline), this struct must
// round-trip the raw bytes through the queue, so it gives them ordinary
// json tags; encoding/json base64-encodes a []byte field automatically.
type queuedUpload struct {
	FileName string `json:"fileName"`
	Shasum   string `json:"shasum"`
	Size     int64  `json:"size"`
	Content  []byte `json:"content"`
	Minisig  []byte `json:"minisig,omitempty"`
}

// deferredWorkPayload is the wire shape enqueued on the MemoryQueue; it
// carries the version string (not the full record) since the handler only
// needs it to re-read state and to key the upload's blob entries.
type deferredWorkPayload struct {
	ZLSVersion  string         `json:"zlsVersion"`
	Uploads     []queuedUpload `json:"uploads"`
	Materialize bool           `json:"materialize"`
}

func (p *Publisher) handleDeferredWork(ctx context.Context, key string, value []byte) error {
	var work deferredWorkPayload
	if err := json.Unmarshal(value, &work); err != nil {
		return fmt.Errorf("decode deferred work for %s: %w", key, err)
	}

	zlsVersion, err := models.ParseVersion(work.ZLSVersion)
	if err != nil {
		return fmt.Errorf("parse deferred work version %q: %w", work.ZLSVersion, err)
	}

	for _, upload := range work.Uploads {
		// The canonical JSON publish contract carries artifact metadata
		// only; callers using it are expected to have already staged
		// bytes in the blob store out-of-band, keyed by
		// the same VersionedBlobKey. Only the legacy multipart publish
		// path populates Content, so this is the only branch that
		// actually performs a write.
		if len(upload.Content) == 0 {
			continue
		}
		parsed, err := models.ParseArtifactFileName(upload.FileName)
		if err != nil {
			p.log.Error("skipping malformed deferred upload", "file_name", upload.FileName, "error", err)
			continue
		}
		artifact := models.ReleaseArtifact{
			OS:         parsed.OS,
			Arch:       parsed.Arch,
			Version:    zlsVersion,
			Extension:  parsed.Extension,
			FileShasum: upload.Shasum,
			FileSize:   upload.Size,
		}
		if err := p.blobs.Put(ctx, artifact.VersionedBlobKey(), "application/octet-stream", upload.Content, upload.Shasum); err != nil {
			return fmt.Errorf("write artifact blob %s: %w", artifact.VersionedBlobKey(), err)
		}
		if len(upload.Minisig) > 0 {
			sigKey := artifact.VersionedBlobKey() + ".minisig"
			if err := p.blobs.Put(ctx, sigKey, "application/octet-stream", upload.Minisig, shasumHex(upload.Minisig)); err != nil {
				return fmt.Errorf("write minisig blob %s: %w", sigKey, err)
			}
		}
	}

	if work.Materialize {
		if err := p.materializer.Materialize(ctx); err != nil {
			return fmt.Errorf("materialize index after publishing %s: %w", work.ZLSVersion, err)
		}
	}

	p.log.Info("deferred work complete", "zls_version", work.ZLSVersion, "uploads", len(work.Uploads), "materialized", work.Materialize)
	return nil
}
