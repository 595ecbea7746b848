package service

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/zigtools/zlsreleases/common/blobstore"
	"github.com/zigtools/zlsreleases/common/logger"
)

// indexObjectKey is the well-known blob store key for the materialized
// index.
const indexObjectKey = "index.json"

// Materializer runs on any publish that creates a new tagged record (or a
// new dev record's first artifacts): fetch all tagged records descending,
// render via the formatter, and write the JSON blob atomically at
// index.json.
type Materializer struct {
	selector  *Selector
	formatter *Formatter
	blobs     blobstore.Store
	log       *logger.Logger
}

// NewMaterializer creates a new index materializer.
func NewMaterializer(selector *Selector, formatter *Formatter, blobs blobstore.Store, log *logger.Logger) *Materializer {
	return &Materializer{selector: selector, formatter: formatter, blobs: blobs, log: log}
}

// Materialize computes the index.json snapshot and writes it to the blob
// store. It is idempotent: re-running against unchanged storage produces
// byte-equal JSON, because FormatIndex is a pure function of the tagged
// records and json.Marshal on a stable Go structure is deterministic for
// a given input.
func (m *Materializer) Materialize(ctx context.Context) error {
	tagged, err := m.selector.ListAllTagged(ctx)
	if err != nil {
		return fmt.Errorf("list all tagged for materialization: %w", err)
	}

	index, err := m.formatter.FormatIndex(tagged)
	if err != nil {
		return fmt.Errorf("format index: %w", err)
	}

	data, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	shasum := shasumHex(data)
	if err := m.blobs.Put(ctx, indexObjectKey, "application/json", data, shasum); err != nil {
		return fmt.Errorf("write index blob: %w", err)
	}

	m.log.Info("materialized index.json", "tagged_releases", len(tagged), "bytes", len(data))
	return nil
}

// shasumHex computes the content-addressing digest used by the blob store.
func shasumHex(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}
