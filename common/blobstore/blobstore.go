// Package blobstore implements a key/value blob store against Postgres:
// an inline-content-or-storage_url table, content-addressed by the
// caller-supplied shasum.
package blobstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/zigtools/zlsreleases/common/db"
)

// Store is the object-key/value abstraction that release artifacts and the
// materialized index.json are published through.
type Store interface {
	// Put writes content under key, content-addressed by shasum. It is
	// idempotent by key and shasum: writing the same key with the same
	// shasum again is a no-op; a different shasum replaces the content.
	Put(ctx context.Context, key, contentType string, content []byte, shasum string) error
	// Get retrieves content and its content type.
	Get(ctx context.Context, key string) ([]byte, string, error)
	// Exists reports whether key has been written.
	Exists(ctx context.Context, key string) (bool, error)
}

// PostgresStore is a Store backed by a Postgres table (content BYTEA,
// storage_url TEXT nullable). storage_url is left for a future
// CDN-fronted deployment; this implementation always serves from content.
type PostgresStore struct {
	db *db.DB
}

// New creates a new Postgres-backed blob store.
func New(database *db.DB) *PostgresStore {
	return &PostgresStore{db: database}
}

// Schema is the DDL for the blob table, analogous to the zls_releases
// table's schema constant.
const Schema = `
CREATE TABLE IF NOT EXISTS zls_blobs (
	object_key   TEXT PRIMARY KEY,
	content_type TEXT NOT NULL,
	shasum       TEXT NOT NULL,
	size_bytes   BIGINT NOT NULL,
	content      BYTEA NOT NULL,
	storage_url  TEXT
);
`

// Put writes content under key. A conflicting key with the same shasum
// is left untouched, so repeated writes of the same artifact are a cheap
// no-op; a different shasum (such as a re-materialized index.json)
// replaces the stored content.
func (s *PostgresStore) Put(ctx context.Context, key, contentType string, content []byte, shasum string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO zls_blobs (object_key, content_type, shasum, size_bytes, content)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (object_key) DO UPDATE SET
			content_type = EXCLUDED.content_type,
			shasum       = EXCLUDED.shasum,
			size_bytes   = EXCLUDED.size_bytes,
			content      = EXCLUDED.content
		WHERE zls_blobs.shasum <> EXCLUDED.shasum
	`, key, contentType, shasum, len(content), content)
	if err != nil {
		return fmt.Errorf("put blob %s: %w", key, err)
	}
	return nil
}

// ErrNotFound is returned by Get when key has not been written.
var ErrNotFound = errors.New("blob not found")

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	var content []byte
	var contentType string
	err := s.db.QueryRow(ctx, `
		SELECT content, content_type FROM zls_blobs WHERE object_key = $1
	`, key).Scan(&content, &contentType)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("get blob %s: %w", key, err)
	}
	return content, contentType, nil
}

func (s *PostgresStore) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM zls_blobs WHERE object_key = $1)`, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check blob existence %s: %w", key, err)
	}
	return exists, nil
}
