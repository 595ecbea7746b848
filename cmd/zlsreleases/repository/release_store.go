// Package repository implements the release store interface against
// Postgres, with hand-written SQL and an explicit Scan per query.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/jackc/pgx/v5"

	"github.com/zigtools/zlsreleases/cmd/zlsreleases/models"
	"github.com/zigtools/zlsreleases/common/db"
)

// ReleaseStore is the six-query, one-write interface the selector and
// validator depend on. It is implemented here against Postgres and could
// equally be backed by any ordered key/value store that can filter on
// (isRelease, major, minor, patch) and (major, minor, buildId).
type ReleaseStore interface {
	AllTaggedDesc(ctx context.Context) ([]*models.ReleaseRecord, error)
	AllTaggedAsc(ctx context.Context) ([]*models.ReleaseRecord, error)
	TaggedByMinor(ctx context.Context, major, minor uint64) ([]*models.ReleaseRecord, error)
	DevByMinor(ctx context.Context, major, minor uint64) ([]*models.ReleaseRecord, error)
	DevByQuad(ctx context.Context, major, minor, patch, commitHeight uint64) (*models.ReleaseRecord, error)
	GetByVersion(ctx context.Context, version models.Version) (*models.ReleaseRecord, error)

	// UpsertAndPatch performs the atomic batch: insert the record if its
	// key is absent (no-op on the main row otherwise), then
	// merge {zigVersion: compatibility} into the resulting row's
	// testedZigVersions, all inside one transaction. It returns whether
	// the insert branch actually ran (i.e. this is the record's first
	// publish), which the validator needs to decide whether to schedule
	// blob writes and a fresh index materialization.
	UpsertAndPatch(ctx context.Context, rec *models.ReleaseRecord, zigVersion models.Version, compat models.Compatibility) (created bool, err error)
}

// ReleaseRepository is the pgx-backed ReleaseStore. The persisted shape is
// table zls_releases(zls_version PK, major, minor, patch, is_release,
// build_id NULL, data JSONB), with indexes (is_release, major, minor,
// patch) and (major, minor, build_id) WHERE NOT is_release.
type ReleaseRepository struct {
	db *db.DB
}

// NewReleaseRepository creates a new release repository.
func NewReleaseRepository(database *db.DB) *ReleaseRepository {
	return &ReleaseRepository{db: database}
}

const selectRecordColumns = `zls_version, data`

func scanRecord(row pgx.Row) (*models.ReleaseRecord, error) {
	var zlsVersion string
	var data []byte
	if err := row.Scan(&zlsVersion, &data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan release record: %w", err)
	}
	rec, err := models.LoadReleaseRecord(data, json.Unmarshal)
	if err != nil {
		return nil, fmt.Errorf("load release record %s: %w", zlsVersion, err)
	}
	return rec, nil
}

func scanRecords(rows pgx.Rows) ([]*models.ReleaseRecord, error) {
	defer rows.Close()

	var records []*models.ReleaseRecord
	for rows.Next() {
		var zlsVersion string
		var data []byte
		if err := rows.Scan(&zlsVersion, &data); err != nil {
			return nil, fmt.Errorf("scan release record row: %w", err)
		}
		rec, err := models.LoadReleaseRecord(data, json.Unmarshal)
		if err != nil {
			return nil, fmt.Errorf("load release record %s: %w", zlsVersion, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate release records: %w", err)
	}
	return records, nil
}

// AllTaggedDesc returns tagged records only, ordered by (major, minor,
// patch) descending. Hits the (is_release, major, minor, patch) index.
func (r *ReleaseRepository) AllTaggedDesc(ctx context.Context) ([]*models.ReleaseRecord, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM zls_releases
		WHERE is_release
		ORDER BY major DESC, minor DESC, patch DESC
	`, selectRecordColumns))
	if err != nil {
		return nil, fmt.Errorf("query all tagged desc: %w", err)
	}
	return scanRecords(rows)
}

// AllTaggedAsc returns tagged records only, same filter as AllTaggedDesc
// but ascending.
func (r *ReleaseRepository) AllTaggedAsc(ctx context.Context) ([]*models.ReleaseRecord, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM zls_releases
		WHERE is_release
		ORDER BY major ASC, minor ASC, patch ASC
	`, selectRecordColumns))
	if err != nil {
		return nil, fmt.Errorf("query all tagged asc: %w", err)
	}
	return scanRecords(rows)
}

// TaggedByMinor returns tagged records for one (major, minor) pair,
// ordered by patch descending.
func (r *ReleaseRepository) TaggedByMinor(ctx context.Context, major, minor uint64) ([]*models.ReleaseRecord, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM zls_releases
		WHERE is_release AND major = $1 AND minor = $2
		ORDER BY patch DESC
	`, selectRecordColumns), major, minor)
	if err != nil {
		return nil, fmt.Errorf("query tagged by minor: %w", err)
	}
	return scanRecords(rows)
}

// DevByMinor returns development records for one (major, minor) pair,
// ordered by commitHeight ascending. Hits the (major, minor, build_id)
// WHERE NOT is_release index.
func (r *ReleaseRepository) DevByMinor(ctx context.Context, major, minor uint64) ([]*models.ReleaseRecord, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM zls_releases
		WHERE NOT is_release AND major = $1 AND minor = $2
		ORDER BY build_id ASC
	`, selectRecordColumns), major, minor)
	if err != nil {
		return nil, fmt.Errorf("query dev by minor: %w", err)
	}
	return scanRecords(rows)
}

// DevByQuad returns the development record at an exact
// (major, minor, patch, commitHeight) quad, if one exists.
func (r *ReleaseRepository) DevByQuad(ctx context.Context, major, minor, patch, commitHeight uint64) (*models.ReleaseRecord, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM zls_releases
		WHERE NOT is_release AND major = $1 AND minor = $2 AND patch = $3 AND build_id = $4
	`, selectRecordColumns), major, minor, patch, commitHeight)
	return scanRecord(row)
}

// GetByVersion returns the record at an exact version match.
func (r *ReleaseRepository) GetByVersion(ctx context.Context, version models.Version) (*models.ReleaseRecord, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM zls_releases WHERE zls_version = $1
	`, selectRecordColumns), version.String())
	return scanRecord(row)
}

// UpsertAndPatch runs the publish-acceptance write as a single SQL
// transaction: insert-if-absent of the main row, then a JSON merge patch
// (RFC 7396, via evanphx/json-patch/v5) of
// {"testedZigVersions": {zig: compat}} into whichever row now exists —
// the one just inserted, or a pre-existing one being annotated with a new
// CI datapoint. This keeps testedZigVersions consistent with the record's
// own existence the instant the row becomes visible to readers.
func (r *ReleaseRepository) UpsertAndPatch(ctx context.Context, rec *models.ReleaseRecord, zigVersion models.Version, compat models.Compatibility) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin publish transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	data, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("marshal release record: %w", err)
	}

	major, minor, patch, buildID, isRelease := partitionColumns(rec.ZLSVersion)

	tag, err := tx.Exec(ctx, `
		INSERT INTO zls_releases (zls_version, major, minor, patch, is_release, build_id, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (zls_version) DO NOTHING
	`, rec.ZLSVersion.String(), major, minor, patch, isRelease, buildID, data)
	if err != nil {
		return false, fmt.Errorf("upsert release record: %w", err)
	}
	created := tag.RowsAffected() == 1

	var current []byte
	if err := tx.QueryRow(ctx, `SELECT data FROM zls_releases WHERE zls_version = $1`, rec.ZLSVersion.String()).Scan(&current); err != nil {
		return false, fmt.Errorf("read release record for patch: %w", err)
	}

	merge, err := json.Marshal(map[string]interface{}{
		"testedZigVersions": map[string]models.Compatibility{zigVersion.String(): compat},
	})
	if err != nil {
		return false, fmt.Errorf("marshal tested-zig-versions patch: %w", err)
	}

	patched, err := jsonpatch.MergePatch(current, merge)
	if err != nil {
		return false, fmt.Errorf("apply tested-zig-versions merge patch: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE zls_releases SET data = $1 WHERE zls_version = $2`, patched, rec.ZLSVersion.String()); err != nil {
		return false, fmt.Errorf("write patched release record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit publish transaction: %w", err)
	}
	return created, nil
}

// partitionColumns extracts the hot columns the two table indexes are
// built over from a ZLS version.
func partitionColumns(v models.Version) (major, minor, patch uint64, buildID *uint64, isRelease bool) {
	if v.IsTagged() {
		return v.Major, v.Minor, v.Patch, nil, true
	}
	height := v.Dev.CommitHeight
	return v.Major, v.Minor, v.Patch, &height, false
}

// Schema is the DDL for the zls_releases table and its two indexes.
// Exposed so bootstrap can run it as a migration hook via
// bootstrap.WithDBInitHook, and so tests against a real Postgres can set
// up their own schema without depending on an external migration tool.
const Schema = `
CREATE TABLE IF NOT EXISTS zls_releases (
	zls_version TEXT PRIMARY KEY,
	major       BIGINT NOT NULL,
	minor       BIGINT NOT NULL,
	patch       BIGINT NOT NULL,
	is_release  BOOLEAN NOT NULL,
	build_id    BIGINT,
	data        JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS zls_releases_tagged_idx
	ON zls_releases (is_release, major, minor, patch);

CREATE INDEX IF NOT EXISTS zls_releases_dev_idx
	ON zls_releases (major, minor, build_id)
	WHERE NOT is_release;
`
