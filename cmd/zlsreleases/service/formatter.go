package service

import (
	"fmt"
	"time"

	"github.com/zigtools/zlsreleases/cmd/zlsreleases/models"
)

// ArtifactManifest is the wire shape of one "<arch>-<os>" entry.
type ArtifactManifest struct {
	Tarball string `json:"tarball"`
	Shasum  string `json:"shasum"`
	Size    string `json:"size"`
}

// Formatter converts a ReleaseRecord plus a public URL base into the wire
// formats clients consume: both the single-release manifest and the
// multi-release index.
type Formatter struct {
	publicURLBase string
}

// NewFormatter creates a new manifest formatter.
func NewFormatter(publicURLBase string) *Formatter {
	return &Formatter{publicURLBase: publicURLBase}
}

// artifactEntries renders r's artifacts into the "<arch>-<os>" map,
// skipping tar.gz (kept only for interoperability with older tooling) and
// asserting that no two artifacts collide on their manifest key.
func (f *Formatter) artifactEntries(r *models.ReleaseRecord) (map[string]ArtifactManifest, error) {
	entries := make(map[string]ArtifactManifest, len(r.Artifacts))
	for _, a := range r.Artifacts {
		if a.Extension == models.ExtTarGZ {
			continue
		}
		key := a.ManifestKey()
		if _, exists := entries[key]; exists {
			return nil, fmt.Errorf("%w: %q", models.ErrDuplicateManifestKey, key)
		}
		entries[key] = ArtifactManifest{
			Tarball: fmt.Sprintf("%s/%s", f.publicURLBase, a.VersionedBlobKey()),
			Shasum:  a.FileShasum,
			Size:    fmt.Sprintf("%d", a.FileSize),
		}
	}
	return entries, nil
}

// FormatRelease renders the single-release response for the selector's
// success path.
func (f *Formatter) FormatRelease(r *models.ReleaseRecord) (map[string]interface{}, error) {
	entries, err := f.artifactEntries(r)
	if err != nil {
		return nil, err
	}

	out := map[string]interface{}{
		"version": r.ZLSVersion.String(),
		"date":    formatDate(r.DateMillis),
	}
	for key, entry := range entries {
		out[key] = entry
	}
	return out, nil
}

// FormatIndex renders the full index.json: each ZLS-version key maps to
// {date, <arch-os>: {...}, ...}, for the set of tagged records returned
// by listAllTagged (already in descending (major, minor, patch) order).
func (f *Formatter) FormatIndex(records []*models.ReleaseRecord) (map[string]interface{}, error) {
	index := make(map[string]interface{}, len(records))
	for _, r := range records {
		entry, err := f.FormatRelease(r)
		if err != nil {
			return nil, fmt.Errorf("format index entry for %s: %w", r.ZLSVersion, err)
		}
		delete(entry, "version")
		index[r.ZLSVersion.String()] = entry
	}
	return index, nil
}

func formatDate(millis int64) string {
	return time.UnixMilli(millis).UTC().Format("2006-01-02")
}
