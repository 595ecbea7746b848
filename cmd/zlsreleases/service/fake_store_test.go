package service

import (
	"context"

	"github.com/zigtools/zlsreleases/cmd/zlsreleases/models"
)

// fakeStore is an in-memory ReleaseStore for exercising the selector and
// validator without a database, using a hand-rolled fake rather than a
// generated mock.
type fakeStore struct {
	records map[string]*models.ReleaseRecord
}

func newFakeStore(records ...*models.ReleaseRecord) *fakeStore {
	s := &fakeStore{records: map[string]*models.ReleaseRecord{}}
	for _, r := range records {
		s.records[r.ZLSVersion.String()] = r
	}
	return s
}

func (s *fakeStore) AllTaggedDesc(ctx context.Context) ([]*models.ReleaseRecord, error) {
	var out []*models.ReleaseRecord
	for _, r := range s.records {
		if r.ZLSVersion.IsTagged() {
			out = append(out, r)
		}
	}
	sortRecordsDesc(out)
	return out, nil
}

func (s *fakeStore) AllTaggedAsc(ctx context.Context) ([]*models.ReleaseRecord, error) {
	out, _ := s.AllTaggedDesc(ctx)
	reverseRecords(out)
	return out, nil
}

func (s *fakeStore) TaggedByMinor(ctx context.Context, major, minor uint64) ([]*models.ReleaseRecord, error) {
	var out []*models.ReleaseRecord
	for _, r := range s.records {
		if r.ZLSVersion.IsTagged() && r.ZLSVersion.Major == major && r.ZLSVersion.Minor == minor {
			out = append(out, r)
		}
	}
	sortRecordsDesc(out)
	return out, nil
}

func (s *fakeStore) DevByMinor(ctx context.Context, major, minor uint64) ([]*models.ReleaseRecord, error) {
	var out []*models.ReleaseRecord
	for _, r := range s.records {
		if !r.ZLSVersion.IsTagged() && r.ZLSVersion.Major == major && r.ZLSVersion.Minor == minor {
			out = append(out, r)
		}
	}
	// Ascending by commitHeight, per devByMinor's documented order.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].ZLSVersion.Dev.CommitHeight > out[j].ZLSVersion.Dev.CommitHeight; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out, nil
}

func (s *fakeStore) DevByQuad(ctx context.Context, major, minor, patch, commitHeight uint64) (*models.ReleaseRecord, error) {
	for _, r := range s.records {
		if !r.ZLSVersion.IsTagged() &&
			r.ZLSVersion.Major == major && r.ZLSVersion.Minor == minor &&
			r.ZLSVersion.Patch == patch && r.ZLSVersion.Dev.CommitHeight == commitHeight {
			return r, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) GetByVersion(ctx context.Context, version models.Version) (*models.ReleaseRecord, error) {
	return s.records[version.String()], nil
}

func (s *fakeStore) UpsertAndPatch(ctx context.Context, rec *models.ReleaseRecord, zigVersion models.Version, compat models.Compatibility) (bool, error) {
	existing, ok := s.records[rec.ZLSVersion.String()]
	created := !ok
	if !ok {
		existing = rec
		s.records[rec.ZLSVersion.String()] = existing
	}
	if existing.TestedZigVersions == nil {
		existing.TestedZigVersions = map[string]models.Compatibility{}
	}
	existing.TestedZigVersions[zigVersion.String()] = compat
	return created, nil
}

func sortRecordsDesc(records []*models.ReleaseRecord) {
	for i := 1; i < len(records); i++ {
		for j := i; j > 0 && models.CompareVersions(records[j-1].ZLSVersion, records[j].ZLSVersion) == models.LT; j-- {
			records[j-1], records[j] = records[j], records[j-1]
		}
	}
}

func reverseRecords(records []*models.ReleaseRecord) {
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
}

func mustVersion(s string) models.Version {
	v, err := models.ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func tested(pairs ...string) map[string]models.Compatibility {
	m := map[string]models.Compatibility{}
	for i := 0; i < len(pairs); i += 2 {
		compat, err := models.ParseCompatibility(pairs[i+1])
		if err != nil {
			panic(err)
		}
		m[pairs[i]] = compat
	}
	return m
}
