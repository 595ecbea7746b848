package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zigtools/zlsreleases/common/logger"
)

type fakeBlobStore struct {
	objects map[string][]byte
	types   map[string]string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeBlobStore) Put(ctx context.Context, key, contentType string, content []byte, shasum string) error {
	f.objects[key] = content
	f.types[key] = contentType
	return nil
}

func (f *fakeBlobStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	return f.objects[key], f.types[key], nil
}

func (f *fakeBlobStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := f.objects[key]
	return ok, nil
}

// TestMaterializeIsIdempotent checks that re-running against unchanged
// storage yields byte-equal JSON.
func TestMaterializeIsIdempotent(t *testing.T) {
	store := sampleSet()
	selector := NewSelector(store, logger.New("error", "json"))
	formatter := NewFormatter("https://builds.zigtools.org")
	blobs := newFakeBlobStore()
	m := NewMaterializer(selector, formatter, blobs, logger.New("error", "json"))

	require.NoError(t, m.Materialize(context.Background()))
	first := append([]byte(nil), blobs.objects[indexObjectKey]...)

	require.NoError(t, m.Materialize(context.Background()))
	second := blobs.objects[indexObjectKey]

	assert.Equal(t, first, second)
	assert.Equal(t, "application/json", blobs.types[indexObjectKey])
}

func TestMaterializeOnlyIncludesTaggedRecords(t *testing.T) {
	store := sampleSet()
	selector := NewSelector(store, logger.New("error", "json"))
	formatter := NewFormatter("https://builds.zigtools.org")
	blobs := newFakeBlobStore()
	m := NewMaterializer(selector, formatter, blobs, logger.New("error", "json"))

	require.NoError(t, m.Materialize(context.Background()))
	data := blobs.objects[indexObjectKey]
	assert.NotContains(t, string(data), "0.12.0-dev")
	assert.Contains(t, string(data), "0.12.0")
	assert.Contains(t, string(data), "0.13.0")
}
