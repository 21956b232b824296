package cleanup

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oftaclinic/api/internal/storage"
)

type fakeStore struct {
	images  []storage.RemoteImage
	listErr error
	failOn  string
	removed []string
}

func (f *fakeStore) ListImages(ctx context.Context, bucket string) ([]storage.RemoteImage, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.images, nil
}

func (f *fakeStore) Remove(ctx context.Context, bucket, objectKey string) error {
	if objectKey == f.failOn {
		return errors.New("remove failed")
	}
	f.removed = append(f.removed, objectKey)
	return nil
}

type fakeSource struct {
	refs []string
	err  error
}

func (f fakeSource) ImageRefs(ctx context.Context) ([]string, error) {
	return f.refs, f.err
}

func remoteImage(key string, size int64) storage.RemoteImage {
	return storage.RemoteImage{Key: key, SizeBytes: size}
}

func newTestService(store *fakeStore, sources ...ReferenceSource) *Service {
	return NewService(store, "clinic-images", zerolog.Nop(), sources...)
}

func TestFindUnusedIsExactSetDifference(t *testing.T) {
	store := &fakeStore{images: []storage.RemoteImage{
		remoteImage("a.jpg", 100),
		remoteImage("b.jpg", 200),
		remoteImage("c.jpg", 300),
	}}
	svc := newTestService(store, fakeSource{refs: []string{"b.jpg"}})

	unused, err := svc.FindUnused(context.Background())
	require.NoError(t, err)

	keys := make([]string, 0, len(unused))
	for _, img := range unused {
		keys = append(keys, img.Key)
	}
	assert.Equal(t, []string{"a.jpg", "c.jpg"}, keys)
}

func TestFindUnusedUnionsAllSources(t *testing.T) {
	store := &fakeStore{images: []storage.RemoteImage{
		remoteImage("a.jpg", 1),
		remoteImage("b.jpg", 1),
		remoteImage("c.jpg", 1),
	}}
	svc := newTestService(store,
		fakeSource{refs: []string{"a.jpg"}},
		fakeSource{refs: []string{"b.jpg", "a.jpg"}},
	)

	unused, err := svc.FindUnused(context.Background())
	require.NoError(t, err)
	require.Len(t, unused, 1)
	assert.Equal(t, "c.jpg", unused[0].Key)
}

func TestFindUnusedDanglingRefsAreHarmless(t *testing.T) {
	store := &fakeStore{images: []storage.RemoteImage{remoteImage("a.jpg", 1)}}
	svc := newTestService(store, fakeSource{refs: []string{"a.jpg", "ghost.jpg"}})

	unused, err := svc.FindUnused(context.Background())
	require.NoError(t, err)
	assert.Empty(t, unused, "references to missing remote images must not surface")
}

func TestFindUnusedSourceErrorAborts(t *testing.T) {
	store := &fakeStore{images: []storage.RemoteImage{remoteImage("a.jpg", 1)}}
	svc := newTestService(store, fakeSource{err: errors.New("db down")})

	_, err := svc.FindUnused(context.Background())
	assert.Error(t, err)
}

func TestDeleteUnusedReportsEveryDeletedKey(t *testing.T) {
	store := &fakeStore{images: []storage.RemoteImage{
		remoteImage("a.jpg", 1),
		remoteImage("b.jpg", 1),
	}}
	svc := newTestService(store, fakeSource{})

	report, err := svc.DeleteUnused(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.ElementsMatch(t, []string{"a.jpg", "b.jpg"}, report.Deleted)
	assert.ElementsMatch(t, []string{"a.jpg", "b.jpg"}, store.removed)
}

func TestDeleteUnusedAbortsOnFirstFailure(t *testing.T) {
	store := &fakeStore{
		images: []storage.RemoteImage{
			remoteImage("a.jpg", 1),
			remoteImage("b.jpg", 1),
			remoteImage("c.jpg", 1),
		},
		failOn: "b.jpg",
	}
	svc := newTestService(store, fakeSource{})

	_, err := svc.DeleteUnused(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b.jpg")
	assert.Equal(t, []string{"a.jpg"}, store.removed, "deletes after the failure must not run")
}

func TestUsageStats(t *testing.T) {
	store := &fakeStore{images: []storage.RemoteImage{
		remoteImage("a.jpg", 100),
		remoteImage("b.jpg", 200),
		remoteImage("c.jpg", 300),
	}}
	svc := newTestService(store, fakeSource{refs: []string{"a.jpg", "c.jpg"}})

	stats, err := svc.UsageStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{
		TotalImages:  3,
		UsedImages:   2,
		UnusedImages: 1,
		TotalSize:    600,
		AverageSize:  200,
	}, stats)
}

func TestUsageStatsEmptyInventory(t *testing.T) {
	svc := newTestService(&fakeStore{}, fakeSource{refs: []string{"ghost.jpg"}})

	stats, err := svc.UsageStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalImages)
	assert.Zero(t, stats.AverageSize, "no division by zero on an empty bucket")
}
