package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oftaclinic/api/internal/cache"
	"oftaclinic/api/internal/imaging"
	"oftaclinic/api/internal/models"
	"oftaclinic/api/internal/repository"
)

// pngHeader carries the PNG magic bytes so content sniffing resolves to
// image/png without a full decodable image.
var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

type fakeImageRepo struct {
	images      map[string]models.Image
	listCalls   int
	appended    []models.Transformation
	deleteCalls []string
}

func newFakeImageRepo() *fakeImageRepo {
	return &fakeImageRepo{images: make(map[string]models.Image)}
}

func (f *fakeImageRepo) Create(ctx context.Context, image models.Image) error {
	f.images[image.ID] = image
	return nil
}

func (f *fakeImageRepo) GetByID(ctx context.Context, id string) (models.Image, error) {
	img, ok := f.images[id]
	if !ok {
		return models.Image{}, repository.ErrImageNotFound
	}
	return img, nil
}

func (f *fakeImageRepo) List(ctx context.Context) ([]models.Image, error) {
	f.listCalls++
	out := make([]models.Image, 0, len(f.images))
	for _, img := range f.images {
		out = append(out, img)
	}
	return out, nil
}

func (f *fakeImageRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.images[id]; !ok {
		return repository.ErrImageNotFound
	}
	delete(f.images, id)
	f.deleteCalls = append(f.deleteCalls, id)
	return nil
}

func (f *fakeImageRepo) AppendTransformation(ctx context.Context, id string, t models.Transformation) error {
	if _, ok := f.images[id]; !ok {
		return repository.ErrImageNotFound
	}
	f.appended = append(f.appended, t)
	return nil
}

func (f *fakeImageRepo) TouchLastAccessed(ctx context.Context, objectKey string) error {
	return nil
}

type fakeObjectStore struct {
	uploads   map[string][]byte
	removeErr error
	removed   []string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{uploads: make(map[string][]byte)}
}

func (f *fakeObjectStore) Upload(ctx context.Context, bucket, objectKey string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.uploads[objectKey] = data
	return nil
}

func (f *fakeObjectStore) Remove(ctx context.Context, bucket, objectKey string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.uploads, objectKey)
	f.removed = append(f.removed, objectKey)
	return nil
}

func (f *fakeObjectStore) Exists(ctx context.Context, bucket, objectKey string) (bool, error) {
	_, ok := f.uploads[objectKey]
	return ok, nil
}

type fakeTransformer struct {
	url string
	err error
}

func (f fakeTransformer) Transform(ctx context.Context, objectKey string, req imaging.ResizeRequest) (string, error) {
	return f.url, f.err
}

type serviceFixture struct {
	svc   *ImageService
	repo  *fakeImageRepo
	store *fakeObjectStore
	cache *cache.ImageCache
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	repo := newFakeImageRepo()
	store := newFakeObjectStore()
	imageCache := cache.NewImageCache(cache.NewMemoryStore())
	urls := imaging.NewURLBuilder("https://cdn.example.com", "clinic-images")
	svc := NewImageService(repo, store, imageCache, urls, fakeTransformer{url: "https://cdn.example.com/variant"}, "clinic-images", zerolog.Nop())
	return serviceFixture{svc: svc, repo: repo, store: store, cache: imageCache}
}

func validUpload() UploadInput {
	return UploadInput{
		Filename:    "retina.png",
		ContentType: "image/png",
		Size:        int64(len(pngHeader)),
		Reader:      bytes.NewReader(pngHeader),
		UserID:      "user-1",
	}
}

func TestUploadRejectsMissingFile(t *testing.T) {
	f := newServiceFixture(t)

	input := validUpload()
	input.Reader = nil
	_, err := f.svc.Upload(context.Background(), input)
	assert.ErrorIs(t, err, ErrFileRequired)

	input = validUpload()
	input.Reader = bytes.NewReader(nil)
	_, err = f.svc.Upload(context.Background(), input)
	assert.ErrorIs(t, err, ErrFileRequired)
}

func TestUploadRejectsUnsupportedDeclaredType(t *testing.T) {
	f := newServiceFixture(t)

	for _, contentType := range []string{"application/pdf", "image/svg+xml", "text/plain", ""} {
		input := validUpload()
		input.ContentType = contentType
		_, err := f.svc.Upload(context.Background(), input)
		assert.ErrorIs(t, err, ErrUnsupportedType, contentType)
	}
	assert.Empty(t, f.store.uploads, "nothing reaches the store")
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	f := newServiceFixture(t)

	input := validUpload()
	input.Size = MaxFileSize + 1
	_, err := f.svc.Upload(context.Background(), input)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestUploadRejectsSpoofedContentType(t *testing.T) {
	f := newServiceFixture(t)

	input := validUpload()
	input.Reader = strings.NewReader("<html>not an image</html>")
	_, err := f.svc.Upload(context.Background(), input)
	assert.ErrorIs(t, err, ErrUnsupportedType, "sniffed bytes win over the declared type")
	assert.Empty(t, f.store.uploads)
}

func TestUploadStoresObjectAndMetadata(t *testing.T) {
	f := newServiceFixture(t)

	img, err := f.svc.Upload(context.Background(), validUpload())
	require.NoError(t, err)

	assert.NotEmpty(t, img.ID)
	assert.Equal(t, "png", img.Format)
	assert.Equal(t, "retina.png", img.Filename)
	assert.Equal(t, "user-1", img.UserID)
	assert.Equal(t, int64(len(pngHeader)), img.SizeBytes)
	assert.NotContains(t, img.ObjectKey, "/", "object keys are single path segments")
	assert.Equal(t, "https://cdn.example.com/clinic-images/"+img.ObjectKey, img.URL)

	assert.Contains(t, f.store.uploads, img.ObjectKey)
	assert.Contains(t, f.repo.images, img.ID)
}

func TestUploadDropsCachedList(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, f.repo.listCalls)

	_, err = f.svc.Upload(ctx, validUpload())
	require.NoError(t, err)

	_, err = f.svc.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.repo.listCalls, "upload must drop the cached list")
}

func TestFormattedSize(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{1024, "1.00 KB"},
		{512, "0.50 KB"},
		{1536, "1.50 KB"},
		{5 << 20, "5120.00 KB"},
	}

	for _, tt := range tests {
		img := models.Image{SizeBytes: tt.bytes}
		assert.Equal(t, tt.expected, img.FormattedSize())
	}
}

func TestDeleteUnknownImage(t *testing.T) {
	f := newServiceFixture(t)

	err := f.svc.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrImageNotFound)
}

func TestDeleteRemovesRemoteAndRow(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	img, err := f.svc.Upload(ctx, validUpload())
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, img.ID))
	assert.NotContains(t, f.store.uploads, img.ObjectKey)
	assert.NotContains(t, f.repo.images, img.ID)
}

func TestDeleteKeepsRowWhenRemoteRemovalFails(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	img, err := f.svc.Upload(ctx, validUpload())
	require.NoError(t, err)

	f.store.removeErr = errors.New("store down")
	err = f.svc.Delete(ctx, img.ID)
	require.Error(t, err)
	assert.Contains(t, f.repo.images, img.ID, "metadata survives a failed remote delete")
}

func TestGetAllServesFromCache(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, validUpload())
	require.NoError(t, err)

	first, err := f.svc.GetAll(ctx)
	require.NoError(t, err)
	second, err := f.svc.GetAll(ctx)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, 1, f.repo.listCalls, "second read comes from cache")
}

func TestTransformValidatesBeforeAnythingElse(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Transform(context.Background(), "any-id", map[string]any{"rotate": float64(90)})

	var invalid *imaging.InvalidTransformationError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, []string{"rotate"}, invalid.Keys)
	assert.Empty(t, f.repo.appended)
}

func TestTransformRecordsTransformation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	img, err := f.svc.Upload(ctx, validUpload())
	require.NoError(t, err)

	url, err := f.svc.Transform(ctx, img.ID, map[string]any{"width": float64(300), "height": float64(200)})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/variant", url)

	require.Len(t, f.repo.appended, 1)
	recorded := f.repo.appended[0]
	assert.Equal(t, models.TransformResize, recorded.Type)
	assert.Equal(t, map[string]string{"width": "300", "height": "200"}, recorded.Params)
	assert.Equal(t, url, recorded.URL)
}

func TestURLsByKeyCachesExistence(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	img, err := f.svc.Upload(ctx, validUpload())
	require.NoError(t, err)

	urls, err := f.svc.URLsByKey(ctx, img.ObjectKey)
	require.NoError(t, err)
	assert.Contains(t, urls, "thumbnail")
	assert.Contains(t, urls, "original")

	cached, ok := f.cache.URLs(ctx, img.ObjectKey)
	require.True(t, ok)
	assert.Equal(t, urls, cached)
}

func TestURLsByKeyUnknownObject(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.URLsByKey(context.Background(), "nope.jpg")
	assert.ErrorIs(t, err, repository.ErrImageNotFound)
}
