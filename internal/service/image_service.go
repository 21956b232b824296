package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"oftaclinic/api/internal/cache"
	"oftaclinic/api/internal/ids"
	"oftaclinic/api/internal/imaging"
	"oftaclinic/api/internal/models"
	"oftaclinic/api/internal/repository"
)

const MaxFileSize = 5 << 20 // 5 MiB

var allowedTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

var (
	ErrFileRequired    = errors.New("no file uploaded")
	ErrUnsupportedType = errors.New("only JPG, PNG, GIF and WEBP images are allowed")
	ErrFileTooLarge    = errors.New("file exceeds the 5MB size limit")
)

// ImageRepo is the persistence slice the service needs.
type ImageRepo interface {
	Create(ctx context.Context, image models.Image) error
	GetByID(ctx context.Context, id string) (models.Image, error)
	List(ctx context.Context) ([]models.Image, error)
	Delete(ctx context.Context, id string) error
	AppendTransformation(ctx context.Context, id string, t models.Transformation) error
	TouchLastAccessed(ctx context.Context, objectKey string) error
}

// ObjectStore is the remote-store slice the service needs.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, objectKey string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, bucket, objectKey string) error
	Exists(ctx context.Context, bucket, objectKey string) (bool, error)
}

// EagerTransformer materializes a derived asset and returns its URL.
type EagerTransformer interface {
	Transform(ctx context.Context, objectKey string, req imaging.ResizeRequest) (string, error)
}

type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
	UserID      string
}

// ImageService orchestrates uploads, deletes and transformations: validate,
// talk to the remote store, persist metadata, keep the cache honest.
type ImageService struct {
	images      ImageRepo
	store       ObjectStore
	cache       *cache.ImageCache
	urls        *imaging.URLBuilder
	transformer EagerTransformer
	bucket      string
	log         zerolog.Logger
}

func NewImageService(images ImageRepo, store ObjectStore, imageCache *cache.ImageCache, urls *imaging.URLBuilder, transformer EagerTransformer, originalsBucket string, log zerolog.Logger) *ImageService {
	return &ImageService{
		images:      images,
		store:       store,
		cache:       imageCache,
		urls:        urls,
		transformer: transformer,
		bucket:      originalsBucket,
		log:         log,
	}
}

func (s *ImageService) Upload(ctx context.Context, input UploadInput) (models.Image, error) {
	if input.Reader == nil {
		return models.Image{}, ErrFileRequired
	}
	if _, ok := allowedTypes[input.ContentType]; !ok {
		return models.Image{}, ErrUnsupportedType
	}
	if input.Size > MaxFileSize {
		return models.Image{}, ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(input.Reader, MaxFileSize+1))
	if err != nil {
		return models.Image{}, fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return models.Image{}, ErrFileRequired
	}
	if len(data) > MaxFileSize {
		return models.Image{}, ErrFileTooLarge
	}

	// The declared content type is not trusted on its own.
	detected := http.DetectContentType(data)
	ext, ok := allowedTypes[detected]
	if !ok {
		return models.Image{}, ErrUnsupportedType
	}

	objectKey := buildObjectKey(ext)
	if err := s.store.Upload(ctx, s.bucket, objectKey, bytes.NewReader(data), int64(len(data)), detected); err != nil {
		return models.Image{}, fmt.Errorf("upload image: %w", err)
	}

	width, height, err := imaging.Probe(bytes.NewReader(data))
	if err != nil {
		s.log.Warn().Err(err).Str("object_key", objectKey).Msg("could not read image dimensions")
	}

	now := time.Now().UTC()
	image := models.Image{
		ID:           ids.New(),
		ObjectKey:    objectKey,
		URL:          s.urls.URL(objectKey, nil),
		Filename:     input.Filename,
		Format:       ext,
		Width:        width,
		Height:       height,
		SizeBytes:    int64(len(data)),
		UserID:       input.UserID,
		CreatedAt:    now,
		LastAccessed: now,
	}

	if err := s.images.Create(ctx, image); err != nil {
		return models.Image{}, fmt.Errorf("save image metadata: %w", err)
	}

	s.cache.DropList(ctx)
	return image, nil
}

func (s *ImageService) Delete(ctx context.Context, id string) error {
	image, err := s.images.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Remove(ctx, s.bucket, image.ObjectKey); err != nil {
		return fmt.Errorf("delete remote image: %w", err)
	}
	if err := s.images.Delete(ctx, id); err != nil {
		return err
	}

	s.cache.Invalidate(ctx, image.ObjectKey)
	s.cache.DropList(ctx)
	return nil
}

// GetAll serves the image list from cache when present, repopulating it on a
// miss.
func (s *ImageService) GetAll(ctx context.Context) ([]models.Image, error) {
	var cached []models.Image
	if s.cache.List(ctx, &cached) {
		return cached, nil
	}

	images, err := s.images.List(ctx)
	if err != nil {
		return nil, err
	}
	if images == nil {
		images = []models.Image{}
	}
	s.cache.SetList(ctx, images)
	return images, nil
}

// Transform validates and applies a width/height resize, stores the derived
// asset and records the transformation on the image.
func (s *ImageService) Transform(ctx context.Context, id string, raw map[string]any) (string, error) {
	req, err := imaging.ValidateResize(raw)
	if err != nil {
		return "", err
	}

	image, err := s.images.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	url, err := s.transformer.Transform(ctx, image.ObjectKey, req)
	if err != nil {
		return "", err
	}

	transformation := models.Transformation{
		Type:      models.TransformResize,
		Params:    resizeParams(req),
		URL:       url,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.images.AppendTransformation(ctx, id, transformation); err != nil {
		return "", err
	}

	s.cache.Invalidate(ctx, image.ObjectKey)
	return url, nil
}

// URLsByKey returns the standard variant URL set for one stored image,
// served from cache when possible. The existence check hits the remote store
// only on a cache miss.
func (s *ImageService) URLsByKey(ctx context.Context, objectKey string) (map[string]string, error) {
	if urls, ok := s.cache.URLs(ctx, objectKey); ok {
		return urls, nil
	}

	exists, err := s.store.Exists(ctx, s.bucket, objectKey)
	if err != nil {
		return nil, fmt.Errorf("check image exists: %w", err)
	}
	if !exists {
		return nil, repository.ErrImageNotFound
	}

	urls := imaging.StandardURLs(s.urls, objectKey)
	s.cache.SetURLs(ctx, objectKey, urls)
	s.cache.SetExists(ctx, objectKey, true)

	if err := s.images.TouchLastAccessed(ctx, objectKey); err != nil {
		s.log.Warn().Err(err).Str("object_key", objectKey).Msg("could not update last accessed")
	}
	return urls, nil
}

// Effects builds a lazy delivery URL with the named effects applied in order.
func (s *ImageService) Effects(objectKey string, effects []string) string {
	return imaging.ApplyEffects(s.urls, objectKey, effects)
}

// Variants builds one lazy URL per requested variant spec.
func (s *ImageService) Variants(objectKey string, specs []imaging.VariantSpec) []string {
	return imaging.Variants(s.urls, objectKey, specs)
}

// Watermark builds a lazy text-overlay URL.
func (s *ImageService) Watermark(objectKey, text string, opts imaging.WatermarkOptions) (string, error) {
	return imaging.Watermark(s.urls, objectKey, text, opts)
}

func (s *ImageService) Configs() imaging.Catalog {
	return imaging.Configs()
}

// buildObjectKey returns a flat date-prefixed key. Keys stay slash-free so
// they can travel as a single URL path segment.
func buildObjectKey(ext string) string {
	datePrefix := time.Now().UTC().Format("20060102")
	return fmt.Sprintf("%s-%s.%s", datePrefix, ids.New(), ext)
}

func resizeParams(req imaging.ResizeRequest) map[string]string {
	params := map[string]string{}
	if req.Width > 0 {
		params["width"] = strconv.Itoa(req.Width)
	}
	if req.Height > 0 {
		params["height"] = strconv.Itoa(req.Height)
	}
	return params
}
