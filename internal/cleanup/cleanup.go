package cleanup

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"oftaclinic/api/internal/storage"
)

// ObjectStore is the slice of the remote store reconciliation needs.
type ObjectStore interface {
	ListImages(ctx context.Context, bucket string) ([]storage.RemoteImage, error)
	Remove(ctx context.Context, bucket, objectKey string) error
}

// ReferenceSource yields the image keys one entity type holds on to, e.g.
// product galleries or appointment attachments.
type ReferenceSource interface {
	ImageRefs(ctx context.Context) ([]string, error)
}

// Report is the outcome of one delete pass.
type Report struct {
	Total   int      `json:"total"`
	Deleted []string `json:"deleted"`
}

// Stats is derived fresh on every call; nothing here is persisted.
type Stats struct {
	TotalImages  int     `json:"totalImages"`
	UsedImages   int     `json:"usedImages"`
	UnusedImages int     `json:"unusedImages"`
	TotalSize    int64   `json:"totalSize"`
	AverageSize  float64 `json:"averageSize"`
}

// Service reconciles the remote image inventory against every in-use
// reference scattered across the other entities.
type Service struct {
	store   ObjectStore
	bucket  string
	sources []ReferenceSource
	log     zerolog.Logger
}

func NewService(store ObjectStore, bucket string, log zerolog.Logger, sources ...ReferenceSource) *Service {
	return &Service{
		store:   store,
		bucket:  bucket,
		sources: sources,
		log:     log,
	}
}

// ListRemote enumerates the full remote inventory.
func (s *Service) ListRemote(ctx context.Context) ([]storage.RemoteImage, error) {
	images, err := s.store.ListImages(ctx, s.bucket)
	if err != nil {
		return nil, fmt.Errorf("list remote images: %w", err)
	}
	return images, nil
}

// ReferencedIDs gathers the de-duplicated union of image keys referenced by
// every registered source. Order is irrelevant.
func (s *Service) ReferencedIDs(ctx context.Context) (map[string]struct{}, error) {
	refs := make(map[string]struct{})
	for _, source := range s.sources {
		ids, err := source.ImageRefs(ctx)
		if err != nil {
			return nil, fmt.Errorf("collect image references: %w", err)
		}
		for _, id := range ids {
			refs[id] = struct{}{}
		}
	}
	return refs, nil
}

// FindUnused is the exact set difference: remote images whose key appears in
// no reference source.
func (s *Service) FindUnused(ctx context.Context) ([]storage.RemoteImage, error) {
	remote, err := s.ListRemote(ctx)
	if err != nil {
		return nil, err
	}
	refs, err := s.ReferencedIDs(ctx)
	if err != nil {
		return nil, err
	}

	var unused []storage.RemoteImage
	for _, img := range remote {
		if _, ok := refs[img.Key]; !ok {
			unused = append(unused, img)
		}
	}
	return unused, nil
}

// DeleteUnused removes every unused image from the remote store. A single
// failed delete aborts the whole pass and surfaces the error; keys already
// deleted in that pass are not reported.
// TODO: report partial success instead of discarding it on abort.
func (s *Service) DeleteUnused(ctx context.Context) (Report, error) {
	unused, err := s.FindUnused(ctx)
	if err != nil {
		return Report{}, err
	}

	deleted := make([]string, 0, len(unused))
	for _, img := range unused {
		if err := s.store.Remove(ctx, s.bucket, img.Key); err != nil {
			return Report{}, fmt.Errorf("delete unused image %s: %w", img.Key, err)
		}
		deleted = append(deleted, img.Key)
		s.log.Debug().Str("object_key", img.Key).Msg("deleted unused image")
	}

	return Report{
		Total:   len(unused),
		Deleted: deleted,
	}, nil
}

// UsageStats recomputes the aggregate picture from the two listings.
func (s *Service) UsageStats(ctx context.Context) (Stats, error) {
	remote, err := s.ListRemote(ctx)
	if err != nil {
		return Stats{}, err
	}
	refs, err := s.ReferencedIDs(ctx)
	if err != nil {
		return Stats{}, err
	}

	var used int
	var totalSize int64
	for _, img := range remote {
		if _, ok := refs[img.Key]; ok {
			used++
		}
		totalSize += img.SizeBytes
	}

	stats := Stats{
		TotalImages:  len(remote),
		UsedImages:   used,
		UnusedImages: len(remote) - used,
		TotalSize:    totalSize,
	}
	if len(remote) > 0 {
		stats.AverageSize = float64(totalSize) / float64(len(remote))
	}
	return stats, nil
}
