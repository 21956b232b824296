package cache

import (
	"context"
	"encoding/json"
)

const (
	keyImageList       = "image_list"
	keyImageURLsPrefix = "image_urls_"
	keyImageExists     = "image_exists_"
)

// ImageCache binds the category-specific key templates over a Store: the URL
// set per image, the full image list and the existence flag per image.
type ImageCache struct {
	store Store
}

func NewImageCache(store Store) *ImageCache {
	return &ImageCache{store: store}
}

func (c *ImageCache) URLs(ctx context.Context, publicID string) (map[string]string, bool) {
	raw, ok := c.store.Get(ctx, keyImageURLsPrefix+publicID)
	if !ok {
		return nil, false
	}
	var urls map[string]string
	if err := json.Unmarshal([]byte(raw), &urls); err != nil {
		return nil, false
	}
	return urls, true
}

func (c *ImageCache) SetURLs(ctx context.Context, publicID string, urls map[string]string) {
	raw, err := json.Marshal(urls)
	if err != nil {
		return
	}
	c.store.Set(ctx, keyImageURLsPrefix+publicID, string(raw), DefaultTTL)
}

// List decodes the cached image list into dest. Returns false on a miss or a
// stale encoding, in which case dest is left untouched.
func (c *ImageCache) List(ctx context.Context, dest any) bool {
	raw, ok := c.store.Get(ctx, keyImageList)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), dest) == nil
}

func (c *ImageCache) SetList(ctx context.Context, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.store.Set(ctx, keyImageList, string(raw), DefaultTTL)
}

func (c *ImageCache) Exists(ctx context.Context, publicID string) (exists, ok bool) {
	raw, found := c.store.Get(ctx, keyImageExists+publicID)
	if !found {
		return false, false
	}
	return raw == "1", true
}

func (c *ImageCache) SetExists(ctx context.Context, publicID string, exists bool) {
	val := "0"
	if exists {
		val = "1"
	}
	c.store.Set(ctx, keyImageExists+publicID, val, DefaultTTL)
}

// Invalidate removes the URL set and existence flag for one image. The list
// entry is left to its TTL; callers that must not serve the stale list drop
// it explicitly with DropList.
func (c *ImageCache) Invalidate(ctx context.Context, publicID string) {
	c.store.Delete(ctx, keyImageURLsPrefix+publicID)
	c.store.Delete(ctx, keyImageExists+publicID)
}

func (c *ImageCache) DropList(ctx context.Context) {
	c.store.Delete(ctx, keyImageList)
}

// Flush clears every entry unconditionally.
func (c *ImageCache) Flush(ctx context.Context) {
	c.store.Flush(ctx)
}
