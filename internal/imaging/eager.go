package imaging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	dimg "github.com/disintegration/imaging"

	// webp originals can be decoded even though derived assets are re-encoded
	// as png (the encoder side has no webp support).
	_ "golang.org/x/image/webp"
)

// ObjectStore is the slice of the remote store the eager path needs.
type ObjectStore interface {
	Download(ctx context.Context, bucket, objectKey string) (io.ReadCloser, error)
	Upload(ctx context.Context, bucket, objectKey string, r io.Reader, size int64, contentType string) error
}

// Transformer materializes derived assets: unlike the lazy URL path it
// re-encodes the image and persists the result as its own object.
type Transformer struct {
	store     ObjectStore
	originals string
	variants  string
	urls      *URLBuilder
}

func NewTransformer(store ObjectStore, originalsBucket, variantsBucket string, variantURLs *URLBuilder) *Transformer {
	return &Transformer{
		store:     store,
		originals: originalsBucket,
		variants:  variantsBucket,
		urls:      variantURLs,
	}
}

// Transform downloads the original, applies the resize and stores the result
// in the variants bucket. Returns the public URL of the derived asset.
func (t *Transformer) Transform(ctx context.Context, objectKey string, req ResizeRequest) (string, error) {
	rc, err := t.store.Download(ctx, t.originals, objectKey)
	if err != nil {
		return "", fmt.Errorf("transform %s: download original: %w", objectKey, err)
	}
	defer rc.Close()

	img, err := dimg.Decode(rc)
	if err != nil {
		return "", fmt.Errorf("transform %s: decode: %w", objectKey, err)
	}

	switch {
	case req.Width > 0 && req.Height > 0:
		img = dimg.Fill(img, req.Width, req.Height, dimg.Center, dimg.Lanczos)
	case req.Width > 0:
		img = dimg.Resize(img, req.Width, 0, dimg.Lanczos)
	case req.Height > 0:
		img = dimg.Resize(img, 0, req.Height, dimg.Lanczos)
	}

	format, ext, contentType := encodingFor(objectKey)

	var buf bytes.Buffer
	if err := dimg.Encode(&buf, img, format); err != nil {
		return "", fmt.Errorf("transform %s: encode: %w", objectKey, err)
	}

	derivedKey := derivedObjectKey(objectKey, ext, req)
	if err := t.store.Upload(ctx, t.variants, derivedKey, &buf, int64(buf.Len()), contentType); err != nil {
		return "", fmt.Errorf("transform %s: store derived asset: %w", objectKey, err)
	}

	return t.urls.URL(derivedKey, nil), nil
}

func encodingFor(objectKey string) (dimg.Format, string, string) {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(objectKey), ".")) {
	case "png":
		return dimg.PNG, ".png", "image/png"
	case "gif":
		return dimg.GIF, ".gif", "image/gif"
	case "jpg", "jpeg":
		return dimg.JPEG, ".jpg", "image/jpeg"
	default:
		// webp and anything else re-encode lossless
		return dimg.PNG, ".png", "image/png"
	}
}

func derivedObjectKey(objectKey, ext string, req ResizeRequest) string {
	base := strings.TrimSuffix(objectKey, path.Ext(objectKey))
	return fmt.Sprintf("%s_w%d_h%d%s", base, req.Width, req.Height, ext)
}
