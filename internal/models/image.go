package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type TransformationType string

const (
	TransformResize    TransformationType = "resize"
	TransformCrop      TransformationType = "crop"
	TransformRotate    TransformationType = "rotate"
	TransformEffect    TransformationType = "effect"
	TransformWatermark TransformationType = "watermark"
)

// Transformation is an applied derivation of its parent image. It has no
// identity of its own; the URL must correspond to applying Params of Type to
// the parent asset.
type Transformation struct {
	Type      TransformationType `json:"type"`
	Params    map[string]string  `json:"params"`
	URL       string             `json:"url"`
	CreatedAt time.Time          `json:"createdAt"`
}

type Image struct {
	ID              string           `json:"id"`
	ObjectKey       string           `json:"publicId"`
	URL             string           `json:"url"`
	Filename        string           `json:"filename"`
	Format          string           `json:"format"`
	Width           int              `json:"width"`
	Height          int              `json:"height"`
	SizeBytes       int64            `json:"size"`
	UserID          string           `json:"userId"`
	Transformations []Transformation `json:"transformations"`
	Tags            []string         `json:"tags"`
	CreatedAt       time.Time        `json:"createdAt"`
	LastAccessed    time.Time        `json:"lastAccessed"`
}

// FormattedSize renders the byte size the way the site displays it,
// e.g. 1024 -> "1.00 KB".
func (i Image) FormattedSize() string {
	return fmt.Sprintf("%.2f KB", float64(i.SizeBytes)/1024)
}

// EncodeTransformations serializes the transformation list for the jsonb
// column; an empty list is stored as [].
func (i Image) EncodeTransformations() ([]byte, error) {
	if i.Transformations == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(i.Transformations)
}
