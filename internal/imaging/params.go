package imaging

import (
	"fmt"
	"sort"
	"strings"
)

// Params is a transformation descriptor keyed by the logical parameter names
// the rest of the code uses (width, height, crop, effect, ...). Encode maps
// them to the CDN's short codes.
type Params map[string]string

// shortCodes mirrors the CDN path grammar: w_800,h_600,c_fill and so on.
var shortCodes = map[string]string{
	"width":       "w",
	"height":      "h",
	"crop":        "c",
	"quality":     "q",
	"format":      "f",
	"angle":       "a",
	"gravity":     "g",
	"background":  "b",
	"border":      "bo",
	"radius":      "r",
	"effect":      "e",
	"opacity":     "o",
	"overlay":     "l",
	"underlay":    "u",
	"color":       "co",
	"dpr":         "dpr",
	"fetchFormat": "f",
	"flags":       "fl",
	"x":           "x",
	"y":           "y",
}

// Encode renders the descriptor as one deterministic path segment. Keys are
// sorted so the same descriptor always yields the same cache key.
func (p Params) Encode() string {
	if len(p) == 0 {
		return ""
	}

	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		code, ok := shortCodes[k]
		if !ok {
			code = k
		}
		parts = append(parts, fmt.Sprintf("%s_%s", code, p[k]))
	}
	return strings.Join(parts, ",")
}

// Merge copies over entries from other, with other winning on conflicts.
func (p Params) Merge(other Params) Params {
	merged := make(Params, len(p)+len(other))
	for k, v := range p {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// URLBuilder composes public CDN URLs for stored objects without touching the
// remote store. A URL with an encoded descriptor segment is resolved lazily
// by the CDN; nothing is materialized until it is first fetched.
type URLBuilder struct {
	base   string
	bucket string
}

func NewURLBuilder(publicBaseURL, bucket string) *URLBuilder {
	return &URLBuilder{
		base:   strings.TrimSuffix(publicBaseURL, "/"),
		bucket: bucket,
	}
}

// URL returns the address of objectKey with the descriptor applied. An empty
// descriptor yields the plain object URL.
func (b *URLBuilder) URL(objectKey string, p Params) string {
	return b.chainURL(objectKey, p)
}

// ChainURL applies several descriptors in order, one path segment each.
func (b *URLBuilder) ChainURL(objectKey string, chain ...Params) string {
	return b.chainURL(objectKey, chain...)
}

func (b *URLBuilder) chainURL(objectKey string, chain ...Params) string {
	segments := make([]string, 0, len(chain)+2)
	segments = append(segments, b.base, b.bucket)
	for _, p := range chain {
		if encoded := p.Encode(); encoded != "" {
			segments = append(segments, encoded)
		}
	}
	segments = append(segments, strings.TrimPrefix(objectKey, "/"))
	return strings.Join(segments, "/")
}
