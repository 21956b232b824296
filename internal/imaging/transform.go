package imaging

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// InvalidTransformationError reports request keys outside the allow-list.
type InvalidTransformationError struct {
	Keys []string
}

func (e *InvalidTransformationError) Error() string {
	return fmt.Sprintf("only width and height transformations are allowed, got: %s", strings.Join(e.Keys, ", "))
}

// InvalidParameterError reports a parameter with an unusable value.
type InvalidParameterError struct {
	Field  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// ResizeRequest is the validated simple-resize input. A zero dimension means
// "keep the source dimension".
type ResizeRequest struct {
	Width  int
	Height int
}

func (r ResizeRequest) Params() Params {
	p := Params{"crop": "fill"}
	if r.Width > 0 {
		p["width"] = strconv.Itoa(r.Width)
	}
	if r.Height > 0 {
		p["height"] = strconv.Itoa(r.Height)
	}
	return p
}

// ValidateResize is the one allow-list validator for the simple resize path,
// shared by the HTTP handler and the service. Only width and height are
// accepted and both must be positive numbers when present.
func ValidateResize(raw map[string]any) (ResizeRequest, error) {
	allowed := map[string]bool{"width": true, "height": true}

	var invalid []string
	for key := range raw {
		if !allowed[key] {
			invalid = append(invalid, key)
		}
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return ResizeRequest{}, &InvalidTransformationError{Keys: invalid}
	}

	var req ResizeRequest
	var err error
	if req.Width, err = positiveInt(raw, "width"); err != nil {
		return ResizeRequest{}, err
	}
	if req.Height, err = positiveInt(raw, "height"); err != nil {
		return ResizeRequest{}, err
	}
	return req, nil
}

func positiveInt(raw map[string]any, field string) (int, error) {
	v, ok := raw[field]
	if !ok || v == nil {
		return 0, nil
	}

	invalid := &InvalidParameterError{Field: field, Reason: "must be a positive number"}

	var n int
	switch val := v.(type) {
	case float64:
		n = int(val)
	case int:
		n = val
	case json.Number:
		parsed, err := val.Int64()
		if err != nil {
			return 0, invalid
		}
		n = int(parsed)
	case string:
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return 0, invalid
		}
		n = parsed
	default:
		return 0, invalid
	}

	if n <= 0 {
		return 0, invalid
	}
	return n, nil
}

// ApplyEffects chains one or more named effects into a lazy delivery URL.
// Unknown effect names contribute nothing to the chain.
func ApplyEffects(b *URLBuilder, objectKey string, effects []string) string {
	chain := make([]Params, 0, len(effects))
	for _, name := range effects {
		chain = append(chain, EffectParams(name))
	}
	return b.ChainURL(objectKey, chain...)
}

// VariantSpec is one requested delivery variant. Crop defaults to fill and
// quality to auto.
type VariantSpec struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Crop    string `json:"crop"`
	Quality string `json:"quality"`
}

func (v VariantSpec) Params() Params {
	crop := v.Crop
	if crop == "" {
		crop = "fill"
	}
	quality := v.Quality
	if quality == "" {
		quality = "auto"
	}
	p := Params{"crop": crop, "quality": quality}
	if v.Width > 0 {
		p["width"] = strconv.Itoa(v.Width)
	}
	if v.Height > 0 {
		p["height"] = strconv.Itoa(v.Height)
	}
	return p
}

// Variants builds one URL per requested spec, in request order.
func Variants(b *URLBuilder, objectKey string, specs []VariantSpec) []string {
	urls := make([]string, 0, len(specs))
	for _, spec := range specs {
		urls = append(urls, b.URL(objectKey, spec.Params()))
	}
	return urls
}

// WatermarkOptions are caller style choices merged over the documented
// defaults: white Arial at size 50, opacity 70, offset (10,10).
type WatermarkOptions struct {
	Color      string `json:"color"`
	FontFamily string `json:"fontFamily"`
	FontSize   int    `json:"fontSize"`
	Opacity    int    `json:"opacity"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
}

func (o WatermarkOptions) withDefaults() WatermarkOptions {
	if o.Color == "" {
		o.Color = "white"
	}
	if o.FontFamily == "" {
		o.FontFamily = "Arial"
	}
	if o.FontSize <= 0 {
		o.FontSize = 50
	}
	if o.Opacity <= 0 {
		o.Opacity = 70
	}
	if o.X == 0 {
		o.X = 10
	}
	if o.Y == 0 {
		o.Y = 10
	}
	return o
}

// Watermark composes a text overlay URL for the object. Text is required.
func Watermark(b *URLBuilder, objectKey, text string, opts WatermarkOptions) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", &InvalidParameterError{Field: "text", Reason: "is required"}
	}

	o := opts.withDefaults()
	p := Params{
		"overlay": fmt.Sprintf("text:%s_%d:%s", o.FontFamily, o.FontSize, escapeOverlayText(text)),
		"color":   o.Color,
		"opacity": strconv.Itoa(o.Opacity),
		"x":       strconv.Itoa(o.X),
		"y":       strconv.Itoa(o.Y),
	}
	return b.URL(objectKey, p), nil
}

func escapeOverlayText(text string) string {
	replacer := strings.NewReplacer(
		" ", "%20",
		",", "%2C",
		"/", "%2F",
	)
	return replacer.Replace(text)
}
