package imaging

import "sort"

// Named effect descriptors. Parameterized effects (brightness, hue, ...) are
// exposed under their bare name; the CDN applies its default strength.
var effectPresets = map[string]Params{
	"grayscale": {"effect": "grayscale"},
	"blur":      {"effect": "blur"},
	"sepia":     {"effect": "sepia"},
	"negate":    {"effect": "negate"},

	"brightness": {"effect": "brightness"},
	"contrast":   {"effect": "contrast"},
	"saturation": {"effect": "saturation"},
	"hue":        {"effect": "hue"},
	"gamma":      {"effect": "gamma"},
	"tint":       {"effect": "tint"},
	"colorize":   {"effect": "colorize"},
}

var filterPresets = map[string]Params{
	"sharpen":         {"effect": "sharpen"},
	"pixelate":        {"effect": "pixelate"},
	"oil_paint":       {"effect": "oil_paint"},
	"sketch":          {"effect": "sketch"},
	"cartoonify":      {"effect": "cartoonify"},
	"auto_color":      {"effect": "auto_color"},
	"auto_contrast":   {"effect": "auto_contrast"},
	"auto_brightness": {"effect": "auto_brightness"},
}

var adjustmentPresets = map[string]Params{
	"flip": {"effect": "flip"},
	"flop": {"effect": "flop"},
}

var resizeModes = map[string]Params{
	"fill":  {"crop": "fill"},
	"fit":   {"crop": "fit"},
	"thumb": {"crop": "thumb"},
	"scale": {"crop": "scale"},
}

var qualityPresets = map[string]string{
	"auto": "auto",
	"best": "100",
	"good": "80",
	"eco":  "60",
}

// variantPresets are the standard delivery sizes the site uses everywhere.
var variantPresets = map[string]Params{
	"thumbnail": {"width": "150", "height": "150", "crop": "fill", "quality": "auto", "fetchFormat": "auto"},
	"product":   {"width": "800", "height": "800", "crop": "limit", "quality": "auto", "fetchFormat": "auto"},
	"gallery":   {"width": "1200", "height": "800", "crop": "fill", "quality": "auto", "fetchFormat": "auto"},
	"original":  {"quality": "auto", "fetchFormat": "auto"},
}

// EffectParams resolves a named effect. Unknown names degrade to an empty
// no-op descriptor rather than failing; the URL comes out untransformed.
func EffectParams(name string) Params {
	if p, ok := effectPresets[name]; ok {
		return p
	}
	if p, ok := filterPresets[name]; ok {
		return p
	}
	if p, ok := adjustmentPresets[name]; ok {
		return p
	}
	return Params{}
}

// StandardURLs builds the full set of delivery URLs for one object.
func StandardURLs(b *URLBuilder, objectKey string) map[string]string {
	urls := make(map[string]string, len(variantPresets))
	for name, preset := range variantPresets {
		urls[name] = b.URL(objectKey, preset)
	}
	return urls
}

// Catalog is the transform-configs payload: every preset family the API
// accepts, by name.
type Catalog struct {
	Effects     []string          `json:"effects"`
	Filters     []string          `json:"filters"`
	Adjustments []string          `json:"adjustments"`
	ResizeModes []string          `json:"resizeModes"`
	Quality     map[string]string `json:"quality"`
	Variants    map[string]Params `json:"variants"`
}

func Configs() Catalog {
	return Catalog{
		Effects:     sortedKeys(effectPresets),
		Filters:     sortedKeys(filterPresets),
		Adjustments: sortedKeys(adjustmentPresets),
		ResizeModes: sortedKeys(resizeModes),
		Quality:     qualityPresets,
		Variants:    variantPresets,
	}
}

func sortedKeys(m map[string]Params) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
