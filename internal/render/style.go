// Package render builds a static map from classified features and
// encodes it as a raster image or a PDF document. A Map is assembled in
// phases: feature draws, equirectangular aspect correction, then the
// overlay annotations. Encoders consume the finished operation list.
package render

import (
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/didzislauva/osmplot/internal/feature"
)

// Road tiers group highway subtypes that share a style.
const (
	TierMajor = "major" // motorway, trunk, primary
	TierMid   = "mid"   // secondary, tertiary
	TierMinor = "minor" // residential, service
	TierOther = "other" // everything else, drawn dashed
)

// Style describes how one feature class or road tier is painted. Line
// widths are in points at the reference surface width; encoders scale
// them with the output size.
type Style struct {
	Color     string  `yaml:"color"`
	Opacity   float64 `yaml:"opacity,omitempty"`
	LineWidth float64 `yaml:"line_width,omitempty"`
	EdgeColor string  `yaml:"edge_color,omitempty"`
	EdgeWidth float64 `yaml:"edge_width,omitempty"`
	Dashed    bool    `yaml:"dashed,omitempty"`
}

// StyleSheet maps feature classes and road tiers to styles.
type StyleSheet struct {
	Forest   Style            `yaml:"forest"`
	Building Style            `yaml:"building"`
	Roads    map[string]Style `yaml:"roads"`
}

// DefaultStyles returns the built-in sheet: translucent dark green
// forests, firebrick buildings with a thin black edge, and roads graded
// from orange-red majors down to dashed black for unrecognized types.
func DefaultStyles() StyleSheet {
	return StyleSheet{
		Forest: Style{
			Color:   "#006400",
			Opacity: 0.5,
		},
		Building: Style{
			Color:     "#B22222",
			Opacity:   0.7,
			EdgeColor: "#000000",
			EdgeWidth: 0.5,
		},
		Roads: map[string]Style{
			TierMajor: {Color: "#FF4500", LineWidth: 2.5},
			TierMid:   {Color: "#FFA500", LineWidth: 1.8},
			TierMinor: {Color: "#808080", LineWidth: 1.2},
			TierOther: {Color: "#000000", LineWidth: 0.8, Dashed: true},
		},
	}
}

// LoadStyles reads a style sheet from a YAML file. Sections absent from
// the file keep their defaults, so a sheet may override a single tier.
// An empty path returns the defaults unchanged.
func LoadStyles(path string) (StyleSheet, error) {
	sheet := DefaultStyles()
	if path == "" {
		return sheet, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return StyleSheet{}, eris.Wrapf(err, "render: read styles %s", path)
	}
	if err := yaml.Unmarshal(data, &sheet); err != nil {
		return StyleSheet{}, eris.Wrapf(err, "render: parse styles %s", path)
	}
	return sheet, nil
}

// For picks the style for a classified feature.
func (s StyleSheet) For(f feature.Feature) Style {
	switch f.Class {
	case feature.ClassForests:
		return s.Forest
	case feature.ClassBuildings:
		return s.Building
	default:
		if st, ok := s.Roads[TierFor(f.Subtype)]; ok {
			return st
		}
		return s.Roads[TierOther]
	}
}

// TierFor maps a highway subtype to its road tier.
func TierFor(subtype string) string {
	switch subtype {
	case "motorway", "trunk", "primary":
		return TierMajor
	case "secondary", "tertiary":
		return TierMid
	case "residential", "service":
		return TierMinor
	default:
		return TierOther
	}
}

// alpha returns the effective fill opacity. Zero means opaque, so stroke
// styles reused for fills stay visible.
func (s Style) alpha() float64 {
	if s.Opacity <= 0 || s.Opacity > 1 {
		return 1
	}
	return s.Opacity
}

// hexRGB255 parses a "#RRGGBB" color into 0..255 components. Anything
// unparsable comes back black.
func hexRGB255(s string) (int, int, int) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return 0, 0, 0
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int(v >> 16), int(v >> 8 & 0xff), int(v & 0xff)
}

// hexRGB parses a "#RRGGBB" color into 0..1 components.
func hexRGB(s string) (float64, float64, float64) {
	r, g, b := hexRGB255(s)
	return float64(r) / 255, float64(g) / 255, float64(b) / 255
}
