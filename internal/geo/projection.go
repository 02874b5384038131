package geo

import (
	"math"

	"github.com/rotisserie/eris"
)

// EarthRadiusMeters is the mean spherical earth radius. No ellipsoidal model
// is attempted; the spherical approximation is the documented contract.
const EarthRadiusMeters = 6371000.0

// ErrDegenerateLatitude marks a bounding box whose mean latitude reaches a
// pole, where the east-west correction collapses to zero.
var ErrDegenerateLatitude = eris.New("geo: degenerate latitude")

// Normalized surface anchors for the fixed overlay annotations. They are
// deliberately independent of the data extent, so the overlays land in the
// same corner regardless of what the box contains.
const (
	ScaleBarAnchorX = 0.05
	ScaleBarAnchorY = 0.05
	NorthArrowX     = 0.95
	NorthArrowTailY = 0.85
	NorthArrowHeadY = 0.95
)

// CorrectionFactor returns cos(mean latitude), the anisotropic scale that
// undoes equirectangular distortion when lon/lat pairs are drawn as planar
// x/y. At latitude phi one degree of longitude spans cos(phi) times the
// ground distance of one degree of latitude, so the renderer must stretch
// the y axis by 1/factor to compensate.
//
// The result is in (0, 1] for any box with |mean latitude| < 90 and exactly
// 1 on the equator.
func CorrectionFactor(b BBox) (float64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	mean := b.MeanLat()
	if math.Abs(mean) >= 90 {
		return 0, eris.Wrapf(ErrDegenerateLatitude, "geo: mean latitude %.4f", mean)
	}
	return math.Cos(mean * math.Pi / 180), nil
}

// AspectRatio converts a correction factor into the y/x display scale:
// one degree of latitude must occupy 1/factor times the screen length of
// one degree of longitude.
func AspectRatio(factor float64) float64 {
	return 1 / factor
}

// MetersPerDegreeLon returns the ground distance of one degree of longitude
// at the given latitude on the spherical earth.
func MetersPerDegreeLon(latDeg float64) float64 {
	return math.Pi / 180 * EarthRadiusMeters * math.Cos(latDeg*math.Pi/180)
}

// MetersPerDegreeLat returns the ground distance of one degree of latitude,
// which on the spherical earth is the same everywhere.
func MetersPerDegreeLat() float64 {
	return math.Pi / 180 * EarthRadiusMeters
}
