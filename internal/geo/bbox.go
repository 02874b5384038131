// Package geo provides the bounding-box model and the equirectangular
// aspect-correction math the renderer depends on.
package geo

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"
)

// Ground distance covered by one degree of latitude, in kilometers.
// Longitude degrees shrink with cos(latitude); latitude degrees do not.
const kmPerDegreeLat = 111.3

// Point is a geographic coordinate in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// BBox is a geographic bounding box in degrees. Immutable once constructed.
type BBox struct {
	South float64
	West  float64
	North float64
	East  float64
}

// Validate checks the ordering invariant: south < north and west < east.
func (b BBox) Validate() error {
	if b.South >= b.North {
		return eris.Errorf("geo: invalid bbox: south %.6f must be < north %.6f", b.South, b.North)
	}
	if b.West >= b.East {
		return eris.Errorf("geo: invalid bbox: west %.6f must be < east %.6f", b.West, b.East)
	}
	return nil
}

// MeanLat returns the mean latitude of the box in degrees.
func (b BBox) MeanLat() float64 {
	return (b.South + b.North) / 2
}

// Width returns the east-west extent in degrees of longitude.
func (b BBox) Width() float64 {
	return b.East - b.West
}

// Height returns the north-south extent in degrees of latitude.
func (b BBox) Height() float64 {
	return b.North - b.South
}

// Intersects reports whether the two boxes overlap, edges included.
func (b BBox) Intersects(o BBox) bool {
	return b.West <= o.East && o.West <= b.East && b.South <= o.North && o.South <= b.North
}

// String formats the box in the south,west,north,east order the Overpass
// API expects.
func (b BBox) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.South, b.West, b.North, b.East)
}

// FromCenter builds a box of roughly sizeKM x sizeKM ground extent around a
// center point. The longitude delta is widened by 1/cos(lat) so the box stays
// square on the ground rather than in degrees.
func FromCenter(lat, lon, sizeKM float64) (BBox, error) {
	if sizeKM <= 0 {
		return BBox{}, eris.Errorf("geo: bbox size must be > 0, got %.3f", sizeKM)
	}
	if math.Abs(lat) >= 90 {
		return BBox{}, eris.Wrapf(ErrDegenerateLatitude, "geo: center latitude %.4f", lat)
	}

	deltaLat := sizeKM / kmPerDegreeLat
	deltaLon := sizeKM / (kmPerDegreeLat * math.Cos(lat*math.Pi/180))

	b := BBox{
		South: lat - deltaLat/2,
		West:  lon - deltaLon/2,
		North: lat + deltaLat/2,
		East:  lon + deltaLon/2,
	}
	if err := b.Validate(); err != nil {
		return BBox{}, err
	}
	return b, nil
}
