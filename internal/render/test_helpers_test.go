package render

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/didzislauva/osmplot/internal/feature"
	"github.com/didzislauva/osmplot/internal/geo"
)

// testBox is a 1 km box around Salaspils, ground-square so its aspect
// ratio after correction is 1.
func testBox(t *testing.T) geo.BBox {
	t.Helper()
	b, err := geo.FromCenter(56.855, 24.305, 1.0)
	require.NoError(t, err)
	return b
}

func lineFeature(id int64, subtype string, coords []float64) feature.Feature {
	return feature.Feature{
		ID:      id,
		Class:   feature.ClassRoads,
		Subtype: subtype,
		Geom:    geom.NewLineStringFlat(geom.XY, coords),
	}
}

func polyFeature(t *testing.T, id int64, class feature.Class, coords []float64) feature.Feature {
	t.Helper()
	p := geom.NewPolygon(geom.XY)
	require.NoError(t, p.Push(geom.NewLinearRingFlat(geom.XY, coords)))
	return feature.Feature{ID: id, Class: class, Subtype: subtypeFor(class), Geom: p}
}

func subtypeFor(c feature.Class) string {
	switch c {
	case feature.ClassBuildings:
		return "yes"
	case feature.ClassForests:
		return "forest"
	default:
		return "residential"
	}
}

// crossBoxRoad is a diagonal road through the middle of b.
func crossBoxRoad(id int64, subtype string, b geo.BBox) feature.Feature {
	midLat := b.MeanLat()
	return lineFeature(id, subtype, []float64{
		b.West + b.Width()*0.1, midLat,
		b.East - b.Width()*0.1, midLat,
	})
}

// centerPatch is a closed square ring covering the middle of b.
func centerPatch(t *testing.T, id int64, class feature.Class, b geo.BBox) feature.Feature {
	t.Helper()
	w, h := b.Width(), b.Height()
	x0, y0 := b.West+w*0.3, b.South+h*0.3
	x1, y1 := b.East-w*0.3, b.North-h*0.3
	return polyFeature(t, id, class, []float64{
		x0, y0,
		x1, y0,
		x1, y1,
		x0, y1,
		x0, y0,
	})
}
