package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/didzislauva/osmplot/internal/geo"
)

func line(points ...geo.Point) []geo.Point { return points }

func TestClassifierClassify(t *testing.T) {
	segment := line(
		geo.Point{Lat: 56.8550, Lon: 24.3050},
		geo.Point{Lat: 56.8552, Lon: 24.3055},
		geo.Point{Lat: 56.8554, Lon: 24.3061},
	)

	tests := []struct {
		name        string
		raw         Raw
		wantOK      bool
		wantClass   Class
		wantSubtype string
	}{
		{
			name:        "primary road",
			raw:         Raw{ID: 1, Tags: map[string]string{"highway": "primary", "name": "Rīgas iela"}, Points: segment},
			wantOK:      true,
			wantClass:   ClassRoads,
			wantSubtype: "primary",
		},
		{
			name:        "residential road",
			raw:         Raw{ID: 2, Tags: map[string]string{"highway": "residential"}, Points: segment},
			wantOK:      true,
			wantClass:   ClassRoads,
			wantSubtype: "residential",
		},
		{
			name:        "building",
			raw:         Raw{ID: 3, Tags: map[string]string{"building": "yes"}, Points: segment},
			wantOK:      true,
			wantClass:   ClassBuildings,
			wantSubtype: "yes",
		},
		{
			name:        "forest",
			raw:         Raw{ID: 4, Tags: map[string]string{"landuse": "forest"}, Points: segment},
			wantOK:      true,
			wantClass:   ClassForests,
			wantSubtype: "forest",
		},
		{
			name:   "meadow is not a forest",
			raw:    Raw{ID: 5, Tags: map[string]string{"landuse": "meadow"}, Points: segment},
			wantOK: false,
		},
		{
			name:   "untagged way",
			raw:    Raw{ID: 6, Tags: map[string]string{}, Points: segment},
			wantOK: false,
		},
		{
			name:   "nil tags",
			raw:    Raw{ID: 7, Points: segment},
			wantOK: false,
		},
		{
			name:   "single point dropped",
			raw:    Raw{ID: 8, Tags: map[string]string{"highway": "primary"}, Points: segment[:1]},
			wantOK: false,
		},
		{
			name:   "no points dropped",
			raw:    Raw{ID: 9, Tags: map[string]string{"building": "yes"}},
			wantOK: false,
		},
		{
			name:        "forest wins over building",
			raw:         Raw{ID: 10, Tags: map[string]string{"landuse": "forest", "building": "yes"}, Points: segment},
			wantOK:      true,
			wantClass:   ClassForests,
			wantSubtype: "forest",
		},
		{
			name:        "building wins over road",
			raw:         Raw{ID: 11, Tags: map[string]string{"building": "yes", "highway": "service"}, Points: segment},
			wantOK:      true,
			wantClass:   ClassBuildings,
			wantSubtype: "yes",
		},
	}

	c := NewClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := c.Classify(tt.raw)
			require.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.Equal(t, tt.raw.ID, f.ID)
			assert.Equal(t, tt.wantClass, f.Class)
			assert.Equal(t, tt.wantSubtype, f.Subtype)
			assert.NotNil(t, f.Geom)
		})
	}
}

func TestClassifyRoadGeometryIsLineString(t *testing.T) {
	c := NewClassifier()

	f, ok := c.Classify(Raw{
		ID:   20,
		Tags: map[string]string{"highway": "secondary"},
		Points: line(
			geo.Point{Lat: 56.8550, Lon: 24.3050},
			geo.Point{Lat: 56.8552, Lon: 24.3055},
			geo.Point{Lat: 56.8554, Lon: 24.3061},
			geo.Point{Lat: 56.8550, Lon: 24.3050},
		),
	})
	require.True(t, ok)

	ls, isLine := f.Geom.(*geom.LineString)
	require.True(t, isLine, "roads stay line strings even when the way loops")
	assert.Equal(t, 8, len(ls.FlatCoords()))
	assert.InDelta(t, 24.3050, ls.FlatCoords()[0], 1e-12)
	assert.InDelta(t, 56.8550, ls.FlatCoords()[1], 1e-12)
}

func TestClassifyClosesOpenPolygonRing(t *testing.T) {
	c := NewClassifier()

	open := line(
		geo.Point{Lat: 56.8550, Lon: 24.3050},
		geo.Point{Lat: 56.8550, Lon: 24.3060},
		geo.Point{Lat: 56.8556, Lon: 24.3060},
		geo.Point{Lat: 56.8556, Lon: 24.3050},
	)

	f, ok := c.Classify(Raw{ID: 21, Tags: map[string]string{"building": "yes"}, Points: open})
	require.True(t, ok)

	poly, isPoly := f.Geom.(*geom.Polygon)
	require.True(t, isPoly)
	require.Equal(t, 1, poly.NumLinearRings())

	flat := poly.LinearRing(0).FlatCoords()
	require.Equal(t, 10, len(flat), "ring gains the closing vertex")
	assert.Equal(t, flat[0], flat[len(flat)-2])
	assert.Equal(t, flat[1], flat[len(flat)-1])

	// Closing the ring must not touch the caller's slice.
	assert.Equal(t, 4, len(open))
}

func TestClassifyKeepsClosedPolygonRing(t *testing.T) {
	c := NewClassifier()

	closed := line(
		geo.Point{Lat: 56.8550, Lon: 24.3050},
		geo.Point{Lat: 56.8550, Lon: 24.3060},
		geo.Point{Lat: 56.8556, Lon: 24.3060},
		geo.Point{Lat: 56.8550, Lon: 24.3050},
	)

	f, ok := c.Classify(Raw{ID: 22, Tags: map[string]string{"landuse": "forest"}, Points: closed})
	require.True(t, ok)

	poly, isPoly := f.Geom.(*geom.Polygon)
	require.True(t, isPoly)
	assert.Equal(t, 8, len(poly.LinearRing(0).FlatCoords()))
}

func TestClassifyTwoPointPolygonalWayFallsBackToLine(t *testing.T) {
	c := NewClassifier()

	f, ok := c.Classify(Raw{
		ID:   23,
		Tags: map[string]string{"building": "garage"},
		Points: line(
			geo.Point{Lat: 56.8550, Lon: 24.3050},
			geo.Point{Lat: 56.8552, Lon: 24.3055},
		),
	})
	require.True(t, ok)

	_, isLine := f.Geom.(*geom.LineString)
	assert.True(t, isLine)
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := NewClassifier()
	raw := Raw{
		ID:   24,
		Tags: map[string]string{"highway": "tertiary", "surface": "asphalt"},
		Points: line(
			geo.Point{Lat: 56.8550, Lon: 24.3050},
			geo.Point{Lat: 56.8552, Lon: 24.3055},
		),
	}

	first, ok := c.Classify(raw)
	require.True(t, ok)
	second, ok := c.Classify(raw)
	require.True(t, ok)

	assert.Equal(t, first.Class, second.Class)
	assert.Equal(t, first.Subtype, second.Subtype)
	assert.Equal(t, first.Geom.FlatCoords(), second.Geom.FlatCoords())
	assert.Equal(t, map[string]string{"highway": "tertiary", "surface": "asphalt"}, raw.Tags)
}

func TestClassPolygonal(t *testing.T) {
	assert.False(t, ClassRoads.Polygonal())
	assert.True(t, ClassBuildings.Polygonal())
	assert.True(t, ClassForests.Polygonal())
}
