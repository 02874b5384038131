package source

import (
	"context"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/didzislauva/osmplot/internal/feature"
	"github.com/didzislauva/osmplot/internal/geo"
)

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name     string
		tags     map[string]string
		class    feature.Class
		wantKey  string
		wantVal  string
	}{
		{
			name:    "roads from fclass",
			tags:    map[string]string{"fclass": "primary", "name": "Main St"},
			class:   feature.ClassRoads,
			wantKey: "highway",
			wantVal: "primary",
		},
		{
			name:    "roads keep existing highway",
			tags:    map[string]string{"highway": "service", "fclass": "primary"},
			class:   feature.ClassRoads,
			wantKey: "highway",
			wantVal: "service",
		},
		{
			name:    "roads default unclassified",
			tags:    map[string]string{"name": "Nameless"},
			class:   feature.ClassRoads,
			wantKey: "highway",
			wantVal: "unclassified",
		},
		{
			name:    "roads from type column",
			tags:    map[string]string{"type": "tertiary"},
			class:   feature.ClassRoads,
			wantKey: "highway",
			wantVal: "tertiary",
		},
		{
			name:    "buildings from fclass",
			tags:    map[string]string{"fclass": "house"},
			class:   feature.ClassBuildings,
			wantKey: "building",
			wantVal: "house",
		},
		{
			name:    "buildings default yes",
			tags:    map[string]string{},
			class:   feature.ClassBuildings,
			wantKey: "building",
			wantVal: "yes",
		},
		{
			name:    "forests always landuse forest",
			tags:    map[string]string{"fclass": "forest"},
			class:   feature.ClassForests,
			wantKey: "landuse",
			wantVal: "forest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeTags(tt.tags, tt.class)
			assert.Equal(t, tt.wantVal, got[tt.wantKey])
		})
	}
}

func TestShapeParts_PolyLine(t *testing.T) {
	pl := &shp.PolyLine{
		NumParts: 2,
		Parts:    []int32{0, 3},
		Points: []shp.Point{
			{X: 24.300, Y: 56.851},
			{X: 24.302, Y: 56.852},
			{X: 24.304, Y: 56.853},
			{X: 24.310, Y: 56.856},
			{X: 24.312, Y: 56.857},
		},
	}

	parts := shapeParts(pl)
	require.Len(t, parts, 2)
	require.Len(t, parts[0], 3)
	require.Len(t, parts[1], 2)

	assert.InDelta(t, 56.851, parts[0][0].Lat, 1e-9)
	assert.InDelta(t, 24.300, parts[0][0].Lon, 1e-9)
	assert.InDelta(t, 56.857, parts[1][1].Lat, 1e-9)
}

func TestShapeParts_Polygon(t *testing.T) {
	poly := &shp.Polygon{
		NumParts: 1,
		Parts:    []int32{0},
		Points: []shp.Point{
			{X: 24.300, Y: 56.851},
			{X: 24.305, Y: 56.851},
			{X: 24.305, Y: 56.854},
			{X: 24.300, Y: 56.851},
		},
	}

	parts := shapeParts(poly)
	require.Len(t, parts, 1)
	assert.Len(t, parts[0], 4)
}

func TestShapeParts_Unsupported(t *testing.T) {
	assert.Nil(t, shapeParts(&shp.Point{X: 24.3, Y: 56.85}))
	assert.Nil(t, shapeParts(nil))
}

func TestPartIntersects(t *testing.T) {
	box := geo.BBox{South: 56.850, West: 24.295, North: 56.860, East: 24.310}

	inside := []geo.Point{{Lat: 56.852, Lon: 24.300}, {Lat: 56.853, Lon: 24.302}}
	crossing := []geo.Point{{Lat: 56.855, Lon: 24.308}, {Lat: 56.856, Lon: 24.320}}
	outside := []geo.Point{{Lat: 57.100, Lon: 24.600}, {Lat: 57.102, Lon: 24.602}}

	assert.True(t, partIntersects(inside, box))
	assert.True(t, partIntersects(crossing, box))
	assert.False(t, partIntersects(outside, box))
	assert.False(t, partIntersects(nil, box))
}

func TestShapefileSource_NoPathConfigured(t *testing.T) {
	src := NewShapefileSource(map[feature.Class]string{})

	raws, err := src.Fetch(context.Background(), testBox(), feature.ClassForests)
	require.NoError(t, err)
	assert.Nil(t, raws)
}

func TestShapefileSource_OpenError(t *testing.T) {
	src := NewShapefileSource(map[feature.Class]string{
		feature.ClassRoads: "/nonexistent/roads.shp",
	})

	_, err := src.Fetch(context.Background(), testBox(), feature.ClassRoads)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open shapefile")
}
