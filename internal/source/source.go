// Package source abstracts where raw map features come from: the Overpass
// API or local shapefile extracts.
package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/didzislauva/osmplot/internal/feature"
	"github.com/didzislauva/osmplot/internal/geo"
	"github.com/didzislauva/osmplot/pkg/overpass"
)

// Source fetches the raw ways of one dataset class inside a bounding box.
type Source interface {
	Fetch(ctx context.Context, b geo.BBox, class feature.Class) ([]feature.Raw, error)
}

// classFilter maps a dataset class to its Overpass tag filter.
func classFilter(class feature.Class) (key, value string, err error) {
	switch class {
	case feature.ClassRoads:
		return "highway", "", nil
	case feature.ClassBuildings:
		return "building", "", nil
	case feature.ClassForests:
		return "landuse", "forest", nil
	default:
		return "", "", eris.Errorf("source: unknown class %q", class)
	}
}

// ClassQuery builds the Overpass query for one class and box. Useful for
// callers that want the raw payload rather than decoded features.
func ClassQuery(b geo.BBox, class feature.Class) (overpass.Query, error) {
	key, value, err := classFilter(class)
	if err != nil {
		return overpass.Query{}, err
	}
	return overpass.Query{
		Key: key, Value: value,
		South: b.South, West: b.West, North: b.North, East: b.East,
	}, nil
}
