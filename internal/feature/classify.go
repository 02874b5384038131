package feature

import (
	"github.com/twpayne/go-geom"

	"github.com/didzislauva/osmplot/internal/geo"
)

// rule maps a tag predicate to a class. Rules are evaluated in order and
// the first match wins.
type rule struct {
	match   func(tags map[string]string) bool
	class   Class
	subtype func(tags map[string]string) string
}

// Classifier assigns raw ways to render classes by their tags.
// Classification is deterministic and never mutates its input.
type Classifier struct {
	rules []rule
}

// NewClassifier returns a classifier with the default rule table.
// Rules:
//   - forests: landuse=forest
//   - buildings: any building tag
//   - roads: any highway tag, subtype is the highway value
func NewClassifier() *Classifier {
	return &Classifier{
		rules: []rule{
			{
				match:   func(tags map[string]string) bool { return tags["landuse"] == "forest" },
				class:   ClassForests,
				subtype: func(tags map[string]string) string { return tags["landuse"] },
			},
			{
				match:   func(tags map[string]string) bool { return tags["building"] != "" },
				class:   ClassBuildings,
				subtype: func(tags map[string]string) string { return tags["building"] },
			},
			{
				match:   func(tags map[string]string) bool { return tags["highway"] != "" },
				class:   ClassRoads,
				subtype: func(tags map[string]string) string { return tags["highway"] },
			},
		},
	}
}

// Classify assigns a raw way to a class and builds its geometry.
// The boolean reports whether the way produced a drawable feature:
// unmatched tags and degenerate geometry both drop the way.
func (c *Classifier) Classify(raw Raw) (Feature, bool) {
	for _, r := range c.rules {
		if !r.match(raw.Tags) {
			continue
		}

		g := buildGeometry(raw.Points, r.class.Polygonal())
		if g == nil {
			return Feature{}, false
		}

		return Feature{
			ID:      raw.ID,
			Class:   r.class,
			Subtype: r.subtype(raw.Tags),
			Geom:    g,
		}, true
	}
	return Feature{}, false
}

// buildGeometry constructs the feature geometry from the way's vertices.
// Ways with fewer than two points carry nothing drawable and are dropped.
// Polygonal classes with at least three points become polygons with the
// ring closed when the way left it open; everything else becomes a
// line string.
func buildGeometry(points []geo.Point, polygonal bool) geom.T {
	if len(points) < 2 {
		return nil
	}

	if polygonal && len(points) >= 3 {
		ring := points
		if ring[0] != ring[len(ring)-1] {
			ring = append(append(make([]geo.Point, 0, len(points)+1), points...), points[0])
		}

		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flatten(ring))); err != nil {
			return nil
		}
		return poly
	}

	return geom.NewLineStringFlat(geom.XY, flatten(points))
}

// flatten converts points to flat lon/lat coordinate pairs for go-geom.
func flatten(points []geo.Point) []float64 {
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.Lon, p.Lat)
	}
	return flat
}
