package source

import (
	"context"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/didzislauva/osmplot/internal/feature"
	"github.com/didzislauva/osmplot/internal/geo"
)

// ShapefileSource reads ways from local shapefile extracts, one file per
// dataset class. Classes without a configured path fetch as empty.
type ShapefileSource struct {
	paths map[feature.Class]string
}

// NewShapefileSource creates a Source over per-class shapefile paths.
func NewShapefileSource(paths map[feature.Class]string) *ShapefileSource {
	return &ShapefileSource{paths: paths}
}

// Fetch reads the class's shapefile and returns the parts that overlap
// the bounding box. Multi-part shapes yield one raw way per part.
func (s *ShapefileSource) Fetch(_ context.Context, b geo.BBox, class feature.Class) ([]feature.Raw, error) {
	path := s.paths[class]
	if path == "" {
		zap.L().Debug("source: no shapefile configured", zap.String("class", string(class)))
		return nil, nil
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	// Build field name -> index map.
	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	var (
		raws    []feature.Raw
		skipped int
		culled  int
		nextID  int64
	)

	for reader.Next() {
		_, shape := reader.Shape()

		tags := make(map[string]string, len(fieldIdx))
		for name, idx := range fieldIdx {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
			if val == "" {
				continue
			}
			tags[name] = val
		}
		tags = normalizeTags(tags, class)

		parts := shapeParts(shape)
		if len(parts) == 0 {
			skipped++
			continue
		}

		for _, pts := range parts {
			if !partIntersects(pts, b) {
				culled++
				continue
			}
			nextID++
			raws = append(raws, feature.Raw{ID: nextID, Tags: tags, Points: pts})
		}
	}

	if skipped > 0 || culled > 0 {
		zap.L().Debug("source: shapefile records filtered",
			zap.String("class", string(class)),
			zap.Int("skipped", skipped),
			zap.Int("outside_bbox", culled),
		)
	}

	return raws, nil
}

// normalizeTags maps extract attribute conventions onto the OSM tag keys
// the classifier matches on. Geofabrik-style extracts carry the feature
// kind in an fclass (or type) column instead of the OSM key.
func normalizeTags(tags map[string]string, class feature.Class) map[string]string {
	fclass := tags["fclass"]
	if fclass == "" {
		fclass = tags["type"]
	}

	switch class {
	case feature.ClassRoads:
		if tags["highway"] == "" {
			if fclass == "" {
				fclass = "unclassified"
			}
			tags["highway"] = fclass
		}
	case feature.ClassBuildings:
		if tags["building"] == "" {
			if fclass == "" {
				fclass = "yes"
			}
			tags["building"] = fclass
		}
	case feature.ClassForests:
		if tags["landuse"] == "" {
			tags["landuse"] = "forest"
		}
	}
	return tags
}

// shapeParts splits a shapefile shape into its constituent point runs.
func shapeParts(shape shp.Shape) [][]geo.Point {
	switch s := shape.(type) {
	case *shp.PolyLine:
		return partsFromPoints(s.NumParts, s.Parts, s.Points)
	case *shp.Polygon:
		return partsFromPoints(s.NumParts, s.Parts, s.Points)
	default:
		return nil
	}
}

func partsFromPoints(numParts int32, parts []int32, points []shp.Point) [][]geo.Point {
	if numParts == 0 || len(points) == 0 {
		return nil
	}

	out := make([][]geo.Point, 0, numParts)
	for i := int32(0); i < numParts; i++ {
		start := parts[i]
		end := int32(len(points))
		if i+1 < numParts {
			end = parts[i+1]
		}

		pts := make([]geo.Point, 0, end-start)
		for j := start; j < end; j++ {
			pts = append(pts, geo.Point{Lat: points[j].Y, Lon: points[j].X})
		}
		out = append(out, pts)
	}
	return out
}

// partIntersects reports whether the part's bounding box overlaps b.
func partIntersects(pts []geo.Point, b geo.BBox) bool {
	if len(pts) == 0 {
		return false
	}

	part := geo.BBox{South: pts[0].Lat, West: pts[0].Lon, North: pts[0].Lat, East: pts[0].Lon}
	for _, p := range pts[1:] {
		if p.Lat < part.South {
			part.South = p.Lat
		}
		if p.Lat > part.North {
			part.North = p.Lat
		}
		if p.Lon < part.West {
			part.West = p.Lon
		}
		if p.Lon > part.East {
			part.East = p.Lon
		}
	}
	return part.Intersects(b)
}
