// Package feature defines the classified map feature model and the tag
// classifier that assigns fetched ways to render classes.
package feature

import (
	"github.com/twpayne/go-geom"

	"github.com/didzislauva/osmplot/internal/geo"
)

// Class identifies one of the fetched datasets.
type Class string

const (
	ClassRoads     Class = "roads"
	ClassBuildings Class = "buildings"
	ClassForests   Class = "forests"
)

// Classes lists the dataset classes in fetch order.
var Classes = []Class{ClassRoads, ClassBuildings, ClassForests}

// Polygonal reports whether features of this class render as filled
// polygons rather than line strings.
func (c Class) Polygonal() bool {
	return c == ClassBuildings || c == ClassForests
}

// Raw is a fetched way before classification: its OSM id, tag map and
// ordered vertex list.
type Raw struct {
	ID     int64
	Tags   map[string]string
	Points []geo.Point
}

// Feature is a classified way with constructed geometry. Subtype carries
// the matched tag value (the highway value for roads).
type Feature struct {
	ID      int64
	Class   Class
	Subtype string
	Geom    geom.T
}
