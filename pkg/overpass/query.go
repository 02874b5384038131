package overpass

import (
	"fmt"
	"strconv"
	"strings"
)

// Query describes a single Overpass QL ways query over a bounding box.
// An empty Value matches any way carrying Key.
type Query struct {
	Key   string
	Value string

	South float64
	West  float64
	North float64
	East  float64
}

// QL renders the query as Overpass QL with a JSON output directive and
// inline way geometry.
func (q Query) QL() string {
	filter := fmt.Sprintf("[%q]", q.Key)
	if q.Value != "" {
		filter = fmt.Sprintf("[%q=%q]", q.Key, q.Value)
	}
	return fmt.Sprintf("[out:json];(way%s(%s););out geom;", filter, q.bbox())
}

func (q Query) bbox() string {
	coords := []float64{q.South, q.West, q.North, q.East}
	parts := make([]string, 0, len(coords))
	for _, c := range coords {
		parts = append(parts, strconv.FormatFloat(c, 'f', -1, 64))
	}
	return strings.Join(parts, ",")
}
