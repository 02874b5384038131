// Package spatial provides an R-tree index for culling features against a
// bounding box before rendering.
package spatial

import (
	"github.com/dhconnelly/rtreego"

	"github.com/didzislauva/osmplot/internal/feature"
	"github.com/didzislauva/osmplot/internal/geo"
)

// minExtent pads degenerate rectangles so the R-tree accepts them.
// A perfectly straight north-south way has zero longitude extent.
const minExtent = 0.0001

// Index holds classified features in an R-tree keyed by geometry bounds.
type Index struct {
	rtree *rtreego.Rtree
	size  int
}

// entry adapts a Feature to the rtreego.Spatial interface.
type entry struct {
	f    feature.Feature
	rect rtreego.Rect
}

func (e entry) Bounds() rtreego.Rect { return e.rect }

// NewIndex builds an index over the given features. Features without
// geometry are skipped.
func NewIndex(features []feature.Feature) *Index {
	// 2D tree, 25..50 children per node.
	rtree := rtreego.NewTree(2, 25, 50)
	size := 0
	for _, f := range features {
		rect, ok := featureRect(f)
		if !ok {
			continue
		}
		rtree.Insert(entry{f: f, rect: rect})
		size++
	}
	return &Index{rtree: rtree, size: size}
}

// Search returns the features whose bounds intersect the box.
func (idx *Index) Search(b geo.BBox) []feature.Feature {
	rect, err := rtreego.NewRect(
		rtreego.Point{b.West, b.South},
		padLengths([]float64{b.Width(), b.Height()}),
	)
	if err != nil {
		return nil
	}

	matches := idx.rtree.SearchIntersect(rect)
	out := make([]feature.Feature, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.(entry).f)
	}
	return out
}

// Len returns the number of indexed features.
func (idx *Index) Len() int {
	return idx.size
}

func featureRect(f feature.Feature) (rtreego.Rect, bool) {
	if f.Geom == nil {
		return rtreego.Rect{}, false
	}

	b := f.Geom.Bounds()
	rect, err := rtreego.NewRect(
		rtreego.Point{b.Min(0), b.Min(1)},
		padLengths([]float64{b.Max(0) - b.Min(0), b.Max(1) - b.Min(1)}),
	)
	if err != nil {
		return rtreego.Rect{}, false
	}
	return rect, true
}

func padLengths(lengths []float64) []float64 {
	for i, l := range lengths {
		if l < minExtent {
			lengths[i] = minExtent
		}
	}
	return lengths
}
