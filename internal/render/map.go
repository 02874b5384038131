package render

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/didzislauva/osmplot/internal/feature"
	"github.com/didzislauva/osmplot/internal/geo"
)

// ErrEmptyGeometry is returned when a feature reaches the renderer
// without drawable geometry.
var ErrEmptyGeometry = eris.New("render: empty geometry")

// Layer is a paint plane. Lower layers are drawn first, so forests sit
// under roads, roads under buildings, and the overlay annotations are
// always on top.
type Layer int

const (
	LayerForest Layer = iota
	LayerRoad
	LayerBuilding
	LayerOverlay
)

// OpKind distinguishes fill, stroke and text operations.
type OpKind int

const (
	KindFill OpKind = iota
	KindStroke
	KindText
)

// Space is the coordinate system of an operation: data space (lon/lat
// degrees) or normalized surface space (0..1 from the bottom-left
// corner, y up).
type Space int

const (
	SpaceData Space = iota
	SpaceSurface
)

// Op is one drawing operation. Coords holds x,y pairs.
type Op struct {
	Layer   Layer
	Kind    OpKind
	Space   Space
	Coords  []float64
	Closed  bool
	Style   Style
	Text    string
	Size    float64 // text size in points
	Bold    bool
	AnchorX float64 // 0 left-aligned, 0.5 centered, 1 right-aligned
}

type phase int

const (
	phaseDraw phase = iota
	phaseAspect
	phaseDone
)

type legendEntry struct {
	label string
	style Style
}

// Map is an ordered list of draw operations over a bounding box. Build
// it with DrawFeature calls, then ApplyAspect, then Annotate; the phase
// order is enforced so annotations always land on a finished drawing.
type Map struct {
	bbox   geo.BBox
	title  string
	ops    []Op
	legend []legendEntry
	seen   map[string]bool
	aspect float64
	phase  phase
}

// MapOption adjusts a new Map.
type MapOption func(*Map)

// WithTitle overrides the default map title.
func WithTitle(title string) MapOption {
	return func(m *Map) { m.title = title }
}

// NewMap starts an empty map over b. The default title names the area
// by its center coordinates.
func NewMap(b geo.BBox, opts ...MapOption) (*Map, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	m := &Map{
		bbox:  b,
		title: fmt.Sprintf("OpenStreetMap Visualization - %.4f, %.4f", b.MeanLat(), (b.West+b.East)/2),
		seen:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// DrawFeature appends the draw operations for one classified feature
// and records its legend entry.
func (m *Map) DrawFeature(f feature.Feature, st Style) error {
	if m.phase != phaseDraw {
		return eris.Errorf("render: draw after aspect correction")
	}
	if f.Geom == nil {
		return eris.Wrapf(ErrEmptyGeometry, "render: feature %d", f.ID)
	}

	layer := layerFor(f.Class)
	switch g := f.Geom.(type) {
	case *geom.Polygon:
		if g.NumLinearRings() == 0 {
			return eris.Wrapf(ErrEmptyGeometry, "render: feature %d", f.ID)
		}
		for i := 0; i < g.NumLinearRings(); i++ {
			m.ops = append(m.ops, Op{
				Layer:  layer,
				Kind:   KindFill,
				Space:  SpaceData,
				Coords: g.LinearRing(i).FlatCoords(),
				Closed: true,
				Style:  st,
			})
		}
	case *geom.LineString:
		if g.NumCoords() < 2 {
			return eris.Wrapf(ErrEmptyGeometry, "render: feature %d", f.ID)
		}
		m.ops = append(m.ops, Op{
			Layer:  layer,
			Kind:   KindStroke,
			Space:  SpaceData,
			Coords: g.FlatCoords(),
			Style:  st,
		})
	case *geom.MultiPolygon:
		if g.NumPolygons() == 0 {
			return eris.Wrapf(ErrEmptyGeometry, "render: feature %d", f.ID)
		}
		for i := 0; i < g.NumPolygons(); i++ {
			p := g.Polygon(i)
			for j := 0; j < p.NumLinearRings(); j++ {
				m.ops = append(m.ops, Op{
					Layer:  layer,
					Kind:   KindFill,
					Space:  SpaceData,
					Coords: p.LinearRing(j).FlatCoords(),
					Closed: true,
					Style:  st,
				})
			}
		}
	case *geom.MultiLineString:
		if g.NumLineStrings() == 0 {
			return eris.Wrapf(ErrEmptyGeometry, "render: feature %d", f.ID)
		}
		for i := 0; i < g.NumLineStrings(); i++ {
			m.ops = append(m.ops, Op{
				Layer:  layer,
				Kind:   KindStroke,
				Space:  SpaceData,
				Coords: g.LineString(i).FlatCoords(),
				Style:  st,
			})
		}
	default:
		return eris.Errorf("render: unsupported geometry %T for feature %d", f.Geom, f.ID)
	}

	if label := legendLabel(f); !m.seen[label] {
		m.seen[label] = true
		m.legend = append(m.legend, legendEntry{label: label, style: st})
	}
	return nil
}

// ApplyAspect closes the drawing phase and records the surface aspect
// ratio: degree height over degree width, stretched by 1/factor so the
// map keeps ground proportions.
func (m *Map) ApplyAspect(factor float64) error {
	if m.phase != phaseDraw {
		return eris.Errorf("render: aspect correction already applied")
	}
	if factor <= 0 || factor > 1 {
		return eris.Errorf("render: correction factor %.6f out of range (0, 1]", factor)
	}
	m.aspect = (m.bbox.Height() / m.bbox.Width()) * geo.AspectRatio(factor)
	m.phase = phaseAspect
	return nil
}

// Annotate draws the title, legend, scale bar and north arrow on the
// overlay layer and finishes the map.
func (m *Map) Annotate(bar geo.ScaleBar) error {
	switch m.phase {
	case phaseDraw:
		return eris.Errorf("render: annotate before aspect correction")
	case phaseDone:
		return eris.Errorf("render: map already annotated")
	}

	m.annotateTitle()
	m.annotateLegend()
	if err := m.annotateScaleBar(bar); err != nil {
		return err
	}
	m.annotateNorthArrow()
	m.phase = phaseDone
	return nil
}

func (m *Map) annotateTitle() {
	if m.title == "" {
		return
	}
	m.ops = append(m.ops, Op{
		Layer:   LayerOverlay,
		Kind:    KindText,
		Space:   SpaceSurface,
		Coords:  []float64{0.5, 0.975},
		Text:    m.title,
		Size:    15,
		Bold:    true,
		AnchorX: 0.5,
	})
}

// annotateLegend draws one swatch and label per distinct legend entry,
// top-left, in the order the entries were first drawn.
func (m *Map) annotateLegend() {
	const (
		x       = 0.02
		topY    = 0.93
		rowStep = 0.035
		swatchW = 0.035
		swatchH = 0.014
	)
	y := topY
	for _, e := range m.legend {
		m.ops = append(m.ops,
			Op{
				Layer:  LayerOverlay,
				Kind:   KindFill,
				Space:  SpaceSurface,
				Coords: []float64{x, y, x + swatchW, y, x + swatchW, y + swatchH, x, y + swatchH},
				Closed: true,
				Style:  e.style,
			},
			Op{
				Layer:  LayerOverlay,
				Kind:   KindText,
				Space:  SpaceSurface,
				Coords: []float64{x + swatchW + 0.01, y + swatchH/2},
				Text:   e.label,
				Size:   9,
			},
		)
		y -= rowStep
	}
}

// annotateScaleBar draws the bar at the fixed bottom-left anchor with
// its distance label centered underneath.
func (m *Map) annotateScaleBar(bar geo.ScaleBar) error {
	frac := bar.LengthDeg / m.bbox.Width()
	if frac <= 0 || frac > 1 {
		return eris.Errorf("render: scale bar spans %.3f of the map width", frac)
	}
	x0 := geo.ScaleBarAnchorX
	x1 := x0 + frac
	y := geo.ScaleBarAnchorY
	m.ops = append(m.ops,
		Op{
			Layer:  LayerOverlay,
			Kind:   KindStroke,
			Space:  SpaceSurface,
			Coords: []float64{x0, y, x1, y},
			Style:  Style{Color: "#000000", LineWidth: 3},
		},
		Op{
			Layer:   LayerOverlay,
			Kind:    KindText,
			Space:   SpaceSurface,
			Coords:  []float64{(x0 + x1) / 2, y - 0.02},
			Text:    bar.Label,
			Size:    10,
			AnchorX: 0.5,
		},
	)
	return nil
}

// annotateNorthArrow draws the shaft, the head triangle and the bold N
// at the fixed top-right anchor.
func (m *Map) annotateNorthArrow() {
	const (
		shaftBottom = 0.87
		headBase    = 0.925
		headHalfW   = 0.012
	)
	x := geo.NorthArrowX
	m.ops = append(m.ops,
		Op{
			Layer:  LayerOverlay,
			Kind:   KindStroke,
			Space:  SpaceSurface,
			Coords: []float64{x, shaftBottom, x, headBase},
			Style:  Style{Color: "#000000", LineWidth: 2.5},
		},
		Op{
			Layer:  LayerOverlay,
			Kind:   KindFill,
			Space:  SpaceSurface,
			Coords: []float64{x, geo.NorthArrowHeadY, x - headHalfW, headBase, x + headHalfW, headBase},
			Closed: true,
			Style:  Style{Color: "#000000"},
		},
		Op{
			Layer:   LayerOverlay,
			Kind:    KindText,
			Space:   SpaceSurface,
			Coords:  []float64{x, geo.NorthArrowTailY},
			Text:    "N",
			Size:    12,
			Bold:    true,
			AnchorX: 0.5,
		},
	)
}

// Ops returns the draw operations in paint order. The sort is stable,
// so operations on the same layer keep their insertion order.
func (m *Map) Ops() []Op {
	out := make([]Op, len(m.ops))
	copy(out, m.ops)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Layer < out[j].Layer })
	return out
}

// Aspect is the surface height over width ratio. Zero until ApplyAspect
// has run.
func (m *Map) Aspect() float64 { return m.aspect }

// BBox returns the mapped area.
func (m *Map) BBox() geo.BBox { return m.bbox }

// Title returns the map title.
func (m *Map) Title() string { return m.title }

// Legend returns the deduplicated legend labels in first-drawn order.
func (m *Map) Legend() []string {
	labels := make([]string, len(m.legend))
	for i, e := range m.legend {
		labels[i] = e.label
	}
	return labels
}

func layerFor(c feature.Class) Layer {
	switch c {
	case feature.ClassForests:
		return LayerForest
	case feature.ClassBuildings:
		return LayerBuilding
	default:
		return LayerRoad
	}
}

// legendLabel mirrors the map key wording: named classes capitalized,
// recognized road types suffixed with "road", everything else bare.
func legendLabel(f feature.Feature) string {
	switch f.Class {
	case feature.ClassForests:
		return "Forests"
	case feature.ClassBuildings:
		return "Buildings"
	default:
		if TierFor(f.Subtype) == TierOther {
			return f.Subtype
		}
		return f.Subtype + " road"
	}
}
