package render

import (
	"sort"

	"go.uber.org/zap"

	"github.com/didzislauva/osmplot/internal/feature"
	"github.com/didzislauva/osmplot/internal/geo"
	"github.com/didzislauva/osmplot/internal/spatial"
)

const defaultScaleBarFraction = 0.25

// Options control a single render.
type Options struct {
	// Title overrides the default map title.
	Title string
	// Styles is the style sheet to paint with. A sheet without road
	// tiers falls back to DefaultStyles.
	Styles StyleSheet
	// ScaleBarFraction is the share of the map width the scale bar may
	// occupy. Zero means 0.25.
	ScaleBarFraction float64
}

// Render culls, orders and draws the classified features over b and
// returns the finished map: forests first, then roads, then buildings,
// then the overlay annotations.
func Render(features []feature.Feature, b geo.BBox, opts Options) (*Map, error) {
	factor, err := geo.CorrectionFactor(b)
	if err != nil {
		return nil, err
	}

	frac := opts.ScaleBarFraction
	if frac == 0 {
		frac = defaultScaleBarFraction
	}
	bar, err := geo.FitScaleBar(b, frac)
	if err != nil {
		return nil, err
	}

	styles := opts.Styles
	if styles.Roads == nil {
		styles = DefaultStyles()
	}

	var mapOpts []MapOption
	if opts.Title != "" {
		mapOpts = append(mapOpts, WithTitle(opts.Title))
	}
	m, err := NewMap(b, mapOpts...)
	if err != nil {
		return nil, err
	}

	visible := spatial.NewIndex(features).Search(b)
	// The index returns matches in tree order. Sort by layer and ID so
	// repeated renders of the same input paint identically.
	sort.Slice(visible, func(i, j int) bool {
		li, lj := layerFor(visible[i].Class), layerFor(visible[j].Class)
		if li != lj {
			return li < lj
		}
		return visible[i].ID < visible[j].ID
	})

	for _, f := range visible {
		if err := m.DrawFeature(f, styles.For(f)); err != nil {
			return nil, err
		}
	}
	if culled := len(features) - len(visible); culled > 0 {
		zap.L().Debug("render: features outside the box culled",
			zap.Int("culled", culled),
			zap.Int("visible", len(visible)))
	}

	if err := m.ApplyAspect(factor); err != nil {
		return nil, err
	}
	if err := m.Annotate(bar); err != nil {
		return nil, err
	}
	return m, nil
}
