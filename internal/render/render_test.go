package render

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/didzislauva/osmplot/internal/feature"
	"github.com/didzislauva/osmplot/internal/geo"
)

func TestRender_EmptyFetchStillProducesMap(t *testing.T) {
	b := testBox(t)
	m, err := Render(nil, b, Options{})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, m.Aspect(), 0.01)
	assert.Empty(t, m.Legend())

	ops := m.Ops()
	require.NotEmpty(t, ops)
	sawBar, sawArrow := false, false
	for _, op := range ops {
		assert.Equal(t, LayerOverlay, op.Layer)
		if op.Kind == KindText && op.Text == "200 m" {
			sawBar = true
		}
		if op.Kind == KindText && op.Text == "N" {
			sawArrow = true
		}
	}
	assert.True(t, sawBar, "scale bar label missing")
	assert.True(t, sawArrow, "north arrow missing")
}

func TestRender_RoadWidthsByTier(t *testing.T) {
	b := testBox(t)
	features := []feature.Feature{
		crossBoxRoad(1, "primary", b),
		crossBoxRoad(2, "residential", b),
	}

	m, err := Render(features, b, Options{})
	require.NoError(t, err)

	widths := map[float64]bool{}
	for _, op := range m.Ops() {
		if op.Kind == KindStroke && op.Space == SpaceData {
			widths[op.Style.LineWidth] = true
		}
	}
	assert.True(t, widths[2.5], "primary road width missing")
	assert.True(t, widths[1.2], "residential road width missing")
}

func TestRender_CullsFeaturesOutsideBox(t *testing.T) {
	b := testBox(t)
	inside := crossBoxRoad(1, "primary", b)
	outside := lineFeature(2, "primary", []float64{
		b.East + 1, b.South,
		b.East + 1.01, b.North,
	})

	m, err := Render([]feature.Feature{inside, outside}, b, Options{})
	require.NoError(t, err)

	dataOps := 0
	for _, op := range m.Ops() {
		if op.Space == SpaceData {
			dataOps++
		}
	}
	assert.Equal(t, 1, dataOps)
}

func TestRender_Deterministic(t *testing.T) {
	b := testBox(t)
	// Insertion order scrambled against both layer and ID order.
	features := []feature.Feature{
		centerPatch(t, 5, feature.ClassBuildings, b),
		crossBoxRoad(3, "primary", b),
		centerPatch(t, 9, feature.ClassForests, b),
		crossBoxRoad(1, "residential", b),
	}

	first, err := Render(features, b, Options{})
	require.NoError(t, err)
	second, err := Render(features, b, Options{})
	require.NoError(t, err)

	assert.Equal(t, first.Ops(), second.Ops())

	ops := first.Ops()
	assert.Equal(t, LayerForest, ops[0].Layer)
	// Within the road layer the lower ID paints first.
	roadWidths := []float64{}
	for _, op := range ops {
		if op.Layer == LayerRoad && op.Kind == KindStroke {
			roadWidths = append(roadWidths, op.Style.LineWidth)
		}
	}
	assert.Equal(t, []float64{1.2, 2.5}, roadWidths)
}

func TestRender_DegenerateLatitude(t *testing.T) {
	b := geo.BBox{South: 89.95, West: 24, North: 90.05, East: 24.1}
	_, err := Render(nil, b, Options{})
	require.Error(t, err)
	assert.True(t, eris.Is(err, geo.ErrDegenerateLatitude))
}

func TestRender_InvalidScaleBarFraction(t *testing.T) {
	_, err := Render(nil, testBox(t), Options{ScaleBarFraction: 1.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fraction")
}

func TestRender_CustomTitleAndStyles(t *testing.T) {
	b := testBox(t)
	styles := DefaultStyles()
	styles.Roads[TierMajor] = Style{Color: "#112233", LineWidth: 4}

	m, err := Render([]feature.Feature{crossBoxRoad(1, "primary", b)}, b, Options{
		Title:  "Salaspils area near Riga, Latvia",
		Styles: styles,
	})
	require.NoError(t, err)
	assert.Equal(t, "Salaspils area near Riga, Latvia", m.Title())

	found := false
	for _, op := range m.Ops() {
		if op.Kind == KindStroke && op.Space == SpaceData {
			assert.Equal(t, "#112233", op.Style.Color)
			assert.InDelta(t, 4, op.Style.LineWidth, 1e-9)
			found = true
		}
	}
	assert.True(t, found)
}
