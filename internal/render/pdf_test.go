package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/didzislauva/osmplot/internal/feature"
)

func TestEncodePDF(t *testing.T) {
	b := testBox(t)
	features := []feature.Feature{
		centerPatch(t, 1, feature.ClassForests, b),
		centerPatch(t, 2, feature.ClassBuildings, b),
		crossBoxRoad(3, "primary", b),
		crossBoxRoad(4, "track", b),
	}
	m, err := Render(features, b, Options{Title: "Salaspils area near Riga, Latvia"})
	require.NoError(t, err)

	data, err := EncodePDF(m)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")), "not a PDF header")
	assert.Greater(t, len(data), 1000)
}

func TestEncodePDF_EmptyMap(t *testing.T) {
	m, err := Render(nil, testBox(t), Options{})
	require.NoError(t, err)

	data, err := EncodePDF(m)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestEncodePDF_UnfinishedMap(t *testing.T) {
	m, err := NewMap(testBox(t))
	require.NoError(t, err)

	_, err = EncodePDF(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode before annotate")
}
