package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ScaleBar describes the reference distance bar drawn on the map.
type ScaleBar struct {
	// Meters is the chosen round ground distance.
	Meters float64
	// LengthDeg is that distance converted back to degrees of longitude at
	// the box's mean latitude, i.e. the bar's length in data units.
	LengthDeg float64
	// Label is the human-readable distance, e.g. "200 m" or "1.5 km".
	Label string
}

// FitScaleBar picks the largest round distance (1/2/5 ladder) that fits
// within targetFraction of the box width and returns its spec. The returned
// length never exceeds targetFraction * width_in_degrees * meters_per_degree.
func FitScaleBar(b BBox, targetFraction float64) (ScaleBar, error) {
	if err := b.Validate(); err != nil {
		return ScaleBar{}, err
	}
	if targetFraction <= 0 || targetFraction > 1 {
		return ScaleBar{}, eris.Errorf("geo: scale bar fraction must be in (0, 1], got %.3f", targetFraction)
	}

	mean := b.MeanLat()
	if math.Abs(mean) >= 90 {
		return ScaleBar{}, eris.Wrapf(ErrDegenerateLatitude, "geo: mean latitude %.4f", mean)
	}

	metersPerDeg := MetersPerDegreeLon(mean)
	maxMeters := targetFraction * b.Width() * metersPerDeg
	meters := niceBelow(maxMeters)
	if meters <= 0 {
		return ScaleBar{}, eris.Errorf("geo: box too small for a scale bar (max %.6f m)", maxMeters)
	}

	return ScaleBar{
		Meters:    meters,
		LengthDeg: meters / metersPerDeg,
		Label:     formatDistance(meters),
	}, nil
}

// niceBelow returns the largest value of the form {1,2,5} x 10^n that does
// not exceed limit.
func niceBelow(limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	base := math.Pow(10, math.Floor(math.Log10(limit)))
	for _, mult := range []float64{5, 2, 1} {
		if v := mult * base; v <= limit {
			return v
		}
	}
	// base = 10^floor(log10(limit)) <= limit, so the loop always returns.
	return base
}

// formatDistance renders meters as "200 m" below one kilometer and as a
// trimmed kilometer value ("1 km", "2.5 km") at or above it.
func formatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%s m", trimFloat(meters))
	}
	return fmt.Sprintf("%s km", trimFloat(meters/1000))
}

// trimFloat formats a float without trailing zeros.
func trimFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
