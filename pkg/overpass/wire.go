package overpass

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// LatLon is a single way vertex.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Way is one way element with its tags and inline vertex geometry.
type Way struct {
	ID       int64             `json:"id"`
	Tags     map[string]string `json:"tags"`
	Geometry []LatLon          `json:"geometry"`
}

// response mirrors the wire shape of an out:json Overpass answer.
type response struct {
	Elements []struct {
		Type     string            `json:"type"`
		ID       int64             `json:"id"`
		Tags     map[string]string `json:"tags"`
		Geometry []LatLon          `json:"geometry"`
	} `json:"elements"`
}

// DecodeWays parses an Overpass JSON payload, keeping way elements that
// carry geometry and skipping everything else. An answer with no matching
// elements decodes to an empty slice, not an error.
func DecodeWays(body []byte) ([]Way, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrapf(ErrMalformedResponse, "overpass: decode: %v", err)
	}

	ways := make([]Way, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		if el.Type != "way" || len(el.Geometry) == 0 {
			continue
		}
		ways = append(ways, Way{ID: el.ID, Tags: el.Tags, Geometry: el.Geometry})
	}
	return ways, nil
}
