package source

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/didzislauva/osmplot/internal/feature"
	"github.com/didzislauva/osmplot/internal/geo"
	"github.com/didzislauva/osmplot/internal/observability"
	"github.com/didzislauva/osmplot/internal/store"
	"github.com/didzislauva/osmplot/pkg/overpass"
)

// OverpassSource fetches ways from the Overpass API, with an optional
// persistent cache in front of the network.
type OverpassSource struct {
	client  overpass.Client
	cache   store.Cache
	ttl     time.Duration
	metrics *observability.Metrics
}

// OverpassOption configures the source.
type OverpassOption func(*OverpassSource)

// WithCache layers a fetch cache in front of the API. Payloads are kept
// for ttl after a successful fetch.
func WithCache(cache store.Cache, ttl time.Duration) OverpassOption {
	return func(s *OverpassSource) {
		s.cache = cache
		s.ttl = ttl
	}
}

// WithMetrics records cache lookup results.
func WithMetrics(m *observability.Metrics) OverpassOption {
	return func(s *OverpassSource) {
		s.metrics = m
	}
}

// NewOverpassSource creates a Source backed by the given Overpass client.
func NewOverpassSource(client overpass.Client, opts ...OverpassOption) *OverpassSource {
	s := &OverpassSource{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch returns the raw ways for one class. Cached payloads are reused
// when fresh; fresh responses are decoded before they are cached so a
// malformed body never lands in the cache.
func (s *OverpassSource) Fetch(ctx context.Context, b geo.BBox, class feature.Class) ([]feature.Raw, error) {
	q, err := ClassQuery(b, class)
	if err != nil {
		return nil, err
	}
	hash := store.Key(q.QL())

	if s.cache != nil {
		payload, cacheErr := s.cache.Get(ctx, hash)
		if cacheErr != nil {
			zap.L().Warn("source: cache get failed, falling back to network",
				zap.String("class", string(class)), zap.Error(cacheErr))
		}
		if payload != nil {
			s.countLookup("hit")
			zap.L().Debug("source: fetch cache hit", zap.String("class", string(class)))
			ways, decodeErr := overpass.DecodeWays(payload)
			if decodeErr != nil {
				return nil, decodeErr
			}
			return rawsFromWays(ways), nil
		}
		s.countLookup("miss")
	}

	body, err := s.client.Raw(ctx, q)
	if err != nil {
		return nil, err
	}

	ways, err := overpass.DecodeWays(body)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if putErr := s.cache.Put(ctx, hash, string(class), b.String(), body, s.ttl); putErr != nil {
			zap.L().Warn("source: cache put failed",
				zap.String("class", string(class)), zap.Error(putErr))
		}
	}

	return rawsFromWays(ways), nil
}

func (s *OverpassSource) countLookup(result string) {
	if s.metrics != nil {
		s.metrics.CacheLookups.WithLabelValues("fetch", result).Inc()
	}
}

func rawsFromWays(ways []overpass.Way) []feature.Raw {
	raws := make([]feature.Raw, 0, len(ways))
	for _, w := range ways {
		points := make([]geo.Point, 0, len(w.Geometry))
		for _, v := range w.Geometry {
			points = append(points, geo.Point{Lat: v.Lat, Lon: v.Lon})
		}
		raws = append(raws, feature.Raw{ID: w.ID, Tags: w.Tags, Points: points})
	}
	return raws
}
