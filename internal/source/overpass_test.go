package source

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/didzislauva/osmplot/internal/feature"
	"github.com/didzislauva/osmplot/internal/geo"
	"github.com/didzislauva/osmplot/internal/observability"
	"github.com/didzislauva/osmplot/internal/store"
	"github.com/didzislauva/osmplot/pkg/overpass"
)

const twoWaysPayload = `{
	"elements": [
		{
			"type": "way", "id": 101,
			"tags": {"highway": "primary"},
			"geometry": [{"lat": 56.8551, "lon": 24.2951}, {"lat": 56.8553, "lon": 24.2968}]
		},
		{
			"type": "way", "id": 102,
			"tags": {"highway": "residential"},
			"geometry": [{"lat": 56.8561, "lon": 24.3001}, {"lat": 56.8559, "lon": 24.3014}]
		}
	]
}`

type stubClient struct {
	body   []byte
	err    error
	calls  int
	lastQL string
}

func (c *stubClient) Raw(_ context.Context, q overpass.Query) ([]byte, error) {
	c.calls++
	c.lastQL = q.QL()
	if c.err != nil {
		return nil, c.err
	}
	return c.body, nil
}

func (c *stubClient) QueryWays(ctx context.Context, q overpass.Query) ([]overpass.Way, error) {
	body, err := c.Raw(ctx, q)
	if err != nil {
		return nil, err
	}
	return overpass.DecodeWays(body)
}

type memCache struct {
	entries   map[string][]byte
	puts      int
	lastClass string
	lastBBox  string
	getErr    error
	putErr    error
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.entries[key], nil
}

func (m *memCache) Put(_ context.Context, key, class, bbox string, payload []byte, _ time.Duration) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.puts++
	m.lastClass, m.lastBBox = class, bbox
	m.entries[key] = payload
	return nil
}

func (m *memCache) Purge(context.Context) (int, error) { return 0, nil }
func (m *memCache) Clear(context.Context) error        { return nil }
func (m *memCache) Stats(context.Context) (store.Stats, error) {
	return store.Stats{Entries: len(m.entries)}, nil
}
func (m *memCache) Migrate(context.Context) error { return nil }
func (m *memCache) Close() error                  { return nil }

func testBox() geo.BBox {
	return geo.BBox{South: 56.85, West: 24.29, North: 56.86, East: 24.31}
}

func TestOverpassSource_Fetch(t *testing.T) {
	client := &stubClient{body: []byte(twoWaysPayload)}
	src := NewOverpassSource(client)

	raws, err := src.Fetch(context.Background(), testBox(), feature.ClassRoads)
	require.NoError(t, err)
	require.Len(t, raws, 2)

	assert.Equal(t, int64(101), raws[0].ID)
	assert.Equal(t, "primary", raws[0].Tags["highway"])
	require.Len(t, raws[0].Points, 2)
	assert.InDelta(t, 56.8551, raws[0].Points[0].Lat, 1e-9)
	assert.InDelta(t, 24.2951, raws[0].Points[0].Lon, 1e-9)

	assert.Contains(t, client.lastQL, `way["highway"]`)
}

func TestOverpassSource_Fetch_ForestFilter(t *testing.T) {
	client := &stubClient{body: []byte(`{"elements":[]}`)}
	src := NewOverpassSource(client)

	raws, err := src.Fetch(context.Background(), testBox(), feature.ClassForests)
	require.NoError(t, err)
	assert.Empty(t, raws)
	assert.Contains(t, client.lastQL, `way["landuse"="forest"]`)
}

func TestOverpassSource_Fetch_UnknownClass(t *testing.T) {
	src := NewOverpassSource(&stubClient{})

	_, err := src.Fetch(context.Background(), testBox(), feature.Class("rivers"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown class")
}

func TestOverpassSource_Fetch_ClientError(t *testing.T) {
	client := &stubClient{err: eris.Wrap(overpass.ErrSourceUnavailable, "overpass: status 504")}
	src := NewOverpassSource(client)

	_, err := src.Fetch(context.Background(), testBox(), feature.ClassRoads)
	require.Error(t, err)
	assert.True(t, eris.Is(err, overpass.ErrSourceUnavailable))
}

func TestOverpassSource_CacheRoundTrip(t *testing.T) {
	client := &stubClient{body: []byte(twoWaysPayload)}
	cache := newMemCache()
	src := NewOverpassSource(client, WithCache(cache, 6*time.Hour))

	b := testBox()

	raws, err := src.Fetch(context.Background(), b, feature.ClassRoads)
	require.NoError(t, err)
	require.Len(t, raws, 2)
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, 1, cache.puts)
	assert.Equal(t, "roads", cache.lastClass)
	assert.Equal(t, b.String(), cache.lastBBox)

	// Second fetch of the same query is served from the cache.
	raws, err = src.Fetch(context.Background(), b, feature.ClassRoads)
	require.NoError(t, err)
	require.Len(t, raws, 2)
	assert.Equal(t, 1, client.calls, "cache hit must not reach the network")
}

func TestOverpassSource_MalformedBodyNotCached(t *testing.T) {
	client := &stubClient{body: []byte(`<html>busy</html>`)}
	cache := newMemCache()
	src := NewOverpassSource(client, WithCache(cache, time.Hour))

	_, err := src.Fetch(context.Background(), testBox(), feature.ClassRoads)
	require.Error(t, err)
	assert.True(t, eris.Is(err, overpass.ErrMalformedResponse))
	assert.Equal(t, 0, cache.puts)
}

func TestOverpassSource_CacheGetErrorFallsBack(t *testing.T) {
	client := &stubClient{body: []byte(`{"elements":[]}`)}
	cache := newMemCache()
	cache.getErr = eris.New("store: broken")
	src := NewOverpassSource(client, WithCache(cache, time.Hour))

	raws, err := src.Fetch(context.Background(), testBox(), feature.ClassRoads)
	require.NoError(t, err)
	assert.Empty(t, raws)
	assert.Equal(t, 1, client.calls)
}

func TestClassQuery(t *testing.T) {
	b := testBox()

	q, err := ClassQuery(b, feature.ClassForests)
	require.NoError(t, err)
	assert.Equal(t, `[out:json];(way["landuse"="forest"](56.85,24.29,56.86,24.31););out geom;`, q.QL())

	q, err = ClassQuery(b, feature.ClassBuildings)
	require.NoError(t, err)
	assert.Contains(t, q.QL(), `way["building"]`)

	_, err = ClassQuery(b, feature.Class("rivers"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown class")
}

func TestOverpassSource_CacheLookupMetrics(t *testing.T) {
	client := &stubClient{body: []byte(twoWaysPayload)}
	cache := newMemCache()
	m := observability.NewMetricsForTesting()
	src := NewOverpassSource(client, WithCache(cache, time.Hour), WithMetrics(m))

	_, err := src.Fetch(context.Background(), testBox(), feature.ClassRoads)
	require.NoError(t, err)
	_, err = src.Fetch(context.Background(), testBox(), feature.ClassRoads)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("fetch", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("fetch", "hit")))
}
