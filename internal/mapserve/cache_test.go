package mapserve

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCachePutGet(t *testing.T) {
	c := NewRenderCache(4, time.Hour)

	data, contentType := c.Get("missing")
	assert.Nil(t, data)
	assert.Empty(t, contentType)

	c.Put("k1", "image/png", []byte("png-bytes"))
	data, contentType = c.Get("k1")
	assert.Equal(t, []byte("png-bytes"), data)
	assert.Equal(t, "image/png", contentType)
}

func TestRenderCacheTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewRenderCache(4, 10*time.Minute)
	c.clock = clock

	c.Put("k1", "image/png", []byte("stale-soon"))

	clock.Advance(9 * time.Minute)
	data, _ := c.Get("k1")
	require.NotNil(t, data)

	clock.Advance(2 * time.Minute)
	data, _ = c.Get("k1")
	assert.Nil(t, data)
}

func TestRenderCacheEvictsOldest(t *testing.T) {
	c := NewRenderCache(2, time.Hour)

	c.Put("a", "image/png", []byte("a"))
	c.Put("b", "image/png", []byte("b"))

	// Touch a so b becomes the eviction candidate.
	data, _ := c.Get("a")
	require.NotNil(t, data)

	c.Put("c", "image/png", []byte("c"))

	data, _ = c.Get("a")
	assert.NotNil(t, data)
	data, _ = c.Get("b")
	assert.Nil(t, data)
	data, _ = c.Get("c")
	assert.NotNil(t, data)
}

func TestRenderCacheUpdateExisting(t *testing.T) {
	c := NewRenderCache(2, time.Hour)

	c.Put("k", "image/png", []byte("old"))
	c.Put("k", "application/pdf", []byte("new"))

	data, contentType := c.Get("k")
	assert.Equal(t, []byte("new"), data)
	assert.Equal(t, "application/pdf", contentType)

	stats := c.Stats()
	assert.Equal(t, 1, stats.Entries)
}

func TestRenderCacheStats(t *testing.T) {
	c := NewRenderCache(8, time.Hour)

	c.Put("k1", "image/png", []byte("v1"))
	c.Get("k1")
	c.Get("k1")
	c.Get("nope")

	stats := c.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, 8, stats.MaxEntries)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 1e-9)
}
