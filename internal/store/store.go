// Package store persists fetched Overpass payloads between runs.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Stats summarizes cache contents.
type Stats struct {
	Entries int   `json:"entries"`
	Expired int   `json:"expired"`
	Bytes   int64 `json:"bytes"`
}

// Cache is the persistence interface for fetched payloads keyed by
// query hash. Get returns nil for missing or expired entries.
type Cache interface {
	Get(ctx context.Context, queryHash string) ([]byte, error)
	Put(ctx context.Context, queryHash, class, bbox string, payload []byte, ttl time.Duration) error

	// Purge deletes expired entries and reports how many were removed.
	Purge(ctx context.Context) (int, error)

	// Clear deletes every entry.
	Clear(ctx context.Context) error

	Stats(ctx context.Context) (Stats, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Key hashes an Overpass query into a stable cache key.
func Key(ql string) string {
	sum := sha256.Sum256([]byte(ql))
	return hex.EncodeToString(sum[:])
}
