package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the cache uses. pgxmock satisfies
// it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresCache implements Cache using pgxpool, for deployments where
// several instances share one fetch cache.
type PostgresCache struct {
	pool    Pool
	clock   clockwork.Clock
	closeFn func()
}

// NewPostgres creates a PostgresCache with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresCache, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresCache{pool: pool, clock: clockwork.NewRealClock(), closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS fetch_cache (
	query_hash TEXT PRIMARY KEY,
	class      TEXT NOT NULL,
	bbox       TEXT NOT NULL,
	payload    BYTEA NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fetch_cache_expires_at ON fetch_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_fetch_cache_class ON fetch_cache(class);
`

func (s *PostgresCache) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresCache) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresCache) Get(ctx context.Context, queryHash string) ([]byte, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM fetch_cache WHERE query_hash = $1 AND expires_at > $2`,
		queryHash, s.clock.Now().UTC(),
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get cached fetch")
	}
	return payload, nil
}

func (s *PostgresCache) Put(ctx context.Context, queryHash, class, bbox string, payload []byte, ttl time.Duration) error {
	now := s.clock.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO fetch_cache (query_hash, class, bbox, payload, fetched_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (query_hash) DO UPDATE SET
		   class = $2, bbox = $3, payload = $4, fetched_at = $5, expires_at = $6`,
		queryHash, class, bbox, payload, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached fetch")
}

func (s *PostgresCache) Purge(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM fetch_cache WHERE expires_at <= $1`,
		s.clock.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: purge expired")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresCache) Clear(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM fetch_cache`)
	return eris.Wrap(err, "postgres: clear")
}

func (s *PostgresCache) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(LENGTH(payload)), 0) FROM fetch_cache`,
	).Scan(&st.Entries, &st.Bytes)
	if err != nil {
		return Stats{}, eris.Wrap(err, "postgres: stats")
	}

	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM fetch_cache WHERE expires_at <= $1`,
		s.clock.Now().UTC(),
	).Scan(&st.Expired)
	if err != nil {
		return Stats{}, eris.Wrap(err, "postgres: stats expired")
	}
	return st, nil
}
