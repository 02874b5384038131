package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteCache implements Cache using modernc.org/sqlite.
type SQLiteCache struct {
	db    *sql.DB
	clock clockwork.Clock
}

// NewSQLite opens the database at dsn and switches it to WAL mode.
func NewSQLite(dsn string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteCache{db: db, clock: clockwork.NewRealClock()}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS fetch_cache (
	query_hash TEXT PRIMARY KEY,
	class      TEXT NOT NULL,
	bbox       TEXT NOT NULL,
	payload    BLOB NOT NULL,
	fetched_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fetch_cache_expires_at ON fetch_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_fetch_cache_class ON fetch_cache(class);
`

func (s *SQLiteCache) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteCache) Close() error {
	return s.db.Close()
}

func (s *SQLiteCache) Get(ctx context.Context, queryHash string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM fetch_cache WHERE query_hash = ? AND expires_at > ?`,
		queryHash, s.clock.Now().UTC(),
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached fetch")
	}
	return payload, nil
}

func (s *SQLiteCache) Put(ctx context.Context, queryHash, class, bbox string, payload []byte, ttl time.Duration) error {
	now := s.clock.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fetch_cache (query_hash, class, bbox, payload, fetched_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (query_hash) DO UPDATE SET
		   class = excluded.class, bbox = excluded.bbox, payload = excluded.payload,
		   fetched_at = excluded.fetched_at, expires_at = excluded.expires_at`,
		queryHash, class, bbox, payload, now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set cached fetch")
}

func (s *SQLiteCache) Purge(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM fetch_cache WHERE expires_at <= ?`,
		s.clock.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: purge expired")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteCache) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM fetch_cache`)
	return eris.Wrap(err, "sqlite: clear")
}

func (s *SQLiteCache) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(LENGTH(payload)), 0) FROM fetch_cache`,
	).Scan(&st.Entries, &st.Bytes)
	if err != nil {
		return Stats{}, eris.Wrap(err, "sqlite: stats")
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fetch_cache WHERE expires_at <= ?`,
		s.clock.Now().UTC(),
	).Scan(&st.Expired)
	if err != nil {
		return Stats{}, eris.Wrap(err, "sqlite: stats expired")
	}
	return st, nil
}
