package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore keeps routes in the route_cache table
// (see migrations/001_create_route_cache.sql).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Migrate executes a schema file's statements.
func (p *PostgresStore) Migrate(ctx context.Context, schema string) error {
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, key string) (CachedRoute, error) {
	var payload []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT payload FROM route_cache WHERE key = $1 AND expires_at > now()`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return CachedRoute{}, ErrNotFound
	}
	if err != nil {
		return CachedRoute{}, fmt.Errorf("route_cache get: %w", err)
	}
	var r CachedRoute
	if err := json.Unmarshal(payload, &r); err != nil {
		return CachedRoute{}, fmt.Errorf("route_cache payload %s: %w", key, err)
	}
	return r, nil
}

func (p *PostgresStore) Put(ctx context.Context, key string, r CachedRoute, ttl time.Duration) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO route_cache(key, payload, fetched_at, expires_at) VALUES($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, fetched_at = EXCLUDED.fetched_at, expires_at = EXCLUDED.expires_at`,
		key, payload, r.FetchedAt, time.Now().Add(ttl))
	if err != nil {
		return fmt.Errorf("route_cache put: %w", err)
	}
	return nil
}

// Purge drops expired rows and reports how many were removed.
func (p *PostgresStore) Purge(ctx context.Context) (int64, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM route_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (p *PostgresStore) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *PostgresStore) Close() error { return p.db.Close() }
