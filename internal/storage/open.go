package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// Options selects a route store. Redis wins over Postgres; with neither
// configured routes are cached in memory.
type Options struct {
	RedisAddr     string
	RedisPassword string
	RedisPrefix   string
	PGDSN         string
	Schema        string // applied to Postgres when non-empty
}

// Opened is a ready route store plus its lifecycle hooks.
type Opened struct {
	Store RouteStore
	Kind  string
	Ping  func(ctx context.Context) error
	Close func() error
	// Purge removes expired entries. Nil for stores that expire on their own.
	Purge func(ctx context.Context) (int64, error)
}

func Open(ctx context.Context, o Options, logger *slog.Logger) (Opened, error) {
	switch {
	case o.RedisAddr != "":
		c, err := NewRedisClient(ctx, o.RedisAddr, o.RedisPassword)
		if err != nil {
			return Opened{}, err
		}
		logger.Info("route cache", "kind", "redis", "addr", o.RedisAddr)
		return Opened{
			Store: NewRedisStore(c, o.RedisPrefix),
			Kind:  "redis",
			Ping:  func(ctx context.Context) error { return c.Ping(ctx).Err() },
			Close: c.Close,
		}, nil
	case o.PGDSN != "":
		ps, err := NewPostgresStore(ctx, o.PGDSN)
		if err != nil {
			return Opened{}, err
		}
		if o.Schema != "" {
			if err := ps.Migrate(ctx, o.Schema); err != nil {
				_ = ps.Close()
				return Opened{}, fmt.Errorf("migrate route_cache: %w", err)
			}
			logger.Info("migration applied", "table", "route_cache")
		}
		logger.Info("route cache", "kind", "postgres")
		return Opened{Store: ps, Kind: "postgres", Ping: ps.Ping, Close: ps.Close, Purge: ps.Purge}, nil
	}
	logger.Info("route cache", "kind", "memory")
	return Opened{
		Store: NewMemoryStore(),
		Kind:  "memory",
		Ping:  func(context.Context) error { return nil },
		Close: func() error { return nil },
	}, nil
}
