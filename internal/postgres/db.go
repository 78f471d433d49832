// Package postgres stores users and lobbies for the chat server.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwrk-planet/lobby-chat/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultApplicationName = "lobby-chat"
	defaultPingTimeout     = 5 * time.Second
)

type Config struct {
	DSN               string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	// ApplicationName shows up in pg_stat_activity. Defaults to lobby-chat.
	ApplicationName string
	// Migrate creates the users and lobbies tables when they are missing.
	Migrate bool
	// PingTimeout bounds the startup ping and every health probe.
	PingTimeout time.Duration

	Logger *slog.Logger
}

// NewPool opens the chat database. It returns only after the first ping
// succeeded and, with Migrate set, after the schema is in place; on failure
// the pool is closed.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.For("postgres")
	}

	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	if err := HealthProbe(pool, cfg.PingTimeout)(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if cfg.Migrate {
		if err := migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		log.Info("schema ready", "tables", len(schemaTables))
	}

	log.Info("postgres connected",
		"host", pc.ConnConfig.Host,
		"database", pc.ConnConfig.Database,
		"max_conns", pc.MaxConns)
	return pool, nil
}

// HealthProbe pings the pool within timeout. The gRPC health watcher uses
// it to decide whether the chat server is serving.
func HealthProbe(pool *pgxpool.Pool, timeout time.Duration) func(context.Context) error {
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return pool.Ping(ctx)
	}
}

// poolConfig applies the non-zero limits of cfg on top of the DSN.
func poolConfig(cfg Config) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckPeriod > 0 {
		pc.HealthCheckPeriod = cfg.HealthCheckPeriod
	}
	if pc.MinConns > pc.MaxConns {
		pc.MinConns = pc.MaxConns
	}

	name := cfg.ApplicationName
	if name == "" {
		name = defaultApplicationName
	}
	pc.ConnConfig.RuntimeParams["application_name"] = name
	return pc, nil
}
