package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/forgesim/server/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	pingTimeout     = 5 * time.Second
	applicationName = "forgesim-journal"
)

// DB is the journal's connection pool.
type DB struct {
	Pool *pgxpool.Pool
	log  *zap.Logger
}

// Open connects to the journal database and fails unless it answers a ping.
func Open(ctx context.Context, cfg config.JournalConfig, log *zap.Logger) (*DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse journal dsn: %w", err)
	}
	applyPoolLimits(poolCfg, cfg)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open journal pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping journal %s/%s: %w",
			poolCfg.ConnConfig.Host, poolCfg.ConnConfig.Database, err)
	}

	log.Info("journal database connected",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns),
	)
	return &DB{Pool: pool, log: log}, nil
}

// applyPoolLimits copies the configured limits onto the pool. Zero values
// keep the pgx defaults, and idle connections never exceed the pool size.
func applyPoolLimits(pc *pgxpool.Config, cfg config.JournalConfig) {
	if cfg.MaxOpenConns > 0 {
		pc.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pc.MinConns = min(int32(cfg.MaxIdleConns), pc.MaxConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pc.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = applicationName
}

func (db *DB) Close() {
	db.Pool.Close()
}
