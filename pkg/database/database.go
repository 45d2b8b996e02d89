package database

import (
	"context"
	"time"

	"github.com/diagnosis/sai-platform/pkg/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pool against dsn and pings it so a bad address fails
// here rather than on the first request.
func Connect(ctx context.Context, dsn string, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	pcfg.MinConns = int32(cfg.MinConns)
	pcfg.MaxConns = int32(cfg.MaxConns)
	pcfg.MaxConnLifetime = cfg.MaxLifetime
	pcfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
