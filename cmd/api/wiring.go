package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/stock-ledger/internal/application/batch"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	infralock "github.com/jhoicas/stock-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// openStore abre la persistencia según STORE_DRIVER. Si falla, no deja conexiones abiertas;
// si no, el llamador debe invocar closeFn al terminar.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (repos repository.Repositories, closeFn func(), err error) {
	if cfg.Store.UsesMemory() {
		log.Warn().Msg("almacén en memoria: los datos se pierden al reiniciar")
		return memory.NewStore().Repositories(), func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return repository.Repositories{}, nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return repository.Repositories{}, nil, fmt.Errorf("migraciones: %w", err)
		}
		log.Info().Msg("migraciones aplicadas")
	}
	return postgres.NewRepositories(pool), pool.Close, nil
}

// openGuard lock de corridas: Redis si está configurado, si no en proceso.
func openGuard(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (guard batch.Guard, closeFn func(), err error) {
	if !cfg.Enabled() {
		return batch.NewLocalGuard(), func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, nil, errors.Join(fmt.Errorf("conexión a Redis %s: %w", cfg.Addr, err), rdb.Close())
	}
	log.Info().Str("addr", cfg.Addr).Msg("lock de lotes en Redis")
	return infralock.NewRedisGuard(rdb, cfg.LockTTL, log), func() { _ = rdb.Close() }, nil
}
