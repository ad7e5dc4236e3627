// Package lock implementa batch.Guard con un lock distribuido en Redis, para que dos
// instancias de la API no ejecuten corridas simultáneas de la misma empresa.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/stock-ledger/internal/application/batch"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

const keyPrefix = "stock-ledger:batch:"

var _ batch.Guard = (*RedisGuard)(nil)

// RedisGuard lock por empresa con TTL. El TTL acota corridas colgadas si el proceso muere.
type RedisGuard struct {
	locker *redislock.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisGuard construye el guard sobre un cliente go-redis.
func NewRedisGuard(client redis.UniversalClient, ttl time.Duration, log *logger.Logger) *RedisGuard {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RedisGuard{locker: redislock.New(client), ttl: ttl, log: log.Component("lock")}
}

// Key clave de Redis usada para la empresa.
func Key(companyID string) string { return keyPrefix + companyID }

// Acquire obtiene el lock sin reintentos; si otro proceso lo tiene devuelve ErrBatchInProgress.
func (g *RedisGuard) Acquire(ctx context.Context, companyID string) (func(), error) {
	l, err := g.locker.Obtain(ctx, Key(companyID), g.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, domain.ErrBatchInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("lock: obtener %s: %w", companyID, err)
	}
	return func() {
		// La corrida termina con un contexto propio; el release no depende de la petición HTTP.
		if err := l.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			g.log.Warn().Err(err).Str("company_id", companyID).Msg("no se pudo liberar el lock de lote")
		}
	}, nil
}
