package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/lock"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "stock-ledger:batch:c1", lock.Key("c1"))
}

// Requiere un Redis local; se omite si no responde.
func TestRedisGuard_SegundaCorridaBloqueada(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DialTimeout: 200 * time.Millisecond})
	defer client.Close()
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis no disponible: %v", err)
	}
	companyID := "test-" + time.Now().Format("150405.000000")
	g := lock.NewRedisGuard(client, time.Minute, nil)

	release, err := g.Acquire(ctx, companyID)
	require.NoError(t, err)

	_, err = g.Acquire(ctx, companyID)
	assert.ErrorIs(t, err, domain.ErrBatchInProgress)

	release()
	release2, err := g.Acquire(ctx, companyID)
	require.NoError(t, err)
	release2()
}
