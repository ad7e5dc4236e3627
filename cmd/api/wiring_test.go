package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/batch"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func TestOpenStore_Memoria(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: "memory"}}
	repos, closeFn, err := openStore(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	require.NotNil(t, closeFn)
	assert.NotNil(t, repos.Orders)
	closeFn()
}

func TestOpenStore_DSNInvalidoNoDevuelveCierre(t *testing.T) {
	cfg := &config.Config{
		Store: config.StoreConfig{Driver: "postgres"},
		DB:    config.DBConfig{DatabaseURL: "postgres://%zz"},
	}
	_, closeFn, err := openStore(context.Background(), cfg, logger.Nop())
	assert.Error(t, err)
	assert.Nil(t, closeFn)
}

func TestOpenGuard_SinRedisUsaLockLocal(t *testing.T) {
	guard, closeFn, err := openGuard(context.Background(), config.RedisConfig{}, logger.Nop())
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &batch.LocalGuard{}, guard)
}

func TestOpenGuard_RedisInalcanzable(t *testing.T) {
	guard, closeFn, err := openGuard(context.Background(), config.RedisConfig{Addr: "127.0.0.1:1"}, logger.Nop())
	assert.Error(t, err)
	assert.Nil(t, guard)
	assert.Nil(t, closeFn)
}
