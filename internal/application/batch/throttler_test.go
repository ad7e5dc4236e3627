package batch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/batch"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

func TestThrottler_RetrasoSeDuplicaConBloquesLimitadosYSeReinicia(t *testing.T) {
	var delays []time.Duration
	th := &batch.Throttler{
		Concurrency: 2,
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    40 * time.Millisecond,
		Policy:      testPolicy(),
		Sleep: func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	}

	// Bloques 0 y 1 sufren un límite de peticiones (se recuperan al reintentar); 2 y 3 limpios
	var mu sync.Mutex
	failedOnce := map[int]bool{}
	limitedItems := map[int]bool{0: true, 3: true}
	var order []int

	th.Run(context.Background(), 8,
		func(_ context.Context, i int) error {
			mu.Lock()
			defer mu.Unlock()
			if limitedItems[i] && !failedOnce[i] {
				failedOnce[i] = true
				return domain.ErrRateLimited
			}
			return nil
		},
		func(i int, err error) {
			assert.NoError(t, err)
			order = append(order, i)
		},
	)

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, order)
	assert.Equal(t, []time.Duration{20 * time.Millisecond, 40 * time.Millisecond, 10 * time.Millisecond}, delays)
}

func TestThrottler_RetrasoTopeadoEnMaxDelay(t *testing.T) {
	var delays []time.Duration
	th := &batch.Throttler{
		Concurrency: 1,
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    15 * time.Millisecond,
		Policy:      testPolicy(),
		Sleep: func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	}
	th.Run(context.Background(), 3,
		func(context.Context, int) error { return domain.ErrRateLimited },
		func(_ int, err error) { assert.ErrorIs(t, err, domain.ErrRateLimited) },
	)
	assert.Equal(t, []time.Duration{15 * time.Millisecond, 15 * time.Millisecond}, delays)
}

func TestThrottler_SoloReintentaLimiteDePeticiones(t *testing.T) {
	var mu sync.Mutex
	calls := map[int]int{}
	boom := errors.New("falla permanente")
	retries := 0
	th := &batch.Throttler{
		Concurrency: 3,
		Policy:      testPolicy(),
		Sleep:       noSleep,
		OnRateLimit: func() {
			mu.Lock()
			retries++
			mu.Unlock()
		},
	}

	results := make([]error, 3)
	th.Run(context.Background(), 3,
		func(_ context.Context, i int) error {
			mu.Lock()
			defer mu.Unlock()
			calls[i]++
			switch i {
			case 0:
				return boom
			case 1:
				return domain.ErrRateLimited
			}
			return nil
		},
		func(i int, err error) { results[i] = err },
	)

	assert.Equal(t, 1, calls[0], "error no transitorio: sin reintentos")
	assert.Equal(t, 4, calls[1], "un intento más tres reintentos")
	assert.Equal(t, 1, calls[2])
	assert.Equal(t, 3, retries)
	require.ErrorIs(t, results[0], boom)
	require.ErrorIs(t, results[1], domain.ErrRateLimited)
	require.NoError(t, results[2])
}
