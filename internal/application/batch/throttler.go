package batch

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/pkg/retry"
)

// Throttler ejecuta llamadas independientes en bloques de concurrencia acotada.
// Cada llamada se reintenta según Policy; entre bloques espera Delay, que se duplica (hasta
// MaxDelay) mientras los bloques consecutivos sufran límite de peticiones y vuelve a BaseDelay
// con un bloque limpio.
type Throttler struct {
	Concurrency int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Policy      retry.Policy
	// Sleep espera entre bloques; nil usa retry.ContextSleep.
	Sleep retry.SleepFunc
	// OnRateLimit se invoca en cada reintento por límite de peticiones.
	OnRateLimit func()
}

// Run ejecuta call(ctx, i) para i en [0, n). done(i, err) se llama en orden, al cerrar cada bloque
// y desde la goroutine de Run.
func (t *Throttler) Run(ctx context.Context, n int, call func(ctx context.Context, i int) error, done func(i int, err error)) {
	conc := t.Concurrency
	if conc <= 0 {
		conc = 1
	}
	sleep := t.Sleep
	if sleep == nil {
		sleep = retry.ContextSleep
	}
	delay := t.BaseDelay

	for start := 0; start < n; start += conc {
		end := min(start+conc, n)
		errs := make([]error, end-start)
		var limited atomic.Bool

		policy := t.Policy
		onRetry := policy.OnRetry
		policy.OnRetry = func(attempt int, d time.Duration, err error) {
			if domain.IsRateLimited(err) {
				limited.Store(true)
				if t.OnRateLimit != nil {
					t.OnRateLimit()
				}
			}
			if onRetry != nil {
				onRetry(attempt, d, err)
			}
		}

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				err := retry.Do(ctx, policy, func(ctx context.Context) error { return call(ctx, i) })
				if domain.IsRateLimited(err) {
					limited.Store(true)
				}
				errs[i-start] = err
				return nil
			})
		}
		_ = g.Wait()

		for i := start; i < end; i++ {
			done(i, errs[i-start])
		}

		if end >= n {
			break
		}
		if limited.Load() {
			delay = t.next(delay)
		} else {
			delay = t.BaseDelay
		}
		_ = sleep(ctx, delay)
	}
}

func (t *Throttler) next(delay time.Duration) time.Duration {
	if delay <= 0 {
		delay = t.BaseDelay
		if delay <= 0 {
			return 0
		}
		return delay
	}
	delay *= 2
	if t.MaxDelay > 0 && delay > t.MaxDelay {
		return t.MaxDelay
	}
	return delay
}
