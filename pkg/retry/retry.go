// Package retry reintenta operaciones con backoff exponencial acotado.
package retry

import (
	"context"
	"time"
)

// SleepFunc espera d o hasta que ctx termine.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy política de reintentos. MaxRetries cuenta reintentos, no intentos totales.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Retryable decide si un error es transitorio; nil significa ninguno.
	Retryable func(error) bool
	// Sleep permite inyectar la espera en tests; nil usa ContextSleep.
	Sleep SleepFunc
	// OnRetry se invoca antes de cada espera (métricas, logs).
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Backoff retraso para el reintento n (1-based): base * 2^(n-1), con tope MaxDelay.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt <= 1 {
		return p.BaseDelay
	}
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return delay
}

// Do ejecuta fn y la reintenta mientras el error sea reintentable y queden reintentos.
// Devuelve el último error.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = ContextSleep
	}
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt >= p.MaxRetries || p.Retryable == nil || !p.Retryable(err) {
			return err
		}
		delay := p.Backoff(attempt + 1)
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, delay, err)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return err
		}
	}
}

// DoValue igual que Do pero devuelve el valor de fn.
func DoValue[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// ContextSleep duerme d respetando la cancelación del contexto.
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
