package batch

import (
	"context"
	"sync"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// Guard permite una sola corrida por empresa a la vez.
// Acquire devuelve domain.ErrBatchInProgress si ya hay una; release libera el turno.
type Guard interface {
	Acquire(ctx context.Context, companyID string) (release func(), err error)
}

// LocalGuard guarda en memoria del proceso. Sirve con una sola réplica.
type LocalGuard struct {
	mu     sync.Mutex
	active map[string]bool
}

// NewLocalGuard crea el guard en memoria.
func NewLocalGuard() *LocalGuard {
	return &LocalGuard{active: make(map[string]bool)}
}

func (g *LocalGuard) Acquire(_ context.Context, companyID string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active[companyID] {
		return nil, domain.ErrBatchInProgress
	}
	g.active[companyID] = true
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, companyID)
			g.mu.Unlock()
		})
	}, nil
}

var _ Guard = (*LocalGuard)(nil)
