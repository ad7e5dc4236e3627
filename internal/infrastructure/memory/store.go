// Package memory implementa los puertos de persistencia en memoria (tests y STORE_DRIVER=memory).
// No ofrece transacciones: cada llamada es atómica por sí sola, igual que el almacenamiento remoto.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// Fault decide, por operación (p.ej. "orders.Update"), si descarta la escritura en silencio
// (drop) devolviendo éxito o si falla con err. Solo para tests.
type Fault func(op string) (drop bool, err error)

// Store almacenamiento en memoria compartido por todos los repositorios.
type Store struct {
	mu        sync.Mutex
	skus      map[string]map[string]skuRow // companyID → id
	lots      map[string]map[string]lotRow
	stock     map[string]map[string]stockRow // companyID → skuID
	orders    map[string]map[string]orderRow
	lines     map[string]map[string]lineRow
	movements map[string]map[string]movementRow
	seq       int64
	fault     Fault
	now       func() time.Time
}

// NewStore crea un almacenamiento vacío.
func NewStore() *Store {
	return &Store{
		skus:      make(map[string]map[string]skuRow),
		lots:      make(map[string]map[string]lotRow),
		stock:     make(map[string]map[string]stockRow),
		orders:    make(map[string]map[string]orderRow),
		lines:     make(map[string]map[string]lineRow),
		movements: make(map[string]map[string]movementRow),
		now:       time.Now,
	}
}

// SetFault instala (o quita con nil) el inyector de fallas.
func (s *Store) SetFault(f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

// Repositories devuelve todos los puertos sobre este almacenamiento.
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		SKUs:       &SKURepo{s: s},
		Lots:       &PurchaseLotRepo{s: s},
		Stock:      &CurrentStockRepo{s: s},
		Orders:     &OrderRepo{s: s},
		OrderLines: &OrderLineRepo{s: s},
		Movements:  &StockMovementRepo{s: s},
	}
}

// check aplica el inyector. Se llama con el lock tomado.
func (s *Store) check(ctx context.Context, op string) (drop bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s.fault == nil {
		return false, nil
	}
	return s.fault(op)
}

// nextSeq orden de inserción, usado para listados estables.
func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

func bucket[T any](m map[string]map[string]T, companyID string) map[string]T {
	b, ok := m[companyID]
	if !ok {
		b = make(map[string]T)
		m[companyID] = b
	}
	return b
}
