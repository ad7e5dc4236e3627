package batch

import (
	"sync"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// subscriberBuffer eventos que un suscriptor lento puede acumular antes de perder intermedios.
const subscriberBuffer = 32

type run struct {
	companyID string
	progress  Progress
	subs      map[chan Progress]struct{}
}

// Registry guarda la última instantánea de cada corrida y reparte sus eventos a suscriptores.
// Las corridas terminadas se conservan hasta Forget.
type Registry struct {
	mu   sync.Mutex
	runs map[string]*run
}

// NewRegistry crea un registro vacío.
func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*run)}
}

func (r *Registry) register(companyID string, p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[p.RunID] = &run{companyID: companyID, progress: p.Snapshot(), subs: make(map[chan Progress]struct{})}
}

// publish actualiza la instantánea y la envía sin bloquear. El evento final cierra los canales.
func (r *Registry) publish(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rn, ok := r.runs[p.RunID]
	if !ok {
		return
	}
	rn.progress = p.Snapshot()
	for ch := range rn.subs {
		select {
		case ch <- p.Snapshot():
		default:
			// Suscriptor lento: descarta el intermedio, el final siempre llega por la instantánea
		}
		if p.Done {
			close(ch)
			delete(rn.subs, ch)
		}
	}
}

// Get instantánea de una corrida de la empresa.
func (r *Registry) Get(companyID, runID string) (Progress, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rn, ok := r.runs[runID]
	if !ok || rn.companyID != companyID {
		return Progress{}, false
	}
	return rn.progress.Snapshot(), true
}

// Subscribe devuelve la instantánea actual y un canal con los eventos siguientes.
// Si la corrida ya terminó el canal viene cerrado. cancel deja de recibir.
func (r *Registry) Subscribe(companyID, runID string) (current Progress, events <-chan Progress, cancel func(), ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rn, found := r.runs[runID]
	if !found || rn.companyID != companyID {
		return Progress{}, nil, func() {}, false
	}
	ch := make(chan Progress, subscriberBuffer)
	if rn.progress.Done {
		close(ch)
		return rn.progress.Snapshot(), ch, func() {}, true
	}
	rn.subs[ch] = struct{}{}
	cancel = func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, live := rn.subs[ch]; live {
			delete(rn.subs, ch)
			close(ch)
		}
	}
	return rn.progress.Snapshot(), ch, cancel, true
}

// Forget descarta una corrida terminada de la empresa.
func (r *Registry) Forget(companyID, runID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rn, ok := r.runs[runID]
	if !ok || rn.companyID != companyID {
		return domain.ErrNotFound
	}
	if !rn.progress.Done {
		return domain.ErrBatchInProgress
	}
	delete(r.runs, runID)
	return nil
}
