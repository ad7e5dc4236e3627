package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/application/fulfillment"
	appinv "github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/ports"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/jhoicas/stock-ledger/pkg/retry"
)

// Coordinator ejecuta corridas en dos fases: preparar todos los ítems y luego confirmar en
// secuencia. Las reversiones del libro son secuenciales; solo el borrado de registros pasa por
// el Throttler.
type Coordinator struct {
	orders    *fulfillment.Service
	purchases *appinv.PurchaseUseCase
	orderRepo repository.OrderRepository
	policy    retry.Policy
	throttler *Throttler
	guard     Guard
	registry  *Registry
	metrics   ports.MetricsRecorder
	log       *logger.Logger
	now       func() time.Time
}

// Options colaboradores opcionales del coordinador.
type Options struct {
	Throttler *Throttler
	Guard     Guard
	Registry  *Registry
	Metrics   ports.MetricsRecorder
	Logger    *logger.Logger
}

// NewCoordinator construye el coordinador. Los campos nulos de opts toman valores por defecto.
func NewCoordinator(
	orders *fulfillment.Service,
	purchases *appinv.PurchaseUseCase,
	orderRepo repository.OrderRepository,
	policy retry.Policy,
	opts Options,
) *Coordinator {
	c := &Coordinator{
		orders:    orders,
		purchases: purchases,
		orderRepo: orderRepo,
		policy:    policy,
		throttler: opts.Throttler,
		guard:     opts.Guard,
		registry:  opts.Registry,
		metrics:   opts.Metrics,
		log:       opts.Logger,
		now:       time.Now,
	}
	if c.throttler == nil {
		c.throttler = &Throttler{Concurrency: 1, Policy: policy}
	}
	if c.guard == nil {
		c.guard = NewLocalGuard()
	}
	if c.registry == nil {
		c.registry = NewRegistry()
	}
	if c.metrics == nil {
		c.metrics = ports.NopMetrics{}
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	c.log = c.log.Component("batch")
	return c
}

// Registry registro de corridas (consultas y SSE).
func (c *Coordinator) Registry() *Registry { return c.registry }

func (c *Coordinator) validate(req Request) error {
	if req.CompanyID == "" {
		return domain.NewValidationError("empresa requerida")
	}
	if !req.Operation.IsValid() {
		return domain.NewValidationError("operación desconocida: %s", req.Operation)
	}
	if len(req.ItemIDs) == 0 {
		return domain.NewValidationError("no hay ítems para procesar")
	}
	if req.Operation.deletesPurchases() {
		if req.PurchaseDeletionMode == appinv.DeletionModeUnset {
			return &domain.ValidationError{Kind: domain.ErrChoiceRequired, Message: string(req.Operation) + " requiere deletion_mode (deduct|keep)"}
		}
		if _, err := appinv.ParseDeletionMode(string(req.PurchaseDeletionMode)); err != nil {
			return err
		}
	}
	return nil
}

// Start valida la solicitud, toma el turno de la empresa y lanza la corrida en segundo plano.
// La corrida no depende del ctx de la petición: termina aunque el cliente se desconecte.
func (c *Coordinator) Start(ctx context.Context, req Request) (Progress, error) {
	if err := c.validate(req); err != nil {
		return Progress{}, err
	}
	release, err := c.guard.Acquire(ctx, req.CompanyID)
	if err != nil {
		return Progress{}, err
	}
	initial := c.newProgress(req)
	c.registry.register(req.CompanyID, initial)

	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer release()
		c.execute(runCtx, req, initial, nil)
	}()
	return initial, nil
}

// Run ejecuta la corrida de forma síncrona. events (opcional) recibe cada instantánea; el último
// evento tiene Done=true. Devuelve el progreso final.
func (c *Coordinator) Run(ctx context.Context, req Request, events chan<- Progress) (Progress, error) {
	if err := c.validate(req); err != nil {
		return Progress{}, err
	}
	release, err := c.guard.Acquire(ctx, req.CompanyID)
	if err != nil {
		return Progress{}, err
	}
	defer release()
	initial := c.newProgress(req)
	c.registry.register(req.CompanyID, initial)
	return c.execute(ctx, req, initial, events), nil
}

func (c *Coordinator) newProgress(req Request) Progress {
	return Progress{
		RunID:     uuid.New().String(),
		Operation: req.Operation,
		Total:     len(req.ItemIDs),
		Log:       []LogEntry{},
		StartedAt: c.now(),
	}
}

// tracker acumula el progreso y lo emite tras cada ítem.
type tracker struct {
	c        *Coordinator
	progress Progress
	events   chan<- Progress
	log      *logger.Logger
}

func (t *tracker) emit() {
	snap := t.progress.Snapshot()
	t.c.registry.publish(snap)
	if t.events != nil {
		t.events <- snap
	}
}

func (t *tracker) record(label string, err error) {
	t.progress.record(label, err)
	outcome := "success"
	if err != nil {
		outcome = "failure"
		t.log.Warn().
			Str("item", label).
			Err(err).
			Msg("ítem de lote fallido")
	}
	t.c.metrics.ItemProcessed(string(t.progress.Operation), outcome)
	t.emit()
}

func (c *Coordinator) execute(ctx context.Context, req Request, initial Progress, events chan<- Progress) Progress {
	t := &tracker{c: c, progress: initial, events: events, log: c.log.ForRun(initial.RunID, string(req.Operation), req.CompanyID)}
	t.emit()

	// Un ID repetido se procesa una sola vez; las copias quedan como fallidas.
	ids, repeats := splitRepeats(req.ItemIDs)
	req.ItemIDs = ids
	for _, id := range repeats {
		t.record(id, domain.NewValidationError("ítem repetido en la corrida: %s", id))
	}

	switch req.Operation {
	case OperationFulfillOrders:
		c.fulfillOrders(ctx, req, t)
	case OperationDeleteOrders:
		c.deleteOrders(ctx, req, req.ItemIDs, t)
	case OperationDeleteImportBatch:
		c.deleteImportBatches(ctx, req, t)
	case OperationDeletePurchases:
		c.deletePurchases(ctx, req, req.ItemIDs, t)
	case OperationDeletePurchaseImport:
		c.deletePurchaseImports(ctx, req, t)
	}

	finished := c.now()
	t.progress.Done = true
	t.progress.FinishedAt = &finished
	c.metrics.BatchFinished(string(req.Operation), finished.Sub(t.progress.StartedAt))
	t.log.Info().
		Int("total", t.progress.Total).
		Int("success", t.progress.SuccessCount).
		Int("failed", t.progress.FailCount).
		Msg("lote terminado")
	t.emit()
	return t.progress.Snapshot()
}

// ──────────────────────────────────────────────────────────────────────────────
// Despacho
// ──────────────────────────────────────────────────────────────────────────────

// fulfillOrders prepara todas las órdenes sobre una vista de planificación compartida (el FIFO de
// la orden N ve lo que planificaron las anteriores) y confirma una por una.
func (c *Coordinator) fulfillOrders(ctx context.Context, req Request, t *tracker) {
	view := fulfillment.NewPlanningView()
	plans := make([]*fulfillment.Plan, len(req.ItemIDs))
	prepErrs := make([]error, len(req.ItemIDs))
	for i, id := range req.ItemIDs {
		plans[i], prepErrs[i] = c.orders.Prepare(ctx, req.CompanyID, req.UserID, id, view)
	}

	for i, id := range req.ItemIDs {
		if prepErrs[i] != nil {
			t.record(id, prepErrs[i])
			continue
		}
		label := plans[i].Order.OrderNumber
		_, err := c.orders.Commit(ctx, plans[i])
		t.record(label, err)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Eliminación de órdenes
// ──────────────────────────────────────────────────────────────────────────────

type pendingDelete struct {
	label string
	run   func(ctx context.Context) error
}

// deleteRecords borra en bloques los registros cuya reversión ya se aplicó.
func (c *Coordinator) deleteRecords(ctx context.Context, items []pendingDelete, t *tracker) {
	c.throttler.Run(ctx, len(items),
		func(ctx context.Context, i int) error { return items[i].run(ctx) },
		func(i int, err error) { t.record(items[i].label, err) },
	)
}

func (c *Coordinator) deleteOrders(ctx context.Context, req Request, orderIDs []string, t *tracker) {
	plans := make([]*fulfillment.DeletionPlan, len(orderIDs))
	prepErrs := make([]error, len(orderIDs))
	for i, id := range orderIDs {
		plans[i], prepErrs[i] = c.orders.PrepareDeletion(ctx, req.CompanyID, req.UserID, id)
	}

	var pending []pendingDelete
	for i, id := range orderIDs {
		if prepErrs[i] != nil {
			t.record(id, prepErrs[i])
			continue
		}
		plan := plans[i]
		for j := range plan.Restore {
			plan.Restore[j].Movement.Notes = fmt.Sprintf("eliminación en lote %s orden %s", t.progress.RunID, plan.Order.OrderNumber)
		}
		if err := c.orders.ReverseOrder(ctx, plan); err != nil {
			t.record(plan.Order.OrderNumber, err)
			continue
		}
		pending = append(pending, pendingDelete{
			label: plan.Order.OrderNumber,
			run: func(ctx context.Context) error {
				return c.orders.DeleteOrderRecords(ctx, req.CompanyID, plan.Order.ID)
			},
		})
	}
	c.deleteRecords(ctx, pending, t)
}

// deleteImportBatches expande cada lote de importación a sus órdenes. Total pasa a contar órdenes,
// más los lotes que fallaron o no tenían órdenes.
func (c *Coordinator) deleteImportBatches(ctx context.Context, req Request, t *tracker) {
	members := make(map[string][]string, len(req.ItemIDs))
	failed := make(map[string]error)
	for _, batchID := range req.ItemIDs {
		orders, err := retry.DoValue(ctx, c.policy, func(ctx context.Context) ([]*entity.Order, error) {
			return c.orderRepo.ListByImportBatch(ctx, req.CompanyID, batchID)
		})
		if err != nil {
			failed[batchID] = fmt.Errorf("listar órdenes del lote: %w", err)
			continue
		}
		for _, o := range orders {
			members[batchID] = append(members[batchID], o.ID)
		}
	}
	orderIDs := c.expand(req.ItemIDs, members, failed, "órdenes", t)
	c.deleteOrders(ctx, req, orderIDs, t)
}

// expand reajusta Total a los miembros de cada lote y registra los lotes fallidos o vacíos.
// Los miembros salen sin repetir.
func (c *Coordinator) expand(batchIDs []string, members map[string][]string, failed map[string]error, noun string, t *tracker) []string {
	var ids []string
	for _, batchID := range batchIDs {
		ids = append(ids, members[batchID]...)
	}
	ids, _ = splitRepeats(ids)

	var empty []string
	for _, batchID := range batchIDs {
		if _, ok := failed[batchID]; !ok && len(members[batchID]) == 0 {
			empty = append(empty, batchID)
		}
	}
	t.progress.Total = t.progress.Current + len(ids) + len(failed) + len(empty)
	for _, batchID := range batchIDs {
		if err, ok := failed[batchID]; ok {
			t.record("lote "+batchID, err)
		}
	}
	for _, batchID := range empty {
		t.record("lote "+batchID+": sin "+noun, nil)
	}
	return ids
}

// splitRepeats separa la primera aparición de cada ID de sus copias, conservando el orden.
func splitRepeats(ids []string) (unique, repeats []string) {
	seen := make(map[string]struct{}, len(ids))
	unique = make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			repeats = append(repeats, id)
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique, repeats
}

// ──────────────────────────────────────────────────────────────────────────────
// Eliminación de compras
// ──────────────────────────────────────────────────────────────────────────────

// deletePurchaseImports expande cada importación de compras a sus lotes y los elimina con el modo
// de la solicitud.
func (c *Coordinator) deletePurchaseImports(ctx context.Context, req Request, t *tracker) {
	members := make(map[string][]string, len(req.ItemIDs))
	failed := make(map[string]error)
	for _, batchID := range req.ItemIDs {
		lots, err := c.purchases.ImportBatchLots(ctx, req.CompanyID, batchID)
		if err != nil {
			failed[batchID] = fmt.Errorf("listar compras del lote: %w", err)
			continue
		}
		for _, l := range lots {
			members[batchID] = append(members[batchID], l.ID)
		}
	}
	lotIDs := c.expand(req.ItemIDs, members, failed, "compras", t)
	c.deletePurchases(ctx, req, lotIDs, t)
}

func (c *Coordinator) deletePurchases(ctx context.Context, req Request, lotIDs []string, t *tracker) {
	plans := make([]*appinv.LotDeletionPlan, len(lotIDs))
	prepErrs := make([]error, len(lotIDs))
	for i, id := range lotIDs {
		plans[i], prepErrs[i] = c.purchases.PrepareLotDeletion(ctx, req.CompanyID, req.UserID, id, req.PurchaseDeletionMode)
	}

	var pending []pendingDelete
	for i, id := range lotIDs {
		if prepErrs[i] != nil {
			t.record(id, prepErrs[i])
			continue
		}
		plan := plans[i]
		plan.MovementType = entity.MovementTypeBatchDelete
		if err := c.purchases.ReverseLot(ctx, plan); err != nil {
			t.record(id, err)
			continue
		}
		pending = append(pending, pendingDelete{
			label: id,
			run: func(ctx context.Context) error {
				return c.purchases.DeleteLotRecord(ctx, req.CompanyID, plan.Lot.ID)
			},
		})
	}
	c.deleteRecords(ctx, pending, t)
}
