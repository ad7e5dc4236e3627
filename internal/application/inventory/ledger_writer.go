package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/application/ports"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/jhoicas/stock-ledger/pkg/retry"
)

// Direction sentido de una aplicación al libro de stock.
type Direction string

const (
	DirectionConsume Direction = "consume"
	DirectionRestore Direction = "restore"
)

// stockCASAttempts intentos de escritura del contador agregado ante cambio de versión.
// Cada intento vuelve a leer el valor antes de escribir.
const stockCASAttempts = 3

// LedgerEntry una operación (línea de orden × SKU, o lote) sobre el libro.
// Quantity es la magnitud; el signo del movimiento lo da la dirección.
type LedgerEntry struct {
	CompanyID string
	SKUID     string
	Quantity  int64
	// Lots consumo por lote calculado por el asignador (solo consume).
	Lots []domaininv.LotConsumption
	// Movement borrador: tipo, referencia, notas, condición y autor.
	Movement entity.StockMovement
	// AllowNegative consentimiento explícito del usuario para dejar el agregado negativo.
	AllowNegative bool
}

// ApplyResult lo que se escribió. Ante error contiene lo aplicado antes de la falla (sin rollback).
type ApplyResult struct {
	Lots      []*entity.PurchaseLot
	Stock     []*entity.CurrentStock
	Movements []*entity.StockMovement
}

// Applied indica si la aplicación completó las tres fases.
func (r *ApplyResult) Applied() bool {
	return r != nil && r.Movements != nil
}

// LedgerWriter aplica planes de consumo o restitución: lotes → contador agregado → movimientos.
// Cada contador se relee justo antes de escribirse y la escritura es condicional a su versión.
type LedgerWriter struct {
	lots      repository.PurchaseLotRepository
	stock     repository.CurrentStockRepository
	movements repository.StockMovementRepository
	policy    retry.Policy
	metrics   ports.MetricsRecorder
	log       *logger.Logger
	now       func() time.Time
}

// NewLedgerWriter construye el escritor del libro. policy aplica a cada llamada al almacenamiento.
func NewLedgerWriter(
	lots repository.PurchaseLotRepository,
	stock repository.CurrentStockRepository,
	movements repository.StockMovementRepository,
	policy retry.Policy,
	metrics ports.MetricsRecorder,
	log *logger.Logger,
) *LedgerWriter {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &LedgerWriter{
		lots:      lots,
		stock:     stock,
		movements: movements,
		policy:    policy,
		metrics:   metrics,
		log:       log.Component("ledger"),
		now:       time.Now,
	}
}

// Apply escribe las entradas en orden fijo. La primera falla detiene la aplicación.
func (w *LedgerWriter) Apply(ctx context.Context, direction Direction, entries []LedgerEntry) (*ApplyResult, error) {
	if err := validateEntries(direction, entries); err != nil {
		return nil, err
	}
	res := &ApplyResult{}
	if len(entries) == 0 {
		res.Movements = []*entity.StockMovement{}
		return res, nil
	}

	if direction == DirectionConsume {
		if err := w.applyLots(ctx, entries, res); err != nil {
			return res, err
		}
	}
	if err := w.applyStock(ctx, direction, entries, res); err != nil {
		return res, err
	}

	now := w.now()
	movs := make([]*entity.StockMovement, 0, len(entries))
	for _, e := range entries {
		m := e.Movement
		m.ID = uuid.New().String()
		m.CompanyID = e.CompanyID
		m.SKUID = e.SKUID
		m.Quantity = e.Quantity
		if direction == DirectionConsume {
			m.Quantity = -e.Quantity
		}
		if m.MovementDate.IsZero() {
			m.MovementDate = now
		}
		m.CreatedAt = now
		movs = append(movs, &m)
	}
	err := retry.Do(ctx, w.policy, func(ctx context.Context) error {
		return w.movements.BulkCreate(ctx, movs)
	})
	if err != nil {
		return res, fmt.Errorf("insertar movimientos: %w", err)
	}
	res.Movements = movs
	return res, nil
}

func validateEntries(direction Direction, entries []LedgerEntry) error {
	if direction != DirectionConsume && direction != DirectionRestore {
		return domain.NewValidationError("dirección inválida: %q", direction)
	}
	var companyID string
	for i, e := range entries {
		if e.CompanyID == "" || e.SKUID == "" {
			return domain.NewValidationError("entrada %d sin empresa o SKU", i)
		}
		if companyID == "" {
			companyID = e.CompanyID
		} else if e.CompanyID != companyID {
			return domain.NewValidationError("entradas de distintas empresas")
		}
		if e.Quantity <= 0 {
			return domain.NewValidationError("cantidad inválida para SKU %s: %d", e.SKUID, e.Quantity)
		}
		if direction == DirectionRestore && len(e.Lots) > 0 {
			return domain.NewValidationError("la restitución no reconstruye lotes")
		}
		var fromLots int64
		for _, c := range e.Lots {
			if c.Quantity <= 0 {
				return domain.NewValidationError("consumo de lote %s inválido: %d", c.LotID, c.Quantity)
			}
			fromLots += c.Quantity
		}
		if fromLots > e.Quantity {
			return domain.NewValidationError("el consumo de lotes (%d) excede la cantidad (%d)", fromLots, e.Quantity)
		}
	}
	return nil
}

// applyLots agrupa por lote (varias líneas pueden tocar el mismo) y descuenta con lectura fresca.
func (w *LedgerWriter) applyLots(ctx context.Context, entries []LedgerEntry, res *ApplyResult) error {
	companyID := entries[0].CompanyID
	order := make([]string, 0)
	takes := make(map[string]int64)
	for _, e := range entries {
		for _, c := range e.Lots {
			if _, ok := takes[c.LotID]; !ok {
				order = append(order, c.LotID)
			}
			takes[c.LotID] += c.Quantity
		}
	}

	for _, lotID := range order {
		take := takes[lotID]
		lot, err := retry.DoValue(ctx, w.policy, func(ctx context.Context) (*entity.PurchaseLot, error) {
			return w.lots.GetByID(ctx, companyID, lotID)
		})
		if err != nil {
			return fmt.Errorf("leer lote %s: %w", lotID, err)
		}
		if lot == nil {
			return w.conflict(&domain.LedgerConflictError{Entity: "purchase_lot", ID: lotID, Expected: take, Actual: 0, Cause: domain.ErrNotFound})
		}
		if lot.QuantityRemaining < take {
			return w.conflict(&domain.LedgerConflictError{Entity: "purchase_lot", ID: lotID, Expected: take, Actual: lot.QuantityRemaining})
		}
		updated, err := retry.DoValue(ctx, w.policy, func(ctx context.Context) (*entity.PurchaseLot, error) {
			return w.lots.UpdateRemaining(ctx, companyID, lotID, lot.QuantityRemaining-take, lot.Version)
		})
		if err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				actual := int64(0)
				if fresh, ferr := w.lots.GetByID(ctx, companyID, lotID); ferr == nil && fresh != nil {
					actual = fresh.QuantityRemaining
				}
				return w.conflict(&domain.LedgerConflictError{Entity: "purchase_lot", ID: lotID, Expected: lot.QuantityRemaining, Actual: actual, Cause: err})
			}
			return fmt.Errorf("actualizar lote %s: %w", lotID, err)
		}
		res.Lots = append(res.Lots, updated)
	}
	return nil
}

type skuDelta struct {
	skuID         string
	quantity      int64
	allowNegative bool
}

// applyStock aplica el delta neto por SKU al contador agregado.
func (w *LedgerWriter) applyStock(ctx context.Context, direction Direction, entries []LedgerEntry, res *ApplyResult) error {
	companyID := entries[0].CompanyID
	deltas := make([]*skuDelta, 0)
	bySKU := make(map[string]*skuDelta)
	for _, e := range entries {
		d, ok := bySKU[e.SKUID]
		if !ok {
			d = &skuDelta{skuID: e.SKUID, allowNegative: true}
			bySKU[e.SKUID] = d
			deltas = append(deltas, d)
		}
		d.quantity += e.Quantity
		d.allowNegative = d.allowNegative && e.AllowNegative
	}

	for _, d := range deltas {
		saved, err := w.writeStock(ctx, companyID, direction, d)
		if err != nil {
			return err
		}
		res.Stock = append(res.Stock, saved)
	}
	return nil
}

func (w *LedgerWriter) writeStock(ctx context.Context, companyID string, direction Direction, d *skuDelta) (*entity.CurrentStock, error) {
	var conflictErr *domain.LedgerConflictError
	for attempt := 0; attempt < stockCASAttempts; attempt++ {
		current, err := retry.DoValue(ctx, w.policy, func(ctx context.Context) (*entity.CurrentStock, error) {
			return w.stock.Get(ctx, companyID, d.skuID)
		})
		if err != nil {
			return nil, fmt.Errorf("leer stock %s: %w", d.skuID, err)
		}
		next := current.QuantityAvailable + d.quantity
		if direction == DirectionConsume {
			if !d.allowNegative && current.QuantityAvailable < d.quantity {
				return nil, w.conflict(&domain.LedgerConflictError{Entity: "current_stock", ID: d.skuID, Expected: d.quantity, Actual: current.QuantityAvailable})
			}
			next = current.QuantityAvailable - d.quantity
		}
		proposed := &entity.CurrentStock{
			CompanyID:         companyID,
			SKUID:             d.skuID,
			QuantityAvailable: next,
			UpdatedAt:         w.now(),
		}
		saved, err := retry.DoValue(ctx, w.policy, func(ctx context.Context) (*entity.CurrentStock, error) {
			return w.stock.Save(ctx, proposed, current.Version)
		})
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return nil, fmt.Errorf("guardar stock %s: %w", d.skuID, err)
		}
		conflictErr = &domain.LedgerConflictError{Entity: "current_stock", ID: d.skuID, Expected: current.QuantityAvailable, Cause: err}
		if fresh, ferr := w.stock.Get(ctx, companyID, d.skuID); ferr == nil {
			conflictErr.Actual = fresh.QuantityAvailable
		}
		w.log.Warn().Str("sku_id", d.skuID).Int64("version", current.Version).Int("intento", attempt+1).Msg("versión de stock cambió, releyendo")
	}
	return nil, w.conflict(conflictErr)
}

func (w *LedgerWriter) conflict(err *domain.LedgerConflictError) error {
	w.metrics.LedgerConflict(err.Entity)
	w.log.Warn().
		Str("entity", err.Entity).
		Str("id", err.ID).
		Int64("expected", err.Expected).
		Int64("actual", err.Actual).
		Msg("conflicto en el libro de stock")
	return err
}

// Revert deshace un movimiento puntual: aplica el delta opuesto al agregado (lectura fresca + CAS,
// sin permitir negativo) y borra el movimiento. Solo se usa para deshacer devoluciones.
func (w *LedgerWriter) Revert(ctx context.Context, movement *entity.StockMovement) error {
	if movement == nil || movement.ID == "" {
		return domain.NewValidationError("movimiento requerido")
	}
	if movement.Quantity != 0 {
		d := &skuDelta{skuID: movement.SKUID}
		direction := DirectionConsume
		d.quantity = movement.Quantity
		if movement.Quantity < 0 {
			direction = DirectionRestore
			d.quantity = -movement.Quantity
		}
		if _, err := w.writeStock(ctx, movement.CompanyID, direction, d); err != nil {
			return err
		}
	}
	err := retry.Do(ctx, w.policy, func(ctx context.Context) error {
		return w.movements.Delete(ctx, movement.CompanyID, movement.ID)
	})
	if err != nil {
		return fmt.Errorf("borrar movimiento %s: %w", movement.ID, err)
	}
	return nil
}
