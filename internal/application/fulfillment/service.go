// Package fulfillment es la máquina de estados de órdenes: despacho, devoluciones, deshacer
// devoluciones y eliminación con restitución de stock.
package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	appinv "github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/retry"
)

// Service orquesta asignador FIFO y libro de stock, y es el único que cambia Order.Status.
type Service struct {
	skus      repository.SKURepository
	lots      repository.PurchaseLotRepository
	stock     repository.CurrentStockRepository
	orders    repository.OrderRepository
	lines     repository.OrderLineRepository
	movements repository.StockMovementRepository
	ledger    appinv.Ledger
	policy    retry.Policy
	now       func() time.Time
}

// NewService construye la máquina de estados.
func NewService(repos repository.Repositories, ledger appinv.Ledger, policy retry.Policy) *Service {
	return &Service{
		skus:      repos.SKUs,
		lots:      repos.Lots,
		stock:     repos.Stock,
		orders:    repos.Orders,
		lines:     repos.OrderLines,
		movements: repos.Movements,
		ledger:    ledger,
		policy:    policy,
		now:       time.Now,
	}
}

// LinePlan costo FIFO planificado de una línea.
type LinePlan struct {
	Line       *entity.OrderLine
	SKU        *entity.SKU
	Allocation *domaininv.Allocation
}

// Plan despacho calculado sin escribir nada.
type Plan struct {
	Order               *entity.Order
	UserID              string
	Lines               []LinePlan
	TotalCost           decimal.Decimal
	ProfitLoss          decimal.Decimal
	ProfitMarginPercent *decimal.Decimal
}

// ──────────────────────────────────────────────────────────────────────────────
// Lecturas
// ──────────────────────────────────────────────────────────────────────────────

func (s *Service) getOrder(ctx context.Context, companyID, orderID string) (*entity.Order, error) {
	order, err := retry.DoValue(ctx, s.policy, func(ctx context.Context) (*entity.Order, error) {
		return s.orders.GetByID(ctx, companyID, orderID)
	})
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, &domain.ValidationError{Kind: domain.ErrNotFound, Message: "orden no encontrada: " + orderID}
	}
	return order, nil
}

func (s *Service) listLines(ctx context.Context, companyID, orderID string) ([]*entity.OrderLine, error) {
	return retry.DoValue(ctx, s.policy, func(ctx context.Context) ([]*entity.OrderLine, error) {
		return s.lines.ListByOrder(ctx, companyID, orderID)
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Despacho
// ──────────────────────────────────────────────────────────────────────────────

// Prepare verifica stock para todas las líneas no devueltas y calcula el plan FIFO.
// Si falta stock en cualquier SKU rechaza la orden completa nombrando los SKUs cortos.
// view puede ser nil; si no, el plan se reserva en ella.
func (s *Service) Prepare(ctx context.Context, companyID, userID, orderID string, view *PlanningView) (*Plan, error) {
	order, err := s.getOrder(ctx, companyID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusPending {
		return nil, &domain.ValidationError{Kind: domain.ErrInvalidTransition, Message: fmt.Sprintf("la orden %s está en estado %s", order.OrderNumber, order.Status)}
	}
	plan, shortages, err := s.plan(ctx, order, view)
	if err != nil {
		return nil, err
	}
	if len(shortages) > 0 {
		return nil, domain.InsufficientStockError(shortages)
	}
	plan.UserID = userID
	view.Reserve(plan)
	return plan, nil
}

// plan calcula faltantes y asignaciones. Con faltantes el plan igual se devuelve (vista previa).
func (s *Service) plan(ctx context.Context, order *entity.Order, view *PlanningView) (*Plan, []domain.Shortage, error) {
	companyID := order.CompanyID
	lines, err := s.listLines(ctx, companyID, order.ID)
	if err != nil {
		return nil, nil, err
	}
	active := make([]*entity.OrderLine, 0, len(lines))
	needed := make(map[string]int64)
	skuOrder := make([]string, 0)
	for _, l := range lines {
		if l.IsReturned {
			continue
		}
		if l.Quantity <= 0 {
			return nil, nil, domain.NewValidationError("cantidad inválida en línea %s: %d", l.ID, l.Quantity)
		}
		if _, ok := needed[l.SKUID]; !ok {
			skuOrder = append(skuOrder, l.SKUID)
		}
		needed[l.SKUID] += l.Quantity
		active = append(active, l)
	}
	if len(active) == 0 {
		return nil, nil, domain.NewValidationError("la orden %s no tiene líneas para despachar", order.OrderNumber)
	}

	skus, err := retry.DoValue(ctx, s.policy, func(ctx context.Context) ([]*entity.SKU, error) {
		return s.skus.ListByIDs(ctx, companyID, skuOrder)
	})
	if err != nil {
		return nil, nil, err
	}
	skuByID := make(map[string]*entity.SKU, len(skus))
	for _, sku := range skus {
		skuByID[sku.ID] = sku
	}

	// 1. Verificación de stock por SKU (suma de sus líneas)
	var shortages []domain.Shortage
	for _, skuID := range skuOrder {
		sku, ok := skuByID[skuID]
		if !ok {
			return nil, nil, &domain.ValidationError{Kind: domain.ErrNotFound, Message: "SKU no encontrado: " + skuID}
		}
		current, err := retry.DoValue(ctx, s.policy, func(ctx context.Context) (*entity.CurrentStock, error) {
			return s.stock.Get(ctx, companyID, skuID)
		})
		if err != nil {
			return nil, nil, err
		}
		if available := view.Available(skuID, current.QuantityAvailable); available < needed[skuID] {
			shortages = append(shortages, domain.Shortage{SKUID: skuID, SKUCode: sku.Code, Needed: needed[skuID], Available: available})
		}
	}

	// 2. Asignación FIFO por línea; scratch evita que dos líneas del mismo SKU planifiquen el mismo lote
	scratch := view.clone()
	plan := &Plan{Order: order, TotalCost: decimal.Zero}
	for _, l := range active {
		sku := skuByID[l.SKUID]
		fresh, err := retry.DoValue(ctx, s.policy, func(ctx context.Context) ([]*entity.PurchaseLot, error) {
			return s.lots.ListAvailableBySKU(ctx, companyID, l.SKUID)
		})
		if err != nil {
			return nil, nil, err
		}
		alloc, err := domaininv.Allocate(sku, l.Quantity, scratch.Lots(fresh))
		if err != nil {
			return nil, nil, err
		}
		for _, c := range alloc.Consumption {
			scratch.lots[c.LotID] += c.Quantity
		}
		plan.Lines = append(plan.Lines, LinePlan{Line: l, SKU: sku, Allocation: alloc})
		plan.TotalCost = plan.TotalCost.Add(alloc.LineCost)
	}
	plan.ProfitLoss, plan.ProfitMarginPercent = domaininv.ComputeProfit(order.NetRevenue, plan.TotalCost)
	return plan, shortages, nil
}

// Commit escribe el plan: costos de línea → libro (lotes, agregado, movimientos) → estado de la
// orden con verificación por relectura.
func (s *Service) Commit(ctx context.Context, plan *Plan) (*entity.Order, error) {
	order := plan.Order
	companyID := order.CompanyID

	// Lectura fresca: otra operación pudo despachar la orden después de Prepare
	fresh, err := s.getOrder(ctx, companyID, order.ID)
	if err != nil {
		return nil, err
	}
	if fresh.Status != entity.OrderStatusPending {
		return nil, &domain.ValidationError{Kind: domain.ErrInvalidTransition, Message: fmt.Sprintf("la orden %s ya está en estado %s", order.OrderNumber, fresh.Status)}
	}

	entries := make([]appinv.LedgerEntry, 0, len(plan.Lines))
	for _, lp := range plan.Lines {
		line := lp.Line
		line.LineTotalCost = lp.Allocation.LineCost
		line.UnitCost = domaininv.UnitCost(lp.Allocation.LineCost, line.Quantity)
		if err := retry.Do(ctx, s.policy, func(ctx context.Context) error { return s.lines.Update(ctx, line) }); err != nil {
			return nil, fmt.Errorf("actualizar línea %s: %w", line.ID, err)
		}
		entries = append(entries, appinv.LedgerEntry{
			CompanyID: companyID,
			SKUID:     line.SKUID,
			Quantity:  line.Quantity,
			Lots:      lp.Allocation.Consumption,
			Movement: entity.StockMovement{
				Type:          entity.MovementTypeOrderFulfillment,
				ReferenceType: entity.ReferenceTypeOrderLine,
				ReferenceID:   line.ID,
				Notes:         "despacho orden " + order.OrderNumber,
				CreatedBy:     plan.UserID,
			},
		})
	}

	if _, err := s.ledger.Apply(ctx, appinv.DirectionConsume, entries); err != nil {
		return nil, err
	}

	now := s.now()
	order.Status = entity.OrderStatusFulfilled
	order.TotalCost = plan.TotalCost
	order.ProfitLoss = plan.ProfitLoss
	order.ProfitMarginPercent = plan.ProfitMarginPercent
	order.FulfilledAt = &now
	return s.saveStatus(ctx, order)
}

// Fulfill Prepare + Commit de una sola orden.
func (s *Service) Fulfill(ctx context.Context, companyID, userID, orderID string) (*entity.Order, error) {
	plan, err := s.Prepare(ctx, companyID, userID, orderID, nil)
	if err != nil {
		return nil, err
	}
	return s.Commit(ctx, plan)
}

// saveStatus persiste la orden y relee para confirmar el estado antes de darla por exitosa.
func (s *Service) saveStatus(ctx context.Context, order *entity.Order) (*entity.Order, error) {
	if !order.Status.IsValid() {
		return nil, domain.NewValidationError("estado inválido: %s", order.Status)
	}
	if err := retry.Do(ctx, s.policy, func(ctx context.Context) error { return s.orders.Update(ctx, order) }); err != nil {
		return nil, fmt.Errorf("actualizar orden %s: %w", order.ID, err)
	}
	persisted, err := s.getOrder(ctx, order.CompanyID, order.ID)
	if err != nil {
		return nil, err
	}
	if persisted.Status != order.Status {
		return persisted, fmt.Errorf("orden %s: esperado %s, leído %s: %w", order.OrderNumber, order.Status, persisted.Status, domain.ErrVerifyMismatch)
	}
	return persisted, nil
}

// PreviewCost costo FIFO que tendría el despacho ahora, sin escribir. Para órdenes ya despachadas
// devuelve los costos persistidos.
func (s *Service) PreviewCost(ctx context.Context, companyID, orderID string) (*dto.CostPreviewResponse, error) {
	order, err := s.getOrder(ctx, companyID, orderID)
	if err != nil {
		return nil, err
	}
	out := &dto.CostPreviewResponse{OrderID: order.ID, NetRevenue: order.NetRevenue, Lines: []dto.LineCostDTO{}}

	if order.Status != entity.OrderStatusPending {
		lines, err := s.listLines(ctx, companyID, order.ID)
		if err != nil {
			return nil, err
		}
		for _, l := range lines {
			out.Lines = append(out.Lines, dto.LineCostDTO{
				LineID: l.ID, SKUID: l.SKUID, Quantity: l.Quantity,
				UnitCost: l.UnitCost, LineTotalCost: l.LineTotalCost,
				Consumption: []dto.LotConsumptionDTO{},
			})
		}
		out.TotalCost, out.ProfitLoss, out.ProfitMarginPercent = order.TotalCost, order.ProfitLoss, order.ProfitMarginPercent
		return out, nil
	}

	plan, shortages, err := s.plan(ctx, order, nil)
	if err != nil {
		return nil, err
	}
	out.Shortages = shortages
	out.TotalCost, out.ProfitLoss, out.ProfitMarginPercent = plan.TotalCost, plan.ProfitLoss, plan.ProfitMarginPercent
	for _, lp := range plan.Lines {
		cons := make([]dto.LotConsumptionDTO, 0, len(lp.Allocation.Consumption))
		for _, c := range lp.Allocation.Consumption {
			cons = append(cons, dto.LotConsumptionDTO{LotID: c.LotID, Quantity: c.Quantity, UnitCost: c.UnitCost, Cost: c.Cost})
		}
		out.Lines = append(out.Lines, dto.LineCostDTO{
			LineID:        lp.Line.ID,
			SKUID:         lp.Line.SKUID,
			Quantity:      lp.Line.Quantity,
			UnitCost:      domaininv.UnitCost(lp.Allocation.LineCost, lp.Line.Quantity),
			LineTotalCost: lp.Allocation.LineCost,
			ShortfallQty:  lp.Allocation.ShortfallQty,
			Consumption:   cons,
		})
	}
	return out, nil
}
