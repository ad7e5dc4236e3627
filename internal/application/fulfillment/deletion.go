package fulfillment

import (
	"context"
	"fmt"

	appinv "github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/retry"
)

// DeletionPlan restitución necesaria antes de borrar una orden.
// Restore está vacío para órdenes pendientes (nunca consumieron stock).
type DeletionPlan struct {
	Order   *entity.Order
	Lines   []*entity.OrderLine
	Restore []appinv.LedgerEntry
}

// PrepareDeletion calcula la restitución de cada línea no devuelta de una orden ya despachada.
// Las líneas devueltas en buen estado ya volvieron al stock; las dañadas o perdidas no vuelven.
func (s *Service) PrepareDeletion(ctx context.Context, companyID, userID, orderID string) (*DeletionPlan, error) {
	order, err := s.getOrder(ctx, companyID, orderID)
	if err != nil {
		return nil, err
	}
	lines, err := s.listLines(ctx, companyID, orderID)
	if err != nil {
		return nil, err
	}
	plan := &DeletionPlan{Order: order, Lines: lines}
	if order.Status == entity.OrderStatusPending {
		return plan, nil
	}
	for _, l := range lines {
		if l.IsReturned || l.Quantity <= 0 {
			continue
		}
		plan.Restore = append(plan.Restore, appinv.LedgerEntry{
			CompanyID: companyID,
			SKUID:     l.SKUID,
			Quantity:  l.Quantity,
			Movement: entity.StockMovement{
				Type:          entity.MovementTypeBatchDelete,
				ReferenceType: entity.ReferenceTypeOrderLine,
				ReferenceID:   l.ID,
				Notes:         "eliminación orden " + order.OrderNumber,
				CreatedBy:     userID,
			},
		})
	}
	return plan, nil
}

// ReverseOrder aplica la restitución del plan al libro (sin borrar registros).
func (s *Service) ReverseOrder(ctx context.Context, plan *DeletionPlan) error {
	if len(plan.Restore) == 0 {
		return nil
	}
	_, err := s.ledger.Apply(ctx, appinv.DirectionRestore, plan.Restore)
	return err
}

// DeleteOrderRecords borra líneas y orden. Los movimientos se conservan como auditoría.
func (s *Service) DeleteOrderRecords(ctx context.Context, companyID, orderID string) error {
	if err := s.lines.DeleteByOrder(ctx, companyID, orderID); err != nil {
		return fmt.Errorf("borrar líneas de %s: %w", orderID, err)
	}
	if err := s.orders.Delete(ctx, companyID, orderID); err != nil {
		return fmt.Errorf("borrar orden %s: %w", orderID, err)
	}
	return nil
}

// CommitDeletion restituye y luego borra.
func (s *Service) CommitDeletion(ctx context.Context, plan *DeletionPlan) error {
	if err := s.ReverseOrder(ctx, plan); err != nil {
		return err
	}
	return retry.Do(ctx, s.policy, func(ctx context.Context) error {
		return s.DeleteOrderRecords(ctx, plan.Order.CompanyID, plan.Order.ID)
	})
}

// DeleteOrder elimina una orden restituyendo su stock si ya fue despachada.
func (s *Service) DeleteOrder(ctx context.Context, companyID, userID, orderID string) error {
	plan, err := s.PrepareDeletion(ctx, companyID, userID, orderID)
	if err != nil {
		return err
	}
	return s.CommitDeletion(ctx, plan)
}
