package fulfillment

import (
	"context"
	"errors"
	"fmt"

	appinv "github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/pkg/retry"
)

// ReturnLineInput línea a devolver y su condición.
type ReturnLineInput struct {
	LineID    string
	Condition entity.ReturnCondition
}

// ReturnLines devuelve líneas de una orden despachada.
// sound vuelve al stock disponible; damaged suma a SKU.DamagedStock; missing no mueve stock.
// Las tres registran un movimiento de devolución con la condición, para poder deshacerlo.
func (s *Service) ReturnLines(ctx context.Context, companyID, userID, orderID string, inputs []ReturnLineInput) (*entity.Order, error) {
	order, err := s.getOrder(ctx, companyID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusFulfilled && order.Status != entity.OrderStatusPartiallyReturned {
		return nil, &domain.ValidationError{Kind: domain.ErrInvalidTransition, Message: fmt.Sprintf("no se puede devolver una orden en estado %s", order.Status)}
	}
	lines, err := s.listLines(ctx, companyID, orderID)
	if err != nil {
		return nil, err
	}

	// Validación completa antes de cualquier escritura
	byID := make(map[string]*entity.OrderLine, len(lines))
	for _, l := range lines {
		byID[l.ID] = l
	}
	if len(inputs) == 0 {
		return nil, domain.NewValidationError("no hay líneas para devolver")
	}
	seen := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		line, ok := byID[in.LineID]
		switch {
		case !ok:
			return nil, &domain.ValidationError{Kind: domain.ErrNotFound, Message: "línea no encontrada en la orden: " + in.LineID}
		case line.IsReturned:
			return nil, &domain.ValidationError{Kind: domain.ErrInvalidTransition, Message: "la línea ya fue devuelta: " + in.LineID}
		case seen[in.LineID]:
			return nil, domain.NewValidationError("línea repetida: %s", in.LineID)
		case !in.Condition.IsValid():
			return nil, domain.NewValidationError("condición inválida %q (sound|damaged|missing)", in.Condition)
		}
		seen[in.LineID] = true
	}

	var firstErr error
	for _, in := range inputs {
		if err := s.returnLine(ctx, order, userID, byID[in.LineID], in.Condition); err != nil {
			firstErr = err
			break
		}
	}

	// El estado se recalcula con lo efectivamente devuelto, incluso tras una falla parcial
	order.Status = domaininv.ReturnStatus(lines)
	saved, err := s.saveStatus(ctx, order)
	if firstErr != nil {
		return saved, firstErr
	}
	return saved, err
}

func (s *Service) returnLine(ctx context.Context, order *entity.Order, userID string, line *entity.OrderLine, cond entity.ReturnCondition) error {
	mov := entity.StockMovement{
		Type:            entity.MovementTypeReturn,
		ReferenceType:   entity.ReferenceTypeOrderLine,
		ReferenceID:     line.ID,
		ReturnCondition: cond,
		Notes:           fmt.Sprintf("devolución orden %s (%s)", order.OrderNumber, cond),
		CreatedBy:       userID,
	}

	switch cond {
	case entity.ReturnConditionSound:
		_, err := s.ledger.Apply(ctx, appinv.DirectionRestore, []appinv.LedgerEntry{{
			CompanyID: order.CompanyID,
			SKUID:     line.SKUID,
			Quantity:  line.Quantity,
			Movement:  mov,
		}})
		if err != nil {
			return err
		}
	case entity.ReturnConditionDamaged:
		_, err := retry.DoValue(ctx, s.policy, func(ctx context.Context) (int64, error) {
			return s.skus.AdjustDamagedStock(ctx, order.CompanyID, line.SKUID, line.Quantity)
		})
		if err != nil {
			return fmt.Errorf("stock dañado %s: %w", line.SKUID, err)
		}
		fallthrough
	case entity.ReturnConditionMissing:
		// Movimiento con cantidad cero: no altera el agregado pero deja la traza de la condición
		now := s.now()
		mov.CompanyID = order.CompanyID
		mov.SKUID = line.SKUID
		mov.MovementDate = now
		mov.CreatedAt = now
		if err := retry.Do(ctx, s.policy, func(ctx context.Context) error { return s.movements.Create(ctx, &mov) }); err != nil {
			return fmt.Errorf("registrar devolución: %w", err)
		}
	}

	now := s.now()
	line.IsReturned = true
	line.ReturnDate = &now
	line.ReturnCondition = cond
	if err := retry.Do(ctx, s.policy, func(ctx context.Context) error { return s.lines.Update(ctx, line) }); err != nil {
		return fmt.Errorf("actualizar línea %s: %w", line.ID, err)
	}
	return nil
}

// UndoReturn deshace la devolución registrada en el movimiento según su condición estructurada,
// borra el movimiento, desmarca la línea y recalcula el estado de la orden hacia abajo.
func (s *Service) UndoReturn(ctx context.Context, companyID, movementID string) (*entity.Order, error) {
	mov, err := retry.DoValue(ctx, s.policy, func(ctx context.Context) (*entity.StockMovement, error) {
		return s.movements.GetByID(ctx, companyID, movementID)
	})
	if err != nil {
		return nil, err
	}
	if mov == nil {
		return nil, &domain.ValidationError{Kind: domain.ErrNotFound, Message: "movimiento no encontrado: " + movementID}
	}
	if mov.Type != entity.MovementTypeReturn || mov.ReferenceType != entity.ReferenceTypeOrderLine {
		return nil, domain.NewValidationError("el movimiento %s no es una devolución de línea", movementID)
	}

	line, err := retry.DoValue(ctx, s.policy, func(ctx context.Context) (*entity.OrderLine, error) {
		return s.lines.GetByID(ctx, companyID, mov.ReferenceID)
	})
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, &domain.ValidationError{Kind: domain.ErrNotFound, Message: "línea de la devolución no encontrada: " + mov.ReferenceID}
	}
	if !line.IsReturned {
		return nil, &domain.ValidationError{Kind: domain.ErrInvalidTransition, Message: "la línea no está devuelta: " + line.ID}
	}
	order, err := s.getOrder(ctx, companyID, line.OrderID)
	if err != nil {
		return nil, err
	}

	cond := mov.ReturnCondition
	if cond == entity.ReturnConditionNone {
		cond = line.ReturnCondition
	}
	switch cond {
	case entity.ReturnConditionSound:
		current, err := retry.DoValue(ctx, s.policy, func(ctx context.Context) (*entity.CurrentStock, error) {
			return s.stock.Get(ctx, companyID, line.SKUID)
		})
		if err != nil {
			return nil, err
		}
		if current.QuantityAvailable < mov.Quantity {
			return nil, &domain.ValidationError{
				Kind:      domain.ErrInsufficientStock,
				Message:   "deshacer la devolución dejaría el stock negativo",
				Shortages: []domain.Shortage{{SKUID: line.SKUID, Needed: mov.Quantity, Available: current.QuantityAvailable}},
			}
		}
		if err := s.ledger.Revert(ctx, mov); err != nil {
			return nil, err
		}
	case entity.ReturnConditionDamaged:
		_, err := retry.DoValue(ctx, s.policy, func(ctx context.Context) (int64, error) {
			return s.skus.AdjustDamagedStock(ctx, companyID, line.SKUID, -line.Quantity)
		})
		if err != nil {
			return nil, fmt.Errorf("stock dañado %s: %w", line.SKUID, err)
		}
		if err := s.ledger.Revert(ctx, mov); err != nil {
			// El movimiento sigue en el libro: el stock dañado vuelve a su valor para que el
			// reintento parta del mismo estado.
			_, cerr := retry.DoValue(ctx, s.policy, func(ctx context.Context) (int64, error) {
				return s.skus.AdjustDamagedStock(ctx, companyID, line.SKUID, line.Quantity)
			})
			if cerr != nil {
				return nil, errors.Join(err, fmt.Errorf("restituir stock dañado %s: %w", line.SKUID, cerr))
			}
			return nil, err
		}
	case entity.ReturnConditionMissing:
		if err := s.ledger.Revert(ctx, mov); err != nil {
			return nil, err
		}
	default:
		return nil, domain.NewValidationError("condición de devolución desconocida en el movimiento %s", movementID)
	}

	line.IsReturned = false
	line.ReturnDate = nil
	line.ReturnCondition = entity.ReturnConditionNone
	if err := retry.Do(ctx, s.policy, func(ctx context.Context) error { return s.lines.Update(ctx, line) }); err != nil {
		return nil, fmt.Errorf("actualizar línea %s: %w", line.ID, err)
	}

	lines, err := s.listLines(ctx, companyID, order.ID)
	if err != nil {
		return nil, err
	}
	order.Status = domaininv.ReturnStatus(lines)
	return s.saveStatus(ctx, order)
}
