package inventory

import "github.com/jhoicas/stock-ledger/internal/domain/entity"

var transitions = map[entity.OrderStatus][]entity.OrderStatus{
	entity.OrderStatusPending:           {entity.OrderStatusFulfilled},
	entity.OrderStatusFulfilled:         {entity.OrderStatusPartiallyReturned, entity.OrderStatusFullyReturned},
	entity.OrderStatusPartiallyReturned: {entity.OrderStatusPartiallyReturned, entity.OrderStatusFullyReturned, entity.OrderStatusFulfilled},
	entity.OrderStatusFullyReturned:     {entity.OrderStatusPartiallyReturned, entity.OrderStatusFulfilled},
}

// CanTransition indica si la máquina de estados permite pasar de from a to.
func CanTransition(from, to entity.OrderStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ReturnStatus recalcula el estado de una orden despachada a partir de sus líneas:
// todas devueltas → fully_returned, alguna → partially_returned, ninguna → fulfilled.
func ReturnStatus(lines []*entity.OrderLine) entity.OrderStatus {
	returned := 0
	for _, l := range lines {
		if l.IsReturned {
			returned++
		}
	}
	switch {
	case len(lines) > 0 && returned == len(lines):
		return entity.OrderStatusFullyReturned
	case returned > 0:
		return entity.OrderStatusPartiallyReturned
	default:
		return entity.OrderStatusFulfilled
	}
}
