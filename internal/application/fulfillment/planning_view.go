package fulfillment

import "github.com/jhoicas/stock-ledger/internal/domain/entity"

// PlanningView superpone el consumo ya planificado (y aún no escrito) sobre las lecturas de
// lotes y stock, para que la preparación secuencial de varias órdenes de un mismo lote asigne
// FIFO sobre lo que las órdenes anteriores ya van a tomar. No es seguro para uso concurrente.
type PlanningView struct {
	lots  map[string]int64 // lotID → unidades planificadas
	stock map[string]int64 // skuID → unidades planificadas
}

// NewPlanningView crea una vista vacía.
func NewPlanningView() *PlanningView {
	return &PlanningView{lots: make(map[string]int64), stock: make(map[string]int64)}
}

// Available stock disponible descontando lo planificado.
func (v *PlanningView) Available(skuID string, fresh int64) int64 {
	if v == nil {
		return fresh
	}
	return fresh - v.stock[skuID]
}

// Lots copias de los lotes con el restante ya planificado descontado; omite los agotados.
func (v *PlanningView) Lots(lots []*entity.PurchaseLot) []*entity.PurchaseLot {
	out := make([]*entity.PurchaseLot, 0, len(lots))
	for _, l := range lots {
		c := *l
		if v != nil {
			c.QuantityRemaining -= v.lots[l.ID]
		}
		if c.QuantityRemaining > 0 {
			out = append(out, &c)
		}
	}
	return out
}

// Reserve registra el consumo de un plan.
func (v *PlanningView) Reserve(plan *Plan) {
	if v == nil || plan == nil {
		return
	}
	for _, lp := range plan.Lines {
		v.stock[lp.Line.SKUID] += lp.Line.Quantity
		for _, c := range lp.Allocation.Consumption {
			v.lots[c.LotID] += c.Quantity
		}
	}
}

func (v *PlanningView) clone() *PlanningView {
	c := NewPlanningView()
	if v == nil {
		return c
	}
	for k, n := range v.lots {
		c.lots[k] = n
	}
	for k, n := range v.stock {
		c.stock[k] = n
	}
	return c
}
