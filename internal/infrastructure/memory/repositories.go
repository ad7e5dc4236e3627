package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ repository.SKURepository           = (*SKURepo)(nil)
	_ repository.PurchaseLotRepository   = (*PurchaseLotRepo)(nil)
	_ repository.CurrentStockRepository  = (*CurrentStockRepo)(nil)
	_ repository.OrderRepository         = (*OrderRepo)(nil)
	_ repository.OrderLineRepository     = (*OrderLineRepo)(nil)
	_ repository.StockMovementRepository = (*StockMovementRepo)(nil)
)

type skuRow struct {
	v   entity.SKU
	seq int64
}

type lotRow struct {
	v   entity.PurchaseLot
	seq int64
}

type stockRow struct {
	v entity.CurrentStock
}

type orderRow struct {
	v   entity.Order
	seq int64
}

type lineRow struct {
	v   entity.OrderLine
	seq int64
}

type movementRow struct {
	v   entity.StockMovement
	seq int64
}

func newID(id string) string {
	if id == "" {
		return uuid.New().String()
	}
	return id
}

// ──────────────────────────────────────────────────────────────────────────────
// SKU
// ──────────────────────────────────────────────────────────────────────────────

// SKURepo puerto de SKU en memoria.
type SKURepo struct{ s *Store }

func (r *SKURepo) Create(ctx context.Context, sku *entity.SKU) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if drop, err := r.s.check(ctx, "skus.Create"); err != nil || drop {
		return err
	}
	b := bucket(r.s.skus, sku.CompanyID)
	for _, row := range b {
		if row.v.Code == sku.Code {
			return domain.ErrDuplicate
		}
	}
	sku.ID = newID(sku.ID)
	now := r.s.now()
	sku.CreatedAt, sku.UpdatedAt = now, now
	b[sku.ID] = skuRow{v: *sku, seq: r.s.nextSeq()}
	return nil
}

func (r *SKURepo) GetByID(ctx context.Context, companyID, id string) (*entity.SKU, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, err := r.s.check(ctx, "skus.GetByID"); err != nil {
		return nil, err
	}
	row, ok := r.s.skus[companyID][id]
	if !ok {
		return nil, nil
	}
	out := row.v
	return &out, nil
}

func (r *SKURepo) GetByCode(ctx context.Context, companyID, code string) (*entity.SKU, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, err := r.s.check(ctx, "skus.GetByCode"); err != nil {
		return nil, err
	}
	for _, row := range r.s.skus[companyID] {
		if row.v.Code == code {
			out := row.v
			return &out, nil
		}
	}
	return nil, nil
}

func (r *SKURepo) ListByIDs(ctx context.Context, companyID string, ids []string) ([]*entity.SKU, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, err := r.s.check(ctx, "skus.ListByIDs"); err != nil {
		return nil, err
	}
	out := make([]*entity.SKU, 0, len(ids))
	for _, id := range ids {
		if row, ok := r.s.skus[companyID][id]; ok {
			v := row.v
			out = append(out, &v)
		}
	}
	return out, nil
}

func (r *SKURepo) AdjustDamagedStock(ctx context.Context, companyID, id string, delta int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if drop, err := r.s.check(ctx, "skus.AdjustDamagedStock"); err != nil || drop {
		return 0, err
	}
	row, ok := r.s.skus[companyID][id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	row.v.DamagedStock += delta
	row.v.UpdatedAt = r.s.now()
	r.s.skus[companyID][id] = row
	return row.v.DamagedStock, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// PurchaseLot
// ──────────────────────────────────────────────────────────────────────────────

// PurchaseLotRepo puerto de lotes en memoria.
type PurchaseLotRepo struct{ s *Store }

func (r *PurchaseLotRepo) Create(ctx context.Context, lot *entity.PurchaseLot) error {
	return r.BulkCreate(ctx, []*entity.PurchaseLot{lot})
}

func (r *PurchaseLotRepo) BulkCreate(ctx context.Context, lots []*entity.PurchaseLot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if drop, err := r.s.check(ctx, "lots.BulkCreate"); err != nil || drop {
		return err
	}
	now := r.s.now()
	for _, lot := range lots {
		lot.ID = newID(lot.ID)
		lot.Version = 1
		lot.CreatedAt, lot.UpdatedAt = now, now
		bucket(r.s.lots, lot.CompanyID)[lot.ID] = lotRow{v: *lot, seq: r.s.nextSeq()}
	}
	return nil
}

func (r *PurchaseLotRepo) GetByID(ctx context.Context, companyID, id string) (*entity.PurchaseLot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, err := r.s.check(ctx, "lots.GetByID"); err != nil {
		return nil, err
	}
	row, ok := r.s.lots[companyID][id]
	if !ok {
		return nil, nil
	}
	out := row.v
	return &out, nil
}

func (r *PurchaseLotRepo) list(companyID string, keep func(*entity.PurchaseLot) bool) []*entity.PurchaseLot {
	rows := make([]lotRow, 0)
	for _, row := range r.s.lots[companyID] {
		if keep(&row.v) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	out := make([]*entity.PurchaseLot, 0, len(rows))
	for _, row := range rows {
		v := row.v
		out = append(out, &v)
	}
	return out
}

func (r *PurchaseLotRepo) ListAvailableBySKU(ctx context.Context, companyID, skuID string) ([]*entity.PurchaseLot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, err := r.s.check(ctx, "lots.ListAvailableBySKU"); err != nil {
		return nil, err
	}
	return r.list(companyID, func(l *entity.PurchaseLot) bool {
		return l.SKUID == skuID && l.QuantityRemaining > 0
	}), nil
}

func (r *PurchaseLotRepo) ListByImportBatch(ctx context.Context, companyID, importBatchID string) ([]*entity.PurchaseLot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, err := r.s.check(ctx, "lots.ListByImportBatch"); err != nil {
		return nil, err
	}
	return r.list(companyID, func(l *entity.PurchaseLot) bool { return l.ImportBatchID == importBatchID }), nil
}

func (r *PurchaseLotRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.PurchaseLot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, err := r.s.check(ctx, "lots.ListByCompany"); err != nil {
		return nil, err
	}
	return r.list(companyID, func(*entity.PurchaseLot) bool { return true }), nil
}

func (r *PurchaseLotRepo) UpdateRemaining(ctx context.Context, companyID, id string, remaining, expectedVersion int64) (*entity.PurchaseLot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	drop, err := r.s.check(ctx, "lots.UpdateRemaining")
	if err != nil {
		return nil, err
	}
	row, ok := r.s.lots[companyID][id]
	if !ok || row.v.Version != expectedVersion {
		return nil, domain.ErrVersionConflict
	}
	if remaining < 0 || remaining > row.v.QuantityPurchased {
		return nil, domain.NewValidationError("cantidad restante %d fuera de rango", remaining)
	}
	next := row.v
	next.QuantityRemaining = remaining
	next.Version++
	next.UpdatedAt = r.s.now()
	if !drop {
		row.v = next
		r.s.lots[companyID][id] = row
	}
	return &next, nil
}

func (r *PurchaseLotRepo) Delete(ctx context.Context, companyID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if drop, err := r.s.check(ctx, "lots.Delete"); err != nil || drop {
		return err
	}
	if _, ok := r.s.lots[companyID][id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.lots[companyID], id)
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// CurrentStock
// ──────────────────────────────────────────────────────────────────────────────

// CurrentStockRepo puerto del contador agregado en memoria.
type CurrentStockRepo struct{ s *Store }

func (r *CurrentStockRepo) Get(ctx context.Context, companyID, skuID string) (*entity.CurrentStock, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, err := r.s.check(ctx, "stock.Get"); err != nil {
		return nil, err
	}
	row, ok := r.s.stock[companyID][skuID]
	if !ok {
		return &entity.CurrentStock{CompanyID: companyID, SKUID: skuID}, nil
	}
	out := row.v
	return &out, nil
}

func (r *CurrentStockRepo) Save(ctx context.Context, stock *entity.CurrentStock, expectedVersion int64) (*entity.CurrentStock, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	drop, err := r.s.check(ctx, "stock.Save")
	if err != nil {
		return nil, err
	}
	b := bucket(r.s.stock, stock.CompanyID)
	row, exists := b[stock.SKUID]
	current := int64(0)
	if exists {
		current = row.v.Version
	}
	if current != expectedVersion {
		return nil, domain.ErrVersionConflict
	}
	next := *stock
	next.Version = expectedVersion + 1
	next.UpdatedAt = r.s.now()
	if !drop {
		b[stock.SKUID] = stockRow{v: next}
	}
	return &next, nil
}

func (r *CurrentStockRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.CurrentStock, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, err := r.s.check(ctx, "stock.ListByCompany"); err != nil {
		return nil, err
	}
	out := make([]*entity.CurrentStock, 0, len(r.s.stock[companyID]))
	for _, row := range r.s.stock[companyID] {
		v := row.v
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKUID < out[j].SKUID })
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Order / OrderLine
// ──────────────────────────────────────────────────────────────────────────────

// OrderRepo puerto de órdenes en memoria.
type OrderRepo struct{ s *Store }

func (r *OrderRepo) Create(ctx context.Context, order *entity.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if drop, err := r.s.check(ctx, "orders.Create"); err != nil || drop {
		return err
	}
	order.ID = newID(order.ID)
	if order.Status == "" {
		order.Status = entity.OrderStatusPending
	}
	now := r.s.now()
	order.CreatedAt, order.UpdatedAt = now, now
	bucket(r.s.orders, order.CompanyID)[order.ID] = orderRow{v: *order, seq: r.s.nextSeq()}
	return nil
}

func (r *OrderRepo) GetByID(ctx context.Context, companyID, id string) (*entity.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, err := r.s.check(ctx, "orders.GetByID"); err != nil {
		return nil, err
	}
	row, ok := r.s.orders[companyID][id]
	if !ok {
		return nil, nil
	}
	out := row.v
	return &out, nil
}

func (r *OrderRepo) ListByImportBatch(ctx context.Context, companyID, importBatchID string) ([]*entity.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, err := r.s.check(ctx, "orders.ListByImportBatch"); err != nil {
		return nil, err
	}
	rows := make([]orderRow, 0)
	for _, row := range r.s.orders[companyID] {
		if row.v.ImportBatchID == importBatchID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	out := make([]*entity.Order, 0, len(rows))
	for _, row := range rows {
		v := row.v
		out = append(out, &v)
	}
	return out, nil
}

func (r *OrderRepo) Update(ctx context.Context, order *entity.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	drop, err := r.s.check(ctx, "orders.Update")
	if err != nil {
		return err
	}
	row, ok := r.s.orders[order.CompanyID][order.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if drop {
		return nil
	}
	order.UpdatedAt = r.s.now()
	row.v = *order
	r.s.orders[order.CompanyID][order.ID] = row
	return nil
}

func (r *OrderRepo) Delete(ctx context.Context, companyID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if drop, err := r.s.check(ctx, "orders.Delete"); err != nil || drop {
		return err
	}
	if _, ok := r.s.orders[companyID][id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.orders[companyID], id)
	return nil
}

// OrderLineRepo puerto de líneas en memoria.
type OrderLineRepo struct{ s *Store }

func (r *OrderLineRepo) Create(ctx context.Context, line *entity.OrderLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if drop, err := r.s.check(ctx, "lines.Create"); err != nil || drop {
		return err
	}
	line.ID = newID(line.ID)
	now := r.s.now()
	line.CreatedAt, line.UpdatedAt = now, now
	bucket(r.s.lines, line.CompanyID)[line.ID] = lineRow{v: *line, seq: r.s.nextSeq()}
	return nil
}

func (r *OrderLineRepo) GetByID(ctx context.Context, companyID, id string) (*entity.OrderLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, err := r.s.check(ctx, "lines.GetByID"); err != nil {
		return nil, err
	}
	row, ok := r.s.lines[companyID][id]
	if !ok {
		return nil, nil
	}
	out := row.v
	return &out, nil
}

func (r *OrderLineRepo) ListByOrder(ctx context.Context, companyID, orderID string) ([]*entity.OrderLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, err := r.s.check(ctx, "lines.ListByOrder"); err != nil {
		return nil, err
	}
	rows := make([]lineRow, 0)
	for _, row := range r.s.lines[companyID] {
		if row.v.OrderID == orderID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	out := make([]*entity.OrderLine, 0, len(rows))
	for _, row := range rows {
		v := row.v
		out = append(out, &v)
	}
	return out, nil
}

func (r *OrderLineRepo) Update(ctx context.Context, line *entity.OrderLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	drop, err := r.s.check(ctx, "lines.Update")
	if err != nil {
		return err
	}
	row, ok := r.s.lines[line.CompanyID][line.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if drop {
		return nil
	}
	line.UpdatedAt = r.s.now()
	row.v = *line
	r.s.lines[line.CompanyID][line.ID] = row
	return nil
}

func (r *OrderLineRepo) DeleteByOrder(ctx context.Context, companyID, orderID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if drop, err := r.s.check(ctx, "lines.DeleteByOrder"); err != nil || drop {
		return err
	}
	for id, row := range r.s.lines[companyID] {
		if row.v.OrderID == orderID {
			delete(r.s.lines[companyID], id)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// StockMovement
// ──────────────────────────────────────────────────────────────────────────────

// StockMovementRepo libro de movimientos en memoria.
type StockMovementRepo struct{ s *Store }

func (r *StockMovementRepo) Create(ctx context.Context, movement *entity.StockMovement) error {
	return r.BulkCreate(ctx, []*entity.StockMovement{movement})
}

func (r *StockMovementRepo) BulkCreate(ctx context.Context, movements []*entity.StockMovement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if drop, err := r.s.check(ctx, "movements.BulkCreate"); err != nil || drop {
		return err
	}
	now := r.s.now()
	for _, m := range movements {
		m.ID = newID(m.ID)
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		if m.MovementDate.IsZero() {
			m.MovementDate = now
		}
		bucket(r.s.movements, m.CompanyID)[m.ID] = movementRow{v: *m, seq: r.s.nextSeq()}
	}
	return nil
}

func (r *StockMovementRepo) GetByID(ctx context.Context, companyID, id string) (*entity.StockMovement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, err := r.s.check(ctx, "movements.GetByID"); err != nil {
		return nil, err
	}
	row, ok := r.s.movements[companyID][id]
	if !ok {
		return nil, nil
	}
	out := row.v
	return &out, nil
}

func (r *StockMovementRepo) ListBySKU(ctx context.Context, companyID, skuID string) ([]*entity.StockMovement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, err := r.s.check(ctx, "movements.ListBySKU"); err != nil {
		return nil, err
	}
	rows := make([]movementRow, 0)
	for _, row := range r.s.movements[companyID] {
		if row.v.SKUID == skuID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	out := make([]*entity.StockMovement, 0, len(rows))
	for _, row := range rows {
		v := row.v
		out = append(out, &v)
	}
	return out, nil
}

func (r *StockMovementRepo) SumBySKU(ctx context.Context, companyID string) (map[string]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, err := r.s.check(ctx, "movements.SumBySKU"); err != nil {
		return nil, err
	}
	out := make(map[string]int64)
	for _, row := range r.s.movements[companyID] {
		out[row.v.SKUID] += row.v.Quantity
	}
	return out, nil
}

func (r *StockMovementRepo) Delete(ctx context.Context, companyID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if drop, err := r.s.check(ctx, "movements.Delete"); err != nil || drop {
		return err
	}
	if _, ok := r.s.movements[companyID][id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.movements[companyID], id)
	return nil
}
