package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ repository.OrderRepository     = (*OrderRepo)(nil)
	_ repository.OrderLineRepository = (*OrderLineRepo)(nil)
)

// OrderRepo órdenes de venta sobre PostgreSQL.
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

const orderColumns = `id, company_id, order_number, import_batch_id, status, net_revenue, total_cost,
	profit_loss, profit_margin_percent, fulfilled_at, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*entity.Order, error) {
	var o entity.Order
	var batchID *string
	err := row.Scan(&o.ID, &o.CompanyID, &o.OrderNumber, &batchID, &o.Status, &o.NetRevenue, &o.TotalCost,
		&o.ProfitLoss, &o.ProfitMarginPercent, &o.FulfilledAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.ImportBatchID = fromNull(batchID)
	return &o, nil
}

func (r *OrderRepo) Create(ctx context.Context, order *entity.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.Status == "" {
		order.Status = entity.OrderStatusPending
	}
	now := time.Now()
	order.CreatedAt, order.UpdatedAt = now, now
	_, err := r.q.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		order.ID, order.CompanyID, order.OrderNumber, nullString(order.ImportBatchID), order.Status,
		order.NetRevenue, order.TotalCost, order.ProfitLoss, order.ProfitMarginPercent, order.FulfilledAt,
		order.CreatedAt, order.UpdatedAt,
	)
	return wrap("create order", err)
}

func (r *OrderRepo) GetByID(ctx context.Context, companyID, id string) (*entity.Order, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE company_id = $1 AND id = $2`, companyID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get order", err)
	}
	return o, nil
}

func (r *OrderRepo) ListByImportBatch(ctx context.Context, companyID, importBatchID string) ([]*entity.Order, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE company_id = $1 AND import_batch_id = $2
		ORDER BY created_at, id`, companyID, importBatchID)
	if err != nil {
		return nil, wrap("list orders by import batch", err)
	}
	defer rows.Close()
	var list []*entity.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, wrap("scan order", err)
		}
		list = append(list, o)
	}
	return list, wrap("list orders by import batch", rows.Err())
}

// Update escribe estado y costos calculados. El llamador relee para verificar.
func (r *OrderRepo) Update(ctx context.Context, order *entity.Order) error {
	order.UpdatedAt = time.Now()
	tag, err := r.q.Exec(ctx, `
		UPDATE orders
		SET status = $3, total_cost = $4, profit_loss = $5, profit_margin_percent = $6,
		    fulfilled_at = $7, updated_at = $8
		WHERE company_id = $1 AND id = $2`,
		order.CompanyID, order.ID, order.Status, order.TotalCost, order.ProfitLoss,
		order.ProfitMarginPercent, order.FulfilledAt, order.UpdatedAt,
	)
	if err != nil {
		return wrap("update order", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepo) Delete(ctx context.Context, companyID, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM orders WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return wrap("delete order", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Líneas
// ──────────────────────────────────────────────────────────────────────────────

// OrderLineRepo líneas de orden sobre PostgreSQL.
type OrderLineRepo struct {
	q Querier
}

// NewOrderLineRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderLineRepository(q Querier) *OrderLineRepo {
	return &OrderLineRepo{q: q}
}

const lineColumns = `id, company_id, order_id, sku_id, quantity, unit_cost, line_total_cost,
	is_returned, return_date, return_condition, created_at, updated_at`

func scanLine(row interface{ Scan(...any) error }) (*entity.OrderLine, error) {
	var l entity.OrderLine
	var cond *string
	err := row.Scan(&l.ID, &l.CompanyID, &l.OrderID, &l.SKUID, &l.Quantity, &l.UnitCost, &l.LineTotalCost,
		&l.IsReturned, &l.ReturnDate, &cond, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.ReturnCondition = entity.ReturnCondition(fromNull(cond))
	return &l, nil
}

func (r *OrderLineRepo) Create(ctx context.Context, line *entity.OrderLine) error {
	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	now := time.Now()
	line.CreatedAt, line.UpdatedAt = now, now
	_, err := r.q.Exec(ctx, `
		INSERT INTO order_lines (`+lineColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		line.ID, line.CompanyID, line.OrderID, line.SKUID, line.Quantity, line.UnitCost, line.LineTotalCost,
		line.IsReturned, line.ReturnDate, nullString(string(line.ReturnCondition)), line.CreatedAt, line.UpdatedAt,
	)
	return wrap("create order line", err)
}

func (r *OrderLineRepo) GetByID(ctx context.Context, companyID, id string) (*entity.OrderLine, error) {
	l, err := scanLine(r.q.QueryRow(ctx, `SELECT `+lineColumns+` FROM order_lines WHERE company_id = $1 AND id = $2`, companyID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get order line", err)
	}
	return l, nil
}

func (r *OrderLineRepo) ListByOrder(ctx context.Context, companyID, orderID string) ([]*entity.OrderLine, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+lineColumns+` FROM order_lines
		WHERE company_id = $1 AND order_id = $2
		ORDER BY created_at, id`, companyID, orderID)
	if err != nil {
		return nil, wrap("list order lines", err)
	}
	defer rows.Close()
	var list []*entity.OrderLine
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, wrap("scan order line", err)
		}
		list = append(list, l)
	}
	return list, wrap("list order lines", rows.Err())
}

func (r *OrderLineRepo) Update(ctx context.Context, line *entity.OrderLine) error {
	line.UpdatedAt = time.Now()
	tag, err := r.q.Exec(ctx, `
		UPDATE order_lines
		SET unit_cost = $3, line_total_cost = $4, is_returned = $5, return_date = $6,
		    return_condition = $7, updated_at = $8
		WHERE company_id = $1 AND id = $2`,
		line.CompanyID, line.ID, line.UnitCost, line.LineTotalCost, line.IsReturned, line.ReturnDate,
		nullString(string(line.ReturnCondition)), line.UpdatedAt,
	)
	if err != nil {
		return wrap("update order line", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderLineRepo) DeleteByOrder(ctx context.Context, companyID, orderID string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM order_lines WHERE company_id = $1 AND order_id = $2`, companyID, orderID)
	return wrap("delete order lines", err)
}
