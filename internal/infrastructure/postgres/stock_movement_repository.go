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

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo libro de movimientos sobre PostgreSQL (usable con pool o tx).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const movementColumns = `id, company_id, sku_id, type, quantity, reference_type, reference_id,
	return_condition, movement_date, notes, created_at, created_by`

func scanMovement(row interface{ Scan(...any) error }) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var refType, refID, cond, notes, createdBy *string
	err := row.Scan(&m.ID, &m.CompanyID, &m.SKUID, &m.Type, &m.Quantity, &refType, &refID,
		&cond, &m.MovementDate, &notes, &m.CreatedAt, &createdBy)
	if err != nil {
		return nil, err
	}
	m.ReferenceType = fromNull(refType)
	m.ReferenceID = fromNull(refID)
	m.ReturnCondition = entity.ReturnCondition(fromNull(cond))
	m.Notes = fromNull(notes)
	m.CreatedBy = fromNull(createdBy)
	return &m, nil
}

func insertMovement(ctx context.Context, q Querier, m *entity.StockMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	if m.MovementDate.IsZero() {
		m.MovementDate = m.CreatedAt
	}
	_, err := q.Exec(ctx, `
		INSERT INTO stock_movements (`+movementColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		m.ID, m.CompanyID, m.SKUID, m.Type, m.Quantity, nullString(m.ReferenceType), nullString(m.ReferenceID),
		nullString(string(m.ReturnCondition)), m.MovementDate, nullString(m.Notes), m.CreatedAt, nullString(m.CreatedBy),
	)
	return wrap("create stock movement", err)
}

func (r *StockMovementRepo) Create(ctx context.Context, movement *entity.StockMovement) error {
	return insertMovement(ctx, r.q, movement)
}

// BulkCreate inserta los movimientos de una aplicación del libro en una sola transacción.
func (r *StockMovementRepo) BulkCreate(ctx context.Context, movements []*entity.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return inTx(ctx, r.q, func(tx pgx.Tx) error {
		for _, m := range movements {
			if err := insertMovement(ctx, tx, m); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *StockMovementRepo) GetByID(ctx context.Context, companyID, id string) (*entity.StockMovement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, `SELECT `+movementColumns+` FROM stock_movements WHERE company_id = $1 AND id = $2`, companyID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get stock movement", err)
	}
	return m, nil
}

func (r *StockMovementRepo) ListBySKU(ctx context.Context, companyID, skuID string) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+movementColumns+` FROM stock_movements
		WHERE company_id = $1 AND sku_id = $2
		ORDER BY created_at, id`, companyID, skuID)
	if err != nil {
		return nil, wrap("list stock movements", err)
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, wrap("scan stock movement", err)
		}
		list = append(list, m)
	}
	return list, wrap("list stock movements", rows.Err())
}

func (r *StockMovementRepo) SumBySKU(ctx context.Context, companyID string) (map[string]int64, error) {
	rows, err := r.q.Query(ctx, `
		SELECT sku_id, COALESCE(SUM(quantity), 0)::bigint
		FROM stock_movements WHERE company_id = $1
		GROUP BY sku_id`, companyID)
	if err != nil {
		return nil, wrap("sum stock movements", err)
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var skuID string
		var sum int64
		if err := rows.Scan(&skuID, &sum); err != nil {
			return nil, wrap("scan movement sum", err)
		}
		out[skuID] = sum
	}
	return out, wrap("sum stock movements", rows.Err())
}

func (r *StockMovementRepo) Delete(ctx context.Context, companyID, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM stock_movements WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return wrap("delete stock movement", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
