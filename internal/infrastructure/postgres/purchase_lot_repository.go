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

var _ repository.PurchaseLotRepository = (*PurchaseLotRepo)(nil)

// PurchaseLotRepo lotes de compra sobre PostgreSQL. QuantityRemaining solo cambia por CAS de versión.
type PurchaseLotRepo struct {
	q Querier
}

// NewPurchaseLotRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPurchaseLotRepository(q Querier) *PurchaseLotRepo {
	return &PurchaseLotRepo{q: q}
}

const lotColumns = `id, company_id, sku_id, import_batch_id, purchase_date, cost_per_unit,
	quantity_purchased, quantity_remaining, version, created_at, updated_at`

func scanLot(row interface{ Scan(...any) error }) (*entity.PurchaseLot, error) {
	var l entity.PurchaseLot
	var batchID *string
	err := row.Scan(&l.ID, &l.CompanyID, &l.SKUID, &batchID, &l.PurchaseDate, &l.CostPerUnit,
		&l.QuantityPurchased, &l.QuantityRemaining, &l.Version, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.ImportBatchID = fromNull(batchID)
	return &l, nil
}

func insertLot(ctx context.Context, q Querier, lot *entity.PurchaseLot) error {
	if err := lot.Validate(); err != nil {
		return err
	}
	if lot.ID == "" {
		lot.ID = uuid.New().String()
	}
	now := time.Now()
	lot.Version = 1
	lot.CreatedAt, lot.UpdatedAt = now, now
	_, err := q.Exec(ctx, `
		INSERT INTO purchase_lots (`+lotColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		lot.ID, lot.CompanyID, lot.SKUID, nullString(lot.ImportBatchID), lot.PurchaseDate, lot.CostPerUnit,
		lot.QuantityPurchased, lot.QuantityRemaining, lot.Version, lot.CreatedAt, lot.UpdatedAt,
	)
	return wrap("create purchase lot", err)
}

func (r *PurchaseLotRepo) Create(ctx context.Context, lot *entity.PurchaseLot) error {
	return insertLot(ctx, r.q, lot)
}

// BulkCreate inserta todos los lotes en una transacción: o entran todos o ninguno.
func (r *PurchaseLotRepo) BulkCreate(ctx context.Context, lots []*entity.PurchaseLot) error {
	if len(lots) == 0 {
		return nil
	}
	return inTx(ctx, r.q, func(tx pgx.Tx) error {
		for _, lot := range lots {
			if err := insertLot(ctx, tx, lot); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PurchaseLotRepo) GetByID(ctx context.Context, companyID, id string) (*entity.PurchaseLot, error) {
	l, err := scanLot(r.q.QueryRow(ctx, `SELECT `+lotColumns+` FROM purchase_lots WHERE company_id = $1 AND id = $2`, companyID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get purchase lot", err)
	}
	return l, nil
}

func (r *PurchaseLotRepo) list(ctx context.Context, op, where string, args ...any) ([]*entity.PurchaseLot, error) {
	rows, err := r.q.Query(ctx, `SELECT `+lotColumns+` FROM purchase_lots WHERE `+where+` ORDER BY purchase_date, id`, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()
	var list []*entity.PurchaseLot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, wrap("scan purchase lot", err)
		}
		list = append(list, l)
	}
	return list, wrap(op, rows.Err())
}

func (r *PurchaseLotRepo) ListAvailableBySKU(ctx context.Context, companyID, skuID string) ([]*entity.PurchaseLot, error) {
	return r.list(ctx, "list available lots", `company_id = $1 AND sku_id = $2 AND quantity_remaining > 0`, companyID, skuID)
}

func (r *PurchaseLotRepo) ListByImportBatch(ctx context.Context, companyID, importBatchID string) ([]*entity.PurchaseLot, error) {
	return r.list(ctx, "list lots by import batch", `company_id = $1 AND import_batch_id = $2`, companyID, importBatchID)
}

func (r *PurchaseLotRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.PurchaseLot, error) {
	return r.list(ctx, "list lots", `company_id = $1`, companyID)
}

// UpdateRemaining escritura condicional: solo si la versión leída sigue vigente.
// Cero filas afectadas con el lote existente significa que otra operación escribió antes.
func (r *PurchaseLotRepo) UpdateRemaining(ctx context.Context, companyID, id string, remaining, expectedVersion int64) (*entity.PurchaseLot, error) {
	l, err := scanLot(r.q.QueryRow(ctx, `
		UPDATE purchase_lots
		SET quantity_remaining = $3, version = version + 1, updated_at = now()
		WHERE company_id = $1 AND id = $2 AND version = $4
		  AND $3 BETWEEN 0 AND quantity_purchased
		RETURNING `+lotColumns, companyID, id, remaining, expectedVersion))
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, wrap("update lot remaining", err)
	}

	current, gerr := r.GetByID(ctx, companyID, id)
	switch {
	case gerr != nil:
		return nil, gerr
	case current == nil, current.Version != expectedVersion:
		return nil, domain.ErrVersionConflict
	}
	return nil, domain.NewValidationError("cantidad restante %d fuera de rango [0, %d]", remaining, current.QuantityPurchased)
}

func (r *PurchaseLotRepo) Delete(ctx context.Context, companyID, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM purchase_lots WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return wrap("delete purchase lot", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
