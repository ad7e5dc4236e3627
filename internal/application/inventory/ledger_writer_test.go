package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinv "github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/retry"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const testCompanyID = "00000000-0000-0000-0000-000000000002"

func testPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		Retryable:  domain.IsRateLimited,
		Sleep:      func(context.Context, time.Duration) error { return nil },
	}
}

type fixture struct {
	store  *memory.Store
	repos  repository.Repositories
	ledger *appinv.LedgerWriter
	sku    *entity.SKU
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	sku := &entity.SKU{CompanyID: testCompanyID, Code: "SKU-001", Name: "Camiseta", CostPrice: decimal.NewFromInt(4)}
	require.NoError(t, repos.SKUs.Create(context.Background(), sku))
	return &fixture{
		store:  store,
		repos:  repos,
		ledger: appinv.NewLedgerWriter(repos.Lots, repos.Stock, repos.Movements, testPolicy(), nil, nil),
		sku:    sku,
	}
}

// addLot crea un lote y su entrada de compra en el libro, como lo hace RecordPurchase.
func (f *fixture) addLot(t *testing.T, date string, qty, cost int64) *entity.PurchaseLot {
	t.Helper()
	d, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)
	lot := &entity.PurchaseLot{
		CompanyID:         testCompanyID,
		SKUID:             f.sku.ID,
		PurchaseDate:      d,
		CostPerUnit:       decimal.NewFromInt(cost),
		QuantityPurchased: qty,
		QuantityRemaining: qty,
	}
	require.NoError(t, f.repos.Lots.Create(context.Background(), lot))
	_, err = f.ledger.Apply(context.Background(), appinv.DirectionRestore, []appinv.LedgerEntry{{
		CompanyID: testCompanyID,
		SKUID:     f.sku.ID,
		Quantity:  qty,
		Movement:  entity.StockMovement{Type: entity.MovementTypePurchase, ReferenceType: entity.ReferenceTypePurchase, ReferenceID: lot.ID},
	}})
	require.NoError(t, err)
	return lot
}

func (f *fixture) available(t *testing.T) int64 {
	t.Helper()
	s, err := f.repos.Stock.Get(context.Background(), testCompanyID, f.sku.ID)
	require.NoError(t, err)
	return s.QuantityAvailable
}

func (f *fixture) assertLedgerBalanced(t *testing.T) {
	t.Helper()
	sums, err := f.repos.Movements.SumBySKU(context.Background(), testCompanyID)
	require.NoError(t, err)
	assert.Equal(t, sums[f.sku.ID], f.available(t), "el agregado debe igualar la suma de movimientos")
}

func (f *fixture) consumeEntry(t *testing.T, qty int64) appinv.LedgerEntry {
	t.Helper()
	lots, err := f.repos.Lots.ListAvailableBySKU(context.Background(), testCompanyID, f.sku.ID)
	require.NoError(t, err)
	alloc, err := domaininv.Allocate(f.sku, qty, lots)
	require.NoError(t, err)
	return appinv.LedgerEntry{
		CompanyID: testCompanyID,
		SKUID:     f.sku.ID,
		Quantity:  qty,
		Lots:      alloc.Consumption,
		Movement:  entity.StockMovement{Type: entity.MovementTypeOrderFulfillment, ReferenceType: entity.ReferenceTypeOrderLine, ReferenceID: "line-1"},
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests Apply
// ──────────────────────────────────────────────────────────────────────────────

func TestApply_ConsumoDescuentaLotesStockYRegistraMovimiento(t *testing.T) {
	f := newFixture(t)
	lot1 := f.addLot(t, "2020-01-01", 5, 2)
	lot2 := f.addLot(t, "2020-02-01", 5, 3)

	res, err := f.ledger.Apply(context.Background(), appinv.DirectionConsume, []appinv.LedgerEntry{f.consumeEntry(t, 7)})
	require.NoError(t, err)
	assert.True(t, res.Applied())

	got1, _ := f.repos.Lots.GetByID(context.Background(), testCompanyID, lot1.ID)
	got2, _ := f.repos.Lots.GetByID(context.Background(), testCompanyID, lot2.ID)
	assert.Equal(t, int64(0), got1.QuantityRemaining)
	assert.Equal(t, int64(3), got2.QuantityRemaining)
	assert.Equal(t, int64(3), f.available(t))

	require.Len(t, res.Movements, 1)
	assert.Equal(t, int64(-7), res.Movements[0].Quantity)
	assert.Equal(t, entity.MovementTypeOrderFulfillment, res.Movements[0].Type)
	assert.Equal(t, "line-1", res.Movements[0].ReferenceID)
	f.assertLedgerBalanced(t)
}

func TestApply_LoteConsumidoExternamente_RetornaConflicto(t *testing.T) {
	f := newFixture(t)
	lot := f.addLot(t, "2020-01-01", 5, 2)
	entry := f.consumeEntry(t, 4)

	// Otra pestaña consumió 3 unidades entre el plan y la escritura
	_, err := f.repos.Lots.UpdateRemaining(context.Background(), testCompanyID, lot.ID, 2, lot.Version)
	require.NoError(t, err)

	res, err := f.ledger.Apply(context.Background(), appinv.DirectionConsume, []appinv.LedgerEntry{entry})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLedgerConflict)
	assert.False(t, res.Applied())

	var conflict *domain.LedgerConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "purchase_lot", conflict.Entity)
	assert.Equal(t, lot.ID, conflict.ID)
	assert.Equal(t, int64(4), conflict.Expected)
	assert.Equal(t, int64(2), conflict.Actual)

	got, _ := f.repos.Lots.GetByID(context.Background(), testCompanyID, lot.ID)
	assert.Equal(t, int64(2), got.QuantityRemaining, "nunca negativo")
	assert.Equal(t, int64(5), f.available(t), "el agregado no se toca si falla un lote")
}

func TestApply_AgregadoInsuficienteSinConsentimiento_RetornaConflicto(t *testing.T) {
	f := newFixture(t)
	f.addLot(t, "2020-01-01", 2, 2)

	entry := appinv.LedgerEntry{CompanyID: testCompanyID, SKUID: f.sku.ID, Quantity: 5,
		Movement: entity.StockMovement{Type: entity.MovementTypeManual}}
	_, err := f.ledger.Apply(context.Background(), appinv.DirectionConsume, []appinv.LedgerEntry{entry})

	var conflict *domain.LedgerConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "current_stock", conflict.Entity)
	assert.Equal(t, int64(5), conflict.Expected)
	assert.Equal(t, int64(2), conflict.Actual)
	assert.Equal(t, int64(2), f.available(t))
}

func TestApply_ConsentimientoPermiteAgregadoNegativo(t *testing.T) {
	f := newFixture(t)
	f.addLot(t, "2020-01-01", 2, 2)

	entry := appinv.LedgerEntry{CompanyID: testCompanyID, SKUID: f.sku.ID, Quantity: 5, AllowNegative: true,
		Movement: entity.StockMovement{Type: entity.MovementTypeManual}}
	_, err := f.ledger.Apply(context.Background(), appinv.DirectionConsume, []appinv.LedgerEntry{entry})
	require.NoError(t, err)

	assert.Equal(t, int64(-3), f.available(t))
	f.assertLedgerBalanced(t)
}

func TestApply_RestitucionNoReconstruyeLotes(t *testing.T) {
	f := newFixture(t)
	lot := f.addLot(t, "2020-01-01", 5, 2)
	_, err := f.ledger.Apply(context.Background(), appinv.DirectionConsume, []appinv.LedgerEntry{f.consumeEntry(t, 5)})
	require.NoError(t, err)

	res, err := f.ledger.Apply(context.Background(), appinv.DirectionRestore, []appinv.LedgerEntry{{
		CompanyID: testCompanyID, SKUID: f.sku.ID, Quantity: 5,
		Movement: entity.StockMovement{Type: entity.MovementTypeBatchDelete},
	}})
	require.NoError(t, err)

	assert.Equal(t, int64(5), f.available(t))
	assert.Equal(t, int64(5), res.Movements[0].Quantity)
	got, _ := f.repos.Lots.GetByID(context.Background(), testCompanyID, lot.ID)
	assert.Equal(t, int64(0), got.QuantityRemaining, "el lote queda agotado")
	f.assertLedgerBalanced(t)

	_, err = f.ledger.Apply(context.Background(), appinv.DirectionRestore, []appinv.LedgerEntry{{
		CompanyID: testCompanyID, SKUID: f.sku.ID, Quantity: 1,
		Lots: []domaininv.LotConsumption{{LotID: lot.ID, Quantity: 1}},
	}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestApply_LimiteDePeticiones_SeReintenta(t *testing.T) {
	f := newFixture(t)
	f.addLot(t, "2020-01-01", 5, 2)

	failures := 2
	f.store.SetFault(func(op string) (bool, error) {
		if op == "stock.Save" && failures > 0 {
			failures--
			return false, domain.ErrRateLimited
		}
		return false, nil
	})

	_, err := f.ledger.Apply(context.Background(), appinv.DirectionConsume, []appinv.LedgerEntry{f.consumeEntry(t, 1)})
	require.NoError(t, err)
	assert.Equal(t, 0, failures)
	assert.Equal(t, int64(4), f.available(t))
}

func TestApply_VariasLineasMismoSKU_AgrupaPorLote(t *testing.T) {
	f := newFixture(t)
	lot := f.addLot(t, "2020-01-01", 10, 2)

	e1 := f.consumeEntry(t, 3)
	e2 := f.consumeEntry(t, 4)
	e2.Movement.ReferenceID = "line-2"
	res, err := f.ledger.Apply(context.Background(), appinv.DirectionConsume, []appinv.LedgerEntry{e1, e2})
	require.NoError(t, err)

	got, _ := f.repos.Lots.GetByID(context.Background(), testCompanyID, lot.ID)
	assert.Equal(t, int64(3), got.QuantityRemaining)
	assert.Equal(t, int64(3), f.available(t))
	assert.Len(t, res.Movements, 2, "un movimiento por línea")
	f.assertLedgerBalanced(t)
}

func TestApply_CantidadInvalida_NoEscribe(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.Apply(context.Background(), appinv.DirectionConsume, []appinv.LedgerEntry{{
		CompanyID: testCompanyID, SKUID: f.sku.ID, Quantity: 0,
	}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, int64(0), f.available(t))
}

func TestRevert_DeshaceMovimientoYLoBorra(t *testing.T) {
	f := newFixture(t)
	f.addLot(t, "2020-01-01", 5, 2)
	ctx := context.Background()

	res, err := f.ledger.Apply(ctx, appinv.DirectionRestore, []appinv.LedgerEntry{{
		CompanyID: testCompanyID,
		SKUID:     f.sku.ID,
		Quantity:  3,
		Movement:  entity.StockMovement{Type: entity.MovementTypeReturn, ReturnCondition: entity.ReturnConditionSound},
	}})
	require.NoError(t, err)
	require.Len(t, res.Movements, 1)

	require.NoError(t, f.ledger.Revert(ctx, res.Movements[0]))

	stock, err := f.repos.Stock.Get(ctx, testCompanyID, f.sku.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stock.QuantityAvailable)
	gone, err := f.repos.Movements.GetByID(ctx, testCompanyID, res.Movements[0].ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestRevert_NoDejaStockNegativo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mov := &entity.StockMovement{ID: "m1", CompanyID: testCompanyID, SKUID: f.sku.ID, Type: entity.MovementTypeReturn, Quantity: 2}
	require.NoError(t, f.repos.Movements.Create(ctx, mov))

	err := f.ledger.Revert(ctx, mov)
	assert.ErrorIs(t, err, domain.ErrLedgerConflict)

	still, err := f.repos.Movements.GetByID(ctx, testCompanyID, "m1")
	require.NoError(t, err)
	assert.NotNil(t, still)
}
