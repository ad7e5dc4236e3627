package inventory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixtures
// ──────────────────────────────────────────────────────────────────────────────

const testCompanyID = "company-1"

func testSKU(costPrice int64) *entity.SKU {
	return &entity.SKU{ID: "sku-1", CompanyID: testCompanyID, Code: "SKU-001", CostPrice: decimal.NewFromInt(costPrice)}
}

func lot(id, date string, qty, cost int64) *entity.PurchaseLot {
	d, _ := time.Parse("2006-01-02", date)
	return &entity.PurchaseLot{
		ID:                id,
		CompanyID:         testCompanyID,
		SKUID:             "sku-1",
		PurchaseDate:      d,
		CostPerUnit:       decimal.NewFromInt(cost),
		QuantityPurchased: qty,
		QuantityRemaining: qty,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests Allocate
// ──────────────────────────────────────────────────────────────────────────────

func TestAllocate_ConsumeLotesMasAntiguosPrimero(t *testing.T) {
	lots := []*entity.PurchaseLot{
		lot("lot2", "2020-02-01", 5, 3),
		lot("lot1", "2020-01-01", 5, 2),
	}

	alloc, err := inventory.Allocate(testSKU(9), 7, lots)
	require.NoError(t, err)

	require.Len(t, alloc.Consumption, 2)
	assert.Equal(t, "lot1", alloc.Consumption[0].LotID)
	assert.Equal(t, int64(5), alloc.Consumption[0].Quantity)
	assert.Equal(t, "lot2", alloc.Consumption[1].LotID)
	assert.Equal(t, int64(2), alloc.Consumption[1].Quantity)
	assert.True(t, decimal.NewFromInt(16).Equal(alloc.LineCost), "5*2 + 2*3 = 16, obtuvo %s", alloc.LineCost)
	assert.Zero(t, alloc.ShortfallQty)
	assert.Equal(t, int64(7), alloc.ConsumedFromLots())
}

func TestAllocate_SinLotesUsaCostoDelSKU(t *testing.T) {
	alloc, err := inventory.Allocate(testSKU(4), 3, nil)
	require.NoError(t, err)

	assert.Empty(t, alloc.Consumption)
	assert.Equal(t, int64(3), alloc.ShortfallQty)
	assert.True(t, decimal.NewFromInt(12).Equal(alloc.LineCost))
	assert.True(t, decimal.NewFromInt(12).Equal(alloc.ShortfallCost))
}

func TestAllocate_FaltanteParcialSeCosteaAlCostoDelSKU(t *testing.T) {
	lots := []*entity.PurchaseLot{lot("lot1", "2020-01-01", 2, 5)}

	alloc, err := inventory.Allocate(testSKU(1), 5, lots)
	require.NoError(t, err)

	assert.Equal(t, int64(3), alloc.ShortfallQty)
	// 2*5 + 3*1
	assert.True(t, decimal.NewFromInt(13).Equal(alloc.LineCost))
}

func TestAllocate_EmpateDeFechaSeResuelvePorID(t *testing.T) {
	lots := []*entity.PurchaseLot{
		lot("lot-b", "2020-01-01", 5, 3),
		lot("lot-a", "2020-01-01", 5, 2),
	}

	alloc, err := inventory.Allocate(testSKU(0), 6, lots)
	require.NoError(t, err)

	require.Len(t, alloc.Consumption, 2)
	assert.Equal(t, "lot-a", alloc.Consumption[0].LotID)
	assert.Equal(t, int64(5), alloc.Consumption[0].Quantity)
	assert.Equal(t, "lot-b", alloc.Consumption[1].LotID)
	assert.Equal(t, int64(1), alloc.Consumption[1].Quantity)
}

func TestAllocate_OmiteLotesAgotados(t *testing.T) {
	empty := lot("lot0", "2019-01-01", 5, 100)
	empty.QuantityRemaining = 0
	lots := []*entity.PurchaseLot{empty, lot("lot1", "2020-01-01", 5, 2)}

	alloc, err := inventory.Allocate(testSKU(0), 1, lots)
	require.NoError(t, err)

	require.Len(t, alloc.Consumption, 1)
	assert.Equal(t, "lot1", alloc.Consumption[0].LotID)
}

func TestAllocate_NoModificaLaEntrada(t *testing.T) {
	lots := []*entity.PurchaseLot{
		lot("lot2", "2020-02-01", 5, 3),
		lot("lot1", "2020-01-01", 5, 2),
	}

	_, err := inventory.Allocate(testSKU(0), 7, lots)
	require.NoError(t, err)

	assert.Equal(t, "lot2", lots[0].ID, "el orden del slice original se conserva")
	assert.Equal(t, int64(5), lots[0].QuantityRemaining)
	assert.Equal(t, int64(5), lots[1].QuantityRemaining)
}

func TestAllocate_CantidadInvalida_RetornaValidationError(t *testing.T) {
	for _, qty := range []int64{0, -3} {
		_, err := inventory.Allocate(testSKU(1), qty, nil)
		var vErr *domain.ValidationError
		require.True(t, errors.As(err, &vErr), "qty=%d debe ser ValidationError", qty)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
}

func TestAllocate_LoteDeOtraEmpresa_RetornaError(t *testing.T) {
	foreign := lot("lot1", "2020-01-01", 5, 2)
	foreign.CompanyID = "otra"

	_, err := inventory.Allocate(testSKU(1), 1, []*entity.PurchaseLot{foreign})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests UnitCost / ComputeProfit
// ──────────────────────────────────────────────────────────────────────────────

func TestUnitCost_PromedioDeLinea(t *testing.T) {
	assert.True(t, decimal.RequireFromString("2.2857").Equal(inventory.UnitCost(decimal.NewFromInt(16), 7)))
	assert.True(t, inventory.UnitCost(decimal.NewFromInt(16), 0).IsZero())
}

func TestComputeProfit_MargenNuloConIngresoCero(t *testing.T) {
	profit, margin := inventory.ComputeProfit(decimal.Zero, decimal.NewFromInt(10))
	assert.True(t, decimal.NewFromInt(-10).Equal(profit))
	assert.Nil(t, margin)
}

func TestComputeProfit_CalculaMargenPorcentual(t *testing.T) {
	profit, margin := inventory.ComputeProfit(decimal.NewFromInt(40), decimal.NewFromInt(16))
	assert.True(t, decimal.NewFromInt(24).Equal(profit))
	require.NotNil(t, margin)
	assert.True(t, decimal.NewFromInt(60).Equal(*margin))
}
