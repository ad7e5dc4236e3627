package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	appinv "github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

const testUserID = "00000000-0000-0000-0000-000000000001"

func newPurchaseUC(f *fixture) *appinv.PurchaseUseCase {
	return appinv.NewPurchaseUseCase(f.repos, f.ledger, testPolicy())
}

// ──────────────────────────────────────────────────────────────────────────────
// RecordPurchase / ImportPurchases
// ──────────────────────────────────────────────────────────────────────────────

func TestRecordPurchase_CreaLoteYEntradaEnLibro(t *testing.T) {
	f := newFixture(t)
	uc := newPurchaseUC(f)

	lot, err := uc.RecordPurchase(context.Background(), testCompanyID, testUserID, dto.RecordPurchaseRequest{
		SKUID:        f.sku.ID,
		PurchaseDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		CostPerUnit:  decimal.NewFromInt(2),
		Quantity:     5,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), lot.QuantityRemaining)
	assert.Equal(t, int64(5), f.available(t))

	movs, err := f.repos.Movements.ListBySKU(context.Background(), testCompanyID, f.sku.ID)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementTypePurchase, movs[0].Type)
	assert.Equal(t, lot.ID, movs[0].ReferenceID)
	assert.Equal(t, testUserID, movs[0].CreatedBy)
}

func TestRecordPurchase_SKUInexistente_RetornaNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := newPurchaseUC(f).RecordPurchase(context.Background(), testCompanyID, testUserID, dto.RecordPurchaseRequest{
		SKUID: "no-existe", PurchaseDate: time.Now(), CostPerUnit: decimal.NewFromInt(1), Quantity: 1,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordPurchase_CantidadCero_RetornaValidationError(t *testing.T) {
	f := newFixture(t)
	_, err := newPurchaseUC(f).RecordPurchase(context.Background(), testCompanyID, testUserID, dto.RecordPurchaseRequest{
		SKUID: f.sku.ID, PurchaseDate: time.Now(), CostPerUnit: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, int64(0), f.available(t))
}

func TestImportPurchases_FilasInvalidasSeReportanSinAbortar(t *testing.T) {
	f := newFixture(t)
	rows := []dto.PurchaseImportRow{
		{Line: 2, SKUCode: "SKU-001", PurchaseDate: "2020-01-01", CostPerUnit: "2.50", Quantity: "4"},
		{Line: 3, SKUCode: "SKU-404", PurchaseDate: "2020-01-02", CostPerUnit: "1", Quantity: "1"},
		{Line: 4, SKUCode: "SKU-001", PurchaseDate: "01/02/2020", CostPerUnit: "1", Quantity: "1"},
		{Line: 5, SKUCode: "SKU-001", PurchaseDate: "2020-02-01", CostPerUnit: "3", Quantity: "6"},
	}

	res, err := newPurchaseUC(f).ImportPurchases(context.Background(), testCompanyID, testUserID, rows)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Created)
	require.Len(t, res.Rejected, 2)
	assert.Equal(t, 3, res.Rejected[0].Line)
	assert.Equal(t, 4, res.Rejected[1].Line)
	assert.Equal(t, int64(10), f.available(t))

	lots, err := f.repos.Lots.ListByImportBatch(context.Background(), testCompanyID, res.ImportBatchID)
	require.NoError(t, err)
	assert.Len(t, lots, 2)
	f.assertLedgerBalanced(t)
}

// ──────────────────────────────────────────────────────────────────────────────
// Eliminación de compras
// ──────────────────────────────────────────────────────────────────────────────

func TestDeletePurchase_SinModo_NoModificaNadaYAdvierte(t *testing.T) {
	f := newFixture(t)
	lot := f.addLot(t, "2020-01-01", 5, 2)
	// Stock externo consumido: solo quedan 3 en el agregado aunque el lote tenga 5
	_, err := f.ledger.Apply(context.Background(), appinv.DirectionConsume, []appinv.LedgerEntry{{
		CompanyID: testCompanyID, SKUID: f.sku.ID, Quantity: 2, Movement: entity.StockMovement{Type: entity.MovementTypeManual},
	}})
	require.NoError(t, err)

	plan, err := newPurchaseUC(f).DeletePurchase(context.Background(), testCompanyID, testUserID, lot.ID, appinv.DeletionModeUnset)
	require.ErrorIs(t, err, domain.ErrChoiceRequired)
	require.NotNil(t, plan)
	require.NotNil(t, plan.Warning, "descontar 5 de 3 deja el stock negativo")
	assert.Equal(t, int64(-2), plan.Warning.ResultingAvailable)

	got, _ := f.repos.Lots.GetByID(context.Background(), testCompanyID, lot.ID)
	require.NotNil(t, got, "el lote no se borra sin elección")
	assert.Equal(t, int64(5), got.QuantityRemaining)
	assert.Equal(t, int64(3), f.available(t))
}

func TestDeletePurchase_Deduct_DescuentaStockYBorraLote(t *testing.T) {
	f := newFixture(t)
	lot := f.addLot(t, "2020-01-01", 5, 2)

	_, err := newPurchaseUC(f).DeletePurchase(context.Background(), testCompanyID, testUserID, lot.ID, appinv.DeletionModeDeduct)
	require.NoError(t, err)

	got, _ := f.repos.Lots.GetByID(context.Background(), testCompanyID, lot.ID)
	assert.Nil(t, got)
	assert.Equal(t, int64(0), f.available(t))
	f.assertLedgerBalanced(t)
}

func TestDeletePurchase_DeductConsentidoPuedeDejarNegativo(t *testing.T) {
	f := newFixture(t)
	lot := f.addLot(t, "2020-01-01", 5, 2)
	_, err := f.ledger.Apply(context.Background(), appinv.DirectionConsume, []appinv.LedgerEntry{{
		CompanyID: testCompanyID, SKUID: f.sku.ID, Quantity: 4, Movement: entity.StockMovement{Type: entity.MovementTypeManual},
	}})
	require.NoError(t, err)

	_, err = newPurchaseUC(f).DeletePurchase(context.Background(), testCompanyID, testUserID, lot.ID, appinv.DeletionModeDeduct)
	require.NoError(t, err)
	assert.Equal(t, int64(-4), f.available(t))
}

func TestDeletePurchase_Keep_SoloBorraRegistro(t *testing.T) {
	f := newFixture(t)
	lot := f.addLot(t, "2020-01-01", 5, 2)

	_, err := newPurchaseUC(f).DeletePurchase(context.Background(), testCompanyID, testUserID, lot.ID, appinv.DeletionModeKeep)
	require.NoError(t, err)

	got, _ := f.repos.Lots.GetByID(context.Background(), testCompanyID, lot.ID)
	assert.Nil(t, got)
	assert.Equal(t, int64(5), f.available(t))
}

func TestParseDeletionMode_Invalido(t *testing.T) {
	_, err := appinv.ParseDeletionMode("borrar")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Integridad
// ──────────────────────────────────────────────────────────────────────────────

func TestIntegrityCheck_DetectaDesviacionEntreAgregadoYLibro(t *testing.T) {
	f := newFixture(t)
	f.addLot(t, "2020-01-01", 5, 2)
	uc := appinv.NewIntegrityUseCase(f.repos)

	report, err := uc.Check(context.Background(), testCompanyID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.CheckedSKUs)
	assert.Empty(t, report.Issues, "libro cuadrado")

	// Escritura externa sin movimiento
	s, _ := f.repos.Stock.Get(context.Background(), testCompanyID, f.sku.ID)
	_, err = f.repos.Stock.Save(context.Background(), &entity.CurrentStock{CompanyID: testCompanyID, SKUID: f.sku.ID, QuantityAvailable: 9}, s.Version)
	require.NoError(t, err)

	report, err = uc.Check(context.Background(), testCompanyID)
	require.NoError(t, err)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "SKU-001", report.Issues[0].SKUCode)
	assert.Equal(t, int64(4), report.Issues[0].Drift)
	assert.Equal(t, int64(5), report.Issues[0].MovementSum)
}
