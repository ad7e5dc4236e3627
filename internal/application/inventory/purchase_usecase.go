package inventory

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/retry"
)

// DeletionMode cómo tratar el stock al eliminar un lote de compra.
type DeletionMode string

const (
	DeletionModeUnset  DeletionMode = ""
	DeletionModeDeduct DeletionMode = "deduct" // error de registro o devolución a proveedor: descuenta stock
	DeletionModeKeep   DeletionMode = "keep"   // solo borra el registro, el stock queda
)

// ParseDeletionMode valida el modo recibido por HTTP o en un lote.
func ParseDeletionMode(s string) (DeletionMode, error) {
	switch DeletionMode(s) {
	case DeletionModeUnset, DeletionModeDeduct, DeletionModeKeep:
		return DeletionMode(s), nil
	}
	return DeletionModeUnset, domain.NewValidationError("modo de eliminación inválido: %q (deduct|keep)", s)
}

// PurchaseUseCase registra, importa y elimina lotes de compra a través del libro de stock.
type PurchaseUseCase struct {
	skus   repository.SKURepository
	lots   repository.PurchaseLotRepository
	stock  repository.CurrentStockRepository
	ledger Ledger
	policy retry.Policy
}

// NewPurchaseUseCase construye el caso de uso de compras.
func NewPurchaseUseCase(repos repository.Repositories, ledger Ledger, policy retry.Policy) *PurchaseUseCase {
	return &PurchaseUseCase{
		skus:   repos.SKUs,
		lots:   repos.Lots,
		stock:  repos.Stock,
		ledger: ledger,
		policy: policy,
	}
}

// RecordPurchase crea el lote y registra la entrada (+cantidad) en el libro.
func (uc *PurchaseUseCase) RecordPurchase(ctx context.Context, companyID, userID string, in dto.RecordPurchaseRequest) (*entity.PurchaseLot, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	sku, err := uc.skus.GetByID(ctx, companyID, in.SKUID)
	if err != nil {
		return nil, err
	}
	if sku == nil {
		return nil, &domain.ValidationError{Kind: domain.ErrNotFound, Message: "SKU no encontrado: " + in.SKUID}
	}

	lot := &entity.PurchaseLot{
		CompanyID:         companyID,
		SKUID:             sku.ID,
		PurchaseDate:      in.PurchaseDate,
		CostPerUnit:       in.CostPerUnit,
		QuantityPurchased: in.Quantity,
		QuantityRemaining: in.Quantity,
	}
	if err := lot.Validate(); err != nil {
		return nil, err
	}
	if err := retry.Do(ctx, uc.policy, func(ctx context.Context) error { return uc.lots.Create(ctx, lot) }); err != nil {
		return nil, fmt.Errorf("crear lote: %w", err)
	}
	if _, err := uc.ledger.Apply(ctx, DirectionRestore, []LedgerEntry{purchaseEntry(lot, userID)}); err != nil {
		return lot, err
	}
	return lot, nil
}

func purchaseEntry(lot *entity.PurchaseLot, userID string) LedgerEntry {
	return LedgerEntry{
		CompanyID: lot.CompanyID,
		SKUID:     lot.SKUID,
		Quantity:  lot.QuantityPurchased,
		Movement: entity.StockMovement{
			Type:          entity.MovementTypePurchase,
			ReferenceType: entity.ReferenceTypePurchase,
			ReferenceID:   lot.ID,
			MovementDate:  lot.PurchaseDate,
			CreatedBy:     userID,
		},
	}
}

// ImportPurchases valida las filas, crea los lotes válidos en bloque y registra una entrada por lote.
// Las filas inválidas se reportan sin abortar la importación.
func (uc *PurchaseUseCase) ImportPurchases(ctx context.Context, companyID, userID string, rows []dto.PurchaseImportRow) (*dto.ImportPurchasesResponse, error) {
	out := &dto.ImportPurchasesResponse{ImportBatchID: uuid.New().String(), Rejected: []dto.ImportRowError{}}
	skuByCode := make(map[string]*entity.SKU)
	lots := make([]*entity.PurchaseLot, 0, len(rows))

	for _, row := range rows {
		lot, err := uc.rowToLot(ctx, companyID, row, skuByCode)
		if err != nil {
			out.Rejected = append(out.Rejected, dto.ImportRowError{Line: row.Line, Message: err.Error()})
			continue
		}
		lot.ImportBatchID = out.ImportBatchID
		lots = append(lots, lot)
	}
	if len(lots) == 0 {
		return out, nil
	}

	if err := retry.Do(ctx, uc.policy, func(ctx context.Context) error { return uc.lots.BulkCreate(ctx, lots) }); err != nil {
		return nil, fmt.Errorf("crear lotes: %w", err)
	}
	entries := make([]LedgerEntry, 0, len(lots))
	for _, lot := range lots {
		entries = append(entries, purchaseEntry(lot, userID))
	}
	if _, err := uc.ledger.Apply(ctx, DirectionRestore, entries); err != nil {
		return nil, err
	}
	out.Created = len(lots)
	return out, nil
}

// ImportBatchLots lotes creados por una importación de compras.
func (uc *PurchaseUseCase) ImportBatchLots(ctx context.Context, companyID, importBatchID string) ([]*entity.PurchaseLot, error) {
	return retry.DoValue(ctx, uc.policy, func(ctx context.Context) ([]*entity.PurchaseLot, error) {
		return uc.lots.ListByImportBatch(ctx, companyID, importBatchID)
	})
}

func (uc *PurchaseUseCase) rowToLot(ctx context.Context, companyID string, row dto.PurchaseImportRow, cache map[string]*entity.SKU) (*entity.PurchaseLot, error) {
	if err := dto.Validate(row); err != nil {
		return nil, err
	}
	sku, ok := cache[row.SKUCode]
	if !ok {
		var err error
		sku, err = uc.skus.GetByCode(ctx, companyID, row.SKUCode)
		if err != nil {
			return nil, err
		}
		cache[row.SKUCode] = sku
	}
	if sku == nil {
		return nil, domain.NewValidationError("SKU desconocido: %s", row.SKUCode)
	}
	date, _ := time.Parse("2006-01-02", row.PurchaseDate)
	cost, err := decimal.NewFromString(row.CostPerUnit)
	if err != nil {
		return nil, domain.NewValidationError("costo inválido: %s", row.CostPerUnit)
	}
	qty, err := strconv.ParseInt(row.Quantity, 10, 64)
	if err != nil {
		return nil, domain.NewValidationError("cantidad inválida: %s", row.Quantity)
	}
	lot := &entity.PurchaseLot{
		CompanyID:         companyID,
		SKUID:             sku.ID,
		PurchaseDate:      date,
		CostPerUnit:       cost,
		QuantityPurchased: qty,
		QuantityRemaining: qty,
	}
	if err := lot.Validate(); err != nil {
		return nil, err
	}
	return lot, nil
}

// LotDeletionPlan vista previa de la eliminación de un lote. No se escribe nada hasta Commit.
type LotDeletionPlan struct {
	Lot              *entity.PurchaseLot
	Mode             DeletionMode
	UserID           string
	CurrentAvailable int64
	DeductQuantity   int64 // lo que aún queda en el lote
	Warning          *domain.IntegrityWarning
	MovementType     entity.MovementType // manual, o batch_delete dentro de un lote
}

// PrepareLotDeletion calcula el efecto de eliminar el lote. Sin modo devuelve el plan junto con
// domain.ErrChoiceRequired; la advertencia está presente si descontar dejaría el stock negativo.
func (uc *PurchaseUseCase) PrepareLotDeletion(ctx context.Context, companyID, userID, lotID string, mode DeletionMode) (*LotDeletionPlan, error) {
	if _, err := ParseDeletionMode(string(mode)); err != nil {
		return nil, err
	}
	lot, err := retry.DoValue(ctx, uc.policy, func(ctx context.Context) (*entity.PurchaseLot, error) {
		return uc.lots.GetByID(ctx, companyID, lotID)
	})
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, &domain.ValidationError{Kind: domain.ErrNotFound, Message: "compra no encontrada: " + lotID}
	}
	stock, err := retry.DoValue(ctx, uc.policy, func(ctx context.Context) (*entity.CurrentStock, error) {
		return uc.stock.Get(ctx, companyID, lot.SKUID)
	})
	if err != nil {
		return nil, err
	}

	plan := &LotDeletionPlan{
		Lot:              lot,
		Mode:             mode,
		UserID:           userID,
		CurrentAvailable: stock.QuantityAvailable,
		DeductQuantity:   lot.QuantityRemaining,
		MovementType:     entity.MovementTypeManual,
	}
	if resulting := stock.QuantityAvailable - lot.QuantityRemaining; lot.QuantityRemaining > 0 && resulting < 0 {
		plan.Warning = &domain.IntegrityWarning{
			SKUID:              lot.SKUID,
			CurrentAvailable:   stock.QuantityAvailable,
			Delta:              -lot.QuantityRemaining,
			ResultingAvailable: resulting,
			Message:            fmt.Sprintf("descontar %d unidades dejaría el stock en %d", lot.QuantityRemaining, resulting),
		}
	}
	if mode == DeletionModeUnset {
		return plan, domain.ErrChoiceRequired
	}
	return plan, nil
}

// ReverseLot aplica el efecto en el libro del modo elegido (deduct: consumo consentido del restante).
func (uc *PurchaseUseCase) ReverseLot(ctx context.Context, plan *LotDeletionPlan) error {
	switch plan.Mode {
	case DeletionModeKeep:
		return nil
	case DeletionModeDeduct:
	default:
		return domain.ErrChoiceRequired
	}
	if plan.DeductQuantity <= 0 {
		return nil
	}
	lot := plan.Lot
	_, err := uc.ledger.Apply(ctx, DirectionConsume, []LedgerEntry{{
		CompanyID:     lot.CompanyID,
		SKUID:         lot.SKUID,
		Quantity:      plan.DeductQuantity,
		Lots:          []domaininv.LotConsumption{{LotID: lot.ID, Quantity: plan.DeductQuantity, UnitCost: lot.CostPerUnit, Cost: lot.CostPerUnit.Mul(decimal.NewFromInt(plan.DeductQuantity))}},
		AllowNegative: true,
		Movement: entity.StockMovement{
			Type:          plan.MovementType,
			ReferenceType: entity.ReferenceTypePurchase,
			ReferenceID:   lot.ID,
			Notes:         "eliminación de compra",
			CreatedBy:     plan.UserID,
		},
	}})
	return err
}

// DeleteLotRecord borra el registro del lote (los movimientos se conservan).
func (uc *PurchaseUseCase) DeleteLotRecord(ctx context.Context, companyID, lotID string) error {
	return uc.lots.Delete(ctx, companyID, lotID)
}

// CommitLotDeletion ReverseLot seguido del borrado del registro.
func (uc *PurchaseUseCase) CommitLotDeletion(ctx context.Context, plan *LotDeletionPlan) error {
	if err := uc.ReverseLot(ctx, plan); err != nil {
		return err
	}
	return retry.Do(ctx, uc.policy, func(ctx context.Context) error {
		return uc.DeleteLotRecord(ctx, plan.Lot.CompanyID, plan.Lot.ID)
	})
}

// DeletePurchase prepara y, si ya hay modo elegido, confirma la eliminación.
func (uc *PurchaseUseCase) DeletePurchase(ctx context.Context, companyID, userID, lotID string, mode DeletionMode) (*LotDeletionPlan, error) {
	plan, err := uc.PrepareLotDeletion(ctx, companyID, userID, lotID, mode)
	if err != nil {
		return plan, err
	}
	return plan, uc.CommitLotDeletion(ctx, plan)
}
