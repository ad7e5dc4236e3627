package inventory

import (
	"context"
	"sort"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// IntegrityUseCase herramienta de conciliación: detecta (no corrige) inconsistencias que dejan
// las carreras entre operaciones fuera de una misma corrida.
type IntegrityUseCase struct {
	skus      repository.SKURepository
	lots      repository.PurchaseLotRepository
	stock     repository.CurrentStockRepository
	movements repository.StockMovementRepository
}

// NewIntegrityUseCase construye el verificador de integridad.
func NewIntegrityUseCase(repos repository.Repositories) *IntegrityUseCase {
	return &IntegrityUseCase{
		skus:      repos.SKUs,
		lots:      repos.Lots,
		stock:     repos.Stock,
		movements: repos.Movements,
	}
}

// Check compara por SKU el agregado con la suma de movimientos y revisa los límites de cada lote.
// Los hallazgos se ordenan por desviación absoluta descendente.
func (uc *IntegrityUseCase) Check(ctx context.Context, companyID string) (*dto.IntegrityReportDTO, error) {
	// 1. Agregados y suma del libro
	stocks, err := uc.stock.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	sums, err := uc.movements.SumBySKU(ctx, companyID)
	if err != nil {
		return nil, err
	}
	lots, err := uc.lots.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	available := make(map[string]int64, len(stocks))
	skuIDs := make([]string, 0, len(stocks))
	seen := make(map[string]bool)
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			skuIDs = append(skuIDs, id)
		}
	}
	for _, s := range stocks {
		available[s.SKUID] = s.QuantityAvailable
		add(s.SKUID)
	}
	for id := range sums {
		add(id)
	}

	// 2. Lotes fuera de 0 ≤ restante ≤ comprado
	invalidLots := make(map[string][]string)
	for _, l := range lots {
		if l.QuantityRemaining < 0 || l.QuantityRemaining > l.QuantityPurchased {
			invalidLots[l.SKUID] = append(invalidLots[l.SKUID], l.ID)
			add(l.SKUID)
		}
	}

	// 3. Códigos para mostrar
	codes := make(map[string]string)
	if len(skuIDs) > 0 {
		skus, err := uc.skus.ListByIDs(ctx, companyID, skuIDs)
		if err != nil {
			return nil, err
		}
		for _, s := range skus {
			codes[s.ID] = s.Code
		}
	}

	report := &dto.IntegrityReportDTO{CheckedSKUs: len(skuIDs), Issues: []dto.IntegrityIssueDTO{}}
	for _, id := range skuIDs {
		drift := available[id] - sums[id]
		bad := invalidLots[id]
		if drift == 0 && len(bad) == 0 && available[id] >= 0 {
			continue
		}
		report.Issues = append(report.Issues, dto.IntegrityIssueDTO{
			SKUID:             id,
			SKUCode:           codes[id],
			QuantityAvailable: available[id],
			MovementSum:       sums[id],
			Drift:             drift,
			InvalidLots:       bad,
			NegativeStock:     available[id] < 0,
		})
	}

	// 4. Ordenar: mayor desviación absoluta primero, luego por SKU
	sort.SliceStable(report.Issues, func(i, j int) bool {
		a, b := abs(report.Issues[i].Drift), abs(report.Issues[j].Drift)
		if a != b {
			return a > b
		}
		return report.Issues[i].SKUID < report.Issues[j].SKUID
	})
	return report, nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
