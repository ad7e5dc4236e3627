package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

// IntegrityHandler conciliación del libro de stock (protegido).
type IntegrityHandler struct {
	uc *inventory.IntegrityUseCase
}

// NewIntegrityHandler construye el handler.
func NewIntegrityHandler(uc *inventory.IntegrityUseCase) *IntegrityHandler {
	return &IntegrityHandler{uc: uc}
}

// Check godoc
// @Summary      Verificar integridad del stock
// @Description  Compara el stock disponible de cada SKU con la suma de sus movimientos y marca lotes fuera de rango.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.IntegrityReportDTO
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/inventory/integrity [get]
func (h *IntegrityHandler) Check(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	report, err := h.uc.Check(c.Context(), companyID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(report)
}
